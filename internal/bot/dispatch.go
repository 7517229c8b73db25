package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"gym-bot/internal/models"
	"gym-bot/internal/nav"
	"gym-bot/internal/responder"
)

var hubHeaders = map[nav.Intent]string{
	nav.UserProfileMenu:   "👤 *Your Profile*\n" + rule + "\nCheck your status or view classes:",
	nav.UserTrainingMenu:  "🏋️‍♂️ *Training Hub*\n" + rule + "\nTrack your progress or get AI-powered plans:",
	nav.UserInfoMenu:      "🏢 *Information Hub*\n" + rule + "\nSelect a category to learn more about us:",
	nav.UserTrackerMenu:   "📊 *Workout Tracker*\n" + rule + "\nLog your sweat or check your history:",
	nav.UserCoachMenu:     "🤖 *AI Fitness Coach*\n" + rule + "\nCustom workout and diet advice:",
	nav.UserAboutMenu:     "🏢 *About the Gym*\n" + rule + "\nOur schedules, team, and rules:",
	nav.UserServicesMenu:  "🛠️ *Gym Services*\n" + rule + "\nFees, tools, trials, and support:",
	nav.AdminDash:         "🛠️ *Admin Dashboard Hub*\nChoose a category to manage your gym:",
	nav.AdminMembership:   "👥 *Membership Hub*\nManage your members and communication:",
	nav.AdminFinancial:    "💰 *Financial Hub*\nTrack your revenue and payments:",
	nav.AdminIntelligence: "📈 *Intelligence Hub*\nAnalyze gym data and AI insights:",
}

const rule = "━━━━━━━━━━━━━━"

// handleCommand processes bot commands. Any command abandons a pending
// flow.
func (t *TelegramBot) handleCommand(ctx context.Context, sess *nav.Session, msg *tgbotapi.Message) error {
	command := msg.Command()
	t.logger.Infow("Handling command", "command", command, "user_id", sess.UserID)

	switch command {
	case "start":
		return t.start(ctx, sess, msg)
	case "cancel":
		return t.cancel(ctx, sess, msg.Chat.ID)
	case "help":
		sess.Reset()
		return t.handleIntent(ctx, sess, msg, nav.Help, "")
	case "add_member":
		sess.Reset()
		return t.addMember(ctx, sess, msg.Chat.ID, msg.CommandArguments())
	}
	sess.Reset()
	v, _ := t.viewer(ctx, sess)
	return t.reply(msg.Chat.ID, "🤔 Unknown command. Type /help to see what I can do!", t.keyboard(v, sess, ""))
}

// handleMessage routes text: a pending flow gets it first, then button
// labels, then the intent classifier.
func (t *TelegramBot) handleMessage(ctx context.Context, sess *nav.Session, msg *tgbotapi.Message) error {
	if msg.IsCommand() {
		return t.handleCommand(ctx, sess, msg)
	}
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return nil
	}

	intent, isButton := nav.Resolve(text)
	if isButton && intent == nav.Cancel {
		return t.cancel(ctx, sess, msg.Chat.ID)
	}
	if !sess.Idle() {
		return t.handleFlow(ctx, sess, msg, text)
	}
	if !isButton {
		intent = t.ai.Classify(ctx, text, t.store.GymInfo(ctx).GymName)
	}
	t.logger.Debugw("Intent resolved", "user_id", sess.UserID, "intent", intent, "button", isButton)
	return t.handleIntent(ctx, sess, msg, intent, text)
}

func (t *TelegramBot) handleFlow(ctx context.Context, sess *nav.Session, msg *tgbotapi.Message, text string) error {
	switch f := sess.Flow.(type) {
	case nav.Registering:
		return t.continueRegistration(ctx, sess, msg, f, text)
	case nav.AwaitingSearch:
		return t.searchResults(ctx, sess, msg.Chat.ID, text)
	case nav.AwaitingBroadcast:
		return t.broadcast(ctx, sess, msg.Chat.ID, text)
	case nav.AwaitingTargetedBroadcast:
		return t.targetedBroadcast(ctx, sess, msg.Chat.ID, f, text)
	case nav.AwaitingRenewalAmount:
		return t.renewalAmount(ctx, sess, msg.Chat.ID, f, text)
	case nav.AwaitingRenewalDuration:
		return t.renewalDuration(ctx, sess, msg.Chat.ID, f, text)
	case nav.AwaitingEdit:
		return t.editField(ctx, sess, msg.Chat.ID, f, text)
	}
	sess.Reset()
	return nil
}

func (t *TelegramBot) cancel(ctx context.Context, sess *nav.Session, chatID int64) error {
	text := "ℹ️ Nothing to cancel."
	if !sess.Idle() {
		text = "❌ Cancelled."
	}
	sess.Reset()
	v, _ := t.viewer(ctx, sess)
	return t.reply(chatID, text, t.keyboard(v, sess, ""))
}

// start greets the user with the screen of their role.
func (t *TelegramBot) start(ctx context.Context, sess *nav.Session, msg *tgbotapi.Message) error {
	sess.Reset()
	v, m := t.viewer(ctx, sess)
	first := msg.From.FirstName

	var text string
	switch nav.Initial(v) {
	case nav.AdminDash:
		text = "🛠️ *Welcome, Admin!*\n\n" +
			"You have full access to both the *Admin Dashboard* and the *Member Hub*.\n" +
			"Select an option below to get started:" + t.todaySummary(ctx)
	case nav.MainMenu:
		text = fmt.Sprintf("💪 Welcome back, *%s*!\nYour membership is active. Ready to crush your goals today?",
			orDefault(m.FullName, first))
	case nav.UserInfoMenu:
		text = fmt.Sprintf("⏳ Hello *%s*!\n\n"+
			"Your registration is currently *Pending Approval* from the gym admin.\n"+
			"We'll notify you here as soon as your account is activated! 🏋️‍♂️\n\n"+
			"In the meantime, you can check our timings and facilities below.", first)
	default:
		text = fmt.Sprintf("👋 Welcome to *%s*! It looks like you're not registered yet.\nChoose an option below to get started:",
			t.store.GymInfo(ctx).GymName)
	}
	sess.Menu = nav.Initial(v)
	return t.reply(msg.Chat.ID, text, nav.SelectKeyboard(sess.Menu, v))
}

func (t *TelegramBot) handleIntent(ctx context.Context, sess *nav.Session, msg *tgbotapi.Message, intent nav.Intent, text string) error {
	chatID := msg.Chat.ID
	v, m := t.viewer(ctx, sess)

	switch intent {
	case nav.Back:
		parent := nav.Parent(sess.Menu)
		if sess.Menu == "" {
			parent = nav.Initial(v)
		}
		sess.Menu = parent
		return t.reply(chatID, "Going back...", nav.SelectKeyboard(parent, v))
	case nav.Cancel:
		return t.cancel(ctx, sess, chatID)
	case nav.MainMenu:
		return t.start(ctx, sess, msg)
	case nav.RegisterStart:
		return t.startRegistration(ctx, sess, chatID, v)
	case nav.AdminMode, nav.MemberMode:
		if !v.Admin {
			break
		}
		return t.switchMode(ctx, sess, chatID, v, m, intent == nav.AdminMode)
	}

	if nav.IsAdminIntent(intent) {
		if !v.Admin {
			return t.reply(chatID, "⛔ This section is for the gym admin only.", t.keyboard(v, sess, ""))
		}
		return t.handleAdmin(ctx, sess, chatID, v, intent)
	}

	if header, ok := hubHeaders[intent]; ok {
		sess.Menu = intent
		return t.reply(chatID, header, nav.SelectKeyboard(intent, v))
	}

	if handled, err := t.handleMemberLeaf(ctx, sess, chatID, v, m, intent, text); handled {
		return err
	}

	if reply, ok := t.responder.Resolve(ctx, intent, text, sess.UserID); ok {
		sess.Menu = intent
		return t.reply(chatID, reply, nav.SelectKeyboard(intent, v))
	}
	return t.fallback(ctx, sess, chatID, v, text)
}

func (t *TelegramBot) switchMode(ctx context.Context, sess *nav.Session, chatID int64, v nav.Viewer, m models.Member, admin bool) error {
	sess.AdminMode = admin
	v.AdminMode = admin
	if admin {
		sess.Menu = nav.AdminDash
		return t.reply(chatID, "🛠️ *Switched to Admin Mode*\nWelcome back to the dashboard."+t.todaySummary(ctx), nav.SelectKeyboard(sess.Menu, v))
	}
	sess.Menu = nav.MainMenu
	name := orDefault(m.FullName, "Admin")
	return t.reply(chatID, fmt.Sprintf("👤 *Switched to User Mode*\nLogged in as: %s\n\n"+
		"You'll stay in User Mode until you switch back to Admin Mode.", name), nav.SelectKeyboard(sess.Menu, v))
}

// fallback answers text nothing else understood with the AI assistant,
// or the canned help pointer when it is offline.
func (t *TelegramBot) fallback(ctx context.Context, sess *nav.Session, chatID int64, v nav.Viewer, text string) error {
	answer := responder.Fallback
	if t.ai.Online() && text != "" {
		out, err := t.ai.Ask(ctx, t.store.GymInfo(ctx), text)
		if err != nil {
			t.logger.Warnw("AI fallback failed", "user_id", sess.UserID, "error", err)
		} else if strings.TrimSpace(out) != "" {
			answer = out
		}
	}
	return t.reply(chatID, answer, t.keyboard(v, sess, ""))
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
