package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gym-bot/internal/models"
	"gym-bot/internal/nav"
	"gym-bot/internal/responder"
	"gym-bot/internal/store"
)

// handleMemberLeaf answers the member screens that need more than a
// canned reply. It reports false for intents it does not own.
func (t *TelegramBot) handleMemberLeaf(ctx context.Context, sess *nav.Session, chatID int64, v nav.Viewer, m models.Member, intent nav.Intent, text string) (bool, error) {
	var reply string
	switch intent {
	case nav.CheckIn:
		reply = t.checkIn(ctx, v, m)
	case nav.CheckOut:
		reply = t.checkOut(ctx, v, m)
	case nav.LogWorkoutStart:
		reply = responder.LogUsage
	case nav.UserWorkoutLogs:
		reply = t.workoutLogs(ctx, sess.UserID)
	case nav.ViewAttendance:
		reply = t.attendance(ctx, sess.UserID)
	case nav.ViewMachines:
		reply = t.machines(ctx)
	case nav.StaffInfo:
		reply = staff(t.store.GymInfo(ctx))
	case nav.GymRules:
		reply = gymRules(t.store.GymInfo(ctx))
	case nav.Contact:
		reply = contact(t.store.GymInfo(ctx))
	case nav.FAQ:
		reply = faq(t.store.GymInfo(ctx))
	case nav.Workout, nav.Diet:
		reply = t.coach(ctx, sess.UserID, intent, text)
	default:
		return false, nil
	}
	sess.Menu = intent
	return true, t.reply(chatID, reply, nav.SelectKeyboard(intent, v))
}

// unavailable turns a store failure into the reply shown to the user.
// Errors other than the offline store are logged.
func (t *TelegramBot) unavailable(what string, err error) string {
	if errors.Is(err, store.ErrOffline) {
		return fmt.Sprintf("⚠️ %s system is offline.", what)
	}
	t.logger.Errorw("Record store operation failed", "what", what, "error", err)
	return fmt.Sprintf("⚠️ %s system is temporarily unavailable. Please try again shortly.", what)
}

func (t *TelegramBot) checkIn(ctx context.Context, v nav.Viewer, m models.Member) string {
	if !v.Registered {
		return "⚠️ You need to be a registered member to check in."
	}
	a, err := t.store.CheckIn(ctx, m.UserID)
	switch {
	case errors.Is(err, store.ErrAlreadyCheckedIn):
		return fmt.Sprintf("⚠️ *Already Checked In!*\n%s\nYou're already checked in at *%s*.\n\n"+
			"Please check out first before checking in again.", rule, a.CheckInTime)
	case err != nil:
		return t.unavailable("Attendance", err)
	}
	return fmt.Sprintf("✅ *Check-In Successful!*\n%s\n👤 *Name*: %s\n📅 *Date*: %s\n🕐 *Time*: %s\n\nHave a great workout! 💪",
		rule, m.FullName, a.Date, a.CheckInTime)
}

func (t *TelegramBot) checkOut(ctx context.Context, v nav.Viewer, m models.Member) string {
	if !v.Registered {
		return "⚠️ You need to be a registered member to check out."
	}
	a, err := t.store.CheckOut(ctx, m.UserID)
	switch {
	case errors.Is(err, store.ErrNoOpenSession):
		return fmt.Sprintf("❌ *No Active Session!*\n%s\nYou haven't checked in yet.\n\n"+
			"Please check in first before checking out.", rule)
	case err != nil:
		return t.unavailable("Attendance", err)
	}
	return fmt.Sprintf("🚪 *Check-Out Successful!*\n%s\n👤 *Name*: %s\n📅 *Date*: %s\n🕐 *Time*: %s\n"+
		"⏱️ *Duration*: %s (%d mins)\n\nGreat session! See you next time! 👋",
		rule, m.FullName, a.Date, a.CheckOutTime, formatMinutes(a.DurationMinutes), a.DurationMinutes)
}

// formatMinutes renders a session length as "1h 5m" or "45m".
func formatMinutes(mins int) string {
	if mins >= 60 {
		return fmt.Sprintf("%dh %dm", mins/60, mins%60)
	}
	return fmt.Sprintf("%dm", mins)
}

func (t *TelegramBot) workoutLogs(ctx context.Context, userID int64) string {
	logs, err := t.store.MemberWorkouts(ctx, userID, 5)
	if err != nil {
		return t.unavailable("Workout log", err)
	}
	if len(logs) == 0 {
		return "📭 You haven't logged any workouts yet. Go for it! 💪"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📜 *Your Recent Workouts*\n%s\n", rule)
	for _, l := range logs {
		fmt.Fprintf(&b, "📅 *%s* (%s)\n🏋️‍♂️ *Type*: %s\n🕒 *Duration*: %s\n📝 *Note*: %s\n%s\n",
			l.Date, l.Time, l.WorkoutType, l.Duration, orDefault(l.Notes, "No notes"), rule)
	}
	return b.String()
}

func (t *TelegramBot) attendance(ctx context.Context, userID int64) string {
	sessions, err := t.store.MemberAttendance(ctx, userID, 10)
	if err != nil {
		return t.unavailable("Attendance", err)
	}
	if len(sessions) == 0 {
		return fmt.Sprintf("📊 *Attendance History*\n%s\nNo attendance records found. "+
			"Use %s and %s to track your gym visits!", rule, nav.BtnIn, nav.BtnOut)
	}

	total, closed := 0, 0
	for _, a := range sessions {
		if !a.Open() {
			total += a.DurationMinutes
			closed++
		}
	}
	avg := 0
	if closed > 0 {
		avg = total / closed
	}

	var b strings.Builder
	if open, ok, err := t.store.OpenSession(ctx, userID); err == nil && ok {
		fmt.Fprintf(&b, "🟢 *In the gym now* since %s\n\n", open.CheckInTime)
	}
	fmt.Fprintf(&b, "📊 *Your Attendance History*\n%s\n\n📈 *Statistics*\n• Total Visits: %d\n• Avg Duration: %dm\n\n📅 *Recent Activity*\n",
		rule, len(sessions), avg)
	for _, a := range sessions {
		in := a.CheckInTime
		if len(in) > 5 {
			in = in[:5]
		}
		if a.Open() {
			fmt.Fprintf(&b, "\n✅ *%s* at %s (in progress)", a.Date, in)
			continue
		}
		fmt.Fprintf(&b, "\n🚪 *%s* at %s (%s)", a.Date, in, formatMinutes(a.DurationMinutes))
	}
	b.WriteString("\n\n💪 Keep up the great work!")
	return b.String()
}

func (t *TelegramBot) machines(ctx context.Context) string {
	machines, err := t.store.Machines(ctx)
	if err != nil {
		return t.unavailable("Machine guide", err)
	}
	if len(machines) == 0 {
		return fmt.Sprintf("🏋️ *Machine Guide*\n%s\nNo machine information available. Contact the gym admin.", rule)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "🏋️ *Gym Machine Guide*\n%s\n\n", rule)
	for _, m := range machines {
		fmt.Fprintf(&b, "💪 *%s*\n🎯 *Muscles*: %s\n", m.Name, orDefault(m.MusclesTrained, "N/A"))
		if m.Description != "" {
			fmt.Fprintf(&b, "📝 %s\n", m.Description)
		}
		b.WriteString("\n")
	}
	b.WriteString("✨ *Tip*: Ask our trainers for proper form and technique!")
	return b.String()
}

func staff(info models.GymInfo) string {
	if len(info.Trainers) == 0 {
		return "ℹ️ Trainer information is not available right now."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "👥 *Our Expert Trainers*\n%s\n", rule)
	for _, tr := range info.Trainers {
		fmt.Fprintf(&b, "💪 *%s*\n⭐ *Specialty*: %s\n📞 *Contact*: %s\n%s\n",
			tr.Name, orDefault(tr.Specialty, "General Fitness"), orDefault(tr.Phone, "N/A"), rule)
	}
	return b.String()
}

func gymRules(info models.GymInfo) string {
	if len(info.Rules) == 0 {
		return "ℹ️ Gym rules are not available right now."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📜 *Gym Rules & Regulations*\n%s\n", rule)
	for i, r := range info.Rules {
		fmt.Fprintf(&b, "%d. %s\n", i+1, r)
	}
	return b.String()
}

func faq(info models.GymInfo) string {
	if len(info.FAQ) == 0 {
		return "ℹ️ FAQs are not available right now."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "❓ *Frequently Asked Questions*\n%s\n", rule)
	for _, q := range info.FAQ {
		fmt.Fprintf(&b, "*Q: %s*\n*A*: %s\n\n", q.Question, q.Answer)
	}
	return b.String()
}

func contact(info models.GymInfo) string {
	return fmt.Sprintf("☎️ *Contact %s*\n%s\n\n👤 *Owner/Admin*: Management Team\n📞 *Phone*: %s\n📧 *Email*: %s\n\n"+
		"Feel free to reach out for any queries or support! 💪",
		info.GymName, rule, orDefault(info.Contact.Phone, "N/A"), orDefault(info.Contact.Email, "N/A"))
}

// coach generates a workout or diet plan. A button press carries no
// request, so a general plan is asked for.
func (t *TelegramBot) coach(ctx context.Context, userID int64, intent nav.Intent, text string) string {
	if !t.ai.Online() {
		return "🤖 The AI coach is offline right now. Please try again later."
	}
	request := text
	if _, isButton := nav.Resolve(text); isButton || strings.TrimSpace(text) == "" {
		request = "a balanced plan for a regular gym member"
	}

	info := t.store.GymInfo(ctx)
	var (
		plan string
		err  error
	)
	if intent == nav.Diet {
		plan, err = t.ai.DietPlan(ctx, info, request)
	} else {
		plan, err = t.ai.WorkoutPlan(ctx, info, request)
	}
	if err != nil {
		t.logger.Warnw("Plan generation failed", "user_id", userID, "intent", intent, "error", err)
		return "⚠️ I couldn't generate a plan right now. Please try again shortly."
	}
	return plan
}
