package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"gym-bot/internal/models"
	"gym-bot/internal/nav"
	"gym-bot/internal/store"
)

// Validation tags for free-text answers, shared by registration and the
// admin field editor.
const (
	ruleName       = "required,min=2,max=64"
	rulePhone      = "required,numeric,min=7,max=15"
	ruleAddress    = "required,min=3,max=200"
	ruleOccupation = "required,min=2,max=64"
	ruleMonths     = "min=1,max=60"
)

var fieldRules = map[store.Field]string{
	store.FieldName:    ruleName,
	store.FieldPhone:   rulePhone,
	store.FieldAddress: ruleAddress,
}

var fieldHints = map[store.Field]string{
	store.FieldName:    "⚠️ Please enter a full name (2 to 64 characters).",
	store.FieldPhone:   "⚠️ Please enter a valid phone number (digits only, 7 to 15 long).",
	store.FieldAddress: "⚠️ Please enter an address (3 to 200 characters).",
}

// registrationPlans are offered at step 5, in this order.
var registrationPlans = []string{models.PlanMonthly, models.PlanQuarterly, models.PlanYearly, models.PlanLifetime}

var dueDays = map[string]int{"7 Days": 7, "15 Days": 15, "30 Days": 30}

func dueKeyboard() [][]string {
	return [][]string{{"7 Days", "15 Days"}, {"30 Days"}, {nav.BtnCancel}}
}

// rupees formats an amount with thousands separators: ₹4,500.
func rupees(n int) string {
	return message.NewPrinter(language.English).Sprintf("₹%d", n)
}

func (t *TelegramBot) valid(value interface{}, tag string) bool {
	return t.validate.Var(value, tag) == nil
}

// normalizeField trims the input and drops phone number punctuation.
func normalizeField(field store.Field, text string) string {
	text = strings.TrimSpace(text)
	if field != store.FieldPhone {
		return text
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')':
			return -1
		}
		return r
	}, text)
}

// monthlyRate is the configured monthly fee, or the default when the fee
// table has none.
func (t *TelegramBot) monthlyRate(info models.GymInfo) int {
	if fee := info.Fee(models.PlanMonthly); fee > 0 {
		return fee
	}
	return t.monthlyFee
}

// planTotal is the fee of a fixed-length plan. Quarterly and yearly plans
// without a configured fee are priced at the monthly rate.
func (t *TelegramBot) planTotal(info models.GymInfo, plan string) int {
	if fee := info.Fee(plan); fee > 0 {
		return fee
	}
	switch plan {
	case models.PlanQuarterly, models.PlanYearly:
		return t.monthlyRate(info) * models.PlanMonths(plan)
	}
	return 0
}

// planPrice is what a plan costs per sign-up, or per month for Monthly.
// Zero means the plan has no price yet and cannot be chosen.
func (t *TelegramBot) planPrice(info models.GymInfo, plan string) int {
	if plan == models.PlanMonthly {
		return t.monthlyRate(info)
	}
	return t.planTotal(info, plan)
}

// amountStep numbers the "paid now" question; Monthly asks for the
// duration first.
func amountStep(plan string) int {
	if plan == models.PlanMonthly {
		return 7
	}
	return 6
}

func (t *TelegramBot) planKeyboard(info models.GymInfo) [][]string {
	kb := make([][]string, 0, len(registrationPlans)+2)
	for _, p := range registrationPlans {
		price := "Contact Admin"
		if fee := t.planPrice(info, p); fee > 0 {
			price = rupees(fee)
		}
		kb = append(kb, []string{p + " - " + price})
	}
	kb = append(kb, []string{models.PlanTrial + " - Free"}, []string{nav.BtnCancel})
	return kb
}

// parsePlan accepts a plan keyboard label ("Monthly - ₹1,500") or a bare
// plan name in any casing.
func parsePlan(text string) (string, bool) {
	name := text
	if i := strings.Index(text, " - "); i >= 0 {
		name = text[:i]
	}
	name = strings.TrimSpace(name)
	for _, p := range append(registrationPlans, models.PlanTrial) {
		if strings.EqualFold(name, p) {
			return p, true
		}
	}
	return "", false
}

func (t *TelegramBot) startRegistration(ctx context.Context, sess *nav.Session, chatID int64, v nav.Viewer) error {
	if v.Registered && v.Status != models.StatusInactive {
		return t.reply(chatID, fmt.Sprintf("ℹ️ You're already registered. Your membership status is *%s*.", v.Status),
			t.keyboard(v, sess, ""))
	}
	sess.Flow = nav.Registering{Step: nav.StepName}
	return t.reply(chatID, "👋 *Welcome to the Gym Registration!*\n\nStep 1: Please enter your *Full Name*:", nav.CancelKeyboard())
}

func (t *TelegramBot) continueRegistration(ctx context.Context, sess *nav.Session, msg *tgbotapi.Message, f nav.Registering, text string) error {
	chatID := msg.Chat.ID
	d := &f.Draft
	next := func(step nav.RegStep, prompt string, kb [][]string) error {
		f.Step = step
		sess.Flow = f
		return t.reply(chatID, prompt, kb)
	}
	retry := func(hint string, kb [][]string) error {
		return t.reply(chatID, hint, kb)
	}

	switch f.Step {
	case nav.StepName:
		if !t.valid(text, ruleName) {
			return retry(fieldHints[store.FieldName], nav.CancelKeyboard())
		}
		d.FullName = text
		return next(nav.StepPhone, fmt.Sprintf("📝 *Step 2*: Thanks, %s!\nNow, please enter your *Phone Number*:", text), nav.CancelKeyboard())

	case nav.StepPhone:
		phone := normalizeField(store.FieldPhone, text)
		if !t.valid(phone, rulePhone) {
			return retry(fieldHints[store.FieldPhone], nav.CancelKeyboard())
		}
		d.Phone = phone
		return next(nav.StepAddress, "📝 *Step 3*: Great! What is your *Home Address*?", nav.CancelKeyboard())

	case nav.StepAddress:
		if !t.valid(text, ruleAddress) {
			return retry(fieldHints[store.FieldAddress], nav.CancelKeyboard())
		}
		d.Address = text
		return next(nav.StepOccupation, "📝 *Step 4*: What is your *Occupation*?", nav.CancelKeyboard())

	case nav.StepOccupation:
		if !t.valid(text, ruleOccupation) {
			return retry("⚠️ Please enter your occupation (2 to 64 characters).", nav.CancelKeyboard())
		}
		d.Occupation = text
		return next(nav.StepPlan, "📝 *Step 5*: Which *Membership Plan* are you interested in?\n\n💰 *Current Pricing:*",
			t.planKeyboard(t.store.GymInfo(ctx)))

	case nav.StepPlan:
		info := t.store.GymInfo(ctx)
		plan, ok := parsePlan(text)
		if !ok {
			return retry("⚠️ Please choose a plan from the keyboard.", t.planKeyboard(info))
		}
		if plan != models.PlanTrial && t.planPrice(info, plan) <= 0 {
			return retry(fmt.Sprintf("⚠️ *%s* has no price set yet. Please contact the admin or choose another plan.", plan),
				t.planKeyboard(info))
		}
		d.Plan = plan
		switch plan {
		case models.PlanTrial:
			d.DurationMonths, d.Total, d.AmountPaid = 0, 0, 0
			return t.finishRegistration(ctx, sess, chatID, *d, 0, "")
		case models.PlanMonthly:
			return next(nav.StepDuration, "📝 *Step 6*: For how many *Months*? (Enter a number)", nav.CancelKeyboard())
		}
		d.DurationMonths = models.PlanMonths(plan)
		d.Total = t.planTotal(info, plan)
		return next(nav.StepAmount, fmt.Sprintf("💰 *Total Fee*: %s\n\n📝 *Step %d*: How much have you *paid now*?\n"+
			"(Enter the amount you're paying today)", rupees(d.Total), amountStep(plan)), nav.CancelKeyboard())

	case nav.StepDuration:
		months, err := strconv.Atoi(strings.TrimSpace(text))
		if err != nil || !t.valid(months, ruleMonths) {
			return retry("Please enter a number of months between 1 and 60 (e.g., 1, 3, 6).", nav.CancelKeyboard())
		}
		rate := t.monthlyRate(t.store.GymInfo(ctx))
		d.DurationMonths = months
		d.Total = rate * months
		return next(nav.StepAmount, fmt.Sprintf("💰 *Total Fee Calculation*\n%s\n📊 %d months × %s/month = *%s*\n\n"+
			"📝 *Step %d*: How much have you *paid now*?\n(Enter the amount you're paying today)",
			rule, months, rupees(rate), rupees(d.Total), amountStep(d.Plan)), nav.CancelKeyboard())

	case nav.StepAmount:
		paid, err := strconv.Atoi(strings.TrimSpace(text))
		if err != nil || paid < 0 {
			return retry("Please enter a valid number (e.g., 1500, 5000).", nav.CancelKeyboard())
		}
		d.AmountPaid = paid
		if paid < d.Total {
			return next(nav.StepDueDate, fmt.Sprintf("⚠️ *Partial Payment Detected*\n%s\n💰 Remaining: %s\n\n"+
				"📅 *Step %d*: When will you pay the remaining amount?\nSelect a payment deadline:",
				rule, rupees(d.Total-paid), amountStep(d.Plan)+1), dueKeyboard())
		}
		return t.finishRegistration(ctx, sess, chatID, *d, 0, "")

	case nav.StepDueDate:
		days, ok := dueDays[text]
		if !ok {
			return retry("❌ Invalid selection. Please choose from the options:", dueKeyboard())
		}
		due := models.FormatDate(t.store.Now().AddDate(0, 0, days))
		return t.finishRegistration(ctx, sess, chatID, *d, d.Total-d.AmountPaid, due)
	}

	sess.Reset()
	return nil
}

// finishRegistration stores the member as Pending and asks the admin to
// approve it.
func (t *TelegramBot) finishRegistration(ctx context.Context, sess *nav.Session, chatID int64, d nav.Draft, dueAmount int, dueDate string) error {
	sess.Reset()
	v := nav.Viewer{Admin: t.isAdmin(sess.UserID), AdminMode: sess.AdminMode}

	m, err := t.store.AddMember(ctx, store.Registration{
		UserID:         sess.UserID,
		FullName:       d.FullName,
		Phone:          d.Phone,
		Address:        d.Address,
		Occupation:     d.Occupation,
		Plan:           d.Plan,
		DurationMonths: d.DurationMonths,
		AmountPaid:     d.AmountPaid,
		DueAmount:      dueAmount,
		DueDate:        dueDate,
		Status:         models.StatusPending,
	})
	if err != nil {
		t.logger.Errorw("Registration failed", "user_id", sess.UserID, "error", err)
		sess.Menu = nav.Initial(v)
		return t.reply(chatID, "❌ Registration failed. Please try again later or contact the admin.", nav.SelectKeyboard(sess.Menu, v))
	}

	v.Registered, v.Status = true, m.Status
	sess.Menu = nav.Initial(v)

	var b strings.Builder
	fmt.Fprintf(&b, "⏳ *Registration Received!*\n%s\nThank you, *%s*! Your registration has been submitted for approval.\n\n"+
		"📝 *Summary*\n• *Plan*: %s\n• *Paid*: %s\n", rule, m.FullName, m.Plan, rupees(d.AmountPaid))
	if dueAmount > 0 {
		fmt.Fprintf(&b, "• *Balance Due*: %s by %s\n", rupees(dueAmount), dueDate)
	}
	b.WriteString("• *Status*: 🟡 Pending Admin Approval\n\nYou'll receive a notification once the admin approves your membership. 💪")
	if err := t.reply(chatID, b.String(), nav.SelectKeyboard(sess.Menu, v)); err != nil {
		return err
	}

	if t.adminID != 0 {
		_ = t.notify(t.adminID, registrationRequest(m, d, dueAmount, dueDate), inlineKeyboard([]button{
			{"✅ Approve", fmt.Sprintf("appr_%d", m.UserID)},
			{"❌ Reject", fmt.Sprintf("reje_%d", m.UserID)},
		}))
	}
	return nil
}

func registrationRequest(m models.Member, d nav.Draft, dueAmount int, dueDate string) string {
	heavy := strings.Repeat("━", 23)
	var b strings.Builder
	fmt.Fprintf(&b, "🔔 *NEW REGISTRATION REQUEST*\n%s\n\n", heavy)
	fmt.Fprintf(&b, "👤 *PERSONAL INFORMATION*\n• *Full Name*: %s\n• *User ID*: `%d`\n• *Phone*: %s\n• *Address*: %s\n• *Occupation*: %s\n\n",
		m.FullName, m.UserID, orDefault(m.Phone, "N/A"), orDefault(m.Address, "N/A"), orDefault(m.Occupation, "Other"))
	fmt.Fprintf(&b, "💳 *MEMBERSHIP DETAILS*\n• *Plan Selected*: %s\n• *Type*: %s\n• *Duration*: %d months\n\n",
		m.Plan, m.MembershipType, m.DurationMonths)
	fmt.Fprintf(&b, "💰 *PAYMENT INFORMATION*\n• *Total Fee*: %s\n• *Amount Paid*: %s\n", rupees(d.Total), rupees(d.AmountPaid))
	if dueAmount > 0 {
		fmt.Fprintf(&b, "• *⚠️ Balance Due*: %s\n• *📅 Due Date*: %s\n", rupees(dueAmount), dueDate)
	} else {
		b.WriteString("• *✅ Payment Status*: Fully Paid\n")
	}
	fmt.Fprintf(&b, "\n%s\n⚡ *ACTION REQUIRED*: Please approve or reject this user.", heavy)
	return b.String()
}
