package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gym-bot/internal/export"
	"gym-bot/internal/models"
	"gym-bot/internal/nav"
	"gym-bot/internal/store"
)

// Report categories the remind-all and message-all buttons act on.
const (
	bulkDues     = "dues"
	bulkExpired  = "expired"
	bulkRisk     = "risk"
	bulkExpiring = "expiring"
)

// reportLimit caps the rows listed in one report message.
const reportLimit = 15

var bulkTemplates = map[string]string{
	bulkDues: "💰 *Payment Reminder*\nHi %s, you have a pending balance at the gym. " +
		"Please clear it at the front desk at your earliest convenience. Thank you!",
	bulkExpired: "⏰ *Membership Expired*\nHi %s, your gym membership has expired. " +
		"Renew today to keep your progress going! 💪",
	bulkRisk: "👋 *We Miss You!*\nHi %s, we haven't seen you at the gym for a while. " +
		"Your goals are waiting. Come back for a session this week! 🏋️",
	bulkExpiring: "⏳ *Renewal Reminder*\nHi %s, your gym membership expires soon. " +
		"Renew early to avoid any break in your training!",
}

const defaultTips = "1. Reach out personally to members idle for more than two weeks.\n" +
	"2. Offer a referral discount to your most active members.\n" +
	"3. Remind members with pending dues a few days before the deadline."

// adminKeyboard is the admin layout of in, whatever mode the session is in.
func adminKeyboard(in nav.Intent) [][]string {
	return nav.SelectKeyboard(in, nav.Viewer{Admin: true, AdminMode: true})
}

// handleAdmin serves the admin dashboard screens. Entering any of them
// switches the session to admin mode.
func (t *TelegramBot) handleAdmin(ctx context.Context, sess *nav.Session, chatID int64, v nav.Viewer, intent nav.Intent) error {
	sess.AdminMode = true
	v.AdminMode = true
	sess.Menu = intent
	kb := nav.SelectKeyboard(intent, v)

	if header, ok := hubHeaders[intent]; ok {
		return t.reply(chatID, header, kb)
	}

	switch intent {
	case nav.AdminList:
		members, err := t.store.ListMembers(ctx, models.StatusActive)
		if err != nil {
			return t.reply(chatID, t.unavailable("Membership", err), kb)
		}
		return t.reply(chatID, memberList(members), kb)
	case nav.AdminSearch:
		sess.Flow = nav.AwaitingSearch{}
		return t.reply(chatID, "🔍 *Find Member*\nPlease enter the *Name, ID, or Phone* of the member you want to manage:",
			nav.CancelKeyboard())
	case nav.AdminBroadcast:
		sess.Flow = nav.AwaitingBroadcast{}
		return t.reply(chatID, "📢 *Global Broadcast*\nType the message you want to send to *ALL active members*.",
			nav.CancelKeyboard())
	}

	snap, err := t.store.Snapshot(ctx)
	if err != nil {
		return t.reply(chatID, t.unavailable("Reporting", err), kb)
	}
	now := t.store.Now()

	switch intent {
	case nav.AdminExport:
		return t.exportMembers(chatID, snap, now, kb)
	case nav.AdminAITips:
		return t.reply(chatID, t.aiTips(ctx, snap, now), kb)
	case nav.AdminRevenue:
		return t.reply(chatID, revenueReport(store.RevenueStats(snap, now), store.RecentTransactions(snap, 5)), kb)
	case nav.AdminGrowth:
		return t.reply(chatID, growthReport(store.GrowthStats(snap, now)), kb)
	case nav.AdminTopActive:
		return t.reply(chatID, topActiveReport(store.TopActive(snap, 10)), kb)
	case nav.AdminPaymentLogs:
		return t.reply(chatID, paymentLogReport(store.RecentTransactions(snap, 5)), kb)
	case nav.AdminOccupation:
		return t.reply(chatID, occupationReport(store.OccupationBreakdown(snap)), kb)
	case nav.AdminDues:
		text, targets := duesReport(store.DuesReport(snap))
		return t.bulkReport(sess, chatID, kb, bulkDues, text, targets)
	case nav.AdminExpired:
		text, targets := expiredReport(store.ExpiredMembers(snap, now))
		return t.bulkReport(sess, chatID, kb, bulkExpired, text, targets)
	case nav.AdminInactive:
		text, targets := riskReport(store.RetentionRisk(snap, now, 7))
		return t.bulkReport(sess, chatID, kb, bulkRisk, text, targets)
	case nav.AdminExpiring:
		text, targets := expiringReport(store.ExpiringSoon(snap, now, 7))
		return t.bulkReport(sess, chatID, kb, bulkExpiring, text, targets)
	}
	return t.reply(chatID, "🤔 Unknown admin action.", kb)
}

// bulkReport sends a report and, when it names anyone, remembers the
// targets and offers the group actions.
func (t *TelegramBot) bulkReport(sess *nav.Session, chatID int64, kb [][]string, category, text string, targets []int64) error {
	if err := t.reply(chatID, text, kb); err != nil {
		return err
	}
	if len(targets) == 0 {
		sess.Bulk = nav.Bulk{}
		return nil
	}
	sess.Bulk = nav.Bulk{Category: category, Targets: targets}
	return t.send(chatID, fmt.Sprintf("🎯 *Group Actions*: Found %d members.", len(targets)), inlineKeyboard(
		[]button{{"🔔 Remind All", "blkr_" + category}, {"✍️ Message All", "blkm_" + category}},
	))
}

// todaySummary is the activity line shown on entering the dashboard. It is
// empty when the store cannot be read.
func (t *TelegramBot) todaySummary(ctx context.Context) string {
	snap, err := t.store.Snapshot(ctx)
	if err != nil {
		return ""
	}
	day := store.DailyAttendance(snap, models.FormatDate(t.store.Now()))
	inside := 0
	for _, a := range day.Sessions {
		if a.Open() {
			inside++
		}
	}
	line := fmt.Sprintf("\n\n📅 *Today*: %d check-ins (%d in the gym now), %d workouts logged.",
		len(day.Sessions), inside, len(day.Workouts))
	if dues, err := t.store.MembersWithDues(ctx); err == nil && len(dues) > 0 {
		line += fmt.Sprintf("\n💰 %d members have pending dues.", len(dues))
	}
	return line
}

func (t *TelegramBot) exportMembers(chatID int64, snap store.Snapshot, now time.Time, kb [][]string) error {
	buf, err := export.Workbook(snap, now)
	if err != nil {
		t.logger.Errorw("Failed to build export", "error", err)
		return t.reply(chatID, "⚠️ Failed to build the export. Please try again.", kb)
	}
	caption := fmt.Sprintf("📤 Member export: %d members, %d payments", len(snap.Members), len(snap.Payments))
	if err := t.sendDocument(chatID, export.FileName(now), buf.Bytes(), caption); err != nil {
		return err
	}
	return t.reply(chatID, "✅ Export ready.", kb)
}

func (t *TelegramBot) aiTips(ctx context.Context, snap store.Snapshot, now time.Time) string {
	tips := defaultTips
	if t.ai.Online() {
		rev := store.RevenueStats(snap, now)
		risk := store.RetentionRisk(snap, now, 7)
		out, err := t.ai.AdminTips(ctx, t.store.GymInfo(ctx), rev.Monthly, len(risk))
		switch {
		case err != nil:
			t.logger.Warnw("AI advisor failed", "error", err)
		case len(strings.TrimSpace(out)) >= 10:
			tips = out
		}
	}
	return "💡 *AI Gym Advisor Suggestions*:\n\n" + tips
}

func memberList(members []models.Member) string {
	if len(members) == 0 {
		return "📭 No active members found."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📋 *Active Members* (%d)\n%s\n", len(members), rule)
	for i, m := range members {
		if i == reportLimit {
			fmt.Fprintf(&b, "\n...and %d more. Use 🔍 Search to find a member.", len(members)-reportLimit)
			break
		}
		fmt.Fprintf(&b, "• *%s* | `%s`\n  Plan: %s | Joined: %s\n  📅 *Expires*: %s\n",
			m.FullName, orDefault(m.Phone, "N/A"), orDefault(m.Plan, "N/A"), orDefault(m.JoinDate, "N/A"), orDefault(m.ExpiryDate, "N/A"))
	}
	return b.String()
}

// adminCard is the member card shown to the admin in search results.
func adminCard(m models.Member) string {
	return fmt.Sprintf("👤 *%s*\n🆔 `%d`\n📞 %s\n📍 %s\n💼 %s\n🏷️ *Plan*: %s\n📊 *Status*: %s\n📅 *Joined*: %s\n⏳ *Expires*: %s\n💰 *Paid*: %s",
		m.FullName, m.UserID, orDefault(m.Phone, "N/A"), orDefault(m.Address, "N/A"), orDefault(m.Occupation, "N/A"),
		orDefault(m.Plan, "N/A"), m.Status, orDefault(m.JoinDate, "N/A"), orDefault(m.ExpiryDate, "N/A"), rupees(m.AmountPaid))
}

// memberActions are the inline buttons under a search result.
func memberActions(m models.Member) [][]button {
	id := strconv.FormatInt(m.UserID, 10)
	toggle := button{"✅ Approve", "appr_" + id}
	if m.Status == models.StatusActive {
		toggle = button{"🚫 Deactivate", "deac_" + id}
	}
	return [][]button{
		{toggle, {"🔄 Renew", "renw_" + id}},
		{{"✏️ Name", "editname_" + id}, {"📱 Phone", "editphone_" + id}, {"📍 Address", "editaddr_" + id}},
		{{"🗑 Delete", "delm_" + id}},
	}
}

func revenueReport(r store.Revenue, recent []models.PaymentRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "💰 *Revenue Report*\n%s\n\n💵 *Total Revenue*: %s\n📅 *%s*: %s\n👥 *New Members*: %d\n",
		rule, rupees(r.Total), r.Month, rupees(r.Monthly), r.NewMembers)
	if r.NewMembers > 0 {
		fmt.Fprintf(&b, "📊 *Avg per New Member*: %s\n", rupees(r.Monthly/r.NewMembers))
	}
	if len(recent) > 0 {
		b.WriteString("\n🧾 *Recent Payments*\n")
		for _, p := range recent {
			fmt.Fprintf(&b, "• %s | %s | %s\n", p.FullName, orDefault(p.Plan, string(p.Action)), rupees(p.Amount))
		}
	}
	return b.String()
}

func growthReport(g store.Growth) string {
	return fmt.Sprintf("📈 *Growth Analysis: %s*\n%s\n\n💵 *Revenue Growth*: %s\n• This Month: %s\n• Last Month: %s\n\n"+
		"👥 *Member Growth*: %s\n• This Month: %d\n• Last Month: %d",
		g.MonthName, rule, store.FormatPct(g.RevenueGrowthPct), rupees(g.ThisRevenue), rupees(g.LastRevenue),
		store.FormatPct(g.MemberGrowthPct), g.ThisMembers, g.LastMembers)
}

var medals = []string{"🥇", "🥈", "🥉"}

func topActiveReport(list []store.ActiveMember) string {
	if len(list) == 0 {
		return "🏆 No activity recorded yet."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "🏆 *Top Active Members*\n%s\n", rule)
	for i, a := range list {
		rank := fmt.Sprintf("%d.", i+1)
		if i < len(medals) {
			rank = medals[i]
		}
		fmt.Fprintf(&b, "%s *%s*: %d visits\n", rank, a.Member.FullName, a.Visits)
	}
	return b.String()
}

func paymentLogReport(recent []models.PaymentRecord) string {
	if len(recent) == 0 {
		return "📜 No transactions recorded yet."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📜 *Recent Transactions*\n%s\n", rule)
	for _, p := range recent {
		fmt.Fprintf(&b, "🧾 `%s`\n👤 %s | %s\n💰 %s via %s\n📅 %s\n\n",
			p.TransactionID, p.FullName, orDefault(string(p.Action), "Payment"), rupees(p.Amount), orDefault(p.PaymentMethod, "N/A"), p.Date)
	}
	return b.String()
}

func occupationReport(counts []store.OccupationCount) string {
	total := 0
	for _, c := range counts {
		total += c.Count
	}
	if total == 0 {
		return "👥 No members to analyse yet."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "👥 *Member Occupations*\n%s\n", rule)
	for _, c := range counts {
		fmt.Fprintf(&b, "• *%s*: %d (%.0f%%)\n", c.Occupation, c.Count, float64(c.Count)/float64(total)*100)
	}
	return b.String()
}

func duesReport(dues []store.Due) (string, []int64) {
	if len(dues) == 0 {
		return "✅ No pending dues. Everyone is paid up!", nil
	}
	var b strings.Builder
	total := 0
	targets := make([]int64, 0, len(dues))
	fmt.Fprintf(&b, "💸 *Pending Dues*\n%s\n", rule)
	for i, d := range dues {
		total += d.Payment.DueAmount
		targets = append(targets, d.Member.UserID)
		if i < reportLimit {
			fmt.Fprintf(&b, "• *%s* | Owes %s | Due %s\n", d.Member.FullName, rupees(d.Payment.DueAmount), orDefault(d.Payment.DueDate, "N/A"))
		}
	}
	if len(dues) > reportLimit {
		fmt.Fprintf(&b, "...and %d more\n", len(dues)-reportLimit)
	}
	fmt.Fprintf(&b, "\n💰 *Total Outstanding*: %s", rupees(total))
	return b.String(), targets
}

func expiredReport(expired []store.Expired) (string, []int64) {
	if len(expired) == 0 {
		return "✅ No expired memberships.", nil
	}
	var active, inactive []store.Expired
	targets := make([]int64, 0, len(expired))
	for _, e := range expired {
		targets = append(targets, e.Member.UserID)
		if e.Member.Status == models.StatusActive {
			active = append(active, e)
		} else {
			inactive = append(inactive, e)
		}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "💀 *Expired Memberships*\n%s\n", rule)
	section := func(title string, list []store.Expired) {
		if len(list) == 0 {
			return
		}
		fmt.Fprintf(&b, "\n%s (%d)\n", title, len(list))
		for i, e := range list {
			if i == reportLimit {
				fmt.Fprintf(&b, "...and %d more\n", len(list)-reportLimit)
				break
			}
			fmt.Fprintf(&b, "• *%s* | expired %d days ago\n", e.Member.FullName, e.DaysExpired)
		}
	}
	section("⚠️ *Still marked Active*", active)
	section("🚫 *Inactive*", inactive)
	return b.String(), targets
}

func riskReport(risks []store.Risk) (string, []int64) {
	if len(risks) == 0 {
		return "✅ All active members have visited in the last week.", nil
	}
	var b strings.Builder
	targets := make([]int64, 0, len(risks))
	fmt.Fprintf(&b, "⚠️ *Retention Risk*\n%s\n", rule)
	for i, r := range risks {
		targets = append(targets, r.Member.UserID)
		if i >= reportLimit {
			continue
		}
		last := "never"
		if r.LastActive != "" {
			last = r.LastActive
		}
		fmt.Fprintf(&b, "• *%s* | %d days idle | %s (last: %s)\n", r.Member.FullName, r.InactiveDays, r.Band, last)
	}
	if len(risks) > reportLimit {
		fmt.Fprintf(&b, "...and %d more\n", len(risks)-reportLimit)
	}
	return b.String(), targets
}

func expiringReport(list []store.Expiring) (string, []int64) {
	if len(list) == 0 {
		return "✅ No memberships expire in the next 7 days.", nil
	}
	var b strings.Builder
	targets := make([]int64, 0, len(list))
	fmt.Fprintf(&b, "⏳ *Expiring Within 7 Days*\n%s\n", rule)
	for i, e := range list {
		targets = append(targets, e.Member.UserID)
		if i >= reportLimit {
			continue
		}
		when := fmt.Sprintf("in %d days", e.DaysLeft)
		if e.DaysLeft == 0 {
			when = "today"
		}
		fmt.Fprintf(&b, "• *%s* | %s (%s)\n", e.Member.FullName, when, e.Member.ExpiryDate)
	}
	if len(list) > reportLimit {
		fmt.Fprintf(&b, "...and %d more\n", len(list)-reportLimit)
	}
	return b.String(), targets
}

// addMember handles /add_member <user_id> <full name> <plan>. The member is
// created Active, bypassing approval.
func (t *TelegramBot) addMember(ctx context.Context, sess *nav.Session, chatID int64, args string) error {
	v, _ := t.viewer(ctx, sess)
	if !v.Admin {
		return t.reply(chatID, "❌ Unauthorized. This command is restricted to administrators.", t.keyboard(v, sess, ""))
	}
	usage := "💡 Usage: `/add_member <user_id> <fullname> <plan>`"
	fields := strings.Fields(args)
	if len(fields) < 3 {
		return t.reply(chatID, usage, t.keyboard(v, sess, ""))
	}
	uid, ok := models.ParseUserID(fields[0])
	if !ok {
		return t.reply(chatID, usage, t.keyboard(v, sess, ""))
	}
	name := strings.Join(fields[1:len(fields)-1], " ")
	plan := fields[len(fields)-1]

	m, err := t.store.AddMember(ctx, store.Registration{
		UserID:         uid,
		FullName:       name,
		Plan:           plan,
		DurationMonths: models.PlanMonths(plan),
		PaymentMethod:  "Admin",
		Status:         models.StatusActive,
	})
	if err != nil {
		return t.reply(chatID, t.unavailable("Registration", err), t.keyboard(v, sess, ""))
	}
	t.logger.Infow("Member added by admin", "user_id", uid, "plan", plan)
	return t.reply(chatID, fmt.Sprintf("✅ *Member Registered*\nName: %s\nID: `%d`\nPlan: %s\nExpires: %s",
		m.FullName, m.UserID, m.Plan, orDefault(m.ExpiryDate, "N/A")), t.keyboard(v, sess, ""))
}

func (t *TelegramBot) searchResults(ctx context.Context, sess *nav.Session, chatID int64, query string) error {
	sess.Reset()
	kb := adminKeyboard(nav.AdminMembership)
	results, err := t.store.SearchMembers(ctx, query)
	if err != nil {
		return t.reply(chatID, t.unavailable("Membership", err), kb)
	}
	if len(results) == 0 {
		return t.reply(chatID, fmt.Sprintf("🔍 No members found for `%s`.", query), kb)
	}
	if err := t.send(chatID, fmt.Sprintf("🔍 Found %d matches:", len(results)), nil); err != nil {
		return err
	}
	for i, m := range results {
		if i == 5 {
			break
		}
		if err := t.send(chatID, adminCard(m), inlineKeyboard(memberActions(m)...)); err != nil {
			return err
		}
	}
	return t.reply(chatID, "☝️ Select an action or use menu below:", kb)
}

// deliver sends text to each user and counts the outcome.
func (t *TelegramBot) deliver(users []int64, text func(uid int64) string) (sent, failed int) {
	for _, uid := range users {
		if err := t.notify(uid, text(uid), nil); err != nil {
			failed++
			continue
		}
		sent++
	}
	return sent, failed
}

func (t *TelegramBot) broadcast(ctx context.Context, sess *nav.Session, chatID int64, text string) error {
	sess.Reset()
	kb := adminKeyboard(nav.AdminMembership)
	members, err := t.store.ListMembers(ctx, models.StatusActive)
	if err != nil {
		return t.reply(chatID, t.unavailable("Membership", err), kb)
	}
	if len(members) == 0 {
		return t.reply(chatID, "📭 No active members to notify.", kb)
	}
	ids := make([]int64, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.UserID)
	}
	sent, failed := t.deliver(ids, func(int64) string { return "📢 *GYM ANNOUNCEMENT*\n\n" + text })
	t.logger.Infow("Broadcast delivered", "sent", sent, "failed", failed)
	return t.reply(chatID, fmt.Sprintf("✅ *Broadcast Complete*\n\n📈 Results:\n• Sent: %d\n• Failed: %d", sent, failed), kb)
}

func (t *TelegramBot) targetedBroadcast(ctx context.Context, sess *nav.Session, chatID int64, f nav.AwaitingTargetedBroadcast, text string) error {
	sess.Reset()
	sent, _ := t.deliver(f.Targets, func(int64) string { return text })
	t.logger.Infow("Targeted message delivered", "sent", sent, "targets", len(f.Targets))
	return t.reply(chatID, fmt.Sprintf("✅ *Custom Messages Sent*: %d/%d", sent, len(f.Targets)), t.keyboard(nav.Viewer{Admin: true, AdminMode: true}, sess, ""))
}

func (t *TelegramBot) renewalAmount(ctx context.Context, sess *nav.Session, chatID int64, f nav.AwaitingRenewalAmount, text string) error {
	amount, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || amount < 0 {
		return t.reply(chatID, "⚠️ Please enter a valid amount (e.g., 1500).", nav.CancelKeyboard())
	}
	sess.Flow = nav.AwaitingRenewalDuration{Target: f.Target, Amount: amount}
	return t.reply(chatID, "📝 *Step 2/2*: Enter the *Renewal Duration* (in months):",
		[][]string{{"1", "3", "6", "12"}, {nav.BtnCancel}})
}

func (t *TelegramBot) renewalDuration(ctx context.Context, sess *nav.Session, chatID int64, f nav.AwaitingRenewalDuration, text string) error {
	months, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || !t.valid(months, ruleMonths) {
		return t.reply(chatID, "⚠️ Please enter a valid number of months (1 to 60).",
			[][]string{{"1", "3", "6", "12"}, {nav.BtnCancel}})
	}
	sess.Reset()
	kb := adminKeyboard(nav.AdminMembership)

	m, err := t.store.RenewMember(ctx, f.Target, f.Amount, months)
	switch {
	case errors.Is(err, store.ErrMemberNotFound):
		return t.reply(chatID, fmt.Sprintf("❌ User `%d` no longer exists.", f.Target), kb)
	case err != nil:
		return t.reply(chatID, t.unavailable("Renewal", err), kb)
	}
	t.logger.Infow("Membership renewed", "user_id", m.UserID, "amount", f.Amount, "months", months)

	_ = t.notify(m.UserID, fmt.Sprintf("🔄 *Membership Renewed!*\nYour membership has been extended until *%s*. Keep it up! 💪",
		m.ExpiryDate), replyKeyboard(nav.SelectKeyboard(nav.MainMenu, t.memberViewer(m))))
	return t.reply(chatID, fmt.Sprintf("✅ *Renewal Successful!*\n👤 Member: %s\n💰 Paid: %s\n📅 New Expiry: %s",
		m.FullName, rupees(f.Amount), m.ExpiryDate), kb)
}

func (t *TelegramBot) editField(ctx context.Context, sess *nav.Session, chatID int64, f nav.AwaitingEdit, text string) error {
	value := normalizeField(f.Field, text)
	if !t.valid(value, fieldRules[f.Field]) {
		return t.reply(chatID, fieldHints[f.Field], nav.CancelKeyboard())
	}
	sess.Reset()
	kb := adminKeyboard(nav.AdminMembership)

	m, err := t.store.UpdateMemberField(ctx, f.Target, f.Field, value)
	switch {
	case errors.Is(err, store.ErrMemberNotFound):
		return t.reply(chatID, fmt.Sprintf("❌ User `%d` no longer exists.", f.Target), kb)
	case err != nil:
		return t.reply(chatID, t.unavailable("Membership", err), kb)
	}
	t.logger.Infow("Member field updated", "user_id", m.UserID, "field", f.Field)
	return t.reply(chatID, fmt.Sprintf("✅ *%s* updated for `%d`.\n\n%s", fieldLabels[f.Field], m.UserID, adminCard(m)), kb)
}

var fieldLabels = map[store.Field]string{
	store.FieldName:    "Name",
	store.FieldPhone:   "Phone",
	store.FieldAddress: "Address",
}
