// Package responder builds the deterministic replies for classified intents.
package responder

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"gym-bot/internal/gpt"
	"gym-bot/internal/models"
	"gym-bot/internal/nav"
	"gym-bot/internal/store"
	"gym-bot/pkg/logger"
)

const rule = "━━━━━━━━━━━━━━"

// WorkoutExtractor turns a free-text workout report into fields.
type WorkoutExtractor interface {
	ExtractWorkout(ctx context.Context, text string) (gpt.WorkoutEntry, error)
}

type Responder struct {
	store   *store.Store
	extract WorkoutExtractor
	logger  *logger.Logger
}

func New(st *store.Store, extract WorkoutExtractor, log *logger.Logger) *Responder {
	return &Responder{store: st, extract: extract, logger: log}
}

// Resolve returns the reply for intent. ok is false for intents answered
// elsewhere (generated plans, unknown text).
func (r *Responder) Resolve(ctx context.Context, intent nav.Intent, text string, userID int64) (string, bool) {
	switch intent {
	case nav.Greeting:
		info := r.store.GymInfo(ctx)
		return fmt.Sprintf("👋 Hello! Welcome to *%s*. I'm your Fitness Assistant. How can I help you reach your goals today?", info.GymName), true
	case nav.Goodbye:
		return "🙌 You're very welcome! Keep pushing your limits. See you next time! 🏋️‍♂️", true
	case nav.Help:
		return helpText, true
	case nav.GymTiming:
		return Timings(r.store.GymInfo(ctx)), true
	case nav.Fees:
		return Fees(r.store.GymInfo(ctx)), true
	case nav.ViewFacilities:
		return facilities(r.store.GymInfo(ctx)), true
	case nav.BookTrial:
		return trial(r.store.GymInfo(ctx)), true
	case nav.CheckMembership:
		return r.membership(ctx, userID), true
	case nav.ViewSchedule:
		return r.schedule(ctx), true
	case nav.LogWorkout:
		return r.logWorkout(ctx, text, userID), true
	}
	return "", false
}

const helpText = "🤖 *How can I help you today?*\n" + rule + "\n" +
	"• 🕕 *Timings*: When do we open?\n" +
	"• 💰 *Fees*: Membership pricing.\n" +
	"• 🏋️‍♂️ *Facilities*: What's inside?\n" +
	"• 🎟️ *Trial*: Grab a free pass!\n" +
	"• 👤 *Status*: Your membership info.\n" +
	"• 🏋️‍♂️ *Plans*: AI Workout/Diet plans.\n\n" +
	"Type /cancel to leave any form."

// Fallback is sent for messages no handler understood.
const Fallback = "🤔 I'm not sure I understand that. I'm specialized in gym-related queries like timings, " +
	"fees, class schedules, and workout plans.\n\nType /help to see what I can do!"

func Timings(info models.GymInfo) string {
	return fmt.Sprintf("🕕 *Gym Timings*\n%s\n📅 *Mon - Sat*: %s\n☀️ *Sunday*: %s\n\nCome sweat with us today! 🏋️‍♂️",
		rule, info.Timings.MonSat, info.Timings.Sunday)
}

func Fees(info models.GymInfo) string {
	if len(info.Fees) == 0 {
		return "💰 Membership details are being updated. Please check back soon!"
	}
	plans := make([]string, 0, len(info.Fees))
	for k := range info.Fees {
		plans = append(plans, k)
	}
	sort.Slice(plans, func(i, j int) bool { return info.Fees[plans[i]] < info.Fees[plans[j]] })

	var b strings.Builder
	fmt.Fprintf(&b, "💰 *Our Membership Plans*\n%s\n", rule)
	for _, k := range plans {
		fmt.Fprintf(&b, "• *%s*: ₹%d\n", displayPlan(k), info.Fees[k])
	}
	b.WriteString("\n✨ *Special Offer*: Ask about our transformation plans for maximum value!")
	return b.String()
}

// displayPlan turns a fee key back into a title ("trial_pass" -> "Trial Pass").
func displayPlan(key string) string {
	words := strings.Split(key, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func facilities(info models.GymInfo) string {
	list := "Contact us for details."
	if len(info.Facilities) > 0 {
		list = "• " + strings.Join(info.Facilities, "\n• ")
	}
	return fmt.Sprintf("🏋️‍♂️ *Our Premium Facilities*\n%s\n%s\n\nEverything you need to reach your peak performance! 🔥", rule, list)
}

func trial(info models.GymInfo) string {
	return fmt.Sprintf("🎟️ *Claim your 1-Day Trial Pass!*\n%s\n"+
		"We're excited to have you at *%s*! To book your trial, we just need a few basic details for your digital pass.\n\n"+
		"Tap *%s* to get started and select '%s' when prompted! 🚀", rule, info.GymName, nav.BtnJoin, models.PlanTrial)
}

func (r *Responder) membership(ctx context.Context, userID int64) string {
	m, err := r.store.GetMember(ctx, userID)
	switch {
	case errors.Is(err, store.ErrMemberNotFound):
		return "❌ Membership records not found for your ID. Please contact the gym admin to register."
	case err != nil:
		return r.unavailable("Membership", err)
	}
	return MemberCard(m)
}

// MemberCard is the full profile of a member.
func MemberCard(m models.Member) string {
	return fmt.Sprintf("👤 *Your Membership Profile*\n%s\n"+
		"🆔 *User ID*: `%d`\n"+
		"👤 *Name*: %s\n"+
		"📱 *Phone*: %s\n"+
		"📍 *Address*: %s\n"+
		"💼 *Occupation*: %s\n\n"+
		"💳 *Subscription Details*\n"+
		"• *Current Plan*: %s\n"+
		"• *Duration*: %d months\n"+
		"• *Amount Paid*: ₹%d\n"+
		"• *Joined On*: %s\n"+
		"📅 *Expiry Date*: %s\n\n"+
		"⚡ *Current Status*: %s\n%s\n"+
		"💪 _Keep up the great work!_",
		rule, m.UserID, m.FullName, orNA(m.Phone), orNA(m.Address), orDefault(m.Occupation, "Other"),
		m.Plan, m.DurationMonths, m.AmountPaid, m.JoinDate, orNA(m.ExpiryDate), m.Status, rule)
}

func (r *Responder) schedule(ctx context.Context) string {
	classes, err := r.store.Classes(ctx)
	if err != nil {
		return r.unavailable("Schedule", err)
	}
	if len(classes) == 0 {
		return "📅 No classes are currently scheduled."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📅 *Class Schedule*\n%s\n", rule)
	for _, c := range classes {
		fmt.Fprintf(&b, "• *%s*", c.ClassName)
		if c.Day != "" {
			fmt.Fprintf(&b, " (%s)", c.Day)
		}
		fmt.Fprintf(&b, "\n  🕒 %s | 👤 %s\n", c.Time, orNA(c.Instructor))
	}
	return b.String()
}

// LogUsage is the hint for a bare "log" message.
const LogUsage = "📝 I'm ready! Use the format: `Log [workout name]` (e.g., *Log Running 30 mins*) and I'll save it for you."

func (r *Responder) logWorkout(ctx context.Context, text string, userID int64) string {
	if !r.store.Online() {
		return "⚠️ Workout logging is offline."
	}
	if IsBareLog(text) {
		return LogUsage
	}
	if r.extract == nil {
		return "⚠️ Workout logging is offline."
	}
	entry, err := r.extract.ExtractWorkout(ctx, text)
	if err != nil {
		r.logger.Warnw("Workout extraction failed", "user_id", userID, "error", err)
		return "❌ Sorry, I couldn't understand those workout details. Please try: `Log [Activity] [Duration]`"
	}
	if _, err := r.store.LogWorkout(ctx, userID, entry.Type, entry.Duration, entry.Notes); err != nil {
		return r.unavailable("Workout logging", err)
	}
	return fmt.Sprintf("✅ *Workout Logged!*\n%s\n🏋️‍♂️ *Type*: %s\n🕒 *Duration*: %s\n📝 *Notes*: %s\n\nKeep it up! 💪",
		rule, entry.Type, entry.Duration, orDefault(entry.Notes, "None"))
}

// IsBareLog reports whether text asks to log without naming a workout.
func IsBareLog(text string) bool {
	fields := strings.Fields(strings.ToLower(text))
	if len(fields) == 0 {
		return true
	}
	if len(fields) > 1 {
		return false
	}
	return fields[0] == "log" || strings.Contains(fields[0], "📝")
}

func (r *Responder) unavailable(what string, err error) string {
	if errors.Is(err, store.ErrOffline) {
		return fmt.Sprintf("⚠️ %s system is offline.", what)
	}
	r.logger.Errorw("Record store read failed", "what", what, "error", err)
	return fmt.Sprintf("⚠️ %s system is temporarily unavailable. Please try again shortly.", what)
}

func orNA(s string) string { return orDefault(s, "N/A") }

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
