// Package nav holds the conversation navigation model: intents, the button
// label table, the menu parent table, keyboard layouts and per-user sessions.
package nav

import "strings"

// Intent names a menu hub, a one-off action or a classifier label.
type Intent string

// Classifier labels.
const (
	Greeting        Intent = "greeting"
	Goodbye         Intent = "goodbye"
	Help            Intent = "help"
	GymTiming       Intent = "gym_timing"
	Fees            Intent = "fees"
	Workout         Intent = "workout"
	Diet            Intent = "diet"
	LogWorkout      Intent = "log_workout"
	CheckMembership Intent = "check_membership"
	ViewSchedule    Intent = "view_schedule"
	ViewFacilities  Intent = "view_facilities"
	RegisterStart   Intent = "register_start"
	BookTrial       Intent = "book_trial"
	Unknown         Intent = "unknown"
)

// Hubs render a keyboard and become the current menu.
const (
	MainMenu          Intent = "main_menu"
	NewUser           Intent = "new_user"
	UserProfileMenu   Intent = "user_profile_menu"
	UserTrainingMenu  Intent = "user_training_menu"
	UserInfoMenu      Intent = "user_info_menu"
	UserTrackerMenu   Intent = "user_tracker_menu"
	UserCoachMenu     Intent = "user_coach_menu"
	UserAboutMenu     Intent = "user_about_menu"
	UserServicesMenu  Intent = "user_services_menu"
	AdminDash         Intent = "admin_dash"
	AdminMembership   Intent = "admin_membership_menu"
	AdminFinancial    Intent = "admin_financial_menu"
	AdminIntelligence Intent = "admin_intelligence_menu"
)

// Member leaves.
const (
	CheckIn         Intent = "check_in"
	CheckOut        Intent = "check_out"
	LogWorkoutStart Intent = "log_workout_start"
	UserWorkoutLogs Intent = "user_workout_logs"
	ViewAttendance  Intent = "view_attendance"
	ViewMachines    Intent = "view_machines"
	StaffInfo       Intent = "staff_info"
	GymRules        Intent = "gym_rules"
	Contact         Intent = "admin_contact"
	FAQ             Intent = "faq"
)

// Admin leaves.
const (
	AdminList        Intent = "admin_list"
	AdminSearch      Intent = "admin_search_start"
	AdminBroadcast   Intent = "admin_broadcast_start"
	AdminTopActive   Intent = "admin_top_active"
	AdminExport      Intent = "admin_export"
	AdminRevenue     Intent = "admin_revenue"
	AdminDues        Intent = "admin_dues"
	AdminGrowth      Intent = "admin_growth"
	AdminPaymentLogs Intent = "admin_payment_logs"
	AdminOccupation  Intent = "admin_occupation"
	AdminInactive    Intent = "admin_inactive"
	AdminExpiring    Intent = "admin_expiring"
	AdminExpired     Intent = "admin_expired"
	AdminAITips      Intent = "admin_ai_advisor"
)

// Control intents.
const (
	Back       Intent = "back"
	Cancel     Intent = "cancel"
	AdminMode  Intent = "admin_dash_return"
	MemberMode Intent = "admin_member_mode"
)

// ClassifierLabels is the allow-list answered by the intent classifier.
var ClassifierLabels = []Intent{
	Greeting, Goodbye, Help, GymTiming, Fees, Workout, Diet, LogWorkout,
	CheckMembership, ViewSchedule, ViewFacilities, RegisterStart, BookTrial, Unknown,
}

// Button labels.
const (
	BtnHome       = "🏠 Home"
	BtnBack       = "🔙 Back"
	BtnCancel     = "❌ Cancel"
	BtnAdmin      = "🛠️ Admin"
	BtnMemberMode = "👤 Member Mode"
	BtnJoin       = "📝 Join"
	BtnInfo       = "ℹ️ Info"
	BtnHelp       = "❓ Help"
	BtnIn         = "✅ In"
	BtnOut        = "🚪 Out"
)

var labels = map[string]Intent{
	// admin hubs
	"👥 Members":  AdminMembership,
	"💰 Finance":  AdminFinancial,
	"📈 Insights": AdminIntelligence,

	"📋 All":     AdminList,
	"🔍 Search":  AdminSearch,
	"📢 Alert":   AdminBroadcast,
	"🏆 Top 10":  AdminTopActive,
	"📤 Export":  AdminExport,
	"📊 Sales":   AdminRevenue,
	"💸 Dues":    AdminDues,
	"📈 Trends":  AdminGrowth,
	"📜 Logs":    AdminPaymentLogs,
	"👥 Jobs":    AdminOccupation,
	"⚠️ Risks":  AdminInactive,
	"⏳ Near":    AdminExpiring,
	"💀 Past":    AdminExpired,
	"🤖 AI Tips": AdminAITips,

	// member hubs
	"👤 Profile":      UserProfileMenu,
	"🏋️‍♂️ Training": UserTrainingMenu,
	BtnInfo:          UserInfoMenu,
	"📊 Tracker":      UserTrackerMenu,
	"🤖 Coach":        UserCoachMenu,
	"🏢 About":        UserAboutMenu,
	"🛠️ Services":    UserServicesMenu,

	"👤 Status":     CheckMembership,
	"📅 Class":      ViewSchedule,
	"📝 Log":        LogWorkoutStart,
	"📜 My Logs":    UserWorkoutLogs,
	"📊 Attendance": ViewAttendance,
	"🤖 Workout":    Workout,
	"🥗 Diet":       Diet,
	"🕕 Clock":      GymTiming,
	"💰 Fees":       Fees,
	"🏋️ Machines":  ViewMachines,
	"🎟️ Trial":     BookTrial,
	"👥 Staff":      StaffInfo,
	"📜 Rules":      GymRules,
	"☎️ Contact":   Contact,
	"❓ FAQ":        FAQ,

	BtnHome:       MainMenu,
	BtnBack:       Back,
	BtnCancel:     Cancel,
	BtnAdmin:      AdminMode,
	BtnMemberMode: MemberMode,
	BtnJoin:       RegisterStart,
	BtnHelp:       Help,
	BtnIn:         CheckIn,
	BtnOut:        CheckOut,
}

// Resolve maps a button label to its intent.
func Resolve(label string) (Intent, bool) {
	in, ok := labels[strings.TrimSpace(label)]
	return in, ok
}

// parents maps every leaf and sub-hub to the hub shown after it.
var parents = map[Intent]Intent{
	AdminMembership:   AdminDash,
	AdminFinancial:    AdminDash,
	AdminIntelligence: AdminDash,

	AdminList:      AdminMembership,
	AdminSearch:    AdminMembership,
	AdminBroadcast: AdminMembership,
	AdminExport:    AdminMembership,

	AdminRevenue:     AdminFinancial,
	AdminDues:        AdminFinancial,
	AdminGrowth:      AdminFinancial,
	AdminPaymentLogs: AdminFinancial,

	AdminTopActive:  AdminIntelligence,
	AdminOccupation: AdminIntelligence,
	AdminInactive:   AdminIntelligence,
	AdminExpiring:   AdminIntelligence,
	AdminExpired:    AdminIntelligence,
	AdminAITips:     AdminIntelligence,

	UserProfileMenu:  MainMenu,
	UserTrainingMenu: MainMenu,
	UserInfoMenu:     MainMenu,
	UserTrackerMenu:  UserTrainingMenu,
	UserCoachMenu:    UserTrainingMenu,
	UserAboutMenu:    UserInfoMenu,
	UserServicesMenu: UserInfoMenu,

	CheckMembership: UserProfileMenu,
	ViewSchedule:    UserProfileMenu,

	LogWorkoutStart: UserTrackerMenu,
	LogWorkout:      UserTrackerMenu,
	UserWorkoutLogs: UserTrackerMenu,
	ViewAttendance:  UserTrackerMenu,

	Workout: UserCoachMenu,
	Diet:    UserCoachMenu,

	GymTiming: UserAboutMenu,
	StaffInfo: UserAboutMenu,
	GymRules:  UserAboutMenu,
	Contact:   UserAboutMenu,

	Fees:           UserServicesMenu,
	ViewFacilities: UserServicesMenu,
	ViewMachines:   UserServicesMenu,
	BookTrial:      UserServicesMenu,
	FAQ:            UserServicesMenu,
}

// Parent returns the hub above in, or MainMenu when none is mapped.
func Parent(in Intent) Intent {
	if p, ok := parents[in]; ok {
		return p
	}
	return MainMenu
}

var hubs = func() map[Intent]bool {
	m := make(map[Intent]bool)
	for _, h := range Hubs() {
		m[h] = true
	}
	return m
}()

// IsHub reports whether in is a menu screen rather than a one-off action.
func IsHub(in Intent) bool { return hubs[in] }

// Hubs lists every menu screen.
func Hubs() []Intent {
	return []Intent{
		MainMenu, NewUser,
		UserProfileMenu, UserTrainingMenu, UserInfoMenu, UserTrackerMenu,
		UserCoachMenu, UserAboutMenu, UserServicesMenu,
		AdminDash, AdminMembership, AdminFinancial, AdminIntelligence,
	}
}

// IsAdminIntent reports whether in belongs to the admin dashboard.
func IsAdminIntent(in Intent) bool {
	return strings.HasPrefix(string(in), "admin_") && in != Contact
}
