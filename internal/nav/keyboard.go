package nav

import "gym-bot/internal/models"

// Viewer is everything keyboard selection depends on besides the intent.
type Viewer struct {
	Registered bool
	Status     models.Status
	Admin      bool
	AdminMode  bool
}

type role int

const (
	roleGuest role = iota
	rolePending
	roleActive
	roleAdmin
)

func (v Viewer) role() role {
	switch {
	case v.Admin && v.AdminMode:
		return roleAdmin
	case !v.Registered:
		return roleGuest
	case v.Status == models.StatusActive:
		return roleActive
	case v.Status == models.StatusPending:
		return rolePending
	}
	return roleGuest
}

// Initial is the screen a viewer lands on at /start.
func Initial(v Viewer) Intent {
	switch v.role() {
	case roleAdmin:
		return AdminDash
	case roleActive:
		return MainMenu
	case rolePending:
		return UserInfoMenu
	}
	return NewUser
}

var (
	backHome = []string{BtnBack, BtnHome}
	homeOnly = [][]string{{BtnHome}}
)

var adminLayouts = map[Intent][][]string{
	AdminDash:         {{"👥 Members", "💰 Finance"}, {"📈 Insights", BtnHome}},
	AdminMembership:   {{"📋 All", "🔍 Search"}, {"📢 Alert", "📤 Export"}, {BtnMemberMode, BtnBack}},
	AdminFinancial:    {{"📊 Sales", "💸 Dues"}, {"📈 Trends", "📜 Logs"}, {BtnBack}},
	AdminIntelligence: {{"🏆 Top 10", "👥 Jobs"}, {"⚠️ Risks", "⏳ Near"}, {"💀 Past", "🤖 AI Tips"}, {BtnBack}},
}

var activeLayouts = map[Intent][][]string{
	MainMenu:         {{BtnIn, BtnOut}, {"👤 Profile", "🏋️‍♂️ Training"}, {BtnInfo, BtnHome}},
	UserProfileMenu:  {{"👤 Status", "📅 Class"}, backHome},
	UserTrainingMenu: {{"📊 Tracker", "🤖 Coach"}, backHome},
	UserTrackerMenu:  {{"📝 Log", "📜 My Logs"}, {"📊 Attendance"}, backHome},
	UserCoachMenu:    {{"🤖 Workout", "🥗 Diet"}, backHome},
	UserInfoMenu:     {{"🏢 About", "🛠️ Services"}, backHome},
	UserAboutMenu:    {{"🕕 Clock", "👥 Staff"}, {"📜 Rules", "☎️ Contact"}, backHome},
	UserServicesMenu: {{"💰 Fees", "🏋️ Machines"}, {"🎟️ Trial", "❓ FAQ"}, backHome},
}

// Guests and pending members only see the public information screens.
var publicLayouts = map[Intent][][]string{
	UserInfoMenu:     {{"🏢 About", "🛠️ Services"}, {BtnHome}},
	UserAboutMenu:    {{"🕕 Clock", "👥 Staff"}, {"📜 Rules", "☎️ Contact"}, {BtnInfo, BtnHome}},
	UserServicesMenu: {{"💰 Fees", "🏋️ Machines"}, {"🎟️ Trial", "❓ FAQ"}, {BtnInfo, BtnHome}},
}

// SelectKeyboard returns the button grid shown after in. It never returns
// an empty grid: unknown screens fall back to a single Home button. The
// returned grid is a fresh copy.
func SelectKeyboard(in Intent, v Viewer) [][]string {
	if !IsHub(in) {
		in = Parent(in)
	}
	switch v.role() {
	case roleAdmin:
		if kb, ok := adminLayouts[in]; ok {
			return clone(kb)
		}
		return clone(adminLayouts[AdminDash])
	case roleActive:
		kb, ok := activeLayouts[in]
		if !ok {
			if in != NewUser {
				return clone(homeOnly)
			}
			kb = activeLayouts[MainMenu]
		}
		kb = clone(kb)
		if v.Admin && (in == MainMenu || in == NewUser) {
			kb = append([][]string{{BtnAdmin}}, kb...)
		}
		return kb
	case rolePending:
		if kb, ok := publicLayouts[in]; ok {
			return clone(kb)
		}
		return withAdminRow(v, [][]string{{BtnInfo, BtnHelp}})
	}
	if kb, ok := publicLayouts[in]; ok {
		return clone(kb)
	}
	return withAdminRow(v, [][]string{{BtnJoin}, {BtnInfo, BtnHelp}})
}

func withAdminRow(v Viewer, kb [][]string) [][]string {
	if v.Admin {
		kb = append(kb, []string{BtnAdmin})
	}
	return kb
}

func clone(kb [][]string) [][]string {
	out := make([][]string, len(kb))
	for i, row := range kb {
		out[i] = append([]string(nil), row...)
	}
	return out
}

// CancelKeyboard is shown while a flow waits for free text.
func CancelKeyboard() [][]string {
	return [][]string{{BtnCancel}}
}
