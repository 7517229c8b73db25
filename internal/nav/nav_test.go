package nav

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gym-bot/internal/models"
)

var viewers = map[string]Viewer{
	"admin":        {Admin: true, AdminMode: true},
	"admin-member": {Admin: true, Registered: true, Status: models.StatusActive},
	"admin-guest":  {Admin: true},
	"active":       {Registered: true, Status: models.StatusActive},
	"pending":      {Registered: true, Status: models.StatusPending},
	"inactive":     {Registered: true, Status: models.StatusInactive},
	"unregistered": {},
}

func allIntents() []Intent {
	seen := map[Intent]bool{}
	var out []Intent
	add := func(in Intent) {
		if !seen[in] {
			seen[in] = true
			out = append(out, in)
		}
	}
	for _, in := range Hubs() {
		add(in)
	}
	for _, in := range labels {
		add(in)
	}
	for child, parent := range parents {
		add(child)
		add(parent)
	}
	for _, in := range ClassifierLabels {
		add(in)
	}
	add(Intent("not_an_intent"))
	return out
}

func TestSelectKeyboardIsTotal(t *testing.T) {
	for name, v := range viewers {
		for _, in := range allIntents() {
			kb := SelectKeyboard(in, v)
			require.NotEmpty(t, kb, "%s/%s", name, in)
			for _, row := range kb {
				require.NotEmpty(t, row, "%s/%s", name, in)
			}
			assert.Equal(t, kb, SelectKeyboard(in, v), "deterministic %s/%s", name, in)
		}
	}
}

func TestKeyboardButtonsAreKnownLabels(t *testing.T) {
	for name, v := range viewers {
		for _, in := range allIntents() {
			for _, row := range SelectKeyboard(in, v) {
				for _, label := range row {
					_, ok := Resolve(label)
					assert.True(t, ok, "%s/%s: %q has no intent", name, in, label)
				}
			}
		}
	}
}

func TestSelectKeyboardLayouts(t *testing.T) {
	assert.Equal(t, [][]string{{"👥 Members", "💰 Finance"}, {"📈 Insights", BtnHome}},
		SelectKeyboard(AdminDash, viewers["admin"]))
	assert.Equal(t, SelectKeyboard(AdminFinancial, viewers["admin"]), SelectKeyboard(AdminRevenue, viewers["admin"]))
	assert.Equal(t, SelectKeyboard(AdminDash, viewers["admin"]), SelectKeyboard(MainMenu, viewers["admin"]))

	main := SelectKeyboard(MainMenu, viewers["active"])
	assert.Equal(t, []string{BtnIn, BtnOut}, main[0])

	adminMain := SelectKeyboard(MainMenu, viewers["admin-member"])
	assert.Equal(t, []string{BtnAdmin}, adminMain[0])
	assert.Equal(t, main, adminMain[1:])

	assert.Equal(t, [][]string{{BtnJoin}, {BtnInfo, BtnHelp}}, SelectKeyboard(NewUser, viewers["unregistered"]))
	assert.Equal(t, [][]string{{BtnJoin}, {BtnInfo, BtnHelp}, {BtnAdmin}}, SelectKeyboard(NewUser, viewers["admin-guest"]))
	assert.Equal(t, [][]string{{BtnJoin}, {BtnInfo, BtnHelp}}, SelectKeyboard(CheckIn, viewers["inactive"]))

	pending := SelectKeyboard(MainMenu, viewers["pending"])
	for _, row := range pending {
		assert.NotContains(t, row, BtnJoin)
	}

	assert.Equal(t, SelectKeyboard(UserTrackerMenu, viewers["active"]), SelectKeyboard(LogWorkout, viewers["active"]))
}

func TestSelectKeyboardReturnsCopy(t *testing.T) {
	kb := SelectKeyboard(MainMenu, viewers["active"])
	kb[0][0] = "mutated"
	assert.Equal(t, BtnIn, SelectKeyboard(MainMenu, viewers["active"])[0][0])
}

func TestBackReachesTopLevel(t *testing.T) {
	for child := range parents {
		cur := child
		for i := 0; i < 3 && cur != MainMenu && cur != AdminDash; i++ {
			cur = Parent(cur)
		}
		assert.Contains(t, []Intent{MainMenu, AdminDash}, cur, "from %s", child)
	}

	assert.Equal(t, AdminFinancial, Parent(AdminRevenue))
	assert.Equal(t, AdminDash, Parent(AdminFinancial))
	assert.Equal(t, UserProfileMenu, Parent(CheckMembership))
	assert.Equal(t, MainMenu, Parent(UserProfileMenu))
	assert.Equal(t, MainMenu, Parent(MainMenu))
	assert.Equal(t, MainMenu, Parent(Intent("nowhere")))
}

func TestParentsAreHubs(t *testing.T) {
	for child, parent := range parents {
		assert.True(t, IsHub(parent), "%s -> %s", child, parent)
	}
}

func TestResolve(t *testing.T) {
	in, ok := Resolve(" 💸 Dues ")
	require.True(t, ok)
	assert.Equal(t, AdminDues, in)

	in, ok = Resolve("🏋️‍♂️ Training")
	require.True(t, ok)
	assert.Equal(t, UserTrainingMenu, in)

	_, ok = Resolve("what are your timings?")
	assert.False(t, ok)
}

func TestInitial(t *testing.T) {
	assert.Equal(t, AdminDash, Initial(viewers["admin"]))
	assert.Equal(t, MainMenu, Initial(viewers["active"]))
	assert.Equal(t, MainMenu, Initial(viewers["admin-member"]))
	assert.Equal(t, UserInfoMenu, Initial(viewers["pending"]))
	assert.Equal(t, NewUser, Initial(viewers["unregistered"]))
}

func TestIsAdminIntent(t *testing.T) {
	assert.True(t, IsAdminIntent(AdminDues))
	assert.True(t, IsAdminIntent(AdminDash))
	assert.False(t, IsAdminIntent(Contact))
	assert.False(t, IsAdminIntent(MainMenu))
}

func TestSessionsIdleExpiry(t *testing.T) {
	now := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	s := NewSessions(30 * time.Minute)
	s.SetClock(func() time.Time { return now })

	sess, release := s.Acquire(7)
	assert.True(t, sess.Idle())
	sess.Flow = AwaitingRenewalAmount{Target: 42}
	sess.Bulk = Bulk{Category: "dues", Targets: []int64{1}}
	release()

	now = now.Add(10 * time.Minute)
	sess, release = s.Acquire(7)
	assert.Equal(t, AwaitingRenewalAmount{Target: 42}, sess.Flow)
	release()

	now = now.Add(31 * time.Minute)
	sess, release = s.Acquire(7)
	assert.True(t, sess.Idle())
	assert.Empty(t, sess.Bulk.Targets)
	release()

	now = now.Add(time.Hour)
	assert.Equal(t, 1, s.Prune())
	assert.Equal(t, 0, s.Len())
}

func TestSessionsPruneKeepsHeldSessions(t *testing.T) {
	now := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	s := NewSessions(time.Minute)
	s.SetClock(func() time.Time { return now })

	_, release := s.Acquire(1)
	now = now.Add(time.Hour)
	assert.Equal(t, 0, s.Prune())
	release()
	assert.Equal(t, 1, s.Len())
}

func TestSessionsSerialisePerUser(t *testing.T) {
	s := NewSessions(0)
	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, release := s.Acquire(3)
			defer release()
			counter++
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, counter)
}
