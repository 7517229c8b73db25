// internal/models/gym.go
package models

import "strings"

type Contact struct {
	Phone string
	Email string
}

type Timings struct {
	MonSat string
	Sunday string
}

type Trainer struct {
	Name      string
	Specialty string
	Phone     string
}

type FAQEntry struct {
	Question string
	Answer   string
}

// GymInfo is the aggregated content of the configuration tables.
type GymInfo struct {
	GymName    string
	Contact    Contact
	Timings    Timings
	Fees       map[string]int
	Trainers   []Trainer
	Facilities []string
	Rules      []string
	FAQ        []FAQEntry
}

// FeeKey normalises a plan name into a fees map key ("Monthly Fee" ->
// "monthly").
func FeeKey(plan string) string {
	k := strings.ToLower(strings.TrimSpace(plan))
	k = strings.TrimSuffix(k, " fee")
	return strings.Join(strings.Fields(k), "_")
}

// Fee returns the configured fee for plan, or 0 when unknown.
func (g GymInfo) Fee(plan string) int {
	return g.Fees[FeeKey(plan)]
}

// DefaultGymInfo is served when the configuration tables are unreadable.
func DefaultGymInfo(name string) GymInfo {
	return GymInfo{
		GymName: name,
		Timings: Timings{MonSat: "6:00 AM - 10:00 PM", Sunday: "8:00 AM - 2:00 PM"},
		Fees:    map[string]int{},
	}
}
