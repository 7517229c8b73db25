// internal/models/activity.go
package models

type PaymentAction string

const (
	ActionJoined      PaymentAction = "Joined"
	ActionRenewed     PaymentAction = "Renewed"
	ActionTrialBooked PaymentAction = "TrialBooked"
)

// PaymentRecord is one row of the append-only payment history. The most
// recent record for a member carries its outstanding balance.
type PaymentRecord struct {
	TransactionID  string
	UserID         int64
	FullName       string
	Date           string
	Action         PaymentAction
	Plan           string
	DurationMonths int
	Amount         int
	ExpiryDate     string
	PaymentMethod  string
	DueDate        string
	DueAmount      int
}

// HasDue reports whether the record leaves money outstanding.
func (p PaymentRecord) HasDue() bool { return p.DueAmount > 0 }

// AttendanceSession is a check-in, closed by a check-out.
type AttendanceSession struct {
	SessionID       string
	UserID          int64
	FullName        string
	Date            string
	CheckInTime     string
	CheckOutTime    string
	DurationMinutes int
	Notes           string
}

// Open reports whether the member is still inside.
func (a AttendanceSession) Open() bool { return a.CheckOutTime == "" }

type WorkoutLog struct {
	LogID       string
	UserID      int64
	FullName    string
	Date        string
	Time        string
	WorkoutType string
	Duration    string
	Notes       string
}

type ClassSchedule struct {
	ClassID         string
	ClassName       string
	Day             string
	Time            string
	Duration        string
	Instructor      string
	MaxCapacity     int
	CurrentEnrolled int
	Availability    string
	Active          bool
}

type Machine struct {
	Name           string
	MusclesTrained string
	Description    string
	Active         bool
}
