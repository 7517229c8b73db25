package store

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"gym-bot/internal/models"
	"gym-bot/internal/sheets"
)

// daysPerMonth is the billing month used for every expiry calculation.
const daysPerMonth = 30

// Registration is the input of AddMember.
type Registration struct {
	UserID         int64
	FullName       string
	Phone          string
	Address        string
	Occupation     string
	Plan           string
	DurationMonths int
	AmountPaid     int
	DueAmount      int
	DueDate        string
	PaymentMethod  string
	// Status defaults to Pending.
	Status models.Status
}

// Field names a member attribute that can be edited after registration.
type Field string

const (
	FieldName    Field = "name"
	FieldPhone   Field = "phone"
	FieldAddress Field = "address"
)

func newTransactionID(prefix string, userID int64, at time.Time) string {
	return fmt.Sprintf("%s_%d_%s_%s", prefix, userID, at.Format("20060102"), uuid.NewString()[:8])
}

// GetMember returns the member row for userID or ErrMemberNotFound.
func (s *Store) GetMember(ctx context.Context, userID int64) (models.Member, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return models.Member{}, err
	}
	m, ok := snap.member(userID)
	if !ok {
		return models.Member{}, ErrMemberNotFound
	}
	return m.value, nil
}

// AddMember inserts or replaces the member row and appends the joining
// payment record.
func (s *Store) AddMember(ctx context.Context, reg Registration) (models.Member, error) {
	var out models.Member
	err := s.write(ctx, func(snap *snapshot) error {
		now := s.Now()
		today := models.FormatDate(now)

		status := reg.Status
		if status == "" {
			status = models.StatusPending
		}
		if _, err := models.ParseStatus(string(status)); err != nil {
			return err
		}

		m := models.Member{
			UserID:         reg.UserID,
			FullName:       reg.FullName,
			Phone:          reg.Phone,
			Address:        reg.Address,
			Occupation:     reg.Occupation,
			Plan:           reg.Plan,
			MembershipType: models.MembershipRegular,
			DurationMonths: reg.DurationMonths,
			AmountPaid:     reg.AmountPaid,
			Status:         status,
			JoinDate:       today,
			LastRenewal:    today,
		}
		action := models.ActionJoined
		if strings.Contains(strings.ToLower(reg.Plan), "trial") {
			m.MembershipType = models.MembershipTrial
			m.DurationMonths = 0
			m.ExpiryDate = models.FormatDate(now.AddDate(0, 0, 1))
			action = models.ActionTrialBooked
		} else {
			if m.DurationMonths <= 0 {
				m.DurationMonths = 1
			}
			m.ExpiryDate = models.FormatDate(now.AddDate(0, 0, daysPerMonth*m.DurationMonths))
		}

		if existing, ok := snap.member(reg.UserID); ok {
			if err := s.backend.UpdateRow(ctx, sheets.TableMembers, existing.row, memberRow(m)); err != nil {
				return fmt.Errorf("update member %d: %w", reg.UserID, err)
			}
		} else if err := s.backend.Append(ctx, sheets.TableMembers, memberRow(m)); err != nil {
			return fmt.Errorf("append member %d: %w", reg.UserID, err)
		}

		method := reg.PaymentMethod
		if method == "" {
			method = "Cash/UPI"
		}
		p := models.PaymentRecord{
			TransactionID:  newTransactionID("TXN", reg.UserID, now),
			UserID:         reg.UserID,
			FullName:       reg.FullName,
			Date:           today,
			Action:         action,
			Plan:           reg.Plan,
			DurationMonths: m.DurationMonths,
			Amount:         reg.AmountPaid,
			ExpiryDate:     m.ExpiryDate,
			PaymentMethod:  method,
		}
		if reg.DueAmount > 0 {
			p.DueAmount = reg.DueAmount
			p.DueDate = reg.DueDate
		}
		if err := s.backend.Append(ctx, sheets.TablePayments, paymentRow(p)); err != nil {
			return fmt.Errorf("append payment for %d: %w", reg.UserID, err)
		}

		out = m
		s.logger.Infow("Member saved", "user_id", m.UserID, "plan", m.Plan, "status", m.Status)
		return nil
	})
	return out, err
}

// UpdateMemberStatus sets the status column. status must be one of
// Pending, Active or Inactive.
func (s *Store) UpdateMemberStatus(ctx context.Context, userID int64, status string) (models.Member, error) {
	st, err := models.ParseStatus(status)
	if err != nil {
		return models.Member{}, err
	}
	return s.updateMember(ctx, userID, func(m *models.Member) error {
		m.Status = st
		return nil
	})
}

// UpdateMemberField edits name, phone or address.
func (s *Store) UpdateMemberField(ctx context.Context, userID int64, field Field, value string) (models.Member, error) {
	value = strings.TrimSpace(value)
	return s.updateMember(ctx, userID, func(m *models.Member) error {
		switch field {
		case FieldName:
			m.FullName = value
		case FieldPhone:
			m.Phone = value
		case FieldAddress:
			m.Address = value
		default:
			return fmt.Errorf("field %q is not editable", field)
		}
		return nil
	})
}

// RenewMember extends the membership by months from the later of today and
// the current expiry, reactivates it and appends one Renewed record.
func (s *Store) RenewMember(ctx context.Context, userID int64, amount, months int) (models.Member, error) {
	if months <= 0 {
		return models.Member{}, fmt.Errorf("invalid renewal duration %d", months)
	}
	if amount < 0 {
		return models.Member{}, fmt.Errorf("invalid renewal amount %d", amount)
	}

	var out models.Member
	err := s.write(ctx, func(snap *snapshot) error {
		cur, ok := snap.member(userID)
		if !ok {
			return ErrMemberNotFound
		}
		now := s.Now()
		today := calendarDay(now)

		base := today
		if exp, ok := cur.value.Expiry(); ok && exp.After(base) {
			base = exp
		}

		m := cur.value
		m.ExpiryDate = models.FormatDate(base.AddDate(0, 0, daysPerMonth*months))
		m.LastRenewal = models.FormatDate(today)
		m.DurationMonths = months
		m.AmountPaid = amount
		m.Status = models.StatusActive
		m.MembershipType = models.MembershipRegular

		if err := s.backend.UpdateRow(ctx, sheets.TableMembers, cur.row, memberRow(m)); err != nil {
			return fmt.Errorf("renew member %d: %w", userID, err)
		}
		p := models.PaymentRecord{
			TransactionID:  newTransactionID("REN", userID, now),
			UserID:         userID,
			FullName:       m.FullName,
			Date:           models.FormatDate(today),
			Action:         models.ActionRenewed,
			Plan:           m.Plan,
			DurationMonths: months,
			Amount:         amount,
			ExpiryDate:     m.ExpiryDate,
			PaymentMethod:  "Cash/UPI",
		}
		if err := s.backend.Append(ctx, sheets.TablePayments, paymentRow(p)); err != nil {
			return fmt.Errorf("append renewal for %d: %w", userID, err)
		}
		out = m
		s.logger.Infow("Member renewed", "user_id", userID, "months", months, "expiry", m.ExpiryDate)
		return nil
	})
	return out, err
}

// DeleteMember removes the member row. Payment history is kept.
func (s *Store) DeleteMember(ctx context.Context, userID int64) error {
	return s.write(ctx, func(snap *snapshot) error {
		cur, ok := snap.member(userID)
		if !ok {
			return ErrMemberNotFound
		}
		if err := s.backend.DeleteRow(ctx, sheets.TableMembers, cur.row); err != nil {
			return fmt.Errorf("delete member %d: %w", userID, err)
		}
		s.logger.Infow("Member deleted", "user_id", userID)
		return nil
	})
}

func (s *Store) updateMember(ctx context.Context, userID int64, mutate func(*models.Member) error) (models.Member, error) {
	var out models.Member
	err := s.write(ctx, func(snap *snapshot) error {
		cur, ok := snap.member(userID)
		if !ok {
			return ErrMemberNotFound
		}
		m := cur.value
		if err := mutate(&m); err != nil {
			return err
		}
		if err := s.backend.UpdateRow(ctx, sheets.TableMembers, cur.row, memberRow(m)); err != nil {
			return fmt.Errorf("update member %d: %w", userID, err)
		}
		out = m
		return nil
	})
	return out, err
}

// ListMembers returns members in sheet order, optionally filtered by
// status.
func (s *Store) ListMembers(ctx context.Context, statuses ...models.Status) ([]models.Member, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Member, 0, len(snap.members))
	for _, m := range snap.members {
		if len(statuses) == 0 || containsStatus(statuses, m.value.Status) {
			out = append(out, m.value)
		}
	}
	return out, nil
}

func containsStatus(list []models.Status, s models.Status) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

// SearchMembers matches query against name, user id and phone,
// case-insensitively.
func (s *Store) SearchMembers(ctx context.Context, query string) ([]models.Member, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil, nil
	}
	var out []models.Member
	for _, m := range snap.members {
		v := m.value
		if strings.Contains(strings.ToLower(v.FullName), q) ||
			strings.Contains(strconv.FormatInt(v.UserID, 10), q) ||
			strings.Contains(v.Phone, q) {
			out = append(out, v)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out, nil
}

// calendarDay returns t's local calendar date as UTC midnight, the same
// representation models.ParseDate produces.
func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
