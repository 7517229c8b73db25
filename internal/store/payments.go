package store

import (
	"context"
	"fmt"

	"gym-bot/internal/models"
	"gym-bot/internal/sheets"
)

// Due pairs a member with the payment record that carries the balance.
type Due struct {
	Member  models.Member
	Payment models.PaymentRecord
}

// LatestPayment returns the newest payment record of userID.
func (s *Store) LatestPayment(ctx context.Context, userID int64) (models.PaymentRecord, bool, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return models.PaymentRecord{}, false, err
	}
	p, ok := snap.latestPayment(userID)
	return p.value, ok, nil
}

// MemberDues returns the due date and amount from the latest record. A
// member without records owes nothing.
func (s *Store) MemberDues(ctx context.Context, userID int64) (string, int, error) {
	p, ok, err := s.LatestPayment(ctx, userID)
	if err != nil || !ok {
		return "", 0, err
	}
	return p.DueDate, p.DueAmount, nil
}

// MembersWithDues lists every member whose latest record has a positive
// due amount.
func (s *Store) MembersWithDues(ctx context.Context) ([]Due, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return duesOf(snap, func(models.PaymentRecord) bool { return true }), nil
}

// MembersDueOn lists members whose latest due date is date (YYYY-MM-DD)
// with a positive amount.
func (s *Store) MembersDueOn(ctx context.Context, date string) ([]Due, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return duesOf(snap, func(p models.PaymentRecord) bool {
		d, ok := models.ParseDate(p.DueDate)
		return ok && models.FormatDate(d) == date
	}), nil
}

func duesOf(snap *snapshot, keep func(models.PaymentRecord) bool) []Due {
	var out []Due
	for _, m := range snap.members {
		p, ok := snap.latestPayment(m.value.UserID)
		if !ok || !p.value.HasDue() || !keep(p.value) {
			continue
		}
		out = append(out, Due{Member: m.value, Payment: p.value})
	}
	return out
}

// MarkDueAsPaid settles the outstanding balance on the latest record: the
// due fields are cleared, the settled amount is added to the record and to
// the member's amount paid.
func (s *Store) MarkDueAsPaid(ctx context.Context, userID int64, method string) (Due, error) {
	return s.settle(ctx, userID, method, nil)
}

// SettlePaidAmount is MarkDueAsPaid for a payment of a known amount. It
// fails with ErrAmountMismatch, touching nothing, when amount is not the
// current due.
func (s *Store) SettlePaidAmount(ctx context.Context, userID int64, method string, amount int) (Due, error) {
	return s.settle(ctx, userID, method, func(due int) error {
		if due != amount {
			return fmt.Errorf("%w: paid %d, due %d", ErrAmountMismatch, amount, due)
		}
		return nil
	})
}

func (s *Store) settle(ctx context.Context, userID int64, method string, check func(due int) error) (Due, error) {
	var out Due
	err := s.write(ctx, func(snap *snapshot) error {
		p, ok := snap.latestPayment(userID)
		if !ok || !p.value.HasDue() {
			return ErrNoDues
		}
		settled := p.value.DueAmount
		if check != nil {
			if err := check(settled); err != nil {
				return err
			}
		}

		rec := p.value
		rec.Amount += settled
		rec.DueAmount = 0
		rec.DueDate = ""
		if method != "" {
			rec.PaymentMethod = method
		}
		if err := s.backend.UpdateRow(ctx, sheets.TablePayments, p.row, paymentRow(rec)); err != nil {
			return fmt.Errorf("settle dues for %d: %w", userID, err)
		}
		out.Payment = rec

		if m, ok := snap.member(userID); ok {
			mem := m.value
			mem.AmountPaid += settled
			if err := s.backend.UpdateRow(ctx, sheets.TableMembers, m.row, memberRow(mem)); err != nil {
				return fmt.Errorf("update amount paid for %d: %w", userID, err)
			}
			out.Member = mem
		}
		s.logger.Infow("Dues settled", "user_id", userID, "amount", settled, "method", method)
		return nil
	})
	return out, err
}
