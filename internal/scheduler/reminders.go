// Package scheduler runs the periodic jobs of the bot, most importantly the
// daily reminder for payments due the next day.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gym-bot/internal/models"
	"gym-bot/internal/store"
	"gym-bot/pkg/logger"
)

// DueSource lists the members whose balance falls due on a date.
type DueSource interface {
	MembersDueOn(ctx context.Context, date string) ([]store.Due, error)
}

// Notifier delivers the two reminder messages of a due.
type Notifier interface {
	NotifyAdminDue(ctx context.Context, due store.Due) error
	NotifyMemberDue(ctx context.Context, due store.Due) error
}

// Ledger remembers which reminders were already sent so a restart inside
// the same due window does not send them again.
type Ledger interface {
	Sent(ctx context.Context, key string) (bool, error)
	MarkSent(ctx context.Context, key string) error
}

// ReminderKey identifies one reminder: a member, a due date and an amount.
// A changed amount or date is a new reminder.
func ReminderKey(d store.Due) string {
	return fmt.Sprintf("%d|%s|%d", d.Member.UserID, d.Payment.DueDate, d.Payment.DueAmount)
}

type Result struct {
	Sent    int
	Skipped int
	Failed  int
}

type Reminders struct {
	dues   DueSource
	notify Notifier
	ledger Ledger
	logger *logger.Logger
}

func NewReminders(dues DueSource, notify Notifier, ledger Ledger, log *logger.Logger) *Reminders {
	if ledger == nil {
		ledger = NewMemoryLedger()
	}
	return &Reminders{dues: dues, notify: notify, ledger: ledger, logger: log}
}

// Run sends reminders for every balance due the day after now. A failure
// for one member is logged and does not stop the others.
func (r *Reminders) Run(ctx context.Context, now time.Time) (Result, error) {
	var res Result
	tomorrow := models.FormatDate(now.AddDate(0, 0, 1))

	dues, err := r.dues.MembersDueOn(ctx, tomorrow)
	if err != nil {
		return res, fmt.Errorf("list dues for %s: %w", tomorrow, err)
	}

	for _, d := range dues {
		if d.Payment.DueAmount <= 0 {
			continue
		}
		key := ReminderKey(d)
		sent, err := r.ledger.Sent(ctx, key)
		if err != nil {
			r.logger.Warnw("Reminder ledger lookup failed", "key", key, "error", err)
		}
		if sent {
			res.Skipped++
			continue
		}

		adminErr := r.notify.NotifyAdminDue(ctx, d)
		if adminErr != nil {
			r.logger.Errorw("Admin due reminder failed", "user_id", d.Member.UserID, "error", adminErr)
		}
		memberErr := r.notify.NotifyMemberDue(ctx, d)
		if memberErr != nil {
			r.logger.Errorw("Member due reminder failed", "user_id", d.Member.UserID, "error", memberErr)
		}
		if adminErr != nil && memberErr != nil {
			res.Failed++
			continue
		}

		if err := r.ledger.MarkSent(ctx, key); err != nil {
			r.logger.Warnw("Reminder ledger write failed", "key", key, "error", err)
		}
		res.Sent++
		r.logger.Infow("Due reminder sent", "user_id", d.Member.UserID, "amount", d.Payment.DueAmount, "due_date", d.Payment.DueDate)
	}
	return res, nil
}

// MemoryLedger is a process-local Ledger.
type MemoryLedger struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{keys: make(map[string]struct{})}
}

func (l *MemoryLedger) Sent(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.keys[key]
	return ok, nil
}

func (l *MemoryLedger) MarkSent(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.keys[key] = struct{}{}
	return nil
}
