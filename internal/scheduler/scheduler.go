package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"bonsaikeeper/internal/calendar"
	"bonsaikeeper/internal/config"
	appLog "bonsaikeeper/internal/log"
	"bonsaikeeper/internal/model"
	"bonsaikeeper/internal/reminder"
)

// ReminderStore is the part of storage the notify job needs.
type ReminderStore interface {
	ListReminders(ctx context.Context) ([]*model.Reminder, error)
	MarkNotified(ctx context.Context, id int64, at time.Time) error
}

// Notifier announces due occurrences.
type Notifier interface {
	Notify(ctx context.Context, due []model.Occurrence) error
}

// LogNotifier writes due occurrences to the application log.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, due []model.Occurrence) error {
	for _, o := range due {
		appLog.Info("reminder due",
			"title", o.Title,
			"tree", o.TreeName,
			"category", o.Category,
			"date", o.Date.String(),
		)
	}
	return nil
}

// CaptureFunc renders the printable calendar, see internal/capture.
type CaptureFunc func(ctx context.Context) error

type Scheduler struct {
	cron     *cron.Cron
	cfg      *config.Config
	loc      *time.Location
	store    ReminderStore
	notifier Notifier
	capture  CaptureFunc
	now      func() time.Time
}

func New(cfg *config.Config, loc *time.Location, store ReminderStore, notifier Notifier) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	if notifier == nil {
		notifier = LogNotifier{}
	}

	return &Scheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		cfg:      cfg,
		loc:      loc,
		store:    store,
		notifier: notifier,
		now:      time.Now,
	}
}

// SetCapture enables the capture job when cfg.Capture.Enabled is set.
func (s *Scheduler) SetCapture(fn CaptureFunc) {
	s.capture = fn
}

// Start registers the jobs, starts cron and blocks until ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.cfg.NotifyCron, func() { s.runNotify(ctx) }); err != nil {
		return fmt.Errorf("add notify job: %w", err)
	}

	if s.cfg.Capture.Enabled && s.capture != nil {
		if _, err := s.cron.AddFunc(s.cfg.Capture.Cron, func() { s.runCapture(ctx) }); err != nil {
			return fmt.Errorf("add capture job: %w", err)
		}
	}

	s.cron.Start()
	appLog.Info("scheduler started",
		"timezone", s.loc.String(),
		"notify_cron", s.cfg.NotifyCron,
		"capture", s.cfg.Capture.Enabled && s.capture != nil,
	)

	<-ctx.Done()
	return nil
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	appLog.Info("scheduler stopped")
}

func (s *Scheduler) runNotify(ctx context.Context) {
	n, err := s.NotifyDue(ctx)
	if err != nil {
		appLog.Error("notify job failed", err)
		return
	}
	appLog.Debug("notify job done", "notified", n)
}

func (s *Scheduler) runCapture(ctx context.Context) {
	start := time.Now()
	if err := s.capture(ctx); err != nil {
		appLog.Error("capture job failed", err)
		return
	}
	appLog.Info("capture job done", "elapsed", time.Since(start).String())
}

// NotifyDue hands today's pending occurrences of stored reminders to the
// notifier and marks their reminders notified. A reminder is pending when
// it has not been notified today; one-shot reminders already read are
// skipped. It returns the number of occurrences announced.
func (s *Scheduler) NotifyDue(ctx context.Context) (int, error) {
	now := s.now()
	today := calendar.Today(now, s.loc)

	stored, err := s.store.ListReminders(ctx)
	if err != nil {
		return 0, fmt.Errorf("list reminders: %w", err)
	}

	pending := make([]model.Reminder, 0, len(stored))
	for _, r := range stored {
		if r.Read && r.RRule == "" {
			continue
		}
		if r.NotifiedAt != nil {
			if last, ok := calendar.FromTime(r.NotifiedAt.In(s.loc)); ok && !last.Before(today) {
				continue
			}
		}
		pending = append(pending, *r)
	}

	res, err := reminder.Expand(pending, reminder.ExpandConfig{From: today, To: today})
	if err != nil {
		return 0, fmt.Errorf("expand: %w", err)
	}
	if len(res.Occurrences) == 0 {
		return 0, nil
	}

	if err := s.notifier.Notify(ctx, res.Occurrences); err != nil {
		return 0, fmt.Errorf("notify: %w", err)
	}

	for _, o := range res.Occurrences {
		if err := s.store.MarkNotified(ctx, o.ReminderID, now); err != nil {
			appLog.Error("mark notified failed", err, "reminder_id", o.ReminderID)
		}
	}

	return len(res.Occurrences), nil
}
