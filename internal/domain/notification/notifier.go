package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const (
	idleWait  = time.Minute
	batchSize = 100
)

// NotifierOptions bounds the retry backoff of undelivered events and the final
// delivery attempt made on shutdown.
type NotifierOptions struct {
	MinBackoff   time.Duration
	MaxBackoff   time.Duration
	DrainTimeout time.Duration
}

// Notifier turns transition events into notifications. Events are written to
// the outbox inside the transition's transaction and delivered by Run; failed
// deliveries stay in the outbox and are retried until they succeed.
type Notifier struct {
	repo         Repository
	outbox       Outbox
	logger       *slog.Logger
	minBackoff   time.Duration
	maxBackoff   time.Duration
	drainTimeout time.Duration
	now          func() time.Time

	wake chan struct{}
}

// NewNotifier creates a notifier moving entries from outbox into repo.
func NewNotifier(repo Repository, outbox Outbox, logger *slog.Logger, opts NotifierOptions) *Notifier {
	if opts.MinBackoff <= 0 {
		opts.MinBackoff = 500 * time.Millisecond
	}
	if opts.MaxBackoff < opts.MinBackoff {
		opts.MaxBackoff = 30 * time.Second
	}
	if opts.DrainTimeout <= 0 {
		opts.DrainTimeout = 5 * time.Second
	}
	return &Notifier{
		repo:         repo,
		outbox:       outbox,
		logger:       logger,
		minBackoff:   opts.MinBackoff,
		maxBackoff:   opts.MaxBackoff,
		drainTimeout: opts.DrainTimeout,
		now:          time.Now,
		wake:         make(chan struct{}, 1),
	}
}

// Enqueue writes ev to the outbox using the transaction carried by ctx.
// Events without a recipient are dropped.
func (n *Notifier) Enqueue(ctx context.Context, ev Event) error {
	if ev.ToUserID == "" {
		return nil
	}
	note := notificationFor(ev, n.now())
	if err := n.outbox.Add(ctx, note); err != nil {
		return fmt.Errorf("queueing notification: %w", err)
	}
	return nil
}

// Wake prompts Run to deliver without waiting for its timer. It never blocks.
func (n *Notifier) Wake() {
	select {
	case n.wake <- struct{}{}:
	default:
	}
}

// Pending returns the number of undelivered notifications.
func (n *Notifier) Pending(ctx context.Context) (int, error) {
	return n.outbox.Count(ctx)
}

// Run delivers outbox entries until ctx is canceled, then makes one bounded
// attempt at whatever is still queued. Entries left over stay in the outbox
// for the next Run.
func (n *Notifier) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			n.drain(ctx)
			return nil
		}
		wait := n.deliverDue(ctx, n.now())
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
		case <-n.wake:
		case <-timer.C:
		}
		timer.Stop()
	}
}

// deliverDue attempts every entry due at cutoff once and returns how long to wait before the next pass.
func (n *Notifier) deliverDue(ctx context.Context, cutoff time.Time) time.Duration {
	due, err := n.outbox.Due(ctx, cutoff, batchSize)
	if err != nil {
		n.warn("reading notification outbox failed", "error", err)
		return n.minBackoff
	}
	for _, entry := range due {
		n.attempt(ctx, entry)
	}
	if len(due) == batchSize {
		return 0
	}

	next, ok, err := n.outbox.NextDue(ctx)
	if err != nil {
		n.warn("reading notification outbox failed", "error", err)
		return n.minBackoff
	}
	if !ok {
		return idleWait
	}
	wait := next.Sub(n.now())
	if wait < 0 {
		wait = 0
	}
	if wait > idleWait {
		wait = idleWait
	}
	return wait
}

// drain ignores backoff and stops at the first failure or when the timeout expires.
func (n *Notifier) drain(parent context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), n.drainTimeout)
	defer cancel()

	cutoff := n.now().Add(n.maxBackoff)
	for ctx.Err() == nil {
		due, err := n.outbox.Due(ctx, cutoff, batchSize)
		if err != nil {
			n.warn("reading notification outbox failed", "error", err)
			break
		}
		if len(due) == 0 {
			break
		}
		delivered := 0
		for _, entry := range due {
			if n.attempt(ctx, entry) {
				delivered++
			}
		}
		if delivered < len(due) {
			break
		}
	}

	left, err := n.outbox.Count(ctx)
	if err == nil && left > 0 {
		n.warn("notifier stopped with undelivered notifications", "pending", left)
	}
}

// attempt delivers entry and removes it from the outbox, or reschedules it.
// Delivery is idempotent on the notification id, so a failed removal only
// causes a harmless retry.
func (n *Notifier) attempt(ctx context.Context, entry OutboxEntry) bool {
	note := entry.Notification
	err := n.repo.Create(ctx, &note)
	if err == nil {
		err = n.outbox.Remove(ctx, entry.ID)
	}
	if err == nil {
		return true
	}

	attempts := entry.Attempts + 1
	notBefore := n.now().Add(n.backoff(attempts))
	n.warn("notification delivery failed", "notification_id", entry.ID, "attempts", attempts, "error", err)
	if rerr := n.outbox.Reschedule(ctx, entry.ID, attempts, notBefore); rerr != nil {
		n.warn("rescheduling notification failed", "notification_id", entry.ID, "error", rerr)
	}
	return false
}

func (n *Notifier) warn(msg string, args ...any) {
	if n.logger != nil {
		n.logger.Warn(msg, args...)
	}
}

func notificationFor(ev Event, now time.Time) *Notification {
	projectID := ev.ProjectID
	note := &Notification{
		ID:        ev.ID,
		UserID:    ev.ToUserID,
		ProjectID: &projectID,
		Message:   Message(ev),
		CreatedAt: ev.OccurredAt,
	}
	if note.CreatedAt.IsZero() {
		note.CreatedAt = now.UTC()
	}
	return note
}

func (n *Notifier) backoff(attempts int) time.Duration {
	d := n.minBackoff
	for i := 1; i < attempts && d < n.maxBackoff; i++ {
		d *= 2
	}
	if d > n.maxBackoff {
		d = n.maxBackoff
	}
	return d
}

// Message renders the text shown to the recipient of ev.
func Message(ev Event) string {
	switch ev.Kind {
	case EventCreated:
		return fmt.Sprintf("New project assigned: %s. You are at Step %d: %s", ev.ProjectName, ev.StepNumber, ev.StepName)
	case EventForwarded:
		return fmt.Sprintf("Project forwarded to you: %s. Step %d: %s", ev.ProjectName, ev.StepNumber, ev.StepName)
	case EventSentBack:
		return fmt.Sprintf("Project sent back to you: %s. Step %d: %s. Reason: %s", ev.ProjectName, ev.StepNumber, ev.StepName, ev.Comments)
	case EventCompleted:
		return fmt.Sprintf("Project completed: %s. All steps finished.", ev.ProjectName)
	case EventReassigned:
		return fmt.Sprintf("Step reassigned to you: %s. Step %d: %s", ev.ProjectName, ev.StepNumber, ev.StepName)
	default:
		return fmt.Sprintf("Project updated: %s", ev.ProjectName)
	}
}
