package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/events"
	"github.com/spec-kit/complaint-service/internal/observability"
	"github.com/spec-kit/complaint-service/internal/repository"
	"github.com/spec-kit/complaint-service/internal/service"
	apperrors "github.com/spec-kit/complaint-service/pkg/util/errorutil"
)

// Reopen escalation tiers: the older threshold wins and the lower tier is
// skipped. Overdue complaints escalate by whole days since creation.
const (
	reopenTier1Age = 24 * time.Hour
	reopenTier2Age = 4 * time.Hour
)

// DelayTracker suppresses duplicate delayed-set insertions across sweeps
// and process restarts.
type DelayTracker interface {
	MarkDelayedOnce(ctx context.Context, complaintID string) (bool, error)
	ClearDelayed(ctx context.Context, complaintID string) error
}

// EscalationMonitor periodically sweeps non-terminal complaints and raises
// staged notifications for overdue and reopened-but-unattended ones.
type EscalationMonitor struct {
	complaints repository.ComplaintRepository
	lifecycle  *service.LifecycleService
	dispatcher events.Dispatcher
	tracker    DelayTracker
	metrics    *observability.Metrics
	logger     *zap.Logger
	interval   time.Duration
	now        func() time.Time
}

// MonitorDependencies bundles collaborators for the monitor.
type MonitorDependencies struct {
	ComplaintRepo repository.ComplaintRepository
	Lifecycle     *service.LifecycleService
	Dispatcher    events.Dispatcher
	Tracker       DelayTracker
	Metrics       *observability.Metrics
	Logger        *zap.Logger
	Interval      time.Duration
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// NewEscalationMonitor constructs the monitor.
func NewEscalationMonitor(deps MonitorDependencies) *EscalationMonitor {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	interval := deps.Interval
	if interval <= 0 {
		interval = time.Hour
	}
	return &EscalationMonitor{
		complaints: deps.ComplaintRepo,
		lifecycle:  deps.Lifecycle,
		dispatcher: deps.Dispatcher,
		tracker:    deps.Tracker,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		interval:   interval,
		now:        now,
	}
}

// RegisterHandlers clears the delayed-tracking key once a complaint
// leaves the overdue path, so a later stall starts the ladder over.
func (m *EscalationMonitor) RegisterHandlers() {
	if m.dispatcher == nil || m.tracker == nil {
		return
	}
	handler := func(ctx context.Context, event events.Event) error {
		return m.tracker.ClearDelayed(ctx, event.ComplaintID)
	}
	m.dispatcher.Subscribe(events.EventComplaintResolved, handler)
	m.dispatcher.Subscribe(events.EventComplaintForceClosed, handler)
	m.dispatcher.Subscribe(events.EventComplaintTransferred, handler)
	m.dispatcher.Subscribe(events.EventComplaintExtended, handler)
}

// Run starts the sweep loop and should be launched in its own goroutine.
func (m *EscalationMonitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("escalation monitor shutting down")
			return
		case <-ticker.C:
			if err := m.Sweep(ctx); err != nil {
				m.logger.Warn("escalation sweep failed", zap.Error(err))
			}
		}
	}
}

// Sweep inspects every non-terminal complaint once. It tolerates lifecycle
// transitions racing with it: state is re-read before any mutation and a
// version conflict simply defers the complaint to the next sweep.
func (m *EscalationMonitor) Sweep(ctx context.Context) error {
	complaints, err := m.complaints.ListNonTerminal(ctx)
	if err != nil {
		return err
	}
	m.metrics.RecordSweep()
	now := m.now()

	for i := range complaints {
		complaint := &complaints[i]
		if complaint.ReopenedAt != nil {
			m.checkReopened(ctx, complaint, now)
			continue
		}
		m.checkOverdue(ctx, complaint, now)
	}
	return nil
}

// checkReopened raises tiered contacts for complaints that stayed open
// after a reopen. The higher tier takes precedence; the lower is skipped.
func (m *EscalationMonitor) checkReopened(ctx context.Context, complaint *domain.Complaint, now time.Time) {
	age := now.Sub(*complaint.ReopenedAt)
	switch {
	case age >= reopenTier1Age:
		m.escalate(ctx, complaint, events.TierL1, int(age.Hours()/24))
	case age >= reopenTier2Age:
		m.escalate(ctx, complaint, events.TierL2, 0)
	}
}

// checkOverdue walks the staged overdue ladder: day one marks the
// complaint delayed and tells the owning department, day two repeats the
// warning, day three raises the L2 contact with full context.
func (m *EscalationMonitor) checkOverdue(ctx context.Context, complaint *domain.Complaint, now time.Time) {
	daysPending := int(now.Sub(complaint.CreatedAt).Hours() / 24)
	if daysPending < 1 {
		return
	}

	if complaint.Status != domain.ComplaintStatusDelayed {
		if !m.firstDelay(ctx, complaint) {
			return
		}
		if _, err := m.lifecycle.MarkDelayed(ctx, complaint.ID, daysPending); err != nil {
			// A transition raced the sweep; pick it up next round.
			if !apperrors.IsCode(err, "CONFLICT") && !apperrors.IsCode(err, "INVALID_TRANSITION") {
				m.logger.Warn("mark delayed failed",
					zap.String("complaint_id", complaint.ID), zap.Error(err))
			}
		}
		return
	}

	switch {
	case daysPending >= 3:
		m.escalate(ctx, complaint, events.TierL2, daysPending)
	case daysPending == 2:
		m.publish(ctx, events.Event{
			Type:        events.EventComplaintDelayed,
			ComplaintID: complaint.ID,
			Reference:   complaint.Reference,
			Actor:       service.SystemActor,
			Payload: events.ComplaintDelayedPayload{
				Department:  complaint.Department,
				DaysPending: daysPending,
			},
		})
	}
}

// firstDelay consults the tracker so a complaint is never inserted into
// the delayed set twice. When the tracker is unreachable the DB status
// re-check inside MarkDelayed still prevents double transitions.
func (m *EscalationMonitor) firstDelay(ctx context.Context, complaint *domain.Complaint) bool {
	if m.tracker == nil {
		return true
	}
	first, err := m.tracker.MarkDelayedOnce(ctx, complaint.ID)
	if err != nil {
		m.logger.Warn("delay tracker unavailable; relying on status re-check",
			zap.String("complaint_id", complaint.ID), zap.Error(err))
		return true
	}
	return first
}

func (m *EscalationMonitor) escalate(ctx context.Context, complaint *domain.Complaint, tier events.EscalationTier, daysPending int) {
	m.metrics.RecordEscalation()
	m.publish(ctx, events.Event{
		Type:        events.EventComplaintEscalated,
		ComplaintID: complaint.ID,
		Reference:   complaint.Reference,
		Actor:       service.SystemActor,
		Payload: events.ComplaintEscalatedPayload{
			Tier:        tier,
			Department:  complaint.Department,
			DaysPending: daysPending,
			Status:      complaint.Status,
		},
	})
}

func (m *EscalationMonitor) publish(ctx context.Context, event events.Event) {
	if m.dispatcher == nil {
		return
	}
	event.ID = uuid.NewString()
	event.Timestamp = m.now()
	_ = m.dispatcher.Publish(ctx, event)
}
