package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/events"
	"github.com/spec-kit/complaint-service/internal/repository"
	apperrors "github.com/spec-kit/complaint-service/pkg/util/errorutil"
)

// SystemActor names the service itself in audit entries written by the
// escalation monitor.
const SystemActor = "system"

// LifecycleService validates and applies one state transition to exactly
// one complaint, recording history, audit and log entries and emitting
// events for the notification side effects. All failures are returned
// synchronously; the engine never retries.
type LifecycleService struct {
	complaints repository.ComplaintRepository
	accounts   repository.AccountRepository
	audit      repository.AuditRepository
	dispatcher events.Dispatcher
	now        func() time.Time
}

// LifecycleDependencies bundles repositories for the engine.
type LifecycleDependencies struct {
	ComplaintRepo repository.ComplaintRepository
	AccountRepo   repository.AccountRepository
	AuditRepo     repository.AuditRepository
	Dispatcher    events.Dispatcher
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// NewLifecycleService constructs the engine.
func NewLifecycleService(deps LifecycleDependencies) *LifecycleService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &LifecycleService{
		complaints: deps.ComplaintRepo,
		accounts:   deps.AccountRepo,
		audit:      deps.AuditRepo,
		dispatcher: deps.Dispatcher,
		now:        now,
	}
}

// ComplaintCreateInput describes complaint creation payload.
type ComplaintCreateInput struct {
	Department  string
	Category    string
	Description string
}

// CreateComplaint registers a complaint for a reporter, allocating the
// next SBH reference atomically.
func (s *LifecycleService) CreateComplaint(ctx context.Context, reporter *domain.Account, input ComplaintCreateInput) (*domain.Complaint, error) {
	if reporter == nil {
		return nil, apperrors.NewUnauthorized("reporter required")
	}
	if strings.TrimSpace(input.Department) == "" || strings.TrimSpace(input.Description) == "" {
		return nil, apperrors.NewValidationError("department and description required", nil)
	}

	reference, err := s.complaints.NextReference(ctx)
	if err != nil {
		return nil, apperrors.NewUpstreamUnavailable(err)
	}

	complaint := &domain.Complaint{
		Reference:     reference,
		Department:    strings.TrimSpace(input.Department),
		Category:      strings.TrimSpace(input.Category),
		Description:   strings.TrimSpace(input.Description),
		ReportedBy:    reporter.Username,
		ReporterPhone: reporter.Phone,
		Status:        domain.ComplaintStatusOpen,
	}
	if err := s.complaints.Create(ctx, complaint); err != nil {
		return nil, apperrors.NewUpstreamUnavailable(err)
	}

	if err := s.appendHistory(ctx, complaint.ID, fmt.Sprintf("complaint %s registered by %s for %s",
		complaint.Reference, reporter.Username, complaint.Department)); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:        events.EventComplaintCreated,
		ComplaintID: complaint.ID,
		Reference:   complaint.Reference,
		Actor:       reporter.Username,
		Payload: events.ComplaintCreatedPayload{
			Department:    complaint.Department,
			Category:      complaint.Category,
			ReportedBy:    complaint.ReportedBy,
			ReporterPhone: complaint.ReporterPhone,
		},
	})
	return complaint, nil
}

// Resolve closes a complaint on behalf of the resolving actor. The resolver
// recorded is always the most recent closer; resolvedAt is written only on
// the first resolution so later no-op closes cannot move it.
func (s *LifecycleService) Resolve(ctx context.Context, actor *domain.Account, complaintID, remark string) (*domain.Complaint, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("actor required")
	}
	complaint, err := s.getComplaint(ctx, complaintID)
	if err != nil {
		return nil, err
	}
	if complaint.Status.Terminal() {
		return nil, apperrors.NewInvalidTransition("complaint already closed",
			map[string]any{"status": complaint.Status})
	}

	before := complaint.Status
	resolver := actor.Username
	complaint.Status = domain.ComplaintStatusClosed
	complaint.ResolvedBy = &resolver
	if complaint.ResolvedAt == nil {
		now := s.now()
		complaint.ResolvedAt = &now
	}
	if err := s.updateComplaint(ctx, complaint); err != nil {
		return nil, err
	}

	if err := s.appendHistory(ctx, complaint.ID, fmt.Sprintf("resolved by %s: %s", resolver, remark)); err != nil {
		return nil, err
	}
	if err := s.appendAudit(ctx, complaint, domain.ActionResolve, resolver, remark, before); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:        events.EventComplaintResolved,
		ComplaintID: complaint.ID,
		Reference:   complaint.Reference,
		Actor:       resolver,
		Payload: events.ComplaintResolvedPayload{
			ResolvedBy:    resolver,
			Remark:        remark,
			ReporterPhone: complaint.ReporterPhone,
		},
	})
	return complaint, nil
}

// ForceClose closes a complaint unconditionally. Only the SuperAdmin may
// invoke it; the audit trail records the distinguished action.
func (s *LifecycleService) ForceClose(ctx context.Context, actor *domain.Account, complaintID, remark string) (*domain.Complaint, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("actor required")
	}
	if actor.Role != domain.RoleSuperAdmin {
		return nil, apperrors.NewForbidden("force close requires super admin")
	}
	complaint, err := s.getComplaint(ctx, complaintID)
	if err != nil {
		return nil, err
	}

	before := complaint.Status
	resolver := actor.Username
	complaint.Status = domain.ComplaintStatusForceClosed
	complaint.ResolvedBy = &resolver
	if complaint.ResolvedAt == nil {
		now := s.now()
		complaint.ResolvedAt = &now
	}
	if err := s.updateComplaint(ctx, complaint); err != nil {
		return nil, err
	}

	if err := s.appendHistory(ctx, complaint.ID, fmt.Sprintf("administratively closed by %s: %s", resolver, remark)); err != nil {
		return nil, err
	}
	if err := s.appendAudit(ctx, complaint, domain.ActionForceClose, resolver, remark, before); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:        events.EventComplaintForceClosed,
		ComplaintID: complaint.ID,
		Reference:   complaint.Reference,
		Actor:       resolver,
		Payload: events.ComplaintResolvedPayload{
			ResolvedBy:    resolver,
			Remark:        remark,
			ReporterPhone: complaint.ReporterPhone,
			Forced:        true,
		},
	})
	return complaint, nil
}

// Extend moves the complaint target date and records the day delta.
func (s *LifecycleService) Extend(ctx context.Context, actor *domain.Account, complaintID string, newTarget time.Time, remark string) (*domain.Complaint, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("actor required")
	}
	complaint, err := s.getComplaint(ctx, complaintID)
	if err != nil {
		return nil, err
	}
	if complaint.Status.Terminal() {
		return nil, apperrors.NewInvalidTransition("cannot extend a closed complaint",
			map[string]any{"status": complaint.Status})
	}

	before := complaint.Status
	oldTarget := complaint.TargetDate
	baseline := complaint.CreatedAt
	if oldTarget != nil {
		baseline = *oldTarget
	}
	deltaDays := int(newTarget.Sub(baseline).Hours() / 24)

	complaint.TargetDate = &newTarget
	complaint.Status = domain.ComplaintStatusExtended
	if err := s.updateComplaint(ctx, complaint); err != nil {
		return nil, err
	}

	extension := &domain.ExtensionLogEntry{
		ComplaintID: complaint.ID,
		Actor:       actor.Username,
		FromDate:    oldTarget,
		ToDate:      newTarget,
		DeltaDays:   deltaDays,
	}
	if err := s.audit.AppendExtension(ctx, extension); err != nil {
		return nil, apperrors.NewUpstreamUnavailable(err)
	}
	if err := s.appendHistory(ctx, complaint.ID, fmt.Sprintf("target date extended by %s to %s (%+d days)",
		actor.Username, newTarget.Format("2006-01-02"), deltaDays)); err != nil {
		return nil, err
	}
	if err := s.appendAudit(ctx, complaint, domain.ActionExtend, actor.Username, remark, before); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:        events.EventComplaintExtended,
		ComplaintID: complaint.ID,
		Reference:   complaint.Reference,
		Actor:       actor.Username,
		Payload: events.ComplaintExtendedPayload{
			OldTargetDate: oldTarget,
			NewTargetDate: newTarget,
			DeltaDays:     deltaDays,
			ReporterPhone: complaint.ReporterPhone,
		},
	})
	return complaint, nil
}

// Transfer moves the complaint to a new owning department, optionally
// reassigning the resolver.
func (s *LifecycleService) Transfer(ctx context.Context, actor *domain.Account, complaintID, newDepartment string, newResolver *string) (*domain.Complaint, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("actor required")
	}
	if strings.TrimSpace(newDepartment) == "" {
		return nil, apperrors.NewValidationError("target department required", nil)
	}
	complaint, err := s.getComplaint(ctx, complaintID)
	if err != nil {
		return nil, err
	}
	if complaint.Status.Terminal() {
		return nil, apperrors.NewInvalidTransition("cannot transfer a closed complaint",
			map[string]any{"status": complaint.Status})
	}

	before := complaint.Status
	oldDepartment := complaint.Department
	complaint.Department = strings.TrimSpace(newDepartment)
	if newResolver != nil {
		complaint.ResolvedBy = newResolver
	}
	complaint.Status = domain.ComplaintStatusTransferred
	if err := s.updateComplaint(ctx, complaint); err != nil {
		return nil, err
	}

	now := s.now()
	message := fmt.Sprintf("transferred by %s from %s to %s on %s at %s",
		actor.Username, oldDepartment, complaint.Department,
		now.Format("2006-01-02"), now.Format("15:04"))
	transfer := &domain.TransferLogEntry{
		ComplaintID:    complaint.ID,
		Actor:          actor.Username,
		FromDepartment: oldDepartment,
		ToDepartment:   complaint.Department,
		Message:        message,
	}
	if err := s.audit.AppendTransfer(ctx, transfer); err != nil {
		return nil, apperrors.NewUpstreamUnavailable(err)
	}
	if err := s.appendHistory(ctx, complaint.ID, message); err != nil {
		return nil, err
	}
	if err := s.appendAudit(ctx, complaint, domain.ActionTransfer, actor.Username, message, before); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:        events.EventComplaintTransferred,
		ComplaintID: complaint.ID,
		Reference:   complaint.Reference,
		Actor:       actor.Username,
		Payload: events.ComplaintTransferredPayload{
			FromDepartment: oldDepartment,
			ToDepartment:   complaint.Department,
			Message:        message,
		},
	})
	return complaint, nil
}

// Reopen returns a closed complaint to the open state and raises the L3
// escalation contact.
func (s *LifecycleService) Reopen(ctx context.Context, actor *domain.Account, complaintID, remark string) (*domain.Complaint, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("actor required")
	}
	complaint, err := s.getComplaint(ctx, complaintID)
	if err != nil {
		return nil, err
	}
	if !complaint.Status.Terminal() {
		return nil, apperrors.NewInvalidTransition("only closed complaints can be reopened",
			map[string]any{"status": complaint.Status})
	}

	before := complaint.Status
	priorResolver := complaint.ResolvedBy
	now := s.now()
	complaint.Status = domain.ComplaintStatusOpen
	complaint.ReopenedAt = &now
	if err := s.updateComplaint(ctx, complaint); err != nil {
		return nil, err
	}

	payload := events.ComplaintReopenedPayload{PriorResolver: priorResolver}
	if priorResolver != nil {
		if account, err := s.accounts.GetByUsername(ctx, *priorResolver); err == nil {
			payload.PriorResolverPhone = account.Phone
		}
	}

	if err := s.appendHistory(ctx, complaint.ID, fmt.Sprintf("reopened by %s: %s", actor.Username, remark)); err != nil {
		return nil, err
	}
	if err := s.appendAudit(ctx, complaint, domain.ActionReopen, actor.Username, remark, before); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:        events.EventComplaintReopened,
		ComplaintID: complaint.ID,
		Reference:   complaint.Reference,
		Actor:       actor.Username,
		Payload:     payload,
	})
	return complaint, nil
}

// Rate records the reporter's rating exactly once and refreshes the
// resolver's aggregate performance figures.
func (s *LifecycleService) Rate(ctx context.Context, reporter *domain.Account, complaintID string, rating int, feedback string) (*domain.Complaint, error) {
	if reporter == nil {
		return nil, apperrors.NewUnauthorized("reporter required")
	}
	if rating < 1 || rating > 5 {
		return nil, apperrors.NewValidationError("rating must be between 1 and 5", nil)
	}
	complaint, err := s.getComplaint(ctx, complaintID)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(complaint.ReportedBy, reporter.Username) {
		return nil, apperrors.NewForbidden("only the reporter may rate")
	}
	if complaint.Rated() {
		return nil, apperrors.NewAlreadyRated(complaint.ID)
	}

	before := complaint.Status
	complaint.Rating = &rating
	complaint.Feedback = strings.TrimSpace(feedback)
	if err := s.updateComplaint(ctx, complaint); err != nil {
		return nil, err
	}

	if err := s.appendHistory(ctx, complaint.ID, fmt.Sprintf("rated %d/5 by %s", rating, reporter.Username)); err != nil {
		return nil, err
	}
	if err := s.appendAudit(ctx, complaint, domain.ActionRate, reporter.Username, complaint.Feedback, before); err != nil {
		return nil, err
	}
	s.refreshResolverStats(ctx, complaint.ResolvedBy)
	s.publishEvent(ctx, events.Event{
		Type:        events.EventComplaintRated,
		ComplaintID: complaint.ID,
		Reference:   complaint.Reference,
		Actor:       reporter.Username,
		Payload: events.ComplaintRatedPayload{
			Rating:     rating,
			Feedback:   complaint.Feedback,
			ResolvedBy: complaint.ResolvedBy,
		},
	})
	return complaint, nil
}

// MarkDelayed flags an overdue complaint. Invoked by the escalation
// monitor; the state is re-read here so a transition raced in between the
// sweep's read and this call wins over the delay marking.
func (s *LifecycleService) MarkDelayed(ctx context.Context, complaintID string, daysPending int) (*domain.Complaint, error) {
	complaint, err := s.getComplaint(ctx, complaintID)
	if err != nil {
		return nil, err
	}
	if complaint.Status.Terminal() || complaint.Status == domain.ComplaintStatusDelayed {
		return nil, apperrors.NewInvalidTransition("complaint not eligible for delay marking",
			map[string]any{"status": complaint.Status})
	}

	before := complaint.Status
	complaint.Status = domain.ComplaintStatusDelayed
	if err := s.updateComplaint(ctx, complaint); err != nil {
		return nil, err
	}

	if err := s.appendHistory(ctx, complaint.ID, fmt.Sprintf("marked delayed after %d day(s) pending", daysPending)); err != nil {
		return nil, err
	}
	if err := s.appendAudit(ctx, complaint, domain.ActionDelay, SystemActor, "", before); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:        events.EventComplaintDelayed,
		ComplaintID: complaint.ID,
		Reference:   complaint.Reference,
		Actor:       SystemActor,
		Payload: events.ComplaintDelayedPayload{
			Department:  complaint.Department,
			DaysPending: daysPending,
		},
	})
	return complaint, nil
}

// ComplaintDetail bundles a complaint with its full trail.
type ComplaintDetail struct {
	Complaint  *domain.Complaint
	History    []domain.HistoryEntry
	Audit      []domain.AuditEntry
	Transfers  []domain.TransferLogEntry
	Extensions []domain.ExtensionLogEntry
}

// GetComplaint fetches one complaint with its trail.
func (s *LifecycleService) GetComplaint(ctx context.Context, complaintID string) (*ComplaintDetail, error) {
	complaint, err := s.getComplaint(ctx, complaintID)
	if err != nil {
		return nil, err
	}
	return s.loadDetail(ctx, complaint)
}

// GetComplaintByReference fetches a complaint by its public SBH reference.
func (s *LifecycleService) GetComplaintByReference(ctx context.Context, reference string) (*ComplaintDetail, error) {
	complaint, err := s.complaints.GetByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("complaint", map[string]any{"reference": reference})
		}
		return nil, apperrors.NewUpstreamUnavailable(err)
	}
	return s.loadDetail(ctx, complaint)
}

func (s *LifecycleService) loadDetail(ctx context.Context, complaint *domain.Complaint) (*ComplaintDetail, error) {
	history, err := s.audit.ListHistoryByComplaint(ctx, complaint.ID)
	if err != nil {
		return nil, apperrors.NewUpstreamUnavailable(err)
	}
	trail, err := s.audit.ListAuditByComplaint(ctx, complaint.ID)
	if err != nil {
		return nil, apperrors.NewUpstreamUnavailable(err)
	}
	transfers, err := s.audit.ListTransfersByComplaint(ctx, complaint.ID)
	if err != nil {
		return nil, apperrors.NewUpstreamUnavailable(err)
	}
	extensions, err := s.audit.ListExtensionsByComplaint(ctx, complaint.ID)
	if err != nil {
		return nil, apperrors.NewUpstreamUnavailable(err)
	}
	return &ComplaintDetail{
		Complaint:  complaint,
		History:    history,
		Audit:      trail,
		Transfers:  transfers,
		Extensions: extensions,
	}, nil
}

// ListComplaints returns complaints matching the filter.
func (s *LifecycleService) ListComplaints(ctx context.Context, filter repository.ComplaintFilter) ([]domain.Complaint, error) {
	list, err := s.complaints.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.NewUpstreamUnavailable(err)
	}
	return list, nil
}

func (s *LifecycleService) getComplaint(ctx context.Context, id string) (*domain.Complaint, error) {
	complaint, err := s.complaints.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("complaint", map[string]any{"complaint_id": id})
		}
		return nil, apperrors.NewUpstreamUnavailable(err)
	}
	return complaint, nil
}

func (s *LifecycleService) updateComplaint(ctx context.Context, complaint *domain.Complaint) error {
	if err := s.complaints.Update(ctx, complaint); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return apperrors.NewConflict("complaint modified concurrently",
				map[string]any{"complaint_id": complaint.ID})
		}
		return apperrors.NewUpstreamUnavailable(err)
	}
	return nil
}

func (s *LifecycleService) appendHistory(ctx context.Context, complaintID, entry string) error {
	err := s.audit.AppendHistory(ctx, &domain.HistoryEntry{
		ComplaintID: complaintID,
		Entry:       entry,
	})
	if err != nil {
		return apperrors.NewUpstreamUnavailable(err)
	}
	return nil
}

func (s *LifecycleService) appendAudit(ctx context.Context, complaint *domain.Complaint, action domain.LifecycleAction, actor, remark string, before domain.ComplaintStatus) error {
	err := s.audit.AppendAudit(ctx, &domain.AuditEntry{
		ComplaintID:  complaint.ID,
		Action:       action,
		Actor:        actor,
		Remark:       remark,
		BeforeStatus: before,
		AfterStatus:  complaint.Status,
		Rating:       complaint.Rating,
	})
	if err != nil {
		return apperrors.NewUpstreamUnavailable(err)
	}
	return nil
}

func (s *LifecycleService) refreshResolverStats(ctx context.Context, resolver *string) {
	if resolver == nil {
		return
	}
	account, err := s.accounts.GetByUsername(ctx, *resolver)
	if err != nil {
		return
	}
	solved, avg, err := s.complaints.ResolverStats(ctx, account.Username)
	if err != nil {
		return
	}
	account.SolvedCount = solved
	account.AvgRating = avg
	_ = s.accounts.Update(ctx, account)
}

func (s *LifecycleService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
