package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/config"
	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/events"
	"github.com/spec-kit/complaint-service/internal/notify"
	"github.com/spec-kit/complaint-service/internal/repository"
)

// NotificationService turns domain events into gateway messages. Every
// send is fire-and-forget: the gateway logs and swallows failures, so
// lifecycle outcomes never depend on delivery.
type NotificationService struct {
	dispatcher events.Dispatcher
	gateway    notify.Gateway
	accounts   repository.AccountRepository
	escalation config.EscalationConfig
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, gateway notify.Gateway, accounts repository.AccountRepository, escalation config.EscalationConfig, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		gateway:    gateway,
		accounts:   accounts,
		escalation: escalation,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to lifecycle events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventComplaintResolved, n.handleResolved)
	n.dispatcher.Subscribe(events.EventComplaintForceClosed, n.handleForceClosed)
	n.dispatcher.Subscribe(events.EventComplaintExtended, n.handleExtended)
	n.dispatcher.Subscribe(events.EventComplaintTransferred, n.handleTransferred)
	n.dispatcher.Subscribe(events.EventComplaintReopened, n.handleReopened)
	n.dispatcher.Subscribe(events.EventComplaintDelayed, n.handleDelayed)
	n.dispatcher.Subscribe(events.EventComplaintEscalated, n.handleEscalated)
}

func (n *NotificationService) handleResolved(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ComplaintResolvedPayload)
	if !ok {
		return nil
	}
	text := fmt.Sprintf("Your complaint %s has been resolved by %s. Please rate the resolution.",
		event.Reference, payload.ResolvedBy)
	n.gateway.Send(ctx, payload.ReporterPhone, text)
	return nil
}

func (n *NotificationService) handleForceClosed(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ComplaintResolvedPayload)
	if !ok {
		return nil
	}
	text := fmt.Sprintf("Your complaint %s was closed administratively.", event.Reference)
	n.gateway.Send(ctx, payload.ReporterPhone, text)
	return nil
}

func (n *NotificationService) handleExtended(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ComplaintExtendedPayload)
	if !ok {
		return nil
	}
	text := fmt.Sprintf("The target date for complaint %s moved to %s (%+d days).",
		event.Reference, payload.NewTargetDate.Format("2006-01-02"), payload.DeltaDays)
	n.gateway.Send(ctx, payload.ReporterPhone, text)
	return nil
}

// handleTransferred fans out to every active staff member of the receiving
// department plus all admins, deduplicated by phone number.
func (n *NotificationService) handleTransferred(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ComplaintTransferredPayload)
	if !ok {
		return nil
	}
	text := fmt.Sprintf("Complaint %s: %s", event.Reference, payload.Message)

	seen := make(map[string]struct{})
	for _, phone := range n.transferRecipients(ctx, payload.ToDepartment) {
		normalized := notify.NormalizePhone(phone)
		if normalized == "" {
			continue
		}
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}
		n.gateway.Send(ctx, normalized, text)
	}
	return nil
}

func (n *NotificationService) handleReopened(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ComplaintReopenedPayload)
	if !ok {
		return nil
	}
	text := fmt.Sprintf("Complaint %s has been reopened.", event.Reference)
	if payload.PriorResolverPhone != "" {
		n.gateway.Send(ctx, payload.PriorResolverPhone, text)
	}
	if n.escalation.L3ContactPhone != "" {
		n.gateway.Send(ctx, n.escalation.L3ContactPhone,
			fmt.Sprintf("Escalation: complaint %s reopened after closure.", event.Reference))
	}
	return nil
}

func (n *NotificationService) handleDelayed(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ComplaintDelayedPayload)
	if !ok {
		return nil
	}
	text := fmt.Sprintf("Complaint %s in %s is overdue (%d day(s) pending). Please attend to it.",
		event.Reference, payload.Department, payload.DaysPending)
	for _, phone := range n.departmentPhones(ctx, payload.Department) {
		n.gateway.Send(ctx, phone, text)
	}
	return nil
}

func (n *NotificationService) handleEscalated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ComplaintEscalatedPayload)
	if !ok {
		return nil
	}
	var contact string
	switch payload.Tier {
	case events.TierL1:
		contact = n.escalation.L1ContactPhone
	case events.TierL2:
		contact = n.escalation.L2ContactPhone
	case events.TierL3:
		contact = n.escalation.L3ContactPhone
	}
	if contact == "" {
		n.logger.Debug("no contact configured for escalation tier",
			zap.String("tier", string(payload.Tier)))
		return nil
	}
	text := fmt.Sprintf("Escalation %s: complaint %s (%s) pending %d day(s), status %s.",
		payload.Tier, event.Reference, payload.Department, payload.DaysPending, payload.Status)
	n.gateway.Send(ctx, contact, text)
	return nil
}

func (n *NotificationService) transferRecipients(ctx context.Context, department string) []string {
	phones := n.departmentPhones(ctx, department)

	adminRole := domain.RoleAdmin
	admins, err := n.accounts.List(ctx, repository.AccountFilter{Role: &adminRole, Limit: 500})
	if err != nil {
		n.logger.Warn("list admins for transfer notification", zap.Error(err))
		return phones
	}
	for _, admin := range admins {
		phones = append(phones, admin.Phone)
	}
	return phones
}

func (n *NotificationService) departmentPhones(ctx context.Context, department string) []string {
	active := domain.AccountStatusActive
	staff, err := n.accounts.List(ctx, repository.AccountFilter{
		Department: &department,
		Status:     &active,
		Limit:      500,
	})
	if err != nil {
		n.logger.Warn("list department staff for notification",
			zap.String("department", department), zap.Error(err))
		return nil
	}
	phones := make([]string, 0, len(staff))
	for _, member := range staff {
		phones = append(phones, member.Phone)
	}
	return phones
}
