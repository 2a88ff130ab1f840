package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/events"
	"github.com/spec-kit/complaint-service/internal/repository"
)

type fakeComplaintRepo struct {
	mu         sync.Mutex
	complaints map[string]domain.Complaint
	seq        int64
	// failUpdate forces a version conflict once when set.
	failUpdate bool
}

func newFakeComplaintRepo() *fakeComplaintRepo {
	return &fakeComplaintRepo{complaints: make(map[string]domain.Complaint)}
}

func (r *fakeComplaintRepo) Create(_ context.Context, complaint *domain.Complaint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	complaint.ID = fmt.Sprintf("c-%d", r.seq)
	if complaint.CreatedAt.IsZero() {
		complaint.CreatedAt = time.Now()
	}
	complaint.UpdatedAt = complaint.CreatedAt
	complaint.Version = 1
	r.complaints[complaint.ID] = *complaint
	return nil
}

func (r *fakeComplaintRepo) Update(_ context.Context, complaint *domain.Complaint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failUpdate {
		r.failUpdate = false
		return repository.ErrVersionConflict
	}
	stored, ok := r.complaints[complaint.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	if stored.Version != complaint.Version {
		return repository.ErrVersionConflict
	}
	complaint.Version++
	complaint.UpdatedAt = time.Now()
	r.complaints[complaint.ID] = *complaint
	return nil
}

func (r *fakeComplaintRepo) GetByID(_ context.Context, id string) (*domain.Complaint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.complaints[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := stored
	return &copied, nil
}

func (r *fakeComplaintRepo) GetByReference(_ context.Context, reference string) (*domain.Complaint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, stored := range r.complaints {
		if stored.Reference == reference {
			copied := stored
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeComplaintRepo) ListWithFilter(_ context.Context, filter repository.ComplaintFilter) ([]domain.Complaint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Complaint
	for _, stored := range r.complaints {
		if filter.ReportedBy != nil && !strings.EqualFold(stored.ReportedBy, *filter.ReportedBy) {
			continue
		}
		if filter.Department != nil && stored.Department != *filter.Department {
			continue
		}
		result = append(result, stored)
	}
	return result, nil
}

func (r *fakeComplaintRepo) ListNonTerminal(_ context.Context) ([]domain.Complaint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Complaint
	for _, stored := range r.complaints {
		if !stored.Status.Terminal() {
			result = append(result, stored)
		}
	}
	return result, nil
}

func (r *fakeComplaintRepo) NextReference(_ context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	return fmt.Sprintf("SBH%05d", r.seq), nil
}

func (r *fakeComplaintRepo) CountByStatus(_ context.Context) (map[domain.ComplaintStatus]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[domain.ComplaintStatus]int)
	for _, stored := range r.complaints {
		counts[stored.Status]++
	}
	return counts, nil
}

func (r *fakeComplaintRepo) CountByDepartment(_ context.Context) (map[string]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[string]int)
	for _, stored := range r.complaints {
		counts[stored.Department]++
	}
	return counts, nil
}

func (r *fakeComplaintRepo) ResolverStats(_ context.Context, resolver string) (int, float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	solved := 0
	sum := 0
	rated := 0
	for _, stored := range r.complaints {
		if !stored.Status.Terminal() || stored.ResolvedBy == nil || *stored.ResolvedBy != resolver {
			continue
		}
		solved++
		if stored.Rating != nil {
			sum += *stored.Rating
			rated++
		}
	}
	avg := 0.0
	if rated > 0 {
		avg = float64(sum) / float64(rated)
	}
	return solved, avg, nil
}

// put seeds a complaint directly, bypassing Create.
func (r *fakeComplaintRepo) put(complaint domain.Complaint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if complaint.Version == 0 {
		complaint.Version = 1
	}
	r.complaints[complaint.ID] = complaint
}

type fakeAccountRepo struct {
	mu       sync.Mutex
	accounts map[string]domain.Account
	seq      int
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{accounts: make(map[string]domain.Account)}
}

func (r *fakeAccountRepo) Create(_ context.Context, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	account.ID = fmt.Sprintf("a-%d", r.seq)
	account.CreatedAt = time.Now()
	r.accounts[account.ID] = *account
	return nil
}

func (r *fakeAccountRepo) Update(_ context.Context, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[account.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.accounts[account.ID] = *account
	return nil
}

func (r *fakeAccountRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.accounts, id)
	return nil
}

func (r *fakeAccountRepo) GetByID(_ context.Context, id string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.accounts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := stored
	return &copied, nil
}

func (r *fakeAccountRepo) GetByUsername(_ context.Context, username string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, stored := range r.accounts {
		if strings.EqualFold(stored.Username, username) {
			copied := stored
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeAccountRepo) List(_ context.Context, filter repository.AccountFilter) ([]domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Account
	for _, stored := range r.accounts {
		if filter.Role != nil && stored.Role != *filter.Role {
			continue
		}
		if filter.Status != nil && stored.Status != *filter.Status {
			continue
		}
		if filter.Department != nil && stored.Department != *filter.Department {
			continue
		}
		result = append(result, stored)
	}
	return result, nil
}

// put seeds an account directly.
func (r *fakeAccountRepo) put(account domain.Account) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts[account.ID] = account
}

type fakeAuditRepo struct {
	mu         sync.Mutex
	audits     []domain.AuditEntry
	history    []domain.HistoryEntry
	transfers  []domain.TransferLogEntry
	extensions []domain.ExtensionLogEntry
	// failAppendAudit and failAppendHistory simulate a store outage.
	failAppendAudit   bool
	failAppendHistory bool
}

func newFakeAuditRepo() *fakeAuditRepo { return &fakeAuditRepo{} }

func (r *fakeAuditRepo) AppendAudit(_ context.Context, entry *domain.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAppendAudit {
		return errors.New("audit insert failed")
	}
	entry.CreatedAt = time.Now()
	r.audits = append(r.audits, *entry)
	return nil
}

func (r *fakeAuditRepo) AppendHistory(_ context.Context, entry *domain.HistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAppendHistory {
		return errors.New("history insert failed")
	}
	entry.CreatedAt = time.Now()
	r.history = append(r.history, *entry)
	return nil
}

func (r *fakeAuditRepo) AppendTransfer(_ context.Context, entry *domain.TransferLogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transfers = append(r.transfers, *entry)
	return nil
}

func (r *fakeAuditRepo) AppendExtension(_ context.Context, entry *domain.ExtensionLogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.extensions = append(r.extensions, *entry)
	return nil
}

func (r *fakeAuditRepo) ListAuditByComplaint(_ context.Context, complaintID string) ([]domain.AuditEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.AuditEntry
	for _, entry := range r.audits {
		if entry.ComplaintID == complaintID {
			result = append(result, entry)
		}
	}
	return result, nil
}

func (r *fakeAuditRepo) ListHistoryByComplaint(_ context.Context, complaintID string) ([]domain.HistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.HistoryEntry
	for _, entry := range r.history {
		if entry.ComplaintID == complaintID {
			result = append(result, entry)
		}
	}
	return result, nil
}

func (r *fakeAuditRepo) ListTransfersByComplaint(_ context.Context, complaintID string) ([]domain.TransferLogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.TransferLogEntry
	for _, entry := range r.transfers {
		if entry.ComplaintID == complaintID {
			result = append(result, entry)
		}
	}
	return result, nil
}

func (r *fakeAuditRepo) ListExtensionsByComplaint(_ context.Context, complaintID string) ([]domain.ExtensionLogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.ExtensionLogEntry
	for _, entry := range r.extensions {
		if entry.ComplaintID == complaintID {
			result = append(result, entry)
		}
	}
	return result, nil
}

// recordingDispatcher captures published events in order.
type recordingDispatcher struct {
	mu       sync.Mutex
	events   []events.Event
	handlers map[events.EventType][]events.EventHandler
}

func newRecordingDispatcher() *recordingDispatcher {
	return &recordingDispatcher{handlers: make(map[events.EventType][]events.EventHandler)}
}

func (d *recordingDispatcher) Publish(ctx context.Context, event events.Event) error {
	d.mu.Lock()
	d.events = append(d.events, event)
	handlers := append([]events.EventHandler{}, d.handlers[event.Type]...)
	d.mu.Unlock()
	for _, handler := range handlers {
		_ = handler(ctx, event)
	}
	return nil
}

func (d *recordingDispatcher) Subscribe(eventType events.EventType, handler events.EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[eventType] = append(d.handlers[eventType], handler)
}

func (d *recordingDispatcher) byType(eventType events.EventType) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var result []events.Event
	for _, event := range d.events {
		if event.Type == eventType {
			result = append(result, event)
		}
	}
	return result
}
