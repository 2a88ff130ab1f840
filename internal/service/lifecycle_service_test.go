package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/events"
	apperrors "github.com/spec-kit/complaint-service/pkg/util/errorutil"
)

type lifecycleFixture struct {
	complaints *fakeComplaintRepo
	accounts   *fakeAccountRepo
	audit      *fakeAuditRepo
	dispatcher *recordingDispatcher
	service    *LifecycleService
	clock      time.Time
}

func newLifecycleFixture(t *testing.T) *lifecycleFixture {
	t.Helper()
	f := &lifecycleFixture{
		complaints: newFakeComplaintRepo(),
		accounts:   newFakeAccountRepo(),
		audit:      newFakeAuditRepo(),
		dispatcher: newRecordingDispatcher(),
		clock:      time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
	}
	f.service = NewLifecycleService(LifecycleDependencies{
		ComplaintRepo: f.complaints,
		AccountRepo:   f.accounts,
		AuditRepo:     f.audit,
		Dispatcher:    f.dispatcher,
		Now:           func() time.Time { return f.clock },
	})
	return f
}

func testAccount(id, username string, role domain.AccountRole) *domain.Account {
	return &domain.Account{
		ID:       id,
		Username: username,
		Role:     role,
		Phone:    "9876543210",
		Status:   domain.AccountStatusActive,
	}
}

func TestCreateComplaintAssignsReference(t *testing.T) {
	f := newLifecycleFixture(t)
	reporter := testAccount("a-1", "patient1", domain.RoleUser)

	complaint, err := f.service.CreateComplaint(context.Background(), reporter, ComplaintCreateInput{
		Department:  "Housekeeping",
		Category:    "Cleanliness",
		Description: "Ward 3 not cleaned",
	})
	if err != nil {
		t.Fatalf("CreateComplaint: %v", err)
	}
	if !strings.HasPrefix(complaint.Reference, "SBH") || len(complaint.Reference) != 8 {
		t.Fatalf("reference = %q, want SBH + 5 digits", complaint.Reference)
	}
	if complaint.Status != domain.ComplaintStatusOpen {
		t.Fatalf("status = %s, want OPEN", complaint.Status)
	}
	if got := f.dispatcher.byType(events.EventComplaintCreated); len(got) != 1 {
		t.Fatalf("created events = %d, want 1", len(got))
	}
	if len(f.audit.history) != 1 {
		t.Fatalf("history entries = %d, want 1", len(f.audit.history))
	}
}

func TestCreateComplaintRequiresDescription(t *testing.T) {
	f := newLifecycleFixture(t)
	reporter := testAccount("a-1", "patient1", domain.RoleUser)

	_, err := f.service.CreateComplaint(context.Background(), reporter, ComplaintCreateInput{
		Department: "Housekeeping",
	})
	if !apperrors.IsCode(err, "VALIDATION_FAILED") {
		t.Fatalf("err = %v, want VALIDATION_FAILED", err)
	}
}

func TestResolveClosesAndRecordsResolver(t *testing.T) {
	f := newLifecycleFixture(t)
	f.complaints.put(domain.Complaint{
		ID: "c-1", Reference: "SBH00001", Department: "Nursing",
		ReportedBy: "patient1", ReporterPhone: "9876543210",
		Status: domain.ComplaintStatusOpen, CreatedAt: f.clock.Add(-2 * time.Hour),
	})
	staff := testAccount("a-2", "nurse1", domain.RoleManager)

	complaint, err := f.service.Resolve(context.Background(), staff, "c-1", "issue fixed")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if complaint.Status != domain.ComplaintStatusClosed {
		t.Fatalf("status = %s, want CLOSED", complaint.Status)
	}
	if complaint.ResolvedBy == nil || *complaint.ResolvedBy != "nurse1" {
		t.Fatalf("resolvedBy = %v, want nurse1", complaint.ResolvedBy)
	}
	if complaint.ResolvedAt == nil || !complaint.ResolvedAt.Equal(f.clock) {
		t.Fatalf("resolvedAt = %v, want %v", complaint.ResolvedAt, f.clock)
	}
	if got := f.dispatcher.byType(events.EventComplaintResolved); len(got) != 1 {
		t.Fatalf("resolved events = %d, want 1", len(got))
	}
}

func TestResolveSurfacesAuditWriteFailure(t *testing.T) {
	f := newLifecycleFixture(t)
	f.complaints.put(domain.Complaint{
		ID: "c-1", Status: domain.ComplaintStatusOpen, ReportedBy: "patient1",
		CreatedAt: f.clock.Add(-2 * time.Hour),
	})
	f.audit.failAppendAudit = true
	staff := testAccount("a-2", "nurse1", domain.RoleManager)

	_, err := f.service.Resolve(context.Background(), staff, "c-1", "issue fixed")
	if !apperrors.IsCode(err, "UPSTREAM_UNAVAILABLE") {
		t.Fatalf("err = %v, want UPSTREAM_UNAVAILABLE", err)
	}
	if got := f.dispatcher.byType(events.EventComplaintResolved); len(got) != 0 {
		t.Fatalf("resolved events = %d, failed audit write must not notify", len(got))
	}
}

func TestCreateComplaintSurfacesHistoryWriteFailure(t *testing.T) {
	f := newLifecycleFixture(t)
	f.audit.failAppendHistory = true
	reporter := testAccount("a-1", "patient1", domain.RoleUser)

	_, err := f.service.CreateComplaint(context.Background(), reporter, ComplaintCreateInput{
		Department:  "Housekeeping",
		Description: "Ward 3 not cleaned",
	})
	if !apperrors.IsCode(err, "UPSTREAM_UNAVAILABLE") {
		t.Fatalf("err = %v, want UPSTREAM_UNAVAILABLE", err)
	}
}

func TestResolveRejectsTerminal(t *testing.T) {
	f := newLifecycleFixture(t)
	f.complaints.put(domain.Complaint{
		ID: "c-1", Status: domain.ComplaintStatusClosed, ReportedBy: "patient1",
	})
	staff := testAccount("a-2", "nurse1", domain.RoleManager)

	_, err := f.service.Resolve(context.Background(), staff, "c-1", "")
	if !apperrors.IsCode(err, "INVALID_TRANSITION") {
		t.Fatalf("err = %v, want INVALID_TRANSITION", err)
	}
}

func TestResolvedAtWrittenOnce(t *testing.T) {
	f := newLifecycleFixture(t)
	first := f.clock.Add(-48 * time.Hour)
	f.complaints.put(domain.Complaint{
		ID: "c-1", Status: domain.ComplaintStatusOpen, ReportedBy: "patient1",
		ResolvedAt: &first,
	})
	staff := testAccount("a-2", "nurse2", domain.RoleManager)

	complaint, err := f.service.Resolve(context.Background(), staff, "c-1", "closing again")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !complaint.ResolvedAt.Equal(first) {
		t.Fatalf("resolvedAt moved to %v, want original %v", complaint.ResolvedAt, first)
	}
	if *complaint.ResolvedBy != "nurse2" {
		t.Fatalf("resolvedBy = %s, want latest closer nurse2", *complaint.ResolvedBy)
	}
}

func TestForceCloseRequiresSuperAdmin(t *testing.T) {
	f := newLifecycleFixture(t)
	f.complaints.put(domain.Complaint{ID: "c-1", Status: domain.ComplaintStatusOpen})
	admin := testAccount("a-2", "admin1", domain.RoleAdmin)

	_, err := f.service.ForceClose(context.Background(), admin, "c-1", "")
	if !apperrors.IsCode(err, "FORBIDDEN") {
		t.Fatalf("err = %v, want FORBIDDEN", err)
	}
	stored, _ := f.complaints.GetByID(context.Background(), "c-1")
	if stored.Status != domain.ComplaintStatusOpen {
		t.Fatalf("status changed to %s on forbidden force close", stored.Status)
	}
}

func TestForceCloseClosesTerminalComplaint(t *testing.T) {
	f := newLifecycleFixture(t)
	f.complaints.put(domain.Complaint{ID: "c-1", Status: domain.ComplaintStatusClosed})
	super := testAccount("a-1", "root", domain.RoleSuperAdmin)

	complaint, err := f.service.ForceClose(context.Background(), super, "c-1", "administrative closure")
	if err != nil {
		t.Fatalf("ForceClose: %v", err)
	}
	if complaint.Status != domain.ComplaintStatusForceClosed {
		t.Fatalf("status = %s, want FORCE_CLOSED", complaint.Status)
	}
	trail, _ := f.audit.ListAuditByComplaint(context.Background(), "c-1")
	if len(trail) != 1 || trail[0].Action != domain.ActionForceClose {
		t.Fatalf("audit trail = %+v, want one FORCE_CLOSE entry", trail)
	}
}

func TestExtendComputesDeltaFromPriorTarget(t *testing.T) {
	f := newLifecycleFixture(t)
	oldTarget := time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)
	f.complaints.put(domain.Complaint{
		ID: "c-1", Status: domain.ComplaintStatusOpen,
		CreatedAt: f.clock.Add(-24 * time.Hour), TargetDate: &oldTarget,
	})
	staff := testAccount("a-2", "nurse1", domain.RoleManager)
	newTarget := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)

	complaint, err := f.service.Extend(context.Background(), staff, "c-1", newTarget, "parts on order")
	if err != nil {
		t.Fatalf("Extend: %v", err)
	}
	if complaint.Status != domain.ComplaintStatusExtended {
		t.Fatalf("status = %s, want EXTENDED", complaint.Status)
	}
	if len(f.audit.extensions) != 1 {
		t.Fatalf("extension log entries = %d, want 1", len(f.audit.extensions))
	}
	if got := f.audit.extensions[0].DeltaDays; got != 3 {
		t.Fatalf("deltaDays = %d, want 3", got)
	}
}

func TestTransferRecordsTimestampedMessage(t *testing.T) {
	f := newLifecycleFixture(t)
	f.complaints.put(domain.Complaint{
		ID: "c-1", Status: domain.ComplaintStatusOpen, Department: "Nursing",
	})
	staff := testAccount("a-2", "admin1", domain.RoleAdmin)

	complaint, err := f.service.Transfer(context.Background(), staff, "c-1", "Maintenance", nil)
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if complaint.Department != "Maintenance" || complaint.Status != domain.ComplaintStatusTransferred {
		t.Fatalf("got department=%s status=%s", complaint.Department, complaint.Status)
	}
	if len(f.audit.transfers) != 1 {
		t.Fatalf("transfer log entries = %d, want 1", len(f.audit.transfers))
	}
	want := "transferred by admin1 from Nursing to Maintenance on 2025-03-10 at 09:00"
	if got := f.audit.transfers[0].Message; got != want {
		t.Fatalf("message = %q, want %q", got, want)
	}
}

func TestReopenOnlyFromTerminal(t *testing.T) {
	f := newLifecycleFixture(t)
	f.complaints.put(domain.Complaint{ID: "c-1", Status: domain.ComplaintStatusOpen})
	reporter := testAccount("a-1", "patient1", domain.RoleUser)

	if _, err := f.service.Reopen(context.Background(), reporter, "c-1", "still broken"); !apperrors.IsCode(err, "INVALID_TRANSITION") {
		t.Fatalf("reopen of open complaint: err = %v, want INVALID_TRANSITION", err)
	}

	resolver := "nurse1"
	f.accounts.put(domain.Account{ID: "a-2", Username: "nurse1", Phone: "9123456789"})
	f.complaints.put(domain.Complaint{
		ID: "c-2", Status: domain.ComplaintStatusClosed, ResolvedBy: &resolver,
	})
	complaint, err := f.service.Reopen(context.Background(), reporter, "c-2", "still broken")
	if err != nil {
		t.Fatalf("Reopen: %v", err)
	}
	if complaint.Status != domain.ComplaintStatusOpen {
		t.Fatalf("status = %s, want OPEN", complaint.Status)
	}
	if complaint.ReopenedAt == nil || !complaint.ReopenedAt.Equal(f.clock) {
		t.Fatalf("reopenedAt = %v, want %v", complaint.ReopenedAt, f.clock)
	}
	reopened := f.dispatcher.byType(events.EventComplaintReopened)
	if len(reopened) != 1 {
		t.Fatalf("reopened events = %d, want 1", len(reopened))
	}
	payload := reopened[0].Payload.(events.ComplaintReopenedPayload)
	if payload.PriorResolverPhone != "9123456789" {
		t.Fatalf("prior resolver phone = %q", payload.PriorResolverPhone)
	}
}

func TestRateOnlyByReporter(t *testing.T) {
	f := newLifecycleFixture(t)
	f.complaints.put(domain.Complaint{
		ID: "c-1", Status: domain.ComplaintStatusClosed, ReportedBy: "patient1",
	})
	other := testAccount("a-3", "patient2", domain.RoleUser)

	_, err := f.service.Rate(context.Background(), other, "c-1", 4, "")
	if !apperrors.IsCode(err, "FORBIDDEN") {
		t.Fatalf("err = %v, want FORBIDDEN", err)
	}
}

func TestRateExactlyOnce(t *testing.T) {
	f := newLifecycleFixture(t)
	resolver := "nurse1"
	f.accounts.put(domain.Account{ID: "a-2", Username: "nurse1"})
	f.complaints.put(domain.Complaint{
		ID: "c-1", Status: domain.ComplaintStatusClosed,
		ReportedBy: "patient1", ResolvedBy: &resolver,
	})
	reporter := testAccount("a-1", "patient1", domain.RoleUser)

	complaint, err := f.service.Rate(context.Background(), reporter, "c-1", 4, "quick response")
	if err != nil {
		t.Fatalf("Rate: %v", err)
	}
	if complaint.Rating == nil || *complaint.Rating != 4 {
		t.Fatalf("rating = %v, want 4", complaint.Rating)
	}

	_, err = f.service.Rate(context.Background(), reporter, "c-1", 1, "changed my mind")
	if !apperrors.IsCode(err, "ALREADY_RATED") {
		t.Fatalf("second rate: err = %v, want ALREADY_RATED", err)
	}
	stored, _ := f.complaints.GetByID(context.Background(), "c-1")
	if *stored.Rating != 4 {
		t.Fatalf("rating overwritten to %d", *stored.Rating)
	}
}

func TestRateValidatesRange(t *testing.T) {
	f := newLifecycleFixture(t)
	reporter := testAccount("a-1", "patient1", domain.RoleUser)
	for _, rating := range []int{0, 6, -1} {
		if _, err := f.service.Rate(context.Background(), reporter, "c-1", rating, ""); !apperrors.IsCode(err, "VALIDATION_FAILED") {
			t.Fatalf("rating %d: err = %v, want VALIDATION_FAILED", rating, err)
		}
	}
}

func TestRateRefreshesResolverStats(t *testing.T) {
	f := newLifecycleFixture(t)
	resolver := "nurse1"
	f.accounts.put(domain.Account{ID: "a-2", Username: "nurse1"})
	f.complaints.put(domain.Complaint{
		ID: "c-1", Status: domain.ComplaintStatusClosed,
		ReportedBy: "patient1", ResolvedBy: &resolver,
	})
	reporter := testAccount("a-1", "patient1", domain.RoleUser)

	if _, err := f.service.Rate(context.Background(), reporter, "c-1", 5, ""); err != nil {
		t.Fatalf("Rate: %v", err)
	}
	account, _ := f.accounts.GetByUsername(context.Background(), "nurse1")
	if account.SolvedCount != 1 || account.AvgRating != 5 {
		t.Fatalf("stats = solved %d avg %.1f, want 1/5.0", account.SolvedCount, account.AvgRating)
	}
}

func TestMarkDelayedSkipsTerminalAndDelayed(t *testing.T) {
	f := newLifecycleFixture(t)
	f.complaints.put(domain.Complaint{ID: "c-1", Status: domain.ComplaintStatusClosed})
	f.complaints.put(domain.Complaint{ID: "c-2", Status: domain.ComplaintStatusDelayed})
	f.complaints.put(domain.Complaint{ID: "c-3", Status: domain.ComplaintStatusOpen})

	for _, id := range []string{"c-1", "c-2"} {
		if _, err := f.service.MarkDelayed(context.Background(), id, 1); !apperrors.IsCode(err, "INVALID_TRANSITION") {
			t.Fatalf("%s: err = %v, want INVALID_TRANSITION", id, err)
		}
	}

	complaint, err := f.service.MarkDelayed(context.Background(), "c-3", 1)
	if err != nil {
		t.Fatalf("MarkDelayed: %v", err)
	}
	if complaint.Status != domain.ComplaintStatusDelayed {
		t.Fatalf("status = %s, want DELAYED", complaint.Status)
	}
	trail, _ := f.audit.ListAuditByComplaint(context.Background(), "c-3")
	if len(trail) != 1 || trail[0].Actor != SystemActor || trail[0].Action != domain.ActionDelay {
		t.Fatalf("audit trail = %+v, want one system DELAY entry", trail)
	}
}

func TestUpdateConflictSurfacesAsConflict(t *testing.T) {
	f := newLifecycleFixture(t)
	f.complaints.put(domain.Complaint{ID: "c-1", Status: domain.ComplaintStatusOpen})
	f.complaints.failUpdate = true
	staff := testAccount("a-2", "nurse1", domain.RoleManager)

	_, err := f.service.Resolve(context.Background(), staff, "c-1", "")
	if !apperrors.IsCode(err, "CONFLICT") {
		t.Fatalf("err = %v, want CONFLICT", err)
	}
}

func TestGetComplaintReturnsTrail(t *testing.T) {
	f := newLifecycleFixture(t)
	f.complaints.put(domain.Complaint{ID: "c-1", Status: domain.ComplaintStatusOpen, ReportedBy: "patient1"})
	staff := testAccount("a-2", "nurse1", domain.RoleManager)

	if _, err := f.service.Resolve(context.Background(), staff, "c-1", "done"); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	detail, err := f.service.GetComplaint(context.Background(), "c-1")
	if err != nil {
		t.Fatalf("GetComplaint: %v", err)
	}
	if len(detail.History) != 1 || len(detail.Audit) != 1 {
		t.Fatalf("history=%d trail=%d, want 1/1", len(detail.History), len(detail.Audit))
	}
}

func TestGetComplaintNotFound(t *testing.T) {
	f := newLifecycleFixture(t)
	_, err := f.service.GetComplaint(context.Background(), "missing")
	if !apperrors.IsCode(err, "NOT_FOUND") {
		t.Fatalf("err = %v, want NOT_FOUND", err)
	}
}

func TestGetComplaintByReference(t *testing.T) {
	f := newLifecycleFixture(t)
	f.complaints.put(domain.Complaint{
		ID: "c-1", Reference: "SBH00042", Status: domain.ComplaintStatusOpen,
	})

	detail, err := f.service.GetComplaintByReference(context.Background(), "SBH00042")
	if err != nil {
		t.Fatalf("GetComplaintByReference: %v", err)
	}
	if detail.Complaint.ID != "c-1" {
		t.Fatalf("complaint = %+v", detail.Complaint)
	}

	_, err = f.service.GetComplaintByReference(context.Background(), "SBH99999")
	if !apperrors.IsCode(err, "NOT_FOUND") {
		t.Fatalf("err = %v, want NOT_FOUND", err)
	}
}
