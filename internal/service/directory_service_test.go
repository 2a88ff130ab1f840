package service

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/config"
	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/repository"
	apperrors "github.com/spec-kit/complaint-service/pkg/util/errorutil"
)

func newDirectoryFixture() (*DirectoryService, *fakeAccountRepo) {
	accounts := newFakeAccountRepo()
	cfg := config.AuthConfig{BcryptCost: 4}
	return NewDirectoryService(accounts, cfg, zap.NewNop()), accounts
}

func TestRegisterCreatesPendingAccount(t *testing.T) {
	svc, _ := newDirectoryFixture()

	account, err := svc.Register(context.Background(), RegisterInput{
		Username:   "nurse1",
		Password:   "secret",
		Department: "Nursing",
		Phone:      "9876543210",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if account.Status != domain.AccountStatusPending {
		t.Fatalf("status = %s, want PENDING", account.Status)
	}
	if account.Role != domain.RoleUser {
		t.Fatalf("role = %s, want USER", account.Role)
	}
	if account.PasswordHash == "secret" || account.PasswordHash == "" {
		t.Fatal("password stored without hashing")
	}
}

func TestRegisterRejectsDuplicateUsername(t *testing.T) {
	svc, accounts := newDirectoryFixture()
	accounts.put(domain.Account{ID: "a-1", Username: "nurse1"})

	_, err := svc.Register(context.Background(), RegisterInput{Username: "NURSE1", Password: "x"})
	if !apperrors.IsCode(err, "CONFLICT") {
		t.Fatalf("err = %v, want CONFLICT", err)
	}
}

func TestApproveActivatesPendingAccount(t *testing.T) {
	svc, accounts := newDirectoryFixture()
	accounts.put(domain.Account{ID: "a-1", Username: "nurse1", Status: domain.AccountStatusPending})
	admin := testAccount("a-9", "admin1", domain.RoleAdmin)

	account, err := svc.Approve(context.Background(), admin, "a-1")
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if account.Status != domain.AccountStatusActive {
		t.Fatalf("status = %s, want ACTIVE", account.Status)
	}

	if _, err := svc.Approve(context.Background(), admin, "a-1"); !apperrors.IsCode(err, "CONFLICT") {
		t.Fatalf("second approve: err = %v, want CONFLICT", err)
	}
}

func TestApproveRequiresAdmin(t *testing.T) {
	svc, accounts := newDirectoryFixture()
	accounts.put(domain.Account{ID: "a-1", Status: domain.AccountStatusPending})
	manager := testAccount("a-2", "manager1", domain.RoleManager)

	if _, err := svc.Approve(context.Background(), manager, "a-1"); !apperrors.IsCode(err, "FORBIDDEN") {
		t.Fatalf("err = %v, want FORBIDDEN", err)
	}
}

func TestSuperAdminAccountIsImmutable(t *testing.T) {
	svc, accounts := newDirectoryFixture()
	accounts.put(domain.Account{
		ID: "a-1", Username: "root",
		Role: domain.RoleSuperAdmin, Status: domain.AccountStatusActive,
	})
	admin := testAccount("a-2", "admin1", domain.RoleAdmin)
	dept := "Nursing"

	_, err := svc.UpdateAccount(context.Background(), admin, "a-1", AccountUpdateInput{Department: &dept})
	if !apperrors.IsCode(err, "FORBIDDEN") {
		t.Fatalf("update: err = %v, want FORBIDDEN", err)
	}
	if err := svc.DeleteAccount(context.Background(), admin, "a-1"); !apperrors.IsCode(err, "FORBIDDEN") {
		t.Fatalf("delete: err = %v, want FORBIDDEN", err)
	}
}

func TestCannotPromoteToSuperAdmin(t *testing.T) {
	svc, accounts := newDirectoryFixture()
	accounts.put(domain.Account{ID: "a-1", Username: "nurse1", Role: domain.RoleUser})
	admin := testAccount("a-2", "admin1", domain.RoleAdmin)
	super := domain.RoleSuperAdmin

	_, err := svc.UpdateAccount(context.Background(), admin, "a-1", AccountUpdateInput{Role: &super})
	if !apperrors.IsCode(err, "FORBIDDEN") {
		t.Fatalf("err = %v, want FORBIDDEN", err)
	}
}

func TestEnsureSuperAdminBootstrapsOnce(t *testing.T) {
	svc, accounts := newDirectoryFixture()
	cfg := config.AuthConfig{
		BcryptCost:         4,
		SuperAdminUsername: "root",
		SuperAdminPassword: "bootpass",
	}

	if err := svc.EnsureSuperAdmin(context.Background(), cfg); err != nil {
		t.Fatalf("EnsureSuperAdmin: %v", err)
	}
	account, err := accounts.GetByUsername(context.Background(), "root")
	if err != nil {
		t.Fatalf("super admin not created: %v", err)
	}
	if account.Role != domain.RoleSuperAdmin || account.Status != domain.AccountStatusActive {
		t.Fatalf("account = %+v", account)
	}

	if err := svc.EnsureSuperAdmin(context.Background(), cfg); err != nil {
		t.Fatalf("second bootstrap: %v", err)
	}
	all, _ := accounts.List(context.Background(), repository.AccountFilter{})
	if len(all) != 1 {
		t.Fatalf("accounts = %d, want 1", len(all))
	}
}

func TestEnsureSuperAdminSkipsWithoutPassword(t *testing.T) {
	svc, accounts := newDirectoryFixture()

	if err := svc.EnsureSuperAdmin(context.Background(), config.AuthConfig{SuperAdminUsername: "root"}); err != nil {
		t.Fatalf("EnsureSuperAdmin: %v", err)
	}
	all, _ := accounts.List(context.Background(), repository.AccountFilter{})
	if len(all) != 0 {
		t.Fatalf("accounts = %d, want 0", len(all))
	}
}
