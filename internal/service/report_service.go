package service

import (
	"context"

	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/repository"
	apperrors "github.com/spec-kit/complaint-service/pkg/util/errorutil"
)

// ReportService serves the dashboard aggregates.
type ReportService struct {
	complaints repository.ComplaintRepository
	accounts   repository.AccountRepository
}

// NewReportService builds the service.
func NewReportService(complaints repository.ComplaintRepository, accounts repository.AccountRepository) *ReportService {
	return &ReportService{complaints: complaints, accounts: accounts}
}

// Summary aggregates complaint counts.
type Summary struct {
	ByStatus     map[domain.ComplaintStatus]int `json:"by_status"`
	ByDepartment map[string]int                 `json:"by_department"`
	Total        int                            `json:"total"`
}

// Summary returns complaint counts grouped by status and department.
func (s *ReportService) Summary(ctx context.Context) (*Summary, error) {
	byStatus, err := s.complaints.CountByStatus(ctx)
	if err != nil {
		return nil, apperrors.NewUpstreamUnavailable(err)
	}
	byDepartment, err := s.complaints.CountByDepartment(ctx)
	if err != nil {
		return nil, apperrors.NewUpstreamUnavailable(err)
	}
	total := 0
	for _, count := range byStatus {
		total += count
	}
	return &Summary{ByStatus: byStatus, ByDepartment: byDepartment, Total: total}, nil
}

// ResolverPerformance is one resolver's aggregate line.
type ResolverPerformance struct {
	Username    string  `json:"username"`
	Department  string  `json:"department"`
	SolvedCount int     `json:"solved_count"`
	AvgRating   float64 `json:"avg_rating"`
}

// ResolverPerformance lists solved counts and average ratings for every
// staff account (Manager and above).
func (s *ReportService) ResolverPerformance(ctx context.Context) ([]ResolverPerformance, error) {
	var result []ResolverPerformance
	for _, role := range []domain.AccountRole{domain.RoleManager, domain.RoleAdmin} {
		role := role
		accounts, err := s.accounts.List(ctx, repository.AccountFilter{Role: &role, Limit: 500})
		if err != nil {
			return nil, apperrors.NewUpstreamUnavailable(err)
		}
		for _, account := range accounts {
			result = append(result, ResolverPerformance{
				Username:    account.Username,
				Department:  account.Department,
				SolvedCount: account.SolvedCount,
				AvgRating:   account.AvgRating,
			})
		}
	}
	return result, nil
}
