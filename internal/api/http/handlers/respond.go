package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/complaint-service/internal/api/dto"
	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/service"
)

// success writes the uniform response envelope. Errors take the mirror
// shape in the error middleware.
func success(c *fiber.Ctx, status int, message string, data any) error {
	body := fiber.Map{
		"status":  "success",
		"message": message,
	}
	if data != nil {
		body["data"] = data
	}
	return c.Status(status).JSON(body)
}

func complaintSummary(complaint *domain.Complaint) dto.ComplaintSummary {
	return dto.ComplaintSummary{
		ID:         complaint.ID,
		Reference:  complaint.Reference,
		Department: complaint.Department,
		Category:   complaint.Category,
		Status:     complaint.Status,
		ReportedBy: complaint.ReportedBy,
		ResolvedBy: complaint.ResolvedBy,
		Rating:     complaint.Rating,
		CreatedAt:  complaint.CreatedAt,
		UpdatedAt:  complaint.UpdatedAt,
		TargetDate: complaint.TargetDate,
	}
}

func complaintDetail(src *service.ComplaintDetail) dto.ComplaintDetailResponse {
	complaint := src.Complaint
	detail := dto.ComplaintDetailResponse{
		ComplaintSummary: complaintSummary(complaint),
		Description:      complaint.Description,
		Feedback:         complaint.Feedback,
		ResolvedAt:       complaint.ResolvedAt,
		ReopenedAt:       complaint.ReopenedAt,
		History:          make([]dto.HistoryEntryResponse, 0, len(src.History)),
		Audit:            make([]dto.AuditEntryResponse, 0, len(src.Audit)),
	}
	for _, entry := range src.History {
		detail.History = append(detail.History, dto.HistoryEntryResponse{
			Entry:     entry.Entry,
			CreatedAt: entry.CreatedAt,
		})
	}
	for _, entry := range src.Audit {
		detail.Audit = append(detail.Audit, dto.AuditEntryResponse{
			Action:       entry.Action,
			Actor:        entry.Actor,
			Remark:       entry.Remark,
			BeforeStatus: entry.BeforeStatus,
			AfterStatus:  entry.AfterStatus,
			Rating:       entry.Rating,
			CreatedAt:    entry.CreatedAt,
		})
	}
	for _, entry := range src.Transfers {
		detail.Transfers = append(detail.Transfers, dto.TransferLogResponse{
			Actor:          entry.Actor,
			FromDepartment: entry.FromDepartment,
			ToDepartment:   entry.ToDepartment,
			Message:        entry.Message,
			CreatedAt:      entry.CreatedAt,
		})
	}
	for _, entry := range src.Extensions {
		detail.Extensions = append(detail.Extensions, dto.ExtensionLogResponse{
			Actor:     entry.Actor,
			FromDate:  entry.FromDate,
			ToDate:    entry.ToDate,
			DeltaDays: entry.DeltaDays,
			CreatedAt: entry.CreatedAt,
		})
	}
	return detail
}

func accountResponse(account *domain.Account) dto.AccountResponse {
	return dto.AccountResponse{
		ID:          account.ID,
		Username:    account.Username,
		Role:        account.Role,
		Department:  account.Department,
		Phone:       account.Phone,
		Status:      account.Status,
		SolvedCount: account.SolvedCount,
		AvgRating:   account.AvgRating,
		CreatedAt:   account.CreatedAt,
	}
}
