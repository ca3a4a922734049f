package dto

import (
	"time"

	"money-tracker/internal/models"

	"github.com/google/uuid"
)

// ActivityQuery pages through the caller's audit trail
type ActivityQuery struct {
	Action string `query:"action" json:"action"`
	Offset int    `query:"offset" json:"offset" validate:"gte=0"`
	Limit  int    `query:"limit" json:"limit" validate:"gte=0,lte=100"`
}

// ActivityEntry is one audit log entry as shown to its owner
type ActivityEntry struct {
	ID         uuid.UUID              `json:"id"`
	Action     string                 `json:"action"`
	Resource   string                 `json:"resource"`
	ResourceID string                 `json:"resourceId,omitempty"`
	IPAddress  string                 `json:"ipAddress,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt  time.Time              `json:"createdAt"`
}

// ActivityResponse is a page of audit entries
type ActivityResponse struct {
	Entries    []ActivityEntry `json:"entries"`
	Pagination PaginationInfo  `json:"pagination"`
}

// ToActivityResponse maps a page of audit logs
func ToActivityResponse(logs []models.AuditLog, total int64, offset, limit int) ActivityResponse {
	entries := make([]ActivityEntry, 0, len(logs))
	for _, log := range logs {
		entries = append(entries, ActivityEntry{
			ID:         log.ID,
			Action:     log.Action,
			Resource:   log.Resource,
			ResourceID: log.ResourceID,
			IPAddress:  log.IPAddress,
			Metadata:   log.Metadata,
			CreatedAt:  log.CreatedAt,
		})
	}
	return ActivityResponse{
		Entries: entries,
		Pagination: PaginationInfo{
			HasMore: int64(offset+len(logs)) < total,
			Offset:  offset,
			Limit:   limit,
			Total:   total,
		},
	}
}
