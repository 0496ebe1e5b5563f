package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"pharmacy/internal/model"
	"pharmacy/internal/repository"
	"pharmacy/pkg/apperror"
)

type ActivityLogResponse struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	UserName  string `json:"user_name,omitempty"`
	Action    string `json:"action"`
	TableName string `json:"table_name"`
	RecordID  string `json:"record_id"`
	Details   string `json:"details"`
	CreatedAt string `json:"created_at"`
}

// ActivityService appends to and reads the audit trail. Record joins the
// caller's transaction through ctx.
type ActivityService interface {
	Record(ctx context.Context, userID, action, table, recordID string, details interface{}) error
	List(ctx context.Context, page, limit int) ([]ActivityLogResponse, int64, error)
}

type activityService struct {
	activityRepo repository.ActivityRepository
}

func NewActivityService(activityRepo repository.ActivityRepository) ActivityService {
	return &activityService{activityRepo: activityRepo}
}

func (s *activityService) Record(ctx context.Context, userID, action, table, recordID string, details interface{}) error {
	if strings.TrimSpace(action) == "" || strings.TrimSpace(table) == "" {
		return apperror.ValidationField("action", "action and table are required")
	}

	payload := "{}"
	if details != nil {
		raw, err := json.Marshal(details)
		if err != nil {
			return apperror.Persistence(err)
		}
		payload = string(raw)
	}

	entry := &model.ActivityLog{
		UserID:      userID,
		Action:      action,
		RecordTable: table,
		RecordID:    recordID,
		Details:     payload,
	}
	return storeError("write activity log", s.activityRepo.Append(ctx, entry))
}

func (s *activityService) List(ctx context.Context, page, limit int) ([]ActivityLogResponse, int64, error) {
	page, limit = normalizePage(page, limit)

	logs, total, err := s.activityRepo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, storeError("list activity logs", err)
	}

	res := make([]ActivityLogResponse, 0, len(logs))
	for _, l := range logs {
		item := ActivityLogResponse{
			ID:        l.ID.String(),
			UserID:    l.UserID,
			Action:    l.Action,
			TableName: l.RecordTable,
			RecordID:  l.RecordID,
			Details:   l.Details,
			CreatedAt: l.CreatedAt.UTC().Format(time.RFC3339),
		}
		if l.User != nil {
			item.UserName = l.User.DisplayName()
		}
		res = append(res, item)
	}
	return res, total, nil
}
