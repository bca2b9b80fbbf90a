package task

import (
	"context"
	"strings"

	"studiodesk/pkg/errutil"
	"studiodesk/services/review"

	"go.uber.org/zap"
)

type BatchAction string

const (
	BatchStatus   BatchAction = "status"
	BatchPriority BatchAction = "priority"
	BatchOwner    BatchAction = "owner"
	BatchProject  BatchAction = "project"
	BatchDelete   BatchAction = "delete"
)

const maxBatchSize = 200

type BatchRequest struct {
	IDs       []string    `json:"ids"`
	Action    BatchAction `json:"action"`
	Status    string      `json:"status"`
	Priority  Priority    `json:"priority"`
	OwnerID   string      `json:"owner_id"`
	ProjectID *string     `json:"project_id"`
}

type BatchItemResult struct {
	ID    string `json:"id"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type BatchResult struct {
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
	Results   []BatchItemResult `json:"results"`
	// Recalculation reports whether the single rescoring was submitted.
	Recalculation bool `json:"recalculation_enqueued"`
}

// Batch applies one action to every id, then triggers a single recalculation.
// Item failures are reported per id and do not stop the rest.
func (s *Service) Batch(ctx context.Context, req BatchRequest) (*BatchResult, error) {
	if err := validateBatch(&req); err != nil {
		return nil, err
	}

	res := &BatchResult{Results: make([]BatchItemResult, 0, len(req.IDs))}
	for _, id := range req.IDs {
		deleted, err := s.applyBatchItem(ctx, req, id)
		item := BatchItemResult{ID: id, OK: err == nil}
		if err != nil {
			item.Error = err.Error()
			res.Failed++
			logger(ctx).Warn("batch item failed",
				zap.String("task_id", id),
				zap.String("action", string(req.Action)),
				zap.Error(err),
			)
		} else {
			res.Succeeded++
			action := CalendarActionUpsert
			if deleted {
				action = CalendarActionDelete
			}
			s.syncCalendar(ctx, id, action)
		}
		res.Results = append(res.Results, item)
	}

	if res.Succeeded > 0 {
		res.Recalculation = s.TriggerRecalculation(ctx)
	}

	logger(ctx).Info("batch applied",
		zap.String("action", string(req.Action)),
		zap.Int("succeeded", res.Succeeded),
		zap.Int("failed", res.Failed),
	)
	return res, nil
}

func (s *Service) applyBatchItem(ctx context.Context, req BatchRequest, id string) (bool, error) {
	switch req.Action {
	case BatchStatus:
		_, _, err := s.changeStatus(ctx, id, req.Status)
		return false, err
	case BatchPriority:
		p := req.Priority
		_, err := s.update(ctx, id, UpdateTaskRequest{Priority: &p})
		return false, err
	case BatchOwner:
		owner := req.OwnerID
		_, err := s.update(ctx, id, UpdateTaskRequest{OwnerID: &owner})
		return false, err
	case BatchProject:
		project := ""
		if req.ProjectID != nil {
			project = *req.ProjectID
		}
		_, err := s.update(ctx, id, UpdateTaskRequest{ProjectID: &project})
		return false, err
	case BatchDelete:
		return true, s.delete(ctx, id)
	}
	return false, errutil.ValidationFailed("unknown batch action", nil)
}

func validateBatch(req *BatchRequest) error {
	var v errutil.Validator

	seen := make(map[string]struct{}, len(req.IDs))
	ids := make([]string, 0, len(req.IDs))
	for _, id := range req.IDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	req.IDs = ids

	v.Check(len(ids) > 0, "ids", "at least one task id is required")
	v.Check(len(ids) <= maxBatchSize, "ids", "too many task ids")

	req.Action = BatchAction(strings.ToLower(strings.TrimSpace(string(req.Action))))
	switch req.Action {
	case BatchStatus:
		if _, err := review.ParseStatus(req.Status); err != nil {
			v.Add("status", err.Error())
		}
	case BatchPriority:
		req.Priority = Priority(strings.ToUpper(string(req.Priority)))
		v.Check(req.Priority.Valid(), "priority", "is invalid")
	case BatchOwner:
		v.Check(req.OwnerID != "", "owner_id", "is required for owner action")
	case BatchProject, BatchDelete:
	default:
		v.Add("action", "must be one of status, priority, owner, project, delete")
	}

	return v.Err()
}
