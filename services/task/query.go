package task

import (
	"context"
	"encoding/json"
	"time"

	"studiodesk/pkg/db/pagination"
	"studiodesk/pkg/errutil"
	"studiodesk/services/review"
)

type ListTasksRequest struct {
	OwnerID     string `form:"owner_id"`
	ProjectID   string `form:"project_id"`
	Status      string `form:"status"`
	IncludeDone bool   `form:"include_done"`
	Cursor      string `form:"cursor"`
	Limit       int    `form:"limit"`
}

// List returns tasks ranked by display score, highest first.
func (s *Service) List(ctx context.Context, req ListTasksRequest) ([]Task, *pagination.PageInfo, error) {
	page := pagination.Pagination{Cursor: req.Cursor, Limit: req.Limit}.Normalize()

	params := ListParams{
		OwnerID:     req.OwnerID,
		ProjectID:   req.ProjectID,
		IncludeDone: req.IncludeDone,
		Limit:       page.Limit + 1,
	}

	if req.Status != "" {
		st, err := review.ParseStatus(req.Status)
		if err != nil || !st.IsStored() {
			return nil, nil, errutil.ValidationFailed("invalid status filter", err,
				errutil.WithDetails(errutil.Detail{Field: "status", Message: "must be TODO, IN_PROGRESS, IN_REVIEW or DONE"}))
		}
		params.Status = st
	}

	if page.Cursor != "" {
		cur, err := pagination.DecodeCursor(page.Cursor)
		if err != nil {
			return nil, nil, errutil.BadRequest("invalid cursor", err)
		}
		params.AfterScore = &cur.Score
		params.AfterID = cur.ID
	}

	tasks, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, nil, errutil.Internal("failed to list tasks", err)
	}

	tasks, info, err := pagination.BuildCursorPageInfo(tasks, page.Limit, func(t Task) pagination.Cursor {
		return pagination.Cursor{Score: t.DisplayScore, ID: t.ID}
	})
	if err != nil {
		return nil, nil, errutil.Internal("failed to build page", err)
	}
	return tasks, info, nil
}

type ScoreView struct {
	TaskID       string          `json:"task_id"`
	RawScore     float64         `json:"raw_score"`
	DisplayScore float64         `json:"display_score"`
	IsFrozen     bool            `json:"is_frozen"`
	ScoredAt     *time.Time      `json:"scored_at,omitempty"`
	Breakdown    json.RawMessage `json:"breakdown,omitempty"`
}

// Score returns the persisted score and its explanation.
func (s *Service) Score(ctx context.Context, id string) (*ScoreView, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	view := &ScoreView{
		TaskID:       t.ID,
		RawScore:     t.RawScore,
		DisplayScore: t.DisplayScore,
		IsFrozen:     t.IsFrozen,
		ScoredAt:     t.ScoredAt,
	}
	if len(t.ScoreBreakdown) > 0 {
		view.Breakdown = json.RawMessage(t.ScoreBreakdown)
	}
	return view, nil
}
