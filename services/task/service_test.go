package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"studiodesk/pkg/errutil"
	"studiodesk/pkg/freeze"
	"studiodesk/pkg/middleware"
	"studiodesk/pkg/taskname"
	"studiodesk/services/notify"
	"studiodesk/services/portfolio"
	"studiodesk/services/review"
	"studiodesk/services/testutil"

	"github.com/bwmarrin/snowflake"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

var now = time.Date(2026, time.October, 12, 14, 0, 0, 0, time.UTC)

type fakeEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) Enqueue(_ context.Context, t *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, t)
	return &asynq.TaskInfo{ID: fmt.Sprint(len(f.tasks)), Queue: "default"}, nil
}

func (f *fakeEnqueuer) count(taskType string) int {
	n := 0
	for _, t := range f.tasks {
		if t.Type() == taskType {
			n++
		}
	}
	return n
}

type sentNotification struct {
	userID string
	kind   string
	taskID string
}

type fakeNotifier struct {
	sent []sentNotification
	err  error
}

func (f *fakeNotifier) Notify(_ context.Context, userID, kind string, payload map[string]any) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentNotification{userID: userID, kind: kind, taskID: payload["task_id"].(string)})
	return nil
}

type fakeRecalculator struct {
	ids []string
}

func (f *fakeRecalculator) RecalculateTask(_ context.Context, id string) error {
	f.ids = append(f.ids, id)
	return nil
}

type fakeSequence struct {
	n int
}

func (f *fakeSequence) NextTaskCode(context.Context) (string, error) {
	f.n++
	return fmt.Sprintf("TSK-%06d", f.n), nil
}

type fixture struct {
	svc      *Service
	repo     Repository
	projects portfolio.Repository
	enq      *fakeEnqueuer
	notifier *fakeNotifier
	recalc   *fakeRecalculator
	store    *freeze.MemoryStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	models := append(Models(), portfolio.Models()...)
	db := testutil.NewTestDB(t, append(models, &review.AuditEntry{})...)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	f := &fixture{
		repo:     NewRepository(db),
		projects: portfolio.NewRepository(db),
		enq:      &fakeEnqueuer{},
		notifier: &fakeNotifier{},
		recalc:   &fakeRecalculator{},
		store:    &freeze.MemoryStore{},
	}
	f.svc = NewService(Params{
		Repository:   f.repo,
		Projects:     f.projects,
		Audit:        review.NewAuditRepository(db),
		Node:         node,
		Notifier:     f.notifier,
		Recalculator: f.recalc,
		Enqueuer:     f.enq,
		Sequence:     &fakeSequence{},
		Freeze:       f.store,
		Clock:        func() time.Time { return now },
	})

	ctx := context.Background()
	for _, id := range []string{"owner", "reviewer", "other"} {
		require.NoError(t, f.repo.CreateUser(ctx, &User{ID: id, Name: id, Email: id + "@studio.test"}))
	}
	return f
}

// notifications decodes the enqueued notification deliveries.
func (f *fixture) notifications(t *testing.T) []sentNotification {
	t.Helper()
	var out []sentNotification
	for _, tk := range f.enq.tasks {
		if tk.Type() != taskname.NotifyDeliver {
			continue
		}
		var p notify.DeliverPayload
		require.NoError(t, json.Unmarshal(tk.Payload(), &p))
		out = append(out, sentNotification{userID: p.UserID, kind: p.Kind, taskID: p.Payload["task_id"].(string)})
	}
	return out
}

func ptr[T any](v T) *T { return &v }

func validRequest() CreateTaskRequest {
	return CreateTaskRequest{
		Title:     "Homepage hero",
		Type:      "client",
		Priority:  "urgent_important",
		OwnerID:   "owner",
		StartDate: ptr(now.Add(-time.Hour)),
		Deadline:  ptr(now.Add(48 * time.Hour)),
	}
}

func (f *fixture) create(t *testing.T, mutate func(*CreateTaskRequest)) *Task {
	t.Helper()
	req := validRequest()
	if mutate != nil {
		mutate(&req)
	}
	tk, err := f.svc.Create(context.Background(), req)
	require.NoError(t, err)
	return tk
}

func TestCreateTask(t *testing.T) {
	f := newFixture(t)

	tk := f.create(t, nil)

	require.Equal(t, "TSK-000001", tk.Code)
	require.Equal(t, TypeClient, tk.Type)
	require.Equal(t, PriorityUrgentImportant, tk.Priority)
	require.Equal(t, review.StatusTodo, tk.Status)
	require.NotNil(t, tk.TodoSince)
	require.True(t, tk.TodoSince.Equal(now))
	require.False(t, tk.IsFrozen)

	require.Equal(t, []string{tk.ID}, f.recalc.ids)
	require.Equal(t, 1, f.enq.count(taskname.CalendarSyncTask))
	require.Zero(t, f.enq.count(taskname.ScoringRecalculateAll))
}

func TestCreateTaskWhileFrozen(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.SetFrozen(context.Background(), true))

	tk := f.create(t, nil)
	require.True(t, tk.IsFrozen)
}

func TestCreateTaskValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := map[string]func(*CreateTaskRequest){
		"missing title":         func(r *CreateTaskRequest) { r.Title = "  " },
		"unknown type":          func(r *CreateTaskRequest) { r.Type = "MEETING" },
		"unknown priority":      func(r *CreateTaskRequest) { r.Priority = "SOMEDAY" },
		"missing deadline":      func(r *CreateTaskRequest) { r.Deadline = nil },
		"deadline before start": func(r *CreateTaskRequest) { r.Deadline = ptr(now.Add(-2 * time.Hour)) },
		"negative estimate":     func(r *CreateTaskRequest) { r.EstimatedHours = ptr(-1.0) },
		"unknown owner":         func(r *CreateTaskRequest) { r.OwnerID = "ghost" },
		"unknown reviewer":      func(r *CreateTaskRequest) { r.ReviewerID = ptr("ghost") },
		"unknown project":       func(r *CreateTaskRequest) { r.ProjectID = ptr("nope") },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := validRequest()
			mutate(&req)
			_, err := f.svc.Create(ctx, req)
			require.Equal(t, errutil.StatusValidationFailed, errutil.CodeOf(err))
		})
	}
	require.Empty(t, f.recalc.ids)
}

func TestCreateTaskRejectsArchivedProject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.projects.CreateProject(ctx, &portfolio.Project{ID: "p1", Name: "Old", Slug: "old"}))
	require.NoError(t, f.projects.ArchiveProject(ctx, "p1", now))

	_, err := f.svc.Create(ctx, CreateTaskRequest{
		Title: "x", Type: TypeAdmin, Priority: PriorityUrgentNotImportant, OwnerID: "owner",
		ProjectID: ptr("p1"), StartDate: ptr(now), Deadline: ptr(now.Add(time.Hour)),
	})
	require.Equal(t, errutil.StatusValidationFailed, errutil.CodeOf(err))
}

func TestReviewCycle(t *testing.T) {
	f := newFixture(t)
	ctx := middleware.WithActor(context.Background(), "alice")
	tk := f.create(t, func(r *CreateTaskRequest) { r.ReviewerID = ptr("reviewer") })

	tk, err := f.svc.ChangeStatus(ctx, tk.ID, "in_progress")
	require.NoError(t, err)
	require.Equal(t, review.StatusInProgress, tk.Status)
	require.Nil(t, tk.TodoSince)

	// Asking for DONE with a reviewer passes the baton.
	tk, err = f.svc.ChangeStatus(ctx, tk.ID, "DONE")
	require.NoError(t, err)
	require.Equal(t, review.StatusInReview, tk.Status)
	require.Nil(t, tk.CompletedAt)
	require.Equal(t, []sentNotification{{userID: "reviewer", kind: review.NotificationReviewRequested, taskID: tk.ID}}, f.notifications(t))

	// Repeating it while in review changes nothing.
	recalcs := f.enq.count(taskname.ScoringRecalculateAll)
	tk, err = f.svc.ChangeStatus(ctx, tk.ID, "DONE")
	require.NoError(t, err)
	require.Equal(t, review.StatusInReview, tk.Status)
	require.Len(t, f.notifications(t), 1)
	require.Equal(t, recalcs, f.enq.count(taskname.ScoringRecalculateAll))

	tk, err = f.svc.ChangeStatus(ctx, tk.ID, "REQUEST_CHANGES")
	require.NoError(t, err)
	require.Equal(t, review.StatusInProgress, tk.Status)

	_, err = f.svc.ChangeStatus(ctx, tk.ID, "DONE")
	require.NoError(t, err)
	require.Len(t, f.notifications(t), 2)

	tk, err = f.svc.ChangeStatus(ctx, tk.ID, "APPROVED")
	require.NoError(t, err)
	require.Equal(t, review.StatusDone, tk.Status)
	require.NotNil(t, tk.CompletedAt)

	entries, err := f.svc.Audit(ctx, tk.ID)
	require.NoError(t, err)
	require.Len(t, entries, 5)
	require.Equal(t, review.StatusTodo, entries[0].FromStatus)
	require.Equal(t, review.StatusInProgress, entries[0].ToStatus)
	require.Equal(t, review.VerdictApproved, entries[4].Requested)
	for _, e := range entries {
		require.Equal(t, "alice", e.Actor)
	}
}

func TestDoneWithoutReviewer(t *testing.T) {
	f := newFixture(t)
	tk := f.create(t, nil)

	tk, err := f.svc.ChangeStatus(context.Background(), tk.ID, "DONE")
	require.NoError(t, err)
	require.Equal(t, review.StatusDone, tk.Status)
	require.NotNil(t, tk.CompletedAt)
	require.Empty(t, f.notifications(t))
	require.Equal(t, 1, f.enq.count(taskname.ScoringRecalculateAll))
}

func TestBackToTodoRestartsAging(t *testing.T) {
	f := newFixture(t)
	tk := f.create(t, nil)
	ctx := context.Background()

	_, err := f.svc.ChangeStatus(ctx, tk.ID, "IN_PROGRESS")
	require.NoError(t, err)
	tk, err = f.svc.ChangeStatus(ctx, tk.ID, "TODO")
	require.NoError(t, err)
	require.NotNil(t, tk.TodoSince)
	require.True(t, tk.AgingAnchor().Equal(now))
}

func TestNotificationFailureDoesNotFailTransition(t *testing.T) {
	f := newFixture(t)
	tk := f.create(t, func(r *CreateTaskRequest) { r.ReviewerID = ptr("reviewer") })
	f.enq.err = errors.New("redis down")

	tk, err := f.svc.ChangeStatus(context.Background(), tk.ID, "DONE")
	require.NoError(t, err)
	require.Equal(t, review.StatusInReview, tk.Status)
	require.Empty(t, f.notifications(t))
	require.Empty(t, f.notifier.sent)
}

func TestReviewerNotifiedInlineWithoutQueue(t *testing.T) {
	f := newFixture(t)
	tk := f.create(t, func(r *CreateTaskRequest) { r.ReviewerID = ptr("reviewer") })
	f.svc.enqueuer = nil

	_, err := f.svc.ChangeStatus(context.Background(), tk.ID, "DONE")
	require.NoError(t, err)
	require.Equal(t, []sentNotification{{userID: "reviewer", kind: review.NotificationReviewRequested, taskID: tk.ID}}, f.notifier.sent)

	f.notifier.err = errors.New("smtp down")
	_, err = f.svc.ChangeStatus(context.Background(), tk.ID, "REQUEST_CHANGES")
	require.NoError(t, err)
	_, err = f.svc.ChangeStatus(context.Background(), tk.ID, "DONE")
	require.NoError(t, err)
	require.Len(t, f.notifier.sent, 1)
}

func TestReopenTakesCurrentFreezeState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tk := f.create(t, nil)

	tk, err := f.svc.ChangeStatus(ctx, tk.ID, "DONE")
	require.NoError(t, err)
	require.False(t, tk.IsFrozen)

	require.NoError(t, f.store.SetFrozen(ctx, true))
	tk, err = f.svc.ChangeStatus(ctx, tk.ID, "TODO")
	require.NoError(t, err)
	require.True(t, tk.IsFrozen)

	got, err := f.svc.Get(ctx, tk.ID)
	require.NoError(t, err)
	require.True(t, got.IsFrozen)
}

func TestUnfreezeClearsTasksClosedDuringFreeze(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	open := f.create(t, nil)
	closed := f.create(t, nil)

	_, err := f.repo.SetFrozenForLive(ctx, true)
	require.NoError(t, err)
	_, err = f.svc.ChangeStatus(ctx, closed.ID, "DONE")
	require.NoError(t, err)

	n, err := f.repo.SetFrozenForLive(ctx, false)
	require.NoError(t, err)
	require.Equal(t, int64(2), n)
	for _, id := range []string{open.ID, closed.ID} {
		got, err := f.svc.Get(ctx, id)
		require.NoError(t, err)
		require.False(t, got.IsFrozen)
	}
}

func TestChangeStatusErrors(t *testing.T) {
	f := newFixture(t)
	tk := f.create(t, nil)
	ctx := context.Background()

	_, err := f.svc.ChangeStatus(ctx, tk.ID, "APPROVED")
	require.Equal(t, errutil.StatusValidationFailed, errutil.CodeOf(err))

	_, err = f.svc.ChangeStatus(ctx, tk.ID, "ARCHIVED")
	require.Equal(t, errutil.StatusValidationFailed, errutil.CodeOf(err))

	_, err = f.svc.ChangeStatus(ctx, "missing", "DONE")
	require.Equal(t, errutil.StatusNotFound, errutil.CodeOf(err))

	entries, err := f.svc.Audit(ctx, tk.ID)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestUpdateTriggersRecalculation(t *testing.T) {
	f := newFixture(t)
	tk := f.create(t, nil)

	updated, err := f.svc.Update(context.Background(), tk.ID, UpdateTaskRequest{
		Emergency: ptr(true),
		Title:     ptr("Homepage hero v2"),
	})
	require.NoError(t, err)
	require.True(t, updated.Emergency)
	require.Equal(t, "Homepage hero v2", updated.Title)
	require.Equal(t, 1, f.enq.count(taskname.ScoringRecalculateAll))

	_, err = f.svc.Update(context.Background(), tk.ID, UpdateTaskRequest{Deadline: ptr(now.Add(-48 * time.Hour))})
	require.Equal(t, errutil.StatusValidationFailed, errutil.CodeOf(err))
	require.Equal(t, 1, f.enq.count(taskname.ScoringRecalculateAll))
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	tk := f.create(t, nil)
	ctx := context.Background()

	require.NoError(t, f.svc.Delete(ctx, tk.ID))
	_, err := f.svc.Get(ctx, tk.ID)
	require.Equal(t, errutil.StatusNotFound, errutil.CodeOf(err))
	require.Equal(t, 2, f.enq.count(taskname.CalendarSyncTask))

	err = f.svc.Delete(ctx, tk.ID)
	require.Equal(t, errutil.StatusNotFound, errutil.CodeOf(err))
}

func TestBatchTriggersOneRecalculation(t *testing.T) {
	f := newFixture(t)
	a := f.create(t, nil)
	b := f.create(t, nil)
	c := f.create(t, nil)

	res, err := f.svc.Batch(context.Background(), BatchRequest{
		IDs:      []string{a.ID, b.ID, c.ID, a.ID, "missing"},
		Action:   "PRIORITY",
		Priority: "not_urgent_not_important",
	})
	require.NoError(t, err)
	require.Equal(t, 3, res.Succeeded)
	require.Equal(t, 1, res.Failed)
	require.Len(t, res.Results, 4)
	require.False(t, res.Results[3].OK)
	require.True(t, res.Recalculation)
	require.Equal(t, 1, f.enq.count(taskname.ScoringRecalculateAll))

	got, err := f.svc.Get(context.Background(), b.ID)
	require.NoError(t, err)
	require.Equal(t, PriorityNotUrgentNotImportant, got.Priority)
}

func TestBatchStatusAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.create(t, nil)
	b := f.create(t, func(r *CreateTaskRequest) { r.ReviewerID = ptr("reviewer") })

	res, err := f.svc.Batch(ctx, BatchRequest{IDs: []string{a.ID, b.ID}, Action: BatchStatus, Status: "done"})
	require.NoError(t, err)
	require.Equal(t, 2, res.Succeeded)

	got, err := f.svc.Get(ctx, b.ID)
	require.NoError(t, err)
	require.Equal(t, review.StatusInReview, got.Status)
	require.Len(t, f.notifications(t), 1)

	res, err = f.svc.Batch(ctx, BatchRequest{IDs: []string{a.ID, b.ID}, Action: BatchDelete})
	require.NoError(t, err)
	require.Equal(t, 2, res.Succeeded)
	require.Equal(t, 2, f.enq.count(taskname.ScoringRecalculateAll))
}

func TestBatchValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Batch(ctx, BatchRequest{IDs: []string{" "}, Action: BatchDelete})
	require.Equal(t, errutil.StatusValidationFailed, errutil.CodeOf(err))

	_, err = f.svc.Batch(ctx, BatchRequest{IDs: []string{"1"}, Action: "archive"})
	require.Equal(t, errutil.StatusValidationFailed, errutil.CodeOf(err))

	_, err = f.svc.Batch(ctx, BatchRequest{IDs: []string{"1"}, Action: BatchOwner})
	require.Equal(t, errutil.StatusValidationFailed, errutil.CodeOf(err))

	tk := f.create(t, nil)
	for _, status := range []string{"", "SHIPPED"} {
		_, err = f.svc.Batch(ctx, BatchRequest{IDs: []string{tk.ID}, Action: BatchStatus, Status: status})
		require.Equal(t, errutil.StatusValidationFailed, errutil.CodeOf(err), status)
	}
	got, err := f.svc.Get(ctx, tk.ID)
	require.NoError(t, err)
	require.Equal(t, review.StatusTodo, got.Status)

	res, err := f.svc.Batch(ctx, BatchRequest{IDs: []string{"missing"}, Action: BatchDelete})
	require.NoError(t, err)
	require.Zero(t, res.Succeeded)
	require.False(t, res.Recalculation)
	require.Zero(t, f.enq.count(taskname.ScoringRecalculateAll))
}

func TestListOrdersByDisplayScore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	scores := []float64{10, 300, 120, 120, 55}
	ids := make([]string, len(scores))
	for i, score := range scores {
		tk := f.create(t, nil)
		ids[i] = tk.ID
		require.NoError(t, f.repo.UpdateScore(ctx, tk.ID, ScoreUpdate{RawScore: score, DisplayScore: score, ScoredAt: now}))
	}
	done := f.create(t, nil)
	require.NoError(t, f.repo.UpdateScore(ctx, done.ID, ScoreUpdate{DisplayScore: 999, ScoredAt: now}))
	_, err := f.svc.ChangeStatus(ctx, done.ID, "DONE")
	require.NoError(t, err)

	var seen []float64
	cursor := ""
	for {
		page, info, err := f.svc.List(ctx, ListTasksRequest{Limit: 2, Cursor: cursor})
		require.NoError(t, err)
		for _, tk := range page {
			seen = append(seen, tk.DisplayScore)
		}
		if !info.HasMore {
			break
		}
		cursor = info.NextCursor
	}
	require.Equal(t, []float64{300, 120, 120, 55, 10}, seen)

	all, _, err := f.svc.List(ctx, ListTasksRequest{IncludeDone: true})
	require.NoError(t, err)
	require.Len(t, all, 6)
	require.Equal(t, done.ID, all[0].ID)

	_, _, err = f.svc.List(ctx, ListTasksRequest{Status: "APPROVED"})
	require.Equal(t, errutil.StatusValidationFailed, errutil.CodeOf(err))

	_, _, err = f.svc.List(ctx, ListTasksRequest{Cursor: "%%%"})
	require.Equal(t, errutil.StatusBadRequest, errutil.CodeOf(err))
}

func TestScoreView(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tk := f.create(t, nil)
	require.NoError(t, f.repo.UpdateScore(ctx, tk.ID, ScoreUpdate{
		RawScore: 42, DisplayScore: 42, Breakdown: []byte(`{"raw_score":42}`), ScoredAt: now,
	}))

	view, err := f.svc.Score(ctx, tk.ID)
	require.NoError(t, err)
	require.Equal(t, 42.0, view.DisplayScore)
	require.JSONEq(t, `{"raw_score":42}`, string(view.Breakdown))
}

func TestUsers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.svc.CreateUser(ctx, CreateUserRequest{Name: "Dana", Email: " Dana@Studio.test "})
	require.NoError(t, err)
	require.Equal(t, "dana@studio.test", u.Email)

	_, err = f.svc.CreateUser(ctx, CreateUserRequest{Name: "Dana again", Email: "dana@studio.test"})
	require.Equal(t, errutil.StatusConflict, errutil.CodeOf(err))

	_, err = f.svc.CreateUser(ctx, CreateUserRequest{Name: "x", Email: "not-an-email"})
	require.Equal(t, errutil.StatusValidationFailed, errutil.CodeOf(err))

	u, err = f.svc.SetCapacity(ctx, u.ID, true)
	require.NoError(t, err)
	require.True(t, u.AtCapacity)
	require.Equal(t, 1, f.enq.count(taskname.ScoringRecalculateAll))

	_, err = f.svc.SetCapacity(ctx, "ghost", true)
	require.Equal(t, errutil.StatusNotFound, errutil.CodeOf(err))
}
