package health

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"studiodesk/pkg/config"
	"studiodesk/pkg/errutil"
	"studiodesk/services/portfolio"
	"studiodesk/services/review"
	"studiodesk/services/task"
	"studiodesk/services/testutil"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type fixture struct {
	svc       *Service
	repo      Repository
	tasks     task.Repository
	portfolio portfolio.Repository
	seq       int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	models := append(task.Models(), portfolio.Models()...)
	db := testutil.NewTestDB(t, append(models, Models()...)...)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	f := &fixture{
		repo:      NewRepository(db),
		tasks:     task.NewRepository(db),
		portfolio: portfolio.NewRepository(db),
	}
	f.svc = NewService(Params{
		Config:     config.Default(),
		Repository: f.repo,
		Tasks:      f.tasks,
		Portfolio:  f.portfolio,
		Node:       node,
		Clock:      func() time.Time { return evalAt },
	})

	ctx := context.Background()
	require.NoError(t, f.tasks.CreateUser(ctx, &task.User{ID: "free", Name: "Free", Email: "free@studio.test"}))
	require.NoError(t, f.tasks.CreateUser(ctx, &task.User{ID: "busy", Name: "Busy", Email: "busy@studio.test", AtCapacity: true}))
	return f
}

func (f *fixture) client(t *testing.T, id string) {
	t.Helper()
	require.NoError(t, f.portfolio.CreateClient(context.Background(), &portfolio.Client{ID: id, Name: id, Slug: id}))
}

func (f *fixture) project(t *testing.T, id string, clientID *string, budget *float64) {
	t.Helper()
	require.NoError(t, f.portfolio.CreateProject(context.Background(), &portfolio.Project{
		ID: id, ClientID: clientID, Name: id, Slug: id, BudgetHours: budget,
	}))
}

func (f *fixture) addTask(t *testing.T, projectID, owner string, status review.Status, deadline time.Time, completed *time.Time) {
	t.Helper()
	f.seq++
	id := projectID + "-" + string(rune('a'+f.seq))
	require.NoError(t, f.tasks.Create(context.Background(), &task.Task{
		ID:             id,
		Code:           "TSK-" + id,
		Title:          id,
		Type:           task.TypeClient,
		Priority:       task.PriorityImportantNotUrgent,
		Status:         status,
		OwnerID:        owner,
		ProjectID:      &projectID,
		StartDate:      evalAt.Add(-72 * time.Hour),
		Deadline:       deadline,
		EstimatedHours: ptr(4.0),
		CompletedAt:    completed,
		StatusSince:    evalAt.Add(-72 * time.Hour),
	}))
}

// seedProject builds a project scoring 46 (D) with the default rubric.
func (f *fixture) seedProject(t *testing.T, id string, clientID *string) {
	t.Helper()
	f.project(t, id, clientID, ptr(10.0))
	f.addTask(t, id, "free", review.StatusDone, evalAt.Add(-24*time.Hour), ptr(evalAt.Add(-48*time.Hour)))
	f.addTask(t, id, "free", review.StatusDone, evalAt.Add(-24*time.Hour), ptr(evalAt.Add(-12*time.Hour)))
	f.addTask(t, id, "busy", review.StatusTodo, evalAt.Add(-time.Hour), nil)
}

func TestComputeProject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedProject(t, "site", nil)

	score, err := f.svc.ComputeProject(ctx, "site")
	require.NoError(t, err)
	require.Equal(t, EntityProject, score.EntityType)
	require.Equal(t, 46, score.Overall)
	require.Equal(t, "D", score.Grade)
	require.Equal(t, 0, score.Trend)
	require.InDelta(t, 1.2, score.Factors.BudgetBurn.Value, 1e-9)
	require.Equal(t, 1.0, score.Factors.OverdueCount.Value)

	stored, err := f.repo.Get(ctx, EntityProject, "site")
	require.NoError(t, err)
	require.Equal(t, 46, stored.Overall)
	require.Nil(t, stored.PreviousOverall)

	var factors Factors
	require.NoError(t, json.Unmarshal(stored.Factors, &factors))
	require.Equal(t, score.Factors, factors)
}

func TestComputeProjectTrend(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedProject(t, "site", nil)

	_, err := f.svc.ComputeProject(ctx, "site")
	require.NoError(t, err)

	require.NoError(t, f.tasks.SetCapacity(ctx, "busy", false))

	score, err := f.svc.ComputeProject(ctx, "site")
	require.NoError(t, err)
	require.Equal(t, 61, score.Overall)
	require.Equal(t, "C", score.Grade)
	require.Equal(t, 15, score.Trend)

	stored, err := f.repo.Get(ctx, EntityProject, "site")
	require.NoError(t, err)
	require.NotNil(t, stored.PreviousOverall)
	require.Equal(t, 46, *stored.PreviousOverall)

	again, err := f.svc.ComputeProject(ctx, "site")
	require.NoError(t, err)
	require.Equal(t, 0, again.Trend)
}

func TestComputeProjectWithoutTasks(t *testing.T) {
	f := newFixture(t)
	f.project(t, "empty", nil, nil)

	score, err := f.svc.ComputeProject(context.Background(), "empty")
	require.NoError(t, err)
	require.Equal(t, 100, score.Overall)
	require.Equal(t, "A", score.Grade)
	require.Equal(t, 0, score.Trend)
}

func TestComputeUnknownEntity(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ComputeProject(context.Background(), "missing")
	require.Equal(t, errutil.StatusNotFound, errutil.CodeOf(err))

	_, err = f.svc.ComputeClient(context.Background(), "missing")
	require.Equal(t, errutil.StatusNotFound, errutil.CodeOf(err))
}

func TestComputeClientIgnoresArchivedProjects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	clientID := "acme"
	f.client(t, clientID)
	f.seedProject(t, "site", &clientID)

	f.project(t, "old", &clientID, nil)
	f.addTask(t, "old", "free", review.StatusTodo, evalAt.Add(-time.Hour), nil)
	require.NoError(t, f.portfolio.ArchiveProject(ctx, "old", evalAt))

	require.NoError(t, f.portfolio.CreateInvoice(ctx, &portfolio.Invoice{
		ID: "inv-1", ClientID: clientID, Number: "INV-1", Amount: 100, DueDate: evalAt.Add(-time.Hour), Paid: true,
	}))
	require.NoError(t, f.portfolio.CreateInvoice(ctx, &portfolio.Invoice{
		ID: "inv-2", ClientID: clientID, Number: "INV-2", Amount: 100, DueDate: evalAt.Add(-time.Hour),
	}))

	score, err := f.svc.ComputeClient(ctx, clientID)
	require.NoError(t, err)
	require.Equal(t, EntityClient, score.EntityType)
	require.Equal(t, 1.0, score.Factors.OverdueCount.Value)
	require.InDelta(t, 50, score.Factors.InvoiceHealth.Score, 1e-9)
	// 20 + 21.25 + 0 + 25*0.10 + 50*0.10
	require.Equal(t, 49, score.Overall)
}

func TestConcurrentComputeConverges(t *testing.T) {
	f := newFixture(t)
	f.seedProject(t, "site", nil)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.ComputeProject(context.Background(), "site")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	stored, err := f.repo.Get(context.Background(), EntityProject, "site")
	require.NoError(t, err)
	require.Equal(t, 46, stored.Overall)
}

func TestComputeIgnoresCallerCancellation(t *testing.T) {
	f := newFixture(t)
	f.seedProject(t, "site", nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	score, err := f.svc.ComputeProject(ctx, "site")
	require.NoError(t, err)
	require.Equal(t, 46, score.Overall)
}

func TestSweepSkipsArchivedEntities(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	clientID := "acme"
	f.client(t, clientID)
	f.client(t, "gone")
	require.NoError(t, f.portfolio.ArchiveClient(ctx, "gone", evalAt))
	f.seedProject(t, "site", &clientID)
	f.project(t, "old", nil, nil)
	require.NoError(t, f.portfolio.ArchiveProject(ctx, "old", evalAt))

	report, err := f.svc.Sweep(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, report.Projects)
	require.Equal(t, 1, report.Clients)
	require.Zero(t, report.Failed)

	_, err = f.repo.Get(ctx, EntityProject, "site")
	require.NoError(t, err)
	_, err = f.repo.Get(ctx, EntityClient, clientID)
	require.NoError(t, err)
	_, err = f.repo.Get(ctx, EntityProject, "old")
	require.Error(t, err)
	_, err = f.repo.Get(ctx, EntityClient, "gone")
	require.Error(t, err)
}
