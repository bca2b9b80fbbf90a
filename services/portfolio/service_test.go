package portfolio

import (
	"context"
	"testing"
	"time"

	"studiodesk/pkg/errutil"
	"studiodesk/services/testutil"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newTestService(t *testing.T) *Service {
	t.Helper()

	db := testutil.NewTestDB(t, Models()...)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return NewService(Params{
		Repository: NewRepository(db),
		Node:       node,
	})
}

func TestCreateClientUniqueSlug(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	a, err := svc.CreateClient(ctx, CreateClientRequest{Name: "Acme Studio"})
	require.NoError(t, err)
	require.Equal(t, "acme-studio", a.Slug)

	b, err := svc.CreateClient(ctx, CreateClientRequest{Name: "Acme  Studio!"})
	require.NoError(t, err)
	require.Equal(t, "acme-studio-2", b.Slug)
}

func TestCreateClientValidation(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.CreateClient(context.Background(), CreateClientRequest{Name: "  "})
	require.Error(t, err)
	require.Equal(t, errutil.StatusValidationFailed, errutil.CodeOf(err))
}

func TestCreateProjectRequiresLiveClient(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	missing := "nope"
	_, err := svc.CreateProject(ctx, CreateProjectRequest{Name: "Site", ClientID: &missing})
	require.Equal(t, errutil.StatusNotFound, errutil.CodeOf(err))

	client, err := svc.CreateClient(ctx, CreateClientRequest{Name: "Acme"})
	require.NoError(t, err)
	budget := 120.0
	project, err := svc.CreateProject(ctx, CreateProjectRequest{Name: "Site", ClientID: &client.ID, BudgetHours: &budget})
	require.NoError(t, err)
	require.Equal(t, client.ID, *project.ClientID)

	_, err = svc.ArchiveClient(ctx, client.ID)
	require.NoError(t, err)
	_, err = svc.CreateProject(ctx, CreateProjectRequest{Name: "Other", ClientID: &client.ID})
	require.Equal(t, errutil.StatusValidationFailed, errutil.CodeOf(err))
}

func TestArchiveProject(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	project, err := svc.CreateProject(ctx, CreateProjectRequest{Name: "Internal tools"})
	require.NoError(t, err)
	require.Nil(t, project.ClientID)

	archived, err := svc.ArchiveProject(ctx, project.ID)
	require.NoError(t, err)
	require.True(t, archived.Archived)
	require.NotNil(t, archived.ArchivedAt)

	_, err = svc.ArchiveProject(ctx, "missing")
	require.Equal(t, errutil.StatusNotFound, errutil.CodeOf(err))
}

func TestInvoices(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	client, err := svc.CreateClient(ctx, CreateClientRequest{Name: "Acme"})
	require.NoError(t, err)

	due := time.Date(2026, time.October, 1, 0, 0, 0, 0, time.UTC)
	inv, err := svc.CreateInvoice(ctx, CreateInvoiceRequest{ClientID: client.ID, Amount: 1500, DueDate: due})
	require.NoError(t, err)
	require.NotEmpty(t, inv.Number)
	require.True(t, inv.Overdue(due.Add(time.Hour)))

	paid, err := svc.MarkInvoicePaid(ctx, inv.ID)
	require.NoError(t, err)
	require.True(t, paid.Paid)
	require.False(t, paid.Overdue(due.Add(time.Hour)))

	list, err := svc.ListInvoices(ctx, client.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, err = svc.CreateInvoice(ctx, CreateInvoiceRequest{ClientID: client.ID})
	require.Equal(t, errutil.StatusValidationFailed, errutil.CodeOf(err))
}
