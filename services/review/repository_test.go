package review

import (
	"context"
	"testing"
	"time"

	"studiodesk/services/testutil"

	"github.com/stretchr/testify/require"
)

func TestAuditRepositoryAppendAndList(t *testing.T) {
	db := testutil.NewTestDB(t, &AuditEntry{})
	repo := NewAuditRepository(db)
	ctx := context.Background()

	base := time.Date(2026, time.October, 12, 9, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Append(ctx, &AuditEntry{
		ID: "2", EntityType: EntityTask, EntityID: "t1",
		FromStatus: StatusInProgress, ToStatus: StatusInReview, Requested: StatusDone,
		Actor: "u1", CreatedAt: base.Add(time.Hour),
	}))
	require.NoError(t, repo.Append(ctx, &AuditEntry{
		ID: "1", EntityType: EntityTask, EntityID: "t1",
		FromStatus: StatusTodo, ToStatus: StatusInProgress, Requested: StatusInProgress,
		Actor: "u1", CreatedAt: base,
	}))
	require.NoError(t, repo.Append(ctx, &AuditEntry{
		ID: "3", EntityType: EntityTask, EntityID: "t2",
		FromStatus: StatusTodo, ToStatus: StatusDone, Actor: "u2", CreatedAt: base,
	}))

	entries, err := repo.ListByEntity(ctx, EntityTask, "t1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "1", entries[0].ID)
	require.Equal(t, StatusInReview, entries[1].ToStatus)
}
