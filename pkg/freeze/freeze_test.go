package freeze

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type failingStore struct{}

func (failingStore) IsFrozen(context.Context) (bool, error) { return true, errors.New("boom") }
func (failingStore) SetFrozen(context.Context, bool) error  { return errors.New("boom") }

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := &MemoryStore{}
	require.False(t, Current(ctx, s))

	require.NoError(t, s.SetFrozen(ctx, true))
	require.True(t, Current(ctx, s))
}

func TestCurrentDefaultsToNotFrozen(t *testing.T) {
	require.False(t, Current(context.Background(), failingStore{}))
	require.False(t, Current(context.Background(), nil))
}
