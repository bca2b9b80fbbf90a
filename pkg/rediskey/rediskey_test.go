package rediskey

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeys(t *testing.T) {
	require.Equal(t, "scoring:frozen", BuildFreezeFlagKey())
	require.Equal(t, "seq:task", BuildSequenceKey("task"))
}
