package sequence

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatTaskCode(t *testing.T) {
	require.Equal(t, "TSK-000042", FormatTaskCode(42))
	require.Equal(t, "TSK-1234567", FormatTaskCode(1234567))
}
