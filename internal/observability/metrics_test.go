package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestSetActive(t *testing.T) {
	SetActive(MigrationState, "hybrid", "legacy", "hybrid", "newWithFallback", "newOnly")

	require.InDelta(t, 1, testutil.ToFloat64(MigrationState.WithLabelValues("hybrid")), 0)
	require.InDelta(t, 0, testutil.ToFloat64(MigrationState.WithLabelValues("legacy")), 0)

	SetActive(MigrationState, "legacy", "legacy", "hybrid", "newWithFallback", "newOnly")

	require.InDelta(t, 0, testutil.ToFloat64(MigrationState.WithLabelValues("hybrid")), 0)
	require.InDelta(t, 1, testutil.ToFloat64(MigrationState.WithLabelValues("legacy")), 0)
}
