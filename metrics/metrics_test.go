package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_AllVariablesNonNil(t *testing.T) {
	t.Parallel()

	vars := []struct {
		name string
		val  any
	}{
		{"BlocksMinedTotal", BlocksMinedTotal},
		{"MiningDuration", MiningDuration},
		{"MiningNonce", MiningNonce},
		{"ChainsCreatedTotal", ChainsCreatedTotal},
		{"ChainsDeletedTotal", ChainsDeletedTotal},
		{"EventsRecordedTotal", EventsRecordedTotal},
		{"ValidationRunsTotal", ValidationRunsTotal},
		{"InvalidChains", InvalidChains},
	}
	for _, v := range vars {
		assert.NotNil(t, v.val, v.name)
	}
}

func TestMetrics_CounterIncrements(t *testing.T) {
	t.Parallel()

	c := ValidationRunsTotal.WithLabelValues("metrics_test")
	before := testutil.ToFloat64(c)
	c.Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(c))
}
