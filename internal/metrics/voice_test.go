package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestIncTranscriptDroppedDefaultsLabel(t *testing.T) {
	before := testutil.ToFloat64(TranscriptsDroppedTotal.WithLabelValues("unknown"))
	IncTranscriptDropped("")
	assert.Equal(t, before+1, testutil.ToFloat64(TranscriptsDroppedTotal.WithLabelValues("unknown")))
}

func TestAddOracleCostIgnoresNonPositive(t *testing.T) {
	before := testutil.ToFloat64(OracleCostUSD)
	AddOracleCost(0)
	AddOracleCost(-1)
	assert.Equal(t, before, testutil.ToFloat64(OracleCostUSD))
	AddOracleCost(0.5)
	assert.InDelta(t, before+0.5, testutil.ToFloat64(OracleCostUSD), 1e-9)
}

func TestIncDispatch(t *testing.T) {
	c := DispatchTotal.WithLabelValues("cart", "handled")
	before := testutil.ToFloat64(c)
	IncDispatch("cart", "handled")
	assert.Equal(t, before+1, testutil.ToFloat64(c))
}
