package metrics

import (
	"errors"
	"testing"
	"time"

	"farmbeats-monitor/internal/simulation"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	Init()
	Init()

	ObserveResolve(simulation.Cloudy, nil)
	ObserveResolve(simulation.WeatherCondition(9), errors.New("invalid"))
	assert.Equal(t, 1.0, testutil.ToFloat64(resolveTotal.WithLabelValues("Cloudy", ResultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(resolveTotal.WithLabelValues("invalid", ResultError)))

	m, err := simulation.Resolve(simulation.Storm)
	require.NoError(t, err)
	SetCurrent(m)
	assert.Equal(t, 28.0, testutil.ToFloat64(batteryLevel))
	assert.Equal(t, 10.0, testutil.ToFloat64(solarInput))
	assert.Equal(t, 1.0, testutil.ToFloat64(operatingMode.WithLabelValues("Deep Sleep")))
	assert.Equal(t, 0.0, testutil.ToFloat64(operatingMode.WithLabelValues("Normal")))

	IncDronePlan("")
	assert.Equal(t, 1.0, testutil.ToFloat64(dronePlansTotal.WithLabelValues(ResultSuccess)))

	ObserveCollect("", 10*time.Millisecond)
	assert.Equal(t, 1, testutil.CollectAndCount(collectLatency))
}
