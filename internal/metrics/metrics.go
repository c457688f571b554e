package metrics

import (
	"sync"
	"time"

	"farmbeats-monitor/internal/simulation"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "farmbeats_"

	ResultSuccess = "success"
	ResultError   = "error"
)

var (
	registerOnce sync.Once

	resolveTotal    *prometheus.CounterVec
	batteryLevel    prometheus.Gauge
	solarInput      prometheus.Gauge
	operatingMode   *prometheus.GaugeVec
	collectLatency  *prometheus.HistogramVec
	dronePlansTotal *prometheus.CounterVec
)

// Init registers the collectors with the default registry. Safe to call
// more than once.
func Init() {
	Register(prometheus.DefaultRegisterer)
}

func Register(reg prometheus.Registerer) {
	registerOnce.Do(func() {
		resolveTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "resolve_total",
				Help: "Total weather impact resolutions by condition and result",
			},
			[]string{"condition", "result"},
		)
		batteryLevel = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "battery_level_percent",
			Help: "Simulated solar battery level of the current selection",
		})
		solarInput = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "solar_input_wh_per_day",
			Help: "Simulated daily solar input of the current selection",
		})
		operatingMode = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "operating_mode",
				Help: "1 for the active operating mode, 0 otherwise",
			},
			[]string{"mode"},
		)
		collectLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "collect_latency_seconds",
				Help:    "Collector cycle latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		dronePlansTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "drone_plans_total",
				Help: "Total drone path plan requests by result",
			},
			[]string{"result"},
		)

		reg.MustRegister(
			resolveTotal,
			batteryLevel,
			solarInput,
			operatingMode,
			collectLatency,
			dronePlansTotal,
		)
	})
}

func ObserveResolve(condition simulation.WeatherCondition, err error) {
	if resolveTotal == nil {
		return
	}
	label := "invalid"
	if condition.Valid() {
		label = condition.String()
	}
	result := ResultSuccess
	if err != nil {
		result = ResultError
	}
	resolveTotal.WithLabelValues(label, result).Inc()
}

// SetCurrent publishes the gauges for the active selection.
func SetCurrent(m simulation.DerivedMetrics) {
	if batteryLevel == nil {
		return
	}
	batteryLevel.Set(float64(m.BatteryLevelPercent))
	solarInput.Set(float64(m.SolarInputWhPerDay))
	for _, mode := range []simulation.OperatingMode{
		simulation.ModeNormal,
		simulation.ModeConservation,
		simulation.ModeDeepSleep,
	} {
		value := 0.0
		if mode == m.OperatingMode {
			value = 1
		}
		operatingMode.WithLabelValues(string(mode)).Set(value)
	}
}

func ObserveCollect(result string, duration time.Duration) {
	if result == "" {
		result = ResultSuccess
	}
	if collectLatency != nil {
		collectLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

func IncDronePlan(result string) {
	if result == "" {
		result = ResultSuccess
	}
	if dronePlansTotal != nil {
		dronePlansTotal.WithLabelValues(result).Inc()
	}
}
