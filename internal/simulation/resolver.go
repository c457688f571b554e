package simulation

// HoursPerDay is the number of samples in an energy series.
const HoursPerDay = 24

// EnergySeries is a synthetic battery-percentage curve, one sample per hour
// of day. Values are not clamped to [0,100].
type EnergySeries [HoursPerDay]float64

// DerivedMetrics is everything the dashboard shows for one weather condition.
type DerivedMetrics struct {
	Condition           WeatherCondition `json:"condition" yaml:"condition"`
	BatteryLevelPercent int              `json:"battery_level_percent" yaml:"battery_level_percent"`
	SolarInputLabel     string           `json:"solar_input_label" yaml:"solar_input_label"`
	SolarInputWhPerDay  int              `json:"solar_input_wh_per_day" yaml:"solar_input_wh_per_day"`
	OperatingMode       OperatingMode    `json:"operating_mode" yaml:"operating_mode"`
	EnergySeries        EnergySeries     `json:"energy_series" yaml:"energy_series,flow"`
}

type impact struct {
	batteryLevel int
	solarLabel   string
	solarWh      int
	mode         OperatingMode
}

var impactTable = map[WeatherCondition]impact{
	Sunny:  {batteryLevel: 94, solarLabel: "200Wh/day", solarWh: 200, mode: ModeNormal},
	Cloudy: {batteryLevel: 65, solarLabel: "140Wh/day", solarWh: 140, mode: ModeConservation},
	Storm:  {batteryLevel: 28, solarLabel: "10Wh/day", solarWh: 10, mode: ModeDeepSleep},
}

// Resolve returns the derived metrics for a condition. It is a pure function
// of its argument.
func Resolve(condition WeatherCondition) (DerivedMetrics, error) {
	row, ok := impactTable[condition]
	if !ok {
		return DerivedMetrics{}, &InvalidConditionError{Condition: condition}
	}

	series, err := GenerateEnergySeries(condition)
	if err != nil {
		return DerivedMetrics{}, err
	}

	return DerivedMetrics{
		Condition:           condition,
		BatteryLevelPercent: row.batteryLevel,
		SolarInputLabel:     row.solarLabel,
		SolarInputWhPerDay:  row.solarWh,
		OperatingMode:       row.mode,
		EnergySeries:        series,
	}, nil
}

// GenerateEnergySeries builds the 24-hour battery curve for a condition.
// Cloudy and Storm share one curve.
func GenerateEnergySeries(condition WeatherCondition) (EnergySeries, error) {
	var series EnergySeries
	switch condition {
	case Sunny:
		for h := range series {
			x := float64(h)
			if h < 12 {
				series[h] = 50 + 2*x
			} else {
				series[h] = 74 - 0.5*x
			}
		}
	case Cloudy, Storm:
		for h := range series {
			series[h] = 60 - 1.5*float64(h)
		}
	default:
		return EnergySeries{}, &InvalidConditionError{Condition: condition}
	}
	return series, nil
}
