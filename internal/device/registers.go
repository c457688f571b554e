package device

import (
	"fmt"
	"math"
	"time"

	"farmbeats-monitor/internal/simulation"
)

// Input register map of the simulated solar edge device.
const (
	RegCondition     = 0  // U16, condition code
	RegBatteryLevel  = 1  // U16, %
	RegOperatingMode = 2  // U16, mode code
	RegSolarInputWh  = 3  // U16, Wh/day
	RegEnergySeries  = 10 // 10-33, S16, 0.1%

	InputRegisterCount = RegEnergySeries + simulation.HoursPerDay
)

// Holding registers.
const (
	RegSelectedCondition = 0 // U16, condition code, writable
)

// Operating mode codes
const (
	ModeCodeNormal       = 1
	ModeCodeConservation = 2
	ModeCodeDeepSleep    = 3
)

var modeCodes = map[simulation.OperatingMode]uint16{
	simulation.ModeNormal:       ModeCodeNormal,
	simulation.ModeConservation: ModeCodeConservation,
	simulation.ModeDeepSleep:    ModeCodeDeepSleep,
}

func GetOperatingMode(code uint16) (simulation.OperatingMode, error) {
	for mode, c := range modeCodes {
		if c == code {
			return mode, nil
		}
	}
	return "", fmt.Errorf("unknown operating mode code %d", code)
}

// Reading is the device state as seen by a Modbus client.
type Reading struct {
	Timestamp           time.Time                   `json:"timestamp"`
	Condition           simulation.WeatherCondition `json:"condition"`
	BatteryLevelPercent int                         `json:"battery_level_percent"`
	OperatingMode       simulation.OperatingMode    `json:"operating_mode"`
	SolarInputWhPerDay  int                         `json:"solar_input_wh_per_day"`
	EnergySeries        simulation.EnergySeries     `json:"energy_series"`
}

// Encode lays out metrics in input register order.
func Encode(m simulation.DerivedMetrics) []uint16 {
	regs := make([]uint16, InputRegisterCount)
	regs[RegCondition] = uint16(m.Condition)
	regs[RegBatteryLevel] = uint16(m.BatteryLevelPercent)
	regs[RegOperatingMode] = modeCodes[m.OperatingMode]
	regs[RegSolarInputWh] = uint16(m.SolarInputWhPerDay)
	for h, v := range m.EnergySeries {
		regs[RegEnergySeries+h] = uint16(int16(math.Round(v * 10)))
	}
	return regs
}

// Decode is the inverse of Encode.
func Decode(regs []uint16) (*Reading, error) {
	if len(regs) < InputRegisterCount {
		return nil, fmt.Errorf("expected %d registers, got %d", InputRegisterCount, len(regs))
	}

	condition := simulation.WeatherCondition(regs[RegCondition])
	if !condition.Valid() {
		return nil, &simulation.InvalidConditionError{Condition: condition}
	}

	mode, err := GetOperatingMode(regs[RegOperatingMode])
	if err != nil {
		return nil, err
	}

	reading := &Reading{
		Timestamp:           time.Now(),
		Condition:           condition,
		BatteryLevelPercent: int(regs[RegBatteryLevel]),
		OperatingMode:       mode,
		SolarInputWhPerDay:  int(regs[RegSolarInputWh]),
	}
	for h := range reading.EnergySeries {
		reading.EnergySeries[h] = float64(int16(regs[RegEnergySeries+h])) * 0.1
	}
	return reading, nil
}
