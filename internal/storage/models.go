package storage

import (
	"time"

	"gorm.io/gorm"
)

// SimulationSnapshot records one resolved selection. The energy series is
// not stored; it is recomputed from the condition.
type SimulationSnapshot struct {
	gorm.Model
	Timestamp time.Time `gorm:"index" json:"timestamp"`

	Condition string `gorm:"index" json:"condition"`
	Source    string `json:"source"`

	BatteryLevelPercent int    `json:"battery_level_percent"`
	SolarInputLabel     string `json:"solar_input_label"`
	SolarInputWhPerDay  int    `json:"solar_input_wh_per_day"`
	OperatingMode       string `json:"operating_mode"`
}

type ConditionStats struct {
	Condition  string  `json:"condition"`
	Snapshots  int64   `json:"snapshots"`
	AvgBattery float64 `json:"avg_battery_level_percent"`
}
