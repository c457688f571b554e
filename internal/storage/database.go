package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"farmbeats-monitor/internal/simulation"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Database stores timestamps in UTC so that sqlite text comparison orders them.
type Database struct {
	db *gorm.DB
}

func NewDatabase(path string) (*Database, error) {
	if !strings.HasPrefix(path, "file:") && path != ":memory:" {
		if dir := filepath.Dir(path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&SimulationSnapshot{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Database{db: db}, nil
}

func (d *Database) SaveSnapshot(at time.Time, source string, metrics simulation.DerivedMetrics) error {
	snapshot := &SimulationSnapshot{
		Timestamp:           at.UTC(),
		Condition:           metrics.Condition.String(),
		Source:              source,
		BatteryLevelPercent: metrics.BatteryLevelPercent,
		SolarInputLabel:     metrics.SolarInputLabel,
		SolarInputWhPerDay:  metrics.SolarInputWhPerDay,
		OperatingMode:       string(metrics.OperatingMode),
	}
	return d.db.Create(snapshot).Error
}

func (d *Database) GetLatestSnapshot() (*SimulationSnapshot, error) {
	var snapshot SimulationSnapshot
	result := d.db.Order("timestamp desc").First(&snapshot)
	if result.Error != nil {
		return nil, result.Error
	}
	return &snapshot, nil
}

func (d *Database) GetSnapshotsByRange(from, to time.Time) ([]SimulationSnapshot, error) {
	var snapshots []SimulationSnapshot
	result := d.db.Where("timestamp BETWEEN ? AND ?", from.UTC(), to.UTC()).
		Order("timestamp desc").
		Find(&snapshots)
	if result.Error != nil {
		return nil, result.Error
	}
	return snapshots, nil
}

func (d *Database) GetSnapshotsWithLimit(limit int) ([]SimulationSnapshot, error) {
	var snapshots []SimulationSnapshot
	result := d.db.Order("timestamp desc").Limit(limit).Find(&snapshots)
	if result.Error != nil {
		return nil, result.Error
	}
	return snapshots, nil
}

// GetConditionStats counts snapshots per condition since the given time.
func (d *Database) GetConditionStats(since time.Time) ([]ConditionStats, error) {
	var stats []ConditionStats
	result := d.db.Model(&SimulationSnapshot{}).
		Select("condition, COUNT(*) AS snapshots, AVG(battery_level_percent) AS avg_battery").
		Where("timestamp >= ?", since.UTC()).
		Group("condition").
		Order("condition").
		Scan(&stats)
	if result.Error != nil {
		return nil, result.Error
	}
	return stats, nil
}

func (d *Database) CleanOldSnapshots(olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	result := d.db.Where("timestamp < ?", cutoff).Delete(&SimulationSnapshot{})
	return result.RowsAffected, result.Error
}

func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
