package database

// SQL schemas for all ClickHouse tables

const (
	// MonitoringSnapshotsTableSQL creates the monitoring_snapshots table
	MonitoringSnapshotsTableSQL = `
		CREATE TABLE IF NOT EXISTS monitoring_snapshots (
			timestamp DateTime64(3),
			temperature Nullable(Float64),
			cry_label String,
			cry_confidence Float64,
			cry_observed_at String,
			alarm_active Bool
		) ENGINE = MergeTree()
		ORDER BY timestamp
		PARTITION BY toYYYYMM(timestamp)
	`

	// AlarmRoutesTableSQL creates the alarm_routes table
	AlarmRoutesTableSQL = `
		CREATE TABLE IF NOT EXISTS alarm_routes (
			timestamp DateTime64(3),
			alert_id String,
			device_id String,
			outcome LowCardinality(String),
			alarm_active Bool,
			error String
		) ENGINE = MergeTree()
		ORDER BY (device_id, timestamp)
		PARTITION BY toYYYYMM(timestamp)
	`
)

// AllTables returns all table creation SQL statements
func AllTables() []string {
	return []string{
		MonitoringSnapshotsTableSQL,
		AlarmRoutesTableSQL,
	}
}
