package database

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"

	"github.com/vishmithSuranjaya/InfantGuardian/internal/models"
)

type ClickHouseDB struct {
	conn   driver.Conn
	logger *zap.Logger
}

// Options holds ClickHouse connection settings
type Options struct {
	Addr     string
	Database string
	Username string
	Password string
}

// HistoryEntry is one recorded snapshot.
type HistoryEntry struct {
	Timestamp time.Time                 `json:"timestamp"`
	Snapshot  models.MonitoringSnapshot `json:"snapshot"`
}

// NewClickHouseDB creates a new ClickHouse database connection
func NewClickHouseDB(ctx context.Context, opts Options, logger *zap.Logger) (*ClickHouseDB, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{opts.Addr},
		Auth: clickhouse.Auth{
			Database: opts.Database,
			Username: opts.Username,
			Password: opts.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout: 5 * time.Second,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	logger.Info("Connected to ClickHouse", zap.String("addr", opts.Addr))

	db := &ClickHouseDB{conn: conn, logger: logger}

	if err := db.InitSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// InitSchema creates the necessary tables if they don't exist
func (db *ClickHouseDB) InitSchema(ctx context.Context) error {
	for _, tableSQL := range AllTables() {
		if err := db.conn.Exec(ctx, tableSQL); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	db.logger.Info("Database schema initialized successfully")
	return nil
}

// SaveSnapshot appends a snapshot to the history table
func (db *ClickHouseDB) SaveSnapshot(ctx context.Context, at time.Time, snap models.MonitoringSnapshot) error {
	query := `
		INSERT INTO monitoring_snapshots (timestamp, temperature, cry_label, cry_confidence, cry_observed_at, alarm_active)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	err := db.conn.Exec(ctx, query,
		at,
		snap.Sensors.Temperature,
		snap.Cry.Label,
		snap.Cry.Confidence,
		snap.Cry.ObservedAt,
		snap.AlarmActive,
	)
	if err != nil {
		return fmt.Errorf("failed to insert monitoring snapshot: %w", err)
	}

	return nil
}

// SaveRoute records how an alert was delivered
func (db *ClickHouseDB) SaveRoute(ctx context.Context, at time.Time, record models.RouteRecord) error {
	query := `
		INSERT INTO alarm_routes (timestamp, alert_id, device_id, outcome, alarm_active, error)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	err := db.conn.Exec(ctx, query,
		at,
		record.AlertID,
		record.DeviceID,
		record.Outcome,
		record.AlarmActive,
		record.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to insert alarm route: %w", err)
	}

	return nil
}

// RecentSnapshots returns the newest snapshots first
func (db *ClickHouseDB) RecentSnapshots(ctx context.Context, limit int) ([]HistoryEntry, error) {
	query := `
		SELECT timestamp, temperature, cry_label, cry_confidence, cry_observed_at, alarm_active
		FROM monitoring_snapshots
		ORDER BY timestamp DESC
		LIMIT ?
	`

	rows, err := db.conn.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query monitoring snapshots: %w", err)
	}
	defer rows.Close()

	entries := make([]HistoryEntry, 0, limit)
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(
			&e.Timestamp,
			&e.Snapshot.Sensors.Temperature,
			&e.Snapshot.Cry.Label,
			&e.Snapshot.Cry.Confidence,
			&e.Snapshot.Cry.ObservedAt,
			&e.Snapshot.AlarmActive,
		); err != nil {
			return nil, fmt.Errorf("failed to scan monitoring snapshot: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read monitoring snapshots: %w", err)
	}

	return entries, nil
}

// Close closes the database connection
func (db *ClickHouseDB) Close() error {
	return db.conn.Close()
}
