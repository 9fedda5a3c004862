package config

import (
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
)

// SetupDatabase initializes the database connection
func SetupDatabase(cfg *Config, logger *slog.Logger) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(cfg.Database.MaxOpen)
	db.SetMaxIdleConns(cfg.Database.MaxIdle)

	// Create tables if they don't exist
	if err := createTables(db, logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return db, nil
}

var tables = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id VARCHAR(36) PRIMARY KEY,
		username VARCHAR(255) UNIQUE NOT NULL,
		password VARCHAR(255) NOT NULL,
		role VARCHAR(16) NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS buildings (
		id BIGSERIAL PRIMARY KEY,
		code VARCHAR(32) UNIQUE NOT NULL,
		name VARCHAR(255) NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS categories (
		id BIGSERIAL PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		kind VARCHAR(16) NOT NULL CHECK (kind IN ('INCOME', 'EXPENSE')),
		display_order INT NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS employees (
		id BIGSERIAL PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		position VARCHAR(16) NOT NULL,
		salary NUMERIC(14, 2) NOT NULL DEFAULT 0,
		is_active BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE TABLE IF NOT EXISTS building_settings (
		building_id BIGINT PRIMARY KEY REFERENCES buildings(id) ON DELETE CASCADE,
		monthly_rent NUMERIC(14, 2) NOT NULL DEFAULT 0,
		coway_water_filter_expense NUMERIC(14, 2) NOT NULL DEFAULT 0,
		vat_percent NUMERIC(6, 3) NOT NULL DEFAULT 0,
		management_fee_percent NUMERIC(6, 3) NOT NULL DEFAULT 0,
		little_hotelier_expense NUMERIC(14, 2) NOT NULL DEFAULT 0,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS portfolio_settings (
		id INT PRIMARY KEY CHECK (id = 1),
		field_values JSONB NOT NULL DEFAULT '{}',
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS social_security_contributions (
		employee_id BIGINT NOT NULL REFERENCES employees(id) ON DELETE CASCADE,
		month INT NOT NULL CHECK (month BETWEEN 1 AND 12),
		year INT NOT NULL,
		amount NUMERIC(14, 2) NOT NULL,
		PRIMARY KEY (employee_id, month, year)
	)`,
	`CREATE TABLE IF NOT EXISTS ledger_entries (
		id VARCHAR(36) PRIMARY KEY,
		target_kind VARCHAR(32) NOT NULL,
		target_id BIGINT,
		field_name VARCHAR(128) NOT NULL,
		field_label VARCHAR(255) NOT NULL DEFAULT '',
		action_kind VARCHAR(16) NOT NULL CHECK (action_kind IN ('ADD', 'SUBTRACT')),
		amount NUMERIC(14, 2) NOT NULL CHECK (amount >= 0),
		description TEXT NOT NULL,
		month INT NOT NULL CHECK (month BETWEEN 1 AND 12),
		year INT NOT NULL,
		created_by VARCHAR(36) NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	)`,
}

// createTables creates the necessary tables in the database
func createTables(db *sqlx.DB, logger *slog.Logger) error {
	for _, stmt := range tables {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	// Create indexes for better performance
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_ledger_entries_key ON ledger_entries(target_kind, target_id, field_name, year, month)",
		"CREATE INDEX IF NOT EXISTS idx_ledger_entries_period ON ledger_entries(year, month)",
	}

	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			// indexes are not critical
			logger.Warn("Failed to create index", slog.String("error", err.Error()))
		}
	}

	return nil
}
