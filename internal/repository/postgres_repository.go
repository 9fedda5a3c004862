package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rongwang/rentledger/internal/models"
)

// ErrDuplicate is returned when a unique constraint (user name, building code) is violated
var ErrDuplicate = errors.New("duplicate key")

// mapError translates driver errors the service needs to distinguish
func mapError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrDuplicate
	}
	return err
}

// LedgerFilter selects the entries of one ledger key. An empty FieldName matches every field.
// A nil TargetID matches entries without a target (portfolio settings).
type LedgerFilter struct {
	TargetKind models.TargetKind
	TargetID   *int64
	FieldName  string
	Month      int
	Year       int
}

// KeyOf returns the filter of the exact key entry belongs to
func KeyOf(e models.LedgerEntry) LedgerFilter {
	return LedgerFilter{
		TargetKind: e.TargetKind,
		TargetID:   e.TargetID,
		FieldName:  e.FieldName,
		Month:      e.Month,
		Year:       e.Year,
	}
}

// String identifies a ledger key. It serialises writers and partitions published events.
func (f LedgerFilter) String() string {
	target := ""
	if f.TargetID != nil {
		target = fmt.Sprint(*f.TargetID)
	}
	return fmt.Sprintf("%s:%s:%s:%d:%d", f.TargetKind, target, f.FieldName, f.Month, f.Year)
}

// Repository interface defines the methods that any repository implementation must satisfy
type Repository interface {
	// User operations
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// Building, category and employee operations
	CreateBuilding(ctx context.Context, building *models.Building) error
	GetBuilding(ctx context.Context, id int64) (*models.Building, error)
	ListBuildings(ctx context.Context) ([]models.Building, error)
	CreateCategory(ctx context.Context, category *models.Category) error
	ListCategories(ctx context.Context) ([]models.Category, error)
	CreateEmployee(ctx context.Context, employee *models.Employee) error
	ListEmployees(ctx context.Context) ([]models.Employee, error)

	// Settings operations
	GetSettings(ctx context.Context, buildingID int64) (*models.Settings, error)
	ListSettings(ctx context.Context) ([]models.Settings, error)
	UpsertSettings(ctx context.Context, settings *models.Settings) error
	GetOrCreatePortfolioSettings(ctx context.Context) (*models.PortfolioSettings, error)
	UpdatePortfolioSettings(ctx context.Context, values models.FieldValues) (*models.PortfolioSettings, error)

	// Social security operations
	UpsertSocialSecurityContribution(ctx context.Context, c *models.SocialSecurityContribution) error
	ListSocialSecurityContributions(ctx context.Context, month, year int) ([]models.SocialSecurityContribution, error)

	// Ledger operations. Append and Remove return the entries of the
	// affected key as read in the same transaction as the write.
	AppendLedgerEntry(ctx context.Context, entry *models.LedgerEntry) ([]models.LedgerEntry, error)
	RemoveLedgerEntry(ctx context.Context, id string) (*models.LedgerEntry, []models.LedgerEntry, error)
	GetLedgerEntry(ctx context.Context, id string) (*models.LedgerEntry, error)
	ListLedgerEntries(ctx context.Context, filter LedgerFilter) ([]models.LedgerEntry, error)
	ListLedgerEntriesByPeriod(ctx context.Context, month, year int) ([]models.LedgerEntry, error)
}

// PostgresRepository implements the Repository interface using PostgreSQL
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{
		db: db,
	}
}

// GetDB returns the underlying database connection
func (r *PostgresRepository) GetDB() *sqlx.DB {
	return r.db
}

// User repository methods
func (r *PostgresRepository) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, username, password, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	// Generate a new UUID if not provided
	if user.ID == "" {
		user.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.Username, user.Password, user.Role, user.CreatedAt, user.UpdatedAt)

	return mapError(err)
}

func (r *PostgresRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT * FROM users WHERE username = $1`

	var user models.User
	err := r.db.GetContext(ctx, &user, query, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // User not found
		}
		return nil, err
	}

	return &user, nil
}

func (r *PostgresRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT * FROM users WHERE id = $1`

	var user models.User
	err := r.db.GetContext(ctx, &user, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // User not found
		}
		return nil, err
	}

	return &user, nil
}

// Building, category and employee repository methods
func (r *PostgresRepository) CreateBuilding(ctx context.Context, building *models.Building) error {
	building.CreatedAt = time.Now().UTC()
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO buildings (code, name, created_at) VALUES ($1, $2, $3) RETURNING id`,
		building.Code, building.Name, building.CreatedAt).Scan(&building.ID)
	return mapError(err)
}

func (r *PostgresRepository) GetBuilding(ctx context.Context, id int64) (*models.Building, error) {
	var building models.Building
	err := r.db.GetContext(ctx, &building, `SELECT * FROM buildings WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Building not found
		}
		return nil, err
	}

	return &building, nil
}

func (r *PostgresRepository) ListBuildings(ctx context.Context) ([]models.Building, error) {
	var buildings []models.Building
	if err := r.db.SelectContext(ctx, &buildings, `SELECT * FROM buildings ORDER BY id`); err != nil {
		return nil, err
	}
	return buildings, nil
}

func (r *PostgresRepository) CreateCategory(ctx context.Context, category *models.Category) error {
	return r.db.QueryRowContext(ctx,
		`INSERT INTO categories (name, kind, display_order) VALUES ($1, $2, $3) RETURNING id`,
		category.Name, category.Kind, category.Order).Scan(&category.ID)
}

func (r *PostgresRepository) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	err := r.db.SelectContext(ctx, &categories, `SELECT * FROM categories ORDER BY display_order, id`)
	if err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *PostgresRepository) CreateEmployee(ctx context.Context, employee *models.Employee) error {
	return r.db.QueryRowContext(ctx,
		`INSERT INTO employees (name, position, salary, is_active) VALUES ($1, $2, $3, $4) RETURNING id`,
		employee.Name, employee.Position, employee.Salary, employee.IsActive).Scan(&employee.ID)
}

func (r *PostgresRepository) ListEmployees(ctx context.Context) ([]models.Employee, error) {
	var employees []models.Employee
	if err := r.db.SelectContext(ctx, &employees, `SELECT * FROM employees ORDER BY id`); err != nil {
		return nil, err
	}
	return employees, nil
}

// Settings repository methods
func (r *PostgresRepository) GetSettings(ctx context.Context, buildingID int64) (*models.Settings, error) {
	var settings models.Settings
	err := r.db.GetContext(ctx, &settings, `SELECT * FROM building_settings WHERE building_id = $1`, buildingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // No settings row yet
		}
		return nil, err
	}

	return &settings, nil
}

func (r *PostgresRepository) ListSettings(ctx context.Context) ([]models.Settings, error) {
	var settings []models.Settings
	if err := r.db.SelectContext(ctx, &settings, `SELECT * FROM building_settings`); err != nil {
		return nil, err
	}
	return settings, nil
}

func (r *PostgresRepository) UpsertSettings(ctx context.Context, settings *models.Settings) error {
	query := `
		INSERT INTO building_settings (
			building_id, monthly_rent, coway_water_filter_expense, vat_percent,
			management_fee_percent, little_hotelier_expense, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (building_id) DO UPDATE SET
			monthly_rent = EXCLUDED.monthly_rent,
			coway_water_filter_expense = EXCLUDED.coway_water_filter_expense,
			vat_percent = EXCLUDED.vat_percent,
			management_fee_percent = EXCLUDED.management_fee_percent,
			little_hotelier_expense = EXCLUDED.little_hotelier_expense,
			updated_at = EXCLUDED.updated_at
	`

	settings.UpdatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx, query,
		settings.BuildingID, settings.MonthlyRent, settings.CowayWaterFilterExpense, settings.VATPercent,
		settings.ManagementFeePercent, settings.LittleHotelierExpense, settings.UpdatedAt)

	return err
}

// GetOrCreatePortfolioSettings returns the singleton row, creating it when missing.
// The primary key is constrained to 1 so concurrent callers cannot create two rows.
func (r *PostgresRepository) GetOrCreatePortfolioSettings(ctx context.Context) (*models.PortfolioSettings, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO portfolio_settings (id, field_values, updated_at) VALUES (1, '{}', $1)
		ON CONFLICT (id) DO NOTHING`,
		time.Now().UTC())
	if err != nil {
		return nil, err
	}

	var ps models.PortfolioSettings
	if err := r.db.GetContext(ctx, &ps, `SELECT * FROM portfolio_settings WHERE id = 1`); err != nil {
		return nil, err
	}
	return &ps, nil
}

func (r *PostgresRepository) UpdatePortfolioSettings(ctx context.Context, values models.FieldValues) (*models.PortfolioSettings, error) {
	query := `
		INSERT INTO portfolio_settings (id, field_values, updated_at) VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET field_values = EXCLUDED.field_values, updated_at = EXCLUDED.updated_at
		RETURNING *
	`

	var ps models.PortfolioSettings
	if err := r.db.GetContext(ctx, &ps, query, values, time.Now().UTC()); err != nil {
		return nil, err
	}
	return &ps, nil
}

// Social security repository methods
func (r *PostgresRepository) UpsertSocialSecurityContribution(ctx context.Context, c *models.SocialSecurityContribution) error {
	query := `
		INSERT INTO social_security_contributions (employee_id, month, year, amount)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (employee_id, month, year) DO UPDATE SET amount = EXCLUDED.amount
	`

	_, err := r.db.ExecContext(ctx, query, c.EmployeeID, c.Month, c.Year, c.Amount)
	return err
}

func (r *PostgresRepository) ListSocialSecurityContributions(ctx context.Context, month, year int) ([]models.SocialSecurityContribution, error) {
	var rows []models.SocialSecurityContribution
	err := r.db.SelectContext(ctx, &rows,
		`SELECT * FROM social_security_contributions WHERE month = $1 AND year = $2 ORDER BY employee_id`,
		month, year)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Ledger repository methods

const selectLedgerKey = `
	SELECT * FROM ledger_entries
	WHERE target_kind = $1 AND target_id IS NOT DISTINCT FROM $2
		AND field_name = $3 AND month = $4 AND year = $5
	ORDER BY created_at DESC, id DESC
`

// AppendLedgerEntry inserts entry and reads back its key in one transaction.
// Writers of the same key are serialised with a transaction-scoped advisory lock.
func (r *PostgresRepository) AppendLedgerEntry(ctx context.Context, entry *models.LedgerEntry) (entries []models.LedgerEntry, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	key := KeyOf(*entry)
	if _, err = tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key.String()); err != nil {
		return nil, err
	}

	// Generate a new UUID if not provided
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO ledger_entries (
			id, target_kind, target_id, field_name, field_label, action_kind,
			amount, description, month, year, created_by, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err = tx.ExecContext(ctx, query,
		entry.ID, entry.TargetKind, entry.TargetID, entry.FieldName, entry.FieldLabel, entry.ActionKind,
		entry.Amount, entry.Description, entry.Month, entry.Year, entry.CreatedBy, entry.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err = tx.SelectContext(ctx, &entries, selectLedgerKey,
		key.TargetKind, key.TargetID, key.FieldName, key.Month, key.Year); err != nil {
		return nil, err
	}

	return entries, tx.Commit()
}

// RemoveLedgerEntry deletes one entry and reads back the remaining entries of its key.
// A missing entry yields a nil entry and no error.
func (r *PostgresRepository) RemoveLedgerEntry(ctx context.Context, id string) (removed *models.LedgerEntry, entries []models.LedgerEntry, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}

	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var entry models.LedgerEntry
	if err = tx.GetContext(ctx, &entry, `SELECT * FROM ledger_entries WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			tx.Rollback()
			return nil, nil, nil // Entry not found
		}
		return nil, nil, err
	}

	key := KeyOf(entry)
	if _, err = tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key.String()); err != nil {
		return nil, nil, err
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM ledger_entries WHERE id = $1`, id)
	if err != nil {
		return nil, nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// lost a race with another delete of the same entry
		tx.Rollback()
		return nil, nil, nil
	}

	if err = tx.SelectContext(ctx, &entries, selectLedgerKey,
		key.TargetKind, key.TargetID, key.FieldName, key.Month, key.Year); err != nil {
		return nil, nil, err
	}

	return &entry, entries, tx.Commit()
}

func (r *PostgresRepository) GetLedgerEntry(ctx context.Context, id string) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	err := r.db.GetContext(ctx, &entry, `SELECT * FROM ledger_entries WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Entry not found
		}
		return nil, err
	}

	return &entry, nil
}

func (r *PostgresRepository) ListLedgerEntries(ctx context.Context, filter LedgerFilter) ([]models.LedgerEntry, error) {
	query := `
		SELECT * FROM ledger_entries
		WHERE target_kind = $1 AND target_id IS NOT DISTINCT FROM $2 AND month = $3 AND year = $4
	`

	args := []interface{}{filter.TargetKind, filter.TargetID, filter.Month, filter.Year}

	// Narrow to one field if provided
	if filter.FieldName != "" {
		query += ` AND field_name = $5`
		args = append(args, filter.FieldName)
	}

	query += ` ORDER BY created_at DESC, id DESC`

	var entries []models.LedgerEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, err
	}

	return entries, nil
}

func (r *PostgresRepository) ListLedgerEntriesByPeriod(ctx context.Context, month, year int) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	err := r.db.SelectContext(ctx, &entries,
		`SELECT * FROM ledger_entries WHERE month = $1 AND year = $2 ORDER BY created_at DESC, id DESC`,
		month, year)
	if err != nil {
		return nil, err
	}
	return entries, nil
}
