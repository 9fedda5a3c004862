package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// TargetKind names what a ledger entry adjusts
type TargetKind string

const (
	TargetBuildingSettings    TargetKind = "BUILDING_SETTINGS"
	TargetBuildingTransaction TargetKind = "BUILDING_TRANSACTION"
	TargetPortfolioSettings   TargetKind = "PORTFOLIO_SETTINGS"
)

// Valid reports whether k is one of the known target kinds
func (k TargetKind) Valid() bool {
	switch k {
	case TargetBuildingSettings, TargetBuildingTransaction, TargetPortfolioSettings:
		return true
	}
	return false
}

// HasBuilding reports whether entries of this kind are keyed by a building id
func (k TargetKind) HasBuilding() bool {
	return k == TargetBuildingSettings || k == TargetBuildingTransaction
}

// ActionKind is the sign of a ledger entry
type ActionKind string

const (
	ActionAdd      ActionKind = "ADD"
	ActionSubtract ActionKind = "SUBTRACT"
)

// CategoryKind classifies a category as income or expense
type CategoryKind string

const (
	CategoryIncome  CategoryKind = "INCOME"
	CategoryExpense CategoryKind = "EXPENSE"
)

// Position of an employee
type Position string

const (
	PositionPartner Position = "PARTNER"
	PositionManager Position = "MANAGER"
	PositionMaid    Position = "MAID"
)

// User is an operator account
type User struct {
	ID        string    `db:"id" json:"id"`
	Username  string    `db:"username" json:"username"`
	Password  string    `db:"password" json:"-"` // Password hash, not returned in JSON
	Role      string    `db:"role" json:"role"`  // "admin" or "staff"
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Building represents a rental building. Code is used as an eligibility key by allocation rules.
type Building struct {
	ID        int64     `db:"id" json:"id"`
	Code      string    `db:"code" json:"code"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// Category is an income or expense category. Its id, stringified, is a ledger field name.
type Category struct {
	ID    int64        `db:"id" json:"id"`
	Name  string       `db:"name" json:"name"`
	Kind  CategoryKind `db:"kind" json:"kind"`
	Order int          `db:"display_order" json:"order"`
}

// LedgerEntry is an immutable ADD/SUBTRACT adjustment
type LedgerEntry struct {
	ID          string          `db:"id" json:"id"`
	TargetKind  TargetKind      `db:"target_kind" json:"targetKind"`
	TargetID    *int64          `db:"target_id" json:"targetId"`
	FieldName   string          `db:"field_name" json:"fieldName"`
	FieldLabel  string          `db:"field_label" json:"fieldLabel"`
	ActionKind  ActionKind      `db:"action_kind" json:"actionKind"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
	Description string          `db:"description" json:"description"`
	Month       int             `db:"month" json:"month"`
	Year        int             `db:"year" json:"year"`
	CreatedBy   string          `db:"created_by" json:"createdBy"`
	CreatedAt   time.Time       `db:"created_at" json:"createdAt"`
}

// Settings holds the fixed monthly values of one building
type Settings struct {
	BuildingID              int64           `db:"building_id" json:"buildingId"`
	MonthlyRent             decimal.Decimal `db:"monthly_rent" json:"monthlyRent"`
	CowayWaterFilterExpense decimal.Decimal `db:"coway_water_filter_expense" json:"cowayWaterFilterExpense"`
	VATPercent              decimal.Decimal `db:"vat_percent" json:"vatPercent"`
	ManagementFeePercent    decimal.Decimal `db:"management_fee_percent" json:"managementFeePercent"`
	LittleHotelierExpense   decimal.Decimal `db:"little_hotelier_expense" json:"littleHotelierExpense"`
	UpdatedAt               time.Time       `db:"updated_at" json:"updatedAt"`
}

// PortfolioSettings is the global singleton of legacy shared-cost baselines
type PortfolioSettings struct {
	ID        int         `db:"id" json:"id"`
	Values    FieldValues `db:"field_values" json:"values"`
	UpdatedAt time.Time   `db:"updated_at" json:"updatedAt"`
}

// FieldValues maps a ledger field name to an amount. Stored as JSONB.
type FieldValues map[string]decimal.Decimal

// Value implements driver.Valuer. A string is returned so lib/pq does not send it as bytea.
func (v FieldValues) Value() (driver.Value, error) {
	if v == nil {
		return "{}", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (v *FieldValues) Scan(src interface{}) error {
	var data []byte
	switch s := src.(type) {
	case nil:
		*v = FieldValues{}
		return nil
	case []byte:
		data = s
	case string:
		data = []byte(s)
	default:
		return errors.New("field values: unsupported source type")
	}

	out := FieldValues{}
	if err := json.Unmarshal(data, &out); err != nil {
		return err
	}
	*v = out
	return nil
}

// Employee is used only in aggregate by the summary
type Employee struct {
	ID       int64           `db:"id" json:"id"`
	Name     string          `db:"name" json:"name"`
	Position Position        `db:"position" json:"position"`
	Salary   decimal.Decimal `db:"salary" json:"salary"`
	IsActive bool            `db:"is_active" json:"isActive"`
}

// SocialSecurityContribution is unique per employee, month and year
type SocialSecurityContribution struct {
	EmployeeID int64           `db:"employee_id" json:"employeeId"`
	Month      int             `db:"month" json:"month"`
	Year       int             `db:"year" json:"year"`
	Amount     decimal.Decimal `db:"amount" json:"amount"`
}
