package models

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Request models
type SignUpRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role" binding:"required,oneof=admin staff"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// CreateLedgerEntryRequest is validated by the service, not by binding tags,
// so the CLI and HTTP paths share the same rules and messages.
type CreateLedgerEntryRequest struct {
	TargetKind  TargetKind  `json:"targetKind"`
	TargetID    *int64      `json:"targetId"`
	FieldName   string      `json:"fieldName"`
	FieldLabel  string      `json:"fieldLabel"`
	ActionKind  ActionKind  `json:"actionKind"`
	Amount      json.Number `json:"amount"`
	Description string      `json:"description"`
	Month       int         `json:"month"`
	Year        int         `json:"year"`
}

// TotalsQuery selects a single ledger key
type TotalsQuery struct {
	TargetKind TargetKind
	TargetID   *int64
	FieldName  string
	Month      int
	Year       int
}

// TotalsByFieldQuery selects every field of one target for a month
type TotalsByFieldQuery struct {
	TargetKind TargetKind
	TargetID   *int64
	Month      int
	Year       int
}

type CreateBuildingRequest struct {
	Code string `json:"code" binding:"required"`
	Name string `json:"name" binding:"required"`
}

type CreateCategoryRequest struct {
	Name  string       `json:"name" binding:"required"`
	Kind  CategoryKind `json:"kind" binding:"required,oneof=INCOME EXPENSE"`
	Order int          `json:"order"`
}

type CreateEmployeeRequest struct {
	Name     string          `json:"name" binding:"required"`
	Position Position        `json:"position" binding:"required,oneof=PARTNER MANAGER MAID"`
	Salary   decimal.Decimal `json:"salary"`
	IsActive *bool           `json:"isActive"`
}

type UpdateSettingsRequest struct {
	MonthlyRent             decimal.Decimal `json:"monthlyRent"`
	CowayWaterFilterExpense decimal.Decimal `json:"cowayWaterFilterExpense"`
	VATPercent              decimal.Decimal `json:"vatPercent"`
	ManagementFeePercent    decimal.Decimal `json:"managementFeePercent"`
	LittleHotelierExpense   decimal.Decimal `json:"littleHotelierExpense"`
}

type UpdatePortfolioSettingsRequest struct {
	Values FieldValues `json:"values" binding:"required"`
}

type SocialSecurityRequest struct {
	EmployeeID int64           `json:"employeeId" binding:"required"`
	Month      int             `json:"month" binding:"required,min=1,max=12"`
	Year       int             `json:"year" binding:"required"`
	Amount     decimal.Decimal `json:"amount"`
}

// Response models
type AuthResponse struct {
	Status    string `json:"status"`
	UserID    string `json:"userId,omitempty"`
	Username  string `json:"username,omitempty"`
	Role      string `json:"role,omitempty"`
	Token     string `json:"token,omitempty"`
	ExpiresIn int    `json:"expiresIn,omitempty"`
}

// TotalsResponse is the reconstructed state of one ledger key
type TotalsResponse struct {
	Status  string          `json:"status"`
	Entries []LedgerEntry   `json:"entries"`
	Total   decimal.Decimal `json:"total"`
}

type TotalsByFieldResponse struct {
	Status string                     `json:"status"`
	Totals map[string]decimal.Decimal `json:"totals"`
}

// Summary is one building's (or the whole portfolio's) report for a month
type Summary struct {
	BuildingID            int64                      `json:"buildingId,omitempty"`
	BuildingCode          string                     `json:"buildingCode,omitempty"`
	BuildingName          string                     `json:"buildingName,omitempty"`
	Month                 int                        `json:"month"`
	Year                  int                        `json:"year"`
	TotalIncome           decimal.Decimal            `json:"totalIncome"`
	TotalExpense          decimal.Decimal            `json:"totalExpense"`
	GrossProfit           decimal.Decimal            `json:"grossProfit"`
	NetProfit             decimal.Decimal            `json:"netProfit"`
	RentalIncome          decimal.Decimal            `json:"rentalIncome"`
	ManagementFeePercent  decimal.Decimal            `json:"managementFeePercent"`
	ManagementFee         decimal.Decimal            `json:"managementFee"`
	VATPercent            decimal.Decimal            `json:"vatPercent"`
	VAT                   decimal.Decimal            `json:"vat"`
	LittleHotelierExpense decimal.Decimal            `json:"littleHotelierExpense"`
	IncomeByChannel       map[string]decimal.Decimal `json:"incomeByChannel"`
	ExpenseByCategory     map[string]decimal.Decimal `json:"expenseByCategory"`
}

type SummaryResponse struct {
	Status  string  `json:"status"`
	Summary Summary `json:"summary"`
}

type PortfolioSummaryResponse struct {
	Status    string    `json:"status"`
	Buildings []Summary `json:"buildings"`
	Total     Summary   `json:"total"`
}

type ErrorResponse struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
