package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rongwang/rentledger/internal/models"
	"github.com/rongwang/rentledger/internal/repository"
	"github.com/rongwang/rentledger/internal/summary"
	"github.com/shopspring/decimal"
)

func (s *DefaultService) CreateBuilding(ctx context.Context, req models.CreateBuildingRequest) (*models.Building, error) {
	b := &models.Building{
		Code: strings.TrimSpace(req.Code),
		Name: strings.TrimSpace(req.Name),
	}
	if b.Code == "" {
		return nil, invalid("code", "is required")
	}
	if b.Name == "" {
		return nil, invalid("name", "is required")
	}
	if err := validateLength("code", b.Code, maxCodeLength); err != nil {
		return nil, err
	}
	if err := validateLength("name", b.Name, maxNameLength); err != nil {
		return nil, err
	}

	if err := s.repo.CreateBuilding(ctx, b); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, invalid("code", "%q already exists", b.Code)
		}
		return nil, fmt.Errorf("error creating building: %w", err)
	}
	return b, nil
}

func (s *DefaultService) ListBuildings(ctx context.Context) ([]models.Building, error) {
	buildings, err := s.repo.ListBuildings(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing buildings: %w", err)
	}
	return buildings, nil
}

func (s *DefaultService) CreateCategory(ctx context.Context, req models.CreateCategoryRequest) (*models.Category, error) {
	c := &models.Category{
		Name:  strings.TrimSpace(req.Name),
		Kind:  req.Kind,
		Order: req.Order,
	}
	if c.Name == "" {
		return nil, invalid("name", "is required")
	}
	if err := validateLength("name", c.Name, maxNameLength); err != nil {
		return nil, err
	}
	if c.Kind != models.CategoryIncome && c.Kind != models.CategoryExpense {
		return nil, invalid("kind", "must be INCOME or EXPENSE")
	}
	// the salary category is replaced by the salary allocation, so it may share its label
	if !strings.EqualFold(c.Name, strings.TrimSpace(s.policy.SalaryCategoryName)) {
		for _, label := range summary.ReservedLabels(s.rules) {
			if strings.EqualFold(c.Name, label) {
				return nil, invalid("name", "%q is reserved for a computed summary line", c.Name)
			}
		}
	}

	if err := s.repo.CreateCategory(ctx, c); err != nil {
		return nil, fmt.Errorf("error creating category: %w", err)
	}
	return c, nil
}

func (s *DefaultService) ListCategories(ctx context.Context) ([]models.Category, error) {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing categories: %w", err)
	}
	return categories, nil
}

func (s *DefaultService) CreateEmployee(ctx context.Context, req models.CreateEmployeeRequest) (*models.Employee, error) {
	e := &models.Employee{
		Name:     strings.TrimSpace(req.Name),
		Position: req.Position,
		Salary:   req.Salary,
		IsActive: true,
	}
	if req.IsActive != nil {
		e.IsActive = *req.IsActive
	}
	if e.Name == "" {
		return nil, invalid("name", "is required")
	}
	if err := validateLength("name", e.Name, maxNameLength); err != nil {
		return nil, err
	}
	switch e.Position {
	case models.PositionPartner, models.PositionManager, models.PositionMaid:
	default:
		return nil, invalid("position", "must be PARTNER, MANAGER or MAID")
	}
	if err := validateMoney("salary", e.Salary); err != nil {
		return nil, err
	}

	if err := s.repo.CreateEmployee(ctx, e); err != nil {
		return nil, fmt.Errorf("error creating employee: %w", err)
	}
	return e, nil
}

func (s *DefaultService) ListEmployees(ctx context.Context) ([]models.Employee, error) {
	employees, err := s.repo.ListEmployees(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing employees: %w", err)
	}
	return employees, nil
}

func (s *DefaultService) UpdateSettings(
	ctx context.Context,
	buildingID int64,
	req models.UpdateSettingsRequest,
) (*models.Settings, error) {
	amounts := []struct {
		field string
		value decimal.Decimal
		check func(string, decimal.Decimal) error
	}{
		{"monthlyRent", req.MonthlyRent, validateMoney},
		{"cowayWaterFilterExpense", req.CowayWaterFilterExpense, validateMoney},
		{"vatPercent", req.VATPercent, validatePercent},
		{"managementFeePercent", req.ManagementFeePercent, validatePercent},
		{"littleHotelierExpense", req.LittleHotelierExpense, validateMoney},
	}
	for _, a := range amounts {
		if err := a.check(a.field, a.value); err != nil {
			return nil, err
		}
	}
	if _, err := s.requireBuilding(ctx, buildingID); err != nil {
		return nil, err
	}

	settings := &models.Settings{
		BuildingID:              buildingID,
		MonthlyRent:             req.MonthlyRent,
		CowayWaterFilterExpense: req.CowayWaterFilterExpense,
		VATPercent:              req.VATPercent,
		ManagementFeePercent:    req.ManagementFeePercent,
		LittleHotelierExpense:   req.LittleHotelierExpense,
	}
	if err := s.repo.UpsertSettings(ctx, settings); err != nil {
		return nil, fmt.Errorf("error saving settings: %w", err)
	}
	return settings, nil
}

func (s *DefaultService) GetPortfolioSettings(ctx context.Context) (*models.PortfolioSettings, error) {
	ps, err := s.repo.GetOrCreatePortfolioSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting portfolio settings: %w", err)
	}
	return ps, nil
}

// UpdatePortfolioSettings replaces the legacy shared-cost baselines. Only shared fields are accepted.
func (s *DefaultService) UpdatePortfolioSettings(
	ctx context.Context,
	req models.UpdatePortfolioSettingsRequest,
) (*models.PortfolioSettings, error) {
	for field, value := range req.Values {
		if _, ok := s.rules.Rule(field); !ok {
			return nil, invalid("values", "unknown shared-cost field %q", field)
		}
		if err := validateMoney(field, value); err != nil {
			return nil, invalid("values", "%s", err.Error())
		}
	}

	ps, err := s.repo.UpdatePortfolioSettings(ctx, req.Values)
	if err != nil {
		return nil, fmt.Errorf("error saving portfolio settings: %w", err)
	}
	return ps, nil
}

func (s *DefaultService) RecordSocialSecurity(
	ctx context.Context,
	req models.SocialSecurityRequest,
) (*models.SocialSecurityContribution, error) {
	if req.EmployeeID <= 0 {
		return nil, invalid("employeeId", "is required")
	}
	if err := validatePeriod(req.Month, req.Year); err != nil {
		return nil, err
	}
	if err := validateMoney("amount", req.Amount); err != nil {
		return nil, err
	}

	employees, err := s.repo.ListEmployees(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing employees: %w", err)
	}
	found := false
	for _, e := range employees {
		if e.ID == req.EmployeeID {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("employee %d: %w", req.EmployeeID, ErrNotFound)
	}

	c := &models.SocialSecurityContribution{
		EmployeeID: req.EmployeeID,
		Month:      req.Month,
		Year:       req.Year,
		Amount:     req.Amount,
	}
	if err := s.repo.UpsertSocialSecurityContribution(ctx, c); err != nil {
		return nil, fmt.Errorf("error saving social security contribution: %w", err)
	}
	return c, nil
}
