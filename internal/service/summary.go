package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rongwang/rentledger/internal/ledger"
	"github.com/rongwang/rentledger/internal/models"
	"github.com/rongwang/rentledger/internal/summary"
	"github.com/shopspring/decimal"
)

// period is one consistent read of everything a month's summaries depend on
type period struct {
	month, year int

	buildings  []models.Building
	categories map[int64]models.Category
	settings   map[int64]*models.Settings

	// per-building field totals, keyed by building id
	transactions        map[int64]map[string]decimal.Decimal
	settingsTotals      map[int64]map[string]decimal.Decimal
	shared              map[string]decimal.Decimal
	salaryTotal         decimal.Decimal
	socialSecurityTotal decimal.Decimal
}

// loadPeriod reads the store once for month/year
func (s *DefaultService) loadPeriod(ctx context.Context, month, year int) (*period, error) {
	p := &period{
		month:          month,
		year:           year,
		categories:     map[int64]models.Category{},
		settings:       map[int64]*models.Settings{},
		transactions:   map[int64]map[string]decimal.Decimal{},
		settingsTotals: map[int64]map[string]decimal.Decimal{},
	}

	var err error
	if p.buildings, err = s.repo.ListBuildings(ctx); err != nil {
		return nil, fmt.Errorf("error listing buildings: %w", err)
	}

	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing categories: %w", err)
	}
	for _, c := range categories {
		p.categories[c.ID] = c
	}

	settings, err := s.repo.ListSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing settings: %w", err)
	}
	for i := range settings {
		p.settings[settings[i].BuildingID] = &settings[i]
	}

	entries, err := s.repo.ListLedgerEntriesByPeriod(ctx, month, year)
	if err != nil {
		return nil, fmt.Errorf("error listing ledger entries: %w", err)
	}
	var (
		transactions = map[int64][]models.LedgerEntry{}
		settingsRows = map[int64][]models.LedgerEntry{}
		portfolio    []models.LedgerEntry
	)
	for _, e := range entries {
		switch e.TargetKind {
		case models.TargetBuildingTransaction:
			if e.TargetID != nil {
				transactions[*e.TargetID] = append(transactions[*e.TargetID], e)
			}
		case models.TargetBuildingSettings:
			if e.TargetID != nil {
				settingsRows[*e.TargetID] = append(settingsRows[*e.TargetID], e)
			}
		case models.TargetPortfolioSettings:
			portfolio = append(portfolio, e)
		}
	}
	for id, rows := range transactions {
		p.transactions[id] = ledger.FoldByField(rows)
	}
	for id, rows := range settingsRows {
		p.settingsTotals[id] = ledger.FoldByField(rows)
	}

	ps, err := s.repo.GetOrCreatePortfolioSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting portfolio settings: %w", err)
	}
	p.shared = summary.ResolveShared(ledger.FoldByField(portfolio), ps.Values, s.rules.Fields())

	employees, err := s.repo.ListEmployees(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing employees: %w", err)
	}
	for _, e := range employees {
		if e.IsActive {
			p.salaryTotal = p.salaryTotal.Add(e.Salary)
		}
	}

	contributions, err := s.repo.ListSocialSecurityContributions(ctx, month, year)
	if err != nil {
		return nil, fmt.Errorf("error listing social security contributions: %w", err)
	}
	for _, c := range contributions {
		p.socialSecurityTotal = p.socialSecurityTotal.Add(c.Amount)
	}

	return p, nil
}

func (s *DefaultService) compute(p *period, b models.Building) models.Summary {
	return summary.Compute(summary.Input{
		Building:            b,
		Month:               p.month,
		Year:                p.year,
		Categories:          p.categories,
		Transactions:        p.transactions[b.ID],
		SettingsTotals:      p.settingsTotals[b.ID],
		Settings:            p.settings[b.ID],
		SharedTotals:        p.shared,
		ActiveSalaryTotal:   p.salaryTotal,
		SocialSecurityTotal: p.socialSecurityTotal,
		BuildingCount:       len(p.buildings),
		Rules:               s.rules,
		Policy:              s.policy,
		Logger:              s.log,
	})
}

func (s *DefaultService) BuildingSummary(ctx context.Context, buildingID int64, month, year int) (*models.Summary, error) {
	if err := validatePeriod(month, year); err != nil {
		return nil, err
	}
	defer s.metrics.ObserveSummary("building", time.Now())

	p, err := s.loadPeriod(ctx, month, year)
	if err != nil {
		return nil, err
	}
	for _, b := range p.buildings {
		if b.ID == buildingID {
			out := s.compute(p, b)
			return &out, nil
		}
	}
	return nil, fmt.Errorf("building %d: %w", buildingID, ErrNotFound)
}

func (s *DefaultService) PortfolioSummary(ctx context.Context, month, year int) (*models.PortfolioSummaryResponse, error) {
	if err := validatePeriod(month, year); err != nil {
		return nil, err
	}
	defer s.metrics.ObserveSummary("portfolio", time.Now())

	p, err := s.loadPeriod(ctx, month, year)
	if err != nil {
		return nil, err
	}

	buildings := make([]models.Summary, 0, len(p.buildings))
	for _, b := range p.buildings {
		buildings = append(buildings, s.compute(p, b))
	}

	return &models.PortfolioSummaryResponse{
		Status:    "success",
		Buildings: buildings,
		Total:     summary.Aggregate(month, year, buildings),
	}, nil
}
