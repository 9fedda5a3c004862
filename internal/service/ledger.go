package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rongwang/rentledger/internal/events"
	"github.com/rongwang/rentledger/internal/ledger"
	"github.com/rongwang/rentledger/internal/models"
	"github.com/rongwang/rentledger/internal/repository"
	"github.com/shopspring/decimal"
)

// validateTarget checks that targetID is present exactly when kind is keyed by a building
func validateTarget(kind models.TargetKind, targetID *int64) error {
	if !kind.Valid() {
		return invalid("targetKind", "must be BUILDING_SETTINGS, BUILDING_TRANSACTION or PORTFOLIO_SETTINGS")
	}
	if kind.HasBuilding() {
		if targetID == nil || *targetID <= 0 {
			return invalid("targetId", "is required for %s", kind)
		}
		return nil
	}
	if targetID != nil {
		return invalid("targetId", "must be empty for %s", kind)
	}
	return nil
}

// checkTarget confirms the building of a building-keyed target exists
func (s *DefaultService) checkTarget(ctx context.Context, kind models.TargetKind, targetID *int64) error {
	if !kind.HasBuilding() {
		return nil
	}
	_, err := s.requireBuilding(ctx, *targetID)
	return err
}

func totalsResponse(entries []models.LedgerEntry) *models.TotalsResponse {
	t := ledger.Reconstruct(entries)
	return &models.TotalsResponse{
		Status:  "success",
		Entries: t.Entries,
		Total:   t.Total,
	}
}

func (s *DefaultService) Totals(ctx context.Context, q models.TotalsQuery) (*models.TotalsResponse, error) {
	if err := validateTarget(q.TargetKind, q.TargetID); err != nil {
		return nil, err
	}
	q.FieldName = strings.TrimSpace(q.FieldName)
	if q.FieldName == "" {
		return nil, invalid("fieldName", "is required")
	}
	if err := validatePeriod(q.Month, q.Year); err != nil {
		return nil, err
	}
	if err := s.checkTarget(ctx, q.TargetKind, q.TargetID); err != nil {
		return nil, err
	}

	entries, err := s.repo.ListLedgerEntries(ctx, repository.LedgerFilter{
		TargetKind: q.TargetKind,
		TargetID:   q.TargetID,
		FieldName:  q.FieldName,
		Month:      q.Month,
		Year:       q.Year,
	})
	if err != nil {
		return nil, fmt.Errorf("error listing ledger entries: %w", err)
	}

	return totalsResponse(entries), nil
}

func (s *DefaultService) TotalsByField(ctx context.Context, q models.TotalsByFieldQuery) (*models.TotalsByFieldResponse, error) {
	if err := validateTarget(q.TargetKind, q.TargetID); err != nil {
		return nil, err
	}
	if err := validatePeriod(q.Month, q.Year); err != nil {
		return nil, err
	}
	if err := s.checkTarget(ctx, q.TargetKind, q.TargetID); err != nil {
		return nil, err
	}

	entries, err := s.repo.ListLedgerEntries(ctx, repository.LedgerFilter{
		TargetKind: q.TargetKind,
		TargetID:   q.TargetID,
		Month:      q.Month,
		Year:       q.Year,
	})
	if err != nil {
		return nil, fmt.Errorf("error listing ledger entries: %w", err)
	}

	return &models.TotalsByFieldResponse{
		Status: "success",
		Totals: ledger.FoldByField(entries),
	}, nil
}

// validateEntry turns a request into an entry, rejecting anything malformed
func validateEntry(req models.CreateLedgerEntryRequest) (*models.LedgerEntry, error) {
	if err := validateTarget(req.TargetKind, req.TargetID); err != nil {
		return nil, err
	}
	field := strings.TrimSpace(req.FieldName)
	if field == "" {
		return nil, invalid("fieldName", "is required")
	}
	if err := validateLength("fieldName", field, maxFieldNameLength); err != nil {
		return nil, err
	}
	label := strings.TrimSpace(req.FieldLabel)
	if err := validateLength("fieldLabel", label, maxNameLength); err != nil {
		return nil, err
	}
	if req.ActionKind != models.ActionAdd && req.ActionKind != models.ActionSubtract {
		return nil, invalid("actionKind", "must be ADD or SUBTRACT")
	}
	if req.Amount == "" {
		return nil, invalid("amount", "is required")
	}
	amount, err := decimal.NewFromString(req.Amount.String())
	if err != nil {
		return nil, invalid("amount", "must be a number")
	}
	if err := validateMoney("amount", amount); err != nil {
		return nil, err
	}
	description := strings.TrimSpace(req.Description)
	if description == "" {
		return nil, invalid("description", "is required")
	}
	if err := validatePeriod(req.Month, req.Year); err != nil {
		return nil, err
	}

	return &models.LedgerEntry{
		TargetKind:  req.TargetKind,
		TargetID:    req.TargetID,
		FieldName:   field,
		FieldLabel:  label,
		ActionKind:  req.ActionKind,
		Amount:      amount,
		Description: description,
		Month:       req.Month,
		Year:        req.Year,
	}, nil
}

func (s *DefaultService) CreateLedgerEntry(
	ctx context.Context,
	userID string,
	req models.CreateLedgerEntryRequest,
) (*models.TotalsResponse, error) {
	entry, err := validateEntry(req)
	if err != nil {
		return nil, err
	}
	if err := s.checkTarget(ctx, entry.TargetKind, entry.TargetID); err != nil {
		return nil, err
	}
	entry.CreatedBy = userID

	entries, err := s.repo.AppendLedgerEntry(ctx, entry)
	if err != nil {
		return nil, fmt.Errorf("error appending ledger entry: %w", err)
	}

	resp := totalsResponse(entries)
	s.metrics.EntryCreated(string(entry.TargetKind))
	s.log.Info("Ledger entry created",
		slog.String("entry_id", entry.ID),
		slog.String("key", repository.KeyOf(*entry).String()),
		slog.String("action", string(entry.ActionKind)),
		slog.String("amount", entry.Amount.String()),
	)
	s.publish(ctx, events.TypeEntryCreated, *entry, resp.Total)

	return resp, nil
}

func (s *DefaultService) DeleteLedgerEntry(ctx context.Context, entryID string) (*models.TotalsResponse, error) {
	if strings.TrimSpace(entryID) == "" {
		return nil, invalid("id", "is required")
	}

	removed, entries, err := s.repo.RemoveLedgerEntry(ctx, entryID)
	if err != nil {
		return nil, fmt.Errorf("error removing ledger entry: %w", err)
	}
	if removed == nil {
		return nil, fmt.Errorf("ledger entry %s: %w", entryID, ErrNotFound)
	}

	resp := totalsResponse(entries)
	s.metrics.EntryDeleted(string(removed.TargetKind))
	s.log.Info("Ledger entry deleted",
		slog.String("entry_id", removed.ID),
		slog.String("key", repository.KeyOf(*removed).String()),
	)
	s.publish(ctx, events.TypeEntryDeleted, *removed, resp.Total)

	return resp, nil
}

// publish runs after the store commit. Failures are logged, never returned.
func (s *DefaultService) publish(ctx context.Context, eventType string, entry models.LedgerEntry, total decimal.Decimal) {
	ev := events.NewLedgerEvent(eventType, entry, total, s.now())
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.metrics.PublishError()
		s.log.Warn("Failed to publish ledger event",
			slog.String("type", eventType),
			slog.String("entry_id", entry.ID),
			slog.String("error", err.Error()),
		)
	}
}
