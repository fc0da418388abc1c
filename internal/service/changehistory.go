package service

import (
	"context"
	"fmt"
	"time"

	"github.com/flexprice/planshift/internal/domain/changehistory"
	"github.com/flexprice/planshift/internal/domain/impact"
	ierr "github.com/flexprice/planshift/internal/errors"
	"github.com/flexprice/planshift/internal/types"
	jsoniter "github.com/json-iterator/go"
	"github.com/samber/lo"
)

// map keys are sorted, so the same snapshot always serializes to the same bytes
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ChangeHistoryService is the append-only audit log of every analysis,
// simulation, version, migration and rollback
type ChangeHistoryService interface {
	Record(ctx context.Context, entry *changehistory.Entry) error
	List(ctx context.Context, filter *types.ChangeHistoryFilter) (*types.ListResponse[*changehistory.Entry], error)
	// VerifyChain recomputes every hash and reports the first entry that does not match
	VerifyChain(ctx context.Context) (*changehistory.ChainVerification, error)
	AssessRisk(ctx context.Context, planName string) (*impact.RiskAssessment, error)
}

type changeHistoryService struct {
	ServiceParams
}

func NewChangeHistoryService(params ServiceParams) ChangeHistoryService {
	return &changeHistoryService{
		ServiceParams: params,
	}
}

// historyRecord describes an entry before it is serialized
type historyRecord struct {
	EntryType         types.HistoryEntryType
	ReferenceID       string
	PlanName          string
	PlanVersionNumber int
	RiskLevel         types.RiskLevel
	Summary           string
	Details           any
	Actor             string
}

func (r historyRecord) toEntry(ctx context.Context) (*changehistory.Entry, error) {
	details, err := json.Marshal(r.Details)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to serialize change history details").
			Mark(ierr.ErrSystem)
	}
	return &changehistory.Entry{
		ID:                types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CHANGE_HISTORY),
		EntryType:         r.EntryType,
		ReferenceID:       r.ReferenceID,
		PlanName:          r.PlanName,
		PlanVersionNumber: r.PlanVersionNumber,
		RiskLevel:         r.RiskLevel,
		Summary:           r.Summary,
		Details:           details,
		Actor:             types.ResolveActor(ctx, r.Actor),
		CreatedAt:         time.Now().UTC(),
	}, nil
}

// record serializes and appends a history entry
func (s *changeHistoryService) record(ctx context.Context, r historyRecord) error {
	entry, err := r.toEntry(ctx)
	if err != nil {
		return err
	}
	return s.Record(ctx, entry)
}

func (s *changeHistoryService) Record(ctx context.Context, entry *changehistory.Entry) error {
	if entry == nil {
		return ierr.NewError("history entry is required").
			WithHint("History entry is required").
			Mark(ierr.ErrValidation)
	}
	if err := entry.EntryType.Validate(); err != nil {
		return err
	}
	if entry.ReferenceID == "" {
		return ierr.NewError("reference id is required").
			WithHint("A history entry must reference the record it describes").
			Mark(ierr.ErrValidation)
	}
	if entry.ID == "" {
		entry.ID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CHANGE_HISTORY)
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if len(entry.Details) == 0 {
		entry.Details = []byte("{}")
	}
	entry.Actor = types.ResolveActor(ctx, entry.Actor)

	if err := s.ChangeHistoryRepo.Append(ctx, entry); err != nil {
		return err
	}

	s.Logger.Debugw("recorded change history entry",
		"entry_id", entry.ID,
		"sequence", entry.Sequence,
		"entry_type", entry.EntryType,
		"reference_id", entry.ReferenceID,
		"plan_name", entry.PlanName)
	return nil
}

func (s *changeHistoryService) List(ctx context.Context, filter *types.ChangeHistoryFilter) (*types.ListResponse[*changehistory.Entry], error) {
	if filter == nil {
		filter = types.NewChangeHistoryFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	entries, err := s.ChangeHistoryRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	total, err := s.ChangeHistoryRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	resp := types.NewPaginatedListResponse(entries, total, filter)
	return &resp, nil
}

func (s *changeHistoryService) VerifyChain(ctx context.Context) (*changehistory.ChainVerification, error) {
	entries, err := s.ChangeHistoryRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	result := &changehistory.ChainVerification{Valid: true}
	previous := ""
	for i, e := range entries {
		reason := ""
		switch {
		case e.Sequence != int64(i)+1:
			reason = fmt.Sprintf("expected sequence %d, found %d", i+1, e.Sequence)
		case e.PreviousHash != previous:
			reason = "previous hash does not match the preceding entry"
		case e.ComputeHash() != e.Hash:
			reason = "entry hash does not match its contents"
		}
		if reason != "" {
			result.Valid = false
			result.BrokenSequence = lo.ToPtr(e.Sequence)
			result.Reason = reason
			s.Logger.Warnw("change history chain is broken",
				"sequence", e.Sequence,
				"entry_id", e.ID,
				"reason", reason)
			return result, nil
		}
		previous = e.Hash
		result.EntriesChecked++
	}
	return result, nil
}

func (s *changeHistoryService) AssessRisk(ctx context.Context, planName string) (*impact.RiskAssessment, error) {
	plan, err := s.PlanVersionRepo.GetPlan(ctx, planName)
	if err != nil {
		return nil, err
	}

	filter := &types.ChangeHistoryFilter{
		QueryFilter: types.NewNoLimitQueryFilter(),
		PlanName:    planName,
		EntryType:   []types.HistoryEntryType{types.HistoryEntryTypeImpactAnalysis},
	}
	analyses, err := s.ChangeHistoryRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	assessment := &impact.RiskAssessment{
		PlanName:       planName,
		CurrentVersion: plan.CurrentVersionNumber,
		AnalysisCount:  len(analyses),
		RiskCounts: map[types.RiskLevel]int{
			types.RiskLevelLow:    0,
			types.RiskLevelMedium: 0,
			types.RiskLevelHigh:   0,
		},
		HighestRisk:      types.RiskLevelLow,
		OpenMigrationIDs: []string{},
		AssessedAt:       time.Now().UTC(),
	}

	for _, e := range analyses {
		assessment.RiskCounts[e.RiskLevel]++
		assessment.HighestRisk = types.MaxRiskLevel(assessment.HighestRisk, e.RiskLevel)
	}
	if len(analyses) > 0 {
		latest := lo.MaxBy(analyses, func(a, b *changehistory.Entry) bool {
			return a.Sequence > b.Sequence
		})
		assessment.LatestAnalysisID = latest.ReferenceID
		assessment.LatestRiskLevel = latest.RiskLevel
		assessment.LatestAnalysisAt = lo.ToPtr(latest.CreatedAt)
	}

	migrations, err := s.MigrationRepo.List(ctx, &types.MigrationPlanFilter{
		QueryFilter: types.NewNoLimitQueryFilter(),
		SourcePlan:  planName,
		Status: []types.MigrationStatus{
			types.MigrationStatusCreated,
			types.MigrationStatusExecuting,
			types.MigrationStatusPartiallyFailed,
		},
	})
	if err != nil {
		return nil, err
	}
	for _, m := range migrations {
		assessment.OpenMigrationIDs = append(assessment.OpenMigrationIDs, m.ID)
		if m.OverallStatus == types.MigrationStatusPartiallyFailed {
			assessment.PartiallyFailedCount++
		}
	}

	return assessment, nil
}
