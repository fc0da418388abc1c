package service

import (
	"testing"

	"github.com/flexprice/planshift/internal/domain/changehistory"
	"github.com/flexprice/planshift/internal/domain/planversion"
	ierr "github.com/flexprice/planshift/internal/errors"
	"github.com/flexprice/planshift/internal/types"
	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
)

type ChangeHistoryServiceSuite struct {
	planshiftSuite
	service ChangeHistoryService
	impact  ImpactService
}

func TestChangeHistoryService(t *testing.T) {
	suite.Run(t, new(ChangeHistoryServiceSuite))
}

func (s *ChangeHistoryServiceSuite) SetupTest() {
	s.planshiftSuite.SetupTest()
	s.service = NewChangeHistoryService(s.params())
	s.impact = NewImpactService(s.params())
	s.createPlan("creator", 19)
	s.createPlan("ecommerce", 49)
	s.seedSubscriptions("creator", "sub", 3, types.BillingCycleMonthly)
}

func (s *ChangeHistoryServiceSuite) TestEntriesAreChained() {
	_, err := s.impact.AnalyzeChange(s.GetContext(), "creator", planversion.DisableDelta{}, "")
	s.Require().NoError(err)

	entries, err := s.GetStores().ChangeHistoryRepo.ListAll(s.GetContext())
	s.Require().NoError(err)
	s.Require().Len(entries, 3)
	s.Empty(entries[0].PreviousHash)
	for i, e := range entries {
		s.Equal(int64(i+1), e.Sequence)
		s.Equal(e.ComputeHash(), e.Hash)
		if i > 0 {
			s.Equal(entries[i-1].Hash, e.PreviousHash)
		}
		s.Equal("operator_test", e.Actor)
		s.NotEmpty(e.Details)
	}

	verification, err := s.service.VerifyChain(s.GetContext())
	s.Require().NoError(err)
	s.True(verification.Valid)
	s.Equal(3, verification.EntriesChecked)
	s.Nil(verification.BrokenSequence)
}

func (s *ChangeHistoryServiceSuite) TestVerifyChainDetectsTampering() {
	_, err := s.impact.AnalyzeChange(s.GetContext(), "creator", planversion.DisableDelta{}, "")
	s.Require().NoError(err)

	s.GetStores().ChangeHistoryRepo.Tamper(2, "nothing to see here")

	verification, err := s.service.VerifyChain(s.GetContext())
	s.Require().NoError(err)
	s.False(verification.Valid)
	s.Require().NotNil(verification.BrokenSequence)
	s.Equal(int64(2), *verification.BrokenSequence)
	s.Equal(1, verification.EntriesChecked)
	s.NotEmpty(verification.Reason)
}

func (s *ChangeHistoryServiceSuite) TestRecordValidates() {
	err := s.service.Record(s.GetContext(), &changehistory.Entry{
		EntryType:   "deleted_everything",
		ReferenceID: "ref_1",
	})
	s.True(ierr.IsValidation(err))

	err = s.service.Record(s.GetContext(), &changehistory.Entry{
		EntryType: types.HistoryEntryTypeRollback,
	})
	s.True(ierr.IsValidation(err))

	entry := &changehistory.Entry{
		EntryType:   types.HistoryEntryTypeRollback,
		ReferenceID: "rbk_manual",
		PlanName:    "creator",
		Summary:     "manual entry",
	}
	s.Require().NoError(s.service.Record(s.GetContext(), entry))
	s.NotEmpty(entry.ID)
	s.Equal(int64(3), entry.Sequence)
	s.Equal("{}", string(entry.Details))
}

func (s *ChangeHistoryServiceSuite) TestList() {
	for i := 0; i < 3; i++ {
		_, err := s.impact.AnalyzeChange(s.GetContext(), "creator", planversion.PricingDelta{
			MonthlyPrice: decimalPtr(int64(20 + i)),
		}, "")
		s.Require().NoError(err)
	}

	filter := types.NewChangeHistoryFilter()
	filter.PlanName = "creator"
	filter.EntryType = []types.HistoryEntryType{types.HistoryEntryTypeImpactAnalysis}
	filter.Limit = lo.ToPtr(2)

	page, err := s.service.List(s.GetContext(), filter)
	s.Require().NoError(err)
	s.Equal(3, page.Pagination.Total)
	s.Require().Len(page.Items, 2)
	// newest first
	s.Greater(page.Items[0].Sequence, page.Items[1].Sequence)

	all, err := s.service.List(s.GetContext(), nil)
	s.Require().NoError(err)
	s.Equal(5, all.Pagination.Total)

	bad := types.NewChangeHistoryFilter()
	bad.EntryType = []types.HistoryEntryType{"nope"}
	_, err = s.service.List(s.GetContext(), bad)
	s.True(ierr.IsValidation(err))
}

func (s *ChangeHistoryServiceSuite) TestAssessRisk() {
	low, err := s.impact.AnalyzeChange(s.GetContext(), "creator", planversion.FeaturesDelta{
		FeaturesAdded: []string{"sso"},
	}, "")
	s.Require().NoError(err)
	s.Require().Equal(types.RiskLevelLow, low.RiskLevel)

	high, err := s.impact.AnalyzeChange(s.GetContext(), "creator", planversion.PricingDelta{
		MonthlyPrice: decimalPtr(99),
	}, "")
	s.Require().NoError(err)
	s.Require().Equal(types.RiskLevelHigh, high.RiskLevel)

	latest, err := s.impact.AnalyzeChange(s.GetContext(), "creator", planversion.FeaturesDelta{
		FeaturesAdded: []string{"exports"},
	}, "")
	s.Require().NoError(err)

	migration, err := NewMigrationPlannerService(s.params()).CreateMigrationPlan(s.GetContext(), CreateMigrationPlanParams{
		SourcePlan: "creator",
		TargetPlan: "ecommerce",
		Strategy:   types.MigrationStrategyImmediate,
	})
	s.Require().NoError(err)

	assessment, err := s.service.AssessRisk(s.GetContext(), "creator")
	s.Require().NoError(err)
	s.Equal(3, assessment.AnalysisCount)
	s.Equal(2, assessment.RiskCounts[types.RiskLevelLow])
	s.Equal(0, assessment.RiskCounts[types.RiskLevelMedium])
	s.Equal(1, assessment.RiskCounts[types.RiskLevelHigh])
	s.Equal(types.RiskLevelHigh, assessment.HighestRisk)
	s.Equal(latest.AnalysisID, assessment.LatestAnalysisID)
	s.Equal(types.RiskLevelLow, assessment.LatestRiskLevel)
	s.Equal([]string{migration.ID}, assessment.OpenMigrationIDs)
	s.Zero(assessment.PartiallyFailedCount)
	s.Equal(1, assessment.CurrentVersion)
}

func (s *ChangeHistoryServiceSuite) TestAssessRiskWithoutAnalyses() {
	assessment, err := s.service.AssessRisk(s.GetContext(), "ecommerce")
	s.Require().NoError(err)
	s.Zero(assessment.AnalysisCount)
	s.Equal(types.RiskLevelLow, assessment.HighestRisk)
	s.Empty(assessment.LatestAnalysisID)
	s.Nil(assessment.LatestAnalysisAt)
	s.Empty(assessment.OpenMigrationIDs)

	_, err = s.service.AssessRisk(s.GetContext(), "missing")
	s.True(ierr.IsPlanNotFound(err))
}
