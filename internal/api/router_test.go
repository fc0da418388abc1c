package api

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	v1 "github.com/flexprice/planshift/internal/api/v1"
	"github.com/flexprice/planshift/internal/domain/subscription"
	"github.com/flexprice/planshift/internal/service"
	"github.com/flexprice/planshift/internal/testutil"
	"github.com/flexprice/planshift/internal/types"
	"github.com/gin-gonic/gin"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/suite"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type RouterSuite struct {
	testutil.BaseServiceTestSuite
	router *gin.Engine
}

func TestRouter(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupSuite() {
	s.BaseServiceTestSuite.SetupSuite()
	gin.SetMode(gin.TestMode)
}

func (s *RouterSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()

	stores := s.GetStores()
	params := service.ServiceParams{
		Logger:            s.GetLogger(),
		Config:            s.GetConfig(),
		DB:                s.GetDB(),
		Cache:             s.GetCache(),
		Locker:            s.GetLocker(),
		PlanVersionRepo:   stores.PlanVersionRepo,
		SubscriptionStore: stores.SubscriptionStore,
		MigrationRepo:     stores.MigrationRepo,
		ExecutionRepo:     stores.ExecutionRepo,
		RollbackRepo:      stores.RollbackRepo,
		ChangeHistoryRepo: stores.ChangeHistoryRepo,
		BillingGateway:    s.GetBillingGateway(),
		Notifier:          s.GetNotifier(),
	}

	rollbacks := service.NewRollbackService(params)
	log := s.GetLogger()
	s.router = NewRouter(Handlers{
		Health:    v1.NewHealthHandler(nil, log),
		Plan:      v1.NewPlanHandler(service.NewPlanVersionService(params), rollbacks, log),
		Impact:    v1.NewImpactHandler(service.NewImpactService(params), service.NewSimulationService(params), log),
		Migration: v1.NewMigrationHandler(service.NewMigrationPlannerService(params), service.NewMigrationExecutorService(params), nil, log),
		History:   v1.NewHistoryHandler(service.NewChangeHistoryService(params), rollbacks, log),
	}, s.GetConfig(), log, nil)
}

func (s *RouterSuite) do(method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *RouterSuite) decode(w *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (s *RouterSuite) seed() {
	for _, name := range []string{"creator", "ecommerce"} {
		w := s.do(http.MethodPost, "/v1/plans", map[string]any{
			"name":          name,
			"monthly_price": "19",
			"yearly_price":  "190",
			"currency":      "usd",
			"features":      []string{"analytics"},
			"limits":        map[string]any{"seats": 10},
		})
		s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	}

	for i := 1; i <= 3; i++ {
		s.Require().NoError(s.GetStores().SubscriptionStore.Seed(s.GetContext(), &subscription.Subscription{
			ID:                fmt.Sprintf("sub_%d", i),
			CustomerID:        fmt.Sprintf("cust_%d", i),
			PlanName:          "creator",
			PlanVersionNumber: 1,
			Status:            types.SubscriptionStatusActive,
			BillingCycle:      types.BillingCycleMonthly,
			CreatedAt:         s.GetNow().Add(time.Duration(i) * time.Minute),
		}))
	}
}

func (s *RouterSuite) TestHealthSetsRequestID() {
	w := s.do(http.MethodGet, "/health", nil)
	s.Equal(http.StatusOK, w.Code)
	s.NotEmpty(w.Header().Get(types.HeaderRequestID))

	w = s.do(http.MethodGet, "/v1/health", nil, types.HeaderRequestID, "req-123")
	s.Equal(http.StatusOK, w.Code)
	s.Equal("req-123", w.Header().Get(types.HeaderRequestID))
}

func (s *RouterSuite) TestPlanLifecycle() {
	s.seed()

	w := s.do(http.MethodPost, "/v1/plans/creator/versions", map[string]any{
		"pricing": map[string]any{"monthly_price": "29"},
	}, types.HeaderUserID, "alice")
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	version := s.decode(w)
	s.Equal(float64(2), version["version_number"])
	s.Equal("alice", version["created_by"])

	w = s.do(http.MethodGet, "/v1/plans/creator", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal(float64(2), s.decode(w)["current_version_number"])

	w = s.do(http.MethodGet, "/v1/plans/creator/versions/1", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal("19", s.decode(w)["pricing"].(map[string]any)["monthly_price"])

	w = s.do(http.MethodGet, "/v1/plans/creator/versions/abc", nil)
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/v1/plans/creator/versions", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Len(s.decode(w)["items"], 2)
}

func (s *RouterSuite) TestAnalyzePricingChange() {
	s.seed()

	w := s.do(http.MethodPost, "/v1/analyze-pricing-change", map[string]any{
		"plan_name":     "creator",
		"monthly_price": "29",
	})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	analysis := s.decode(w)
	s.Equal(float64(3), analysis["affected_subscription_count"])
	s.Equal("30", analysis["financial_impact"].(map[string]any)["monthly_delta_total"])
	s.Equal("pricing", analysis["change_type"])
}

func (s *RouterSuite) TestErrorResponses() {
	s.seed()

	w := s.do(http.MethodPost, "/v1/analyze-plan-disable", map[string]any{"plan_name": "missing"})
	s.Equal(http.StatusNotFound, w.Code)
	body := s.decode(w)
	s.Equal(false, body["success"])
	errBody := body["error"].(map[string]any)
	s.NotEmpty(errBody["message"])
	s.Equal("missing", errBody["details"].(map[string]any)["plan_name"])

	w = s.do(http.MethodPost, "/v1/simulate-change", map[string]any{"plan_name": "creator"})
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/v1/analyze-limit-change", map[string]any{
		"plan_name": "creator",
		"limits":    map[string]any{"seats": "lots"},
	})
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/v1/migration-plan/mig_missing", nil)
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *RouterSuite) TestMigrationFlow() {
	s.seed()

	w := s.do(http.MethodPost, "/v1/create-migration-plan", map[string]any{
		"source_plan": "creator",
		"target_plan": "ecommerce",
		"strategy":    "immediate",
		"batch_size":  2,
	})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	plan := s.decode(w)
	id := plan["migration_id"].(string)
	s.Len(plan["batches"], 2)

	w = s.do(http.MethodPost, "/v1/execute-migration-plan/"+id, map[string]any{"dry_run": true})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	execution := s.decode(w)["execution"].(map[string]any)
	s.Equal(true, execution["dry_run"])

	w = s.do(http.MethodPost, "/v1/execute-migration-plan/"+id, nil)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	execution = s.decode(w)["execution"].(map[string]any)
	s.Equal("completed", execution["status"])

	w = s.do(http.MethodGet, "/v1/migration-plan/"+id, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal("completed", s.decode(w)["overall_status"])

	w = s.do(http.MethodGet, "/v1/migration-plan/"+id+"/executions", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Len(s.decode(w)["items"], 2)

	w = s.do(http.MethodPost, "/v1/migration-plan/"+id+"/cancel", nil)
	s.Equal(http.StatusConflict, w.Code)

	w = s.do(http.MethodGet, "/v1/migration-plans?status=completed", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Len(s.decode(w)["items"], 1)
}

func (s *RouterSuite) TestRollbackAndHistory() {
	s.seed()

	w := s.do(http.MethodPost, "/v1/plans/creator/versions", map[string]any{
		"features": map[string]any{"features_added": []string{"sso"}},
	})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	w = s.do(http.MethodPost, "/v1/rollback-plan-change", map[string]any{
		"plan_name":           "creator",
		"rollback_to_version": 1,
		"reason":              "sso broke checkout",
	})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	s.Equal(float64(2), s.decode(w)["rolled_back_from_version"])

	w = s.do(http.MethodPost, "/v1/rollback-plan-change", map[string]any{
		"plan_name":           "creator",
		"rollback_to_version": 2,
		"reason":              "forward",
	})
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/v1/plans/creator/rollbacks", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Len(s.decode(w)["items"], 1)

	w = s.do(http.MethodGet, "/v1/impact-history?plan_name=creator&entry_type=rollback", nil)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.Len(s.decode(w)["items"], 1)

	w = s.do(http.MethodGet, "/v1/impact-history/verify", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal(true, s.decode(w)["valid"])

	w = s.do(http.MethodGet, "/v1/risk-assessment/creator", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal(float64(1), s.decode(w)["current_version"])
}
