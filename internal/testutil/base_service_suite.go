package testutil

import (
	"context"
	"time"

	"github.com/flexprice/planshift/internal/cache"
	"github.com/flexprice/planshift/internal/config"
	"github.com/flexprice/planshift/internal/lock"
	"github.com/flexprice/planshift/internal/logger"
	"github.com/flexprice/planshift/internal/validator"
	"github.com/stretchr/testify/suite"
)

// Stores holds the in-memory repositories used by service tests
type Stores struct {
	PlanVersionRepo   *InMemoryPlanVersionStore
	SubscriptionStore *InMemorySubscriptionStore
	MigrationRepo     *InMemoryMigrationStore
	ExecutionRepo     *InMemoryExecutionStore
	RollbackRepo      *InMemoryRollbackStore
	ChangeHistoryRepo *InMemoryChangeHistoryStore
}

// BaseServiceTestSuite provides common functionality for all service test suites
type BaseServiceTestSuite struct {
	suite.Suite
	ctx      context.Context
	stores   Stores
	billing  *FakeBillingGateway
	notifier *RecordingNotifier
	locker   *lock.MemoryLocker
	cache    cache.Cache
	db       *MockPostgresClient
	logger   *logger.Logger
	config   *config.Configuration
	now      time.Time
}

// SetupSuite is called once before running the tests in the suite
func (s *BaseServiceTestSuite) SetupSuite() {
	validator.NewValidator()
	s.logger = logger.NewNoopLogger()
}

// SetupTest is called before each test
func (s *BaseServiceTestSuite) SetupTest() {
	s.setupConfig()
	s.ctx = SetupContext()
	s.setupStores()
	s.now = time.Now().UTC()
}

// TearDownTest is called after each test
func (s *BaseServiceTestSuite) TearDownTest() {
	s.clearStores()
}

func (s *BaseServiceTestSuite) setupConfig() {
	cfg := config.GetDefaultConfig()
	// keep retries and gradual waits short enough for unit tests
	cfg.Billing.Timeout = time.Second
	cfg.Billing.InitialInterval = time.Millisecond
	cfg.Migration.GradualDelay = 10 * time.Millisecond
	cfg.Migration.LockTTL = time.Minute
	s.config = cfg
}

func (s *BaseServiceTestSuite) setupStores() {
	s.stores = Stores{
		PlanVersionRepo:   NewInMemoryPlanVersionStore(),
		SubscriptionStore: NewInMemorySubscriptionStore(),
		MigrationRepo:     NewInMemoryMigrationStore(),
		ExecutionRepo:     NewInMemoryExecutionStore(),
		RollbackRepo:      NewInMemoryRollbackStore(),
		ChangeHistoryRepo: NewInMemoryChangeHistoryStore(),
	}
	s.billing = NewFakeBillingGateway()
	s.notifier = NewRecordingNotifier()
	s.locker = lock.NewMemoryLocker()
	s.cache = cache.NewInMemoryCache(s.config)
	s.db = NewMockPostgresClient(s.logger)
}

func (s *BaseServiceTestSuite) clearStores() {
	s.stores.PlanVersionRepo.Clear()
	s.stores.SubscriptionStore.Clear()
	s.stores.MigrationRepo.Clear()
	s.stores.ExecutionRepo.Clear()
	s.stores.RollbackRepo.Clear()
	s.stores.ChangeHistoryRepo.Clear()
	s.billing.Reset()
	s.notifier.Reset()
	s.cache.Flush(context.Background())
}

// GetContext returns the test context
func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

// GetConfig returns the test configuration. Tests may tweak it before
// building services.
func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.config
}

// GetLogger returns the test logger
func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

// GetStores returns all test repositories
func (s *BaseServiceTestSuite) GetStores() Stores {
	return s.stores
}

// GetBillingGateway returns the scriptable billing gateway
func (s *BaseServiceTestSuite) GetBillingGateway() *FakeBillingGateway {
	return s.billing
}

// GetNotifier returns the recording notifier
func (s *BaseServiceTestSuite) GetNotifier() *RecordingNotifier {
	return s.notifier
}

func (s *BaseServiceTestSuite) GetLocker() *lock.MemoryLocker {
	return s.locker
}

func (s *BaseServiceTestSuite) GetCache() cache.Cache {
	return s.cache
}

// GetDB returns the mock database client
func (s *BaseServiceTestSuite) GetDB() *MockPostgresClient {
	return s.db
}

// GetNow returns the time the current test started
func (s *BaseServiceTestSuite) GetNow() time.Time {
	return s.now
}
