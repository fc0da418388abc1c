package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/flexprice/planshift/internal/domain/migration"
	"github.com/flexprice/planshift/internal/domain/planversion"
	ierr "github.com/flexprice/planshift/internal/errors"
	"github.com/flexprice/planshift/internal/idempotency"
	"github.com/flexprice/planshift/internal/interfaces"
	"github.com/flexprice/planshift/internal/lock"
	"github.com/flexprice/planshift/internal/sentry"
	"github.com/flexprice/planshift/internal/types"
	"github.com/samber/lo"
	"github.com/sourcegraph/conc/pool"
)

// MigrationExecutorService runs migration plans batch by batch. Executions are
// resumable: batches that already succeeded are never processed again.
type MigrationExecutorService interface {
	ExecuteMigrationPlan(ctx context.Context, migrationID string, dryRun bool, actor string) (*migration.ExecutionRecord, error)
	// CancelExecution asks a running execution in this process to stop at the
	// next batch boundary
	CancelExecution(ctx context.Context, migrationID string) error
	// MarkRolledBack closes a migration plan for good. It cannot be executed afterwards.
	MarkRolledBack(ctx context.Context, migrationID, reason, actor string) (*migration.MigrationPlan, error)
	ListExecutions(ctx context.Context, migrationID string) ([]*migration.ExecutionRecord, error)
}

type migrationExecutorService struct {
	ServiceParams
	versions PlanVersionService
	history  *changeHistoryService
	billing  *billingCaller
	keys     *idempotency.Generator

	mu      sync.Mutex
	running map[string]*runningExecution
}

// runningExecution is the cancellation handle of an execution in this process
type runningExecution struct {
	executionID string
	stop        chan struct{}
	once        sync.Once
	leaseLost   atomic.Bool
}

func (r *runningExecution) cancel() {
	r.once.Do(func() { close(r.stop) })
}

func (r *runningExecution) cancelled() bool {
	select {
	case <-r.stop:
		return true
	default:
		return false
	}
}

// subscriptionOutcome is the result of moving one subscription
type subscriptionOutcome struct {
	applied bool
	skipped bool
	err     error
}

func NewMigrationExecutorService(params ServiceParams) MigrationExecutorService {
	return &migrationExecutorService{
		ServiceParams: params,
		versions:      NewPlanVersionService(params),
		history:       &changeHistoryService{ServiceParams: params},
		billing:       newBillingCaller(params.BillingGateway, params.Config.Billing, params.Logger),
		keys:          idempotency.NewGenerator(),
		running:       make(map[string]*runningExecution),
	}
}

func (s *migrationExecutorService) ExecuteMigrationPlan(ctx context.Context, migrationID string, dryRun bool, actor string) (*migration.ExecutionRecord, error) {
	if _, err := s.openPlan(ctx, migrationID); err != nil {
		return nil, err
	}

	token, err := s.acquire(ctx, migrationID)
	if err != nil {
		return nil, err
	}
	defer s.release(ctx, migrationID, token)

	// the plan may have moved on while we waited for the lock
	plan, err := s.openPlan(ctx, migrationID)
	if err != nil {
		return nil, err
	}

	executionID := types.GenerateUUIDWithPrefix(types.UUID_PREFIX_MIGRATION_EXECUTION)
	run, err := s.register(plan.ID, executionID)
	if err != nil {
		return nil, err
	}
	defer s.unregister(plan.ID, run)
	defer s.keepLease(ctx, run, plan.ID, token)()

	target, err := s.versions.GetVersion(ctx, plan.TargetPlan, plan.TargetVersionNumber)
	if err != nil {
		return nil, err
	}

	span, ctx := s.Sentry.StartSpan(ctx, "migration.execute", migrationID, map[string]interface{}{
		"migration_id": migrationID,
		"dry_run":      dryRun,
	})

	record := &migration.ExecutionRecord{
		ID:           executionID,
		MigrationID:  plan.ID,
		DryRun:       dryRun,
		Status:       types.ExecutionStatusStarted,
		BatchResults: []migration.BatchResult{},
		StartedAt:    time.Now().UTC(),
		ExecutedBy:   types.ResolveActor(ctx, actor),
	}
	if err := s.ExecutionRepo.Create(ctx, record); err != nil {
		sentry.FinishSpan(span, err)
		return nil, err
	}

	s.Logger.Infow("starting migration execution",
		"migration_id", plan.ID,
		"execution_id", record.ID,
		"strategy", plan.Strategy,
		"dry_run", dryRun,
		"batches", len(plan.Batches))

	if !dryRun && plan.OverallStatus != types.MigrationStatusExecuting {
		if err := s.MigrationRepo.UpdateStatus(ctx, plan.ID, types.MigrationStatusExecuting); err != nil {
			sentry.FinishSpan(span, err)
			return nil, err
		}
	}

	// a batch is never interrupted once started, so batch work ignores the
	// caller's cancellation and only batch boundaries observe it
	work := context.WithoutCancel(ctx)

	batches := append([]*migration.Batch(nil), plan.Batches...)
	sort.SliceStable(batches, func(i, j int) bool { return batches[i].Sequence < batches[j].Sequence })

	stopped := false
	for _, batch := range batches {
		if batch.Status == types.BatchStatusSucceeded {
			record.BatchesSkipped++
			continue
		}
		if run.cancelled() || ctx.Err() != nil {
			stopped = true
			break
		}
		if record.BatchesProcessed > 0 && !dryRun && plan.Strategy == types.MigrationStrategyGradual && plan.BatchDelay > 0 {
			if !s.wait(ctx, run, plan.BatchDelay) {
				stopped = true
				break
			}
		}

		result := s.runBatch(work, plan, target, batch, dryRun)
		record.BatchResults = append(record.BatchResults, result)
		record.BatchesProcessed++
		if result.Status == types.BatchStatusFailed {
			record.BatchesFailed++
		}

		if err := s.ExecutionRepo.Update(work, record); err != nil {
			s.Logger.Errorw("failed to persist execution progress",
				"migration_id", plan.ID,
				"execution_id", record.ID,
				"error", err)
		}
	}

	planStatus := types.MigrationStatusCompleted
	if run.leaseLost.Load() {
		s.Logger.Errorw("stopped migration execution after losing its lock",
			"migration_id", plan.ID,
			"execution_id", record.ID)
	}
	switch {
	case stopped:
		record.Status = types.ExecutionStatusCancelled
		planStatus = types.MigrationStatusPartiallyFailed
	case record.BatchesFailed > 0:
		record.Status = types.ExecutionStatusPartiallyFailed
		planStatus = types.MigrationStatusPartiallyFailed
	default:
		record.Status = types.ExecutionStatusCompleted
	}
	record.CompletedAt = lo.ToPtr(time.Now().UTC())

	err = s.finish(work, plan, record, planStatus)
	sentry.FinishSpan(span, err)
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("finished migration execution",
		"migration_id", plan.ID,
		"execution_id", record.ID,
		"status", record.Status,
		"dry_run", dryRun,
		"batches_processed", record.BatchesProcessed,
		"batches_failed", record.BatchesFailed,
		"batches_skipped", record.BatchesSkipped)
	return record, nil
}

// finish persists the terminal state of an execution and records it in the history
func (s *migrationExecutorService) finish(ctx context.Context, plan *migration.MigrationPlan, record *migration.ExecutionRecord, planStatus types.MigrationStatus) error {
	return s.DB.WithTx(ctx, func(ctx context.Context) error {
		if !record.DryRun {
			if err := s.MigrationRepo.UpdateStatus(ctx, plan.ID, planStatus); err != nil {
				return err
			}
		}
		if err := s.ExecutionRepo.Update(ctx, record); err != nil {
			return err
		}

		summary := fmt.Sprintf("execution of %s %s: %d processed, %d failed, %d skipped",
			plan.ID, record.Status, record.BatchesProcessed, record.BatchesFailed, record.BatchesSkipped)
		if record.DryRun {
			summary = "dry run " + summary
		}
		return s.history.record(ctx, historyRecord{
			EntryType:         types.HistoryEntryTypeMigrationExecution,
			ReferenceID:       record.ID,
			PlanName:          plan.SourcePlan,
			PlanVersionNumber: plan.TargetVersionNumber,
			Summary:           summary,
			Details:           record,
			Actor:             record.ExecutedBy,
		})
	})
}

// runBatch processes one batch and, unless dry running, persists its new status
func (s *migrationExecutorService) runBatch(ctx context.Context, plan *migration.MigrationPlan, target *planversion.PlanVersion, batch *migration.Batch, dryRun bool) migration.BatchResult {
	result := migration.BatchResult{
		BatchID:  batch.ID,
		Sequence: batch.Sequence,
		DryRun:   dryRun,
	}

	switch {
	case plan.IsGrandfathered():
		// existing subscribers keep their terms, nothing is billed or moved
		result.Status = types.BatchStatusSucceeded
		result.SubscriptionsSkipped = len(batch.SubscriptionIDs)
		if !dryRun {
			batch.Attempts++
			s.saveBatch(ctx, batch, types.BatchStatusSucceeded, "", nil)
		}
		return result
	case dryRun:
		result.Status = types.BatchStatusSucceeded
		result.SubscriptionsApplied = len(batch.SubscriptionIDs)
		return result
	}

	batch.Attempts++
	s.saveBatch(ctx, batch, types.BatchStatusInProgress, batch.FailureReason, batch.FailedSubscriptionIDs)

	outcomes := make([]subscriptionOutcome, len(batch.SubscriptionIDs))
	p := pool.New().WithMaxGoroutines(lo.Max([]int{1, s.Config.Migration.BatchConcurrency}))
	for i, id := range batch.SubscriptionIDs {
		i, id := i, id
		p.Go(func() {
			outcomes[i] = s.migrateSubscription(ctx, plan, target, id)
		})
	}
	p.Wait()

	var failedIDs []string
	var firstErr error
	for i, o := range outcomes {
		switch {
		case o.err != nil:
			failedIDs = append(failedIDs, batch.SubscriptionIDs[i])
			if firstErr == nil {
				firstErr = o.err
			}
		case o.applied:
			result.SubscriptionsApplied++
		case o.skipped:
			result.SubscriptionsSkipped++
		}
	}

	if len(failedIDs) == 0 {
		result.Status = types.BatchStatusSucceeded
		s.saveBatch(ctx, batch, types.BatchStatusSucceeded, "", nil)
	} else {
		result.Status = types.BatchStatusFailed
		result.FailureReason = fmt.Sprintf("%d of %d subscriptions failed, first %s: %v",
			len(failedIDs), len(batch.SubscriptionIDs), failedIDs[0], firstErr)
		s.saveBatch(ctx, batch, types.BatchStatusFailed, result.FailureReason, failedIDs)

		s.Logger.Warnw("migration batch failed",
			"migration_id", plan.ID,
			"batch_id", batch.ID,
			"sequence", batch.Sequence,
			"failed", len(failedIDs),
			"reason", result.FailureReason)
		s.Sentry.CaptureException(ctx, firstErr, map[string]string{
			"migration_id": plan.ID,
			"batch_id":     batch.ID,
			"sequence":     strconv.Itoa(batch.Sequence),
		})
	}

	s.notifyBatch(ctx, plan, batch, outcomes, result)
	return result
}

// saveBatch writes the batch status in one update. Failing to persist is
// logged: the batch is then retried on the next execution, which is safe
// because migrated subscriptions are skipped.
func (s *migrationExecutorService) saveBatch(ctx context.Context, batch *migration.Batch, status types.BatchStatus, reason string, failedIDs []string) {
	batch.Status = status
	batch.FailureReason = reason
	batch.FailedSubscriptionIDs = failedIDs
	batch.UpdatedAt = time.Now().UTC()
	if err := s.MigrationRepo.UpdateBatch(ctx, batch); err != nil {
		s.Logger.Errorw("failed to persist batch status",
			"migration_id", batch.MigrationID,
			"batch_id", batch.ID,
			"status", status,
			"error", err)
		s.Sentry.CaptureException(ctx, err, map[string]string{
			"migration_id": batch.MigrationID,
			"batch_id":     batch.ID,
		})
	}
}

// migrateSubscription moves one subscription to the pinned target version.
// Subscriptions that are gone, no longer active, no longer on the source plan
// or already on the target are skipped, not failed.
func (s *migrationExecutorService) migrateSubscription(ctx context.Context, plan *migration.MigrationPlan, target *planversion.PlanVersion, subscriptionID string) subscriptionOutcome {
	sub, err := s.SubscriptionStore.Get(ctx, subscriptionID)
	if err != nil {
		if ierr.IsNotFound(err) {
			s.Logger.Infow("skipping subscription that no longer exists",
				"migration_id", plan.ID,
				"subscription_id", subscriptionID)
			return subscriptionOutcome{skipped: true}
		}
		return subscriptionOutcome{err: err}
	}

	if sub.IsOn(plan.TargetPlan, plan.TargetVersionNumber) {
		return subscriptionOutcome{skipped: true}
	}
	if !sub.IsActive() || sub.PlanName != plan.SourcePlan {
		s.Logger.Infow("skipping subscription that changed since planning",
			"migration_id", plan.ID,
			"subscription_id", subscriptionID,
			"status", sub.Status,
			"plan_name", sub.PlanName)
		return subscriptionOutcome{skipped: true}
	}

	err = s.billing.apply(ctx, interfaces.PlanChangeRequest{
		SubscriptionID: subscriptionID,
		PlanName:       target.PlanName,
		VersionNumber:  target.VersionNumber,
		Pricing:        target.Pricing,
		Features:       target.Features,
		Limits:         target.Limits,
		IdempotencyKey: s.keys.PlanMigrationKey(plan.ID, subscriptionID, target.VersionNumber),
	})
	if err != nil {
		return subscriptionOutcome{err: err}
	}

	if err := s.SubscriptionStore.UpdatePlanAssignment(ctx, subscriptionID, target.PlanName, target.VersionNumber); err != nil {
		return subscriptionOutcome{err: ierr.WithError(err).
			WithHint("Billing was updated but the subscription could not be reassigned").
			Mark(ierr.ErrDatabase)}
	}
	return subscriptionOutcome{applied: true}
}

// notifyBatch tells customers about the outcome of a batch. Delivery failures
// never change the batch status.
func (s *migrationExecutorService) notifyBatch(ctx context.Context, plan *migration.MigrationPlan, batch *migration.Batch, outcomes []subscriptionOutcome, result migration.BatchResult) {
	for i, o := range outcomes {
		if o.skipped {
			continue
		}
		eventType := types.NotificationEventPlanMigrated
		payload := map[string]any{
			"migration_id":   plan.ID,
			"batch_id":       batch.ID,
			"source_plan":    plan.SourcePlan,
			"target_plan":    plan.TargetPlan,
			"target_version": plan.TargetVersionNumber,
			"batch_status":   result.Status,
		}
		if o.err != nil {
			eventType = types.NotificationEventPlanMigrationFailed
			payload["reason"] = o.err.Error()
		}

		subscriptionID := batch.SubscriptionIDs[i]
		if err := s.Notifier.Notify(ctx, subscriptionID, eventType, payload); err != nil {
			s.Logger.Warnw("failed to send migration notification",
				"migration_id", plan.ID,
				"subscription_id", subscriptionID,
				"event_type", eventType,
				"error", err)
		}
	}
}

// wait sleeps between gradual batches. It returns false when the execution
// was cancelled meanwhile.
func (s *migrationExecutorService) wait(ctx context.Context, run *runningExecution, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	case <-run.stop:
		return false
	}
}

func (s *migrationExecutorService) CancelExecution(ctx context.Context, migrationID string) error {
	s.mu.Lock()
	run, ok := s.running[migrationID]
	s.mu.Unlock()

	if !ok {
		if _, err := s.MigrationRepo.Get(ctx, migrationID); err != nil {
			return err
		}
		return ierr.NewError("migration is not executing").
			WithHintf("Migration %s has no running execution to cancel", migrationID).
			WithReportableDetails(map[string]any{
				"migration_id": migrationID,
			}).
			Mark(ierr.ErrInvalidState)
	}

	run.cancel()
	s.Logger.Infow("cancellation requested",
		"migration_id", migrationID,
		"execution_id", run.executionID)
	return nil
}

func (s *migrationExecutorService) MarkRolledBack(ctx context.Context, migrationID, reason, actor string) (*migration.MigrationPlan, error) {
	if reason == "" {
		return nil, ierr.NewError("reason is required").
			WithHint("Explain why the migration is being rolled back").
			Mark(ierr.ErrValidation)
	}

	if _, err := s.openPlan(ctx, migrationID); err != nil {
		return nil, err
	}
	token, err := s.acquire(ctx, migrationID)
	if err != nil {
		return nil, err
	}
	defer s.release(ctx, migrationID, token)

	plan, err := s.openPlan(ctx, migrationID)
	if err != nil {
		return nil, err
	}

	actor = types.ResolveActor(ctx, actor)
	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		if err := s.MigrationRepo.UpdateStatus(ctx, plan.ID, types.MigrationStatusRolledBack); err != nil {
			return err
		}
		plan.OverallStatus = types.MigrationStatusRolledBack
		return s.history.record(ctx, historyRecord{
			EntryType:         types.HistoryEntryTypeMigrationPlan,
			ReferenceID:       plan.ID,
			PlanName:          plan.SourcePlan,
			PlanVersionNumber: plan.TargetVersionNumber,
			Summary:           fmt.Sprintf("marked migration %s rolled back: %s", plan.ID, reason),
			Details: map[string]any{
				"migration_id":   plan.ID,
				"overall_status": plan.OverallStatus,
				"reason":         reason,
			},
			Actor: actor,
		})
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("marked migration rolled back",
		"migration_id", plan.ID,
		"reason", reason,
		"actor", actor)
	return s.MigrationRepo.Get(ctx, plan.ID)
}

func (s *migrationExecutorService) ListExecutions(ctx context.Context, migrationID string) ([]*migration.ExecutionRecord, error) {
	if _, err := s.MigrationRepo.Get(ctx, migrationID); err != nil {
		return nil, err
	}
	return s.ExecutionRepo.ListByMigration(ctx, migrationID)
}

// openPlan loads a plan that may still be worked on
func (s *migrationExecutorService) openPlan(ctx context.Context, migrationID string) (*migration.MigrationPlan, error) {
	plan, err := s.MigrationRepo.Get(ctx, migrationID)
	if err != nil {
		return nil, err
	}
	if plan.OverallStatus == types.MigrationStatusRolledBack {
		return nil, ierr.NewError("migration is rolled back").
			WithHintf("Migration %s was rolled back and can no longer run", migrationID).
			WithReportableDetails(map[string]any{
				"migration_id":   migrationID,
				"overall_status": plan.OverallStatus,
			}).
			Mark(ierr.ErrInvalidState)
	}
	return plan, nil
}

func (s *migrationExecutorService) acquire(ctx context.Context, migrationID string) (string, error) {
	token, ok, err := s.Locker.TryAcquire(ctx, lock.MigrationKey(migrationID), s.Config.Migration.LockTTL)
	if err != nil {
		return "", ierr.WithError(err).
			WithHint("Could not lock the migration, try again").
			Mark(ierr.ErrSystem)
	}
	if !ok {
		return "", ierr.NewError("migration is already executing").
			WithHintf("Migration %s is being executed by another request", migrationID).
			WithReportableDetails(map[string]any{
				"migration_id": migrationID,
			}).
			Mark(ierr.ErrInvalidState)
	}
	return token, nil
}

func (s *migrationExecutorService) release(ctx context.Context, migrationID, token string) {
	if err := s.Locker.Release(context.WithoutCancel(ctx), lock.MigrationKey(migrationID), token); err != nil {
		s.Logger.Errorw("failed to release migration lock",
			"migration_id", migrationID,
			"error", err)
	}
}

// keepLease renews the migration lock until the returned func is called.
// When the lease is lost the execution stops at the next batch boundary.
func (s *migrationExecutorService) keepLease(ctx context.Context, run *runningExecution, migrationID, token string) func() {
	ttl := s.Config.Migration.LockTTL
	if ttl <= 0 {
		return func() {}
	}

	ctx = context.WithoutCancel(ctx)
	key := lock.MigrationKey(migrationID)
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(max(ttl/3, time.Millisecond))
		defer ticker.Stop()

		renewed := time.Now()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
			}

			ok, err := s.Locker.Extend(ctx, key, token, ttl)
			switch {
			case err == nil && ok:
				renewed = time.Now()
				continue
			case err != nil && time.Since(renewed) < ttl:
				// the lease is still ours until ttl passes, try again next tick
				s.Logger.Warnw("failed to renew migration lock",
					"migration_id", migrationID,
					"error", err)
				continue
			}

			s.Logger.Errorw("lost migration lock",
				"migration_id", migrationID,
				"execution_id", run.executionID,
				"error", err)
			run.leaseLost.Store(true)
			run.cancel()
			return
		}
	}()

	return func() {
		close(done)
		wg.Wait()
	}
}

// register makes the execution cancellable. Only one execution of a
// migration may be registered at a time.
func (s *migrationExecutorService) register(migrationID, executionID string) (*runningExecution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if held, ok := s.running[migrationID]; ok {
		return nil, ierr.NewError("migration is already executing").
			WithHintf("Migration %s is being executed by another request", migrationID).
			WithReportableDetails(map[string]any{
				"migration_id": migrationID,
				"execution_id": held.executionID,
			}).
			Mark(ierr.ErrInvalidState)
	}

	run := &runningExecution{
		executionID: executionID,
		stop:        make(chan struct{}),
	}
	s.running[migrationID] = run
	return run, nil
}

func (s *migrationExecutorService) unregister(migrationID string, run *runningExecution) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running[migrationID] == run {
		delete(s.running, migrationID)
	}
}
