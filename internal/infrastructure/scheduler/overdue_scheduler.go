package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	appbilling "github.com/bizledger/backend/internal/application/billing"
	"github.com/bizledger/backend/internal/domain/billing"
	"github.com/google/uuid"
)

// cronTickerInterval is the interval at which the cron scheduler checks for execution
const cronTickerInterval = 1 * time.Minute

// ErrSchedulerNotRunning is returned when an operation requires a running scheduler
var ErrSchedulerNotRunning = errors.New("scheduler is not running")

// ErrInvalidConfig is returned when scheduler configuration is invalid
var ErrInvalidConfig = errors.New("invalid scheduler configuration")

// OverdueSweeper runs the overdue sweep for one business
type OverdueSweeper interface {
	UpdateOverdueInvoices(ctx context.Context, businessID uuid.UUID, asOf time.Time) (*appbilling.OverdueSweepResult, error)
}

// OverdueSchedulerConfig holds configuration for the cron-based overdue sweep
type OverdueSchedulerConfig struct {
	// Enabled indicates if the cron scheduler is enabled
	Enabled bool
	// CronHour is the hour (0-23) to run the daily sweep
	CronHour int
	// CronMinute is the minute (0-59) to run the daily sweep
	CronMinute int
	// DailyCronSchedule is the cron expression (parsed to extract hour/minute)
	DailyCronSchedule string
	// JobTimeout is the maximum time a full sweep run can take
	JobTimeout time.Duration
}

// DefaultOverdueSchedulerConfig returns default overdue scheduler configuration
// Defaults to running at 2:00 AM daily
func DefaultOverdueSchedulerConfig() OverdueSchedulerConfig {
	return OverdueSchedulerConfig{
		Enabled:           true,
		CronHour:          2,
		CronMinute:        0,
		DailyCronSchedule: "0 2 * * *",
		JobTimeout:        30 * time.Minute,
	}
}

// ParseCronSchedule parses a cron expression "minute hour * * *" to extract hour and minute
// Returns defaults (2:00) if parsing fails or expression is empty
func ParseCronSchedule(cronExpr string) (hour, minute int, err error) {
	hour = 2
	minute = 0

	if cronExpr == "" {
		return hour, minute, nil
	}

	parts := strings.Fields(cronExpr)
	if len(parts) < 2 {
		return hour, minute, nil
	}

	if parts[0] != "*" {
		if val, parseErr := parseIntOrDefault(parts[0], 0); parseErr == nil {
			minute = val
		}
	}
	if parts[1] != "*" {
		if val, parseErr := parseIntOrDefault(parts[1], 2); parseErr == nil {
			hour = val
		}
	}

	if minute < 0 || minute > 59 {
		return 2, 0, fmt.Errorf("minute must be 0-59, got %d", minute)
	}
	if hour < 0 || hour > 23 {
		return 2, 0, fmt.Errorf("hour must be 0-23, got %d", hour)
	}

	return hour, minute, nil
}

// parseIntOrDefault parses an int string or returns default
func parseIntOrDefault(s string, defaultVal int) (int, error) {
	if s == "" || s == "*" {
		return defaultVal, nil
	}
	var val int
	for _, c := range s {
		if c < '0' || c > '9' {
			return defaultVal, ErrInvalidConfig
		}
		val = val*10 + int(c-'0')
	}
	return val, nil
}

// OverdueScheduler flags overdue invoices on a daily cron, fanning out across
// every business known to the ledger.
type OverdueScheduler struct {
	config       OverdueSchedulerConfig
	sweeper      OverdueSweeper
	businessRepo billing.BusinessRepository
	logger       *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool

	lastRunAt *time.Time
	nextRunAt *time.Time
}

// NewOverdueScheduler creates a new cron-based overdue scheduler
func NewOverdueScheduler(
	config OverdueSchedulerConfig,
	sweeper OverdueSweeper,
	businessRepo billing.BusinessRepository,
	logger *zap.Logger,
) *OverdueScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OverdueScheduler{
		config:       config,
		sweeper:      sweeper,
		businessRepo: businessRepo,
		logger:       logger,
	}
}

// Start starts the cron scheduler
func (s *OverdueScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.calculateNextRunTime()

	s.wg.Add(1)
	go s.cronLoop(ctx)

	s.logger.Info("Overdue scheduler started",
		zap.Int("cron_hour", s.config.CronHour),
		zap.Int("cron_minute", s.config.CronMinute),
		zap.Timep("next_run_at", s.nextRunAt),
	)

	return nil
}

// Stop stops the cron scheduler
func (s *OverdueScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Overdue scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Overdue scheduler stop timed out")
		return ctx.Err()
	}
}

// cronLoop runs the main cron loop
func (s *OverdueScheduler) cronLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(cronTickerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if s.shouldRun(now) {
				s.runSweep(ctx)
				s.calculateNextRunTime()
			}
		}
	}
}

// shouldRun checks if the cron should run at the given time
func (s *OverdueScheduler) shouldRun(now time.Time) bool {
	return now.Hour() == s.config.CronHour && now.Minute() == s.config.CronMinute
}

// calculateNextRunTime calculates the next run time
func (s *OverdueScheduler) calculateNextRunTime() {
	now := time.Now()
	next := time.Date(now.Year(), now.Month(), now.Day(), s.config.CronHour, s.config.CronMinute, 0, 0, now.Location())
	if now.After(next) {
		next = next.AddDate(0, 0, 1)
	}

	s.mu.Lock()
	s.nextRunAt = &next
	s.mu.Unlock()
}

// runSweep runs the overdue sweep for every business
func (s *OverdueScheduler) runSweep(ctx context.Context) {
	now := time.Now()
	s.mu.Lock()
	s.lastRunAt = &now
	s.mu.Unlock()

	if s.config.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.JobTimeout)
		defer cancel()
	}

	businessIDs, err := s.businessRepo.ListBusinessIDs(ctx)
	if err != nil {
		s.logger.Error("Failed to list businesses for overdue sweep", zap.Error(err))
		return
	}

	s.logger.Info("Starting overdue sweep", zap.Int("business_count", len(businessIDs)))

	var flagged, conflicts int
	for _, businessID := range businessIDs {
		result, err := s.sweeper.UpdateOverdueInvoices(ctx, businessID, now)
		if err != nil {
			s.logger.Error("Overdue sweep failed for business",
				zap.String("business_id", businessID.String()),
				zap.Error(err),
			)
			continue
		}
		flagged += result.Flagged
		conflicts += result.Conflicts
	}

	s.logger.Info("Overdue sweep finished for all businesses",
		zap.Int("business_count", len(businessIDs)),
		zap.Int("flagged", flagged),
		zap.Int("conflicts", conflicts),
	)
}

// TriggerManualRun triggers a manual run of the overdue sweep
// Note: Uses background context to avoid premature cancellation when HTTP request completes
func (s *OverdueScheduler) TriggerManualRun(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.mu.Unlock()

	go s.runSweep(context.Background())
	return nil
}

// GetStatus returns the current status of the cron scheduler
func (s *OverdueScheduler) GetStatus() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	return map[string]any{
		"enabled":     s.config.Enabled,
		"is_running":  s.isRunning,
		"cron_hour":   s.config.CronHour,
		"cron_minute": s.config.CronMinute,
		"last_run_at": s.lastRunAt,
		"next_run_at": s.nextRunAt,
	}
}

// GetNextRunAt returns when the next scheduled run will occur
func (s *OverdueScheduler) GetNextRunAt() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextRunAt
}

// GetLastRunAt returns when the last run occurred
func (s *OverdueScheduler) GetLastRunAt() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRunAt
}
