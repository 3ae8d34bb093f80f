package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// QuoteExpiryJobName is the name of the quote expiry sweep job
const QuoteExpiryJobName = "quote_expiry"

// QuoteExpiryService defines the interface for sweeping expired quotes.
// This interface allows the job to call the service without importing
// the service package directly.
type QuoteExpiryService interface {
	// SweepExpired marks sent quotes whose expiry has passed and returns
	// how many were flagged in this pass.
	SweepExpired(ctx context.Context) (int, error)
}

// QuoteExpiryJob flags sent quotes whose expiry date has passed. Expiry
// never forces a terminal status; the quote stays decidable and the
// activity log records that it expired.
type QuoteExpiryJob struct {
	quoteService QuoteExpiryService
	logger       *zap.Logger
	timeout      time.Duration
}

// NewQuoteExpiryJob creates a new quote expiry sweep job.
// The timeout controls how long one sweep is allowed to run.
func NewQuoteExpiryJob(quoteService QuoteExpiryService, logger *zap.Logger, timeout time.Duration) *QuoteExpiryJob {
	return &QuoteExpiryJob{
		quoteService: quoteService,
		logger:       logger,
		timeout:      timeout,
	}
}

// Run executes one expiry sweep.
// This is called by the scheduler according to the cron expression.
func (j *QuoteExpiryJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()

	expired, err := j.quoteService.SweepExpired(ctx)
	if err != nil {
		j.logger.Error("quote expiry sweep failed",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)))
		return
	}

	if expired > 0 {
		j.logger.Info("quote expiry sweep completed",
			zap.Int("expired", expired),
			zap.Duration("duration", time.Since(start)))
	}
}

// RegisterQuoteExpiryJob registers the expiry sweep with the scheduler.
// The cronExpr should be a valid cron expression (e.g., "0 0 * * * *" for the top of every hour).
// If runOnStartup is true, one sweep also runs immediately in a background
// goroutine so a restarted instance catches up without blocking startup.
func RegisterQuoteExpiryJob(scheduler *Scheduler, quoteService QuoteExpiryService, logger *zap.Logger, cronExpr string, timeout time.Duration, runOnStartup bool) error {
	job := NewQuoteExpiryJob(quoteService, logger, timeout)

	if runOnStartup {
		go job.Run()
	}

	return scheduler.AddJob(QuoteExpiryJobName, cronExpr, job.Run)
}
