package jobs

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultReconcileSchedule runs the sweep at the top of every hour.
const DefaultReconcileSchedule = "0 * * * *"

const reconcileTimeout = 15 * time.Minute

// CronManager manages scheduled jobs
type CronManager struct {
	cron       *cron.Cron
	reconciler *Reconciler
	logger     *log.Logger
}

// NewCronManager creates a new cron manager
func NewCronManager(reconciler *Reconciler, logger *log.Logger) *CronManager {
	if logger == nil {
		logger = log.Default()
	}

	return &CronManager{
		// A sweep still running when the next one is due is skipped.
		cron:       cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		reconciler: reconciler,
		logger:     logger,
	}
}

// SetupJobs configures all scheduled jobs. An empty schedule uses
// DefaultReconcileSchedule.
func (cm *CronManager) SetupJobs(schedule string) error {
	if schedule == "" {
		schedule = DefaultReconcileSchedule
	}

	if _, err := cm.cron.AddFunc(schedule, cm.runReconcile); err != nil {
		return err
	}

	cm.logger.Printf("✅ Cron jobs configured (reconcile: %s)", schedule)
	return nil
}

func (cm *CronManager) runReconcile() {
	cm.logger.Println("🕐 Running subscription reconciliation...")

	ctx, cancel := context.WithTimeout(context.Background(), reconcileTimeout)
	defer cancel()

	report, err := cm.reconciler.Run(ctx)
	if err != nil {
		cm.logger.Printf("❌ Subscription reconciliation failed: %v", err)
		return
	}

	cm.logger.Printf("✅ Reconciliation done: checked=%d applied=%d skipped=%d failed=%d",
		report.Checked, report.Applied, report.Skipped, report.Failed)
}

// Start starts the cron scheduler
func (cm *CronManager) Start() {
	cm.logger.Println("🚀 Starting cron scheduler...")
	cm.cron.Start()
}

// Stop stops the scheduler and waits for a running job to finish.
func (cm *CronManager) Stop() {
	cm.logger.Println("🛑 Stopping cron scheduler...")
	<-cm.cron.Stop().Done()
}
