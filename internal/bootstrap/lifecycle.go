package bootstrap

import (
	"context"
	"sync"
	"time"

	"crisiswatch/internal/adapters/kafka"
	redisclient "crisiswatch/internal/adapters/redis"
	"crisiswatch/internal/api"
	"crisiswatch/internal/workers"
	"crisiswatch/pkg/errors"
	"crisiswatch/pkg/logger"
)

// Lifecycle manages graceful shutdown of components
type Lifecycle struct {
	shutdownTimeout time.Duration
}

// NewLifecycle creates a new lifecycle manager
func NewLifecycle() *Lifecycle {
	return &Lifecycle{
		shutdownTimeout: 60 * time.Second,
	}
}

// Shutdown performs coordinated cleanup of all components in order:
// stop accepting requests, stop workers, unblock the consumer before waiting
// for goroutines, close the producer after the consumer, flush errors and
// logs, close the cache last.
func (l *Lifecycle) Shutdown(
	wg *sync.WaitGroup,
	httpServer *api.Server,
	workerScheduler *workers.Scheduler,
	refreshConsumer *kafka.Consumer,
	kafkaProducer *kafka.Producer,
	redisClient *redisclient.Client,
	errorTracker errors.Tracker,
	log *logger.Logger,
) {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), l.shutdownTimeout)
	defer shutdownCancel()

	// ========================================
	// Step 1: Stop HTTP Server (10s timeout)
	// ========================================
	log.Info("[1/7] Stopping HTTP server...")
	if httpServer != nil {
		httpCtx, httpCancel := context.WithTimeout(shutdownCtx, 10*time.Second)
		if err := httpServer.Shutdown(httpCtx); err != nil {
			log.Errorw("HTTP server shutdown failed", "error", err)
		}
		httpCancel()
	}

	// ========================================
	// Step 2: Stop Background Workers
	// ========================================
	log.Info("[2/7] Stopping background workers...")
	if workerScheduler != nil && workerScheduler.IsRunning() {
		if err := workerScheduler.Stop(); err != nil {
			log.Errorw("Workers shutdown failed", "error", err)
		} else {
			log.Info("✓ Workers stopped")
		}
	}

	// ========================================
	// Step 3: Close Kafka Consumer
	// Unblocks ReadMessage before goroutines are awaited
	// ========================================
	log.Info("[3/7] Closing Kafka consumer...")
	if refreshConsumer != nil {
		if err := refreshConsumer.Close(); err != nil {
			log.Errorw("Kafka consumer close failed", "error", err)
		}
	}

	// ========================================
	// Step 4: Wait for Goroutines
	// ========================================
	log.Info("[4/7] Waiting for goroutines...")
	l.waitForGoroutines(wg, 10*time.Second, log)

	// ========================================
	// Step 5: Close Kafka Producer
	// ========================================
	log.Info("[5/7] Closing Kafka producer...")
	if kafkaProducer != nil {
		if err := kafkaProducer.Close(); err != nil {
			log.Errorw("Kafka producer close failed", "error", err)
		} else {
			log.Info("✓ Kafka producer closed")
		}
	}

	// ========================================
	// Step 6: Flush Error Tracker and Logs
	// ========================================
	log.Info("[6/7] Flushing error tracker and logs...")
	l.flushErrorTracker(shutdownCtx, errorTracker, log)
	_ = logger.Sync()

	// ========================================
	// Step 7: Close Cache
	// ========================================
	log.Info("[7/7] Closing cache connection...")
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Errorw("Redis close failed", "error", err)
		}
	}

	log.Info("✅ Graceful shutdown complete")
}

// waitForGoroutines waits for all goroutines with a timeout
func (l *Lifecycle) waitForGoroutines(wg *sync.WaitGroup, timeout time.Duration, log *logger.Logger) {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info("✓ All goroutines finished")
	case <-time.After(timeout):
		log.Warnw("⚠ Some goroutines did not finish within timeout", "timeout", timeout)
	}
}

// flushErrorTracker flushes the error tracker (Sentry, etc.)
func (l *Lifecycle) flushErrorTracker(ctx context.Context, tracker errors.Tracker, log *logger.Logger) {
	if tracker == nil {
		return
	}

	flushCtx, flushCancel := context.WithTimeout(ctx, 3*time.Second)
	defer flushCancel()

	if err := tracker.Flush(flushCtx); err != nil {
		log.Errorw("Error tracker flush failed", "error", err)
	}
}
