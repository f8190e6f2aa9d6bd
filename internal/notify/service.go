package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kassaflow/ledger/internal/config"
	"github.com/kassaflow/ledger/internal/queue"
	"github.com/kassaflow/ledger/pkg/logger"
	"github.com/kassaflow/ledger/pkg/redis"
	"github.com/kassaflow/ledger/pkg/worker"
)

const DeliveryTimeout = time.Second * 15
const HealthInterval = time.Second * 30
const ShutdownTimeout = time.Minute

const consumerInstances = 4
const workerCount = 50

// Processor handles one queued event.
type Processor interface {
	Process(ctx context.Context, message *queue.Message) error
	GetType() string
}

// NotifierService consumes the operation-event stream and hands each event
// to the registered processor through a shared worker pool.
type NotifierService struct {
	adapter   redis.RedisAdapter
	queues    []*queue.Queue
	processor Processor
	metrics   *ServiceMetrics
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	worker    *worker.WorkerManager
}

func NewNotifierService(redisAdapter redis.RedisAdapter) (*NotifierService, error) {
	ctx, cancel := context.WithCancel(context.Background())
	service := &NotifierService{
		adapter: redisAdapter,
		queues:  make([]*queue.Queue, 0),
		metrics: NewServiceMetrics(),
		ctx:     ctx,
		cancel:  cancel,
		worker:  worker.NewWorkerManager(10_000, workerCount, nil),
	}
	return service, nil
}

func (s *NotifierService) RegisterProcessor(processor Processor) {
	s.processor = processor
	logger.Info("Registered processor", "type", processor.GetType())
}

func (s *NotifierService) Start() error {
	logger.Info("Starting Notifier Service...")

	s.worker.SetWorker(s.workerHandler)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.worker.Start(); err != nil {
			logger.Error("Worker manager stopped", "error", err)
		}
	}()

	for i := 0; i < consumerInstances; i++ {
		queueConfig := queue.QueueConfig{
			Name:              config.Get().QueueName,
			ConsumerGroup:     config.Get().QueueConsumerGroup,
			ConsumerName:      config.Get().QueueConsumerName,
			MaxRetries:        config.Get().QueueMaxRetries,
			VisibilityTimeout: config.Get().QueueVisibilityTimeout,
			PollInterval:      config.Get().QueuePollInterval,
			BatchSize:         config.Get().QueueBatchSize,
			MaxLen:            config.Get().QueueMaxLen,
			EnableDLQ:         config.Get().QueueEnableDLQ,
		}
		queueConfig.ConsumerName = fmt.Sprintf("%s-instance-%d", queueConfig.ConsumerName, i)

		q, err := queue.NewQueue(s.adapter, queueConfig)
		if err != nil {
			return fmt.Errorf("failed to create queue %d: %w", i, err)
		}

		if err := q.Consume(s.messageHandler); err != nil {
			return fmt.Errorf("failed to start consumer %d: %w", i, err)
		}

		s.queues = append(s.queues, q)
		logger.Info("Started consumer instance", "instance", i)
	}

	s.wg.Add(2)
	go s.metricsReporter()
	go s.healthChecker()

	logger.Info("Notifier Service started", "consumers", len(s.queues), "workers", workerCount)
	return nil
}

func (s *NotifierService) metricsReporter() {
	defer s.wg.Done()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.reportMetrics()
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *NotifierService) reportMetrics() {
	stats := s.metrics.GetStats()

	logger.Info("Notifier metrics", "total_delivered", stats["total_delivered"], "total_failed", stats["total_failed"], "rate_per_second", stats["rate_per_second"], "avg_duration_ms", stats["avg_duration_ms"], "uptime_seconds", stats["uptime_seconds"])

	for i, q := range s.queues {
		if qStats, err := q.GetStats(); err == nil {
			logger.Info("Queue stats", "queue", i, "total", qStats.TotalMessages, "pending", qStats.PendingMessages)
		}
	}
}

func (s *NotifierService) healthChecker() {
	defer s.wg.Done()

	ticker := time.NewTicker(HealthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.performHealthCheck()
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *NotifierService) performHealthCheck() {
	if err := s.adapter.Client().Ping(context.Background()).Err(); err != nil {
		logger.Error("HEALTH CHECK FAILED: Redis connection error", "error", err)
		return
	}

	for i, q := range s.queues {
		stats, err := q.GetStats()
		if err != nil {
			logger.Warn("HEALTH CHECK WARNING: Queue stats unavailable", "queue", i, "error", err)
			continue
		}

		if stats.PendingMessages > 10000 {
			logger.Warn("HEALTH CHECK WARNING: Queue has high lag", "queue", i, "pending_messages", stats.PendingMessages)
		}
	}

	logger.Info("HEALTH CHECK: OK - Service healthy")
}

func (s *NotifierService) Stop() {
	logger.Info("Shutting down Notifier Service...")

	s.cancel()

	timeout := ShutdownTimeout
	stopChan := make(chan bool, len(s.queues))

	for i, q := range s.queues {
		go func(index int, queue *queue.Queue) {
			if err := queue.Stop(timeout); err != nil {
				logger.Error("Error stopping queue", "queue", index, "error", err)
			}
			stopChan <- true
		}(i, q)
	}

	for range s.queues {
		select {
		case <-stopChan:
		case <-time.After(timeout + 5*time.Second):
			logger.Warn("Timeout waiting for queues to stop")
		}
	}

	s.worker.Exit()
	s.wg.Wait()
	s.reportMetrics()

	logger.Info("Notifier Service stopped")
}

type jobResult struct {
	msg        *queue.Message
	resultChan chan error
	ctx        context.Context
}

// messageHandler receives messages from the queue and enqueues them to the
// worker pool, blocking until the worker reports the outcome.
func (s *NotifierService) messageHandler(ctx context.Context, msg *queue.Message) error {
	resultChan := make(chan error, 1)

	msgCtx, cancel := context.WithTimeout(ctx, DeliveryTimeout+time.Second)
	defer cancel()

	job := &jobResult{
		msg:        msg,
		resultChan: resultChan,
		ctx:        msgCtx,
	}

	s.worker.Enqueue(job)

	select {
	case err := <-resultChan:
		return err
	case <-msgCtx.Done():
		return fmt.Errorf("timeout waiting for worker to process event: %w", msgCtx.Err())
	}
}

func (s *NotifierService) workerHandler(workerIndex int, job interface{}) {
	jobRes, ok := job.(*jobResult)
	if !ok {
		logger.Error("Invalid job type in worker", "worker", workerIndex)
		return
	}

	msg := jobRes.msg
	start := time.Now()
	var resultErr error

	select {
	case <-jobRes.ctx.Done():
		logger.Warn("Job context cancelled before processing started", "worker", workerIndex)
		return
	default:
	}

	if s.processor == nil {
		logger.Info("No processor registered", "worker", workerIndex)
		s.metrics.RecordFailure()
		resultErr = nil // ACK - nothing will handle it on retry either
	} else {
		if err := s.processor.Process(jobRes.ctx, msg); err != nil {
			s.metrics.RecordFailure()
			logger.Error("Failed to process event", "worker", workerIndex, "error", err)
			resultErr = err // NACK
		} else {
			s.metrics.RecordSuccess(time.Since(start))
			resultErr = nil // ACK
		}
	}

	select {
	case jobRes.resultChan <- resultErr:
	case <-jobRes.ctx.Done():
		logger.Warn("Context cancelled while sending result, message handler timed out", "worker", workerIndex)
	}
}
