package notify

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/kassaflow/ledger/internal/model"
	"github.com/kassaflow/ledger/internal/queue"
	"github.com/kassaflow/ledger/pkg/logger"
)

// OperationEventProcessor fans out operation events to the configured
// webhook endpoints with at-most-once delivery per event id.
type OperationEventProcessor struct {
	client      *WebhookClient
	idempotency *IdempotencyService
}

func NewOperationEventProcessor(client *WebhookClient, idempotency *IdempotencyService) *OperationEventProcessor {
	return &OperationEventProcessor{
		client:      client,
		idempotency: idempotency,
	}
}

func (p *OperationEventProcessor) GetType() string {
	return "operation-event"
}

// Process delivers one queued event with idempotency guarantees.
func (p *OperationEventProcessor) Process(ctx context.Context, queueMessage *queue.Message) error {
	var event model.OperationEvent
	if err := json.Unmarshal(queueMessage.Data, &event); err != nil {
		logger.Error("Failed to unmarshal operation event", "message_id", queueMessage.ID, "error", err)
		return err // malformed payload moves to DLQ
	}

	eventID := queueMessage.ID

	deliveryCtx, err := p.idempotency.AcquireDeliveryLock(ctx, eventID)
	if err != nil {
		if errors.Is(err, ErrAlreadyDelivered) {
			logger.Info("Event already delivered, skipping", "event_id", eventID)
			return nil
		}
		if errors.Is(err, ErrMaxRetriesExceeded) {
			// ACK so the message moves on; delivery gave up
			logger.Error("Max retries exceeded, dropping event", "event_id", eventID, "kind", event.Kind)
			return nil
		}
		if errors.Is(err, ErrLockAcquireFailed) {
			return errors.New("lock held by another consumer")
		}
		logger.Error("Failed to acquire delivery lock", "event_id", eventID, "error", err)
		return err
	}

	defer func() {
		if deliveryCtx.lockAcquired {
			p.idempotency.ReleaseLock(ctx, deliveryCtx)
		}
	}()

	logger.Info("Delivering operation event",
		"event_id", eventID,
		"kind", event.Kind,
		"operation_id", event.OperationID,
		"retry_count", deliveryCtx.RetryCount,
		"is_retry", deliveryCtx.IsRetry)

	if err := p.client.Deliver(ctx, &event); err != nil {
		logger.Error("Failed to deliver event", "event_id", eventID, "error", err)
		if markErr := p.idempotency.MarkFailure(ctx, deliveryCtx, err); markErr != nil {
			logger.Error("Failed to mark failure", "event_id", eventID, "error", markErr)
		}
		return err // NACK to retry from queue
	}

	if markErr := p.idempotency.MarkDelivered(ctx, deliveryCtx); markErr != nil {
		logger.Error("Failed to mark delivered", "event_id", eventID, "error", markErr)
		// Continue - the webhook went out
	}

	return nil
}
