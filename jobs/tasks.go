package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// Queue and task type names.
const (
	QueueDefault = "default"

	// TaskStockReconcile realigns cached product quantities with the
	// stock ledger across all tenants.
	TaskStockReconcile = "stock:reconcile"
	// TaskLowStockCheck scans one tenant for products at or below its
	// low-stock threshold. Enqueued after every checkout.
	TaskLowStockCheck = "stock:lowcheck"
	// TaskIdempotencyCleanup prunes expired idempotency keys.
	TaskIdempotencyCleanup = "idempotency:cleanup"
)

// LowStockPayload scopes a low-stock sweep to one tenant.
type LowStockPayload struct {
	OrganizationID int64 `json:"organization_id"`
}

// NewStockReconcileTask constructs the nightly reconcile task.
func NewStockReconcileTask() *asynq.Task {
	return asynq.NewTask(TaskStockReconcile, nil)
}

// NewLowStockCheckTask constructs a tenant-scoped low-stock sweep task.
func NewLowStockCheckTask(orgID int64) (*asynq.Task, error) {
	data, err := json.Marshal(LowStockPayload{OrganizationID: orgID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLowStockCheck, data), nil
}

// NewIdempotencyCleanupTask constructs the cleanup task.
func NewIdempotencyCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskIdempotencyCleanup, nil)
}

// decodePayload unmarshals a task payload, mapping malformed payloads to
// SkipRetry so poison tasks do not loop.
func decodePayload(t *asynq.Task, v any) error {
	if err := json.Unmarshal(t.Payload(), v); err != nil {
		return asynq.SkipRetry
	}
	return nil
}
