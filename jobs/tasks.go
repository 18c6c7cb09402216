package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAfterSalesDigest summarises orders due for an after-sales call.
	TaskAfterSalesDigest = "crm:aftersales:digest"
)

// AfterSalesDigestPayload carries scheduling metadata.
type AfterSalesDigestPayload struct {
	RequestedBy string    `json:"requested_by"`
	RequestedAt time.Time `json:"requested_at"`
}

// NewAfterSalesDigestTask constructs the digest task.
func NewAfterSalesDigestTask(payload AfterSalesDigestPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAfterSalesDigest, body, asynq.Queue(QueueDefault), asynq.MaxRetry(3)), nil
}
