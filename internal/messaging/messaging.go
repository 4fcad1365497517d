package messaging

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	GradingQueue    = "grading_queue"
	RetryDelay      = 5 * time.Second
	MaxConnectRetry = 5
)

type Task interface {
	Type() string

	Payload() []byte

	Ack() error

	Nack() error

	Reject() error
}

type GradingTaskPayload struct {
	TaskId uuid.UUID
}

type Publisher interface {
	PublishGradingTask(ctx context.Context, payload GradingTaskPayload) error

	Close()
}

type Reciever interface {
	Tasks() <-chan Task

	Close()
}
