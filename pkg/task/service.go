package task

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

type Enqueuer interface {
	Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type enqueuerImpl struct {
	client *asynq.Client
}

// NewEnqueuer creates a new Enqueuer instance using asynq.Client.
func NewEnqueuer(client *asynq.Client) Enqueuer {
	return &enqueuerImpl{client: client}
}

func (e *enqueuerImpl) Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	info, err := e.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue task: %w", err)
	}
	return info, nil
}

// Submit enqueues background work without letting a failure reach the caller.
// It reports whether the task was accepted so callers and tests can observe it.
func Submit(ctx context.Context, e Enqueuer, taskType string, payload any, opts ...asynq.Option) bool {
	if e == nil {
		zap.L().Warn("no enqueuer configured, dropping background task", zap.String("task_type", taskType))
		return false
	}

	var body []byte
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			zap.L().Error("failed to encode task payload", zap.String("task_type", taskType), zap.Error(err))
			return false
		}
		body = b
	}

	info, err := e.Enqueue(context.WithoutCancel(ctx), asynq.NewTask(taskType, body), opts...)
	if err != nil {
		zap.L().Warn("failed to enqueue background task", zap.String("task_type", taskType), zap.Error(err))
		return false
	}

	fields := []zap.Field{zap.String("task_type", taskType)}
	if info != nil {
		fields = append(fields, zap.String("task_id", info.ID), zap.String("queue", info.Queue))
	}
	zap.L().Debug("background task enqueued", fields...)
	return true
}
