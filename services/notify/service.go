package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"studiodesk/pkg/errutil"

	"github.com/bwmarrin/snowflake"
	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Notifier delivers an in-app notification. Callers treat it as best-effort.
type Notifier interface {
	Notify(ctx context.Context, userID, kind string, payload map[string]any) error
}

type Service struct {
	db   *gorm.DB
	node *snowflake.Node
}

type Params struct {
	fx.In
	DB   *gorm.DB
	Node *snowflake.Node
}

func NewService(p Params) *Service {
	return &Service{db: p.DB, node: p.Node}
}

func (s *Service) Notify(ctx context.Context, userID, kind string, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	n := Notification{
		ID:      s.node.Generate().String(),
		UserID:  userID,
		Kind:    kind,
		Payload: body,
	}
	if err := s.db.WithContext(ctx).Create(&n).Error; err != nil {
		return err
	}

	zap.L().Info("notification stored",
		zap.String("user_id", userID),
		zap.String("kind", kind),
		zap.String("notification_id", n.ID),
	)
	return nil
}

func (s *Service) HandleDeliverTask(ctx context.Context, t *asynq.Task) error {
	var p DeliverPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("decode notification payload: %v: %w", err, asynq.SkipRetry)
	}
	if p.UserID == "" || p.Kind == "" {
		return fmt.Errorf("notification without recipient or kind: %w", asynq.SkipRetry)
	}
	return s.Notify(ctx, p.UserID, p.Kind, p.Payload)
}

func (s *Service) ListForUser(ctx context.Context, userID string, unreadOnly bool) ([]Notification, error) {
	query := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		query = query.Where("read_at IS NULL")
	}

	var out []Notification
	if err := query.Order("created_at DESC, id DESC").Limit(200).Find(&out).Error; err != nil {
		return nil, errutil.Internal("failed to list notifications", err)
	}
	return out, nil
}

// Dispatch calls n and swallows any failure.
func Dispatch(ctx context.Context, n Notifier, userID, kind string, payload map[string]any) {
	if n == nil || userID == "" {
		return
	}
	if err := n.Notify(ctx, userID, kind, payload); err != nil {
		zap.L().Warn("notification dispatch failed",
			zap.String("user_id", userID),
			zap.String("kind", kind),
			zap.Error(err),
		)
	}
}
