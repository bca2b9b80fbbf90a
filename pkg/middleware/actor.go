package middleware

import (
	"context"
	"crypto/subtle"
	"strings"

	"studiodesk/pkg/errutil"

	"github.com/gin-gonic/gin"
)

const (
	HeaderUserID          = "X-User-ID"
	HeaderSchedulerSecret = "X-Scheduler-Secret"

	// ActorScheduler is recorded as the actor for scheduler-driven changes.
	ActorScheduler = "scheduler"
	// ActorSystem is used when no caller identity was supplied.
	ActorSystem = "system"
)

type actorKey struct{}

var ActorContextKey = actorKey{}

// Actor puts the caller identity on the request context. Authentication happens
// upstream; this only carries the already-validated user id.
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := strings.TrimSpace(c.GetHeader(HeaderUserID))
		if actor == "" {
			actor = ActorSystem
		}
		ctx := WithActor(c.Request.Context(), actor)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, ActorContextKey, actor)
}

// GetActor returns the actor on ctx (default "system").
func GetActor(ctx context.Context) string {
	a, ok := ctx.Value(ActorContextKey).(string)
	if !ok || a == "" {
		return ActorSystem
	}
	return a
}

// SchedulerSecret rejects requests that do not carry the shared scheduler secret.
// An empty configured secret rejects everything.
func SchedulerSecret(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader(HeaderSchedulerSecret)
		if secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			_ = c.Error(errutil.Unauthorized("invalid scheduler secret", nil))
			c.Abort()
			return
		}
		c.Request = c.Request.WithContext(WithActor(c.Request.Context(), ActorScheduler))
		c.Next()
	}
}
