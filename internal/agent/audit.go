package agent

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/yolodolo42/sitepilot/internal/domain"
	"github.com/yolodolo42/sitepilot/internal/store"
)

type goalKey struct{}

// WithGoal attaches the goal text of the current run to ctx.
func WithGoal(ctx context.Context, goal string) context.Context {
	return context.WithValue(ctx, goalKey{}, goal)
}

// GoalFromContext returns the goal set by WithGoal, or "".
func GoalFromContext(ctx context.Context) string {
	goal, _ := ctx.Value(goalKey{}).(string)
	return goal
}

// Describer names the action a mutating call performs and the diff to record.
type Describer func(input json.RawMessage) (action string, diff map[string]any)

// Auditor records successful writes in the audit log.
type Auditor struct {
	Repo      store.Repository
	AgentName string
	Logger    *slog.Logger
}

// WithAudit wraps a mutating handler. The audit entry is appended only after
// the write succeeds; a failed append is logged and does not change the result.
func (a *Auditor) WithAudit(next Handler, describe Describer) Handler {
	return func(ctx context.Context, input json.RawMessage) (string, error) {
		out, err := next(ctx, input)
		if err != nil {
			return "", err
		}

		action, diff := describe(input)
		entry := &domain.AuditEntry{
			Goal:      GoalFromContext(ctx),
			AgentName: a.AgentName,
			Action:    action,
			Diff:      diff,
		}
		if err := a.Repo.AppendAudit(ctx, entry); err != nil {
			a.logger().Warn("audit append failed", "action", action, "err", err)
		}
		return out, nil
	}
}

func (a *Auditor) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.Default()
}
