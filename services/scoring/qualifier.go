package scoring

import (
	"studiodesk/pkg/celengine"
	"studiodesk/pkg/config"

	"go.uber.org/zap"
)

// Qualifier decides whether a task earns the weekly boost window bonus.
type Qualifier interface {
	Qualifies(task map[string]any) bool
}

type celQualifier struct {
	predicate *celengine.Predicate
}

type never struct{}

func (never) Qualifies(map[string]any) bool { return false }

// NewQualifier compiles SCORING.BOOST_QUALIFIER. The expression sees the task
// as `task`. An invalid expression disables the bonus.
func NewQualifier(cfg *config.Config) Qualifier {
	expr := cfg.Scoring.BoostQualifier
	if expr == "" {
		return never{}
	}

	p, err := celengine.Compile("task", expr)
	if err != nil {
		zap.L().Error("invalid boost qualifier, boost window disabled", zap.String("expression", expr), zap.Error(err))
		return never{}
	}
	return &celQualifier{predicate: p}
}

func (q *celQualifier) Qualifies(task map[string]any) bool {
	ok, err := q.predicate.Eval(map[string]any{"task": task})
	if err != nil {
		zap.L().Debug("boost qualifier evaluation failed", zap.String("expression", q.predicate.Expression()), zap.Error(err))
		return false
	}
	return ok
}
