package celengine

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"go.uber.org/zap"
)

// Predicate is a compiled boolean expression over a single map variable.
type Predicate struct {
	expr string
	prg  cel.Program
}

var programCache = sync.Map{}

// Compile builds a Predicate whose expression sees the input under varName.
// Programs are cached per (varName, expr).
func Compile(varName, expr string) (*Predicate, error) {
	key := varName + "\x00" + expr
	if v, ok := programCache.Load(key); ok {
		return v.(*Predicate), nil
	}

	env, err := cel.NewEnv(cel.Variable(varName, cel.MapType(cel.StringType, cel.DynType)))
	if err != nil {
		return nil, err
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("expression %q must evaluate to bool, got %s", expr, ast.OutputType())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, err
	}

	p := &Predicate{expr: expr, prg: prg}
	programCache.Store(key, p)
	return p, nil
}

func (p *Predicate) Expression() string {
	return p.expr
}

// Eval runs the predicate with vars bound as activation input.
func (p *Predicate) Eval(vars map[string]any) (bool, error) {
	out, _, err := p.prg.Eval(vars)
	if err != nil {
		return false, err
	}

	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expected bool from expression, got %T (%v)", out.Value(), out.Value())
	}
	return b, nil
}

// StructToMap flattens s through its json tags.
func StructToMap(s any) map[string]any {
	if s == nil {
		return map[string]any{}
	}

	b, err := json.Marshal(s)
	if err != nil {
		zap.L().Debug("failed StructToMap Marshal", zap.Error(err))
		return map[string]any{}
	}

	var result map[string]any
	if err := json.Unmarshal(b, &result); err != nil {
		zap.L().Debug("failed StructToMap Unmarshal", zap.Error(err))
		return map[string]any{}
	}

	return result
}
