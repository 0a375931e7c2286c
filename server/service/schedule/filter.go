package schedule

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/cel-go/cel"
)

// SlotFilter drops suggested slots that do not satisfy a user-supplied
// CEL expression, for example:
//
//	start_hour >= 9 && end_hour <= 18 && weekday != 6
//
// Available variables: start_hour, start_minute, end_hour, end_minute,
// duration_minutes, weekday (0 = Sunday) and reason.
type SlotFilter struct {
	expr    string
	program cel.Program
}

// NewSlotFilter compiles expr. The expression must evaluate to a bool.
func NewSlotFilter(expr string) (*SlotFilter, error) {
	env, err := cel.NewEnv(
		cel.Variable("start_hour", cel.IntType),
		cel.Variable("start_minute", cel.IntType),
		cel.Variable("end_hour", cel.IntType),
		cel.Variable("end_minute", cel.IntType),
		cel.Variable("duration_minutes", cel.IntType),
		cel.Variable("weekday", cel.IntType),
		cel.Variable("reason", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cel env: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("invalid slot filter %q: %w", expr, issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("slot filter %q must evaluate to bool, got %s", expr, ast.OutputType())
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to build slot filter program: %w", err)
	}

	return &SlotFilter{expr: expr, program: program}, nil
}

// String returns the source expression.
func (f *SlotFilter) String() string {
	if f == nil {
		return ""
	}
	return f.expr
}

// Apply returns the slots the expression accepts, in order. A nil filter
// accepts everything. Slots whose evaluation fails are dropped.
func (f *SlotFilter) Apply(slots []SuggestedSlot, loc *time.Location) []SuggestedSlot {
	if f == nil || len(slots) == 0 {
		return slots
	}

	kept := slots[:0:0]
	for _, slot := range slots {
		ok, err := f.Match(slot, loc)
		if err != nil {
			slog.Warn("slot filter evaluation failed",
				"filter", f.expr,
				"slot", slot.Label,
				"error", err,
			)
			continue
		}
		if ok {
			kept = append(kept, slot)
		}
	}
	return kept
}

// Match evaluates the expression for a single slot.
func (f *SlotFilter) Match(slot SuggestedSlot, loc *time.Location) (bool, error) {
	start := time.Unix(slot.StartTs, 0).In(loc)
	end := time.Unix(slot.EndTs, 0).In(loc)

	out, _, err := f.program.Eval(map[string]any{
		"start_hour":       int64(start.Hour()),
		"start_minute":     int64(start.Minute()),
		"end_hour":         int64(end.Hour()),
		"end_minute":       int64(end.Minute()),
		"duration_minutes": (slot.EndTs - slot.StartTs) / 60,
		"weekday":          int64(start.Weekday()),
		"reason":           string(slot.Reason),
	})
	if err != nil {
		return false, err
	}

	ok, isBool := out.Value().(bool)
	if !isBool {
		return false, fmt.Errorf("slot filter returned %T", out.Value())
	}
	return ok, nil
}
