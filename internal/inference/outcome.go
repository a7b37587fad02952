package inference

import "fmt"

// Outcome is what the model produced for one turn: either PlainText or ToolCall.
type Outcome interface {
	isOutcome()
}

// PlainText is a free-text answer.
type PlainText struct {
	Content string
}

// ToolCall is a request from the model to run a named function.
type ToolCall struct {
	FunctionName string
	Arguments    map[string]any
}

func (PlainText) isOutcome() {}
func (ToolCall) isOutcome()  {}

// StringArg returns the named argument as a string. Non-string scalars are formatted.
func (c ToolCall) StringArg(name string) (string, bool) {
	v, ok := c.Arguments[name]
	if !ok || v == nil {
		return "", false
	}
	switch s := v.(type) {
	case string:
		return s, true
	case map[string]any, []any:
		return "", false
	default:
		return fmt.Sprint(s), true
	}
}
