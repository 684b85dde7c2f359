package tools

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Tool error codes.
const (
	CodeUnknownTool   = "ERR_UNKNOWN_TOOL"
	CodeInvalidParams = "ERR_INVALID_PARAMS"
	CodeParse         = "ERR_PARSE"
	CodeDuplicateKey  = "ERR_DUPLICATE_KEY"
	CodeNotFound      = "ERR_NOT_FOUND"
	CodeEmulator      = "ERR_EMULATOR"
)

// ToolError is a machine-readable error body for surfacing back to the agent as JSON.
type ToolError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error returns a compact, single-line JSON string to keep tool_result payloads small.
func (e *ToolError) Error() string {
	b, _ := json.Marshal(e)
	return string(b)
}

// Is matches any *ToolError with the same code, so callers can test
// errors.Is(err, &ToolError{Code: CodeNotFound}).
func (e *ToolError) Is(target error) bool {
	var t *ToolError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

func toolErr(code, format string, args ...any) *ToolError {
	return &ToolError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func invalidParams(format string, args ...any) *ToolError {
	return toolErr(CodeInvalidParams, format, args...)
}

// required reports the first empty field as invalid params.
func required(fields ...string) error {
	for i := 0; i+1 < len(fields); i += 2 {
		if strings.TrimSpace(fields[i+1]) == "" {
			return invalidParams("missing required parameter %q", fields[i])
		}
	}
	return nil
}

// CodeOf returns the tool error code carried by err, or "".
func CodeOf(err error) string {
	var te *ToolError
	if errors.As(err, &te) {
		return te.Code
	}
	return ""
}
