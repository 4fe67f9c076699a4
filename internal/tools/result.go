// Package tools is the assistant-facing surface over the backing stores. Each
// tool validates its inputs, performs one operation, and reports the outcome
// as a flat Result map the conversational layer can serialize directly.
package tools

import "fmt"

// Result is a tool outcome. Every result carries "status" ("success" or
// "error") and "message"; tools add operation-specific fields alongside.
type Result map[string]any

// Success builds a success result with optional extra fields.
func Success(message string, fields map[string]any) Result {
	r := Result{"status": "success", "message": message}
	for k, v := range fields {
		r[k] = v
	}
	return r
}

// Errorf builds an error result.
func Errorf(format string, args ...any) Result {
	return Result{"status": "error", "message": fmt.Sprintf(format, args...)}
}

// OK reports whether the result is a success.
func (r Result) OK() bool {
	return r["status"] == "success"
}

// Message returns the result's human-readable message.
func (r Result) Message() string {
	msg, _ := r["message"].(string)
	return msg
}
