// Package errors provides error classification helpers for observability.
package errors

import (
	goerrors "errors"
	"reflect"
	"strings"

	apperrors "github.com/Rainking6693/autobolt-scheduler/internal/errors"
)

// Classify returns a normalized error type name suitable for tagging
// metrics and logs. AppError codes map directly; other errors classify by
// their innermost concrete type.
func Classify(err error) string {
	if err == nil {
		return ""
	}

	if code := apperrors.GetCode(err); code != "" {
		return string(code)
	}

	// Unwrap to the innermost error for better signal.
	for {
		unwrapped := goerrors.Unwrap(err)
		if unwrapped == nil {
			break
		}
		err = unwrapped
	}

	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "unknown"
	}

	name := strings.ToLower(strings.ReplaceAll(t.String(), "*", ""))
	name = strings.ReplaceAll(name, ".", "_")
	if name == "" {
		return "unknown"
	}
	return name
}
