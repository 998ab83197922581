package tracing

import (
	"errors"
	"strings"

	"github.com/smallbiznis/nannyhub/internal/apperror"
	"go.opentelemetry.io/otel/attribute"
)

// Keys that may carry personal or payment data.
var blockedAttributeKeys = []string{
	"email",
	"phone",
	"address",
	"authorization",
	"token",
	"secret",
	"card",
	"password",
}

// SafeAttributes drops attributes whose key looks sensitive.
func SafeAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if isBlockedKey(string(attr.Key)) {
			continue
		}
		out = append(out, attr)
	}
	return out
}

// SafeError reduces err to its classification so raw messages, which may
// quote gateway payloads, never reach the trace backend.
func SafeError(err error) error {
	if err == nil {
		return nil
	}
	if code := apperror.CodeOf(err); code != "" {
		return errors.New(code)
	}
	return errors.New("internal_error")
}

func isBlockedKey(key string) bool {
	key = strings.ToLower(key)
	for _, blocked := range blockedAttributeKeys {
		if strings.Contains(key, blocked) {
			return true
		}
	}
	return false
}
