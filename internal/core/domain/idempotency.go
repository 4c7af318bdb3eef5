package domain

import "strings"

// MaxIdempotencyKeyLength bounds client-supplied keys.
const MaxIdempotencyKeyLength = 255

// NormalizeIdempotencyKey trims the raw header value. Empty keys are treated
// as absent and yield nil.
func NormalizeIdempotencyKey(raw string) *string {
	key := strings.TrimSpace(raw)
	if key == "" {
		return nil
	}
	return &key
}
