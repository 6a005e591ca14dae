// Package identity normalizes user and record identifiers so ownership checks
// compare like with like regardless of how the id was carried (native uuid,
// string, pointer, or a value exposing String()).
package identity

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Normalize returns the canonical string form of an identifier. The boolean is
// false when the value is empty or cannot be interpreted as an id.
func Normalize(v any) (string, bool) {
	switch id := v.(type) {
	case nil:
		return "", false
	case uuid.UUID:
		if id == uuid.Nil {
			return "", false
		}
		return id.String(), true
	case *uuid.UUID:
		if id == nil {
			return "", false
		}
		return Normalize(*id)
	case uuid.NullUUID:
		if !id.Valid {
			return "", false
		}
		return Normalize(id.UUID)
	case string:
		return normalizeString(id)
	case *string:
		if id == nil {
			return "", false
		}
		return normalizeString(*id)
	case []byte:
		if len(id) == 16 {
			if parsed, err := uuid.FromBytes(id); err == nil {
				return Normalize(parsed)
			}
		}
		return normalizeString(string(id))
	case fmt.Stringer:
		return normalizeString(id.String())
	default:
		return "", false
	}
}

func normalizeString(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false
	}
	if parsed, err := uuid.Parse(trimmed); err == nil {
		if parsed == uuid.Nil {
			return "", false
		}
		return parsed.String(), true
	}
	return strings.ToLower(trimmed), true
}

// Equal reports whether a and b identify the same principal. Unresolvable ids
// never match, including two empty values.
func Equal(a, b any) bool {
	left, ok := Normalize(a)
	if !ok {
		return false
	}
	right, ok := Normalize(b)
	if !ok {
		return false
	}
	return left == right
}

// Parse converts any supported representation into a uuid.
func Parse(v any) (uuid.UUID, error) {
	normalized, ok := Normalize(v)
	if !ok {
		return uuid.Nil, fmt.Errorf("invalid identifier %v", v)
	}
	return uuid.Parse(normalized)
}
