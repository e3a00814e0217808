package errors

import (
	"math"
	"strings"
	"unicode"
)

// maxIDLength bounds asset, anchor and constraint identifiers.
const maxIDLength = 128

// ValidateID validates an asset, anchor or constraint identifier.
//
// The rules are intentionally conservative:
//   - No empty names
//   - No control characters or whitespace
//   - Maximum length of 128 characters
//
// kind is used in the error message only ("asset", "anchor", ...).
func ValidateID(kind, id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "%s id cannot be empty", kind)
	}

	if len(id) > maxIDLength {
		return New(ErrCodeInvalidInput, "%s id too long (max %d characters)", kind, maxIDLength)
	}

	for _, r := range id {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return New(ErrCodeInvalidInput, "%s id %q contains whitespace or control characters", kind, id)
		}
	}

	return nil
}

// ValidateFinite rejects NaN and infinite values.
func ValidateFinite(name string, vals ...float64) error {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return New(ErrCodeInvalidInput, "%s must be finite, got %v", name, v)
		}
	}
	return nil
}

// ValidateWeight checks a constraint weight. Weights must be non-negative;
// +Inf is allowed and marks the constraint as hard.
func ValidateWeight(id string, w float64) error {
	if math.IsNaN(w) || w < 0 || math.IsInf(w, -1) {
		return New(ErrCodeInvalidConstraint, "constraint %q: weight must be non-negative, got %v", id, w)
	}
	return nil
}

// ValidateFilename validates a problem filename for the HTTP API.
// It ensures the filename is a simple basename without path components.
func ValidateFilename(filename string) error {
	if filename == "" {
		return New(ErrCodeInvalidInput, "filename cannot be empty")
	}

	if strings.ContainsAny(filename, "/\\") {
		return New(ErrCodeInvalidInput, "filename cannot contain path separators")
	}

	if strings.Contains(filename, "..") || strings.ContainsRune(filename, 0) {
		return New(ErrCodeInvalidInput, "filename contains invalid characters")
	}

	return nil
}
