package space

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	maxNameLength    = 100
	maxCommentLength = 2000
)

// ValidateName checks a device display name.
func ValidateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidName)
	}
	if utf8.RuneCountInString(trimmed) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidName, maxNameLength)
	}
	return nil
}

// ValidateComment checks a device comment. Empty comments are allowed.
func ValidateComment(comment string) error {
	if utf8.RuneCountInString(comment) > maxCommentLength {
		return fmt.Errorf("%w: comment exceeds %d characters", ErrInvalidComment, maxCommentLength)
	}
	return nil
}
