package service

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/hray3182/daymemory/internal/common"
)

const (
	maxTitleLen     = 255
	maxRecipientLen = 100
	maxMemoLen      = 1000
	maxNameLen      = 255
	maxURLLen       = 2048
	maxOffsetDays   = 365
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", common.ErrValidation, fmt.Sprintf(format, args...))
}

// requireText trims s and checks it is non-empty and at most max runes.
func requireText(field, s string, max int) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", invalid("%s is required", field)
	}
	if utf8.RuneCountInString(s) > max {
		return "", invalid("%s must be at most %d characters", field, max)
	}
	return s, nil
}

func optionalText(field, s string, max int) (string, error) {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) > max {
		return "", invalid("%s must be at most %d characters", field, max)
	}
	return s, nil
}
