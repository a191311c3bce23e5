package domain

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

var clipNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidateClipName accepts plain file names ending in .wav (case-insensitive).
func ValidateClipName(name string) error {
	if !clipNamePattern.MatchString(name) || len(name) > 128 {
		return fmt.Errorf("%w: %q", ErrInvalidClip, name)
	}
	if !strings.EqualFold(filepath.Ext(name), ".wav") {
		return fmt.Errorf("%w: %q must end in .wav", ErrInvalidClip, name)
	}
	return nil
}
