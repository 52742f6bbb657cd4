package xtables

import (
	"fmt"
	"strings"
)

// validateKey applies the key-validation rules from §6: non-empty, no
// space, no leading/trailing '.', no "..", no empty segment.
func validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: key must not be empty", ErrValidation)
	}
	if strings.ContainsRune(key, ' ') {
		return fmt.Errorf("%w: key %q contains a space", ErrValidation, key)
	}
	if strings.HasPrefix(key, ".") || strings.HasSuffix(key, ".") {
		return fmt.Errorf("%w: key %q has a leading or trailing dot", ErrValidation, key)
	}
	if strings.Contains(key, "..") {
		return fmt.Errorf("%w: key %q contains an empty segment", ErrValidation, key)
	}
	for _, seg := range strings.Split(key, ".") {
		if seg == "" {
			return fmt.Errorf("%w: key %q contains an empty segment", ErrValidation, key)
		}
	}
	return nil
}
