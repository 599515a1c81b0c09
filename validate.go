package cachify

import (
	"fmt"
	"strings"
)

// Ready-made CheckValue functions. Compose them with AllOf.

// NotZero rejects the zero value of V.
func NotZero[V comparable]() func(V) error {
	return func(v V) error {
		var zero V
		if v == zero {
			return fmt.Errorf("%w: zero value", ErrInvalid)
		}
		return nil
	}
}

// NonEmpty rejects strings that are empty or only whitespace.
func NonEmpty(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: empty string", ErrInvalid)
	}
	return nil
}

// AllOf runs checks in order and returns the first rejection. nil checks are skipped.
func AllOf[V any](checks ...func(V) error) func(V) error {
	return func(v V) error {
		for _, check := range checks {
			if check == nil {
				continue
			}
			if err := check(v); err != nil {
				return err
			}
		}
		return nil
	}
}
