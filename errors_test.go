package cachify

import (
	"errors"
	"strings"
	"testing"
)

func TestErrorsUnwrap(t *testing.T) {
	cause := errors.New("cause")
	cases := []error{
		&BackendError{Op: "get", Key: "k", Err: cause},
		&ComputeError{Key: "k", Err: cause},
		&ValidationError{Key: "k", Err: cause},
		&LockError{Key: "k", Err: cause},
	}
	for _, err := range cases {
		if !errors.Is(err, cause) {
			t.Errorf("%T does not unwrap to its cause", err)
		}
		if !strings.Contains(err.Error(), `"k"`) || !strings.Contains(err.Error(), "cause") {
			t.Errorf("%T message %q lacks key or cause", err, err.Error())
		}
	}
}
