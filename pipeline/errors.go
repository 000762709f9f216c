package pipeline

import (
	"errors"
	"fmt"
)

// Kind categorises a fatal run failure. Callers branch on it to decide
// whether a retry can help.
type Kind string

const (
	KindSourceFailed Kind = "source call failed"
	KindSourceEmpty  Kind = "source returned no data"
	KindProcessing   Kind = "processing error"
)

// ErrSourceUnavailable matches, via errors.Is, any RunError caused by the
// listing source stage.
var ErrSourceUnavailable = errors.New("listing source unavailable")

// RunError is a whole-run failure.
type RunError struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *RunError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *RunError) Unwrap() error { return e.Cause }

// Is reports source-stage failures as ErrSourceUnavailable.
func (e *RunError) Is(target error) bool {
	return target == ErrSourceUnavailable && (e.Kind == KindSourceFailed || e.Kind == KindSourceEmpty)
}

// Retryable reports whether running again unchanged could succeed. Only a
// failed source call qualifies; an empty result or a processing error will repeat.
func (e *RunError) Retryable() bool {
	return e.Kind == KindSourceFailed
}

// KindOf returns the Kind of the first RunError in err's chain.
func KindOf(err error) (Kind, bool) {
	var re *RunError
	if errors.As(err, &re) {
		return re.Kind, true
	}
	return "", false
}

func sourceFailed(msg string, cause error) error {
	return &RunError{Kind: KindSourceFailed, Message: msg, Cause: cause}
}

func sourceEmpty(msg string) error {
	return &RunError{Kind: KindSourceEmpty, Message: msg}
}

func processing(msg string, cause error) error {
	return &RunError{Kind: KindProcessing, Message: msg, Cause: cause}
}
