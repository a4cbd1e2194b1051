// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"errors"
	"fmt"
)

var (
	// ErrNoMirrors is a configuration error: the mirror set is empty.
	ErrNoMirrors = errors.New("no mirrors configured")

	// ErrNoBaseDir is a configuration error: no artifact root was given.
	ErrNoBaseDir = errors.New("artifact base directory is not configured")

	// ErrLocatorMiss means the mirror page had no recognizable PDF link.
	ErrLocatorMiss = errors.New("no PDF link found on mirror page")

	// ErrTransfer covers timeouts, connection failures and non-2xx responses.
	ErrTransfer = errors.New("transfer failed")

	// ErrValidation means the mirror served something that is not a PDF.
	ErrValidation = errors.New("payload is not a PDF")
)

// AttemptError describes why a single network step failed. Kind is one of
// ErrTransfer or ErrValidation; both Kind and Err match errors.Is.
type AttemptError struct {
	Kind       error
	URL        string
	StatusCode int
	Err        error
}

func (e *AttemptError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("%v: HTTP %d from %s", e.Kind, e.StatusCode, e.URL)
	case e.Err != nil:
		return fmt.Sprintf("%v: %s: %v", e.Kind, e.URL, e.Err)
	default:
		return fmt.Sprintf("%v: %s", e.Kind, e.URL)
	}
}

func (e *AttemptError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func transferError(url string, err error) error {
	return &AttemptError{Kind: ErrTransfer, URL: url, Err: err}
}

func statusError(url string, code int) error {
	return &AttemptError{Kind: ErrTransfer, URL: url, StatusCode: code}
}

func validationError(url, contentType string) error {
	return &AttemptError{Kind: ErrValidation, URL: url, Err: fmt.Errorf("content type %q without %%PDF signature", contentType)}
}

// Outcome classifies one acquisition attempt.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeLocatorMiss
	OutcomeTransferError
	OutcomeValidationFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeLocatorMiss:
		return "locator_miss"
	case OutcomeTransferError:
		return "transfer_error"
	case OutcomeValidationFailure:
		return "validation_failure"
	default:
		return "unknown"
	}
}

// outcomeOf maps an attempt error onto its outcome. Unclassified errors are
// treated as transfer errors since they are equally worth retrying.
func outcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, ErrLocatorMiss):
		return OutcomeLocatorMiss
	case errors.Is(err, ErrValidation):
		return OutcomeValidationFailure
	default:
		return OutcomeTransferError
	}
}
