package workererrors

import (
	"fmt"
)

// Process exit codes for the judger tooling
const (
	ExitErrored int = 1
	// config could not be loaded or the queue could not be reached
	ExitSetup int = 2
	// the message was built but never made it onto the queue
	ExitEnqueue int = 3
)

// Carries an exit code along with an error so the app can exit correctly
type ExitError struct {
	Err  error
	Code int
}

func (e ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%d", e.Code)
	}

	return fmt.Sprintf("%d: %s", e.Code, e.Err.Error())
}

func (e ExitError) Unwrap() error {
	return e.Err
}

// Wrap an error with an exit code
func ExitErrorWrap(code int, err error) error {
	return ExitError{Code: code, Err: err}
}
