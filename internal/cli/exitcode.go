package cli

import "errors"

// ExitError carries a specific process exit code up through cobra's
// RunE error return, so cmd/trader/main.go can translate §6's exit-code
// contract (login: 0/2/nonzero, run-workflow: 0/3/nonzero) without the
// CLI commands themselves calling os.Exit.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }
func (e *ExitError) Unwrap() error { return e.Err }

// NewExitError wraps err with the process exit code the caller should use.
func NewExitError(code int, err error) *ExitError {
	return &ExitError{Code: code, Err: err}
}

// ExitCode extracts the intended process exit code from err, defaulting
// to 1 for any error that doesn't carry one and 0 for nil.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return 1
}
