// internal/relay/result.go
package relay

import (
	"fmt"
)

// Mode is the submission path.
type Mode string

const (
	ModeSingle Mode = "single"
	ModeBundle Mode = "bundle"
)

// Result is the uniform outcome of a submission. Failures are values, never panics.
type Result struct {
	Mode        Mode
	Success     bool
	Signature   string
	Signatures  []string
	BundleID    string
	ExplorerURL string
	Err         error
}

// ErrorDetail returns a human-readable failure reason, or "" on success.
func (r Result) ErrorDetail() string {
	if r.Success || r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// Failure builds a failed result for mode.
func Failure(mode Mode, err error) Result {
	return Result{Mode: mode, Success: false, Err: err}
}

// SubmissionError reports an RPC or relay failure, including malformed responses.
type SubmissionError struct {
	Mode     Mode
	Endpoint string
	Err      error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("%s submission to %s failed: %v", e.Mode, e.Endpoint, e.Err)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}
