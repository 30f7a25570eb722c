package exitcodes

import (
	"fmt"
	"os"
)

// Standard exit codes for rdp-setup
const (
	// Success indicates successful command completion
	Success = 0

	// GeneralError indicates a general/unknown error
	GeneralError = 1

	// InvalidArgs indicates invalid command-line arguments or flags
	InvalidArgs = 2

	// PreconditionFailed indicates a precondition was not met
	// (e.g., not running as root, config dir missing)
	PreconditionFailed = 3

	// NetworkError indicates network/connectivity failure
	// (e.g., package mirror unreachable, timeout, DNS failure)
	NetworkError = 4

	// ProcessError indicates an external command failure
	// (e.g., apt-get, systemctl, ufw exited non-zero)
	ProcessError = 5

	// ValidationError indicates validation failure
	// (e.g., failed doctor checks, corrupted backup archive)
	ValidationError = 6
)

// Exit terminates the program with the given code
func Exit(code int) {
	os.Exit(code)
}

// ExitWithError prints error message to stderr and exits with the given code
func ExitWithError(code int, msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(code)
}

// CodeForError returns the appropriate exit code for an error.
// Unwraps ErrorWithCode for explicit codes, otherwise returns GeneralError.
// Use explicit error constructors (ProcessErr, PreconditionError, etc.) for
// specific codes.
func CodeForError(err error) int {
	if err == nil {
		return Success
	}

	if ec, ok := err.(*ErrorWithCode); ok {
		return ec.Code
	}

	return GeneralError
}
