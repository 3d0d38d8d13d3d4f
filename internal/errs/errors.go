package errs

import "fmt"

// UnknownModeError is returned when a Processor is constructed with an
// unrecognized CCMode.
type UnknownModeError struct {
	Message string
}

func (e UnknownModeError) Error() string {
	return fmt.Sprintf("%s", e.Message)
}

// NewUnknownModeError creates a new instance of UnknownModeError with the given message.
func NewUnknownModeError(message string) UnknownModeError {
	return UnknownModeError{Message: message}
}

// KeyOutOfRangeError is returned when a transaction's read or write set
// references a key outside the storage's configured range.
type KeyOutOfRangeError struct {
	Message string
}

func (e KeyOutOfRangeError) Error() string {
	return fmt.Sprintf("%s", e.Message)
}

// NewKeyOutOfRangeError creates a new instance of KeyOutOfRangeError with the given message.
func NewKeyOutOfRangeError(message string) KeyOutOfRangeError {
	return KeyOutOfRangeError{Message: message}
}

// AlreadyTerminalError is returned when an operation is attempted on a txn
// that has already reached a terminal status.
type AlreadyTerminalError struct {
	Message string
}

func (e AlreadyTerminalError) Error() string {
	return fmt.Sprintf("%s", e.Message)
}

// NewAlreadyTerminalError creates a new instance of AlreadyTerminalError with the given message.
func NewAlreadyTerminalError(message string) AlreadyTerminalError {
	return AlreadyTerminalError{Message: message}
}
