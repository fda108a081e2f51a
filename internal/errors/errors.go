// Package errors defines the coded errors the warehouse reports. Storage
// failures carry the operation and key that failed so callers can log or
// retry them without parsing messages.
package errors

import (
	"errors"
	"fmt"
)

// Error codes.
const (
	CodeStorage           = "STORAGE_ERROR"
	CodeStorageQuota      = "STORAGE_QUOTA"
	CodeConfigInvalid     = "CONFIG_INVALID"
	CodeUnsupportedDriver = "UNSUPPORTED_DRIVER"
	CodeEntryNotFound     = "ENTRY_NOT_FOUND"
	CodeInvalidInput      = "INVALID_INPUT"
)

// WarehouseError is a coded error with an optional hint for the user.
type WarehouseError struct {
	Code       string
	Message    string
	Suggestion string
	Op         string // storage operation, e.g. "write"
	Key        string // storage key involved, if any
	Err        error
}

func (e *WarehouseError) Error() string {
	msg := "[" + e.Code + "] " + e.Message
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *WarehouseError) Unwrap() error { return e.Err }

// Is matches any WarehouseError with the same code.
func (e *WarehouseError) Is(target error) bool {
	var we *WarehouseError
	return errors.As(target, &we) && we.Code == e.Code
}

// WithSuggestion sets the hint printed under the error by the CLI.
func (e *WarehouseError) WithSuggestion(suggestion string) *WarehouseError {
	e.Suggestion = suggestion
	return e
}

func New(code, message string) *WarehouseError {
	return &WarehouseError{Code: code, Message: message}
}

func Wrap(code, message string, err error) *WarehouseError {
	return &WarehouseError{Code: code, Message: message, Err: err}
}

// StorageError wraps a backend failure of op on key. key may be empty for
// whole-store operations such as clear.
func StorageError(op, key string, err error) *WarehouseError {
	msg := op + " failed"
	if key != "" {
		msg = fmt.Sprintf("%s %q failed", op, key)
	}
	return &WarehouseError{Code: CodeStorage, Message: msg, Op: op, Key: key, Err: err}
}

// QuotaExceeded reports a write to key that would bring stored data to
// used bytes, over limit.
func QuotaExceeded(key string, used, limit int64) *WarehouseError {
	return &WarehouseError{
		Code:    CodeStorageQuota,
		Message: fmt.Sprintf("write %q would use %d of %d bytes", key, used, limit),
		Op:      "write",
		Key:     key,
	}
}

// EntryNotFound reports an unknown entry id.
func EntryNotFound(id string) *WarehouseError {
	return New(CodeEntryNotFound, "no entry with id "+id).
		WithSuggestion("Run 'warehouse list' to see entry ids")
}

// IsStorage reports whether err is a storage failure, quota rejections
// included.
func IsStorage(err error) bool {
	switch AsCode(err) {
	case CodeStorage, CodeStorageQuota:
		return true
	}
	return false
}

// AsCode returns the code of the first WarehouseError in err's chain, or "".
func AsCode(err error) string {
	var we *WarehouseError
	if errors.As(err, &we) {
		return we.Code
	}
	return ""
}

// Suggestion returns the hint of the first WarehouseError in err's chain, or "".
func Suggestion(err error) string {
	var we *WarehouseError
	if errors.As(err, &we) {
		return we.Suggestion
	}
	return ""
}
