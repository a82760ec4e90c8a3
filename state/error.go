package state

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Code classifies a container failure.
type Code string

const (
	CodeMissingAuth         Code = "missing-sdk/auth"
	CodeMissingFirestore    Code = "missing-sdk/firestore"
	CodeMissingStorage      Code = "missing-sdk/storage"
	CodeMissingRealtimeDB   Code = "missing-sdk/realtimedb"
	CodeMissingRemoteConfig Code = "missing-sdk/remoteconfig"

	CodeUnknown Code = "internal/unknown"

	CodeCancelled        Code = "cancelled"
	CodeDeadlineExceeded Code = "deadline-exceeded"
	CodePermissionDenied Code = "permission-denied"
	CodeNotFound         Code = "not-found"
	CodeInvalidArgument  Code = "invalid-argument"
	CodeUnsupported      Code = "unsupported"
)

// MissingSDK returns the missing-handle code for sdk ("firestore",
// "realtimedb", ...).
func MissingSDK(sdk string) Code {
	return Code("missing-sdk/" + sdk)
}

// Error is the {code, message} pair stored on a container.
type Error struct {
	Code    Code   `json:"code" yaml:"code"`
	Message string `json:"message" yaml:"message"`

	cause error
}

func NewError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError tags err with code and keeps it reachable through errors.Unwrap.
func WrapError(code Code, err error) *Error {
	return &Error{Code: code, Message: err.Error(), cause: err}
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}

	return string(e.Code) + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches another *Error by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code && (t.Message == "" || t.Message == e.Message)
}

// FromError maps err onto an *Error. Existing *Error values are returned as
// is, gRPC statuses become kebab-case codes, and anything else is
// internal/unknown.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}

	var se *Error
	if errors.As(err, &se) {
		return se
	}

	switch {
	case errors.Is(err, context.Canceled):
		return WrapError(CodeCancelled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return WrapError(CodeDeadlineExceeded, err)
	}

	if st, ok := status.FromError(err); ok && st.Code() != codes.OK && st.Code() != codes.Unknown {
		return &Error{Code: GRPCCode(st.Code()), Message: st.Message(), cause: err}
	}

	return WrapError(CodeUnknown, err)
}

// GRPCCode renders c in kebab case: PermissionDenied becomes
// permission-denied. Canceled is spelled cancelled.
func GRPCCode(c codes.Code) Code {
	if c == codes.Canceled {
		return CodeCancelled
	}

	return Code(kebab(c.String()))
}

func kebab(s string) string {
	var (
		sb        strings.Builder
		prevLower bool
	)

	for _, r := range s {
		if unicode.IsUpper(r) {
			if prevLower {
				sb.WriteByte('-')
			}

			r = unicode.ToLower(r)
			prevLower = false
		} else {
			prevLower = true
		}

		sb.WriteRune(r)
	}

	return sb.String()
}
