// Package apperror provides coded application errors with a severity level
// and conversion to and from gRPC status errors.
//
// Two families of codes matter to the solver and are never mixed: input
// errors (the caller sent something the solver cannot accept) and invariant
// violations (the solver broke its own bookkeeping). Infeasibility is not an
// error at all; it is a regular answer.
package apperror

import (
	"errors"
	"fmt"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/protoadapt"
	"google.golang.org/protobuf/types/known/structpb"
)

// errorDomain tags ErrorInfo details produced by this package.
const errorDomain = "islandflow"

// ErrorCode identifies a class of application error.
type ErrorCode string

const (
	// Input
	CodeInvalidInput    ErrorCode = "INVALID_INPUT"
	CodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	CodeInvalidIsland   ErrorCode = "INVALID_ISLAND"
	CodeNegativeCost    ErrorCode = "NEGATIVE_COST"
	CodeNilInput        ErrorCode = "NIL_INPUT"
	CodeLimitExceeded   ErrorCode = "LIMIT_EXCEEDED"

	// Solver internals
	CodeInvariantViolation    ErrorCode = "INVARIANT_VIOLATION"
	CodeConservationViolation ErrorCode = "CONSERVATION_VIOLATION"
	CodeNegativeCycle         ErrorCode = "NEGATIVE_CYCLE"
	CodeTimeout               ErrorCode = "TIMEOUT"

	// Infrastructure
	CodeNotFound    ErrorCode = "NOT_FOUND"
	CodeUnavailable ErrorCode = "UNAVAILABLE"
	CodeStorage     ErrorCode = "STORAGE_ERROR"
	CodeCache       ErrorCode = "CACHE_ERROR"
	CodeRateLimited ErrorCode = "RATE_LIMITED"

	// General
	CodeInternal      ErrorCode = "INTERNAL_ERROR"
	CodeUnimplemented ErrorCode = "UNIMPLEMENTED"
)

// Severity defines how bad an error is.
type Severity int

const (
	// SeverityWarning is a condition that does not stop the operation.
	SeverityWarning Severity = iota
	// SeverityError is a failed operation caused by its input or environment.
	SeverityError
	// SeverityCritical is a broken internal invariant.
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Error is the application error type.
type Error struct {
	Code     ErrorCode
	Message  string
	Field    string
	Details  map[string]any
	Cause    error
	Severity Severity
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Field != "" {
		msg = fmt.Sprintf("%s (field: %s)", msg, e.Field)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// GRPCStatus lets status.FromError recognise *Error directly. The code,
// field and severity travel in an ErrorInfo detail, Details in a Struct.
func (e *Error) GRPCStatus() *status.Status {
	st := status.New(e.grpcCode(), e.Message)

	info := &errdetails.ErrorInfo{
		Reason: string(e.Code),
		Domain: errorDomain,
		Metadata: map[string]string{
			"severity": e.Severity.String(),
		},
	}
	if e.Field != "" {
		info.Metadata["field"] = e.Field
	}

	details := []protoadapt.MessageV1{info}
	if len(e.Details) > 0 {
		if s, err := structpb.NewStruct(e.Details); err == nil {
			details = append(details, s)
		}
	}

	if withDetails, err := st.WithDetails(details...); err == nil {
		return withDetails
	}
	return st
}

func (e *Error) grpcCode() codes.Code {
	switch e.Code {
	case CodeInvalidInput, CodeInvalidArgument, CodeInvalidIsland,
		CodeNegativeCost, CodeNilInput:
		return codes.InvalidArgument

	case CodeLimitExceeded, CodeRateLimited:
		return codes.ResourceExhausted

	case CodeTimeout:
		return codes.DeadlineExceeded

	case CodeNotFound:
		return codes.NotFound

	case CodeUnavailable:
		return codes.Unavailable

	case CodeUnimplemented:
		return codes.Unimplemented

	default:
		// invariant violations land here on purpose: they are server faults
		return codes.Internal
	}
}

// New creates an error with SeverityError.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Details:  make(map[string]any),
		Severity: SeverityError,
	}
}

// Newf is New with a format string.
func Newf(code ErrorCode, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// NewWithField creates an error tied to an input field.
func NewWithField(code ErrorCode, message, field string) *Error {
	err := New(code, message)
	err.Field = field
	return err
}

// NewWarning creates an error with SeverityWarning.
func NewWarning(code ErrorCode, message string) *Error {
	err := New(code, message)
	err.Severity = SeverityWarning
	return err
}

// NewCritical creates an error with SeverityCritical.
func NewCritical(code ErrorCode, message string) *Error {
	err := New(code, message)
	err.Severity = SeverityCritical
	return err
}

// Invariantf reports a broken solver invariant. The result is always critical.
func Invariantf(format string, args ...any) *Error {
	return NewCritical(CodeInvariantViolation, fmt.Sprintf(format, args...))
}

// Wrap attaches a code and message to cause.
func Wrap(cause error, code ErrorCode, message string) *Error {
	err := New(code, message)
	err.Cause = cause
	return err
}

func (e *Error) WithDetails(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

func (e *Error) WithField(field string) *Error {
	e.Field = field
	return e
}

func (e *Error) WithSeverity(s Severity) *Error {
	e.Severity = s
	return e
}

// Is reports whether any *Error in err's chain carries code.
func Is(err error, code ErrorCode) bool {
	for err != nil {
		var appErr *Error
		if !errors.As(err, &appErr) {
			return false
		}
		if appErr.Code == code {
			return true
		}
		err = appErr.Cause
	}
	return false
}

// Code returns the code of the outermost *Error in err's chain, or CodeInternal.
func Code(err error) ErrorCode {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// IsWarning reports whether err is an *Error with SeverityWarning.
func IsWarning(err error) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Severity == SeverityWarning
	}
	return false
}

// IsCritical reports whether err is an *Error with SeverityCritical.
func IsCritical(err error) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Severity == SeverityCritical
	}
	return false
}

// ToGRPC converts err into a gRPC status error.
func ToGRPC(err error) error {
	if err == nil {
		return nil
	}

	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.GRPCStatus().Err()
	}

	if _, ok := status.FromError(err); ok {
		return err
	}

	return status.Error(codes.Internal, err.Error())
}

// FromGRPC converts a gRPC status error back into an *Error.
func FromGRPC(err error) *Error {
	if err == nil {
		return nil
	}

	st, ok := status.FromError(err)
	if !ok {
		return Wrap(err, CodeInternal, err.Error())
	}

	if appErr := fromDetails(st); appErr != nil {
		return appErr
	}

	var code ErrorCode
	switch st.Code() {
	case codes.InvalidArgument:
		code = CodeInvalidArgument
	case codes.ResourceExhausted:
		code = CodeLimitExceeded
	case codes.NotFound:
		code = CodeNotFound
	case codes.DeadlineExceeded, codes.Canceled:
		code = CodeTimeout
	case codes.Unavailable:
		code = CodeUnavailable
	case codes.Unimplemented:
		code = CodeUnimplemented
	default:
		code = CodeInternal
	}

	return New(code, st.Message())
}

func fromDetails(st *status.Status) *Error {
	var appErr *Error
	for _, d := range st.Details() {
		switch detail := d.(type) {
		case *errdetails.ErrorInfo:
			if detail.GetDomain() != errorDomain {
				continue
			}
			appErr = New(ErrorCode(detail.GetReason()), st.Message())
			appErr.Field = detail.GetMetadata()["field"]
			appErr.Severity = parseSeverity(detail.GetMetadata()["severity"])
		case *structpb.Struct:
			if appErr != nil {
				for k, v := range detail.AsMap() {
					appErr.Details[k] = v
				}
			}
		}
	}
	return appErr
}

func parseSeverity(s string) Severity {
	switch s {
	case "warning":
		return SeverityWarning
	case "critical":
		return SeverityCritical
	default:
		return SeverityError
	}
}

// Sentinels for errors.Is style checks through Is.
var (
	ErrNilProblem = New(CodeNilInput, "problem is nil")
	ErrTimeout    = New(CodeTimeout, "solve cancelled or timed out")
	ErrNotFound   = New(CodeNotFound, "record not found")
)

// ValidationErrors collects field errors and warnings from a validation pass.
type ValidationErrors struct {
	Errors   []*Error
	Warnings []*Error
}

func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{
		Errors:   make([]*Error, 0),
		Warnings: make([]*Error, 0),
	}
}

// Add files err under Errors or Warnings by its severity.
func (v *ValidationErrors) Add(err *Error) {
	if err.Severity == SeverityWarning {
		v.Warnings = append(v.Warnings, err)
	} else {
		v.Errors = append(v.Errors, err)
	}
}

func (v *ValidationErrors) AddErrorWithField(code ErrorCode, message, field string) {
	v.Errors = append(v.Errors, NewWithField(code, message, field))
}

func (v *ValidationErrors) AddWarning(code ErrorCode, message string) {
	v.Warnings = append(v.Warnings, NewWarning(code, message))
}

func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

func (v *ValidationErrors) IsValid() bool {
	return !v.HasErrors()
}

// First returns the first collected error, or nil.
func (v *ValidationErrors) First() *Error {
	if len(v.Errors) == 0 {
		return nil
	}
	return v.Errors[0]
}

func (v *ValidationErrors) ErrorMessages() []string {
	messages := make([]string, len(v.Errors))
	for i, err := range v.Errors {
		messages[i] = err.Error()
	}
	return messages
}
