package errors

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type Code codes.Code

const (
	CodeInvalidArgument    = Code(codes.InvalidArgument)
	CodeNotFound           = Code(codes.NotFound)
	CodeAlreadyExists      = Code(codes.AlreadyExists)
	CodeFailedPrecondition = Code(codes.FailedPrecondition)
	CodePermissionDenied   = Code(codes.PermissionDenied)
	CodeUnavailable        = Code(codes.Unavailable)
	CodeInternal           = Code(codes.Internal)
	CodeUnauthenticated    = Code(codes.Unauthenticated)
)

var code2http = map[Code]int{
	CodeInvalidArgument:    http.StatusBadRequest,
	CodeNotFound:           http.StatusNotFound,
	CodeAlreadyExists:      http.StatusConflict,
	CodeFailedPrecondition: http.StatusPreconditionFailed,
	CodePermissionDenied:   http.StatusForbidden,
	CodeUnavailable:        http.StatusServiceUnavailable,
	CodeInternal:           http.StatusInternalServerError,
	CodeUnauthenticated:    http.StatusUnauthorized,
}

// Reasons name the exam failure conditions independently of their transport code.
const (
	ReasonEmptyQuestionSet           = "EMPTY_QUESTION_SET"
	ReasonInvalidOptionIndex         = "INVALID_OPTION_INDEX"
	ReasonHasUnanswered              = "HAS_UNANSWERED"
	ReasonMalformedSubmission        = "MALFORMED_SUBMISSION"
	ReasonSubmissionTransportFailure = "SUBMISSION_TRANSPORT_FAILURE"
	ReasonUnauthorized               = "UNAUTHORIZED"
	ReasonSessionNotActive           = "SESSION_NOT_ACTIVE"
	ReasonSessionExpired             = "SESSION_EXPIRED"
)

// Sentinels for errors.Is. Never return them directly, build a fresh error with the same reason instead.
var (
	ErrEmptyQuestionSet           = New(CodeUnavailable, WithReason(ReasonEmptyQuestionSet))
	ErrInvalidOptionIndex         = New(CodeInvalidArgument, WithReason(ReasonInvalidOptionIndex))
	ErrHasUnanswered              = New(CodeFailedPrecondition, WithReason(ReasonHasUnanswered))
	ErrMalformedSubmission        = New(CodeInvalidArgument, WithReason(ReasonMalformedSubmission))
	ErrSubmissionTransportFailure = New(CodeUnavailable, WithReason(ReasonSubmissionTransportFailure))
	ErrUnauthorized               = New(CodeUnauthenticated, WithReason(ReasonUnauthorized))
	ErrSessionNotActive           = New(CodeFailedPrecondition, WithReason(ReasonSessionNotActive))
	ErrSessionExpired             = New(CodeFailedPrecondition, WithReason(ReasonSessionExpired))
)

type Error struct {
	Code    Code   `json:"code"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message"`
	err     error
}

func New(code Code, opts ...Option) *Error {
	e := &Error{
		Code:    code,
		Message: codes.Code(code).String(),
	}

	for _, opt := range opts {
		opt.apply(e)
	}

	return e
}

func (e *Error) Error() string {
	s := fmt.Sprintf("code: %d, message: %s", e.Code, e.Message)
	if e.Reason != "" {
		s += fmt.Sprintf(", reason: %s", e.Reason)
	}
	if e.err != nil {
		s += fmt.Sprintf(", err: %s", e.err)
	}

	return s
}

func (e *Error) Unwrap() error {
	return e.err
}

// Is matches by reason when the target carries one, by code otherwise.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	if t.Reason != "" {
		return e.Reason == t.Reason
	}

	return e.Code == t.Code
}

func (e *Error) GRPCStatus() *status.Status {
	return status.New(codes.Code(e.Code), e.Message)
}

func (e *Error) HTTPStatusCode() int {
	if c, ok := code2http[e.Code]; ok {
		return c
	}

	return http.StatusInternalServerError
}

func Convert(err error) *Error {
	var e *Error
	if !errors.As(err, &e) {
		return Internal(err)
	}

	return e
}

func Internal(err error) *Error {
	return New(CodeInternal, WithCause(err))
}

func NotFound(format string, args ...any) *Error {
	return New(CodeNotFound, WithMessagef(format, args...))
}

func InvalidArgument(format string, args ...any) *Error {
	return New(CodeInvalidArgument, WithMessagef(format, args...))
}

func EmptyQuestionSet() *Error {
	return New(CodeUnavailable,
		WithReason(ReasonEmptyQuestionSet),
		WithMessagef("no exam questions available, try again later"),
	)
}

func InvalidOptionIndex(index, options int) *Error {
	return New(CodeInvalidArgument,
		WithReason(ReasonInvalidOptionIndex),
		WithMessagef("option index %d out of range [0, %d)", index, options),
	)
}

func HasUnanswered(n int) *Error {
	return New(CodeFailedPrecondition,
		WithReason(ReasonHasUnanswered),
		WithMessagef("%d question(s) unanswered, confirm to submit anyway", n),
	)
}

func MalformedSubmission(format string, args ...any) *Error {
	return New(CodeInvalidArgument,
		WithReason(ReasonMalformedSubmission),
		WithMessagef(format, args...),
	)
}

func SubmissionTransportFailure(err error) *Error {
	return New(CodeUnavailable,
		WithReason(ReasonSubmissionTransportFailure),
		WithMessagef("submission failed, retry"),
		WithCause(err),
	)
}

// Unauthorized is returned when no identity is known.
func Unauthorized(format string, args ...any) *Error {
	return New(CodeUnauthenticated,
		WithReason(ReasonUnauthorized),
		WithMessagef(format, args...),
	)
}

// Forbidden is returned when the known identity may not act on the target user.
func Forbidden(format string, args ...any) *Error {
	return New(CodePermissionDenied,
		WithReason(ReasonUnauthorized),
		WithMessagef(format, args...),
	)
}

func SessionNotActive(state string) *Error {
	return New(CodeFailedPrecondition,
		WithReason(ReasonSessionNotActive),
		WithMessagef("exam session is %s", state),
	)
}

func SessionExpired() *Error {
	return New(CodeFailedPrecondition,
		WithReason(ReasonSessionExpired),
		WithMessagef("exam session time limit reached"),
	)
}

type Option interface {
	apply(*Error)
}

type optionFunc func(*Error)

func (f optionFunc) apply(e *Error) {
	f(e)
}

func WithCause(err error) Option {
	return optionFunc(func(e *Error) {
		e.err = err
	})
}

func WithMessagef(format string, args ...any) Option {
	return optionFunc(func(e *Error) {
		e.Message = fmt.Sprintf(format, args...)
	})
}

func WithReason(reason string) Option {
	return optionFunc(func(e *Error) {
		e.Reason = reason
	})
}
