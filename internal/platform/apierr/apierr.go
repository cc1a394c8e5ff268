package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Stable error codes returned to the HTTP layer. Business-rule codes map to
// 4xx statuses, upstream collaborator codes to 502.
const (
	CodeInsufficientFunds     = "INSUFFICIENT_FUNDS"
	CodeRunAlreadyOpen        = "RUN_ALREADY_OPEN"
	CodeInvalidPlanSize       = "INVALID_PLAN_SIZE"
	CodeRunNotFound           = "RUN_NOT_FOUND"
	CodeOwnerMismatch         = "OWNER_MISMATCH"
	CodeAlreadyFinalized      = "ALREADY_FINALIZED"
	CodeEmptyAnswerSet        = "EMPTY_ANSWER_SET"
	CodeAllExamsCompleted     = "ALL_EXAMS_COMPLETED"
	CodeEmptyGenerationResult = "EMPTY_GENERATION_RESULT"
	CodeUpstreamGeneration    = "UPSTREAM_GENERATION_FAILURE"
	CodeUpstreamPersistence   = "UPSTREAM_PERSISTENCE_FAILURE"
	CodeUpstreamWallet        = "UPSTREAM_WALLET_FAILURE"
	CodeInvalidPayload        = "INVALID_PAYLOAD"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func Newf(status int, code, format string, args ...any) *Error {
	return &Error{Status: status, Code: code, Err: fmt.Errorf(format, args...)}
}

func InsufficientFunds(need, have int) *Error {
	return Newf(http.StatusPaymentRequired, CodeInsufficientFunds, "insufficient wins balance: need %d, have %d", need, have)
}

func RunAlreadyOpen(runID string) *Error {
	return Newf(http.StatusConflict, CodeRunAlreadyOpen, "an open practice run already exists (%s); finalize it before starting another", runID)
}

func InvalidPlanSize(total, max int) *Error {
	return Newf(http.StatusBadRequest, CodeInvalidPlanSize, "total question count %d out of bounds: must be between 1 and %d", total, max)
}

func RunNotFound(runID string) *Error {
	return Newf(http.StatusNotFound, CodeRunNotFound, "practice run not found: %s", runID)
}

func OwnerMismatch() *Error {
	return Newf(http.StatusBadRequest, CodeOwnerMismatch, "caller does not own this practice run")
}

func AlreadyFinalized(runID string) *Error {
	return Newf(http.StatusConflict, CodeAlreadyFinalized, "practice run already finalized: %s", runID)
}

func EmptyAnswerSet() *Error {
	return Newf(http.StatusBadRequest, CodeEmptyAnswerSet, "answered item list is empty")
}

func AllExamsCompleted(userID string) *Error {
	return Newf(http.StatusConflict, CodeAllExamsCompleted, "all fixed exams already completed by user")
}

func EmptyGenerationResult() *Error {
	return Newf(http.StatusBadGateway, CodeEmptyGenerationResult, "generator returned no questions")
}

// UpstreamGeneration and friends wrap transport-level failures from a named
// collaborator; the raw error text is preserved for reconciliation.
func UpstreamGeneration(collaborator string, err error) *Error {
	return New(http.StatusBadGateway, CodeUpstreamGeneration, fmt.Errorf("%s: %w", collaborator, err))
}

func UpstreamPersistence(collaborator string, err error) *Error {
	return New(http.StatusBadGateway, CodeUpstreamPersistence, fmt.Errorf("%s: %w", collaborator, err))
}

func UpstreamWallet(err error) *Error {
	return New(http.StatusBadGateway, CodeUpstreamWallet, fmt.Errorf("wallet service: %w", err))
}

func InvalidPayload(format string, args ...any) *Error {
	return Newf(http.StatusBadRequest, CodeInvalidPayload, format, args...)
}

// CodeOf extracts the stable code from an error chain, or "" when the error
// is not an *Error.
func CodeOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}

// StatusOf maps an error chain to an HTTP status, defaulting to 500.
func StatusOf(err error) int {
	var ae *Error
	if errors.As(err, &ae) && ae.Status != 0 {
		return ae.Status
	}
	return http.StatusInternalServerError
}
