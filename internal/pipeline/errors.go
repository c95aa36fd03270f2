// Package pipeline holds the stage-tagged error taxonomy shared by the
// generator, publisher and batch orchestrator.
package pipeline

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a pipeline failure
type Kind string

const (
	KindValidation  Kind = "validation"
	KindNotFound    Kind = "not_found"
	KindUpstream    Kind = "upstream"
	KindPersistence Kind = "persistence"
	KindInternal    Kind = "internal"
)

// Stage names the pipeline phase that produced an error
type Stage string

const (
	StageRequest       Stage = "request"
	StageTrendLookup   Stage = "trend_lookup"
	StageAIGenerate    Stage = "ai_generate"
	StageValidate      Stage = "validate"
	StageImageHandling Stage = "image_handling"
	StageDBInsert      Stage = "db_insert"
)

// Error codes carried alongside the kind
const (
	CodeInvalidRequest  = "invalid_request"
	CodeTrendNotFound   = "trend_not_found"
	CodeVendorError     = "vendor_error"
	CodeMalformedOutput = "malformed_output"
	CodeMissingFields   = "missing_fields"
	CodeDuplicateTrend  = "duplicate_trend"
	CodeDBError         = "db_error"
	CodeInternal        = "internal_error"
)

// Error is a stage-tagged pipeline failure
type Error struct {
	Kind    Kind
	Stage   Stage
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Stage != "" {
		return fmt.Sprintf("%s: %s", e.Stage, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// StatusCode maps the error to an HTTP status
func (e *Error) StatusCode() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindUpstream:
		return http.StatusBadGateway
	case KindPersistence:
		if e.Code == CodeDuplicateTrend {
			return http.StatusConflict
		}
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// WithStage returns a copy of e tagged with stage, keeping an existing tag
func (e *Error) WithStage(stage Stage) *Error {
	if e.Stage != "" {
		return e
	}
	cp := *e
	cp.Stage = stage
	return &cp
}

// Validation builds a caller-class error
func Validation(stage Stage, code, message string) *Error {
	return &Error{Kind: KindValidation, Stage: stage, Code: code, Message: message}
}

// NotFound builds an unknown-entity error
func NotFound(stage Stage, code, message string) *Error {
	return &Error{Kind: KindNotFound, Stage: stage, Code: code, Message: message}
}

// Upstream wraps a vendor or provider failure
func Upstream(stage Stage, code string, err error) *Error {
	return &Error{Kind: KindUpstream, Stage: stage, Code: code, Message: err.Error(), Err: err}
}

// Persistence wraps a storage failure, keeping its message unmodified
func Persistence(stage Stage, code string, err error) *Error {
	return &Error{Kind: KindPersistence, Stage: stage, Code: code, Message: err.Error(), Err: err}
}

// Internal wraps an unexpected fault
func Internal(stage Stage, err error) *Error {
	return &Error{Kind: KindInternal, Stage: stage, Code: CodeInternal, Message: err.Error(), Err: err}
}

// As extracts a *Error from err's chain
func As(err error) (*Error, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// IsDuplicateTrend reports whether err is the benign duplicate-linkage conflict
func IsDuplicateTrend(err error) bool {
	pe, ok := As(err)
	return ok && pe.Kind == KindPersistence && pe.Code == CodeDuplicateTrend
}

// ClampStatus keeps a status code inside [200,599]
func ClampStatus(code int) int {
	if code < 200 {
		return 200
	}
	if code > 599 {
		return 599
	}
	return code
}
