package weclapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// ErrorCode is the stable, client-side classification of a failure.
// Codes are grouped in numeric bands (see ErrorCategory) so callers can
// branch on ranges as well as on exact values.
type ErrorCode int

// Generic errors.
const (
	ErrorCodeUnknown         ErrorCode = 1000
	ErrorCodeInvalidField    ErrorCode = 1001
	ErrorCodeMissingID       ErrorCode = 1002
	ErrorCodeInvalidEndpoint ErrorCode = 1003
)

// API and communication errors.
const (
	ErrorCodeAPIRequestFailed ErrorCode = 2000
	ErrorCodeUnauthorized     ErrorCode = 2001
	ErrorCodeNotFound         ErrorCode = 2002
	ErrorCodeTimeout          ErrorCode = 2003
)

// Data validation errors.
const (
	ErrorCodeValidationFailed     ErrorCode = 3000
	ErrorCodeCustomFieldInvalid   ErrorCode = 3001
	ErrorCodeMissingField         ErrorCode = 3002
	ErrorCodeMissingRequiredField ErrorCode = 3003
)

// RFC 7807 problem types.
const (
	ErrorCodeContext             ErrorCode = 4000
	ErrorCodeConversation        ErrorCode = 4001
	ErrorCodeEntityNotFound      ErrorCode = 4002
	ErrorCodeForbidden           ErrorCode = 4003
	ErrorCodeInvalidJSON         ErrorCode = 4004
	ErrorCodeOptimisticLock      ErrorCode = 4005
	ErrorCodePersistence         ErrorCode = 4006
	ErrorCodeUnexpected          ErrorCode = 4007
	ErrorCodeUnsupportedMimeType ErrorCode = 4008
	ErrorCodeValidation          ErrorCode = 4009
)

// RFC 7807 field validation types.
const (
	ErrorCodeAuthorization ErrorCode = 5000
	ErrorCodeBlocked       ErrorCode = 5001
	ErrorCodeConsistency   ErrorCode = 5002
	ErrorCodeDigits        ErrorCode = 5003
	ErrorCodeDuplicate     ErrorCode = 5004
	ErrorCodeEmail         ErrorCode = 5005
	ErrorCodeEmailOrDomain ErrorCode = 5006
	ErrorCodeEmpty         ErrorCode = 5007
	ErrorCodeEnum          ErrorCode = 5008
	ErrorCodeFuture        ErrorCode = 5009
	ErrorCodeGreaterThan   ErrorCode = 5010
	ErrorCodeLessThan      ErrorCode = 5011
	ErrorCodeMax           ErrorCode = 5012
	ErrorCodeMin           ErrorCode = 5013
	ErrorCodeNotEmpty      ErrorCode = 5014
	ErrorCodePast          ErrorCode = 5015
	ErrorCodePattern       ErrorCode = 5016
	ErrorCodeReference     ErrorCode = 5017
	ErrorCodeSize          ErrorCode = 5018
	ErrorCodeSyntax        ErrorCode = 5019
	ErrorCodeType          ErrorCode = 5020
)

// ErrorCategory is the numeric band an ErrorCode belongs to.
type ErrorCategory int

const (
	CategoryGeneric         ErrorCategory = 1
	CategoryCommunication   ErrorCategory = 2
	CategoryDataValidation  ErrorCategory = 3
	CategoryProblem         ErrorCategory = 4
	CategoryFieldValidation ErrorCategory = 5
)

// Category returns the band of the code.
func (c ErrorCode) Category() ErrorCategory {
	return ErrorCategory(int(c) / 1000)
}

var errorCodeNames = map[ErrorCode]string{
	ErrorCodeUnknown:              "Unknown",
	ErrorCodeInvalidField:         "InvalidField",
	ErrorCodeMissingID:            "MissingId",
	ErrorCodeInvalidEndpoint:      "InvalidEndpoint",
	ErrorCodeAPIRequestFailed:     "ApiRequestFailed",
	ErrorCodeUnauthorized:         "Unauthorized",
	ErrorCodeNotFound:             "NotFound",
	ErrorCodeTimeout:              "Timeout",
	ErrorCodeValidationFailed:     "ValidationFailed",
	ErrorCodeCustomFieldInvalid:   "CustomFieldInvalid",
	ErrorCodeMissingField:         "MissingField",
	ErrorCodeMissingRequiredField: "MissingRequiredField",
	ErrorCodeContext:              "Context",
	ErrorCodeConversation:         "Conversation",
	ErrorCodeEntityNotFound:       "EntityNotFound",
	ErrorCodeForbidden:            "Forbidden",
	ErrorCodeInvalidJSON:          "InvalidJson",
	ErrorCodeOptimisticLock:       "OptimisticLock",
	ErrorCodePersistence:          "Persistence",
	ErrorCodeUnexpected:           "Unexpected",
	ErrorCodeUnsupportedMimeType:  "UnsupportedMimeType",
	ErrorCodeValidation:           "Validation",
	ErrorCodeAuthorization:        "Authorization",
	ErrorCodeBlocked:              "Blocked",
	ErrorCodeConsistency:          "Consistency",
	ErrorCodeDigits:               "Digits",
	ErrorCodeDuplicate:            "Duplicate",
	ErrorCodeEmail:                "Email",
	ErrorCodeEmailOrDomain:        "EmailOrDomain",
	ErrorCodeEmpty:                "Empty",
	ErrorCodeEnum:                 "Enum",
	ErrorCodeFuture:               "Future",
	ErrorCodeGreaterThan:          "GreaterThan",
	ErrorCodeLessThan:             "LessThan",
	ErrorCodeMax:                  "Max",
	ErrorCodeMin:                  "Min",
	ErrorCodeNotEmpty:             "NotEmpty",
	ErrorCodePast:                 "Past",
	ErrorCodePattern:              "Pattern",
	ErrorCodeReference:            "Reference",
	ErrorCodeSize:                 "Size",
	ErrorCodeSyntax:               "Syntax",
	ErrorCodeType:                 "Type",
}

// String implements fmt.Stringer.
func (c ErrorCode) String() string {
	if name, ok := errorCodeNames[c]; ok {
		return name
	}

	return fmt.Sprintf("ErrorCode(%d)", int(c))
}

// problemTypes maps the suffix of an RFC 7807 "type" URI to an ErrorCode.
var problemTypes = map[string]ErrorCode{
	"context":               ErrorCodeContext,
	"conversation":          ErrorCodeConversation,
	"entity_not_found":      ErrorCodeEntityNotFound,
	"forbidden":             ErrorCodeForbidden,
	"invalid_json":          ErrorCodeInvalidJSON,
	"optimistic_lock":       ErrorCodeOptimisticLock,
	"persistence":           ErrorCodePersistence,
	"unauthorized":          ErrorCodeUnauthorized,
	"unexpected":            ErrorCodeUnexpected,
	"unsupported_mime_type": ErrorCodeUnsupportedMimeType,
	"validation":            ErrorCodeValidation,
	"authorization":         ErrorCodeAuthorization,
	"blocked":               ErrorCodeBlocked,
	"consistency":           ErrorCodeConsistency,
	"digits":                ErrorCodeDigits,
	"duplicate":             ErrorCodeDuplicate,
	"email":                 ErrorCodeEmail,
	"email_or_domain":       ErrorCodeEmailOrDomain,
	"empty":                 ErrorCodeEmpty,
	"enum":                  ErrorCodeEnum,
	"future":                ErrorCodeFuture,
	"greater_than":          ErrorCodeGreaterThan,
	"less_than":             ErrorCodeLessThan,
	"max":                   ErrorCodeMax,
	"min":                   ErrorCodeMin,
	"not_empty":             ErrorCodeNotEmpty,
	"past":                  ErrorCodePast,
	"pattern":               ErrorCodePattern,
	"reference":             ErrorCodeReference,
	"size":                  ErrorCodeSize,
	"syntax":                ErrorCodeSyntax,
	"type":                  ErrorCodeType,
}

// ErrorCodeFromType resolves an RFC 7807 type URI (or its bare suffix) to an
// ErrorCode. Unrecognized types map to ErrorCodeUnknown.
func ErrorCodeFromType(problemType string) ErrorCode {
	if code, ok := problemTypes[typeSuffix(problemType)]; ok {
		return code
	}

	return ErrorCodeUnknown
}

func typeSuffix(problemType string) string {
	trimmed := strings.TrimRight(problemType, "/")
	if idx := strings.LastIndex(trimmed, "/"); idx >= 0 {
		return trimmed[idx+1:]
	}

	return trimmed
}

// Problem is an RFC 7807 problem body as returned by the weclapp API.
type Problem struct {
	Type             string            `json:"type"                       yaml:"type"`
	Title            string            `json:"title"                      yaml:"title"`
	Detail           string            `json:"detail"                     yaml:"detail"`
	Instance         string            `json:"instance,omitempty"         yaml:"instance,omitempty"`
	Status           int               `json:"status,omitempty"           yaml:"status,omitempty"`
	Message          string            `json:"message,omitempty"          yaml:"message,omitempty"`
	ValidationErrors []ValidationError `json:"validationErrors,omitempty" yaml:"validationErrors,omitempty"`
}

// ValidationError is a single rejected field or operation inside a problem body.
type ValidationError struct {
	Type      string `json:"type"                yaml:"type"`
	Title     string `json:"title"               yaml:"title"`
	Detail    string `json:"detail"              yaml:"detail"`
	ErrorCode string `json:"errorCode,omitempty" yaml:"errorCode,omitempty"`
	Instance  string `json:"instance,omitempty"  yaml:"instance,omitempty"`
	Location  string `json:"location,omitempty"  yaml:"location,omitempty"`
	Allowed   []any  `json:"allowed,omitempty"   yaml:"allowed,omitempty"`
}

// TypeSuffix returns the part of Type after the last '/'.
func (v ValidationError) TypeSuffix() string {
	return typeSuffix(v.Type)
}

// Code converts the validation error to an ErrorCode.
func (v ValidationError) Code() ErrorCode {
	return ErrorCodeFromType(v.Type)
}

// ParseProblem decodes an RFC 7807 body. It returns nil when the body is not a
// JSON object.
func ParseProblem(body []byte) *Problem {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil
	}

	var problem Problem

	err := json.Unmarshal(trimmed, &problem)
	if err != nil {
		return nil
	}

	return &problem
}

// ClassifyStatus applies the status code fast path.
func ClassifyStatus(statusCode int) ErrorCode {
	switch statusCode {
	case http.StatusUnauthorized:
		return ErrorCodeUnauthorized
	case http.StatusNotFound:
		return ErrorCodeNotFound
	case http.StatusRequestTimeout:
		return ErrorCodeTimeout
	default:
		return ErrorCodeAPIRequestFailed
	}
}

// ClassifyResponse derives the ErrorCode for a failed response. A problem body
// with a non-empty type takes precedence over the status code.
func ClassifyResponse(statusCode int, body []byte) (ErrorCode, *Problem) {
	code := ClassifyStatus(statusCode)

	problem := ParseProblem(body)
	if problem != nil && problem.Type != "" {
		code = ErrorCodeFromType(problem.Type)
	}

	return code, problem
}

// Static errors for err113 compliance.
var (
	ErrConfigRequired       = errors.New("config is required")
	ErrTenantRequired       = errors.New("tenant or base URL is required")
	ErrInvalidAPIVersion    = errors.New("invalid API version, allowed are 1 or 2")
	ErrMissingID            = errors.New("missing id in data for update")
	ErrEmptyEndpoint        = errors.New("endpoint is required")
	ErrInvalidGroupName     = errors.New("or-group name must not be empty")
	ErrRequestFailed        = errors.New("weclapp API request failed")
	ErrUnsupportedCacheType = errors.New("unsupported cache type")
	ErrNATSConfigRequired   = errors.New("NATS configuration required for NATS cache")
	ErrCacheDisabled        = errors.New("cache disabled")
	ErrCacheMiss            = errors.New("key not found")
	ErrCacheEntryExpired    = errors.New("entry expired")
	ErrNoMoreItems          = errors.New("no more items")
	ErrCircuitBreakerOpen   = errors.New("circuit breaker is open")
)

// APIError is the single error type surfaced by the client for transport,
// HTTP and local precondition failures.
type APIError struct {
	Code       ErrorCode `json:"code"                 yaml:"code"`
	StatusCode int       `json:"status_code"          yaml:"status_code"`
	Method     string    `json:"method,omitempty"     yaml:"method,omitempty"`
	URL        string    `json:"url,omitempty"        yaml:"url,omitempty"`
	Message    string    `json:"message"              yaml:"message"`
	Problem    *Problem  `json:"problem,omitempty"    yaml:"problem,omitempty"`
	Body       []byte    `json:"-"                    yaml:"-"`
	Err        error     `json:"-"                    yaml:"-"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("weclapp API error [%d]: %s (code: %s)", e.StatusCode, e.Message, e.Code)
	}

	return fmt.Sprintf("weclapp client error: %s (code: %s)", e.Message, e.Code)
}

// Unwrap exposes the underlying cause.
func (e *APIError) Unwrap() error {
	return e.Err
}

// ValidationErrors returns the per-field errors of the problem body, if any.
func (e *APIError) ValidationErrors() []ValidationError {
	if e.Problem == nil {
		return nil
	}

	return e.Problem.ValidationErrors
}

// NewResponseError builds an APIError from a non-2xx response.
func NewResponseError(method, url string, statusCode int, body []byte) *APIError {
	code, problem := ClassifyResponse(statusCode, body)

	return &APIError{
		Code:       code,
		StatusCode: statusCode,
		Method:     method,
		URL:        url,
		Message:    responseMessage(statusCode, problem),
		Problem:    problem,
		Body:       body,
		Err:        ErrRequestFailed,
	}
}

func responseMessage(statusCode int, problem *Problem) string {
	if problem != nil {
		for _, candidate := range []string{problem.Message, problem.Detail, problem.Title} {
			if candidate != "" {
				return candidate
			}
		}
	}

	if text := http.StatusText(statusCode); text != "" {
		return text
	}

	return "request failed"
}

// NewTransportError builds an APIError for a request that never produced a
// response (connection refused, DNS, deadline exceeded).
func NewTransportError(method, url string, err error) *APIError {
	code := ErrorCodeAPIRequestFailed
	if isTimeout(err) {
		code = ErrorCodeTimeout
	}

	return &APIError{
		Code:    code,
		Method:  method,
		URL:     url,
		Message: err.Error(),
		Err:     err,
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error

	return errors.As(err, &netErr) && netErr.Timeout()
}

// NewLocalError builds an APIError for a precondition failure detected before
// any request is sent.
func NewLocalError(code ErrorCode, err error) *APIError {
	return &APIError{
		Code:    code,
		Message: err.Error(),
		Err:     err,
	}
}

// CodeOf returns the ErrorCode carried by err, or ErrorCodeUnknown.
func CodeOf(err error) ErrorCode {
	apiErr := &APIError{}
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}

	return ErrorCodeUnknown
}

// IsNotFound reports whether err is a 404 or an entity-not-found problem.
func IsNotFound(err error) bool {
	apiErr := &APIError{}
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusNotFound ||
			apiErr.Code == ErrorCodeNotFound ||
			apiErr.Code == ErrorCodeEntityNotFound
	}

	return false
}

// IsUnauthorized reports whether err is an authentication failure.
func IsUnauthorized(err error) bool {
	return CodeOf(err) == ErrorCodeUnauthorized
}

// IsTimeout reports whether err is a timeout.
func IsTimeout(err error) bool {
	return CodeOf(err) == ErrorCodeTimeout
}

// IsValidation reports whether err carries a validation problem or any code of
// the validation bands.
func IsValidation(err error) bool {
	code := CodeOf(err)

	return code == ErrorCodeValidation ||
		code.Category() == CategoryDataValidation ||
		code.Category() == CategoryFieldValidation
}
