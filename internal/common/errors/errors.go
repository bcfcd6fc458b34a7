// Package errors provides standardized error handling for BPMN workflow integration.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// The taxonomy is three-way: not-found codes (data integrity, operator
// attention, no retry), invalid-state codes (user-facing rejection,
// recoverable by the caller), and technical codes (retryable).
const (
	ErrCodeCompanyNotFound    ErrorCode = "COMPANY_NOT_FOUND"
	ErrCodeSpecialistNotFound ErrorCode = "SPECIALIST_NOT_FOUND"
	ErrCodeSessionNotFound    ErrorCode = "SESSION_NOT_FOUND"
	ErrCodePayoutNotFound     ErrorCode = "PAYOUT_REQUEST_NOT_FOUND"

	ErrCodeSessionInvalidState  ErrorCode = "SESSION_INVALID_STATE"
	ErrCodePayoutRequestPending ErrorCode = "PAYOUT_REQUEST_PENDING"
	ErrCodePayoutInvalidState   ErrorCode = "PAYOUT_INVALID_STATE"
	ErrCodePayoutNoEarnings     ErrorCode = "PAYOUT_NO_EARNINGS"

	ErrCodeInvalidSessionDuration ErrorCode = "INVALID_SESSION_DURATION"

	ErrCodeDeductionFailed          ErrorCode = "DEDUCTION_FAILED"
	ErrCodeResetFailed              ErrorCode = "ENTITLEMENT_RESET_FAILED"
	ErrCodeEntitlementQueryFailed   ErrorCode = "ENTITLEMENT_QUERY_FAILED"
	ErrCodeEarningsQuery            ErrorCode = "EARNINGS_QUERY_FAILED"
	ErrCodePayoutWriteFailed        ErrorCode = "PAYOUT_WRITE_FAILED"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeNotificationSendFailed   ErrorCode = "NOTIFICATION_SEND_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}

	if e.ErrorVariables != nil {
		for k, v := range e.ErrorVariables {
			vars[k] = v
		}
	}

	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// NewCompanyNotFoundError flags unbilled usage: a completed session whose
// employee resolves to no company must fail loudly, never skip silently.
func NewCompanyNotFoundError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeCompanyNotFound,
		Message:   "Company record not found for session",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSpecialistNotFoundError creates a non-retryable lookup error.
func NewSpecialistNotFoundError(specialistID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSpecialistNotFound,
		Message:   "Specialist not found",
		Details:   fmt.Sprintf("specialistId: %s", specialistID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSessionNotFoundError creates a non-retryable lookup error.
func NewSessionNotFoundError(sessionID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSessionNotFound,
		Message:   "Session not found",
		Details:   fmt.Sprintf("sessionId: %s", sessionID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewPayoutNotFoundError creates a non-retryable lookup error.
func NewPayoutNotFoundError(requestID string) *StandardError {
	return &StandardError{
		Code:      ErrCodePayoutNotFound,
		Message:   "Payout request not found",
		Details:   fmt.Sprintf("requestId: %s", requestID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSessionInvalidStateError rejects a completion attempt on a session
// that is not in the approved state (including retried completions).
func NewSessionInvalidStateError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSessionInvalidState,
		Message:   "Session is not in a completable state",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewPayoutRequestPendingError rejects a second pending payout request.
// Recoverable by the specialist once the open request is settled.
func NewPayoutRequestPendingError(specialistID string) *StandardError {
	return &StandardError{
		Code:      ErrCodePayoutRequestPending,
		Message:   "A pending payout request already exists",
		Details:   fmt.Sprintf("specialistId: %s", specialistID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewPayoutInvalidStateError rejects settlement of a non-pending request.
func NewPayoutInvalidStateError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodePayoutInvalidState,
		Message:   "Payout request is not pending",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewPayoutNoEarningsError rejects a payout request with nothing to claim.
func NewPayoutNoEarningsError(specialistID string) *StandardError {
	return &StandardError{
		Code:      ErrCodePayoutNoEarnings,
		Message:   "No earnings available for the requested period",
		Details:   fmt.Sprintf("specialistId: %s", specialistID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidDurationError guards money math against bad durations.
func NewInvalidDurationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidSessionDuration,
		Message:   "Session duration must be positive",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDeductionFailedError creates a retryable accounting write error.
func NewDeductionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDeductionFailed,
		Message:   "Minute deduction failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewResetFailedError creates a retryable entitlement reset error.
func NewResetFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeResetFailed,
		Message:   "Entitlement reset failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewEarningsQueryError creates a retryable rollup error.
func NewEarningsQueryError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeEarningsQuery,
		Message:   "Earnings rollup query failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewPayoutWriteFailedError creates a retryable payout persistence error.
func NewPayoutWriteFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodePayoutWriteFailed,
		Message:   "Payout request write failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Message:   "Database connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationSendFailedError creates a retryable notification send error.
func NewNotificationSendFailedError(notificationType string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "Notification delivery failed",
		Details:   fmt.Sprintf("type: %s, error: %s", notificationType, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to BPMN error codes.
// The codes are identical on both sides.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeCompanyNotFound:          "COMPANY_NOT_FOUND",
	ErrCodeSpecialistNotFound:       "SPECIALIST_NOT_FOUND",
	ErrCodeSessionNotFound:          "SESSION_NOT_FOUND",
	ErrCodePayoutNotFound:           "PAYOUT_REQUEST_NOT_FOUND",
	ErrCodeSessionInvalidState:      "SESSION_INVALID_STATE",
	ErrCodePayoutRequestPending:     "PAYOUT_REQUEST_PENDING",
	ErrCodePayoutInvalidState:       "PAYOUT_INVALID_STATE",
	ErrCodePayoutNoEarnings:         "PAYOUT_NO_EARNINGS",
	ErrCodeInvalidSessionDuration:   "INVALID_SESSION_DURATION",
	ErrCodeDeductionFailed:          "DEDUCTION_FAILED",
	ErrCodeResetFailed:              "ENTITLEMENT_RESET_FAILED",
	ErrCodeEntitlementQueryFailed:   "ENTITLEMENT_QUERY_FAILED",
	ErrCodeEarningsQuery:            "EARNINGS_QUERY_FAILED",
	ErrCodePayoutWriteFailed:        "PAYOUT_WRITE_FAILED",
	ErrCodeDatabaseConnectionFailed: "DATABASE_CONNECTION_FAILED",
	ErrCodeNotificationSendFailed:   "NOTIFICATION_SEND_FAILED",
}

// GetRetryCount returns the recommended retry count per error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDeductionFailed,
		ErrCodeResetFailed,
		ErrCodeEntitlementQueryFailed,
		ErrCodeEarningsQuery,
		ErrCodePayoutWriteFailed,
		ErrCodeDatabaseConnectionFailed,
		ErrCodeNotificationSendFailed:
		return 3 // Retryable technical errors

	default:
		return 0 // Business and data-integrity errors: no retry
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for the engine.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code) // Fallback
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      bpmnCode,
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "NOT_FOUND"):
		return "DATA_INTEGRITY"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "PENDING") || strings.Contains(codeStr, "NO_EARNINGS"):
		return "BUSINESS_STATE"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	default:
		return "TECHNICAL"
	}
}
