package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	choredomain "github.com/homewardlabs/homeward/internal/chore/domain"
	expensedomain "github.com/homewardlabs/homeward/internal/expense/domain"
	householddomain "github.com/homewardlabs/homeward/internal/household/domain"
	ledgerdomain "github.com/homewardlabs/homeward/internal/ledger/domain"
	quotadomain "github.com/homewardlabs/homeward/internal/quota/domain"
	recurringdomain "github.com/homewardlabs/homeward/internal/recurring/domain"
	statementdomain "github.com/homewardlabs/homeward/internal/statement/domain"
	"gorm.io/gorm"
)

// APIError is the wire shape of every error response:
// {"error": {"code": ..., "message": ..., "field"?, "details"?}}.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Details any    `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return e.Code
}

var (
	ErrUnauthorized = &APIError{Status: http.StatusUnauthorized, Code: "unauthorized", Message: "missing or invalid API key"}
	ErrRateLimited  = &APIError{Status: http.StatusTooManyRequests, Code: "rate_limited", Message: "too many requests, slow down"}
)

func invalidRequestError() *APIError {
	return &APIError{Status: http.StatusBadRequest, Code: "invalid_request", Message: "invalid request body"}
}

func newValidationError(field, code, message string) *APIError {
	return &APIError{Status: http.StatusBadRequest, Code: code, Message: message, Field: field}
}

var notFoundErrors = []error{
	householddomain.ErrHouseholdNotFound,
	householddomain.ErrMemberNotFound,
	recurringdomain.ErrPlanNotFound,
	choredomain.ErrChoreNotFound,
	choredomain.ErrPhotoNotFound,
	expensedomain.ErrExpenseNotFound,
	expensedomain.ErrShareNotFound,
	gorm.ErrRecordNotFound,
}

// Conflicts are retryable by re-reading state, so they map to 409 rather
// than 400.
var conflictErrors = []error{
	householddomain.ErrHouseholdInactive,
	householddomain.ErrMemberInactive,
	householddomain.ErrSlugAlreadyExists,
	householddomain.ErrCannotRemoveOwner,
	recurringdomain.ErrPlanNotActive,
	choredomain.ErrChoreNotDraft,
	choredomain.ErrChoreNotActive,
}

var validationErrors = []error{
	householddomain.ErrNameRequired,
	householddomain.ErrInvalidTier,
	householddomain.ErrInvalidRole,
	recurringdomain.ErrInvalidInterval,
	recurringdomain.ErrInvalidUnit,
	recurringdomain.ErrInvalidDueDate,
	choredomain.ErrTitleRequired,
	choredomain.ErrInvalidInterval,
	choredomain.ErrInvalidUnit,
	choredomain.ErrPhotoURLMissing,
	expensedomain.ErrInvalidAmount,
	expensedomain.ErrDescriptionRequired,
	expensedomain.ErrMissingShares,
	expensedomain.ErrShareSumMismatch,
	expensedomain.ErrPayerOnlyShare,
	expensedomain.ErrDuplicateShare,
	expensedomain.ErrNotHouseholdMember,
	ledgerdomain.ErrUnknownMetric,
	ledgerdomain.ErrEmptyDeltas,
	ledgerdomain.ErrHouseholdIDRequired,
	statementdomain.ErrInvalidMonth,
}

// AbortWithError translates a service error into the API envelope. Quota
// denials carry the full counter snapshot so clients can render the limit
// without a second call.
func AbortWithError(c *gin.Context, err error) {
	apiErr := toAPIError(err)
	if apiErr.Status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(apiErr.Status, gin.H{"error": apiErr})
}

func toAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var quotaErr *quotadomain.QuotaError
	if errors.As(err, &quotaErr) {
		return &APIError{
			Status:  http.StatusUnprocessableEntity,
			Code:    quotaErr.Error(),
			Message: "tier limit reached for " + string(quotaErr.Metric),
			Details: quotaErr,
		}
	}
	if errors.Is(err, quotadomain.ErrQuotaExceeded) {
		return &APIError{Status: http.StatusUnprocessableEntity, Code: "quota_exceeded", Message: "tier limit reached"}
	}

	if errors.Is(err, recurringdomain.ErrNotPlanOwner) {
		return &APIError{Status: http.StatusForbidden, Code: "not_plan_owner", Message: "only the plan owner may do this"}
	}

	for _, sentinel := range notFoundErrors {
		if errors.Is(err, sentinel) {
			return sentinelError(http.StatusNotFound, err)
		}
	}
	for _, sentinel := range conflictErrors {
		if errors.Is(err, sentinel) {
			return sentinelError(http.StatusConflict, err)
		}
	}
	for _, sentinel := range validationErrors {
		if errors.Is(err, sentinel) {
			return sentinelError(http.StatusBadRequest, err)
		}
	}

	return &APIError{Status: http.StatusInternalServerError, Code: "internal_error", Message: "internal server error"}
}

func sentinelError(status int, err error) *APIError {
	code := err.Error()
	if errors.Is(err, gorm.ErrRecordNotFound) {
		code = "not_found"
	}
	return &APIError{
		Status:  status,
		Code:    code,
		Message: strings.ReplaceAll(code, "_", " "),
	}
}
