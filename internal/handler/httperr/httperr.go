package httperr

import (
	"net/http"

	"roombook/internal/pkg/errs"

	"github.com/gin-gonic/gin"
)

type Response struct {
	Status int `json:"-"`
	Error  struct {
		Message string `json:"message"`
	} `json:"error"`
	Detail any `json:"detail,omitempty"`
}

// preserves original error for future monitoring
func AbortWithError(c *gin.Context, status int, err error, msg string, detail any) {
	if err == nil {
		panic("AbortWithError: err cannot be nil")
	}

	resp := Response{Status: status}
	resp.Error.Message = msg
	resp.Detail = detail

	_ = c.Error(gin.Error{
		Err:  err,
		Type: gin.ErrorTypePublic,
		Meta: resp,
	})
	c.AbortWithStatusJSON(status, resp)
}

type mapping struct {
	category error
	status   int
	message  string
}

// Order matters: an error marked with more than one category takes the
// first match.
var mappings = []mapping{
	{errs.ErrValidation, http.StatusBadRequest, "Invalid request"},
	{errs.ErrForbidden, http.StatusForbidden, "Forbidden"},
	{errs.ErrNotFound, http.StatusNotFound, "Not found"},
	{errs.ErrConcurrencyConflict, http.StatusConflict, "Another booking for these dates is in progress"},
	{errs.ErrInvalidStateTransition, http.StatusConflict, "Operation not allowed in the current state"},
	{errs.ErrUnavailable, http.StatusConflict, "Not enough units available"},
	{errs.ErrExternalGateway, http.StatusBadGateway, "Payment provider error"},
}

// AbortWithUseCaseError maps a categorized use-case error to its status.
// Uncategorized errors become 500 and their text is not exposed.
func AbortWithUseCaseError(c *gin.Context, err error) {
	for _, m := range mappings {
		if !errs.Is(err, m.category) {
			continue
		}
		var detail any
		if m.status < http.StatusInternalServerError {
			d := gin.H{"reason": err.Error()}
			if m.category == errs.ErrConcurrencyConflict {
				d["retryable"] = true
			}
			detail = d
		}
		AbortWithError(c, m.status, err, m.message, detail)
		return
	}
	AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
}
