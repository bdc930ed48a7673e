package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"edclub/internal/attendance"
	"edclub/internal/auth"
	"edclub/internal/badges"
	"edclub/internal/events"
	"edclub/internal/posts"
)

// bindJSON decodes and validates a request body. Schema mismatches become a
// 400 with a structured fieldErrors payload; the caller bails out on false.
func bindJSON(c *gin.Context, obj any) bool {
	err := c.ShouldBindJSON(obj)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fieldErrors := make(map[string][]string, len(verrs))
		for _, fe := range verrs {
			fieldErrors[fe.Field()] = append(fieldErrors[fe.Field()], validationMessage(fe))
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"fieldErrors": fieldErrors}})
		return false
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON body"})
	return false
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "uuid":
		return "must be a valid UUID"
	case "min":
		return "is too short"
	case "max":
		return "is too long"
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "is invalid"
	}
}

// fieldError emits a single-field validation failure in the same envelope
// bindJSON uses.
func fieldError(c *gin.Context, field, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"fieldErrors": gin.H{field: []string{message}}}})
}

// serviceError translates domain errors into the HTTP taxonomy: auth
// failures to 401, validation to 400, missing catalog rows to 404 and
// everything else to 500 with the message passed through.
func serviceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidRefresh):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, auth.ErrDuplicateEmail),
		errors.Is(err, auth.ErrInvalidRole),
		errors.Is(err, events.ErrEmptyTitle),
		errors.Is(err, events.ErrInvalidTimeRange),
		errors.Is(err, events.ErrInvalidTeamID),
		errors.Is(err, attendance.ErrInvalidEventID),
		errors.Is(err, attendance.ErrInvalidStatus),
		errors.Is(err, badges.ErrInvalidUserID),
		errors.Is(err, badges.ErrInvalidBadgeID),
		errors.Is(err, posts.ErrInvalidContent):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, badges.ErrBadgeNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
