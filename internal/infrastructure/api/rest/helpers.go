package rest

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

func respondJSON(c *gin.Context, status int, data interface{}) {
	c.JSON(status, data)
}

func respondError(c *gin.Context, status int, message string) {
	apiErr := NewAPIError("ERROR", message, status)
	c.JSON(status, apiErr)
}

func respondErrorWithDetails(c *gin.Context, status int, message, code string, details map[string]interface{}) {
	apiErr := NewAPIErrorWithDetails(code, message, status, details)
	c.JSON(status, apiErr)
}

func respondAPIError(c *gin.Context, err error) {
	apiErr := TranslateError(err)
	if apiErr.Details == nil {
		apiErr.Details = make(map[string]interface{})
	}
	apiErr.Details["request_id"] = GetRequestID(c)
	c.JSON(apiErr.HTTPStatus, apiErr)
}

// respondRejection renders a user-level rejection: HTTP 200 with
// success:false, per the engine's error contract.
func respondRejection(c *gin.Context, message string) {
	c.JSON(http.StatusOK, gin.H{"success": false, "error": message})
}

func bindJSON(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindJSON(obj); err != nil {
		var ve validator.ValidationErrors
		if ok := errors.As(err, &ve); ok {
			msgs := make([]string, 0, len(ve))
			for _, fe := range ve {
				field := strings.ToLower(fe.Field())
				switch fe.Tag() {
				case "required":
					msgs = append(msgs, fmt.Sprintf("%s is required", field))
				case "min":
					msgs = append(msgs, fmt.Sprintf("%s must be at least %s", field, fe.Param()))
				case "max":
					msgs = append(msgs, fmt.Sprintf("%s must be at most %s", field, fe.Param()))
				case "oneof":
					msgs = append(msgs, fmt.Sprintf("%s must be one of %s", field, fe.Param()))
				default:
					msgs = append(msgs, fmt.Sprintf("%s is invalid", field))
				}
			}
			respondRejection(c, strings.Join(msgs, "; "))
		} else {
			respondRejection(c, "invalid JSON payload")
		}
		return err
	}
	return nil
}

// getIDParam parses an integer path parameter.
func getIDParam(c *gin.Context, name string) (int64, bool) {
	value := c.Param(name)
	if value == "" {
		respondAPIError(c, NewAPIError("MISSING_PARAMETER", name+" is required", http.StatusBadRequest))
		return 0, false
	}
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		respondAPIError(c, ErrInvalidID)
		return 0, false
	}
	return id, true
}
