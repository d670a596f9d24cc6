package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/contentplan-backend/internal/platform/apierr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondServiceError maps an *apierr.Error to its status and code; anything
// else is a 500 with fallbackCode.
func RespondServiceError(c *gin.Context, fallbackCode string, err error) {
	if ae, ok := apierr.As(err); ok && ae.Status != 0 {
		code := ae.Code
		if code == "" {
			code = fallbackCode
		}
		RespondError(c, ae.Status, code, ae.Err)
		return
	}
	RespondError(c, http.StatusInternalServerError, fallbackCode, err)
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondAccepted(c *gin.Context, payload any) {
	c.JSON(http.StatusAccepted, payload)
}
