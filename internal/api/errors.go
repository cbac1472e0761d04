package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/uma-arai/sbcntr-court/internal/apperror"
)

// ErrorResponse はエラー時のレスポンスボディです
type ErrorResponse struct {
	Error   string `json:"error"`
	Rule    string `json:"rule,omitempty"`
	Limit   int    `json:"limit,omitempty"`
	Message string `json:"message"`
}

func newErrorResponse(err error) ErrorResponse {
	res := ErrorResponse{
		Error:   apperror.KindOf(err).String(),
		Rule:    string(apperror.RuleOf(err)),
		Message: err.Error(),
	}
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		res.Limit = appErr.Limit
	}
	// 内部の詳細は返さない
	if apperror.KindOf(err) == apperror.KindUnknown {
		res.Message = "internal error"
	}
	return res
}

func writeError(c *gin.Context, err error) {
	status := apperror.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Printf("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, newErrorResponse(err))
}

func abortWithError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(apperror.HTTPStatus(err), newErrorResponse(err))
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: "bad_request", Message: err.Error()})
}

// remoteError は分類されていないカタログの失敗を Network として扱います
func remoteError(err error) error {
	if apperror.IsClassified(err) {
		return err
	}
	return apperror.Network(err)
}
