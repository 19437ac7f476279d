package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/escrow-backend/internal/logger"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
)

// Response единый конверт ответа API.
type Response struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message,omitempty"`
	Data       interface{} `json:"data,omitempty"`
	Errors     []ErrorInfo `json:"errors,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type Pagination struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    data,
	})
}

// Message успешный ответ без данных.
func Message(c *gin.Context, message string) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Message: message,
	})
}

func Paginated(c *gin.Context, data interface{}, total, limit, offset int) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
		Pagination: &Pagination{
			Total:   total,
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+limit < total,
		},
	})
}

// Error переводит ошибку в HTTP-ответ. Инфраструктурные ошибки логируются и не раскрываются клиенту.
func Error(c *gin.Context, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) && !apperror.IsInternal(err) {
		Fail(c, appErr.HTTPStatus, appErr.Code, appErr.Message)
		return
	}

	logger.Log.WithError(err).WithField("path", c.Request.URL.Path).WithField("method", c.Request.Method).Error("ошибка обработки запроса")
	Fail(c, http.StatusInternalServerError, apperror.ErrCodeInternal, "внутренняя ошибка сервера")
}

// Fail ответ об ошибке с явным статусом.
func Fail(c *gin.Context, status int, code apperror.ErrorCode, message string) {
	c.AbortWithStatusJSON(status, Response{
		Success: false,
		Message: message,
		Errors:  []ErrorInfo{{Code: string(code), Message: message}},
	})
}

// ValidationFailed ошибка привязки тела запроса с указанием поля.
func ValidationFailed(c *gin.Context, field, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, Response{
		Success: false,
		Message: "некорректные данные запроса",
		Errors:  []ErrorInfo{{Code: string(apperror.ErrCodeValidation), Message: message, Field: field}},
	})
}

func BadRequest(c *gin.Context, message string) {
	Fail(c, http.StatusBadRequest, apperror.ErrCodeBadRequest, message)
}

func NotFound(c *gin.Context, message string) {
	Fail(c, http.StatusNotFound, apperror.ErrCodeNotFound, message)
}

func Unauthorized(c *gin.Context, message string) {
	Fail(c, http.StatusUnauthorized, apperror.ErrCodeUnauthorized, message)
}

func Forbidden(c *gin.Context, message string) {
	Fail(c, http.StatusForbidden, apperror.ErrCodeForbidden, message)
}
