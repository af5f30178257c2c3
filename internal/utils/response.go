package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// 错误类型，便于调用方区分“稍后重试”“修正配置”“修正请求”
const (
	KindInferenceUnavailable     = "inference_unavailable"
	KindInferenceInvalidResponse = "inference_invalid_response"
	KindNoMatchingLabel          = "no_matching_label"
	KindPersistenceFailure       = "persistence_failure"
	KindNotFound                 = "not_found"
	KindBadRequest               = "bad_request"
	KindUnauthorized             = "unauthorized"
	KindForbidden                = "forbidden"
	KindInternal                 = "internal_error"
)

// Response 统一响应格式
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Kind    string      `json:"kind,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// PaginationResponse 分页响应
type PaginationResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
	Total   int64       `json:"total"`
	Page    int         `json:"page"`
	Limit   int         `json:"limit"`
}

// SuccessResponse 成功响应
func SuccessResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    200,
		Message: "成功",
		Data:    data,
	})
}

// SuccessWithMessage 成功响应(带消息)
func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    200,
		Message: message,
		Data:    data,
	})
}

// CreatedResponse 201 创建成功
func CreatedResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    201,
		Message: "创建成功",
		Data:    data,
	})
}

// ErrorResponse 错误响应
func ErrorResponse(c *gin.Context, code int, kind, message string) {
	ErrorWithData(c, code, kind, message, nil)
}

// ErrorWithData 错误响应(带附加数据)
func ErrorWithData(c *gin.Context, code int, kind, message string, data interface{}) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
		Kind:    kind,
		Data:    data,
	})
}

// BadRequest 400错误
func BadRequest(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusBadRequest, KindBadRequest, message)
}

// Unauthorized 401错误
func Unauthorized(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusUnauthorized, KindUnauthorized, message)
}

// Forbidden 403错误
func Forbidden(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusForbidden, KindForbidden, message)
}

// NotFound 404错误
func NotFound(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusNotFound, KindNotFound, message)
}

// InternalError 500错误
func InternalError(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusInternalServerError, KindInternal, message)
}

// PaginatedResponse 分页响应
func PaginatedResponse(c *gin.Context, data interface{}, total int64, page int, limit int) {
	c.JSON(http.StatusOK, PaginationResponse{
		Code:    200,
		Message: "成功",
		Data:    data,
		Total:   total,
		Page:    page,
		Limit:   limit,
	})
}
