package handler

import (
	"context"
	"errors"
	"net/http"

	"plantdiag/internal/classifier"
	"plantdiag/internal/service"
	"plantdiag/internal/utils"
	"plantdiag/pkg/inference"

	"github.com/gin-gonic/gin"
)

// retryAfterSeconds 推理服务不可用时建议的重试间隔
const retryAfterSeconds = "5"

// respondError 按错误类型返回状态码与 kind
func respondError(c *gin.Context, err error) {
	var data interface{}
	if stage, ok := service.FailedStage(err); ok {
		data = gin.H{"stage": stage}
	}

	var validationErr *utils.ValidationError
	switch {
	case errors.As(err, &validationErr):
		utils.ErrorWithData(c, http.StatusBadRequest, utils.KindBadRequest, "参数错误", gin.H{"errors": validationErr.Messages})
	case errors.Is(err, inference.ErrUnavailable):
		c.Header("Retry-After", retryAfterSeconds)
		utils.ErrorWithData(c, http.StatusServiceUnavailable, utils.KindInferenceUnavailable, "推理服务暂不可用，请稍后重试", data)
	case errors.Is(err, inference.ErrInvalidResponse):
		utils.ErrorWithData(c, http.StatusBadGateway, utils.KindInferenceInvalidResponse, "推理服务返回无效结果", data)
	case errors.Is(err, classifier.ErrNoMatchingLabel):
		utils.ErrorWithData(c, http.StatusUnprocessableEntity, utils.KindNoMatchingLabel, "严重程度没有匹配的标签", data)
	case errors.Is(err, service.ErrNotFound):
		utils.ErrorWithData(c, http.StatusNotFound, utils.KindNotFound, err.Error(), data)
	case errors.Is(err, service.ErrInvalidInput):
		utils.ErrorWithData(c, http.StatusBadRequest, utils.KindBadRequest, err.Error(), data)
	case errors.Is(err, service.ErrPersistence):
		utils.ErrorWithData(c, http.StatusInternalServerError, utils.KindPersistenceFailure, "保存失败", data)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		utils.ErrorWithData(c, http.StatusServiceUnavailable, utils.KindInternal, "请求已取消或超时", data)
	default:
		utils.ErrorWithData(c, http.StatusInternalServerError, utils.KindInternal, "服务器内部错误", data)
	}
}
