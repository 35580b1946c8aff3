package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/fhe-content-hub/internal/directory"
	"github.com/d60-Lab/fhe-content-hub/internal/store"
	"github.com/d60-Lab/fhe-content-hub/internal/wallet"
	"github.com/d60-Lab/fhe-content-hub/pkg/jwt"
	"github.com/d60-Lab/fhe-content-hub/pkg/response"
)

// Handler 网关处理器，所有请求共享同一个目录客户端（单钱包）。
type Handler struct {
	dir    *directory.Client
	tokens *jwt.Manager
	signer wallet.Signer
}

// NewHandler signer 为经网关连接的钱包审批写入，nil 表示全部通过
func NewHandler(dir *directory.Client, tokens *jwt.Manager, signer wallet.Signer) *Handler {
	return &Handler{dir: dir, tokens: tokens, signer: signer}
}

// Health 健康检查
// @Summary 健康检查
// @Tags 系统
// @Produce json
// @Success 200 {object} response.Response
// @Failure 503 {object} response.Response
// @Router /healthz [get]
func (h *Handler) Health(c *gin.Context) {
	if !h.dir.Available(c.Request.Context()) {
		response.ServiceUnavailable(c, "content store unavailable")
		return
	}
	response.Success(c, gin.H{"status": "ok"})
}

// fail 将目录与存储错误映射为响应
func fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, directory.ErrInvalidInput):
		response.BadRequest(c, err.Error())
	case errors.Is(err, directory.ErrWalletNotConnected):
		response.Unauthorized(c, err.Error())
	case errors.Is(err, directory.ErrContentNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, directory.ErrUserRejected):
		response.Forbidden(c, "Transaction rejected by user")
	case errors.Is(err, directory.ErrMalformedPayload):
		response.Error(c, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, directory.ErrReconcileUnsupported):
		response.Error(c, http.StatusNotImplemented, err.Error())
	case errors.Is(err, store.ErrUnavailable):
		response.ServiceUnavailable(c, err.Error())
	case errors.Is(err, store.ErrConflict):
		response.Conflict(c, err.Error())
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		response.Error(c, http.StatusGatewayTimeout, err.Error())
	default:
		response.InternalError(c, err)
	}
}
