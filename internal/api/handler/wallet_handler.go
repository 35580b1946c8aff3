package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/d60-Lab/fhe-content-hub/internal/api/middleware"
	"github.com/d60-Lab/fhe-content-hub/internal/wallet"
	"github.com/d60-Lab/fhe-content-hub/pkg/logger"
	"github.com/d60-Lab/fhe-content-hub/pkg/response"
)

type addressRequest struct {
	Address string `json:"address" binding:"required"`
}

type sessionResponse struct {
	Token     string `json:"token"`
	SessionID string `json:"session_id"`
	Address   string `json:"address"`
	Checksum  string `json:"checksum"`
}

// ConnectWallet 连接钱包并签发会话令牌
// @Summary 连接钱包
// @Description 绑定钱包地址，替换已有会话，并刷新内容列表
// @Tags 钱包
// @Accept json
// @Produce json
// @Param request body addressRequest true "钱包地址"
// @Success 200 {object} response.Response{data=sessionResponse}
// @Failure 400 {object} response.Response
// @Failure 500 {object} response.Response
// @Router /api/v1/wallet/connect [post]
func (h *Handler) ConnectWallet(c *gin.Context) {
	var req addressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	session := wallet.Connect(req.Address, h.signer)
	token, err := h.tokens.GenerateToken(session.ID(), session.Address())
	if err != nil {
		response.InternalError(c, err)
		return
	}
	h.dir.Connect(session)
	h.dir.Refresh(c.Request.Context())

	response.Success(c, sessionResponse{
		Token:     token,
		SessionID: session.ID(),
		Address:   session.Address(),
		Checksum:  session.Checksum(),
	})
}

// DisconnectWallet 断开钱包
// @Summary 断开钱包
// @Description 清除会话与解密缓存
// @Tags 钱包
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /api/v1/wallet/disconnect [post]
func (h *Handler) DisconnectWallet(c *gin.Context) {
	h.dir.Disconnect()
	logger.Info("wallet disconnected", zap.String("session", middleware.GetSessionID(c)))
	response.Success(c, nil)
}

// SwitchAccount 钱包账户变更通知
// @Summary 切换钱包账户
// @Tags 钱包
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body addressRequest true "新地址"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /api/v1/wallet/account [post]
func (h *Handler) SwitchAccount(c *gin.Context) {
	var req addressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	session := h.dir.Session()
	if session == nil || session.ID() != middleware.GetSessionID(c) {
		response.Unauthorized(c, "wallet session is not connected")
		return
	}
	session.SwitchAccount(req.Address)
	response.Success(c, gin.H{"address": h.dir.Owner(), "checksum": session.Checksum()})
}

// GetWallet 当前钱包
// @Summary 当前钱包
// @Tags 钱包
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /api/v1/wallet [get]
func (h *Handler) GetWallet(c *gin.Context) {
	session := h.dir.Session()
	if session == nil {
		response.Unauthorized(c, "wallet session is not connected")
		return
	}
	response.Success(c, gin.H{
		"session_id": session.ID(),
		"address":    session.Address(),
		"checksum":   session.Checksum(),
	})
}
