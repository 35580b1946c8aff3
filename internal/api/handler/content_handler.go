package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/fhe-content-hub/internal/directory"
	"github.com/d60-Lab/fhe-content-hub/internal/model"
	"github.com/d60-Lab/fhe-content-hub/pkg/response"
)

// contentView 列表中展示的一条记录
type contentView struct {
	model.ContentRecord
	HasAccess bool   `json:"hasAccess"`
	Decrypted string `json:"decryptedContent,omitempty"`
}

func (h *Handler) view(r model.ContentRecord) contentView {
	v := contentView{ContentRecord: r, HasAccess: h.dir.CheckAccess(r)}
	if body, ok := h.dir.Decrypted(r.ID); ok {
		v.Decrypted = body
	}
	return v
}

// ListContents 内容列表
// @Summary 刷新并查询内容列表
// @Description 从存储重新加载全部记录，按分类、访问条件或发布者过滤；每条记录附带一次模拟的访问判定
// @Tags 内容
// @Produce json
// @Param search query string false "搜索词"
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/contents [get]
func (h *Handler) ListContents(c *gin.Context) {
	h.dir.Refresh(c.Request.Context())
	list := h.dir.Search(c.Query("search"))

	views := make([]contentView, 0, len(list))
	for _, r := range list {
		views = append(views, h.view(r))
	}
	response.Success(c, gin.H{"total": len(views), "list": views})
}

// SubmitContent 发布加密内容
// @Summary 发布内容
// @Description 以当前钱包身份发布记录并追加到索引
// @Tags 内容
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body directory.SubmitInput true "内容"
// @Success 200 {object} response.Response{data=model.ContentRecord}
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 500 {object} response.Response
// @Router /api/v1/contents [post]
func (h *Handler) SubmitContent(c *gin.Context) {
	var in directory.SubmitInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	rec, err := h.dir.Submit(c.Request.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, rec)
}

// DecryptContent 解密内容
// @Summary 解密内容
// @Description 首次解密有模拟延迟，之后命中缓存
// @Tags 内容
// @Produce json
// @Security BearerAuth
// @Param id path string true "内容ID"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /api/v1/contents/{id}/decrypt [post]
func (h *Handler) DecryptContent(c *gin.Context) {
	id := c.Param("id")
	body, err := h.dir.Decrypt(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"id": id, "content": body})
}

// CheckAccess 访问判定
// @Summary 模拟访问判定
// @Description 持有者类条件每次调用结果可能不同
// @Tags 内容
// @Produce json
// @Param id path string true "内容ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/contents/{id}/access [get]
func (h *Handler) CheckAccess(c *gin.Context) {
	rec, ok := h.dir.Lookup(c.Param("id"))
	if !ok {
		response.NotFound(c, directory.ErrContentNotFound.Error())
		return
	}
	response.Success(c, gin.H{
		"id":              rec.ID,
		"accessCondition": rec.AccessPolicy,
		"hasAccess":       h.dir.CheckAccess(rec),
	})
}

// ReconcileContents 修复孤儿记录
// @Summary 重建索引
// @Description 把已写入但未进入索引的记录追加到索引
// @Tags 内容
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 501 {object} response.Response
// @Router /api/v1/contents/reconcile [post]
func (h *Handler) ReconcileContents(c *gin.Context) {
	n, err := h.dir.Reconcile(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"reindexed": n})
}

// Stats 内容统计
// @Summary 内容统计
// @Tags 内容
// @Produce json
// @Success 200 {object} response.Response{data=model.Stats}
// @Router /api/v1/stats [get]
func (h *Handler) Stats(c *gin.Context) {
	response.Success(c, h.dir.Stats())
}

// Status 当前操作状态
// @Summary 操作状态通知
// @Tags 内容
// @Produce json
// @Success 200 {object} response.Response{data=directory.Status}
// @Router /api/v1/status [get]
func (h *Handler) Status(c *gin.Context) {
	response.Success(c, h.dir.Status())
}

// Categories 建议分类
// @Summary 建议分类
// @Tags 内容
// @Produce json
// @Success 200 {object} response.Response
// @Router /api/v1/categories [get]
func (h *Handler) Categories(c *gin.Context) {
	response.Success(c, gin.H{"categories": model.SuggestedCategories, "default": model.DefaultCategory})
}
