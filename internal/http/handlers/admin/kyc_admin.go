package admin

import (
	"errors"
	"strconv"

	handlershared "github.com/kalakart-next/internal/http/handlers/shared"
	"github.com/kalakart-next/internal/http/response"
	"github.com/kalakart-next/internal/repository"
	"github.com/kalakart-next/internal/service"

	"github.com/gin-gonic/gin"
)

// KycListQuery 实名审核列表查询参数
type KycListQuery struct {
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
	Status   string `form:"status"`
	Keyword  string `form:"keyword"`
}

// ReviewKycRequest 审核实名资料请求
type ReviewKycRequest struct {
	Approve bool   `json:"approve"`
	Reason  string `json:"reason"`
}

// ListKyc 查询实名审核列表
func (h *Handler) ListKyc(c *gin.Context) {
	var query KycListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	page, pageSize := handlershared.NormalizePagination(query.Page, query.PageSize)

	items, total, err := h.KycService.ListKyc(repository.KycListFilter{
		Page:     page,
		PageSize: pageSize,
		Status:   query.Status,
		Keyword:  query.Keyword,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.kyc_list_failed", err)
		return
	}
	response.SuccessWithPage(c, items, handlershared.BuildPagination(page, pageSize, total))
}

// ReviewKyc 审核实名资料
func (h *Handler) ReviewKyc(c *gin.Context) {
	kycID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || kycID == 0 {
		respondError(c, response.CodeBadRequest, "error.kyc_invalid", nil)
		return
	}

	var req ReviewKycRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	reviewerID, _ := c.Get("user_id")
	var reviewer uint
	if value, ok := reviewerID.(uint); ok {
		reviewer = value
	}

	kyc, err := h.KycService.ReviewKyc(c.Request.Context(), service.ReviewKycInput{
		KycID:      uint(kycID),
		Approve:    req.Approve,
		Reason:     req.Reason,
		ReviewerID: reviewer,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrKycNotFound):
			respondError(c, response.CodeNotFound, "error.kyc_not_found", nil)
		case errors.Is(err, service.ErrKycAlreadyVerified):
			respondError(c, response.CodeConflict, "error.kyc_already_verified", nil)
		case errors.Is(err, service.ErrKycStatusInvalid):
			respondError(c, response.CodeBadRequest, "error.kyc_status_invalid", nil)
		case errors.Is(err, service.ErrKycInvalidInput):
			respondError(c, response.CodeBadRequest, "error.kyc_reject_reason_required", nil)
		default:
			respondError(c, response.CodeInternal, "error.kyc_review_failed", err)
		}
		return
	}
	response.Success(c, kyc)
}
