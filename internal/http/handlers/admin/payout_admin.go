package admin

import (
	"errors"
	"strconv"
	"time"

	handlershared "github.com/kalakart-next/internal/http/handlers/shared"
	"github.com/kalakart-next/internal/http/response"
	"github.com/kalakart-next/internal/repository"
	"github.com/kalakart-next/internal/service"

	"github.com/gin-gonic/gin"
)

// PayoutListQuery 打款列表查询参数
type PayoutListQuery struct {
	Page        int    `form:"page"`
	PageSize    int    `form:"page_size"`
	SellerID    uint   `form:"seller_id"`
	Status      string `form:"status"`
	CreatedFrom string `form:"created_from"`
	CreatedTo   string `form:"created_to"`
}

// ListPayouts 查询打款列表
func (h *Handler) ListPayouts(c *gin.Context) {
	var query PayoutListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	page, pageSize := handlershared.NormalizePagination(query.Page, query.PageSize)

	filter := repository.PayoutListFilter{
		Page:     page,
		PageSize: pageSize,
		SellerID: query.SellerID,
		Status:   query.Status,
	}
	if from, err := time.Parse(time.RFC3339, query.CreatedFrom); err == nil {
		filter.CreatedFrom = &from
	}
	if to, err := time.Parse(time.RFC3339, query.CreatedTo); err == nil {
		filter.CreatedTo = &to
	}

	payouts, total, err := h.PayoutService.ListPayouts(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "error.payout_list_failed", err)
		return
	}
	response.SuccessWithPage(c, payouts, handlershared.BuildPagination(page, pageSize, total))
}

// ProcessPayouts 立即执行一轮到期打款
func (h *Handler) ProcessPayouts(c *gin.Context) {
	processed, err := h.PayoutService.ProcessDuePayouts(c.Request.Context(), time.Now())
	if err != nil {
		respondError(c, response.CodeInternal, "error.payout_process_failed", err)
		return
	}
	requestLog(c).Infow("admin_payouts_processed", "count", processed)
	response.Success(c, gin.H{"processed": processed})
}

// GetPayout 查询打款记录
func (h *Handler) GetPayout(c *gin.Context) {
	payoutID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || payoutID == 0 {
		respondError(c, response.CodeBadRequest, "error.payout_invalid", nil)
		return
	}
	payout, err := h.PayoutService.GetPayout(uint(payoutID))
	if err != nil {
		if errors.Is(err, service.ErrPayoutNotFound) {
			respondError(c, response.CodeNotFound, "error.payout_not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.payout_fetch_failed", err)
		return
	}
	response.Success(c, payout)
}
