package seller

import (
	"errors"
	"strconv"

	handlershared "github.com/kalakart-next/internal/http/handlers/shared"
	"github.com/kalakart-next/internal/http/response"
	"github.com/kalakart-next/internal/models"
	"github.com/kalakart-next/internal/repository"
	"github.com/kalakart-next/internal/service"

	"github.com/gin-gonic/gin"
)

// RequestPayoutRequest 发起提现请求
type RequestPayoutRequest struct {
	Amount models.Money `json:"amount"`
}

// PayoutListQuery 提现列表查询参数
type PayoutListQuery struct {
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
	Status   string `form:"status"`
}

// SplitListQuery 分账列表查询参数
type SplitListQuery struct {
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
	Status   string `form:"status"`
}

// GetBalance 查询本人可提现余额
func (h *Handler) GetBalance(c *gin.Context) {
	sellerID, ok := getSellerID(c)
	if !ok {
		return
	}
	balance, err := h.PayoutService.GetSellerBalance(sellerID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.balance_fetch_failed", err)
		return
	}
	response.Success(c, balance)
}

// RequestPayout 发起提现
func (h *Handler) RequestPayout(c *gin.Context) {
	sellerID, ok := getSellerID(c)
	if !ok {
		return
	}

	var req RequestPayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	payout, err := h.PayoutService.RequestPayout(c.Request.Context(), service.RequestPayoutInput{
		SellerID: sellerID,
		Amount:   req.Amount,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPayoutInvalidAmount):
			respondError(c, response.CodeBadRequest, "error.payout_amount_invalid", nil)
		case errors.Is(err, service.ErrPayoutBelowMinimum):
			respondError(c, response.CodeBadRequest, "error.payout_below_minimum", nil)
		case errors.Is(err, service.ErrPayoutInsufficientBalance):
			respondError(c, response.CodeBadRequest, "error.payout_insufficient_balance", nil)
		case errors.Is(err, service.ErrPayoutLockBusy):
			respondError(c, response.CodeTooManyRequests, "error.payout_in_progress", nil)
		case errors.Is(err, service.ErrKycNotVerified):
			respondError(c, response.CodeBadRequest, "error.seller_kyc_not_verified", nil)
		case errors.Is(err, service.ErrLinkedAccountNotActive):
			respondError(c, response.CodeBadRequest, "error.linked_account_not_active", nil)
		case errors.Is(err, service.ErrBankAccountNotFound):
			respondError(c, response.CodeBadRequest, "error.bank_account_not_found", nil)
		case errors.Is(err, service.ErrBankAccountNotVerified):
			respondError(c, response.CodeBadRequest, "error.bank_account_not_verified", nil)
		default:
			respondError(c, response.CodeInternal, "error.payout_request_failed", err)
		}
		return
	}
	response.Success(c, payout)
}

// ListMyPayouts 查询本人提现列表
func (h *Handler) ListMyPayouts(c *gin.Context) {
	sellerID, ok := getSellerID(c)
	if !ok {
		return
	}

	var query PayoutListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	page, pageSize := handlershared.NormalizePagination(query.Page, query.PageSize)

	payouts, total, err := h.PayoutService.ListPayouts(repository.PayoutListFilter{
		Page:     page,
		PageSize: pageSize,
		SellerID: sellerID,
		Status:   query.Status,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.payout_list_failed", err)
		return
	}
	response.SuccessWithPage(c, payouts, handlershared.BuildPagination(page, pageSize, total))
}

// GetMyPayout 查询本人提现记录
func (h *Handler) GetMyPayout(c *gin.Context) {
	sellerID, ok := getSellerID(c)
	if !ok {
		return
	}
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
	if payout.SellerID != sellerID {
		respondError(c, response.CodeNotFound, "error.payout_not_found", nil)
		return
	}
	response.Success(c, payout)
}

// ListMySplits 查询本人分账列表
func (h *Handler) ListMySplits(c *gin.Context) {
	sellerID, ok := getSellerID(c)
	if !ok {
		return
	}

	var query SplitListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	page, pageSize := handlershared.NormalizePagination(query.Page, query.PageSize)

	splits, total, err := h.PaymentService.ListSplits(repository.SplitListFilter{
		Page:     page,
		PageSize: pageSize,
		SellerID: sellerID,
		Status:   query.Status,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.split_list_failed", err)
		return
	}
	response.SuccessWithPage(c, splits, handlershared.BuildPagination(page, pageSize, total))
}
