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

// PaymentListQuery 支付列表查询参数
type PaymentListQuery struct {
	Page        int    `form:"page"`
	PageSize    int    `form:"page_size"`
	CustomerID  uint   `form:"customer_id"`
	OrderID     string `form:"order_id"`
	Status      string `form:"status"`
	CreatedFrom string `form:"created_from"`
	CreatedTo   string `form:"created_to"`
}

// SplitListQuery 分账列表查询参数
type SplitListQuery struct {
	Page      int    `form:"page"`
	PageSize  int    `form:"page_size"`
	SellerID  uint   `form:"seller_id"`
	PaymentID uint   `form:"payment_id"`
	Status    string `form:"status"`
}

// ListPayments 查询支付列表
func (h *Handler) ListPayments(c *gin.Context) {
	var query PaymentListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	page, pageSize := handlershared.NormalizePagination(query.Page, query.PageSize)

	filter := repository.PaymentListFilter{
		Page:       page,
		PageSize:   pageSize,
		CustomerID: query.CustomerID,
		OrderID:    query.OrderID,
		Status:     query.Status,
	}
	if from, err := time.Parse(time.RFC3339, query.CreatedFrom); err == nil {
		filter.CreatedFrom = &from
	}
	if to, err := time.Parse(time.RFC3339, query.CreatedTo); err == nil {
		filter.CreatedTo = &to
	}

	payments, total, err := h.PaymentService.ListPayments(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "error.payment_list_failed", err)
		return
	}
	response.SuccessWithPage(c, payments, handlershared.BuildPagination(page, pageSize, total))
}

// GetPayment 查询支付记录
func (h *Handler) GetPayment(c *gin.Context) {
	paymentID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || paymentID == 0 {
		respondError(c, response.CodeBadRequest, "error.payment_invalid", nil)
		return
	}
	payment, err := h.PaymentService.GetPayment(uint(paymentID))
	if err != nil {
		if errors.Is(err, service.ErrPaymentNotFound) {
			respondError(c, response.CodeNotFound, "error.payment_not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.payment_fetch_failed", err)
		return
	}
	response.Success(c, payment)
}

// ListSplits 查询分账列表
func (h *Handler) ListSplits(c *gin.Context) {
	var query SplitListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	page, pageSize := handlershared.NormalizePagination(query.Page, query.PageSize)

	splits, total, err := h.PaymentService.ListSplits(repository.SplitListFilter{
		Page:      page,
		PageSize:  pageSize,
		SellerID:  query.SellerID,
		PaymentID: query.PaymentID,
		Status:    query.Status,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.split_list_failed", err)
		return
	}
	response.SuccessWithPage(c, splits, handlershared.BuildPagination(page, pageSize, total))
}
