package admin

import (
	"errors"
	"strconv"

	"github.com/kalakart-next/internal/constants"
	handlershared "github.com/kalakart-next/internal/http/handlers/shared"
	"github.com/kalakart-next/internal/http/response"
	"github.com/kalakart-next/internal/models"
	"github.com/kalakart-next/internal/repository"
	"github.com/kalakart-next/internal/service"

	"github.com/gin-gonic/gin"
)

// CreateRefundRequest 发起退款请求
type CreateRefundRequest struct {
	PaymentID uint         `json:"payment_id" binding:"required"`
	Amount    models.Money `json:"amount"`
	Reason    string       `json:"reason"`
}

// RefundListQuery 退款列表查询参数
type RefundListQuery struct {
	Page      int    `form:"page"`
	PageSize  int    `form:"page_size"`
	PaymentID uint   `form:"payment_id"`
	Status    string `form:"status"`
	Initiator string `form:"initiator"`
}

// CreateRefund 发起退款
func (h *Handler) CreateRefund(c *gin.Context) {
	var req CreateRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	refund, err := h.PaymentService.InitiateRefund(c.Request.Context(), service.RefundInput{
		PaymentID: req.PaymentID,
		Amount:    req.Amount,
		Reason:    req.Reason,
		Initiator: constants.RefundInitiatorAdmin,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPaymentNotFound):
			respondError(c, response.CodeNotFound, "error.payment_not_found", nil)
		case errors.Is(err, service.ErrPaymentStatusInvalid):
			respondError(c, response.CodeBadRequest, "error.payment_status_invalid", nil)
		case errors.Is(err, service.ErrRefundInvalidAmount):
			respondError(c, response.CodeBadRequest, "error.refund_amount_invalid", nil)
		case errors.Is(err, service.ErrRefundExceedsBalance):
			respondError(c, response.CodeBadRequest, "error.refund_exceeds_balance", nil)
		case errors.Is(err, service.ErrRefundInProgress):
			respondError(c, response.CodeConflict, "error.refund_in_progress", nil)
		case errors.Is(err, service.ErrGatewayUnavailable):
			respondError(c, response.CodeGatewayError, "error.refund_gateway_failed", nil)
		default:
			respondError(c, response.CodeInternal, "error.refund_create_failed", err)
		}
		return
	}
	response.Success(c, refund)
}

// GetRefund 查询退款记录
func (h *Handler) GetRefund(c *gin.Context) {
	refundID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || refundID == 0 {
		respondError(c, response.CodeBadRequest, "error.refund_invalid", nil)
		return
	}
	refund, err := h.PaymentService.GetRefund(uint(refundID))
	if err != nil {
		if errors.Is(err, service.ErrRefundNotFound) {
			respondError(c, response.CodeNotFound, "error.refund_not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.refund_fetch_failed", err)
		return
	}
	response.Success(c, refund)
}

// ListRefunds 查询退款列表
func (h *Handler) ListRefunds(c *gin.Context) {
	var query RefundListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	page, pageSize := handlershared.NormalizePagination(query.Page, query.PageSize)

	refunds, total, err := h.PaymentService.ListRefunds(repository.RefundListFilter{
		Page:      page,
		PageSize:  pageSize,
		PaymentID: query.PaymentID,
		Status:    query.Status,
		Initiator: query.Initiator,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.refund_list_failed", err)
		return
	}
	response.SuccessWithPage(c, refunds, handlershared.BuildPagination(page, pageSize, total))
}
