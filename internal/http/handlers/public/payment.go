package public

import (
	"errors"
	"strconv"
	"strings"

	"github.com/kalakart-next/internal/http/response"
	"github.com/kalakart-next/internal/models"
	"github.com/kalakart-next/internal/service"

	"github.com/gin-gonic/gin"
)

const idempotencyKeyHeader = "X-Idempotency-Key"

// SellerShareRequest 单个卖家分摊入参
type SellerShareRequest struct {
	SellerID uint         `json:"seller_id" binding:"required"`
	Amount   models.Money `json:"amount"`
}

// CreatePaymentRequest 创建支付请求
type CreatePaymentRequest struct {
	OrderID        string               `json:"order_id" binding:"required"`
	Amount         models.Money         `json:"amount"`
	Currency       string               `json:"currency"`
	IdempotencyKey string               `json:"idempotency_key"`
	Shares         []SellerShareRequest `json:"shares" binding:"required"`
}

// PaymentCallbackRequest 网关回跳捕获请求
type PaymentCallbackRequest struct {
	GatewayOrderID   string `json:"gateway_order_id" binding:"required"`
	GatewayPaymentID string `json:"gateway_payment_id" binding:"required"`
	Signature        string `json:"signature" binding:"required"`
}

// CreatePayment 创建拆分支付单
func (h *Handler) CreatePayment(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	idempotencyKey := strings.TrimSpace(req.IdempotencyKey)
	if idempotencyKey == "" {
		idempotencyKey = strings.TrimSpace(c.GetHeader(idempotencyKeyHeader))
	}

	shares := make([]service.SellerShareInput, 0, len(req.Shares))
	for _, share := range req.Shares {
		shares = append(shares, service.SellerShareInput{
			SellerID: share.SellerID,
			Amount:   share.Amount,
		})
	}

	payment, err := h.PaymentService.CreatePayment(c.Request.Context(), service.CreatePaymentInput{
		OrderID:        req.OrderID,
		CustomerID:     uid,
		Amount:         req.Amount,
		Currency:       req.Currency,
		IdempotencyKey: idempotencyKey,
		Shares:         shares,
	})
	if err != nil {
		// 网关暂不可用时支付单已落库，带回支付 ID 供客户端重试补建
		if errors.Is(err, service.ErrGatewayUnavailable) && payment != nil {
			response.ErrorWithData(c, response.CodeGatewayError, "error.payment_gateway_unavailable", gin.H{
				"payment_id": payment.ID,
			})
			return
		}
		respondPaymentCreateError(c, err)
		return
	}

	response.Success(c, payment)
}

// GetPayment 查询本人支付记录
func (h *Handler) GetPayment(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
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
	if payment.CustomerID != uid {
		respondError(c, response.CodeNotFound, "error.payment_not_found", nil)
		return
	}
	response.Success(c, payment)
}

// RetryPaymentGatewayOrder 为缺少网关订单的支付补建订单
func (h *Handler) RetryPaymentGatewayOrder(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
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
	if payment.CustomerID != uid {
		respondError(c, response.CodeNotFound, "error.payment_not_found", nil)
		return
	}

	updated, err := h.PaymentService.RetryGatewayOrder(c.Request.Context(), uint(paymentID))
	if err != nil {
		respondPaymentRetryError(c, err)
		return
	}
	response.Success(c, updated)
}

// PaymentCallback 网关回跳：校验签名并捕获支付
func (h *Handler) PaymentCallback(c *gin.Context) {
	var req PaymentCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	payment, err := h.PaymentService.VerifyAndCapture(c.Request.Context(), service.VerifyCaptureInput{
		GatewayOrderID:   req.GatewayOrderID,
		GatewayPaymentID: req.GatewayPaymentID,
		Signature:        req.Signature,
	})
	if err != nil {
		respondPaymentCallbackError(c, err)
		return
	}
	response.Success(c, gin.H{
		"payment_id": payment.ID,
		"order_id":   payment.OrderID,
		"status":     payment.Status,
	})
}
