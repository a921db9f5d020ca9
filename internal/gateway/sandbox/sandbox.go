package sandbox

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"

	"github.com/kalakart-next/internal/gateway"

	"github.com/google/uuid"
)

// Gateway 沙箱网关，内存态实现收单与打款接口，供开发与测试环境使用
type Gateway struct {
	keySecret string

	mu        sync.Mutex
	transfers map[string]string // gatewayPayoutID -> 状态
}

// New 创建沙箱网关
func New(keySecret string) *Gateway {
	return &Gateway{
		keySecret: keySecret,
		transfers: make(map[string]string),
	}
}

// CreateOrder 创建收款订单
func (g *Gateway) CreateOrder(ctx context.Context, input gateway.CreateOrderInput) (*gateway.CreateOrderResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, gateway.NewError("context_canceled", err.Error(), true)
	}
	if !input.Amount.IsPositive() {
		return nil, gateway.NewError("invalid_amount", "order amount must be positive", false)
	}
	return &gateway.CreateOrderResult{
		GatewayOrderID: "order_" + shortID(),
	}, nil
}

// CreateOrderWithTransfer 创建携带分账指令的收款订单
func (g *Gateway) CreateOrderWithTransfer(ctx context.Context, input gateway.CreateOrderTransferInput) (*gateway.CreateOrderResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, gateway.NewError("context_canceled", err.Error(), true)
	}
	if !input.Amount.IsPositive() {
		return nil, gateway.NewError("invalid_amount", "order amount must be positive", false)
	}
	if strings.TrimSpace(input.LinkedAccountID) == "" {
		return nil, gateway.NewError("invalid_account_id", "linked account id required", false)
	}
	if !input.TransferAmount.IsPositive() || input.TransferAmount.Decimal.GreaterThan(input.Amount.Decimal) {
		return nil, gateway.NewError("invalid_transfer_amount", "transfer amount must be positive and within order amount", false)
	}
	return &gateway.CreateOrderResult{
		GatewayOrderID: "order_" + shortID(),
	}, nil
}

// Capture 确认捕获支付，沙箱内立即成功
func (g *Gateway) Capture(ctx context.Context, input gateway.CaptureInput) error {
	if err := ctx.Err(); err != nil {
		return gateway.NewError("context_canceled", err.Error(), true)
	}
	if strings.TrimSpace(input.GatewayPaymentID) == "" {
		return gateway.NewError("invalid_payment_id", "gateway payment id required", false)
	}
	if !input.Amount.IsPositive() {
		return gateway.NewError("invalid_amount", "capture amount must be positive", false)
	}
	return nil
}

// VerifySignature 校验支付回跳签名
func (g *Gateway) VerifySignature(gatewayOrderID, gatewayPaymentID, signature string) bool {
	expected := g.SignPayment(gatewayOrderID, gatewayPaymentID)
	return hmac.Equal([]byte(expected), []byte(strings.TrimSpace(signature)))
}

// SignPayment 计算支付签名（HMAC-SHA256，消息为 orderID|paymentID）
func (g *Gateway) SignPayment(gatewayOrderID, gatewayPaymentID string) string {
	mac := hmac.New(sha256.New, []byte(g.keySecret))
	mac.Write([]byte(gatewayOrderID + "|" + gatewayPaymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// CreateRefund 发起退款，沙箱内立即成功
func (g *Gateway) CreateRefund(ctx context.Context, input gateway.RefundInput) (*gateway.RefundResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, gateway.NewError("context_canceled", err.Error(), true)
	}
	if strings.TrimSpace(input.GatewayPaymentID) == "" {
		return nil, gateway.NewError("invalid_payment_id", "gateway payment id required", false)
	}
	if !input.Amount.IsPositive() {
		return nil, gateway.NewError("invalid_amount", "refund amount must be positive", false)
	}
	return &gateway.RefundResult{
		GatewayRefundID: "rfnd_" + shortID(),
		Status:          "processed",
	}, nil
}

// CreateContact 创建网关联系人
func (g *Gateway) CreateContact(ctx context.Context, input gateway.ContactInput) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", gateway.NewError("context_canceled", err.Error(), true)
	}
	if strings.TrimSpace(input.LegalName) == "" {
		return "", gateway.NewError("invalid_contact", "legal name required", false)
	}
	return "cont_" + shortID(), nil
}

// CreateFundAccount 创建网关收款账户
func (g *Gateway) CreateFundAccount(ctx context.Context, input gateway.FundAccountInput) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", gateway.NewError("context_canceled", err.Error(), true)
	}
	if strings.TrimSpace(input.GatewayContactID) == "" {
		return "", gateway.NewError("invalid_contact_id", "gateway contact id required", false)
	}
	if strings.TrimSpace(input.AccountNumber) == "" || strings.TrimSpace(input.IfscCode) == "" {
		return "", gateway.NewError("invalid_bank_account", "account number and ifsc required", false)
	}
	return "fa_" + shortID(), nil
}

// CreateTransfer 发起打款，状态先为 processing，下一次查询时完成
func (g *Gateway) CreateTransfer(ctx context.Context, input gateway.TransferInput) (*gateway.TransferResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, gateway.NewError("context_canceled", err.Error(), true)
	}
	if strings.TrimSpace(input.GatewayAccountID) == "" {
		return nil, gateway.NewError("invalid_account_id", "gateway account id required", false)
	}
	if !input.Amount.IsPositive() {
		return nil, gateway.NewError("invalid_amount", "transfer amount must be positive", false)
	}

	id := "pout_" + shortID()
	g.mu.Lock()
	g.transfers[id] = gateway.TransferStatusProcessing
	g.mu.Unlock()

	return &gateway.TransferResult{
		GatewayPayoutID: id,
		Status:          gateway.TransferStatusProcessing,
	}, nil
}

// GetTransferStatus 查询打款状态
func (g *Gateway) GetTransferStatus(ctx context.Context, gatewayPayoutID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", gateway.NewError("context_canceled", err.Error(), true)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	status, ok := g.transfers[gatewayPayoutID]
	if !ok {
		return "", gateway.NewError("transfer_not_found", "unknown gateway payout id", false)
	}
	if status == gateway.TransferStatusProcessing {
		// 沙箱内打款在首次查询后即视为完成
		g.transfers[gatewayPayoutID] = gateway.TransferStatusProcessed
		return gateway.TransferStatusProcessed, nil
	}
	return status, nil
}

func shortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:14]
}
