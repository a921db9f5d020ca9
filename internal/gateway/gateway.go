package gateway

import (
	"context"
	"fmt"

	"github.com/kalakart-next/internal/models"
)

// Error 网关调用错误，Retryable 标记是否可安全重试
type Error struct {
	Code      string
	Message   string
	Retryable bool
}

// Error 实现 error 接口
func (e *Error) Error() string {
	return fmt.Sprintf("gateway error %s: %s", e.Code, e.Message)
}

// NewError 创建网关错误
func NewError(code, message string, retryable bool) *Error {
	return &Error{Code: code, Message: message, Retryable: retryable}
}

// CreateOrderInput 创建网关订单入参
type CreateOrderInput struct {
	OrderID  string
	Amount   models.Money
	Currency string
	Notes    map[string]string
}

// CreateOrderResult 创建网关订单结果
type CreateOrderResult struct {
	GatewayOrderID string
}

// CreateOrderTransferInput 创建携带分账指令的网关订单入参。
// 捕获后网关按 TransferAmount 自动向关联账户划拨净得。
type CreateOrderTransferInput struct {
	OrderID         string
	Amount          models.Money
	Currency        string
	Notes           map[string]string
	LinkedAccountID string
	TransferAmount  models.Money
}

// CaptureInput 捕获支付入参
type CaptureInput struct {
	GatewayPaymentID string
	Amount           models.Money
	Currency         string
}

// RefundInput 发起网关退款入参
type RefundInput struct {
	GatewayPaymentID string
	Amount           models.Money
	Reason           string
}

// RefundResult 网关退款结果
type RefundResult struct {
	GatewayRefundID string
	Status          string
}

// PaymentGateway 收单网关接口
type PaymentGateway interface {
	// CreateOrder 在网关侧创建收款订单
	CreateOrder(ctx context.Context, input CreateOrderInput) (*CreateOrderResult, error)
	// CreateOrderWithTransfer 创建携带分账指令的收款订单
	CreateOrderWithTransfer(ctx context.Context, input CreateOrderTransferInput) (*CreateOrderResult, error)
	// VerifySignature 校验支付完成回跳签名
	VerifySignature(gatewayOrderID, gatewayPaymentID, signature string) bool
	// Capture 在网关侧确认捕获支付
	Capture(ctx context.Context, input CaptureInput) error
	// CreateRefund 发起退款
	CreateRefund(ctx context.Context, input RefundInput) (*RefundResult, error)
}

// ContactInput 创建网关联系人入参
type ContactInput struct {
	SellerID  uint
	LegalName string
	Email     string
}

// FundAccountInput 创建网关收款账户入参
type FundAccountInput struct {
	GatewayContactID string
	HolderName       string
	AccountNumber    string
	IfscCode         string
}

// TransferInput 发起打款入参
type TransferInput struct {
	ReferenceNo      string
	GatewayAccountID string
	Amount           models.Money
	Currency         string
	Narration        string
}

// TransferResult 打款结果
type TransferResult struct {
	GatewayPayoutID string
	Status          string
}

// 网关侧打款状态
const (
	TransferStatusProcessing = "processing"
	TransferStatusProcessed  = "processed"
	TransferStatusReversed   = "reversed"
)

// PayoutGateway 打款网关接口
type PayoutGateway interface {
	// CreateContact 创建网关联系人
	CreateContact(ctx context.Context, input ContactInput) (string, error)
	// CreateFundAccount 创建网关收款账户
	CreateFundAccount(ctx context.Context, input FundAccountInput) (string, error)
	// CreateTransfer 发起打款
	CreateTransfer(ctx context.Context, input TransferInput) (*TransferResult, error)
	// GetTransferStatus 查询打款状态
	GetTransferStatus(ctx context.Context, gatewayPayoutID string) (string, error)
}
