package models

import (
	"time"

	"gorm.io/gorm"
)

// Payment 支付记录
type Payment struct {
	ID               uint           `gorm:"primarykey" json:"id"`                                          // 主键
	OrderID          string         `gorm:"index;not null" json:"order_id"`                                // 业务订单号
	CustomerID       uint           `gorm:"index;not null" json:"customer_id"`                             // 买家ID
	Amount           Money          `gorm:"type:decimal(20,2);not null" json:"amount"`                     // 支付金额
	Currency         string         `gorm:"not null" json:"currency"`                                      // 币种
	CommissionRate   Rate           `gorm:"type:decimal(8,4);not null;default:0" json:"commission_rate"`   // 下单时锁定的平台佣金比例
	Status           string         `gorm:"index;not null" json:"status"`                                  // 支付状态
	GatewayOrderID   string         `gorm:"index" json:"gateway_order_id"`                                 // 网关订单号
	GatewayPaymentID string         `gorm:"index" json:"gateway_payment_id"`                               // 网关支付流水号
	IdempotencyKey   string         `gorm:"uniqueIndex;not null" json:"idempotency_key"`                   // 幂等键
	SellerShares     JSON           `gorm:"type:json" json:"seller_shares"`                                // 各卖家分摊金额（seller_id -> gross）
	RefundedAmount   Money          `gorm:"type:decimal(20,2);not null;default:0" json:"refunded_amount"`  // 已退款金额
	FailureReason    string         `gorm:"type:text" json:"failure_reason"`                               // 失败原因
	InitiatedAt      time.Time      `gorm:"index" json:"initiated_at"`                                     // 发起时间
	CompletedAt      *time.Time     `gorm:"index" json:"completed_at"`                                     // 捕获完成时间
	CreatedAt        time.Time      `gorm:"index" json:"created_at"`                                       // 创建时间
	UpdatedAt        time.Time      `gorm:"index" json:"updated_at"`                                       // 更新时间
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`                                                // 软删除时间
}

// TableName 指定表名
func (Payment) TableName() string {
	return "payments"
}
