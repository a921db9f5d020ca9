package models

import (
	"time"

	"gorm.io/gorm"
)

// Refund 退款记录
type Refund struct {
	ID              uint           `gorm:"primarykey" json:"id"`                             // 主键
	PaymentID       uint           `gorm:"index;not null" json:"payment_id"`                 // 原支付ID
	Amount          Money          `gorm:"type:decimal(20,2);not null" json:"amount"`        // 退款金额
	Reason          string         `gorm:"type:text" json:"reason"`                          // 退款原因
	Initiator       string         `gorm:"not null" json:"initiator"`                        // 发起方
	Status          string         `gorm:"index;not null" json:"status"`                     // 退款状态
	GatewayRefundID string         `gorm:"index" json:"gateway_refund_id"`                   // 网关退款流水号
	FailureReason   string         `gorm:"type:text" json:"failure_reason"`                  // 失败原因
	CompletedAt     *time.Time     `json:"completed_at"`                                     // 完成时间
	CreatedAt       time.Time      `gorm:"index" json:"created_at"`                          // 创建时间
	UpdatedAt       time.Time      `json:"updated_at"`                                       // 更新时间
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`                                   // 软删除时间

	Payment *Payment `gorm:"foreignKey:PaymentID" json:"payment,omitempty"`
}

// TableName 指定表名
func (Refund) TableName() string {
	return "refunds"
}
