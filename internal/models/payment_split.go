package models

import (
	"time"

	"gorm.io/gorm"
)

// PaymentSplit 分账记录，支付捕获时按卖家生成
type PaymentSplit struct {
	ID               uint           `gorm:"primarykey" json:"id"`                                           // 主键
	PaymentID        uint           `gorm:"index;not null" json:"payment_id"`                               // 支付ID
	SellerID         uint           `gorm:"index;not null" json:"seller_id"`                                // 卖家ID
	GrossAmount      Money          `gorm:"type:decimal(20,2);not null" json:"gross_amount"`                // 卖家分摊总额
	CommissionAmount Money          `gorm:"type:decimal(20,2);not null" json:"commission_amount"`           // 平台佣金
	NetAmount        Money          `gorm:"type:decimal(20,2);not null" json:"net_amount"`                  // 卖家净得
	Status           string         `gorm:"index;not null" json:"status"`                                   // 分账状态
	SettleAt         time.Time      `gorm:"index" json:"settle_at"`                                         // 可结算时间
	SettledAt        *time.Time     `json:"settled_at"`                                                     // 实际结算时间
	CreatedAt        time.Time      `gorm:"index" json:"created_at"`                                        // 创建时间
	UpdatedAt        time.Time      `json:"updated_at"`                                                     // 更新时间
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`                                                 // 软删除时间

	Payment *Payment `gorm:"foreignKey:PaymentID" json:"payment,omitempty"`
}

// TableName 指定表名
func (PaymentSplit) TableName() string {
	return "payment_splits"
}
