package models

import (
	"time"

	"gorm.io/gorm"
)

// SellerLinkedAccount 网关侧关联收款账户
type SellerLinkedAccount struct {
	ID               uint           `gorm:"primarykey" json:"id"`                      // 主键
	SellerID         uint           `gorm:"uniqueIndex;not null" json:"seller_id"`     // 卖家ID
	GatewayContactID string         `gorm:"index" json:"gateway_contact_id"`           // 网关联系人ID
	GatewayAccountID string         `gorm:"index" json:"gateway_account_id"`           // 网关收款账户ID
	Status           string         `gorm:"index;not null" json:"status"`              // 账户状态
	FailureReason    string         `gorm:"type:text" json:"failure_reason"`           // 创建失败原因
	CreatedAt        time.Time      `gorm:"index" json:"created_at"`                   // 创建时间
	UpdatedAt        time.Time      `json:"updated_at"`                                // 更新时间
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`                            // 软删除时间
}

// TableName 指定表名
func (SellerLinkedAccount) TableName() string {
	return "seller_linked_accounts"
}
