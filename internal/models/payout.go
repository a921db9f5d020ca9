package models

import (
	"time"

	"gorm.io/gorm"
)

// Payout 卖家提现打款记录
type Payout struct {
	ID               uint           `gorm:"primarykey" json:"id"`                          // 主键
	ReferenceNo      string         `gorm:"uniqueIndex;not null" json:"reference_no"`      // 业务参考号
	SellerID         uint           `gorm:"index;not null" json:"seller_id"`               // 卖家ID
	BankAccountID    uint           `gorm:"index;not null" json:"bank_account_id"`         // 收款银行账户ID
	Amount           Money          `gorm:"type:decimal(20,2);not null" json:"amount"`     // 打款金额
	Currency         string         `gorm:"not null" json:"currency"`                      // 币种
	Status           string         `gorm:"index;not null" json:"status"`                  // 打款状态
	GatewayPayoutID  string         `gorm:"index" json:"gateway_payout_id"`                // 网关打款流水号
	FailureReason    string         `gorm:"type:text" json:"failure_reason"`               // 失败原因
	ScheduledAt      time.Time      `gorm:"index" json:"scheduled_at"`                     // 计划打款时间
	ProcessedAt      *time.Time     `json:"processed_at"`                                  // 提交网关时间
	CompletedAt      *time.Time     `json:"completed_at"`                                  // 终态时间
	CreatedAt        time.Time      `gorm:"index" json:"created_at"`                       // 创建时间
	UpdatedAt        time.Time      `json:"updated_at"`                                    // 更新时间
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`                                // 软删除时间

	BankAccount *SellerBankAccount `gorm:"foreignKey:BankAccountID" json:"bank_account,omitempty"`
}

// TableName 指定表名
func (Payout) TableName() string {
	return "payouts"
}
