package models

import (
	"time"

	"gorm.io/gorm"
)

// SellerBankAccount 卖家收款银行账户
type SellerBankAccount struct {
	ID            uint           `gorm:"primarykey" json:"id"`                     // 主键
	SellerID      uint           `gorm:"index;not null" json:"seller_id"`          // 卖家ID
	HolderName    string         `gorm:"not null" json:"holder_name"`              // 户名
	AccountNumber string         `gorm:"not null" json:"account_number"`           // 账号
	IfscCode      string         `gorm:"not null" json:"ifsc_code"`                // IFSC 行号
	Status        string         `gorm:"index;not null" json:"status"`             // 校验状态
	IsPrimary     bool           `gorm:"index;not null;default:false" json:"is_primary"` // 是否主账户
	Active        bool           `gorm:"not null;default:true" json:"active"`      // 是否启用
	FailureReason string         `gorm:"type:text" json:"failure_reason"`          // 校验失败原因
	CreatedAt     time.Time      `gorm:"index" json:"created_at"`                  // 创建时间
	UpdatedAt     time.Time      `json:"updated_at"`                               // 更新时间
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`                           // 软删除时间
}

// TableName 指定表名
func (SellerBankAccount) TableName() string {
	return "seller_bank_accounts"
}

// MaskedAccountNumber 返回脱敏账号（仅保留末 4 位）
func (a *SellerBankAccount) MaskedAccountNumber() string {
	n := len(a.AccountNumber)
	if n <= 4 {
		return a.AccountNumber
	}
	masked := make([]byte, n)
	for i := 0; i < n-4; i++ {
		masked[i] = '*'
	}
	copy(masked[n-4:], a.AccountNumber[n-4:])
	return string(masked)
}
