package models

import (
	"time"

	"gorm.io/gorm"
)

// SellerKyc 卖家实名资料
type SellerKyc struct {
	ID           uint           `gorm:"primarykey" json:"id"`                      // 主键
	SellerID     uint           `gorm:"uniqueIndex;not null" json:"seller_id"`     // 卖家ID
	LegalName    string         `gorm:"not null" json:"legal_name"`                // 法定名称
	BusinessType string         `gorm:"not null" json:"business_type"`             // 商家类型
	PanNumber    string         `gorm:"uniqueIndex:udx_seller_kycs_pan,where:deleted_at IS NULL;not null" json:"pan_number"` // PAN 税号，非删除行内全局唯一
	GstNumber    string         `json:"gst_number"`                                // GST 税号（可选）
	Documents    StringArray    `gorm:"type:json" json:"documents"`                // 资料文件地址
	Status       string         `gorm:"index;not null" json:"status"`              // 审核状态
	RejectReason string         `gorm:"type:text" json:"reject_reason"`            // 驳回原因
	ReviewedBy   *uint          `json:"reviewed_by"`                               // 审核人
	ReviewedAt   *time.Time     `json:"reviewed_at"`                               // 审核时间
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`                   // 创建时间
	UpdatedAt    time.Time      `json:"updated_at"`                                // 更新时间
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`                            // 软删除时间
}

// TableName 指定表名
func (SellerKyc) TableName() string {
	return "seller_kycs"
}
