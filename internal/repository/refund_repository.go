package repository

import (
	"errors"
	"strings"

	"github.com/kalakart-next/internal/constants"
	"github.com/kalakart-next/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RefundRepository 退款数据访问接口
type RefundRepository interface {
	WithTx(tx *gorm.DB) RefundRepository

	Create(refund *models.Refund) error
	Update(refund *models.Refund) error
	GetByID(id uint) (*models.Refund, error)
	HasProcessingByPayment(paymentID uint) (bool, error)
	SumCompletedByPayment(paymentID uint) (decimal.Decimal, error)
	List(filter RefundListFilter) ([]models.Refund, int64, error)
}

// GormRefundRepository GORM 退款仓储
type GormRefundRepository struct {
	db *gorm.DB
}

// NewRefundRepository 创建退款仓储
func NewRefundRepository(db *gorm.DB) *GormRefundRepository {
	return &GormRefundRepository{db: db}
}

// WithTx 绑定事务
func (r *GormRefundRepository) WithTx(tx *gorm.DB) RefundRepository {
	if tx == nil {
		return r
	}
	return &GormRefundRepository{db: tx}
}

// Create 创建退款记录
func (r *GormRefundRepository) Create(refund *models.Refund) error {
	return r.db.Create(refund).Error
}

// Update 更新退款记录
func (r *GormRefundRepository) Update(refund *models.Refund) error {
	return r.db.Save(refund).Error
}

// GetByID 根据 ID 获取退款记录
func (r *GormRefundRepository) GetByID(id uint) (*models.Refund, error) {
	if id == 0 {
		return nil, nil
	}
	var refund models.Refund
	if err := r.db.Preload("Payment").First(&refund, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &refund, nil
}

// HasProcessingByPayment 查询支付是否存在处理中的退款
func (r *GormRefundRepository) HasProcessingByPayment(paymentID uint) (bool, error) {
	if paymentID == 0 {
		return false, nil
	}
	var total int64
	if err := r.db.Model(&models.Refund{}).
		Where("payment_id = ? AND status = ?", paymentID, constants.RefundStatusProcessing).
		Count(&total).Error; err != nil {
		return false, err
	}
	return total > 0, nil
}

// SumCompletedByPayment 汇总支付的已完成退款金额
func (r *GormRefundRepository) SumCompletedByPayment(paymentID uint) (decimal.Decimal, error) {
	if paymentID == 0 {
		return decimal.Zero, nil
	}
	var row struct {
		Total decimal.Decimal `gorm:"column:total"`
	}
	if err := r.db.Model(&models.Refund{}).
		Where("payment_id = ? AND status = ?", paymentID, constants.RefundStatusCompleted).
		Select("COALESCE(SUM(amount), 0) AS total").
		Scan(&row).Error; err != nil {
		return decimal.Zero, err
	}
	return row.Total.Round(2), nil
}

// List 查询退款列表
func (r *GormRefundRepository) List(filter RefundListFilter) ([]models.Refund, int64, error) {
	query := r.db.Model(&models.Refund{})

	if filter.PaymentID != 0 {
		query = query.Where("payment_id = ?", filter.PaymentID)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	if initiator := strings.TrimSpace(filter.Initiator); initiator != "" {
		query = query.Where("initiator = ?", initiator)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var rows []models.Refund
	if err := query.Order("id desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
