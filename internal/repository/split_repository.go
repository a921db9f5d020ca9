package repository

import (
	"strings"
	"time"

	"github.com/kalakart-next/internal/constants"
	"github.com/kalakart-next/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SplitRepository 分账数据访问接口
type SplitRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) SplitRepository

	CreateBatch(splits []models.PaymentSplit) error
	ListByPaymentID(paymentID uint) ([]models.PaymentSplit, error)
	ListByPaymentIDForUpdate(paymentID uint) ([]models.PaymentSplit, error)
	BatchUpdate(ids []uint, updates map[string]interface{}) error
	MarkDueSettled(before, now time.Time) (int64, error)
	SumSettledBySeller(sellerID uint) (decimal.Decimal, error)
	List(filter SplitListFilter) ([]models.PaymentSplit, int64, error)
}

// GormSplitRepository GORM 分账仓储
type GormSplitRepository struct {
	db *gorm.DB
}

// NewSplitRepository 创建分账仓储
func NewSplitRepository(db *gorm.DB) *GormSplitRepository {
	return &GormSplitRepository{db: db}
}

// WithTx 绑定事务
func (r *GormSplitRepository) WithTx(tx *gorm.DB) SplitRepository {
	if tx == nil {
		return r
	}
	return &GormSplitRepository{db: tx}
}

// Transaction 执行事务
func (r *GormSplitRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// CreateBatch 批量创建分账记录
func (r *GormSplitRepository) CreateBatch(splits []models.PaymentSplit) error {
	if len(splits) == 0 {
		return nil
	}
	return r.db.Create(&splits).Error
}

// ListByPaymentID 按支付查询分账记录
func (r *GormSplitRepository) ListByPaymentID(paymentID uint) ([]models.PaymentSplit, error) {
	if paymentID == 0 {
		return []models.PaymentSplit{}, nil
	}
	var rows []models.PaymentSplit
	if err := r.db.Where("payment_id = ?", paymentID).Order("id asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListByPaymentIDForUpdate 按支付查询分账并加锁
func (r *GormSplitRepository) ListByPaymentIDForUpdate(paymentID uint) ([]models.PaymentSplit, error) {
	if paymentID == 0 {
		return []models.PaymentSplit{}, nil
	}
	var rows []models.PaymentSplit
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("payment_id = ?", paymentID).
		Order("id asc").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// BatchUpdate 批量更新分账记录
func (r *GormSplitRepository) BatchUpdate(ids []uint, updates map[string]interface{}) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.Model(&models.PaymentSplit{}).Where("id IN ?", ids).Updates(updates).Error
}

// MarkDueSettled 批量将冻结期已过的分账转已结算
func (r *GormSplitRepository) MarkDueSettled(before, now time.Time) (int64, error) {
	result := r.db.Model(&models.PaymentSplit{}).
		Where("status = ? AND settle_at <= ?", constants.SplitStatusPending, before).
		Updates(map[string]interface{}{
			"status":     constants.SplitStatusSettled,
			"settled_at": now,
			"updated_at": now,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// SumSettledBySeller 汇总卖家已结算净得金额
func (r *GormSplitRepository) SumSettledBySeller(sellerID uint) (decimal.Decimal, error) {
	if sellerID == 0 {
		return decimal.Zero, nil
	}
	var row struct {
		Total decimal.Decimal `gorm:"column:total"`
	}
	if err := r.db.Model(&models.PaymentSplit{}).
		Where("seller_id = ? AND status = ?", sellerID, constants.SplitStatusSettled).
		Select("COALESCE(SUM(net_amount), 0) AS total").
		Scan(&row).Error; err != nil {
		return decimal.Zero, err
	}
	return row.Total.Round(2), nil
}

// List 查询分账列表
func (r *GormSplitRepository) List(filter SplitListFilter) ([]models.PaymentSplit, int64, error) {
	query := r.db.Model(&models.PaymentSplit{})

	if filter.SellerID != 0 {
		query = query.Where("seller_id = ?", filter.SellerID)
	}
	if filter.PaymentID != 0 {
		query = query.Where("payment_id = ?", filter.PaymentID)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var rows []models.PaymentSplit
	if err := query.Order("id desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
