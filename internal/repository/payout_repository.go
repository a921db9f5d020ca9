package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/kalakart-next/internal/constants"
	"github.com/kalakart-next/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PayoutRepository 提现打款数据访问接口
type PayoutRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) PayoutRepository

	Create(payout *models.Payout) error
	Update(payout *models.Payout) error
	GetByID(id uint) (*models.Payout, error)
	GetByIDForUpdate(id uint) (*models.Payout, error)
	GetByReferenceNo(referenceNo string) (*models.Payout, error)
	ListBySellerForUpdate(sellerID uint) ([]models.Payout, error)
	SumConsumedBySeller(sellerID uint) (decimal.Decimal, error)
	ListDue(now time.Time, limit int) ([]models.Payout, error)
	ListProcessing(limit int) ([]models.Payout, error)
	List(filter PayoutListFilter) ([]models.Payout, int64, error)
}

// GormPayoutRepository GORM 提现仓储
type GormPayoutRepository struct {
	db *gorm.DB
}

// NewPayoutRepository 创建提现仓储
func NewPayoutRepository(db *gorm.DB) *GormPayoutRepository {
	return &GormPayoutRepository{db: db}
}

// WithTx 绑定事务
func (r *GormPayoutRepository) WithTx(tx *gorm.DB) PayoutRepository {
	if tx == nil {
		return r
	}
	return &GormPayoutRepository{db: tx}
}

// Transaction 执行事务
func (r *GormPayoutRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// Create 创建提现记录
func (r *GormPayoutRepository) Create(payout *models.Payout) error {
	return r.db.Create(payout).Error
}

// Update 更新提现记录
func (r *GormPayoutRepository) Update(payout *models.Payout) error {
	return r.db.Save(payout).Error
}

// GetByID 根据 ID 获取提现记录
func (r *GormPayoutRepository) GetByID(id uint) (*models.Payout, error) {
	if id == 0 {
		return nil, nil
	}
	var payout models.Payout
	if err := r.db.Preload("BankAccount").First(&payout, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payout, nil
}

// GetByIDForUpdate 根据 ID 锁定查询提现记录
func (r *GormPayoutRepository) GetByIDForUpdate(id uint) (*models.Payout, error) {
	if id == 0 {
		return nil, nil
	}
	var payout models.Payout
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&payout, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payout, nil
}

// GetByReferenceNo 根据业务参考号获取提现记录
func (r *GormPayoutRepository) GetByReferenceNo(referenceNo string) (*models.Payout, error) {
	referenceNo = strings.TrimSpace(referenceNo)
	if referenceNo == "" {
		return nil, nil
	}
	var payout models.Payout
	result := r.db.Where("reference_no = ?", referenceNo).Limit(1).Find(&payout)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &payout, nil
}

// ListBySellerForUpdate 锁定卖家全部提现记录，用于余额核算串行化
func (r *GormPayoutRepository) ListBySellerForUpdate(sellerID uint) ([]models.Payout, error) {
	if sellerID == 0 {
		return []models.Payout{}, nil
	}
	var rows []models.Payout
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("seller_id = ?", sellerID).
		Order("id asc").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// SumConsumedBySeller 汇总卖家已占用余额（待打款、打款中与已完成）
func (r *GormPayoutRepository) SumConsumedBySeller(sellerID uint) (decimal.Decimal, error) {
	if sellerID == 0 {
		return decimal.Zero, nil
	}
	var row struct {
		Total decimal.Decimal `gorm:"column:total"`
	}
	if err := r.db.Model(&models.Payout{}).
		Where("seller_id = ? AND status IN ?", sellerID, []string{
			constants.PayoutStatusPending,
			constants.PayoutStatusProcessing,
			constants.PayoutStatusCompleted,
		}).
		Select("COALESCE(SUM(amount), 0) AS total").
		Scan(&row).Error; err != nil {
		return decimal.Zero, err
	}
	return row.Total.Round(2), nil
}

// ListDue 查询到期待打款记录
func (r *GormPayoutRepository) ListDue(now time.Time, limit int) ([]models.Payout, error) {
	query := r.db.Preload("BankAccount").
		Where("status = ? AND scheduled_at <= ?", constants.PayoutStatusPending, now).
		Order("id asc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []models.Payout
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListProcessing 查询打款中的记录，用于状态对账
func (r *GormPayoutRepository) ListProcessing(limit int) ([]models.Payout, error) {
	query := r.db.Where("status = ?", constants.PayoutStatusProcessing).Order("id asc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []models.Payout
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// List 查询提现列表
func (r *GormPayoutRepository) List(filter PayoutListFilter) ([]models.Payout, int64, error) {
	query := r.db.Model(&models.Payout{})

	if filter.SellerID != 0 {
		query = query.Where("seller_id = ?", filter.SellerID)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var rows []models.Payout
	if err := query.Order("id desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
