package repository

import (
	"errors"
	"strings"

	"github.com/kalakart-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// KycRepository 卖家实名资料数据访问接口
type KycRepository interface {
	WithTx(tx *gorm.DB) KycRepository

	Create(kyc *models.SellerKyc) error
	Update(kyc *models.SellerKyc) error
	GetByID(id uint) (*models.SellerKyc, error)
	GetBySellerID(sellerID uint) (*models.SellerKyc, error)
	GetBySellerIDForUpdate(sellerID uint) (*models.SellerKyc, error)
	GetByPan(pan string, excludeSellerID uint) (*models.SellerKyc, error)
	DeleteBySellerID(sellerID uint) error
	List(filter KycListFilter) ([]models.SellerKyc, int64, error)
}

// GormKycRepository GORM 实名资料仓储
type GormKycRepository struct {
	db *gorm.DB
}

// NewKycRepository 创建实名资料仓储
func NewKycRepository(db *gorm.DB) *GormKycRepository {
	return &GormKycRepository{db: db}
}

// WithTx 绑定事务
func (r *GormKycRepository) WithTx(tx *gorm.DB) KycRepository {
	if tx == nil {
		return r
	}
	return &GormKycRepository{db: tx}
}

// Create 创建实名资料
func (r *GormKycRepository) Create(kyc *models.SellerKyc) error {
	return r.db.Create(kyc).Error
}

// Update 更新实名资料
func (r *GormKycRepository) Update(kyc *models.SellerKyc) error {
	return r.db.Save(kyc).Error
}

// GetByID 根据 ID 获取实名资料
func (r *GormKycRepository) GetByID(id uint) (*models.SellerKyc, error) {
	if id == 0 {
		return nil, nil
	}
	var kyc models.SellerKyc
	if err := r.db.First(&kyc, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &kyc, nil
}

// GetBySellerID 根据卖家获取实名资料
func (r *GormKycRepository) GetBySellerID(sellerID uint) (*models.SellerKyc, error) {
	if sellerID == 0 {
		return nil, nil
	}
	var kyc models.SellerKyc
	result := r.db.Where("seller_id = ?", sellerID).Limit(1).Find(&kyc)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &kyc, nil
}

// GetBySellerIDForUpdate 根据卖家锁定查询实名资料，用作卖家级资金操作的串行化锚点
func (r *GormKycRepository) GetBySellerIDForUpdate(sellerID uint) (*models.SellerKyc, error) {
	if sellerID == 0 {
		return nil, nil
	}
	var kyc models.SellerKyc
	result := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("seller_id = ?", sellerID).Limit(1).Find(&kyc)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &kyc, nil
}

// GetByPan 查询占用指定 PAN 的其他卖家实名资料
func (r *GormKycRepository) GetByPan(pan string, excludeSellerID uint) (*models.SellerKyc, error) {
	pan = strings.TrimSpace(pan)
	if pan == "" {
		return nil, nil
	}
	var kyc models.SellerKyc
	query := r.db.Where("pan_number = ?", pan)
	if excludeSellerID != 0 {
		query = query.Where("seller_id <> ?", excludeSellerID)
	}
	result := query.Limit(1).Find(&kyc)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &kyc, nil
}

// DeleteBySellerID 删除卖家实名资料（驳回后重新提交时使用）
func (r *GormKycRepository) DeleteBySellerID(sellerID uint) error {
	if sellerID == 0 {
		return nil
	}
	// 硬删除以释放 seller_id 唯一索引
	return r.db.Unscoped().Where("seller_id = ?", sellerID).Delete(&models.SellerKyc{}).Error
}

// List 查询实名审核列表
func (r *GormKycRepository) List(filter KycListFilter) ([]models.SellerKyc, int64, error) {
	query := r.db.Model(&models.SellerKyc{})

	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	if keyword := strings.TrimSpace(filter.Keyword); keyword != "" {
		like := "%" + keyword + "%"
		query = query.Where("(legal_name LIKE ? OR pan_number LIKE ?)", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var rows []models.SellerKyc
	if err := query.Order("id desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
