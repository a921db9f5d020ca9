package repository

import (
	"errors"

	"github.com/kalakart-next/internal/models"

	"gorm.io/gorm"
)

// LinkedAccountRepository 网关关联账户数据访问接口
type LinkedAccountRepository interface {
	WithTx(tx *gorm.DB) LinkedAccountRepository

	Create(account *models.SellerLinkedAccount) error
	Update(account *models.SellerLinkedAccount) error
	GetByID(id uint) (*models.SellerLinkedAccount, error)
	GetBySellerID(sellerID uint) (*models.SellerLinkedAccount, error)
}

// GormLinkedAccountRepository GORM 关联账户仓储
type GormLinkedAccountRepository struct {
	db *gorm.DB
}

// NewLinkedAccountRepository 创建关联账户仓储
func NewLinkedAccountRepository(db *gorm.DB) *GormLinkedAccountRepository {
	return &GormLinkedAccountRepository{db: db}
}

// WithTx 绑定事务
func (r *GormLinkedAccountRepository) WithTx(tx *gorm.DB) LinkedAccountRepository {
	if tx == nil {
		return r
	}
	return &GormLinkedAccountRepository{db: tx}
}

// Create 创建关联账户
func (r *GormLinkedAccountRepository) Create(account *models.SellerLinkedAccount) error {
	return r.db.Create(account).Error
}

// Update 更新关联账户
func (r *GormLinkedAccountRepository) Update(account *models.SellerLinkedAccount) error {
	return r.db.Save(account).Error
}

// GetByID 根据 ID 获取关联账户
func (r *GormLinkedAccountRepository) GetByID(id uint) (*models.SellerLinkedAccount, error) {
	if id == 0 {
		return nil, nil
	}
	var account models.SellerLinkedAccount
	if err := r.db.First(&account, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

// GetBySellerID 根据卖家获取关联账户
func (r *GormLinkedAccountRepository) GetBySellerID(sellerID uint) (*models.SellerLinkedAccount, error) {
	if sellerID == 0 {
		return nil, nil
	}
	var account models.SellerLinkedAccount
	result := r.db.Where("seller_id = ?", sellerID).Limit(1).Find(&account)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &account, nil
}
