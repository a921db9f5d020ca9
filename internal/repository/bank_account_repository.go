package repository

import (
	"errors"
	"time"

	"github.com/kalakart-next/internal/models"

	"gorm.io/gorm"
)

// BankAccountRepository 卖家银行账户数据访问接口
type BankAccountRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) BankAccountRepository

	Create(account *models.SellerBankAccount) error
	Update(account *models.SellerBankAccount) error
	GetByID(id uint) (*models.SellerBankAccount, error)
	GetPrimaryBySeller(sellerID uint) (*models.SellerBankAccount, error)
	GetByAccountAndIfsc(sellerID uint, accountNumber, ifsc string) (*models.SellerBankAccount, error)
	ListBySeller(sellerID uint) ([]models.SellerBankAccount, error)
	ClearPrimary(sellerID uint, updatedAt time.Time) error
	CountActiveBySeller(sellerID uint) (int64, error)
}

// GormBankAccountRepository GORM 银行账户仓储
type GormBankAccountRepository struct {
	db *gorm.DB
}

// NewBankAccountRepository 创建银行账户仓储
func NewBankAccountRepository(db *gorm.DB) *GormBankAccountRepository {
	return &GormBankAccountRepository{db: db}
}

// WithTx 绑定事务
func (r *GormBankAccountRepository) WithTx(tx *gorm.DB) BankAccountRepository {
	if tx == nil {
		return r
	}
	return &GormBankAccountRepository{db: tx}
}

// Transaction 执行事务
func (r *GormBankAccountRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// Create 创建银行账户
func (r *GormBankAccountRepository) Create(account *models.SellerBankAccount) error {
	return r.db.Create(account).Error
}

// Update 更新银行账户
func (r *GormBankAccountRepository) Update(account *models.SellerBankAccount) error {
	return r.db.Save(account).Error
}

// GetByID 根据 ID 获取银行账户
func (r *GormBankAccountRepository) GetByID(id uint) (*models.SellerBankAccount, error) {
	if id == 0 {
		return nil, nil
	}
	var account models.SellerBankAccount
	if err := r.db.First(&account, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

// GetPrimaryBySeller 获取卖家主账户
func (r *GormBankAccountRepository) GetPrimaryBySeller(sellerID uint) (*models.SellerBankAccount, error) {
	if sellerID == 0 {
		return nil, nil
	}
	var account models.SellerBankAccount
	result := r.db.Where("seller_id = ? AND is_primary = ? AND active = ?", sellerID, true, true).
		Limit(1).Find(&account)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &account, nil
}

// GetByAccountAndIfsc 按账号与 IFSC 查询卖家启用中的账户
func (r *GormBankAccountRepository) GetByAccountAndIfsc(sellerID uint, accountNumber, ifsc string) (*models.SellerBankAccount, error) {
	if sellerID == 0 || accountNumber == "" || ifsc == "" {
		return nil, nil
	}
	var account models.SellerBankAccount
	result := r.db.Where("seller_id = ? AND account_number = ? AND ifsc_code = ? AND active = ?",
		sellerID, accountNumber, ifsc, true).
		Limit(1).Find(&account)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &account, nil
}

// ListBySeller 查询卖家全部银行账户
func (r *GormBankAccountRepository) ListBySeller(sellerID uint) ([]models.SellerBankAccount, error) {
	if sellerID == 0 {
		return []models.SellerBankAccount{}, nil
	}
	var rows []models.SellerBankAccount
	if err := r.db.Where("seller_id = ?", sellerID).Order("id desc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ClearPrimary 取消卖家现有主账户标记
func (r *GormBankAccountRepository) ClearPrimary(sellerID uint, updatedAt time.Time) error {
	if sellerID == 0 {
		return nil
	}
	return r.db.Model(&models.SellerBankAccount{}).
		Where("seller_id = ? AND is_primary = ?", sellerID, true).
		Updates(map[string]interface{}{
			"is_primary": false,
			"updated_at": updatedAt,
		}).Error
}

// CountActiveBySeller 统计卖家启用中的银行账户数
func (r *GormBankAccountRepository) CountActiveBySeller(sellerID uint) (int64, error) {
	if sellerID == 0 {
		return 0, nil
	}
	var total int64
	if err := r.db.Model(&models.SellerBankAccount{}).
		Where("seller_id = ? AND active = ?", sellerID, true).
		Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}
