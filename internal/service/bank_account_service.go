package service

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/kalakart-next/internal/constants"
	"github.com/kalakart-next/internal/gateway"
	"github.com/kalakart-next/internal/logger"
	"github.com/kalakart-next/internal/models"
	"github.com/kalakart-next/internal/repository"

	"gorm.io/gorm"
)

var (
	ifscPattern          = regexp.MustCompile(`^[A-Z]{4}0[A-Z0-9]{6}$`)
	accountNumberPattern = regexp.MustCompile(`^[0-9]{9,18}$`)
)

// BankAccountService 卖家银行账户服务
type BankAccountService struct {
	bankRepo      repository.BankAccountRepository
	kycRepo       repository.KycRepository
	linkedRepo    repository.LinkedAccountRepository
	payoutGateway gateway.PayoutGateway

	gatewayTimeout time.Duration
}

// AddBankAccountInput 添加银行账户入参
type AddBankAccountInput struct {
	SellerID      uint
	HolderName    string
	AccountNumber string
	IfscCode      string
	MakePrimary   bool
}

// NewBankAccountService 创建银行账户服务
func NewBankAccountService(
	bankRepo repository.BankAccountRepository,
	kycRepo repository.KycRepository,
	linkedRepo repository.LinkedAccountRepository,
	payoutGateway gateway.PayoutGateway,
) *BankAccountService {
	return &BankAccountService{
		bankRepo:       bankRepo,
		kycRepo:        kycRepo,
		linkedRepo:     linkedRepo,
		payoutGateway:  payoutGateway,
		gatewayTimeout: defaultGatewayTimeout,
	}
}

// AddBankAccount 添加银行账户，首个账户自动设为主账户
func (s *BankAccountService) AddBankAccount(ctx context.Context, input AddBankAccountInput) (*models.SellerBankAccount, error) {
	if input.SellerID == 0 {
		return nil, ErrBankAccountInvalidInput
	}
	holder := strings.TrimSpace(input.HolderName)
	if holder == "" {
		return nil, ErrBankAccountInvalidInput
	}
	accountNumber := strings.TrimSpace(input.AccountNumber)
	if !accountNumberPattern.MatchString(accountNumber) {
		return nil, ErrBankAccountInvalidInput
	}
	ifsc := strings.ToUpper(strings.TrimSpace(input.IfscCode))
	if !ifscPattern.MatchString(ifsc) {
		return nil, ErrBankAccountInvalidIfsc
	}

	kyc, err := s.kycRepo.GetBySellerID(input.SellerID)
	if err != nil {
		return nil, err
	}
	if kyc == nil || kyc.Status != constants.KycStatusVerified {
		return nil, ErrKycNotVerified
	}

	existing, err := s.bankRepo.GetByAccountAndIfsc(input.SellerID, accountNumber, ifsc)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrBankAccountDuplicate
	}

	account := &models.SellerBankAccount{
		SellerID:      input.SellerID,
		HolderName:    holder,
		AccountNumber: accountNumber,
		IfscCode:      ifsc,
		Status:        constants.BankAccountStatusPending,
		Active:        true,
	}
	if err := s.bankRepo.Create(account); err != nil {
		return nil, err
	}
	logger.Infow("bank_account_added",
		"seller_id", account.SellerID,
		"bank_account_id", account.ID,
		"ifsc", account.IfscCode,
	)

	existingPrimary, err := s.bankRepo.GetPrimaryBySeller(input.SellerID)
	if err != nil {
		return nil, err
	}
	if input.MakePrimary || existingPrimary == nil {
		if err := s.promotePrimary(ctx, account); err != nil {
			return nil, err
		}
	}
	return account, nil
}

// SetPrimaryBankAccount 切换主账户并同步网关收款账户
func (s *BankAccountService) SetPrimaryBankAccount(ctx context.Context, sellerID, accountID uint) (*models.SellerBankAccount, error) {
	account, err := s.bankRepo.GetByID(accountID)
	if err != nil {
		return nil, err
	}
	if account == nil || account.SellerID != sellerID {
		return nil, ErrBankAccountNotFound
	}
	if !account.Active {
		return nil, ErrBankAccountInactive
	}
	if err := s.promotePrimary(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// DeactivateBankAccount 停用银行账户，主账户不可停用
func (s *BankAccountService) DeactivateBankAccount(sellerID, accountID uint) (*models.SellerBankAccount, error) {
	account, err := s.bankRepo.GetByID(accountID)
	if err != nil {
		return nil, err
	}
	if account == nil || account.SellerID != sellerID {
		return nil, ErrBankAccountNotFound
	}
	if account.IsPrimary {
		return nil, ErrBankAccountPrimaryLocked
	}
	if !account.Active {
		return account, nil
	}
	account.Active = false
	if err := s.bankRepo.Update(account); err != nil {
		return nil, err
	}
	logger.Infow("bank_account_deactivated",
		"seller_id", account.SellerID,
		"bank_account_id", account.ID,
	)
	return account, nil
}

// ListBankAccounts 查询卖家银行账户列表
func (s *BankAccountService) ListBankAccounts(sellerID uint) ([]models.SellerBankAccount, error) {
	return s.bankRepo.ListBySeller(sellerID)
}

// ResyncPrimaryFundAccount 关联账户补建后重新同步主账户的网关收款账户
func (s *BankAccountService) ResyncPrimaryFundAccount(ctx context.Context, sellerID uint) error {
	account, err := s.bankRepo.GetPrimaryBySeller(sellerID)
	if err != nil {
		return err
	}
	if account == nil || account.Status == constants.BankAccountStatusVerified {
		return nil
	}
	return s.syncFundAccount(ctx, account)
}

// promotePrimary 将账户提升为主账户并在网关侧创建收款账户
func (s *BankAccountService) promotePrimary(ctx context.Context, account *models.SellerBankAccount) error {
	now := time.Now()
	if err := s.bankRepo.Transaction(func(tx *gorm.DB) error {
		if err := s.bankRepo.WithTx(tx).ClearPrimary(account.SellerID, now); err != nil {
			return err
		}
		account.IsPrimary = true
		return s.bankRepo.WithTx(tx).Update(account)
	}); err != nil {
		return err
	}
	return s.syncFundAccount(ctx, account)
}

// syncFundAccount 在网关侧为主账户创建收款账户并回写校验状态
func (s *BankAccountService) syncFundAccount(ctx context.Context, account *models.SellerBankAccount) error {
	linked, err := s.linkedRepo.GetBySellerID(account.SellerID)
	if err != nil {
		return err
	}
	if linked == nil || linked.GatewayContactID == "" {
		// 联系人尚未创建时保持待校验，关联账户补建后重试
		logger.Warnw("fund_account_sync_skipped",
			"seller_id", account.SellerID,
			"bank_account_id", account.ID,
			"reason", "gateway contact missing",
		)
		return nil
	}

	callCtx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()
	fundAccountID, gatewayErr := s.payoutGateway.CreateFundAccount(callCtx, gateway.FundAccountInput{
		GatewayContactID: linked.GatewayContactID,
		HolderName:       account.HolderName,
		AccountNumber:    account.AccountNumber,
		IfscCode:         account.IfscCode,
	})
	if gatewayErr != nil {
		account.Status = constants.BankAccountStatusFailed
		account.FailureReason = gatewayErr.Error()
		if err := s.bankRepo.Update(account); err != nil {
			return err
		}
		logger.Errorw("fund_account_create_failed",
			"seller_id", account.SellerID,
			"bank_account_id", account.ID,
			"error", gatewayErr,
		)
		return nil
	}

	account.Status = constants.BankAccountStatusVerified
	account.FailureReason = ""
	if err := s.bankRepo.Update(account); err != nil {
		return err
	}

	linked.GatewayAccountID = fundAccountID
	linked.Status = constants.LinkedAccountStatusActive
	if err := s.linkedRepo.Update(linked); err != nil {
		return err
	}
	logger.Infow("fund_account_created",
		"seller_id", account.SellerID,
		"bank_account_id", account.ID,
		"gateway_account_id", fundAccountID,
	)
	return nil
}
