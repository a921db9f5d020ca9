package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kalakart-next/internal/cache"
	"github.com/kalakart-next/internal/config"
	"github.com/kalakart-next/internal/constants"
	"github.com/kalakart-next/internal/gateway"
	"github.com/kalakart-next/internal/logger"
	"github.com/kalakart-next/internal/models"
	"github.com/kalakart-next/internal/queue"
	"github.com/kalakart-next/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PayoutService 卖家提现打款服务
type PayoutService struct {
	payoutRepo    repository.PayoutRepository
	splitRepo     repository.SplitRepository
	bankRepo      repository.BankAccountRepository
	kycRepo       repository.KycRepository
	linkedRepo    repository.LinkedAccountRepository
	payoutGateway gateway.PayoutGateway
	queueClient   *queue.Client

	minimumAmount  decimal.Decimal
	batchSize      int
	lockTTL        time.Duration
	gatewayTimeout time.Duration
}

// RequestPayoutInput 发起提现入参
type RequestPayoutInput struct {
	SellerID uint
	Amount   models.Money
}

// SellerBalance 卖家余额核算结果
type SellerBalance struct {
	Settled   models.Money `json:"settled"`
	Consumed  models.Money `json:"consumed"`
	Available models.Money `json:"available"`
}

// NewPayoutService 创建提现打款服务
func NewPayoutService(
	payoutRepo repository.PayoutRepository,
	splitRepo repository.SplitRepository,
	bankRepo repository.BankAccountRepository,
	kycRepo repository.KycRepository,
	linkedRepo repository.LinkedAccountRepository,
	payoutGateway gateway.PayoutGateway,
	queueClient *queue.Client,
	cfg *config.PayoutsConfig,
) *PayoutService {
	svc := &PayoutService{
		payoutRepo:     payoutRepo,
		splitRepo:      splitRepo,
		bankRepo:       bankRepo,
		kycRepo:        kycRepo,
		linkedRepo:     linkedRepo,
		payoutGateway:  payoutGateway,
		queueClient:    queueClient,
		minimumAmount:  decimal.NewFromInt(100),
		batchSize:      50,
		lockTTL:        30 * time.Second,
		gatewayTimeout: defaultGatewayTimeout,
	}
	if cfg != nil {
		if raw := strings.TrimSpace(cfg.MinimumAmount); raw != "" {
			if value, err := decimal.NewFromString(raw); err == nil && value.IsPositive() {
				svc.minimumAmount = value.Round(2)
			} else {
				logger.Warnw("payout_minimum_amount_invalid", "raw", raw)
			}
		}
		if cfg.BatchSize > 0 {
			svc.batchSize = cfg.BatchSize
		}
		if cfg.LockTTLSeconds > 0 {
			svc.lockTTL = time.Duration(cfg.LockTTLSeconds) * time.Second
		}
	}
	return svc
}

// GetSellerBalance 核算卖家已结算、已占用与可提现余额
func (s *PayoutService) GetSellerBalance(sellerID uint) (*SellerBalance, error) {
	settled, err := s.splitRepo.SumSettledBySeller(sellerID)
	if err != nil {
		return nil, err
	}
	consumed, err := s.payoutRepo.SumConsumedBySeller(sellerID)
	if err != nil {
		return nil, err
	}
	available := settled.Sub(consumed)
	if available.IsNegative() {
		available = decimal.Zero
	}
	return &SellerBalance{
		Settled:   models.NewMoneyFromDecimal(settled),
		Consumed:  models.NewMoneyFromDecimal(consumed),
		Available: models.NewMoneyFromDecimal(available),
	}, nil
}

// RequestPayout 发起提现，余额核算在卖家级锁内串行执行
func (s *PayoutService) RequestPayout(ctx context.Context, input RequestPayoutInput) (*models.Payout, error) {
	if input.SellerID == 0 {
		return nil, ErrPayoutInvalidAmount
	}
	amount := input.Amount.Decimal.Round(2)
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrPayoutInvalidAmount
	}
	if amount.LessThan(s.minimumAmount) {
		return nil, ErrPayoutBelowMinimum
	}

	kyc, err := s.kycRepo.GetBySellerID(input.SellerID)
	if err != nil {
		return nil, err
	}
	if kyc == nil || kyc.Status != constants.KycStatusVerified {
		return nil, ErrKycNotVerified
	}
	linked, err := s.linkedRepo.GetBySellerID(input.SellerID)
	if err != nil {
		return nil, err
	}
	if linked == nil || linked.Status != constants.LinkedAccountStatusActive {
		return nil, ErrLinkedAccountNotActive
	}
	bankAccount, err := s.bankRepo.GetPrimaryBySeller(input.SellerID)
	if err != nil {
		return nil, err
	}
	if bankAccount == nil {
		return nil, ErrBankAccountNotFound
	}
	if bankAccount.Status != constants.BankAccountStatusVerified {
		return nil, ErrBankAccountNotVerified
	}

	lockKey := fmt.Sprintf("payout:seller:%d", input.SellerID)
	acquired, err := cache.AcquireLock(ctx, lockKey, s.lockTTL)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, ErrPayoutLockBusy
	}
	defer func() {
		if err := cache.ReleaseLock(ctx, lockKey); err != nil {
			logger.Warnw("payout_lock_release_failed", "seller_id", input.SellerID, "error", err)
		}
	}()

	var payout *models.Payout
	err = s.payoutRepo.Transaction(func(tx *gorm.DB) error {
		// 锁定卖家实名记录作为串行化锚点，首笔提现无历史记录时也能互斥
		if _, err := s.kycRepo.WithTx(tx).GetBySellerIDForUpdate(input.SellerID); err != nil {
			return err
		}
		// 行锁串行化同卖家的并发提现请求
		if _, err := s.payoutRepo.WithTx(tx).ListBySellerForUpdate(input.SellerID); err != nil {
			return err
		}
		settled, err := s.splitRepo.WithTx(tx).SumSettledBySeller(input.SellerID)
		if err != nil {
			return err
		}
		consumed, err := s.payoutRepo.WithTx(tx).SumConsumedBySeller(input.SellerID)
		if err != nil {
			return err
		}
		if amount.GreaterThan(settled.Sub(consumed)) {
			return ErrPayoutInsufficientBalance
		}

		payout = &models.Payout{
			ReferenceNo:   uuid.NewString(),
			SellerID:      input.SellerID,
			BankAccountID: bankAccount.ID,
			Amount:        models.NewMoneyFromDecimal(amount),
			Currency:      constants.CurrencyDefault,
			Status:        constants.PayoutStatusPending,
			ScheduledAt:   time.Now(),
		}
		return s.payoutRepo.WithTx(tx).Create(payout)
	})
	if err != nil {
		return nil, err
	}

	logger.Infow("payout_requested",
		"payout_id", payout.ID,
		"seller_id", payout.SellerID,
		"amount", payout.Amount.String(),
		"reference_no", payout.ReferenceNo,
	)
	return payout, nil
}

// ProcessDuePayouts 处理到期待打款记录，逐条提交避免整批失败
func (s *PayoutService) ProcessDuePayouts(ctx context.Context, now time.Time) (int, error) {
	due, err := s.payoutRepo.ListDue(now, s.batchSize)
	if err != nil {
		return 0, err
	}
	processed := 0
	for i := range due {
		if err := ctx.Err(); err != nil {
			return processed, err
		}
		if err := s.submitPayout(ctx, due[i].ID); err != nil {
			logger.Errorw("payout_submit_failed", "payout_id", due[i].ID, "error", err)
			continue
		}
		processed++
	}
	return processed, nil
}

// ReconcileProcessingPayouts 轮询网关补齐打款终态
func (s *PayoutService) ReconcileProcessingPayouts(ctx context.Context) (int, error) {
	processing, err := s.payoutRepo.ListProcessing(s.batchSize)
	if err != nil {
		return 0, err
	}
	reconciled := 0
	for i := range processing {
		if err := ctx.Err(); err != nil {
			return reconciled, err
		}
		changed, err := s.reconcilePayout(ctx, &processing[i])
		if err != nil {
			logger.Warnw("payout_reconcile_failed", "payout_id", processing[i].ID, "error", err)
			continue
		}
		if changed {
			reconciled++
		}
	}
	return reconciled, nil
}

// GetPayout 查询提现记录
func (s *PayoutService) GetPayout(payoutID uint) (*models.Payout, error) {
	payout, err := s.payoutRepo.GetByID(payoutID)
	if err != nil {
		return nil, err
	}
	if payout == nil {
		return nil, ErrPayoutNotFound
	}
	return payout, nil
}

// ListPayouts 查询提现列表
func (s *PayoutService) ListPayouts(filter repository.PayoutListFilter) ([]models.Payout, int64, error) {
	return s.payoutRepo.List(filter)
}

// submitPayout 向网关提交单笔打款
func (s *PayoutService) submitPayout(ctx context.Context, payoutID uint) error {
	payout, err := s.payoutRepo.GetByID(payoutID)
	if err != nil {
		return err
	}
	if payout == nil {
		return ErrPayoutNotFound
	}
	if payout.Status != constants.PayoutStatusPending {
		return nil
	}

	linked, err := s.linkedRepo.GetBySellerID(payout.SellerID)
	if err != nil {
		return err
	}
	if linked == nil || linked.GatewayContactID == "" || linked.GatewayAccountID == "" ||
		linked.Status != constants.LinkedAccountStatusActive {
		linked, err = s.provisionLinkedAccount(ctx, payout.SellerID, linked)
		if err != nil {
			var gwErr *gateway.Error
			if errors.As(err, &gwErr) && gwErr.Retryable {
				logger.Warnw("payout_provision_retryable",
					"payout_id", payout.ID,
					"error", err,
				)
				return nil
			}
			return s.failPayout(payout.ID, err.Error())
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()
	result, gatewayErr := s.payoutGateway.CreateTransfer(callCtx, gateway.TransferInput{
		ReferenceNo:      payout.ReferenceNo,
		GatewayAccountID: linked.GatewayAccountID,
		Amount:           payout.Amount,
		Currency:         payout.Currency,
		Narration:        fmt.Sprintf("seller %d payout", payout.SellerID),
	})
	if gatewayErr != nil {
		var gwErr *gateway.Error
		if errors.As(gatewayErr, &gwErr) && gwErr.Retryable {
			// 可重试错误保持待打款，等待下一轮
			logger.Warnw("payout_transfer_retryable",
				"payout_id", payout.ID,
				"error", gatewayErr,
			)
			return nil
		}
		return s.failPayout(payout.ID, gatewayErr.Error())
	}

	return s.payoutRepo.Transaction(func(tx *gorm.DB) error {
		row, err := s.payoutRepo.WithTx(tx).GetByIDForUpdate(payout.ID)
		if err != nil {
			return err
		}
		if row == nil || row.Status != constants.PayoutStatusPending {
			return nil
		}
		now := time.Now()
		row.Status = constants.PayoutStatusProcessing
		row.GatewayPayoutID = result.GatewayPayoutID
		row.ProcessedAt = &now
		if err := s.payoutRepo.WithTx(tx).Update(row); err != nil {
			return err
		}
		logger.Infow("payout_submitted",
			"payout_id", row.ID,
			"gateway_payout_id", row.GatewayPayoutID,
		)
		return nil
	})
}

// provisionLinkedAccount 打款前补建缺失的网关联系人与收款账户并回写关联账户。
// 审核通过后网关侧创建失败的卖家借此在打款时完成补建。
func (s *PayoutService) provisionLinkedAccount(ctx context.Context, sellerID uint, linked *models.SellerLinkedAccount) (*models.SellerLinkedAccount, error) {
	if linked != nil && linked.Status == constants.LinkedAccountStatusSuspended {
		return nil, ErrLinkedAccountNotActive
	}
	if linked == nil {
		linked = &models.SellerLinkedAccount{SellerID: sellerID}
	}

	if linked.GatewayContactID == "" {
		kyc, err := s.kycRepo.GetBySellerID(sellerID)
		if err != nil {
			return nil, err
		}
		if kyc == nil || kyc.Status != constants.KycStatusVerified {
			return nil, ErrKycNotVerified
		}
		callCtx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
		contactID, gatewayErr := s.payoutGateway.CreateContact(callCtx, gateway.ContactInput{
			SellerID:  sellerID,
			LegalName: kyc.LegalName,
		})
		cancel()
		if gatewayErr != nil {
			linked.Status = constants.LinkedAccountStatusFailed
			linked.FailureReason = gatewayErr.Error()
			if err := s.saveLinkedAccount(linked); err != nil {
				return nil, err
			}
			return nil, gatewayErr
		}
		linked.GatewayContactID = contactID
		linked.Status = constants.LinkedAccountStatusCreated
		linked.FailureReason = ""
		if err := s.saveLinkedAccount(linked); err != nil {
			return nil, err
		}
		logger.Infow("payout_contact_provisioned",
			"seller_id", sellerID,
			"gateway_contact_id", contactID,
		)
	}

	if linked.GatewayAccountID == "" {
		bankAccount, err := s.bankRepo.GetPrimaryBySeller(sellerID)
		if err != nil {
			return nil, err
		}
		if bankAccount == nil {
			return nil, ErrBankAccountNotFound
		}
		callCtx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
		fundAccountID, gatewayErr := s.payoutGateway.CreateFundAccount(callCtx, gateway.FundAccountInput{
			GatewayContactID: linked.GatewayContactID,
			HolderName:       bankAccount.HolderName,
			AccountNumber:    bankAccount.AccountNumber,
			IfscCode:         bankAccount.IfscCode,
		})
		cancel()
		if gatewayErr != nil {
			linked.FailureReason = gatewayErr.Error()
			if err := s.saveLinkedAccount(linked); err != nil {
				return nil, err
			}
			return nil, gatewayErr
		}
		linked.GatewayAccountID = fundAccountID
		if bankAccount.Status != constants.BankAccountStatusVerified {
			bankAccount.Status = constants.BankAccountStatusVerified
			bankAccount.FailureReason = ""
			if err := s.bankRepo.Update(bankAccount); err != nil {
				return nil, err
			}
		}
		logger.Infow("payout_fund_account_provisioned",
			"seller_id", sellerID,
			"gateway_account_id", fundAccountID,
		)
	}

	linked.Status = constants.LinkedAccountStatusActive
	linked.FailureReason = ""
	if err := s.saveLinkedAccount(linked); err != nil {
		return nil, err
	}
	return linked, nil
}

func (s *PayoutService) saveLinkedAccount(linked *models.SellerLinkedAccount) error {
	if linked.ID == 0 {
		return s.linkedRepo.Create(linked)
	}
	return s.linkedRepo.Update(linked)
}

// reconcilePayout 按网关状态推进单笔打款
func (s *PayoutService) reconcilePayout(ctx context.Context, payout *models.Payout) (bool, error) {
	if payout.GatewayPayoutID == "" {
		return false, nil
	}
	callCtx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()
	status, err := s.payoutGateway.GetTransferStatus(callCtx, payout.GatewayPayoutID)
	if err != nil {
		return false, err
	}

	switch status {
	case gateway.TransferStatusProcessed:
		return true, s.completePayout(payout.ID)
	case gateway.TransferStatusReversed:
		return true, s.failPayout(payout.ID, "transfer reversed by gateway")
	default:
		return false, nil
	}
}

func (s *PayoutService) completePayout(payoutID uint) error {
	err := s.payoutRepo.Transaction(func(tx *gorm.DB) error {
		row, err := s.payoutRepo.WithTx(tx).GetByIDForUpdate(payoutID)
		if err != nil {
			return err
		}
		if row == nil || row.Status != constants.PayoutStatusProcessing {
			return nil
		}
		now := time.Now()
		row.Status = constants.PayoutStatusCompleted
		row.CompletedAt = &now
		return s.payoutRepo.WithTx(tx).Update(row)
	})
	if err != nil {
		return err
	}
	logger.Infow("payout_completed", "payout_id", payoutID)
	return s.notifyPayout(payoutID, constants.PayoutStatusCompleted)
}

func (s *PayoutService) failPayout(payoutID uint, reason string) error {
	err := s.payoutRepo.Transaction(func(tx *gorm.DB) error {
		row, err := s.payoutRepo.WithTx(tx).GetByIDForUpdate(payoutID)
		if err != nil {
			return err
		}
		if row == nil {
			return nil
		}
		if row.Status != constants.PayoutStatusPending && row.Status != constants.PayoutStatusProcessing {
			return nil
		}
		now := time.Now()
		row.Status = constants.PayoutStatusFailed
		row.FailureReason = reason
		row.CompletedAt = &now
		return s.payoutRepo.WithTx(tx).Update(row)
	})
	if err != nil {
		return err
	}
	logger.Warnw("payout_failed", "payout_id", payoutID, "reason", reason)
	return s.notifyPayout(payoutID, constants.PayoutStatusFailed)
}

func (s *PayoutService) notifyPayout(payoutID uint, status string) error {
	if err := s.queueClient.EnqueueStatusNotification(queue.StatusNotificationPayload{
		Event:    constants.NotificationEventPayoutUpdated,
		EntityID: payoutID,
		Status:   status,
	}); err != nil {
		logger.Warnw("notification_enqueue_failed", "payout_id", payoutID, "error", err)
	}
	return nil
}
