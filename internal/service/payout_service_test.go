package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/kalakart-next/internal/config"
	"github.com/kalakart-next/internal/constants"
	"github.com/kalakart-next/internal/gateway"
	"github.com/kalakart-next/internal/gateway/sandbox"
	"github.com/kalakart-next/internal/models"
	"github.com/kalakart-next/internal/queue"
	"github.com/kalakart-next/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupPayoutServiceTest(t *testing.T) (*PayoutService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:payout_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Payment{},
		&models.PaymentSplit{},
		&models.SellerKyc{},
		&models.SellerLinkedAccount{},
		&models.SellerBankAccount{},
		&models.Payout{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db

	svc := newPayoutServiceWithGateway(t, db, sandbox.New("test-secret"))
	return svc, db
}

func newPayoutServiceWithGateway(t *testing.T, db *gorm.DB, payoutGateway gateway.PayoutGateway) *PayoutService {
	t.Helper()
	queueClient, err := queue.NewClient(nil)
	if err != nil {
		t.Fatalf("new queue client failed: %v", err)
	}
	return NewPayoutService(
		repository.NewPayoutRepository(db),
		repository.NewSplitRepository(db),
		repository.NewBankAccountRepository(db),
		repository.NewKycRepository(db),
		repository.NewLinkedAccountRepository(db),
		payoutGateway,
		queueClient,
		&config.PayoutsConfig{
			MinimumAmount: "100.00",
			BatchSize:     10,
		},
	)
}

func createPayoutReadySeller(t *testing.T, db *gorm.DB, sellerID uint) {
	t.Helper()
	createVerifiedSeller(t, db, sellerID)
	linked := models.SellerLinkedAccount{
		SellerID:         sellerID,
		GatewayContactID: fmt.Sprintf("cont_test%d", sellerID),
		GatewayAccountID: fmt.Sprintf("fa_test%d", sellerID),
		Status:           constants.LinkedAccountStatusActive,
	}
	if err := db.Create(&linked).Error; err != nil {
		t.Fatalf("create linked account failed: %v", err)
	}
	account := models.SellerBankAccount{
		SellerID:      sellerID,
		HolderName:    "Asha Rao",
		AccountNumber: "123456789012",
		IfscCode:      "HDFC0001234",
		Status:        constants.BankAccountStatusVerified,
		IsPrimary:     true,
		Active:        true,
	}
	if err := db.Create(&account).Error; err != nil {
		t.Fatalf("create bank account failed: %v", err)
	}
}

func createSettledSplit(t *testing.T, db *gorm.DB, sellerID uint, net decimal.Decimal) {
	t.Helper()
	now := time.Now()
	split := models.PaymentSplit{
		PaymentID:        1,
		SellerID:         sellerID,
		GrossAmount:      models.NewMoneyFromDecimal(net),
		CommissionAmount: models.MoneyZero(),
		NetAmount:        models.NewMoneyFromDecimal(net),
		Status:           constants.SplitStatusSettled,
		SettleAt:         now.Add(-time.Hour),
		SettledAt:        &now,
	}
	if err := db.Create(&split).Error; err != nil {
		t.Fatalf("create settled split failed: %v", err)
	}
}

func TestRequestPayoutValidation(t *testing.T) {
	svc, db := setupPayoutServiceTest(t)
	createPayoutReadySeller(t, db, 41)
	createSettledSplit(t, db, 41, decimal.NewFromInt(500))

	if _, err := svc.RequestPayout(context.Background(), RequestPayoutInput{
		SellerID: 41,
		Amount:   models.NewMoneyFromDecimal(decimal.NewFromInt(50)),
	}); !errors.Is(err, ErrPayoutBelowMinimum) {
		t.Fatalf("expected below minimum, got: %v", err)
	}

	if _, err := svc.RequestPayout(context.Background(), RequestPayoutInput{
		SellerID: 41,
		Amount:   models.NewMoneyFromDecimal(decimal.NewFromInt(600)),
	}); !errors.Is(err, ErrPayoutInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got: %v", err)
	}
}

func TestRequestPayoutRequiresOnboarding(t *testing.T) {
	svc, db := setupPayoutServiceTest(t)

	// 无 KYC
	if _, err := svc.RequestPayout(context.Background(), RequestPayoutInput{
		SellerID: 42,
		Amount:   models.NewMoneyFromDecimal(decimal.NewFromInt(200)),
	}); !errors.Is(err, ErrKycNotVerified) {
		t.Fatalf("expected kyc not verified, got: %v", err)
	}

	// 有 KYC 但无关联账户
	createVerifiedSeller(t, db, 42)
	if _, err := svc.RequestPayout(context.Background(), RequestPayoutInput{
		SellerID: 42,
		Amount:   models.NewMoneyFromDecimal(decimal.NewFromInt(200)),
	}); !errors.Is(err, ErrLinkedAccountNotActive) {
		t.Fatalf("expected linked account not active, got: %v", err)
	}
}

func TestRequestPayoutReservesBalance(t *testing.T) {
	svc, db := setupPayoutServiceTest(t)
	createPayoutReadySeller(t, db, 43)
	createSettledSplit(t, db, 43, decimal.NewFromInt(500))

	payout, err := svc.RequestPayout(context.Background(), RequestPayoutInput{
		SellerID: 43,
		Amount:   models.NewMoneyFromDecimal(decimal.NewFromInt(300)),
	})
	if err != nil {
		t.Fatalf("request payout failed: %v", err)
	}
	if payout.Status != constants.PayoutStatusPending || payout.ReferenceNo == "" {
		t.Fatalf("unexpected payout: %+v", payout)
	}

	balance, err := svc.GetSellerBalance(43)
	if err != nil {
		t.Fatalf("get balance failed: %v", err)
	}
	if !balance.Available.Decimal.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("expected available 200, got %s", balance.Available.String())
	}

	// 预占后超出可用余额的请求被拒绝
	if _, err := svc.RequestPayout(context.Background(), RequestPayoutInput{
		SellerID: 43,
		Amount:   models.NewMoneyFromDecimal(decimal.NewFromInt(201)),
	}); !errors.Is(err, ErrPayoutInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got: %v", err)
	}
}

func TestRequestPayoutLocksKycRow(t *testing.T) {
	svc, db := setupPayoutServiceTest(t)
	createPayoutReadySeller(t, db, 45)
	createSettledSplit(t, db, 45, decimal.NewFromInt(500))

	// 实名记录可在事务内锁定，作为无提现历史时的串行化锚点
	if err := db.Transaction(func(tx *gorm.DB) error {
		kyc, err := repository.NewKycRepository(db).WithTx(tx).GetBySellerIDForUpdate(45)
		if err != nil {
			return err
		}
		if kyc == nil || kyc.SellerID != 45 {
			t.Fatalf("unexpected locked kyc: %+v", kyc)
		}
		return nil
	}); err != nil {
		t.Fatalf("lock kyc row failed: %v", err)
	}

	// 首笔提现（无历史提现记录可锁）正常走锚点路径
	payout, err := svc.RequestPayout(context.Background(), RequestPayoutInput{
		SellerID: 45,
		Amount:   models.NewMoneyFromDecimal(decimal.NewFromInt(200)),
	})
	if err != nil {
		t.Fatalf("request payout failed: %v", err)
	}
	if payout.Status != constants.PayoutStatusPending {
		t.Fatalf("unexpected payout: %+v", payout)
	}
}

func TestProcessDuePayoutsProvisionsLinkedAccount(t *testing.T) {
	svc, db := setupPayoutServiceTest(t)
	createVerifiedSeller(t, db, 48)
	createSettledSplit(t, db, 48, decimal.NewFromInt(500))

	// 主银行账户存在但网关侧联系人与收款账户尚未创建
	account := models.SellerBankAccount{
		SellerID:      48,
		HolderName:    "Asha Rao",
		AccountNumber: "123456789012",
		IfscCode:      "HDFC0001234",
		Status:        constants.BankAccountStatusPending,
		IsPrimary:     true,
		Active:        true,
	}
	if err := db.Create(&account).Error; err != nil {
		t.Fatalf("create bank account failed: %v", err)
	}
	payout := models.Payout{
		ReferenceNo:   "ref-payout-48",
		SellerID:      48,
		BankAccountID: account.ID,
		Amount:        models.NewMoneyFromDecimal(decimal.NewFromInt(200)),
		Currency:      constants.CurrencyDefault,
		Status:        constants.PayoutStatusPending,
		ScheduledAt:   time.Now().Add(-time.Minute),
	}
	if err := db.Create(&payout).Error; err != nil {
		t.Fatalf("create payout failed: %v", err)
	}

	processed, err := svc.ProcessDuePayouts(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("process due payouts failed: %v", err)
	}
	if processed != 1 {
		t.Fatalf("expected 1 processed, got %d", processed)
	}

	submitted, err := svc.GetPayout(payout.ID)
	if err != nil {
		t.Fatalf("get payout failed: %v", err)
	}
	if submitted.Status != constants.PayoutStatusProcessing || submitted.GatewayPayoutID == "" {
		t.Fatalf("unexpected payout after submit: %+v", submitted)
	}

	// 打款时懒创建的网关标识已回写关联账户
	var linked models.SellerLinkedAccount
	if err := db.Where("seller_id = ?", 48).First(&linked).Error; err != nil {
		t.Fatalf("load linked account failed: %v", err)
	}
	if linked.GatewayContactID == "" || linked.GatewayAccountID == "" {
		t.Fatalf("expected gateway identifiers, got %+v", linked)
	}
	if linked.Status != constants.LinkedAccountStatusActive {
		t.Fatalf("unexpected linked account status: %s", linked.Status)
	}

	var reloadedAccount models.SellerBankAccount
	if err := db.First(&reloadedAccount, account.ID).Error; err != nil {
		t.Fatalf("load bank account failed: %v", err)
	}
	if reloadedAccount.Status != constants.BankAccountStatusVerified {
		t.Fatalf("unexpected bank account status: %s", reloadedAccount.Status)
	}
}

type transferFailGateway struct {
	*sandbox.Gateway
	failRef string
}

func (g *transferFailGateway) CreateTransfer(ctx context.Context, input gateway.TransferInput) (*gateway.TransferResult, error) {
	if input.ReferenceNo == g.failRef {
		return nil, gateway.NewError("insufficient_funds", "transfer rejected by gateway", false)
	}
	return g.Gateway.CreateTransfer(ctx, input)
}

func TestProcessDuePayoutsMixedBatch(t *testing.T) {
	_, db := setupPayoutServiceTest(t)
	flaky := &transferFailGateway{Gateway: sandbox.New("test-secret")}
	svc := newPayoutServiceWithGateway(t, db, flaky)

	payouts := make([]*models.Payout, 0, 3)
	for _, sellerID := range []uint{51, 52, 53} {
		createPayoutReadySeller(t, db, sellerID)
		createSettledSplit(t, db, sellerID, decimal.NewFromInt(500))
		payout, err := svc.RequestPayout(context.Background(), RequestPayoutInput{
			SellerID: sellerID,
			Amount:   models.NewMoneyFromDecimal(decimal.NewFromInt(200)),
		})
		if err != nil {
			t.Fatalf("request payout for seller %d failed: %v", sellerID, err)
		}
		payouts = append(payouts, payout)
	}
	flaky.failRef = payouts[1].ReferenceNo

	// 中间一笔网关拒绝，不影响其余打款继续提交
	processed, err := svc.ProcessDuePayouts(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("process due payouts failed: %v", err)
	}
	if processed != 3 {
		t.Fatalf("expected 3 handled, got %d", processed)
	}

	for i, expected := range []string{
		constants.PayoutStatusProcessing,
		constants.PayoutStatusFailed,
		constants.PayoutStatusProcessing,
	} {
		reloaded, err := svc.GetPayout(payouts[i].ID)
		if err != nil {
			t.Fatalf("get payout failed: %v", err)
		}
		if reloaded.Status != expected {
			t.Fatalf("payout %d: expected %s, got %s", i, expected, reloaded.Status)
		}
		if expected == constants.PayoutStatusProcessing && reloaded.GatewayPayoutID == "" {
			t.Fatalf("payout %d: expected gateway payout id", i)
		}
	}

	failed, err := svc.GetPayout(payouts[1].ID)
	if err != nil {
		t.Fatalf("get payout failed: %v", err)
	}
	if failed.FailureReason == "" {
		t.Fatalf("expected failure reason on rejected payout")
	}
}

func TestProcessAndReconcilePayouts(t *testing.T) {
	svc, db := setupPayoutServiceTest(t)
	createPayoutReadySeller(t, db, 44)
	createSettledSplit(t, db, 44, decimal.NewFromInt(400))

	payout, err := svc.RequestPayout(context.Background(), RequestPayoutInput{
		SellerID: 44,
		Amount:   models.NewMoneyFromDecimal(decimal.NewFromInt(250)),
	})
	if err != nil {
		t.Fatalf("request payout failed: %v", err)
	}

	processed, err := svc.ProcessDuePayouts(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("process due payouts failed: %v", err)
	}
	if processed != 1 {
		t.Fatalf("expected 1 processed, got %d", processed)
	}

	submitted, err := svc.GetPayout(payout.ID)
	if err != nil {
		t.Fatalf("get payout failed: %v", err)
	}
	if submitted.Status != constants.PayoutStatusProcessing || submitted.GatewayPayoutID == "" {
		t.Fatalf("unexpected payout after submit: %+v", submitted)
	}

	reconciled, err := svc.ReconcileProcessingPayouts(context.Background())
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if reconciled != 1 {
		t.Fatalf("expected 1 reconciled, got %d", reconciled)
	}

	completed, err := svc.GetPayout(payout.ID)
	if err != nil {
		t.Fatalf("get payout failed: %v", err)
	}
	if completed.Status != constants.PayoutStatusCompleted || completed.CompletedAt == nil {
		t.Fatalf("unexpected payout after reconcile: %+v", completed)
	}

	// 已完成打款继续占用余额
	balance, err := svc.GetSellerBalance(44)
	if err != nil {
		t.Fatalf("get balance failed: %v", err)
	}
	if !balance.Available.Decimal.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("expected available 150, got %s", balance.Available.String())
	}
}
