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

func setupPaymentServiceTest(t *testing.T) (*PaymentService, *sandbox.Gateway, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:payment_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Payment{},
		&models.PaymentSplit{},
		&models.Refund{},
		&models.SellerKyc{},
		&models.SellerLinkedAccount{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db

	gw := sandbox.New("test-secret")
	svc := newPaymentServiceWithGateway(t, db, gw)
	return svc, gw, db
}

func newPaymentServiceWithGateway(t *testing.T, db *gorm.DB, payGateway gateway.PaymentGateway) *PaymentService {
	t.Helper()
	queueClient, err := queue.NewClient(nil)
	if err != nil {
		t.Fatalf("new queue client failed: %v", err)
	}
	return NewPaymentService(
		repository.NewPaymentRepository(db),
		repository.NewSplitRepository(db),
		repository.NewRefundRepository(db),
		repository.NewKycRepository(db),
		repository.NewLinkedAccountRepository(db),
		payGateway,
		queueClient,
		&config.PaymentsConfig{
			DefaultCommissionRate: "0.05",
			SettlementHoldHours:   1,
			GatewayTimeoutSeconds: 5,
		},
	)
}

func createVerifiedSeller(t *testing.T, db *gorm.DB, sellerID uint) {
	t.Helper()
	kyc := models.SellerKyc{
		SellerID:     sellerID,
		LegalName:    fmt.Sprintf("Seller %d", sellerID),
		BusinessType: constants.BusinessTypeIndividual,
		PanNumber:    fmt.Sprintf("ABCDE%04dF", sellerID),
		Status:       constants.KycStatusVerified,
	}
	if err := db.Create(&kyc).Error; err != nil {
		t.Fatalf("create kyc failed: %v", err)
	}
}

func capturePayment(t *testing.T, svc *PaymentService, gw *sandbox.Gateway, payment *models.Payment, gatewayPaymentID string) *models.Payment {
	t.Helper()
	captured, err := svc.VerifyAndCapture(context.Background(), VerifyCaptureInput{
		GatewayOrderID:   payment.GatewayOrderID,
		GatewayPaymentID: gatewayPaymentID,
		Signature:        gw.SignPayment(payment.GatewayOrderID, gatewayPaymentID),
	})
	if err != nil {
		t.Fatalf("capture failed: %v", err)
	}
	return captured
}

func TestCreatePaymentSharesMismatch(t *testing.T) {
	svc, _, db := setupPaymentServiceTest(t)
	createVerifiedSeller(t, db, 11)

	_, err := svc.CreatePayment(context.Background(), CreatePaymentInput{
		OrderID:    "ORD-1001",
		CustomerID: 1,
		Amount:     models.NewMoneyFromDecimal(decimal.NewFromInt(100)),
		Shares: []SellerShareInput{
			{SellerID: 11, Amount: models.NewMoneyFromDecimal(decimal.NewFromInt(90))},
		},
	})
	if !errors.Is(err, ErrPaymentSharesMismatch) {
		t.Fatalf("expected shares mismatch, got: %v", err)
	}
}

func TestCreatePaymentRequiresVerifiedSeller(t *testing.T) {
	svc, _, _ := setupPaymentServiceTest(t)

	_, err := svc.CreatePayment(context.Background(), CreatePaymentInput{
		OrderID:    "ORD-1002",
		CustomerID: 1,
		Amount:     models.NewMoneyFromDecimal(decimal.NewFromInt(100)),
		Shares: []SellerShareInput{
			{SellerID: 99, Amount: models.NewMoneyFromDecimal(decimal.NewFromInt(100))},
		},
	})
	if !errors.Is(err, ErrKycNotVerified) {
		t.Fatalf("expected kyc not verified, got: %v", err)
	}
}

func TestCreatePaymentIdempotency(t *testing.T) {
	svc, _, db := setupPaymentServiceTest(t)
	createVerifiedSeller(t, db, 11)

	input := CreatePaymentInput{
		OrderID:        "ORD-1003",
		CustomerID:     1,
		Amount:         models.NewMoneyFromDecimal(decimal.NewFromInt(100)),
		IdempotencyKey: "idem-key-1",
		Shares: []SellerShareInput{
			{SellerID: 11, Amount: models.NewMoneyFromDecimal(decimal.NewFromInt(100))},
		},
	}
	first, err := svc.CreatePayment(context.Background(), input)
	if err != nil {
		t.Fatalf("create payment failed: %v", err)
	}
	if first.GatewayOrderID == "" {
		t.Fatalf("expected gateway order id to be set")
	}

	second, err := svc.CreatePayment(context.Background(), input)
	if err != nil {
		t.Fatalf("idempotent create failed: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected same payment, got %d and %d", first.ID, second.ID)
	}

	input.Amount = models.NewMoneyFromDecimal(decimal.NewFromInt(200))
	input.Shares[0].Amount = models.NewMoneyFromDecimal(decimal.NewFromInt(200))
	if _, err := svc.CreatePayment(context.Background(), input); !errors.Is(err, ErrIdempotencyConflict) {
		t.Fatalf("expected idempotency conflict, got: %v", err)
	}
}

func TestVerifyAndCaptureCreatesSplits(t *testing.T) {
	svc, gw, db := setupPaymentServiceTest(t)
	createVerifiedSeller(t, db, 11)
	createVerifiedSeller(t, db, 12)

	payment, err := svc.CreatePayment(context.Background(), CreatePaymentInput{
		OrderID:    "ORD-1004",
		CustomerID: 1,
		Amount:     models.NewMoneyFromDecimal(decimal.NewFromInt(150)),
		Shares: []SellerShareInput{
			{SellerID: 11, Amount: models.NewMoneyFromDecimal(decimal.NewFromInt(100))},
			{SellerID: 12, Amount: models.NewMoneyFromDecimal(decimal.NewFromInt(50))},
		},
	})
	if err != nil {
		t.Fatalf("create payment failed: %v", err)
	}

	captured := capturePayment(t, svc, gw, payment, "pay_abc")
	if captured.Status != constants.PaymentStatusCaptured {
		t.Fatalf("unexpected status: %s", captured.Status)
	}
	if captured.CompletedAt == nil {
		t.Fatalf("expected completed_at to be set")
	}

	splits, _, err := svc.ListSplits(repository.SplitListFilter{PaymentID: payment.ID})
	if err != nil {
		t.Fatalf("list splits failed: %v", err)
	}
	if len(splits) != 2 {
		t.Fatalf("expected 2 splits, got %d", len(splits))
	}
	for _, split := range splits {
		if split.Status != constants.SplitStatusPending {
			t.Fatalf("expected pending split, got %s", split.Status)
		}
		expected, err := ComputeSplit(split.GrossAmount.Decimal, captured.CommissionRate)
		if err != nil {
			t.Fatalf("compute split failed: %v", err)
		}
		if !split.CommissionAmount.Decimal.Equal(expected.Commission) {
			t.Fatalf("unexpected commission for seller %d: %s", split.SellerID, split.CommissionAmount.String())
		}
		if !split.NetAmount.Decimal.Equal(expected.Net) {
			t.Fatalf("unexpected net for seller %d: %s", split.SellerID, split.NetAmount.String())
		}
	}

	// 重复回跳幂等返回，不产生新分账
	again := capturePayment(t, svc, gw, payment, "pay_abc")
	if again.ID != captured.ID {
		t.Fatalf("expected idempotent capture")
	}
	splits, _, err = svc.ListSplits(repository.SplitListFilter{PaymentID: payment.ID})
	if err != nil {
		t.Fatalf("list splits failed: %v", err)
	}
	if len(splits) != 2 {
		t.Fatalf("expected 2 splits after duplicate capture, got %d", len(splits))
	}
}

func TestVerifyAndCaptureInvalidSignature(t *testing.T) {
	svc, gw, db := setupPaymentServiceTest(t)
	createVerifiedSeller(t, db, 11)

	payment, err := svc.CreatePayment(context.Background(), CreatePaymentInput{
		OrderID:    "ORD-1005",
		CustomerID: 1,
		Amount:     models.NewMoneyFromDecimal(decimal.NewFromInt(80)),
		Shares: []SellerShareInput{
			{SellerID: 11, Amount: models.NewMoneyFromDecimal(decimal.NewFromInt(80))},
		},
	})
	if err != nil {
		t.Fatalf("create payment failed: %v", err)
	}

	_, err = svc.VerifyAndCapture(context.Background(), VerifyCaptureInput{
		GatewayOrderID:   payment.GatewayOrderID,
		GatewayPaymentID: "pay_bad",
		Signature:        "not-a-valid-signature",
	})
	if !errors.Is(err, ErrPaymentSignatureInvalid) {
		t.Fatalf("expected signature invalid, got: %v", err)
	}

	// 伪造回跳不改动支付记录
	reloaded, err := svc.GetPayment(payment.ID)
	if err != nil {
		t.Fatalf("get payment failed: %v", err)
	}
	if reloaded.Status != constants.PaymentStatusInitiated {
		t.Fatalf("unexpected status after forged callback: %s", reloaded.Status)
	}
	if reloaded.FailureReason != "" {
		t.Fatalf("unexpected failure reason: %s", reloaded.FailureReason)
	}

	// 合法回跳随后仍可正常捕获
	captured := capturePayment(t, svc, gw, payment, "pay_good")
	if captured.Status != constants.PaymentStatusCaptured {
		t.Fatalf("unexpected status after valid callback: %s", captured.Status)
	}
}

type captureFailGateway struct {
	*sandbox.Gateway
	failCapture bool
}

func (g *captureFailGateway) Capture(ctx context.Context, input gateway.CaptureInput) error {
	if g.failCapture {
		return gateway.NewError("capture_failed", "capture rejected by gateway", true)
	}
	return g.Gateway.Capture(ctx, input)
}

func TestVerifyAndCaptureGatewayCaptureFailure(t *testing.T) {
	_, gw, db := setupPaymentServiceTest(t)
	createVerifiedSeller(t, db, 11)

	flaky := &captureFailGateway{Gateway: gw, failCapture: true}
	svc := newPaymentServiceWithGateway(t, db, flaky)

	payment, err := svc.CreatePayment(context.Background(), CreatePaymentInput{
		OrderID:    "ORD-1009",
		CustomerID: 1,
		Amount:     models.NewMoneyFromDecimal(decimal.NewFromInt(70)),
		Shares: []SellerShareInput{
			{SellerID: 11, Amount: models.NewMoneyFromDecimal(decimal.NewFromInt(70))},
		},
	})
	if err != nil {
		t.Fatalf("create payment failed: %v", err)
	}

	input := VerifyCaptureInput{
		GatewayOrderID:   payment.GatewayOrderID,
		GatewayPaymentID: "pay_flaky",
		Signature:        gw.SignPayment(payment.GatewayOrderID, "pay_flaky"),
	}
	if _, err := svc.VerifyAndCapture(context.Background(), input); !errors.Is(err, ErrGatewayUnavailable) {
		t.Fatalf("expected gateway unavailable, got: %v", err)
	}

	// 网关捕获失败时支付保持待支付，等待下一次回跳
	reloaded, err := svc.GetPayment(payment.ID)
	if err != nil {
		t.Fatalf("get payment failed: %v", err)
	}
	if reloaded.Status != constants.PaymentStatusInitiated {
		t.Fatalf("unexpected status after capture failure: %s", reloaded.Status)
	}

	flaky.failCapture = false
	captured, err := svc.VerifyAndCapture(context.Background(), input)
	if err != nil {
		t.Fatalf("capture after recovery failed: %v", err)
	}
	if captured.Status != constants.PaymentStatusCaptured {
		t.Fatalf("unexpected status: %s", captured.Status)
	}
}

type orderRecorder struct {
	*sandbox.Gateway
	plainOrders    int
	transferOrders int
	lastTransfer   gateway.CreateOrderTransferInput
}

func (r *orderRecorder) CreateOrder(ctx context.Context, input gateway.CreateOrderInput) (*gateway.CreateOrderResult, error) {
	r.plainOrders++
	return r.Gateway.CreateOrder(ctx, input)
}

func (r *orderRecorder) CreateOrderWithTransfer(ctx context.Context, input gateway.CreateOrderTransferInput) (*gateway.CreateOrderResult, error) {
	r.transferOrders++
	r.lastTransfer = input
	return r.Gateway.CreateOrderWithTransfer(ctx, input)
}

func TestCreatePaymentBundlesTransferForLinkedSeller(t *testing.T) {
	_, gw, db := setupPaymentServiceTest(t)
	createVerifiedSeller(t, db, 13)
	createVerifiedSeller(t, db, 14)

	linked := models.SellerLinkedAccount{
		SellerID:         13,
		GatewayContactID: "cont_test13",
		GatewayAccountID: "fa_test13",
		Status:           constants.LinkedAccountStatusActive,
	}
	if err := db.Create(&linked).Error; err != nil {
		t.Fatalf("create linked account failed: %v", err)
	}

	recorder := &orderRecorder{Gateway: gw}
	svc := newPaymentServiceWithGateway(t, db, recorder)

	// 单卖家且关联账户已激活：订单携带预计算净得的分账指令
	payment, err := svc.CreatePayment(context.Background(), CreatePaymentInput{
		OrderID:    "ORD-1010",
		CustomerID: 1,
		Amount:     models.NewMoneyFromDecimal(decimal.NewFromInt(200)),
		Shares: []SellerShareInput{
			{SellerID: 13, Amount: models.NewMoneyFromDecimal(decimal.NewFromInt(200))},
		},
	})
	if err != nil {
		t.Fatalf("create payment failed: %v", err)
	}
	if payment.GatewayOrderID == "" {
		t.Fatalf("expected gateway order id to be set")
	}
	if recorder.transferOrders != 1 || recorder.plainOrders != 0 {
		t.Fatalf("expected transfer order, got transfer=%d plain=%d", recorder.transferOrders, recorder.plainOrders)
	}
	if recorder.lastTransfer.LinkedAccountID != "fa_test13" {
		t.Fatalf("unexpected linked account id: %s", recorder.lastTransfer.LinkedAccountID)
	}
	// 200 * (1 - 0.05) = 190
	if !recorder.lastTransfer.TransferAmount.Decimal.Equal(decimal.NewFromInt(190)) {
		t.Fatalf("unexpected transfer amount: %s", recorder.lastTransfer.TransferAmount.String())
	}

	// 多卖家支付走普通订单
	if _, err := svc.CreatePayment(context.Background(), CreatePaymentInput{
		OrderID:    "ORD-1011",
		CustomerID: 1,
		Amount:     models.NewMoneyFromDecimal(decimal.NewFromInt(100)),
		Shares: []SellerShareInput{
			{SellerID: 13, Amount: models.NewMoneyFromDecimal(decimal.NewFromInt(60))},
			{SellerID: 14, Amount: models.NewMoneyFromDecimal(decimal.NewFromInt(40))},
		},
	}); err != nil {
		t.Fatalf("create payment failed: %v", err)
	}
	if recorder.plainOrders != 1 {
		t.Fatalf("expected plain order for multi-seller payment, got %d", recorder.plainOrders)
	}

	// 单卖家但关联账户未激活同样走普通订单
	if _, err := svc.CreatePayment(context.Background(), CreatePaymentInput{
		OrderID:    "ORD-1012",
		CustomerID: 1,
		Amount:     models.NewMoneyFromDecimal(decimal.NewFromInt(50)),
		Shares: []SellerShareInput{
			{SellerID: 14, Amount: models.NewMoneyFromDecimal(decimal.NewFromInt(50))},
		},
	}); err != nil {
		t.Fatalf("create payment failed: %v", err)
	}
	if recorder.plainOrders != 2 || recorder.transferOrders != 1 {
		t.Fatalf("unexpected order mix: transfer=%d plain=%d", recorder.transferOrders, recorder.plainOrders)
	}
}

func TestSettleDueSplits(t *testing.T) {
	svc, gw, db := setupPaymentServiceTest(t)
	createVerifiedSeller(t, db, 11)

	payment, err := svc.CreatePayment(context.Background(), CreatePaymentInput{
		OrderID:    "ORD-1006",
		CustomerID: 1,
		Amount:     models.NewMoneyFromDecimal(decimal.NewFromInt(60)),
		Shares: []SellerShareInput{
			{SellerID: 11, Amount: models.NewMoneyFromDecimal(decimal.NewFromInt(60))},
		},
	})
	if err != nil {
		t.Fatalf("create payment failed: %v", err)
	}
	capturePayment(t, svc, gw, payment, "pay_settle")

	// 冻结期未到不结算
	settled, err := svc.SettleDueSplits(time.Now())
	if err != nil {
		t.Fatalf("settle failed: %v", err)
	}
	if settled != 0 {
		t.Fatalf("expected 0 settled before hold expires, got %d", settled)
	}

	settled, err = svc.SettleDueSplits(time.Now().Add(2 * time.Hour))
	if err != nil {
		t.Fatalf("settle failed: %v", err)
	}
	if settled != 1 {
		t.Fatalf("expected 1 settled, got %d", settled)
	}

	splits, _, err := svc.ListSplits(repository.SplitListFilter{PaymentID: payment.ID})
	if err != nil {
		t.Fatalf("list splits failed: %v", err)
	}
	if splits[0].Status != constants.SplitStatusSettled || splits[0].SettledAt == nil {
		t.Fatalf("expected settled split, got %+v", splits[0])
	}
}

func TestInitiateRefundPartialAndFull(t *testing.T) {
	svc, gw, db := setupPaymentServiceTest(t)
	createVerifiedSeller(t, db, 11)

	payment, err := svc.CreatePayment(context.Background(), CreatePaymentInput{
		OrderID:    "ORD-1007",
		CustomerID: 1,
		Amount:     models.NewMoneyFromDecimal(decimal.NewFromInt(100)),
		Shares: []SellerShareInput{
			{SellerID: 11, Amount: models.NewMoneyFromDecimal(decimal.NewFromInt(100))},
		},
	})
	if err != nil {
		t.Fatalf("create payment failed: %v", err)
	}
	capturePayment(t, svc, gw, payment, "pay_refund")

	refund, err := svc.InitiateRefund(context.Background(), RefundInput{
		PaymentID: payment.ID,
		Amount:    models.NewMoneyFromDecimal(decimal.NewFromInt(40)),
		Reason:    "item damaged",
		Initiator: constants.RefundInitiatorCustomer,
	})
	if err != nil {
		t.Fatalf("partial refund failed: %v", err)
	}
	if refund.Status != constants.RefundStatusCompleted || refund.GatewayRefundID == "" {
		t.Fatalf("unexpected refund: %+v", refund)
	}

	reloaded, err := svc.GetPayment(payment.ID)
	if err != nil {
		t.Fatalf("get payment failed: %v", err)
	}
	if reloaded.Status != constants.PaymentStatusPartiallyRefunded {
		t.Fatalf("unexpected payment status: %s", reloaded.Status)
	}
	if !reloaded.RefundedAmount.Decimal.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("unexpected refunded amount: %s", reloaded.RefundedAmount.String())
	}

	// 未结算分账按剩余比例缩减：100 - 40 = 60
	splits, _, err := svc.ListSplits(repository.SplitListFilter{PaymentID: payment.ID})
	if err != nil {
		t.Fatalf("list splits failed: %v", err)
	}
	if !splits[0].GrossAmount.Decimal.Equal(decimal.NewFromInt(60)) {
		t.Fatalf("unexpected reduced gross: %s", splits[0].GrossAmount.String())
	}

	// 超出可退余额
	_, err = svc.InitiateRefund(context.Background(), RefundInput{
		PaymentID: payment.ID,
		Amount:    models.NewMoneyFromDecimal(decimal.NewFromInt(61)),
		Initiator: constants.RefundInitiatorAdmin,
	})
	if !errors.Is(err, ErrRefundExceedsBalance) {
		t.Fatalf("expected exceeds balance, got: %v", err)
	}

	// 退完剩余金额，支付转全额退款，分账回冲
	if _, err := svc.InitiateRefund(context.Background(), RefundInput{
		PaymentID: payment.ID,
		Amount:    models.NewMoneyFromDecimal(decimal.NewFromInt(60)),
		Initiator: constants.RefundInitiatorAdmin,
	}); err != nil {
		t.Fatalf("full refund failed: %v", err)
	}
	reloaded, err = svc.GetPayment(payment.ID)
	if err != nil {
		t.Fatalf("get payment failed: %v", err)
	}
	if reloaded.Status != constants.PaymentStatusRefunded {
		t.Fatalf("unexpected payment status: %s", reloaded.Status)
	}
	splits, _, err = svc.ListSplits(repository.SplitListFilter{PaymentID: payment.ID})
	if err != nil {
		t.Fatalf("list splits failed: %v", err)
	}
	if splits[0].Status != constants.SplitStatusReversed || !splits[0].NetAmount.Decimal.IsZero() {
		t.Fatalf("expected reversed split, got %+v", splits[0])
	}
}

func TestInitiateRefundRequiresCapturedPayment(t *testing.T) {
	svc, _, db := setupPaymentServiceTest(t)
	createVerifiedSeller(t, db, 11)

	payment, err := svc.CreatePayment(context.Background(), CreatePaymentInput{
		OrderID:    "ORD-1008",
		CustomerID: 1,
		Amount:     models.NewMoneyFromDecimal(decimal.NewFromInt(50)),
		Shares: []SellerShareInput{
			{SellerID: 11, Amount: models.NewMoneyFromDecimal(decimal.NewFromInt(50))},
		},
	})
	if err != nil {
		t.Fatalf("create payment failed: %v", err)
	}

	_, err = svc.InitiateRefund(context.Background(), RefundInput{
		PaymentID: payment.ID,
		Amount:    models.NewMoneyFromDecimal(decimal.NewFromInt(10)),
		Initiator: constants.RefundInitiatorCustomer,
	})
	if !errors.Is(err, ErrPaymentStatusInvalid) {
		t.Fatalf("expected status invalid, got: %v", err)
	}
}
