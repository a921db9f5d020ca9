package service

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kalakart-next/internal/config"
	"github.com/kalakart-next/internal/constants"
	"github.com/kalakart-next/internal/gateway"
	"github.com/kalakart-next/internal/logger"
	"github.com/kalakart-next/internal/models"
	"github.com/kalakart-next/internal/queue"
	"github.com/kalakart-next/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	defaultCommissionRate = "0.05"
	defaultGatewayTimeout = 10 * time.Second
	defaultSettlementHold = 72 * time.Hour
)

// PaymentService 支付与分账服务
type PaymentService struct {
	paymentRepo repository.PaymentRepository
	splitRepo   repository.SplitRepository
	refundRepo  repository.RefundRepository
	kycRepo     repository.KycRepository
	linkedRepo  repository.LinkedAccountRepository
	payGateway  gateway.PaymentGateway
	queueClient *queue.Client

	commissionRate models.Rate
	settlementHold time.Duration
	gatewayTimeout time.Duration
}

// SellerShareInput 单个卖家分摊入参
type SellerShareInput struct {
	SellerID uint
	Amount   models.Money
}

// CreatePaymentInput 创建支付入参
type CreatePaymentInput struct {
	OrderID        string
	CustomerID     uint
	Amount         models.Money
	Currency       string
	IdempotencyKey string
	Shares         []SellerShareInput
}

// VerifyCaptureInput 支付回跳捕获入参
type VerifyCaptureInput struct {
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
}

// NewPaymentService 创建支付服务
func NewPaymentService(
	paymentRepo repository.PaymentRepository,
	splitRepo repository.SplitRepository,
	refundRepo repository.RefundRepository,
	kycRepo repository.KycRepository,
	linkedRepo repository.LinkedAccountRepository,
	payGateway gateway.PaymentGateway,
	queueClient *queue.Client,
	cfg *config.PaymentsConfig,
) *PaymentService {
	svc := &PaymentService{
		paymentRepo:    paymentRepo,
		splitRepo:      splitRepo,
		refundRepo:     refundRepo,
		kycRepo:        kycRepo,
		linkedRepo:     linkedRepo,
		payGateway:     payGateway,
		queueClient:    queueClient,
		commissionRate: parseCommissionRate(defaultCommissionRate),
		settlementHold: defaultSettlementHold,
		gatewayTimeout: defaultGatewayTimeout,
	}
	if cfg != nil {
		if strings.TrimSpace(cfg.DefaultCommissionRate) != "" {
			svc.commissionRate = parseCommissionRate(cfg.DefaultCommissionRate)
		}
		if cfg.SettlementHoldHours > 0 {
			svc.settlementHold = time.Duration(cfg.SettlementHoldHours) * time.Hour
		}
		if cfg.GatewayTimeoutSeconds > 0 {
			svc.gatewayTimeout = time.Duration(cfg.GatewayTimeoutSeconds) * time.Second
		}
	}
	return svc
}

// CreatePayment 创建支付，幂等键重复时返回已有记录
func (s *PaymentService) CreatePayment(ctx context.Context, input CreatePaymentInput) (*models.Payment, error) {
	orderID := strings.TrimSpace(input.OrderID)
	amount := input.Amount.Decimal.Round(2)
	if orderID == "" || input.CustomerID == 0 || amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrPaymentInvalid
	}
	if len(input.Shares) == 0 {
		return nil, ErrPaymentInvalid
	}

	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = constants.CurrencyDefault
	}

	shares, err := s.normalizeShares(input.Shares, amount)
	if err != nil {
		return nil, err
	}

	key := strings.TrimSpace(input.IdempotencyKey)
	if key == "" {
		key = uuid.NewString()
	} else {
		existing, err := s.paymentRepo.GetByIdempotencyKey(key)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			if existing.OrderID != orderID || !existing.Amount.Decimal.Equal(amount) {
				return nil, ErrIdempotencyConflict
			}
			// 之前创建网关订单失败时借重试请求补建
			if existing.Status == constants.PaymentStatusInitiated && existing.GatewayOrderID == "" {
				return s.ensureGatewayOrder(ctx, existing)
			}
			return existing, nil
		}
	}

	now := time.Now()
	payment := &models.Payment{
		OrderID:        orderID,
		CustomerID:     input.CustomerID,
		Amount:         models.NewMoneyFromDecimal(amount),
		Currency:       currency,
		CommissionRate: s.commissionRate,
		Status:         constants.PaymentStatusInitiated,
		IdempotencyKey: key,
		SellerShares:   encodeShares(shares),
		RefundedAmount: models.MoneyZero(),
		InitiatedAt:    now,
	}
	if err := s.paymentRepo.Create(payment); err != nil {
		// 并发下唯一索引冲突时回读已有记录
		if existing, lookupErr := s.paymentRepo.GetByIdempotencyKey(key); lookupErr == nil && existing != nil {
			if existing.OrderID != orderID || !existing.Amount.Decimal.Equal(amount) {
				return nil, ErrIdempotencyConflict
			}
			return existing, nil
		}
		return nil, err
	}

	logger.Infow("payment_created",
		"payment_id", payment.ID,
		"order_id", payment.OrderID,
		"amount", payment.Amount.String(),
		"commission_rate", payment.CommissionRate.StringFixed(4),
	)
	return s.ensureGatewayOrder(ctx, payment)
}

// RetryGatewayOrder 为缺少网关订单的支付补建订单
func (s *PaymentService) RetryGatewayOrder(ctx context.Context, paymentID uint) (*models.Payment, error) {
	payment, err := s.paymentRepo.GetByID(paymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}
	if payment.Status != constants.PaymentStatusInitiated {
		return nil, ErrPaymentStatusInvalid
	}
	if payment.GatewayOrderID != "" {
		return payment, nil
	}
	return s.ensureGatewayOrder(ctx, payment)
}

// GetPayment 查询支付记录
func (s *PaymentService) GetPayment(paymentID uint) (*models.Payment, error) {
	payment, err := s.paymentRepo.GetByID(paymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}
	return payment, nil
}

// ListPayments 查询支付列表
func (s *PaymentService) ListPayments(filter repository.PaymentListFilter) ([]models.Payment, int64, error) {
	return s.paymentRepo.List(filter)
}

// ListSplits 查询分账列表
func (s *PaymentService) ListSplits(filter repository.SplitListFilter) ([]models.PaymentSplit, int64, error) {
	return s.splitRepo.List(filter)
}

func (s *PaymentService) ensureGatewayOrder(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()

	notes := map[string]string{"payment_id": strconv.FormatUint(uint64(payment.ID), 10)}
	var result *gateway.CreateOrderResult
	var err error
	if transfer := s.resolveOrderTransfer(payment); transfer != nil {
		result, err = s.payGateway.CreateOrderWithTransfer(callCtx, gateway.CreateOrderTransferInput{
			OrderID:         payment.OrderID,
			Amount:          payment.Amount,
			Currency:        payment.Currency,
			Notes:           notes,
			LinkedAccountID: transfer.LinkedAccountID,
			TransferAmount:  transfer.TransferAmount,
		})
	} else {
		result, err = s.payGateway.CreateOrder(callCtx, gateway.CreateOrderInput{
			OrderID:  payment.OrderID,
			Amount:   payment.Amount,
			Currency: payment.Currency,
			Notes:    notes,
		})
	}
	if err != nil {
		logger.Errorw("gateway_order_create_failed",
			"payment_id", payment.ID,
			"order_id", payment.OrderID,
			"error", err,
		)
		return payment, ErrGatewayUnavailable
	}

	payment.GatewayOrderID = result.GatewayOrderID
	if err := s.paymentRepo.Update(payment); err != nil {
		return nil, err
	}
	return payment, nil
}

type orderTransfer struct {
	LinkedAccountID string
	TransferAmount  models.Money
}

// resolveOrderTransfer 判断订单能否携带分账指令。
// 仅支持单卖家支付且卖家关联账户已激活，净得按锁定佣金比例预计算。
func (s *PaymentService) resolveOrderTransfer(payment *models.Payment) *orderTransfer {
	shares, err := decodeShares(payment.SellerShares)
	if err != nil || len(shares) != 1 {
		return nil
	}
	linked, err := s.linkedRepo.GetBySellerID(shares[0].SellerID)
	if err != nil {
		logger.Warnw("order_transfer_linked_lookup_failed",
			"payment_id", payment.ID,
			"seller_id", shares[0].SellerID,
			"error", err,
		)
		return nil
	}
	if linked == nil || linked.Status != constants.LinkedAccountStatusActive || linked.GatewayAccountID == "" {
		return nil
	}
	amounts, err := ComputeSplit(shares[0].Amount.Decimal, payment.CommissionRate)
	if err != nil {
		logger.Warnw("order_transfer_split_failed",
			"payment_id", payment.ID,
			"seller_id", shares[0].SellerID,
			"error", err,
		)
		return nil
	}
	return &orderTransfer{
		LinkedAccountID: linked.GatewayAccountID,
		TransferAmount:  models.NewMoneyFromDecimal(amounts.Net),
	}
}

func (s *PaymentService) normalizeShares(inputs []SellerShareInput, amount decimal.Decimal) ([]SellerShareInput, error) {
	seen := make(map[uint]bool, len(inputs))
	shares := make([]SellerShareInput, 0, len(inputs))
	sum := decimal.Zero
	for _, share := range inputs {
		if share.SellerID == 0 || seen[share.SellerID] {
			return nil, ErrPaymentInvalid
		}
		value := share.Amount.Decimal.Round(2)
		if value.LessThanOrEqual(decimal.Zero) {
			return nil, ErrPaymentInvalid
		}
		kyc, err := s.kycRepo.GetBySellerID(share.SellerID)
		if err != nil {
			return nil, err
		}
		if kyc == nil || kyc.Status != constants.KycStatusVerified {
			return nil, ErrKycNotVerified
		}
		seen[share.SellerID] = true
		shares = append(shares, SellerShareInput{
			SellerID: share.SellerID,
			Amount:   models.NewMoneyFromDecimal(value),
		})
		sum = sum.Add(value)
	}
	if !sum.Equal(amount) {
		return nil, ErrPaymentSharesMismatch
	}
	sort.Slice(shares, func(i, j int) bool { return shares[i].SellerID < shares[j].SellerID })
	return shares, nil
}

func encodeShares(shares []SellerShareInput) models.JSON {
	payload := make(models.JSON, len(shares))
	for _, share := range shares {
		payload[strconv.FormatUint(uint64(share.SellerID), 10)] = share.Amount.String()
	}
	return payload
}

func decodeShares(payload models.JSON) ([]SellerShareInput, error) {
	shares := make([]SellerShareInput, 0, len(payload))
	for rawID, rawAmount := range payload {
		sellerID, err := strconv.ParseUint(rawID, 10, 64)
		if err != nil {
			return nil, ErrPaymentInvalid
		}
		text, ok := rawAmount.(string)
		if !ok {
			return nil, ErrPaymentInvalid
		}
		value, err := decimal.NewFromString(text)
		if err != nil {
			return nil, ErrPaymentInvalid
		}
		shares = append(shares, SellerShareInput{
			SellerID: uint(sellerID),
			Amount:   models.NewMoneyFromDecimal(value),
		})
	}
	sort.Slice(shares, func(i, j int) bool { return shares[i].SellerID < shares[j].SellerID })
	return shares, nil
}

func parseCommissionRate(raw string) models.Rate {
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil || value.IsNegative() || value.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		logger.Warnw("commission_rate_invalid", "raw", raw, "fallback", defaultCommissionRate)
		value, _ = decimal.NewFromString(defaultCommissionRate)
	}
	return models.NewRateFromDecimal(value)
}
