package service

import (
	"context"
	"strings"
	"time"

	"github.com/kalakart-next/internal/constants"
	"github.com/kalakart-next/internal/gateway"
	"github.com/kalakart-next/internal/logger"
	"github.com/kalakart-next/internal/models"
	"github.com/kalakart-next/internal/queue"
	"github.com/kalakart-next/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RefundInput 发起退款入参
type RefundInput struct {
	PaymentID uint
	Amount    models.Money
	Reason    string
	Initiator string
}

// InitiateRefund 发起退款并同步网关结果
func (s *PaymentService) InitiateRefund(ctx context.Context, input RefundInput) (*models.Refund, error) {
	amount := input.Amount.Decimal.Round(2)
	if input.PaymentID == 0 || amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrRefundInvalidAmount
	}
	initiator := strings.TrimSpace(input.Initiator)
	switch initiator {
	case constants.RefundInitiatorCustomer, constants.RefundInitiatorSeller, constants.RefundInitiatorAdmin:
	default:
		return nil, ErrRefundInvalidAmount
	}

	// 第一阶段：校验并落处理中的退款记录
	var refund *models.Refund
	var gatewayPaymentID string
	err := s.paymentRepo.Transaction(func(tx *gorm.DB) error {
		payment, err := s.paymentRepo.WithTx(tx).GetByIDForUpdate(input.PaymentID)
		if err != nil {
			return err
		}
		if payment == nil {
			return ErrPaymentNotFound
		}
		if payment.Status != constants.PaymentStatusCaptured &&
			payment.Status != constants.PaymentStatusPartiallyRefunded {
			return ErrPaymentStatusInvalid
		}
		refundable := payment.Amount.Decimal.Sub(payment.RefundedAmount.Decimal)
		if amount.GreaterThan(refundable) {
			return ErrRefundExceedsBalance
		}
		processing, err := s.refundRepo.WithTx(tx).HasProcessingByPayment(payment.ID)
		if err != nil {
			return err
		}
		if processing {
			return ErrRefundInProgress
		}

		refund = &models.Refund{
			PaymentID: payment.ID,
			Amount:    models.NewMoneyFromDecimal(amount),
			Reason:    strings.TrimSpace(input.Reason),
			Initiator: initiator,
			Status:    constants.RefundStatusProcessing,
		}
		gatewayPaymentID = payment.GatewayPaymentID
		return s.refundRepo.WithTx(tx).Create(refund)
	})
	if err != nil {
		return nil, err
	}

	// 第二阶段：调用网关退款
	callCtx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()
	result, gatewayErr := s.payGateway.CreateRefund(callCtx, gateway.RefundInput{
		GatewayPaymentID: gatewayPaymentID,
		Amount:           refund.Amount,
		Reason:           refund.Reason,
	})

	// 第三阶段：按网关结果落终态
	if gatewayErr != nil {
		if err := s.finalizeRefundFailed(refund.ID, gatewayErr.Error()); err != nil {
			return nil, err
		}
		logger.Errorw("refund_gateway_failed",
			"refund_id", refund.ID,
			"payment_id", refund.PaymentID,
			"error", gatewayErr,
		)
		return nil, ErrGatewayUnavailable
	}

	if err := s.finalizeRefundCompleted(refund.ID, result.GatewayRefundID); err != nil {
		return nil, err
	}

	completed, err := s.refundRepo.GetByID(refund.ID)
	if err != nil {
		return nil, err
	}
	logger.Infow("refund_completed",
		"refund_id", refund.ID,
		"payment_id", refund.PaymentID,
		"amount", refund.Amount.String(),
	)
	if err := s.queueClient.EnqueueStatusNotification(queue.StatusNotificationPayload{
		Event:    constants.NotificationEventPaymentRefunded,
		EntityID: refund.PaymentID,
		Status:   constants.RefundStatusCompleted,
	}); err != nil {
		logger.Warnw("notification_enqueue_failed", "refund_id", refund.ID, "error", err)
	}
	return completed, nil
}

// GetRefund 查询退款记录
func (s *PaymentService) GetRefund(refundID uint) (*models.Refund, error) {
	refund, err := s.refundRepo.GetByID(refundID)
	if err != nil {
		return nil, err
	}
	if refund == nil {
		return nil, ErrRefundNotFound
	}
	return refund, nil
}

// ListRefunds 查询退款列表
func (s *PaymentService) ListRefunds(filter repository.RefundListFilter) ([]models.Refund, int64, error) {
	return s.refundRepo.List(filter)
}

func (s *PaymentService) finalizeRefundFailed(refundID uint, reason string) error {
	return s.paymentRepo.Transaction(func(tx *gorm.DB) error {
		refund, err := s.refundRepo.WithTx(tx).GetByID(refundID)
		if err != nil {
			return err
		}
		if refund == nil || refund.Status != constants.RefundStatusProcessing {
			return nil
		}
		refund.Status = constants.RefundStatusFailed
		refund.FailureReason = reason
		refund.Payment = nil
		return s.refundRepo.WithTx(tx).Update(refund)
	})
}

func (s *PaymentService) finalizeRefundCompleted(refundID uint, gatewayRefundID string) error {
	return s.paymentRepo.Transaction(func(tx *gorm.DB) error {
		refund, err := s.refundRepo.WithTx(tx).GetByID(refundID)
		if err != nil {
			return err
		}
		if refund == nil || refund.Status != constants.RefundStatusProcessing {
			return nil
		}

		payment, err := s.paymentRepo.WithTx(tx).GetByIDForUpdate(refund.PaymentID)
		if err != nil {
			return err
		}
		if payment == nil {
			return ErrPaymentNotFound
		}

		now := time.Now()
		refund.Status = constants.RefundStatusCompleted
		refund.GatewayRefundID = gatewayRefundID
		refund.CompletedAt = &now
		refund.Payment = nil
		if err := s.refundRepo.WithTx(tx).Update(refund); err != nil {
			return err
		}

		payment.RefundedAmount = models.NewMoneyFromDecimal(
			payment.RefundedAmount.Decimal.Add(refund.Amount.Decimal))
		if payment.RefundedAmount.Decimal.GreaterThanOrEqual(payment.Amount.Decimal) {
			payment.Status = constants.PaymentStatusRefunded
		} else {
			payment.Status = constants.PaymentStatusPartiallyRefunded
		}
		if err := s.paymentRepo.WithTx(tx).Update(payment); err != nil {
			return err
		}

		return s.reduceSplitsForRefund(tx, payment)
	})
}

// reduceSplitsForRefund 按剩余可结算比例缩减未结算分账。
// 已结算分账不回冲，差额由平台承担并记录告警。
func (s *PaymentService) reduceSplitsForRefund(tx *gorm.DB, payment *models.Payment) error {
	splits, err := s.splitRepo.WithTx(tx).ListByPaymentIDForUpdate(payment.ID)
	if err != nil {
		return err
	}
	if len(splits) == 0 {
		return nil
	}

	shares, err := decodeShares(payment.SellerShares)
	if err != nil {
		return err
	}
	originalBySeller := make(map[uint]decimal.Decimal, len(shares))
	for _, share := range shares {
		originalBySeller[share.SellerID] = share.Amount.Decimal
	}

	remainingFraction := payment.Amount.Decimal.Sub(payment.RefundedAmount.Decimal).
		Div(payment.Amount.Decimal)
	if remainingFraction.IsNegative() {
		remainingFraction = decimal.Zero
	}

	now := time.Now()
	for i := range splits {
		split := &splits[i]
		if split.Status == constants.SplitStatusSettled {
			logger.Warnw("refund_after_settlement",
				"payment_id", payment.ID,
				"split_id", split.ID,
				"seller_id", split.SellerID,
			)
			continue
		}
		if split.Status != constants.SplitStatusPending {
			continue
		}

		original, ok := originalBySeller[split.SellerID]
		if !ok {
			continue
		}
		newGross := original.Mul(remainingFraction).Round(2)
		if newGross.IsPositive() {
			amounts, err := ComputeSplit(newGross, payment.CommissionRate)
			if err != nil {
				return err
			}
			split.GrossAmount = models.NewMoneyFromDecimal(amounts.Gross)
			split.CommissionAmount = models.NewMoneyFromDecimal(amounts.Commission)
			split.NetAmount = models.NewMoneyFromDecimal(amounts.Net)
		} else {
			// 全额退款后分账清零并回冲
			split.GrossAmount = models.MoneyZero()
			split.CommissionAmount = models.MoneyZero()
			split.NetAmount = models.MoneyZero()
			split.Status = constants.SplitStatusReversed
		}
		split.UpdatedAt = now
		if err := tx.Save(split).Error; err != nil {
			return err
		}
	}
	return nil
}
