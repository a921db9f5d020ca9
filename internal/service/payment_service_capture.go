package service

import (
	"context"
	"time"

	"github.com/kalakart-next/internal/constants"
	"github.com/kalakart-next/internal/gateway"
	"github.com/kalakart-next/internal/logger"
	"github.com/kalakart-next/internal/models"
	"github.com/kalakart-next/internal/queue"

	"gorm.io/gorm"
)

// VerifyAndCapture 校验回跳签名并捕获支付，重复回跳幂等返回。
// 签名不匹配只记录告警并拒绝请求，不改动支付记录，
// 合法回跳仍可在之后正常捕获。
func (s *PaymentService) VerifyAndCapture(ctx context.Context, input VerifyCaptureInput) (*models.Payment, error) {
	payment, err := s.paymentRepo.GetByGatewayOrderID(input.GatewayOrderID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}

	if !s.payGateway.VerifySignature(input.GatewayOrderID, input.GatewayPaymentID, input.Signature) {
		logger.Warnw("payment_signature_invalid",
			"payment_id", payment.ID,
			"gateway_order_id", input.GatewayOrderID,
		)
		return nil, ErrPaymentSignatureInvalid
	}

	// 在网关侧确认捕获，失败时支付保持待支付，等待下次回跳
	if payment.Status == constants.PaymentStatusInitiated {
		callCtx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
		captureErr := s.payGateway.Capture(callCtx, gateway.CaptureInput{
			GatewayPaymentID: input.GatewayPaymentID,
			Amount:           payment.Amount,
			Currency:         payment.Currency,
		})
		cancel()
		if captureErr != nil {
			logger.Errorw("gateway_capture_failed",
				"payment_id", payment.ID,
				"gateway_payment_id", input.GatewayPaymentID,
				"error", captureErr,
			)
			return nil, ErrGatewayUnavailable
		}
	}

	var captured *models.Payment
	alreadyCaptured := false
	err = s.paymentRepo.Transaction(func(tx *gorm.DB) error {
		row, err := s.paymentRepo.WithTx(tx).GetByIDForUpdate(payment.ID)
		if err != nil {
			return err
		}
		if row == nil {
			return ErrPaymentNotFound
		}

		// 重复回跳：同一网关支付流水直接幂等返回
		if row.Status == constants.PaymentStatusCaptured {
			if row.GatewayPaymentID == input.GatewayPaymentID {
				captured = row
				alreadyCaptured = true
				return nil
			}
			return ErrPaymentStatusInvalid
		}
		if row.Status != constants.PaymentStatusInitiated {
			return ErrPaymentStatusInvalid
		}

		now := time.Now()
		row.Status = constants.PaymentStatusCaptured
		row.GatewayPaymentID = input.GatewayPaymentID
		row.CompletedAt = &now
		if err := s.paymentRepo.WithTx(tx).Update(row); err != nil {
			return err
		}

		splits, err := s.buildSplits(row, now)
		if err != nil {
			return err
		}
		if err := s.splitRepo.WithTx(tx).CreateBatch(splits); err != nil {
			return err
		}

		captured = row
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !alreadyCaptured {
		logger.Infow("payment_captured",
			"payment_id", captured.ID,
			"order_id", captured.OrderID,
			"gateway_payment_id", captured.GatewayPaymentID,
		)
		if err := s.queueClient.EnqueueStatusNotification(queue.StatusNotificationPayload{
			Event:    constants.NotificationEventPaymentCaptured,
			EntityID: captured.ID,
			Status:   captured.Status,
		}); err != nil {
			logger.Warnw("notification_enqueue_failed", "payment_id", captured.ID, "error", err)
		}
	}
	return captured, nil
}

// SettleDueSplits 将冻结期已过的分账转为已结算
func (s *PaymentService) SettleDueSplits(now time.Time) (int64, error) {
	settled, err := s.splitRepo.MarkDueSettled(now, now)
	if err != nil {
		return 0, err
	}
	if settled > 0 {
		logger.Infow("splits_settled", "count", settled)
	}
	return settled, nil
}

func (s *PaymentService) buildSplits(payment *models.Payment, now time.Time) ([]models.PaymentSplit, error) {
	shares, err := decodeShares(payment.SellerShares)
	if err != nil {
		return nil, err
	}
	settleAt := now.Add(s.settlementHold)
	splits := make([]models.PaymentSplit, 0, len(shares))
	for _, share := range shares {
		amounts, err := ComputeSplit(share.Amount.Decimal, payment.CommissionRate)
		if err != nil {
			return nil, err
		}
		splits = append(splits, models.PaymentSplit{
			PaymentID:        payment.ID,
			SellerID:         share.SellerID,
			GrossAmount:      models.NewMoneyFromDecimal(amounts.Gross),
			CommissionAmount: models.NewMoneyFromDecimal(amounts.Commission),
			NetAmount:        models.NewMoneyFromDecimal(amounts.Net),
			Status:           constants.SplitStatusPending,
			SettleAt:         settleAt,
		})
	}
	return splits, nil
}
