package worker

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/kalakart-next/internal/logger"
	"github.com/kalakart-next/internal/provider"
	"github.com/kalakart-next/internal/queue"
	"github.com/kalakart-next/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskStatusNotification, c.handleStatusNotification)
	mux.HandleFunc(queue.TaskLinkedAccountRetry, c.handleLinkedAccountRetry)
}

// handleStatusNotification 投递状态变更通知
// 当前实现以结构化日志落地，后续对接站内信或 webhook 时在此分发。
func (c *Consumer) handleStatusNotification(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_status_notification_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.StatusNotificationPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_status_notification_unmarshal_failed", "error", err)
		return err
	}
	if payload.EntityID == 0 || payload.Event == "" {
		logger.Debugw("worker_status_notification_skip_invalid_payload",
			"event", payload.Event,
			"entity_id", payload.EntityID,
		)
		return nil
	}
	logger.Infow("status_notification",
		"event", payload.Event,
		"entity_id", payload.EntityID,
		"seller_id", payload.SellerID,
		"status", payload.Status,
	)
	return nil
}

// handleLinkedAccountRetry 重试创建卖家关联账户并同步收款账户
func (c *Consumer) handleLinkedAccountRetry(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_linked_account_retry_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.LinkedAccountRetryPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_linked_account_retry_unmarshal_failed", "error", err)
		return err
	}
	if payload.SellerID == 0 {
		logger.Debugw("worker_linked_account_retry_skip_invalid_payload", "seller_id", payload.SellerID)
		return nil
	}
	if c.KycService == nil {
		logger.Warnw("worker_linked_account_retry_skip_kyc_service_nil", "seller_id", payload.SellerID)
		return nil
	}

	if err := c.KycService.EnsureLinkedAccount(ctx, payload.SellerID); err != nil {
		switch {
		case errors.Is(err, service.ErrKycNotFound):
			logger.Debugw("worker_linked_account_retry_skip_kyc_not_found", "seller_id", payload.SellerID)
			return nil
		case errors.Is(err, service.ErrKycNotVerified):
			logger.Debugw("worker_linked_account_retry_skip_kyc_not_verified", "seller_id", payload.SellerID)
			return nil
		default:
			logger.Warnw("worker_linked_account_retry_ensure_failed", "seller_id", payload.SellerID, "error", err)
			return err
		}
	}

	if c.BankAccountService == nil {
		logger.Warnw("worker_linked_account_retry_skip_bank_service_nil", "seller_id", payload.SellerID)
		return nil
	}
	if err := c.BankAccountService.ResyncPrimaryFundAccount(ctx, payload.SellerID); err != nil {
		switch {
		case errors.Is(err, service.ErrBankAccountNotFound):
			logger.Debugw("worker_linked_account_retry_skip_no_primary_account", "seller_id", payload.SellerID)
			return nil
		case errors.Is(err, service.ErrLinkedAccountNotFound):
			logger.Debugw("worker_linked_account_retry_skip_linked_account_missing", "seller_id", payload.SellerID)
			return nil
		default:
			logger.Warnw("worker_linked_account_retry_resync_failed", "seller_id", payload.SellerID, "error", err)
			return err
		}
	}
	return nil
}
