package queue

import (
	"encoding/json"

	"github.com/kalakart-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskStatusNotification 状态变更通知任务
	TaskStatusNotification = constants.TaskStatusNotification
	// TaskLinkedAccountRetry 关联账户重建任务
	TaskLinkedAccountRetry = constants.TaskLinkedAccountRetry
)

// StatusNotificationPayload 状态变更通知任务载荷
type StatusNotificationPayload struct {
	Event    string `json:"event"`
	EntityID uint   `json:"entity_id"`
	SellerID uint   `json:"seller_id,omitempty"`
	Status   string `json:"status"`
}

// LinkedAccountRetryPayload 关联账户重建任务载荷
type LinkedAccountRetryPayload struct {
	SellerID uint `json:"seller_id"`
}

// NewStatusNotificationTask 创建状态变更通知任务
func NewStatusNotificationTask(payload StatusNotificationPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStatusNotification, body), nil
}

// NewLinkedAccountRetryTask 创建关联账户重建任务
func NewLinkedAccountRetryTask(payload LinkedAccountRetryPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLinkedAccountRetry, body), nil
}
