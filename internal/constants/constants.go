package constants

// 支付状态常量
const (
	PaymentStatusInitiated         = "initiated"
	PaymentStatusCaptured          = "captured"
	PaymentStatusFailed            = "failed"
	PaymentStatusRefunded          = "refunded"
	PaymentStatusPartiallyRefunded = "partially_refunded"
)

// 分账状态常量
const (
	SplitStatusPending  = "pending"
	SplitStatusSettled  = "settled"
	SplitStatusReversed = "reversed"
)

// 退款状态常量
const (
	RefundStatusProcessing = "processing"
	RefundStatusCompleted  = "completed"
	RefundStatusFailed     = "failed"
)

// KYC 状态常量
const (
	KycStatusPending  = "pending"
	KycStatusVerified = "verified"
	KycStatusRejected = "rejected"
)

// 商家类型常量
const (
	BusinessTypeIndividual     = "individual"
	BusinessTypeProprietorship = "proprietorship"
	BusinessTypePartnership    = "partnership"
	BusinessTypePrivateLimited = "private_limited"
)

// 银行账户校验状态常量
const (
	BankAccountStatusPending  = "pending"
	BankAccountStatusVerified = "verified"
	BankAccountStatusFailed   = "failed"
)

// 关联收款账户状态常量
const (
	LinkedAccountStatusCreated   = "created"
	LinkedAccountStatusActive    = "active"
	LinkedAccountStatusFailed    = "failed"
	LinkedAccountStatusSuspended = "suspended"
)

// 提现打款状态常量
const (
	PayoutStatusPending    = "pending"
	PayoutStatusProcessing = "processing"
	PayoutStatusCompleted  = "completed"
	PayoutStatusFailed     = "failed"
)

// 退款发起方常量
const (
	RefundInitiatorCustomer = "customer"
	RefundInitiatorSeller   = "seller"
	RefundInitiatorAdmin    = "admin"
)

// 队列名称常量
const (
	QueueDefault  = "default"
	QueueCritical = "critical"
)

// 异步任务类型常量
const (
	TaskStatusNotification = "notification:status"
	TaskLinkedAccountRetry = "seller:linked_account_retry"
)

// 通知事件类型常量
const (
	NotificationEventPaymentCaptured = "payment.captured"
	NotificationEventPaymentRefunded = "payment.refunded"
	NotificationEventKycDecided      = "kyc.decided"
	NotificationEventPayoutUpdated   = "payout.updated"
)

// 货币默认值
const (
	CurrencyDefault = "INR"
)

// 身份角色常量（JWT claims 中的 role 字段）
const (
	RoleCustomer = "customer"
	RoleSeller   = "seller"
	RoleAdmin    = "admin"
)
