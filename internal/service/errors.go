package service

import "errors"

// 支付相关错误
var (
	ErrPaymentInvalid          = errors.New("payment parameters invalid")
	ErrPaymentNotFound         = errors.New("payment not found")
	ErrPaymentStatusInvalid    = errors.New("payment status invalid for operation")
	ErrPaymentSignatureInvalid = errors.New("payment signature verification failed")
	ErrPaymentSharesMismatch   = errors.New("seller shares do not sum to payment amount")
	ErrIdempotencyConflict     = errors.New("idempotency key reused with different parameters")
	ErrGatewayUnavailable      = errors.New("payment gateway unavailable")
)

// 分账金额拆解相关错误
var (
	ErrSplitInvalidGross = errors.New("split gross amount must be positive")
	ErrSplitInvalidRate  = errors.New("commission rate out of range")
)

// 退款相关错误
var (
	ErrRefundNotFound       = errors.New("refund not found")
	ErrRefundInvalidAmount  = errors.New("refund amount invalid")
	ErrRefundExceedsBalance = errors.New("refund amount exceeds refundable balance")
	ErrRefundInProgress     = errors.New("another refund is already processing")
)

// 卖家实名相关错误
var (
	ErrKycNotFound         = errors.New("seller kyc not found")
	ErrKycAlreadySubmitted = errors.New("seller kyc already submitted")
	ErrKycInvalidPan       = errors.New("pan number format invalid")
	ErrKycInvalidInput     = errors.New("kyc parameters invalid")
	ErrKycNotVerified      = errors.New("seller kyc not verified")
	ErrKycStatusInvalid    = errors.New("kyc status invalid for operation")
	ErrKycAlreadyVerified  = errors.New("seller kyc already verified")
	ErrKycPanTaken         = errors.New("pan number already registered by another seller")
)

// 银行账户相关错误
var (
	ErrBankAccountNotFound      = errors.New("bank account not found")
	ErrBankAccountInvalidIfsc   = errors.New("ifsc code format invalid")
	ErrBankAccountInvalidInput  = errors.New("bank account parameters invalid")
	ErrBankAccountNotVerified   = errors.New("bank account not verified")
	ErrBankAccountInactive      = errors.New("bank account inactive")
	ErrBankAccountPrimaryLocked = errors.New("primary bank account cannot be deactivated")
	ErrBankAccountDuplicate     = errors.New("bank account already registered")
)

// 关联账户相关错误
var (
	ErrLinkedAccountNotFound  = errors.New("linked account not found")
	ErrLinkedAccountNotActive = errors.New("linked account not active")
)

// 提现打款相关错误
var (
	ErrPayoutNotFound            = errors.New("payout not found")
	ErrPayoutInvalidAmount       = errors.New("payout amount invalid")
	ErrPayoutBelowMinimum        = errors.New("payout amount below minimum")
	ErrPayoutInsufficientBalance = errors.New("insufficient settled balance for payout")
	ErrPayoutStatusInvalid       = errors.New("payout status invalid for operation")
	ErrPayoutLockBusy            = errors.New("another payout request is in progress")
)
