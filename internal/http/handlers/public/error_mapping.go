package public

import (
	"errors"

	"github.com/kalakart-next/internal/http/response"
	"github.com/kalakart-next/internal/service"

	"github.com/gin-gonic/gin"
)

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
type mappedHandlerError struct {
	target error
	code   int
	key    string
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackKey string) {
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			respondError(c, rule.code, rule.key, nil)
			return
		}
	}
	respondError(c, fallbackCode, fallbackKey, err)
}

var paymentCreateErrorRules = []mappedHandlerError{
	{target: service.ErrPaymentInvalid, code: response.CodeBadRequest, key: "error.payment_invalid"},
	{target: service.ErrPaymentSharesMismatch, code: response.CodeBadRequest, key: "error.payment_shares_mismatch"},
	{target: service.ErrKycNotVerified, code: response.CodeBadRequest, key: "error.seller_kyc_not_verified"},
	{target: service.ErrIdempotencyConflict, code: response.CodeConflict, key: "error.idempotency_conflict"},
	{target: service.ErrGatewayUnavailable, code: response.CodeGatewayError, key: "error.payment_gateway_unavailable"},
}

var paymentCallbackErrorRules = []mappedHandlerError{
	{target: service.ErrPaymentNotFound, code: response.CodeNotFound, key: "error.payment_not_found"},
	{target: service.ErrPaymentSignatureInvalid, code: response.CodeBadRequest, key: "error.payment_signature_invalid"},
	{target: service.ErrPaymentStatusInvalid, code: response.CodeBadRequest, key: "error.payment_status_invalid"},
	{target: service.ErrGatewayUnavailable, code: response.CodeGatewayError, key: "error.payment_gateway_unavailable"},
}

var paymentRetryErrorRules = []mappedHandlerError{
	{target: service.ErrPaymentNotFound, code: response.CodeNotFound, key: "error.payment_not_found"},
	{target: service.ErrPaymentStatusInvalid, code: response.CodeBadRequest, key: "error.payment_status_invalid"},
	{target: service.ErrGatewayUnavailable, code: response.CodeGatewayError, key: "error.payment_gateway_unavailable"},
}

func respondPaymentCreateError(c *gin.Context, err error) {
	respondWithMappedError(c, err, paymentCreateErrorRules, response.CodeInternal, "error.payment_create_failed")
}

func respondPaymentCallbackError(c *gin.Context, err error) {
	respondWithMappedError(c, err, paymentCallbackErrorRules, response.CodeInternal, "error.payment_callback_failed")
}

func respondPaymentRetryError(c *gin.Context, err error) {
	respondWithMappedError(c, err, paymentRetryErrorRules, response.CodeInternal, "error.payment_retry_failed")
}
