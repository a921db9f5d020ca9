package service

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/kalakart-next/internal/constants"
	"github.com/kalakart-next/internal/gateway"
	"github.com/kalakart-next/internal/logger"
	"github.com/kalakart-next/internal/models"
	"github.com/kalakart-next/internal/queue"
	"github.com/kalakart-next/internal/repository"
)

var (
	panPattern = regexp.MustCompile(`^[A-Z]{5}[0-9]{4}[A-Z]$`)
	gstPattern = regexp.MustCompile(`^[0-9]{2}[A-Z]{5}[0-9]{4}[A-Z][0-9A-Z]{3}$`)
)

// KycService 卖家实名审核服务
type KycService struct {
	kycRepo       repository.KycRepository
	linkedRepo    repository.LinkedAccountRepository
	payoutGateway gateway.PayoutGateway
	queueClient   *queue.Client

	gatewayTimeout time.Duration
	retryDelay     time.Duration
}

// SubmitKycInput 提交实名资料入参
type SubmitKycInput struct {
	SellerID     uint
	LegalName    string
	BusinessType string
	PanNumber    string
	GstNumber    string
	Documents    []string
}

// ReviewKycInput 审核实名资料入参
type ReviewKycInput struct {
	KycID      uint
	Approve    bool
	Reason     string
	ReviewerID uint
}

// NewKycService 创建实名审核服务
func NewKycService(
	kycRepo repository.KycRepository,
	linkedRepo repository.LinkedAccountRepository,
	payoutGateway gateway.PayoutGateway,
	queueClient *queue.Client,
) *KycService {
	return &KycService{
		kycRepo:        kycRepo,
		linkedRepo:     linkedRepo,
		payoutGateway:  payoutGateway,
		queueClient:    queueClient,
		gatewayTimeout: defaultGatewayTimeout,
		retryDelay:     5 * time.Minute,
	}
}

// SubmitKyc 提交实名资料，驳回后可重新提交
func (s *KycService) SubmitKyc(input SubmitKycInput) (*models.SellerKyc, error) {
	if input.SellerID == 0 {
		return nil, ErrKycInvalidInput
	}
	legalName := strings.TrimSpace(input.LegalName)
	if legalName == "" {
		return nil, ErrKycInvalidInput
	}
	businessType := strings.TrimSpace(input.BusinessType)
	switch businessType {
	case constants.BusinessTypeIndividual,
		constants.BusinessTypeProprietorship,
		constants.BusinessTypePartnership,
		constants.BusinessTypePrivateLimited:
	default:
		return nil, ErrKycInvalidInput
	}
	pan := strings.ToUpper(strings.TrimSpace(input.PanNumber))
	if !panPattern.MatchString(pan) {
		return nil, ErrKycInvalidPan
	}
	gst := strings.ToUpper(strings.TrimSpace(input.GstNumber))
	if gst != "" && !gstPattern.MatchString(gst) {
		return nil, ErrKycInvalidInput
	}

	// 同一 PAN 不允许被多个卖家占用
	taken, err := s.kycRepo.GetByPan(pan, input.SellerID)
	if err != nil {
		return nil, err
	}
	if taken != nil {
		return nil, ErrKycPanTaken
	}

	existing, err := s.kycRepo.GetBySellerID(input.SellerID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.Status != constants.KycStatusRejected {
			return nil, ErrKycAlreadySubmitted
		}
		if err := s.kycRepo.DeleteBySellerID(input.SellerID); err != nil {
			return nil, err
		}
	}

	kyc := &models.SellerKyc{
		SellerID:     input.SellerID,
		LegalName:    legalName,
		BusinessType: businessType,
		PanNumber:    pan,
		GstNumber:    gst,
		Documents:    models.StringArray(input.Documents),
		Status:       constants.KycStatusPending,
	}
	if err := s.kycRepo.Create(kyc); err != nil {
		return nil, err
	}
	logger.Infow("kyc_submitted", "seller_id", kyc.SellerID, "kyc_id", kyc.ID)
	return kyc, nil
}

// ReviewKyc 审核实名资料，通过后创建网关关联账户
func (s *KycService) ReviewKyc(ctx context.Context, input ReviewKycInput) (*models.SellerKyc, error) {
	kyc, err := s.kycRepo.GetByID(input.KycID)
	if err != nil {
		return nil, err
	}
	if kyc == nil {
		return nil, ErrKycNotFound
	}
	if kyc.Status == constants.KycStatusVerified {
		return nil, ErrKycAlreadyVerified
	}
	if kyc.Status != constants.KycStatusPending {
		return nil, ErrKycStatusInvalid
	}

	now := time.Now()
	kyc.ReviewedAt = &now
	if input.ReviewerID != 0 {
		kyc.ReviewedBy = &input.ReviewerID
	}
	if input.Approve {
		kyc.Status = constants.KycStatusVerified
		kyc.RejectReason = ""
	} else {
		reason := strings.TrimSpace(input.Reason)
		if reason == "" {
			return nil, ErrKycInvalidInput
		}
		kyc.Status = constants.KycStatusRejected
		kyc.RejectReason = reason
	}
	if err := s.kycRepo.Update(kyc); err != nil {
		return nil, err
	}
	logger.Infow("kyc_reviewed",
		"kyc_id", kyc.ID,
		"seller_id", kyc.SellerID,
		"status", kyc.Status,
	)

	// 审核通过后创建网关联系人，失败不阻断审核结果
	if kyc.Status == constants.KycStatusVerified {
		if err := s.EnsureLinkedAccount(ctx, kyc.SellerID); err != nil {
			logger.Warnw("linked_account_create_deferred",
				"seller_id", kyc.SellerID,
				"error", err,
			)
			if enqueueErr := s.queueClient.EnqueueLinkedAccountRetry(queue.LinkedAccountRetryPayload{
				SellerID: kyc.SellerID,
			}, s.retryDelay); enqueueErr != nil {
				logger.Warnw("linked_account_retry_enqueue_failed",
					"seller_id", kyc.SellerID,
					"error", enqueueErr,
				)
			}
		}
	}

	if err := s.queueClient.EnqueueStatusNotification(queue.StatusNotificationPayload{
		Event:    constants.NotificationEventKycDecided,
		EntityID: kyc.ID,
		SellerID: kyc.SellerID,
		Status:   kyc.Status,
	}); err != nil {
		logger.Warnw("notification_enqueue_failed", "kyc_id", kyc.ID, "error", err)
	}
	return kyc, nil
}

// EnsureLinkedAccount 确保卖家存在可用的网关关联账户
func (s *KycService) EnsureLinkedAccount(ctx context.Context, sellerID uint) error {
	kyc, err := s.kycRepo.GetBySellerID(sellerID)
	if err != nil {
		return err
	}
	if kyc == nil || kyc.Status != constants.KycStatusVerified {
		return ErrKycNotVerified
	}

	linked, err := s.linkedRepo.GetBySellerID(sellerID)
	if err != nil {
		return err
	}
	if linked != nil && linked.GatewayContactID != "" {
		return nil
	}

	callCtx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()
	contactID, gatewayErr := s.payoutGateway.CreateContact(callCtx, gateway.ContactInput{
		SellerID:  sellerID,
		LegalName: kyc.LegalName,
	})

	if linked == nil {
		linked = &models.SellerLinkedAccount{SellerID: sellerID}
	}
	if gatewayErr != nil {
		linked.Status = constants.LinkedAccountStatusFailed
		linked.FailureReason = gatewayErr.Error()
		if linked.ID == 0 {
			if err := s.linkedRepo.Create(linked); err != nil {
				return err
			}
		} else if err := s.linkedRepo.Update(linked); err != nil {
			return err
		}
		return gatewayErr
	}

	linked.GatewayContactID = contactID
	linked.Status = constants.LinkedAccountStatusCreated
	linked.FailureReason = ""
	if linked.ID == 0 {
		if err := s.linkedRepo.Create(linked); err != nil {
			return err
		}
	} else if err := s.linkedRepo.Update(linked); err != nil {
		return err
	}
	logger.Infow("linked_account_contact_created",
		"seller_id", sellerID,
		"gateway_contact_id", contactID,
	)
	return nil
}

// GetKycBySeller 查询卖家实名资料
func (s *KycService) GetKycBySeller(sellerID uint) (*models.SellerKyc, error) {
	kyc, err := s.kycRepo.GetBySellerID(sellerID)
	if err != nil {
		return nil, err
	}
	if kyc == nil {
		return nil, ErrKycNotFound
	}
	return kyc, nil
}

// ListKyc 查询实名审核列表
func (s *KycService) ListKyc(filter repository.KycListFilter) ([]models.SellerKyc, int64, error) {
	return s.kycRepo.List(filter)
}

// GetLinkedAccount 查询卖家关联账户
func (s *KycService) GetLinkedAccount(sellerID uint) (*models.SellerLinkedAccount, error) {
	linked, err := s.linkedRepo.GetBySellerID(sellerID)
	if err != nil {
		return nil, err
	}
	if linked == nil {
		return nil, ErrLinkedAccountNotFound
	}
	return linked, nil
}
