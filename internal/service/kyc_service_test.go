package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/kalakart-next/internal/constants"
	"github.com/kalakart-next/internal/gateway/sandbox"
	"github.com/kalakart-next/internal/models"
	"github.com/kalakart-next/internal/queue"
	"github.com/kalakart-next/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupKycServiceTest(t *testing.T) (*KycService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:kyc_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.SellerKyc{},
		&models.SellerLinkedAccount{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db

	queueClient, err := queue.NewClient(nil)
	if err != nil {
		t.Fatalf("new queue client failed: %v", err)
	}
	svc := NewKycService(
		repository.NewKycRepository(db),
		repository.NewLinkedAccountRepository(db),
		sandbox.New("test-secret"),
		queueClient,
	)
	return svc, db
}

func submitTestKyc(t *testing.T, svc *KycService, sellerID uint) *models.SellerKyc {
	t.Helper()
	kyc, err := svc.SubmitKyc(SubmitKycInput{
		SellerID:     sellerID,
		LegalName:    fmt.Sprintf("Seller %d", sellerID),
		BusinessType: constants.BusinessTypeIndividual,
		PanNumber:    "abcde1234f",
		Documents:    []string{"s3://kyc/pan.pdf"},
	})
	if err != nil {
		t.Fatalf("submit kyc failed: %v", err)
	}
	return kyc
}

func TestSubmitKycValidation(t *testing.T) {
	svc, _ := setupKycServiceTest(t)

	if _, err := svc.SubmitKyc(SubmitKycInput{
		SellerID:     21,
		LegalName:    "Seller",
		BusinessType: constants.BusinessTypeIndividual,
		PanNumber:    "INVALID",
	}); !errors.Is(err, ErrKycInvalidPan) {
		t.Fatalf("expected invalid pan, got: %v", err)
	}

	if _, err := svc.SubmitKyc(SubmitKycInput{
		SellerID:     21,
		LegalName:    "Seller",
		BusinessType: "llc",
		PanNumber:    "ABCDE1234F",
	}); !errors.Is(err, ErrKycInvalidInput) {
		t.Fatalf("expected invalid input, got: %v", err)
	}
}

func TestSubmitKycNormalizesAndDeduplicates(t *testing.T) {
	svc, _ := setupKycServiceTest(t)

	kyc := submitTestKyc(t, svc, 21)
	if kyc.PanNumber != "ABCDE1234F" {
		t.Fatalf("expected normalized pan, got %s", kyc.PanNumber)
	}
	if kyc.Status != constants.KycStatusPending {
		t.Fatalf("unexpected status: %s", kyc.Status)
	}

	if _, err := svc.SubmitKyc(SubmitKycInput{
		SellerID:     21,
		LegalName:    "Seller",
		BusinessType: constants.BusinessTypeIndividual,
		PanNumber:    "ABCDE1234F",
	}); !errors.Is(err, ErrKycAlreadySubmitted) {
		t.Fatalf("expected already submitted, got: %v", err)
	}
}

func TestSubmitKycRejectsDuplicatePan(t *testing.T) {
	svc, _ := setupKycServiceTest(t)

	if _, err := svc.SubmitKyc(SubmitKycInput{
		SellerID:     25,
		LegalName:    "Seller 25",
		BusinessType: constants.BusinessTypeIndividual,
		PanNumber:    "FGHIJ5678K",
	}); err != nil {
		t.Fatalf("submit kyc failed: %v", err)
	}

	// 其他卖家不可占用同一 PAN
	if _, err := svc.SubmitKyc(SubmitKycInput{
		SellerID:     26,
		LegalName:    "Seller 26",
		BusinessType: constants.BusinessTypeIndividual,
		PanNumber:    "fghij5678k",
	}); !errors.Is(err, ErrKycPanTaken) {
		t.Fatalf("expected pan taken, got: %v", err)
	}

	// 本人驳回后用同一 PAN 重新提交不受影响
	rejectKyc(t, svc, 25)
	if _, err := svc.SubmitKyc(SubmitKycInput{
		SellerID:     25,
		LegalName:    "Seller 25",
		BusinessType: constants.BusinessTypeIndividual,
		PanNumber:    "FGHIJ5678K",
	}); err != nil {
		t.Fatalf("resubmit with own pan failed: %v", err)
	}
}

func rejectKyc(t *testing.T, svc *KycService, sellerID uint) {
	t.Helper()
	kyc, err := svc.GetKycBySeller(sellerID)
	if err != nil {
		t.Fatalf("get kyc failed: %v", err)
	}
	if _, err := svc.ReviewKyc(context.Background(), ReviewKycInput{
		KycID:   kyc.ID,
		Approve: false,
		Reason:  "documents unreadable",
	}); err != nil {
		t.Fatalf("reject kyc failed: %v", err)
	}
}

func TestReviewKycApproveCreatesLinkedAccount(t *testing.T) {
	svc, _ := setupKycServiceTest(t)
	kyc := submitTestKyc(t, svc, 22)

	reviewed, err := svc.ReviewKyc(context.Background(), ReviewKycInput{
		KycID:      kyc.ID,
		Approve:    true,
		ReviewerID: 1,
	})
	if err != nil {
		t.Fatalf("review failed: %v", err)
	}
	if reviewed.Status != constants.KycStatusVerified {
		t.Fatalf("unexpected status: %s", reviewed.Status)
	}
	if reviewed.ReviewedAt == nil || reviewed.ReviewedBy == nil {
		t.Fatalf("expected review metadata to be set")
	}

	linked, err := svc.GetLinkedAccount(22)
	if err != nil {
		t.Fatalf("get linked account failed: %v", err)
	}
	if linked.GatewayContactID == "" || linked.Status != constants.LinkedAccountStatusCreated {
		t.Fatalf("unexpected linked account: %+v", linked)
	}

	// 已通过的资料重复审核返回专门错误
	if _, err := svc.ReviewKyc(context.Background(), ReviewKycInput{
		KycID:   kyc.ID,
		Approve: true,
	}); !errors.Is(err, ErrKycAlreadyVerified) {
		t.Fatalf("expected already verified, got: %v", err)
	}
}

func TestReviewKycRejectAllowsResubmit(t *testing.T) {
	svc, _ := setupKycServiceTest(t)
	kyc := submitTestKyc(t, svc, 23)

	if _, err := svc.ReviewKyc(context.Background(), ReviewKycInput{
		KycID:   kyc.ID,
		Approve: false,
	}); !errors.Is(err, ErrKycInvalidInput) {
		t.Fatalf("expected reject without reason to fail, got: %v", err)
	}

	rejected, err := svc.ReviewKyc(context.Background(), ReviewKycInput{
		KycID:   kyc.ID,
		Approve: false,
		Reason:  "documents unreadable",
	})
	if err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	if rejected.Status != constants.KycStatusRejected || rejected.RejectReason == "" {
		t.Fatalf("unexpected rejected kyc: %+v", rejected)
	}

	// 已驳回的资料不可再次审核
	if _, err := svc.ReviewKyc(context.Background(), ReviewKycInput{
		KycID:   kyc.ID,
		Approve: true,
	}); !errors.Is(err, ErrKycStatusInvalid) {
		t.Fatalf("expected status invalid, got: %v", err)
	}

	resubmitted := submitTestKyc(t, svc, 23)
	if resubmitted.ID == kyc.ID {
		t.Fatalf("expected new kyc record after resubmit")
	}
	if resubmitted.Status != constants.KycStatusPending {
		t.Fatalf("unexpected status: %s", resubmitted.Status)
	}
}

func TestEnsureLinkedAccountRequiresVerifiedKyc(t *testing.T) {
	svc, _ := setupKycServiceTest(t)
	submitTestKyc(t, svc, 24)

	if err := svc.EnsureLinkedAccount(context.Background(), 24); !errors.Is(err, ErrKycNotVerified) {
		t.Fatalf("expected kyc not verified, got: %v", err)
	}
}
