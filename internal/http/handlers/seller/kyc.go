package seller

import (
	"errors"

	"github.com/kalakart-next/internal/http/response"
	"github.com/kalakart-next/internal/service"

	"github.com/gin-gonic/gin"
)

// SubmitKycRequest 提交实名资料请求
type SubmitKycRequest struct {
	LegalName    string   `json:"legal_name" binding:"required"`
	BusinessType string   `json:"business_type" binding:"required"`
	PanNumber    string   `json:"pan_number" binding:"required"`
	GstNumber    string   `json:"gst_number"`
	Documents    []string `json:"documents"`
}

// SubmitKyc 提交实名资料
func (h *Handler) SubmitKyc(c *gin.Context) {
	sellerID, ok := getSellerID(c)
	if !ok {
		return
	}

	var req SubmitKycRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	kyc, err := h.KycService.SubmitKyc(service.SubmitKycInput{
		SellerID:     sellerID,
		LegalName:    req.LegalName,
		BusinessType: req.BusinessType,
		PanNumber:    req.PanNumber,
		GstNumber:    req.GstNumber,
		Documents:    req.Documents,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrKycInvalidPan):
			respondError(c, response.CodeBadRequest, "error.kyc_pan_invalid", nil)
		case errors.Is(err, service.ErrKycInvalidInput):
			respondError(c, response.CodeBadRequest, "error.kyc_invalid", nil)
		case errors.Is(err, service.ErrKycAlreadySubmitted):
			respondError(c, response.CodeConflict, "error.kyc_already_submitted", nil)
		case errors.Is(err, service.ErrKycPanTaken):
			respondError(c, response.CodeConflict, "error.kyc_pan_taken", nil)
		default:
			respondError(c, response.CodeInternal, "error.kyc_submit_failed", err)
		}
		return
	}
	response.Success(c, kyc)
}

// GetMyKyc 查询本人实名资料
func (h *Handler) GetMyKyc(c *gin.Context) {
	sellerID, ok := getSellerID(c)
	if !ok {
		return
	}
	kyc, err := h.KycService.GetKycBySeller(sellerID)
	if err != nil {
		if errors.Is(err, service.ErrKycNotFound) {
			respondError(c, response.CodeNotFound, "error.kyc_not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.kyc_fetch_failed", err)
		return
	}
	response.Success(c, kyc)
}

// GetMyLinkedAccount 查询本人网关关联账户
func (h *Handler) GetMyLinkedAccount(c *gin.Context) {
	sellerID, ok := getSellerID(c)
	if !ok {
		return
	}
	linked, err := h.KycService.GetLinkedAccount(sellerID)
	if err != nil {
		if errors.Is(err, service.ErrLinkedAccountNotFound) {
			respondError(c, response.CodeNotFound, "error.linked_account_not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.linked_account_fetch_failed", err)
		return
	}
	response.Success(c, linked)
}
