package seller

import (
	"errors"
	"strconv"

	"github.com/kalakart-next/internal/http/response"
	"github.com/kalakart-next/internal/service"

	"github.com/gin-gonic/gin"
)

// AddBankAccountRequest 添加银行账户请求
type AddBankAccountRequest struct {
	HolderName    string `json:"holder_name" binding:"required"`
	AccountNumber string `json:"account_number" binding:"required"`
	IfscCode      string `json:"ifsc_code" binding:"required"`
	MakePrimary   bool   `json:"make_primary"`
}

// AddBankAccount 添加银行账户
func (h *Handler) AddBankAccount(c *gin.Context) {
	sellerID, ok := getSellerID(c)
	if !ok {
		return
	}

	var req AddBankAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	account, err := h.BankAccountService.AddBankAccount(c.Request.Context(), service.AddBankAccountInput{
		SellerID:      sellerID,
		HolderName:    req.HolderName,
		AccountNumber: req.AccountNumber,
		IfscCode:      req.IfscCode,
		MakePrimary:   req.MakePrimary,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBankAccountInvalidIfsc):
			respondError(c, response.CodeBadRequest, "error.bank_account_ifsc_invalid", nil)
		case errors.Is(err, service.ErrBankAccountInvalidInput):
			respondError(c, response.CodeBadRequest, "error.bank_account_invalid", nil)
		case errors.Is(err, service.ErrKycNotVerified):
			respondError(c, response.CodeBadRequest, "error.seller_kyc_not_verified", nil)
		case errors.Is(err, service.ErrBankAccountDuplicate):
			respondError(c, response.CodeConflict, "error.bank_account_duplicate", nil)
		default:
			respondError(c, response.CodeInternal, "error.bank_account_add_failed", err)
		}
		return
	}
	response.Success(c, account)
}

// ListBankAccounts 查询本人银行账户列表
func (h *Handler) ListBankAccounts(c *gin.Context) {
	sellerID, ok := getSellerID(c)
	if !ok {
		return
	}
	accounts, err := h.BankAccountService.ListBankAccounts(sellerID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.bank_account_list_failed", err)
		return
	}
	response.Success(c, accounts)
}

// SetPrimaryBankAccount 切换主银行账户
func (h *Handler) SetPrimaryBankAccount(c *gin.Context) {
	sellerID, ok := getSellerID(c)
	if !ok {
		return
	}
	accountID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || accountID == 0 {
		respondError(c, response.CodeBadRequest, "error.bank_account_invalid", nil)
		return
	}

	account, err := h.BankAccountService.SetPrimaryBankAccount(c.Request.Context(), sellerID, uint(accountID))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBankAccountNotFound):
			respondError(c, response.CodeNotFound, "error.bank_account_not_found", nil)
		case errors.Is(err, service.ErrBankAccountInactive):
			respondError(c, response.CodeBadRequest, "error.bank_account_inactive", nil)
		default:
			respondError(c, response.CodeInternal, "error.bank_account_update_failed", err)
		}
		return
	}
	response.Success(c, account)
}

// DeactivateBankAccount 停用银行账户
func (h *Handler) DeactivateBankAccount(c *gin.Context) {
	sellerID, ok := getSellerID(c)
	if !ok {
		return
	}
	accountID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || accountID == 0 {
		respondError(c, response.CodeBadRequest, "error.bank_account_invalid", nil)
		return
	}

	account, err := h.BankAccountService.DeactivateBankAccount(sellerID, uint(accountID))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBankAccountNotFound):
			respondError(c, response.CodeNotFound, "error.bank_account_not_found", nil)
		case errors.Is(err, service.ErrBankAccountPrimaryLocked):
			respondError(c, response.CodeBadRequest, "error.bank_account_primary_locked", nil)
		default:
			respondError(c, response.CodeInternal, "error.bank_account_update_failed", err)
		}
		return
	}
	response.Success(c, account)
}
