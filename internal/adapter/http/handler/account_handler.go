package handler

import (
	"ephemeral-account-service/internal/adapter/http/dto"
	"ephemeral-account-service/internal/core/ports"
	"ephemeral-account-service/pkg/apperror"
	"ephemeral-account-service/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AccountHandler handles the escrow account lifecycle and query endpoints.
type AccountHandler struct {
	accountSvc ports.AccountService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountSvc ports.AccountService) *AccountHandler {
	return &AccountHandler{accountSvc: accountSvc}
}

// Initialize handles POST /api/v1/accounts.
func (h *AccountHandler) Initialize(c *gin.Context) {
	var req dto.InitializeAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	accountID, err := uuid.Parse(req.AccountID)
	if err != nil {
		response.Error(c, apperror.Validation("account_id must be a UUID"))
		return
	}
	expiresAt, err := req.ParseExpiresAt()
	if err != nil {
		response.Error(c, apperror.Validation("expires_at must be RFC3339"))
		return
	}

	account, err := h.accountSvc.Initialize(c.Request.Context(), ports.InitializeRequest{
		AccountID:        accountID,
		Creator:          req.Creator,
		RecoveryAddress:  req.RecoveryAddress,
		SweepDestination: req.SweepDestination,
		ExpiresAt:        expiresAt,
		Proof:            req.Proof,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.NewAccountResponse(account))
}

// RecordPayment handles POST /api/v1/accounts/:id/payment.
func (h *AccountHandler) RecordPayment(c *gin.Context) {
	accountID, ok := h.accountID(c)
	if !ok {
		return
	}

	var req dto.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	account, err := h.accountSvc.RecordPayment(c.Request.Context(), ports.RecordPaymentRequest{
		AccountID: accountID,
		Amount:    req.Amount,
		Asset:     req.Asset,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewAccountResponse(account))
}

// Sweep handles POST /api/v1/accounts/:id/sweep.
func (h *AccountHandler) Sweep(c *gin.Context) {
	accountID, ok := h.accountID(c)
	if !ok {
		return
	}

	var req dto.SweepAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	account, err := h.accountSvc.Sweep(c.Request.Context(), ports.SweepRequest{
		AccountID:   accountID,
		Destination: req.Destination,
		Proof:       req.Proof,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewAccountResponse(account))
}

// Expire handles POST /api/v1/accounts/:id/expire. Public by design: the
// funds can only move to an identity fixed at initialization.
func (h *AccountHandler) Expire(c *gin.Context) {
	accountID, ok := h.accountID(c)
	if !ok {
		return
	}

	result, err := h.accountSvc.Expire(c.Request.Context(), accountID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.ExpireResponse{
		AccountID:   result.Account.ID.String(),
		Status:      string(result.Account.Status),
		Destination: result.Destination,
		Amount:      result.Amount,
	})
}

// ReclaimReserve handles POST /api/v1/accounts/:id/reserve/reclaim. Public
// for the same reason as Expire.
func (h *AccountHandler) ReclaimReserve(c *gin.Context) {
	accountID, ok := h.accountID(c)
	if !ok {
		return
	}

	claim, err := h.accountSvc.ReclaimReserve(c.Request.Context(), accountID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.ReserveClaimResponse{
		AccountID:        accountID.String(),
		Destination:      claim.Destination,
		Amount:           claim.Amount,
		SweepID:          claim.SweepID,
		FullyReclaimed:   claim.FullyReclaimed,
		RemainingReserve: claim.RemainingReserve,
	})
}

// GetStatus handles GET /api/v1/accounts/:id/status.
func (h *AccountHandler) GetStatus(c *gin.Context) {
	accountID, ok := h.accountID(c)
	if !ok {
		return
	}

	status, err := h.accountSvc.GetStatus(c.Request.Context(), accountID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.StatusResponse{
		AccountID: accountID.String(),
		Status:    string(status),
	})
}

// GetInfo handles GET /api/v1/accounts/:id.
func (h *AccountHandler) GetInfo(c *gin.Context) {
	accountID, ok := h.accountID(c)
	if !ok {
		return
	}

	account, err := h.accountSvc.GetInfo(c.Request.Context(), accountID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewAccountResponse(account))
}

// IsExpired handles GET /api/v1/accounts/:id/expired.
func (h *AccountHandler) IsExpired(c *gin.Context) {
	accountID, ok := h.accountID(c)
	if !ok {
		return
	}

	expired, err := h.accountSvc.IsExpired(c.Request.Context(), accountID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.ExpiredResponse{
		AccountID: accountID.String(),
		Expired:   expired,
	})
}

// GetReserve handles GET /api/v1/accounts/:id/reserve.
func (h *AccountHandler) GetReserve(c *gin.Context) {
	accountID, ok := h.accountID(c)
	if !ok {
		return
	}

	info, err := h.accountSvc.GetReserve(c.Request.Context(), accountID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, info)
}

// ListEvents handles GET /api/v1/accounts/:id/events.
func (h *AccountHandler) ListEvents(c *gin.Context) {
	accountID, ok := h.accountID(c)
	if !ok {
		return
	}

	events, err := h.accountSvc.ListEvents(c.Request.Context(), accountID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewEventResponses(events))
}

// accountID parses the :id path parameter, writing the error response on
// failure.
func (h *AccountHandler) accountID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("account id must be a UUID"))
		return uuid.Nil, false
	}
	return id, true
}
