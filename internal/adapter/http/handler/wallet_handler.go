package handler

import (
	"time"

	"card-auction-engine/internal/adapter/http/dto"
	"card-auction-engine/internal/core/domain"
	"card-auction-engine/internal/core/ports"
	"card-auction-engine/pkg/apperror"
	"card-auction-engine/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// WalletHandler handles wallet-related endpoints.
type WalletHandler struct {
	ledger ports.Ledger
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(ledger ports.Ledger) *WalletHandler {
	return &WalletHandler{ledger: ledger}
}

// GetBalance handles GET /api/v1/wallet.
func (h *WalletHandler) GetBalance(c *gin.Context) {
	id, ok := accountID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	balance, err := h.ledger.Balance(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.BalanceResponse{AccountID: id.String(), Balance: balance})
}

// ListTransactions handles GET /api/v1/wallet/transactions.
func (h *WalletHandler) ListTransactions(c *gin.Context) {
	id, ok := accountID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	page, pageSize := parsePagination(c)
	txns, total, err := h.ledger.History(c.Request.Context(), id, page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.TransactionResponse, 0, len(txns))
	for i := range txns {
		items = append(items, toTransactionResponse(&txns[i]))
	}
	response.OK(c, dto.TransactionListResponse{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages(total, pageSize),
	})
}

// Adjust handles POST /api/v1/wallet/adjust (admin only).
func (h *WalletHandler) Adjust(c *gin.Context) {
	var req dto.AdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	targetID, err := uuid.Parse(req.AccountID)
	if err != nil {
		response.Error(c, apperror.Validation("invalid account_id"))
		return
	}

	txn, err := h.ledger.AdminAdjust(c.Request.Context(), targetID, req.Amount, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toTransactionResponse(txn))
}

// toTransactionResponse converts domain.Transaction to DTO.
func toTransactionResponse(t *domain.Transaction) dto.TransactionResponse {
	return dto.TransactionResponse{
		ID:           t.ID.String(),
		AccountID:    t.AccountID.String(),
		Amount:       t.Amount,
		BalanceAfter: t.BalanceAfter,
		Type:         string(t.Type),
		Source:       t.Source,
		CreatedAt:    t.CreatedAt.Format(time.RFC3339),
	}
}
