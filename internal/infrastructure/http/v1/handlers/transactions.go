package handlers

import (
	"github.com/gin-gonic/gin"

	"bizledger/internal/domain/transactions"
	"bizledger/internal/infrastructure/http/v1/dto"
)

// TransactionHandler handles HTTP requests for sales and purchases.
type TransactionHandler struct {
	*BaseHandler
	service *transactions.Service
}

// NewTransactionHandler creates a new transaction handler.
func NewTransactionHandler(base *BaseHandler, service *transactions.Service) *TransactionHandler {
	return &TransactionHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Create handles POST /transactions
func (h *TransactionHandler) Create(c *gin.Context) {
	var req dto.CreateTransactionRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.service.CreateTransaction(c.Request.Context(), req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, result)
}

// List handles GET /transactions
func (h *TransactionHandler) List(c *gin.Context) {
	filter, ok := h.BindList(c)
	if !ok {
		return
	}

	result, err := h.service.ListTransactions(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, result)
}

// Get handles GET /transactions/:id
func (h *TransactionHandler) Get(c *gin.Context) {
	txID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	tx, err := h.service.GetTransaction(c.Request.Context(), txID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, tx)
}

// UpdateItems handles PUT /transactions/:id/items
func (h *TransactionHandler) UpdateItems(c *gin.Context) {
	txID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateItemsRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.service.UpdateItems(c.Request.Context(), txID, dto.ItemInputs(req.Items))
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, result)
}

// Delete handles DELETE /transactions/:id
// Responds 200 with the stock rollback outcome rather than 204.
func (h *TransactionHandler) Delete(c *gin.Context) {
	txID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	result, err := h.service.DeleteTransaction(c.Request.Context(), txID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, result)
}
