package handlers

import (
	"github.com/gin-gonic/gin"

	"bizledger/internal/domain/investments"
	"bizledger/internal/infrastructure/http/v1/dto"
)

// InvestmentHandler handles HTTP requests for investments and their returns.
type InvestmentHandler struct {
	*BaseHandler
	service *investments.Service
}

// NewInvestmentHandler creates a new investment handler.
func NewInvestmentHandler(base *BaseHandler, service *investments.Service) *InvestmentHandler {
	return &InvestmentHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Create handles POST /investments
func (h *InvestmentHandler) Create(c *gin.Context) {
	var req dto.CreateInvestmentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	inv, err := h.service.CreateInvestment(c.Request.Context(), req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, inv)
}

// Get handles GET /investments/:id
func (h *InvestmentHandler) Get(c *gin.Context) {
	investmentID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	inv, err := h.service.GetInvestment(ctx, investmentID)
	if err != nil {
		h.Error(c, err)
		return
	}
	returns, err := h.service.ListReturns(ctx, investmentID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.InvestmentResponse{Investment: inv, Returns: returns})
}

// RecordReturn handles POST /investments/:id/returns
func (h *InvestmentHandler) RecordReturn(c *gin.Context) {
	investmentID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	var req dto.RecordReturnRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.service.RecordReturn(c.Request.Context(), investments.ReturnInput{
		InvestmentID: investmentID,
		Date:         req.ReturnDate.Time,
		Amount:       req.Amount,
		Type:         investments.ReturnType(req.ReturnType),
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, result)
}

// DeleteReturn handles DELETE /investment-returns/:id
func (h *InvestmentHandler) DeleteReturn(c *gin.Context) {
	returnID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	inv, err := h.service.DeleteReturn(c.Request.Context(), returnID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, inv)
}
