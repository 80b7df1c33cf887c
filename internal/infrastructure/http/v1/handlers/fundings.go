package handlers

import (
	"github.com/gin-gonic/gin"

	"bizledger/internal/domain/funding"
	"bizledger/internal/infrastructure/http/v1/dto"
)

// FundingHandler handles HTTP requests for investor fundings and profit sharing.
type FundingHandler struct {
	*BaseHandler
	service *funding.Service
}

// NewFundingHandler creates a new funding handler.
func NewFundingHandler(base *BaseHandler, service *funding.Service) *FundingHandler {
	return &FundingHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Create handles POST /fundings
func (h *FundingHandler) Create(c *gin.Context) {
	var req dto.CreateFundingRequest
	if !h.BindJSON(c, &req) {
		return
	}

	f, err := h.service.CreateFunding(c.Request.Context(), req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, f)
}

// Get handles GET /fundings/:id
func (h *FundingHandler) Get(c *gin.Context) {
	fundingID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	f, err := h.service.GetFunding(ctx, fundingID)
	if err != nil {
		h.Error(c, err)
		return
	}
	payments, err := h.service.ListPayments(ctx, fundingID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FundingResponse{Funding: f, Payments: payments})
}

// RecordPayment handles POST /fundings/:id/payments
func (h *FundingHandler) RecordPayment(c *gin.Context) {
	fundingID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	var req dto.RecordPaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.service.RecordPayment(c.Request.Context(), funding.PaymentInput{
		FundingID: fundingID,
		Period:    req.Period,
		Revenue:   req.Revenue,
		Expenses:  req.Expenses,
		DueDate:   req.DueDate.Time,
		Status:    funding.PaymentStatus(req.Status),
		PaidDate:  req.PaidDate.Time,
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, result)
}

// MarkPaid handles POST /profit-payments/:id/pay
func (h *FundingHandler) MarkPaid(c *gin.Context) {
	paymentID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	var req dto.MarkPaidRequest
	if !h.BindOptionalJSON(c, &req) {
		return
	}

	result, err := h.service.MarkPaid(c.Request.Context(), paymentID, req.PaidDate.Time)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, result)
}
