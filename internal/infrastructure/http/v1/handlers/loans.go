package handlers

import (
	"github.com/gin-gonic/gin"

	"bizledger/internal/domain/loans"
	"bizledger/internal/infrastructure/http/v1/dto"
)

// LoanHandler handles HTTP requests for loans and their installments.
type LoanHandler struct {
	*BaseHandler
	service *loans.Service
}

// NewLoanHandler creates a new loan handler.
func NewLoanHandler(base *BaseHandler, service *loans.Service) *LoanHandler {
	return &LoanHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Create handles POST /loans
func (h *LoanHandler) Create(c *gin.Context) {
	var req dto.CreateLoanRequest
	if !h.BindJSON(c, &req) {
		return
	}

	loan, err := h.service.CreateLoan(c.Request.Context(), req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, loan)
}

// List handles GET /loans
func (h *LoanHandler) List(c *gin.Context) {
	filter, ok := h.BindList(c)
	if !ok {
		return
	}

	result, err := h.service.ListLoans(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, result)
}

// Get handles GET /loans/:id
func (h *LoanHandler) Get(c *gin.Context) {
	loanID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	loan, err := h.service.GetLoan(c.Request.Context(), loanID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, loan)
}

// Delete handles DELETE /loans/:id
func (h *LoanHandler) Delete(c *gin.Context) {
	loanID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteLoan(c.Request.Context(), loanID); err != nil {
		h.Error(c, err)
		return
	}

	h.NoContent(c)
}

// MarkDefaulted handles POST /loans/:id/default
func (h *LoanHandler) MarkDefaulted(c *gin.Context) {
	loanID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	loan, err := h.service.MarkDefaulted(c.Request.Context(), loanID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, loan)
}

// PayInstallment handles POST /installments/:id/pay
func (h *LoanHandler) PayInstallment(c *gin.Context) {
	installmentID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	var req dto.PayInstallmentRequest
	if !h.BindOptionalJSON(c, &req) {
		return
	}

	in := loans.PayInput{
		InstallmentID: installmentID,
		PaidDate:      req.PaidDate.Time,
		PaidAmount:    req.PaidAmount,
	}

	result, err := h.service.PayInstallment(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, result)
}
