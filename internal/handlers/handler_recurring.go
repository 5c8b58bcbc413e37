package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/SscSPs/finance_ledger/internal/core/ports/services"
	"github.com/SscSPs/finance_ledger/internal/dto"
	"github.com/SscSPs/finance_ledger/internal/middleware"
	"github.com/gin-gonic/gin"
)

type recurringHandler struct {
	accountService   portssvc.AccountReaderSvc
	recurringService portssvc.RecurringSvcFacade
}

func registerRecurringRoutes(rg *gin.RouterGroup, accountService portssvc.AccountReaderSvc, recurringService portssvc.RecurringSvcFacade) {
	h := &recurringHandler{accountService: accountService, recurringService: recurringService}

	rg.POST("/accounts/:accountID/recurring", h.createRecurring)
	rg.GET("/accounts/:accountID/recurring", h.listRecurring)
	rg.DELETE("/recurring/:recurringID", h.deactivateRecurring)
}

// createRecurring godoc
// @Summary Schedule a recurring debit
// @Description The debit is materialized and completed each time the definition falls due.
// @Tags recurring
// @Accept  json
// @Produce  json
// @Param   accountID path string true "Account ID"
// @Param   recurring body dto.CreateRecurringRequest true "Recurring definition"
// @Success 201 {object} dto.RecurringResponse
// @Failure 400 {object} map[string]string "Invalid input format or validation error"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Account not found"
// @Failure 500 {object} map[string]string "Failed to create recurring transaction"
// @Security BearerAuth
// @Router /accounts/{accountID}/recurring [post]
func (h *recurringHandler) createRecurring(c *gin.Context) {
	logger := middleware.GetLoggerFromContext(c)
	ownerID, ok := requireOwner(c)
	if !ok {
		return
	}

	var req dto.CreateRecurringRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "request format")
		return
	}

	account, ok := ownedAccount(c, h.accountService, ownerID, c.Param("accountID"))
	if !ok {
		return
	}
	req.AccountID = account.AccountID

	recurring, err := h.recurringService.CreateRecurring(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "Failed to create recurring transaction")
		return
	}

	logger.Info("Recurring transaction scheduled", slog.String("recurring_id", recurring.RecurringID))
	c.JSON(http.StatusCreated, dto.ToRecurringResponse(recurring))
}

// listRecurring godoc
// @Summary List an account's recurring debits
// @Tags recurring
// @Produce  json
// @Param   accountID path string true "Account ID"
// @Success 200 {object} dto.ListRecurringResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Account not found"
// @Failure 500 {object} map[string]string "Failed to list recurring transactions"
// @Security BearerAuth
// @Router /accounts/{accountID}/recurring [get]
func (h *recurringHandler) listRecurring(c *gin.Context) {
	ownerID, ok := requireOwner(c)
	if !ok {
		return
	}
	account, ok := ownedAccount(c, h.accountService, ownerID, c.Param("accountID"))
	if !ok {
		return
	}

	defs, err := h.recurringService.ListRecurring(c.Request.Context(), account.AccountID)
	if err != nil {
		respondError(c, err, "Failed to list recurring transactions")
		return
	}

	resp := dto.ListRecurringResponse{Recurring: make([]dto.RecurringResponse, len(defs))}
	for i := range defs {
		resp.Recurring[i] = dto.ToRecurringResponse(&defs[i])
	}
	c.JSON(http.StatusOK, resp)
}

// deactivateRecurring godoc
// @Summary Stop a recurring debit
// @Tags recurring
// @Param   recurringID path string true "Recurring definition ID"
// @Success 204 "No Content"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Recurring transaction not found"
// @Failure 500 {object} map[string]string "Failed to deactivate recurring transaction"
// @Security BearerAuth
// @Router /recurring/{recurringID} [delete]
func (h *recurringHandler) deactivateRecurring(c *gin.Context) {
	ownerID, ok := requireOwner(c)
	if !ok {
		return
	}

	recurring, err := h.recurringService.GetRecurring(c.Request.Context(), c.Param("recurringID"))
	if err != nil {
		respondError(c, err, "Failed to deactivate recurring transaction")
		return
	}
	if _, ok := ownedAccount(c, h.accountService, ownerID, recurring.AccountID); !ok {
		return
	}

	if err := h.recurringService.DeactivateRecurring(c.Request.Context(), recurring.RecurringID); err != nil {
		respondError(c, err, "Failed to deactivate recurring transaction")
		return
	}
	c.Status(http.StatusNoContent)
}
