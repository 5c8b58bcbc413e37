package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	portssvc "github.com/SscSPs/finance_ledger/internal/core/ports/services"
	"github.com/SscSPs/finance_ledger/internal/dto"
	"github.com/SscSPs/finance_ledger/internal/middleware"
	"github.com/SscSPs/finance_ledger/internal/utils"
	"github.com/gin-gonic/gin"
)

// transactionHandler handles transaction, transfer and payment requests.
type transactionHandler struct {
	accountService     portssvc.AccountReaderSvc
	transactionService portssvc.TransactionSvcFacade
	ledgerService      portssvc.LedgerSvc
	tracker            *utils.PosthogClientWrapper
}

func newTransactionHandler(as portssvc.AccountReaderSvc, ts portssvc.TransactionSvcFacade, ls portssvc.LedgerSvc, tracker *utils.PosthogClientWrapper) *transactionHandler {
	return &transactionHandler{
		accountService:     as,
		transactionService: ts,
		ledgerService:      ls,
		tracker:            tracker,
	}
}

// registerTransactionRoutes registers account-scoped and top-level transaction routes.
func registerTransactionRoutes(rg *gin.RouterGroup, accountService portssvc.AccountReaderSvc, transactionService portssvc.TransactionSvcFacade, ledgerService portssvc.LedgerSvc, tracker *utils.PosthogClientWrapper) {
	h := newTransactionHandler(accountService, transactionService, ledgerService, tracker)

	accountScoped := rg.Group("/accounts/:accountID")
	{
		accountScoped.POST("/transactions", h.createTransaction)
		accountScoped.GET("/transactions", h.listTransactions)
		accountScoped.POST("/payments", h.processPayment)
	}

	rg.POST("/transfers", h.transferFunds)

	transactions := rg.Group("/transactions")
	{
		transactions.GET("", h.getTransactionByReference)
		transactions.GET("/:transactionID", h.getTransaction)
		transactions.POST("/:transactionID/complete", h.completeTransaction)
		transactions.POST("/:transactionID/fail", h.failTransaction)
		transactions.POST("/:transactionID/cancel", h.cancelTransaction)
	}
}

// createTransaction godoc
// @Summary Record a credit or debit
// @Description Creates a pending transaction. Debits the account could not cover right now are rejected.
// @Tags transactions
// @Accept  json
// @Produce  json
// @Param   accountID path string true "Account ID"
// @Param   transaction body dto.CreateTransactionRequest true "Transaction details"
// @Success 201 {object} dto.TransactionResponse
// @Failure 400 {object} map[string]string "Invalid input format or validation error"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Account not found"
// @Failure 422 {object} map[string]string "Insufficient funds"
// @Failure 500 {object} map[string]string "Failed to create transaction"
// @Security BearerAuth
// @Router /accounts/{accountID}/transactions [post]
func (h *transactionHandler) createTransaction(c *gin.Context) {
	logger := middleware.GetLoggerFromContext(c)
	ownerID, ok := requireOwner(c)
	if !ok {
		return
	}

	var req dto.CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "request format")
		return
	}

	account, ok := ownedAccount(c, h.accountService, ownerID, c.Param("accountID"))
	if !ok {
		return
	}
	req.AccountID = account.AccountID

	txn, err := h.transactionService.CreateTransaction(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "Failed to create transaction")
		return
	}

	logger.Info("Transaction created", slog.String("transaction_id", txn.TransactionID), slog.String("reference_number", txn.ReferenceNumber))
	c.JSON(http.StatusCreated, dto.ToTransactionResponse(txn))
}

// listTransactions godoc
// @Summary List an account's transactions
// @Description Newest first. Pass nextToken from a previous page to continue.
// @Tags transactions
// @Produce  json
// @Param   accountID path string true "Account ID"
// @Param   status query string false "Filter by status"
// @Param   type query string false "Filter by type"
// @Param   from query string false "Earliest transaction date (YYYY-MM-DD)"
// @Param   to query string false "Latest transaction date (YYYY-MM-DD)"
// @Param   limit query int false "Page size" default(20)
// @Param   nextToken query string false "Token for the next page"
// @Success 200 {object} dto.ListTransactionsResponse
// @Failure 400 {object} map[string]string "Invalid query parameters"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Account not found"
// @Failure 500 {object} map[string]string "Failed to list transactions"
// @Security BearerAuth
// @Router /accounts/{accountID}/transactions [get]
func (h *transactionHandler) listTransactions(c *gin.Context) {
	ownerID, ok := requireOwner(c)
	if !ok {
		return
	}

	var params dto.ListTransactionsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		respondBindError(c, err, "query parameters")
		return
	}

	account, ok := ownedAccount(c, h.accountService, ownerID, c.Param("accountID"))
	if !ok {
		return
	}

	txns, nextToken, err := h.transactionService.ListTransactions(c.Request.Context(), account.AccountID, params)
	if err != nil {
		respondError(c, err, "Failed to list transactions")
		return
	}
	c.JSON(http.StatusOK, dto.ToListTransactionsResponse(txns, nextToken))
}

// processPayment godoc
// @Summary Pay from an account through the card gateway
// @Description Authorizes the payment, records a pending debit and settles it asynchronously.
// @Tags payments
// @Accept  json
// @Produce  json
// @Param   accountID path string true "Account ID"
// @Param   payment body dto.ProcessPaymentRequest true "Payment details"
// @Success 202 {object} dto.ProcessPaymentResponse
// @Failure 400 {object} map[string]string "Invalid input format or validation error"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Account not found"
// @Failure 422 {object} map[string]string "Insufficient funds"
// @Failure 502 {object} map[string]string "Gateway rejected the payment"
// @Failure 500 {object} map[string]string "Failed to process payment"
// @Security BearerAuth
// @Router /accounts/{accountID}/payments [post]
func (h *transactionHandler) processPayment(c *gin.Context) {
	logger := middleware.GetLoggerFromContext(c)
	ownerID, ok := requireOwner(c)
	if !ok {
		return
	}

	var req dto.ProcessPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "request format")
		return
	}

	account, ok := ownedAccount(c, h.accountService, ownerID, c.Param("accountID"))
	if !ok {
		return
	}
	req.AccountID = account.AccountID
	req.OwnerID = ownerID

	txn, clientSecret, err := h.transactionService.ProcessPayment(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "Failed to process payment")
		return
	}

	middleware.PosthogEvent(c, h.tracker, "payment_initiated", map[string]any{
		"account_id":     account.AccountID,
		"currency":       account.CurrencyCode,
		"amount":         txn.Amount.StringFixed(2),
		"payment_method": txn.PaymentMethod,
	})
	logger.Info("Payment accepted for reconciliation", slog.String("transaction_id", txn.TransactionID))
	c.JSON(http.StatusAccepted, dto.ProcessPaymentResponse{
		Transaction:  dto.ToTransactionResponse(txn),
		ClientSecret: clientSecret,
	})
}

// transferFunds godoc
// @Summary Transfer between two of the user's accounts
// @Description Both balances change atomically; the returned transfer is already completed.
// @Tags transfers
// @Accept  json
// @Produce  json
// @Param   transfer body dto.TransferRequest true "Transfer details"
// @Success 201 {object} dto.TransactionResponse
// @Failure 400 {object} map[string]string "Invalid input format or validation error"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Account not found"
// @Failure 422 {object} map[string]string "Insufficient funds"
// @Failure 500 {object} map[string]string "Failed to transfer funds"
// @Security BearerAuth
// @Router /transfers [post]
func (h *transactionHandler) transferFunds(c *gin.Context) {
	logger := middleware.GetLoggerFromContext(c)
	ownerID, ok := requireOwner(c)
	if !ok {
		return
	}

	var req dto.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "request format")
		return
	}

	if _, ok := ownedAccount(c, h.accountService, ownerID, req.FromAccountID); !ok {
		return
	}
	if _, ok := ownedAccount(c, h.accountService, ownerID, req.ToAccountID); !ok {
		return
	}

	txn, err := h.transactionService.TransferFunds(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "Failed to transfer funds")
		return
	}

	logger.Info("Transfer completed", slog.String("transaction_id", txn.TransactionID))
	c.JSON(http.StatusCreated, dto.ToTransactionResponse(txn))
}

// getTransaction godoc
// @Summary Get a transaction by ID
// @Tags transactions
// @Produce  json
// @Param   transactionID path string true "Transaction ID"
// @Success 200 {object} dto.TransactionResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Transaction not found"
// @Failure 500 {object} map[string]string "Failed to retrieve transaction"
// @Security BearerAuth
// @Router /transactions/{transactionID} [get]
func (h *transactionHandler) getTransaction(c *gin.Context) {
	ownerID, ok := requireOwner(c)
	if !ok {
		return
	}
	txn, ok := ownedTransaction(c, h.accountService, h.transactionService, ownerID, c.Param("transactionID"))
	if !ok {
		return
	}
	c.JSON(http.StatusOK, dto.ToTransactionResponse(txn))
}

// getTransactionByReference godoc
// @Summary Look up a transaction by reference number
// @Tags transactions
// @Produce  json
// @Param   reference query string true "Reference number, e.g. TXN1A2B3C4D"
// @Success 200 {object} dto.TransactionResponse
// @Failure 400 {object} map[string]string "Missing reference"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Transaction not found"
// @Failure 500 {object} map[string]string "Failed to retrieve transaction"
// @Security BearerAuth
// @Router /transactions [get]
func (h *transactionHandler) getTransactionByReference(c *gin.Context) {
	ownerID, ok := requireOwner(c)
	if !ok {
		return
	}
	reference := strings.TrimSpace(c.Query("reference"))
	if reference == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reference query parameter is required"})
		return
	}

	txn, err := h.transactionService.GetTransactionByReference(c.Request.Context(), reference)
	if err != nil {
		respondError(c, err, "Failed to retrieve transaction")
		return
	}
	// Ownership is re-checked through the ID lookup
	txn, ok = ownedTransaction(c, h.accountService, h.transactionService, ownerID, txn.TransactionID)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, dto.ToTransactionResponse(txn))
}

// completeTransaction godoc
// @Summary Complete a pending transaction
// @Description Applies the transaction to the balance. Completing an already completed transaction is a no-op.
// @Tags transactions
// @Produce  json
// @Param   transactionID path string true "Transaction ID"
// @Success 200 {object} dto.TransactionResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Transaction not found"
// @Failure 409 {object} map[string]string "Transaction already failed or cancelled"
// @Failure 422 {object} map[string]string "Insufficient funds"
// @Failure 500 {object} map[string]string "Failed to complete transaction"
// @Security BearerAuth
// @Router /transactions/{transactionID}/complete [post]
func (h *transactionHandler) completeTransaction(c *gin.Context) {
	ownerID, ok := requireOwner(c)
	if !ok {
		return
	}
	txn, ok := ownedTransaction(c, h.accountService, h.transactionService, ownerID, c.Param("transactionID"))
	if !ok {
		return
	}

	completed, err := h.ledgerService.CompleteTransaction(c.Request.Context(), txn.TransactionID)
	if err != nil {
		respondError(c, err, "Failed to complete transaction")
		return
	}
	c.JSON(http.StatusOK, dto.ToTransactionResponse(completed))
}

// failTransaction godoc
// @Summary Mark a transaction failed
// @Tags transactions
// @Accept  json
// @Produce  json
// @Param   transactionID path string true "Transaction ID"
// @Param   reason body dto.FailTransactionRequest true "Why the transaction failed"
// @Success 200 {object} dto.TransactionResponse
// @Failure 400 {object} map[string]string "Invalid input format"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Transaction not found"
// @Failure 409 {object} map[string]string "Transaction already settled"
// @Failure 500 {object} map[string]string "Failed to fail transaction"
// @Security BearerAuth
// @Router /transactions/{transactionID}/fail [post]
func (h *transactionHandler) failTransaction(c *gin.Context) {
	ownerID, ok := requireOwner(c)
	if !ok {
		return
	}
	var req dto.FailTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "request format")
		return
	}
	txn, ok := ownedTransaction(c, h.accountService, h.transactionService, ownerID, c.Param("transactionID"))
	if !ok {
		return
	}

	failed, err := h.ledgerService.FailTransaction(c.Request.Context(), txn.TransactionID, req.Reason)
	if err != nil {
		respondError(c, err, "Failed to fail transaction")
		return
	}
	c.JSON(http.StatusOK, dto.ToTransactionResponse(failed))
}

// cancelTransaction godoc
// @Summary Cancel a pending transaction
// @Tags transactions
// @Produce  json
// @Param   transactionID path string true "Transaction ID"
// @Success 200 {object} dto.TransactionResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Transaction not found"
// @Failure 409 {object} map[string]string "Transaction already settled"
// @Failure 500 {object} map[string]string "Failed to cancel transaction"
// @Security BearerAuth
// @Router /transactions/{transactionID}/cancel [post]
func (h *transactionHandler) cancelTransaction(c *gin.Context) {
	ownerID, ok := requireOwner(c)
	if !ok {
		return
	}
	txn, ok := ownedTransaction(c, h.accountService, h.transactionService, ownerID, c.Param("transactionID"))
	if !ok {
		return
	}

	cancelled, err := h.ledgerService.CancelTransaction(c.Request.Context(), txn.TransactionID)
	if err != nil {
		respondError(c, err, "Failed to cancel transaction")
		return
	}
	c.JSON(http.StatusOK, dto.ToTransactionResponse(cancelled))
}
