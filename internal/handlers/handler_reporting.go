package handlers

import (
	"net/http"
	"time"

	portssvc "github.com/SscSPs/finance_ledger/internal/core/ports/services"
	"github.com/SscSPs/finance_ledger/internal/dto"
	"github.com/gin-gonic/gin"
)

type reportingHandler struct {
	accountService   portssvc.AccountReaderSvc
	analyticsService portssvc.AnalyticsSvc
	reportService    portssvc.ReportSvc
	now              func() time.Time
}

func registerReportingRoutes(rg *gin.RouterGroup, accountService portssvc.AccountReaderSvc, analyticsService portssvc.AnalyticsSvc, reportService portssvc.ReportSvc) {
	h := &reportingHandler{
		accountService:   accountService,
		analyticsService: analyticsService,
		reportService:    reportService,
		now:              time.Now,
	}

	analytics := rg.Group("/accounts/:accountID/analytics")
	{
		analytics.GET("/spending", h.getSpendingByCategory)
		analytics.GET("/trends", h.getMonthlyTrends)
	}
	rg.POST("/reports/monthly", h.generateMonthlyReport)
}

// getSpendingByCategory godoc
// @Summary Spending by category
// @Description Sums completed debits between start and end (inclusive days) by category.
// @Tags analytics
// @Produce  json
// @Param   accountID path string true "Account ID"
// @Param   start query string true "First day (YYYY-MM-DD)"
// @Param   end query string true "Last day (YYYY-MM-DD)"
// @Success 200 {object} dto.SpendingByCategoryResponse
// @Failure 400 {object} map[string]string "Invalid query parameters"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Account not found"
// @Failure 500 {object} map[string]string "Failed to compute spending"
// @Security BearerAuth
// @Router /accounts/{accountID}/analytics/spending [get]
func (h *reportingHandler) getSpendingByCategory(c *gin.Context) {
	ownerID, ok := requireOwner(c)
	if !ok {
		return
	}
	var params dto.SpendingByCategoryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		respondBindError(c, err, "query parameters")
		return
	}
	account, ok := ownedAccount(c, h.accountService, ownerID, c.Param("accountID"))
	if !ok {
		return
	}

	// end is a calendar day; include all of it
	end := params.End.AddDate(0, 0, 1).Add(-time.Nanosecond)
	spending, err := h.analyticsService.SpendingByCategory(c.Request.Context(), account.AccountID, params.Start, end)
	if err != nil {
		respondError(c, err, "Failed to compute spending")
		return
	}

	c.JSON(http.StatusOK, dto.SpendingByCategoryResponse{
		AccountID: account.AccountID,
		Start:     params.Start,
		End:       end,
		Spending:  spending,
	})
}

// getMonthlyTrends godoc
// @Summary Monthly income and spending
// @Tags analytics
// @Produce  json
// @Param   accountID path string true "Account ID"
// @Param   months query int false "Trailing months, including the current one" default(6)
// @Success 200 {object} dto.MonthlyTrendsResponse
// @Failure 400 {object} map[string]string "Invalid query parameters"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Account not found"
// @Failure 500 {object} map[string]string "Failed to compute trends"
// @Security BearerAuth
// @Router /accounts/{accountID}/analytics/trends [get]
func (h *reportingHandler) getMonthlyTrends(c *gin.Context) {
	ownerID, ok := requireOwner(c)
	if !ok {
		return
	}
	var params dto.MonthlyTrendsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		respondBindError(c, err, "query parameters")
		return
	}
	account, ok := ownedAccount(c, h.accountService, ownerID, c.Param("accountID"))
	if !ok {
		return
	}

	trends, err := h.analyticsService.MonthlyTrends(c.Request.Context(), account.AccountID, params.Months)
	if err != nil {
		respondError(c, err, "Failed to compute trends")
		return
	}
	c.JSON(http.StatusOK, dto.MonthlyTrendsResponse{AccountID: account.AccountID, Trends: trends})
}

// generateMonthlyReport godoc
// @Summary Generate a monthly report
// @Description Builds the statement for every active account of the user and delivers it. Defaults to the previous month.
// @Tags reports
// @Produce  json
// @Param   year query int false "Year"
// @Param   month query int false "Month (1-12)"
// @Success 200 {object} domain.MonthlyReport
// @Failure 400 {object} map[string]string "Invalid query parameters"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Failed to generate report"
// @Security BearerAuth
// @Router /reports/monthly [post]
func (h *reportingHandler) generateMonthlyReport(c *gin.Context) {
	ownerID, ok := requireOwner(c)
	if !ok {
		return
	}
	var params dto.MonthlyReportParams
	if err := c.ShouldBindQuery(&params); err != nil {
		respondBindError(c, err, "query parameters")
		return
	}

	year, month := params.Year, time.Month(params.Month)
	if year == 0 || month == 0 {
		now := h.now()
		previous := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, -1, 0)
		if year == 0 {
			year = previous.Year()
		}
		if month == 0 {
			month = previous.Month()
		}
	}

	report, err := h.reportService.GenerateMonthlyReport(c.Request.Context(), ownerID, year, month)
	if err != nil {
		respondError(c, err, "Failed to generate report")
		return
	}
	c.JSON(http.StatusOK, report)
}
