package services

// ServiceContainer holds all service interfaces used by the API and the background workers.
type ServiceContainer struct {
	Account        AccountSvcFacade
	Category       CategorySvcFacade
	Ledger         LedgerSvc
	Transaction    TransactionSvcFacade
	Reconciliation ReconciliationSvc
	Recurring      RecurringSvcFacade
	Analytics      AnalyticsSvc
	Report         ReportSvc
}
