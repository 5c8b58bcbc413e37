package services

import (
	portsrepo "github.com/SscSPs/finance_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/finance_ledger/internal/core/ports/services"
	"github.com/SscSPs/finance_ledger/internal/platform/config"
)

// Collaborators are the external systems the services talk to.
type Collaborators struct {
	Gateway    portssvc.PaymentGateway
	Dispatcher portssvc.ReconciliationDispatcher
	ReportSink portssvc.ReportSink
}

// NewServiceContainer creates a new service container with properly initialized dependencies
func NewServiceContainer(cfg *config.Config, repos portsrepo.RepositoryProvider, collab Collaborators) *portssvc.ServiceContainer {
	store := repos.Store
	container := &portssvc.ServiceContainer{}

	// The state machine comes first; everything that moves money goes through it
	container.Ledger = NewLedgerService(store)

	container.Account = NewAccountService(store, store)
	container.Category = NewCategoryService(store)
	container.Transaction = NewTransactionService(store, container.Ledger,
		WithPaymentGateway(collab.Gateway),
		WithReconciliationDispatcher(collab.Dispatcher),
	)
	container.Reconciliation = NewReconciliationService(store, container.Ledger, collab.Gateway, cfg.GatewayTimeout)
	container.Recurring = NewRecurringService(store)
	container.Analytics = NewAnalyticsService(store, store)
	container.Report = NewReportService(store, container.Analytics, collab.ReportSink)

	return container
}
