package services_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/SscSPs/finance_ledger/internal/apperrors"
	"github.com/SscSPs/finance_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/finance_ledger/internal/core/ports/services"
	"github.com/SscSPs/finance_ledger/internal/core/services"
	"github.com/SscSPs/finance_ledger/internal/dto"
	"github.com/SscSPs/finance_ledger/internal/repositories/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

// MockAccountRepository is a mock type for the AccountRepository interface
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) SaveAccount(ctx context.Context, account domain.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountRepository) FindAccountByNumber(ctx context.Context, ownerID string, accountNumber string) (*domain.Account, error) {
	args := m.Called(ctx, ownerID, accountNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountRepository) ListAccountsByOwner(ctx context.Context, ownerID string) ([]domain.Account, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Account), args.Error(1)
}

func (m *MockAccountRepository) DeactivateAccount(ctx context.Context, accountID string, now time.Time) error {
	args := m.Called(ctx, accountID, now)
	return args.Error(0)
}

type AccountServiceTestSuite struct {
	suite.Suite
	store   *memory.Store
	service portssvc.AccountSvcFacade
	ctx     context.Context
}

func (suite *AccountServiceTestSuite) SetupTest() {
	suite.store = memory.NewStore()
	suite.service = services.NewAccountService(suite.store, suite.store)
	suite.ctx = context.Background()
}

func (suite *AccountServiceTestSuite) TestCreateAccount_Success() {
	acc, err := suite.service.CreateAccount(suite.ctx, "owner-1", dto.CreateAccountRequest{
		Name:           "  Everyday  ",
		AccountType:    domain.Checking,
		CurrencyCode:   "eur",
		OpeningBalance: dec("250.456"),
	})
	suite.Require().NoError(err)
	suite.NotEmpty(acc.AccountID)
	suite.Equal("owner-1", acc.OwnerID)
	suite.Equal("Everyday", acc.Name)
	suite.Equal("EUR", acc.CurrencyCode)
	suite.Regexp(`^ACC[0-9A-F]{8}$`, acc.AccountNumber)
	suite.True(dec("250.46").Equal(acc.Balance))
	suite.True(acc.IsActive)
	suite.WithinDuration(time.Now(), acc.CreatedAt, time.Second)
}

func (suite *AccountServiceTestSuite) TestCreateAccount_Validation() {
	tests := []struct {
		name string
		req  dto.CreateAccountRequest
	}{
		{"blank name", dto.CreateAccountRequest{Name: " ", AccountType: domain.Checking}},
		{"unknown type", dto.CreateAccountRequest{Name: "x", AccountType: "loan"}},
		{"negative opening balance", dto.CreateAccountRequest{Name: "x", AccountType: domain.Savings, OpeningBalance: dec("-1")}},
	}
	for _, tt := range tests {
		suite.Run(tt.name, func() {
			_, err := suite.service.CreateAccount(suite.ctx, "owner-1", tt.req)
			suite.ErrorIs(err, apperrors.ErrValidation)
		})
	}
}

func (suite *AccountServiceTestSuite) TestCreateAccount_DuplicateNumber() {
	req := dto.CreateAccountRequest{Name: "Main", AccountType: domain.Checking, AccountNumber: "ACC12345678"}
	_, err := suite.service.CreateAccount(suite.ctx, "owner-1", req)
	suite.Require().NoError(err)

	_, err = suite.service.CreateAccount(suite.ctx, "owner-1", req)
	suite.ErrorIs(err, apperrors.ErrDuplicate)

	_, err = suite.service.CreateAccount(suite.ctx, "owner-2", req)
	suite.NoError(err, "account numbers are unique per owner only")
}

func (suite *AccountServiceTestSuite) TestGetAccountByID_HidesOtherOwners() {
	acc := openAccount(suite.T(), suite.store, "owner-1", domain.Checking, "USD", "10")

	found, err := suite.service.GetAccountByID(suite.ctx, "owner-1", acc.AccountID)
	suite.Require().NoError(err)
	suite.Equal(acc.AccountID, found.AccountID)

	_, err = suite.service.GetAccountByID(suite.ctx, "intruder", acc.AccountID)
	suite.ErrorIs(err, apperrors.ErrNotFound)
	suite.ErrorIs(suite.service.DeactivateAccount(suite.ctx, "intruder", acc.AccountID), apperrors.ErrNotFound)
}

func (suite *AccountServiceTestSuite) TestGetAccountBalance() {
	acc := openAccount(suite.T(), suite.store, "owner-1", domain.Checking, "USD", "100.00")
	ledger := services.NewLedgerService(suite.store)
	for _, amount := range []string{"10.00", "15.50"} {
		txn := savePending(suite.T(), suite.store, acc.AccountID, domain.CreditTxn, amount)
		_, err := ledger.CompleteTransaction(suite.ctx, txn.TransactionID)
		suite.Require().NoError(err)
	}
	savePending(suite.T(), suite.store, acc.AccountID, domain.DebitTxn, "5.00")

	balance, count, err := suite.service.GetAccountBalance(suite.ctx, "owner-1", acc.AccountID)
	suite.Require().NoError(err)
	suite.True(dec("125.50").Equal(balance))
	suite.Equal(2, count, "pending transactions are not counted")
}

func (suite *AccountServiceTestSuite) TestListAndDeactivate() {
	first := openAccount(suite.T(), suite.store, "owner-1", domain.Checking, "USD", "0")
	openAccount(suite.T(), suite.store, "owner-1", domain.Savings, "USD", "0")
	openAccount(suite.T(), suite.store, "owner-2", domain.Savings, "USD", "0")

	accounts, err := suite.service.ListAccounts(suite.ctx, "owner-1")
	suite.Require().NoError(err)
	suite.Len(accounts, 2)

	none, err := suite.service.ListAccounts(suite.ctx, "nobody")
	suite.Require().NoError(err)
	suite.NotNil(none)
	suite.Empty(none)

	suite.Require().NoError(suite.service.DeactivateAccount(suite.ctx, "owner-1", first.AccountID))
	found, err := suite.service.GetAccountByID(suite.ctx, "owner-1", first.AccountID)
	suite.Require().NoError(err)
	suite.False(found.IsActive)
}

func TestAccountServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AccountServiceTestSuite))
}

func TestCreateAccount_RetriesGeneratedNumberCollision(t *testing.T) {
	ctx := context.Background()
	repo := new(MockAccountRepository)
	svc := services.NewAccountService(repo, memory.NewStore())

	collision := fmt.Errorf("%w: account number taken", apperrors.ErrDuplicate)
	repo.On("SaveAccount", ctx, mock.AnythingOfType("domain.Account")).Return(collision).Once()
	repo.On("SaveAccount", ctx, mock.AnythingOfType("domain.Account")).Return(nil).Once()

	acc, err := svc.CreateAccount(ctx, "owner-1", dto.CreateAccountRequest{Name: "Main", AccountType: domain.Checking})
	assert.NoError(t, err)
	assert.NotNil(t, acc)
	repo.AssertNumberOfCalls(t, "SaveAccount", 2)
}

func TestCreateAccount_ExplicitNumberIsNotRetried(t *testing.T) {
	ctx := context.Background()
	repo := new(MockAccountRepository)
	svc := services.NewAccountService(repo, memory.NewStore())

	repo.On("SaveAccount", ctx, mock.AnythingOfType("domain.Account")).Return(apperrors.ErrDuplicate).Once()

	_, err := svc.CreateAccount(ctx, "owner-1", dto.CreateAccountRequest{Name: "Main", AccountType: domain.Checking, AccountNumber: "ACC00000001"})
	assert.ErrorIs(t, err, apperrors.ErrDuplicate)
	repo.AssertExpectations(t)
}
