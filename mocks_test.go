package accounts_test

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"

	accounts "github.com/goliatone/go-accounts"
)

// MockAccounts implements accounts.Accounts
type MockAccounts struct {
	mock.Mock
}

func (m *MockAccounts) GetByID(ctx context.Context, id uuid.UUID) (*accounts.Account, error) {
	args := m.Called(ctx, id)
	return accountArg(args, 0), args.Error(1)
}

func (m *MockAccounts) GetByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*accounts.Account, error) {
	args := m.Called(ctx, tx, id)
	return accountArg(args, 0), args.Error(1)
}

func (m *MockAccounts) GetByUsername(ctx context.Context, username string) (*accounts.Account, error) {
	args := m.Called(ctx, username)
	return accountArg(args, 0), args.Error(1)
}

func (m *MockAccounts) GetByUsernameTx(ctx context.Context, tx bun.IDB, username string) (*accounts.Account, error) {
	args := m.Called(ctx, tx, username)
	return accountArg(args, 0), args.Error(1)
}

func (m *MockAccounts) GetByEmail(ctx context.Context, email string) (*accounts.Account, error) {
	args := m.Called(ctx, email)
	return accountArg(args, 0), args.Error(1)
}

func (m *MockAccounts) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*accounts.Account, error) {
	args := m.Called(ctx, tx, email)
	return accountArg(args, 0), args.Error(1)
}

func (m *MockAccounts) GetByIdentifier(ctx context.Context, identifier string) (*accounts.Account, error) {
	args := m.Called(ctx, identifier)
	return accountArg(args, 0), args.Error(1)
}

func (m *MockAccounts) GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string) (*accounts.Account, error) {
	args := m.Called(ctx, tx, identifier)
	return accountArg(args, 0), args.Error(1)
}

func (m *MockAccounts) List(ctx context.Context) ([]*accounts.Account, error) {
	args := m.Called(ctx)
	records, _ := args.Get(0).([]*accounts.Account)
	return records, args.Error(1)
}

func (m *MockAccounts) ListPendingCreatorApplications(ctx context.Context) ([]*accounts.Account, error) {
	args := m.Called(ctx)
	records, _ := args.Get(0).([]*accounts.Account)
	return records, args.Error(1)
}

func (m *MockAccounts) Create(ctx context.Context, record *accounts.Account) (*accounts.Account, error) {
	args := m.Called(ctx, record)
	return accountArg(args, 0), args.Error(1)
}

func (m *MockAccounts) CreateTx(ctx context.Context, tx bun.IDB, record *accounts.Account) (*accounts.Account, error) {
	args := m.Called(ctx, tx, record)
	return accountArg(args, 0), args.Error(1)
}

func (m *MockAccounts) Update(ctx context.Context, record *accounts.Account, guards ...accounts.UpdateGuard) (*accounts.Account, error) {
	args := m.Called(ctx, record, guards)
	return accountArg(args, 0), args.Error(1)
}

func (m *MockAccounts) UpdateTx(ctx context.Context, tx bun.IDB, record *accounts.Account, guards ...accounts.UpdateGuard) (*accounts.Account, error) {
	args := m.Called(ctx, tx, record, guards)
	return accountArg(args, 0), args.Error(1)
}

func (m *MockAccounts) UpdateColumns(ctx context.Context, record *accounts.Account, columns []string, guards ...accounts.UpdateGuard) (*accounts.Account, error) {
	args := m.Called(ctx, record, columns, guards)
	return accountArg(args, 0), args.Error(1)
}

func (m *MockAccounts) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockAccounts) DeleteTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	return m.Called(ctx, tx, id).Error(0)
}

func (m *MockAccounts) UpdateColumnsTx(ctx context.Context, tx bun.IDB, record *accounts.Account, columns []string, guards ...accounts.UpdateGuard) (*accounts.Account, error) {
	args := m.Called(ctx, tx, record, columns, guards)
	return accountArg(args, 0), args.Error(1)
}

func (m *MockAccounts) TrackSuccessfulLogin(ctx context.Context, record *accounts.Account) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockAccounts) TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, record *accounts.Account) error {
	args := m.Called(ctx, tx, record)
	return args.Error(0)
}

func accountArg(args mock.Arguments, i int) *accounts.Account {
	record, _ := args.Get(i).(*accounts.Account)
	return record
}

// sentMessage is a message captured by recordingNotifier.
type sentMessage struct {
	To      string
	Subject string
	Body    string
}

// recordingNotifier keeps every message in memory and can be told to fail.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (n *recordingNotifier) Send(_ context.Context, to, subject, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentMessage{To: to, Subject: subject, Body: body})
	return nil
}

func (n *recordingNotifier) Messages() []sentMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]sentMessage(nil), n.sent...)
}

func (n *recordingNotifier) Fail(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.err = err
}

// recordingSink collects activity events.
type recordingSink struct {
	mu     sync.Mutex
	events []accounts.ActivityEvent
}

func (s *recordingSink) Record(_ context.Context, event accounts.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) Types() []accounts.ActivityEventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]accounts.ActivityEventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.EventType)
	}
	return out
}

func (s *recordingSink) Last() accounts.ActivityEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) == 0 {
		return accounts.ActivityEvent{}
	}
	return s.events[len(s.events)-1]
}

// sequenceOTP hands out codes in order and repeats the last one.
type sequenceOTP struct {
	mu    sync.Mutex
	codes []string
}

func (g *sequenceOTP) Generate() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	code := g.codes[0]
	if len(g.codes) > 1 {
		g.codes = g.codes[1:]
	}
	return code, nil
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
