package accounts_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"golang.org/x/crypto/bcrypt"

	accounts "github.com/goliatone/go-accounts"
	"github.com/goliatone/go-accounts/persistence"
)

const (
	testAccessSecret  = "access-secret-for-tests-0001"
	testRefreshSecret = "refresh-secret-for-tests-0002"
)

// testClock is a manually advanced clock shared by the service and its store.
type testClock struct {
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := persistence.Open(persistence.DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newTestRepos(t *testing.T, clock *testClock) accounts.RepositoryManager {
	t.Helper()
	repos := accounts.NewRepositoryManager(newTestDB(t), accounts.WithAccountsClock(clock.Now))
	require.NoError(t, repos.Validate())
	require.NoError(t, repos.Migrate(context.Background()))
	return repos
}

func newTestTokens(t *testing.T, clock *testClock) *accounts.TokenServiceImpl {
	t.Helper()
	opts := accounts.TokenOptions{
		AccessSigningKey:  []byte(testAccessSecret),
		RefreshSigningKey: []byte(testRefreshSecret),
		AccessTTL:         15 * time.Minute,
		RefreshTTL:        24 * time.Hour,
		Issuer:            "accounts-test",
	}
	if clock != nil {
		opts.Now = clock.Now
	}
	ts, err := accounts.NewTokenService(opts, nopLogger{})
	require.NoError(t, err)
	return ts
}

// harness bundles a service over an in memory SQLite store.
type harness struct {
	clock    *testClock
	repos    accounts.RepositoryManager
	tokens   *accounts.TokenServiceImpl
	notifier *recordingNotifier
	sink     *recordingSink
	otp      *sequenceOTP
	avatars  map[string]string
	service  *accounts.Service
}

func newHarness(t *testing.T, opts ...accounts.ServiceOption) *harness {
	t.Helper()

	h := &harness{
		clock:    newTestClock(),
		notifier: &recordingNotifier{},
		sink:     &recordingSink{},
		otp:      &sequenceOTP{codes: []string{"111111", "222222", "333333", "444444"}},
		avatars:  map[string]string{},
	}
	h.repos = newTestRepos(t, h.clock)
	h.tokens = newTestTokens(t, h.clock)

	mailer, err := accounts.NewMailer(h.notifier,
		accounts.WithMailerAppName("Test"),
		accounts.WithMailerClock(h.clock.Now),
	)
	require.NoError(t, err)

	avatarStore := accounts.AvatarStoreFunc(func(_ context.Context, upload accounts.AvatarUpload, identifier string) (string, error) {
		url := "https://cdn.test/avatars/user_" + identifier
		h.avatars[identifier] = upload.ContentType
		return url, nil
	})

	base := []accounts.ServiceOption{
		accounts.WithPasswordHasher(accounts.BcryptHasher{Cost: bcrypt.MinCost}),
		accounts.WithOTPGenerator(h.otp),
		accounts.WithClock(h.clock.Now),
		accounts.WithMailer(mailer),
		accounts.WithActivitySink(h.sink),
		accounts.WithAvatarStore(avatarStore),
		accounts.WithLogger(nopLogger{}),
	}

	h.service = accounts.NewService(h.repos.Accounts(), h.tokens, append(base, opts...)...)
	return h
}

func registerMessage(username string) accounts.RegisterAccountMessage {
	return accounts.RegisterAccountMessage{
		Username: username,
		Email:    username + "@example.com",
		Password: "correct-horse-1",
		Name:     "Test " + username,
		Country:  "US",
		Gender:   "female",
	}
}

// registerVerified registers username and verifies its email with the next code.
func (h *harness) registerVerified(t *testing.T, username string) *accounts.Account {
	t.Helper()
	ctx := context.Background()

	account, err := h.service.Register(ctx, registerMessage(username))
	require.NoError(t, err)

	verified, err := h.service.VerifyEmail(ctx, username, account.OTPCode)
	require.NoError(t, err)
	return verified
}

func (h *harness) bootstrapAdmin(t *testing.T) (*accounts.Account, accounts.ActorRef) {
	t.Helper()
	admin, created, err := h.service.BootstrapAdmin(context.Background(), accounts.BootstrapAdminMessage{
		Username: "root_admin",
		Email:    "admin@example.com",
		Password: "admin-password-1",
	})
	require.NoError(t, err)
	require.True(t, created)
	return admin, accounts.ActorRef{ID: admin.ID.String(), Type: accounts.ActorTypeAdmin}
}
