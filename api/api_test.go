package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	accounts "github.com/goliatone/go-accounts"
	"github.com/goliatone/go-accounts/api"
	"github.com/goliatone/go-accounts/persistence"
)

type mailbox struct {
	mu     sync.Mutex
	bodies []string
	err    error
}

func (m *mailbox) Send(_ context.Context, _, _, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.bodies = append(m.bodies, body)
	return nil
}

func (m *mailbox) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.bodies)
}

type counterOTP struct {
	mu   sync.Mutex
	next int
}

// Generate returns 100001, 100002, ...
func (g *counterOTP) Generate() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return fmtCode(100000 + g.next), nil
}

func fmtCode(n int) string {
	return strconv.Itoa(n)
}

type testServer struct {
	app     *fiber.App
	service *accounts.Service
	mail    *mailbox
	otp     *counterOTP
}

func newTestServer(t *testing.T, opts ...api.ControllerOption) *testServer {
	t.Helper()

	db, err := persistence.Open(persistence.DriverSQLite, "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repos := accounts.NewRepositoryManager(db)
	require.NoError(t, repos.Migrate(context.Background()))

	tokens, err := accounts.NewTokenService(accounts.TokenOptions{
		AccessSigningKey:  []byte("api-access-secret-0001"),
		RefreshSigningKey: []byte("api-refresh-secret-0002"),
		AccessTTL:         10 * time.Minute,
		RefreshTTL:        time.Hour,
		Issuer:            "accounts-api-test",
	}, nil)
	require.NoError(t, err)

	srv := &testServer{mail: &mailbox{}, otp: &counterOTP{}}

	mailer, err := accounts.NewMailer(srv.mail)
	require.NoError(t, err)

	srv.service = accounts.NewService(repos.Accounts(), tokens,
		accounts.WithPasswordHasher(accounts.BcryptHasher{Cost: bcrypt.MinCost}),
		accounts.WithOTPGenerator(srv.otp),
		accounts.WithMailer(mailer),
		accounts.WithAvatarStore(accounts.AvatarStoreFunc(func(_ context.Context, _ accounts.AvatarUpload, identifier string) (string, error) {
			return "https://cdn.test/profiles/user_" + identifier, nil
		})),
	)

	base := []api.ControllerOption{
		api.WithService(srv.service),
		api.WithTokens(tokens),
		api.WithSecureCookies(false),
		api.WithRateLimits(api.RateLimits{Register: 50, Verify: 50, Resend: 50}),
	}
	srv.app = api.NewApp(api.NewController(append(base, opts...)...), 0)
	return srv
}

type request struct {
	method  string
	path    string
	body    any
	token   string
	cookies []*http.Cookie
}

func (s *testServer) do(t *testing.T, r request) (*http.Response, map[string]any) {
	t.Helper()

	var body io.Reader
	if r.body != nil {
		raw, err := json.Marshal(r.body)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(r.method, r.path, body)
	if r.body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if r.token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+r.token)
	}
	for _, c := range r.cookies {
		req.AddCookie(c)
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)

	out := map[string]any{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp, out
}

func registerBody(username string) map[string]any {
	return map[string]any{
		"username": username,
		"email":    username + "@example.com",
		"password": "correct-horse-1",
		"name":     "Test User",
		"country":  "US",
		"gender":   "male",
	}
}

// signup registers and verifies username, returning its access token.
func (s *testServer) signup(t *testing.T, username string) string {
	t.Helper()

	resp, _ := s.do(t, request{method: http.MethodPost, path: "/api/auth/register", body: registerBody(username)})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	code := fmtCode(100000 + s.otp.next)
	resp, _ = s.do(t, request{method: http.MethodPost, path: "/api/auth/verify-email", body: map[string]any{"username": username, "otp": code}})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	return s.login(t, username, "correct-horse-1")
}

func (s *testServer) login(t *testing.T, identifier, password string) string {
	t.Helper()
	resp, body := s.do(t, request{method: http.MethodPost, path: "/api/auth/login", body: map[string]any{"identifier": identifier, "password": password}})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	token, _ := body["access_token"].(string)
	require.NotEmpty(t, token)
	return token
}

func (s *testServer) adminToken(t *testing.T) string {
	t.Helper()
	_, _, err := s.service.BootstrapAdmin(context.Background(), accounts.BootstrapAdminMessage{
		Username: "site_admin",
		Email:    "admin@example.com",
		Password: "admin-password-1",
	})
	require.NoError(t, err)
	return s.login(t, "site_admin", "admin-password-1")
}

func errorCode(body map[string]any) string {
	payload, _ := body["error"].(map[string]any)
	code, _ := payload["code"].(string)
	return code
}

func findCookie(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestAuthFlow(t *testing.T) {
	srv := newTestServer(t)

	resp, body := srv.do(t, request{method: http.MethodPost, path: "/api/auth/register", body: registerBody("jane_doe")})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	user, _ := body["user"].(map[string]any)
	assert.Equal(t, "jane_doe", user["username"])
	assert.Equal(t, false, user["email_verified"])
	assert.NotContains(t, user, "password_hash")
	assert.Equal(t, 1, srv.mail.Count())

	resp, body = srv.do(t, request{method: http.MethodPost, path: "/api/auth/login", body: map[string]any{"identifier": "jane_doe", "password": "correct-horse-1"}})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, accounts.TextCodeEmailNotVerified, errorCode(body))

	resp, body = srv.do(t, request{method: http.MethodPost, path: "/api/auth/verify-email", body: map[string]any{"username": "jane_doe", "otp": "999999"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, accounts.TextCodeInvalidOTP, errorCode(body))

	resp, _ = srv.do(t, request{method: http.MethodPost, path: "/api/auth/verify-email", body: map[string]any{"username": "jane_doe", "otp": "100001"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = srv.do(t, request{method: http.MethodPost, path: "/api/auth/login", body: map[string]any{"identifier": "jane_doe@example.com", "password": "correct-horse-1"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "bearer", body["token_type"])
	access, _ := body["access_token"].(string)
	require.NotEmpty(t, access)

	refresh := findCookie(resp, api.RefreshCookieName)
	require.NotNil(t, refresh)
	assert.True(t, refresh.HttpOnly)
	assert.NotEmpty(t, refresh.Value)

	resp, body = srv.do(t, request{method: http.MethodGet, path: "/api/auth/me", token: access})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "jane_doe@example.com", body["email"])

	resp, body = srv.do(t, request{method: http.MethodGet, path: "/api/auth/validate-token", token: access})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "user", body["role"])
	assert.NotEmpty(t, body["userId"])

	resp, body = srv.do(t, request{method: http.MethodPost, path: "/api/auth/refresh", cookies: []*http.Cookie{refresh}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, body["access_token"])
	assert.NotNil(t, findCookie(resp, api.RefreshCookieName))

	resp, _ = srv.do(t, request{method: http.MethodPost, path: "/api/auth/refresh", body: map[string]any{"refresh_token": refresh.Value}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = srv.do(t, request{method: http.MethodPost, path: "/api/auth/refresh", body: map[string]any{"refresh_token": access}})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = srv.do(t, request{method: http.MethodPost, path: "/api/auth/logout"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cleared := findCookie(resp, api.RefreshCookieName)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)
}

func TestRegisterValidationAndConflicts(t *testing.T) {
	srv := newTestServer(t)

	bad := registerBody("jane_doe")
	bad["email"] = "not-an-email"
	bad["password"] = "short"
	resp, body := srv.do(t, request{method: http.MethodPost, path: "/api/auth/register", body: bad})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, accounts.TextCodeInvalidPayload, errorCode(body))
	payload, _ := body["error"].(map[string]any)
	fields, _ := payload["fields"].(map[string]any)
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "password")

	resp, _ = srv.do(t, request{method: http.MethodPost, path: "/api/auth/register", body: registerBody("jane_doe")})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body = srv.do(t, request{method: http.MethodPost, path: "/api/auth/register", body: registerBody("jane_doe")})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, accounts.TextCodeUsernameTaken, errorCode(body))
}

func TestRegisterAcceptedWhenMailFails(t *testing.T) {
	srv := newTestServer(t)
	srv.mail.err = errors.New("smtp down")

	resp, body := srv.do(t, request{method: http.MethodPost, path: "/api/auth/register", body: registerBody("jane_doe")})
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Contains(t, body, "user")

	resp, body = srv.do(t, request{method: http.MethodPost, path: "/api/auth/resend-otp", body: map[string]any{"username": "jane_doe"}})
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, accounts.TextCodeNotificationFailed, errorCode(body))
}

func TestLoginFailures(t *testing.T) {
	srv := newTestServer(t)
	srv.signup(t, "jane_doe")

	resp, unknown := srv.do(t, request{method: http.MethodPost, path: "/api/auth/login", body: map[string]any{"identifier": "ghost", "password": "whatever-pass"}})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, wrong := srv.do(t, request{method: http.MethodPost, path: "/api/auth/login", body: map[string]any{"identifier": "jane_doe", "password": "whatever-pass"}})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, unknown, wrong)

	resp, body := srv.do(t, request{method: http.MethodPost, path: "/api/auth/login", body: map[string]any{"identifier": "jane_doe"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, accounts.TextCodeInvalidPayload, errorCode(body))
}

func TestProtectedRoutes(t *testing.T) {
	srv := newTestServer(t)
	token := srv.signup(t, "jane_doe")

	resp, body := srv.do(t, request{method: http.MethodGet, path: "/api/auth/me"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, accounts.TextCodeMissingToken, errorCode(body))

	resp, _ = srv.do(t, request{method: http.MethodGet, path: "/api/auth/me", token: "garbage"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body = srv.do(t, request{method: http.MethodGet, path: "/api/admin/accounts", token: token})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, accounts.TextCodeInsufficientRole, errorCode(body))
}

func TestProfileEndpoints(t *testing.T) {
	srv := newTestServer(t)
	token := srv.signup(t, "jane_doe")

	resp, body := srv.do(t, request{method: http.MethodPut, path: "/api/auth/me", token: token, body: map[string]any{"name": "Jane Doe", "phone": "(650) 253-0000"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Jane Doe", body["name"])
	assert.Equal(t, "+16502530000", body["phone"])

	resp, body = srv.do(t, request{method: http.MethodPut, path: "/api/auth/me", token: token, body: map[string]any{"gender": "robot"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, accounts.TextCodeInvalidPayload, errorCode(body))

	resp, body = srv.do(t, request{method: http.MethodGet, path: "/api/auth/jane_doe"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Jane Doe", body["name"])
	assert.NotContains(t, body, "email")
	assert.NotContains(t, body, "phone")

	resp, _ = srv.do(t, request{method: http.MethodGet, path: "/api/auth/ghost"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestChangePasswordEndpoint(t *testing.T) {
	srv := newTestServer(t)
	token := srv.signup(t, "jane_doe")

	resp, body := srv.do(t, request{method: http.MethodPost, path: "/api/auth/change-password", token: token, body: map[string]any{"old_password": "nope-nope-nope", "new_password": "brand-new-pass"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, accounts.TextCodeWrongPassword, errorCode(body))

	resp, _ = srv.do(t, request{method: http.MethodPost, path: "/api/auth/change-password", token: token, body: map[string]any{"old_password": "correct-horse-1", "new_password": "brand-new-pass"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	srv.login(t, "jane_doe", "brand-new-pass")
}

func TestPasswordResetEndpoints(t *testing.T) {
	srv := newTestServer(t)
	srv.signup(t, "jane_doe")

	resp, body := srv.do(t, request{method: http.MethodPost, path: "/api/auth/forgot-password", body: map[string]any{"email": "ghost@example.com"}})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, accounts.TextCodeAccountNotFound, errorCode(body))

	resp, _ = srv.do(t, request{method: http.MethodPost, path: "/api/auth/forgot-password", body: map[string]any{"email": "jane_doe@example.com"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = srv.do(t, request{method: http.MethodPost, path: "/api/auth/reset-password", body: map[string]any{"email": "jane_doe@example.com", "otp": "100002", "new_password": "brand-new-pass"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = srv.do(t, request{method: http.MethodPost, path: "/api/auth/reset-password", body: map[string]any{"email": "jane_doe@example.com", "otp": "100002", "new_password": "brand-new-pass"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, accounts.TextCodeNoPendingReset, errorCode(body))

	srv.login(t, "jane_doe", "brand-new-pass")
}

func TestResetPasswordUnknownEmail(t *testing.T) {
	srv := newTestServer(t)

	resp, body := srv.do(t, request{method: http.MethodPost, path: "/api/auth/reset-password", body: map[string]any{"email": "ghost@example.com", "otp": "123456", "new_password": "brand-new-pass"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, accounts.TextCodeNoPendingReset, errorCode(body))
}

func TestRefreshCookieSecureFlag(t *testing.T) {
	srv := newTestServer(t, api.WithSecureCookies(true))
	srv.signup(t, "jane_doe")

	resp, _ := srv.do(t, request{method: http.MethodPost, path: "/api/auth/login", body: map[string]any{"identifier": "jane_doe", "password": "correct-horse-1"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	refresh := findCookie(resp, api.RefreshCookieName)
	require.NotNil(t, refresh)
	assert.True(t, refresh.Secure)

	assert.True(t, api.NewController().CookieSecure)
}

func TestCreatorApplicationFlow(t *testing.T) {
	srv := newTestServer(t)
	admin := srv.adminToken(t)
	user := srv.signup(t, "jane_doe")

	resp, body := srv.do(t, request{method: http.MethodPost, path: "/api/auth/apply-creator", token: user})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	applied, _ := body["user"].(map[string]any)
	assert.Equal(t, "pending", applied["creator_application_status"])

	resp, body = srv.do(t, request{method: http.MethodPost, path: "/api/auth/apply-creator", token: user})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, accounts.TextCodeApplicationExists, errorCode(body))

	req := httptest.NewRequest(http.MethodGet, "/api/admin/creator-applications", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+admin)
	listResp, err := srv.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, listResp.StatusCode)
	var pending []map[string]any
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&pending))
	require.Len(t, pending, 1)
	assert.Equal(t, "jane_doe", pending[0]["username"])

	resp, body = srv.do(t, request{method: http.MethodPost, path: "/api/admin/accounts/jane_doe/approve-creator", token: admin, body: map[string]any{"reason": "strong portfolio"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "creator", body["role"])
	assert.Equal(t, "approved", body["creator_application_status"])

	resp, body = srv.do(t, request{method: http.MethodPost, path: "/api/admin/accounts/jane_doe/reject-creator", token: admin})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, accounts.TextCodeApplicationNotPending, errorCode(body))
}

func TestAdminAccountManagement(t *testing.T) {
	srv := newTestServer(t)
	admin := srv.adminToken(t)
	srv.signup(t, "jane_doe")

	resp, body := srv.do(t, request{method: http.MethodPut, path: "/api/admin/accounts/jane_doe/role", token: admin, body: map[string]any{"role": "owner"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, accounts.TextCodeInvalidPayload, errorCode(body))

	resp, body = srv.do(t, request{method: http.MethodPut, path: "/api/admin/accounts/jane_doe/role", token: admin, body: map[string]any{"role": "creator"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "creator", body["role"])

	resp, body = srv.do(t, request{method: http.MethodPost, path: "/api/admin/accounts/jane_doe/suspend", token: admin, body: map[string]any{"reason": "spam"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "suspended", body["status"])

	resp, body = srv.do(t, request{method: http.MethodPost, path: "/api/auth/login", body: map[string]any{"identifier": "jane_doe", "password": "correct-horse-1"}})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, accounts.TextCodeAccountInactive, errorCode(body))

	resp, body = srv.do(t, request{method: http.MethodPost, path: "/api/admin/accounts/jane_doe/reactivate", token: admin})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "active", body["status"])

	resp, body = srv.do(t, request{method: http.MethodPost, path: "/api/admin/accounts/jane_doe/block", token: admin})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "blocked", body["status"])

	resp, _ = srv.do(t, request{method: http.MethodPost, path: "/api/admin/accounts/ghost/suspend", token: admin})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRateLimit(t *testing.T) {
	srv := newTestServer(t, api.WithRateLimits(api.RateLimits{Resend: 1}))
	srv.do(t, request{method: http.MethodPost, path: "/api/auth/register", body: registerBody("jane_doe")})

	resp, _ := srv.do(t, request{method: http.MethodPost, path: "/api/auth/resend-otp", body: map[string]any{"username": "jane_doe"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := srv.do(t, request{method: http.MethodPost, path: "/api/auth/resend-otp", body: map[string]any{"username": "jane_doe"}})
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, accounts.TextCodeTooManyRequests, errorCode(body))
}

func TestAvatarUpload(t *testing.T) {
	srv := newTestServer(t)
	token := srv.signup(t, "jane_doe")

	upload := func(contentType string, data []byte) *http.Response {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", `form-data; name="file"; filename="avatar"`)
		header.Set("Content-Type", contentType)
		part, err := w.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
		require.NoError(t, w.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/auth/me/avatar", &buf)
		req.Header.Set(fiber.HeaderContentType, w.FormDataContentType())
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
		resp, err := srv.app.Test(req, -1)
		require.NoError(t, err)
		return resp
	}

	resp := upload("text/plain", []byte("hello"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = upload("image/png", []byte{0x89, 'P', 'N', 'G'})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var detail map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&detail))
	assert.Equal(t, "https://cdn.test/profiles/user_jane_doe", detail["profile_photo_url"])

	req := httptest.NewRequest(http.MethodPost, "/api/auth/me/avatar", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	resp, err := srv.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLegacyRoutes(t *testing.T) {
	srv := newTestServer(t)
	admin := srv.adminToken(t)
	srv.signup(t, "jane_doe")

	resp, body := srv.do(t, request{method: http.MethodPost, path: "/api/auth/login", body: map[string]any{"username_or_email": "jane_doe@example.com", "password": "correct-horse-1"}})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	token, _ := body["access_token"].(string)
	require.NotEmpty(t, token)
	refresh := findCookie(resp, api.RefreshCookieName)
	require.NotNil(t, refresh)

	resp, body = srv.do(t, request{method: http.MethodPost, path: "/api/auth/refresh-token", cookies: []*http.Cookie{refresh}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, body["access_token"])

	resp, _ = srv.do(t, request{method: http.MethodPut, path: "/api/auth/me/password", token: token, body: map[string]any{"old_password": "correct-horse-1", "new_password": "brand-new-pass"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token = srv.login(t, "jane_doe", "brand-new-pass")

	resp, _ = srv.do(t, request{method: http.MethodPost, path: "/api/auth/me/apply-creator", token: token})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = srv.do(t, request{method: http.MethodGet, path: "/api/admin/users/creator-applications", token: admin})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = srv.do(t, request{method: http.MethodPut, path: "/api/admin/users/jane_doe/approve", token: admin})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "creator", body["role"])

	resp, body = srv.do(t, request{method: http.MethodPut, path: "/api/admin/users/jane_doe/suspend", token: admin, body: map[string]any{"reason": "spam"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "suspended", body["status"])

	resp, _ = srv.do(t, request{method: http.MethodGet, path: "/api/admin/users", token: admin})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
