package httpapi

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"colschool.org/internal/auth"
	"colschool.org/internal/payments"
)

const (
	testAuthSecret     = "test-auth-secret"
	testProviderSecret = "test-provider-secret"
)

type apiClient struct {
	baseURL string
	client  *http.Client
	t       *testing.T

	authStore *auth.InMemory
	payStore  *payments.InMemory
	notifier  *captureNotifier
}

// captureNotifier records tokens so tests can follow the delivered links.
type captureNotifier struct {
	mu          sync.Mutex
	verifyToken string
	resetToken  string
}

func (n *captureNotifier) VerificationIssued(ctx context.Context, p *auth.Principal, token string, expiresAt time.Time) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.verifyToken = token
}

func (n *captureNotifier) PasswordResetIssued(ctx context.Context, p *auth.Principal, token string, expiresAt time.Time) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.resetToken = token
}

func (n *captureNotifier) TutorAccountCreated(ctx context.Context, p *auth.Principal, password string) {}

type fakeProvider struct{}

func (fakeProvider) Initialize(ctx context.Context, req payments.InitializeRequest) (payments.InitializeResponse, error) {
	return payments.InitializeResponse{
		AuthorizationURL: "https://checkout.example/" + req.Reference,
		AccessCode:       "ac_test",
		Reference:        req.Reference,
	}, nil
}

func newTestAPI(t *testing.T) *apiClient {
	t.Helper()

	authStore := auth.NewInMemory()
	notifier := &captureNotifier{}
	authSvc, err := auth.NewService(authStore, testAuthSecret, auth.WithNotifier(notifier))
	if err != nil {
		t.Fatalf("auth.NewService: %v", err)
	}

	payStore := payments.NewInMemory(authStore)
	initiator := payments.NewInitiator(payStore, fakeProvider{})
	reconciler, err := payments.NewReconciler(payStore, testProviderSecret)
	if err != nil {
		t.Fatalf("payments.NewReconciler: %v", err)
	}

	api := New(ReadyProbe{}, "test", authSvc, initiator, reconciler)
	api.rateBurst = 1000
	api.ratePerSec = 1000

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	return &apiClient{
		baseURL:   srv.URL,
		client:    srv.Client(),
		t:         t,
		authStore: authStore,
		payStore:  payStore,
		notifier:  notifier,
	}
}

func (c *apiClient) do(method, path string, body any, headers map[string]string) *http.Response {
	c.t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal body: %v", err)
		}
	}
	req, err := http.NewRequest(method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("do request: %v", err)
	}
	return resp
}

func (c *apiClient) post(path string, body any, headers map[string]string) *http.Response {
	return c.do(http.MethodPost, path, body, headers)
}

func (c *apiClient) get(path string, params url.Values, headers map[string]string) *http.Response {
	c.t.Helper()
	u := c.baseURL + path
	if params != nil {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("get request: %v", err)
	}
	return resp
}

func decode[T any](t *testing.T, r *http.Response) T {
	t.Helper()
	defer r.Body.Close()
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func sign(body []byte) string {
	mac := hmac.New(sha512.New, []byte(testProviderSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// seedAdmin creates an admin account directly in the store.
func (c *apiClient) seedAdmin(email, password string) {
	c.t.Helper()
	hash, err := auth.HashPassword(password)
	if err != nil {
		c.t.Fatalf("hash password: %v", err)
	}
	p := &auth.Principal{
		Email:        email,
		Role:         auth.RoleAdmin,
		PasswordHash: hash,
		Active:       true,
		Staff:        true,
		Verified:     true,
		Approved:     true,
	}
	if err := c.authStore.Create(context.Background(), p); err != nil {
		c.t.Fatalf("seed admin: %v", err)
	}
}

func (c *apiClient) login(role, email, password string) sessionResponse {
	c.t.Helper()
	resp := c.post("/v1/auth/login/"+role, map[string]string{"email": email, "password": password}, nil)
	if resp.StatusCode != http.StatusOK {
		body := decode[errorBody](c.t, resp)
		c.t.Fatalf("login status %d: %+v", resp.StatusCode, body)
	}
	return decode[sessionResponse](c.t, resp)
}

type sessionResponse struct {
	User   auth.Principal   `json:"user"`
	Tokens auth.SessionPair `json:"tokens"`
}

func TestHealthAndInfo(t *testing.T) {
	c := newTestAPI(t)

	resp := c.get("/healthz", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = c.get("/v1/info", nil, nil)
	info := decode[map[string]string](t, resp)
	if info["version"] != "test" {
		t.Fatalf("info = %v", info)
	}
}

func TestStudentLifecycle(t *testing.T) {
	c := newTestAPI(t)

	// Register.
	resp := c.post("/v1/auth/register-student", map[string]any{
		"email":      "ada@example.edu",
		"password":   "s3cret-pass",
		"first_name": "Ada",
		"last_name":  "Obi",
		"faculty":    "Science",
		"department": "Physics",
	}, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Login is blocked until the email is verified.
	resp = c.post("/v1/auth/login/student", map[string]string{
		"email": "ada@example.edu", "password": "s3cret-pass",
	}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unverified login status %d", resp.StatusCode)
	}
	if body := decode[errorBody](t, resp); body.Code != "EMAIL_NOT_VERIFIED" {
		t.Fatalf("code = %q", body.Code)
	}

	// Verify via the delivered token.
	resp = c.get("/v1/auth/verify", url.Values{"token": {c.notifier.verifyToken}}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("verify status %d", resp.StatusCode)
	}
	verified := decode[sessionResponse](t, resp)
	if !verified.User.Verified || verified.Tokens.Access == "" {
		t.Fatalf("verify response = %+v", verified)
	}

	// Still blocked: the registration fee is unpaid.
	resp = c.post("/v1/auth/login/student", map[string]string{
		"email": "ada@example.edu", "password": "s3cret-pass",
	}, nil)
	if body := decode[errorBody](t, resp); body.Code != "REGISTRATION_FEE_REQUIRED" {
		t.Fatalf("code = %q", body.Code)
	}

	// Initiate the registration payment with the post-verification session.
	resp = c.post("/v1/payments/registration", map[string]any{"amount": 500000},
		bearer(verified.Tokens.Access))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("initiate status %d", resp.StatusCode)
	}
	initiated := decode[struct {
		Payment payments.Payment `json:"payment"`
	}](t, resp)
	if initiated.Payment.Reference == "" {
		t.Fatal("no reference assigned")
	}

	// Provider confirms the charge.
	event := []byte(`{"event":"charge.success","data":{"reference":"` + initiated.Payment.Reference +
		`","amount":500000,"metadata":{"purpose":"registration"}}}`)
	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/v1/payments/webhook", bytes.NewReader(event))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set(signatureHeader, sign(event))
	webhookResp, err := c.client.Do(req)
	if err != nil {
		t.Fatalf("webhook request: %v", err)
	}
	if webhookResp.StatusCode != http.StatusOK {
		t.Fatalf("webhook status %d", webhookResp.StatusCode)
	}
	webhookResp.Body.Close()

	// Login now succeeds.
	session := c.login("student", "ada@example.edu", "s3cret-pass")
	if !session.User.PaidReg {
		t.Fatal("paid_reg not set after reconciliation")
	}

	// And the refresh token rotates into a working session.
	resp = c.post("/v1/auth/refresh", map[string]string{"refresh": session.Tokens.Refresh}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("refresh status %d", resp.StatusCode)
	}
	rotated := decode[struct {
		Tokens auth.SessionPair `json:"tokens"`
	}](t, resp)
	resp = c.get("/v1/payments", nil, bearer(rotated.Tokens.Access))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list payments status %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	c := newTestAPI(t)

	event := []byte(`{"event":"charge.success","data":{"reference":"REG-1-AAAAAA","amount":100,"metadata":{"purpose":"registration"}}}`)
	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/v1/payments/webhook", bytes.NewReader(event))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set(signatureHeader, "deadbeef")
	resp, err := c.client.Do(req)
	if err != nil {
		t.Fatalf("webhook request: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", resp.StatusCode)
	}
	if body := decode[errorBody](t, resp); body.Code != "INVALID_SIGNATURE" {
		t.Fatalf("code = %q", body.Code)
	}
}

func TestWebhookUnknownReferenceIgnored(t *testing.T) {
	c := newTestAPI(t)

	event := []byte(`{"event":"charge.success","data":{"reference":"REG-1-ZZZZZZ","amount":100,"metadata":{"purpose":"registration"}}}`)
	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/v1/payments/webhook", bytes.NewReader(event))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set(signatureHeader, sign(event))
	resp, err := c.client.Do(req)
	if err != nil {
		t.Fatalf("webhook request: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d, want benign 200", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestLoginDenialStatuses(t *testing.T) {
	c := newTestAPI(t)
	c.seedAdmin("admin@example.edu", "admin-pass-1")

	// Unknown account.
	resp := c.post("/v1/auth/login/admin", map[string]string{
		"email": "nobody@example.edu", "password": "whatever",
	}, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unknown status %d", resp.StatusCode)
	}
	if body := decode[errorBody](t, resp); body.Code != "INVALID_CREDENTIALS" {
		t.Fatalf("code = %q", body.Code)
	}

	// Admin at the student endpoint.
	resp = c.post("/v1/auth/login/student", map[string]string{
		"email": "admin@example.edu", "password": "admin-pass-1",
	}, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("wrong type status %d", resp.StatusCode)
	}
	if body := decode[errorBody](t, resp); body.Code != "WRONG_ACCOUNT_TYPE" {
		t.Fatalf("code = %q", body.Code)
	}

	// Deactivated account.
	admin, err := c.authStore.FindByEmail(context.Background(), "admin@example.edu")
	if err != nil {
		t.Fatalf("find admin: %v", err)
	}
	if err := c.authStore.SetActive(context.Background(), admin.ID, false); err != nil {
		t.Fatalf("deactivate admin: %v", err)
	}
	resp = c.post("/v1/auth/login/admin", map[string]string{
		"email": "admin@example.edu", "password": "admin-pass-1",
	}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("deactivated status %d", resp.StatusCode)
	}
	if body := decode[errorBody](t, resp); body.Code != "ACCOUNT_DEACTIVATED" {
		t.Fatalf("code = %q", body.Code)
	}
}

func TestResendVerificationAlreadyVerified(t *testing.T) {
	c := newTestAPI(t)
	c.seedAdmin("admin@example.edu", "admin-pass-1")

	resp := c.post("/v1/auth/resend-verification", map[string]string{
		"email": "admin@example.edu",
	}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if body := decode[errorBody](t, resp); body.Code != "ALREADY_VERIFIED" {
		t.Fatalf("code = %q", body.Code)
	}

	// Unknown accounts still get the generic 200.
	resp = c.post("/v1/auth/resend-verification", map[string]string{
		"email": "nobody@example.edu",
	}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unknown-account status %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestTutorRegistrationRequiresAdmin(t *testing.T) {
	c := newTestAPI(t)
	c.seedAdmin("admin@example.edu", "admin-pass-1")

	// No token.
	resp := c.post("/v1/auth/register-tutor", map[string]string{
		"email": "tutor@example.edu", "password": "tutor-pass-1",
	}, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("anonymous status %d", resp.StatusCode)
	}
	resp.Body.Close()

	admin := c.login("admin", "admin@example.edu", "admin-pass-1")
	resp = c.post("/v1/auth/register-tutor", map[string]string{
		"email": "tutor@example.edu", "password": "tutor-pass-1",
	}, bearer(admin.Tokens.Access))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("admin-created tutor status %d", resp.StatusCode)
	}
	resp.Body.Close()

	// The tutor can log in immediately: born verified.
	tutor := c.login("tutor", "tutor@example.edu", "tutor-pass-1")
	if !tutor.User.Verified {
		t.Fatal("tutor not verified at creation")
	}

	// Tutors cannot create more tutors.
	resp = c.post("/v1/auth/register-tutor", map[string]string{
		"email": "tutor2@example.edu", "password": "tutor-pass-2",
	}, bearer(tutor.Tokens.Access))
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("tutor-created tutor status %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestListUsersCapabilityGate(t *testing.T) {
	c := newTestAPI(t)
	c.seedAdmin("admin@example.edu", "admin-pass-1")
	admin := c.login("admin", "admin@example.edu", "admin-pass-1")

	resp := c.get("/v1/users", url.Values{"role": {"admin"}}, bearer(admin.Tokens.Access))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("admin list status %d", resp.StatusCode)
	}
	listing := decode[struct {
		Users []auth.Principal `json:"users"`
		Count int              `json:"count"`
	}](t, resp)
	if listing.Count != 1 || listing.Users[0].Email != "admin@example.edu" {
		t.Fatalf("listing = %+v", listing)
	}

	resp = c.get("/v1/users", nil, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("anonymous list status %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestPasswordResetEndpoints(t *testing.T) {
	c := newTestAPI(t)
	c.seedAdmin("admin@example.edu", "old-pass-123")

	resp := c.post("/v1/auth/password-reset/request", map[string]string{"email": "admin@example.edu"}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("request status %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Unknown emails get the same generic answer.
	resp = c.post("/v1/auth/password-reset/request", map[string]string{"email": "ghost@example.edu"}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unknown email status %d", resp.StatusCode)
	}
	resp.Body.Close()

	if c.notifier.resetToken == "" {
		t.Fatal("reset token not delivered")
	}
	resp = c.do(http.MethodPatch, "/v1/auth/password-reset", map[string]string{
		"token": c.notifier.resetToken, "password": "new-pass-456",
	}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("reset status %d", resp.StatusCode)
	}
	resp.Body.Close()

	c.login("admin", "admin@example.edu", "new-pass-456")
}

func TestExpiredAccessTokenCode(t *testing.T) {
	authStore := auth.NewInMemory()
	clock := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	authSvc, err := auth.NewService(authStore, testAuthSecret,
		auth.WithClock(func() time.Time { return clock }))
	if err != nil {
		t.Fatalf("auth.NewService: %v", err)
	}
	hash, err := auth.HashPassword("s3cret-pass")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	p := &auth.Principal{Email: "a@example.edu", Role: auth.RoleAdmin, PasswordHash: hash, Active: true, Verified: true}
	if err := authStore.Create(context.Background(), p); err != nil {
		t.Fatalf("create: %v", err)
	}
	pair, err := authSvc.IssueSessionPair(p)
	if err != nil {
		t.Fatalf("IssueSessionPair: %v", err)
	}

	payStore := payments.NewInMemory(authStore)
	reconciler, err := payments.NewReconciler(payStore, testProviderSecret)
	if err != nil {
		t.Fatalf("NewReconciler: %v", err)
	}
	api := New(ReadyProbe{}, "test", authSvc, payments.NewInitiator(payStore, fakeProvider{}), reconciler)
	srv := httptest.NewServer(api.Handler())
	defer srv.Close()

	// Jump past the access TTL.
	clock = clock.Add(31 * time.Minute)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/v1/users", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+pair.Access)
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if body := decode[errorBody](t, resp); body.Code != "TOKEN_EXPIRED" {
		t.Fatalf("code = %q", body.Code)
	}
}
