package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	chronoseal "github.com/chronoseal/capsule-go"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// newTestServer opens a keyed vault and wraps it in a server.
func newTestServer(t *testing.T, clock *fakeClock, cfg Config) *Server {
	t.Helper()

	vault, err := chronoseal.Open(t.TempDir(), chronoseal.WithClock(clock.Now))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { vault.Close() })

	if _, err := vault.GenerateKeys(); err != nil {
		t.Fatalf("GenerateKeys() error = %v", err)
	}
	return New(vault, cfg)
}

// doJSON runs one request through the full middleware chain.
func doJSON(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("response body %q does not decode: %v", rec.Body.String(), err)
	}
}

func TestHealthEndpoint(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)}
	s := newTestServer(t, clock, Config{})

	rec := doJSON(t, s, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /healthz = %d, want 200", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)}
	s := newTestServer(t, clock, Config{})

	rec := doJSON(t, s, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /metrics = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "chronoseal_capsules_stored") {
		t.Error("metrics output is missing the vault gauges")
	}
}

func TestCreateAndListCapsules(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)}
	s := newTestServer(t, clock, Config{})

	rec := doJSON(t, s, http.MethodPost, "/api/capsules",
		`{"message": "Hello, future world!", "unlock_date": "2035-01-01"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /api/capsules = %d, body %s", rec.Code, rec.Body.String())
	}

	var created capsuleResponse
	decodeBody(t, rec, &created)
	if created.Index != 0 || created.Status != "locked" {
		t.Errorf("created = %+v, want index 0 locked", created)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/capsules", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/capsules = %d", rec.Code)
	}
	var list capsuleListResponse
	decodeBody(t, rec, &list)
	if list.Total != 1 || len(list.Capsules) != 1 {
		t.Fatalf("list = %+v, want 1 capsule", list)
	}
	if list.Capsules[0].UnlockDate != "2035-01-01" {
		t.Errorf("unlock_date = %q, want 2035-01-01", list.Capsules[0].UnlockDate)
	}
}

func TestCreateCapsuleRejectsInvalidInput(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)}
	s := newTestServer(t, clock, Config{})

	tests := []struct {
		name string
		body string
	}{
		{"empty message", `{"message": "", "unlock_date": "2035-01-01"}`},
		{"bad date", `{"message": "hi", "unlock_date": "01/01/2035"}`},
		{"not json", `{{{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, s, http.MethodPost, "/api/capsules", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400; body %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestDecryptCapsuleTimeLocked(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)}
	s := newTestServer(t, clock, Config{})

	rec := doJSON(t, s, http.MethodPost, "/api/capsules",
		`{"message": "sealed", "unlock_date": "2035-01-01"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create = %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodPost, "/api/capsules/0/decrypt", "")
	if rec.Code != http.StatusLocked {
		t.Fatalf("decrypt while locked = %d, want 423; body %s", rec.Code, rec.Body.String())
	}
	var errResp errorResponse
	decodeBody(t, rec, &errResp)
	if errResp.Code != "time_locked" {
		t.Errorf("code = %q, want time_locked", errResp.Code)
	}
	if errResp.UnlockDate != "2035-01-01" {
		t.Errorf("unlock_date = %q, want 2035-01-01", errResp.UnlockDate)
	}

	// The day arrives.
	clock.Set(time.Date(2035, 1, 1, 0, 0, 0, 0, time.UTC))
	rec = doJSON(t, s, http.MethodPost, "/api/capsules/0/decrypt", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("decrypt after unlock = %d; body %s", rec.Code, rec.Body.String())
	}
	var result decryptResponse
	decodeBody(t, rec, &result)
	if result.Plaintext != "sealed" {
		t.Errorf("plaintext = %q, want %q", result.Plaintext, "sealed")
	}
}

func TestCapsuleIndexErrors(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)}
	s := newTestServer(t, clock, Config{})

	rec := doJSON(t, s, http.MethodGet, "/api/capsules/5", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing index status = %d, want 404", rec.Code)
	}
	var errResp errorResponse
	decodeBody(t, rec, &errResp)
	if errResp.Code != "index_out_of_range" {
		t.Errorf("code = %q, want index_out_of_range", errResp.Code)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/capsules/abc", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("non-numeric index status = %d, want 400", rec.Code)
	}
}

func TestVerifyCapsuleEndpoint(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)}
	s := newTestServer(t, clock, Config{})

	rec := doJSON(t, s, http.MethodPost, "/api/capsules",
		`{"message": "authentic", "unlock_date": "2099-01-01"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create = %d", rec.Code)
	}

	// Verification succeeds while the capsule is still locked.
	rec = doJSON(t, s, http.MethodPost, "/api/capsules/0/verify", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("verify = %d; body %s", rec.Code, rec.Body.String())
	}
	var result verifyResponse
	decodeBody(t, rec, &result)
	if !result.Verified {
		t.Errorf("verified = false, reason %q", result.Reason)
	}
}

func TestKeyEndpoints(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)}

	vault, err := chronoseal.Open(t.TempDir(), chronoseal.WithClock(clock.Now))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer vault.Close()
	s := New(vault, Config{})

	// No keys yet.
	rec := doJSON(t, s, http.MethodGet, "/api/keys", "")
	if rec.Code != http.StatusPreconditionFailed {
		t.Fatalf("GET /api/keys without keys = %d, want 412", rec.Code)
	}

	// Generate; the phrase appears exactly once.
	rec = doJSON(t, s, http.MethodPost, "/api/keys", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /api/keys = %d; body %s", rec.Code, rec.Body.String())
	}
	var generated keysResponse
	decodeBody(t, rec, &generated)
	if generated.Fingerprint == "" || generated.RecoveryPhrase == "" {
		t.Fatalf("generate response incomplete: %+v", generated)
	}

	// Repeat generation is refused; rotation would strand capsules.
	rec = doJSON(t, s, http.MethodPost, "/api/keys", "")
	if rec.Code != http.StatusConflict {
		t.Errorf("second POST /api/keys = %d, want 409", rec.Code)
	}

	// The phrase never shows up again.
	rec = doJSON(t, s, http.MethodGet, "/api/keys", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/keys = %d", rec.Code)
	}
	var current keysResponse
	decodeBody(t, rec, &current)
	if current.Fingerprint != generated.Fingerprint {
		t.Errorf("fingerprint = %q, want %q", current.Fingerprint, generated.Fingerprint)
	}
	if current.RecoveryPhrase != "" {
		t.Error("GET /api/keys leaked the recovery phrase")
	}
}

func TestRestoreKeysEndpoint(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)}
	s := newTestServer(t, clock, Config{})

	rec := doJSON(t, s, http.MethodPost, "/api/keys/restore", `{"recovery_phrase": "nonsense words"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("restore with bad phrase = %d, want 400; body %s", rec.Code, rec.Body.String())
	}
	var errResp errorResponse
	decodeBody(t, rec, &errResp)
	if errResp.Code != "mnemonic_invalid" {
		t.Errorf("code = %q, want mnemonic_invalid", errResp.Code)
	}

	rec = doJSON(t, s, http.MethodPost, "/api/keys/restore", `{"recovery_phrase": ""}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("restore with empty phrase = %d, want 400", rec.Code)
	}
}

func TestDecryptWithoutKeys(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)}

	vault, err := chronoseal.Open(t.TempDir(), chronoseal.WithClock(clock.Now))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer vault.Close()
	s := New(vault, Config{})

	rec := doJSON(t, s, http.MethodPost, "/api/capsules/0/decrypt", "")
	if rec.Code != http.StatusPreconditionFailed {
		t.Errorf("decrypt without keys = %d, want 412; body %s", rec.Code, rec.Body.String())
	}
}

func TestExportImportEndpoints(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)}
	source := newTestServer(t, clock, Config{})

	rec := doJSON(t, source, http.MethodPost, "/api/capsules",
		`{"message": "travels well", "unlock_date": "2020-01-01"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create = %d", rec.Code)
	}

	rec = doJSON(t, source, http.MethodGet, "/api/export", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("export = %d; body %s", rec.Code, rec.Body.String())
	}
	exportBody := rec.Body.String()

	// Import into an empty vault.
	vault, err := chronoseal.Open(t.TempDir(), chronoseal.WithClock(clock.Now))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer vault.Close()
	target := New(vault, Config{})

	rec = doJSON(t, target, http.MethodPost, "/api/import", exportBody)
	if rec.Code != http.StatusOK {
		t.Fatalf("import = %d; body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, target, http.MethodPost, "/api/capsules/0/decrypt", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("decrypt after import = %d; body %s", rec.Code, rec.Body.String())
	}
	var result decryptResponse
	decodeBody(t, rec, &result)
	if result.Plaintext != "travels well" {
		t.Errorf("plaintext = %q, want %q", result.Plaintext, "travels well")
	}

	// Importing again hits the non-empty guard.
	rec = doJSON(t, target, http.MethodPost, "/api/import", exportBody)
	if rec.Code != http.StatusConflict {
		t.Errorf("second import = %d, want 409", rec.Code)
	}
}
