// ABOUTME: Tests for the DefLink HTTP API routes
// ABOUTME: Drives the full middleware chain with httptest against an in-memory store

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deflink/deflink/internal/auth"
	"github.com/deflink/deflink/internal/directory"
	"github.com/deflink/deflink/internal/obs"
	"github.com/deflink/deflink/internal/ratelimit"
	"github.com/deflink/deflink/internal/store"
)

const testPassword = "oem123"

// Seeded ids from the embedded demo dataset.
const (
	seedRequestID   = "6f1c2a4e-8d3b-4c1a-9e2f-0a7b5c3d1e01"
	seedProviderID  = "3b9d7e21-5a4c-4f8e-b1d2-7c6a9e0f2b01"
	draftProviderID = "3b9d7e21-5a4c-4f8e-b1d2-7c6a9e0f2b03"
)

type testEnv struct {
	api     *API
	store   *store.MemoryStore
	dir     *directory.Directory
	metrics *obs.Metrics
}

func newTestEnv(t *testing.T, mutate ...func(*Config)) *testEnv {
	t.Helper()

	s := store.NewMemoryStore()
	hash, err := auth.HashPassword(testPassword)
	require.NoError(t, err)

	dir := directory.New(s, directory.Options{
		Seed:                true,
		DefaultPasswordHash: func() (string, error) { return hash, nil },
	})
	require.NoError(t, dir.EnsureSeed(context.Background()))

	sessions := auth.NewSessionManager(s, []byte("test-secret-that-is-long-enough-123"), time.Hour)
	metrics := obs.NewMetrics("test")

	cfg := Config{
		Directory:    dir,
		Auth:         auth.NewAuthenticator(dir.Settings(), sessions),
		Cookie:       auth.CookieOptions{Secure: true, MaxAge: 24 * time.Hour},
		Metrics:      metrics,
		MetricsPath:  "/metrics",
		MaxBodyBytes: 1 << 16,
		Ready:        s.Ping,
	}
	for _, m := range mutate {
		m(&cfg)
	}
	return &testEnv{api: New(cfg), store: s, dir: dir, metrics: metrics}
}

func (e *testEnv) do(t *testing.T, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.api.ServeHTTP(rec, req)
	return rec
}

// login returns the session cookie for the OEM password.
func (e *testEnv) login(t *testing.T, password string) *http.Cookie {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/auth/oem-login", `{"password":"`+password+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	c := sessionCookie(rec)
	require.NotNil(t, c, "login must set the session cookie")
	return c
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.SessionCookieName {
			return c
		}
	}
	return nil
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func decodeData[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	env := decode(t, rec)
	require.True(t, env.Success, "error: %s", env.Error)
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

const acmeProvider = `{
	"firmenname": "Acme",
	"ansprechpartner": "A. Schmidt",
	"email": "a@acme.de",
	"kurzbeschreibung": "Short desc 1234567",
	"beschreibung": "A sufficiently long description exceeding fifty characters for validation purposes.",
	"standort": "Berlin",
	"schwerpunkte": ["Softwareentwicklung"]
}`

const validOemRequest = `{
	"unternehmen": "Acme Defence",
	"ansprechpartner": "B. Meyer",
	"email": "b@acme.de",
	"betreff": "Radar integration",
	"beschreibung": "We need help integrating a radar.",
	"kategorie": "Systemintegration"
}`

func TestTestEndpoint(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/test", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]string{"name": "DefLink API"}, decodeData[map[string]string](t, rec))
}

func TestSubmitProvider_AcmeExample(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/providers", acmeProvider)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	p := decodeData[directory.ProviderProfile](t, rec)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, directory.ProviderDraft, p.Status)
	assert.Equal(t, "Acme", p.Firmenname)
	assert.False(t, p.ErstelltAm.IsZero())
}

func TestSubmitProvider_PublishedByConfig(t *testing.T) {
	s := store.NewMemoryStore()
	dir := directory.New(s, directory.Options{
		ProviderDefaultStatus: directory.ProviderPublished,
		DefaultPasswordHash:   func() (string, error) { return auth.LegacyHash(testPassword), nil },
	})
	a := New(Config{
		Directory: dir,
		Auth:      auth.NewAuthenticator(dir.Settings(), auth.NewSessionManager(s, []byte("secret"), time.Hour)),
	})

	req := httptest.NewRequest(http.MethodPost, "/api/providers", strings.NewReader(acmeProvider))
	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	p := decodeData[directory.ProviderProfile](t, rec)
	assert.Equal(t, directory.ProviderPublished, p.Status)

	// Published immediately, so the public listing shows it.
	rec = httptest.NewRecorder()
	a.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/providers", nil))
	list := decodeData[[]directory.ProviderProfile](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, p.ID, list[0].ID)
}

func TestSubmitProvider_MissingFields(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/providers", `{"firmenname":"Acme","email":"a@acme.de"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	e := decode(t, rec)
	assert.False(t, e.Success)
	assert.Contains(t, e.Error, "required fields missing")
	assert.Contains(t, e.Error, "ansprechpartner")
	assert.Contains(t, e.Error, "schwerpunkte")
	assert.NotContains(t, e.Error, "firmenname")
}

func TestSubmitProvider_InvalidJSON(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/providers", `{"firmenname":`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid JSON body", decode(t, rec).Error)
}

func TestSubmitProvider_BodyTooLarge(t *testing.T) {
	env := newTestEnv(t, func(c *Config) { c.MaxBodyBytes = 64 })

	rec := env.do(t, http.MethodPost, "/api/providers", acmeProvider)
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.False(t, decode(t, rec).Success)
}

func TestPublicProviderListing_OnlyPublishedAlphabetical(t *testing.T) {
	env := newTestEnv(t)

	// A fresh submission is a draft and must stay hidden.
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/providers", acmeProvider).Code)

	rec := env.do(t, http.MethodGet, "/api/providers", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeData[[]directory.ProviderProfile](t, rec)

	var names []string
	for _, p := range list {
		assert.Equal(t, directory.ProviderPublished, p.Status)
		names = append(names, p.Firmenname)
	}
	assert.Equal(t, []string{"Blaulicht Software GmbH", "datavista analytics"}, names)
}

func TestProtectedRoutes_RequireSession(t *testing.T) {
	env := newTestEnv(t)

	routes := []struct{ method, path, body string }{
		{http.MethodGet, "/api/oem/requests", ""},
		{http.MethodPost, "/api/oem/requests", validOemRequest},
		{http.MethodGet, "/api/admin/oem-requests", ""},
		{http.MethodGet, "/api/admin/oem-requests/" + seedRequestID, ""},
		{http.MethodPatch, "/api/admin/oem-requests/" + seedRequestID, `{"status":"erledigt"}`},
		{http.MethodDelete, "/api/admin/oem-requests/" + seedRequestID, ""},
		{http.MethodGet, "/api/admin/providers", ""},
		{http.MethodPatch, "/api/admin/providers/" + seedProviderID, `{"status":"draft"}`},
		{http.MethodDelete, "/api/admin/providers/" + seedProviderID, ""},
		{http.MethodPatch, "/api/admin/settings", `{"oemPassword":"neues-passwort"}`},
	}

	bogus := &http.Cookie{Name: auth.SessionCookieName, Value: "not-a-token"}
	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			for _, cookies := range [][]*http.Cookie{nil, {bogus}} {
				rec := env.do(t, rt.method, rt.path, rt.body, cookies...)
				require.Equal(t, http.StatusUnauthorized, rec.Code)
				e := decode(t, rec)
				assert.False(t, e.Success)
				assert.Equal(t, errUnauthorized, e.Error)
			}
		})
	}

	// Nothing was changed by the rejected calls.
	_, err := env.dir.GetRequest(context.Background(), seedRequestID)
	assert.NoError(t, err)
}

func TestLogin_Success(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/auth/oem-login", `{"password":"`+testPassword+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]bool{"loggedIn": true}, decodeData[map[string]bool](t, rec))

	c := sessionCookie(rec)
	require.NotNil(t, c)
	assert.NotEmpty(t, c.Value)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Equal(t, "/", c.Path)
	assert.Equal(t, 86400, c.MaxAge)

	rec = env.do(t, http.MethodGet, "/api/oem/requests", "", c)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeData[[]directory.OemRequest](t, rec)
	require.Len(t, list, 3)
	for i := 1; i < len(list); i++ {
		assert.False(t, list[i].ErstelltAm.After(list[i-1].ErstelltAm), "requests must be newest first")
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/auth/oem-login", `{"password":"falsch"}`)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, sessionCookie(rec))
	assert.Equal(t, errUnauthorized, decode(t, rec).Error)
}

func TestLogin_MissingPassword(t *testing.T) {
	env := newTestEnv(t)

	for _, body := range []string{`{}`, `{"password":""}`} {
		rec := env.do(t, http.MethodPost, "/api/auth/oem-login", body)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "required fields missing: password", decode(t, rec).Error)
	}
}

func TestLogin_RateLimited(t *testing.T) {
	limiter := ratelimit.New(ratelimit.PerMinute(1), 2, time.Minute, 100)
	t.Cleanup(limiter.Close)
	env := newTestEnv(t, func(c *Config) { c.LoginLimiter = limiter })

	for i := 0; i < 2; i++ {
		rec := env.do(t, http.MethodPost, "/api/auth/oem-login", `{"password":"falsch"}`)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	rec := env.do(t, http.MethodPost, "/api/auth/oem-login", `{"password":"`+testPassword+`"}`)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Nil(t, sessionCookie(rec))
	assert.False(t, decode(t, rec).Success)
}

func TestLogin_RateLimitKeyIgnoresForwardedForByDefault(t *testing.T) {
	limiter := ratelimit.New(ratelimit.PerMinute(1), 1, time.Minute, 100)
	t.Cleanup(limiter.Close)
	env := newTestEnv(t, func(c *Config) { c.LoginLimiter = limiter })

	for i, xff := range []string{"10.0.0.1", "10.0.0.2"} {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/oem-login", strings.NewReader(`{"password":"falsch"}`))
		req.Header.Set("X-Forwarded-For", xff)
		rec := httptest.NewRecorder()
		env.api.ServeHTTP(rec, req)
		if i == 0 {
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		} else {
			assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		}
	}
}

func TestLogout_InvalidatesSession(t *testing.T) {
	env := newTestEnv(t)
	c := env.login(t, testPassword)

	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/admin/providers", "", c).Code)

	rec := env.do(t, http.MethodPost, "/api/auth/logout", "", c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]bool{"loggedOut": true}, decodeData[map[string]bool](t, rec))

	cleared := sessionCookie(rec)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)
	assert.Equal(t, -1, cleared.MaxAge)
	assert.Contains(t, rec.Header().Get("Set-Cookie"), "Max-Age=0")

	// The old cookie no longer works even if the browser kept it.
	rec = env.do(t, http.MethodGet, "/api/admin/providers", "", c)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogout_WithoutSession(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/auth/logout", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotNil(t, sessionCookie(rec))
}

func TestSessionStatus(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/auth/session", "")
	assert.Equal(t, map[string]bool{"loggedIn": false}, decodeData[map[string]bool](t, rec))

	c := env.login(t, testPassword)
	rec = env.do(t, http.MethodGet, "/api/auth/session", "", c)
	assert.Equal(t, map[string]bool{"loggedIn": true}, decodeData[map[string]bool](t, rec))
}

func TestSubmitOemRequest(t *testing.T) {
	env := newTestEnv(t)
	c := env.login(t, testPassword)

	before := time.Now().Add(-time.Second)
	rec := env.do(t, http.MethodPost, "/api/oem/requests", `{
		"id": "client-id",
		"status": "erledigt",
		"unternehmen": "Acme Defence",
		"ansprechpartner": "B. Meyer",
		"email": "b@acme.de",
		"betreff": "Radar integration",
		"beschreibung": "We need help integrating a radar."
	}`, c)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	created := decodeData[directory.OemRequest](t, rec)
	assert.NotEmpty(t, created.ID)
	assert.NotEqual(t, "client-id", created.ID)
	assert.Equal(t, directory.RequestOpen, created.Status)
	assert.True(t, created.ErstelltAm.After(before))

	rec = env.do(t, http.MethodGet, "/api/admin/oem-requests", "", c)
	list := decodeData[[]directory.OemRequest](t, rec)
	require.Len(t, list, 4)
	assert.Equal(t, created.ID, list[0].ID, "newest request comes first")
}

func TestSubmitOemRequest_Validation(t *testing.T) {
	env := newTestEnv(t)
	c := env.login(t, testPassword)

	rec := env.do(t, http.MethodPost, "/api/oem/requests", `{"unternehmen":"Acme","email":"b@acme.de"}`, c)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "required fields missing: ansprechpartner, betreff, beschreibung", decode(t, rec).Error)

	rec = env.do(t, http.MethodPost, "/api/oem/requests", strings.Replace(validOemRequest, "Systemintegration", "Raumfahrt", 1), c)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec).Error, "kategorie")
}

func TestAdminRequest_GetPatchDelete(t *testing.T) {
	env := newTestEnv(t)
	c := env.login(t, testPassword)
	path := "/api/admin/oem-requests/" + seedRequestID

	rec := env.do(t, http.MethodGet, path, "", c)
	require.Equal(t, http.StatusOK, rec.Code)
	orig := decodeData[directory.OemRequest](t, rec)

	rec = env.do(t, http.MethodPatch, path, `{"status":"erledigt","erstelltAm":"2000-01-01T00:00:00Z","id":"other"}`, c)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decodeData[directory.OemRequest](t, rec)
	assert.Equal(t, directory.RequestDone, updated.Status)
	assert.Equal(t, seedRequestID, updated.ID)
	assert.True(t, orig.ErstelltAm.Equal(updated.ErstelltAm))
	assert.Equal(t, orig.Betreff, updated.Betreff)

	rec = env.do(t, http.MethodPatch, path, `{"status":"archiviert"}`, c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodDelete, path, "", c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]bool{"deleted": true}, decodeData[map[string]bool](t, rec))

	rec = env.do(t, http.MethodDelete, path, "", c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]bool{"deleted": false}, decodeData[map[string]bool](t, rec))

	rec = env.do(t, http.MethodGet, "/api/admin/oem-requests", "", c)
	for _, r := range decodeData[[]directory.OemRequest](t, rec) {
		assert.NotEqual(t, seedRequestID, r.ID)
	}

	rec = env.do(t, http.MethodGet, path, "", c)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = env.do(t, http.MethodPatch, path, `{"status":"offen"}`, c)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminProviders_PublishAndDelete(t *testing.T) {
	env := newTestEnv(t)
	c := env.login(t, testPassword)

	rec := env.do(t, http.MethodGet, "/api/admin/providers", "", c)
	all := decodeData[[]directory.ProviderProfile](t, rec)
	require.Len(t, all, 3)

	rec = env.do(t, http.MethodPatch, "/api/admin/providers/"+draftProviderID, `{"status":"freigeschaltet"}`, c)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, directory.ProviderPublished, decodeData[directory.ProviderProfile](t, rec).Status)

	rec = env.do(t, http.MethodGet, "/api/providers", "")
	assert.Len(t, decodeData[[]directory.ProviderProfile](t, rec), 3)

	rec = env.do(t, http.MethodPatch, "/api/admin/providers/does-not-exist", `{"status":"draft"}`, c)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/admin/providers/"+draftProviderID, "", c)
	assert.Equal(t, map[string]bool{"deleted": true}, decodeData[map[string]bool](t, rec))

	rec = env.do(t, http.MethodGet, "/api/providers", "")
	assert.Len(t, decodeData[[]directory.ProviderProfile](t, rec), 2)
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	current := env.login(t, testPassword)
	other := env.login(t, testPassword)

	rec := env.do(t, http.MethodPatch, "/api/admin/settings", `{"oemPassword":"kurz"}`, current)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPatch, "/api/admin/settings", `{}`, current)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "required fields missing: oemPassword", decode(t, rec).Error)

	rec = env.do(t, http.MethodPatch, "/api/admin/settings", `{"oemPassword":"neues-passwort"}`, current)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]bool{"updated": true}, decodeData[map[string]bool](t, rec))

	// The old password fails, the new one works.
	rec = env.do(t, http.MethodPost, "/api/auth/oem-login", `{"password":"`+testPassword+`"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	env.login(t, "neues-passwort")

	// The caller stays logged in; every other session is gone.
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/admin/providers", "", current).Code)
	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodGet, "/api/admin/providers", "", other).Code)
}

func TestStorageFailure_Returns500(t *testing.T) {
	var logs bytes.Buffer
	env := newTestEnv(t, func(c *Config) {
		c.Logger = slog.New(slog.NewJSONHandler(&logs, nil))
	})
	env.store.FailWith(errors.New("disk on fire"))

	rec := env.do(t, http.MethodGet, "/api/providers", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	e := decode(t, rec)
	assert.Equal(t, "internal server error", e.Error)
	assert.NotContains(t, rec.Body.String(), "disk on fire")
	assert.Contains(t, logs.String(), `"msg":"storage failure"`)
	assert.Contains(t, logs.String(), "disk on fire")

	rec = env.do(t, http.MethodGet, "/api/admin/providers", "", &http.Cookie{Name: auth.SessionCookieName, Value: "x"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUnknownRoute(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/nope", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, decode(t, rec).Success)

	rec = env.do(t, http.MethodPut, "/api/providers", acmeProvider)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	rec = env.do(t, http.MethodGet, "/health/ready", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	env.store.FailWith(errors.New("down"))
	rec = env.do(t, http.MethodGet, "/health/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSecurityHeaders(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/providers", "")
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestCORS(t *testing.T) {
	env := newTestEnv(t, func(c *Config) { c.CORSOrigins = []string{"http://localhost:5173/"} })

	req := httptest.NewRequest(http.MethodOptions, "/api/providers", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	env.api.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/api/providers", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	env.api.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)

	env.do(t, http.MethodPost, "/api/auth/oem-login", `{"password":"falsch"}`)
	env.do(t, http.MethodGet, "/api/providers", "")

	rec := env.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `deflink_logins_total{result="failure"} 1`)
	assert.Contains(t, body, `deflink_http_requests_total{method="GET",path="/api/providers",status="200"} 1`)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.7:4711"
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")

	assert.Equal(t, "192.0.2.7", clientIP(req, false))
	assert.Equal(t, "203.0.113.9", clientIP(req, true))

	req.Header.Del("X-Forwarded-For")
	assert.Equal(t, "192.0.2.7", clientIP(req, true))
}
