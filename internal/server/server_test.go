package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lance13c/shopassist/internal/assetcache"
	"github.com/lance13c/shopassist/internal/config"
	"github.com/lance13c/shopassist/internal/database"
	"github.com/lance13c/shopassist/internal/messaging"
	"github.com/lance13c/shopassist/internal/services"
	"github.com/lance13c/shopassist/internal/store"
	"github.com/lance13c/shopassist/web"
)

type failingHealth struct{}

func (failingHealth) Ping(context.Context) error { return errors.New("database is locked") }

type fixture struct {
	handler http.Handler
	hub     *messaging.Hub
	assets  *assetcache.Registration
	db      *database.DB
}

func newFixture(t *testing.T, skipWaiting bool) *fixture {
	t.Helper()

	db, err := database.New("sqlite", database.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	hub := messaging.NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-hub.Done()
	})

	cfg := config.DefaultConfig()
	reg, err := assetcache.NewRegistration(
		assetcache.NewMemoryStorage(),
		assetcache.HandlerTransport{Handler: web.Handler(web.Assets())},
		assetcache.Options{
			Assets:               cfg.Assets.Files,
			Shell:                cfg.Assets.Shell,
			SkipWaitingOnInstall: skipWaiting,
			Origin:               "http://127.0.0.1:8787",
		},
	)
	require.NoError(t, err)
	_, err = reg.Install(context.Background(), cfg.Assets.CacheVersion)
	require.NoError(t, err)

	fillCfg := config.FillConfig{DetectAttempts: 1, DetectInterval: time.Millisecond, BlurDelay: time.Millisecond}
	svc := services.NewAssistantService(db, fillCfg, db, messaging.NewNotifier(hub))

	return &fixture{
		handler: NewRouter(Dependencies{
			Assistant:      svc,
			Assets:         reg,
			Hub:            hub,
			Health:         db,
			AllowedOrigins: []string{"http://shop.example"},
		}),
		hub:    hub,
		assets: reg,
		db:     db,
	}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestHealthz(t *testing.T) {
	f := newFixture(t, true)

	rec := f.do(t, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "shop-assistant-v1.0.0", body["cache"])
}

func TestHealthz_Degraded(t *testing.T) {
	h := NewRouter(Dependencies{Health: failingHealth{}})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, "database is locked", body["error"])
}

func TestProfileAPI(t *testing.T) {
	f := newFixture(t, true)

	rec := f.do(t, http.MethodGet, "/api/profile", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPut, "/api/profile", `{"name":"Budi","phone":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, store.MsgProfileRequired, decode[errorResponse](t, rec).Error)

	rec = f.do(t, http.MethodPut, "/api/profile", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPut, "/api/profile", `{"name":"Budi","phone":"08123","postalCode":"10110"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[store.Profile](t, rec).UpdatedAt.IsZero())

	rec = f.do(t, http.MethodGet, "/api/profile", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[store.Profile](t, rec)
	assert.Equal(t, "Budi", got.Name)
	assert.Equal(t, "10110", got.PostalCode)
}

func TestSettingsAPI(t *testing.T) {
	f := newFixture(t, true)

	rec := f.do(t, http.MethodGet, "/api/settings", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, store.DefaultSettings(), decode[store.Settings](t, rec))

	rec = f.do(t, http.MethodPut, "/api/settings", `{"paymentMethod":"barter"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, store.MsgUnknownPayment, decode[errorResponse](t, rec).Error)

	rec = f.do(t, http.MethodPut, "/api/settings", `{"autoFill":true,"fillDelay":250,"paymentMethod":"transfer"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/settings", "")
	got := decode[store.Settings](t, rec)
	assert.True(t, got.AutoFillEnabled)
	assert.Equal(t, 250, got.FillDelayMs)
	assert.Equal(t, "transfer", got.PaymentMethod)
}

func TestTriggerAPI_Gates(t *testing.T) {
	f := newFixture(t, true)

	rec := f.do(t, http.MethodPost, "/api/trigger", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	f.do(t, http.MethodPut, "/api/settings", `{"autoFill":true}`)
	rec = f.do(t, http.MethodPost, "/api/trigger", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	f.do(t, http.MethodPut, "/api/profile", `{"name":"Budi","phone":"08123"}`)
	rec = f.do(t, http.MethodPost, "/api/trigger", "")
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "Budi", decode[triggerResponse](t, rec).Profile.Name)
}

func TestHistoryAPI(t *testing.T) {
	f := newFixture(t, true)

	rec := f.do(t, http.MethodGet, "/api/history?limit=zero", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"runs":[]}`, strings.TrimSpace(rec.Body.String()))

	require.NoError(t, f.db.SaveFillRun(context.Background(), &database.FillRun{
		ID:        "run-1",
		Source:    services.SourceTest,
		Detected:  []string{"name"},
		Filled:    []string{"name"},
		CreatedAt: time.Now().UTC(),
	}))
	rec = f.do(t, http.MethodGet, "/api/history?limit=5", "")
	runs := decode[historyResponse](t, rec).Runs
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].ID)
}

func TestAssetsServedFromCache(t *testing.T) {
	f := newFixture(t, true)

	for _, path := range []string{"/", "/index.html", "/manifest.json", "/checkout.html", "/app.js"} {
		rec := f.do(t, http.MethodGet, path, "")
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, "hit", rec.Header().Get(assetcache.CacheHeader), path)
	}

	rec := f.do(t, http.MethodGet, "/missing.css", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWorkerMessage_SkipWaiting(t *testing.T) {
	f := newFixture(t, false)

	next, err := f.assets.Install(context.Background(), "shop-assistant-v1.0.1")
	require.NoError(t, err)
	assert.Same(t, next, f.assets.Waiting())

	rec := f.do(t, http.MethodPost, "/sw/message", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/sw/message", `{"action":"skipWaiting"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "shop-assistant-v1.0.1", decode[map[string]string](t, rec)["controller"])
	assert.Same(t, next, f.assets.Controller())
}

func TestCORS(t *testing.T) {
	f := newFixture(t, true)

	req := httptest.NewRequest(http.MethodOptions, "/api/settings", nil)
	req.Header.Set("Origin", "http://shop.example")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://shop.example", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/settings", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSettingsChangeReachesWebsocketClients(t *testing.T) {
	f := newFixture(t, true)
	srv := httptest.NewServer(f.handler)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return f.hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	resp, err := srv.Client().Do(mustRequest(t, http.MethodPut, srv.URL+"/api/settings", `{"smartNav":true}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg messaging.Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, messaging.ActionUpdateSettings, msg.Action)

	var settings store.Settings
	require.NoError(t, msg.Decode(&settings))
	assert.True(t, settings.SmartNavEnabled)
}

func mustRequest(t *testing.T, method, url, body string) *http.Request {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	return req
}
