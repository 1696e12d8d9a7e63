package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/jadiazinf/condominio-core/internal/clock"
	condominiumdomain "github.com/jadiazinf/condominio-core/internal/condominium/domain"
	condominiumrepo "github.com/jadiazinf/condominio-core/internal/condominium/repository"
	"github.com/jadiazinf/condominio-core/internal/config"
	"github.com/jadiazinf/condominio-core/internal/events"
	quotadomain "github.com/jadiazinf/condominio-core/internal/quota/domain"
	quotarepo "github.com/jadiazinf/condominio-core/internal/quota/repository"
	quotaservice "github.com/jadiazinf/condominio-core/internal/quota/service"
	unitdomain "github.com/jadiazinf/condominio-core/internal/unit/domain"
	unitrepo "github.com/jadiazinf/condominio-core/internal/unit/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&condominiumdomain.Condominium{},
		&condominiumdomain.Building{},
		&unitdomain.Unit{},
		&quotadomain.Quota{},
		&quotadomain.QuotaAdjustment{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := db.Exec(
		`CREATE TABLE IF NOT EXISTS billing_events (
			id INTEGER PRIMARY KEY,
			condominium_id BIGINT NOT NULL,
			event_type TEXT NOT NULL,
			payload TEXT,
			dedupe_key TEXT,
			published BOOLEAN NOT NULL DEFAULT false,
			created_at DATETIME NOT NULL,
			UNIQUE (condominium_id, dedupe_key)
		)`,
	).Error; err != nil {
		t.Fatalf("create billing_events: %v", err)
	}

	for _, stmt := range []struct {
		sql  string
		args []any
	}{
		{`INSERT INTO condominiums (id, company_id, name) VALUES (?, 1, ?)`, []any{100, "Torre Central"}},
		{`INSERT INTO buildings (id, condominium_id, name) VALUES (?, ?, ?)`, []any{200, 100, "Torre A"}},
		{`INSERT INTO units (id, building_id, unit_number) VALUES (?, ?, ?)`, []any{500, 200, "A-101"}},
	} {
		if err := db.Exec(stmt.sql, stmt.args...).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	base := decimal.RequireFromString("100.00")
	quota := &quotadomain.Quota{
		ID:                1001,
		UnitID:            500,
		PaymentConceptID:  300,
		PeriodYear:        2026,
		PeriodMonth:       1,
		PeriodDescription: "January 2026",
		BaseAmount:        base,
		CurrencyID:        1,
		InterestAmount:    decimal.Zero,
		IssueDate:         time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		DueDate:           time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC),
		Status:            quotadomain.StatusPending,
		PaidAmount:        decimal.Zero,
		Balance:           base,
		CreatedBy:         9001,
	}
	if err := db.Create(quota).Error; err != nil {
		t.Fatalf("seed quota: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	quotaSvc := quotaservice.NewService(quotaservice.Params{
		DB:              db,
		Log:             zap.NewNop(),
		GenID:           node,
		Clock:           clock.SystemClock{},
		Repo:            quotarepo.Provide(),
		AdjustmentRepo:  quotarepo.ProvideAdjustments(),
		UnitRepo:        unitrepo.Provide(),
		CondominiumRepo: condominiumrepo.Provide(),
		Outbox:          events.NewOutbox(db, node),
	})

	srv := &Server{
		cfg:      config.Config{},
		db:       db,
		log:      zap.NewNop(),
		quotaSvc: quotaSvc,
		limiter:  newRateLimiter(1000, time.Minute),
	}
	engine := gin.New()
	srv.RegisterAPIRoutes(engine)
	return engine
}

func doRequest(t *testing.T, engine *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Actor-Id", "9001")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return body.Error.Message
}

func TestHealthz(t *testing.T) {
	engine := setupTestRouter(t)

	rec := doRequest(t, engine, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestAdjustQuotaEndpoint(t *testing.T) {
	engine := setupTestRouter(t)

	rec := doRequest(t, engine, http.MethodPost, "/v1/quotas/1001/adjust",
		`{"new_amount":"80.00","adjustment_type":"discount","reason":"agreed with the unit owner"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Message string `json:"message"`
		Data    struct {
			Quota struct {
				Balance string `json:"balance"`
				Status  string `json:"status"`
			} `json:"quota"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if want := "Quota adjusted from 100.00 to 80.00 (-20.00)"; body.Message != want {
		t.Fatalf("message = %q, want %q", body.Message, want)
	}
	if body.Data.Quota.Status != string(quotadomain.StatusPending) {
		t.Fatalf("status = %q, want pending", body.Data.Quota.Status)
	}
}

func TestAdjustQuotaErrorMapping(t *testing.T) {
	engine := setupTestRouter(t)

	cases := []struct {
		name        string
		path        string
		body        string
		wantStatus  int
		wantMessage string
	}{
		{
			name:        "missing quota",
			path:        "/v1/quotas/999999/adjust",
			body:        `{"new_amount":"80.00","adjustment_type":"discount","reason":"agreed with the unit owner"}`,
			wantStatus:  http.StatusNotFound,
			wantMessage: "Quota not found",
		},
		{
			name:        "waiver with non-zero amount",
			path:        "/v1/quotas/1001/adjust",
			body:        `{"new_amount":"10.00","adjustment_type":"waiver","reason":"agreed with the unit owner"}`,
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Waiver adjustment must set amount to 0",
		},
		{
			name:        "malformed body",
			path:        "/v1/quotas/1001/adjust",
			body:        `{"new_amount":`,
			wantStatus:  http.StatusBadRequest,
			wantMessage: "invalid request body",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(t, engine, http.MethodPost, tc.path, tc.body)
			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tc.wantStatus, rec.Body.String())
			}
			if got := errorMessage(t, rec); got != tc.wantMessage {
				t.Fatalf("message = %q, want %q", got, tc.wantMessage)
			}
		})
	}
}

func TestListFormulasRequiresCondominium(t *testing.T) {
	engine := setupTestRouter(t)

	rec := doRequest(t, engine, http.MethodGet, "/v1/formulas", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if got := errorMessage(t, rec); got != "condominium_id is required" {
		t.Fatalf("message = %q", got)
	}
}

func TestListQuotasByUnit(t *testing.T) {
	engine := setupTestRouter(t)

	rec := doRequest(t, engine, http.MethodGet, "/v1/quotas?unit_id=500", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Data []json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Data) != 1 {
		t.Fatalf("quotas = %d, want 1", len(body.Data))
	}
}

func TestRateLimiter(t *testing.T) {
	limiter := newRateLimiter(2, time.Minute)

	if !limiter.Allow("10.0.0.1") || !limiter.Allow("10.0.0.1") {
		t.Fatal("first two requests should pass")
	}
	if limiter.Allow("10.0.0.1") {
		t.Fatal("third request should be rejected")
	}
	if !limiter.Allow("10.0.0.2") {
		t.Fatal("other clients keep their own window")
	}
	if limiter.Allow("") {
		t.Fatal("empty key must never pass")
	}
}
