package app

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/ledgerline/ledgerline/internal/shared"
)

func TestTenantMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tenantID := uuid.New()

	var gotTenant uuid.UUID
	var gotActor int64
	var hadTenant bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTenant, hadTenant = shared.TenantIDFromContext(r.Context())
		gotActor = shared.ActorIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	handler := TenantMiddleware(logger)(next)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(TenantHeader, tenantID.String())
	req.Header.Set(ActorHeader, "7")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	if !hadTenant || gotTenant != tenantID {
		t.Fatalf("expected tenant %s in context, got %s", tenantID, gotTenant)
	}
	if gotActor != 7 {
		t.Fatalf("expected actor 7, got %d", gotActor)
	}
}

func TestTenantMiddlewareRejectsMalformedHeader(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := TenantMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(TenantHeader, "not-a-uuid")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestTenantMiddlewarePassesWithoutHeader(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var hadTenant bool
	handler := TenantMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hadTenant = shared.TenantIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected pass-through, got %d", rr.Code)
	}
	if hadTenant {
		t.Fatal("no tenant should be present without the header")
	}
}
