package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/ledgerline/internal/observability"
	"github.com/ledgerline/ledgerline/internal/shared"
)

func newTestHandler(t *testing.T) (*Handler, *Service, *mockRepository) {
	t.Helper()
	repo := newMockRepository()
	svc, _ := newTestService(repo)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewHandler(logger, svc, observability.NewMetrics()), svc, repo
}

func newTestRouter(h *Handler) chi.Router {
	r := chi.NewRouter()
	h.MountRoutes(r)
	return r
}

func doRequest(t *testing.T, router http.Handler, tenantID uuid.UUID, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if tenantID != uuid.Nil {
		req = req.WithContext(shared.ContextWithTenantID(req.Context(), tenantID))
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestHandlerCreateAccount(t *testing.T) {
	h, _, _ := newTestHandler(t)
	router := newTestRouter(h)
	tenantID := uuid.New()

	rr := doRequest(t, router, tenantID, http.MethodPost, "/accounts/", map[string]any{
		"code": "1000",
		"name": "Assets",
		"type": "ASSET",
	})

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var resp struct {
		ID      int64  `json:"id"`
		Code    string `json:"code"`
		Balance string `json:"balance"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.NotZero(t, resp.ID)
	assert.Equal(t, "1000", resp.Code)
	assert.Equal(t, "0.00", resp.Balance)
}

func TestHandlerRequiresTenant(t *testing.T) {
	h, _, _ := newTestHandler(t)
	router := newTestRouter(h)

	rr := doRequest(t, router, uuid.Nil, http.MethodPost, "/accounts/", map[string]any{
		"code": "1000", "name": "Assets", "type": "ASSET",
	})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "Tenant Required")
}

func TestHandlerCreateAccountValidation(t *testing.T) {
	h, _, _ := newTestHandler(t)
	router := newTestRouter(h)
	tenantID := uuid.New()

	rr := doRequest(t, router, tenantID, http.MethodPost, "/accounts/", map[string]any{
		"code": "1000", "name": "Assets", "type": "REVENUE",
	})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandlerDuplicateCode(t *testing.T) {
	h, _, _ := newTestHandler(t)
	router := newTestRouter(h)
	tenantID := uuid.New()

	payload := map[string]any{"code": "1000", "name": "Assets", "type": "ASSET"}
	require.Equal(t, http.StatusCreated, doRequest(t, router, tenantID, http.MethodPost, "/accounts/", payload).Code)

	rr := doRequest(t, router, tenantID, http.MethodPost, "/accounts/", payload)
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestHandlerGetAccountNotFound(t *testing.T) {
	h, _, _ := newTestHandler(t)
	router := newTestRouter(h)

	rr := doRequest(t, router, uuid.New(), http.MethodGet, "/accounts/42/", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandlerPostAndStatement(t *testing.T) {
	h, svc, _ := newTestHandler(t)
	router := newTestRouter(h)
	tenantID := uuid.New()
	ctx := context.Background()

	_, err := svc.SeedDefaultChart(ctx, tenantID)
	require.NoError(t, err)
	cash, err := svc.AccountByCode(ctx, tenantID, "1100")
	require.NoError(t, err)

	rr := doRequest(t, router, tenantID, http.MethodPost, "/postings/", map[string]any{
		"accountId": cash.ID,
		"debit":     "300.00",
		"date":      "2026-01-15",
		"refType":   "MANUAL",
		"refId":     uuid.NewString(),
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = doRequest(t, router, tenantID, http.MethodPost, "/postings/", map[string]any{
		"accountId": cash.ID,
		"debit":     "200.00",
		"date":      "2026-02-10",
		"refType":   "MANUAL",
		"refId":     uuid.NewString(),
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	path := fmt.Sprintf("/accounts/%d/statement?from=2026-02-01&to=2026-02-28", cash.ID)
	rr = doRequest(t, router, tenantID, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var stmt struct {
		OpeningBalance string `json:"openingBalance"`
		ClosingBalance string `json:"closingBalance"`
		Lines          []any  `json:"lines"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &stmt))
	assert.Equal(t, "300.00", stmt.OpeningBalance)
	assert.Equal(t, "500.00", stmt.ClosingBalance)
	assert.Len(t, stmt.Lines, 1)
}

func TestHandlerPostingConflictMapsTo503(t *testing.T) {
	h, svc, repo := newTestHandler(t)
	router := newTestRouter(h)
	tenantID := uuid.New()

	_, err := svc.SeedDefaultChart(context.Background(), tenantID)
	require.NoError(t, err)
	cash, err := svc.AccountByCode(context.Background(), tenantID, "1100")
	require.NoError(t, err)

	repo.conflictsLeft = postingRetryLimit + 1

	rr := doRequest(t, router, tenantID, http.MethodPost, "/postings/", map[string]any{
		"accountId": cash.ID,
		"debit":     "10.00",
		"date":      "2026-01-15",
		"refType":   "MANUAL",
		"refId":     uuid.NewString(),
	})
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestHandlerReverse(t *testing.T) {
	h, svc, _ := newTestHandler(t)
	router := newTestRouter(h)
	tenantID := uuid.New()
	ctx := context.Background()

	_, err := svc.SeedDefaultChart(ctx, tenantID)
	require.NoError(t, err)
	cash, err := svc.AccountByCode(ctx, tenantID, "1100")
	require.NoError(t, err)

	refID := uuid.NewString()
	rr := doRequest(t, router, tenantID, http.MethodPost, "/postings/", map[string]any{
		"accountId": cash.ID,
		"debit":     "99.00",
		"date":      "2026-01-15",
		"refType":   "INVOICE",
		"refId":     refID,
	})
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = doRequest(t, router, tenantID, http.MethodPost, "/postings/reverse", map[string]any{
		"refType": "INVOICE",
		"refId":   refID,
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), `"reversed":1`)
}

func TestHandlerDeleteSystemAccount(t *testing.T) {
	h, svc, _ := newTestHandler(t)
	router := newTestRouter(h)
	tenantID := uuid.New()

	_, err := svc.SeedDefaultChart(context.Background(), tenantID)
	require.NoError(t, err)
	cash, err := svc.AccountByCode(context.Background(), tenantID, "1100")
	require.NoError(t, err)

	rr := doRequest(t, router, tenantID, http.MethodDelete, fmt.Sprintf("/accounts/%d/", cash.ID), nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestHandlerSeedChartSync(t *testing.T) {
	h, _, _ := newTestHandler(t)
	router := newTestRouter(h)
	tenantID := uuid.New()

	rr := doRequest(t, router, tenantID, http.MethodPost, "/chart/seed", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), fmt.Sprintf(`"created":%d`, len(DefaultChartTemplate)))
}

type stubQueue struct {
	calls []uuid.UUID
	err   error
}

func (q *stubQueue) EnqueueSeedChart(ctx context.Context, tenantID uuid.UUID) error {
	q.calls = append(q.calls, tenantID)
	return q.err
}

func TestHandlerSeedChartQueued(t *testing.T) {
	h, _, _ := newTestHandler(t)
	queue := &stubQueue{}
	h.WithSeedQueue(queue)
	router := newTestRouter(h)
	tenantID := uuid.New()

	rr := doRequest(t, router, tenantID, http.MethodPost, "/chart/seed", nil)
	require.Equal(t, http.StatusAccepted, rr.Code)
	require.Len(t, queue.calls, 1)
	assert.Equal(t, tenantID, queue.calls[0])
}

func TestHandlerTree(t *testing.T) {
	h, svc, _ := newTestHandler(t)
	router := newTestRouter(h)
	tenantID := uuid.New()

	_, err := svc.SeedDefaultChart(context.Background(), tenantID)
	require.NoError(t, err)

	rr := doRequest(t, router, tenantID, http.MethodGet, "/accounts/tree", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var forest []struct {
		Code     string `json:"code"`
		Children []any  `json:"children"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &forest))
	require.Len(t, forest, 5)
	assert.Equal(t, "1000", forest[0].Code)
	assert.NotEmpty(t, forest[0].Children)
}
