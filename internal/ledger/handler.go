package ledger

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/ledgerline/ledgerline/internal/observability"
	"github.com/ledgerline/ledgerline/internal/platform/httpx"
	"github.com/ledgerline/ledgerline/internal/shared"
)

// SeedEnqueuer submits chart seeding to the background queue.
type SeedEnqueuer interface {
	EnqueueSeedChart(ctx context.Context, tenantID uuid.UUID) error
}

// Handler wires HTTP endpoints for the ledger subsystem.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
	metrics   *observability.Metrics
	seedQueue SeedEnqueuer
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, metrics *observability.Metrics) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		validator: validator.New(),
		metrics:   metrics,
	}
}

// WithSeedQueue enables asynchronous chart seeding on the onboarding endpoint.
func (h *Handler) WithSeedQueue(queue SeedEnqueuer) {
	h.seedQueue = queue
}

func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := h.tenant(w, r)
	if !ok {
		return
	}
	var req createAccountRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	account, err := h.service.CreateAccount(r.Context(), CreateAccountInput{
		TenantID:    tenantID,
		Code:        req.Code,
		Name:        req.Name,
		Type:        AccountType(req.Type),
		SubType:     req.SubType,
		Description: req.Description,
		ParentID:    req.ParentID,
	})
	if err != nil {
		h.respondError(w, r, "create account", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toAccountResponse(account))
}

func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := h.tenant(w, r)
	if !ok {
		return
	}
	accountID, ok := h.accountID(w, r)
	if !ok {
		return
	}
	account, err := h.service.GetAccount(r.Context(), tenantID, accountID)
	if err != nil {
		h.respondError(w, r, "get account", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toAccountResponse(account))
}

func (h *Handler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := h.tenant(w, r)
	if !ok {
		return
	}
	accountID, ok := h.accountID(w, r)
	if !ok {
		return
	}
	var req updateAccountRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	account, err := h.service.UpdateAccount(r.Context(), tenantID, accountID, UpdateAccountInput{
		Name:        req.Name,
		Description: req.Description,
		IsActive:    req.IsActive,
	})
	if err != nil {
		h.respondError(w, r, "update account", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toAccountResponse(account))
}

func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := h.tenant(w, r)
	if !ok {
		return
	}
	accountID, ok := h.accountID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteAccount(r.Context(), tenantID, accountID); err != nil {
		h.respondError(w, r, "delete account", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Tree(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := h.tenant(w, r)
	if !ok {
		return
	}
	forest, err := h.service.Tree(r.Context(), tenantID)
	if err != nil {
		h.respondError(w, r, "account tree", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toTreeResponse(forest))
}

func (h *Handler) Statement(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := h.tenant(w, r)
	if !ok {
		return
	}
	accountID, ok := h.accountID(w, r)
	if !ok {
		return
	}
	from, err := time.Parse(dateLayout, r.URL.Query().Get("from"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Range", "from must be YYYY-MM-DD")
		return
	}
	to, err := time.Parse(dateLayout, r.URL.Query().Get("to"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Range", "to must be YYYY-MM-DD")
		return
	}
	stmt, err := h.service.Statement(r.Context(), tenantID, accountID, from, to)
	if err != nil {
		h.respondError(w, r, "statement", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toStatementResponse(stmt))
}

func (h *Handler) Post(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := h.tenant(w, r)
	if !ok {
		return
	}
	req, ok := h.postingInput(w, r, tenantID)
	if !ok {
		return
	}
	entry, err := h.service.Post(r.Context(), req)
	if err != nil {
		h.respondError(w, r, "post", err)
		return
	}
	h.metrics.RecordPosting("post", req.RefType)
	httpx.JSON(w, http.StatusCreated, toEntryResponse(entry))
}

func (h *Handler) Reverse(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := h.tenant(w, r)
	if !ok {
		return
	}
	var req reverseRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	refID, err := uuid.Parse(req.RefID)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid ref id")
		return
	}
	reversed, err := h.service.ReversePosting(r.Context(), tenantID, req.RefType, refID)
	if err != nil {
		h.respondError(w, r, "reverse posting", err)
		return
	}
	h.metrics.RecordPosting("reverse", req.RefType)
	httpx.JSON(w, http.StatusOK, map[string]int{"reversed": reversed})
}

func (h *Handler) Repost(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := h.tenant(w, r)
	if !ok {
		return
	}
	req, ok := h.postingInput(w, r, tenantID)
	if !ok {
		return
	}
	entry, err := h.service.Repost(r.Context(), req)
	if err != nil {
		h.respondError(w, r, "repost", err)
		return
	}
	h.metrics.RecordPosting("repost", req.RefType)
	httpx.JSON(w, http.StatusOK, toEntryResponse(entry))
}

// SeedChart materializes the default chart for the tenant. When a background
// queue is wired the work is enqueued and the call returns 202.
func (h *Handler) SeedChart(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := h.tenant(w, r)
	if !ok {
		return
	}
	if h.seedQueue != nil {
		if err := h.seedQueue.EnqueueSeedChart(r.Context(), tenantID); err != nil {
			h.logger.Error("enqueue seed", slog.Any("error", err))
			httpx.Problem(w, http.StatusServiceUnavailable, "Queue Unavailable", "")
			return
		}
		httpx.JSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
		return
	}
	created, err := h.service.SeedDefaultChart(r.Context(), tenantID)
	if err != nil {
		h.respondError(w, r, "seed chart", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]int{"created": created})
}

func (h *Handler) postingInput(w http.ResponseWriter, r *http.Request, tenantID uuid.UUID) (PostingInput, bool) {
	var req postingRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return PostingInput{}, false
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return PostingInput{}, false
	}
	input, err := req.toInput(tenantID)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return PostingInput{}, false
	}
	return input, true
}

func (h *Handler) tenant(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	tenantID, ok := shared.TenantIDFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Tenant Required", "missing tenant identity")
		return uuid.Nil, false
	}
	return tenantID, true
}

func (h *Handler) accountID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "accountID"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Account", "account id must be a positive integer")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, ErrAccountNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicateCode):
		httpx.Problem(w, http.StatusConflict, "Duplicate Code", err.Error())
	case errors.Is(err, ErrSystemAccount):
		httpx.Problem(w, http.StatusForbidden, "System Account", err.Error())
	case errors.Is(err, ErrHasChildren), errors.Is(err, ErrHasTransactions):
		httpx.Problem(w, http.StatusConflict, "Deletion Blocked", err.Error())
	case errors.Is(err, ErrCrossTenantReference):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Cross-Tenant Reference", err.Error())
	case errors.Is(err, ErrPostingConflict):
		httpx.Problem(w, http.StatusServiceUnavailable, "Posting Conflict", "storage contention, retry the request")
	case errors.Is(err, ErrInvalidInput):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err), slog.String("path", r.URL.Path))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
