// Package httphandler is the HTTP driving adapter serving the local REST
// API. It holds no flow logic: every request is delegated to an
// application service and the response rendered from its result.
package httphandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/mhdalton/surplussync/internal/application"
	"github.com/mhdalton/surplussync/internal/domain/model"
	"github.com/mhdalton/surplussync/internal/domain/port/driven"
)

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	authSvc     *application.AuthService
	syncSvc     *application.SyncService
	orderSvc    *application.OrderService
	configStore driven.ConfigStore
	logger      *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	authSvc *application.AuthService,
	syncSvc *application.SyncService,
	orderSvc *application.OrderService,
	configStore driven.ConfigStore,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		authSvc:     authSvc,
		syncSvc:     syncSvc,
		orderSvc:    orderSvc,
		configStore: configStore,
		logger:      logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/health", h.Health)
	mux.HandleFunc("GET /api/v1/auth/status", h.AuthStatus)
	mux.HandleFunc("POST /api/v1/auth/signin", h.StartSignIn)
	mux.HandleFunc("POST /api/v1/auth/open", h.OpenSignInPage)
	mux.HandleFunc("POST /api/v1/auth/manual", h.SubmitManualRedirect)
	mux.HandleFunc("POST /api/v1/assets/{tag}/sold", h.MarkAssetSold)
	mux.HandleFunc("GET /api/v1/orders", h.ListPendingShipments)
	mux.HandleFunc("POST /api/v1/orders/sync", h.SyncOrders)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// AuthStatus returns a snapshot of the sign-in flow plus the stored
// refresh-token expiry date, so the caller can tell when a full re-sign-in
// is coming due.
func (h *Handler) AuthStatus(w http.ResponseWriter, r *http.Request) {
	resp := toAuthStatusResponse(h.authSvc.Status())

	if settings, err := h.configStore.Load(r.Context()); err != nil {
		h.logger.Error("loading settings for auth status", "error", err)
	} else {
		resp.RefreshTokenExpiresAt = settings.EBay.RefreshTokenExpiresAt
	}

	writeJSON(w, http.StatusOK, resp)
}

// StartSignIn launches the automated sign-in flow in the requested browser.
// Progress is observed through AuthStatus.
func (h *Handler) StartSignIn(w http.ResponseWriter, r *http.Request) {
	var req StartSignInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	choice, ok := parseBrowserChoice(req.Browser)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown browser: expected chrome, chromium, edge, or default")
		return
	}

	if err := h.authSvc.StartSignIn(r.Context(), choice); err != nil {
		h.writeServiceError(w, "start sign-in failed", err)
		return
	}

	writeJSON(w, http.StatusAccepted, toAuthStatusResponse(h.authSvc.Status()))
}

// OpenSignInPage starts the manual flow in the default browser.
func (h *Handler) OpenSignInPage(w http.ResponseWriter, r *http.Request) {
	if err := h.authSvc.OpenSignInPage(r.Context()); err != nil {
		h.writeServiceError(w, "open sign-in page failed", err)
		return
	}

	writeJSON(w, http.StatusAccepted, toAuthStatusResponse(h.authSvc.Status()))
}

// SubmitManualRedirect completes the manual flow with the pasted redirect URL.
func (h *Handler) SubmitManualRedirect(w http.ResponseWriter, r *http.Request) {
	var req ManualRedirectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RedirectURL == "" {
		writeError(w, http.StatusBadRequest, "redirect_url is required")
		return
	}

	if err := h.authSvc.SubmitManualRedirect(r.Context(), req.RedirectURL); err != nil {
		h.writeServiceError(w, "manual redirect failed", err)
		return
	}

	writeJSON(w, http.StatusOK, toAuthStatusResponse(h.authSvc.Status()))
}

// MarkAssetSold marks a single asset tag as sold in the ticketing table.
func (h *Handler) MarkAssetSold(w http.ResponseWriter, r *http.Request) {
	tag := r.PathValue("tag")

	var req MarkSoldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.syncSvc.MarkSold(r.Context(), tag, req.Price, req.SiblingTags); err != nil {
		h.writeServiceError(w, "mark sold failed", err)
		return
	}

	writeJSON(w, http.StatusOK, MarkSoldResponse{AssetTag: tag, State: string(model.SaleStateSold)})
}

// ListPendingShipments returns the items from the last order sync that are
// still waiting to ship.
func (h *Handler) ListPendingShipments(w http.ResponseWriter, _ *http.Request) {
	pending := h.orderSvc.PendingShipments()

	resp := make([]PendingShipmentResponse, 0, len(pending))
	for _, p := range pending {
		resp = append(resp, toPendingShipmentResponse(p))
	}

	writeJSON(w, http.StatusOK, resp)
}

// SyncOrders triggers an order sync immediately, bypassing the polling
// interval, and blocks until it completes.
func (h *Handler) SyncOrders(w http.ResponseWriter, r *http.Request) {
	if err := h.orderSvc.SyncNow(r.Context()); err != nil {
		h.writeServiceError(w, "order sync failed", err)
		return
	}

	h.ListPendingShipments(w, r)
}

// writeServiceError maps application and port errors to HTTP statuses.
func (h *Handler) writeServiceError(w http.ResponseWriter, msg string, err error) {
	h.logger.Error(msg, "error", err)

	var launchErr *driven.BrowserLaunchError
	var lookupErr *driven.AssetLookupError
	var writeErr *driven.AssetWriteError
	var exchangeErr *driven.TokenExchangeError

	switch {
	case errors.Is(err, application.ErrFlowInProgress):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, driven.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, driven.ErrCallTimeout):
		writeError(w, http.StatusGatewayTimeout, err.Error())
	case errors.As(err, &launchErr),
		errors.As(err, &lookupErr),
		errors.As(err, &writeErr),
		errors.As(err, &exchangeErr):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// parseBrowserChoice maps the request value to a browser choice. An empty
// value means the default browser.
func parseBrowserChoice(s string) (model.BrowserChoice, bool) {
	switch model.BrowserChoice(s) {
	case model.BrowserChrome, model.BrowserChromium, model.BrowserEdge, model.BrowserDefault:
		return model.BrowserChoice(s), true
	case "":
		return model.BrowserDefault, true
	default:
		return "", false
	}
}
