package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/mhdalton/surplussync/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// AuthStatusResponse is the JSON representation of the sign-in flow state.
type AuthStatusResponse struct {
	State                 string `json:"state"`
	Prompt                string `json:"prompt"`
	Error                 string `json:"error,omitempty"`
	RefreshTokenExpiresAt string `json:"refresh_token_expires_at,omitempty"`
}

// StartSignInRequest is the JSON body for the sign-in endpoint.
type StartSignInRequest struct {
	Browser string `json:"browser"`
}

// ManualRedirectRequest is the JSON body for the manual redirect endpoint.
type ManualRedirectRequest struct {
	RedirectURL string `json:"redirect_url"`
}

// MarkSoldRequest is the JSON body for the mark-sold endpoint.
type MarkSoldRequest struct {
	Price       string   `json:"price"`
	SiblingTags []string `json:"sibling_tags"`
}

// MarkSoldResponse confirms the recorded sale.
type MarkSoldResponse struct {
	AssetTag string `json:"asset_tag"`
	State    string `json:"state"`
}

// PendingShipmentResponse is the JSON representation of a sold item still
// waiting to ship.
type PendingShipmentResponse struct {
	Title    string `json:"title"`
	ShipBy   string `json:"ship_by"`
	OrderID  string `json:"order_id"`
	AssetTag string `json:"asset_tag"`
}

// toAuthStatusResponse converts a domain AuthStatus to its JSON representation.
func toAuthStatusResponse(status model.AuthStatus) AuthStatusResponse {
	return AuthStatusResponse{
		State:  string(status.State),
		Prompt: status.Prompt,
		Error:  status.Err,
	}
}

// toPendingShipmentResponse converts a domain PendingShipment to its JSON
// representation.
func toPendingShipmentResponse(p model.PendingShipment) PendingShipmentResponse {
	shipBy := ""
	if !p.ShipBy.IsZero() {
		shipBy = p.ShipBy.UTC().Format(time.RFC3339)
	}

	return PendingShipmentResponse{
		Title:    p.Title,
		ShipBy:   shipBy,
		OrderID:  p.OrderID,
		AssetTag: p.AssetTag,
	}
}
