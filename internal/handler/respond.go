package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/anditama/go-shop-backend/internal/domain/auth"
	"github.com/anditama/go-shop-backend/internal/domain/order"
	"github.com/anditama/go-shop-backend/internal/domain/payment"
	"github.com/anditama/go-shop-backend/internal/domain/product"
	"github.com/anditama/go-shop-backend/internal/domain/user"
)

// envelope is the uniform response body. Errors holds either a field-error
// map (validation) or a list of messages, never an internal stack trace.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Errors  any    `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respond(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, envelope{Success: true, Message: message, Data: data})
}

func respondMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Success: true, Message: message})
}

// respondError maps a domain error onto the HTTP taxonomy:
// validation 422, not found 404, business rule 400, bad signature 403,
// gateway failure 502, anything else 500.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		ve  *order.ValidationError
		ise *order.InsufficientStockError
		ge  *order.GatewayError
	)
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusUnprocessableEntity, envelope{
			Message: "Validation failed",
			Errors:  ve.Fields,
		})
	case errors.Is(err, product.ErrNotFound),
		errors.Is(err, order.ErrNotFound),
		errors.Is(err, order.ErrItemNotFound),
		errors.Is(err, user.ErrNotFound):
		writeJSON(w, http.StatusNotFound, envelope{Message: err.Error()})
	case errors.As(err, &ise):
		writeJSON(w, http.StatusBadRequest, envelope{Message: ise.Error()})
	case errors.Is(err, order.ErrOrderPaid),
		errors.Is(err, order.ErrPaymentNotPending),
		errors.Is(err, order.ErrNotPending):
		writeJSON(w, http.StatusBadRequest, envelope{Message: err.Error()})
	case errors.Is(err, user.ErrEmailTaken):
		writeJSON(w, http.StatusUnprocessableEntity, envelope{
			Message: "Validation failed",
			Errors:  map[string][]string{"email": {user.ErrEmailTaken.Error()}},
		})
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, envelope{Message: auth.ErrInvalidCredentials.Error()})
	case errors.Is(err, payment.ErrInvalidSignature):
		writeJSON(w, http.StatusForbidden, envelope{Message: "invalid signature key"})
	case errors.As(err, &ge):
		zctx.From(r.Context()).Error("payment gateway failure", zap.Error(ge.Err))
		writeJSON(w, http.StatusBadGateway, envelope{Message: "payment gateway unavailable"})
	default:
		zctx.From(r.Context()).Error("internal error", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, envelope{Message: "internal server error"})
	}
}

// decodeJSON decodes a request body into dst, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// respondBadJSON reports a malformed request body as a validation failure.
func respondBadJSON(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnprocessableEntity, envelope{
		Message: "Validation failed",
		Errors:  map[string][]string{"body": {"invalid JSON payload"}},
	})
}
