package handler

import (
	"encoding/json"
	"net/http"

	"github.com/anditama/go-shop-backend/internal/domain/payment"
)

// MidtransNotification receives asynchronous payment notifications from the
// provider. The provider retries until it gets a 2xx, so every recognized and
// verified payload is acknowledged with 200 even when it caused no state
// change.
func (h *Handler) MidtransNotification(w http.ResponseWriter, r *http.Request) {
	// Provider payloads carry many fields beyond the ones modeled here, so
	// unknown fields are tolerated.
	var n payment.Notification
	if err := json.NewDecoder(r.Body).Decode(&n); err != nil {
		respondBadJSON(w)
		return
	}

	if err := h.reconciler.HandleNotification(r.Context(), &n); err != nil {
		respondError(w, r, err)
		return
	}
	respondMessage(w, http.StatusOK, "OK")
}
