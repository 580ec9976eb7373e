package handler

import (
	"net/http"
	"strings"

	"github.com/anditama/go-shop-backend/internal/domain/order"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (req *registerRequest) validate() *order.ValidationError {
	ve := &order.ValidationError{}
	if strings.TrimSpace(req.Name) == "" {
		ve.Add("name", "name is required")
	}
	if strings.TrimSpace(req.Email) == "" {
		ve.Add("email", "email is required")
	} else if !strings.Contains(req.Email, "@") {
		ve.Add("email", "email must be a valid address")
	}
	if len(req.Password) < 8 {
		ve.Add("password", "password must be at least 8 characters")
	}
	if ve.Empty() {
		return nil
	}
	return ve
}

// Register creates an account and returns it with a bearer token.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondBadJSON(w)
		return
	}
	if ve := req.validate(); ve != nil {
		respondError(w, r, ve)
		return
	}

	u, token, err := h.auth.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusCreated, "Registered successfully", authResponse{
		User:  newUserResponse(u),
		Token: token,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates credentials and returns the user with a bearer token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondBadJSON(w)
		return
	}

	u, token, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "Logged in successfully", authResponse{
		User:  newUserResponse(u),
		Token: token,
	})
}

// CurrentUser returns the authenticated user.
func (h *Handler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	u := userFromContext(r.Context())
	respond(w, http.StatusOK, "", newUserResponse(u))
}

// Logout acknowledges a logout. Tokens are stateless, so the client simply
// discards its copy; there is no server-side session to invalidate.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	respondMessage(w, http.StatusOK, "Logged out successfully")
}
