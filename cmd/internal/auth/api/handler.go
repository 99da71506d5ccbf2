package authapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"carepass/cmd/customer"
	"carepass/cmd/internal/auth/session"
)

// Sessions is the session behavior the HTTP layer depends on.
type Sessions interface {
	Authenticator
	Signup(ctx context.Context, now time.Time, in session.SignupInput) (session.SignupResult, error)
	Login(ctx context.Context, now time.Time, email, password string) (session.LoginResult, error)
	RefreshAccessToken(ctx context.Context, now time.Time, raw string) (session.RefreshResult, error)
	Logout(ctx context.Context, now time.Time, customerID int64) error
	GetProfile(ctx context.Context, customerID int64) (customer.Customer, error)
	UpdateProfile(ctx context.Context, now time.Time, customerID int64, in session.ProfileInput) (customer.Customer, error)
	ChangePassword(ctx context.Context, now time.Time, customerID int64, current, next string) error
}

// Handler wires the customer HTTP endpoints to the session service.
type Handler struct {
	log      *slog.Logger
	cfg      Config
	sessions Sessions
	now      func() time.Time
	reg      prometheus.Registerer
	events   *events
}

// HandlerOption configures optional handler dependencies.
type HandlerOption func(*Handler)

// WithRegisterer registers the auth counters with reg.
func WithRegisterer(reg prometheus.Registerer) HandlerOption {
	return func(h *Handler) { h.reg = reg }
}

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) HandlerOption {
	return func(h *Handler) {
		if now != nil {
			h.now = now
		}
	}
}

// NewHandler constructs a Handler.
func NewHandler(log *slog.Logger, sessions Sessions, cfg Config, opts ...HandlerOption) (*Handler, error) {
	if sessions == nil {
		return nil, errors.New("authapi: nil session service")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}

	h := &Handler{
		log:      log,
		cfg:      cfg,
		sessions: sessions,
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(h)
	}
	h.events = newEvents(log, h.reg)
	return h, nil
}

// Mount registers /api/<version>/customers for every configured version.
func (h *Handler) Mount(r chi.Router) {
	for _, v := range h.cfg.Versions {
		r.Route("/api/"+v+"/customers", h.routes)
	}
}

// Routes returns a standalone router with the customer API mounted.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	h.Mount(r)
	return r
}

func (h *Handler) routes(r chi.Router) {
	r.Post("/signup", h.handleSignup)
	r.Post("/login", h.handleLogin)
	r.Post("/refresh", h.handleRefresh)

	r.Group(func(r chi.Router) {
		r.Use(Gate(h.sessions, h.now, func(req *http.Request, err error) {
			h.events.record(req.Context(), req, "gate", 0, err)
		}))
		r.Get("/me", h.handleGetMe)
		r.Put("/me", h.handleUpdateMe)
		r.Post("/change-password", h.handleChangePassword)
		r.Post("/logout", h.handleLogout)
	})
}

func (h *Handler) clock() time.Time { return h.now().UTC() }

// fail records err and writes its mapped response.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, customerID int64, err error) {
	h.events.record(r.Context(), r, op, customerID, err)
	status, msg := statusFor(err)
	writeError(w, status, msg)
}

// ---- handlers ----

func (h *Handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	// Signup forms commonly post confirm_password and similar extras.
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	res, err := h.sessions.Signup(r.Context(), h.clock(), req.input())
	if err != nil {
		h.fail(w, r, "signup", 0, err)
		return
	}
	h.events.record(r.Context(), r, "signup", res.Customer.ID, nil)

	out := signupResponse{
		CustomerID: res.Customer.ID,
		Email:      res.Customer.Email,
		Customer:   toCustomerResponse(res.Customer),
	}
	if res.Tokens != nil {
		out.AccessToken = res.Tokens.Access.Value
		out.RefreshToken = res.Tokens.Refresh.Value
	}
	writeOK(w, http.StatusCreated, "Registration successful", out)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	res, err := h.sessions.Login(r.Context(), h.clock(), req.Email, req.Password)
	if err != nil {
		h.fail(w, r, "login", 0, err)
		return
	}
	h.events.record(r.Context(), r, "login", res.Customer.ID, nil)

	writeOK(w, http.StatusOK, "Login successful", loginResponse{
		Customer:     toCustomerResponse(res.Customer),
		AccessToken:  res.Tokens.Access.Value,
		RefreshToken: res.Tokens.Refresh.Value,
	})
}

// handleRefresh takes the refresh token from the Authorization header, or
// from a JSON body when the header is absent.
func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	raw := bearerToken(r)
	if raw == "" && r.ContentLength != 0 {
		var req refreshRequest
		if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req, false); err != nil && !errors.Is(err, errEmptyBody) {
			writeError(w, http.StatusBadRequest, msgInvalidBody)
			return
		}
		raw = strings.TrimSpace(req.RefreshToken)
	}

	res, err := h.sessions.RefreshAccessToken(r.Context(), h.clock(), raw)
	if err != nil {
		if errors.Is(err, session.ErrAccountDeactivated) {
			h.events.record(r.Context(), r, "refresh", 0, err)
			writeError(w, http.StatusUnauthorized, "Customer not found or inactive")
			return
		}
		h.fail(w, r, "refresh", 0, err)
		return
	}
	h.events.record(r.Context(), r, "refresh", 0, nil)

	out := refreshResponse{Success: true, AccessToken: res.Access.Value}
	if res.Refresh != nil {
		out.RefreshToken = res.Refresh.Value
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGetMe(w http.ResponseWriter, r *http.Request) {
	id, ok := CustomerIDFrom(r.Context())
	if !ok {
		h.fail(w, r, "profile", 0, session.ErrUnauthorized)
		return
	}

	c, err := h.sessions.GetProfile(r.Context(), id)
	if err != nil {
		h.fail(w, r, "profile", id, err)
		return
	}
	writeOK(w, http.StatusOK, "", toCustomerResponse(c))
}

// handleUpdateMe ignores unknown fields so clients can send whole profiles.
func (h *Handler) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	id, ok := CustomerIDFrom(r.Context())
	if !ok {
		h.fail(w, r, "update_profile", 0, session.ErrUnauthorized)
		return
	}

	var req profileRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	c, err := h.sessions.UpdateProfile(r.Context(), h.clock(), id, req.input())
	if err != nil {
		h.fail(w, r, "update_profile", id, err)
		return
	}
	h.events.record(r.Context(), r, "update_profile", id, nil)
	writeOK(w, http.StatusOK, "Profile updated successfully", toCustomerResponse(c))
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	id, ok := CustomerIDFrom(r.Context())
	if !ok {
		h.fail(w, r, "change_password", 0, session.ErrUnauthorized)
		return
	}

	var req changePasswordRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req, true); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	if req.current() == "" {
		writeError(w, http.StatusBadRequest, "Current password is required")
		return
	}

	err := h.sessions.ChangePassword(r.Context(), h.clock(), id, req.current(), req.NewPassword)
	if err != nil {
		if errors.Is(err, session.ErrInvalidCredentials) {
			h.events.record(r.Context(), r, "change_password", id, err)
			writeError(w, http.StatusUnauthorized, "Current password is incorrect")
			return
		}
		h.fail(w, r, "change_password", id, err)
		return
	}
	h.events.record(r.Context(), r, "change_password", id, nil)
	writeOK(w, http.StatusOK, "Password changed successfully", nil)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	id, ok := CustomerIDFrom(r.Context())
	if !ok {
		h.fail(w, r, "logout", 0, session.ErrUnauthorized)
		return
	}

	if err := h.sessions.Logout(r.Context(), h.clock(), id); err != nil {
		h.fail(w, r, "logout", id, err)
		return
	}
	h.events.record(r.Context(), r, "logout", id, nil)
	writeOK(w, http.StatusOK, "Logged out successfully", nil)
}
