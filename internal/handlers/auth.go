package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/claritel/admin-console/internal/platform"
	"github.com/claritel/admin-console/internal/session"
	"github.com/claritel/admin-console/internal/views"
	"github.com/claritel/admin-console/types"
)

// AuthHandler drives the login flow: credentials, the optional two-factor
// challenge, enrollment, and logout. It is the only writer of session state
// besides the logout action.
type AuthHandler struct {
	api      *platform.Client
	sessions *session.Manager
	cookies  *session.CookieCodec
	views    *views.Renderer
	log      zerolog.Logger
	guard    *Guard
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(api *platform.Client, sessions *session.Manager, cookies *session.CookieCodec, v *views.Renderer, log zerolog.Logger, guard *Guard) *AuthHandler {
	return &AuthHandler{api: api, sessions: sessions, cookies: cookies, views: v, log: log, guard: guard}
}

// AuthRouter registers the public auth routes and the guarded enrollment
// routes on the given router. loginLimiter rate limits credential checks.
func AuthRouter(r chi.Router, h *AuthHandler, loginLimiter func(http.Handler) http.Handler) {
	r.Get("/", h.LoginPage)
	r.With(loginLimiter).Post("/login", h.Login)
	r.Post("/2fa/verify", h.VerifyChallenge)
	r.Post("/logout", h.Logout)

	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireSession)
		r.Get("/dashboard", h.Dashboard)
		r.Get("/setup-2fa", h.SetupPage)
		r.Post("/setup-2fa", h.VerifySetup)
	})
}

type loginPage struct {
	views.Base
	Email string
}

type setupPage struct {
	views.Base
	QRCodeURL string
	Secret    string
}

// LoginPage renders the credential form, or skips straight to the dashboard
// when the browser already holds a live session.
func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	if id, err := h.cookies.Read(r, session.SessionCookie); err == nil {
		if _, ok := h.sessions.Get(id); ok {
			http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
			return
		}
	}
	render(h.log, h.views, w, http.StatusOK, "login", loginPage{Base: views.Base{Title: "Login"}})
}

// Login checks credentials against the platform API. Without an MFA
// requirement it establishes the session directly; with one it parks the
// temporary credential server-side and renders the code prompt. No session
// exists until the challenge completes.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		render(h.log, h.views, w, http.StatusBadRequest, "login", loginPage{
			Base: views.Base{Title: "Login", Error: "Invalid form submission."},
		})
		return
	}

	email := strings.TrimSpace(r.PostFormValue("email"))
	password := r.PostFormValue("password")

	if email == "" || password == "" || !validEmail(email) {
		render(h.log, h.views, w, http.StatusBadRequest, "login", loginPage{
			Base:  views.Base{Title: "Login", Error: "A valid email and password are required."},
			Email: email,
		})
		return
	}

	result, err := h.api.Login(r.Context(), email, password)
	if err != nil {
		h.log.Warn().Err(err).Str("email", email).Msg("login failed")
		render(h.log, h.views, w, http.StatusUnauthorized, "login", loginPage{
			Base:  views.Base{Title: "Login", Error: formError(err)},
			Email: email,
		})
		return
	}

	if result.MFARequired {
		challenge := h.sessions.BeginChallenge(result.TempToken, email)
		if err := h.cookies.Issue(w, session.ChallengeCookie, challenge.ID); err != nil {
			h.log.Error().Err(err).Msg("issue challenge cookie")
			render(h.log, h.views, w, http.StatusInternalServerError, "login", loginPage{
				Base: views.Base{Title: "Login", Error: genericErrMsg}, Email: email,
			})
			return
		}
		render(h.log, h.views, w, http.StatusOK, "verify2fa", views.Base{Title: "Verify 2FA"})
		return
	}

	h.establish(w, r, result.User, result.AccessToken)
}

// VerifyChallenge completes a pending two-factor login. A bad code keeps
// the challenge alive so the user can retry; the server's error text is
// shown unmodified.
func (h *AuthHandler) VerifyChallenge(w http.ResponseWriter, r *http.Request) {
	challengeID, err := h.cookies.Read(r, session.ChallengeCookie)
	if err != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	challenge, ok := h.sessions.Challenge(challengeID)
	if !ok {
		h.cookies.Drop(w, session.ChallengeCookie)
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	if err := r.ParseForm(); err != nil {
		render(h.log, h.views, w, http.StatusBadRequest, "verify2fa", views.Base{
			Title: "Verify 2FA", Error: "Invalid form submission.",
		})
		return
	}

	code := digitsOnly(r.PostFormValue("token"))
	if len(code) != 6 {
		render(h.log, h.views, w, http.StatusBadRequest, "verify2fa", views.Base{
			Title: "Verify 2FA", Error: "Enter the 6-digit code from your authenticator app.",
		})
		return
	}

	creds, err := h.api.VerifyMFA(r.Context(), challenge.TempToken, code)
	if err != nil {
		h.log.Warn().Err(err).Str("email", challenge.Email).Msg("2fa verification failed")
		render(h.log, h.views, w, http.StatusUnauthorized, "verify2fa", views.Base{
			Title: "Verify 2FA", Error: formError(err),
		})
		return
	}

	h.sessions.ResolveChallenge(challengeID)
	h.cookies.Drop(w, session.ChallengeCookie)
	h.establish(w, r, creds.User, creds.AccessToken)
}

// Logout destroys the session and returns to the entry screen.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.guard.InvalidateSession(w, r)
}

// Dashboard is the guarded landing page.
func (h *AuthHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	s, _ := sessionFrom(r.Context())
	render(h.log, h.views, w, http.StatusOK, "dashboard", views.Base{
		Title: "Dashboard", Nav: navFor(s, "dashboard"),
	})
}

// SetupPage requests enrollment material and renders the QR code. A failed
// generate keeps the user on the page with a retry affordance.
func (h *AuthHandler) SetupPage(w http.ResponseWriter, r *http.Request) {
	s, _ := sessionFrom(r.Context())

	prov, err := h.api.GenerateMFA(r.Context(), s.Token)
	if err != nil {
		if errors.Is(err, platform.ErrUnauthorized) {
			h.guard.InvalidateSession(w, r)
			return
		}
		h.log.Error().Err(err).Msg("generate 2fa provisioning")
		render(h.log, h.views, w, http.StatusBadGateway, "setup2fa", setupPage{
			Base: views.Base{Title: "Setup 2FA", Nav: navFor(s, ""), Error: formError(err)},
		})
		return
	}

	render(h.log, h.views, w, http.StatusOK, "setup2fa", setupPage{
		Base:      views.Base{Title: "Setup 2FA", Nav: navFor(s, "")},
		QRCodeURL: prov.QRCodeURL,
		Secret:    prov.Secret,
	})
}

// VerifySetup confirms enrollment, flips the MFA flag on the session user
// in place, and lands on the dashboard.
func (h *AuthHandler) VerifySetup(w http.ResponseWriter, r *http.Request) {
	s, _ := sessionFrom(r.Context())

	if err := r.ParseForm(); err != nil {
		render(h.log, h.views, w, http.StatusBadRequest, "setup2fa", setupPage{
			Base: views.Base{Title: "Setup 2FA", Nav: navFor(s, ""), Error: "Invalid form submission."},
		})
		return
	}

	code := digitsOnly(r.PostFormValue("token"))
	if len(code) != 6 {
		render(h.log, h.views, w, http.StatusBadRequest, "setup2fa", setupPage{
			Base: views.Base{Title: "Setup 2FA", Nav: navFor(s, ""), Error: "Enter the 6-digit verification code."},
		})
		return
	}

	if err := h.api.VerifyMFASetup(r.Context(), s.Token, code); err != nil {
		if errors.Is(err, platform.ErrUnauthorized) {
			h.guard.InvalidateSession(w, r)
			return
		}
		h.log.Warn().Err(err).Msg("2fa setup verification failed")
		render(h.log, h.views, w, http.StatusUnauthorized, "setup2fa", setupPage{
			Base: views.Base{Title: "Setup 2FA", Nav: navFor(s, ""), Error: formError(err)},
		})
		return
	}

	user := s.User
	user.MFAEnabled = true
	h.sessions.SetUser(s.ID, user)

	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// establish creates the session, hands its cookie to the browser, and
// routes to enrollment or the dashboard depending on the MFA flag.
func (h *AuthHandler) establish(w http.ResponseWriter, r *http.Request, user types.User, token string) {
	s := h.sessions.Establish(user, token)
	if err := h.cookies.Issue(w, session.SessionCookie, s.ID); err != nil {
		h.sessions.Clear(s.ID)
		h.log.Error().Err(err).Msg("issue session cookie")
		render(h.log, h.views, w, http.StatusInternalServerError, "login", loginPage{
			Base: views.Base{Title: "Login", Error: genericErrMsg},
		})
		return
	}

	if !user.MFAEnabled {
		http.Redirect(w, r, "/setup-2fa", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}
