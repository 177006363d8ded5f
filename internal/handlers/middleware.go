package handlers

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/claritel/admin-console/internal/permissions"
	"github.com/claritel/admin-console/internal/session"
	"github.com/claritel/admin-console/internal/views"
)

// Guard protects screens behind the session store and enforces capability
// checks on mutating routes.
type Guard struct {
	sessions *session.Manager
	cookies  *session.CookieCodec
	views    *views.Renderer
	log      zerolog.Logger
}

func NewGuard(sessions *session.Manager, cookies *session.CookieCodec, v *views.Renderer, log zerolog.Logger) *Guard {
	return &Guard{sessions: sessions, cookies: cookies, views: v, log: log}
}

// RequireSession renders the wrapped handler only when a valid session
// cookie resolves to a live session; otherwise it drops the stale cookie
// and redirects to the public entry screen. The 303 replaces the failed
// navigation, so the browser cannot loop back into the protected screen.
func (g *Guard) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := g.cookies.Read(r, session.SessionCookie)
		if err != nil {
			g.redirectToLogin(w, r)
			return
		}

		s, ok := g.sessions.Get(id)
		if !ok {
			g.redirectToLogin(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(withSession(r.Context(), s)))
	})
}

// RequirePermission gates a route on a capability code. The same evaluator
// hides the affordance in templates; this stops forged submissions.
func (g *Guard) RequirePermission(code string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, ok := sessionFrom(r.Context())
			if !ok {
				g.redirectToLogin(w, r)
				return
			}
			if !permissions.Has(&s.User, code) {
				render(g.log, g.views, w, http.StatusForbidden, "error", errorPage{
					Base:    views.Base{Title: "Forbidden", Nav: navFor(s, "")},
					Heading: "Forbidden",
					Message: "You do not have permission to perform this action.",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// InvalidateSession destroys the current session and sends the browser back
// to the login screen. Used on logout and whenever the platform API reports
// the bearer credential is no longer valid.
func (g *Guard) InvalidateSession(w http.ResponseWriter, r *http.Request) {
	if id, err := g.cookies.Read(r, session.SessionCookie); err == nil {
		g.sessions.Clear(id)
	}
	g.redirectToLogin(w, r)
}

func (g *Guard) redirectToLogin(w http.ResponseWriter, r *http.Request) {
	g.cookies.Drop(w, session.SessionCookie)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

type errorPage struct {
	views.Base
	Heading string
	Message string
}
