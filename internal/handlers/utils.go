package handlers

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/claritel/admin-console/internal/permissions"
	"github.com/claritel/admin-console/internal/platform"
	"github.com/claritel/admin-console/internal/session"
	"github.com/claritel/admin-console/internal/views"
)

type contextKey string

const contextSessionKey contextKey = "session"

// genericErrMsg is shown for transport failures where no server message
// exists. Server-provided messages are always surfaced verbatim instead.
const genericErrMsg = "Something went wrong. Please try again."

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

func sessionFrom(ctx context.Context) (session.Session, bool) {
	s, ok := ctx.Value(contextSessionKey).(session.Session)
	return s, ok
}

func withSession(ctx context.Context, s session.Session) context.Context {
	return context.WithValue(ctx, contextSessionKey, s)
}

// formError maps an error to the message shown in the form's error slot.
func formError(err error) string {
	var apiErr *platform.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return genericErrMsg
}

// digitsOnly strips non-digits and caps the result at six characters,
// mirroring the input sanitization on the code fields.
func digitsOnly(code string) string {
	var b strings.Builder
	for _, r := range code {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
		if b.Len() == 6 {
			break
		}
	}
	return b.String()
}

func validEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// navFor builds the signed-in chrome for a page; the tenants section shows
// only when the session user holds tenant.management.
func navFor(s session.Session, active string) *views.Nav {
	return &views.Nav{
		UserName:    s.User.FullName,
		UserEmail:   s.User.Email,
		Role:        s.User.Role,
		Active:      active,
		ShowTenants: permissions.Has(&s.User, permissions.TenantManagement),
	}
}

func render(log zerolog.Logger, r *views.Renderer, w http.ResponseWriter, status int, page string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := r.Render(w, page, data); err != nil {
		log.Error().Err(err).Str("page", page).Msg("render failed")
	}
}
