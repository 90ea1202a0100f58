package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	householdcontext "fridge/frontend/shared/context"
	sessioncookie "fridge/infrastructure/session"
	"fridge/models"
)

// HouseholdMiddleware attaches the browser's household to the request,
// minting a new anonymous household when the cookie is missing or malformed.
func (s *Server) HouseholdMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := ""
		if c, err := r.Cookie(sessioncookie.CookieName); err == nil {
			token = strings.TrimSpace(c.Value)
		}
		if _, err := uuid.Parse(token); err != nil {
			token = uuid.NewString()
			http.SetCookie(w, sessioncookie.HouseholdCookie(token, sessioncookie.MaxAge))
		}

		household, ok := s.resolveHousehold(r, token)
		if !ok {
			http.Error(w, "failed to load household", http.StatusInternalServerError)
			return
		}
		ctx := householdcontext.NewContextWithHousehold(r.Context(), household)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) resolveHousehold(r *http.Request, token string) (models.Household, bool) {
	if s.Households != nil {
		if cached, found := s.Households.Find(token); found {
			return cached, true
		}
	}
	if s.Store == nil {
		return models.Household{ID: token}, true
	}
	household, err := s.Store.EnsureHousehold(r.Context(), token)
	if err != nil {
		slog.Error("ensure household failed", slog.String("household_id", token), slog.Any("err", err))
		return models.Household{}, false
	}
	if s.Households != nil {
		s.Households.Add(household)
	}
	return household, true
}
