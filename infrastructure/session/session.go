package session

import (
	"net/http"
	"time"
)

const CookieName = "X-Household-Token"

// MaxAge keeps the household cookie for a year.
const MaxAge = int(365 * 24 * time.Hour / time.Second)

func HouseholdCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   false,
	}
}
