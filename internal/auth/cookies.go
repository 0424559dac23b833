// cookies.go

// Paired access/refresh token cookie management.
package auth

import (
	"net/http"
	"time"
)

// Cookie names for the two token cookies. Clients may also present the
// access token as a bearer header; the cookie wins when both are set.
const (
	CookieAccessToken  = "access_token"
	CookieRefreshToken = "refresh_token"
)

// SetTokenCookies writes both token cookies with HttpOnly, Secure,
// SameSite=Strict. Each cookie's Max-Age matches its own token's TTL.
func SetTokenCookies(w http.ResponseWriter, pair *TokenPair, now time.Time) {
	setTokenCookie(w, CookieAccessToken, pair.Access.Expose(), int(pair.AccessExpiresAt.Sub(now).Seconds()))
	setTokenCookie(w, CookieRefreshToken, pair.Refresh.Expose(), int(pair.RefreshExpiresAt.Sub(now).Seconds()))
}

// ClearTokenCookies overwrites both token cookies with an empty value and
// Max-Age=0 to trigger browser deletion.
func ClearTokenCookies(w http.ResponseWriter) {
	setTokenCookie(w, CookieAccessToken, "", -1)
	setTokenCookie(w, CookieRefreshToken, "", -1)
}

func setTokenCookie(w http.ResponseWriter, name, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   maxAge,
	})
}
