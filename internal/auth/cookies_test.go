// cookies_test.go

// unit tests for token cookie attributes.
package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSetTokenCookies(t *testing.T) {
	now := time.Now()
	pair := &TokenPair{
		Access:           NewSecret("the-access-token"),
		Refresh:          NewSecret("the-refresh-token"),
		AccessExpiresAt:  now.Add(24 * time.Hour),
		RefreshExpiresAt: now.Add(720 * time.Hour),
	}

	w := httptest.NewRecorder()
	SetTokenCookies(w, pair, now)

	cookies := w.Result().Cookies()
	if len(cookies) != 2 {
		t.Fatalf("expected 2 cookies, got %d", len(cookies))
	}

	byName := map[string]*http.Cookie{}
	for _, c := range cookies {
		byName[c.Name] = c
	}

	access, ok := byName[CookieAccessToken]
	if !ok {
		t.Fatal("access_token cookie missing")
	}
	refresh, ok := byName[CookieRefreshToken]
	if !ok {
		t.Fatal("refresh_token cookie missing")
	}

	if access.Value != "the-access-token" || refresh.Value != "the-refresh-token" {
		t.Error("cookie values must carry the tokens")
	}
	for _, c := range []*http.Cookie{access, refresh} {
		if !c.HttpOnly {
			t.Errorf("%s: HttpOnly required", c.Name)
		}
		if !c.Secure {
			t.Errorf("%s: Secure required", c.Name)
		}
		if c.SameSite != http.SameSiteStrictMode {
			t.Errorf("%s: SameSite=Strict required", c.Name)
		}
		if c.Path != "/" {
			t.Errorf("%s: path must be /, got %q", c.Name, c.Path)
		}
	}

	if access.MaxAge != int((24 * time.Hour).Seconds()) {
		t.Errorf("access Max-Age: expected %d, got %d", int((24*time.Hour).Seconds()), access.MaxAge)
	}
	if refresh.MaxAge != int((720 * time.Hour).Seconds()) {
		t.Errorf("refresh Max-Age: expected %d, got %d", int((720*time.Hour).Seconds()), refresh.MaxAge)
	}
}

func TestClearTokenCookies(t *testing.T) {
	w := httptest.NewRecorder()
	ClearTokenCookies(w)

	cookies := w.Result().Cookies()
	if len(cookies) != 2 {
		t.Fatalf("expected 2 cookies, got %d", len(cookies))
	}
	for _, c := range cookies {
		if c.Value != "" {
			t.Errorf("%s: cleared cookie must be empty, got %q", c.Name, c.Value)
		}
		if c.MaxAge != -1 {
			t.Errorf("%s: expected Max-Age=-1 (emits Max-Age=0), got %d", c.Name, c.MaxAge)
		}
	}
}
