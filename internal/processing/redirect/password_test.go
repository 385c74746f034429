package redirect

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func strPtr(s string) *string { return &s }

func newTestTokens(now time.Time) *PasswordTokens {
	p := NewPasswordTokens("test-secret")
	p.now = func() time.Time { return now }
	return p
}

func TestPasswordTokens(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	link := &LinkRecord{ID: "l1", Domain: "sho.rt", Key: "vip", PasswordHash: strPtr("$2a$hash")}

	issuer := newTestTokens(now)
	token, err := issuer.Issue(link, time.Hour)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	t.Run("valid token", func(t *testing.T) {
		if !newTestTokens(now.Add(time.Minute)).Valid(token, link) {
			t.Error("expected token to be valid")
		}
	})

	t.Run("expired token", func(t *testing.T) {
		if newTestTokens(now.Add(2*time.Hour)).Valid(token, link) {
			t.Error("expected expired token to be rejected")
		}
	})

	t.Run("other link", func(t *testing.T) {
		other := *link
		other.Key = "other"
		if newTestTokens(now).Valid(token, &other) {
			t.Error("expected token for another key to be rejected")
		}
	})

	t.Run("password changed", func(t *testing.T) {
		changed := *link
		changed.PasswordHash = strPtr("$2a$new")
		if newTestTokens(now).Valid(token, &changed) {
			t.Error("expected token to be invalidated by password change")
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		p := NewPasswordTokens("another-secret")
		p.now = func() time.Time { return now }
		if p.Valid(token, link) {
			t.Error("expected token signed with another secret to be rejected")
		}
	})

	t.Run("no secret configured", func(t *testing.T) {
		if NewPasswordTokens("").Valid(token, link) {
			t.Error("expected no token to be valid without a secret")
		}
	})

	t.Run("garbage", func(t *testing.T) {
		if newTestTokens(now).Valid("not-a-jwt", link) {
			t.Error("expected garbage to be rejected")
		}
	})
}

func TestPasswordCookieNameSurvivesCookieParsing(t *testing.T) {
	keys := []string{"vip", "docs/setup", "café", "a b"}

	for _, key := range keys {
		t.Run(key, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Cookie", PasswordCookieName(key)+"=token-value")

			c, err := req.Cookie(PasswordCookieName(key))
			if err != nil {
				t.Fatalf("cookie %q dropped by parser: %v", PasswordCookieName(key), err)
			}
			if c.Value != "token-value" {
				t.Errorf("value = %q", c.Value)
			}
		})
	}

	if PasswordCookieName("docs/setup") == PasswordCookieName("docs") {
		t.Error("distinct keys share a cookie name")
	}
}
