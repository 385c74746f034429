package redirect

import "testing"

func TestNormalize(t *testing.T) {
	aliases := map[string]string{
		"localhost:8080":  "sho.rt",
		"staging.sho.rt":  "sho.rt",
		"preview.example": "sho.rt",
	}

	tests := []struct {
		name        string
		host        string
		path        string
		wantDomain  string
		wantKey     string
		wantFullKey string
	}{
		{"plain", "sho.rt", "/promo", "sho.rt", "promo", "promo"},
		{"uppercase host and www", "WWW.Sho.RT", "/promo", "sho.rt", "promo", "promo"},
		{"alias with port", "localhost:8080", "/promo", "sho.rt", "promo", "promo"},
		{"alias without port match", "preview.example:3000", "/promo", "sho.rt", "promo", "promo"},
		{"staging alias", "staging.sho.rt", "/promo", "sho.rt", "promo", "promo"},
		{"unknown host keeps name and drops port", "go.acme.com:443", "/x", "go.acme.com", "x", "x"},
		{"multi segment", "sho.rt", "/docs/setup", "sho.rt", "docs", "docs/setup"},
		{"trailing slash", "sho.rt", "/promo/", "sho.rt", "promo", "promo"},
		{"percent encoded unicode", "sho.rt", "/%E6%97%A5%E6%9C%AC", "sho.rt", "日本", "日本"},
		{"invalid escape falls back to raw", "sho.rt", "/bad%zz", "sho.rt", "bad%zz", "bad%zz"},
		{"root", "sho.rt", "/", "sho.rt", RootKey, RootKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.host, tt.path, "", aliases)
			if got.Domain != tt.wantDomain {
				t.Errorf("Domain = %q, want %q", got.Domain, tt.wantDomain)
			}
			if got.Key != tt.wantKey {
				t.Errorf("Key = %q, want %q", got.Key, tt.wantKey)
			}
			if got.FullKey != tt.wantFullKey {
				t.Errorf("FullKey = %q, want %q", got.FullKey, tt.wantFullKey)
			}
		})
	}
}

func TestNormalizeQuery(t *testing.T) {
	got := Normalize("sho.rt", "/promo", "utm_source=x&bad=%zz&utm_medium=y", nil)
	if got.Query.Get("utm_source") != "x" || got.Query.Get("utm_medium") != "y" {
		t.Errorf("Query = %v, want well-formed pairs kept", got.Query)
	}
	if got.Query.Has("bad") {
		t.Errorf("Query kept malformed pair: %v", got.Query)
	}
}
