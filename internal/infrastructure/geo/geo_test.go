package geo

import "testing"

func TestLocatorWithoutDatabase(t *testing.T) {
	l, err := Open("")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got := l.Country("8.8.8.8"); got != "" {
		t.Fatalf("expected empty country, got %q", got)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestNilLocatorIsSafe(t *testing.T) {
	var l *Locator
	if got := l.Country("not-an-ip"); got != "" {
		t.Fatalf("expected empty country, got %q", got)
	}
}

func TestOpenMissingDatabase(t *testing.T) {
	if _, err := Open("/nonexistent/GeoLite2-City.mmdb"); err == nil {
		t.Fatal("expected error for missing database")
	}
}
