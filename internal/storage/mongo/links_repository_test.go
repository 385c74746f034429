package mongo

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

func TestMapLinkDocRoundTripsThroughBSON(t *testing.T) {
	ios := "https://apps.apple.com/app/id1"
	expires := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	raw, err := bson.Marshal(bson.M{
		"_id":          "link_1",
		"domain":       "sho.rt",
		"key":          "promo",
		"url":          "https://example.com/landing",
		"ios":          ios,
		"geo":          bson.M{"BR": "https://example.com/br"},
		"archived":     false,
		"expiresAt":    expires,
		"rewrite":      true,
		"geoTargeting": true,
		"clicks":       int64(42),
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var doc linkDoc
	if err := bson.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	link := mapLinkDoc(doc)
	if link.ID != "link_1" || link.Domain != "sho.rt" || link.Key != "promo" {
		t.Fatalf("unexpected identity: %+v", link)
	}
	if link.TargetURL != "https://example.com/landing" {
		t.Fatalf("unexpected target: %q", link.TargetURL)
	}
	if link.IOSURL == nil || *link.IOSURL != ios {
		t.Fatalf("expected ios url, got %v", link.IOSURL)
	}
	if link.AndroidURL != nil {
		t.Fatalf("expected no android url, got %q", *link.AndroidURL)
	}
	if link.Geo["BR"] != "https://example.com/br" {
		t.Fatalf("unexpected geo map: %v", link.Geo)
	}
	if link.ExpiresAt == nil || !link.ExpiresAt.Equal(expires) {
		t.Fatalf("unexpected expiry: %v", link.ExpiresAt)
	}
	if !link.Rewrite || !link.Capabilities.GeoTargeting {
		t.Fatalf("expected rewrite and geo targeting flags: %+v", link)
	}
	if link.PasswordProtected() {
		t.Fatal("link without password must not be protected")
	}
}
