package redirect

import (
	"net/url"
	"time"
)

// Capabilities are plan-gated features handed in by the workspace owner.
type Capabilities struct {
	GeoTargeting bool `json:"geoTargeting"`
}

type LinkRecord struct {
	ID         string            `json:"id" validate:"notblank"`
	Domain     string            `json:"domain" validate:"notblank"`
	Key        string            `json:"key" validate:"notblank"`
	TargetURL  string            `json:"url"`
	IOSURL     *string           `json:"ios,omitempty"`
	AndroidURL *string           `json:"android,omitempty"`
	Geo        map[string]string `json:"geo,omitempty"`

	Archived   bool       `json:"archived"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
	ExpiredURL *string    `json:"expiredUrl,omitempty"`

	PasswordHash *string `json:"password,omitempty"`
	Rewrite      bool    `json:"rewrite"`

	ProjectID    string       `json:"projectId,omitempty"`
	Capabilities Capabilities `json:"capabilities"`
}

func (l *LinkRecord) Expired(now time.Time) bool {
	return l.ExpiresAt != nil && !l.ExpiresAt.After(now)
}

func (l *LinkRecord) PasswordProtected() bool {
	return l.PasswordHash != nil && *l.PasswordHash != ""
}

type Outcome string

const (
	OutcomeNotFound         Outcome = "NOT_FOUND"
	OutcomeExpired          Outcome = "EXPIRED"
	OutcomePasswordRequired Outcome = "PASSWORD_REQUIRED"
	OutcomeRedirect         Outcome = "REDIRECT"
	OutcomeRewrite          Outcome = "REWRITE"
	OutcomeUnavailable      Outcome = "UNAVAILABLE"
)

// Normalized is the canonical form of an inbound request.
type Normalized struct {
	Domain  string
	Key     string
	FullKey string
	Query   url.Values
}

// Request carries what the engine needs from an inbound HTTP request.
type Request struct {
	Host          string
	Path          string
	RawQuery      string
	UserAgent     string
	Referer       string
	ClientIP      string
	Cookies       map[string]string
	PasswordToken string
}

// Decision is the terminal state of one request.
type Decision struct {
	Outcome  Outcome
	Domain   string
	Key      string
	Link     *LinkRecord
	Location string
	Status   int
	Bot      bool
	Device   Device
}
