package redirect

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	PasswordCookiePrefix = "link_pw_"
	PasswordTokenHeader  = "X-Link-Password-Token"
)

var errTokenSubject = errors.New("token subject mismatch")

type passwordClaims struct {
	// Fingerprint binds the token to the password it was issued for, so a
	// password change invalidates outstanding tokens.
	Fingerprint string `json:"pwf"`
	jwt.RegisteredClaims
}

// PasswordTokens verifies (and, for the external verification form, issues)
// the short-lived tokens that unlock password-protected links.
type PasswordTokens struct {
	secret []byte
	now    func() time.Time
}

func NewPasswordTokens(secret string) *PasswordTokens {
	return &PasswordTokens{secret: []byte(secret), now: time.Now}
}

// PasswordCookieName encodes key so multi-segment and non-ASCII keys still
// form a valid cookie name.
func PasswordCookieName(key string) string {
	return PasswordCookiePrefix + base64.RawURLEncoding.EncodeToString([]byte(key))
}

func (p *PasswordTokens) Issue(link *LinkRecord, ttl time.Duration) (string, error) {
	now := p.now()
	claims := passwordClaims{
		Fingerprint: passwordFingerprint(link),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   tokenSubject(link),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
}

// Valid reports whether token unlocks link. Without a configured secret no
// token is ever valid.
func (p *PasswordTokens) Valid(token string, link *LinkRecord) bool {
	if p == nil || len(p.secret) == 0 || token == "" {
		return false
	}
	return p.verify(token, link) == nil
}

func (p *PasswordTokens) verify(token string, link *LinkRecord) error {
	claims := &passwordClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return p.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil {
		return err
	}
	if claims.Subject != tokenSubject(link) || claims.Fingerprint != passwordFingerprint(link) {
		return errTokenSubject
	}
	return nil
}

func tokenSubject(link *LinkRecord) string {
	return link.Domain + ":" + link.Key
}

func passwordFingerprint(link *LinkRecord) string {
	if link.PasswordHash == nil {
		return ""
	}
	sum := sha256.Sum256([]byte(*link.PasswordHash))
	return hex.EncodeToString(sum[:8])
}
