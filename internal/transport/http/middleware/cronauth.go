package middleware

import (
	"bytes"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/IgorGrieder/linkedge/internal/constants"
	"github.com/IgorGrieder/linkedge/internal/infrastructure/logger"
	"github.com/IgorGrieder/linkedge/pkg/httputils"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const (
	CronSignatureHeader = "X-Cron-Signature"

	maxCronBodyBytes = 64 << 10
	maxCronTokenTTL  = 5 * time.Minute
)

var (
	errBodyMismatch    = errors.New("body hash mismatch")
	errTokenLifetime   = errors.New("token lifetime exceeds limit")
	errMissingIssuedAt = errors.New("token has no iat claim")
)

type cronClaims struct {
	Body string `json:"body"`
	jwt.RegisteredClaims
}

// CronAuthMiddleware accepts a request only when X-Cron-Signature carries an
// HS256 token from issuer whose body claim is the base64url SHA-256 of the
// request body. Tokens must carry iat and exp at most five minutes apart.
// With no secret configured every request is rejected.
func CronAuthMiddleware(secret, issuer string) func(http.Handler) http.Handler {
	key := []byte(secret)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(key) == 0 {
				logger.Warn("cron trigger rejected, no signing secret configured")
				httputils.WriteAPIError(w, r, constants.ErrInvalidSignature)
				return
			}

			token := strings.TrimSpace(r.Header.Get(CronSignatureHeader))
			if token == "" {
				httputils.WriteAPIError(w, r, constants.ErrInvalidSignature)
				return
			}

			body, err := io.ReadAll(io.LimitReader(r.Body, maxCronBodyBytes))
			if err != nil {
				httputils.WriteAPIError(w, r, constants.ErrInvalidRequestBody)
				return
			}
			_ = r.Body.Close()
			r.Body = io.NopCloser(bytes.NewReader(body))

			if err := verifyCronToken(token, key, issuer, body); err != nil {
				logger.Warn("cron trigger rejected", zap.Error(err))
				httputils.WriteAPIError(w, r, constants.ErrInvalidSignature)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func verifyCronToken(token string, key []byte, issuer string, body []byte) error {
	claims := &cronClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		return err
	}
	if claims.IssuedAt == nil {
		return errMissingIssuedAt
	}
	if claims.ExpiresAt.Sub(claims.IssuedAt.Time) > maxCronTokenTTL {
		return errTokenLifetime
	}
	if subtle.ConstantTimeCompare([]byte(claims.Body), []byte(BodyDigest(body))) != 1 {
		return errBodyMismatch
	}
	return nil
}

func BodyDigest(body []byte) string {
	sum := sha256.Sum256(body)
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// SignCronRequest produces the X-Cron-Signature value for body.
func SignCronRequest(secret, issuer string, body []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := cronClaims{
		Body: BodyDigest(body),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
