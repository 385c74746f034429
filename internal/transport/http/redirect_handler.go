package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/IgorGrieder/linkedge/internal/processing/redirect"
	"github.com/IgorGrieder/linkedge/internal/transport/http/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var redirectDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "redirect_decisions_total",
		Help: "Redirect decisions by outcome",
	},
	[]string{"outcome", "status", "bot"},
)

// Decider turns an inbound request into a terminal redirect decision.
type Decider interface {
	Decide(ctx context.Context, req redirect.Request) redirect.Decision
}

type RedirectHandler struct {
	engine Decider
}

func NewRedirectHandler(engine Decider) *RedirectHandler {
	return &RedirectHandler{engine: engine}
}

func (h *RedirectHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d := h.engine.Decide(r.Context(), requestFromHTTP(r))

	status := h.respond(w, d)
	redirectDecisionsTotal.WithLabelValues(string(d.Outcome), strconv.Itoa(status), strconv.FormatBool(d.Bot)).Inc()
}

func (h *RedirectHandler) respond(w http.ResponseWriter, d redirect.Decision) int {
	w.Header().Set("X-Robots-Tag", "noindex")

	switch d.Outcome {
	case redirect.OutcomeRedirect:
		return writeRedirect(w, d.Location, d.Status)
	case redirect.OutcomeRewrite:
		writeRewrite(w, d.Location, d.Domain+"/"+d.Key)
		return http.StatusOK
	case redirect.OutcomeExpired:
		if d.Location != "" {
			return writeRedirect(w, d.Location, d.Status)
		}
		writePlaceholder(w, pageExpired)
		return pageExpired.Status
	case redirect.OutcomePasswordRequired:
		writePlaceholder(w, pagePasswordRequired)
		return pagePasswordRequired.Status
	case redirect.OutcomeUnavailable:
		writePlaceholder(w, pageUnavailable)
		return pageUnavailable.Status
	default:
		writePlaceholder(w, pageNotFound)
		return pageNotFound.Status
	}
}

func writeRedirect(w http.ResponseWriter, location string, status int) int {
	if status != http.StatusMovedPermanently {
		status = http.StatusFound
		// temporary redirects must reach the edge again so every click is counted
		w.Header().Set("Cache-Control", "private, no-cache, no-store, max-age=0")
	}
	w.Header().Set("Location", location)
	w.WriteHeader(status)
	return status
}

func requestFromHTTP(r *http.Request) redirect.Request {
	cookies := make(map[string]string)
	for _, c := range r.Cookies() {
		cookies[c.Name] = c.Value
	}

	return redirect.Request{
		Host:          r.Host,
		Path:          r.URL.EscapedPath(),
		RawQuery:      r.URL.RawQuery,
		UserAgent:     r.UserAgent(),
		Referer:       r.Referer(),
		ClientIP:      middleware.ClientIP(r),
		Cookies:       cookies,
		PasswordToken: r.Header.Get(redirect.PasswordTokenHeader),
	}
}
