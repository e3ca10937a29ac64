package rumproxy

import (
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/hlog"
)

var corsHeaders = map[string]string{
	"Access-Control-Allow-Origin":      "*",
	"Access-Control-Allow-Credentials": "true",
	"Access-Control-Allow-Headers":     "Content-Type",
	"Access-Control-Allow-Methods":     "GET, POST, OPTIONS",
	"Access-Control-Max-Age":           "86400",
}

// handleCors fetches url for the browser once domainkey proves access to its domain.
// Only HTML and JSON are relayed.
func (p *Proxy) handleCors(w http.ResponseWriter, r *http.Request) {
	logger := hlog.FromRequest(r)
	q := r.URL.Query()

	backend, err := parseTarget(q.Get("url"))
	if err != nil {
		logger.Debug().Err(err).Msg("Not relaying")
		sendError(w, http.StatusBadRequest, ErrInvalidTarget.Error())
		return
	}

	if err := p.domainKeys.Validate(r.Context(), backend.Hostname(), q.Get("domainkey")); err != nil {
		logger.Info().Err(err).Str("domain", backend.Hostname()).Msg("Domain key not accepted")
		sendError(w, http.StatusServiceUnavailable, "other error validating domain key: "+err.Error())
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, backend.String(), nil)
	if err != nil {
		sendError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := p.client.Do(req)
	if err != nil {
		logger.Warn().Err(err).Str("url", backend.String()).Msg("Could not fetch CORS backend")
		sendError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	defer res.Body.Close()

	contentType := res.Header.Get("Content-Type")
	if res.StatusCode < 200 || res.StatusCode > 299 ||
		(!strings.Contains(contentType, "html") && !strings.Contains(contentType, "json")) {
		sendError(w, http.StatusNotFound, "not found: "+http.StatusText(res.StatusCode))
		return
	}

	copyHeader(w.Header(), res.Header)
	for name, value := range corsHeaders {
		w.Header().Set(name, value)
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, res.Body); err != nil {
		logger.Debug().Err(err).Msg("Could not relay CORS body")
	}
}
