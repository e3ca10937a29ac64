package rumproxy

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/aemlive/rum-proxy/pkg/opengraph"
	"github.com/aemlive/rum-proxy/preview"

	"github.com/rs/zerolog/hlog"
)

const (
	// android-app://<package> links have no page to fetch
	androidScheme = "android-app"
	playStoreURL  = "https://play.google.com/store/apps/details?id="
	ogImageMaxAge = "public, max-age=7200"
)

// handleImage serves the preview image of a dashboard view, or proxies the
// image of a third-party page when called with proxyurl.
func (p *Proxy) handleImage(w http.ResponseWriter, r *http.Request) {
	logger := hlog.FromRequest(r)
	q := r.URL.Query()

	domain := q.Get("domain")
	if proxyURL := q.Get("proxyurl"); domain == "" && proxyURL != "" {
		target, err := parseTarget(proxyURL)
		if err != nil {
			logger.Debug().Err(err).Msg("Not proxying image")
			sendError(w, http.StatusBadRequest, ErrInvalidTarget.Error())
			return
		}
		if q.Get("mode") == "screenshot" {
			p.serveScreenshot(w, r, target)
		} else {
			p.redirectOpenGraphImage(w, r, target)
		}
		return
	}

	view := q.Get("view")
	if domain == "" || view == "" {
		sendError(w, http.StatusBadRequest, "missing domain or view")
		return
	}

	key := p.keyer.GetKey(domain, view, q)
	res, err := p.previews.Serve(r.Context(), key, r.URL)
	if err != nil {
		logger.Error().Err(err).Str("key", key).Msg("Could not serve preview")
		sendError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := res.Write(w); err != nil {
		logger.Debug().Err(err).Msg("Could not write preview")
	}
}

// parseTarget parses an absolute URL. App links are mapped to their store page.
func parseTarget(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTarget, raw)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTarget, raw)
	}
	if u.Scheme == androidScheme {
		return url.Parse(playStoreURL + url.QueryEscape(u.Host))
	}
	return u, nil
}

// serveScreenshot renders target synchronously.
func (p *Proxy) serveScreenshot(w http.ResponseWriter, r *http.Request, target *url.URL) {
	shot, err := p.renderer.Render(r.Context(), target)
	if err != nil {
		hlog.FromRequest(r).Warn().Err(err).Str("target", target.String()).Msg("Screenshot failed")
		sendError(w, http.StatusInternalServerError, "failed to take screenshot")
		return
	}
	w.Header().Set("Content-Type", shot.ContentType)
	w.Header().Set("Cache-Control", preview.ImmutableCacheControl)
	w.WriteHeader(http.StatusOK)
	w.Write(shot.Data)
}

// redirectOpenGraphImage sends the client to the og:image of target.
func (p *Proxy) redirectOpenGraphImage(w http.ResponseWriter, r *http.Request, target *url.URL) {
	logger := hlog.FromRequest(r)
	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, target.String(), nil)
	if err != nil {
		sendError(w, http.StatusBadRequest, err.Error())
		return
	}
	// some sites only send their tags to browsers
	req.Header.Set("User-Agent", r.Header.Get("User-Agent"))
	req.Header.Set("Accept", "text/html")

	res, err := p.client.Do(req)
	if err != nil {
		logger.Warn().Err(err).Str("target", target.String()).Msg("Could not fetch page")
		sendError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer res.Body.Close()

	image, found, err := opengraph.FindImage(res.Body)
	if err != nil {
		sendError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !found || strings.TrimSpace(image) == "" {
		sendError(w, http.StatusNotFound, "no og:image found")
		return
	}

	logger.Debug().Str("target", target.String()).Str("image", image).Msg("Redirecting to og:image")
	w.Header().Set("Location", image)
	w.Header().Set("Cache-Control", ogImageMaxAge)
	w.WriteHeader(http.StatusMovedPermanently)
}
