package rumproxy

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/aemlive/rum-proxy/pkg/opengraph"
)

func (p *Proxy) modifyResponse(res *http.Response) error {
	if rule := p.rules.Apply(res); rule != nil {
		p.log.Trace().Str("path", res.Request.URL.Path).Msgf("Applied rule %+v", *rule)
	}
	return p.injectOpenGraph(res)
}

// injectOpenGraph adds the preview tags to successful explorer pages.
// Everything else is passed through unchanged.
func (p *Proxy) injectOpenGraph(res *http.Response) error {
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil
	}
	// only GET responses carry a page to rewrite
	if res.Request == nil || res.Request.Method != http.MethodGet || res.Request.URL.Path != ExplorerPath {
		return nil
	}

	page, err := io.ReadAll(res.Body)
	res.Body.Close()
	if err != nil {
		return fmt.Errorf("read explorer page: %w", err)
	}
	page = opengraph.Inject(page, opengraph.Tags(res.Request.URL.Query(), p.imageURL))

	res.Body = io.NopCloser(bytes.NewReader(page))
	res.ContentLength = int64(len(page))
	res.Header.Set("Content-Length", strconv.Itoa(len(page)))
	res.Header.Del("Content-Encoding")
	res.Header.Del("ETag")
	p.log.Debug().Str("url", res.Request.URL.String()).Msg("Injected Open-Graph tags")
	return nil
}
