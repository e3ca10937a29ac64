package render

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

const psiResponse = `{
  "lighthouseResult": {
    "audits": {
      "final-screenshot": {
        "details": {
          "type": "screenshot",
          "data": "data:image/jpeg;base64,QUJD"
        }
      }
    }
  }
}`

func TestDecodeDataURI(t *testing.T) {
	shot, err := DecodeDataURI("data:image/png;base64,QUJD")
	if err != nil {
		t.Fatal(err)
	}
	if shot.ContentType != "image/png" {
		t.Fatalf("Content type is %s", shot.ContentType)
	}
	if !bytes.Equal(shot.Data, []byte{0x41, 0x42, 0x43}) {
		t.Fatalf("Data is %v", shot.Data)
	}
}

func TestDecodeDataURIUnpadded(t *testing.T) {
	for uri, want := range map[string]string{
		"data:image/png;base64,QUI":      "AB",
		"data:image/png;base64,QUJDRA":   "ABCD",
		"data:image/png;base64,QUJDRA==": "ABCD",
	} {
		shot, err := DecodeDataURI(uri)
		if err != nil {
			t.Fatalf("%s: %v", uri, err)
		}
		if string(shot.Data) != want {
			t.Fatalf("%s: data is %q", uri, shot.Data)
		}
	}
}

func TestDecodeDataURIMalformed(t *testing.T) {
	for _, uri := range []string{
		"image/png;base64,QUJD",
		"data:image/png;base64",
		"data:image/png;base64,%%%",
	} {
		if _, err := DecodeDataURI(uri); !errors.Is(err, ErrMalformedResponse) {
			t.Errorf("%s: error is %v", uri, err)
		}
	}
}

func startPSI(t *testing.T, handler http.HandlerFunc) (*Client, chan url.Values) {
	queries := make(chan url.Values, 10)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		queries <- r.URL.Query()
		handler(w, r)
	}))
	t.Cleanup(server.Close)
	client := NewClient(Config{
		Endpoint: server.URL + "/runPagespeed",
		Key:      "secret-key",
	})
	return client, queries
}

func TestRender(t *testing.T) {
	client, queries := startPSI(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(psiResponse))
	})
	target, _ := url.Parse("https://main--helix-website--adobe.aem.live/tools/rum/explorer.html?domain=x&view=week")

	shot, err := client.Render(context.Background(), target)
	if err != nil {
		t.Fatal(err)
	}
	if shot.ContentType != "image/jpeg" || string(shot.Data) != "ABC" {
		t.Fatalf("Screenshot is %s %q", shot.ContentType, shot.Data)
	}

	q := <-queries
	if q.Get("url") != target.String() {
		t.Fatalf("url parameter is %s", q.Get("url"))
	}
	if q.Get("key") != "secret-key" || q.Get("strategy") != "desktop" || q.Get("category") != "performance" {
		t.Fatalf("Query is %v", q)
	}
}

func TestRenderUpstreamError(t *testing.T) {
	client, _ := startPSI(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	})
	target, _ := url.Parse("https://example.com/")

	_, err := client.Render(context.Background(), target)
	if !errors.Is(err, ErrRenderFailure) {
		t.Fatalf("Error is %v", err)
	}
	if !strings.Contains(err.Error(), "429") || !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("Error lacks status or body: %v", err)
	}
}

func TestRenderMissingScreenshot(t *testing.T) {
	client, _ := startPSI(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"lighthouseResult":{"audits":{}}}`))
	})
	target, _ := url.Parse("https://example.com/")

	_, err := client.Render(context.Background(), target)
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("Error is %v", err)
	}
	if !strings.Contains(err.Error(), "lighthouseResult.audits.final-screenshot") {
		t.Fatalf("Error does not name the missing field: %v", err)
	}
}

func TestRenderInvalidJSON(t *testing.T) {
	client, _ := startPSI(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>`))
	})
	target, _ := url.Parse("https://example.com/")

	if _, err := client.Render(context.Background(), target); !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("Error is %v", err)
	}
}

func TestRenderUnreachable(t *testing.T) {
	client := NewClient(Config{Endpoint: "http://127.0.0.1:1/runPagespeed", Key: "secret-key"})
	target, _ := url.Parse("https://example.com/")

	_, err := client.Render(context.Background(), target)
	if !errors.Is(err, ErrRenderFailure) {
		t.Fatalf("Error is %v", err)
	}
	if strings.Contains(err.Error(), "secret-key") {
		t.Fatalf("Error leaks the key: %v", err)
	}
}
