package domainkey

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func startBundler(t *testing.T) *Validator {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/domains/www.example.com" && r.URL.Query().Get("domainkey") == "good" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(server.Close)
	return NewValidator(server.URL+"/domains/", 0)
}

func TestValidate(t *testing.T) {
	v := startBundler(t)
	if err := v.Validate(context.Background(), "www.example.com", "good"); err != nil {
		t.Fatal(err)
	}
}

func TestValidateRejected(t *testing.T) {
	v := startBundler(t)
	err := v.Validate(context.Background(), "www.example.com", "bad")
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("Error is %v", err)
	}
}

func TestValidateMissing(t *testing.T) {
	v := startBundler(t)
	if err := v.Validate(context.Background(), "www.example.com", ""); !errors.Is(err, ErrMissing) {
		t.Fatalf("Error is %v", err)
	}
}
