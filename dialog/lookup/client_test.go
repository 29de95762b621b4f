package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	contractx "github.com/voxline/custodyline/dialog/contract"
)

func TestClientLookupFound(t *testing.T) {
	t.Parallel()

	var gotReq contractx.LookupRequest
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		if r.URL.Path != "/lookups" {
			t.Fatalf("path = %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		fmt.Fprint(w, `{"found":true,"status_text":"In custody, Facility X"}`)
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(ClientConfig{URL: server.URL, Token: "secret"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	res, err := client.Lookup(context.Background(), testReq)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if res.Status != contractx.LookupSuccess || res.StatusText != "In custody, Facility X" {
		t.Fatalf("result = %+v", res)
	}
	if gotReq.DateOfBirth != "1990-01-15" {
		t.Fatalf("wire dob = %q, want canonical form", gotReq.DateOfBirth)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("auth header = %q", gotAuth)
	}
}

func TestClientLookupNotFound(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"found":false}`)
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(ClientConfig{URL: server.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	res, err := client.Lookup(context.Background(), testReq)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if res.Status != contractx.LookupNotFound {
		t.Fatalf("status = %s", res.Status)
	}
}

func TestClientLookupServerError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(ClientConfig{URL: server.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	if _, err := client.Lookup(context.Background(), testReq); err == nil {
		t.Fatal("expected error for 500 response")
	}
}

func TestNewClientValidatesURL(t *testing.T) {
	t.Parallel()

	if _, err := NewClient(ClientConfig{URL: ""}); err == nil {
		t.Fatal("expected error for empty url")
	}
	if _, err := NewClient(ClientConfig{URL: "://bad"}); err == nil {
		t.Fatal("expected error for malformed url")
	}
}
