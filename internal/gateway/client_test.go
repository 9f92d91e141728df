package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	domainErrors "github.com/cassiomorais/gateway/internal/domain/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPClient_Authorize(t *testing.T) {
	var gotPath string
	var gotUser string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUser, _, _ = r.BasicAuth()

		var req AuthorizationRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "ORDER-100", req.MerchantReference)

		json.NewEncoder(w).Encode(AuthorizationResult{
			AuthResult:   "AUTHORISED",
			PspReference: "psp-123",
		})
	}))
	defer srv.Close()

	client := NewHTTPClient(Config{
		BaseURL:        srv.URL,
		ClientUser:     "ws-user",
		ClientPassword: "ws-pass",
	})

	result, err := client.Authorize(context.Background(), AuthorizationRequest{MerchantReference: "ORDER-100"})
	require.NoError(t, err)

	assert.Equal(t, "/authorise", gotPath)
	assert.Equal(t, "ws-user", gotUser)
	assert.Equal(t, "AUTHORISED", result.AuthResult)
	assert.Equal(t, "psp-123", result.PspReference)
}

func TestHTTPClient_Modify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/capture", r.URL.Path)
		json.NewEncoder(w).Encode(ModificationResponse{
			Response:     "[capture-received]",
			PspReference: "mod-123",
		})
	}))
	defer srv.Close()

	client := NewHTTPClient(Config{BaseURL: srv.URL})

	resp, err := client.Modify(context.Background(), "capture", ModificationRequest{Reference: "ORDER-100"})
	require.NoError(t, err)
	assert.Equal(t, "[capture-received]", resp.Response)
	assert.Equal(t, "mod-123", resp.PspReference)
}

func TestHTTPClient_ServerErrorIsUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewHTTPClient(Config{BaseURL: srv.URL})

	_, err := client.Authorize(context.Background(), AuthorizationRequest{})
	assert.ErrorIs(t, err, domainErrors.ErrGatewayUnreachable, "a 5xx leaves the outcome unknown")
}

func TestHTTPClient_TransportErrorIsUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	client := NewHTTPClient(Config{BaseURL: srv.URL})

	_, err := client.Authorize(context.Background(), AuthorizationRequest{})
	assert.ErrorIs(t, err, domainErrors.ErrGatewayUnreachable)
}

func TestHTTPClient_ClientErrorIsNotUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewHTTPClient(Config{BaseURL: srv.URL})

	_, err := client.Authorize(context.Background(), AuthorizationRequest{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, domainErrors.ErrGatewayUnreachable, "a definite rejection is not an unknown outcome")
}

func TestConfig_BaseURL(t *testing.T) {
	assert.Contains(t, Config{Environment: EnvironmentTest}.baseURL(), "pal-test")
	assert.Contains(t, Config{Environment: EnvironmentLive}.baseURL(), "pal-live")
	assert.Equal(t, "http://stub", Config{BaseURL: "http://stub"}.baseURL())
}
