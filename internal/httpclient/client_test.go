package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSend_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer abc", r.Header.Get("Authorization"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "hi", body["message"])

		_, _ = w.Write([]byte(`{"reply":"hello"}`))
	}))
	defer server.Close()

	raw, err := Send(context.Background(), server.Client(), &Request{
		URL:     server.URL,
		Headers: map[string]string{"Authorization": "Bearer abc"},
		Body:    map[string]string{"message": "hi"},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"reply":"hello"}`, string(raw))
}

func TestSend_NoBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		b, _ := io.ReadAll(r.Body)
		assert.Empty(t, b)
		_, _ = w.Write([]byte(`ok`))
	}))
	defer server.Close()

	raw, err := Send(context.Background(), server.Client(), &Request{Method: http.MethodGet, URL: server.URL})
	require.NoError(t, err)
	assert.Equal(t, "ok", string(raw))
}

func TestSend_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"boom"}`))
	}))
	defer server.Close()

	_, err := Send(context.Background(), server.Client(), &Request{URL: server.URL + "/gen?key=topsecret"})
	require.Error(t, err)

	var upstream *UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, http.StatusInternalServerError, upstream.StatusCode)
	assert.Equal(t, `{"error":"boom"}`, string(upstream.Body))
	assert.Contains(t, err.Error(), "500 Internal Server Error")
	assert.NotContains(t, err.Error(), "topsecret")
}

func TestSend_TransportErrorHidesKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := Send(context.Background(), http.DefaultClient, &Request{URL: url + "/gen?key=topsecret"})
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "topsecret")
}

func TestRequestHeader(t *testing.T) {
	r := &Request{Headers: map[string]string{"x-api-key": "k"}}
	assert.Equal(t, "k", r.Header("X-Api-Key"))
	assert.Empty(t, r.Header("Authorization"))
}
