package version

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func releaseServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name    string
		current string
		body    string
		want    *Update
	}{
		{"newer release", "v1.2.0", `{"tag_name":"v1.3.0"}`, &Update{Current: "v1.2.0", Latest: "v1.3.0"}},
		{"up to date", "v1.3.0", `{"tag_name":"v1.3.0"}`, nil},
		{"ahead of release", "1.4.0", `{"tag_name":"v1.3.0"}`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := releaseServer(t, http.StatusOK, tt.body)
			c := &Checker{URL: srv.URL, Current: tt.current, Client: srv.Client()}

			got, err := c.Check(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCheck_Errors(t *testing.T) {
	srv := releaseServer(t, http.StatusForbidden, `{}`)
	c := &Checker{URL: srv.URL, Current: "v1.0.0", Client: srv.Client()}
	_, err := c.Check(context.Background())
	assert.Error(t, err)

	srv = releaseServer(t, http.StatusOK, `{"tag_name":"not-a-version"}`)
	c = &Checker{URL: srv.URL, Current: "v1.0.0", Client: srv.Client()}
	_, err = c.Check(context.Background())
	assert.Error(t, err)
}
