package rates

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientLatest(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"result": "success",
			"base_code": "CNY",
			"conversion_rates": {"CNY": 1, "USD": 0.1389, "EUR": 0.128, "XAU": 0.00005, "JPY": 0}
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "secret")
	got, err := c.Latest(context.Background(), "CNY")
	require.NoError(t, err)

	assert.Equal(t, "/secret/latest/CNY", gotPath)
	require.Len(t, got, 3)
	assert.Equal(t, "CNY", got[0].To)
	assert.Equal(t, "1", got[0].Rate.String())

	byCode := map[string]string{}
	for _, r := range got {
		assert.Equal(t, "CNY", r.From)
		byCode[r.To] = r.Rate.String()
	}
	assert.Equal(t, "0.1389", byCode["USD"])
	assert.Equal(t, "0.128", byCode["EUR"])
	assert.NotContains(t, byCode, "XAU", "unsupported currencies are skipped")
	assert.NotContains(t, byCode, "JPY", "zero rates are skipped")
}

func TestClientLatestErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{name: "http error", status: http.StatusForbidden, body: "forbidden", wantErr: "status 403"},
		{name: "api error", status: http.StatusOK, body: `{"result":"error","error-type":"invalid-key"}`, wantErr: "invalid-key"},
		{name: "bad json", status: http.StatusOK, body: `{`, wantErr: "decode response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, "k").Latest(context.Background(), "USD")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestClientWithoutKey(t *testing.T) {
	_, err := NewClient("", "").Latest(context.Background(), "USD")
	assert.True(t, errors.Is(err, ErrNoAPIKey))
}
