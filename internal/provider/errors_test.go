package provider_test

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pollwatch/pollwatch/internal/provider"
	"github.com/pollwatch/pollwatch/internal/provider/resilience"
)

func TestFromStatus(t *testing.T) {
	tests := []struct {
		status int
		want   provider.Kind
	}{
		{http.StatusNotFound, provider.KindNotFound},
		{http.StatusUnauthorized, provider.KindUnauthorized},
		{http.StatusForbidden, provider.KindUnauthorized},
		{http.StatusGatewayTimeout, provider.KindTimeout},
		{http.StatusTooManyRequests, provider.KindOther},
		{http.StatusInternalServerError, provider.KindOther},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			err := provider.FromStatus("test", tt.status, "")
			assert.Equal(t, tt.want, err.Kind)
			assert.Equal(t, tt.status, err.StatusCode)
		})
	}
}

func TestFromStatus_Detail(t *testing.T) {
	err := provider.FromStatus("openweathermap", http.StatusNotFound, "city not found")

	assert.Equal(t, "openweathermap: not_found (status 404): city not found", err.Error())
}

func TestFromTransport(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want provider.Kind
	}{
		{"deadline", fmt.Errorf("executing request: %w", context.DeadlineExceeded), provider.KindTimeout},
		{"circuit open", resilience.ErrCircuitOpen, provider.KindConnection},
		{"dial", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, provider.KindConnection},
		{"dns", &net.DNSError{Err: "no such host", Name: "example.invalid"}, provider.KindConnection},
		{"other", errors.New("weird"), provider.KindOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := provider.FromTransport("test", tt.err)
			assert.Equal(t, tt.want, err.Kind)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestFromTransport_ClientTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := &http.Client{Timeout: 50 * time.Millisecond}
	resp, err := client.Get(server.URL)
	if resp != nil {
		resp.Body.Close()
	}
	require.Error(t, err)

	assert.Equal(t, provider.KindTimeout, provider.FromTransport("test", err).Kind)
}

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("poll: %w", provider.NewError("yahoo", provider.KindNotFound, provider.ErrNoData))

	assert.Equal(t, provider.KindNotFound, provider.KindOf(wrapped))
	assert.True(t, provider.IsProviderError(wrapped))
	assert.ErrorIs(t, wrapped, provider.ErrNoData)

	assert.Equal(t, provider.KindOther, provider.KindOf(errors.New("plain")))
	assert.False(t, provider.IsProviderError(errors.New("plain")))
}
