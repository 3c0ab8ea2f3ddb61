package middleware

import (
	"context"
	"io"
	nethttp "net/http"
	"testing"

	pkglog "RelayBot/pkg/log"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type headerCarrier nethttp.Header

func (hc headerCarrier) Get(key string) string      { return nethttp.Header(hc).Get(key) }
func (hc headerCarrier) Set(key, value string)      { nethttp.Header(hc).Set(key, value) }
func (hc headerCarrier) Add(key, value string)      { nethttp.Header(hc).Add(key, value) }
func (hc headerCarrier) Values(key string) []string { return nethttp.Header(hc).Values(key) }
func (hc headerCarrier) Keys() []string {
	keys := make([]string, 0, len(hc))
	for k := range hc {
		keys = append(keys, k)
	}
	return keys
}

// fakeTransport is a server transport backed by a plain *http.Request.
type fakeTransport struct {
	req *nethttp.Request
}

func (f *fakeTransport) Kind() transport.Kind            { return transport.KindHTTP }
func (f *fakeTransport) Endpoint() string                { return "" }
func (f *fakeTransport) Operation() string               { return "/relaybot.v1.CommandService/Dispatch" }
func (f *fakeTransport) RequestHeader() transport.Header { return headerCarrier(f.req.Header) }
func (f *fakeTransport) ReplyHeader() transport.Header   { return headerCarrier(nethttp.Header{}) }
func (f *fakeTransport) Request() *nethttp.Request       { return f.req }
func (f *fakeTransport) PathTemplate() string            { return f.req.URL.Path }

func newServerContext(t *testing.T, header map[string]string) context.Context {
	t.Helper()
	req, err := nethttp.NewRequest(nethttp.MethodPost, "http://localhost/v1/commands", nil)
	require.NoError(t, err)
	req.RemoteAddr = "10.0.0.1:5555"
	for k, v := range header {
		req.Header.Set(k, v)
	}
	return transport.NewServerContext(context.Background(), &fakeTransport{req: req})
}

func testHelper() *pkglog.LogHelper {
	return pkglog.NewLogHelper(log.NewStdLogger(io.Discard))
}

func okHandler(ctx context.Context, req interface{}) (interface{}, error) {
	return pkglog.GetRequestID(ctx), nil
}

func TestLogging_UsesIncomingRequestID(t *testing.T) {
	ctx := newServerContext(t, map[string]string{RequestIDHeader: "abc123"})

	reply, err := Logging(testHelper())(okHandler)(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, "abc123", reply)
}

func TestLogging_GeneratesRequestID(t *testing.T) {
	reply, err := Logging(testHelper())(okHandler)(newServerContext(t, nil), nil)
	require.NoError(t, err)
	assert.Len(t, reply, 10)
}

func TestLogging_PassesErrorThrough(t *testing.T) {
	failing := func(context.Context, interface{}) (interface{}, error) {
		return nil, errors.BadRequest("INVALID_COMMAND", "command is required")
	}
	_, err := Logging(testHelper())(failing)(newServerContext(t, nil), nil)
	assert.True(t, errors.IsBadRequest(err))
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, 200, statusOf(nil))
	assert.Equal(t, 401, statusOf(ErrInvalidSecret))
	assert.Equal(t, 500, statusOf(io.EOF))
}

func TestExtractClientIP(t *testing.T) {
	req, err := nethttp.NewRequest(nethttp.MethodGet, "http://localhost/", nil)
	require.NoError(t, err)
	req.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1:5555", extractClientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.2")
	assert.Equal(t, "203.0.113.7", extractClientIP(req))

	req.Header.Set("X-Real-IP", "198.51.100.1")
	assert.Equal(t, "198.51.100.1", extractClientIP(req))
}

func TestWebhookSecret(t *testing.T) {
	tests := []struct {
		name    string
		secret  string
		header  map[string]string
		wantErr bool
	}{
		{name: "disabled", secret: "", header: nil},
		{name: "match", secret: "s3cret", header: map[string]string{SecretTokenHeader: "s3cret"}},
		{name: "missing", secret: "s3cret", header: nil, wantErr: true},
		{name: "mismatch", secret: "s3cret", header: map[string]string{SecretTokenHeader: "guess"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := WebhookSecret(tt.secret, testHelper())(okHandler)(newServerContext(t, tt.header), nil)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsUnauthorized(err))
				return
			}
			assert.NoError(t, err)
		})
	}
}
