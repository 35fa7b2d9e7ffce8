package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/koustreak/dbinspect/internal/config"
	"github.com/koustreak/dbinspect/internal/errs"
	"github.com/koustreak/dbinspect/internal/logger"
	"github.com/koustreak/dbinspect/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shopSnapshot() *schema.Snapshot {
	return schema.NewSnapshot(
		[]schema.Table{
			schema.NewTable("users", []schema.Column{schema.NewColumn("id", "int4", false)}),
			schema.NewTable("orders", []schema.Column{schema.NewColumn("user_id", "int4", true)}),
		},
		[]schema.ForeignKey{schema.NewForeignKey("orders", "users", "user_id", "id")},
	)
}

func newTestServer(t *testing.T, inspect InspectFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(New(config.ServerConfig{}, "public", inspect, logger.Nop()).Router())
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body bytes.Buffer
	_, err = body.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, body.String()
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, body := get(t, srv.URL+"/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok\n", body)
}

func TestSchema_Text(t *testing.T) {
	var gotSchema string
	srv := newTestServer(t, func(ctx context.Context, schemaName string) (*schema.Snapshot, error) {
		gotSchema = schemaName
		return shopSnapshot(), nil
	})

	resp, body := get(t, srv.URL+"/v1/schema")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/plain; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Equal(t, schema.RenderSchema(shopSnapshot()), body)
	assert.Equal(t, "public", gotSchema)
}

func TestSchema_JSONWithSchemaParam(t *testing.T) {
	var gotSchema string
	srv := newTestServer(t, func(ctx context.Context, schemaName string) (*schema.Snapshot, error) {
		gotSchema = schemaName
		return shopSnapshot(), nil
	})

	resp, body := get(t, srv.URL+"/v1/schema?schema=billing&format=json")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, "billing", gotSchema)

	var snap schema.Snapshot
	require.NoError(t, json.Unmarshal([]byte(body), &snap))
	assert.Equal(t, []string{"users", "orders"}, snap.TableNames())
}

func TestSchema_BadFormat(t *testing.T) {
	called := false
	srv := newTestServer(t, func(ctx context.Context, schemaName string) (*schema.Snapshot, error) {
		called = true
		return shopSnapshot(), nil
	})

	resp, body := get(t, srv.URL+"/v1/schema?format=xml")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, `"error":"invalid_input"`)
	assert.False(t, called)
}

func TestSchema_Errors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"unsupported scheme", errs.New(errs.ErrKindUnsupportedScheme, `unsupported scheme "oracle"`), http.StatusBadRequest},
		{"not implemented", errs.New(errs.ErrKindNotImplemented, "cockroachdb"), http.StatusNotImplemented},
		{"connection", errs.New(errs.ErrKindConnectionFailed, "ping failed"), http.StatusBadGateway},
		{"permission", errs.New(errs.ErrKindPermissionDenied, "denied"), http.StatusForbidden},
		{"timeout", errs.New(errs.ErrKindTimeout, "deadline"), http.StatusGatewayTimeout},
		{"inconsistent", errs.New(errs.ErrKindInconsistentCatalog, "fk_1"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, func(ctx context.Context, schemaName string) (*schema.Snapshot, error) {
				return nil, tt.err
			})

			resp, body := get(t, srv.URL+"/v1/schema")
			assert.Equal(t, tt.status, resp.StatusCode)

			var eb errorBody
			require.NoError(t, json.Unmarshal([]byte(body), &eb))
			assert.Equal(t, errs.KindOf(tt.err).String(), eb.Error)
			assert.Equal(t, tt.err.Error(), eb.Message)
		})
	}
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(&logger.Config{Level: "info", Format: "json", Output: &buf})
	h := New(config.ServerConfig{}, "public", nil, log).Router()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, buf.String(), `"path":"/healthz"`)
	assert.Contains(t, buf.String(), `"status":200`)
	assert.Contains(t, buf.String(), `"request_id":`)
}

func TestRun_StopsOnCancel(t *testing.T) {
	s := New(config.ServerConfig{Addr: "127.0.0.1:0"}, "public", nil, logger.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, s.Run(ctx))
}

func TestSchema_ErrorLogsQuery(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(&logger.Config{Level: "info", Format: "json", Output: &buf})
	inspect := func(ctx context.Context, schemaName string) (*schema.Snapshot, error) {
		return nil, errs.Wrap(errs.ErrKindQueryFailed, "list tables",
			errs.New(errs.ErrKindQueryFailed, "permission denied").WithQuery("\n\t\tSELECT table_name\n\t\tFROM information_schema.tables"))
	}
	h := New(config.ServerConfig{}, "public", inspect, log).Router()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/schema", nil))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.NotContains(t, rec.Body.String(), "SELECT")
	assert.Contains(t, buf.String(), `"query":"SELECT table_name FROM information_schema.tables"`)
	assert.Contains(t, buf.String(), `"kind":"query_failed"`)
}
