package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/graphschema/internal/api"
	"github.com/ajitpratap0/graphschema/internal/enforcer"
	"github.com/ajitpratap0/graphschema/internal/migration"
	"github.com/ajitpratap0/graphschema/internal/store"
	"github.com/ajitpratap0/graphschema/pkg/schema"
)

const ns = "acme/model"

func registry() *schema.Registry {
	r := schema.NewRegistry()
	r.Add(schema.Class(ns, "Device").Vertex().Root().
		Index(schema.NewIndex("Device.serial").On("serial").Statement("CREATE INDEX Device.serial ON Device (serial) UNIQUE")).
		Fields(schema.Prop("serial", schema.String).Mandatory()))
	return r
}

// newTestServer creates a test HTTP server over a MemoryStore.
func newTestServer(t *testing.T, namespace, authToken string, units ...migration.Migration) (*httptest.Server, *store.MemoryStore) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ms := store.NewMemoryStore()
	e := enforcer.New(registry(), ms, logger)
	srv := api.NewServer(e, ms, namespace, units, logger, authToken)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, ms
}

func do(t *testing.T, method, url, token string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), method, url, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &body))
	}
	return resp, body
}

func TestHealthz(t *testing.T) {
	ts, _ := newTestServer(t, ns, "secret")
	resp, body := do(t, http.MethodGet, ts.URL+"/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestAuthRequired(t *testing.T) {
	ts, _ := newTestServer(t, ns, "secret")

	resp, body := do(t, http.MethodPost, ts.URL+"/v1/enforce", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "unauthorized", body["error"])

	resp, _ = do(t, http.MethodPost, ts.URL+"/v1/enforce", "wrong")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = do(t, http.MethodPost, ts.URL+"/v1/enforce", "secret")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestEnforce(t *testing.T) {
	var applied int
	unit := migration.Func{ID: "seed", Fn: func(context.Context, store.Session) error {
		applied++
		return nil
	}}
	ts, ms := newTestServer(t, ns, "", unit)

	resp, body := do(t, http.MethodPost, ts.URL+"/v1/enforce", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, body["run_id"])
	assert.EqualValues(t, 1, body["entities"])
	assert.IsType(t, "", body["duration"])
	assert.Equal(t, 1, applied)
	assert.Equal(t, []string{"CREATE INDEX Device.serial ON Device (serial) UNIQUE"}, ms.Executed())
	assert.Zero(t, ms.Rebuilds(), "runs served over HTTP never rebuild")
}

func TestEnforce_NoNamespace(t *testing.T) {
	ts, _ := newTestServer(t, "", "")
	resp, body := do(t, http.MethodPost, ts.URL+"/v1/enforce", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], "namespace")
}

func TestEnforce_DataFailure(t *testing.T) {
	unit := migration.Func{ID: "broken", Fn: func(context.Context, store.Session) error { return errors.New("boom") }}
	ts, _ := newTestServer(t, ns, "", unit)
	resp, body := do(t, http.MethodPost, ts.URL+"/v1/enforce", "")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, body["error"], "data migration broken: boom")
}

func TestModel(t *testing.T) {
	ts, _ := newTestServer(t, ns, "")
	resp, err := http.Get(ts.URL + "/v1/model")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var entities []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&entities))
	require.Len(t, entities, 1)
	assert.Equal(t, "Device", entities[0]["simple_name"])
	assert.Equal(t, "VERTEX", entities[0]["kind"])
}

func TestIndexes(t *testing.T) {
	ts, ms := newTestServer(t, ns, "")

	resp, body := do(t, http.MethodPost, ts.URL+"/v1/indexes?rebuild=true", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, true, body["rebuilt"])
	assert.Equal(t, []any{"Device.serial"}, body["created"])
	assert.Equal(t, 1, ms.Rebuilds())
}

func TestIndexes_FailureIsMultiStatus(t *testing.T) {
	ts, ms := newTestServer(t, ns, "")
	ms.FailStatements("Device.serial", errors.New("boom"))

	resp, body := do(t, http.MethodPost, ts.URL+"/v1/indexes", "")
	assert.Equal(t, http.StatusMultiStatus, resp.StatusCode)
	assert.Equal(t, false, body["ok"])
	assert.EqualValues(t, 1, body["failures"])
}

func TestDebugVars(t *testing.T) {
	ts, _ := newTestServer(t, ns, "")
	do(t, http.MethodPost, ts.URL+"/v1/enforce", "")

	resp, body := do(t, http.MethodGet, ts.URL+"/debug/vars", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "graphschema_runs_total")
}
