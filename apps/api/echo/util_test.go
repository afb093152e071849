package echoapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trezcool/notas/apps/api/echo"
	"github.com/trezcool/notas/services/logger"
	"github.com/trezcool/notas/tests"
)

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     interface{}
	wantCode int
}

func setup(t *testing.T) (*echoapi.Server, *testutil.Env) {
	t.Helper()

	env := testutil.NewEnv(t)
	_, translator := testutil.NewValidator()
	conf := testutil.NewConfig()
	conf.Server.DisableReqLogs = true

	srv := echoapi.NewServer(conf, &echoapi.Deps{
		GradingSvc: env.Svc,
		Translator: translator,
		Logger:     logsvc.NewDiscardLogger(),
	})
	return srv, env
}

func newRequest(t *testing.T, method, path string, data interface{}) (*http.Request, *httptest.ResponseRecorder) {
	t.Helper()

	var body bytes.Buffer
	if data != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(data))
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	return req, httptest.NewRecorder()
}

// do serves the request and decodes the response body into `out` (if not nil).
func do(t *testing.T, srv http.Handler, method, path string, data, out interface{}) int {
	t.Helper()

	req, rec := newRequest(t, method, path, data)
	srv.ServeHTTP(rec, req)
	if out != nil && rec.Body.Len() > 0 {
		require.NoErrorf(t, json.Unmarshal(rec.Body.Bytes(), out), "body: %s", rec.Body.String())
	}
	return rec.Code
}
