package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"studiodesk/pkg/config"

	"github.com/stretchr/testify/require"
)

func TestEngineServesMetrics(t *testing.T) {
	r := NewEngine(config.Default())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
}
