package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type FakeChecker struct {
	connected bool
}

func (f *FakeChecker) IsConnected() bool {
	return f.connected
}

func TestHandler_GetHealth(t *testing.T) {
	handler := NewHandler(&FakeChecker{connected: true})

	recorder := httptest.NewRecorder()
	handler.GetHealth(recorder, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "application/json", recorder.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"UP"}`, recorder.Body.String())
}

func TestHandler_GetHealth_whenDependencyDisconnected_thenDown(t *testing.T) {
	handler := NewHandler(&FakeChecker{connected: true}, &FakeChecker{connected: false})

	recorder := httptest.NewRecorder()
	handler.GetHealth(recorder, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusServiceUnavailable, recorder.Code)
	assert.JSONEq(t, `{"status":"DOWN"}`, recorder.Body.String())
}

func TestHandler_GetHealth_whenNoCheckers_thenUp(t *testing.T) {
	handler := NewHandler()

	recorder := httptest.NewRecorder()
	handler.GetHealth(recorder, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"status":"UP"}`, recorder.Body.String())
}
