package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	appctx "github.com/Ramsey-B/clover/pkg/context"
	"github.com/Ramsey-B/clover/pkg/linkage"
	"github.com/goccy/go-json"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func newTestServer(handler echo.HandlerFunc) *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = Error(testLogger())
	e.Use(Context())
	e.Use(Logger(testLogger()))
	e.GET("/test", handler)
	return e
}

func TestContext_RequestID(t *testing.T) {
	var seen string
	e := newTestServer(func(c echo.Context) error {
		seen = appctx.GetRequestID(c.Request().Context())
		return c.NoContent(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(echo.HeaderXRequestID, "req-123")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, "req-123", seen)
	assert.Equal(t, "req-123", rec.Header().Get(echo.HeaderXRequestID))

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.NotEmpty(t, seen)
	assert.NotEqual(t, "req-123", seen)
	assert.Equal(t, seen, rec.Header().Get(echo.HeaderXRequestID))
}

func TestError_StatusMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{name: "invalid mode", err: fmt.Errorf("%w: %q", linkage.ErrInvalidMode, "scaling"), wantCode: http.StatusBadRequest, wantMsg: "invalid clean mode"},
		{name: "validation", err: &linkage.ValidationError{RecordID: 7, Fields: []string{"zip"}}, wantCode: http.StatusBadRequest, wantMsg: "restaurant 7 is missing zip"},
		{name: "pass in progress", err: linkage.ErrPassInProgress, wantCode: http.StatusConflict, wantMsg: "clean pass already in progress"},
		{name: "not found", err: fmt.Errorf("restaurant 9: %w", linkage.ErrNotFound), wantCode: http.StatusNotFound, wantMsg: "not found"},
		{name: "http error", err: httperror.NewHTTPError(http.StatusNotFound, "restaurant 3 not found"), wantCode: http.StatusNotFound, wantMsg: "restaurant 3 not found"},
		{name: "echo error", err: echo.NewHTTPError(http.StatusBadRequest, "invalid id"), wantCode: http.StatusBadRequest, wantMsg: "invalid id"},
		{name: "unknown", err: fmt.Errorf("dial tcp: refused"), wantCode: http.StatusInternalServerError, wantMsg: "Internal Server Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestServer(func(echo.Context) error { return tt.err })

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			req.Header.Set(echo.HeaderXRequestID, "req-err")
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			require.Equal(t, tt.wantCode, rec.Code)
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Contains(t, body.Message, tt.wantMsg)
			assert.Equal(t, "req-err", body.RequestID)
		})
	}
}

func TestError_ValidationMeta(t *testing.T) {
	code, _, meta := classify(&linkage.ValidationError{RecordID: 7, Fields: []string{"state", "zip"}})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, int64(7), meta["record_id"])
	assert.Equal(t, []string{"state", "zip"}, meta["fields"])
}
