package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/gridworks/datahub/internal/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func performWithError(t *testing.T, err error) *httptest.ResponseRecorder {
	t.Helper()

	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	c.Request = httptest.NewRequest(http.MethodGet, "/test", nil)

	HandleErrorGin(c, err, nil)
	return recorder
}

func TestHandleErrorGin(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"NotFound", apperrors.ErrNotFound, http.StatusNotFound, "not_found"},
		{"Conflict", apperrors.ErrConflict, http.StatusConflict, "conflict"},
		{"InvalidInput", apperrors.Wrap(apperrors.ErrInvalidInput, "empty acl key"), http.StatusUnprocessableEntity, "invalid_input"},
		{"Unauthorized", apperrors.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
		{"Forbidden", apperrors.Wrap(apperrors.ErrForbidden, "caller lacks OWNER"), http.StatusForbidden, "forbidden"},
		{"Locked", apperrors.ErrLocked, http.StatusLocked, "account_locked"},
		{"Unknown", apperrors.New("database unreachable"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := performWithError(t, tt.err)
			assert.Equal(t, tt.wantStatus, recorder.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantCode, resp.Error)
		})
	}

	t.Run("InternalErrorHidesDetails", func(t *testing.T) {
		recorder := performWithError(t, apperrors.New("pq: relation permissions does not exist"))

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
		assert.NotContains(t, resp.Message, "pq:")
	})

	t.Run("NilErrorWritesNothing", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(recorder)
		HandleErrorGin(c, nil, nil)
		assert.Empty(t, recorder.Body.String())
	})
}
