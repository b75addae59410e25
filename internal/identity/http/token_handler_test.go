package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	identityDomain "github.com/gridworks/datahub/internal/identity/domain"
	"github.com/gridworks/datahub/internal/identity/http/dto"
	httpMocks "github.com/gridworks/datahub/internal/identity/http/mocks"
)

// setupTokenTestHandler creates a test token handler with mocked dependencies.
func setupTokenTestHandler(t *testing.T) (*TokenHandler, *httpMocks.MockTokenUseCase) {
	t.Helper()

	gin.SetMode(gin.TestMode)

	mockTokenUseCase := &httpMocks.MockTokenUseCase{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	handler := NewTokenHandler(mockTokenUseCase, logger)

	return handler, mockTokenUseCase
}

// createTestContext creates a test Gin context with the given request.
func createTestContext(method, path string, body interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req := httptest.NewRequest(method, path, bodyReader)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	return c, w
}

func TestTokenHandler_IssueTokenHandler(t *testing.T) {
	t.Run("Success_ValidCredentials", func(t *testing.T) {
		handler, mockUseCase := setupTokenTestHandler(t)

		plainToken := "tok_1234567890abcdef"
		expiresAt := time.Now().UTC().Add(4 * time.Hour)

		request := dto.IssueTokenRequest{
			AccountName: "pipeline-runner",
			Secret:      "test_secret_123",
		}

		expectedInput := &identityDomain.IssueTokenInput{
			AccountName: "pipeline-runner",
			Secret:      "test_secret_123",
		}

		expectedOutput := &identityDomain.IssueTokenOutput{
			PlainToken: plainToken,
			ExpiresAt:  expiresAt,
		}

		mockUseCase.On("Issue", mock.Anything, expectedInput).
			Return(expectedOutput, nil).
			Once()

		c, w := createTestContext(http.MethodPost, "/v1/token", request)

		handler.IssueTokenHandler(c)

		assert.Equal(t, http.StatusCreated, w.Code)

		var response dto.IssueTokenResponse
		err := json.Unmarshal(w.Body.Bytes(), &response)
		assert.NoError(t, err)
		assert.Equal(t, plainToken, response.Token)
		assert.Equal(t, expiresAt.Unix(), response.ExpiresAt.Unix())

		mockUseCase.AssertExpectations(t)
	})

	t.Run("Error_InvalidJSON", func(t *testing.T) {
		handler, _ := setupTokenTestHandler(t)

		c, w := createTestContext(http.MethodPost, "/v1/token", nil)
		c.Request.Body = io.NopCloser(bytes.NewReader([]byte("invalid json")))

		handler.IssueTokenHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

		var response map[string]interface{}
		err := json.Unmarshal(w.Body.Bytes(), &response)
		assert.NoError(t, err)
		assert.Equal(t, "validation_error", response["error"])
	})

	t.Run("Error_MissingAccountName", func(t *testing.T) {
		handler, mockUseCase := setupTokenTestHandler(t)

		request := dto.IssueTokenRequest{
			AccountName: "",
			Secret:      "test_secret_123",
		}

		c, w := createTestContext(http.MethodPost, "/v1/token", request)

		handler.IssueTokenHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		mockUseCase.AssertNotCalled(t, "Issue", mock.Anything, mock.Anything)
	})

	t.Run("Error_MissingSecret", func(t *testing.T) {
		handler, mockUseCase := setupTokenTestHandler(t)

		request := dto.IssueTokenRequest{
			AccountName: "pipeline-runner",
			Secret:      "",
		}

		c, w := createTestContext(http.MethodPost, "/v1/token", request)

		handler.IssueTokenHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		mockUseCase.AssertNotCalled(t, "Issue", mock.Anything, mock.Anything)
	})

	t.Run("Error_InvalidCredentials", func(t *testing.T) {
		handler, mockUseCase := setupTokenTestHandler(t)

		request := dto.IssueTokenRequest{
			AccountName: "pipeline-runner",
			Secret:      "wrong_secret",
		}

		mockUseCase.On("Issue", mock.Anything, mock.AnythingOfType("*domain.IssueTokenInput")).
			Return(nil, identityDomain.ErrInvalidCredentials).
			Once()

		c, w := createTestContext(http.MethodPost, "/v1/token", request)

		handler.IssueTokenHandler(c)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		mockUseCase.AssertExpectations(t)
	})

	t.Run("Error_AccountLocked", func(t *testing.T) {
		handler, mockUseCase := setupTokenTestHandler(t)

		request := dto.IssueTokenRequest{
			AccountName: "pipeline-runner",
			Secret:      "test_secret_123",
		}

		mockUseCase.On("Issue", mock.Anything, mock.AnythingOfType("*domain.IssueTokenInput")).
			Return(nil, identityDomain.ErrAccountLocked).
			Once()

		c, w := createTestContext(http.MethodPost, "/v1/token", request)

		handler.IssueTokenHandler(c)

		assert.Equal(t, http.StatusLocked, w.Code)
		mockUseCase.AssertExpectations(t)
	})
}
