package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	authzDomain "github.com/gridworks/datahub/internal/authorization/domain"
	authzMocks "github.com/gridworks/datahub/internal/authorization/mocks"
	catalogDomain "github.com/gridworks/datahub/internal/catalog/domain"
	"github.com/gridworks/datahub/internal/catalog/http/dto"
	apperrors "github.com/gridworks/datahub/internal/errors"
	identityDomain "github.com/gridworks/datahub/internal/identity/domain"
	identityHTTP "github.com/gridworks/datahub/internal/identity/http"
)

// MockCatalogUseCase is a mock implementation of CatalogUseCase.
type MockCatalogUseCase struct {
	mock.Mock
}

func (m *MockCatalogUseCase) RegisterObject(
	ctx context.Context,
	actorSeeds []authzDomain.Principal,
	object *catalogDomain.SecurableObject,
) error {
	args := m.Called(ctx, actorSeeds, object)
	return args.Error(0)
}

func (m *MockCatalogUseCase) GetObject(
	ctx context.Context,
	actorSeeds []authzDomain.Principal,
	aclKey authzDomain.AclKey,
) (*catalogDomain.SecurableObject, error) {
	args := m.Called(ctx, actorSeeds, aclKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalogDomain.SecurableObject), args.Error(1)
}

func (m *MockCatalogUseCase) DestroyObject(
	ctx context.Context,
	actorSeeds []authzDomain.Principal,
	aclKey authzDomain.AclKey,
) error {
	args := m.Called(ctx, actorSeeds, aclKey)
	return args.Error(0)
}

var testCreator = authzDomain.Principal{Kind: authzDomain.UserPrincipal, ID: "alice"}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// createAuthedContext builds a gin test context whose request carries an
// authenticated account for the test creator.
func createAuthedContext(method, path string, body interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req := httptest.NewRequest(method, path, bodyReader)
	req.Header.Set("Content-Type", "application/json")

	account := &identityDomain.Account{
		ID:        uuid.Must(uuid.NewV7()),
		Name:      "alice",
		Principal: testCreator,
		IsActive:  true,
	}
	req = req.WithContext(identityHTTP.WithAccount(req.Context(), account))
	c.Request = req

	return c, w
}

func TestCatalogHandler_RegisterObjectHandler(t *testing.T) {
	t.Run("registers an object", func(t *testing.T) {
		mockCatalog := &MockCatalogUseCase{}
		handler := NewCatalogHandler(mockCatalog, &authzMocks.MockAuthorizationUseCase{}, testLogger())

		key := authzDomain.AclKey{uuid.Must(uuid.NewV7())}
		body := dto.RegisterObjectRequest{
			AclKey: []string{key[0].String()},
			Name:   "customers",
		}

		mockCatalog.On("RegisterObject",
			mock.Anything,
			[]authzDomain.Principal{testCreator},
			mock.AnythingOfType("*domain.SecurableObject")).
			Run(func(args mock.Arguments) {
				object := args.Get(2).(*catalogDomain.SecurableObject)
				assert.Equal(t, key, object.AclKey)
				object.Type = authzDomain.ObjectTypeEntitySet
				object.CreatedAt = time.Now().UTC()
			}).
			Return(nil).
			Once()

		c, w := createAuthedContext(http.MethodPost, "/v1/objects", body)
		handler.RegisterObjectHandler(c)

		require.Equal(t, http.StatusCreated, w.Code)

		var response dto.ObjectResponse
		err := json.Unmarshal(w.Body.Bytes(), &response)
		require.NoError(t, err)
		assert.Equal(t, authzDomain.ObjectTypeEntitySet, response.Type)
		assert.Equal(t, "customers", response.Name)

		mockCatalog.AssertExpectations(t)
	})

	t.Run("rejects a nameless object", func(t *testing.T) {
		mockCatalog := &MockCatalogUseCase{}
		handler := NewCatalogHandler(mockCatalog, &authzMocks.MockAuthorizationUseCase{}, testLogger())

		body := dto.RegisterObjectRequest{
			AclKey: []string{uuid.Must(uuid.NewV7()).String()},
		}

		c, w := createAuthedContext(http.MethodPost, "/v1/objects", body)
		handler.RegisterObjectHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		mockCatalog.AssertNotCalled(t, "RegisterObject", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("nested key without parent ownership gets 403", func(t *testing.T) {
		mockCatalog := &MockCatalogUseCase{}
		handler := NewCatalogHandler(mockCatalog, &authzMocks.MockAuthorizationUseCase{}, testLogger())

		body := dto.RegisterObjectRequest{
			AclKey: []string{uuid.Must(uuid.NewV7()).String(), uuid.Must(uuid.NewV7()).String()},
			Name:   "ssn",
		}

		mockCatalog.On("RegisterObject",
			mock.Anything,
			[]authzDomain.Principal{testCreator},
			mock.AnythingOfType("*domain.SecurableObject")).
			Return(apperrors.ErrForbidden).
			Once()

		c, w := createAuthedContext(http.MethodPost, "/v1/objects", body)
		handler.RegisterObjectHandler(c)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestCatalogHandler_GetObjectHandler(t *testing.T) {
	t.Run("returns a visible object", func(t *testing.T) {
		mockCatalog := &MockCatalogUseCase{}
		handler := NewCatalogHandler(mockCatalog, &authzMocks.MockAuthorizationUseCase{}, testLogger())

		key := authzDomain.AclKey{uuid.Must(uuid.NewV7())}
		object := &catalogDomain.SecurableObject{
			AclKey:    key,
			Type:      authzDomain.ObjectTypeEntitySet,
			Name:      "customers",
			CreatedAt: time.Now().UTC(),
		}

		mockCatalog.On("GetObject", mock.Anything, []authzDomain.Principal{testCreator}, key).
			Return(object, nil).
			Once()

		c, w := createAuthedContext(http.MethodGet, "/v1/objects/x", nil)
		c.Params = gin.Params{{Key: "aclKey", Value: key[0].String()}}
		handler.GetObjectHandler(c)

		require.Equal(t, http.StatusOK, w.Code)

		var response dto.ObjectResponse
		err := json.Unmarshal(w.Body.Bytes(), &response)
		require.NoError(t, err)
		assert.Equal(t, "customers", response.Name)
	})

	t.Run("hidden object gets 404", func(t *testing.T) {
		mockCatalog := &MockCatalogUseCase{}
		handler := NewCatalogHandler(mockCatalog, &authzMocks.MockAuthorizationUseCase{}, testLogger())

		key := authzDomain.AclKey{uuid.Must(uuid.NewV7())}
		mockCatalog.On("GetObject", mock.Anything, []authzDomain.Principal{testCreator}, key).
			Return(nil, apperrors.Wrap(apperrors.ErrNotFound, "securable object not found")).
			Once()

		c, w := createAuthedContext(http.MethodGet, "/v1/objects/x", nil)
		c.Params = gin.Params{{Key: "aclKey", Value: key[0].String()}}
		handler.GetObjectHandler(c)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("malformed key gets 422", func(t *testing.T) {
		mockCatalog := &MockCatalogUseCase{}
		handler := NewCatalogHandler(mockCatalog, &authzMocks.MockAuthorizationUseCase{}, testLogger())

		c, w := createAuthedContext(http.MethodGet, "/v1/objects/x", nil)
		c.Params = gin.Params{{Key: "aclKey", Value: "not-a-uuid"}}
		handler.GetObjectHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		mockCatalog.AssertNotCalled(t, "GetObject", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestCatalogHandler_DestroyObjectHandler(t *testing.T) {
	t.Run("destroys an owned object", func(t *testing.T) {
		mockCatalog := &MockCatalogUseCase{}
		handler := NewCatalogHandler(mockCatalog, &authzMocks.MockAuthorizationUseCase{}, testLogger())

		key := authzDomain.AclKey{uuid.Must(uuid.NewV7())}
		mockCatalog.On("DestroyObject", mock.Anything, []authzDomain.Principal{testCreator}, key).
			Return(nil).
			Once()

		c, w := createAuthedContext(http.MethodDelete, "/v1/objects/x", nil)
		c.Params = gin.Params{{Key: "aclKey", Value: key[0].String()}}
		handler.DestroyObjectHandler(c)
		c.Writer.WriteHeaderNow()

		assert.Equal(t, http.StatusNoContent, w.Code)
		mockCatalog.AssertExpectations(t)
	})

	t.Run("non-owner gets 403", func(t *testing.T) {
		mockCatalog := &MockCatalogUseCase{}
		handler := NewCatalogHandler(mockCatalog, &authzMocks.MockAuthorizationUseCase{}, testLogger())

		key := authzDomain.AclKey{uuid.Must(uuid.NewV7())}
		mockCatalog.On("DestroyObject", mock.Anything, []authzDomain.Principal{testCreator}, key).
			Return(apperrors.ErrForbidden).
			Once()

		c, w := createAuthedContext(http.MethodDelete, "/v1/objects/x", nil)
		c.Params = gin.Params{{Key: "aclKey", Value: key[0].String()}}
		handler.DestroyObjectHandler(c)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestCatalogHandler_ListObjectsHandler(t *testing.T) {
	t.Run("lists discoverable keys by default", func(t *testing.T) {
		mockAuthz := &authzMocks.MockAuthorizationUseCase{}
		handler := NewCatalogHandler(&MockCatalogUseCase{}, mockAuthz, testLogger())

		discover, err := authzDomain.ParsePermissions([]string{"DISCOVER"})
		require.NoError(t, err)
		keys := []authzDomain.AclKey{{uuid.Must(uuid.NewV7())}}

		mockAuthz.On("ListAuthorizedObjects",
			mock.Anything,
			[]authzDomain.Principal{testCreator},
			authzDomain.ObjectTypeEntitySet,
			discover,
			0, 50).
			Return(keys, nil).
			Once()

		c, w := createAuthedContext(http.MethodGet, "/v1/objects?objectType=EntitySet", nil)
		handler.ListObjectsHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)
		mockAuthz.AssertExpectations(t)
	})

	t.Run("requires an object type", func(t *testing.T) {
		mockAuthz := &authzMocks.MockAuthorizationUseCase{}
		handler := NewCatalogHandler(&MockCatalogUseCase{}, mockAuthz, testLogger())

		c, w := createAuthedContext(http.MethodGet, "/v1/objects", nil)
		handler.ListObjectsHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		mockAuthz.AssertNotCalled(t, "ListAuthorizedObjects",
			mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}
