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
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	authzDomain "github.com/gridworks/datahub/internal/authorization/domain"
	apperrors "github.com/gridworks/datahub/internal/errors"
	principalsDomain "github.com/gridworks/datahub/internal/principals/domain"
	"github.com/gridworks/datahub/internal/principals/http/dto"
)

// MockPrincipalUseCase is a mock implementation of PrincipalUseCase.
type MockPrincipalUseCase struct {
	mock.Mock
}

func (m *MockPrincipalUseCase) CreatePrincipal(ctx context.Context, entry *principalsDomain.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockPrincipalUseCase) GetPrincipal(
	ctx context.Context,
	principal authzDomain.Principal,
) (*principalsDomain.Entry, error) {
	args := m.Called(ctx, principal)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*principalsDomain.Entry), args.Error(1)
}

func (m *MockPrincipalUseCase) DeletePrincipal(ctx context.Context, principal authzDomain.Principal) error {
	args := m.Called(ctx, principal)
	return args.Error(0)
}

func (m *MockPrincipalUseCase) AddMembership(ctx context.Context, membership principalsDomain.Membership) error {
	args := m.Called(ctx, membership)
	return args.Error(0)
}

func (m *MockPrincipalUseCase) RemoveMembership(ctx context.Context, membership principalsDomain.Membership) error {
	args := m.Called(ctx, membership)
	return args.Error(0)
}

func (m *MockPrincipalUseCase) ParentsOf(
	ctx context.Context,
	principal authzDomain.Principal,
) ([]authzDomain.Principal, error) {
	args := m.Called(ctx, principal)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]authzDomain.Principal), args.Error(1)
}

func (m *MockPrincipalUseCase) ChildrenOf(
	ctx context.Context,
	principal authzDomain.Principal,
) ([]authzDomain.Principal, error) {
	args := m.Called(ctx, principal)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]authzDomain.Principal), args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// createTestContext creates a test Gin context with the given request.
func createTestContext(method, path string, body interface{}) (*gin.Context, *httptest.ResponseRecorder) {
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
	c.Request = req

	return c, w
}

func TestPrincipalHandler_CreatePrincipalHandler(t *testing.T) {
	t.Run("creates a directory entry", func(t *testing.T) {
		mockUseCase := &MockPrincipalUseCase{}
		handler := NewPrincipalHandler(mockUseCase, testLogger())

		body := dto.CreatePrincipalRequest{
			Principal: dto.PrincipalItem{Kind: "ROLE", ID: "analysts"},
			Title:     "Data analysts",
		}

		mockUseCase.On("CreatePrincipal", mock.Anything, mock.AnythingOfType("*domain.Entry")).
			Run(func(args mock.Arguments) {
				entry := args.Get(1).(*principalsDomain.Entry)
				entry.CreatedAt = time.Now().UTC()
			}).
			Return(nil).
			Once()

		c, w := createTestContext(http.MethodPost, "/v1/principals", body)
		handler.CreatePrincipalHandler(c)

		require.Equal(t, http.StatusCreated, w.Code)

		var response dto.EntryResponse
		err := json.Unmarshal(w.Body.Bytes(), &response)
		require.NoError(t, err)
		assert.Equal(t, authzDomain.RolePrincipal, response.Principal.Kind)
		assert.Equal(t, "analysts", response.Principal.ID)

		mockUseCase.AssertExpectations(t)
	})

	t.Run("rejects an unknown kind", func(t *testing.T) {
		mockUseCase := &MockPrincipalUseCase{}
		handler := NewPrincipalHandler(mockUseCase, testLogger())

		body := dto.CreatePrincipalRequest{
			Principal: dto.PrincipalItem{Kind: "GROUP", ID: "analysts"},
		}

		c, w := createTestContext(http.MethodPost, "/v1/principals", body)
		handler.CreatePrincipalHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		mockUseCase.AssertNotCalled(t, "CreatePrincipal", mock.Anything, mock.Anything)
	})

	t.Run("duplicate principal gets 409", func(t *testing.T) {
		mockUseCase := &MockPrincipalUseCase{}
		handler := NewPrincipalHandler(mockUseCase, testLogger())

		body := dto.CreatePrincipalRequest{
			Principal: dto.PrincipalItem{Kind: "ROLE", ID: "analysts"},
		}

		mockUseCase.On("CreatePrincipal", mock.Anything, mock.AnythingOfType("*domain.Entry")).
			Return(apperrors.Wrap(apperrors.ErrConflict, "principal already registered")).
			Once()

		c, w := createTestContext(http.MethodPost, "/v1/principals", body)
		handler.CreatePrincipalHandler(c)

		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestPrincipalHandler_GetPrincipalHandler(t *testing.T) {
	t.Run("returns an entry", func(t *testing.T) {
		mockUseCase := &MockPrincipalUseCase{}
		handler := NewPrincipalHandler(mockUseCase, testLogger())

		analysts := authzDomain.Principal{Kind: authzDomain.RolePrincipal, ID: "analysts"}
		entry := &principalsDomain.Entry{
			Principal: analysts,
			Title:     "Data analysts",
			CreatedAt: time.Now().UTC(),
		}

		mockUseCase.On("GetPrincipal", mock.Anything, analysts).Return(entry, nil).Once()

		c, w := createTestContext(http.MethodGet, "/v1/principals/ROLE/analysts", nil)
		c.Params = gin.Params{{Key: "kind", Value: "ROLE"}, {Key: "id", Value: "analysts"}}
		handler.GetPrincipalHandler(c)

		require.Equal(t, http.StatusOK, w.Code)

		var response dto.EntryResponse
		err := json.Unmarshal(w.Body.Bytes(), &response)
		require.NoError(t, err)
		assert.Equal(t, "Data analysts", response.Title)
	})

	t.Run("unknown principal gets 404", func(t *testing.T) {
		mockUseCase := &MockPrincipalUseCase{}
		handler := NewPrincipalHandler(mockUseCase, testLogger())

		ghost := authzDomain.Principal{Kind: authzDomain.RolePrincipal, ID: "ghost"}
		mockUseCase.On("GetPrincipal", mock.Anything, ghost).
			Return(nil, apperrors.Wrap(apperrors.ErrNotFound, "principal not found")).
			Once()

		c, w := createTestContext(http.MethodGet, "/v1/principals/ROLE/ghost", nil)
		c.Params = gin.Params{{Key: "kind", Value: "ROLE"}, {Key: "id", Value: "ghost"}}
		handler.GetPrincipalHandler(c)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("unknown kind gets 422", func(t *testing.T) {
		mockUseCase := &MockPrincipalUseCase{}
		handler := NewPrincipalHandler(mockUseCase, testLogger())

		c, w := createTestContext(http.MethodGet, "/v1/principals/GROUP/analysts", nil)
		c.Params = gin.Params{{Key: "kind", Value: "GROUP"}, {Key: "id", Value: "analysts"}}
		handler.GetPrincipalHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		mockUseCase.AssertNotCalled(t, "GetPrincipal", mock.Anything, mock.Anything)
	})
}

func TestPrincipalHandler_DeletePrincipalHandler(t *testing.T) {
	mockUseCase := &MockPrincipalUseCase{}
	handler := NewPrincipalHandler(mockUseCase, testLogger())

	analysts := authzDomain.Principal{Kind: authzDomain.RolePrincipal, ID: "analysts"}
	mockUseCase.On("DeletePrincipal", mock.Anything, analysts).Return(nil).Once()

	c, w := createTestContext(http.MethodDelete, "/v1/principals/ROLE/analysts", nil)
	c.Params = gin.Params{{Key: "kind", Value: "ROLE"}, {Key: "id", Value: "analysts"}}
	handler.DeletePrincipalHandler(c)
	c.Writer.WriteHeaderNow()

	assert.Equal(t, http.StatusNoContent, w.Code)
	mockUseCase.AssertExpectations(t)
}

func TestPrincipalHandler_AddMembershipHandler(t *testing.T) {
	t.Run("adds an edge", func(t *testing.T) {
		mockUseCase := &MockPrincipalUseCase{}
		handler := NewPrincipalHandler(mockUseCase, testLogger())

		body := dto.MembershipRequest{
			Child:  dto.PrincipalItem{Kind: "USER", ID: "alice"},
			Parent: dto.PrincipalItem{Kind: "ROLE", ID: "analysts"},
		}

		expected := principalsDomain.Membership{
			Child:  authzDomain.Principal{Kind: authzDomain.UserPrincipal, ID: "alice"},
			Parent: authzDomain.Principal{Kind: authzDomain.RolePrincipal, ID: "analysts"},
		}

		mockUseCase.On("AddMembership", mock.Anything, expected).Return(nil).Once()

		c, w := createTestContext(http.MethodPost, "/v1/principals/memberships", body)
		handler.AddMembershipHandler(c)
		c.Writer.WriteHeaderNow()

		assert.Equal(t, http.StatusCreated, w.Code)
		mockUseCase.AssertExpectations(t)
	})

	t.Run("self membership gets 422", func(t *testing.T) {
		mockUseCase := &MockPrincipalUseCase{}
		handler := NewPrincipalHandler(mockUseCase, testLogger())

		body := dto.MembershipRequest{
			Child:  dto.PrincipalItem{Kind: "ROLE", ID: "analysts"},
			Parent: dto.PrincipalItem{Kind: "ROLE", ID: "analysts"},
		}

		mockUseCase.On("AddMembership", mock.Anything, mock.AnythingOfType("domain.Membership")).
			Return(principalsDomain.ErrSelfMembership).
			Once()

		c, w := createTestContext(http.MethodPost, "/v1/principals/memberships", body)
		handler.AddMembershipHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestPrincipalHandler_RemoveMembershipHandler(t *testing.T) {
	mockUseCase := &MockPrincipalUseCase{}
	handler := NewPrincipalHandler(mockUseCase, testLogger())

	body := dto.MembershipRequest{
		Child:  dto.PrincipalItem{Kind: "USER", ID: "alice"},
		Parent: dto.PrincipalItem{Kind: "ROLE", ID: "analysts"},
	}

	expected := principalsDomain.Membership{
		Child:  authzDomain.Principal{Kind: authzDomain.UserPrincipal, ID: "alice"},
		Parent: authzDomain.Principal{Kind: authzDomain.RolePrincipal, ID: "analysts"},
	}

	mockUseCase.On("RemoveMembership", mock.Anything, expected).Return(nil).Once()

	c, w := createTestContext(http.MethodDelete, "/v1/principals/memberships", body)
	handler.RemoveMembershipHandler(c)
	c.Writer.WriteHeaderNow()

	assert.Equal(t, http.StatusNoContent, w.Code)
	mockUseCase.AssertExpectations(t)
}

func TestPrincipalHandler_ListParentsHandler(t *testing.T) {
	mockUseCase := &MockPrincipalUseCase{}
	handler := NewPrincipalHandler(mockUseCase, testLogger())

	alice := authzDomain.Principal{Kind: authzDomain.UserPrincipal, ID: "alice"}
	parents := []authzDomain.Principal{
		{Kind: authzDomain.RolePrincipal, ID: "analysts"},
	}

	mockUseCase.On("ParentsOf", mock.Anything, alice).Return(parents, nil).Once()

	c, w := createTestContext(http.MethodGet, "/v1/principals/USER/alice/parents", nil)
	c.Params = gin.Params{{Key: "kind", Value: "USER"}, {Key: "id", Value: "alice"}}
	handler.ListParentsHandler(c)

	require.Equal(t, http.StatusOK, w.Code)

	var response map[string][]authzDomain.Principal
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)
	assert.Len(t, response["principals"], 1)
}

func TestPrincipalHandler_ListChildrenHandler(t *testing.T) {
	mockUseCase := &MockPrincipalUseCase{}
	handler := NewPrincipalHandler(mockUseCase, testLogger())

	analysts := authzDomain.Principal{Kind: authzDomain.RolePrincipal, ID: "analysts"}
	children := []authzDomain.Principal{
		{Kind: authzDomain.UserPrincipal, ID: "alice"},
		{Kind: authzDomain.UserPrincipal, ID: "bob"},
	}

	mockUseCase.On("ChildrenOf", mock.Anything, analysts).Return(children, nil).Once()

	c, w := createTestContext(http.MethodGet, "/v1/principals/ROLE/analysts/children", nil)
	c.Params = gin.Params{{Key: "kind", Value: "ROLE"}, {Key: "id", Value: "analysts"}}
	handler.ListChildrenHandler(c)

	require.Equal(t, http.StatusOK, w.Code)

	var response map[string][]authzDomain.Principal
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)
	assert.Len(t, response["principals"], 2)
}
