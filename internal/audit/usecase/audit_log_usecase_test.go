package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	auditDomain "github.com/gridworks/datahub/internal/audit/domain"
	"github.com/gridworks/datahub/internal/audit/service"
	authzDomain "github.com/gridworks/datahub/internal/authorization/domain"
	"github.com/gridworks/datahub/internal/httputil"
)

// MockAuditLogRepository is a mock implementation of AuditLogRepository
type MockAuditLogRepository struct {
	mock.Mock
}

func (m *MockAuditLogRepository) Create(ctx context.Context, log *auditDomain.AuditLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *MockAuditLogRepository) List(
	ctx context.Context,
	offset, limit int,
	createdAtFrom, createdAtTo *time.Time,
) ([]*auditDomain.AuditLog, error) {
	args := m.Called(ctx, offset, limit, createdAtFrom, createdAtTo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*auditDomain.AuditLog), args.Error(1)
}

var (
	testSecret = []byte("test-signing-secret-32-bytes-long")
	testActor  = authzDomain.Principal{Kind: authzDomain.UserPrincipal, ID: "alice"}
)

func TestAuditLogUseCase_RecordAclChange(t *testing.T) {
	aclKey := authzDomain.AclKey{uuid.New()}

	t.Run("Signs and persists the entry", func(t *testing.T) {
		repo := &MockAuditLogRepository{}
		signer := service.NewAuditSigner()
		uc := NewAuditLogUseCase(repo, signer, testSecret, nil)

		var created *auditDomain.AuditLog
		repo.On("Create", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				created = args.Get(1).(*auditDomain.AuditLog)
			}).
			Return(nil)

		err := uc.RecordAclChange(context.Background(), testActor, "acl.updated", aclKey, map[string]any{"action": "ADD"})
		require.NoError(t, err)
		require.NotNil(t, created)

		assert.True(t, created.IsSigned)
		assert.NotEmpty(t, created.Signature)
		assert.Equal(t, testActor, created.Actor)
		assert.Equal(t, aclKey.Index(), created.AclKey)
		assert.NoError(t, signer.Verify(testSecret, created))
	})

	t.Run("Uses the request id from the context", func(t *testing.T) {
		repo := &MockAuditLogRepository{}
		uc := NewAuditLogUseCase(repo, service.NewAuditSigner(), testSecret, nil)

		requestID := uuid.Must(uuid.NewV7())
		ctx := httputil.WithRequestID(context.Background(), requestID)

		var created *auditDomain.AuditLog
		repo.On("Create", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				created = args.Get(1).(*auditDomain.AuditLog)
			}).
			Return(nil)

		err := uc.RecordAclChange(ctx, testActor, "acl.updated", aclKey, nil)
		require.NoError(t, err)
		require.NotNil(t, created)
		assert.Equal(t, requestID, created.RequestID)
	})

	t.Run("Empty secret records unsigned entries", func(t *testing.T) {
		repo := &MockAuditLogRepository{}
		uc := NewAuditLogUseCase(repo, service.NewAuditSigner(), nil, nil)

		var created *auditDomain.AuditLog
		repo.On("Create", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				created = args.Get(1).(*auditDomain.AuditLog)
			}).
			Return(nil)

		err := uc.RecordAclChange(context.Background(), testActor, "acl.destroyed", aclKey, nil)
		require.NoError(t, err)
		require.NotNil(t, created)

		assert.False(t, created.IsSigned)
		assert.Empty(t, created.Signature)
	})
}

func TestAuditLogUseCase_VerifySignatures(t *testing.T) {
	ctx := context.Background()

	signedLog := func(signer service.AuditSigner, mutate func(*auditDomain.AuditLog)) *auditDomain.AuditLog {
		log := &auditDomain.AuditLog{
			ID:        uuid.Must(uuid.NewV7()),
			RequestID: uuid.Must(uuid.NewV7()),
			Actor:     testActor,
			EventType: "acl.updated",
			AclKey:    uuid.NewString(),
			CreatedAt: time.Now().UTC(),
		}
		signature, err := signer.Sign(testSecret, log)
		if err != nil {
			panic(err)
		}
		log.Signature = signature
		log.IsSigned = true
		if mutate != nil {
			mutate(log)
		}
		return log
	}

	t.Run("Counts verified, unsigned and tampered entries", func(t *testing.T) {
		repo := &MockAuditLogRepository{}
		signer := service.NewAuditSigner()
		uc := NewAuditLogUseCase(repo, signer, testSecret, nil)

		valid := signedLog(signer, nil)
		tampered := signedLog(signer, func(log *auditDomain.AuditLog) {
			log.EventType = "acl.destroyed"
		})
		unsigned := &auditDomain.AuditLog{
			ID:        uuid.Must(uuid.NewV7()),
			RequestID: uuid.Must(uuid.NewV7()),
			Actor:     testActor,
			EventType: "acl.updated",
			AclKey:    uuid.NewString(),
			CreatedAt: time.Now().UTC(),
		}

		repo.On("List", mock.Anything, 0, 100, (*time.Time)(nil), (*time.Time)(nil)).
			Return([]*auditDomain.AuditLog{valid, tampered, unsigned}, nil)

		result, err := uc.VerifySignatures(ctx, 0, 100)
		require.NoError(t, err)

		assert.Equal(t, 1, result.Verified)
		assert.Equal(t, 1, result.Unsigned)
		require.Len(t, result.Invalid, 1)
		assert.Equal(t, tampered.ID, result.Invalid[0])
	})

	t.Run("Fails without a signing secret", func(t *testing.T) {
		repo := &MockAuditLogRepository{}
		uc := NewAuditLogUseCase(repo, service.NewAuditSigner(), nil, nil)

		_, err := uc.VerifySignatures(ctx, 0, 100)
		assert.Error(t, err)
	})
}
