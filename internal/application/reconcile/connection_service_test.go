package reconcile

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/boletohub/backend/internal/domain/provider"
)

func TestConnectionService_Create(t *testing.T) {
	connections := new(MockConnectionRepository)
	svc := NewConnectionService(connections, nil)
	tenantID := uuid.New()

	connections.On("Save", mock.Anything, mock.MatchedBy(func(c *provider.Connection) bool {
		return c.Provider == provider.CodeSafe2Pay && c.Name == "loja" && c.Sandbox && c.Enabled
	})).Return(nil)

	conn, err := svc.Create(context.Background(), tenantID, CreateConnectionInput{
		Provider: "safe2pay",
		Name:     "loja",
		APIKey:   "key-123",
		Sandbox:  true,
	})
	require.NoError(t, err)
	assert.Equal(t, tenantID, conn.TenantID)
	connections.AssertExpectations(t)
}

func TestConnectionService_Create_UnknownProvider(t *testing.T) {
	connections := new(MockConnectionRepository)
	svc := NewConnectionService(connections, nil)

	_, err := svc.Create(context.Background(), uuid.New(), CreateConnectionInput{
		Provider: "stripe",
		Name:     "x",
		APIKey:   "k",
	})
	assert.ErrorIs(t, err, provider.ErrUnknownProvider)
	connections.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestConnectionService_SetEnabled(t *testing.T) {
	connections := new(MockConnectionRepository)
	svc := NewConnectionService(connections, nil)
	tenantID := uuid.New()

	conn, err := provider.NewConnection(tenantID, provider.CodeNibo, "main", "key", false)
	require.NoError(t, err)

	connections.On("FindByID", mock.Anything, tenantID, conn.ID).Return(conn, nil)
	connections.On("Save", mock.Anything, mock.MatchedBy(func(c *provider.Connection) bool {
		return !c.Enabled
	})).Return(nil)

	updated, err := svc.SetEnabled(context.Background(), tenantID, conn.ID, false)
	require.NoError(t, err)
	assert.False(t, updated.Enabled)
}

func TestConnectionService_Delete(t *testing.T) {
	connections := new(MockConnectionRepository)
	svc := NewConnectionService(connections, nil)
	tenantID := uuid.New()
	id := uuid.New()

	connections.On("Delete", mock.Anything, tenantID, id).Return(nil)

	require.NoError(t, svc.Delete(context.Background(), tenantID, id))
	connections.AssertExpectations(t)
}
