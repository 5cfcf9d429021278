package billingapp

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/boletohub/backend/internal/domain/billing"
	"github.com/boletohub/backend/internal/domain/shared"
)

func TestClientService_Create(t *testing.T) {
	clients := new(MockClientRepository)
	svc := NewClientService(clients, nil)
	tenantID := uuid.New()

	clients.On("FindByCode", mock.Anything, tenantID, "CLI-001").Return(nil, shared.ErrNotFound)
	clients.On("Save", mock.Anything, mock.MatchedBy(func(c *billing.Client) bool {
		return c.Code == "CLI-001" && c.TaxID == "12345678900"
	})).Return(nil)

	client, err := svc.Create(context.Background(), tenantID, CreateClientInput{
		Code:  "cli-001",
		Name:  "Maria Souza",
		TaxID: "123.456.789-00",
	})
	require.NoError(t, err)
	assert.Equal(t, "CLI-001", client.Code)
	clients.AssertExpectations(t)
}

func TestClientService_Create_DuplicateCode(t *testing.T) {
	clients := new(MockClientRepository)
	svc := NewClientService(clients, nil)
	tenantID := uuid.New()

	existing, err := billing.NewClient(tenantID, "CLI-001", "Maria", "")
	require.NoError(t, err)
	clients.On("FindByCode", mock.Anything, tenantID, "CLI-001").Return(existing, nil)

	_, err = svc.Create(context.Background(), tenantID, CreateClientInput{
		Code: "CLI-001",
		Name: "Outra Maria",
	})
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)
	clients.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestClientService_Update(t *testing.T) {
	clients := new(MockClientRepository)
	svc := NewClientService(clients, nil)
	tenantID := uuid.New()

	client, err := billing.NewClient(tenantID, "CLI-002", "Jose", "11111111111")
	require.NoError(t, err)

	clients.On("FindByID", mock.Anything, tenantID, client.ID).Return(client, nil)
	clients.On("Save", mock.Anything, mock.MatchedBy(func(c *billing.Client) bool {
		return c.Name == "Jose Lima" && c.TaxID == "22222222222"
	})).Return(nil)

	updated, err := svc.Update(context.Background(), tenantID, client.ID, UpdateClientInput{
		Name:  "Jose Lima",
		TaxID: "222.222.222-22",
	})
	require.NoError(t, err)
	assert.Equal(t, "CLI-002", updated.Code)
}

func TestClientService_Deactivate(t *testing.T) {
	clients := new(MockClientRepository)
	svc := NewClientService(clients, nil)
	tenantID := uuid.New()

	client, err := billing.NewClient(tenantID, "CLI-003", "Ana", "")
	require.NoError(t, err)

	clients.On("FindByID", mock.Anything, tenantID, client.ID).Return(client, nil)
	clients.On("Save", mock.Anything, mock.MatchedBy(func(c *billing.Client) bool {
		return c.Status == billing.ClientStatusInactive
	})).Return(nil)

	updated, err := svc.Deactivate(context.Background(), tenantID, client.ID)
	require.NoError(t, err)
	assert.Equal(t, billing.ClientStatusInactive, updated.Status)
}

func TestClientService_List(t *testing.T) {
	clients := new(MockClientRepository)
	svc := NewClientService(clients, nil)
	tenantID := uuid.New()
	filter := shared.DefaultFilter()

	first, err := billing.NewClient(tenantID, "CLI-004", "Paulo", "")
	require.NoError(t, err)

	clients.On("FindAllForTenant", mock.Anything, tenantID, filter).Return([]billing.Client{*first}, nil)
	clients.On("CountForTenant", mock.Anything, tenantID).Return(int64(7), nil)

	page, err := svc.List(context.Background(), tenantID, filter)
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
	assert.Equal(t, int64(7), page.Total)
	assert.Equal(t, 1, page.TotalPages)
}
