package payments

import (
	"context"
	"fmt"
)

// Manager routes payment operations to the gateway registered for a method,
// so adding a second provider is a registration, not a rewrite.
type Manager struct {
	gateways map[string]Gateway
}

func NewManager() *Manager {
	return &Manager{gateways: make(map[string]Gateway)}
}

func (m *Manager) RegisterGateway(name string, gateway Gateway) {
	m.gateways[name] = gateway
}

func (m *Manager) InitiatePush(ctx context.Context, method string, req PushRequest) (PushResponse, error) {
	gateway, ok := m.gateways[method]
	if !ok {
		return PushResponse{}, fmt.Errorf("gateway not registered: %s", method)
	}
	return gateway.InitiatePush(ctx, req)
}

func (m *Manager) VerifyPayment(ctx context.Context, method string, providerRef string) (VerifyResponse, error) {
	gateway, ok := m.gateways[method]
	if !ok {
		return VerifyResponse{}, fmt.Errorf("gateway not registered: %s", method)
	}
	return gateway.VerifyPayment(ctx, providerRef)
}
