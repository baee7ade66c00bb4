package payments

import "context"

// Gateway defines a common interface for push-payment providers.
type Gateway interface {
	InitiatePush(ctx context.Context, req PushRequest) (PushResponse, error)
	VerifyPayment(ctx context.Context, providerRef string) (VerifyResponse, error)
}
