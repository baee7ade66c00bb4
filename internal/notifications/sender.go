package notifications

import (
	"context"

	"github.com/9ssi7/exponent"
)

// PushSender abstracts the push delivery service so handlers and tests can
// swap the Expo client out. The message types are exponent's own.
type PushSender interface {
	Publish(ctx context.Context, msgs []*exponent.Message) ([]*exponent.MessageResponse, error)
	PublishSingle(ctx context.Context, msg *exponent.Message) ([]*exponent.MessageResponse, error)
}
