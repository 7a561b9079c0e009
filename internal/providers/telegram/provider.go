package telegram

import "context"

// Provider is the outbound message capability injected into the notification
// dispatcher. Implementations must be safe for concurrent use.
type Provider interface {
	Send(ctx context.Context, text string) error
}

type NoOpProvider struct{}

func (p *NoOpProvider) Send(ctx context.Context, text string) error {
	return nil
}
