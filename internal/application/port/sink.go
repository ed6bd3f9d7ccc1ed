package port

import "context"

// Sink delivers a formatted alert to one notification channel.
type Sink interface {
	Name() string
	Send(ctx context.Context, title, body string) error
}
