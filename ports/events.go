package ports

import "context"

// EventPublisher notifies other instances about authentication events.
type EventPublisher interface {
	PublishSignIn(ctx context.Context, address string) error
	PublishMFAVerified(ctx context.Context, address string) error
	PublishLogout(ctx context.Context, address string) error
}
