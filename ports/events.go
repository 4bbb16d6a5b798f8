package ports

import "context"

// EventPublisher notifies other instances about authentication events.
// Publishing is best-effort: a failed publish never fails the operation
// that triggered it.
type EventPublisher interface {
	PublishLogin(ctx context.Context, address, sessionID string) error
	PublishLogout(ctx context.Context, address string) error
}
