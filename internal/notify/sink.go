// Package notify renders subscription notifications and delivers them to
// the configured channels.
package notify

import "context"

//go:generate mockgen -source=sink.go -destination=sink_mock.go -package=notify

// Sink delivers one rendered message to one recipient.
type Sink interface {
	Send(ctx context.Context, recipient, message string) error
}
