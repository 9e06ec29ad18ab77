package auth

import (
	"context"
	"time"
)

// Notifier is the outbound notification collaborator. Delivery mechanics
// (email templates, SMTP) live outside this package.
type Notifier interface {
	VerificationIssued(ctx context.Context, p *Principal, token string, expiresAt time.Time)
	PasswordResetIssued(ctx context.Context, p *Principal, token string, expiresAt time.Time)
	TutorAccountCreated(ctx context.Context, p *Principal, password string)
}

// NopNotifier drops all notifications. Default in tests.
type NopNotifier struct{}

func (NopNotifier) VerificationIssued(context.Context, *Principal, string, time.Time)  {}
func (NopNotifier) PasswordResetIssued(context.Context, *Principal, string, time.Time) {}
func (NopNotifier) TutorAccountCreated(context.Context, *Principal, string)            {}
