// Package notify provides a log-backed implementation of the auth.Notifier
// collaborator. Real email delivery is an external concern; this keeps the
// registration and reset flows observable without one.
package notify

import (
	"context"
	"time"

	"colschool.org/internal/audit"
	"colschool.org/internal/auth"
)

// LogNotifier records every outbound notification as an audit event.
type LogNotifier struct{}

var _ auth.Notifier = LogNotifier{}

func (LogNotifier) VerificationIssued(ctx context.Context, p *auth.Principal, token string, expiresAt time.Time) {
	_ = audit.LogEvent(ctx, "notify.verification_email", map[string]any{
		"principal_id": p.ID,
		"email":        p.Email,
		"expires_at":   expiresAt.UTC().Format(time.RFC3339),
	})
}

func (LogNotifier) PasswordResetIssued(ctx context.Context, p *auth.Principal, token string, expiresAt time.Time) {
	_ = audit.LogEvent(ctx, "notify.password_reset_email", map[string]any{
		"principal_id": p.ID,
		"email":        p.Email,
		"expires_at":   expiresAt.UTC().Format(time.RFC3339),
	})
}

func (LogNotifier) TutorAccountCreated(ctx context.Context, p *auth.Principal, password string) {
	// The temporary password is delivered out of band, never logged.
	_ = audit.LogEvent(ctx, "notify.tutor_account_created", map[string]any{
		"principal_id": p.ID,
		"email":        p.Email,
	})
}
