package payments

import "time"

// Kind separates registration payments from general fee payments. The
// webhook metadata purpose is the authoritative selector: purpose
// "registration" addresses registration records, everything else the fee
// records.
type Kind string

const (
	KindRegistration Kind = "registration"
	KindFee          Kind = "fee"
)

// Valid reports whether k is one of the known record kinds.
func (k Kind) Valid() bool {
	return k == KindRegistration || k == KindFee
}

// KindForPurpose maps a webhook metadata purpose onto the record kind.
func KindForPurpose(purpose string) Kind {
	if purpose == "registration" {
		return KindRegistration
	}
	return KindFee
}

// Status is the payment record state. Transitions are monotonic per
// reference: success is terminal and is never regressed by later events.
type Status string

const (
	StatusPending     Status = "pending"
	StatusSuccess     Status = "success"
	StatusNotComplete Status = "not-complete"
	StatusFailed      Status = "failed"
)

// Payment is a payment record. Amount is in minor currency units (kobo),
// matching what the provider reports, so the amount comparison needs no
// decimal arithmetic.
type Payment struct {
	ID          string    `json:"id"`
	PrincipalID int64     `json:"principal_id"`
	Kind        Kind      `json:"kind"`
	Purpose     string    `json:"purpose"`
	Class       string    `json:"class,omitempty"`
	Amount      int64     `json:"amount"`
	Reference   string    `json:"reference"`
	Status      Status    `json:"status"`
	InitiatedAt time.Time `json:"initiated_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ReconcileOutcome reports what a charge.success application did.
type ReconcileOutcome struct {
	Reference   string `json:"reference"`
	Kind        Kind   `json:"kind"`
	Status      Status `json:"status"`
	Changed     bool   `json:"changed"`
	PrincipalID int64  `json:"principal_id"`
	// MarkedRegistrationPaid is true only on the transition that flipped
	// the owning principal's paid_reg flag, never on replays.
	MarkedRegistrationPaid bool `json:"marked_registration_paid"`
}

// WebhookEvent is the inbound provider notification. Consumed once, never
// persisted.
type WebhookEvent struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
		Amount    int64  `json:"amount"`
		Metadata  struct {
			Purpose string `json:"purpose"`
		} `json:"metadata"`
	} `json:"data"`
}
