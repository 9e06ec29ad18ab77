package httpapi

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"colschool.org/internal/audit"
	"colschool.org/internal/auth"
	"colschool.org/internal/obs"
	"colschool.org/internal/payments"
)

// signatureHeader carries the provider's HMAC over the raw webhook body.
const signatureHeader = "X-Provider-Signature"

type initiateRegistrationRequest struct {
	Amount int64 `json:"amount,omitempty"`
}

func (a *API) handleInitiateRegistration(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	p, ok := requireCapability(w, r, auth.CapInitiatePay)
	if !ok {
		return
	}
	var req initiateRegistrationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}
	payment, checkout, err := a.initiator.InitiateRegistration(r.Context(), p.ID, p.Email, req.Amount)
	if err != nil {
		writeInitiateError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "payments.initiated", map[string]any{
		"payment_id": payment.ID, "kind": string(payment.Kind), "reference": payment.Reference, "amount": payment.Amount,
	})
	writeJSON(w, http.StatusCreated, map[string]any{"payment": payment, "checkout": checkout})
}

type initiatePaymentRequest struct {
	Purpose string `json:"purpose"`
	Class   string `json:"class,omitempty"`
	Amount  int64  `json:"amount,omitempty"`
}

func (a *API) handleInitiatePayment(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.handleListPayments(w, r)
	case http.MethodPost:
		p, ok := requireCapability(w, r, auth.CapInitiatePay)
		if !ok {
			return
		}
		var req initiatePaymentRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
			return
		}
		payment, checkout, err := a.initiator.Initiate(r.Context(), p.ID, p.Email, req.Purpose, req.Class, req.Amount)
		if err != nil {
			writeInitiateError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "payments.initiated", map[string]any{
			"payment_id": payment.ID, "kind": string(payment.Kind), "reference": payment.Reference, "amount": payment.Amount,
		})
		writeJSON(w, http.StatusCreated, map[string]any{"payment": payment, "checkout": checkout})
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleListPayments(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	list, err := a.initiator.ListByPrincipal(r.Context(), p.ID)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "INTERNAL", "could not list payments")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"payments": list, "count": len(list)})
}

func writeInitiateError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, payments.ErrInvalidAmount):
		writeError(w, r, http.StatusBadRequest, "INVALID_AMOUNT", "a positive amount or configured fee is required")
	case errors.Is(err, payments.ErrProvider):
		writeError(w, r, http.StatusBadGateway, "PROVIDER_ERROR", "payment provider rejected the request")
	default:
		writeError(w, r, http.StatusInternalServerError, "INTERNAL", "could not initiate payment")
	}
}

// handleWebhook authenticates and applies one provider delivery. The body
// is read raw before any parsing so the HMAC covers the exact wire bytes.
func (a *API) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	rawBody, err := io.ReadAll(r.Body)
	if err != nil {
		obs.ObserveWebhook("read_error")
		writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "could not read request body")
		return
	}
	outcome, err := a.reconciler.Reconcile(r.Context(), rawBody, r.Header.Get(signatureHeader))
	if err != nil {
		switch {
		case errors.Is(err, payments.ErrInvalidSignature):
			obs.ObserveWebhook("invalid_signature")
			writeError(w, r, http.StatusBadRequest, "INVALID_SIGNATURE", "signature verification failed")
		case errors.Is(err, payments.ErrUnsupportedEvent):
			obs.ObserveWebhook("unsupported_event")
			writeError(w, r, http.StatusBadRequest, "UNSUPPORTED_EVENT", "event type is not handled")
		case errors.Is(err, payments.ErrMalformedEvent):
			obs.ObserveWebhook("malformed_event")
			writeError(w, r, http.StatusBadRequest, "MALFORMED_EVENT", "event payload did not parse")
		case errors.Is(err, payments.ErrRecordNotFound):
			// No matching record is not the provider's problem. Answer 200
			// so it stops retrying.
			obs.ObserveWebhook("record_not_found")
			writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		default:
			obs.ObserveWebhook("error")
			writeError(w, r, http.StatusInternalServerError, "INTERNAL", "reconciliation failed")
		}
		return
	}
	obs.ObserveWebhook(string(outcome.Status))
	_ = audit.LogEvent(r.Context(), "payments.reconciled", map[string]any{
		"reference": outcome.Reference, "kind": string(outcome.Kind),
		"status": string(outcome.Status), "changed": outcome.Changed,
		"marked_registration_paid": outcome.MarkedRegistrationPaid,
	})
	writeJSON(w, http.StatusOK, map[string]any{"status": "processed", "outcome": outcome})
}

type feeRequest struct {
	Class   string `json:"class,omitempty"`
	Purpose string `json:"purpose"`
	Amount  int64  `json:"amount"`
}

// handleFees manages the fee schedule. Amounts are minor currency units.
func (a *API) handleFees(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPut, http.MethodPost:
		if _, ok := requireCapability(w, r, auth.CapManageFees); !ok {
			return
		}
		var req feeRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
			return
		}
		req.Purpose = strings.ToLower(strings.TrimSpace(req.Purpose))
		if req.Purpose == "" {
			writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "purpose is required")
			return
		}
		if err := a.initiator.SetFeeAmount(r.Context(), req.Class, req.Purpose, req.Amount); err != nil {
			if errors.Is(err, payments.ErrInvalidAmount) {
				writeError(w, r, http.StatusBadRequest, "INVALID_AMOUNT", "amount must be positive")
				return
			}
			writeError(w, r, http.StatusInternalServerError, "INTERNAL", "could not store fee")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"class": req.Class, "purpose": req.Purpose, "amount": req.Amount})
	case http.MethodGet:
		if _, ok := requirePrincipal(w, r); !ok {
			return
		}
		q := r.URL.Query()
		purpose := strings.ToLower(strings.TrimSpace(q.Get("purpose")))
		if purpose == "" {
			writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "purpose query parameter is required")
			return
		}
		amount, err := a.initiator.FeeAmount(r.Context(), q.Get("class"), purpose)
		if err != nil {
			writeError(w, r, http.StatusNotFound, "NOT_FOUND", "no fee configured for this purpose")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"class": q.Get("class"), "purpose": purpose, "amount": amount})
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost, http.MethodPut)
	}
}
