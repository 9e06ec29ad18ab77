package httpapi

import (
	"context"
	"database/sql"
	"net/http"

	"colschool.org/internal/auth"
	"colschool.org/internal/obs"
	"colschool.org/internal/payments"
)

// ReadyProbe reports readiness (e.g. database ping).
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string

	auth       *auth.Service
	initiator  *payments.Initiator
	reconciler *payments.Reconciler

	rateBurst  int
	ratePerSec int
}

func New(rp ReadyProbe, version string, authSvc *auth.Service, initiator *payments.Initiator, reconciler *payments.Reconciler) *API {
	a := &API{
		mux:        http.NewServeMux(),
		readyProbe: rp,
		version:    version,
		auth:       authSvc,
		initiator:  initiator,
		reconciler: reconciler,
		rateBurst:  20,
		ratePerSec: 10,
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// registration + verification
	a.mux.HandleFunc("/v1/auth/register-student", a.handleRegisterStudent)
	a.mux.HandleFunc("/v1/auth/register-tutor", a.handleRegisterTutor)
	a.mux.HandleFunc("/v1/auth/verify", a.handleVerifyEmail)
	a.mux.HandleFunc("/v1/auth/resend-verification", a.handleResendVerification)
	a.mux.HandleFunc("/v1/auth/password-reset/request", a.handlePasswordResetRequest)
	a.mux.HandleFunc("/v1/auth/password-reset", a.handlePasswordReset)

	// role-scoped login + refresh
	a.mux.HandleFunc("/v1/auth/login/student", a.loginHandler(auth.RoleStudent))
	a.mux.HandleFunc("/v1/auth/login/tutor", a.loginHandler(auth.RoleTutor))
	a.mux.HandleFunc("/v1/auth/login/admin", a.loginHandler(auth.RoleAdmin))
	a.mux.HandleFunc("/v1/auth/refresh", a.handleRefresh)

	// users
	a.mux.HandleFunc("/v1/users", a.handleListUsers)

	// payments
	a.mux.HandleFunc("/v1/payments/registration", a.handleInitiateRegistration)
	a.mux.HandleFunc("/v1/payments", a.handleInitiatePayment)
	a.mux.HandleFunc("/v1/payments/webhook", a.handleWebhook)
	a.mux.HandleFunc("/v1/payments/fees", a.handleFees)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler assembles the middleware chain around the mux.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.withAuth(h)
	h = MaxBodyBytes(h, 1<<20)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = SecurityHeaders(h)
	h = Logging(h)
	h = RequestID(h)
	return obs.Instrument(h)
}
