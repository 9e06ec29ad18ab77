package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"colschool.org/internal/audit"
	"colschool.org/internal/auth"
	"colschool.org/internal/obs"
)

type registerStudentRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Faculty    string `json:"faculty"`
	Department string `json:"department"`
	Level      string `json:"level"`
	Hall       string `json:"hall"`
	RoomNo     string `json:"room_no"`
}

func (a *API) handleRegisterStudent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req registerStudentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}
	p, err := a.auth.RegisterStudent(r.Context(), auth.StudentRegistration{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Profile: auth.Profile{
			Faculty:    req.Faculty,
			Department: req.Department,
			Level:      req.Level,
			Hall:       req.Hall,
			RoomNo:     req.RoomNo,
		},
	})
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrAlreadyExists):
			writeError(w, r, http.StatusConflict, "EMAIL_TAKEN", "an account with this email already exists")
		case errors.Is(err, auth.ErrInvalidInput):
			writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "email and password are required")
		default:
			writeError(w, r, http.StatusInternalServerError, "INTERNAL", "registration failed")
		}
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.student_registered", map[string]any{
		"principal_id": p.ID, "email": p.Email,
	})
	writeJSON(w, http.StatusCreated, map[string]any{"user": p})
}

type registerTutorRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (a *API) handleRegisterTutor(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	admin, ok := requireCapability(w, r, auth.CapManageUsers)
	if !ok {
		return
	}
	var req registerTutorRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}
	p, err := a.auth.RegisterTutor(r.Context(), auth.TutorRegistration{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrAlreadyExists):
			writeError(w, r, http.StatusConflict, "EMAIL_TAKEN", "an account with this email already exists")
		case errors.Is(err, auth.ErrInvalidInput):
			writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "email and password are required")
		default:
			writeError(w, r, http.StatusInternalServerError, "INTERNAL", "registration failed")
		}
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.tutor_registered", map[string]any{
		"principal_id": p.ID, "email": p.Email, "created_by": admin.ID,
	})
	writeJSON(w, http.StatusCreated, map[string]any{"user": p})
}

func (a *API) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "token query parameter is required")
		return
	}
	p, pair, err := a.auth.VerifyEmail(r.Context(), token)
	if err != nil {
		var typed *auth.Error
		if errors.As(err, &typed) {
			writeError(w, r, http.StatusBadRequest, typed.Code, typed.Message)
			return
		}
		writeError(w, r, http.StatusInternalServerError, "INTERNAL", "verification failed")
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.email_verified", map[string]any{
		"principal_id": p.ID, "email": p.Email,
	})
	writeJSON(w, http.StatusOK, map[string]any{"user": p, "tokens": pair})
}

type emailRequest struct {
	Email string `json:"email"`
}

func (a *API) handleResendVerification(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req emailRequest
	if err := decodeJSON(w, r, &req); err != nil || strings.TrimSpace(req.Email) == "" {
		writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "email is required")
		return
	}
	_, err := a.auth.ResendVerification(r.Context(), req.Email)
	switch {
	case err == nil, errors.Is(err, auth.ErrNotFound):
		// A generic answer keeps the endpoint unusable for account probing.
		writeJSON(w, http.StatusOK, map[string]string{"message": "If the account exists, a verification email has been sent."})
	case errors.Is(err, auth.ErrAlreadyVerified):
		writeError(w, r, http.StatusBadRequest, auth.ErrAlreadyVerified.Code, auth.ErrAlreadyVerified.Message)
	default:
		writeError(w, r, http.StatusInternalServerError, "INTERNAL", "could not resend verification")
	}
}

func (a *API) handlePasswordResetRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req emailRequest
	if err := decodeJSON(w, r, &req); err != nil || strings.TrimSpace(req.Email) == "" {
		writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "email is required")
		return
	}
	if err := a.auth.RequestPasswordReset(r.Context(), req.Email); err != nil {
		writeError(w, r, http.StatusInternalServerError, "INTERNAL", "could not process reset request")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "If the account exists, a reset email has been sent."})
}

type passwordResetRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (a *API) handlePasswordReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPatch {
		methodNotAllowed(w, r, http.MethodPatch)
		return
	}
	var req passwordResetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}
	if err := a.auth.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		var typed *auth.Error
		switch {
		case errors.As(err, &typed):
			writeError(w, r, http.StatusBadRequest, typed.Code, typed.Message)
		case errors.Is(err, auth.ErrInvalidInput):
			writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "password is required")
		default:
			writeError(w, r, http.StatusInternalServerError, "INTERNAL", "password reset failed")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Password has been reset."})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginHandler binds the role-scoped login endpoints. Every typed denial is
// forwarded with its stable code; the status depends on which check failed.
func (a *API) loginHandler(role auth.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		var req loginRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
			return
		}
		pair, p, err := a.auth.Login(r.Context(), role, req.Email, req.Password)
		if err != nil {
			var typed *auth.Error
			if errors.As(err, &typed) {
				obs.ObserveLogin(string(role), typed.Code)
				writeError(w, r, loginDenialStatus(typed), typed.Code, typed.Message)
				return
			}
			obs.ObserveLogin(string(role), "INTERNAL")
			writeError(w, r, http.StatusInternalServerError, "INTERNAL", "login failed")
			return
		}
		obs.ObserveLogin(string(role), "success")
		_ = audit.LogEvent(r.Context(), "auth.login", map[string]any{
			"principal_id": p.ID, "role": string(p.Role),
		})
		writeJSON(w, http.StatusOK, map[string]any{"user": p, "tokens": pair})
	}
}

func loginDenialStatus(e *auth.Error) int {
	switch e {
	case auth.ErrInvalidCredentials:
		return http.StatusUnauthorized
	case auth.ErrWrongAccountType:
		return http.StatusForbidden
	default:
		return http.StatusBadRequest
	}
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}
	pair, err := a.auth.RefreshSession(r.Context(), req.Refresh)
	if err != nil {
		writeError(w, r, http.StatusUnauthorized, auth.ErrInvalidRefreshToken.Code, auth.ErrInvalidRefreshToken.Message)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tokens": pair})
}

func (a *API) handleListUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if _, ok := requireCapability(w, r, auth.CapManageUsers); !ok {
		return
	}
	var filter auth.ListFilter
	q := r.URL.Query()
	if raw := q.Get("role"); raw != "" {
		role, ok := auth.ParseRole(raw)
		if !ok {
			writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "unknown role")
			return
		}
		filter.Role = role
	}
	if raw := q.Get("verified"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "verified must be a boolean")
			return
		}
		filter.Verified = &v
	}
	if raw := q.Get("approved"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "approved must be a boolean")
			return
		}
		filter.Approved = &v
	}
	users, err := a.auth.ListPrincipals(r.Context(), filter)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "INTERNAL", "could not list users")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users, "count": len(users)})
}
