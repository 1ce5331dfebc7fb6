package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"licensedesk/internal/account"
	"licensedesk/internal/auth"
)

type signupReq struct {
	Name     string `json:"name" validate:"required"`
	Mobile   string `json:"mobile"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Amount   string `json:"amount"`
}

func Signup(svc *account.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req signupReq
		if err := decodeJSON(w, r, &req); err != nil {
			respondError(w, lg, err)
			return
		}
		u, err := svc.Signup(r.Context(), account.SignupInput{
			Name:     req.Name,
			Mobile:   req.Mobile,
			Email:    req.Email,
			Password: req.Password,
			Amount:   req.Amount,
		})
		if err != nil {
			respondError(w, lg, err)
			return
		}
		respondStatus(w, http.StatusCreated, map[string]any{
			"success": true,
			"message": "Signup successful",
			"user":    u,
		})
	}
}

type loginReq struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func Login(svc *account.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginReq
		if err := decodeJSON(w, r, &req); err != nil {
			respondError(w, lg, err)
			return
		}
		res, err := svc.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, map[string]any{
			"success":    true,
			"message":    "Login successful",
			"token":      res.Token,
			"expires_at": res.ExpiresAt,
			"user":       res.User,
		})
	}
}

func Logout(svc *account.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Logout(r.Context(), auth.FromContext(r.Context()).JWTID); err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, map[string]any{"success": true, "message": "Logged out"})
	}
}

func Me(svc *account.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := svc.Me(r.Context(), auth.Subject(r.Context()))
		if err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, map[string]any{"success": true, "user": u})
	}
}
