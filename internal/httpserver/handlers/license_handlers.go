package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"licensedesk/internal/auth"
	"licensedesk/internal/license"
)

type activateReq struct {
	ClientName    string `json:"client_name"`
	Email         string `json:"email" validate:"required,email"`
	ClientID      string `json:"client_id" validate:"required,max=128"`
	TransactionID string `json:"transaction_id"`
	Duration      int    `json:"duration" validate:"required,min=1,max=36500"`
	Password      string `json:"password"`
}

// ActivateLicense answers 201 for a new license and 200 when the
// (client_id, email) pair was already activated.
func ActivateLicense(svc *license.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req activateReq
		if err := decodeJSON(w, r, &req); err != nil {
			respondError(w, lg, err)
			return
		}
		res, err := svc.Activate(actorContext(r), license.ActivateInput{
			ClientName:    req.ClientName,
			Email:         req.Email,
			ClientID:      req.ClientID,
			TransactionID: req.TransactionID,
			DurationDays:  req.Duration,
			Password:      req.Password,
		})
		if err != nil {
			respondError(w, lg, err)
			return
		}

		status := http.StatusCreated
		msg := fmt.Sprintf("License activated for %s.", displayName(res.License.ClientName, res.License.ClientID))
		if res.AlreadyExisted {
			status = http.StatusOK
			msg = "License already activated."
		}
		respondStatus(w, status, map[string]any{
			"success":           true,
			"message":           msg,
			"already_activated": res.AlreadyExisted,
			"license":           license.LicenseView{License: res.License, Status: res.Status},
		})
	}
}

func DeactivateLicense(svc *license.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f := pathFilter(r)
		matched, err := svc.Deactivate(actorContext(r), f)
		if err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, map[string]any{
			"success": true,
			"message": fmt.Sprintf("Client %s deactivated.", f.ClientID),
			"matched": matched,
		})
	}
}

func ReactivateLicense(svc *license.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f := pathFilter(r)
		res, err := svc.Reactivate(actorContext(r), f)
		if err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, map[string]any{
			"success":      true,
			"message":      fmt.Sprintf("Client %s reactivated for %d days.", f.ClientID, license.ReactivationDays),
			"matched":      res.Matched,
			"last_payment": res.LastPayment,
			"valid_until":  res.ValidUntil,
		})
	}
}

// license_key is accepted as an alias of client_id for older clients.
type checkReq struct {
	ClientID   string `json:"client_id"`
	LicenseKey string `json:"license_key"`
	Email      string `json:"email" validate:"omitempty,email"`
}

func CheckLicense(svc *license.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req checkReq
		if err := decodeJSON(w, r, &req); err != nil {
			respondError(w, lg, err)
			return
		}
		key := strings.TrimSpace(req.ClientID)
		if key == "" {
			key = strings.TrimSpace(req.LicenseKey)
		}
		res, err := svc.CheckLicense(r.Context(), license.Filter{ClientID: key, Email: req.Email})
		if err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, map[string]any{
			"success":     true,
			"message":     "License valid",
			"status":      res.Status,
			"expiry_date": res.ValidUntil,
		})
	}
}

func AdminDashboard(svc *license.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := svc.ListWithStatus(r.Context())
		if err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, map[string]any{
			"success":  true,
			"count":    len(res.Licenses),
			"counts":   res.Counts,
			"licenses": res.Licenses,
		})
	}
}

func LicenseEvents(svc *license.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		events, err := svc.History(r.Context(), chi.URLParam(r, "client_id"))
		if err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, map[string]any{
			"success": true,
			"events":  events,
		})
	}
}

func pathFilter(r *http.Request) license.Filter {
	return license.Filter{
		ClientID: chi.URLParam(r, "client_id"),
		Email:    r.URL.Query().Get("email"),
	}
}

func actorContext(r *http.Request) context.Context {
	return license.WithActor(r.Context(), auth.Subject(r.Context()))
}

func displayName(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}
