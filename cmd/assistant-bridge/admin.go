package main

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/homevirt/assistant-bridge/internal/store"
)

// requireAdminToken guards the admin API with the configured token.
func (s *server) requireAdminToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("X-Admin-Token")
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.AdminToken)) != 1 {
			writeAdminError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type createAccountRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
	DeviceLimit int    `json:"device_limit" validate:"omitempty,min=1"`
}

type accountResponse struct {
	ID          uint   `json:"id"`
	Label       string `json:"label"`
	Email       string `json:"email"`
	DeviceLimit int    `json:"device_limit"`
}

func (s *server) handleAdminCreateAccount() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createAccountRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeAdminError(w, http.StatusBadRequest, "invalid json")
			return
		}
		if err := s.validate.Struct(req); err != nil {
			writeAdminError(w, http.StatusBadRequest, err.Error())
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			s.log.Error("hashing password", "error", err)
			writeAdminError(w, http.StatusInternalServerError, "internal error")
			return
		}

		limit := req.DeviceLimit
		if limit == 0 {
			limit = 5
		}
		account := &store.Account{
			Label:        uuid.NewString(),
			Email:        req.Email,
			PasswordHash: string(hash),
			DeviceLimit:  limit,
		}
		if err := s.store.CreateAccount(r.Context(), account); err != nil {
			s.log.Error("creating account", "error", err)
			writeAdminError(w, http.StatusConflict, "account not created")
			return
		}

		w.WriteHeader(http.StatusCreated)
		writeJSON(w, accountResponse{
			ID:          account.ID,
			Label:       account.Label,
			Email:       account.Email,
			DeviceLimit: account.DeviceLimit,
		})
	}
}

type createDeviceRequest struct {
	AccountID uint   `json:"account_id" validate:"required"`
	Name      string `json:"name" validate:"required"`
	Type      string `json:"type" validate:"required"`
	Traits    []struct {
		Kind   string `json:"kind" validate:"required"`
		Config string `json:"config"`
	} `json:"traits" validate:"required,min=1,dive"`
	TwoFactorType string `json:"two_factor_type" validate:"omitempty,oneof=ack pin"`
	TwoFactorPIN  string `json:"two_factor_pin" validate:"required_if=TwoFactorType pin"`
}

type deviceResponse struct {
	ID            uint     `json:"id"`
	AccountID     uint     `json:"account_id"`
	Name          string   `json:"name"`
	Type          string   `json:"type"`
	Traits        []string `json:"traits"`
	TwoFactorType string   `json:"two_factor_type,omitempty"`
}

func (s *server) handleAdminCreateDevice() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createDeviceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeAdminError(w, http.StatusBadRequest, "invalid json")
			return
		}
		if err := s.validate.Struct(req); err != nil {
			writeAdminError(w, http.StatusBadRequest, err.Error())
			return
		}

		if _, err := s.store.AccountByID(r.Context(), req.AccountID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeAdminError(w, http.StatusNotFound, "account not found")
				return
			}
			s.log.Error("looking up account", "error", err)
			writeAdminError(w, http.StatusInternalServerError, "internal error")
			return
		}

		device := &store.Device{
			AccountID:     req.AccountID,
			Name:          req.Name,
			Type:          req.Type,
			TwoFactorType: req.TwoFactorType,
			TwoFactorPIN:  req.TwoFactorPIN,
		}
		for _, tr := range req.Traits {
			device.Traits = append(device.Traits, store.DeviceTrait{Kind: tr.Kind, Config: tr.Config})
		}

		if err := s.store.CreateDevice(r.Context(), device); err != nil {
			s.log.Error("creating device", "error", err)
			writeAdminError(w, http.StatusInternalServerError, "device not created")
			return
		}

		w.WriteHeader(http.StatusCreated)
		writeJSON(w, deviceView(device))
	}
}

func (s *server) handleAdminListDevices() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, err := strconv.ParseUint(r.URL.Query().Get("account_id"), 10, 32)
		if err != nil {
			writeAdminError(w, http.StatusBadRequest, "missing or invalid account_id")
			return
		}

		devices, err := s.store.DevicesByAccount(r.Context(), uint(accountID))
		if err != nil {
			s.log.Error("listing devices", "error", err)
			writeAdminError(w, http.StatusInternalServerError, "internal error")
			return
		}

		out := make([]deviceResponse, 0, len(devices))
		for i := range devices {
			out = append(out, deviceView(&devices[i]))
		}
		writeJSON(w, out)
	}
}

func (s *server) handleAdminDeleteDevice() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 32)
		if err != nil {
			writeAdminError(w, http.StatusBadRequest, "invalid device id")
			return
		}

		if _, err := s.store.DeviceByID(r.Context(), uint(id)); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeAdminError(w, http.StatusNotFound, "device not found")
				return
			}
			s.log.Error("looking up device", "error", err)
			writeAdminError(w, http.StatusInternalServerError, "internal error")
			return
		}

		if err := s.store.DeleteDevice(r.Context(), uint(id)); err != nil {
			s.log.Error("deleting device", "error", err)
			writeAdminError(w, http.StatusInternalServerError, "internal error")
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func deviceView(device *store.Device) deviceResponse {
	kinds := make([]string, 0, len(device.Traits))
	for _, tr := range device.Traits {
		kinds = append(kinds, tr.Kind)
	}
	return deviceResponse{
		ID:            device.ID,
		AccountID:     device.AccountID,
		Name:          device.Name,
		Type:          device.Type,
		Traits:        kinds,
		TwoFactorType: device.TwoFactorType,
	}
}

func writeAdminError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
