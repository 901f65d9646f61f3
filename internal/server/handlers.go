package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/lance13c/shopassist/internal/assetcache"
	"github.com/lance13c/shopassist/internal/database"
	"github.com/lance13c/shopassist/internal/logging"
	"github.com/lance13c/shopassist/internal/messaging"
	"github.com/lance13c/shopassist/internal/services"
	"github.com/lance13c/shopassist/internal/store"
)

const (
	maxBodyBytes        = 64 * 1024
	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
)

type apiHandlers struct {
	svc *services.AssistantService
}

type errorResponse struct {
	Error string `json:"error"`
}

type triggerResponse struct {
	Status  string        `json:"status"`
	Profile store.Profile `json:"profile"`
}

type historyResponse struct {
	Runs []database.FillRun `json:"runs"`
}

func (h *apiHandlers) getProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.svc.Profile(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, profile)
}

func (h *apiHandlers) putProfile(w http.ResponseWriter, r *http.Request) {
	var profile store.Profile
	if !decodeBody(w, r, &profile) {
		return
	}
	saved, err := h.svc.SaveProfile(r.Context(), profile)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, saved)
}

func (h *apiHandlers) getSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.svc.Settings(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, settings)
}

func (h *apiHandlers) putSettings(w http.ResponseWriter, r *http.Request) {
	var settings store.Settings
	if !decodeBody(w, r, &settings) {
		return
	}
	saved, err := h.svc.SaveSettings(r.Context(), settings)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, saved)
}

func (h *apiHandlers) trigger(w http.ResponseWriter, r *http.Request) {
	profile, err := h.svc.Trigger(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, triggerResponse{Status: "sent", Profile: profile})
}

func (h *apiHandlers) history(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	runs, err := h.svc.History(r.Context(), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if runs == nil {
		runs = []database.FillRun{}
	}
	respondJSON(w, http.StatusOK, historyResponse{Runs: runs})
}

// workerMessage forwards a page's message to the asset worker
func workerMessage(reg *assetcache.Registration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var msg messaging.Message
		if !decodeBody(w, r, &msg) {
			return
		}
		if msg.Action == "" {
			writeError(w, http.StatusBadRequest, "action is required")
			return
		}
		if err := reg.HandleMessage(r.Context(), msg); err != nil {
			logging.Error("Asset worker message %q failed: %v", msg.Action, err)
			writeError(w, http.StatusInternalServerError, "failed to handle message")
			return
		}

		payload := map[string]string{"status": "ok"}
		if c := reg.Controller(); c != nil {
			payload["controller"] = c.Version()
		}
		respondJSON(w, http.StatusOK, payload)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return false
	}
	return true
}

func writeServiceError(w http.ResponseWriter, err error) {
	var verr *store.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Message)
	case errors.Is(err, services.ErrNoProfile):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrAutoFillDisabled):
		writeError(w, http.StatusConflict, err.Error())
	default:
		logging.Error("Request failed: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}
