package proxy

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"promptreel/internal/api"
	"promptreel/internal/generation"
	"promptreel/internal/logging"
	"promptreel/internal/provider"
	"promptreel/internal/services"
)

const maxRequestBodyBytes = 64 << 10

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	logger := logging.WithContext(r.Context(), s.logger)

	var req api.GenerateRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	if err := decoder.Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, api.Failed("invalid JSON body", false))
		return
	}
	req = req.Normalized()
	if err := req.Validate(); err != nil {
		logger.Info("rejected generation request",
			logging.String("reason", err.Error()),
			logging.String(logging.FieldEventType, "validation_rejected"),
		)
		s.writeJSON(w, http.StatusBadRequest, api.Failed(err.Error(), false))
		return
	}

	start := time.Now()
	outcome, err := s.provider.Submit(r.Context(), req)
	s.metrics.observeProvider("submit", time.Since(start))
	if msg, rejected := provider.Rejection(err); rejected {
		s.metrics.countSubmission(generation.StatusFailed.String())
		logging.WarnWithContext(logger, "provider rejected generation", "provider_rejected",
			logging.String("reason", msg),
			logging.String(logging.FieldErrorHint, "adjust the prompt or settings the provider refused"),
		)
		s.writeJSON(w, http.StatusOK, api.Failed(msg, true))
		return
	}
	if err != nil {
		s.metrics.countSubmission("error")
		logging.ErrorWithContext(logger, "provider submission failed", "provider_submit_failed",
			logging.Error(err),
			logging.String("error_kind", services.Kind(err)),
			logging.String(logging.FieldErrorHint, "check provider.base_url, credentials, and provider status"),
		)
		s.writeJSON(w, http.StatusBadGateway, api.Failed("upstream provider error: "+err.Error(), false))
		return
	}
	s.metrics.countSubmission(outcome.Status.String())
	logger.Info("generation submitted",
		logging.String(logging.FieldTaskID, outcome.TaskID),
		logging.String("status", outcome.Status.String()),
		logging.Int("duration", req.Duration),
		logging.String("aspect_ratio", req.AspectRatio),
		logging.String("quality", req.Quality),
	)
	s.writeJSON(w, http.StatusOK, provider.ToResponse(outcome))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	taskID := strings.TrimSpace(r.URL.Query().Get("taskId"))
	if taskID == "" {
		s.writeJSON(w, http.StatusBadRequest, api.Failed("taskId is required", false))
		return
	}
	ctx := services.WithTaskID(r.Context(), taskID)
	logger := logging.WithContext(ctx, s.logger)

	start := time.Now()
	outcome, err := s.provider.CheckStatus(ctx, taskID)
	s.metrics.observeProvider("status", time.Since(start))
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			s.writeJSON(w, http.StatusBadRequest, api.Failed(err.Error(), false))
			return
		}
		logging.ErrorWithContext(logger, "provider status check failed", "provider_status_failed",
			logging.Error(err),
			logging.String("error_kind", services.Kind(err)),
		)
		s.writeJSON(w, http.StatusBadGateway, api.Failed("upstream provider error: "+err.Error(), false))
		return
	}
	if outcome.TaskID == "" {
		outcome.TaskID = taskID
	}
	logger.Debug("status checked", logging.String("status", outcome.Status.String()))
	resp := provider.ToResponse(outcome)
	if resp.TaskID == "" {
		resp.TaskID = taskID
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, api.NewHealthResponse(ServiceName, s.provider.Models(), s.now()))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}
