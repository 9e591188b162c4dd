package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ppiankov/symptomlog/internal/model"
	"github.com/ppiankov/symptomlog/internal/pipeline"
	"github.com/ppiankov/symptomlog/internal/store"
)

// bodyOverhead is the allowance for JSON fields around the transcript
const bodyOverhead = 4096

type extractRequest struct {
	Transcript string `json:"transcript"`
}

type entryRequest struct {
	UserID     string    `json:"user_id"`
	Transcript string    `json:"transcript"`
	RecordedAt time.Time `json:"recorded_at"`
}

type listResponse struct {
	UserID  string         `json:"user_id"`
	Count   int            `json:"count"`
	Entries []*model.Entry `json:"entries"`
}

type statsResponse struct {
	UserID   string              `json:"user_id"`
	Symptoms []model.SymptomStat `json:"symptoms"`
}

// handleExtract handles POST /api/extract
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if !s.decode(w, r, &req) || !s.checkTranscript(w, req.Transcript) {
		return
	}

	analysis, err := s.pipeline.Analyze(r.Context(), req.Transcript)
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, analysis)
}

// handleCreateEntry handles POST /api/entries
func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	var req entryRequest
	if !s.decode(w, r, &req) || !s.checkTranscript(w, req.Transcript) {
		return
	}

	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		respondWithError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	if s.limiter != nil {
		if ok, retryAfter := s.limiter.Reserve(userID); !ok {
			if s.metrics != nil {
				s.metrics.RateLimited.Add(r.Context(), 1)
			}
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
			respondWithError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
	}

	entry, err := s.pipeline.Record(r.Context(), pipeline.Submission{
		UserID:     userID,
		Transcript: req.Transcript,
		RecordedAt: req.RecordedAt,
	})
	if err != nil {
		switch {
		case errors.Is(err, pipeline.ErrEmptyUserID):
			respondWithError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, store.ErrDuplicateID):
			respondWithError(w, http.StatusConflict, "entry already exists")
		default:
			s.internalError(w, r, err)
		}
		return
	}

	w.Header().Set("Location", "/api/entries/"+entry.ID)
	respondWithJSON(w, http.StatusCreated, entry)
}

// handleListEntries handles GET /api/entries?user_id=&limit=
func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	if s.entries == nil {
		respondWithError(w, http.StatusNotImplemented, "entry storage is not configured")
		return
	}

	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		respondWithError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	limit := store.DefaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondWithError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	entries, err := s.entries.ListByUser(r.Context(), userID, limit)
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, listResponse{UserID: userID, Count: len(entries), Entries: entries})
}

// handleGetEntry handles GET /api/entries/{id}
func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	if s.entries == nil {
		respondWithError(w, http.StatusNotImplemented, "entry storage is not configured")
		return
	}

	entry, err := s.entries.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "entry not found")
			return
		}
		s.internalError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, entry)
}

// handleStats handles GET /api/users/{user_id}/stats
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.entries == nil {
		respondWithError(w, http.StatusNotImplemented, "entry storage is not configured")
		return
	}

	userID := r.PathValue("user_id")
	stats, err := s.entries.SymptomStats(r.Context(), userID)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	if stats == nil {
		stats = []model.SymptomStat{}
	}

	respondWithJSON(w, http.StatusOK, statsResponse{UserID: userID, Symptoms: stats})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health(r.Context()); err != nil {
			s.logger.Error().Err(err).Msg("health check failed")
			respondWithJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decode reads a size-limited JSON body into v, writing the error response
// itself on failure
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxTranscriptBytes+bodyOverhead)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondWithError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return false
		}
		respondWithError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func (s *Server) checkTranscript(w http.ResponseWriter, transcript string) bool {
	if int64(len(transcript)) > s.cfg.MaxTranscriptBytes {
		respondWithError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("transcript exceeds %d bytes", s.cfg.MaxTranscriptBytes))
		return false
	}
	return true
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	respondWithError(w, http.StatusInternalServerError, "internal server error")
}

func respondWithJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{
		"error": message,
	})
}
