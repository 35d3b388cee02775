package api

import (
	"encoding/json"
	"net/http"
	"time"

	appengine "github.com/cogsched/cogsched/internal/app/engine"
	"github.com/cogsched/cogsched/internal/domain"
	"github.com/cogsched/cogsched/internal/ics"
)

// Window defaults applied when a request names no availability.
const (
	defaultAvailableFrom = "09:00"
	defaultAvailableTo   = "22:00"
)

// planResponse is the wire shape shared by schedule and chat.
type planResponse struct {
	Schedule     []domain.Block      `json:"schedule"`
	EnergyCurve  []domain.CurvePoint `json:"energy_curve"`
	FatigueCurve []domain.CurvePoint `json:"fatigue_curve"`
	Warnings     []string            `json:"warnings"`
	Gamification domain.Gamification `json:"gamification"`
	ParsedTasks  []domain.Task       `json:"parsed_tasks"`
	Persisted    bool                `json:"persisted"`
}

func toPlanResponse(res *appengine.ScheduleResult) planResponse {
	p := res.Plan
	out := planResponse{
		Schedule:     p.Blocks,
		EnergyCurve:  p.EnergyCurve,
		FatigueCurve: p.FatigueCurve,
		Warnings:     p.Warnings,
		Gamification: p.Gamification,
		ParsedTasks:  p.ParsedTasks,
		Persisted:    res.Persisted,
	}
	if out.Schedule == nil {
		out.Schedule = []domain.Block{}
	}
	if out.Warnings == nil {
		out.Warnings = []string{}
	}
	if out.ParsedTasks == nil {
		out.ParsedTasks = []domain.Task{}
	}
	return out
}

func fillWindow(req *appengine.ScheduleRequest) {
	if req.AvailableFrom == "" {
		req.AvailableFrom = defaultAvailableFrom
	}
	if req.AvailableTo == "" {
		req.AvailableTo = defaultAvailableTo
	}
}

// handleSchedule runs the engine on pre-parsed tasks.
// POST /api/schedule
func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	var req appengine.ScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	fillWindow(&req)

	uid := userID(r)
	if err := s.ensureUser(uid); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	res, err := s.engine.Schedule(r.Context(), uid, req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPlanResponse(res))
}

// chatRequest wraps a free-text scheduling request.
type chatRequest struct {
	Message       string          `json:"message"`
	Profile       *domain.Profile `json:"profile,omitempty"`
	AvailableFrom string          `json:"available_from,omitempty"`
	AvailableTo   string          `json:"available_to,omitempty"`
}

// handleChat parses free text into tasks, then schedules.
// POST /api/chat, POST /api/converse
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	sreq := appengine.ScheduleRequest{
		Profile:       req.Profile,
		AvailableFrom: req.AvailableFrom,
		AvailableTo:   req.AvailableTo,
	}
	fillWindow(&sreq)

	uid := userID(r)
	if err := s.ensureUser(uid); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	res, err := s.engine.Converse(r.Context(), uid, req.Message, sreq)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPlanResponse(res))
}

// handleTLXFeedback appends a TLX entry and reports the updated weights.
// POST /api/tlx-feedback
func (s *Server) handleTLXFeedback(w http.ResponseWriter, r *http.Request) {
	var entry domain.TLXEntry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	uid := userID(r)
	if err := s.ensureUser(uid); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	res, err := s.engine.SubmitTLX(r.Context(), uid, entry)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"tlx_entries": res.Entries,
		"updated_weights": map[string]float64{
			"fatigue_consec_weight": res.Weights.ConsecWeight,
			"fatigue_total_weight":  res.Weights.TotalWeight,
			"fatigue_force_break":   res.Weights.ForceThreshold,
		},
	})
}

// handleGetConfig returns the user's merged config snapshot.
// GET /api/config
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	snapshot := s.cfg.Snapshot()
	if weights, err := s.store.GetWeights(userID(r)); err == nil && weights != nil {
		snapshot = snapshot.WithWeights(*weights)
	}
	writeJSON(w, http.StatusOK, snapshot.Map())
}

// handlePutConfig applies a partial config update. Unknown keys reject the
// whole update with 400.
// PUT /api/config
func (s *Server) handlePutConfig(w http.ResponseWriter, r *http.Request) {
	var updates map[string]any
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	updated, err := s.cfg.Update(updates)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated.Map())
}

// handleGetProfile returns the stored profile, or the defaults when the user
// has never saved one.
// GET /api/profile
func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.GetProfile(userID(r))
	if err != nil {
		def := domain.DefaultProfile()
		writeJSON(w, http.StatusOK, def)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handlePutProfile replaces the user's profile.
// PUT /api/profile
func (s *Server) handlePutProfile(w http.ResponseWriter, r *http.Request) {
	var p domain.Profile
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if err := p.Validate(); err != nil {
		writeDomainError(w, err)
		return
	}

	uid := userID(r)
	if err := s.ensureUser(uid); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := s.store.UpsertProfile(uid, p); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleCalendarExport renders the most recent plan as an ICS document.
// GET /api/calendar/export
func (s *Server) handleCalendarExport(w http.ResponseWriter, r *http.Request) {
	sched, err := s.store.LatestSchedule(userID(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	doc, err := ics.Build(sched, time.Local)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="cogsched.ics"`)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(doc))
}
