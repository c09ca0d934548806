// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/relabs-tech/rehab_computer/internal/live"
	"github.com/relabs-tech/rehab_computer/internal/scoring"
	"github.com/relabs-tech/rehab_computer/internal/sensors"
	"github.com/relabs-tech/rehab_computer/internal/session"
)

// listPorts is swapped in tests.
var listPorts = sensors.ListPorts

type api struct {
	rt  *Runtime
	hub *live.Hub
	log *zap.Logger
}

func newMux(rt *Runtime, hub *live.Hub, log *zap.Logger) *http.ServeMux {
	a := &api{rt: rt, hub: hub, log: log}
	mux := http.NewServeMux()

	mux.HandleFunc("POST /session/start", a.sessionStart)
	mux.HandleFunc("POST /session/stop", a.sessionStop)
	mux.HandleFunc("POST /session/reset-max", a.sessionResetMax)
	mux.HandleFunc("GET /session/current", a.sessionCurrent)
	mux.HandleFunc("GET /session/last", a.sessionLast)
	mux.HandleFunc("GET /session/export.csv", a.sessionExport)
	mux.HandleFunc("GET /status", a.status)
	mux.HandleFunc("GET /ports", a.ports)
	mux.HandleFunc("POST /vas", a.vasRecord)
	mux.HandleFunc("GET /vas/summary", a.vasSummary)
	mux.HandleFunc("POST /score", a.score)
	mux.HandleFunc("GET /scores", a.scores)
	mux.HandleFunc("GET /ws", hub.ServeWS)
	return mux
}

func (a *api) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.log.Warn("json encode error", zap.Error(err))
	}
}

func (a *api) writeError(w http.ResponseWriter, status int, err error) {
	a.writeJSON(w, status, map[string]any{"ok": false, "msg": err.Error()})
}

func (a *api) sessionStart(w http.ResponseWriter, r *http.Request) {
	s, err := a.rt.StartSession()
	if err != nil {
		a.log.Error("session start failed", zap.Error(err))
		a.writeError(w, http.StatusInternalServerError, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{
		"ok":         true,
		"mode":       a.rt.Mode(),
		"session_id": s.ID,
	})
}

func (a *api) sessionStop(w http.ResponseWriter, r *http.Request) {
	s, err := a.rt.StopSession()
	if errors.Is(err, session.ErrNotRecording) {
		a.writeError(w, http.StatusConflict, err)
		return
	}
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{
		"ok":         true,
		"session_id": s.ID,
		"samples":    len(s.Samples),
		"max_angles": s.MaxAngles,
	})
}

func (a *api) sessionResetMax(w http.ResponseWriter, r *http.Request) {
	a.rt.buffer.ResetMaxima()
	a.writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (a *api) sessionCurrent(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, a.rt.buffer.Current())
}

func (a *api) sessionLast(w http.ResponseWriter, r *http.Request) {
	s, ok := a.rt.buffer.LastCompleted()
	if !ok {
		a.writeError(w, http.StatusNotFound, errors.New("no completed session"))
		return
	}
	a.writeJSON(w, http.StatusOK, s)
}

// sessionExport writes the last completed session as CSV, or the live one
// with ?session=current.
func (a *api) sessionExport(w http.ResponseWriter, r *http.Request) {
	var s session.Session
	if r.URL.Query().Get("session") == "current" {
		s = a.rt.buffer.Current()
	} else {
		var ok bool
		if s, ok = a.rt.buffer.LastCompleted(); !ok {
			a.writeError(w, http.StatusNotFound, errors.New("no completed session"))
			return
		}
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "session-"+s.ID+".csv"))
	if err := session.WriteCSV(w, s); err != nil {
		a.log.Warn("csv export failed", zap.String("session_id", s.ID), zap.Error(err))
	}
}

func (a *api) status(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, a.rt.Status())
}

func (a *api) ports(w http.ResponseWriter, r *http.Request) {
	ports, err := listPorts()
	if err != nil {
		a.log.Warn("listing serial ports", zap.Error(err))
	}
	if ports == nil {
		ports = []string{}
	}
	a.writeJSON(w, http.StatusOK, map[string]any{"ports": ports})
}

type vasRequest struct {
	Region       string  `json:"region"`
	Phase        string  `json:"phase"`
	Value        float64 `json:"value"`
	PatientCode  string  `json:"patient_code"`
	ExerciseName string  `json:"exercise_name"`
}

func (a *api) vasRecord(w http.ResponseWriter, r *http.Request) {
	var req vasRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid body: %w", err))
		return
	}
	region, err := scoring.ParseRegion(req.Region)
	if err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	phase, err := scoring.ParsePhase(req.Phase)
	if err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	rec, err := a.rt.vas.Record(region, phase, req.Value, req.PatientCode, req.ExerciseName)
	if err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	a.writeJSON(w, http.StatusCreated, rec)
}

// vasSummary answers for one ?region, or all regions when it is absent.
func (a *api) vasSummary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	patient := q.Get("patient_code")

	if q.Has("region") {
		region, err := scoring.ParseRegion(q.Get("region"))
		if err != nil {
			a.writeError(w, http.StatusBadRequest, err)
			return
		}
		a.writeJSON(w, http.StatusOK, a.rt.vas.Summarize(region, patient))
		return
	}

	out := make([]scoring.VasSummary, 0, 3)
	for _, region := range []scoring.Region{scoring.RegionHip, scoring.RegionKnee, scoring.RegionAnkle} {
		out = append(out, a.rt.vas.Summarize(region, patient))
	}
	a.writeJSON(w, http.StatusOK, out)
}

type scoreRequest struct {
	Exercise string `json:"exercise"`
}

// score grades the last completed session under the given exercise name.
func (a *api) score(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid body: %w", err))
		return
	}
	if req.Exercise == "" {
		a.writeError(w, http.StatusBadRequest, errors.New("exercise is required"))
		return
	}
	s, ok := a.rt.buffer.LastCompleted()
	if !ok {
		a.writeError(w, http.StatusConflict, errors.New("no completed session to score"))
		return
	}
	a.writeJSON(w, http.StatusOK, a.rt.scorer.ScoreSession(s, req.Exercise))
}

func (a *api) scores(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, a.rt.scorer.Scores())
}
