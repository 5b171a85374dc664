package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/AaronLay10/AdventureEngine/internal/adventure"
	"github.com/AaronLay10/AdventureEngine/internal/analytics"
	"github.com/AaronLay10/AdventureEngine/internal/events"
	"github.com/AaronLay10/AdventureEngine/internal/step"
	"github.com/google/uuid"
)

const (
	// LearnerHeader identifies the learner on handler requests.
	LearnerHeader = "X-Learner-ID"
	// LearnerCookie identifies browser learners when the header is absent.
	LearnerCookie = "adventure_learner"

	maxRequestBody = 64 << 10
)

type stepOp string

const (
	opCurrent   stepOp = "fetch_current_step"
	opNext      stepOp = "submit"
	opPrevious  stepOp = "fetch_previous_step"
	opStartOver stepOp = "start_over"
)

// learnerID resolves the learner from the header, then the cookie. A new
// learner gets a fresh id stored in the cookie.
func learnerID(w http.ResponseWriter, r *http.Request) string {
	if id := r.Header.Get(LearnerHeader); id != "" {
		return id
	}
	if c, err := r.Cookie(LearnerCookie); err == nil && c.Value != "" {
		return c.Value
	}

	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     LearnerCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   int((365 * 24 * time.Hour).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func writeEnvelope(w http.ResponseWriter, status int, env step.Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeEnvelope(w, status, step.Envelope{Result: step.ResultError, Message: msg})
}

func (s *Server) stepHandler(op stepOp) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		var sub step.Submission
		if op == opNext {
			if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(&sub); err != nil && !errors.Is(err, io.EOF) {
				recordStepRequest(op, true)
				writeError(w, http.StatusBadRequest, "invalid JSON")
				return
			}
		}

		learner := learnerID(w, r)
		view, err := s.run(r.Context(), op, learner, sub.Choice)
		if err != nil {
			recordStepRequest(op, true)
			status, msg := stepErrorStatus(err)
			if status == http.StatusInternalServerError {
				log.Printf("api: %s for %s failed: %v", op, learner, err)
			}
			writeError(w, status, msg)
			return
		}

		recordStepRequest(op, false)
		writeEnvelope(w, http.StatusOK, step.Envelope{Result: step.ResultSuccess, Step: view.Wire()})
	}
}

func (s *Server) run(ctx context.Context, op stepOp, learner, choice string) (adventure.View, error) {
	switch op {
	case opNext:
		return s.engine.Next(ctx, learner, choice)
	case opPrevious:
		return s.engine.Previous(ctx, learner)
	case opStartOver:
		return s.engine.StartOver(ctx, learner)
	default:
		return s.engine.Current(ctx, learner)
	}
}

// stepErrorStatus maps engine errors to a status and a message safe to
// show the learner.
func stepErrorStatus(err error) (int, string) {
	var noNext *adventure.NoNextStepError
	var invalid *adventure.InvalidChoiceError
	switch {
	case errors.As(err, &noNext), errors.As(err, &invalid):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, adventure.ErrNoSteps):
		return http.StatusServiceUnavailable, err.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

var telemetryTypes = func() map[string]struct{} {
	m := make(map[string]struct{})
	for _, t := range analytics.EventTypes() {
		m[string(t)] = struct{}{}
	}
	return m
}()

// publishEventHandler records one learner telemetry event. The body is a
// flat JSON object with a required event_type.
func publishEventHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var data map[string]interface{}
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(&data); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	eventType, _ := data["event_type"].(string)
	if eventType == "" {
		writeError(w, http.StatusBadRequest, "Missing event_type in JSON data")
		return
	}
	if _, ok := telemetryTypes[eventType]; !ok {
		writeError(w, http.StatusBadRequest, "unknown event_type: "+eventType)
		return
	}

	fields := make(map[string]interface{}, len(data))
	for k, v := range data {
		if k != "event_type" {
			fields[k] = v
		}
	}
	fields["learner_id"] = learnerID(w, r)

	if _, err := events.Emit("info", eventType, "", fields); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeEnvelope(w, http.StatusOK, step.Envelope{Result: step.ResultSuccess})
}
