package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"

	"github.com/AaronLay10/AdventureEngine/internal/adventure"
	"github.com/AaronLay10/AdventureEngine/internal/events"
)

const maxDefinitionSize = 1 << 20

// StudioResponse is the JSON answer of the studio endpoints.
type StudioResponse struct {
	OK       bool     `json:"ok"`
	Error    string   `json:"error,omitempty"`
	Problems []string `json:"problems,omitempty"`
	Steps    int      `json:"steps,omitempty"`
}

func writeStudio(w http.ResponseWriter, status int, resp StudioResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// studioAdventureHandler returns the active definition as YAML on GET. On
// POST it validates the YAML body, writes it to disk and swaps it in.
func (s *Server) studioAdventureHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a := s.engine.Adventure()
		if a == nil {
			writeStudio(w, http.StatusNotFound, StudioResponse{Error: "no adventure loaded"})
			return
		}
		data, err := a.Marshal()
		if err != nil {
			writeStudio(w, http.StatusInternalServerError, StudioResponse{Error: err.Error()})
			return
		}
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(data)

	case http.MethodPost:
		body, err := io.ReadAll(io.LimitReader(r.Body, maxDefinitionSize+1))
		if err != nil {
			writeStudio(w, http.StatusBadRequest, StudioResponse{Error: "failed to read body"})
			return
		}
		if len(body) > maxDefinitionSize {
			writeStudio(w, http.StatusRequestEntityTooLarge, StudioResponse{Error: "definition too large"})
			return
		}

		a, err := adventure.Parse(body)
		if err != nil {
			resp := StudioResponse{Error: err.Error()}
			var verr *adventure.ValidationError
			if errors.As(err, &verr) {
				resp.Error = "invalid adventure"
				resp.Problems = verr.Problems
			}
			writeStudio(w, http.StatusBadRequest, resp)
			return
		}

		if s.path != "" {
			if err := writeFileAtomic(s.path, body); err != nil {
				log.Printf("api: failed to save adventure to %s: %v", s.path, err)
				writeStudio(w, http.StatusInternalServerError, StudioResponse{Error: "failed to save adventure"})
				return
			}
		}

		s.engine.Swap(a)
		SetAdventureReady(true)
		events.Emit("info", "adventure.saved", "", map[string]interface{}{
			"adventure_id": a.ID,
			"steps":        len(a.Steps),
		})
		writeStudio(w, http.StatusOK, StudioResponse{OK: true, Steps: len(a.Steps)})

	default:
		writeStudio(w, http.StatusMethodNotAllowed, StudioResponse{Error: "method not allowed"})
	}
}

// studioReloadHandler re-reads the definition file.
func (s *Server) studioReloadHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeStudio(w, http.StatusMethodNotAllowed, StudioResponse{Error: "method not allowed"})
		return
	}
	if s.reloader == nil {
		writeStudio(w, http.StatusNotFound, StudioResponse{Error: "reload not configured"})
		return
	}
	if err := s.reloader.Reload(); err != nil {
		writeStudio(w, http.StatusBadRequest, StudioResponse{Error: err.Error()})
		return
	}
	resp := StudioResponse{OK: true}
	if a := s.engine.Adventure(); a != nil {
		resp.Steps = len(a.Steps)
	}
	writeStudio(w, http.StatusOK, resp)
}

// writeFileAtomic replaces path with data via a temp file in the same
// directory.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".adventure-*.yaml")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
