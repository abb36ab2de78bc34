package daemon

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aulaplay/aula/internal/domain"
	"github.com/aulaplay/aula/internal/engine/dragmatch"
	"github.com/aulaplay/aula/internal/engine/memory"
	"github.com/aulaplay/aula/internal/engine/robotgrid"
	"github.com/aulaplay/aula/internal/engine/selectcorrect"
	"github.com/aulaplay/aula/internal/session"
)

// inputRequest is the generic game-move envelope. Which fields matter
// depends on the session's template and the action.
type inputRequest struct {
	Action string `json:"action"`

	// select-correct
	Index int `json:"index"`

	// drag-match
	ItemID   string `json:"item_id"`
	TargetID string `json:"target_id"`

	// memory
	CardID string `json:"card_id"`

	// robot-grid
	Command  string `json:"command"`
	ParentID string `json:"parent_id"`
	BlockID  string `json:"block_id"`
	Count    int    `json:"count"`
}

// handleInput routes one game move to the session's engine.
func (s *Server) handleInput(w http.ResponseWriter, r *http.Request) {
	ctrl := s.lookupSession(w, r)
	if ctrl == nil {
		return
	}

	var req inputRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	switch eng := ctrl.Engine().(type) {
	case *selectcorrect.Engine:
		s.handleSelectInput(w, r, ctrl, eng, req)
	case *dragmatch.Engine:
		s.handleDragInput(w, r, ctrl, eng, req)
	case *memory.Engine:
		s.handleMemoryInput(w, r, ctrl, eng, req)
	case *robotgrid.Engine:
		s.handleRobotInput(w, r, ctrl, eng, req)
	default:
		s.jsonError(w, http.StatusConflict, "session has no active engine", nil)
	}
}

func (s *Server) handleSelectInput(w http.ResponseWriter, r *http.Request, ctrl *session.Controller, eng *selectcorrect.Engine, req inputRequest) {
	if req.Action != "select" {
		s.jsonError(w, http.StatusBadRequest, "unknown action for select-correct", nil)
		return
	}
	eng.Select(req.Index)
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"state":    ctrl.State(),
		"solved":   eng.Solved(),
		"feedback": eng.Feedback(),
		"attempts": ctrl.Attempts(),
	})
}

func (s *Server) handleDragInput(w http.ResponseWriter, r *http.Request, ctrl *session.Controller, eng *dragmatch.Engine, req inputRequest) {
	if req.Action != "pair" {
		s.jsonError(w, http.StatusBadRequest, "unknown action for drag-match", nil)
		return
	}
	eng.Pair(req.ItemID, req.TargetID)
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"state":     ctrl.State(),
		"solved":    eng.Solved(),
		"feedback":  eng.Feedback(),
		"attempts":  ctrl.Attempts(),
		"remaining": len(eng.Items()),
	})
}

func (s *Server) handleMemoryInput(w http.ResponseWriter, r *http.Request, ctrl *session.Controller, eng *memory.Engine, req inputRequest) {
	if req.Action != "flip" {
		s.jsonError(w, http.StatusBadRequest, "unknown action for memory", nil)
		return
	}
	eng.Flip(req.CardID)
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"state":    ctrl.State(),
		"solved":   eng.Solved(),
		"failed":   eng.Failed(),
		"attempts": ctrl.Attempts(),
		"cards":    eng.Cards(),
	})
}

func (s *Server) handleRobotInput(w http.ResponseWriter, r *http.Request, ctrl *session.Controller, eng *robotgrid.Engine, req inputRequest) {
	var err error
	switch req.Action {
	case "append":
		_, err = eng.Append(domain.Command(req.Command))
	case "append_child":
		_, err = eng.AppendChild(req.ParentID, domain.Command(req.Command))
	case "set_repeat":
		err = eng.SetRepeatCount(req.BlockID, req.Count)
	case "remove":
		err = eng.Remove(req.BlockID)
	case "clear":
		eng.ClearProgram()
	case "reset":
		eng.Reset()
	case "execute":
		err = eng.Execute(r.Context())
		var abort *robotgrid.AbortError
		if errors.As(err, &abort) {
			// An illegal move is a normal game outcome, not a request
			// failure.
			s.jsonResponse(w, http.StatusOK, map[string]any{
				"state":    ctrl.State(),
				"status":   eng.Status(),
				"aborted":  true,
				"reason":   abort.Error(),
				"robot":    eng.State(),
				"attempts": ctrl.Attempts(),
			})
			return
		}
	default:
		s.jsonError(w, http.StatusBadRequest, "unknown action for robot-grid", nil)
		return
	}
	if err != nil {
		s.jsonError(w, http.StatusBadRequest, "robot action failed", err)
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"state":    ctrl.State(),
		"status":   eng.Status(),
		"robot":    eng.State(),
		"attempts": ctrl.Attempts(),
	})
}
