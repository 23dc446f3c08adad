package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/orgdesk/orgdesk/internal/drive"
	"github.com/orgdesk/orgdesk/internal/logging"
	"github.com/orgdesk/orgdesk/internal/metrics"
)

// Action names accepted by the multiplexed entry point.
const (
	ActionListFiles   = "listFiles"
	ActionListFolders = "listFolders"
	ActionRename      = "rename"
	ActionDelete      = "delete"
	ActionGetURL      = "getUrl"
)

// ActionRequest is the multiplexed file-action request body.
type ActionRequest struct {
	Action      string `json:"action"`
	FileID      string `json:"fileId,omitempty"`
	FileName    string `json:"fileName,omitempty"`
	AccessToken string `json:"accessToken"`
}

// handleAction validates the request and forwards it to the drive service.
// It performs no business logic beyond parameter validation and credential
// forwarding.
func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	var req ActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.AccessToken == "" {
		metrics.RecordAction(req.Action, false)
		s.sendError(w, http.StatusUnauthorized, "access token required")
		return
	}

	ctx := r.Context()
	var resp Envelope
	var err error

	switch req.Action {
	case ActionListFiles:
		var files []drive.File
		files, err = s.drive.ListFiles(ctx, req.AccessToken)
		resp = Envelope{Success: true, Data: files}

	case ActionListFolders:
		var folders []drive.File
		folders, err = s.drive.ListFolders(ctx, req.AccessToken)
		resp = Envelope{Success: true, Data: folders}

	case ActionRename:
		if req.FileID == "" || req.FileName == "" {
			metrics.RecordAction(req.Action, false)
			s.sendError(w, http.StatusBadRequest, "fileId and fileName required")
			return
		}
		err = s.drive.Rename(ctx, req.AccessToken, req.FileID, req.FileName)
		resp = Envelope{Success: true, Message: "file renamed"}

	case ActionDelete:
		if req.FileID == "" {
			metrics.RecordAction(req.Action, false)
			s.sendError(w, http.StatusBadRequest, "fileId required")
			return
		}
		err = s.drive.Delete(ctx, req.AccessToken, req.FileID)
		resp = Envelope{Success: true, Message: "file deleted"}

	case ActionGetURL:
		if req.FileID == "" {
			metrics.RecordAction(req.Action, false)
			s.sendError(w, http.StatusBadRequest, "fileId required")
			return
		}
		var url string
		url, err = s.drive.FileURL(ctx, req.AccessToken, req.FileID)
		resp = Envelope{Success: true, URL: url}

	default:
		metrics.RecordAction(req.Action, false)
		s.sendError(w, http.StatusBadRequest, "unknown action: "+req.Action)
		return
	}

	if err != nil {
		metrics.RecordAction(req.Action, false)
		logging.Warn("file action failed",
			zap.String("action", req.Action),
			zap.String("file_id", req.FileID),
			zap.Error(err))
		s.sendError(w, actionStatus(err), err.Error())
		return
	}

	metrics.RecordAction(req.Action, true)
	s.sendJSON(w, http.StatusOK, resp)
}

func actionStatus(err error) int {
	switch {
	case errors.Is(err, drive.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, drive.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
