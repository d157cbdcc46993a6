package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"github.com/goliatone/go-leadform/pkg/form"
	"github.com/goliatone/go-leadform/pkg/session"
	"github.com/goliatone/go-leadform/pkg/submission"
)

// maxUploadBody leaves room for multipart framing around the largest
// accepted document.
const maxUploadBody = form.MaxAttachmentSize + 1<<20

type openRequest struct {
	ID string `json:"id"`
	session.StartParams
}

// CommandResult is the body of command and attachment responses.
type CommandResult struct {
	View  session.View `json:"view"`
	Error string       `json:"error,omitempty"`
}

// SubmitResult is the body of submit responses.
type SubmitResult struct {
	Outcome submission.Outcome `json:"outcome"`
	View    session.View       `json:"view"`
}

type submitRequest struct {
	SkipAttachment bool `json:"skipAttachment"`
}

func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request) {
	var req openRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	params := session.ParamsFromQuery(r.URL.Query())
	if params.Sheet == "" {
		params.Sheet = req.Sheet
	}
	if params.Source == "" {
		params.Source = req.Source
	}
	if params.Campaign == "" {
		params.Campaign = req.Campaign
	}

	sess, err := s.registry.Open(r.Context(), req.ID, params)
	if err != nil {
		if errors.Is(err, ErrInvalidSessionID) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.ErrorContext(r.Context(), "httpapi: open session", "error", err)
		writeError(w, http.StatusInternalServerError, "could not open session")
		return
	}
	writeJSON(w, http.StatusCreated, sess.View())
}

// lookup resolves the {id} session or writes a 404.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.registry.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return nil, false
	}
	return sess, true
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.View())
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.registry.Close(context.WithoutCancel(r.Context()), id); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		s.logger.WarnContext(r.Context(), "httpapi: close session", "id", id, "error", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var cmd session.Command
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	view, err := sess.Dispatch(r.Context(), cmd)
	if err != nil {
		writeJSON(w, commandStatus(err), CommandResult{View: view, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, CommandResult{View: view})
}

// commandStatus maps session errors: malformed commands are 400, commands
// refused by a form rule are 422.
func commandStatus(err error) int {
	switch {
	case errors.Is(err, session.ErrUnknownIntent),
		errors.Is(err, session.ErrUnknownField),
		errors.Is(err, session.ErrAttachmentField):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusUnprocessableEntity
	}
}

func (s *Server) handleAttach(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			sess.ClearAttachment()
			writeError(w, http.StatusRequestEntityTooLarge, form.AttachmentMessage(form.ErrAttachmentTooLarge))
			return
		}
		writeError(w, http.StatusBadRequest, "missing file")
		return
	}
	defer file.Close()

	att := form.Attachment{
		Name:      filepath.Base(header.Filename),
		MediaType: header.Header.Get("Content-Type"),
		Size:      header.Size,
	}
	if att.Size <= form.MaxAttachmentSize {
		if att.Data, err = io.ReadAll(file); err != nil {
			writeError(w, http.StatusBadRequest, "could not read file")
			return
		}
		if att.MediaType == "" || att.MediaType == "application/octet-stream" {
			att.MediaType = http.DetectContentType(att.Data)
		}
	}

	if err := sess.Attach(att); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, CommandResult{View: sess.View(), Error: form.AttachmentMessage(err)})
		return
	}
	writeJSON(w, http.StatusOK, CommandResult{View: sess.View()})
}

func (s *Server) handleClearAttachment(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	sess.ClearAttachment()
	writeJSON(w, http.StatusOK, CommandResult{View: sess.View()})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req submitRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	// Delivery continues if the client goes away.
	ctx := context.WithoutCancel(r.Context())
	out := s.controller.Submit(ctx, sess, submission.SubmitOptions{
		SkipAttachment: req.SkipAttachment,
		UserAgent:      r.UserAgent(),
	})

	status := http.StatusOK
	switch out.Aborted {
	case submission.AbortInvalid:
		status = http.StatusUnprocessableEntity
	case submission.AbortAwaitingAttachment, submission.AbortInFlight:
		status = http.StatusConflict
	}
	writeJSON(w, status, SubmitResult{Outcome: out, View: sess.View()})
}
