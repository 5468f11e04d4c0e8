package client

import (
	"context"
	"strings"

	"github.com/hama-community/welfare/internal/model"
)

// StatusAPI sends a status change.
type StatusAPI interface {
	UpdateStatus(ctx context.Context, id string, u StatusUpdate) (*model.TakafulBenefit, error)
}

// Refresher reloads the benefit list after a successful mutation.
type Refresher interface {
	Refetch(ctx context.Context) error
}

// StatusController drives the close and cancel dialog.  Open prepares the
// editing state, Submit sends exactly one request when the local checks
// pass.
type StatusController struct {
	api  StatusAPI
	list Refresher

	open    bool
	benefit model.TakafulBenefit
	action  model.StatusAction
	note    string
	reason  string
}

func NewStatusController(api StatusAPI, list Refresher) *StatusController {
	return &StatusController{api: api, list: list}
}

// AllowedActions lists the actions offered for b.  Terminal records get
// none and open records only cancel.
func (s *StatusController) AllowedActions(b model.TakafulBenefit) []model.StatusAction {
	return model.AllowedActions(b.Status)
}

// Open starts editing action on b and clears any earlier note or reason.
func (s *StatusController) Open(b model.TakafulBenefit, action model.StatusAction) error {
	target, ok := action.TargetStatus()
	if !ok || !model.CanTransition(b.Status, target) {
		return validationError(msgActionNotValid)
	}
	s.open = true
	s.benefit = b
	s.action = action
	s.note, s.reason = "", ""
	return nil
}

func (s *StatusController) IsOpen() bool { return s.open }

func (s *StatusController) Benefit() model.TakafulBenefit { return s.benefit }

func (s *StatusController) Action() model.StatusAction { return s.action }

// SetNote sets the optional closing note.
func (s *StatusController) SetNote(note string) { s.note = note }

// SetReason selects the cancel reason by id.
func (s *StatusController) SetReason(id string) { s.reason = id }

// Submit sends the status change.  Cancelling without a reason fails
// locally.  On success the dialog closes and the list is refetched once;
// on failure the dialog stays open with its state intact.
func (s *StatusController) Submit(ctx context.Context) error {
	if !s.open {
		return validationError(msgNoSelection)
	}
	target, _ := s.action.TargetStatus()
	u := StatusUpdate{Status: target}
	switch s.action {
	case model.ActionClose:
		if note := strings.TrimSpace(s.note); note != "" {
			u.StatusNote = &note
		}
	case model.ActionCancel:
		if s.reason == "" {
			return validationError(msgReasonRequired)
		}
		reason := s.reason
		u.CancelReason = &reason
	}

	if _, err := s.api.UpdateStatus(ctx, s.benefit.ID, u); err != nil {
		return err
	}
	s.reset()
	return s.list.Refetch(ctx)
}

// Close abandons the dialog.
func (s *StatusController) Close() { s.reset() }

func (s *StatusController) reset() {
	s.open = false
	s.benefit = model.TakafulBenefit{}
	s.action = ""
	s.note, s.reason = "", ""
}
