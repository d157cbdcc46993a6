package session

import "errors"

var (
	ErrStepInvalid          = errors.New("session: current step has invalid answers")
	ErrFirstStep            = errors.New("session: already at the first step")
	ErrStepNotCompleted     = errors.New("session: step not completed")
	ErrStepOutOfRange       = errors.New("session: step out of range")
	ErrUnknownField         = errors.New("session: unknown field")
	ErrAttachmentField      = errors.New("session: attachment fields take files, not text")
	ErrNoAttachmentField    = errors.New("session: form has no attachment field")
	ErrDependentAgesPending = errors.New("session: dependent ages required")
	ErrDependentAges        = errors.New("session: invalid dependent ages")
	ErrUnknownIntent        = errors.New("session: unknown intent")
)
