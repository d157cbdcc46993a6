package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/goliatone/go-leadform/pkg/form"
	"github.com/goliatone/go-leadform/pkg/persist"
)

// Abandonment record fields.
const (
	FieldStatus      = "status"
	FieldSource      = "fuente_cta"
	FieldCampaign    = "campana"
	FieldCurrentStep = "currentStep"

	StatusAbandoned = "Abandonado"
	StatusRecovered = "Recuperado"
)

func (s *Session) scheduleSaveLocked() {
	if s.store == nil || s.submitting || s.closed {
		return
	}
	s.saver.Trigger(s.save)
}

// save writes the snapshot. It runs on the debouncer's goroutine and holds
// the session lock for the whole write so a submission cannot interleave.
func (s *Session) save() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitting || s.closed {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.saveLimit)
	defer cancel()
	if err := s.store.Save(ctx, s.key, s.snapshotLocked()); err != nil {
		s.logger.Error("session: save progress", "key", s.key, "error", err)
		return
	}
	s.observer.SnapshotSaved()
}

func (s *Session) snapshotLocked() persist.Snapshot {
	values := make(map[string]string, len(s.values))
	for name, v := range s.values {
		if f, ok := s.def.Field(name); ok && f.Kind == form.KindAttachment {
			continue
		}
		values[name] = v
	}
	return persist.Snapshot{Values: values, CurrentStep: s.current}
}

// Snapshot returns what the next autosave would write.
func (s *Session) Snapshot() persist.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// FlushProgress writes a pending autosave now. It reports whether one ran.
func (s *Session) FlushProgress() bool {
	return s.saver.Flush()
}

// SavePending reports whether an autosave is scheduled.
func (s *Session) SavePending() bool {
	return s.saver.Pending()
}

// Restore loads the stored snapshot, if any. A corrupt snapshot is discarded
// and the session starts empty.
func (s *Session) Restore(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.store.Load(ctx, s.key)
	switch {
	case errors.Is(err, persist.ErrNotFound):
		return nil
	case errors.Is(err, persist.ErrCorrupt):
		s.logger.Warn("session: discarding unreadable progress", "key", s.key, "error", err)
		if derr := s.store.Delete(ctx, s.key); derr != nil {
			s.logger.Error("session: delete progress", "key", s.key, "error", derr)
		}
		return nil
	case err != nil:
		return fmt.Errorf("session: restore: %w", err)
	}

	for name, v := range snap.Values {
		f, ok := s.def.Field(name)
		if !ok || f.Kind == form.KindAttachment {
			continue
		}
		s.values[name] = v
	}
	step := snap.CurrentStep
	if step > s.def.LastStep() {
		step = s.def.LastStep()
	}
	if step > 0 {
		s.current = step
		for i := 0; i < step; i++ {
			s.completed[i] = true
		}
	}
	s.recovered = true
	s.observer.SnapshotRestored()
	return nil
}

// Teardown ends the session. Pending autosaves are dropped; a stored,
// non-empty snapshot is reported through the beacon as abandoned and then
// deleted.
func (s *Session) Teardown(ctx context.Context) error {
	s.saver.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.store == nil {
		return nil
	}

	snap, err := s.store.Load(ctx, s.key)
	if err != nil {
		if errors.Is(err, persist.ErrNotFound) {
			return nil
		}
		if errors.Is(err, persist.ErrCorrupt) {
			return s.store.Delete(ctx, s.key)
		}
		return fmt.Errorf("session: teardown: %w", err)
	}
	if snap.Empty() {
		return nil
	}

	fields := make(map[string]string, len(snap.Values)+4)
	for k, v := range snap.Values {
		fields[k] = v
	}
	fields[FieldCurrentStep] = strconv.Itoa(snap.CurrentStep)
	fields[FieldStatus] = StatusAbandoned
	fields[FieldSource] = s.attribution.Source()
	fields[FieldCampaign] = s.attribution.CampaignName()
	if s.beacon != nil {
		s.beacon.Send(fields)
	}
	s.observer.Abandoned()

	if err := s.store.Delete(ctx, s.key); err != nil {
		return fmt.Errorf("session: teardown: %w", err)
	}
	return nil
}

// Closed reports whether Teardown ran.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// BeginSubmit latches the submission state and disables the submit control.
// It reports false when a submission is already in flight. The latch stays
// set until Reset, so autosave stays off after the first submission.
func (s *Session) BeginSubmit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.submitEnabled {
		return false
	}
	s.submitting = true
	s.submitEnabled = false
	return true
}

// EndSubmit re-enables the submit control.
func (s *Session) EndSubmit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitEnabled = true
}

// Submitting reports whether a submission has started.
func (s *Session) Submitting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitting
}

// SubmitEnabled reports whether the submit control is usable.
func (s *Session) SubmitEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitEnabled
}

// ClearProgress drops any pending autosave and deletes the stored snapshot.
func (s *Session) ClearProgress(ctx context.Context) error {
	s.saver.Stop()
	if s.store == nil {
		return nil
	}
	if err := s.store.Delete(ctx, s.key); err != nil {
		return fmt.Errorf("session: clear progress: %w", err)
	}
	return nil
}
