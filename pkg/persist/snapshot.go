// Package persist keeps in-progress answers across reloads.
//
// A Snapshot is stored as one flat JSON object: every answer under its field
// name plus "currentStep". Stores are keyed by an opaque string; the browser
// equivalent uses a single fixed key per client.
package persist

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// DefaultKey is the storage key used when a client has no namespace.
const DefaultKey = "leadform:progress"

const currentStepKey = "currentStep"

var (
	// ErrNotFound is returned by Load when no snapshot is stored under a key.
	ErrNotFound = errors.New("persist: snapshot not found")
	// ErrCorrupt wraps snapshots that cannot be decoded.
	ErrCorrupt = errors.New("persist: corrupt snapshot")
)

// Snapshot is the persisted progress of one form session.
type Snapshot struct {
	Values      map[string]string
	CurrentStep int
}

// Empty reports whether the snapshot holds no answers.
func (s Snapshot) Empty() bool {
	for _, v := range s.Values {
		if v != "" {
			return false
		}
	}
	return true
}

// MarshalJSON writes the flat object form.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s.Values)+1)
	for k, v := range s.Values {
		if k == currentStepKey {
			continue
		}
		out[k] = v
	}
	out[currentStepKey] = s.CurrentStep
	return json.Marshal(out)
}

// UnmarshalJSON reads the flat object form. currentStep may be a number or a
// numeric string; other values may be strings, numbers, booleans or null.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	if raw == nil {
		return errors.New("snapshot is not an object")
	}

	values := make(map[string]string, len(raw))
	step := 0
	for k, v := range raw {
		if k == currentStepKey {
			n, err := parseStep(v)
			if err != nil {
				return err
			}
			step = n
			continue
		}
		switch typed := v.(type) {
		case nil:
		case string:
			values[k] = typed
		case json.Number:
			values[k] = typed.String()
		case bool:
			values[k] = strconv.FormatBool(typed)
		default:
			return fmt.Errorf("field %q holds a %T", k, v)
		}
	}
	s.Values = values
	s.CurrentStep = step
	return nil
}

func parseStep(v any) (int, error) {
	var raw string
	switch typed := v.(type) {
	case nil:
		return 0, nil
	case json.Number:
		raw = typed.String()
	case string:
		raw = strings.TrimSpace(typed)
	default:
		return 0, fmt.Errorf("currentStep holds a %T", v)
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("currentStep %q is not a step index", raw)
	}
	return n, nil
}

// Encode serializes s.
func Encode(s Snapshot) ([]byte, error) {
	return json.Marshal(s)
}

// Decode parses data, wrapping any failure in ErrCorrupt.
func Decode(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return s, nil
}
