package form

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-leadform/pkg/visibility/expr"
)

// ErrInvalidDefinition wraps every structural problem found while loading.
var ErrInvalidDefinition = errors.New("form: invalid definition")

//go:embed data/leadform.yaml
var dataFS embed.FS

const defaultDefinitionPath = "data/leadform.yaml"

var (
	defaultOnce sync.Once
	defaultDef  *Definition
	defaultErr  error
)

// Default returns the embedded health-plan lead form. The result is shared and
// must not be mutated.
func Default() (*Definition, error) {
	defaultOnce.Do(func() {
		defaultDef, defaultErr = Load(dataFS, defaultDefinitionPath)
	})
	return defaultDef, defaultErr
}

// Load reads and parses a definition file from fsys.
func Load(fsys fs.FS, path string) (*Definition, error) {
	if fsys == nil {
		return nil, fmt.Errorf("form: missing filesystem")
	}
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("form: read %s: %w", path, err)
	}
	return Parse(data, path)
}

// Parse decodes a JSON or YAML definition and validates it. source is only
// used in error messages.
func Parse(data []byte, source string) (*Definition, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, fmt.Errorf("%w: file %s is empty", ErrInvalidDefinition, source)
	}

	var def Definition
	if err := json.Unmarshal(data, &def); err != nil {
		def = Definition{}
		if yerr := yaml.Unmarshal(data, &def); yerr != nil {
			return nil, fmt.Errorf("form: parse %s: invalid JSON or YAML", source)
		}
	}

	if err := def.normalise(source); err != nil {
		return nil, err
	}
	return &def, nil
}

func (d *Definition) normalise(source string) error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s: %s", ErrInvalidDefinition, source, fmt.Sprintf(format, args...))
	}

	d.ID = strings.TrimSpace(d.ID)
	if len(d.Steps) == 0 {
		return invalid("no steps defined")
	}

	d.sections = make(map[string]Section, len(d.Sections))
	for i, s := range d.Sections {
		s.ID = strings.TrimSpace(s.ID)
		if s.ID == "" {
			return invalid("section %d has an empty id", i)
		}
		if _, dup := d.sections[s.ID]; dup {
			return invalid("duplicate section %q", s.ID)
		}
		if _, err := expr.Compile(s.VisibleWhen); err != nil {
			return invalid("section %q: %v", s.ID, err)
		}
		d.Sections[i] = s
		d.sections[s.ID] = s
	}

	d.fields = map[string]fieldRef{}
	for si := range d.Steps {
		step := &d.Steps[si]
		step.Index = si
		if len(step.Fields) == 0 {
			return invalid("step %d has no fields", si)
		}
		for fi := range step.Fields {
			f := &step.Fields[fi]
			f.Name = strings.TrimSpace(f.Name)
			if f.Name == "" {
				return invalid("step %d field %d has an empty name", si, fi)
			}
			if _, dup := d.fields[f.Name]; dup {
				return invalid("duplicate field %q", f.Name)
			}
			if f.Kind == "" {
				f.Kind = KindText
			}
			if !f.Kind.valid() {
				return invalid("field %q has unknown kind %q", f.Name, f.Kind)
			}
			if (f.Kind == KindRadio || f.Kind == KindSelect) && len(f.Options) == 0 {
				return invalid("field %q needs options", f.Name)
			}
			if f.Min != nil && f.Max != nil && *f.Min > *f.Max {
				return invalid("field %q has min greater than max", f.Name)
			}
			if f.Pattern != "" {
				if _, err := regexp.Compile(f.Pattern); err != nil {
					return invalid("field %q pattern: %v", f.Name, err)
				}
			}
			if f.Section != "" {
				if _, ok := d.sections[f.Section]; !ok {
					return invalid("field %q references unknown section %q", f.Name, f.Section)
				}
			}
			d.fields[f.Name] = fieldRef{step: si, pos: fi}
		}
	}

	for _, f := range d.Fields() {
		if f.Target == "" {
			continue
		}
		if _, ok := d.fields[f.Target]; !ok {
			return invalid("field %q targets unknown field %q", f.Name, f.Target)
		}
	}
	return nil
}
