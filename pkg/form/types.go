package form

// Kind selects the validation and collection behavior of a field.
type Kind string

const (
	KindText       Kind = "text"
	KindNumber     Kind = "number"
	KindIdentifier Kind = "identifier"
	KindEmail      Kind = "email"
	KindLocality   Kind = "locality"
	KindRadio      Kind = "radio"
	KindSelect     Kind = "select"
	KindHidden     Kind = "hidden"
	KindAttachment Kind = "attachment"
)

func (k Kind) valid() bool {
	switch k {
	case KindText, KindNumber, KindIdentifier, KindEmail, KindLocality,
		KindRadio, KindSelect, KindHidden, KindAttachment:
		return true
	}
	return false
}

// Role tags a field whose changes have side effects on other fields.
type Role string

const (
	RoleNone Role = ""
	// RoleRegion marks the hidden field filled from the selected locality.
	RoleRegion Role = "region"
	// RoleDependentsCount marks the field holding the number of dependents;
	// its Target receives their ages.
	RoleDependentsCount Role = "dependents-count"
	// RoleAnnuity marks the yes/no annuity question; its Target names the
	// provider field quoted in the notice.
	RoleAnnuity Role = "annuity"
	// RoleAgeBracket marks the age range used to look up the pricing factor.
	RoleAgeBracket Role = "age-bracket"
	// RoleRouting marks the hidden destination-sheet field.
	RoleRouting Role = "routing"
)

// Field describes a single answer collected by the form. Values are strings.
type Field struct {
	Name      string   `json:"name" yaml:"name"`
	Kind      Kind     `json:"kind" yaml:"kind"`
	Label     string   `json:"label,omitempty" yaml:"label,omitempty"`
	Required  bool     `json:"required,omitempty" yaml:"required,omitempty"`
	Section   string   `json:"section,omitempty" yaml:"section,omitempty"`
	Options   []string `json:"options,omitempty" yaml:"options,omitempty"`
	Min       *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max       *float64 `json:"max,omitempty" yaml:"max,omitempty"`
	Pattern   string   `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	MaxLength int      `json:"maxLength,omitempty" yaml:"maxLength,omitempty"`
	Role      Role     `json:"role,omitempty" yaml:"role,omitempty"`
	Target    string   `json:"target,omitempty" yaml:"target,omitempty"`
}

// HasOption reports whether value is one of the field's options.
func (f Field) HasOption(value string) bool {
	for _, opt := range f.Options {
		if opt == value {
			return true
		}
	}
	return false
}

// Step is one page of the form. Index is assigned from position.
type Step struct {
	Index  int     `json:"-" yaml:"-"`
	Title  string  `json:"title" yaml:"title"`
	Fields []Field `json:"fields" yaml:"fields"`
}

// Section groups fields shown only while VisibleWhen holds.
type Section struct {
	ID          string `json:"id" yaml:"id"`
	VisibleWhen string `json:"visibleWhen" yaml:"visibleWhen"`
}

// Definition is a complete, validated form.
type Definition struct {
	ID       string    `json:"id" yaml:"id"`
	Title    string    `json:"title,omitempty" yaml:"title,omitempty"`
	Steps    []Step    `json:"steps" yaml:"steps"`
	Sections []Section `json:"sections,omitempty" yaml:"sections,omitempty"`

	fields   map[string]fieldRef
	sections map[string]Section
}

type fieldRef struct {
	step, pos int
}

// StepCount returns the number of steps.
func (d *Definition) StepCount() int {
	if d == nil {
		return 0
	}
	return len(d.Steps)
}

// LastStep returns the index of the final step.
func (d *Definition) LastStep() int {
	return d.StepCount() - 1
}

// Step returns the step at index i.
func (d *Definition) Step(i int) (Step, bool) {
	if d == nil || i < 0 || i >= len(d.Steps) {
		return Step{}, false
	}
	return d.Steps[i], true
}

// Field looks a field up by name.
func (d *Definition) Field(name string) (Field, bool) {
	if d == nil {
		return Field{}, false
	}
	ref, ok := d.fields[name]
	if !ok {
		return Field{}, false
	}
	return d.Steps[ref.step].Fields[ref.pos], true
}

// StepOf returns the index of the step that owns name, or -1.
func (d *Definition) StepOf(name string) int {
	if d == nil {
		return -1
	}
	ref, ok := d.fields[name]
	if !ok {
		return -1
	}
	return ref.step
}

// Fields returns every field in step order.
func (d *Definition) Fields() []Field {
	if d == nil {
		return nil
	}
	var out []Field
	for _, step := range d.Steps {
		out = append(out, step.Fields...)
	}
	return out
}

// FieldsWithRole returns the fields tagged with role, in step order.
func (d *Definition) FieldsWithRole(role Role) []Field {
	var out []Field
	for _, f := range d.Fields() {
		if f.Role == role {
			out = append(out, f)
		}
	}
	return out
}

// FieldsOfKind returns the fields of kind k, in step order.
func (d *Definition) FieldsOfKind(k Kind) []Field {
	var out []Field
	for _, f := range d.Fields() {
		if f.Kind == k {
			out = append(out, f)
		}
	}
	return out
}

// Section looks a conditional section up by id.
func (d *Definition) Section(id string) (Section, bool) {
	if d == nil {
		return Section{}, false
	}
	s, ok := d.sections[id]
	return s, ok
}
