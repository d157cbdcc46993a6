package session

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-leadform/pkg/form"
	"github.com/goliatone/go-leadform/pkg/rut"
)

const (
	// MaxDependentAge bounds each dependent age.
	MaxDependentAge = 120

	annuityNotice        = "Recuerde que debe tener al menos un año en %q."
	genericProviderLabel = "Tu Isapre actual"
	otherProvider        = "Otra"
)

// effect runs after a field value changes, with the lock held.
type effect func(s *Session, f form.Field)

var kindEffects = map[form.Kind]effect{
	form.KindIdentifier: formatIdentifier,
	form.KindLocality:   deriveRegion,
}

var roleEffects = map[form.Role]effect{
	form.RoleDependentsCount: resetDependents,
	form.RoleAnnuity:         remindAnnuity,
}

func formatIdentifier(s *Session, f form.Field) {
	if v := s.values[f.Name]; strings.TrimSpace(v) != "" {
		s.values[f.Name] = rut.Format(v)
	}
}

func deriveRegion(s *Session, f form.Field) {
	if f.Target == "" {
		return
	}
	region := ""
	if s.places != nil {
		region, _ = s.places.ResolveRegion(s.values[f.Name])
	}
	s.values[f.Target] = region
}

func resetDependents(s *Session, f form.Field) {
	n := dependentCount(s.values[f.Name])
	s.pendingAges = n
	if f.Target != "" {
		s.values[f.Target] = ""
	}
}

func remindAnnuity(s *Session, f form.Field) {
	if s.values[f.Name] != "No" || f.Target == "" {
		return
	}
	provider := strings.TrimSpace(s.values[f.Target])
	if provider == "" {
		return
	}
	if provider == otherProvider {
		provider = genericProviderLabel
	}
	s.notice = fmt.Sprintf(annuityNotice, provider)
}

// dependentCount parses counts such as "2" or "5+". Anything unparseable
// counts as zero.
func dependentCount(v string) int {
	n, err := strconv.Atoi(strings.TrimSpace(strings.ReplaceAll(v, "+", "")))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// SetValue records an answer typed or selected by the user. Fields that were
// already interacted with are re-validated.
func (s *Session) SetValue(name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.def.Field(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
	if f.Kind == form.KindAttachment {
		return ErrAttachmentField
	}
	s.setLocked(f, value)
	if s.interacted[f.Name] {
		s.checkLocked(f)
	}
	s.scheduleSaveLocked()
	return nil
}

func (s *Session) setLocked(f form.Field, value string) {
	s.values[f.Name] = value
	if fn := kindEffects[f.Kind]; fn != nil {
		fn(s, f)
	}
	if fn := roleEffects[f.Role]; fn != nil {
		fn(s, f)
	}
}

// Blur marks a field as interacted and validates it. Locality answers are
// autocorrected first.
func (s *Session) Blur(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.def.Field(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
	if f.Kind == form.KindLocality && s.places != nil {
		if c := s.places.Autocorrect(s.values[f.Name]); c.Corrected {
			s.logger.Debug("session: locality corrected", "from", s.values[f.Name], "to", c.Value)
			s.setLocked(f, c.Value)
		}
	}
	s.interacted[f.Name] = true
	s.checkLocked(f)
	s.scheduleSaveLocked()
	return nil
}

// checkLocked runs the interacted check and records its message.
func (s *Session) checkLocked(f form.Field) bool {
	res := s.validator.CheckField(f, s.state(), true)
	if res.Valid {
		delete(s.errors, f.Name)
	} else {
		s.errors[f.Name] = res.Message
	}
	return res.Valid
}

// PendingAges returns how many dependent ages are awaited.
func (s *Session) PendingAges() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingAges
}

// SetDependentAges stores one age per dependent, joined into the dependents
// count field's target.
func (s *Session) SetDependentAges(ages []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fields := s.def.FieldsWithRole(form.RoleDependentsCount)
	if len(fields) == 0 || fields[0].Target == "" {
		return fmt.Errorf("%w: form has no dependents field", ErrDependentAges)
	}
	f := fields[0]
	want := dependentCount(s.values[f.Name])
	if len(ages) != want {
		return fmt.Errorf("%w: want %d ages, got %d", ErrDependentAges, want, len(ages))
	}
	clean := make([]string, len(ages))
	for i, a := range ages {
		a = strings.TrimSpace(a)
		n, err := strconv.Atoi(a)
		if err != nil || n < 0 || n > MaxDependentAge {
			return fmt.Errorf("%w: age %d must be a number between 0 and %d", ErrDependentAges, i+1, MaxDependentAge)
		}
		clean[i] = strconv.Itoa(n)
	}
	s.values[f.Target] = strings.Join(clean, ", ")
	s.pendingAges = 0
	s.scheduleSaveLocked()
	return nil
}

// Attach stores the attachment for the form's attachment field. A rejected file
// clears the field and leaves the reason as its error message.
func (s *Session) Attach(a form.Attachment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.attachmentFieldLocked()
	if !ok {
		return ErrNoAttachmentField
	}
	if err := form.CheckAttachment(a); err != nil {
		s.attachment = nil
		s.errors[f.Name] = form.AttachmentMessage(err)
		return err
	}
	delete(s.errors, f.Name)
	s.attachment = &a
	return nil
}

// ClearAttachment drops the stored attachment.
func (s *Session) ClearAttachment() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attachment = nil
}

// Attachment returns a copy of the stored attachment, or nil.
func (s *Session) Attachment() *form.Attachment {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attachment == nil {
		return nil
	}
	a := *s.attachment
	return &a
}

func (s *Session) attachmentFieldLocked() (form.Field, bool) {
	fields := s.def.FieldsOfKind(form.KindAttachment)
	if len(fields) == 0 {
		return form.Field{}, false
	}
	return fields[0], true
}
