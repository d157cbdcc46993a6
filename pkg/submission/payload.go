package submission

import (
	"encoding/base64"
	"fmt"
	"sort"
	"time"

	"github.com/goliatone/go-leadform/pkg/form"
	"github.com/goliatone/go-leadform/pkg/rut"
	"github.com/goliatone/go-leadform/pkg/sanitize"
	"github.com/goliatone/go-leadform/pkg/session"
)

// Payload field names added to the answers.
const (
	FieldSource    = session.FieldSource
	FieldCampaign  = session.FieldCampaign
	FieldFactor    = "factor"
	FieldStatus    = session.FieldStatus
	FieldBase64PDF = "base64pdf"
	FieldFilename  = "filename"

	// FilenameLayout prefixes uploaded file names.
	FilenameLayout = "2006-01-02_150405"
)

// Payload is the flat set of multipart fields posted to the endpoint.
type Payload struct {
	Fields map[string]string `json:"fields"`
}

// Keys returns the field names in a stable order.
func (p Payload) Keys() []string {
	keys := make([]string, 0, len(p.Fields))
	for k := range p.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns one field.
func (p Payload) Get(name string) string { return p.Fields[name] }

// BuildPayload assembles the submission fields for f at time now.
func BuildPayload(f Form, now time.Time) Payload {
	def := f.Definition()
	answers := f.Answers()
	fields := sanitize.Values(answers)

	attr := f.Attribution()
	fields[FieldSource] = attr.Source()
	fields[FieldCampaign] = attr.CampaignName()
	fields[FieldFactor] = factorFor(def, answers)
	if f.Recovered() {
		fields[FieldStatus] = session.StatusRecovered
	}

	if att := f.Attachment(); !att.Empty() {
		fields[FieldBase64PDF] = base64.StdEncoding.EncodeToString(att.Data)
		fields[FieldFilename] = Filename(now, identifierOf(def, answers), att)
	}
	return Payload{Fields: fields}
}

// Filename names an uploaded document after the submission time and the
// compact RUT, keeping the original extension.
func Filename(now time.Time, identifier string, att *form.Attachment) string {
	return fmt.Sprintf("%s_%s%s", now.Format(FilenameLayout), rut.Compact(identifier), att.Ext())
}

func factorFor(def *form.Definition, answers map[string]string) string {
	if def == nil {
		return FactorUnknown
	}
	fields := def.FieldsWithRole(form.RoleAgeBracket)
	if len(fields) == 0 {
		return FactorUnknown
	}
	return Factor(answers[fields[0].Name])
}

func identifierOf(def *form.Definition, answers map[string]string) string {
	if def == nil {
		return ""
	}
	fields := def.FieldsOfKind(form.KindIdentifier)
	if len(fields) == 0 {
		return ""
	}
	return answers[fields[0].Name]
}
