// Package deeplink builds the WhatsApp fallback link shown after a submission.
//
// The message lists the lead's answers as "• Label: value" lines between a
// fixed header and footer. Mobile user agents get the app scheme; everyone
// else gets the web link.
package deeplink

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"regexp"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"
	"github.com/mssola/useragent"

	"github.com/goliatone/go-leadform/pkg/sanitize"
)

// DefaultPhone is the executive's WhatsApp number.
const DefaultPhone = "56967313656"

const messageTemplate = "message.tpl"

//go:embed templates/*.tpl
var templateFS embed.FS

var mobileAgent = regexp.MustCompile(`(?i)Android|webOS|iPhone|iPad|iPod|BlackBerry|IEMobile|Opera Mini`)

// Link is a ready-to-open deep link and the message it carries.
type Link struct {
	URL    string `json:"url"`
	Text   string `json:"text"`
	Mobile bool   `json:"mobile"`
}

// Line is one "• Label: value" entry of the message.
type Line struct {
	Label string
	Value string
}

// Builder renders messages and links. It is safe for concurrent use.
type Builder struct {
	phone string
	tpl   *pongo2.Template
	mu    sync.Mutex
}

// Option configures a Builder.
type Option func(*Builder)

// WithPhone sets the destination number, digits only.
func WithPhone(phone string) Option {
	return func(b *Builder) {
		if p := strings.TrimSpace(phone); p != "" {
			b.phone = strings.TrimPrefix(p, "+")
		}
	}
}

// New returns a Builder using the embedded message template.
func New(opts ...Option) (*Builder, error) {
	b := &Builder{phone: DefaultPhone}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	sub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("deeplink: templates: %w", err)
	}
	set := pongo2.NewSet("deeplink", pongo2.NewFSLoader(sub))
	tpl, err := set.FromFile(messageTemplate)
	if err != nil {
		return nil, fmt.Errorf("deeplink: parse template: %w", err)
	}
	b.tpl = tpl
	return b, nil
}

// Phone returns the destination number.
func (b *Builder) Phone() string { return b.phone }

// Lines returns the answer lines in message order. Empty answers are left out.
func Lines(answers map[string]string, hasAttachment bool) []Line {
	v := func(name string) string { return sanitize.Text(answers[name]) }
	withUnit := func(name, unit string) string {
		if s := v(name); s != "" {
			return s + " " + unit
		}
		return ""
	}

	system := v("sistema_actual")
	if system == "Isapre" {
		provider := v("isapre_especifica")
		if provider == "" {
			provider = "No especificada"
		}
		system = fmt.Sprintf("Isapre (%s)", provider)
	}
	attached := "No"
	if hasAttachment {
		attached = "Sí"
	}

	candidates := []Line{
		{"Certificado Adjunto", attached},
		{"RUT", v("rut")},
		{"Email", v("email")},
		{"Teléfono", v("telefono")},
		{"Edad", v("rango_edad")},
		{"Estado civil", v("estado_civil")},
		{"Comuna", v("comuna")},
		{"Región", v("region")},
		{"Sistema de Salud", system},
		{"Anualidad Isapre", v("anualidad_isapre")},
		{"Estatura", withUnit("estatura", "m")},
		{"Peso", withUnit("peso", "Kg")},
		{"Cargas", v("num_cargas")},
		{"Edad Cargas", v("edad_cargas")},
		{"Costo plan actual", v("rango_costo")},
		{"Interés", v("interes")},
		{"Evaluar AFP", v("evaluar_afp")},
	}
	if v("evaluar_afp") == "Si" {
		candidates = append(candidates, Line{"AFP actual", v("afp_actual")})
	}

	lines := candidates[:0]
	for _, l := range candidates {
		if l.Value != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// Message renders the message text for answers.
func (b *Builder) Message(answers map[string]string, hasAttachment bool) (string, error) {
	if b == nil || b.tpl == nil {
		return "", errors.New("deeplink: builder is nil")
	}
	ctx := pongo2.Context{
		"name":  sanitize.Text(answers["nombre"]),
		"lines": Lines(answers, hasAttachment),
	}
	var buf bytes.Buffer
	b.mu.Lock()
	err := b.tpl.ExecuteWriter(ctx, &buf)
	b.mu.Unlock()
	if err != nil {
		return "", fmt.Errorf("deeplink: render message: %w", err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

// Build renders the message and wraps it in a link for userAgent.
func (b *Builder) Build(answers map[string]string, hasAttachment bool, userAgent string) (Link, error) {
	text, err := b.Message(answers, hasAttachment)
	if err != nil {
		return Link{}, err
	}
	mobile := IsMobile(userAgent)
	return Link{URL: b.URL(text, mobile), Text: text, Mobile: mobile}, nil
}

// URL returns the link that opens a chat with text prefilled.
func (b *Builder) URL(text string, mobile bool) string {
	escaped := EscapeComponent(text)
	if mobile {
		return fmt.Sprintf("whatsapp://send?phone=%s&text=%s", b.phone, escaped)
	}
	return fmt.Sprintf("https://wa.me/%s?text=%s", b.phone, escaped)
}

// IsMobile reports whether userAgent belongs to a phone or tablet.
func IsMobile(userAgent string) bool {
	if strings.TrimSpace(userAgent) == "" {
		return false
	}
	if mobileAgent.MatchString(userAgent) {
		return true
	}
	return useragent.New(userAgent).Mobile()
}

// EscapeComponent percent-encodes s for use as a single query value. Spaces
// become %20.
func EscapeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
