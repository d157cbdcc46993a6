package form

import (
	"errors"
	"path/filepath"
	"strings"
)

const (
	// MaxAttachmentSize is the largest accepted upload, in bytes.
	MaxAttachmentSize = 5 * 1024 * 1024
	// PDFMediaType is the only accepted upload type.
	PDFMediaType = "application/pdf"
)

var (
	ErrAttachmentTooLarge = errors.New("form: attachment exceeds 5 MB")
	ErrAttachmentType     = errors.New("form: attachment is not a PDF")
)

// Attachment is an uploaded document held in memory until submission.
type Attachment struct {
	Name      string
	MediaType string
	Size      int64
	Data      []byte
}

// Empty reports whether no document is attached.
func (a *Attachment) Empty() bool {
	return a == nil || (len(a.Data) == 0 && a.Size == 0)
}

// Ext returns the file extension including the dot, ".pdf" when the name has
// none.
func (a *Attachment) Ext() string {
	if a == nil {
		return ".pdf"
	}
	if ext := filepath.Ext(a.Name); ext != "" {
		return ext
	}
	return ".pdf"
}

// CheckAttachment enforces the size limit first and then the media type.
func CheckAttachment(a Attachment) error {
	size := a.Size
	if size == 0 {
		size = int64(len(a.Data))
	}
	if size > MaxAttachmentSize {
		return ErrAttachmentTooLarge
	}
	mediaType, _, _ := strings.Cut(a.MediaType, ";")
	if !strings.EqualFold(strings.TrimSpace(mediaType), PDFMediaType) {
		return ErrAttachmentType
	}
	return nil
}

// AttachmentMessage returns the message shown next to the upload control for
// an error returned by CheckAttachment.
func AttachmentMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAttachmentTooLarge):
		return "El archivo es demasiado grande (máx. 5 MB)."
	case errors.Is(err, ErrAttachmentType):
		return "Solo se permiten archivos PDF."
	default:
		return err.Error()
	}
}
