// Package submission sends a completed lead form to the collection endpoint.
//
// The Controller checks the form, asks about a missing attachment, builds the
// multipart payload, clears saved progress and posts it. A failed delivery is
// reported as a notice next to a successful outcome so the user still gets
// the WhatsApp fallback link.
package submission
