// Package ingest imports raw RFC 5322 email files into the store.
// Parsing uses go-message; text attachments are flattened into the
// attachment_text column so field extraction can fall back to them.
package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/google/uuid"

	"github.com/vetbolaget/triage/internal/store"
)

// Importer reads .eml files into the email table.
type Importer struct {
	store store.Store
}

// New creates an Importer.
func New(st store.Store) *Importer {
	return &Importer{store: st}
}

// Result summarizes one import run.
type Result struct {
	Imported int
	Skipped  int // already present (same message id)
	Failed   int
}

// ImportDir imports every .eml file under dir. Files that fail to parse
// are counted and skipped; the run continues.
func (im *Importer) ImportDir(ctx context.Context, dir string) (Result, error) {
	var res Result
	entries, err := os.ReadDir(dir)
	if err != nil {
		return res, fmt.Errorf("reading directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".eml") {
			continue
		}
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		switch err := im.ImportFile(ctx, filepath.Join(dir, entry.Name())); {
		case err == nil:
			res.Imported++
		case err == errDuplicate:
			res.Skipped++
		default:
			res.Failed++
		}
	}
	return res, nil
}

var errDuplicate = fmt.Errorf("duplicate message id")

// ImportFile parses and stores one .eml file.
func (im *Importer) ImportFile(ctx context.Context, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	email, err := Parse(raw)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	existing, err := im.store.FindEmailByMessageID(ctx, email.MessageID)
	if err != nil {
		return fmt.Errorf("checking for duplicate: %w", err)
	}
	if existing != nil {
		return errDuplicate
	}

	if _, err := im.store.AddEmail(ctx, email); err != nil {
		return fmt.Errorf("storing %s: %w", path, err)
	}
	return nil
}

// Parse turns a raw RFC 5322 message into an Email row. A missing
// Message-ID header gets a generated one so deduplication still works
// within a run.
func Parse(raw []byte) (*store.Email, error) {
	reader, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("creating mail reader: %w", err)
	}

	email := &store.Email{CreatedAt: time.Now().UTC()}

	if id, err := reader.Header.MessageID(); err == nil && id != "" {
		email.MessageID = id
	} else {
		email.MessageID = uuid.NewString() + "@triage.generated"
	}
	if subject, err := reader.Header.Subject(); err == nil {
		email.Subject = subject
	}
	if date, err := reader.Header.Date(); err == nil && !date.IsZero() {
		email.CreatedAt = date.UTC()
	}
	if list, err := reader.Header.AddressList("From"); err == nil && len(list) > 0 {
		email.FromAddress = normalizeAddress(list[0].Address)
	}
	if list, err := reader.Header.AddressList("To"); err == nil && len(list) > 0 {
		email.ToAddress = normalizeAddress(list[0].Address)
	}

	var attachTexts []string
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading part: %w", err)
		}

		switch header := part.Header.(type) {
		case *mail.InlineHeader:
			mediaType, _, _ := header.ContentType()
			body, err := io.ReadAll(part.Body)
			if err != nil {
				continue
			}
			switch {
			case strings.HasPrefix(mediaType, "text/plain") || mediaType == "":
				email.TextPlain = appendBody(email.TextPlain, string(body))
			case strings.HasPrefix(mediaType, "text/html"):
				email.TextHTML = appendBody(email.TextHTML, string(body))
			}
		case *mail.AttachmentHeader:
			mediaType, _, _ := header.ContentType()
			if !strings.HasPrefix(mediaType, "text/") {
				continue
			}
			body, err := io.ReadAll(part.Body)
			if err != nil {
				continue
			}
			attachTexts = append(attachTexts, string(body))
		}
	}
	email.AttachmentText = strings.Join(attachTexts, "\n")

	if email.FromAddress == "" {
		return nil, fmt.Errorf("message %s has no From address", email.MessageID)
	}
	return email, nil
}

func appendBody(existing, next string) string {
	if existing == "" {
		return next
	}
	return existing + "\n" + next
}

func normalizeAddress(addr string) string {
	return strings.TrimSpace(strings.ToLower(addr))
}
