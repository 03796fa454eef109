package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vetbolaget/triage/internal/store"
)

const sampleEML = "From: Djurkliniken <vet@klinik.se>\r\n" +
	"To: dr@vetbolaget.se\r\n" +
	"Subject: Komplettering DR-12345\r\n" +
	"Message-ID: <abc123@klinik.se>\r\n" +
	"Date: Mon, 02 Feb 2026 10:30:00 +0100\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Vi har mottagit en direktreglering.\r\n"

const multipartEML = "From: skador@folksam.se\r\n" +
	"To: dr@vetbolaget.se\r\n" +
	"Subject: Beslut\r\n" +
	"Message-ID: <mp@folksam.se>\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/mixed; boundary=\"bnd\"\r\n" +
	"\r\n" +
	"--bnd\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"\r\n" +
	"<p>Beslut bifogas.</p>\r\n" +
	"--bnd\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"Content-Disposition: attachment; filename=\"beslut.txt\"\r\n" +
	"\r\n" +
	"Skadenummer: FF1234567S\r\n" +
	"--bnd--\r\n"

func TestParse_SimpleMessage(t *testing.T) {
	e, err := Parse([]byte(sampleEML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if e.MessageID != "abc123@klinik.se" {
		t.Errorf("message id: got %q", e.MessageID)
	}
	if e.FromAddress != "vet@klinik.se" {
		t.Errorf("from: got %q", e.FromAddress)
	}
	if e.Subject != "Komplettering DR-12345" {
		t.Errorf("subject: got %q", e.Subject)
	}
	if !strings.Contains(e.TextPlain, "direktreglering") {
		t.Errorf("body: got %q", e.TextPlain)
	}
	if e.CreatedAt.Year() != 2026 {
		t.Errorf("date not taken from header: %v", e.CreatedAt)
	}
}

func TestParse_MultipartWithTextAttachment(t *testing.T) {
	e, err := Parse([]byte(multipartEML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(e.TextHTML, "Beslut bifogas") {
		t.Errorf("html part missing: %q", e.TextHTML)
	}
	if !strings.Contains(e.AttachmentText, "FF1234567S") {
		t.Errorf("text attachment not flattened: %q", e.AttachmentText)
	}
}

func TestParse_MissingMessageIDGetsGenerated(t *testing.T) {
	raw := strings.Replace(sampleEML, "Message-ID: <abc123@klinik.se>\r\n", "", 1)
	e, err := Parse([]byte(raw))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.MessageID == "" || !strings.HasSuffix(e.MessageID, "@triage.generated") {
		t.Errorf("expected generated message id, got %q", e.MessageID)
	}
}

func TestImportDir_SkipsDuplicates(t *testing.T) {
	st, err := store.New(store.Config{DBPath: ":memory:"})
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	defer st.Close()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.eml"), []byte(sampleEML), 0644); err != nil {
		t.Fatalf("writing sample: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "b.eml"), []byte(multipartEML), 0644); err != nil {
		t.Fatalf("writing sample: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore"), 0644); err != nil {
		t.Fatalf("writing sample: %v", err)
	}

	im := New(st)
	ctx := context.Background()

	res, err := im.ImportDir(ctx, dir)
	if err != nil {
		t.Fatalf("importing: %v", err)
	}
	if res.Imported != 2 || res.Skipped != 0 || res.Failed != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}

	res, err = im.ImportDir(ctx, dir)
	if err != nil {
		t.Fatalf("re-importing: %v", err)
	}
	if res.Imported != 0 || res.Skipped != 2 {
		t.Errorf("second run must skip duplicates: %+v", res)
	}
}
