// Package normalize turns a raw email into the single working string the
// rule engine operates on.
//
// The subject and body collapse into one string tagged with literal
// [SUBJECT] and [BODY] markers so region-anchored patterns can address
// either part. Vendor fixups, stop-word removal, forwarded/quoted-block
// stripping and the trim table run in that fixed order. The output is
// immutable once produced; the original record is never touched.
package normalize

import (
	"regexp"
	"strings"

	"github.com/vetbolaget/triage/internal/rules"
)

// SubjectMarker and BodyMarker are the literal region tags in the
// normalized working string.
const (
	SubjectMarker = "[SUBJECT]"
	BodyMarker    = "[BODY]"
)

// Normalizer applies the catalog's normalization tables.
type Normalizer struct {
	catalog *rules.Catalog
}

// New creates a Normalizer over a loaded catalog.
func New(catalog *rules.Catalog) *Normalizer {
	return &Normalizer{catalog: catalog}
}

var (
	htmlTagRE    = regexp.MustCompile(`(?s)<(style|script)[^>]*>.*?</(style|script)>`)
	anyTagRE     = regexp.MustCompile(`(?i)<(?:/?)(?:br|p|div|tr|li|h[1-6]|table)[^>]*>`)
	stripTagRE   = regexp.MustCompile(`<[^>]+>`)
	entityAmpRE  = regexp.MustCompile(`&amp;`)
	lineSpacesRE = regexp.MustCompile(`(?m)[ \t]+$`)
)

// Normalize produces the working string for one email. A missing body is
// not an error: if both subject and body are empty the result is the
// empty string, which downstream stages treat as "no match anywhere".
func (n *Normalizer) Normalize(from, subject, textPlain, textHTML string) string {
	body := textPlain
	if strings.TrimSpace(body) == "" {
		body = htmlToText(textHTML)
	}

	subject = strings.TrimSpace(subject)
	body = strings.TrimSpace(body)
	if subject == "" && body == "" {
		return ""
	}

	s := SubjectMarker + " " + subject + " " + BodyMarker + " " + body

	// Vendor fixups first, before any generic table can misread the quirk.
	for _, v := range n.catalog.Vendors {
		if v.Match.MatchString(from) || v.Match.MatchString(s) {
			s = v.Apply(s)
		}
	}

	for _, re := range n.catalog.StopWords {
		s = re.ReplaceAllString(s, " ")
	}
	for _, re := range n.catalog.ForwardHeaders {
		s = re.ReplaceAllString(s, " ")
	}
	for _, rep := range n.catalog.TrimTable {
		s = rep.Find.ReplaceAllString(s, rep.Replace)
	}

	s = lineSpacesRE.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// TrimQuoted applies only the trim table to a quoted body, used when the
// original message is embedded into a forward template.
func (n *Normalizer) TrimQuoted(body string) string {
	for _, rep := range n.catalog.TrimTable {
		body = rep.Find.ReplaceAllString(body, rep.Replace)
	}
	return strings.TrimSpace(body)
}

// htmlToText is the fallback when an email has no text/plain part. It is
// a best-effort tag strip, not an HTML renderer.
func htmlToText(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}
	s := htmlTagRE.ReplaceAllString(html, " ")
	s = anyTagRE.ReplaceAllString(s, "\n")
	s = stripTagRE.ReplaceAllString(s, " ")
	s = entityAmpRE.ReplaceAllString(s, "&")
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	s = strings.ReplaceAll(s, "&quot;", `"`)
	s = strings.ReplaceAll(s, "&#39;", "'")
	return strings.TrimSpace(s)
}
