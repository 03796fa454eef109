// Package extract derives structured claim fields from normalized email
// text and attachment text.
//
// Each semantic field carries an ordered regex list in the rule catalog.
// Patterns are tried in declared order and the first match with a
// non-empty first capture group wins; later patterns for that field are
// never consulted. Attachment text is a second pass that only fills
// fields the email pass left empty; it never overrides them.
package extract

import (
	"regexp"
	"strings"

	"github.com/vetbolaget/triage/internal/rules"
)

// Amount is a monetary capture in öre.
type Amount struct {
	Ore int64
	Raw string
}

// Kronor returns the whole-krona value, the unit settlement figures from
// the case database are compared in.
func (a *Amount) Kronor() int64 {
	if a == nil {
		return 0
	}
	return a.Ore / 100
}

// Fields is the extracted-field record for one email. A nil/empty field
// is valid, expected state: extraction never fails, it just leaves gaps.
type Fields struct {
	Reference         string
	InsuranceNumber   string
	DamageNumber      string
	AnimalName        string
	AnimalNameSveland string
	OwnerName         string
	TotalAmount       *Amount
	SettlementAmount  *Amount
	FolksamOther      *Amount

	// Matched records which pattern index won per field, for audit.
	Matched map[rules.FieldKind]int
}

// EffectiveAnimalName prefers the generic capture over the Sveland-phrased
// one.
func (f *Fields) EffectiveAnimalName() string {
	if f.AnimalName != "" {
		return f.AnimalName
	}
	return f.AnimalNameSveland
}

// Empty reports whether nothing at all was extracted.
func (f *Fields) Empty() bool {
	return f.Reference == "" && f.InsuranceNumber == "" && f.DamageNumber == "" &&
		f.AnimalName == "" && f.AnimalNameSveland == "" && f.OwnerName == "" &&
		f.TotalAmount == nil && f.SettlementAmount == nil && f.FolksamOther == nil
}

// Extractor applies the catalog's field tables.
type Extractor struct {
	catalog *rules.Catalog
}

// New creates an Extractor over a loaded catalog.
func New(catalog *rules.Catalog) *Extractor {
	return &Extractor{catalog: catalog}
}

// Extract runs the two-pass extraction: email text first, then the
// attachment subset for whatever stayed empty.
func (e *Extractor) Extract(normalized, attachmentText string) Fields {
	f := Fields{Matched: make(map[rules.FieldKind]int)}

	for i := range e.catalog.Fields {
		group := &e.catalog.Fields[i]

		value, idx := firstCapture(group.Patterns, normalized)
		if value == "" && strings.TrimSpace(attachmentText) != "" {
			if v, ai := firstCapture(group.AttachPatterns, attachmentText); v != "" {
				value, idx = v, len(group.Patterns)+ai
			}
		}
		if value == "" {
			continue
		}

		f.Matched[group.Kind] = idx
		e.assign(&f, group.Kind, value)
	}

	return f
}

// firstCapture returns the first non-empty capture group over the ordered
// pattern list, and the index of the winning pattern.
func firstCapture(patterns []*regexp.Regexp, text string) (string, int) {
	for i, re := range patterns {
		m := re.FindStringSubmatch(text)
		if len(m) >= 2 {
			if v := strings.TrimSpace(m[1]); v != "" {
				return v, i
			}
		}
	}
	return "", -1
}

func (e *Extractor) assign(f *Fields, kind rules.FieldKind, value string) {
	if rules.AmountFields[kind] {
		amt, ok := ParseAmount(value)
		if !ok {
			return
		}
		switch kind {
		case rules.FieldTotalAmount:
			f.TotalAmount = amt
		case rules.FieldSettlementAmount:
			f.SettlementAmount = amt
		case rules.FieldFolksamOther:
			f.FolksamOther = amt
		}
		return
	}

	switch kind {
	case rules.FieldReference:
		f.Reference = value
	case rules.FieldInsuranceNumber:
		f.InsuranceNumber = value
	case rules.FieldDamageNumber:
		f.DamageNumber = value
	case rules.FieldAnimalName:
		f.AnimalName = value
	case rules.FieldAnimalNameSveland:
		f.AnimalNameSveland = value
	case rules.FieldOwnerName:
		f.OwnerName = value
	}
}
