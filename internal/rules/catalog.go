package rules

import (
	"crypto/sha256"
	"fmt"
	"regexp"
	"strings"
)

// PatternRow is one row of a persisted rule table: a group label and a
// regex pattern. Row order within a table is the evaluation order and is
// part of the catalog's observable behavior.
type PatternRow struct {
	Group   string
	Pattern string
}

// CategoryGroup is one compiled category regex group.
type CategoryGroup struct {
	Category Category
	Patterns []*regexp.Regexp
}

// FieldGroup is one compiled extraction field: the ordered body patterns
// and the attachment-pass subset.
type FieldGroup struct {
	Kind           FieldKind
	Patterns       []*regexp.Regexp
	AttachPatterns []*regexp.Regexp
}

// Replacement is one ordered find-and-replace step of the trim table.
type Replacement struct {
	Find    *regexp.Regexp
	Replace string
}

// VendorTransform maps a vendor to a normalization applied before the
// generic pipeline, keeping vendor conditionals out of the generic code.
type VendorTransform struct {
	Name  string
	Match *regexp.Regexp // matched against sender address and raw text
	Apply func(string) string
}

// Template is one per-category forward/reply template.
type Template struct {
	Subject string
	Body    string
}

// Insurer is one row of the static insurer registry.
type Insurer struct {
	Name           string
	Domain         string
	ForwardAddress string
}

// Catalog is the loaded, immutable rule catalog.
type Catalog struct {
	Categories     []CategoryGroup
	Fields         []FieldGroup
	CompTypes      []CompTypeRule
	StopWords      []*regexp.Regexp
	ForwardHeaders []*regexp.Regexp
	TrimTable      []Replacement
	Vendors        []VendorTransform
	Templates      map[Category]Template
	Insurers       []Insurer

	hash string
}

// CompTypeRule resolves the clinic-complement sub-type.
type CompTypeRule struct {
	Type    CompType
	Pattern *regexp.Regexp
}

// Options overrides individual default tables, typically with rows loaded
// from CSV files. A nil slice keeps the built-in default table.
type Options struct {
	CategoryRows    []PatternRow
	FieldRows       []PatternRow
	AttachFieldRows []PatternRow
}

// NewCatalog builds and validates the default catalog.
func NewCatalog() (*Catalog, error) {
	return NewCatalogWithOptions(Options{})
}

// NewCatalogWithOptions builds a catalog with table overrides. Any invalid
// row (unknown label, non-compiling pattern) aborts construction; catalog
// errors are startup errors, never per-record errors.
func NewCatalogWithOptions(opts Options) (*Catalog, error) {
	categoryRows := opts.CategoryRows
	if categoryRows == nil {
		categoryRows = DefaultCategoryRules()
	}
	fieldRows := opts.FieldRows
	if fieldRows == nil {
		fieldRows = DefaultFieldRules()
	}
	attachRows := opts.AttachFieldRows
	if attachRows == nil {
		attachRows = DefaultAttachFieldRules()
	}

	c := &Catalog{
		Templates: defaultTemplates(),
		Insurers:  defaultInsurers(),
		Vendors:   defaultVendorTransforms(),
	}

	var err error
	if c.Categories, err = compileCategoryGroups(categoryRows); err != nil {
		return nil, err
	}
	if c.Fields, err = compileFieldGroups(fieldRows, attachRows); err != nil {
		return nil, err
	}
	if c.CompTypes, err = compileCompTypeRules(defaultCompTypeRules()); err != nil {
		return nil, err
	}
	if c.StopWords, err = compileList("stop-word", defaultStopWords()); err != nil {
		return nil, err
	}
	if c.ForwardHeaders, err = compileList("forward-header", defaultForwardHeaders()); err != nil {
		return nil, err
	}
	if c.TrimTable, err = compileTrimTable(defaultTrimTable()); err != nil {
		return nil, err
	}

	if err := validateTemplates(c.Templates); err != nil {
		return nil, err
	}

	c.hash = hashTables(categoryRows, fieldRows, attachRows)
	return c, nil
}

// Hash returns a stable content hash over the pattern tables. Adding or
// reordering rows changes behavior, so the hash is the catalog version.
func (c *Catalog) Hash() string {
	return c.hash
}

// CategoryFor returns the group for a category label, or nil.
func (c *Catalog) CategoryFor(cat Category) *CategoryGroup {
	for i := range c.Categories {
		if c.Categories[i].Category == cat {
			return &c.Categories[i]
		}
	}
	return nil
}

// FieldFor returns the field group for a kind, or nil.
func (c *Catalog) FieldFor(kind FieldKind) *FieldGroup {
	for i := range c.Fields {
		if c.Fields[i].Kind == kind {
			return &c.Fields[i]
		}
	}
	return nil
}

// InsurerByName finds an insurer registry row by name, case-insensitive.
func (c *Catalog) InsurerByName(name string) (Insurer, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, ins := range c.Insurers {
		if strings.ToLower(ins.Name) == name {
			return ins, true
		}
	}
	return Insurer{}, false
}

// InsurerByAddress finds an insurer whose domain matches an email address.
func (c *Catalog) InsurerByAddress(addr string) (Insurer, bool) {
	addr = strings.ToLower(strings.TrimSpace(addr))
	at := strings.LastIndex(addr, "@")
	if at < 0 {
		return Insurer{}, false
	}
	domain := strings.Trim(addr[at+1:], "> ")
	for _, ins := range c.Insurers {
		if domain == ins.Domain || strings.HasSuffix(domain, "."+ins.Domain) {
			return ins, true
		}
	}
	return Insurer{}, false
}

func compileCategoryGroups(rows []PatternRow) ([]CategoryGroup, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("category table is empty")
	}

	var groups []CategoryGroup
	index := map[Category]int{}

	for i, row := range rows {
		cat := Category(row.Group)
		if !cat.Valid() {
			return nil, fmt.Errorf("category table row %d: unknown category %q", i, row.Group)
		}
		re, err := regexp.Compile(row.Pattern)
		if err != nil {
			return nil, fmt.Errorf("category %s row %d: %w", cat, i, err)
		}

		idx, ok := index[cat]
		if !ok {
			index[cat] = len(groups)
			groups = append(groups, CategoryGroup{Category: cat})
			idx = index[cat]
		} else if idx != len(groups)-1 {
			return nil, fmt.Errorf("category table: group %s is not contiguous (row %d)", cat, i)
		}
		groups[idx].Patterns = append(groups[idx].Patterns, re)
	}

	// Declared group order must follow CategoryOrder; row order is behavior.
	pos := -1
	for _, g := range groups {
		p := categoryPosition(g.Category)
		if p <= pos {
			return nil, fmt.Errorf("category table: group %s out of catalog order", g.Category)
		}
		pos = p
	}

	return groups, nil
}

func categoryPosition(cat Category) int {
	for i, c := range CategoryOrder {
		if c == cat {
			return i
		}
	}
	return -1
}

func compileFieldGroups(bodyRows, attachRows []PatternRow) ([]FieldGroup, error) {
	var groups []FieldGroup
	index := map[FieldKind]int{}

	add := func(rows []PatternRow, attach bool) error {
		for i, row := range rows {
			kind := FieldKind(row.Group)
			if !validFieldKind(kind) {
				return fmt.Errorf("field table row %d: unknown field %q", i, row.Group)
			}
			re, err := regexp.Compile(row.Pattern)
			if err != nil {
				return fmt.Errorf("field %s row %d: %w", kind, i, err)
			}
			if re.NumSubexp() < 1 {
				return fmt.Errorf("field %s row %d: pattern has no capture group", kind, i)
			}
			idx, ok := index[kind]
			if !ok {
				index[kind] = len(groups)
				groups = append(groups, FieldGroup{Kind: kind})
				idx = index[kind]
			}
			if attach {
				groups[idx].AttachPatterns = append(groups[idx].AttachPatterns, re)
			} else {
				groups[idx].Patterns = append(groups[idx].Patterns, re)
			}
		}
		return nil
	}

	if err := add(bodyRows, false); err != nil {
		return nil, err
	}
	if err := add(attachRows, true); err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return nil, fmt.Errorf("field table is empty")
	}
	return groups, nil
}

func validFieldKind(k FieldKind) bool {
	switch k {
	case FieldReference, FieldInsuranceNumber, FieldDamageNumber,
		FieldAnimalName, FieldAnimalNameSveland, FieldOwnerName,
		FieldTotalAmount, FieldSettlementAmount, FieldFolksamOther:
		return true
	}
	return false
}

func compileCompTypeRules(rows []PatternRow) ([]CompTypeRule, error) {
	out := make([]CompTypeRule, 0, len(rows))
	for i, row := range rows {
		re, err := regexp.Compile(row.Pattern)
		if err != nil {
			return nil, fmt.Errorf("comp-type row %d: %w", i, err)
		}
		out = append(out, CompTypeRule{Type: CompType(row.Group), Pattern: re})
	}
	return out, nil
}

func compileList(table string, patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for i, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", table, i, err)
		}
		out = append(out, re)
	}
	return out, nil
}

func compileTrimTable(rows [][2]string) ([]Replacement, error) {
	out := make([]Replacement, 0, len(rows))
	for i, row := range rows {
		re, err := regexp.Compile(row[0])
		if err != nil {
			return nil, fmt.Errorf("trim table row %d: %w", i, err)
		}
		out = append(out, Replacement{Find: re, Replace: row[1]})
	}
	return out, nil
}

func validateTemplates(templates map[Category]Template) error {
	for cat, tpl := range templates {
		if !cat.Valid() {
			return fmt.Errorf("template for unknown category %q", cat)
		}
		if strings.TrimSpace(tpl.Body) == "" {
			return fmt.Errorf("template for %s has empty body", cat)
		}
	}
	return nil
}

func hashTables(tables ...[]PatternRow) string {
	h := sha256.New()
	for _, rows := range tables {
		for _, row := range rows {
			fmt.Fprintf(h, "%s\x1f%s\x1e", row.Group, row.Pattern)
		}
	}
	return fmt.Sprintf("%x", h.Sum(nil))[:16]
}
