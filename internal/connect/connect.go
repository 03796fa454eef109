// Package connect links an extracted email to an existing errand.
//
// Candidates are matched in a strict precedence cascade: an exact
// reference hit wins outright, then the (insurance number, damage
// number) pair, then a fuzzy animal-plus-owner name match. Connections
// are monotonic: an email already carrying an errand id keeps it unless
// the caller explicitly resets it first.
package connect

import (
	"strings"
	"time"
	"unicode"

	"github.com/vetbolaget/triage/internal/extract"
)

// MatchRule names how a connection was (or was not) made.
type MatchRule string

const (
	MatchReference       MatchRule = "reference"
	MatchInsuranceDamage MatchRule = "insurance_damage"
	MatchNameProximity   MatchRule = "name_proximity"
	MatchExisting        MatchRule = "existing"
	MatchNone            MatchRule = "none"
)

// Errand is the candidate view the connector needs. Callers load these
// from storage scoped to a clinic and a time window.
type Errand struct {
	ID              int64
	Reference       string
	InsuranceNumber string
	DamageNumber    string
	AnimalName      string
	OwnerName       string
	CreatedAt       time.Time
}

// EmailMeta carries the email-side inputs that are not extracted fields.
type EmailMeta struct {
	ID        int64
	CreatedAt time.Time
	ErrandID  int64 // non-zero means already connected
}

// Decision is the connector's verdict for one email.
type Decision struct {
	ErrandID  int64
	MatchedOn MatchRule
	Connected bool
}

// Connector runs the matching cascade.
type Connector struct{}

// New creates a Connector.
func New() *Connector { return &Connector{} }

// Connect picks the errand for an email, or reports none. Candidates
// may arrive in any order; ties inside a rule are broken by the errand
// createdAt nearest the email's, then by the lower errand id.
func (c *Connector) Connect(meta EmailMeta, fields extract.Fields, candidates []Errand) Decision {
	if meta.ErrandID != 0 {
		return Decision{ErrandID: meta.ErrandID, MatchedOn: MatchExisting, Connected: true}
	}
	if len(candidates) == 0 {
		return Decision{MatchedOn: MatchNone}
	}

	if fields.Reference != "" {
		if e, ok := c.pick(meta, candidates, func(e Errand) bool {
			return e.Reference != "" && equalToken(e.Reference, fields.Reference)
		}); ok {
			return Decision{ErrandID: e.ID, MatchedOn: MatchReference, Connected: true}
		}
	}

	if fields.InsuranceNumber != "" && fields.DamageNumber != "" {
		if e, ok := c.pick(meta, candidates, func(e Errand) bool {
			return e.InsuranceNumber != "" && e.DamageNumber != "" &&
				equalToken(e.InsuranceNumber, fields.InsuranceNumber) &&
				equalToken(e.DamageNumber, fields.DamageNumber)
		}); ok {
			return Decision{ErrandID: e.ID, MatchedOn: MatchInsuranceDamage, Connected: true}
		}
	}

	animal := fields.EffectiveAnimalName()
	if animal != "" && fields.OwnerName != "" {
		if e, ok := c.pick(meta, candidates, func(e Errand) bool {
			return e.AnimalName != "" && e.OwnerName != "" &&
				equalName(e.AnimalName, animal) &&
				equalName(e.OwnerName, fields.OwnerName)
		}); ok {
			return Decision{ErrandID: e.ID, MatchedOn: MatchNameProximity, Connected: true}
		}
	}

	return Decision{MatchedOn: MatchNone}
}

// pick returns the best candidate passing the predicate, using the
// createdAt-proximity then lower-id tie-break.
func (c *Connector) pick(meta EmailMeta, candidates []Errand, match func(Errand) bool) (Errand, bool) {
	var best Errand
	found := false
	for _, e := range candidates {
		if !match(e) {
			continue
		}
		if !found || closer(meta.CreatedAt, e, best) {
			best = e
			found = true
		}
	}
	return best, found
}

func closer(at time.Time, a, b Errand) bool {
	da, db := absDuration(at.Sub(a.CreatedAt)), absDuration(at.Sub(b.CreatedAt))
	if da != db {
		return da < db
	}
	return a.ID < b.ID
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

// equalToken compares identifiers ignoring case and surrounding space.
func equalToken(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// equalName compares person and animal names case-insensitively while
// preserving diacritics: "Måns" matches "måns" but never "Mans".
func equalName(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == "" || b == "" {
		return false
	}
	return strings.EqualFold(collapseSpace(a), collapseSpace(b))
}

func collapseSpace(s string) string {
	var sb strings.Builder
	prevSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !prevSpace {
				sb.WriteRune(' ')
			}
			prevSpace = true
			continue
		}
		prevSpace = false
		sb.WriteRune(r)
	}
	return sb.String()
}
