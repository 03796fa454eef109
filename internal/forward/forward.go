// Package forward builds outgoing forward messages from the per-category
// template catalog. Template expansion is strict: any placeholder left
// unsubstituted in the rendered output is an error, so a missing input
// surfaces before a half-filled message reaches a recipient.
package forward

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/vetbolaget/triage/internal/rules"
)

// Case carries the errand-side values a forward draws on.
type Case struct {
	Reference   string
	InsurerName string
	ClinicName  string
	ClinicEmail string
	OwnerName   string
	AdminName   string
}

// Message is a rendered forward, ready for a mail transport.
type Message struct {
	MessageID string
	To        string
	Subject   string
	BodyHTML  string
	Category  rules.Category
}

// Builder renders forwards against a loaded catalog.
type Builder struct {
	catalog *rules.Catalog
}

// New creates a Builder.
func New(catalog *rules.Catalog) *Builder {
	return &Builder{catalog: catalog}
}

var leftoverRE = regexp.MustCompile(`\{[A-Z]+\}`)

// Build renders the forward for a categorized email. direction is the
// role of the ORIGINAL sender: a clinic-sent email forwards to the
// errand's insurer, an insurer-sent email forwards to the clinic.
// quoted is the trimmed original message body, info an optional extra
// paragraph.
func (b *Builder) Build(category rules.Category, direction rules.SenderRole, c Case, quoted, info string) (Message, error) {
	tpl, ok := b.catalog.Templates[category]
	if !ok {
		return Message{}, fmt.Errorf("no forward template for category %s", category)
	}

	to, who, err := b.route(direction, c)
	if err != nil {
		return Message{}, err
	}
	if c.Reference == "" {
		return Message{}, fmt.Errorf("forward for category %s: missing errand reference", category)
	}

	rep := strings.NewReplacer(
		rules.PlaceholderReference, c.Reference,
		rules.PlaceholderWho, who,
		rules.PlaceholderEmail, quoted,
		rules.PlaceholderAdmin, c.AdminName,
		rules.PlaceholderInfo, infoParagraph(info),
	)
	subject := rep.Replace(tpl.Subject)
	body := rep.Replace(tpl.Body)

	if tok := leftoverRE.FindString(subject + body); tok != "" {
		return Message{}, fmt.Errorf("forward for category %s: unsubstituted placeholder %s", category, tok)
	}

	return Message{
		MessageID: uuid.NewString(),
		To:        to,
		Subject:   subject,
		BodyHTML:  body,
		Category:  category,
	}, nil
}

// route resolves the recipient address and salutation name from the
// original sender's role.
func (b *Builder) route(direction rules.SenderRole, c Case) (to, who string, err error) {
	switch direction {
	case rules.RoleClinic, rules.RoleAnimalOwner:
		ins, ok := b.catalog.InsurerByName(c.InsurerName)
		if !ok {
			return "", "", fmt.Errorf("unknown insurer %q", c.InsurerName)
		}
		return ins.ForwardAddress, ins.Name, nil
	case rules.RoleInsuranceCompany:
		if c.ClinicEmail == "" {
			return "", "", fmt.Errorf("errand %s has no clinic address", c.Reference)
		}
		return c.ClinicEmail, c.ClinicName, nil
	default:
		return "", "", fmt.Errorf("cannot route forward for sender role %s", direction)
	}
}

func infoParagraph(info string) string {
	if strings.TrimSpace(info) == "" {
		return ""
	}
	return "<p>" + info + "</p>"
}
