package rules

import (
	"regexp"
	"strings"
)

// defaultStopWords lists vendor boilerplate and legal footers that are
// deleted from the working string before any category or field pattern
// runs. Matches are removed wholesale.
func defaultStopWords() []string {
	return []string{
		`(?is)denna\s+information\s+är\s+konfidentiell.{0,400}$`,
		`(?is)detta\s+(mejl|mail|meddelande)\s+kan\s+innehålla\s+konfidentiell\s+information.{0,400}$`,
		`(?i)tänk\s+på\s+miljön\s+innan\s+du\s+skriver\s+ut\s+det(ta)?\s+(mejl|mail|e-?postmeddelande)`,
		`(?i)please\s+consider\s+the\s+environment\s+before\s+printing`,
		`(?is)vid\s+frågor\s+om\s+personuppgifter.{0,200}(gdpr|dataskyddsförordningen)[^\n]*`,
		`(?i)följ\s+oss\s+på\s+(facebook|instagram|linkedin)[^\n]*`,
	}
}

// defaultForwardHeaders lists forwarded/quoted-mail introducers. Removing
// the quoted block stops an email from re-triggering rules meant for the
// original message it carries.
func defaultForwardHeaders() []string {
	return []string{
		`(?is)från:[^\n]*\n+skickat:[^\n]*\n+till:[^\n]*\n+(kopia:[^\n]*\n+)?ämne:[^\n]*\n?`,
		`(?is)from:[^\n]*\n+sent:[^\n]*\n+to:[^\n]*\n+subject:[^\n]*\n?`,
		`(?i)den\s+[^\n]{4,60}\s+skrev\s*[^\n]{0,80}:`,
		`(?i)-{2,}\s*vidarebefordrat\s+meddelande\s*-{2,}`,
		`(?i)-{2,}\s*ursprungligt\s+meddelande\s*-{2,}`,
		`(?i)-{2,}\s*forwarded\s+message\s*-{2,}`,
	}
}

// defaultTrimTable is the ordered forwarding-artifact replacement table.
// Order matters: later rows depend on earlier rows having collapsed
// <br> runs first.
func defaultTrimTable() [][2]string {
	return [][2]string{
		{`(?i)(<br\s*/?>\s*){2,}`, "<br>"},
		{`(?i)<br\s*/?>`, "\n"},
		{`&nbsp;`, " "},
		{`(?m)^[>|]\s?`, ""},
		{`_{5,}`, ""},
		{`\*{3,}`, ""},
		{`[ \t]{2,}`, " "},
		{`\n{3,}`, "\n\n"},
	}
}

var svelandBreakRE = regexp.MustCompile(`(?i)&lt;br\s*/?&gt;`)

// defaultVendorTransforms returns per-vendor fixups applied before generic
// normalization. Each transform owns one vendor quirk so the generic
// pipeline stays free of vendor conditionals.
func defaultVendorTransforms() []VendorTransform {
	return []VendorTransform{
		{
			// Sveland's gateway HTML-escapes its own line breaks.
			Name:  "sveland",
			Match: regexp.MustCompile(`(?i)sveland`),
			Apply: func(s string) string {
				return svelandBreakRE.ReplaceAllString(s, "<br>")
			},
		},
		{
			// Wisentic portal mails wrap the payload in bracket markers.
			Name:  "wisentic",
			Match: regexp.MustCompile(`(?i)wisentic`),
			Apply: func(s string) string {
				s = strings.ReplaceAll(s, "[AUTOMAIL]", " ")
				return strings.ReplaceAll(s, "[/AUTOMAIL]", " ")
			},
		},
		{
			// Agria prefixes every outbound subject with its queue tag.
			Name:  "agria",
			Match: regexp.MustCompile(`(?i)agria`),
			Apply: func(s string) string {
				return strings.ReplaceAll(s, "[AGRIA-DR]", " ")
			},
		},
	}
}
