package rules

// DefaultFieldRules returns the built-in extraction table for email text:
// one row per pattern, grouped by field, patterns in evaluation order.
// Vendor-specific formats sit before generic catch-alls so a structured
// vendor capture is never pre-empted by a loose one.
//
// Name captures keep case-sensitive classes (a name starts uppercase);
// their keyword prefixes fold case with inline (?i:...) groups.
func DefaultFieldRules() []PatternRow {
	return []PatternRow{
		// Our own errand reference, quoted back by insurers and clinics.
		{Group: "reference", Pattern: `\b(DR-?\d{4,8})\b`},
		{Group: "reference", Pattern: `(?i)referens(?:nummer)?\s*[:.]?\s*([A-ZÄÅÖ]{1,3}-?\d{4,8})`},
		{Group: "reference", Pattern: `(?i)ärendenummer\s*[:.]?\s*([A-Z0-9ÅÄÖ-]{4,12})`},
		{Group: "reference", Pattern: `(?i)ert?\s+ärende\s*[:.]?\s*([A-Z0-9ÅÄÖ-]{4,12})`},

		{Group: "insuranceNumber", Pattern: `(?i)försäkringsnummer\s*[:.]?\s*(\d[\d -]{4,13}\d)`},
		{Group: "insuranceNumber", Pattern: `(?i)försäkrings?-?nr\s*[:.]?\s*(\d[\d -]{4,13}\d)`},
		{Group: "insuranceNumber", Pattern: `(?i)avtalsnummer\s*[:.]?\s*(\d{6,12})`},

		// Folksam damage numbers are two letters, seven digits, one letter.
		{Group: "damageNumber", Pattern: `(?i)skadenummer\s*[:.]?\s*([A-Z]{2}\d{7}[A-Z])\b`},
		// Agria uses a year prefix.
		{Group: "damageNumber", Pattern: `(?i)skadenummer\s*[:.]?\s*(\d{2}-\d{5,7})\b`},
		{Group: "damageNumber", Pattern: `(?i)skade(?:nummer|nr)\s*[:.]?\s*([A-Z0-9ÅÄÖ-]{4,12})`},
		{Group: "damageNumber", Pattern: `(?i)skadeärende\s*[:.]?\s*([A-Z0-9ÅÄÖ-]{4,12})`},

		{Group: "animalName", Pattern: `(?i:djurets\s+namn)\s*[:.]?\s*([A-ZÅÄÖ][a-zåäöé-]+)`},
		{Group: "animalName", Pattern: `(?i:gällande)\s+(?:(?i:hunden|katten|hästen)\s+)?([A-ZÅÄÖ][a-zåäöé-]+)`},
		{Group: "animalName", Pattern: `(?i:patient)\s*[:.]?\s*([A-ZÅÄÖ][a-zåäöé-]+)`},

		// Sveland settlement letters phrase the animal differently.
		{Group: "animalName_Sveland", Pattern: `(?i:avseende\s+djuret)\s+([A-ZÅÄÖ][a-zåäöé-]+)`},
		{Group: "animalName_Sveland", Pattern: `(?i:ert\s+djur)\s+([A-ZÅÄÖ][a-zåäöé-]+)`},

		{Group: "ownerName", Pattern: `(?i:djurägare(?:ns\s+namn)?)\s*[:.]?\s*([A-ZÅÄÖ][\p{L}]+(?:\s+[A-ZÅÄÖ][\p{L}]+){0,2})`},
		{Group: "ownerName", Pattern: `(?i:försäkringstagare)\s*[:.]?\s*([A-ZÅÄÖ][\p{L}]+(?:\s+[A-ZÅÄÖ][\p{L}]+){0,2})`},
		{Group: "ownerName", Pattern: `(?i:ägare)\s*[:.]?\s*([A-ZÅÄÖ][\p{L}]+(?:\s+[A-ZÅÄÖ][\p{L}]+){0,2})`},

		{Group: "totalAmount", Pattern: `(?i)totalt?\s*belopp\s*[:.]?\s*(\d(?:[\d .,\x{00a0}]*\d)?)`},
		{Group: "totalAmount", Pattern: `(?i)fakturabelopp\s*[:.]?\s*(\d(?:[\d .,\x{00a0}]*\d)?)`},
		{Group: "totalAmount", Pattern: `(?i)summa\s+att\s+betala\s*[:.]?\s*(\d(?:[\d .,\x{00a0}]*\d)?)`},

		{Group: "settlementAmount", Pattern: `(?i)belopp\s+att\s+utbetala\s*[:.]?\s*(\d(?:[\d .,\x{00a0}]*\d)?)`},
		{Group: "settlementAmount", Pattern: `(?i)ersättningsbelopp\s*[:.]?\s*(\d(?:[\d .,\x{00a0}]*\d)?)`},
		{Group: "settlementAmount", Pattern: `(?i)ersättning\s+lämnas\s+med\s*(\d(?:[\d .,\x{00a0}]*\d)?)`},
		{Group: "settlementAmount", Pattern: `(?i)vi\s+(?:har\s+betalat|betalar)\s+ut\s*[:.]?\s*(\d(?:[\d .,\x{00a0}]*\d)?)`},

		{Group: "folksamOtherAmount", Pattern: `(?i)varav\s+annan\s+ersättning\s*[:.]?\s*(\d(?:[\d .,\x{00a0}]*\d)?)`},
		{Group: "folksamOtherAmount", Pattern: `(?i)övrig\s+ersättning\s*[:.]?\s*(\d(?:[\d .,\x{00a0}]*\d)?)`},
	}
}

// DefaultAttachFieldRules returns the attachment-pass subset. Attachment
// text (settlement letters, claim PDFs) is a fallback source: these run
// only for fields the email pass left empty.
func DefaultAttachFieldRules() []PatternRow {
	return []PatternRow{
		{Group: "reference", Pattern: `\b(DR-?\d{4,8})\b`},

		{Group: "insuranceNumber", Pattern: `(?i)försäkringsnummer\s*[:.]?\s*(\d[\d -]{4,13}\d)`},

		{Group: "damageNumber", Pattern: `(?i)skadenummer\s*[:.]?\s*([A-Z]{2}\d{7}[A-Z])\b`},
		{Group: "damageNumber", Pattern: `(?i)skade(?:nummer|nr)\s*[:.]?\s*([A-Z0-9ÅÄÖ-]{4,12})`},

		{Group: "animalName", Pattern: `(?i:djurets\s+namn)\s*[:.]?\s*([A-ZÅÄÖ][a-zåäöé-]+)`},

		{Group: "ownerName", Pattern: `(?i:djurägare(?:ns\s+namn)?)\s*[:.]?\s*([A-ZÅÄÖ][\p{L}]+(?:\s+[A-ZÅÄÖ][\p{L}]+){0,2})`},

		{Group: "totalAmount", Pattern: `(?i)totalt?\s*belopp\s*[:.]?\s*(\d(?:[\d .,\x{00a0}]*\d)?)`},

		{Group: "settlementAmount", Pattern: `(?i)belopp\s+att\s+utbetala\s*[:.]?\s*(\d(?:[\d .,\x{00a0}]*\d)?)`},
		{Group: "settlementAmount", Pattern: `(?i)ersättningsbelopp\s*[:.]?\s*(\d(?:[\d .,\x{00a0}]*\d)?)`},

		{Group: "folksamOtherAmount", Pattern: `(?i)varav\s+annan\s+ersättning\s*[:.]?\s*(\d(?:[\d .,\x{00a0}]*\d)?)`},
	}
}
