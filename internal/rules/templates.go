package rules

// Template placeholders. Every placeholder present in a template body must
// be substituted when a forward is generated; a leftover token is a
// defect, not a silent blank.
const (
	PlaceholderReference = "{REFERENCE}"
	PlaceholderWho       = "{WHO}"
	PlaceholderEmail     = "{EMAIL}"
	PlaceholderAdmin     = "{ADMIN}"
	PlaceholderInfo      = "{INFO}"
)

// defaultTemplates returns the per-category forward/reply template catalog.
// Bodies are HTML fragments; the quoted original message lands in {EMAIL}
// after the trim table has been applied to it.
func defaultTemplates() map[Category]Template {
	return map[Category]Template{
		CategoryComplement: {
			Subject: "Komplettering ärende {REFERENCE}",
			Body: "<p>Hej {WHO},</p>" +
				"<p>Vi har tagit emot en begäran om komplettering i ärende {REFERENCE}. " +
				"Se meddelandet nedan och återkom med efterfrågat underlag.</p>" +
				"{INFO}" +
				"<blockquote>{EMAIL}</blockquote>" +
				"<p>Vänliga hälsningar,<br>{ADMIN}</p>",
		},
		CategoryComplementReply: {
			Subject: "Svar på komplettering, ärende {REFERENCE}",
			Body: "<p>Hej {WHO},</p>" +
				"<p>Kliniken har svarat på kompletteringen i ärende {REFERENCE}. " +
				"Underlaget finns i meddelandet nedan.</p>" +
				"{INFO}" +
				"<blockquote>{EMAIL}</blockquote>" +
				"<p>Vänliga hälsningar,<br>{ADMIN}</p>",
		},
		CategorySettlementDenied: {
			Subject: "Beslut i ärende {REFERENCE}",
			Body: "<p>Hej {WHO},</p>" +
				"<p>Försäkringsbolaget har lämnat avslag i ärende {REFERENCE}. " +
				"Beslutet i sin helhet finns nedan.</p>" +
				"{INFO}" +
				"<blockquote>{EMAIL}</blockquote>" +
				"<p>Vänliga hälsningar,<br>{ADMIN}</p>",
		},
		CategorySettlementApproved: {
			Subject: "Ersättningsbesked, ärende {REFERENCE}",
			Body: "<p>Hej {WHO},</p>" +
				"<p>Ersättning har beviljats i ärende {REFERENCE}. " +
				"Ersättningsbeskedet finns nedan.</p>" +
				"{INFO}" +
				"<blockquote>{EMAIL}</blockquote>" +
				"<p>Vänliga hälsningar,<br>{ADMIN}</p>",
		},
		CategorySettlementRequest: {
			Subject: "Ansökan om direktreglering, ärende {REFERENCE}",
			Body: "<p>Hej {WHO},</p>" +
				"<p>En ansökan om direktreglering har inkommit, ärende {REFERENCE}.</p>" +
				"{INFO}" +
				"<blockquote>{EMAIL}</blockquote>" +
				"<p>Vänliga hälsningar,<br>{ADMIN}</p>",
		},
		CategoryMessage: {
			Subject: "Vidarebefordrat meddelande, ärende {REFERENCE}",
			Body: "<p>Hej {WHO},</p>" +
				"<p>Vidarebefordrar nedanstående meddelande gällande ärende {REFERENCE}.</p>" +
				"{INFO}" +
				"<blockquote>{EMAIL}</blockquote>" +
				"<p>Vänliga hälsningar,<br>{ADMIN}</p>",
		},
		CategoryQuestion: {
			Subject: "Fråga gällande ärende {REFERENCE}",
			Body: "<p>Hej {WHO},</p>" +
				"<p>Nedanstående fråga har inkommit gällande ärende {REFERENCE}.</p>" +
				"{INFO}" +
				"<blockquote>{EMAIL}</blockquote>" +
				"<p>Vänliga hälsningar,<br>{ADMIN}</p>",
		},
		CategoryInformation: {
			Subject: "Information, ärende {REFERENCE}",
			Body: "<p>Hej {WHO},</p>" +
				"<p>Vidarebefordrar nedanstående information gällande ärende {REFERENCE}.</p>" +
				"{INFO}" +
				"<blockquote>{EMAIL}</blockquote>" +
				"<p>Vänliga hälsningar,<br>{ADMIN}</p>",
		},
	}
}

// defaultInsurers is the static insurer registry: sender-domain detection
// and the forward address per insurer.
func defaultInsurers() []Insurer {
	return []Insurer{
		{Name: "Agria", Domain: "agria.se", ForwardAddress: "skadedjur@agria.se"},
		{Name: "Folksam", Domain: "folksam.se", ForwardAddress: "djurskador@folksam.se"},
		{Name: "Sveland", Domain: "sveland.se", ForwardAddress: "skador@sveland.se"},
		{Name: "If", Domain: "if.se", ForwardAddress: "djurskador@if.se"},
		{Name: "Dina Försäkringar", Domain: "dina.se", ForwardAddress: "djurskador@dina.se"},
		{Name: "Trygg-Hansa", Domain: "trygghansa.se", ForwardAddress: "djur@trygghansa.se"},
		{Name: "Moderna Djurförsäkringar", Domain: "modernadjurforsakringar.se", ForwardAddress: "skador@modernadjurforsakringar.se"},
		{Name: "ManyPets", Domain: "manypets.com", ForwardAddress: "claims.se@manypets.com"},
		{Name: "Lassie", Domain: "lassie.co", ForwardAddress: "skador@lassie.co"},
	}
}
