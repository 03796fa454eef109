package rules

// DefaultCategoryRules returns the built-in category rule table, one row
// per pattern, in evaluation order. Patterns run against the normalized
// "[SUBJECT] ... [BODY] ..." working string; all are case-insensitive and
// use explicit åäö classes where \w would miss Swedish letters.
//
// Ordering is business behavior. Broad groups (Message, Question) sit late
// on purpose so they only catch what nothing narrower claimed.
func DefaultCategoryRules() []PatternRow {
	return []PatternRow{
		// Out-of-office and machine replies.
		{Group: "Auto_Reply", Pattern: `(?i)\bautosvar\b`},
		{Group: "Auto_Reply", Pattern: `(?i)automatiskt\s+svar`},
		{Group: "Auto_Reply", Pattern: `(?i)\bout\s+of\s+office\b`},
		{Group: "Auto_Reply", Pattern: `(?i)(är\s+)?frånvarande\s+till\s+och\s+med`},
		{Group: "Auto_Reply", Pattern: `(?i)tack\s+för\s+(ditt|ert)\s+(mejl|mail|e-?postmeddelande)[^.]{0,80}återkommer`},
		{Group: "Auto_Reply", Pattern: `(?i)detta\s+är\s+ett\s+automatiskt\s+(utskick|meddelande)`},

		// Daily payout reports from insurers.
		{Group: "Finance_Report", Pattern: `(?i)\[SUBJECT\][^\[]*utbetalningsrapport`},
		{Group: "Finance_Report", Pattern: `(?i)\bdagsavräkning\b`},
		{Group: "Finance_Report", Pattern: `(?i)redovisning\s+av\s+utbetalningar`},
		{Group: "Finance_Report", Pattern: `(?i)bifogad\s+utbetalningsfil`},

		// Delivery failures from the Wisentic claims portal.
		{Group: "Wisentic_Error", Pattern: `(?i)\bwisentic\b`},
		{Group: "Wisentic_Error", Pattern: `(?i)kunde\s+inte\s+levereras\s+till\s+djurskador`},
		{Group: "Wisentic_Error", Pattern: `(?i)fel\s+vid\s+överföring\s+av\s+skadeanmälan`},

		// Explicit non-claim traffic.
		{Group: "Other", Pattern: `(?i)\bnyhetsbrev\b`},
		{Group: "Other", Pattern: `(?i)enkät(undersökning)?`},
		{Group: "Other", Pattern: `(?i)inbjudan\s+till\s+(webbinarium|utbildning)`},
		{Group: "Other", Pattern: `(?i)driftstörning(ar)?\s+(i|på)`},

		// For-your-information notices.
		{Group: "Information", Pattern: `(?i)för\s+kännedom`},
		{Group: "Information", Pattern: `(?i)vi\s+vill\s+informera\s+(er|dig|om)`},
		{Group: "Information", Pattern: `(?i)information\s+gällande\s+(er|din|ert)`},

		// Requests for additional documentation on a claim, including the
		// confirmation mails insurers send when a clinic submission arrives.
		{Group: "Complement", Pattern: `(?i)vi\s+har\s+mottagit\s+en\s+direktreglering`},
		{Group: "Complement", Pattern: `(?i)vi\s+har\s+mottagit\s+en\s+skadeanmälan`},
		{Group: "Complement", Pattern: `(?i)komplettering\s+(krävs|behövs|önskas)`},
		{Group: "Complement", Pattern: `(?i)begär(an\s+om)?\s+komplettering`},
		{Group: "Complement", Pattern: `(?i)behöver\s+(vi\s+)?följande\s+underlag`},
		{Group: "Complement", Pattern: `(?i)saknar\s+(vi\s+)?(journal|underlag|kvitto)`},
		{Group: "Complement", Pattern: `(?i)för\s+att\s+kunna\s+(behandla|reglera)\s+(ärendet|skadan)\s+behöver\s+vi`},

		// Claim rejected because the policy did not validate.
		{Group: "Insurance_Validation_Error", Pattern: `(?i)försäkringen\s+(är|var)\s+inte\s+(aktiv|giltig)`},
		{Group: "Insurance_Validation_Error", Pattern: `(?i)ogiltigt\s+försäkringsnummer`},
		{Group: "Insurance_Validation_Error", Pattern: `(?i)ingen\s+(aktiv|giltig)\s+försäkring\s+(kunde\s+)?hitta(s|des)?`},
		{Group: "Insurance_Validation_Error", Pattern: `(?i)försäkringen\s+upphörde\s+att\s+gälla`},

		// Compensation decision: denied.
		{Group: "Settlement_Denied", Pattern: `(?i)avslag\s+på\s+(er\s+)?(ansökan|ersättning|direktreglering)`},
		{Group: "Settlement_Denied", Pattern: `(?i)ersättning\s+kan\s+(tyvärr\s+)?inte\s+lämnas`},
		{Group: "Settlement_Denied", Pattern: `(?i)vi\s+kan\s+tyvärr\s+inte\s+ersätta`},
		{Group: "Settlement_Denied", Pattern: `(?i)omfattas\s+inte\s+av\s+försäkringen`},
		{Group: "Settlement_Denied", Pattern: `(?i)skadan\s+är\s+inte\s+ersättningsbar`},

		// Compensation decision: approved. "Belopp att utbetala" is the
		// settlement-letter phrasing shared by most insurers.
		{Group: "Settlement_Approved", Pattern: `(?i)belopp\s+att\s+utbetala`},
		{Group: "Settlement_Approved", Pattern: `(?i)ersättning(en)?\s+har\s+beviljats`},
		{Group: "Settlement_Approved", Pattern: `(?i)vi\s+har\s+betalat\s+ut`},
		{Group: "Settlement_Approved", Pattern: `(?i)utbetalning\s+sker\s+inom`},
		{Group: "Settlement_Approved", Pattern: `(?i)\bersättningsbesked\b`},
		{Group: "Settlement_Approved", Pattern: `(?i)direktregleringen\s+är\s+(nu\s+)?reglerad`},

		// Clinic answering an earlier complement request.
		{Group: "Complement_Reply", Pattern: `(?i)här\s+kommer\s+(det\s+|de\s+)?efterfrågade\s+underlag`},
		{Group: "Complement_Reply", Pattern: `(?i)bifogar\s+(journal(kopia)?|underlag|kvitto|röntgenbilder)`},
		{Group: "Complement_Reply", Pattern: `(?i)svar\s+på\s+(er\s+)?(begäran\s+om\s+)?komplettering`},

		// Clinic asking to open a direct settlement.
		{Group: "Settlement_Request", Pattern: `(?i)ansökan\s+om\s+direktreglering`},
		{Group: "Settlement_Request", Pattern: `(?i)önskar\s+(att\s+)?direktreglera`},
		{Group: "Settlement_Request", Pattern: `(?i)begäran\s+om\s+(direktreglering|ersättning)`},

		// Broad conversational catch-alls, deliberately late.
		{Group: "Message", Pattern: `(?i)återkom\s+gärna`},
		{Group: "Message", Pattern: `(?i)vänligen\s+kontakta\s+oss`},
		{Group: "Message", Pattern: `(?i)hälsningar\s+från\s+(kliniken|djursjukhuset)`},
		{Group: "Question", Pattern: `(?i)undrar\s+(jag|vi)\s+om`},
		{Group: "Question", Pattern: `(?i)hur\s+går\s+det\s+med`},
		{Group: "Question", Pattern: `(?i)när\s+kan\s+vi\s+förvänta\s+oss`},
		{Group: "Question", Pattern: `\?`},

		// Last: obvious junk.
		{Group: "Spam", Pattern: `(?i)\bunsubscribe\b`},
		{Group: "Spam", Pattern: `(?i)\bcasino\b`},
		{Group: "Spam", Pattern: `(?i)congratulations[^.]{0,60}\bwon\b`},
		{Group: "Spam", Pattern: `(?i)klicka\s+här\s+för\s+att\s+hämta\s+din\s+vinst`},
	}
}

// defaultCompTypeRules resolves the Complement sub-type: did the clinic
// traffic concern a direct settlement or a claim report. First match wins.
func defaultCompTypeRules() []PatternRow {
	return []PatternRow{
		{Group: string(CompTypeDirektreglering), Pattern: `(?i)direkt-?reglering`},
		{Group: string(CompTypeDirektreglering), Pattern: `(?i)\bDR[- ]?\d`},
		{Group: string(CompTypeSkadeanmalan), Pattern: `(?i)skade-?anmälan`},
	}
}
