// Package rules holds the immutable rule catalog for the claim-mail triage
// pipeline: ordered category regex groups, ordered field-extraction regex
// lists, vendor stop-word and trim tables, reply templates and the insurer
// registry.
//
// The catalog is pure data. It is constructed once at startup, validated
// eagerly (a malformed pattern aborts loading, never per-record processing),
// and shared read-only between concurrent batches.
package rules

// Category is a classification label for an inbound email. Exactly one
// category is assigned per email; catalog declaration order is the tie-break
// between overlapping groups.
type Category string

// Category labels, in catalog evaluation order. The order is business
// behavior: the first group with any matching pattern wins and no later
// group is tried.
const (
	CategoryAutoReply                Category = "Auto_Reply"
	CategoryFinanceReport            Category = "Finance_Report"
	CategoryWisenticError            Category = "Wisentic_Error"
	CategoryOther                    Category = "Other"
	CategoryInformation              Category = "Information"
	CategoryComplement               Category = "Complement"
	CategoryInsuranceValidationError Category = "Insurance_Validation_Error"
	CategorySettlementDenied         Category = "Settlement_Denied"
	CategorySettlementApproved       Category = "Settlement_Approved"
	CategoryComplementReply          Category = "Complement_Reply"
	CategorySettlementRequest        Category = "Settlement_Request"
	CategoryMessage                  Category = "Message"
	CategoryQuestion                 Category = "Question"
	CategorySpam                     Category = "Spam"
)

// CategoryOrder is the declared evaluation order of category groups.
var CategoryOrder = []Category{
	CategoryAutoReply,
	CategoryFinanceReport,
	CategoryWisenticError,
	CategoryOther,
	CategoryInformation,
	CategoryComplement,
	CategoryInsuranceValidationError,
	CategorySettlementDenied,
	CategorySettlementApproved,
	CategoryComplementReply,
	CategorySettlementRequest,
	CategoryMessage,
	CategoryQuestion,
	CategorySpam,
}

// Valid reports whether c is a known category label.
func (c Category) Valid() bool {
	for _, known := range CategoryOrder {
		if c == known {
			return true
		}
	}
	return false
}

// CompType is the clinic-complement sub-type, resolved only when the
// top-level category is Complement or Complement_Reply.
type CompType string

const (
	CompTypeNone            CompType = ""
	CompTypeDirektreglering CompType = "direktreglering"
	CompTypeSkadeanmalan    CompType = "skadeanmälan"
)

// FieldKind names one semantic extraction field. Each kind carries an
// ordered pattern list for email text and a separate list for attachment
// text.
type FieldKind string

const (
	FieldReference         FieldKind = "reference"
	FieldInsuranceNumber   FieldKind = "insuranceNumber"
	FieldDamageNumber      FieldKind = "damageNumber"
	FieldAnimalName        FieldKind = "animalName"
	FieldAnimalNameSveland FieldKind = "animalName_Sveland"
	FieldOwnerName         FieldKind = "ownerName"
	FieldTotalAmount       FieldKind = "totalAmount"
	FieldSettlementAmount  FieldKind = "settlementAmount"
	FieldFolksamOther      FieldKind = "folksamOtherAmount"
)

// AmountFields lists the kinds whose captures are parsed to öre.
var AmountFields = map[FieldKind]bool{
	FieldTotalAmount:      true,
	FieldSettlementAmount: true,
	FieldFolksamOther:     true,
}

// Action is a suggested handling action for a categorized email.
type Action string

const (
	ActionConnect     Action = "Connect"
	ActionForward     Action = "Forward"
	ActionDiscard     Action = "Discard"
	ActionUpgradeDR   Action = "Upgrade_DR"
	ActionDownload    Action = "Download_Attachments"
	ActionUpload      Action = "Upload_Attachments"
	ActionReply       Action = "Reply"
	ActionManualCheck Action = "Manual_Check"
)

// ActionSuggestions maps each category to its suggested actions. Static
// lookup; an unknown category yields no suggestions.
var ActionSuggestions = map[Category][]Action{
	CategoryAutoReply:                {ActionDiscard},
	CategoryFinanceReport:            {ActionDownload},
	CategoryWisenticError:            {ActionManualCheck},
	CategoryOther:                    {ActionManualCheck},
	CategoryInformation:              {ActionConnect},
	CategoryComplement:               {ActionConnect, ActionForward},
	CategoryInsuranceValidationError: {ActionConnect, ActionManualCheck},
	CategorySettlementDenied:         {ActionConnect, ActionForward},
	CategorySettlementApproved:       {ActionConnect, ActionUpgradeDR},
	CategoryComplementReply:          {ActionConnect, ActionForward, ActionUpload},
	CategorySettlementRequest:        {ActionConnect, ActionForward},
	CategoryMessage:                  {ActionForward},
	CategoryQuestion:                 {ActionForward, ActionReply},
	CategorySpam:                     {ActionDiscard},
}

// SenderRole identifies who sent (or should receive) an email.
type SenderRole string

const (
	RoleClinic           SenderRole = "Clinic"
	RoleInsuranceCompany SenderRole = "Insurance_Company"
	RoleAnimalOwner      SenderRole = "Animal_Owner"
	RoleUnknown          SenderRole = "Unknown"
)
