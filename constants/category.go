package constants

// KeywordCategory names a bucket of the medical keyword dictionary.
type KeywordCategory string

const (
	Conditions  KeywordCategory = "conditions"
	Medications KeywordCategory = "medications"
	Procedures  KeywordCategory = "procedures"
	Vitals      KeywordCategory = "vitals"
	Documents   KeywordCategory = "documents"
	Other       KeywordCategory = "other" // capitalized phrases, not dictionary terms
)

// DictionaryCategories lists the dictionary-backed categories in match order.
var DictionaryCategories = []KeywordCategory{
	Conditions,
	Medications,
	Procedures,
	Vitals,
	Documents,
}

// AllCategories is DictionaryCategories followed by Other.
func AllCategories() []KeywordCategory {
	out := make([]KeywordCategory, 0, len(DictionaryCategories)+1)
	out = append(out, DictionaryCategories...)
	return append(out, Other)
}

// Document type labels.
const (
	DocTypeUnknown     = "Unknown"
	DocTypeLabReport   = "Lab Report"
	DocTypePrescript   = "Prescription"
	DocTypeMedical     = "Medical Report"
	DocTypeInvoice     = "Invoice/Receipt"
	DocTypeRadiology   = "Radiology"
	DocTypeVaccination = "Vaccination Record"
	DocTypeReferral    = "Referral"
	DocTypeDefault     = "Medical Document"
)
