package analysis

import (
	"strings"

	"github.com/joseph-ayodele/medrecords/constants"
)

type typeRule struct {
	label string
	terms []string
}

// Checked in order; the first rule with any matching term decides the type.
var typeRules = []typeRule{
	{constants.DocTypeLabReport, []string{"lab", "laboratory", "test result", "pathology", "specimen"}},
	{constants.DocTypePrescript, []string{"prescription", "rx", "medication", "take as directed", "refill"}},
	{constants.DocTypeMedical, []string{"diagnosis", "patient", "medical history", "examination"}},
	{constants.DocTypeInvoice, []string{"invoice", "receipt", "amount", "total", "payment", "bill"}},
	{constants.DocTypeRadiology, []string{"radiology", "x-ray", "xray", "ct scan", "mri", "ultrasound"}},
	{constants.DocTypeVaccination, []string{"vaccination", "vaccine", "immunization", "dose"}},
	{constants.DocTypeReferral, []string{"referral", "referred to", "specialist", "consultation"}},
}

// DetectDocumentType classifies text by case-insensitive substring rules.
func DetectDocumentType(text string) string {
	if text == "" {
		return constants.DocTypeUnknown
	}
	lower := strings.ToLower(text)
	for _, r := range typeRules {
		for _, term := range r.terms {
			if strings.Contains(lower, term) {
				return r.label
			}
		}
	}
	return constants.DocTypeDefault
}
