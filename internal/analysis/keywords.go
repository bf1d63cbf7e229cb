package analysis

import (
	"regexp"
	"strings"

	"github.com/joseph-ayodele/medrecords/constants"
)

// MaxOtherKeywords caps the capitalised phrases collected per document.
const MaxOtherKeywords = 10

var dictionary = map[constants.KeywordCategory][]string{
	constants.Conditions:  {"diabetes", "hypertension", "asthma", "cancer", "arthritis", "allergy", "infection", "disease", "syndrome", "disorder"},
	constants.Medications: {"medication", "prescription", "drug", "tablet", "capsule", "dose", "mg", "ml", "antibiotic", "vaccine"},
	constants.Procedures:  {"surgery", "operation", "procedure", "treatment", "therapy", "examination", "test", "scan", "xray", "mri", "ct scan"},
	constants.Vitals:      {"blood pressure", "heart rate", "temperature", "weight", "height", "bmi", "pulse", "oxygen", "glucose"},
	constants.Documents:   {"report", "prescription", "invoice", "receipt", "referral", "lab", "laboratory", "pathology", "radiology"},
}

var (
	reCapitalized = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*\b`)

	months = map[string]struct{}{
		"January": {}, "February": {}, "March": {}, "April": {}, "May": {}, "June": {},
		"July": {}, "August": {}, "September": {}, "October": {}, "November": {}, "December": {},
	}
)

// Keywords groups matched terms by category.
type Keywords struct {
	Categorized map[constants.KeywordCategory][]string `json:"categorized"`
	// All is the union of every category list, first occurrence wins.
	All []string `json:"all"`
	// Count sums the category list lengths before the union.
	Count int `json:"count"`
}

func emptyKeywords() Keywords {
	return Keywords{Categorized: map[constants.KeywordCategory][]string{}, All: []string{}}
}

// ExtractKeywords matches the dictionary case-insensitively as substrings and
// collects up to MaxOtherKeywords distinct capitalised phrases.
func ExtractKeywords(text string) Keywords {
	kw := emptyKeywords()
	if text == "" {
		return kw
	}
	lower := strings.ToLower(text)

	for _, cat := range constants.DictionaryCategories {
		found := []string{}
		for _, term := range dictionary[cat] {
			if strings.Contains(lower, term) {
				found = append(found, term)
			}
		}
		kw.Categorized[cat] = found
	}
	kw.Categorized[constants.Other] = capitalizedPhrases(text)

	seen := make(map[string]struct{})
	for _, cat := range constants.AllCategories() {
		for _, term := range kw.Categorized[cat] {
			kw.Count++
			if _, ok := seen[term]; ok {
				continue
			}
			seen[term] = struct{}{}
			kw.All = append(kw.All, term)
		}
	}
	return kw
}

func capitalizedPhrases(text string) []string {
	out := []string{}
	seen := make(map[string]struct{})
	for _, w := range reCapitalized.FindAllString(text, -1) {
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		if len(w) <= 3 {
			continue
		}
		if _, isMonth := months[w]; isMonth {
			continue
		}
		out = append(out, w)
		if len(out) == MaxOtherKeywords {
			break
		}
	}
	return out
}
