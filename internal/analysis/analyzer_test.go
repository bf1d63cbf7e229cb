package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/medrecords/constants"
	"github.com/joseph-ayodele/medrecords/internal/entity"
)

const scenarioA = "Patient seen on 03/15/2024, prescribed Lisinopril 10mg once daily with food."

func TestAnalyzePrescribedVisit(t *testing.T) {
	a := Analyze(scenarioA)

	assert.True(t, a.HasContent)
	// the numeric date matches both readings but is reported once, month-first
	assert.Equal(t, []entity.DateMatch{
		{Raw: "03/15/2024", Format: FormatMonthFirst},
	}, a.Dates)

	// "prescribed" is not "prescription" and "rx" does not occur, but "patient" does.
	assert.Equal(t, constants.DocTypeMedical, a.DocumentType)

	assert.Empty(t, a.Keywords.Categorized[constants.Conditions])
	assert.Equal(t, []string{"mg"}, a.Keywords.Categorized[constants.Medications])
	assert.Equal(t, []string{"Patient", "Lisinopril"}, a.Keywords.Categorized[constants.Other])
	assert.Equal(t, []string{"mg", "Patient", "Lisinopril"}, a.Keywords.All)
	assert.Equal(t, 3, a.Keywords.Count)

	assert.Equal(t, 11, a.WordCount)
	assert.Equal(t, "Type: Medical Report • 1 date(s) found • 3 keyword(s) detected • 11 words", a.Summary)
}

func TestAnalyzeShortText(t *testing.T) {
	for _, in := range []string{"", "Rx 10mg", "123456789"} {
		a := Analyze(in)
		assert.Equal(t, constants.DocTypeUnknown, a.DocumentType, in)
		assert.Empty(t, a.Dates)
		assert.NotNil(t, a.Dates)
		assert.Empty(t, a.Keywords.All)
		assert.Zero(t, a.Keywords.Count)
		assert.Zero(t, a.WordCount)
		assert.False(t, a.HasContent)
		assert.Zero(t, a.TextLength)
	}
}

func TestExtractDatesFormats(t *testing.T) {
	text := "Collected 2024-01-09. Seen March 3, 2023 and 12 april 2022; follow-up 1-2-2025."
	got := ExtractDates(text)

	require.Equal(t, []entity.DateMatch{
		{Raw: "1-2-2025", Format: FormatMonthFirst},
		{Raw: "March 3, 2023", Format: FormatMonthName},
		{Raw: "12 april 2022", Format: FormatDayMonthName},
		{Raw: "2024-01-09", Format: FormatISO},
	}, got)
}

func TestExtractDatesStable(t *testing.T) {
	text := "Visit 04/05/2023, repeat 04/05/2023, next 2023-06-01 and June 1 2023."
	first := ExtractDates(text)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, ExtractDates(text))
	}
	// one entry per distinct span
	assert.Len(t, first, 3)
	seen := map[string]bool{}
	for _, d := range first {
		assert.False(t, seen[d.Raw], d.Raw)
		seen[d.Raw] = true
	}
}

func TestExtractKeywordsCategoriesOverlap(t *testing.T) {
	kw := ExtractKeywords("prescription refill for asthma inhaler, lab report attached")

	assert.Equal(t, []string{"asthma"}, kw.Categorized[constants.Conditions])
	assert.Equal(t, []string{"prescription"}, kw.Categorized[constants.Medications])
	assert.Equal(t, []string{"report", "prescription", "lab"}, kw.Categorized[constants.Documents])
	assert.Empty(t, kw.Categorized[constants.Other])
	// "prescription" sits in two categories but once in All
	assert.Equal(t, []string{"asthma", "prescription", "report", "lab"}, kw.All)
	assert.Equal(t, 5, kw.Count)
}

func TestCapitalizedPhrases(t *testing.T) {
	text := "seen by Jane Smith and John in March. dr Lee noted Metformin, Aspirin, Ibuprofen, " +
		"Warfarin, Atorvastatin, Omeprazole, Amlodipine, Simvastatin, Losartan, Gabapentin."
	got := capitalizedPhrases(text)

	assert.Len(t, got, MaxOtherKeywords)
	assert.Equal(t, "Jane Smith", got[0])
	assert.Equal(t, "John", got[1])
	assert.NotContains(t, got, "March")
	assert.NotContains(t, got, "Lee")
	assert.Equal(t, "Simvastatin", got[MaxOtherKeywords-1])
}

func TestDetectDocumentType(t *testing.T) {
	cases := map[string]string{
		"Laboratory panel results":                   constants.DocTypeLabReport,
		"Take as directed, two refills remaining":    constants.DocTypePrescript,
		"Diagnosis: seasonal allergies":              constants.DocTypeMedical,
		"Amount due on this statement":               constants.DocTypeInvoice,
		"Chest x-ray, no acute findings":             constants.DocTypeRadiology,
		"Immunization schedule for children":         constants.DocTypeVaccination,
		"Referred to cardiology for further workup":  constants.DocTypeReferral,
		"Nothing recognisable in this document text": constants.DocTypeDefault,
	}
	for in, want := range cases {
		assert.Equal(t, want, DetectDocumentType(in), in)
	}
	assert.Equal(t, constants.DocTypeUnknown, DetectDocumentType(""))
}

func TestWordCount(t *testing.T) {
	assert.Equal(t, 3, WordCount("  one\ttwo\n\nthree  "))
	assert.Zero(t, WordCount(" \n\t "))
}

func TestSearchAndHighlight(t *testing.T) {
	assert.True(t, Search("Blood Glucose 105", "glucose"))
	assert.False(t, Search("Blood Glucose 105", ""))
	assert.False(t, Search("", "x"))

	assert.Equal(t, "<mark>Glucose</mark> and <mark>glucose</mark>", Highlight("Glucose and glucose", "GLUCOSE"))
	assert.Equal(t, "dose <mark>(5mg)</mark>", Highlight("dose (5mg)", "(5mg)"))
	assert.Equal(t, "unchanged", Highlight("unchanged", ""))
}
