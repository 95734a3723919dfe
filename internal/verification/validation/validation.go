// Package validation holds the pure per-document, per-side acceptance rules.
// No I/O, no side effects: a rule receives an extraction result and returns
// which required fields are missing.
package validation

import (
	"veridoc/internal/verification/models"
	id "veridoc/pkg/domain"
)

// Validate applies the rule for (documentType family, artifactKind) to an
// extraction result. A failed extraction is never valid; its missing-field
// list still names every required field so operators can see why.
//
// The missing-field list is diagnostic only; callers branch on IsValid alone.
func Validate(result *models.ExtractionResult, docType id.DocumentType, kind id.ArtifactKind) models.ValidationOutcome {
	if result == nil || !result.Succeeded {
		return models.ValidationOutcome{IsValid: false, MissingFields: requiredFields(docType, kind)}
	}

	var missing []string
	switch {
	case docType.Family() == id.FamilyTwoSided && kind == id.ArtifactKindFront:
		missing = validateFront(result)
	case docType.Family() == id.FamilyTwoSided && kind == id.ArtifactKindBack:
		missing = validateBack(result)
	case docType.Family() == id.FamilySingleSided:
		missing = validateSingleSided(result)
	default:
		// Liveness never reaches the field rules; its validity arrives
		// precomputed from the liveness service.
		return models.ValidationOutcome{IsValid: false, MissingFields: []string{"unsupported artifact kind"}}
	}

	return models.ValidationOutcome{IsValid: len(missing) == 0, MissingFields: missing}
}

// Front/primary side of an ID-type document: family name, at least one given
// name, and birth date must all be present and non-empty.
func validateFront(result *models.ExtractionResult) []string {
	var missing []string
	if result.Fields[models.FieldSurname] == "" {
		missing = append(missing, models.FieldSurname)
	}
	if !hasGivenName(result) {
		missing = append(missing, "givenNames")
	}
	if result.Fields[models.FieldBirthDate] == "" {
		missing = append(missing, models.FieldBirthDate)
	}
	return missing
}

// Back side of an ID-type document: issue and expiry dates are required. MRZ
// lines are supportive but not required; some document subtypes never carry
// structured MRZ.
func validateBack(result *models.ExtractionResult) []string {
	var missing []string
	if result.Fields[models.FieldIssueDate] == "" {
		missing = append(missing, models.FieldIssueDate)
	}
	if result.Fields[models.FieldExpiryDate] == "" {
		missing = append(missing, models.FieldExpiryDate)
	}
	return missing
}

// Single-sided document (passport): personal info (family name + a given
// name) plus at least one corroborating field out of birth date, document
// number, and nationality.
func validateSingleSided(result *models.ExtractionResult) []string {
	var missing []string
	if result.Fields[models.FieldSurname] == "" {
		missing = append(missing, models.FieldSurname)
	}
	if !hasGivenName(result) {
		missing = append(missing, "givenNames")
	}
	if result.Fields[models.FieldBirthDate] == "" &&
		result.Fields[models.FieldDocumentNumber] == "" &&
		result.Fields[models.FieldNationality] == "" {
		missing = append(missing, "birthDate|documentNumber|nationality")
	}
	return missing
}

func hasGivenName(result *models.ExtractionResult) bool {
	for _, name := range result.GivenNames {
		if name != "" {
			return true
		}
	}
	return false
}

func requiredFields(docType id.DocumentType, kind id.ArtifactKind) []string {
	if docType.Family() == id.FamilySingleSided {
		return []string{models.FieldSurname, "givenNames", "birthDate|documentNumber|nationality"}
	}
	if kind == id.ArtifactKindBack {
		return []string{models.FieldIssueDate, models.FieldExpiryDate}
	}
	return []string{models.FieldSurname, "givenNames", models.FieldBirthDate}
}
