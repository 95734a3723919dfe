package validation

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"veridoc/internal/verification/models"
	id "veridoc/pkg/domain"
)

type ValidationSuite struct {
	suite.Suite
}

func TestValidationSuite(t *testing.T) {
	suite.Run(t, new(ValidationSuite))
}

func (s *ValidationSuite) result(fields map[string]string, givenNames ...string) *models.ExtractionResult {
	return &models.ExtractionResult{
		Fields:     fields,
		GivenNames: givenNames,
		Succeeded:  true,
	}
}

// TestFrontSide verifies the front-side rule for two-sided documents.
func (s *ValidationSuite) TestFrontSide() {
	s.Run("accepts surname, given name and birth date", func() {
		out := Validate(s.result(map[string]string{
			models.FieldSurname:   "MARTIN",
			models.FieldBirthDate: "1990-07-13",
		}, "Marie"), id.DocumentTypeTraditionalID, id.ArtifactKindFront)

		s.True(out.IsValid)
		s.Empty(out.MissingFields)
	})

	s.Run("rejects missing surname", func() {
		out := Validate(s.result(map[string]string{
			models.FieldBirthDate: "1990-07-13",
		}, "Marie"), id.DocumentTypeTraditionalID, id.ArtifactKindFront)

		s.False(out.IsValid)
		s.Contains(out.MissingFields, models.FieldSurname)
	})

	s.Run("rejects empty given names slice", func() {
		out := Validate(s.result(map[string]string{
			models.FieldSurname:   "MARTIN",
			models.FieldBirthDate: "1990-07-13",
		}), id.DocumentTypeNewID, id.ArtifactKindFront)

		s.False(out.IsValid)
		s.Contains(out.MissingFields, "givenNames")
	})

	s.Run("rejects given names holding only empty strings", func() {
		out := Validate(s.result(map[string]string{
			models.FieldSurname:   "MARTIN",
			models.FieldBirthDate: "1990-07-13",
		}, "", ""), id.DocumentTypeTraditionalID, id.ArtifactKindFront)

		s.False(out.IsValid)
		s.Contains(out.MissingFields, "givenNames")
	})

	s.Run("reports every missing field at once", func() {
		out := Validate(s.result(map[string]string{}), id.DocumentTypeTraditionalID, id.ArtifactKindFront)

		s.False(out.IsValid)
		s.Len(out.MissingFields, 3)
	})
}

// TestBackSide verifies the back-side rule: issue and expiry dates only.
func (s *ValidationSuite) TestBackSide() {
	s.Run("accepts issue and expiry dates", func() {
		out := Validate(s.result(map[string]string{
			models.FieldIssueDate:  "2020-01-15",
			models.FieldExpiryDate: "2030-01-15",
		}), id.DocumentTypeTraditionalID, id.ArtifactKindBack)

		s.True(out.IsValid)
	})

	s.Run("ignores personal fields on the back side", func() {
		// A back side carrying no names is fine; names are a front-side concern.
		out := Validate(s.result(map[string]string{
			models.FieldIssueDate:  "2020-01-15",
			models.FieldExpiryDate: "2030-01-15",
			models.FieldMRZ1:       "IDFRAMARTIN<<<<<<<<<<<<<<<<<<<<<<<",
		}), id.DocumentTypeNewID, id.ArtifactKindBack)

		s.True(out.IsValid)
	})

	s.Run("rejects missing expiry date", func() {
		out := Validate(s.result(map[string]string{
			models.FieldIssueDate: "2020-01-15",
		}), id.DocumentTypeTraditionalID, id.ArtifactKindBack)

		s.False(out.IsValid)
		s.Equal([]string{models.FieldExpiryDate}, out.MissingFields)
	})
}

// TestSingleSided verifies the passport rule, including the one-of-three
// corroborating field requirement.
func (s *ValidationSuite) TestSingleSided() {
	s.Run("accepts names plus birth date", func() {
		out := Validate(s.result(map[string]string{
			models.FieldSurname:   "MARTIN",
			models.FieldBirthDate: "1990-07-13",
		}, "Marie"), id.DocumentTypePassport, id.ArtifactKindFront)

		s.True(out.IsValid)
	})

	s.Run("accepts names plus document number only", func() {
		out := Validate(s.result(map[string]string{
			models.FieldSurname:        "MARTIN",
			models.FieldDocumentNumber: "19FC52147",
		}, "Marie"), id.DocumentTypePassport, id.ArtifactKindFront)

		s.True(out.IsValid)
	})

	s.Run("accepts names plus nationality only", func() {
		out := Validate(s.result(map[string]string{
			models.FieldSurname:     "MARTIN",
			models.FieldNationality: "FRA",
		}, "Marie"), id.DocumentTypePassport, id.ArtifactKindFront)

		s.True(out.IsValid)
	})

	s.Run("rejects names with no corroborating field", func() {
		out := Validate(s.result(map[string]string{
			models.FieldSurname: "MARTIN",
		}, "Marie"), id.DocumentTypePassport, id.ArtifactKindFront)

		s.False(out.IsValid)
		s.Contains(out.MissingFields, "birthDate|documentNumber|nationality")
	})
}

// TestFailedExtraction verifies that a failed or absent extraction can never
// validate, regardless of what fields it carries.
func (s *ValidationSuite) TestFailedExtraction() {
	s.Run("nil result is invalid", func() {
		out := Validate(nil, id.DocumentTypeTraditionalID, id.ArtifactKindFront)

		s.False(out.IsValid)
		s.NotEmpty(out.MissingFields)
	})

	s.Run("unsucceeded result is invalid even with full fields", func() {
		res := s.result(map[string]string{
			models.FieldSurname:   "MARTIN",
			models.FieldBirthDate: "1990-07-13",
		}, "Marie")
		res.Succeeded = false

		out := Validate(res, id.DocumentTypeTraditionalID, id.ArtifactKindFront)

		s.False(out.IsValid)
	})
}
