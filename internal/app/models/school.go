package models

import "strings"

// School codes with special handling. Law and the provost center have no
// presence in the LMS; the online-programs division routes to its own
// sub-account; two schools publish LMS names that differ from their
// registrar descriptions.
const (
	DentalSchoolCode  = "D"
	LawSchoolCode     = "L"
	ProvostCenterCode = "P"
	ArtsSciencesCode  = "A"
	VeterinaryCode    = "V"
	WhartonSchoolCode = "W"

	dentalCanvasName     = "Dental Medicine"
	veterinaryCanvasName = "Vet Medicine"
)

// School is a dimension record mirrored from the institutional directory.
// Visibility cascades to the school's subjects when toggled.
type School struct {
	Code               string `json:"code" db:"code"`
	Name               string `json:"name" db:"name"`
	Visible            bool   `json:"visible" db:"visible"`
	CanvasSubAccountID *int64 `json:"canvasSubAccountId,omitempty" db:"canvas_sub_account_id"`
}

// CanvasName returns the school's display name as it appears in the LMS
// account tree. Two schools use shortened LMS names and ampersands are
// spelled out everywhere.
func (s *School) CanvasName() string {
	switch s.Code {
	case VeterinaryCode:
		return veterinaryCanvasName
	case DentalSchoolCode:
		return dentalCanvasName
	default:
		return strings.ReplaceAll(s.Name, "&", "and")
	}
}

// IsCanvasSchool reports whether the school provisions sites in the LMS at
// all. The law school and the provost center do not.
func IsCanvasSchool(schoolCode string) bool {
	return schoolCode != LawSchoolCode && schoolCode != ProvostCenterCode
}

// Subject is a course subject belonging to one school.
type Subject struct {
	Code       string `json:"code" db:"code"`
	Name       string `json:"name" db:"name"`
	SchoolCode string `json:"schoolCode" db:"school_code"`
	Visible    bool   `json:"visible" db:"visible"`

	School *School `json:"school,omitempty"`
}
