package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testSection() *Section {
	return &Section{
		Code:             "CIS1200001202510",
		SectionID:        "CIS1200001",
		SchoolCode:       "E",
		SubjectCode:      "CIS",
		CourseNumber:     "1200",
		SectionNumber:    "001",
		Term:             202510,
		Title:            "Programming Languages and Techniques I",
		ScheduleTypeCode: LectureCode,
	}
}

func TestCourseCode(t *testing.T) {
	section := testSection()

	assert.Equal(t, "CIS 1200-001 202510", section.CourseCode(CourseCodeOptions{}))
	assert.Equal(t, "CIS-1200-001 202510", section.CourseCode(CourseCodeOptions{SISFormat: true}))
}

func TestCourseCodeScheduleTypeOnlyForNonLectures(t *testing.T) {
	section := testSection()

	code := section.CourseCode(CourseCodeOptions{IncludeScheduleType: true})
	assert.Equal(t, "CIS 1200-001 202510", code, "lecture sections stay unqualified")

	section.ScheduleTypeCode = "LAB"
	code = section.CourseCode(CourseCodeOptions{IncludeScheduleType: true})
	assert.Equal(t, "CIS 1200-001 202510 LAB", code)
}

func TestSISCourseID(t *testing.T) {
	section := testSection()
	assert.Equal(t, "BAN_CIS-1200-001 202510", section.SISCourseID("BAN"))
}

func TestCanvasName(t *testing.T) {
	section := testSection()

	name := section.CanvasName("", false)
	assert.Equal(t, "CIS 1200-001 202510 Programming Languages and Techniques I", name)

	name = section.CanvasName("Intro to Programming", false)
	assert.Equal(t, "CIS 1200-001 202510 Intro to Programming", name)
}

func TestCanvasNameRelatedSection(t *testing.T) {
	section := testSection()
	section.ScheduleTypeCode = "REC"

	assert.Equal(t,
		"CIS 1200-001 202510 REC Programming Languages and Techniques I",
		section.CanvasName("", true))
}

func TestAllInstructorsMergesPrimary(t *testing.T) {
	primary := User{ID: 1, Username: "prof", FirstName: "Ada", LastName: "Lovelace"}
	section := testSection()
	section.PrimaryInstructor = &primary
	section.Instructors = []User{{ID: 2, Username: "ta", FirstName: "Alan", LastName: "Turing"}}

	instructors := section.AllInstructors()
	assert.Len(t, instructors, 2)

	// A primary already in the instructor set is not duplicated.
	section.Instructors = append(section.Instructors, primary)
	assert.Len(t, section.AllInstructors(), 2)
}

func TestInstructorsDisplay(t *testing.T) {
	section := testSection()
	assert.Equal(t, "STAFF", section.InstructorsDisplay())

	section.Instructors = []User{
		{ID: 1, FirstName: "Ada", LastName: "Lovelace"},
		{ID: 2, FirstName: "Alan", LastName: "Turing"},
	}
	assert.Equal(t, "Ada Lovelace, Alan Turing", section.InstructorsDisplay())

	section.Instructors = append(section.Instructors,
		User{ID: 3, FirstName: "Grace", LastName: "Hopper"},
		User{ID: 4, FirstName: "Edsger", LastName: "Dijkstra"},
	)
	display := section.InstructorsDisplay()
	assert.Len(t, display, 50)
	assert.Contains(t, display, "...")
}

func TestSectionCodeFor(t *testing.T) {
	assert.Equal(t, "CIS1200001202510", SectionCodeFor("CIS1200001", 202510))
}

func TestSchoolCanvasName(t *testing.T) {
	school := &School{Code: "N", Name: "School of Nursing & Midwifery"}
	assert.Equal(t, "School of Nursing and Midwifery", school.CanvasName())

	school = &School{Code: VeterinaryCode, Name: "School of Veterinary Medicine"}
	assert.Equal(t, "Vet Medicine", school.CanvasName())

	school = &School{Code: DentalSchoolCode, Name: "School of Dental Medicine"}
	assert.Equal(t, "Dental Medicine", school.CanvasName())
}

func TestIsCanvasSchool(t *testing.T) {
	assert.False(t, IsCanvasSchool(LawSchoolCode))
	assert.False(t, IsCanvasSchool(ProvostCenterCode))
	assert.True(t, IsCanvasSchool(ArtsSciencesCode))
}

func TestIsProvisionedScheduleType(t *testing.T) {
	assert.True(t, IsProvisionedScheduleType(LectureCode))
	assert.True(t, IsProvisionedScheduleType("LAB"))
	assert.False(t, IsProvisionedScheduleType("IND"))
	assert.False(t, IsProvisionedScheduleType("MED"))
}
