package models

import (
	"fmt"
	"strings"
	"time"
)

// Section is a scheduled course offering in one term, mirrored from the
// registrar. Code is the primary key: section id concatenated with term.
type Section struct {
	Code                string    `json:"code" db:"code"`
	SectionID           string    `json:"sectionId" db:"section_id"`
	SchoolCode          string    `json:"schoolCode" db:"school_code"`
	SubjectCode         string    `json:"subjectCode" db:"subject_code"`
	CourseNumber        string    `json:"courseNumber" db:"course_number"`
	SectionNumber       string    `json:"sectionNumber" db:"section_number"`
	Term                int       `json:"term" db:"term"`
	Title               string    `json:"title" db:"title"`
	ScheduleTypeCode    string    `json:"scheduleTypeCode" db:"schedule_type_code"`
	PrimaryInstructorID *int64    `json:"primaryInstructorId,omitempty" db:"primary_instructor_id"`
	PrimarySectionCode  *string   `json:"primarySectionCode,omitempty" db:"primary_section_code"`
	XlistFamily         *string   `json:"xlistFamily,omitempty" db:"xlist_family"`
	Requested           bool      `json:"requested" db:"requested"`
	CreatedAt           time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt           time.Time `json:"updatedAt" db:"updated_at"`

	School            *School       `json:"school,omitempty"`
	Subject           *Subject      `json:"subject,omitempty"`
	ScheduleType      *ScheduleType `json:"scheduleType,omitempty"`
	PrimaryInstructor *User         `json:"primaryInstructor,omitempty"`
	Instructors       []User        `json:"instructors,omitempty"`
	AlsoOfferedAs     []Section     `json:"alsoOfferedAs,omitempty"`
	CourseSections    []Section     `json:"courseSections,omitempty"`
}

// CourseCodeOptions controls the shape of the composed course code.
type CourseCodeOptions struct {
	// SISFormat joins subject and number with a dash instead of a space.
	SISFormat bool
	// IncludeScheduleType appends the schedule type for non-lecture sections.
	IncludeScheduleType bool
}

// CourseCode composes the section's course code, e.g. "CIS 1200-001 202510"
// or "CIS-1200-001 202510" in SIS format. Non-lecture sections get the
// schedule type appended when requested, e.g. "CIS 1200-001 202510 LAB".
func (s *Section) CourseCode(opts CourseCodeOptions) string {
	divider := " "
	if opts.SISFormat {
		divider = "-"
	}
	code := fmt.Sprintf("%s%s%s-%s %d",
		s.SubjectCode, divider, s.CourseNumber, s.SectionNumber, s.Term)
	if opts.IncludeScheduleType && s.ScheduleTypeCode != LectureCode {
		code = code + " " + s.ScheduleTypeCode
	}
	return code
}

// SISCourseID derives the deterministic external course identifier, e.g.
// "BAN_CIS-1200-001 202510".
func (s *Section) SISCourseID(prefix string) string {
	return prefix + "_" + s.CourseCode(CourseCodeOptions{SISFormat: true})
}

// CanvasName composes the course-site name shown in the LMS: course code
// followed by the title, with an optional override. Related sections carry
// their schedule type so siblings are distinguishable.
func (s *Section) CanvasName(titleOverride string, relatedSection bool) string {
	title := s.Title
	if titleOverride != "" {
		title = titleOverride
	}
	code := s.CourseCode(CourseCodeOptions{IncludeScheduleType: relatedSection})
	return code + " " + title
}

// AllInstructors merges the primary instructor into the instructor set
// without duplicating them.
func (s *Section) AllInstructors() []User {
	if s.PrimaryInstructor == nil {
		return s.Instructors
	}
	for _, instructor := range s.Instructors {
		if instructor.ID == s.PrimaryInstructor.ID {
			return s.Instructors
		}
	}
	merged := make([]User, 0, len(s.Instructors)+1)
	merged = append(merged, s.Instructors...)
	merged = append(merged, *s.PrimaryInstructor)
	return merged
}

// InstructorsDisplay renders the instructor list for tables and emails,
// truncated to fit a column. Sections with no instructors show "STAFF".
func (s *Section) InstructorsDisplay() string {
	instructors := s.AllInstructors()
	if len(instructors) == 0 {
		return "STAFF"
	}
	names := make([]string, len(instructors))
	for i := range instructors {
		names[i] = instructors[i].FullName()
	}
	display := strings.Join(names, ", ")
	if len(display) >= 50 {
		display = display[:47] + "..."
	}
	return display
}

// SectionCodeFor builds the primary key for a registrar section id and term.
func SectionCodeFor(sectionID string, term int) string {
	return fmt.Sprintf("%s%d", sectionID, term)
}
