package canvas

// Course is a provisioned course site in the LMS.
type Course struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	SISCourseID      string `json:"sis_course_id"`
	CourseCode       string `json:"course_code"`
	AccountID        int64  `json:"account_id"`
	EnrollmentTermID int64  `json:"enrollment_term_id"`
}

// CoursePayload carries the fields sent when creating or updating a course site.
type CoursePayload struct {
	Name           string
	SISCourseID    string
	CourseCode     string
	TermID         *int64
	StorageQuotaMB int
}

// Section is a course-section record inside a course site.
type Section struct {
	ID           int64  `json:"id"`
	CourseID     int64  `json:"course_id"`
	Name         string `json:"name"`
	SISSectionID string `json:"sis_section_id"`
}

// User is an LMS user account.
type User struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	LoginID string `json:"login_id"`
}

// NewUser carries the fields needed to mint an LMS account.
type NewUser struct {
	LoginID   string
	SISUserID string
	Name      string
	Email     string
}

// EnrollmentOptions controls how a user is enrolled into a course site.
type EnrollmentOptions struct {
	State     string
	SectionID int64
	// RoleID overrides the enrollment type's default role when non-zero.
	RoleID int64
}

// EnrollmentTerm groups course sites by academic term.
type EnrollmentTerm struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Account is an organizational unit under which course sites are created.
type Account struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	ParentAccountID int64  `json:"parent_account_id"`
}

// Migration is an asynchronous content-copy operation.
type Migration struct {
	ID          int64  `json:"id"`
	ProgressURL string `json:"progress_url"`
}

// MigrationStatus is the workflow state of a content migration.
type MigrationStatus string

const (
	MigrationQueued   MigrationStatus = "queued"
	MigrationRunning  MigrationStatus = "running"
	MigrationComplete MigrationStatus = "complete"
	MigrationFailed   MigrationStatus = "failed"
)

// Active reports whether the migration is still in flight.
func (s MigrationStatus) Active() bool {
	return s == MigrationQueued || s == MigrationRunning
}

// CalendarEvent is a calendar entry attached to a course site.
type CalendarEvent struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	LocationName string `json:"location_name"`
}

// Announcement is an announcement-type discussion topic on a course site.
type Announcement struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}
