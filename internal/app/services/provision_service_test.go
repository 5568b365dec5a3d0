package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oklib/courseflow/internal/app/models"
	"github.com/oklib/courseflow/internal/canvas"
	"github.com/oklib/courseflow/internal/config"
)

func provisionConfig() config.ProvisionConfig {
	return config.ProvisionConfig{
		SISPrefix:          "BAN",
		StorageQuotaMB:     2000,
		ReservesTabID:      "context_external_tool_139969",
		LibrarianRoleID:    1383,
		OnlineSubAccountID: 132413,
		OnlineSchoolCode:   "A",
		MaxPollAttempts:    180,
	}
}

type provisionFixture struct {
	service    *ProvisionService
	requests   *fakeRequestStore
	sections   *fakeSectionStore
	rows       *fakeEnrollmentStore
	resolver   *fakeResolver
	migrations *fakeMigrationRunner
	api        *fakeCanvas
}

func newProvisionFixture(request *models.Request, section *models.Section) *provisionFixture {
	requests := newFakeRequestStore(request)
	sections := newFakeSectionStore(section)
	rows := &fakeEnrollmentStore{}
	resolver := &fakeResolver{ids: map[string]int64{}}
	migrations := &fakeMigrationRunner{completed: true}
	api := newFakeCanvas()
	api.terms = []canvas.EnrollmentTerm{{ID: 555, Name: "Fall 202510"}}

	service := NewProvisionService(
		requests,
		sections,
		NewEnrollmentService(rows),
		resolver,
		migrations,
		NewLifecycle(requests),
		api,
		provisionConfig(),
		96678,
	)
	return &provisionFixture{
		service:    service,
		requests:   requests,
		sections:   sections,
		rows:       rows,
		resolver:   resolver,
		migrations: migrations,
		api:        api,
	}
}

func approvedRequest(sectionCode string) *models.Request {
	return &models.Request{
		SectionCode: sectionCode,
		RequesterID: 1,
		Status:      models.StatusApproved,
	}
}

func engineeringSection() *models.Section {
	subAccount := int64(101)
	return &models.Section{
		Code:             "CIS1200001202510",
		SectionID:        "CIS1200001",
		SchoolCode:       "E",
		SubjectCode:      "CIS",
		CourseNumber:     "1200",
		SectionNumber:    "001",
		Term:             202510,
		Title:            "Programming Languages and Techniques I",
		ScheduleTypeCode: models.LectureCode,
		School: &models.School{
			Code:               "E",
			Name:               "Engineering",
			CanvasSubAccountID: &subAccount,
		},
		Instructors: []models.User{
			{ID: 7, Username: "prof", FirstName: "Ada", LastName: "Lovelace"},
		},
	}
}

// A request with no source course and a single instructor ends Completed
// with exactly one enrollment and no migration.
func TestProvisionHappyPath(t *testing.T) {
	request := approvedRequest("CIS1200001202510")
	section := engineeringSection()
	fixture := newProvisionFixture(request, section)
	fixture.resolver.ids["prof"] = 901

	course, err := fixture.service.Provision(context.Background(), request.SectionCode)
	require.NoError(t, err)
	require.NotNil(t, course)

	assert.Equal(t, models.StatusCompleted, request.Status)
	assert.Equal(t,
		[]models.Status{models.StatusInProcess, models.StatusCompleted},
		fixture.requests.statuses[request.SectionCode])

	assert.Equal(t, "CIS 1200-001 202510 Programming Languages and Techniques I", course.Name)
	assert.Equal(t, "BAN_CIS-1200-001 202510", course.SISCourseID)
	assert.Equal(t, int64(101), course.AccountID)

	require.Len(t, fixture.api.enrollCalls, 1)
	call := fixture.api.enrollCalls[0]
	assert.Equal(t, int64(901), call.userID)
	assert.Equal(t, "TeacherEnrollment", call.enrType)
	assert.Equal(t, "active", call.state)
	assert.Zero(t, call.roleID)

	// Enrollments target the canonical course section, not the default one.
	sections := fixture.api.sections[course.ID]
	require.Len(t, sections, 1)
	assert.Equal(t, course.Name, sections[0].Name)
	assert.Equal(t, sections[0].ID, call.sectionID)

	assert.Zero(t, fixture.migrations.calls, "no migration without a source course")
	assert.Empty(t, fixture.api.tabCalls, "no reserves tab without the flag")
	assert.Empty(t, fixture.requests.notes[request.SectionCode])
}

// Auto-add policies for the section's school and subject are enrolled, and
// designers use the librarian role id override.
func TestProvisionAutoAddsWithLibrarianOverride(t *testing.T) {
	request := approvedRequest("CIS1200001202510")
	section := engineeringSection()
	fixture := newProvisionFixture(request, section)
	fixture.resolver.ids["prof"] = 901
	fixture.resolver.ids["talib"] = 902
	fixture.resolver.ids["libdes"] = 903

	fixture.rows.autoAdds = []*models.AutoAdd{
		{SchoolCode: "E", SubjectCode: "CIS", UserID: 20, Role: models.RoleTA,
			User: &models.User{ID: 20, Username: "talib"}},
		{SchoolCode: "E", SubjectCode: "CIS", UserID: 21, Role: models.RoleDesigner,
			User: &models.User{ID: 21, Username: "libdes"}},
	}

	_, err := fixture.service.Provision(context.Background(), request.SectionCode)
	require.NoError(t, err)

	require.Len(t, fixture.api.enrollCalls, 3)
	assert.Equal(t, "TeacherEnrollment", fixture.api.enrollCalls[0].enrType)
	assert.Equal(t, "TaEnrollment", fixture.api.enrollCalls[1].enrType)
	assert.Zero(t, fixture.api.enrollCalls[1].roleID)
	assert.Equal(t, "DesignerEnrollment", fixture.api.enrollCalls[2].enrType)
	assert.Equal(t, int64(1383), fixture.api.enrollCalls[2].roleID)
}

// Creation failure falls back to update-by-SIS-id.
func TestProvisionCreateFallsBackToUpdate(t *testing.T) {
	request := approvedRequest("CIS1200001202510")
	section := engineeringSection()
	fixture := newProvisionFixture(request, section)
	fixture.resolver.ids["prof"] = 901

	existing := &canvas.Course{
		ID:          4242,
		Name:        "old name",
		SISCourseID: "BAN_CIS-1200-001 202510",
	}
	fixture.api.coursesBySIS[existing.SISCourseID] = existing
	fixture.api.failCreate = true

	course, err := fixture.service.Provision(context.Background(), request.SectionCode)
	require.NoError(t, err)

	assert.Equal(t, int64(4242), course.ID)
	assert.Equal(t, []string{"BAN_CIS-1200-001 202510"}, fixture.api.updated)
	assert.Equal(t, models.StatusCompleted, request.Status)

	// The canonical section is created on the updated site too.
	sections := fixture.api.sections[course.ID]
	require.Len(t, sections, 1)
	assert.Equal(t, course.Name, sections[0].Name)
}

// The online-routing flag sends sites of the designated school to the
// alternate sub-account.
func TestProvisionOnlineRouting(t *testing.T) {
	request := approvedRequest("ARTH1000001202510")
	request.LMSOnline = true
	subAccount := int64(77)
	section := engineeringSection()
	section.Code = "ARTH1000001202510"
	section.SchoolCode = "A"
	section.School = &models.School{Code: "A", Name: "Arts and Sciences", CanvasSubAccountID: &subAccount}
	fixture := newProvisionFixture(request, section)
	fixture.resolver.ids["prof"] = 901

	course, err := fixture.service.Provision(context.Background(), request.SectionCode)
	require.NoError(t, err)
	assert.Equal(t, int64(132413), course.AccountID)
}

// Included sections become schedule-type-qualified course sections unless
// one with the same name already exists.
func TestProvisionRelatedSections(t *testing.T) {
	request := approvedRequest("CIS1200001202510")
	section := engineeringSection()
	fixture := newProvisionFixture(request, section)
	fixture.resolver.ids["prof"] = 901

	lab := engineeringSection()
	lab.Code = "CIS1200101202510"
	lab.SectionID = "CIS1200101"
	lab.SectionNumber = "101"
	lab.ScheduleTypeCode = "LAB"
	fixture.requests.included[request.SectionCode] = []*models.Section{lab}

	course, err := fixture.service.Provision(context.Background(), request.SectionCode)
	require.NoError(t, err)

	sections := fixture.api.sections[course.ID]
	require.Len(t, sections, 2)
	assert.Equal(t,
		"CIS 1200-101 202510 LAB Programming Languages and Techniques I",
		sections[1].Name)
	assert.Equal(t, "BAN_CIS-1200-101 202510", sections[1].SISSectionID)
}

// The reserves flag turns the hidden library tab visible.
func TestProvisionReservesTab(t *testing.T) {
	request := approvedRequest("CIS1200001202510")
	request.Reserves = true
	fixture := newProvisionFixture(request, engineeringSection())
	fixture.resolver.ids["prof"] = 901

	course, err := fixture.service.Provision(context.Background(), request.SectionCode)
	require.NoError(t, err)

	require.Len(t, fixture.api.tabCalls, 1)
	assert.Equal(t, tabCall{
		courseID: course.ID,
		tabID:    "context_external_tool_139969",
		visible:  true,
	}, fixture.api.tabCalls[0])
}

// A completed migration triggers cleanup: announcements go when excluded,
// zoom events always.
func TestProvisionMigrationCleanup(t *testing.T) {
	sourceID := int64(9999)
	request := approvedRequest("CIS1200001202510")
	request.CopyFromCourse = &sourceID
	request.ExcludeAnnouncements = true
	fixture := newProvisionFixture(request, engineeringSection())
	fixture.resolver.ids["prof"] = 901

	fixture.api.nextID = 2000
	fixture.api.announcements[2001] = []canvas.Announcement{
		{ID: 1, Title: "Welcome"},
		{ID: 2, Title: "Syllabus posted"},
	}
	fixture.api.events[2001] = []canvas.CalendarEvent{
		{ID: 10, Title: "Lecture via Zoom"},
		{ID: 11, Title: "Office hours", LocationName: "zoom room 4"},
		{ID: 12, Title: "Midterm", LocationName: "DRLB A1"},
	}

	course, err := fixture.service.Provision(context.Background(), request.SectionCode)
	require.NoError(t, err)
	require.Equal(t, int64(2001), course.ID)

	assert.Equal(t, 1, fixture.migrations.calls)
	assert.Equal(t, sourceID, fixture.migrations.sourceID)
	assert.Equal(t, []int64{1, 2}, fixture.api.deletedAnnouncements)
	assert.Equal(t, []int64{10, 11}, fixture.api.deletedEvents, "only zoom events are deleted")
	assert.Equal(t, models.StatusCompleted, request.Status)
}

// An unsuccessful migration skips cleanup but does not fail the pipeline.
func TestProvisionMigrationFailureIsNotFatal(t *testing.T) {
	sourceID := int64(9999)
	request := approvedRequest("CIS1200001202510")
	request.CopyFromCourse = &sourceID
	fixture := newProvisionFixture(request, engineeringSection())
	fixture.resolver.ids["prof"] = 901
	fixture.migrations.completed = false

	fixture.api.nextID = 2000
	fixture.api.events[2001] = []canvas.CalendarEvent{{ID: 10, Title: "Lecture via Zoom"}}

	_, err := fixture.service.Provision(context.Background(), request.SectionCode)
	require.NoError(t, err)

	assert.Equal(t, models.StatusCompleted, request.Status)
	assert.Empty(t, fixture.api.deletedEvents, "cleanup is skipped")
}

// A failure mid-pipeline records the error with a timestamp in the process
// notes and lands the request in Error without raising.
func TestProvisionFailureRecordsProcessNotes(t *testing.T) {
	request := approvedRequest("CIS1200001202510")
	fixture := newProvisionFixture(request, engineeringSection())
	// No resolver entry for "prof": identity resolution fails mid-pipeline.

	at := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	fixture.service.now = func() time.Time { return at }

	_, err := fixture.service.Provision(context.Background(), request.SectionCode)
	require.Error(t, err)

	assert.Equal(t, models.StatusError, request.Status)
	notes := fixture.requests.notes[request.SectionCode]
	assert.Contains(t, notes, "2025-06-02T12:00:00Z: ")
	assert.Contains(t, notes, "no LMS account for prof")
}

// A completion that cannot be persisted is a failure like any other: the
// request lands in Error with a timestamped process note.
func TestProvisionCompletionWriteFailureLandsInError(t *testing.T) {
	request := approvedRequest("CIS1200001202510")
	fixture := newProvisionFixture(request, engineeringSection())
	fixture.resolver.ids["prof"] = 901
	fixture.requests.failStatus = models.StatusCompleted
	fixture.requests.failStatusErr = errors.New("request store unavailable")

	at := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	fixture.service.now = func() time.Time { return at }

	_, err := fixture.service.Provision(context.Background(), request.SectionCode)
	require.Error(t, err)

	assert.Equal(t, models.StatusError, request.Status)
	assert.Equal(t, []models.Status{models.StatusInProcess, models.StatusError},
		fixture.requests.statuses[request.SectionCode])
	notes := fixture.requests.notes[request.SectionCode]
	assert.Contains(t, notes, "2025-06-02T12:00:00Z: ")
	assert.Contains(t, notes, "request store unavailable")
}

// A failed request can be re-triggered, re-entering In Process.
func TestProvisionRetriesFromError(t *testing.T) {
	request := approvedRequest("CIS1200001202510")
	request.Status = models.StatusError
	fixture := newProvisionFixture(request, engineeringSection())
	fixture.resolver.ids["prof"] = 901

	_, err := fixture.service.Provision(context.Background(), request.SectionCode)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, request.Status)
}

// Requests outside Approved/Error never start provisioning.
func TestProvisionRejectsIneligibleStatus(t *testing.T) {
	request := approvedRequest("CIS1200001202510")
	request.Status = models.StatusLocked
	fixture := newProvisionFixture(request, engineeringSection())

	_, err := fixture.service.Provision(context.Background(), request.SectionCode)
	require.Error(t, err)
	assert.Equal(t, models.StatusLocked, request.Status)
	assert.Empty(t, fixture.api.created)
}

// Batch provisioning is strictly sequential and isolates failures.
func TestProvisionApprovedContinuesPastFailures(t *testing.T) {
	good := approvedRequest("CIS1200001202510")
	bad := approvedRequest("CIS5550001202510")

	goodSection := engineeringSection()
	badSection := engineeringSection()
	badSection.Code = "CIS5550001202510"
	badSection.School = &models.School{Code: "E", Name: "Engineering"} // no sub-account

	fixture := newProvisionFixture(good, goodSection)
	fixture.requests.requests[bad.SectionCode] = bad
	fixture.sections.sections[badSection.Code] = badSection
	fixture.resolver.ids["prof"] = 901

	provisioned, failed, err := fixture.service.ProvisionApproved(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, provisioned)
	assert.Equal(t, 1, failed)
	assert.Equal(t, models.StatusCompleted, good.Status)
	assert.Equal(t, models.StatusError, bad.Status)
}
