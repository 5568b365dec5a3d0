package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/oklib/courseflow/internal/app/models"
	"github.com/oklib/courseflow/internal/canvas"
	"github.com/oklib/courseflow/internal/pkg/apperrors"
	"github.com/oklib/courseflow/internal/warehouse"
)

// fakeRequestStore backs request lookups, status writes and process notes.
// Setting failStatus makes writes of that status fail with failStatusErr.
type fakeRequestStore struct {
	requests      map[string]*models.Request
	included      map[string][]*models.Section
	notes         map[string]string
	statuses      map[string][]models.Status
	failStatus    models.Status
	failStatusErr error
}

func newFakeRequestStore(requests ...*models.Request) *fakeRequestStore {
	store := &fakeRequestStore{
		requests: map[string]*models.Request{},
		included: map[string][]*models.Section{},
		notes:    map[string]string{},
		statuses: map[string][]models.Status{},
	}
	for _, request := range requests {
		store.requests[request.SectionCode] = request
	}
	return store
}

func (f *fakeRequestStore) GetBySectionCode(_ context.Context, sectionCode string) (*models.Request, error) {
	request, ok := f.requests[sectionCode]
	if !ok {
		return nil, apperrors.ErrRequestNotFound
	}
	return request, nil
}

func (f *fakeRequestStore) GetByStatus(_ context.Context, status models.Status) ([]*models.Request, error) {
	var matched []*models.Request
	for _, request := range f.requests {
		if request.Status == status {
			matched = append(matched, request)
		}
	}
	return matched, nil
}

func (f *fakeRequestStore) GetIncludedSections(_ context.Context, sectionCode string) ([]*models.Section, error) {
	return f.included[sectionCode], nil
}

func (f *fakeRequestStore) UpdateProcessNotes(_ context.Context, sectionCode, notes string) error {
	f.notes[sectionCode] = notes
	return nil
}

func (f *fakeRequestStore) UpdateStatus(_ context.Context, sectionCode string, status models.Status) error {
	if _, ok := f.requests[sectionCode]; !ok {
		return apperrors.ErrRequestNotFound
	}
	if f.failStatus != "" && status == f.failStatus {
		return f.failStatusErr
	}
	f.statuses[sectionCode] = append(f.statuses[sectionCode], status)
	return nil
}

// fakeSectionStore backs section lookups.
type fakeSectionStore struct {
	sections map[string]*models.Section
}

func newFakeSectionStore(sections ...*models.Section) *fakeSectionStore {
	store := &fakeSectionStore{sections: map[string]*models.Section{}}
	for _, section := range sections {
		store.sections[section.Code] = section
	}
	return store
}

func (f *fakeSectionStore) GetByCode(_ context.Context, code string) (*models.Section, error) {
	section, ok := f.sections[code]
	if !ok {
		return nil, apperrors.ErrSectionNotFound
	}
	return section, nil
}

// fakeEnrollmentStore backs the enrollment calculator.
type fakeEnrollmentStore struct {
	rows     []*models.SectionEnrollment
	autoAdds []*models.AutoAdd
	nextID   int64
}

func (f *fakeEnrollmentStore) GetOrCreate(_ context.Context, enrollment *models.SectionEnrollment) error {
	for _, row := range f.rows {
		if row.RequestID == enrollment.RequestID &&
			row.UserID == enrollment.UserID &&
			row.Role == enrollment.Role {
			*enrollment = *row
			return nil
		}
	}
	f.nextID++
	enrollment.ID = f.nextID
	f.rows = append(f.rows, enrollment)
	return nil
}

func (f *fakeEnrollmentStore) GetManualByRequest(_ context.Context, requestID string) ([]*models.SectionEnrollment, error) {
	var manual []*models.SectionEnrollment
	for _, row := range f.rows {
		if row.RequestID == requestID && row.Manual {
			manual = append(manual, row)
		}
	}
	return manual, nil
}

func (f *fakeEnrollmentStore) GetAutoAddsFor(_ context.Context, schoolCode, subjectCode string) ([]*models.AutoAdd, error) {
	var matched []*models.AutoAdd
	for _, autoAdd := range f.autoAdds {
		if autoAdd.SchoolCode == schoolCode && autoAdd.SubjectCode == subjectCode {
			matched = append(matched, autoAdd)
		}
	}
	return matched, nil
}

// fakeResolver maps usernames straight to LMS ids.
type fakeResolver struct {
	ids   map[string]int64
	calls []string
}

func (f *fakeResolver) LookupOrProvision(_ context.Context, username string) (int64, error) {
	f.calls = append(f.calls, username)
	id, ok := f.ids[username]
	if !ok {
		return 0, fmt.Errorf("no LMS account for %s", username)
	}
	return id, nil
}

// fakeMigrationRunner reports a fixed migration outcome.
type fakeMigrationRunner struct {
	completed bool
	err       error
	calls     int
	courseID  int64
	sourceID  int64
}

func (f *fakeMigrationRunner) Await(_ context.Context, courseID, sourceCourseID int64) (bool, error) {
	f.calls++
	f.courseID = courseID
	f.sourceID = sourceCourseID
	return f.completed, f.err
}

// fakeUserStore backs the directory resolver.
type fakeUserStore struct {
	users  map[string]*models.User
	nextID int64
}

func newFakeUserStore(users ...*models.User) *fakeUserStore {
	store := &fakeUserStore{users: map[string]*models.User{}}
	for _, user := range users {
		store.users[user.Username] = user
		if user.ID > store.nextID {
			store.nextID = user.ID
		}
	}
	return store
}

func (f *fakeUserStore) GetByUsername(_ context.Context, username string) (*models.User, error) {
	user, ok := f.users[username]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	return user, nil
}

func (f *fakeUserStore) Upsert(_ context.Context, user *models.User) error {
	if existing, ok := f.users[user.Username]; ok {
		user.ID = existing.ID
		f.users[user.Username] = user
		return nil
	}
	f.nextID++
	user.ID = f.nextID
	f.users[user.Username] = user
	return nil
}

func (f *fakeUserStore) SetCanvasID(_ context.Context, userID, canvasID int64) error {
	for _, user := range f.users {
		if user.ID == userID {
			id := canvasID
			user.CanvasID = &id
			return nil
		}
	}
	return apperrors.ErrUserNotFound
}

// fakePersonLookup backs warehouse person resolution.
type fakePersonLookup struct {
	people map[string]*warehouse.Person
}

func (f *fakePersonLookup) GetPerson(_ context.Context, loginID string) (*warehouse.Person, error) {
	person, ok := f.people[loginID]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	return person, nil
}

type enrollCall struct {
	courseID  int64
	userID    int64
	enrType   string
	sectionID int64
	roleID    int64
	state     string
}

type tabCall struct {
	courseID int64
	tabID    string
	visible  bool
}

// fakeCanvas is an in-memory stand-in for the LMS API.
type fakeCanvas struct {
	users        map[string]*canvas.User
	createdUsers []canvas.NewUser

	coursesBySIS map[string]*canvas.Course
	sections     map[int64][]canvas.Section
	failCreate   bool
	created      []int64
	updated      []string

	terms []canvas.EnrollmentTerm

	enrollCalls []enrollCall
	enrollErr   error

	tabCalls []tabCall

	migrationStatuses    []canvas.MigrationStatus
	statusIndex          int
	startErr             error
	migrationsStarted    int
	announcements        map[int64][]canvas.Announcement
	events               map[int64][]canvas.CalendarEvent
	deletedAnnouncements []int64
	deletedEvents        []int64

	accounts []canvas.Account

	nextID int64
}

var _ canvas.API = (*fakeCanvas)(nil)

func newFakeCanvas() *fakeCanvas {
	return &fakeCanvas{
		users:         map[string]*canvas.User{},
		coursesBySIS:  map[string]*canvas.Course{},
		sections:      map[int64][]canvas.Section{},
		announcements: map[int64][]canvas.Announcement{},
		events:        map[int64][]canvas.CalendarEvent{},
		nextID:        1000,
	}
}

func (f *fakeCanvas) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeCanvas) FindUserByLogin(_ context.Context, loginID string) (*canvas.User, error) {
	user, ok := f.users[loginID]
	if !ok {
		return nil, canvas.ErrNotFound
	}
	return user, nil
}

func (f *fakeCanvas) CreateUser(_ context.Context, _ int64, newUser canvas.NewUser) (*canvas.User, error) {
	f.createdUsers = append(f.createdUsers, newUser)
	user := &canvas.User{ID: f.id(), Name: newUser.Name, LoginID: newUser.LoginID}
	f.users[newUser.LoginID] = user
	return user, nil
}

func (f *fakeCanvas) CreateCourse(_ context.Context, accountID int64, payload canvas.CoursePayload) (*canvas.Course, error) {
	if f.failCreate {
		return nil, errors.New("sis_course_id already in use")
	}
	course := &canvas.Course{
		ID:          f.id(),
		Name:        payload.Name,
		SISCourseID: payload.SISCourseID,
		CourseCode:  payload.CourseCode,
		AccountID:   accountID,
	}
	f.coursesBySIS[payload.SISCourseID] = course
	f.created = append(f.created, course.ID)
	return course, nil
}

func (f *fakeCanvas) UpdateCourse(_ context.Context, sisCourseID string, payload canvas.CoursePayload) (*canvas.Course, error) {
	course, ok := f.coursesBySIS[sisCourseID]
	if !ok {
		return nil, canvas.ErrNotFound
	}
	course.Name = payload.Name
	f.updated = append(f.updated, sisCourseID)
	return course, nil
}

func (f *fakeCanvas) GetCourseBySISID(_ context.Context, sisCourseID string) (*canvas.Course, error) {
	course, ok := f.coursesBySIS[sisCourseID]
	if !ok {
		return nil, canvas.ErrNotFound
	}
	return course, nil
}

func (f *fakeCanvas) GetCourse(_ context.Context, courseID int64) (*canvas.Course, error) {
	for _, course := range f.coursesBySIS {
		if course.ID == courseID {
			return course, nil
		}
	}
	return nil, canvas.ErrNotFound
}

func (f *fakeCanvas) ListSections(_ context.Context, courseID int64) ([]canvas.Section, error) {
	return f.sections[courseID], nil
}

func (f *fakeCanvas) CreateSection(_ context.Context, courseID int64, name, sisSectionID string) (*canvas.Section, error) {
	section := canvas.Section{ID: f.id(), CourseID: courseID, Name: name, SISSectionID: sisSectionID}
	f.sections[courseID] = append(f.sections[courseID], section)
	return &section, nil
}

func (f *fakeCanvas) Enroll(_ context.Context, courseID, userID int64, enrollmentType string, opts canvas.EnrollmentOptions) error {
	if f.enrollErr != nil {
		return f.enrollErr
	}
	f.enrollCalls = append(f.enrollCalls, enrollCall{
		courseID:  courseID,
		userID:    userID,
		enrType:   enrollmentType,
		sectionID: opts.SectionID,
		roleID:    opts.RoleID,
		state:     opts.State,
	})
	return nil
}

func (f *fakeCanvas) StartContentCopy(_ context.Context, courseID, _ int64) (*canvas.Migration, error) {
	if f.startErr != nil {
		return nil, f.startErr
	}
	f.migrationsStarted++
	return &canvas.Migration{ID: f.id(), ProgressURL: fmt.Sprintf("/progress/%d", courseID)}, nil
}

func (f *fakeCanvas) GetMigrationStatus(_ context.Context, _ *canvas.Migration) (canvas.MigrationStatus, error) {
	if f.statusIndex >= len(f.migrationStatuses) {
		return canvas.MigrationComplete, nil
	}
	status := f.migrationStatuses[f.statusIndex]
	f.statusIndex++
	return status, nil
}

func (f *fakeCanvas) ListCalendarEvents(_ context.Context, courseID int64) ([]canvas.CalendarEvent, error) {
	return f.events[courseID], nil
}

func (f *fakeCanvas) DeleteCalendarEvent(_ context.Context, eventID int64, _ string) error {
	f.deletedEvents = append(f.deletedEvents, eventID)
	return nil
}

func (f *fakeCanvas) ListAnnouncements(_ context.Context, courseID int64) ([]canvas.Announcement, error) {
	return f.announcements[courseID], nil
}

func (f *fakeCanvas) DeleteAnnouncement(_ context.Context, _, announcementID int64) error {
	f.deletedAnnouncements = append(f.deletedAnnouncements, announcementID)
	return nil
}

func (f *fakeCanvas) SetTabVisibility(_ context.Context, courseID int64, tabID string, visible bool) error {
	f.tabCalls = append(f.tabCalls, tabCall{courseID: courseID, tabID: tabID, visible: visible})
	return nil
}

func (f *fakeCanvas) ListEnrollmentTerms(_ context.Context, _ int64) ([]canvas.EnrollmentTerm, error) {
	return f.terms, nil
}

func (f *fakeCanvas) ListSubAccounts(_ context.Context, _ int64, _ bool) ([]canvas.Account, error) {
	return f.accounts, nil
}

// fakeDirectory is an in-memory warehouse.
type fakeDirectory struct {
	people        map[string]*warehouse.Person
	sections      []warehouse.SectionRecord
	instructors   map[string][]warehouse.Person
	schools       []warehouse.SchoolRecord
	subjects      []warehouse.SubjectRecord
	scheduleTypes []warehouse.ScheduleTypeRecord
}

func (f *fakeDirectory) GetPerson(_ context.Context, loginID string) (*warehouse.Person, error) {
	person, ok := f.people[loginID]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	return person, nil
}

func (f *fakeDirectory) ListTermSections(_ context.Context, term int) ([]warehouse.SectionRecord, error) {
	var matched []warehouse.SectionRecord
	for _, record := range f.sections {
		if record.Term == term {
			matched = append(matched, record)
		}
	}
	return matched, nil
}

func (f *fakeDirectory) ListSectionInstructors(_ context.Context, sectionID string, _ int) ([]warehouse.Person, error) {
	return f.instructors[sectionID], nil
}

func (f *fakeDirectory) ListSchools(_ context.Context) ([]warehouse.SchoolRecord, error) {
	return f.schools, nil
}

func (f *fakeDirectory) ListSubjects(_ context.Context) ([]warehouse.SubjectRecord, error) {
	return f.subjects, nil
}

func (f *fakeDirectory) ListScheduleTypes(_ context.Context) ([]warehouse.ScheduleTypeRecord, error) {
	return f.scheduleTypes, nil
}

// fakeSyncSectionStore backs the section side of directory sync.
type relationCall struct {
	code     string
	related  string
	relation string
}

type fakeSyncSectionStore struct {
	sections    map[string]*models.Section
	deleted     []string
	instructors map[string][]int64
	relations   []relationCall
}

func newFakeSyncSectionStore(sections ...*models.Section) *fakeSyncSectionStore {
	store := &fakeSyncSectionStore{
		sections:    map[string]*models.Section{},
		instructors: map[string][]int64{},
	}
	for _, section := range sections {
		store.sections[section.Code] = section
	}
	return store
}

func (f *fakeSyncSectionStore) GetByTerm(_ context.Context, term int, _ bool) ([]*models.Section, error) {
	var matched []*models.Section
	for _, section := range f.sections {
		if section.Term == term {
			matched = append(matched, section)
		}
	}
	return matched, nil
}

func (f *fakeSyncSectionStore) Upsert(_ context.Context, section *models.Section) error {
	f.sections[section.Code] = section
	return nil
}

func (f *fakeSyncSectionStore) Delete(_ context.Context, code string) error {
	if _, ok := f.sections[code]; !ok {
		return apperrors.ErrSectionNotFound
	}
	delete(f.sections, code)
	f.deleted = append(f.deleted, code)
	return nil
}

func (f *fakeSyncSectionStore) SetInstructors(_ context.Context, code string, userIDs []int64) error {
	f.instructors[code] = userIDs
	return nil
}

func (f *fakeSyncSectionStore) AddRelation(_ context.Context, code, relatedCode, relation string) error {
	f.relations = append(f.relations, relationCall{code: code, related: relatedCode, relation: relation})
	return nil
}

// fakeSchoolStore backs the school dimension of directory sync.
type fakeSchoolStore struct {
	schools     map[string]*models.School
	subAccounts map[string]int64
}

func newFakeSchoolStore(schools ...*models.School) *fakeSchoolStore {
	store := &fakeSchoolStore{
		schools:     map[string]*models.School{},
		subAccounts: map[string]int64{},
	}
	for _, school := range schools {
		store.schools[school.Code] = school
	}
	return store
}

func (f *fakeSchoolStore) Upsert(_ context.Context, school *models.School) error {
	f.schools[school.Code] = school
	return nil
}

func (f *fakeSchoolStore) GetAll(_ context.Context) ([]*models.School, error) {
	var all []*models.School
	for _, school := range f.schools {
		all = append(all, school)
	}
	return all, nil
}

func (f *fakeSchoolStore) SetSubAccountID(_ context.Context, code string, subAccountID int64) error {
	school, ok := f.schools[code]
	if !ok {
		return apperrors.ErrSchoolNotFound
	}
	id := subAccountID
	school.CanvasSubAccountID = &id
	f.subAccounts[code] = subAccountID
	return nil
}

// fakeSubjectStore backs the subject dimension of directory sync.
type fakeSubjectStore struct {
	subjects map[string]*models.Subject
}

func newFakeSubjectStore() *fakeSubjectStore {
	return &fakeSubjectStore{subjects: map[string]*models.Subject{}}
}

func (f *fakeSubjectStore) Upsert(_ context.Context, subject *models.Subject) error {
	f.subjects[subject.Code] = subject
	return nil
}

// fakeScheduleTypeStore backs the schedule type dimension of directory sync.
type fakeScheduleTypeStore struct {
	types map[string]*models.ScheduleType
}

func newFakeScheduleTypeStore() *fakeScheduleTypeStore {
	return &fakeScheduleTypeStore{types: map[string]*models.ScheduleType{}}
}

func (f *fakeScheduleTypeStore) Upsert(_ context.Context, scheduleType *models.ScheduleType) error {
	f.types[scheduleType.Code] = scheduleType
	return nil
}
