package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oklib/courseflow/internal/app/models"
	"github.com/oklib/courseflow/internal/app/repositories"
	"github.com/oklib/courseflow/internal/canvas"
	"github.com/oklib/courseflow/internal/warehouse"
)

type syncFixture struct {
	service       *SyncService
	directory     *fakeDirectory
	schools       *fakeSchoolStore
	subjects      *fakeSubjectStore
	scheduleTypes *fakeScheduleTypeStore
	sections      *fakeSyncSectionStore
	users         *fakeUserStore
	api           *fakeCanvas
}

func newSyncFixture(directory *fakeDirectory, sections *fakeSyncSectionStore) *syncFixture {
	fixture := &syncFixture{
		directory:     directory,
		schools:       newFakeSchoolStore(),
		subjects:      newFakeSubjectStore(),
		scheduleTypes: newFakeScheduleTypeStore(),
		sections:      sections,
		users:         newFakeUserStore(),
		api:           newFakeCanvas(),
	}
	fixture.service = NewSyncService(
		directory,
		fixture.schools,
		fixture.subjects,
		fixture.scheduleTypes,
		fixture.sections,
		fixture.users,
		fixture.api,
		96678,
	)
	return fixture
}

func activeRecord(sectionID, subject, courseNumber, sectionNumber string) warehouse.SectionRecord {
	return warehouse.SectionRecord{
		SectionID:    sectionID,
		Term:         202510,
		SchoolCode:   "E",
		SubjectCode:  subject,
		CourseNumber: courseNumber,
		SectionCode:  sectionNumber,
		ScheduleType: "LEC",
		Status:       warehouse.ActiveSectionStatus,
	}
}

// Sections the registrar no longer reports as active are deleted locally;
// active ones are mirrored with their instructors.
func TestSyncTermRemovesCanceledSections(t *testing.T) {
	canceledCode := models.SectionCodeFor("MATH2400001", 202510)

	canceled := activeRecord("MATH2400001", "MATH", "2400", "001")
	canceled.Status = "X"
	unknownCanceled := activeRecord("PHYS0150001", "PHYS", "0150", "001")
	unknownCanceled.Status = "X"
	active := activeRecord("CIS1200001", "CIS", "1200", "001")
	active.Title = "Programming Languages and Techniques I"

	directory := &fakeDirectory{
		sections: []warehouse.SectionRecord{active, canceled, unknownCanceled},
		instructors: map[string][]warehouse.Person{
			"CIS1200001": {{LoginID: "prof", SISID: "10000001", FirstName: "Ada", LastName: "Lovelace"}},
		},
	}
	store := newFakeSyncSectionStore(&models.Section{
		Code:      canceledCode,
		SectionID: "MATH2400001",
		Term:      202510,
	})
	fixture := newSyncFixture(directory, store)

	require.NoError(t, fixture.service.SyncTerm(context.Background(), 202510))

	// The known canceled row is gone; the unknown one is a silent no-op.
	assert.Equal(t, []string{canceledCode}, store.deleted)
	assert.NotContains(t, store.sections, canceledCode)

	synced, ok := store.sections[models.SectionCodeFor("CIS1200001", 202510)]
	require.True(t, ok)
	assert.Equal(t, "Programming Languages and Techniques I", synced.Title)
	require.NotNil(t, synced.PrimaryInstructorID)
	assert.Equal(t, []int64{*synced.PrimaryInstructorID}, store.instructors[synced.Code])
}

// Non-LMS schools, Wharton and non-provisioned schedule types never touch
// the local section table, active or not.
func TestSyncTermSkipsIneligibleSections(t *testing.T) {
	law := activeRecord("LAW6000001", "LAW", "6000", "001")
	law.SchoolCode = models.LawSchoolCode
	wharton := activeRecord("MGMT1010001", "MGMT", "1010", "001")
	wharton.SchoolCode = models.WhartonSchoolCode
	independent := activeRecord("CIS8990001", "CIS", "8990", "001")
	independent.ScheduleType = "IND"

	directory := &fakeDirectory{
		sections: []warehouse.SectionRecord{law, wharton, independent},
	}
	store := newFakeSyncSectionStore()
	fixture := newSyncFixture(directory, store)

	require.NoError(t, fixture.service.SyncTerm(context.Background(), 202510))

	assert.Empty(t, store.sections)
	assert.Empty(t, store.deleted)
}

func TestSyncTermRelatesSections(t *testing.T) {
	lecture := activeRecord("CIS1200001", "CIS", "1200", "001")
	recitation := activeRecord("CIS1200002", "CIS", "1200", "002")
	recitation.ScheduleType = "REC"
	anthro := activeRecord("ANTH1004001", "ANTH", "1004", "001")
	anthro.XlistFamily = "X1"
	religion := activeRecord("RELS1234001", "RELS", "1234", "001")
	religion.XlistFamily = "X1"

	directory := &fakeDirectory{
		sections: []warehouse.SectionRecord{lecture, recitation, anthro, religion},
	}
	fixture := newSyncFixture(directory, newFakeSyncSectionStore())

	require.NoError(t, fixture.service.SyncTerm(context.Background(), 202510))

	pairs := map[string]string{}
	for _, rel := range fixture.sections.relations {
		first, second := rel.code, rel.related
		if second < first {
			first, second = second, first
		}
		pairs[first+" "+second] = rel.relation
	}
	assert.Equal(t, map[string]string{
		"ANTH1004001202510 RELS1234001202510": repositories.RelationAlsoOfferedAs,
		"CIS1200001202510 CIS1200002202510":   repositories.RelationCourseSection,
	}, pairs)
}

func TestSyncDimensionsMirrorsCanvasSchools(t *testing.T) {
	directory := &fakeDirectory{
		schools: []warehouse.SchoolRecord{
			{Code: "E", Name: "Engineering & Applied Science"},
			{Code: models.LawSchoolCode, Name: "Law"},
		},
		subjects: []warehouse.SubjectRecord{
			{Code: "CIS", Name: "Computer and Information Science", SchoolCode: "E"},
			{Code: "LAWM", Name: "Law Masters", SchoolCode: models.LawSchoolCode},
		},
		scheduleTypes: []warehouse.ScheduleTypeRecord{{Code: "LEC", Name: "Lecture"}},
	}
	fixture := newSyncFixture(directory, newFakeSyncSectionStore())
	fixture.api.accounts = []canvas.Account{{ID: 101, Name: "Engineering and Applied Science"}}

	require.NoError(t, fixture.service.SyncDimensions(context.Background()))

	assert.Contains(t, fixture.schools.schools, "E")
	assert.NotContains(t, fixture.schools.schools, models.LawSchoolCode)
	assert.Contains(t, fixture.subjects.subjects, "CIS")
	assert.NotContains(t, fixture.subjects.subjects, "LAWM")
	assert.Contains(t, fixture.scheduleTypes.types, "LEC")
	assert.Equal(t, int64(101), fixture.schools.subAccounts["E"])
}
