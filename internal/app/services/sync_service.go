package services

import (
	"context"
	"errors"

	"github.com/oklib/courseflow/internal/app/models"
	"github.com/oklib/courseflow/internal/app/repositories"
	"github.com/oklib/courseflow/internal/canvas"
	"github.com/oklib/courseflow/internal/pkg/apperrors"
	"github.com/oklib/courseflow/internal/pkg/logger"
	"github.com/oklib/courseflow/internal/warehouse"
)

type syncSchoolStore interface {
	Upsert(ctx context.Context, school *models.School) error
	GetAll(ctx context.Context) ([]*models.School, error)
	SetSubAccountID(ctx context.Context, code string, subAccountID int64) error
}

type syncSubjectStore interface {
	Upsert(ctx context.Context, subject *models.Subject) error
}

type syncScheduleTypeStore interface {
	Upsert(ctx context.Context, scheduleType *models.ScheduleType) error
}

type syncSectionStore interface {
	GetByTerm(ctx context.Context, term int, onlyUnrequested bool) ([]*models.Section, error)
	Upsert(ctx context.Context, section *models.Section) error
	Delete(ctx context.Context, code string) error
	SetInstructors(ctx context.Context, code string, userIDs []int64) error
	AddRelation(ctx context.Context, code, relatedCode, relation string) error
}

type syncUserStore interface {
	Upsert(ctx context.Context, user *models.User) error
}

// SyncService mirrors the institutional directory into the local database:
// schools, subjects, schedule types and per-term registrar sections.
type SyncService struct {
	directory     warehouse.Directory
	schools       syncSchoolStore
	subjects      syncSubjectStore
	scheduleTypes syncScheduleTypeStore
	sections      syncSectionStore
	users         syncUserStore
	canvas        canvas.API
	rootAccountID int64
}

// NewSyncService creates a new sync service.
func NewSyncService(
	directory warehouse.Directory,
	schools syncSchoolStore,
	subjects syncSubjectStore,
	scheduleTypes syncScheduleTypeStore,
	sections syncSectionStore,
	users syncUserStore,
	api canvas.API,
	rootAccountID int64,
) *SyncService {
	return &SyncService{
		directory:     directory,
		schools:       schools,
		subjects:      subjects,
		scheduleTypes: scheduleTypes,
		sections:      sections,
		users:         users,
		canvas:        api,
		rootAccountID: rootAccountID,
	}
}

// SyncDimensions refreshes schools, subjects and schedule types, then
// resolves LMS sub-accounts for schools missing one. The sub-account
// snapshot is loaded once per call.
func (s *SyncService) SyncDimensions(ctx context.Context) error {
	log := logger.WithComponent("sync")

	schools, err := s.directory.ListSchools(ctx)
	if err != nil {
		return err
	}
	for _, record := range schools {
		if !models.IsCanvasSchool(record.Code) {
			log.Debug().Str("school", record.Name).Msg("Skipping school with no LMS presence")
			continue
		}
		school := &models.School{Code: record.Code, Name: record.Name, Visible: true}
		if err := s.schools.Upsert(ctx, school); err != nil {
			return err
		}
	}

	subjects, err := s.directory.ListSubjects(ctx)
	if err != nil {
		return err
	}
	for _, record := range subjects {
		if !models.IsCanvasSchool(record.SchoolCode) {
			continue
		}
		subject := &models.Subject{
			Code:       record.Code,
			Name:       record.Name,
			SchoolCode: record.SchoolCode,
			Visible:    true,
		}
		if err := s.subjects.Upsert(ctx, subject); err != nil {
			return err
		}
	}

	scheduleTypes, err := s.directory.ListScheduleTypes(ctx)
	if err != nil {
		return err
	}
	for _, record := range scheduleTypes {
		scheduleType := &models.ScheduleType{Code: record.Code, Name: record.Name}
		if err := s.scheduleTypes.Upsert(ctx, scheduleType); err != nil {
			return err
		}
	}

	return s.resolveSubAccounts(ctx)
}

// resolveSubAccounts matches schools without a sub-account id against a
// fresh snapshot of the LMS account tree.
func (s *SyncService) resolveSubAccounts(ctx context.Context) error {
	accountDirectory, err := canvas.LoadAccountDirectory(ctx, s.canvas, s.rootAccountID)
	if err != nil {
		return err
	}

	schools, err := s.schools.GetAll(ctx)
	if err != nil {
		return err
	}
	for _, school := range schools {
		if school.CanvasSubAccountID != nil {
			continue
		}
		subAccountID, found := accountDirectory.FindForSchool(school.CanvasName())
		if !found {
			logger.Warn().Str("school", school.Name).Msg("No LMS sub-account matches school")
			continue
		}
		if err := s.schools.SetSubAccountID(ctx, school.Code, subAccountID); err != nil {
			return err
		}
	}
	return nil
}

// SyncTerm mirrors one term's registrar sections. Sections of schools or
// schedule types that never get sites are skipped; sections the registrar
// reports as canceled are deleted locally.
func (s *SyncService) SyncTerm(ctx context.Context, term int) error {
	log := logger.WithComponent("sync")

	records, err := s.directory.ListTermSections(ctx, term)
	if err != nil {
		return err
	}

	synced := 0
	for _, record := range records {
		if s.skipRecord(record) {
			continue
		}

		code := models.SectionCodeFor(record.SectionID, record.Term)
		if record.Status != warehouse.ActiveSectionStatus {
			if err := s.sections.Delete(ctx, code); err != nil {
				if errors.Is(err, apperrors.ErrSectionNotFound) {
					continue
				}
				return err
			}
			log.Info().Str("section", code).Msg("Deleted canceled section")
			continue
		}

		if err := s.syncSection(ctx, record); err != nil {
			return err
		}
		synced++
	}

	if err := s.relateSections(ctx, term); err != nil {
		return err
	}

	log.Info().Int("term", term).Int("sections", synced).Msg("Term sync finished")
	return nil
}

func (s *SyncService) skipRecord(record warehouse.SectionRecord) bool {
	if !models.IsCanvasSchool(record.SchoolCode) || record.SchoolCode == models.WhartonSchoolCode {
		return true
	}
	return !models.IsProvisionedScheduleType(record.ScheduleType)
}

func (s *SyncService) syncSection(ctx context.Context, record warehouse.SectionRecord) error {
	section := &models.Section{
		Code:             models.SectionCodeFor(record.SectionID, record.Term),
		SectionID:        record.SectionID,
		SchoolCode:       record.SchoolCode,
		SubjectCode:      record.SubjectCode,
		CourseNumber:     record.CourseNumber,
		SectionNumber:    record.SectionCode,
		Term:             record.Term,
		Title:            record.Title,
		ScheduleTypeCode: record.ScheduleType,
	}
	if record.XlistFamily != "" {
		family := record.XlistFamily
		section.XlistFamily = &family
	}
	if record.PrimaryCrosslist != "" && record.PrimaryCrosslist != record.SectionID {
		primary := models.SectionCodeFor(record.PrimaryCrosslist, record.Term)
		section.PrimarySectionCode = &primary
	}

	instructors, err := s.directory.ListSectionInstructors(ctx, record.SectionID, record.Term)
	if err != nil {
		return err
	}

	instructorIDs := make([]int64, 0, len(instructors))
	for _, person := range instructors {
		user := &models.User{
			Username:  person.LoginID,
			FirstName: person.FirstName,
			LastName:  person.LastName,
			Email:     person.Email,
			SISID:     person.SISID,
		}
		if err := s.users.Upsert(ctx, user); err != nil {
			return err
		}
		instructorIDs = append(instructorIDs, user.ID)
	}
	if len(instructorIDs) > 0 {
		section.PrimaryInstructorID = &instructorIDs[0]
	}

	if err := s.sections.Upsert(ctx, section); err != nil {
		return err
	}
	return s.sections.SetInstructors(ctx, section.Code, instructorIDs)
}

// relateSections rebuilds the symmetric section associations for a term:
// crosslisted siblings share an xlist family, course sections share
// subject and course number.
func (s *SyncService) relateSections(ctx context.Context, term int) error {
	sections, err := s.sections.GetByTerm(ctx, term, false)
	if err != nil {
		return err
	}

	byFamily := make(map[string][]*models.Section)
	byCourse := make(map[string][]*models.Section)
	for _, section := range sections {
		if section.XlistFamily != nil {
			byFamily[*section.XlistFamily] = append(byFamily[*section.XlistFamily], section)
		}
		courseKey := section.SubjectCode + section.CourseNumber
		byCourse[courseKey] = append(byCourse[courseKey], section)
	}

	for _, group := range byFamily {
		if err := s.relateGroup(ctx, group, repositories.RelationAlsoOfferedAs); err != nil {
			return err
		}
	}
	for _, group := range byCourse {
		if err := s.relateGroup(ctx, group, repositories.RelationCourseSection); err != nil {
			return err
		}
	}
	return nil
}

func (s *SyncService) relateGroup(ctx context.Context, group []*models.Section, relation string) error {
	for i := 0; i < len(group); i++ {
		for j := i + 1; j < len(group); j++ {
			if err := s.sections.AddRelation(ctx, group[i].Code, group[j].Code, relation); err != nil {
				return err
			}
		}
	}
	return nil
}

// SyncTerms mirrors several terms in order.
func (s *SyncService) SyncTerms(ctx context.Context, terms ...int) error {
	for _, term := range terms {
		if err := s.SyncTerm(ctx, term); err != nil {
			return err
		}
	}
	return nil
}
