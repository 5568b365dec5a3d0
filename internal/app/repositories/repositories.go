package repositories

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repositories holds all the repository instances
type Repositories struct {
	UserRepository         *UserRepository
	SchoolRepository       *SchoolRepository
	SubjectRepository      *SubjectRepository
	ScheduleTypeRepository *ScheduleTypeRepository
	SectionRepository      *SectionRepository
	RequestRepository      *RequestRepository
	EnrollmentRepository   *EnrollmentRepository
}

// NewRepositories initializes all repositories
func NewRepositories(db *pgxpool.Pool) *Repositories {
	return &Repositories{
		UserRepository:         NewUserRepository(db),
		SchoolRepository:       NewSchoolRepository(db),
		SubjectRepository:      NewSubjectRepository(db),
		ScheduleTypeRepository: NewScheduleTypeRepository(db),
		SectionRepository:      NewSectionRepository(db),
		RequestRepository:      NewRequestRepository(db),
		EnrollmentRepository:   NewEnrollmentRepository(db),
	}
}
