package services

import (
	"context"

	"github.com/oklib/courseflow/internal/app/models"
	"github.com/oklib/courseflow/internal/app/repositories"
)

// SectionService handles business logic for sections.
type SectionService struct {
	sections *repositories.SectionRepository
}

// NewSectionService creates a new section service.
func NewSectionService(sections *repositories.SectionRepository) *SectionService {
	return &SectionService{sections: sections}
}

// Get retrieves a section with its associations and related sections.
func (s *SectionService) Get(ctx context.Context, code string) (*models.Section, error) {
	section, err := s.sections.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	alsoOffered, err := s.sections.GetRelated(ctx, code, repositories.RelationAlsoOfferedAs)
	if err != nil {
		return nil, err
	}
	for _, related := range alsoOffered {
		section.AlsoOfferedAs = append(section.AlsoOfferedAs, *related)
	}

	courseSections, err := s.sections.GetRelated(ctx, code, repositories.RelationCourseSection)
	if err != nil {
		return nil, err
	}
	for _, related := range courseSections {
		section.CourseSections = append(section.CourseSections, *related)
	}

	return section, nil
}

// GetByTerm lists a term's sections, optionally filtered to those without
// a provisioning request and by a search string against code, subject and
// title.
func (s *SectionService) GetByTerm(ctx context.Context, term int, onlyUnrequested bool, search string) ([]*models.Section, error) {
	if search != "" {
		return s.sections.Search(ctx, term, search, onlyUnrequested)
	}
	return s.sections.GetByTerm(ctx, term, onlyUnrequested)
}
