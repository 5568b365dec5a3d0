package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/oklib/courseflow/internal/app/models"
	"github.com/oklib/courseflow/internal/canvas"
	"github.com/oklib/courseflow/internal/pkg/apperrors"
	"github.com/oklib/courseflow/internal/pkg/logger"
	"github.com/oklib/courseflow/internal/warehouse"
)

type directoryUserStore interface {
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Upsert(ctx context.Context, user *models.User) error
	SetCanvasID(ctx context.Context, userID, canvasID int64) error
}

type personLookup interface {
	GetPerson(ctx context.Context, loginID string) (*warehouse.Person, error)
}

// DirectoryService resolves local identities to external LMS account ids.
// Resolution is an explicit two-step API: Lookup never creates anything,
// Provision always does. Callers that want both use LookupOrProvision.
type DirectoryService struct {
	users     directoryUserStore
	people    personLookup
	canvas    canvas.API
	accountID int64
}

// NewDirectoryService creates a new directory service. accountID is the
// root account new LMS users are minted under.
func NewDirectoryService(users directoryUserStore, people personLookup, api canvas.API, accountID int64) *DirectoryService {
	return &DirectoryService{
		users:     users,
		people:    people,
		canvas:    api,
		accountID: accountID,
	}
}

// EnsureUser returns the local user for a login key, pulling the record
// from the institutional directory on first sight.
func (s *DirectoryService) EnsureUser(ctx context.Context, username string) (*models.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, apperrors.ErrUserNotFound) {
		return nil, err
	}

	person, err := s.people.GetPerson(ctx, username)
	if err != nil {
		return nil, err
	}

	user = &models.User{
		Username:  person.LoginID,
		FirstName: person.FirstName,
		LastName:  person.LastName,
		Email:     person.Email,
		SISID:     person.SISID,
	}
	if err := s.users.Upsert(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Lookup resolves a username to an LMS account id without creating one.
// The second return value reports whether an account exists.
func (s *DirectoryService) Lookup(ctx context.Context, username string) (int64, bool, error) {
	user, err := s.EnsureUser(ctx, username)
	if err != nil {
		return 0, false, err
	}
	if user.CanvasID != nil {
		return *user.CanvasID, true, nil
	}

	canvasUser, err := s.canvas.FindUserByLogin(ctx, username)
	if err != nil {
		if errors.Is(err, canvas.ErrNotFound) {
			return 0, false, nil
		}
		return 0, false, err
	}

	if err := s.users.SetCanvasID(ctx, user.ID, canvasUser.ID); err != nil {
		return 0, false, err
	}
	return canvasUser.ID, true, nil
}

// Provision mints a new LMS account for the username and caches the id.
// It does not re-check for an existing account; callers are expected to
// Lookup first.
func (s *DirectoryService) Provision(ctx context.Context, username string) (int64, error) {
	user, err := s.EnsureUser(ctx, username)
	if err != nil {
		return 0, err
	}

	canvasUser, err := s.canvas.CreateUser(ctx, s.accountID, canvas.NewUser{
		LoginID:   user.Username,
		SISUserID: user.SISID,
		Name:      user.FullName(),
		Email:     user.Email,
	})
	if err != nil {
		return 0, fmt.Errorf("provisioning LMS account for %s: %w", username, err)
	}

	logger.Info().Str("username", username).Int64("canvas_id", canvasUser.ID).
		Msg("Created LMS account")

	if err := s.users.SetCanvasID(ctx, user.ID, canvasUser.ID); err != nil {
		return 0, err
	}
	return canvasUser.ID, nil
}

// LookupOrProvision resolves a username to an LMS account id, creating the
// account when none exists.
func (s *DirectoryService) LookupOrProvision(ctx context.Context, username string) (int64, error) {
	id, found, err := s.Lookup(ctx, username)
	if err != nil {
		return 0, err
	}
	if found {
		return id, nil
	}
	return s.Provision(ctx, username)
}
