package seed

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	appModels "github.com/oklib/courseflow/internal/app/models"
	appRepos "github.com/oklib/courseflow/internal/app/repositories"
	"github.com/oklib/courseflow/internal/config"
	"github.com/oklib/courseflow/internal/pkg/apperrors"
	"github.com/oklib/courseflow/internal/pkg/auth"
)

// CreateDefaultData creates the admin account and baseline dimension rows
// if they don't exist. Dimension rows are normally maintained by the
// directory sync; the seed only covers a fresh database so the app is
// usable before the first sync runs.
func CreateDefaultData(ctx context.Context, dbPool *pgxpool.Pool, lgr zerolog.Logger) error {
	userRepo := appRepos.NewUserRepository(dbPool)
	schoolRepo := appRepos.NewSchoolRepository(dbPool)
	scheduleTypeRepo := appRepos.NewScheduleTypeRepository(dbPool)

	lgr.Info().Msg("Checking/Creating default data...")
	var finalErr error

	adminPassword := config.GetEnv("ADMIN_PASSWORD", "")
	switch {
	case adminPassword == "":
		lgr.Warn().Msg("ADMIN_PASSWORD not set, skipping admin account seed")
	default:
		if _, err := userRepo.GetByUsername(ctx, "admin"); errors.Is(err, apperrors.ErrUserNotFound) {
			hash, err := auth.HashPassword(adminPassword)
			if err != nil {
				lgr.Error().Err(err).Msg("Error hashing admin password")
				finalErr = errors.Join(finalErr, err)
				break
			}
			admin := &appModels.User{
				Username:  "admin",
				FirstName: "Site",
				LastName:  "Administrator",
				Password:  hash,
				IsStaff:   true,
			}
			if err := userRepo.Create(ctx, admin); err != nil {
				lgr.Error().Err(err).Msg("Error creating admin user")
				finalErr = errors.Join(finalErr, err)
			}
		} else if err != nil {
			lgr.Error().Err(err).Msg("Error checking for admin user")
			finalErr = errors.Join(finalErr, err)
		}
	}

	schools := []*appModels.School{
		{Code: appModels.DentalSchoolCode, Name: "Dental Medicine", Visible: true},
		{Code: appModels.LawSchoolCode, Name: "Law", Visible: false},
		{Code: appModels.ProvostCenterCode, Name: "Provost Center", Visible: false},
		{Code: appModels.ArtsSciencesCode, Name: "Arts & Sciences", Visible: true},
		{Code: appModels.VeterinaryCode, Name: "Veterinary Medicine", Visible: true},
		{Code: appModels.WhartonSchoolCode, Name: "Wharton", Visible: false},
	}
	for _, school := range schools {
		if err := schoolRepo.Upsert(ctx, school); err != nil {
			lgr.Error().Err(err).Str("school", school.Code).Msg("Error seeding school")
			finalErr = errors.Join(finalErr, err)
		}
	}

	scheduleTypes := []*appModels.ScheduleType{
		{Code: "LEC", Name: "Lecture"},
		{Code: "SEM", Name: "Seminar"},
		{Code: "LAB", Name: "Laboratory"},
		{Code: "REC", Name: "Recitation"},
		{Code: "ONL", Name: "Online"},
	}
	for _, st := range scheduleTypes {
		if err := scheduleTypeRepo.Upsert(ctx, st); err != nil {
			lgr.Error().Err(err).Str("scheduleType", st.Code).Msg("Error seeding schedule type")
			finalErr = errors.Join(finalErr, err)
		}
	}

	if finalErr == nil {
		lgr.Info().Msg("Default data check complete.")
	}
	return finalErr
}
