package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/oklib/courseflow/internal/bootstrap"
)

func main() {
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:   "courseflow",
		Short: "Course-site provisioning operations",
		Long:  "Operational commands for the course-site request and provisioning workflow.",
	}
	root.AddCommand(provisionCmd(), syncCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup wires the dependency graph the same way the API server does.
func setup() (*bootstrap.Dependencies, func(), error) {
	cfg, lgr, err := bootstrap.LoadConfigAndSetupLogger()
	if err != nil {
		return nil, nil, err
	}

	dbPool, err := bootstrap.SetupDatabase(cfg, lgr)
	if err != nil {
		return nil, nil, err
	}

	deps, err := bootstrap.BuildDependencies(cfg, dbPool, lgr)
	if err != nil {
		dbPool.Close()
		return nil, nil, err
	}

	return deps, dbPool.Close, nil
}

func provisionCmd() *cobra.Command {
	var sectionCode string

	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Provision approved requests",
		Long:  "Provision every approved request, or a single request with --section.",
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, cleanup, err := setup()
			if err != nil {
				return err
			}
			defer cleanup()

			ctx := context.Background()
			if sectionCode != "" {
				course, err := deps.ProvisionService.Provision(ctx, sectionCode)
				if err != nil {
					return err
				}
				fmt.Printf("provisioned %s as course %d\n", sectionCode, course.ID)
				return nil
			}

			provisioned, failed, err := deps.ProvisionService.ProvisionApproved(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("provisioned %d request(s), %d failed\n", provisioned, failed)
			return nil
		},
	}

	cmd.Flags().StringVar(&sectionCode, "section", "", "provision a single request by section code")
	return cmd
}

func syncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync [term...]",
		Short: "Mirror registrar data into the local store",
		Long:  "Sync schools, subjects and schedule types, then each given term's sections.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			terms := make([]int, 0, len(args))
			for _, arg := range args {
				term, err := strconv.Atoi(arg)
				if err != nil {
					return fmt.Errorf("invalid term %q: %w", arg, err)
				}
				terms = append(terms, term)
			}

			deps, cleanup, err := setup()
			if err != nil {
				return err
			}
			defer cleanup()

			ctx := context.Background()
			if err := deps.SyncService.SyncDimensions(ctx); err != nil {
				return err
			}
			if err := deps.SyncService.SyncTerms(ctx, terms...); err != nil {
				return err
			}

			fmt.Printf("synced %d term(s)\n", len(terms))
			return nil
		},
	}

	return cmd
}
