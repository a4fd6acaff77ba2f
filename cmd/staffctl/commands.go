package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/noah-isme/staff-records-api/internal/dto"
	"github.com/noah-isme/staff-records-api/internal/models"
	"github.com/noah-isme/staff-records-api/internal/service"
)

func newSeniorityCmd(load depsLoader) *cobra.Command {
	var opts dto.RefreshOptions

	cmd := &cobra.Command{
		Use:   "update-seniority",
		Short: "Recompute the stored seniority description of staff profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(load, func(d *deps) error {
				opts.StaffID = strings.TrimSpace(opts.StaffID)
				report, err := d.seniority.Refresh(cmd.Context(), opts)
				if err != nil {
					return fmt.Errorf("refresh seniority: %w", err)
				}
				return printJSON(cmd.OutOrStdout(), report)
			})
		},
	}

	cmd.Flags().StringVar(&opts.StaffID, "staff-id", "", "Only refresh the profile with this staff id")
	cmd.Flags().BoolVar(&opts.ActiveOnly, "active-only", false, "Skip inactive profiles")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Report changes without writing them")
	return cmd
}

func newImportCmd(load depsLoader) *cobra.Command {
	var maxErrors int

	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import staff profiles from a CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open %s: %w", args[0], err)
			}
			defer f.Close() //nolint:errcheck

			return withDeps(load, func(d *deps) error {
				result, err := d.imports.Import(cmd.Context(), f, service.Actor{UserAgent: "staffctl"})
				if err != nil {
					return err
				}
				if err := printJSON(cmd.OutOrStdout(), map[string]interface{}{
					"status":               result.Status(),
					"imported_count":       result.ImportedCount,
					"total_rows_processed": result.TotalRowsProcessed,
					"errors":               result.ReportedErrors(maxErrors),
				}); err != nil {
					return err
				}
				if result.Status() == dto.ImportError {
					return errors.New("no rows imported")
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&maxErrors, "max-errors", 0, "Limit the number of row errors printed (0 prints all)")
	return cmd
}

func newCreateUserCmd(load depsLoader) *cobra.Command {
	var req models.CreateUserRequest
	var role string

	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create a login account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Role = models.UserRole(strings.ToUpper(strings.TrimSpace(role)))
			if !req.Role.Valid() {
				return fmt.Errorf("unknown role %q", role)
			}
			if req.Password == "" {
				req.Password = os.Getenv("STAFFCTL_PASSWORD")
			}
			return withDeps(load, func(d *deps) error {
				user, err := d.users.CreateUser(cmd.Context(), req)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), user)
			})
		},
	}

	cmd.Flags().StringVar(&req.Email, "email", "", "Login email (required)")
	cmd.Flags().StringVar(&req.FullName, "name", "", "Display name (required)")
	cmd.Flags().StringVar(&req.Password, "password", "", "Password, defaults to $STAFFCTL_PASSWORD")
	cmd.Flags().StringVar(&role, "role", string(models.RoleHR), "Role: ADMIN, HR, SUPERVISOR, STAFF or READONLY")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}
