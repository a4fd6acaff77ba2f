package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/noah-isme/staff-records-api/internal/app"
	"github.com/noah-isme/staff-records-api/internal/dto"
	"github.com/noah-isme/staff-records-api/internal/models"
	"github.com/noah-isme/staff-records-api/internal/service"
	"github.com/noah-isme/staff-records-api/pkg/config"
	"github.com/noah-isme/staff-records-api/pkg/logger"
)

type seniorityRefresher interface {
	Refresh(ctx context.Context, opts dto.RefreshOptions) (*dto.RefreshReport, error)
}

type staffImporter interface {
	Import(ctx context.Context, r io.Reader, actor service.Actor) (*dto.ImportResult, error)
}

type userCreator interface {
	CreateUser(ctx context.Context, req models.CreateUserRequest) (*models.User, error)
}

// deps are the services the commands drive.
type deps struct {
	seniority seniorityRefresher
	imports   staffImporter
	users     userCreator
	close     func()
}

type depsLoader func() (*deps, error)

func loadFromEnv() (*deps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	container, err := app.New(cfg, logr)
	if err != nil {
		return nil, err
	}
	return &deps{
		seniority: container.Seniority,
		imports:   container.Imports,
		users:     container.Auth,
		close: func() {
			container.Close()
			_ = logr.Sync()
		},
	}, nil
}

func newRootCmd(load depsLoader) *cobra.Command {
	root := &cobra.Command{
		Use:           "staffctl",
		Short:         "Maintenance commands for the staff records database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newSeniorityCmd(load),
		newImportCmd(load),
		newCreateUserCmd(load),
	)
	return root
}

// withDeps loads the services, runs fn and releases them.
func withDeps(load depsLoader, fn func(d *deps) error) error {
	d, err := load()
	if err != nil {
		return err
	}
	if d.close != nil {
		defer d.close()
	}
	return fn(d)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
