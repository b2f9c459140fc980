// Package validate checks credentials and reachability for every host
// in scope without submitting any configuration job.
package validate

import (
	"github.com/spf13/cobra"

	"github.com/goldenfleet/goldenctl/pkg/entity"
	goldenerrors "github.com/goldenfleet/goldenctl/pkg/errors"
	"github.com/goldenfleet/goldenctl/pkg/orchestrator"
	"github.com/goldenfleet/goldenctl/pkg/terminal"
)

type ValidateStore interface {
	orchestrator.FileStore
}

type ConfigLoader func() (*entity.RunConfig, error)

func NewCmdValidate(t *terminal.Terminal, files ValidateStore, loadConfig ConfigLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check connectivity and credentials for every configured host",
		Long:  "Log in to every source and target controller and read its manager resource. Read-only; safe to run repeatedly.",
		Example: `
  goldenctl validate
  goldenctl validate --group web
		`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return goldenerrors.WrapAndTrace(err)
			}
			o := orchestrator.New(files, t, cfg)
			runs := o.Validate(cfg.Groups)
			orchestrator.PrintSummary(t, runs)
			if runsErr := orchestrator.RunsErr(runs); runsErr != nil {
				return goldenerrors.WrapAndTrace(runsErr, "validation failed on one or more hosts")
			}
			return nil
		},
	}
	return cmd
}
