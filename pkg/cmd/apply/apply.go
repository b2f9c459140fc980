// Package apply exports a fresh golden template and immediately
// propagates it, one group at a time.
package apply

import (
	"github.com/spf13/cobra"

	"github.com/goldenfleet/goldenctl/pkg/entity"
	goldenerrors "github.com/goldenfleet/goldenctl/pkg/errors"
	"github.com/goldenfleet/goldenctl/pkg/orchestrator"
	"github.com/goldenfleet/goldenctl/pkg/terminal"
)

type ApplyStore interface {
	orchestrator.FileStore
}

type ConfigLoader func() (*entity.RunConfig, error)

func NewCmdApply(t *terminal.Terminal, files ApplyStore, loadConfig ConfigLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Export from each group's source and immediately import to its targets",
		Long:  "Run export and import back to back per group. The freshly exported template is persisted and then pushed to the targets; a failed export skips that group's import entirely.",
		Example: `
  goldenctl apply
  goldenctl apply --group web
		`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return goldenerrors.WrapAndTrace(err)
			}
			o := orchestrator.New(files, t, cfg)
			runs := o.Apply(cfg.Groups)
			orchestrator.PrintSummary(t, runs)
			if runsErr := orchestrator.RunsErr(runs); runsErr != nil {
				return goldenerrors.WrapAndTrace(runsErr, "apply failed on one or more hosts")
			}
			return nil
		},
	}
	return cmd
}
