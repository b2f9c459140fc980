// Package importcmd pushes a persisted golden template to every target
// in each group.
package importcmd

import (
	"github.com/spf13/cobra"

	"github.com/goldenfleet/goldenctl/pkg/entity"
	goldenerrors "github.com/goldenfleet/goldenctl/pkg/errors"
	"github.com/goldenfleet/goldenctl/pkg/orchestrator"
	"github.com/goldenfleet/goldenctl/pkg/terminal"
)

type ImportStore interface {
	orchestrator.FileStore
}

type ConfigLoader func() (*entity.RunConfig, error)

func NewCmdImport(t *terminal.Terminal, files ImportStore, loadConfig ConfigLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [template-file]",
		Short: "Import the golden template into every target controller",
		Long:  "Import each group's persisted template into all of its targets. An explicit template file overrides every group's template path.",
		Example: `
  goldenctl import
  goldenctl import --group web
  goldenctl import templates/golden_web.xml
		`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return goldenerrors.WrapAndTrace(err)
			}
			overridePath := ""
			if len(args) == 1 {
				overridePath = args[0]
			}
			o := orchestrator.New(files, t, cfg)
			runs := o.Import(cfg.Groups, overridePath)
			orchestrator.PrintSummary(t, runs)
			if runsErr := orchestrator.RunsErr(runs); runsErr != nil {
				return goldenerrors.WrapAndTrace(runsErr, "import failed on one or more hosts")
			}
			return nil
		},
	}
	return cmd
}
