// Package export pulls the golden template off each group's source
// controller and persists it at the group's template path.
package export

import (
	"github.com/spf13/cobra"

	"github.com/goldenfleet/goldenctl/pkg/entity"
	goldenerrors "github.com/goldenfleet/goldenctl/pkg/errors"
	"github.com/goldenfleet/goldenctl/pkg/orchestrator"
	"github.com/goldenfleet/goldenctl/pkg/terminal"
)

type ExportStore interface {
	orchestrator.FileStore
}

type ConfigLoader func() (*entity.RunConfig, error)

func NewCmdExport(t *terminal.Terminal, files ExportStore, loadConfig ConfigLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the golden template from each group's source controller",
		Long:  "Export the full server configuration profile from every group's source controller and write it to the group's template path.",
		Example: `
  goldenctl export
  goldenctl export --group web
		`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return goldenerrors.WrapAndTrace(err)
			}
			o := orchestrator.New(files, t, cfg)
			runs := o.Export(cfg.Groups)
			orchestrator.PrintSummary(t, runs)
			if runsErr := orchestrator.RunsErr(runs); runsErr != nil {
				return goldenerrors.WrapAndTrace(runsErr, "export failed on one or more hosts")
			}
			return nil
		},
	}
	return cmd
}
