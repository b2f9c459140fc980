// Package pipeline runs the configured sequence of steps (validate,
// export, import, apply) as one invocation, stopping at the first step
// that leaves a host failed.
package pipeline

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goldenfleet/goldenctl/pkg/entity"
	goldenerrors "github.com/goldenfleet/goldenctl/pkg/errors"
	"github.com/goldenfleet/goldenctl/pkg/orchestrator"
	"github.com/goldenfleet/goldenctl/pkg/terminal"
)

type PipelineStore interface {
	orchestrator.FileStore
}

type ConfigLoader func() (*entity.RunConfig, error)

func NewCmdPipeline(t *terminal.Terminal, files PipelineStore, loadConfig ConfigLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Run the configured sequence of steps in order",
		Long:  "Run the steps listed under pipeline.steps in the config file, in order. A step that leaves any host failed stops the pipeline.",
		Example: `
  goldenctl pipeline
  goldenctl pipeline --group web
		`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return goldenerrors.WrapAndTrace(err)
			}
			return RunPipeline(t, files, cfg)
		},
	}
	return cmd
}

func RunPipeline(t *terminal.Terminal, files PipelineStore, cfg *entity.RunConfig) error {
	o := orchestrator.New(files, t, cfg)
	for _, step := range cfg.Pipeline {
		t.Print(t.Blue("==> %s", step))
		var runs []orchestrator.GroupRun
		switch step {
		case "validate":
			runs = o.Validate(cfg.Groups)
		case "export":
			runs = o.Export(cfg.Groups)
		case "import":
			runs = o.Import(cfg.Groups, "")
		case "apply":
			runs = o.Apply(cfg.Groups)
		default:
			return goldenerrors.NewValidationError(fmt.Sprintf("unknown pipeline step %q, valid steps: validate, export, import, apply", step))
		}
		orchestrator.PrintSummary(t, runs)
		if runsErr := orchestrator.RunsErr(runs); runsErr != nil {
			return goldenerrors.WrapAndTrace(runsErr, fmt.Sprintf("pipeline stopped: step %q failed", step))
		}
	}
	return nil
}
