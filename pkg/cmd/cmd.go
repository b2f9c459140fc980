// Package cmd is the entrypoint to cli
package cmd

import (
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/goldenfleet/goldenctl/pkg/cmd/apply"
	"github.com/goldenfleet/goldenctl/pkg/cmd/export"
	"github.com/goldenfleet/goldenctl/pkg/cmd/importcmd"
	"github.com/goldenfleet/goldenctl/pkg/cmd/pipeline"
	"github.com/goldenfleet/goldenctl/pkg/cmd/validate"
	"github.com/goldenfleet/goldenctl/pkg/cmd/version"
	"github.com/goldenfleet/goldenctl/pkg/config"
	"github.com/goldenfleet/goldenctl/pkg/entity"
	goldenerrors "github.com/goldenfleet/goldenctl/pkg/errors"
	"github.com/goldenfleet/goldenctl/pkg/store"
	"github.com/goldenfleet/goldenctl/pkg/terminal"
)

func NewDefaultGoldenCommand() *cobra.Command {
	t := terminal.New()
	files := store.NewBasicStore().WithFileSystem(afero.NewOsFs())
	return NewGoldenCommand(t, files)
}

func NewGoldenCommand(t *terminal.Terminal, files *store.FileStore) *cobra.Command {
	var configPath string
	var groupName string
	var verbose bool

	cmds := &cobra.Command{
		Use:   "goldenctl",
		Short: "propagate golden iDRAC configuration templates across server fleets",
		Long: `
      goldenctl exports a golden server configuration profile from a
      source controller and propagates it to fleets of target
      controllers, group by group.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			t.SetVerbose(verbose)
		},
		Run: runHelp,
	}

	cmds.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the YAML config file (default $IDRAC_CONFIG_FILE or config.yaml)")
	cmds.PersistentFlags().StringVarP(&groupName, "group", "g", "", "restrict the run to one named group")
	cmds.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print per-job progress and error details")

	loadConfig := func() (*entity.RunConfig, error) {
		path := configPath
		if path == "" {
			path = config.GlobalConfig.GetConfigFile()
		}
		configStore, err := files.WithConfig(path)
		if err != nil {
			return nil, goldenerrors.WrapAndTrace(err)
		}
		cfg, err := configStore.GetRunConfig()
		if err != nil {
			return nil, goldenerrors.WrapAndTrace(err)
		}
		cfg.Groups, err = store.SelectGroups(cfg.Groups, groupName)
		if err != nil {
			return nil, goldenerrors.WrapAndTrace(err)
		}
		return cfg, nil
	}

	cmds.AddCommand(version.NewCmdVersion(t))
	cmds.AddCommand(validate.NewCmdValidate(t, files, loadConfig))
	cmds.AddCommand(export.NewCmdExport(t, files, loadConfig))
	cmds.AddCommand(importcmd.NewCmdImport(t, files, loadConfig))
	cmds.AddCommand(apply.NewCmdApply(t, files, loadConfig))
	cmds.AddCommand(pipeline.NewCmdPipeline(t, files, loadConfig))

	return cmds
}

func runHelp(cmd *cobra.Command, _ []string) {
	cmd.Help() //nolint:errcheck // cobra prints its own help errors
}
