package main

import (
	"os"

	"github.com/goldenfleet/goldenctl/pkg/cmd"
	"github.com/goldenfleet/goldenctl/pkg/terminal"
)

func main() {
	command := cmd.NewDefaultGoldenCommand()

	if err := command.Execute(); err != nil {
		terminal.New().Errprint(err, "")
		os.Exit(1)
	}
}
