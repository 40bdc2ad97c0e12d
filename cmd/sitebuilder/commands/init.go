package commands

import (
	"fmt"
	"io"
	"os"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force bool `help:"Overwrite existing configuration file"`
}

func (i *InitCmd) Run(_ *Global, root *CLI) error {
	path := root.Config
	if path == "" {
		path = config.DefaultFileName
	}
	return RunInit(path, i.Force, os.Stdout)
}

func RunInit(configPath string, force bool, out io.Writer) error {
	if err := config.Init(configPath, force); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "Wrote example configuration to %s\n", configPath)
	return nil
}
