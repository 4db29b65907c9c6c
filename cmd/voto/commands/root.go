package commands

import (
	"github.com/spf13/cobra"

	"github.com/leandrolasalle/voto-apresentacao/src/config"
)

var (
	_config = config.NewDefaultConfig()
)

//RootCmd is the root command for voto
var RootCmd = &cobra.Command{
	Use:              "voto",
	Short:            "voto - blockchain voting simulator",
	TraverseChildren: true,
}

func init() {
	RootCmd.AddCommand(
		NewRunCmd(),
		NewKeygenCmd(),
		VersionCmd,
	)
}
