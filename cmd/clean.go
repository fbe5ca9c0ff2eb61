package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tanq16/roxdl/internal/output"
	"github.com/tanq16/roxdl/internal/utils"
)

func newCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean [DIR]",
		Short: "Remove leftover " + utils.StagingDir + " staging directories",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			root := "."
			if len(args) > 0 {
				root = args[0]
			}
			removed, err := utils.CleanStagingTree(root)
			if err != nil {
				output.PrintError(fmt.Sprintf("Error cleaning %s: %v", root, err))
				os.Exit(1)
			}
			if len(removed) == 0 {
				output.PrintInfo("No staging directories found")
				return
			}
			for _, path := range removed {
				output.PrintSuccess("Removed " + path)
			}
		},
	}
}
