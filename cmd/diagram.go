package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/qnetworks/qnet/sim/diagram"
)

// diagramCmd renders a validated model as Mermaid flowchart markup.
var diagramCmd = &cobra.Command{
	Use:   "diagram <model.json>",
	Short: "Render a process model as Mermaid flowchart markup",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		model := loadModelOrExit(args[0])
		fmt.Print(diagram.Mermaid(model))
	},
}

func init() {
	rootCmd.AddCommand(diagramCmd)
}
