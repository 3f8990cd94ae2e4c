package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/astroshed/starcapture/internal/output"
)

var formatsCmd = &cobra.Command{
	Use:   "formats",
	Short: "List supported save formats",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, f := range output.Formats() {
			fmt.Println(f)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(formatsCmd)
}
