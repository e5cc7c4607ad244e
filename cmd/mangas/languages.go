package cmd

import (
	"fmt"

	"github.com/kerbaras/mangadl/pkg/app/components"
	"github.com/kerbaras/mangadl/pkg/utils"
	"github.com/spf13/cobra"
)

var languagesCmd = &cobra.Command{
	Use:   "languages",
	Short: "List the languages chapters can be downloaded in",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		t := components.NewTable("Code", "Language")
		for _, lang := range utils.Languages {
			t.Row(lang.Code, lang.Name)
		}
		fmt.Println(t)
	},
}

func init() {
	rootCmd.AddCommand(languagesCmd)
}
