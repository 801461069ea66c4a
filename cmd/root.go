package cmd

import (
	"github.com/phuslu/log"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "slidesage",
	Short: "Session-scoped visual search over slide decks and PDFs",
	Long: `Slidesage turns uploaded slide decks into searchable sessions: every
rendered page image is embedded into a cross-modal vector index, and
natural language queries retrieve the most relevant pages along with
a grounded answer from a vision model.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			log.DefaultLogger.Level = log.DebugLevel
		} else {
			log.DefaultLogger.Level = log.InfoLevel
		}
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".slidesage.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
