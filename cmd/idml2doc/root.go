package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/idml2doc/internal/config"
)

// NewRootCmd creates the root command for idml2doc.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "idml2doc",
		Short: "Convert InDesign IDML packages into readable documents",
		Long: `idml2doc converts Adobe InDesign Markup (IDML) packages into simple,
readable documents.

It reads every story and spread inside the package, keeps the plain text
and the paths of linked images, and writes them as HTML and Word (docx)
by default. Markdown, JSON and plain text are available too. Layout,
styling and pagination are not preserved.

Every conversion is recorded in a local history database so that earlier
results can be listed and rendered again with 'idml2doc history'.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().String("log-format", config.LogFormatText, "Log format: text or json")

	cmd.AddCommand(NewConvertCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
