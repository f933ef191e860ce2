package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/idml2doc/internal/config"
	"github.com/nao1215/idml2doc/internal/database"
	"github.com/nao1215/idml2doc/internal/model"
	"github.com/nao1215/idml2doc/internal/render"
)

// NewHistoryCmd creates the history command.
// This command shows conversions stored in the history database.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [PACKAGE]",
		Short: "Show past conversions",
		Long: `History shows conversions recorded in the history database.

Each conversion keeps its extracted content, so an earlier result can be
rendered again in any format without the original package.

Examples:
  # Show the latest conversion of a package
  idml2doc history brochure.idml

  # List all conversions of a package
  idml2doc history --list brochure.idml

  # Show a specific conversion by ID
  idml2doc history --show 5

  # Render the latest conversion again as Markdown
  idml2doc history -f markdown brochure.idml

  # Find conversions of a package with the given SHA3-256 fingerprint
  idml2doc history --hash 3a985da7...

  # List all converted packages
  idml2doc history --list-packages`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().BoolP("list", "l", false,
		"List conversion history for the specified package")
	cmd.Flags().BoolP("list-packages", "L", false,
		"List all converted packages in the database")
	cmd.Flags().Int64P("show", "i", 0,
		"Show a specific conversion by ID (use --list to see available IDs)")
	cmd.Flags().String("hash", "",
		"List conversions of packages with this SHA3-256 fingerprint")
	cmd.Flags().StringP("format", "f", "",
		"Render the stored content in this format: html, markdown, json, text")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the history database")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	listPackages, err := cmd.Flags().GetBool("list-packages")
	if err != nil {
		return err
	}
	list, err := cmd.Flags().GetBool("list")
	if err != nil {
		return err
	}
	showID, err := cmd.Flags().GetInt64("show")
	if err != nil {
		return err
	}
	hash, err := cmd.Flags().GetString("hash")
	if err != nil {
		return err
	}
	formatName, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}

	// Validate arguments before opening the database.
	var packageName string
	if len(args) > 0 {
		packageName = args[0]
	}
	hash = strings.ToLower(strings.TrimSpace(hash))
	if !listPackages && showID == 0 && hash == "" && packageName == "" {
		return errors.New("package name is required (use --list-packages to see converted packages)")
	}

	var format render.Format
	if formatName != "" {
		format, err = render.ParseFormat(formatName)
		if err != nil {
			return err
		}
		if format.Binary() {
			return fmt.Errorf("%s output cannot be written to the terminal; use html, markdown, json or text", format)
		}
	}

	db, err := database.Open(dbDir, database.Options{CreateIfNotExists: false})
	if err != nil {
		if errors.Is(err, database.ErrDatabaseNotFound) {
			return errors.New("no conversion history yet (use 'idml2doc convert' to convert a package)")
		}
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	switch {
	case listPackages:
		return listConvertedPackages(ctx, db, out)
	case hash != "":
		return listConversionsByHash(ctx, db, out, hash)
	case list:
		if packageName == "" {
			return errors.New("package name is required with --list")
		}
		return listConversionHistory(ctx, db, out, packageName)
	}

	var conv *model.Conversion
	if showID != 0 {
		conv, err = db.GetConversionByID(ctx, showID)
		if err != nil {
			return err
		}
		if conv == nil {
			return fmt.Errorf("no conversion with ID %d", showID)
		}
	} else {
		conv, err = db.GetLatestConversion(ctx, packageName)
		if err != nil {
			return err
		}
		if conv == nil {
			return fmt.Errorf("no conversion history for %s", packageName)
		}
	}

	if formatName != "" {
		return renderStored(out, conv, format)
	}

	aliases, err := findAliases(ctx, db, conv)
	if err != nil {
		return err
	}
	printConversionDetails(out, conv, aliases)
	return nil
}

// listConvertedPackages lists all packages that have conversion records.
func listConvertedPackages(ctx context.Context, db *database.HistoryDB, out io.Writer) error {
	packages, err := db.ListPackages(ctx)
	if err != nil {
		return fmt.Errorf("failed to list packages: %w", err)
	}

	if len(packages) == 0 {
		fmt.Fprintln(out, "No converted packages found in the database.")
		fmt.Fprintln(out, "\nUse 'idml2doc convert <file>' to convert a package.")
		return nil
	}

	fmt.Fprintf(out, "Converted packages (%d):\n\n", len(packages))
	for _, name := range packages {
		fmt.Fprintf(out, "  - %s\n", name)
	}
	fmt.Fprintln(out, "\nUse 'idml2doc history --list <package>' to see its conversions.")

	return nil
}

// listConversionHistory lists all conversion records of one package.
func listConversionHistory(ctx context.Context, db *database.HistoryDB, out io.Writer, packageName string) error {
	history, err := db.GetHistoryWithMetadata(ctx, packageName)
	if err != nil {
		return fmt.Errorf("failed to get conversion history: %w", err)
	}

	if len(history) == 0 {
		fmt.Fprintf(out, "No conversion history found for %s\n", packageName)
		return nil
	}

	fmt.Fprintf(out, "Conversion history for %s (%d conversions):\n\n", packageName, len(history))
	printMetadataTable(out, history)
	fmt.Fprintln(out, "\nUse 'idml2doc history --show <ID>' to see a conversion.")
	return nil
}

// listConversionsByHash lists the conversions of packages whose bytes have
// the given fingerprint, whatever their file name.
func listConversionsByHash(ctx context.Context, db *database.HistoryDB, out io.Writer, hash string) error {
	history, err := db.FindByHash(ctx, hash)
	if err != nil {
		return fmt.Errorf("failed to find conversions by hash: %w", err)
	}

	if len(history) == 0 {
		fmt.Fprintf(out, "No conversion found for fingerprint %s\n", hash)
		return nil
	}

	fmt.Fprintf(out, "Conversions of packages with fingerprint %s (%d conversions):\n\n", hash, len(history))
	printMetadataTable(out, history)
	return nil
}

// printMetadataTable prints one row per conversion.
func printMetadataTable(out io.Writer, history []database.ConversionMetadata) {
	fmt.Fprintf(out, "  %-6s  %-20s  %-6s  %7s  %7s  %9s  %6s  %s\n",
		"ID", "Date", "Status", "Stories", "Spreads", "Fragments", "Images", "Source")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 90))

	for _, meta := range history {
		fmt.Fprintf(out, "  %-6d  %-20s  %-6s  %7d  %7d  %9d  %6d  %s\n",
			meta.ID,
			meta.Timestamp.Local().Format("2006-01-02 15:04:05"),
			meta.Status,
			meta.Stories,
			meta.Spreads,
			meta.Fragments,
			meta.Markers,
			meta.Source,
		)
	}
}

// findAliases returns the other sources under which the bytes of conv were
// converted, one per source path.
func findAliases(ctx context.Context, db *database.HistoryDB, conv *model.Conversion) ([]string, error) {
	if conv.PackageHash == "" {
		return nil, nil
	}

	history, err := db.FindByHash(ctx, conv.PackageHash)
	if err != nil {
		return nil, fmt.Errorf("failed to find conversions by hash: %w", err)
	}

	var aliases []string
	for _, meta := range history {
		if meta.Source == conv.Source || slices.Contains(aliases, meta.Source) {
			continue
		}
		aliases = append(aliases, meta.Source)
	}
	return aliases, nil
}

// printConversionDetails prints a stored conversion and the other sources
// its package was converted from.
func printConversionDetails(out io.Writer, conv *model.Conversion, aliases []string) {
	stories, spreads := conv.CountEntries()

	fmt.Fprintf(out, "Package:   %s\n", conv.PackageName)
	fmt.Fprintf(out, "Source:    %s\n", conv.Source)
	fmt.Fprintf(out, "Converted: %s\n", conv.DateConverted.Local().Format("2006-01-02 15:04:05"))
	if conv.PackageHash != "" {
		fmt.Fprintf(out, "SHA3-256:  %s\n", conv.PackageHash)
	}
	fmt.Fprintf(out, "Entries:   %d stories, %d spreads\n", stories, spreads)

	if conv.ErrorMessage != "" {
		fmt.Fprintf(out, "Status:    failed: %s\n", conv.ErrorMessage)
	} else {
		fmt.Fprintf(out, "Content:   %d text fragments, %d image links\n",
			conv.Model.FragmentCount(), conv.Model.MarkerCount())
	}

	if len(conv.Warnings) > 0 {
		fmt.Fprintln(out, "\nWarnings:")
		for _, w := range conv.Warnings {
			fmt.Fprintf(out, "  - %s\n", w)
		}
	}
	if failed := conv.FailedEntries(); len(failed) > 0 {
		fmt.Fprintln(out, "\nSkipped entries:")
		for _, e := range failed {
			fmt.Fprintf(out, "  - %s: %s\n", e.Path, e.ErrorMessage)
		}
	}
	if len(conv.Outputs) > 0 {
		fmt.Fprintln(out, "\nOutputs:")
		for _, path := range conv.Outputs {
			fmt.Fprintf(out, "  - %s\n", path)
		}
	}
	if len(aliases) > 0 {
		fmt.Fprintln(out, "\nSeen before as:")
		for _, source := range aliases {
			fmt.Fprintf(out, "  - %s\n", source)
		}
	}
}

// renderStored writes the stored content model of conv in the given format.
func renderStored(out io.Writer, conv *model.Conversion, format render.Format) error {
	if conv.Model == nil {
		return fmt.Errorf("conversion of %s has no content: %s", conv.PackageName, conv.ErrorMessage)
	}

	w, err := render.NewWriter(format, out, render.WithDocumentName(conv.BaseName()))
	if err != nil {
		return err
	}
	_, err = w.Write(conv.Model)
	return err
}
