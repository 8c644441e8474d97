package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/danthegoodman1/tablesplit/datastore"
	"github.com/danthegoodman1/tablesplit/session"
	"github.com/danthegoodman1/tablesplit/splitter"
	"github.com/danthegoodman1/tablesplit/tableio"
	"github.com/danthegoodman1/tablesplit/utils"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var (
	splitArgs = struct {
		File    string
		Column  string
		Out     string
		Columns []string
		Edits   session.Edits
	}{}

	splitCmd = &cobra.Command{
		Use:   "split --file <path> --column <name>",
		Short: "Split a table into one xlsx file per distinct value of a column.",
		Long: "Loads a CSV or XLSX file, applies the column edits, and writes one file per distinct value\n" +
			"of the split column, named \"{value}-{YYYYMMDD-HHMMSS}.xlsx\".",
		Args: cobra.NoArgs,
		RunE: commandSplit,
	}
)

func init() {
	splitCmd.Flags().StringVar(&splitArgs.File, "file", "", "CSV or XLSX file to split. Only a \".csv\" suffix is read as CSV.")
	splitCmd.Flags().StringVar(&splitArgs.Column, "column", "", "Column whose distinct values define the output files.")
	splitCmd.Flags().StringVar(&splitArgs.Out, "out", utils.OUTPUT_DIR, "Existing directory to write the files into.")
	splitCmd.Flags().StringSliceVar(&splitArgs.Columns, "columns", nil, "Columns to keep, in output order. Defaults to every column.")
	splitCmd.Flags().BoolVar(&splitArgs.Edits.AddTeachingWeeks, "add-teaching-weeks", false, "Add a \""+session.TeachingWeeksColumn+"\" placeholder column.")
	splitCmd.Flags().BoolVar(&splitArgs.Edits.AddStaff, "add-staff", false, "Add a \""+session.StaffColumn+"\" placeholder column.")
	splitCmd.Flags().BoolVar(&splitArgs.Edits.AddPhD, "add-phd", false, "Add a \""+session.PhDColumn+"\" placeholder column.")
	splitCmd.Flags().StringVar(&splitArgs.Edits.CustomColumn, "custom-column", "", "Add a placeholder column with this name.")
	_ = splitCmd.MarkFlagRequired("file")
	_ = splitCmd.MarkFlagRequired("column")
}

func commandSplit(cmd *cobra.Command, _ []string) error {
	f, err := os.Open(splitArgs.File)
	if err != nil {
		return fmt.Errorf("error opening %s: %w", splitArgs.File, err)
	}
	defer f.Close()

	original, err := tableio.LoadFile(filepath.Base(splitArgs.File), f)
	if err != nil {
		return fmt.Errorf("error loading %s: %w", splitArgs.File, err)
	}

	edits := splitArgs.Edits
	edits.Columns = splitArgs.Columns
	// No --columns means every column, which is not worth a warning here
	if len(edits.Columns) == 0 {
		edits.Columns = original.Columns()
	}
	working, warnings, err := session.Apply(original, edits)
	if err != nil {
		return err
	}
	for _, w := range warnings {
		logger.Warn().Msg(w)
	}

	ds := datastore.NewDiskDataStore(afero.NewOsFs(), splitArgs.Out)
	stats, err := splitter.Export(cmd.Context(), working, splitArgs.Column, ds, time.Now())
	if len(stats.Files) > 0 {
		printFiles(cmd, stats)
	}
	if err != nil {
		return fmt.Errorf("error exporting: %w", err)
	}

	logger.Info().Str("exportID", stats.ID).Int64("files", stats.NumFiles).Int64("rows", stats.NumRows).Int64("ms", stats.TimeMS).Msg("split complete")
	return nil
}

func printFiles(cmd *cobra.Command, stats splitter.ExportStats) {
	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.Header([]string{"Value", "Rows", "Bytes", "Path"})
	for _, file := range stats.Files {
		if err := table.Append([]string{file.Value.String(), fmt.Sprint(file.Rows), fmt.Sprint(file.Bytes), file.Path}); err != nil {
			logger.Error().Err(err).Msg("error appending table row")
			return
		}
	}
	if err := table.Render(); err != nil {
		logger.Error().Err(err).Msg("error rendering table")
	}
}
