package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/minios-linux/objtrans/engine"
	"github.com/minios-linux/objtrans/i18n"
	"github.com/minios-linux/objtrans/workbook"
)

// ---------------------------------------------------------------------------
// export / retrieve (org → workbook)
// ---------------------------------------------------------------------------

type exportFlags struct {
	objects   []string
	locales   []string
	outputDir string
	file      string
}

func newExportCmd() *cobra.Command {
	var flags exportFlags
	cmd := &cobra.Command{
		Use:   "export",
		Short: i18n.T("Write field translations from the org to a workbook"),
		Long: `Read the object definitions and translations of the given objects and
write one sheet per object. Fields, descriptions and picklist values come
from the object definitions.`,
		Example: `  objtrans export -o Account,Opportunity -l de,fr
  objtrans export --snapshot org.yaml -o Account -d out`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd.Context(), engine.OpExport, flags)
		},
	}
	addExportFlags(cmd.Flags(), &flags)
	return cmd
}

func newRetrieveCmd() *cobra.Command {
	var flags exportFlags
	cmd := &cobra.Command{
		Use:   "retrieve",
		Short: i18n.T("Like export, but read every custom field individually"),
		Long: `Like export, but read the full record of every custom field in batches
of ten. Use it when the object definitions leave out field descriptions.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd.Context(), engine.OpRetrieve, flags)
		},
	}
	addExportFlags(cmd.Flags(), &flags)
	return cmd
}

func addExportFlags(fs *pflag.FlagSet, flags *exportFlags) {
	fs.StringSliceVarP(&flags.objects, "objects", "o", nil, "Objects to export (comma-separated)")
	fs.StringSliceVarP(&flags.locales, "locales", "l", nil, "Locales to include (default: all org locales)")
	fs.StringVarP(&flags.outputDir, "output-dir", "d", "", "Directory to write the workbook to")
	fs.StringVarP(&flags.file, "file", "f", "", "Workbook file name (default i18n.xlsx)")
}

// exportPath returns where the workbook is written.
func exportPath(s *session, flags exportFlags) string {
	dir := s.cfg.OutputDir
	if flags.outputDir != "" {
		dir = flags.outputDir
	}
	name := s.cfg.Workbook
	if flags.file != "" {
		name = flags.file
	}
	return filepath.Join(dir, name)
}

func runExport(ctx context.Context, op string, flags exportFlags) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.finish()

	objects := s.objectsOrDefault(flags.objects)
	if len(objects) == 0 {
		objects, err = s.chooseObjects(ctx)
		if err != nil {
			return err
		}
	}

	opts := engine.ExportOptions{Objects: objects, Locales: s.localesOrDefault(flags.locales)}
	var res *engine.ExportResult
	if op == engine.OpRetrieve {
		res, err = s.engine.Retrieve(ctx, opts)
	} else {
		res, err = s.engine.Export(ctx, opts)
	}
	s.finish()
	if errors.Is(err, engine.ErrNoOrgResults) {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err != nil {
		return err
	}

	for _, name := range res.Missing {
		logWarning(i18n.T("Object %s not found in the org"), name)
	}
	if len(res.Locales) == 0 {
		logWarning(i18n.T("No translation locales, writing base columns only"))
	}

	path := exportPath(s, flags)
	if err := workbook.Write(path, res.Sheets); err != nil {
		return err
	}

	rows := 0
	for _, sh := range res.Sheets {
		rows += len(sh.Rows)
	}
	if global.jsonOutput {
		return printJSON(os.Stdout, exportOutput{ExportResult: res, File: path, Sheets: len(res.Sheets), Rows: rows})
	}
	logSuccess("%s: %s", i18n.T("Export complete"), path)
	fmt.Fprintf(os.Stderr, "  %s\n", fmt.Sprintf(i18n.T("%d sheets, %d rows, locales: %v"), len(res.Sheets), rows, res.Locales))
	return nil
}
