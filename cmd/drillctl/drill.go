package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"grammardrill/internal/drillfile"
)

var (
	fmtWrite     bool
	exportOutput string
)

var validateCmd = &cobra.Command{
	Use:   "validate <file.tsv>",
	Short: "Check that a drill file parses",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		drill, err := readDrillFile(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "OK: %q (%s, %s) with %d questions\n",
			drill.Metadata.Title, drill.Metadata.TargetLanguage, drill.Metadata.Difficulty, len(drill.Questions))
		return nil
	},
}

var fmtCmd = &cobra.Command{
	Use:   "fmt <file.tsv>",
	Short: "Rewrite a drill file in canonical form",
	Long:  "fmt parses a drill file and prints it re-serialized in canonical column and metadata order. With -w the file is rewritten in place.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		drill, err := readDrillFile(args[0])
		if err != nil {
			return err
		}

		formatted := drill.String()
		if !fmtWrite {
			fmt.Fprint(cmd.OutOrStdout(), formatted)
			return nil
		}
		if err := os.WriteFile(args[0], []byte(formatted), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", args[0], err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Formatted %s\n", args[0])
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file.tsv>",
	Short: "Import a drill file into the library",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		content, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[0], err)
		}

		lib, err := openLibrary()
		if err != nil {
			return err
		}
		defer lib.Close()

		drill, err := lib.drills.ImportDrill(cmd.Context(), filepath.Base(args[0]), string(content))
		if err != nil {
			return describeDrillError(err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported drill %d: %q with %d questions\n", drill.ID, drill.Title, drill.QuestionCount)
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export <id>",
	Short: "Export a drill from the library as a drill file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid drill ID %q", args[0])
		}

		lib, err := openLibrary()
		if err != nil {
			return err
		}
		defer lib.Close()

		filename, content, err := lib.drills.ExportDrill(cmd.Context(), id)
		if err != nil {
			return err
		}

		if exportOutput == "" {
			fmt.Fprint(cmd.OutOrStdout(), content)
			return nil
		}
		if exportOutput == "." {
			exportOutput = filename
		}
		if err := os.WriteFile(exportOutput, []byte(content), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", exportOutput, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported drill %d to %s\n", id, exportOutput)
		return nil
	},
}

func readDrillFile(path string) (*drillfile.Drill, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	drill, err := drillfile.Parse(string(content))
	if err != nil {
		return nil, describeDrillError(err)
	}
	return drill, nil
}

// describeDrillError rewords codec errors for the terminal
func describeDrillError(err error) error {
	var formatErr *drillfile.FormatError
	var validationErr *drillfile.ValidationError
	switch {
	case errors.As(err, &formatErr):
		return fmt.Errorf("not a drill file (%s)", formatErr.Reason)
	case errors.As(err, &validationErr):
		if validationErr.Record == drillfile.RecordQuestion {
			return fmt.Errorf("question %d: %s %s", validationErr.Index+1, validationErr.Field, validationErr.Message)
		}
		return fmt.Errorf("metadata: %s %s", validationErr.Field, validationErr.Message)
	}
	return err
}

func init() {
	rootCmd.AddCommand(validateCmd, fmtCmd, importCmd, exportCmd)
	fmtCmd.Flags().BoolVarP(&fmtWrite, "write", "w", false, "Write the result back to the file")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", `Output file ("." uses the drill's filename; default stdout)`)
}
