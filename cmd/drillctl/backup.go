package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	backupOutput string
	backupInput  string
	backupClear  bool
	backupYes    bool
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Export or restore the whole drill library as JSON",
}

var backupExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export every drill to a JSON backup file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Generate default filename if not provided
		outputPath := backupOutput
		if outputPath == "" {
			outputPath = fmt.Sprintf("backup_%s.json", time.Now().Format("20060102_150405"))
		}

		// Ensure directory exists
		if dir := filepath.Dir(outputPath); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		lib, err := openLibrary()
		if err != nil {
			return err
		}
		defer lib.Close()

		backup, err := lib.backup.ExportToFile(cmd.Context(), outputPath)
		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}

		size := int64(0)
		if info, err := os.Stat(outputPath); err == nil {
			size = info.Size()
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d drills to %s (%.2f KB)\n", len(backup.Drills), outputPath, float64(size)/1024)
		return nil
	},
}

var backupImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Restore drills from a JSON backup file",
	Long:  "import adds the drills of a backup to the library, skipping drills whose content already exists. With --clear every existing drill is deleted first.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(backupInput); err != nil {
			return fmt.Errorf("input file %s: %w", backupInput, err)
		}

		if backupClear && !backupYes {
			fmt.Fprint(cmd.OutOrStdout(), "WARNING: This will delete all existing drills and quiz sessions. Type 'yes' to confirm: ")
			reader := bufio.NewReader(cmd.InOrStdin())
			input, _ := reader.ReadString('\n')
			if strings.TrimSpace(input) != "yes" {
				fmt.Fprintln(cmd.OutOrStdout(), "Import cancelled")
				return nil
			}
		}

		lib, err := openLibrary()
		if err != nil {
			return err
		}
		defer lib.Close()

		result, err := lib.backup.ImportFromFile(cmd.Context(), backupInput, backupClear)
		if err != nil {
			return fmt.Errorf("import failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Import complete: %d imported, %d skipped as duplicates\n", result.Imported, result.Skipped)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(backupCmd)
	backupCmd.AddCommand(backupExportCmd, backupImportCmd)

	backupExportCmd.Flags().StringVarP(&backupOutput, "output", "o", "", "Output file path (default: backup_YYYYMMDD_HHMMSS.json)")

	backupImportCmd.Flags().StringVarP(&backupInput, "input", "i", "", "Input file path (required)")
	backupImportCmd.MarkFlagRequired("input")
	backupImportCmd.Flags().BoolVar(&backupClear, "clear", false, "Delete all existing drills before import (destructive)")
	backupImportCmd.Flags().BoolVarP(&backupYes, "yes", "y", false, "Skip the --clear confirmation")
}
