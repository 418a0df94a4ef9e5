package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/attesta-labs/attesta-cli/internal/adapters/driven/checklist/jsonfile"
)

var checklistCmd = &cobra.Command{
	Use:   "checklist",
	Short: "Manage compliance checklists",
	Long:  `Import checklist criteria and list the available sheets.`,
}

var checklistImportCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import a checklist JSON file",
	Long: `Imports checklist criteria from a JSON file.

Re-importing a file updates existing criteria in place; check runs
already recorded keep the results they were evaluated with.`,
	Args: cobra.ExactArgs(1),
	RunE: runChecklistImport,
}

var checklistSheetsCmd = &cobra.Command{
	Use:   "sheets",
	Short: "List available checklist sheets",
	RunE:  runChecklistSheets,
}

func init() {
	checklistCmd.AddCommand(checklistImportCmd)
	checklistCmd.AddCommand(checklistSheetsCmd)
	rootCmd.AddCommand(checklistCmd)
}

func runChecklistImport(cmd *cobra.Command, args []string) error {
	if checklistStore == nil {
		return errors.New("checklist store not configured")
	}

	checklist, err := jsonfile.Load(args[0])
	if err != nil {
		return fmt.Errorf("loading checklist: %w", err)
	}

	ctx := context.Background()
	if err := checklistStore.SaveItems(ctx, checklist.Items); err != nil {
		return fmt.Errorf("saving checklist items: %w", err)
	}

	sheets := map[string]int{}
	for i := range checklist.Items {
		sheets[checklist.Items[i].SheetName]++
	}

	if checklist.Metadata.Description != "" {
		cmd.Printf("Imported: %s\n", checklist.Metadata.Description)
	}
	cmd.Printf("%d criteria across %d sheet(s)\n", len(checklist.Items), len(sheets))
	return nil
}

func runChecklistSheets(cmd *cobra.Command, _ []string) error {
	if checklistStore == nil {
		return errors.New("checklist store not configured")
	}

	ctx := context.Background()
	sheets, err := checklistStore.ListSheets(ctx)
	if err != nil {
		return fmt.Errorf("listing sheets: %w", err)
	}

	if len(sheets) == 0 {
		cmd.Println("No checklists imported. Run 'attesta checklist import <file>' first.")
		return nil
	}

	for _, sheet := range sheets {
		items, err := checklistStore.ListItems(ctx, sheet)
		if err != nil {
			return fmt.Errorf("listing items for %q: %w", sheet, err)
		}
		cmd.Printf("  %s (%d criteria)\n", sheet, len(items))
	}
	return nil
}
