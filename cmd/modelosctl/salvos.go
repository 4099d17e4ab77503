package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rodstewart/modelosctl/internal/api"
	"github.com/rodstewart/modelosctl/internal/browse"
	"github.com/rodstewart/modelosctl/internal/catalog"
	"github.com/rodstewart/modelosctl/internal/models"
)

var salvosCmd = &cobra.Command{
	Use:     "salvos",
	Aliases: []string{"saved"},
	Short:   "Manage your saved entries",
	Long: `List, add and remove the entries saved to your account.

Saved order drives the 'salvos-recentes' and 'salvos-antigos' sorts of
'modelosctl list'.`,
}

var salvosListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved entries, most recently saved first",
	RunE:  runSalvosList,
}

var salvosAddCmd = &cobra.Command{
	Use:   "add <id>",
	Short: "Save an entry",
	Args:  cobra.ExactArgs(1),
	RunE:  runSalvosAdd,
}

var salvosRemoveCmd = &cobra.Command{
	Use:     "remove <id>",
	Aliases: []string{"rm"},
	Short:   "Remove an entry from your saved list",
	Args:    cobra.ExactArgs(1),
	RunE:    runSalvosRemove,
}

func init() {
	rootCmd.AddCommand(salvosCmd)
	salvosCmd.AddCommand(salvosListCmd)
	salvosCmd.AddCommand(salvosAddCmd)
	salvosCmd.AddCommand(salvosRemoveCmd)
}

func runSalvosList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.requireSession(); err != nil {
		return err
	}

	ctx := cmd.Context()
	saved, err := a.client.GetSaved(ctx)
	if err != nil {
		return err
	}

	source := a.listSource()
	defer func() { _ = source.Close() }()
	entries, err := browse.NewLoader(source, a.log).Load(ctx, api.ListQuery{})
	if err != nil {
		return err
	}

	// saved entries no longer in the catalog are dropped
	page := browse.Run(a.engine(), savedOnly(entries, saved), browse.Request{
		Sort:     catalog.SortSavedRecent,
		Saved:    saved,
		PageSize: max(len(saved), 1),
	})

	if jsonOutput {
		return outputJSON(page.Entries)
	}

	if len(page.Entries) == 0 {
		fmt.Println("No saved entries.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tFORMAT")
	fmt.Fprintln(w, "--\t-----\t------")
	for _, e := range page.Entries {
		fmt.Fprintf(w, "%s\t%s\t%s\n", e.ID, truncate(e.Title, 60), e.Format)
	}
	return w.Flush()
}

func savedOnly(entries []models.Entry, saved []string) []models.Entry {
	ids := make(map[string]bool, len(saved))
	for _, id := range saved {
		ids[id] = true
	}
	out := []models.Entry{}
	for _, e := range entries {
		if ids[e.ID] {
			out = append(out, e)
		}
	}
	return out
}

func runSalvosAdd(cmd *cobra.Command, args []string) error {
	return changeSaved(cmd, args[0], true)
}

func runSalvosRemove(cmd *cobra.Command, args []string) error {
	return changeSaved(cmd, args[0], false)
}

func changeSaved(cmd *cobra.Command, id string, save bool) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.requireSession(); err != nil {
		return err
	}

	if save {
		err = a.client.AddSaved(cmd.Context(), id)
	} else {
		err = a.client.RemoveSaved(cmd.Context(), id)
	}
	if err != nil {
		return err
	}

	if jsonOutput {
		return outputJSON(map[string]interface{}{"id": id, "saved": save})
	}
	if save {
		fmt.Printf("✓ Entry %s saved\n", id)
	} else {
		fmt.Printf("✓ Entry %s removed from saved\n", id)
	}
	return nil
}
