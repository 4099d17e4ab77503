package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rodstewart/modelosctl/internal/models"
)

// getCmd represents the get command
var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Get an entry by ID",
	Long: `Get a catalog entry by ID and display its full details.

Examples:
  modelosctl get 42
  modelosctl get 42 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runGet,
}

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add an entry to the catalog",
	Long: `Create a new catalog entry. Title, description and format are required.

Examples:
  modelosctl add --title "Célula Animal" --description "Modelo 3D" --format 3D
  modelosctl add -t "Relevo" -d "Maquete" -f 3D --area Geografia --tags terra,erosao`,
	RunE: runAdd,
}

var updateCmd = &cobra.Command{
	Use:   "update <id> [flags]",
	Short: "Update an entry",
	Long: `Update an entry's fields. Only specified fields are modified.

Examples:
  modelosctl update 42 --title "Novo título"
  modelosctl update 42 --add-tags revisado
  modelosctl update 42 --remove-tags antigo --add-tags atual`,
	Args: cobra.ExactArgs(1),
	RunE: runUpdate,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an entry",
	Long: `Delete a catalog entry. Asks for confirmation unless --force is given.

Examples:
  modelosctl delete 42
  modelosctl delete 42 --force`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

// entryFlags holds the editable entry fields
type entryFlags struct {
	title         string
	description   string
	format        string
	discipline    string
	date          string
	link          string
	categories    []string
	tags          []string
	course        []string
	area          []string
	technology    []string
	accessibility []string
}

var (
	addFlags         entryFlags
	updateFlags      entryFlags
	updateAddTags    []string
	updateRemoveTags []string
	forceDelete      bool
)

func init() {
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(deleteCmd)

	bindEntryFlags(addCmd, &addFlags)
	bindEntryFlags(updateCmd, &updateFlags)
	updateCmd.Flags().StringSliceVar(&updateAddTags, "add-tags", nil, "add tags to existing (comma-separated)")
	updateCmd.Flags().StringSliceVar(&updateRemoveTags, "remove-tags", nil, "remove specific tags (comma-separated)")
	deleteCmd.Flags().BoolVarP(&forceDelete, "force", "f", false, "skip confirmation prompt")
}

func bindEntryFlags(cmd *cobra.Command, f *entryFlags) {
	cmd.Flags().StringVarP(&f.title, "title", "t", "", "title")
	cmd.Flags().StringVarP(&f.description, "description", "d", "", "description")
	cmd.Flags().StringVarP(&f.format, "format", "f", "", "format, e.g. 3D or Vídeo")
	cmd.Flags().StringVar(&f.discipline, "discipline", "", "discipline")
	cmd.Flags().StringVar(&f.date, "date", "", "publication date, e.g. 2024-03-10")
	cmd.Flags().StringVar(&f.link, "link", "", "external link")
	cmd.Flags().StringSliceVar(&f.categories, "categories", nil, "categories (comma-separated)")
	cmd.Flags().StringSliceVar(&f.tags, "tags", nil, "tags (comma-separated)")
	cmd.Flags().StringSliceVar(&f.course, "course", nil, "courses (comma-separated)")
	cmd.Flags().StringSliceVar(&f.area, "area", nil, "knowledge areas (comma-separated)")
	cmd.Flags().StringSliceVar(&f.technology, "technology", nil, "technologies (comma-separated)")
	cmd.Flags().StringSliceVar(&f.accessibility, "accessibility", nil, "accessibility resources (comma-separated)")
}

func runGet(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	entry, err := a.client.GetEntry(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if jsonOutput {
		return outputJSON(entry)
	}
	outputEntryHuman(entry)
	return nil
}

func runAdd(cmd *cobra.Command, args []string) error {
	create := &models.EntryCreate{
		Title:         addFlags.title,
		Description:   addFlags.description,
		Format:        addFlags.format,
		Discipline:    addFlags.discipline,
		DateLabel:     addFlags.date,
		Link:          addFlags.link,
		Categories:    addFlags.categories,
		Tags:          addFlags.tags,
		Course:        addFlags.course,
		Area:          addFlags.area,
		Technology:    addFlags.technology,
		Accessibility: addFlags.accessibility,
	}
	if err := models.Validate(create); err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.requireSession(); err != nil {
		return err
	}

	entry, err := a.client.CreateEntry(cmd.Context(), create)
	if err != nil {
		return err
	}
	a.invalidateLists(cmd.Context())

	if jsonOutput {
		return outputJSON(entry)
	}
	fmt.Printf("✓ Entry added: %s\n", entry.Title)
	fmt.Printf("  ID: %s\n", entry.ID)
	return nil
}

func runUpdate(cmd *cobra.Command, args []string) error {
	id := args[0]

	if cmd.Flags().Changed("tags") && (len(updateAddTags) > 0 || len(updateRemoveTags) > 0) {
		return fmt.Errorf("cannot use --tags with --add-tags or --remove-tags (use one approach)")
	}

	update := &models.EntryUpdate{}
	flags := cmd.Flags()
	if flags.Changed("title") {
		update.Title = &updateFlags.title
	}
	if flags.Changed("description") {
		update.Description = &updateFlags.description
	}
	if flags.Changed("format") {
		update.Format = &updateFlags.format
	}
	if flags.Changed("discipline") {
		update.Discipline = &updateFlags.discipline
	}
	if flags.Changed("date") {
		update.DateLabel = &updateFlags.date
	}
	if flags.Changed("link") {
		update.Link = &updateFlags.link
	}
	if flags.Changed("categories") {
		update.Categories = &updateFlags.categories
	}
	if flags.Changed("tags") {
		update.Tags = &updateFlags.tags
	}
	if flags.Changed("course") {
		update.Course = &updateFlags.course
	}
	if flags.Changed("area") {
		update.Area = &updateFlags.area
	}
	if flags.Changed("technology") {
		update.Technology = &updateFlags.technology
	}
	if flags.Changed("accessibility") {
		update.Accessibility = &updateFlags.accessibility
	}
	if err := models.Validate(update); err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.requireSession(); err != nil {
		return err
	}

	ctx := cmd.Context()
	if len(updateAddTags) > 0 || len(updateRemoveTags) > 0 {
		current, err := a.client.GetEntry(ctx, id)
		if err != nil {
			return err
		}
		tags := mergeTags(current.Tags, updateAddTags, updateRemoveTags)
		update.Tags = &tags
	}

	if *update == (models.EntryUpdate{}) {
		return fmt.Errorf("no changes specified")
	}

	entry, err := a.client.UpdateEntry(ctx, id, update)
	if err != nil {
		return err
	}
	a.invalidateLists(ctx)

	if jsonOutput {
		return outputJSON(entry)
	}
	fmt.Printf("✓ Entry %s updated\n", entry.ID)
	return nil
}

// mergeTags applies additions then removals, keeping the original order
func mergeTags(current, add, remove []string) []string {
	removed := make(map[string]bool, len(remove))
	for _, t := range remove {
		removed[t] = true
	}

	seen := make(map[string]bool)
	out := []string{}
	for _, t := range append(append([]string{}, current...), add...) {
		if removed[t] || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func runDelete(cmd *cobra.Command, args []string) error {
	id := args[0]

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.requireSession(); err != nil {
		return err
	}

	ctx := cmd.Context()
	if !forceDelete && !jsonOutput {
		entry, err := a.client.GetEntry(ctx, id)
		if err != nil {
			return err
		}

		fmt.Printf("About to delete entry:\n")
		fmt.Printf("  ID:     %s\n", entry.ID)
		fmt.Printf("  Title:  %s\n", entry.Title)
		fmt.Printf("  Format: %s\n\n", entry.Format)
		if !confirm("Are you sure?") {
			fmt.Println("Delete cancelled")
			return nil
		}
	}

	if err := a.client.DeleteEntry(ctx, id); err != nil {
		return err
	}
	a.invalidateLists(ctx)

	if jsonOutput {
		return outputJSON(map[string]interface{}{"deleted": true, "id": id})
	}
	fmt.Printf("✓ Entry %s deleted\n", id)
	return nil
}

func outputEntryHuman(e *models.Entry) {
	fmt.Printf("ID:            %s\n", e.ID)
	fmt.Printf("Title:         %s\n", e.Title)
	fmt.Printf("Format:        %s\n", e.Format)
	if e.Description != "" {
		fmt.Printf("Description:   %s\n", e.Description)
	}
	if e.Discipline != "" {
		fmt.Printf("Discipline:    %s\n", e.Discipline)
	}
	if e.DateLabel != "" {
		fmt.Printf("Date:          %s\n", e.DateLabel)
	}
	if e.Link != "" {
		fmt.Printf("Link:          %s\n", e.Link)
	}
	printList("Categories:    ", e.Categories)
	printList("Tags:          ", e.Tags)
	printList("Course:        ", e.Course)
	printList("Area:          ", e.Area)
	printList("Technology:    ", e.Technology)
	printList("Accessibility: ", e.Accessibility)
	if e.Image != "" {
		fmt.Printf("Image:         %s\n", e.Image)
	}
}

func printList(label string, values []string) {
	if len(values) > 0 {
		fmt.Printf("%s%s\n", label, strings.Join(values, ", "))
	}
}
