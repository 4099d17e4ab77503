package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rodstewart/modelosctl/internal/models"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage user accounts (admin)",
	Long:  `List, inspect, create, update and delete Modelos user accounts. Requires an admin session.`,
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List user accounts",
	RunE:  runUsersList,
}

var usersGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show a user account",
	Args:  cobra.ExactArgs(1),
	RunE:  runUsersGet,
}

var usersCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a user account",
	Long: `Create a user account. The password is prompted for when --password is omitted.

Examples:
  modelosctl users create --name Ana --email ana@example.com --role editor`,
	RunE: runUsersCreate,
}

var usersUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update a user account",
	Long: `Update a user account. Only specified fields are modified.

Examples:
  modelosctl users update 7 --role admin
  modelosctl users update 7 --active=false`,
	Args: cobra.ExactArgs(1),
	RunE: runUsersUpdate,
}

var usersDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a user account",
	Args:  cobra.ExactArgs(1),
	RunE:  runUsersDelete,
}

var (
	userName     string
	userEmail    string
	userPassword string
	userRole     string
	userActive   bool
	forceUserDel bool
)

func init() {
	rootCmd.AddCommand(usersCmd)
	usersCmd.AddCommand(usersListCmd)
	usersCmd.AddCommand(usersGetCmd)
	usersCmd.AddCommand(usersCreateCmd)
	usersCmd.AddCommand(usersUpdateCmd)
	usersCmd.AddCommand(usersDeleteCmd)

	for _, cmd := range []*cobra.Command{usersCreateCmd, usersUpdateCmd} {
		cmd.Flags().StringVar(&userName, "name", "", "display name")
		cmd.Flags().StringVar(&userEmail, "email", "", "email address")
		cmd.Flags().StringVar(&userPassword, "password", "", "password")
		cmd.Flags().StringVar(&userRole, "role", "", "role: admin, editor or leitor (created users default to leitor)")
	}
	usersUpdateCmd.Flags().BoolVar(&userActive, "active", true, "whether the account can sign in")
	usersDeleteCmd.Flags().BoolVarP(&forceUserDel, "force", "f", false, "skip confirmation prompt")
}

func runUsersList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.requireSession(); err != nil {
		return err
	}
	users, err := a.client.ListUsers(cmd.Context())
	if err != nil {
		return err
	}

	if jsonOutput {
		return outputJSON(users)
	}
	if len(users) == 0 {
		fmt.Println("No users found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEMAIL\tROLE\tACTIVE")
	fmt.Fprintln(w, "--\t----\t-----\t----\t------")
	for _, u := range users {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", u.ID, u.Name, u.Email, u.Role, yesNo(u.Active))
	}
	return w.Flush()
}

func runUsersGet(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.requireSession(); err != nil {
		return err
	}
	user, err := a.client.GetUser(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if jsonOutput {
		return outputJSON(user)
	}
	return outputUserHuman(user)
}

func runUsersCreate(cmd *cobra.Command, args []string) error {
	role := userRole
	if role == "" {
		role = "leitor"
	}
	create := &models.UserCreate{
		Name:     userName,
		Email:    userEmail,
		Password: userPassword,
		Role:     role,
	}
	if create.Password == "" {
		fmt.Print("Password: ")
		password, err := readSecret(newStdinReader())
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		create.Password = password
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
	user, err := a.client.CreateUser(cmd.Context(), create)
	if err != nil {
		return err
	}

	if jsonOutput {
		return outputJSON(user)
	}
	fmt.Printf("✓ User created: %s (%s)\n", user.Name, user.Email)
	fmt.Printf("  ID: %s\n", user.ID)
	return nil
}

func runUsersUpdate(cmd *cobra.Command, args []string) error {
	update := &models.UserUpdate{}
	flags := cmd.Flags()
	if flags.Changed("name") {
		update.Name = &userName
	}
	if flags.Changed("email") {
		update.Email = &userEmail
	}
	if flags.Changed("password") {
		update.Password = &userPassword
	}
	if flags.Changed("role") {
		update.Role = &userRole
	}
	if flags.Changed("active") {
		update.Active = &userActive
	}
	if *update == (models.UserUpdate{}) {
		return fmt.Errorf("no changes specified")
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
	user, err := a.client.UpdateUser(cmd.Context(), args[0], update)
	if err != nil {
		return err
	}

	if jsonOutput {
		return outputJSON(user)
	}
	fmt.Printf("✓ User %s updated\n", user.ID)
	return nil
}

func runUsersDelete(cmd *cobra.Command, args []string) error {
	id := args[0]

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.requireSession(); err != nil {
		return err
	}

	if !forceUserDel && !jsonOutput {
		if !confirm(fmt.Sprintf("Delete user %s?", id)) {
			fmt.Println("Delete cancelled")
			return nil
		}
	}

	if err := a.client.DeleteUser(cmd.Context(), id); err != nil {
		return err
	}

	if jsonOutput {
		return outputJSON(map[string]interface{}{"deleted": true, "id": id})
	}
	fmt.Printf("✓ User %s deleted\n", id)
	return nil
}

func outputUserHuman(u *models.User) error {
	fmt.Printf("ID:      %s\n", u.ID)
	fmt.Printf("Name:    %s\n", u.Name)
	fmt.Printf("Email:   %s\n", u.Email)
	fmt.Printf("Role:    %s\n", u.Role)
	fmt.Printf("Active:  %s\n", yesNo(u.Active))
	if !u.CreatedAt.IsZero() {
		fmt.Printf("Created: %s\n", u.CreatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
