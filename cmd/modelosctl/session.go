package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rodstewart/modelosctl/internal/api"
	"github.com/rodstewart/modelosctl/internal/config"
	"github.com/rodstewart/modelosctl/internal/models"
	"github.com/rodstewart/modelosctl/internal/session"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and store the session token",
	Long: `Sign in with your Modelos account. The session token is saved to the
configuration file so later commands run as you.

Examples:
  modelosctl login
  modelosctl login --email ana@example.com`,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored session token",
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	RunE:  runWhoami,
}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect the session token",
}

var sessionStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show session state and expiry",
	RunE:  runSessionStatus,
}

var sessionWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the session until it expires",
	Long: `Check the session token periodically and report state changes.

After the machine resumes from sleep the session is revalidated against the
API. The command exits when the session expires or on Ctrl-C.`,
	RunE: runSessionWatch,
}

var loginEmail string

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionStatusCmd)
	sessionCmd.AddCommand(sessionWatchCmd)

	loginCmd.Flags().StringVarP(&loginEmail, "email", "e", "", "account email (prompted if omitted)")
}

var errSessionExpired = errors.New("session expired. Run 'modelosctl login' to sign in again")

func runLogin(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	reader := bufio.NewReader(os.Stdin)
	email := loginEmail
	if email == "" {
		fmt.Print("Email: ")
		if email, err = readLine(reader); err != nil {
			return fmt.Errorf("failed to read email: %w", err)
		}
	}
	fmt.Print("Password: ")
	password, err := readSecret(reader)
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}

	creds := &models.Credentials{Email: email, Password: password}
	if err := models.Validate(creds); err != nil {
		return err
	}

	resp, err := a.client.Login(cmd.Context(), creds)
	if err != nil {
		return err
	}

	a.cfg.Token = resp.Token
	if err := saveConfig(a.cfg); err != nil {
		return err
	}

	if jsonOutput {
		return outputJSON(resp.User)
	}
	fmt.Printf("✓ Signed in as %s (%s)\n", resp.User.Name, resp.User.Email)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	cfg.Token = ""
	if err := saveConfig(cfg); err != nil {
		return err
	}

	if jsonOutput {
		return outputJSON(map[string]string{"status": "signed out"})
	}
	fmt.Println("✓ Signed out")
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.requireSession(); err != nil {
		return err
	}
	user, err := a.client.Me(cmd.Context())
	if err != nil {
		return err
	}

	if jsonOutput {
		return outputJSON(user)
	}
	return outputUserHuman(user)
}

// sessionStatus is the JSON form of 'session status'
type sessionStatus struct {
	State     string     `json:"state"`
	Subject   string     `json:"subject,omitempty"`
	Role      string     `json:"role,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

func runSessionStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	wd := newWatchdog(a)
	status := sessionStatus{State: wd.State().String()}
	if claims := wd.Claims(); claims != nil {
		status.Subject = claims.Subject
		status.Role = claims.Role
		if !claims.ExpiresAt.IsZero() {
			status.ExpiresAt = &claims.ExpiresAt
		}
	}

	if jsonOutput {
		return outputJSON(status)
	}

	fmt.Printf("State:   %s\n", status.State)
	if status.Subject != "" {
		fmt.Printf("Subject: %s\n", status.Subject)
	}
	if status.Role != "" {
		fmt.Printf("Role:    %s\n", status.Role)
	}
	if status.ExpiresAt != nil {
		fmt.Printf("Expires: %s", status.ExpiresAt.Local().Format(time.RFC3339))
		if left, ok := wd.ExpiresIn(); ok && left > 0 {
			fmt.Printf(" (in %s)", left.Round(time.Second))
		}
		fmt.Println()
	}
	return nil
}

func runSessionWatch(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.requireSession(); err != nil {
		return err
	}

	ctx := cmd.Context()
	changes := make(chan session.State, 8)
	wd := newWatchdog(a, session.OnChange(func(from, to session.State) {
		fmt.Printf("Session %s -> %s\n", from, to)
		select {
		case changes <- to:
		default:
		}
	}))
	if wd.State() == session.Expired {
		return errSessionExpired
	}

	if err := wd.Start(); err != nil {
		return err
	}
	defer wd.Stop()
	fmt.Printf("Watching session (%s)...\n", wd.State())

	for {
		select {
		case <-ctx.Done():
			return nil
		case state := <-changes:
			switch state {
			case session.Expired:
				return errSessionExpired
			case session.Stale:
				if _, err := a.client.Me(ctx); err != nil {
					if api.IsUnauthorized(err) {
						return errSessionExpired
					}
					a.log.Warn("session revalidation failed", zap.Error(err))
					continue
				}
				wd.MarkFresh()
			}
		}
	}
}

func newWatchdog(a *app, opts ...session.Option) *session.Watchdog {
	opts = append([]session.Option{
		session.WithInterval(a.cfg.Session.CheckInterval),
		session.WithExpirySkew(a.cfg.Session.ExpirySkew),
	}, opts...)
	return session.NewWatchdog(a.cfg.Token, a.log, opts...)
}

func saveConfig(cfg *config.Config) error {
	path, err := configPath()
	if err != nil {
		return err
	}
	if err := config.Save(cfg, path); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}
