package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"garagem/internal/app"
	"garagem/internal/config"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates a GarageApp. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "AddMaintenance", "Serve").
func newApp(operation string) (*app.GarageApp, error) {
	paths, err := app.DefaultPaths()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(paths.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewGarageApp(cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// run opens the app for one command, marks the operation failed when fn
// returns an error and always closes the app.
func run(operation string, fn func(context.Context, *app.GarageApp) error) error {
	a, err := newApp(operation)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := fn(context.Background(), a); err != nil {
		a.Fail()
		return err
	}
	return nil
}

var rootCmd = &cobra.Command{
	Use:          "garagem",
	Short:        "Vehicle maintenance tracker with email reminders",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := app.DefaultPaths()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(paths.BaseDir)
		if err := config.Init(paths.ConfigPath, cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", paths.ConfigPath)
		fmt.Printf("Base Dir: %s\n", paths.BaseDir)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := app.DefaultPaths()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(paths.ConfigPath)
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", paths.ConfigPath)
		fmt.Printf("Base Dir:       %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:        %s\n", cfg.LogDir)
		fmt.Printf("Database:       %s %s\n", cfg.Database.Type, cfg.Database.DataDir)
		fmt.Printf("Ledger:         %s %s\n", cfg.Ledger.Type, cfg.Ledger.Path)
		fmt.Printf("Email:          %s\n", cfg.Email.Type)
		fmt.Printf("Check Interval: %s\n", cfg.Reminder.CheckInterval)
		fmt.Printf("Timezone:       %s\n", cfg.Reminder.Timezone)
		fmt.Printf("HTTP Listen:    %s\n", cfg.HTTP.Listen)
		return nil
	},
}

var configEmailCmd = &cobra.Command{
	Use:   "email",
	Short: "Manage email settings",
}

var configEmailSetKeyCmd = &cobra.Command{
	Use:   "set-key",
	Short: "Store the EmailJS private key encrypted",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run("SetEmailKey", func(ctx context.Context, a *app.GarageApp) error {
			fmt.Fprint(os.Stderr, "EmailJS private key: ")
			key, err := term.ReadPassword(int(os.Stdin.Fd()))
			fmt.Fprintln(os.Stderr)
			if err != nil {
				return fmt.Errorf("reading key: %w", err)
			}
			value := strings.TrimSpace(string(key))
			if value == "" {
				return fmt.Errorf("empty key")
			}
			if err := a.SetEmailPrivateKey(value); err != nil {
				return err
			}
			fmt.Println("Private key stored.")
			return nil
		})
	},
}

// user command
var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage accounts and the current session",
}

var userRegisterCmd = &cobra.Command{
	Use:   "register EMAIL",
	Short: "Create an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		login, _ := cmd.Flags().GetBool("login")
		return run("RegisterUser", func(ctx context.Context, a *app.GarageApp) error {
			u, err := a.RegisterUser(args[0], name)
			if err != nil {
				return err
			}
			fmt.Printf("Registered %s (%s)\n", u.Email, u.DisplayName)
			if login {
				if _, err := a.Login(u.Email); err != nil {
					return err
				}
				fmt.Printf("Logged in as %s\n", u.Email)
			}
			return nil
		})
	},
}

var userLoginCmd = &cobra.Command{
	Use:   "login EMAIL",
	Short: "Start a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run("Login", func(ctx context.Context, a *app.GarageApp) error {
			u, err := a.Login(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Logged in as %s\n", u.Email)
			return nil
		})
	},
}

var userLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run("Logout", func(ctx context.Context, a *app.GarageApp) error {
			if err := a.Logout(); err != nil {
				return err
			}
			fmt.Println("Logged out.")
			return nil
		})
	},
}

var userWhoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged-in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run("WhoAmI", func(ctx context.Context, a *app.GarageApp) error {
			u, err := a.WhoAmI(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("%s <%s>\n", u.DisplayName, u.Email)
			return nil
		})
	},
}

// serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the reminder scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp("Serve")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.RunServer(ctx); err != nil {
			a.Fail()
			return err
		}
		return nil
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configEmailCmd)
	configEmailCmd.AddCommand(configEmailSetKeyCmd)

	// user subcommands
	userCmd.AddCommand(userRegisterCmd)
	userRegisterCmd.Flags().String("name", "", "Display name (defaults to the email local part)")
	userRegisterCmd.Flags().Bool("login", false, "Log in after registering")
	userCmd.AddCommand(userLoginCmd)
	userCmd.AddCommand(userLogoutCmd)
	userCmd.AddCommand(userWhoamiCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(vehicleCmd)
	rootCmd.AddCommand(maintenanceCmd)
	rootCmd.AddCommand(expenseCmd)
	rootCmd.AddCommand(remindersCmd)
	rootCmd.AddCommand(serveCmd)
}
