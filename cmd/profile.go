package cmd

import (
	"bufio"
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/geraldpeng6/crawler-for-attack/internal/browser"
	"github.com/geraldpeng6/crawler-for-attack/internal/config"
	"github.com/geraldpeng6/crawler-for-attack/internal/observability"
	"github.com/geraldpeng6/crawler-for-attack/internal/profile"
)

// newProfileCmd groups the browser-profile management commands.
func newProfileCmd() *cobra.Command {
	profileCmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage named browser profiles (persistent logins)",
	}
	profileCmd.AddCommand(
		newProfileCreateCmd(),
		newProfileListCmd(),
		newProfileDeleteCmd(),
		newProfileLoginCmd(),
	)
	return profileCmd
}

func profileManager() (*profile.Manager, error) {
	cfg, err := config.FromViper(viper.GetViper())
	if err != nil {
		return nil, err
	}
	return profile.NewManager(cfg.Profiles.Dir, observability.GetLogger())
}

func newProfileCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new empty browser profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := profileManager()
			if err != nil {
				return err
			}
			p, err := manager.Create(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Profile %q created at %s\n", p.Name, p.StorageDir)
			return nil
		},
	}
}

func newProfileListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored browser profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := profileManager()
			if err != nil {
				return err
			}
			profiles, err := manager.List()
			if err != nil {
				return err
			}
			if len(profiles) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No profiles stored.")
				return nil
			}
			for _, p := range profiles {
				state := "no saved login"
				if p.CookiesPresent {
					state = "login saved"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t(created %s)\n",
					p.Name, state, p.CreatedAt.Format(time.DateOnly))
			}
			return nil
		},
	}
}

func newProfileDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a browser profile and its stored state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := profileManager()
			if err != nil {
				return err
			}
			if err := manager.Delete(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Profile %q deleted\n", args[0])
			return nil
		},
	}
}

// newProfileLoginCmd opens a visible browser bound to the profile so the user
// can authenticate, then saves the session state.
func newProfileLoginCmd() *cobra.Command {
	loginCmd := &cobra.Command{
		Use:   "login <name>",
		Short: "Open a visible browser for the profile and save its login state",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return viper.BindPFlag("profiles.login_url", cmd.Flags().Lookup("url"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := config.FromViper(viper.GetViper())
			if err != nil {
				return err
			}
			manager, err := profile.NewManager(cfg.Profiles.Dir, logger)
			if err != nil {
				return err
			}
			p, err := manager.Load(args[0])
			if err != nil {
				return err
			}

			engine, err := browser.NewChromeEngine(ctx, browser.Options{
				Headless:     false,
				UserAgent:    cfg.Browser.UserAgent,
				WindowWidth:  cfg.Browser.WindowWidth,
				WindowHeight: cfg.Browser.WindowHeight,
				UserDataDir:  p.UserDataDir,
			}, logger)
			if err != nil {
				return fmt.Errorf("failed to start browser: %w", err)
			}
			defer engine.Close(ctx)

			if err := engine.Navigate(ctx, cfg.Profiles.LoginURL); err != nil {
				logger.Warn("Failed to open login page", zap.Error(err))
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Log in inside the browser window, then press Enter here to save the session.")

			done := make(chan struct{})
			go func() {
				reader := bufio.NewReader(cmd.InOrStdin())
				_, _ = reader.ReadString('\n')
				close(done)
			}()

			editCtx := ctx
			if cfg.Profiles.LoginWait > 0 {
				var cancel context.CancelFunc
				editCtx, cancel = context.WithTimeout(ctx, cfg.Profiles.LoginWait)
				defer cancel()
			}

			closed := make(chan struct{})
			go func() {
				_ = engine.WaitClosed(editCtx)
				close(closed)
			}()

			select {
			case <-done:
				// Session still live: export cookies before shutting down.
				cookies, err := engine.ExportCookies(ctx)
				if err != nil {
					return fmt.Errorf("failed to export session cookies: %w", err)
				}
				if err := manager.Save(p, cookies); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved %d cookies into profile %q\n", len(cookies), p.Name)
			case <-closed:
				// The user closed the window (or the wait expired); browser
				// state already landed in the profile's user-data dir, but
				// cookies could not be exported.
				if err := manager.Save(p, nil); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Browser closed; profile %q keeps its on-disk state\n", p.Name)
			}
			return nil
		},
	}
	loginCmd.Flags().String("url", "", "page to open for authentication")
	return loginCmd
}
