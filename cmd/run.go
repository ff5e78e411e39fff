package cmd

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/geraldpeng6/crawler-for-attack/internal/browser"
	"github.com/geraldpeng6/crawler-for-attack/internal/config"
	"github.com/geraldpeng6/crawler-for-attack/internal/ingest"
	"github.com/geraldpeng6/crawler-for-attack/internal/observability"
	"github.com/geraldpeng6/crawler-for-attack/internal/output"
	"github.com/geraldpeng6/crawler-for-attack/internal/profile"
	"github.com/geraldpeng6/crawler-for-attack/internal/session"
)

// newRunCmd creates the `run` command, which processes a CSV of URLs once.
func newRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run <urls.csv>",
		Short: "Crawl every URL in the CSV and record matched interactive elements",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// Bind flags so they override the config file and env with the
			// right precedence.
			for flag, key := range map[string]string{
				"headless":     "browser.headless",
				"output-dir":   "output.dir",
				"threshold":    "crawl.similarity_threshold",
				"scroll-count": "crawl.scroll_count",
				"delay":        "crawl.delay",
				"keywords":     "crawl.keywords",
				"profile":      "crawl.profile_name",
			} {
				if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
					return err
				}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := config.FromViper(viper.GetViper())
			if err != nil {
				return err
			}

			tasks, err := ingest.LoadTasks(args[0], logger)
			if err != nil {
				return fmt.Errorf("failed to load url tasks: %w", err)
			}

			runID := uuid.New().String()
			logger.Info("Starting crawl run",
				zap.String("run_id", runID),
				zap.Int("tasks", len(tasks)),
				zap.Bool("headless", cfg.Browser.Headless),
				zap.Int("threshold", cfg.Crawl.SimilarityThreshold))

			browserOpts := browser.Options{
				Headless:     cfg.Browser.Headless,
				UserAgent:    cfg.Browser.UserAgent,
				WindowWidth:  cfg.Browser.WindowWidth,
				WindowHeight: cfg.Browser.WindowHeight,
			}
			if cfg.Crawl.ProfileName != "" {
				manager, err := profile.NewManager(cfg.Profiles.Dir, logger)
				if err != nil {
					return err
				}
				p, err := manager.Load(cfg.Crawl.ProfileName)
				if err != nil {
					return err
				}
				browserOpts.UserDataDir = p.UserDataDir
				logger.Info("Crawling with profile",
					zap.String("profile", p.Name),
					zap.Bool("cookies_present", p.CookiesPresent))
			}

			engine, err := browser.NewChromeEngine(ctx, browserOpts, logger)
			if err != nil {
				return fmt.Errorf("failed to start browser: %w", err)
			}
			defer engine.Close(ctx)

			writer, err := output.NewWriter(cfg.Output.Dir, logger)
			if err != nil {
				return err
			}

			sess := session.New(engine, writer, session.Config{
				Keywords:            cfg.Crawl.AllKeywords(),
				SimilarityThreshold: cfg.Crawl.SimilarityThreshold,
				ScrollCount:         cfg.Crawl.ScrollCount,
				MatchConcurrency:    cfg.Crawl.MatchConcurrency,
				NavigationTimeout:   cfg.Browser.NavigationTimeout,
				ScrollTimeout:       cfg.Browser.ScrollTimeout,
				ClickTimeout:        cfg.Browser.ClickTimeout,
				CaptureTimeout:      cfg.Browser.CaptureTimeout,
			}, logger, func(e session.Event) {
				logger.Debug("Session state changed",
					zap.String("url", e.URL), zap.String("state", string(e.State)))
			})

			summary := session.NewRunner(sess, cfg.Crawl.Delay, logger).Run(ctx, tasks)

			fmt.Fprintf(cmd.OutOrStdout(), "Processed %d URLs: %d succeeded, %d failed, %d skipped\n",
				summary.Total, summary.Succeeded, len(summary.Failures), summary.Skipped)
			for _, f := range summary.Failures {
				fmt.Fprintf(cmd.OutOrStdout(), "  failed: %s (%s)\n", f.URL, f.Reason)
			}

			// Per-URL failures are part of a normal run; only infrastructure
			// failures reach the exit status.
			return nil
		},
	}

	runCmd.Flags().Bool("headless", false, "run the browser without a visible window")
	runCmd.Flags().String("output-dir", "output", "directory for crawl records and screenshots")
	runCmd.Flags().Int("threshold", 70, "fuzzy match threshold (0-100)")
	runCmd.Flags().Int("scroll-count", 3, "maximum scroll-to-bottom steps per page")
	runCmd.Flags().Duration("delay", 0, "minimum gap between URLs, e.g. 2s (default from config)")
	runCmd.Flags().StringSlice("keywords", nil, "extra keywords appended to the built-in set")
	runCmd.Flags().String("profile", "", "browser profile to crawl with")

	return runCmd
}
