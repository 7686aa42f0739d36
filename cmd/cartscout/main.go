package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"cartscout/internal/config"
)

var (
	cfgFile string
	verbose bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "cartscout",
		Short: "Keyword-driven product and review scraper",
		Long: `cartscout searches a retail site for products matching a keyword and
collects structured listings (title, price, rating, review count, URL),
optionally crawling each product's customer reviews behind an
authenticated session. Results are written as timestamped JSON with an
optional flat CSV export.`,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(loginCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("cartscout %s\n", config.Version)
		},
	}
}

func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			fmt.Printf("site:\n  base_url: %s\n  sign_in_path: %s\n", cfg.Site.BaseURL, cfg.Site.SignInPath)
			fmt.Printf("crawler:\n  delay: %s\n  page_delay: %s\n  max_retries: %d\n  request_timeout: %s\n  requests_per_minute: %d\n  respect_robots_txt: %t\n",
				cfg.Crawler.Delay, cfg.Crawler.PageDelay, cfg.Crawler.MaxRetries,
				cfg.Crawler.RequestTimeout, cfg.Crawler.RequestsPerMinute, cfg.Crawler.RespectRobotsTxt)
			fmt.Printf("auth:\n  cookies_file: %s\n  liveness_timeout: %s\n  headless: %t\n",
				cfg.Auth.CookiesFile, cfg.Auth.LivenessTimeout, cfg.Auth.Headless)
			fmt.Printf("storage:\n  type: %s\n  data_dir: %s\n", cfg.Storage.Type, cfg.Storage.DataDir)
			return nil
		},
	}
}

func setupLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}
