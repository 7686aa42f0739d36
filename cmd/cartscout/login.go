package main

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cartscout/internal/config"
	"cartscout/internal/crawler"
)

var loginManual bool

func loginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate and persist the session cookies",
		Long: `Log in to the configured site and save the session cookies for reuse by
review crawls. With --manual a visible browser opens and you complete the
login by hand.`,
		RunE: runLogin,
	}

	cmd.Flags().BoolVar(&loginManual, "manual", false, "open a browser and sign in manually")

	return cmd
}

func runLogin(cmd *cobra.Command, args []string) error {
	logger := setupLogger()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	c, err := crawler.New(cfg, logger)
	if err != nil {
		return err
	}

	ctx := context.Background()

	if c.Auth().IsAuthenticated(ctx) {
		fmt.Println("Already authenticated; persisted session is still live.")
		return nil
	}

	var ok bool
	if loginManual {
		ok = c.Auth().AwaitManualLogin(ctx)
	} else {
		reader := bufio.NewReader(os.Stdin)
		email := prompt(reader, "Email: ")
		password := prompt(reader, "Password: ")
		ok = c.Auth().AttemptLogin(ctx, email, password)
	}

	if !ok {
		fmt.Println("Login failed. Review crawls will run unauthenticated.")
		return nil
	}

	fmt.Printf("Login successful. Cookies saved to %s\n", cfg.Auth.CookiesFile)
	return nil
}
