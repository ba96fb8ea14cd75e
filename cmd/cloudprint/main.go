// Command cloudprint lists printers and submits jobs through Google Cloud Print.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"github.com/enthus-golang/cloudprint"
)

const usage = `usage: cloudprint [flags] <command> [args]

commands:
  printers                          list printers
  printer <printer-id>              show the provider record for one printer
  print <printer-id> <file> [title] print a local file
  refresh                           refresh the access token and print it
`

// config holds the resolved command configuration.
type config struct {
	clientID     string
	clientSecret string
	accessToken  string
	refreshToken string
	oauthVersion string
	baseURL      string
	authURL      string
	retry        bool
	debug        bool
}

func main() {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg, rest, err := parseConfig(args, stderr)
	if err != nil {
		return err
	}
	if len(rest) == 0 {
		fmt.Fprint(stderr, usage)
		return errors.New("missing command")
	}

	level := slog.LevelInfo
	if cfg.debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	opts := []cloudprint.Option{cloudprint.WithLogger(logger)}
	if cfg.baseURL != "" {
		opts = append(opts, cloudprint.WithBaseURL(cfg.baseURL))
	}
	if cfg.authURL != "" {
		opts = append(opts, cloudprint.WithAuthURL(cfg.authURL))
	}
	if cfg.retry {
		opts = append(opts, cloudprint.WithTransportRetry())
	}

	client, err := cloudprint.New(cloudprint.Config{
		ClientID:     cfg.clientID,
		ClientSecret: cfg.clientSecret,
		AccessToken:  cfg.accessToken,
		RefreshToken: cfg.refreshToken,
		OAuthVersion: cfg.oauthVersion,
	}, opts...)
	if err != nil {
		return fmt.Errorf("creating client: %w", err)
	}

	var result any
	switch cmd, cmdArgs := rest[0], rest[1:]; cmd {
	case "printers":
		result, err = client.ListPrinters(ctx)
	case "printer":
		if len(cmdArgs) != 1 {
			return errors.New("printer requires a printer id")
		}
		result, err = client.GetPrinter(ctx, cmdArgs[0])
	case "print":
		if len(cmdArgs) < 2 || len(cmdArgs) > 3 {
			return errors.New("print requires a printer id and a file")
		}
		var title string
		if len(cmdArgs) == 3 {
			title = cmdArgs[2]
		}
		var resp *cloudprint.SubmitResponse
		resp, err = client.PrintFile(ctx, cmdArgs[0], title, cmdArgs[1])
		if err == nil {
			result = resp.Raw
		}
	case "refresh":
		err = client.RefreshToken(ctx)
		result = client.Token()
	default:
		fmt.Fprint(stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// parseConfig resolves flags and environment. Priority: flag > env > default.
func parseConfig(args []string, stderr io.Writer) (*config, []string, error) {
	fs := flag.NewFlagSet("cloudprint", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}

	clientID := fs.String("client-id", "", "OAuth client ID (or CLOUDPRINT_CLIENT_ID env)")
	clientSecret := fs.String("client-secret", "", "OAuth client secret (or CLOUDPRINT_CLIENT_SECRET env)")
	accessToken := fs.String("access-token", "", "OAuth access token (or CLOUDPRINT_ACCESS_TOKEN env)")
	refreshToken := fs.String("refresh-token", "", "OAuth refresh token (or CLOUDPRINT_REFRESH_TOKEN env)")
	oauthVersion := fs.String("oauth-version", "", "OAuth token endpoint version (default: v3 or CLOUDPRINT_OAUTH_VERSION env)")
	baseURL := fs.String("base-url", "", "Cloud Print API URL (or CLOUDPRINT_BASE_URL env)")
	authURL := fs.String("auth-url", "", "OAuth token host (or CLOUDPRINT_AUTH_URL env)")
	retry := fs.Bool("retry", false, "retry API requests on network errors and 5xx responses")
	debug := fs.Bool("debug", false, "enable debug logging")

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	cfg := &config{
		clientID:     getConfig(*clientID, "CLOUDPRINT_CLIENT_ID", ""),
		clientSecret: getConfig(*clientSecret, "CLOUDPRINT_CLIENT_SECRET", ""),
		accessToken:  getConfig(*accessToken, "CLOUDPRINT_ACCESS_TOKEN", ""),
		refreshToken: getConfig(*refreshToken, "CLOUDPRINT_REFRESH_TOKEN", ""),
		oauthVersion: getConfig(*oauthVersion, "CLOUDPRINT_OAUTH_VERSION", "v3"),
		baseURL:      getConfig(*baseURL, "CLOUDPRINT_BASE_URL", ""),
		authURL:      getConfig(*authURL, "CLOUDPRINT_AUTH_URL", ""),
		retry:        *retry,
		debug:        *debug,
	}
	return cfg, fs.Args(), nil
}

// getConfig returns value with priority: flag > env > default
func getConfig(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return getEnv(envKey, defaultValue)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
