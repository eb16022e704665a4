package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/htel-ops/visionwatch/internal/ai"
	"github.com/htel-ops/visionwatch/internal/alert"
	"github.com/htel-ops/visionwatch/internal/config"
	"github.com/htel-ops/visionwatch/internal/creds"
	"github.com/htel-ops/visionwatch/internal/helpdesk"
	"github.com/htel-ops/visionwatch/internal/triage"
	"github.com/htel-ops/visionwatch/internal/watcher"
)

var (
	hoursFlag         int
	webhookURLFlag    string
	importantOnlyFlag bool
	triageFlag        bool
	slackChannelFlag  string
	slackTokenFlag    string
	jsonFlag          bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run one polling cycle and alert on new/updated tickets",
	Long: `Run one polling cycle: query tickets modified within the lookback
window, diff them against the state file, and deliver alerts.

With --triage, each new non-skipped ticket (up to 5 per cycle) gets an
AI-generated triage verdict; when the model is unavailable a deterministic
rule-based verdict is posted instead. Without --triage, batch alerts list
the new tickets and any high-priority updates.

Destination precedence: Slack bot channel > webhook > stdout.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadWatchConfig(cmd)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if err := runWatch(context.Background(), cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error checking tickets: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	watchCmd.Flags().IntVar(&hoursFlag, "hours", config.DefaultLookbackHours, "hours to look back")
	watchCmd.Flags().StringVar(&webhookURLFlag, "webhook-url", "", "Discord/Slack webhook URL")
	watchCmd.Flags().BoolVar(&importantOnlyFlag, "important-only", false, "only alert on high/urgent tickets")
	watchCmd.Flags().BoolVar(&triageFlag, "triage", false, "triage new tickets with the AI model")
	watchCmd.Flags().StringVar(&slackChannelFlag, "slack-channel", "", "Slack channel for triage posts (e.g. htel-team)")
	watchCmd.Flags().StringVar(&slackTokenFlag, "slack-token", "", "Slack bot token (or SLACK_BOT_TOKEN env)")
	watchCmd.Flags().BoolVar(&jsonFlag, "json", false, "output JSON")
	rootCmd.AddCommand(watchCmd)
}

// loadWatchConfig merges the config file / environment with any flags the
// user set explicitly.
func loadWatchConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	if profileFlag != "" {
		cfg.Profile = profileFlag
	}
	if stateFileFlag != "" {
		cfg.StateFile = stateFileFlag
	}
	if quietFlag {
		cfg.Quiet = true
	}
	if cmd.Flags().Changed("hours") {
		cfg.LookbackHours = hoursFlag
	}
	if webhookURLFlag != "" {
		cfg.WebhookURL = webhookURLFlag
	}
	if importantOnlyFlag {
		cfg.ImportantOnly = true
	}
	if triageFlag {
		cfg.Triage = true
	}
	if slackChannelFlag != "" {
		cfg.SlackChannel = slackChannelFlag
	}
	if slackTokenFlag != "" {
		cfg.SlackToken = slackTokenFlag
	}
	if jsonFlag {
		cfg.JSON = true
	}
	return cfg, nil
}

func runWatch(ctx context.Context, cfg *config.Config) error {
	log := newLogger(cfg.Quiet)

	resolver := creds.NewResolver()
	credentials, err := resolver.Resolve(ctx, cfg.Profile)
	if err != nil {
		return err
	}

	client := helpdesk.NewAPIClient(credentials.BaseURL, credentials.Token)
	portal := helpdesk.PortalURL(credentials.BaseURL)

	var reasoner ai.Reasoner
	if cfg.Triage {
		r, err := ai.NewAnthropicReasoner(ai.Config{Model: cfg.Model})
		if err != nil {
			// No API key is not fatal: triage degrades to the
			// rule-based fallback.
			log.Warn().Err(err).Msg("reasoning model unavailable, using rule-based verdicts")
		} else {
			reasoner = r
		}
	}

	runner := &watcher.Runner{
		Helpdesk: client,
		Triager: &triage.Triager{
			Reasoner: reasoner,
			Details:  client,
			Limiter:  rate.NewLimiter(rate.Every(2*time.Second), 1),
			Log:      log,
		},
		Destination: alert.Select(alert.RouteConfig{
			SlackChannel: cfg.SlackChannel,
			SlackToken:   cfg.SlackToken,
			WebhookURL:   cfg.WebhookURL,
			PortalURL:    portal,
		}),
		StatePath:     cfg.StateFile,
		Lookback:      time.Duration(cfg.LookbackHours) * time.Hour,
		ImportantOnly: cfg.ImportantOnly,
		TriageEnabled: cfg.Triage,
		Log:           log,
	}

	result, err := runner.RunCycle(ctx)
	if err != nil {
		if errors.Is(err, helpdesk.ErrUpstreamQueryFailed) {
			log.Error().Str("phase", result.Phase.String()).Msg("cycle aborted, state preserved for next run")
		}
		return err
	}

	printResult(cfg, result)
	return nil
}

func printResult(cfg *config.Config, result *watcher.Result) {
	if cfg.JSON {
		out, _ := json.MarshalIndent(map[string]any{
			"new":       result.New,
			"updated":   result.Updated,
			"timestamp": time.Now().Format(time.RFC3339),
		}, "", "  ")
		fmt.Println(string(out))
		return
	}

	if !cfg.Quiet {
		cyan := color.New(color.FgCyan).SprintFunc()
		fmt.Printf("Checked at %s\n", cyan(time.Now().Format("2006-01-02 15:04")))
		fmt.Printf("New tickets: %d\n", len(result.New))
		fmt.Printf("Updated tickets: %d\n", len(result.Updated))
	}

	if result.HadNew && !cfg.Quiet {
		green := color.New(color.FgGreen, color.Bold).SprintFunc()
		for _, t := range result.New {
			fmt.Printf("  %s %s - %s\n", green("NEW:"), t.Hash, truncate(t.Subject, 50))
		}
	}
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func newLogger(quiet bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if quiet {
		level = zerolog.WarnLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).
		With().Timestamp().Logger()
}
