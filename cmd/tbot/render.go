package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/franz/tutorial-bot/internal/render"
	"github.com/franz/tutorial-bot/internal/util"
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Generate a tutorial video and follow it through rendering",
	Long: `Run one tutorial generation end to end.

Steps:
1. Trigger the generation webhook
2. Poll Shotstack until the render is done (needs render.api_key)
3. Optionally download the video
4. Analyze the result
5. Print a summary

Without --case or --topic the built-in test cases are offered interactively.
Ctrl-C stops the test cleanly.`,
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().Int("case", -1, "built-in test case (1-3), or 0 for custom input")
	renderCmd.Flags().String("topic", "", "custom topic")
	renderCmd.Flags().String("style", "", "custom style (default \"cinematic editorial\")")
	renderCmd.Flags().Int("duration", 0, "custom duration in seconds (default 45)")
	renderCmd.Flags().Bool("download", false, "download the finished video without asking")
	renderCmd.Flags().Bool("no-download", false, "never download the video")
	renderCmd.MarkFlagsMutuallyExclusive("download", "no-download")
}

func runRender(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	err := renderTest(ctx, cmd)
	if errors.Is(err, context.Canceled) {
		fmt.Fprintln(cmd.ErrOrStderr(), "\n\nTest interrupted by user")
		return nil
	}
	return err
}

func renderTest(ctx context.Context, cmd *cobra.Command) error {
	p := newPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
	interactive := util.IsInteractive()

	util.HeaderLog("AI Tutorial Video Generator - Test Suite")

	tc, err := chooseTestCase(ctx, cmd, p, interactive)
	if err != nil {
		return err
	}

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	logger, err := newEventLogger("render")
	if err != nil {
		return err
	}
	defer logger.Close()

	poller := render.NewPoller(pollerConfig())
	h := &render.Harness{
		Webhook: render.NewWebhook(
			GetConfigString("render.webhook_url", render.DefaultWebhookURL),
			GetConfigDuration("render.webhook_timeout", render.DefaultWebhookTimeout),
		),
		Poller:          poller,
		Downloader:      render.NewDownloader(),
		OutputDir:       GetConfigString("render.output_dir", "."),
		Store:           db,
		Logger:          logger,
		ConfirmDownload: downloadDecider(ctx, cmd, p, interactive),
	}

	util.HeaderLog("Generating: " + tc.Name)
	_, err = h.Run(ctx, tc)
	return err
}

// chooseTestCase resolves the case from flags, or asks when interactive.
func chooseTestCase(ctx context.Context, cmd *cobra.Command, p *prompter, interactive bool) (render.TestCase, error) {
	choice, _ := cmd.Flags().GetInt("case")
	topic, _ := cmd.Flags().GetString("topic")
	style, _ := cmd.Flags().GetString("style")
	duration, _ := cmd.Flags().GetInt("duration")

	if topic != "" && choice < 0 {
		choice = 0
	}

	if choice > 0 {
		return render.SelectCase(choice)
	}
	if choice == 0 && topic != "" {
		return render.TestCase{
			Name:    render.CustomName,
			Request: render.Request{Topic: topic, Style: style, Duration: duration}.WithDefaults(),
		}, nil
	}
	if !interactive {
		return render.TestCase{}, fmt.Errorf("%w: no test case selected (use --case 1-%d or --topic)",
			util.ErrInvalidConfig, len(render.TestCases()))
	}

	if choice < 0 {
		p.println("Available test cases:")
		for i, tc := range render.TestCases() {
			p.printf("  %d. %s (%ds)\n", i+1, tc.Name, tc.Duration)
		}
		p.println("  0. Custom input")

		n, err := p.askInt(ctx, "\nSelect test case (0-3): ", -1)
		if err != nil {
			return render.TestCase{}, err
		}
		if n != 0 {
			return render.SelectCase(n)
		}
	}
	return p.askCustom(ctx)
}

// downloadDecider honours --download/--no-download, otherwise asks on a
// terminal and declines elsewhere.
func downloadDecider(ctx context.Context, cmd *cobra.Command, p *prompter, interactive bool) func(string) bool {
	if yes, _ := cmd.Flags().GetBool("download"); yes {
		return func(string) bool { return true }
	}
	if no, _ := cmd.Flags().GetBool("no-download"); no || !interactive {
		return nil
	}
	return func(string) bool {
		ok, err := p.confirm(ctx, "\nDownload video? (y/n): ")
		return err == nil && ok
	}
}
