package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/franz/tutorial-bot/internal/populate"
	"github.com/franz/tutorial-bot/internal/remote"
	"github.com/franz/tutorial-bot/internal/report"
	"github.com/franz/tutorial-bot/internal/util"
)

var populateCmd = &cobra.Command{
	Use:   "populate",
	Short: "Seed the music library table from the mood folders on the media host",
	Long: `Seed the music library table on the media host.

This command:
1. Lists audio files under the music root over SSH
2. Classifies each file by its mood folder (energetic, calm, dramatic, inspirational)
3. Generates a SQL script that truncates and refills the table
4. Uploads the script over SFTP
5. Runs it through psql and reports the row count

Use --dry-run to stop after writing the local script.`,
	RunE: runPopulate,
}

func init() {
	rootCmd.AddCommand(populateCmd)

	populateCmd.Flags().Bool("dry-run", false, "generate the script locally without uploading or executing it")
	populateCmd.Flags().String("root", "", "music root on the media host (default /var/www/music)")
	populateCmd.Flags().String("table", "", "target table (default music_library)")
	populateCmd.Flags().String("host", "", "media host (overrides remote.host)")

	viper.BindPFlag("library.root", populateCmd.Flags().Lookup("root"))
	viper.BindPFlag("library.table", populateCmd.Flags().Lookup("table"))
	viper.BindPFlag("remote.host", populateCmd.Flags().Lookup("host"))
}

func runPopulate(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	dryRun, _ := cmd.Flags().GetBool("dry-run")

	rcfg, err := remoteConfig()
	if err != nil {
		return err
	}

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	logger, err := newEventLogger("populate")
	if err != nil {
		return err
	}
	defer logger.Close()
	util.DebugLog("Event log: %s", logger.Path())

	util.HeaderLog("Music Library Database Population")
	util.InfoLog("Connecting to %s@%s", rcfg.User, rcfg.Addr())

	client, err := remote.Dial(ctx, rcfg)
	if err != nil {
		logger.LogError(report.EventError, "", err)
		return err
	}
	defer client.Close()

	p, err := populate.New(&populate.Config{
		Host:         client,
		HostName:     client.Host(),
		Root:         GetConfigString("library.root", populate.DefaultRoot),
		Extensions:   GetConfigStringSlice("library.extensions"),
		Table:        GetConfigString("library.table", ""),
		LocalScript:  GetConfigString("library.local_script", populate.DefaultLocalScript),
		RemoteScript: GetConfigString("library.remote_script", populate.DefaultRemoteScript),
		PsqlCommand:  GetConfigString("library.psql", populate.DefaultPsqlCommand),
		DryRun:       dryRun,
		Store:        db,
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	result, err := p.Run(ctx)
	if result != nil && result.Catalog != nil && !util.IsQuiet() {
		fmt.Println(report.MoodSummary(result.Catalog))
	}
	if err != nil {
		return err
	}

	if dryRun {
		util.SuccessLog("Dry run complete: %d inserts written to %s", result.Inserts, result.ScriptPath)
	} else {
		util.SuccessLog("Populated %d tracks in %s", result.Inserts, result.Duration.Round(time.Millisecond))
	}
	return nil
}
