package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/franz/tutorial-bot/internal/library"
	"github.com/franz/tutorial-bot/internal/remote"
	"github.com/franz/tutorial-bot/internal/render"
	"github.com/franz/tutorial-bot/internal/store"
	"github.com/franz/tutorial-bot/internal/util"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks on the environment and configuration",
	Long: `Run diagnostic checks to ensure tbot can operate correctly.

This command checks:
- Local history database accessibility and integrity
- SQLite version
- Library settings (table name, extensions)
- SSH connectivity to the media host and the music root
- psql availability on the media host
- Render API key

Use --offline to skip the checks that contact the media host.`,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)

	doctorCmd.Flags().Bool("offline", false, "skip checks that need the media host")
}

type checkResult struct {
	name    string
	message string
	error   bool
	warning bool
}

func runDoctor(cmd *cobra.Command, args []string) error {
	offline, _ := cmd.Flags().GetBool("offline")

	util.InfoLog("=== tbot Doctor - System Diagnostics ===")
	util.InfoLog("")

	results := []checkResult{
		checkSQLite(),
		checkDatabase(viper.GetString("db")),
		checkLibrarySettings(GetConfigString("library.table", library.DefaultTable), GetConfigStringSlice("library.extensions")),
		checkRenderKey(render.NewPoller(pollerConfig())),
	}

	if !offline {
		results = append(results, checkRemote(cmd.Context())...)
	}

	util.InfoLog("")
	util.InfoLog("=== Diagnostic Results ===")
	util.InfoLog("")

	hasErrors, hasWarnings := printResults(results)

	util.InfoLog("")
	if hasErrors {
		util.ErrorLog("Some critical checks failed. Please resolve errors before running tbot.")
		return fmt.Errorf("system diagnostics failed")
	} else if hasWarnings {
		util.WarnLog("Some checks produced warnings. Review them before proceeding.")
	} else {
		util.SuccessLog("All checks passed!")
	}
	return nil
}

func printResults(results []checkResult) (hasErrors, hasWarnings bool) {
	for _, r := range results {
		symbol := "✓"
		if r.error {
			symbol = "✗"
			hasErrors = true
		} else if r.warning {
			symbol = "⚠"
			hasWarnings = true
		}

		line := fmt.Sprintf("[%s] %s", symbol, r.name)
		if r.message != "" {
			line += fmt.Sprintf(": %s", r.message)
		}

		if r.error {
			util.ErrorLog("%s", line)
		} else if r.warning {
			util.WarnLog("%s", line)
		} else {
			util.SuccessLog("%s", line)
		}
	}
	return hasErrors, hasWarnings
}

// checkSQLite verifies SQLite version
func checkSQLite() checkResult {
	version := store.SQLiteVersion()
	if version == "" {
		return checkResult{
			name:    "SQLite",
			error:   true,
			message: "unable to determine version",
		}
	}
	return checkResult{
		name:    "SQLite",
		message: fmt.Sprintf("version %s (built-in)", version),
	}
}

// checkDatabase verifies database file accessibility
func checkDatabase(dbPath string) checkResult {
	if dbPath == "" {
		return checkResult{
			name:    "Database",
			warning: true,
			message: "no database path specified (use --db flag or config)",
		}
	}

	info, err := os.Stat(dbPath)
	if err != nil {
		if os.IsNotExist(err) {
			return checkResult{
				name:    "Database",
				message: fmt.Sprintf("%s (will be created on first run)", dbPath),
			}
		}
		return checkResult{
			name:    "Database",
			error:   true,
			message: fmt.Sprintf("cannot access %s: %v", dbPath, err),
		}
	}

	if !info.Mode().IsRegular() {
		return checkResult{
			name:    "Database",
			error:   true,
			message: fmt.Sprintf("%s is not a regular file", dbPath),
		}
	}

	db, err := store.Open(dbPath)
	if err != nil {
		return checkResult{
			name:    "Database",
			error:   true,
			message: fmt.Sprintf("cannot open %s: %v", dbPath, err),
		}
	}
	defer db.Close()

	if err := db.CheckIntegrity(); err != nil {
		return checkResult{
			name:    "Database",
			error:   true,
			message: fmt.Sprintf("integrity check failed: %v", err),
		}
	}

	counts, _ := db.CountRuns()
	total := 0
	for _, n := range counts {
		total += n
	}
	return checkResult{
		name:    "Database",
		message: fmt.Sprintf("%s (%s, %d populate runs)", dbPath, humanize.Bytes(uint64(info.Size())), total),
	}
}

// checkLibrarySettings validates the table name and extension list
func checkLibrarySettings(table string, exts []string) checkResult {
	if !library.ValidTableName(table) {
		return checkResult{
			name:    "Library settings",
			error:   true,
			message: fmt.Sprintf("invalid table name %q", table),
		}
	}
	return checkResult{
		name:    "Library settings",
		message: fmt.Sprintf("table %s, extensions %s", table, strings.Join(remote.NormalizeExtensions(exts), " ")),
	}
}

// checkRenderKey reports whether render polling will run
func checkRenderKey(p *render.Poller) checkResult {
	if !p.Configured() {
		return checkResult{
			name:    "Render API key",
			warning: true,
			message: "not configured (render status checks will be skipped)",
		}
	}
	return checkResult{
		name:    "Render API key",
		message: "configured",
	}
}

// checkRemote connects to the media host and probes the music root and psql
func checkRemote(ctx context.Context) []checkResult {
	rcfg, err := remoteConfig()
	if err != nil {
		return []checkResult{{name: "Media host", error: true, message: err.Error()}}
	}
	rcfg.Retry = &util.RetryConfig{MaxAttempts: 1}

	ctx, cancel := context.WithTimeout(ctx, rcfg.Timeout+10*time.Second)
	defer cancel()

	start := time.Now()
	client, err := remote.Dial(ctx, rcfg)
	if err != nil {
		return []checkResult{{name: "Media host", error: true, message: fmt.Sprintf("%s: %v", rcfg.Addr(), err)}}
	}
	defer client.Close()

	results := []checkResult{{
		name:    "Media host",
		message: fmt.Sprintf("%s@%s (connected in %s)", rcfg.User, rcfg.Addr(), time.Since(start).Round(time.Millisecond)),
	}}

	root := GetConfigString("library.root", "/var/www/music")
	results = append(results, checkRemoteCommand(ctx, client, "Music root",
		"test -d "+remote.ShellQuote(root)+" && echo ok", root))

	psql := GetConfigString("library.psql", "")
	if psql != "" {
		results = append(results, checkRemoteCommand(ctx, client, "psql",
			psql+" -t -c 'SELECT version();'", "reachable"))
	}
	return results
}

func checkRemoteCommand(ctx context.Context, r remote.Runner, name, command, okMessage string) checkResult {
	res, err := r.Run(ctx, command)
	if err != nil {
		return checkResult{name: name, error: true, message: err.Error()}
	}
	if !res.OK() {
		return checkResult{name: name, error: true, message: res.Err().Error()}
	}
	return checkResult{name: name, message: okMessage}
}
