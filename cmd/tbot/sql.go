package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/franz/tutorial-bot/internal/library"
	"github.com/franz/tutorial-bot/internal/report"
	"github.com/franz/tutorial-bot/internal/scan"
	"github.com/franz/tutorial-bot/internal/util"
)

var sqlCmd = &cobra.Command{
	Use:   "sql",
	Short: "Generate the library SQL script from saved lister output",
	Long: `Generate the music library SQL script offline.

Input is lister output, one "path|filename" line per file, read from
--input or stdin. With --scan a local copy of the music root is walked
instead. The script is written to stdout (or --out) and a mood
summary is printed to stderr.

Example:
  ssh media 'find /var/www/music -type f -printf "%p|%f\n"' | tbot sql > populate.sql`,
	RunE: runSQL,
}

func init() {
	rootCmd.AddCommand(sqlCmd)

	sqlCmd.Flags().StringP("input", "i", "-", "lister output file, or - for stdin")
	sqlCmd.Flags().String("scan", "", "walk this local directory instead of reading lister output")
	sqlCmd.Flags().StringP("out", "o", "", "write the script to this file instead of stdout")
	sqlCmd.Flags().Bool("now", false, "stamp last_synced with NOW() instead of the generation time")
	sqlCmd.Flags().String("table", "", "target table (default music_library)")
}

func runSQL(cmd *cobra.Command, args []string) error {
	input, _ := cmd.Flags().GetString("input")
	out, _ := cmd.Flags().GetString("out")
	useNow, _ := cmd.Flags().GetBool("now")
	table, _ := cmd.Flags().GetString("table")
	if table == "" {
		table = GetConfigString("library.table", library.DefaultTable)
	}

	scanRoot, _ := cmd.Flags().GetString("scan")

	var r io.Reader = cmd.InOrStdin()
	if scanRoot != "" {
		res, err := scan.New(GetConfigStringSlice("library.extensions")).Scan(cmd.Context(), scanRoot)
		if err != nil {
			return err
		}
		r = strings.NewReader(strings.Join(res.Lines, "\n"))
	} else if input != "" && input != "-" {
		f, err := os.Open(input)
		if err != nil {
			return fmt.Errorf("failed to open input: %w", err)
		}
		defer f.Close()
		r = f
	}

	opts := library.RenderOptions{Table: table}
	if !useNow {
		opts.SyncedAt = time.Now()
	}

	catalog, script, err := generateScript(r, opts)
	if err != nil {
		return err
	}

	if !viper.GetBool("quiet") {
		fmt.Fprintln(cmd.ErrOrStderr(), report.MoodSummary(catalog))
	}

	if out == "" {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), script)
		return err
	}
	if err := os.WriteFile(out, []byte(script+"\n"), 0644); err != nil {
		return fmt.Errorf("failed to write script: %w", err)
	}
	util.SuccessLog("Wrote %d inserts to %s", catalog.Len(), out)
	return nil
}

// generateScript classifies every lister line in r and renders the script.
func generateScript(r io.Reader, opts library.RenderOptions) (*library.Catalog, string, error) {
	if !library.ValidTableName(opts.Table) && opts.Table != "" {
		return nil, "", fmt.Errorf("%w: invalid table name %q", util.ErrInvalidConfig, opts.Table)
	}

	catalog := &library.Catalog{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if len(line) > 0 && line[len(line)-1] == '\r' {
			line = line[:len(line)-1]
		}
		if line == "" {
			continue
		}
		if reason := catalog.Add(line); reason != library.Kept {
			util.DebugLog("Skipping %s line: %s", reason, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, "", fmt.Errorf("failed to read input: %w", err)
	}

	return catalog, library.Script(library.RenderSQL(catalog.Tracks(), opts)), nil
}
