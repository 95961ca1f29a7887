package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jholhewres/barkeep/pkg/barkeep/bot"
	"github.com/jholhewres/barkeep/pkg/barkeep/session"
)

// newDBCmd creates the `barkeep db` maintenance commands, mirroring the
// in-chat $db actions for operators with shell access.
func newDBCmd() *cobra.Command {
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Inspect and migrate the session database",
	}

	dbCmd.AddCommand(
		&cobra.Command{
			Use:   "stats",
			Short: "Show database statistics",
			RunE: func(cmd *cobra.Command, _ []string) error {
				db, err := openDB(cmd)
				if err != nil {
					return err
				}
				defer db.Close()

				stats, err := db.Stats()
				if err != nil {
					return err
				}
				t := table.NewWriter()
				t.SetOutputMirror(os.Stdout)
				t.SetStyle(table.StyleLight)
				t.AppendRows([]table.Row{
					{"channels", stats.Channels},
					{"history rows", stats.HistoryRows},
					{"music rows", stats.MusicRows},
					{"file size", fmt.Sprintf("%.1f KB", float64(stats.FileSize)/1024)},
				})
				for provider, n := range stats.PerProvider {
					t.AppendRow(table.Row{"history (" + provider + ")", n})
				}
				t.Render()
				return nil
			},
		},
		&cobra.Command{
			Use:   "export [file]",
			Short: "Export all sessions as JSON",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				db, err := openDB(cmd)
				if err != nil {
					return err
				}
				defer db.Close()

				out := os.Stdout
				if len(args) == 1 {
					f, err := os.Create(args[0])
					if err != nil {
						return err
					}
					defer f.Close()
					out = f
				}
				return db.ExportJSON(out)
			},
		},
		&cobra.Command{
			Use:   "import <file>",
			Short: "Import sessions from a JSON export",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				db, err := openDB(cmd)
				if err != nil {
					return err
				}
				defer db.Close()

				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				n, err := db.ImportJSON(f)
				if err != nil {
					return err
				}
				fmt.Printf("Imported %d sessions.\n", n)
				return nil
			},
		},
	)
	return dbCmd
}

func openDB(cmd *cobra.Command) (*session.SQLiteStore, error) {
	configPath, _ := cmd.Root().PersistentFlags().GetString("config")
	dataDir := "data"
	if cfg, err := bot.LoadConfig(configPath); err == nil {
		dataDir = cfg.DataDir
	}
	return session.OpenSQLite(filepath.Join(dataDir, "barkeep.db"))
}
