package bot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jholhewres/barkeep/pkg/barkeep/command"
)

// HandleDB serves the $db maintenance actions: stats, export, import.
// Export writes a JSON dump next to the database; import reads the same
// file back.
func (a *Assistant) HandleDB(ctx context.Context, channelID string, parsed *command.Parsed) string {
	if len(parsed.Errors) > 0 {
		return command.FormatErrors(parsed.Errors)
	}
	if a.db == nil {
		return "No database configured."
	}

	switch {
	case parsed.Has("export"):
		path := a.exportPath()
		f, err := os.Create(path)
		if err != nil {
			return fmt.Sprintf("Could not create the export file: %v", err)
		}
		defer f.Close()
		if err := a.db.ExportJSON(f); err != nil {
			return fmt.Sprintf("Export failed: %v", err)
		}
		return "Sessions exported to " + path + "."

	case parsed.Has("import"):
		path := a.exportPath()
		f, err := os.Open(path)
		if err != nil {
			return fmt.Sprintf("Could not open %s: %v", path, err)
		}
		defer f.Close()
		n, err := a.db.ImportJSON(f)
		if err != nil {
			return fmt.Sprintf("Import failed after %d sessions: %v", n, err)
		}
		return fmt.Sprintf("Imported %d sessions.", n)

	default: // stats is the default action
		stats, err := a.db.Stats()
		if err != nil {
			return fmt.Sprintf("Could not read stats: %v", err)
		}
		return renderDBStats(stats)
	}
}

func (a *Assistant) exportPath() string {
	dir := "."
	if a.db != nil {
		dir = filepath.Dir(a.dbPath())
	}
	return filepath.Join(dir, "barkeep-export.json")
}

// dbPath is split out for tests.
func (a *Assistant) dbPath() string {
	return a.db.Path()
}
