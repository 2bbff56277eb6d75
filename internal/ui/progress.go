package ui

import (
	"github.com/pterm/pterm"

	"github.com/satishbabariya/schemakit/internal/core/clone"
)

var stageMessages = map[clone.Stage]string{
	clone.FetchingSchema:   "Fetching schema",
	clone.CreatingSchema:   "Creating schema on target",
	clone.FetchingRowCount: "Counting rows",
}

// CloneProgress renders clone reports until ch is closed. Each table gets
// its own progress bar.
func CloneProgress(ch <-chan clone.Progress) {
	var bar *pterm.ProgressbarPrinter
	finish := func() {
		if bar != nil {
			_, _ = bar.Stop()
			bar = nil
		}
	}
	defer finish()

	for p := range ch {
		switch p.Stage {
		case clone.CopyingData:
			if bar == nil || bar.Title != p.Table {
				finish()
				bar, _ = pterm.DefaultProgressbar.
					WithTotal(100).
					WithTitle(p.Table).
					WithWriter(Out).
					Start()
			}
			if bar != nil && p.Percent > bar.Current {
				bar.Add(p.Percent - bar.Current)
			}
		case clone.FetchingRowCount:
			finish()
			if p.Table != "" {
				PrintInfo("%s: %s", stageMessages[p.Stage], p.Table)
			}
		case clone.Completed, clone.Canceled:
			finish()
		default:
			finish()
			PrintInfo("%s", stageMessages[p.Stage])
		}
	}
}
