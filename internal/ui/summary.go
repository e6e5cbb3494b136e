package ui

import (
	"fmt"
	"strings"

	"github.com/fenilsonani/dircompress/internal/reporter"
	"github.com/fenilsonani/dircompress/internal/ui/styles"
	"github.com/fenilsonani/dircompress/pkg/utils"
)

// maxListed caps how many paths of each kind the panel shows
const maxListed = 10

// RenderSummary renders a run summary as a styled terminal panel
func RenderSummary(s reporter.Summary, width int) string {
	var b strings.Builder

	title := "Compression Summary"
	if s.DryRun {
		title += " (dry run)"
	}
	b.WriteString(styles.TitleStyle.Render(title))
	b.WriteString("\n")

	row := func(label, value string) {
		b.WriteString(styles.LabelStyle.Render(label))
		b.WriteString(value)
		b.WriteString("\n")
	}

	row("Directory", styles.FilePathStyle.Render(s.Target))
	row("Status", statusText(s))
	row("Space saved", formatSaved(s.SavedBytes))
	row("Compressed", fmt.Sprintf("%d files", len(s.Compressed)))
	row("Excluded", fmt.Sprintf("%d files", len(s.ExcludedType)))
	row("Too small", fmt.Sprintf("%d files, %s", s.TooSmall, utils.FormatBytes(s.TooSmallBytes)))
	if len(s.Failed) > 0 {
		row("Failed", styles.ErrorStyle.Render(fmt.Sprintf("%d files", len(s.Failed))))
	}
	if s.ScanErrors > 0 {
		row("Unreadable", styles.WarningStyle.Render(fmt.Sprintf("%d entries", s.ScanErrors)))
	}

	pathWidth := width - 30
	if len(s.Compressed) > 0 {
		b.WriteString("\n")
		b.WriteString(styles.SubtitleStyle.Render("Compressed"))
		b.WriteString("\n")
		for i, f := range s.Compressed {
			if i == maxListed {
				b.WriteString(styles.DimStyle.Render(fmt.Sprintf("  ... and %d more", len(s.Compressed)-maxListed)))
				b.WriteString("\n")
				break
			}
			fmt.Fprintf(&b, "  %s  %s\n", truncatePath(f.Path, pathWidth), formatSaved(f.Saved))
		}
	}

	if len(s.ExcludedType) > 0 {
		b.WriteString("\n")
		b.WriteString(styles.SubtitleStyle.Render("Skipped by type"))
		b.WriteString("\n")
		for i, f := range s.ExcludedType {
			if i == maxListed {
				b.WriteString(styles.DimStyle.Render(fmt.Sprintf("  ... and %d more", len(s.ExcludedType)-maxListed)))
				b.WriteString("\n")
				break
			}
			fmt.Fprintf(&b, "  %s  %s\n", truncatePath(f.Path, pathWidth), styles.MimeStyle.Render(f.MIME))
		}
	}

	if len(s.Failed) > 0 {
		b.WriteString("\n")
		b.WriteString(styles.ErrorStyle.Render("Failed"))
		b.WriteString("\n")
		for _, f := range s.Failed {
			fmt.Fprintf(&b, "  %s\n", f.Reason)
		}
	}

	if s.DryRun {
		b.WriteString("\n")
		b.WriteString(styles.InfoStyle.Render("Note: this was a dry run, no files were changed."))
		b.WriteString("\n")
	}

	return styles.PanelStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func statusText(s reporter.Summary) string {
	switch s.Status() {
	case "interrupted":
		return styles.WarningStyle.Render("interrupted, remaining files left untouched")
	case "partial":
		return styles.WarningStyle.Render("completed with failures")
	default:
		return styles.SuccessStyle.Render("ok")
	}
}
