package reporter

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/fenilsonani/dircompress/pkg/utils"
)

// reportTable renders one row per file followed by totals
func (r *Reporter) reportTable(s Summary) error {
	tw := table.NewWriter()
	tw.SetStyle(TableStyle())
	tw.SetTitle(fmt.Sprintf("%s  %s%s", s.Target, s.Timestamp.Format("2006-01-02 15:04:05"), dryRunTag(s.DryRun)))

	tw.AppendHeader(table.Row{"Path", "Result", "Original", "Compressed", "Saved"})

	for _, f := range s.Compressed {
		tw.AppendRow(table.Row{
			truncatePath(f.Path, 60),
			"compressed",
			utils.FormatBytes(f.OriginalSize),
			utils.FormatBytes(f.CompressedSize),
			utils.FormatBytes(f.Saved),
		})
	}
	for _, f := range s.Failed {
		tw.AppendRow(table.Row{truncatePath(f.Path, 60), "failed: " + f.Reason, "", "", ""})
	}
	for _, f := range s.ExcludedType {
		tw.AppendRow(table.Row{truncatePath(f.Path, 60), "skipped: " + f.MIME, "", "", ""})
	}

	tw.AppendFooter(table.Row{
		fmt.Sprintf("%d compressed, %d failed, %d excluded, %d too small", len(s.Compressed), len(s.Failed), len(s.ExcludedType), s.TooSmall),
		s.Status(),
		"",
		"",
		utils.FormatBytes(s.SavedBytes),
	})

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 4, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 5, Align: text.AlignRight, AlignHeader: text.AlignLeft, AlignFooter: text.AlignRight},
	})

	_, err := fmt.Fprintln(r.writer, tw.Render())
	return err
}

// TableStyle is the rounded style with footers left as written, so byte
// units like KiB keep their case
func TableStyle() table.Style {
	style := table.StyleRounded
	style.Format.Footer = text.FormatDefault
	return style
}

func truncatePath(path string, max int) string {
	if len(path) <= max {
		return path
	}
	return "..." + path[len(path)-(max-3):]
}

func dryRunTag(dryRun bool) string {
	if dryRun {
		return "  [DRY RUN]"
	}
	return ""
}
