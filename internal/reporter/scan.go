package reporter

import (
	"encoding/json"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"gopkg.in/yaml.v3"

	"github.com/fenilsonani/dircompress/internal/scanner"
	"github.com/fenilsonani/dircompress/pkg/utils"
)

// ScanReport is a classification preview. Nothing on disk was changed.
type ScanReport struct {
	Target        string             `json:"target" yaml:"target"`
	MinSize       int64              `json:"min_size" yaml:"min_size"`
	Eligible      []scanner.FileInfo `json:"eligible" yaml:"eligible"`
	EligibleBytes int64              `json:"eligible_bytes" yaml:"eligible_bytes"`
	ExcludedType  []scanner.FileInfo `json:"excluded_type" yaml:"excluded_type"`
	TooSmall      int                `json:"too_small" yaml:"too_small"`
	TooSmallBytes int64              `json:"too_small_bytes" yaml:"too_small_bytes"`
	ScanErrors    int                `json:"scan_errors" yaml:"scan_errors"`
}

// NewScanReport copies a classification into a report
func NewScanReport(target string, minSize int64, cls *scanner.Classification, scanErrors int) ScanReport {
	r := ScanReport{
		Target:       target,
		MinSize:      minSize,
		ScanErrors:   scanErrors,
		Eligible:     []scanner.FileInfo{},
		ExcludedType: []scanner.FileInfo{},
	}
	if cls == nil {
		return r
	}
	r.Eligible = append(r.Eligible, cls.Eligible...)
	r.EligibleBytes = cls.EligibleSize()
	r.ExcludedType = append(r.ExcludedType, cls.ExcludedType...)
	r.TooSmall = len(cls.TooSmall)
	for _, f := range cls.TooSmall {
		r.TooSmallBytes += f.Size
	}
	r.ScanErrors += len(cls.Errors)
	return r
}

// ReportScan renders a scan preview in the reporter's format
func (r *Reporter) ReportScan(sr ScanReport) error {
	switch r.format {
	case FormatJSON:
		encoder := json.NewEncoder(r.writer)
		encoder.SetIndent("", "  ")
		return encoder.Encode(sr)
	case FormatYAML:
		encoder := yaml.NewEncoder(r.writer)
		defer encoder.Close()
		return encoder.Encode(sr)
	case FormatTable:
		return r.scanTable(sr)
	case FormatSummary:
		return r.scanSummary(sr)
	default:
		return fmt.Errorf("unsupported format: %s", r.format)
	}
}

func (r *Reporter) scanSummary(sr ScanReport) error {
	w := &errWriter{w: r.writer}

	w.printf("=== Scan of %s ===\n", sr.Target)
	w.printf("Minimum size: %s\n", utils.FormatBytes(sr.MinSize))

	w.printf("\nWould compress (%d, %s):\n", len(sr.Eligible), utils.FormatBytes(sr.EligibleBytes))
	for _, f := range sr.Eligible {
		w.printf("  %s (%s)\n", f.Path, utils.FormatBytes(f.Size))
	}

	w.printf("\nSkipped, already compressed or media (%d):\n", len(sr.ExcludedType))
	for _, f := range sr.ExcludedType {
		w.printf("  %s (%s)\n", f.Path, f.MIME)
	}

	w.printf("\nSkipped, below minimum size: %d files, %s\n", sr.TooSmall, utils.FormatBytes(sr.TooSmallBytes))
	if sr.ScanErrors > 0 {
		w.printf("\nUnreadable entries: %d\n", sr.ScanErrors)
	}
	return w.err
}

func (r *Reporter) scanTable(sr ScanReport) error {
	tw := table.NewWriter()
	tw.SetStyle(TableStyle())
	tw.SetTitle(fmt.Sprintf("%s  [SCAN]", sr.Target))
	tw.AppendHeader(table.Row{"Path", "Bucket", "Type", "Size"})

	for _, f := range sr.Eligible {
		tw.AppendRow(table.Row{truncatePath(f.Path, 60), "eligible", f.MIME, utils.FormatBytes(f.Size)})
	}
	for _, f := range sr.ExcludedType {
		tw.AppendRow(table.Row{truncatePath(f.Path, 60), "excluded", f.MIME, utils.FormatBytes(f.Size)})
	}

	tw.AppendFooter(table.Row{
		fmt.Sprintf("%d eligible, %d excluded, %d too small", len(sr.Eligible), len(sr.ExcludedType), sr.TooSmall),
		"", "",
		utils.FormatBytes(sr.EligibleBytes),
	})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignRight, AlignHeader: text.AlignLeft, AlignFooter: text.AlignRight},
	})

	_, err := fmt.Fprintln(r.writer, tw.Render())
	return err
}
