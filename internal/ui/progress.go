package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	prog "github.com/fenilsonani/dircompress/internal/progress"
	"github.com/fenilsonani/dircompress/internal/ui/styles"
	"github.com/fenilsonani/dircompress/pkg/utils"
)

const maxBarWidth = 60

// scanMsg and compressMsg wrap reporter updates for the program
type (
	scanMsg     struct{ p *prog.ScanProgress }
	compressMsg struct{ p *prog.CompressProgress }
	finishedMsg struct{}
)

// progressModel draws a spinner while walking and classifying and a bar
// while compressing
type progressModel struct {
	target   string
	spinner  spinner.Model
	bar      progress.Model
	scan     *prog.ScanProgress
	compress *prog.CompressProgress
	width    int
	done     bool
}

func newProgressModel(target string, width int) progressModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.SpinnerStyle

	m := progressModel{
		target:  target,
		spinner: s,
		bar:     progress.New(progress.WithDefaultGradient()),
	}
	m.setWidth(width)
	return m
}

func (m *progressModel) setWidth(width int) {
	m.width = width
	barWidth := width - 4
	if barWidth > maxBarWidth {
		barWidth = maxBarWidth
	}
	if barWidth < 10 {
		barWidth = 10
	}
	m.bar.Width = barWidth
}

// Init initializes the progress view
func (m progressModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles messages
func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.setWidth(msg.Width)
		return m, nil

	case scanMsg:
		m.scan = msg.p
		return m, nil

	case compressMsg:
		m.compress = msg.p
		return m, nil

	case finishedMsg:
		m.done = true
		return m, tea.Quit
	}

	return m, nil
}

// View renders the progress view
func (m progressModel) View() string {
	if m.done {
		return ""
	}

	var b strings.Builder

	b.WriteString(m.spinner.View())
	b.WriteString(" ")
	b.WriteString(styles.BoldStyle.Render("dircompress"))
	b.WriteString(" ")
	b.WriteString(styles.FilePathStyle.Render(m.target))
	b.WriteString("\n")

	if m.compress == nil {
		b.WriteString(styles.DimStyle.Render(prog.FormatScanProgress(m.scan)))
		if m.scan != nil && m.scan.CurrentPath != "" {
			b.WriteString("\n")
			b.WriteString(styles.DimStyle.Render(truncatePath(m.scan.CurrentPath, m.width-2)))
		}
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(m.bar.ViewAs(m.compress.Fraction()))
	b.WriteString("\n")
	b.WriteString(prog.FormatCompressProgress(m.compress))
	if m.compress.Failed > 0 {
		b.WriteString("  ")
		b.WriteString(styles.ErrorStyle.Render(fmt.Sprintf("%d failed", m.compress.Failed)))
	}
	if m.compress.CurrentFile != "" {
		b.WriteString("\n")
		b.WriteString(styles.DimStyle.Render(truncatePath(m.compress.CurrentFile, m.width-2)))
	}
	b.WriteString("\n")
	return b.String()
}

// LiveProgress renders reporter updates in the terminal until stopped
type LiveProgress struct {
	program  *tea.Program
	reporter *prog.ProgressReporter
	updates  <-chan interface{}
	done     chan struct{}
	stopOnce sync.Once
}

// StartLiveProgress subscribes to pr and starts drawing on out. The
// program reads no input and installs no signal handlers, so Ctrl+C still
// reaches the run controller.
func StartLiveProgress(pr *prog.ProgressReporter, target string, out io.Writer) *LiveProgress {
	model := newProgressModel(target, TerminalWidth(out))
	lp := &LiveProgress{
		program: tea.NewProgram(model,
			tea.WithOutput(out),
			tea.WithInput(nil),
			tea.WithoutSignalHandler(),
		),
		reporter: pr,
		updates:  pr.Subscribe(),
		done:     make(chan struct{}),
	}

	go func() {
		defer close(lp.done)
		_, _ = lp.program.Run()
	}()
	go lp.forward()

	return lp
}

func (lp *LiveProgress) forward() {
	for update := range lp.updates {
		switch u := update.(type) {
		case *prog.ScanProgress:
			lp.program.Send(scanMsg{u})
		case *prog.CompressProgress:
			lp.program.Send(compressMsg{u})
		}
	}
}

// Stop clears the progress display and waits for the program to exit
func (lp *LiveProgress) Stop() {
	lp.stopOnce.Do(func() {
		lp.reporter.Unsubscribe(lp.updates)
		lp.program.Send(finishedMsg{})
		<-lp.done
	})
}

func truncatePath(path string, maxLen int) string {
	if maxLen < 8 {
		maxLen = 8
	}
	if len(path) <= maxLen {
		return path
	}
	return "..." + path[len(path)-maxLen+3:]
}

// formatSaved formats a signed byte delta
func formatSaved(delta int64) string {
	return styles.SavedStyle(delta).Render(utils.FormatBytes(delta))
}
