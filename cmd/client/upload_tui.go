package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/openmined/songbox/internal/songsdk"
)

const (
	maxBarWidth       = 60
	barWidthPadding   = 4
	rateWindowMinimum = time.Second
)

const (
	txtUploading   = "Uploading %s"
	txtInterrupted = "Upload interrupted. Run the same command again to resume."
	txtCancelHelp  = "Press 'Ctrl+C' to pause the upload."
)

var (
	titleStyle = cyan.Bold(true)
	helpStyle  = gray
)

type uploadProgressMsg struct{ uploaded, total int64 }

type uploadDoneMsg struct {
	result *songsdk.UploadResult
	err    error
}

// uploadModel renders a progress bar for a running upload. The upload itself
// runs outside the program and reports through messages.
type uploadModel struct {
	name    string
	bar     progress.Model
	cancel  context.CancelFunc
	started time.Time

	uploaded int64
	total    int64
	baseline int64 // bytes already on the server when this run started

	result *songsdk.UploadResult
	err    error
	done   bool
}

func newUploadModel(name string, cancel context.CancelFunc) uploadModel {
	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = maxBarWidth
	return uploadModel{
		name:     name,
		bar:      bar,
		cancel:   cancel,
		started:  time.Now(),
		baseline: -1,
	}
}

func (m uploadModel) Init() tea.Cmd {
	return nil
}

func (m uploadModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			// the upload returns once the in-flight chunk is settled
			m.cancel()
		}

	case tea.WindowSizeMsg:
		m.bar.Width = min(msg.Width-barWidthPadding, maxBarWidth)

	case uploadProgressMsg:
		if m.baseline < 0 {
			m.baseline = msg.uploaded
			m.started = time.Now()
		}
		m.uploaded, m.total = msg.uploaded, msg.total

	case uploadDoneMsg:
		m.result, m.err, m.done = msg.result, msg.err, true
		return m, tea.Quit
	}
	return m, nil
}

func (m uploadModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf(txtUploading, m.name)))
	b.WriteString("\n\n")
	b.WriteString(m.bar.ViewAs(m.percent()))
	b.WriteString("\n")
	b.WriteString(m.stats())
	b.WriteString("\n\n")

	switch {
	case m.done && m.err != nil && isInterrupted(m.err):
		b.WriteString(helpStyle.Render(txtInterrupted))
	case m.done && m.err != nil:
		b.WriteString(red.Render(m.err.Error()))
	case m.done:
		b.WriteString(green.Render("Upload complete"))
	default:
		b.WriteString(helpStyle.Render(txtCancelHelp))
	}
	b.WriteString("\n")
	return b.String()
}

func (m uploadModel) percent() float64 {
	if m.total <= 0 {
		if m.done && m.err == nil {
			return 1
		}
		return 0
	}
	return float64(m.uploaded) / float64(m.total)
}

func (m uploadModel) stats() string {
	line := fmt.Sprintf("%s / %s", humanize.Bytes(uint64(m.uploaded)), humanize.Bytes(uint64(m.total)))
	elapsed := time.Since(m.started)
	if sent := m.uploaded - m.baseline; m.baseline >= 0 && sent > 0 && elapsed >= rateWindowMinimum {
		rate := float64(sent) / elapsed.Seconds()
		line += fmt.Sprintf("  %s/s", humanize.Bytes(uint64(rate)))
	}
	return gray.Render(line)
}

// runUploadTUI uploads with a live progress bar and returns once the upload
// finished or was interrupted
func runUploadTUI(ctx context.Context, out io.Writer, uploader *songsdk.Uploader, params *songsdk.UploadParams, name string) (*songsdk.UploadResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// log lines would tear the progress bar
	prevLogger := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer slog.SetDefault(prevLogger)

	p := tea.NewProgram(newUploadModel(name, cancel), tea.WithOutput(out))

	params.Callback = func(uploaded, total int64) {
		p.Send(uploadProgressMsg{uploaded: uploaded, total: total})
	}
	go func() {
		result, err := uploader.Upload(ctx, params)
		p.Send(uploadDoneMsg{result: result, err: err})
	}()

	final, err := p.Run()
	if err != nil {
		return nil, err
	}
	m := final.(uploadModel)
	return m.result, m.err
}
