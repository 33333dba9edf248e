package output

import (
	"io"
	"math"
	"os"
	"strings"
	"sync"

	"github.com/pterm/pterm"
)

// Progress renders a single byte progress bar on stderr. A zero total
// means the size is unknown (e.g. stdin) and only a spinner is shown.
type Progress struct {
	mu      sync.Mutex
	bar     *pterm.ProgressbarPrinter
	spinner *pterm.SpinnerPrinter
	title   string
	done    int64
	// scale is how many bytes one bar step stands for; shown counts steps.
	scale   int64
	shown   int
}

func StartProgress(title string, total int64) *Progress {
	p := &Progress{title: strings.TrimSpace(title), scale: barScale(total)}
	if total > 0 {
		bar, err := pterm.DefaultProgressbar.
			WithWriter(os.Stderr).
			WithTitle(p.title).
			WithTotal(barSteps(total, p.scale)).
			WithShowCount(false).
			WithRemoveWhenDone(true).
			Start()
		if err == nil {
			p.bar = bar
		}
		return p
	}
	spinner, err := pterm.DefaultSpinner.WithWriter(os.Stderr).Start(p.title)
	if err == nil {
		p.spinner = spinner
	}
	return p
}

func (p *Progress) add(n int) {
	if p == nil || n <= 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done += int64(n)
	if p.bar != nil {
		if steps := barSteps(p.done, p.scale); steps > p.shown {
			p.bar.Add(steps - p.shown)
			p.shown = steps
		}
	}
	if p.spinner != nil {
		p.spinner.UpdateText(p.title + " " + HumanizeSize(p.done))
	}
}

func (p *Progress) Stop() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar != nil {
		_, _ = p.bar.Stop()
		p.bar = nil
	}
	if p.spinner != nil {
		_ = p.spinner.Stop()
		p.spinner = nil
	}
}

// WrapWriter decorates writer so every write advances the bar.
func (p *Progress) WrapWriter(writer io.Writer) io.Writer {
	if p == nil {
		return writer
	}
	return &countingWriter{writer: writer, hook: p.add}
}

// WrapReader decorates reader so every read advances the bar.
func (p *Progress) WrapReader(reader io.Reader) io.Reader {
	if p == nil {
		return reader
	}
	return &countingReader{reader: reader, hook: p.add}
}

// barScale picks the bytes per bar step so that total fits the bar's int
// counter on every platform.
func barScale(total int64) int64 {
	scale := int64(1)
	for total/scale > math.MaxInt32 {
		scale *= 1024
	}
	return scale
}

// barSteps rounds up so that the last partial step completes the bar.
func barSteps(bytes, scale int64) int {
	if bytes <= 0 {
		return 0
	}
	return int((bytes + scale - 1) / scale)
}

type countingWriter struct {
	writer io.Writer
	hook   func(int)
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.writer.Write(p)
	if n > 0 && cw.hook != nil {
		cw.hook(n)
	}
	return n, err
}

type countingReader struct {
	reader io.Reader
	hook   func(int)
}

func (cr *countingReader) Read(p []byte) (int, error) {
	n, err := cr.reader.Read(p)
	if n > 0 && cr.hook != nil {
		cr.hook(n)
	}
	return n, err
}
