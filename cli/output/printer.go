package output

import (
	"io"
	"os"
	"sort"
	"sync"

	"github.com/pterm/pterm"
)

// Printer renders structured CLI messages without relying on the logger.
// Messages go to stderr by default so stdout stays free for stream data.
type Printer struct {
	mu     sync.Mutex
	writer io.Writer
}

func NewPrinter() *Printer {
	return &Printer{writer: os.Stderr}
}

func (p *Printer) WithWriter(w io.Writer) *Printer {
	p.writer = w
	return p
}

func (p *Printer) Info(msg string, fields map[string]any) {
	p.printWith(pterm.Info, msg, fields)
}

func (p *Printer) Success(msg string, fields map[string]any) {
	p.printWith(pterm.Success, msg, fields)
}

func (p *Printer) Error(msg string, fields map[string]any) {
	p.printWith(pterm.Error, msg, fields)
}

func (p *Printer) Warn(msg string, fields map[string]any) {
	p.printWith(pterm.Warning, msg, fields)
}

func (p *Printer) printWith(prefix pterm.PrefixPrinter, msg string, fields map[string]any) {
	p.mu.Lock()
	defer p.mu.Unlock()

	printer := prefix.WithWriter(p.writer)
	printer.Println(msg)
	if len(fields) == 0 {
		return
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		pterm.Fprint(p.writer, pterm.Sprintf("  %s: %v\n", k, fields[k]))
	}
}
