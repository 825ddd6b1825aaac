package operators

import (
	"fmt"
	"io"
	"os"
	"sync"

	"stream-operators/src/interfaces"
	"stream-operators/src/models"
)

// -----------------------------------------------------------------------------

// ConsolePrinter writes one human readable line per emission.
type ConsolePrinter struct {
	mu  sync.Mutex
	out io.Writer
}

func NewConsolePrinter(out io.Writer) *ConsolePrinter {
	if out == nil {
		out = os.Stdout
	}
	return &ConsolePrinter{out: out}
}

func (p *ConsolePrinter) Emit(e models.MEmission) {
	var line string
	switch e.Kind {
	case models.KindMap:
		line = fmt.Sprintf("Mapped %s to %v.", formatPrice(e.Price), e.Result)
	case models.KindFilter:
		line = fmt.Sprintf("Price %s meets the filter criteria.", formatPrice(e.Price))
	case models.KindAccumulate:
		line = fmt.Sprintf("Result for %s: summary: %v; acc: %s.", e.Symbol, e.Result, toJSON(e.Accumulator))
	default:
		line = fmt.Sprintf("%s: %v", e.Symbol, e.Result)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, line)
}

// -----------------------------------------------------------------------------

// FanOut forwards every emission to each sink in order.
type FanOut []interfaces.IEmitter

func (f FanOut) Emit(e models.MEmission) {
	for _, sink := range f {
		if sink != nil {
			sink.Emit(e)
		}
	}
}

// EmitterFunc adapts a function to IEmitter.
type EmitterFunc func(models.MEmission)

func (f EmitterFunc) Emit(e models.MEmission) { f(e) }
