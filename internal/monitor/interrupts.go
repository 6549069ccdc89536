package monitor

import (
	"os"
	"os/signal"
)

// Interrupts delivers user interrupts to the polling phase.
type Interrupts interface {
	// Listen starts capturing interrupts and returns the channel they arrive on.
	// Interrupts left over from an earlier listen are discarded.
	Listen() <-chan os.Signal

	// Release stops capturing; the process default applies until the next Listen.
	Release()
}

type osInterrupts struct {
	ch chan os.Signal
}

// OSInterrupts captures SIGINT from the terminal.
func OSInterrupts() Interrupts {
	return &osInterrupts{ch: make(chan os.Signal, 1)}
}

func (o *osInterrupts) Listen() <-chan os.Signal {
drain:
	for {
		select {
		case <-o.ch:
		default:
			break drain
		}
	}
	signal.Notify(o.ch, os.Interrupt)
	return o.ch
}

func (o *osInterrupts) Release() {
	signal.Stop(o.ch)
}
