// Package console provides the line-oriented prompts and status output of the monitors.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
)

// ErrNoInput is returned when the input stream ends before an answer is read.
var ErrNoInput = errors.New("no more input")

// Prompter reads answers line by line and writes prompts and status lines.
// Input is read by a single background goroutine so a prompt can be abandoned
// when its context ends; a line typed afterwards answers the next prompt.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer

	once    sync.Once
	lines   chan inputLine
	readErr error
}

type inputLine struct {
	text string
	err  error
}

// New creates a Prompter over the given streams.
func New(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{
		in:  bufio.NewReader(in),
		out: out,
	}
}

func (p *Prompter) readLines() {
	for {
		text, err := p.in.ReadString('\n')
		p.lines <- inputLine{text: text, err: err}
		if err != nil {
			return
		}
	}
}

// Println writes a line.
func (p *Prompter) Println(a ...any) {
	fmt.Fprintln(p.out, a...)
}

// Printf writes formatted output.
func (p *Prompter) Printf(format string, a ...any) {
	fmt.Fprintf(p.out, format, a...)
}

// Lines writes each line followed by a newline.
func (p *Prompter) Lines(lines []string) {
	for _, line := range lines {
		fmt.Fprintln(p.out, line)
	}
}

// Banner writes a title framed by rule lines made of ch.
func (p *Prompter) Banner(title string, ch string) {
	rule := strings.Repeat(ch, 40)
	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, rule)
	fmt.Fprintln(p.out, "  "+title)
	fmt.Fprintln(p.out, rule)
}

// Ask writes prompt and returns the trimmed answer. A final line without a
// trailing newline is still returned; ErrNoInput means the stream is exhausted.
// If ctx ends first, Ask returns ctx.Err().
func (p *Prompter) Ask(ctx context.Context, prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)

	if err := ctx.Err(); err != nil {
		fmt.Fprintln(p.out)
		return "", err
	}
	if p.readErr != nil {
		return "", p.inputError(p.readErr)
	}

	p.once.Do(func() {
		p.lines = make(chan inputLine)
		go p.readLines()
	})

	select {
	case <-ctx.Done():
		fmt.Fprintln(p.out)
		return "", ctx.Err()
	case line := <-p.lines:
		if line.err != nil {
			p.readErr = line.err
			if line.text == "" {
				return "", p.inputError(line.err)
			}
		}
		return strings.TrimSpace(line.text), nil
	}
}

func (p *Prompter) inputError(err error) error {
	if errors.Is(err, io.EOF) {
		fmt.Fprintln(p.out)
		return ErrNoInput
	}
	return fmt.Errorf("reading input: %w", err)
}

// AskNonEmpty repeats prompt until a non-empty answer is given, printing
// emptyMsg after each empty answer.
func (p *Prompter) AskNonEmpty(ctx context.Context, prompt, emptyMsg string) (string, error) {
	for {
		answer, err := p.Ask(ctx, prompt)
		if err != nil {
			return "", err
		}
		if answer != "" {
			return answer, nil
		}
		p.Println(emptyMsg)
	}
}

// AskPositiveFloat repeats prompt until the answer parses as a number greater than zero.
func (p *Prompter) AskPositiveFloat(ctx context.Context, prompt, notPositiveMsg string) (float64, error) {
	for {
		answer, err := p.Ask(ctx, prompt)
		if err != nil {
			return 0, err
		}

		value, err := strconv.ParseFloat(answer, 64)
		if err != nil {
			p.Println("Invalid input. Please enter a number.")
			continue
		}
		if value <= 0 {
			p.Println(notPositiveMsg)
			continue
		}
		return value, nil
	}
}

// Option is one numbered entry of a menu.
type Option struct {
	Key   string
	Label string
}

// Menu prints the numbered options and returns the raw answer.
func (p *Prompter) Menu(ctx context.Context, title string, options []Option, prompt string) (string, error) {
	if title != "" {
		p.Println(title)
	}
	for _, o := range options {
		p.Printf("%s. %s\n", o.Key, o.Label)
	}
	return p.Ask(ctx, prompt)
}

// Choose prints the menu until the answer matches one of the option keys.
func (p *Prompter) Choose(ctx context.Context, title string, options []Option, prompt, invalidMsg string) (Option, error) {
	for {
		answer, err := p.Menu(ctx, title, options, prompt)
		if err != nil {
			return Option{}, err
		}
		for _, o := range options {
			if answer == o.Key {
				return o, nil
			}
		}
		p.Println(invalidMsg)
	}
}
