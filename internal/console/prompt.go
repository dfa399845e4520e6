// Package console reads the operator's decisions from a line-oriented terminal.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"fractalcraft.ai/internal/config"
	"fractalcraft.ai/internal/render"
)

// ErrInvalidChoice is returned by ParseDecision for anything but keep/remove.
// The Prompter recovers from it by asking again.
var ErrInvalidChoice = errors.New("please enter 'keep' or 'remove'")

// ErrNoInput means the input stream ended before an answer was given.
var ErrNoInput = errors.New("console: input closed")

func ParseDecision(s string) (render.Decision, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "keep":
		return render.DecisionKeep, nil
	case "remove":
		return render.DecisionRemove, nil
	}
	return render.DecisionNone, ErrInvalidChoice
}

// Prompter implements render.Confirmer over a reader and a writer.
type Prompter struct {
	in  *bufio.Scanner
	out io.Writer
}

func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewScanner(in), out: out}
}

func (p *Prompter) Continue(_ context.Context, _ config.Pattern) error {
	fmt.Fprint(p.out, "Press Enter to REMOVE this pattern and draw next one...")
	_, err := p.readLine()
	return err
}

func (p *Prompter) KeepOrRemove(_ context.Context) (render.Decision, error) {
	for {
		fmt.Fprint(p.out, "Enter 'keep' or 'remove': ")
		line, err := p.readLine()
		if err != nil {
			return render.DecisionNone, err
		}
		d, err := ParseDecision(line)
		if errors.Is(err, ErrInvalidChoice) {
			fmt.Fprintln(p.out, "Please enter 'keep' or 'remove'")
			continue
		}
		return d, err
	}
}

func (p *Prompter) readLine() (string, error) {
	if p.in.Scan() {
		return p.in.Text(), nil
	}
	if err := p.in.Err(); err != nil {
		return "", err
	}
	return "", ErrNoInput
}
