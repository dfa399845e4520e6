// Package render draws escape-time patterns into the world one block at a time and
// erases them again. It never reads input itself: decisions come through a Confirmer.
package render

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"fractalcraft.ai/internal/config"
	"fractalcraft.ai/internal/fractal"
	"fractalcraft.ai/internal/palette"
	"fractalcraft.ai/internal/protocol"
)

// Announcements broadcast with "say".
const (
	DrawingPrefix = "Drawing: "
	CleanupMsg    = "Massive Mandelbrot cleaned up!"
	KeptMsg       = "Massive Mandelbrot complete! Epic fractal saved!"
)

type Decision int

const (
	DecisionNone Decision = iota
	DecisionKeep
	DecisionRemove
)

func (d Decision) String() string {
	switch d {
	case DecisionKeep:
		return "keep"
	case DecisionRemove:
		return "remove"
	default:
		return "none"
	}
}

// Confirmer supplies the operator's decisions between patterns.
type Confirmer interface {
	// Continue blocks until the next pattern may replace the current one.
	Continue(ctx context.Context, next config.Pattern) error
	// KeepOrRemove decides the fate of the final pattern.
	KeepOrRemove(ctx context.Context) (Decision, error)
}

type PatternResult struct {
	Index   int
	Pattern config.Pattern
	Kind    palette.Kind
	Cells   int
	Started time.Time
	Elapsed time.Duration
}

type Outcome struct {
	Decision Decision
	Patterns []PatternResult
	Removed  int
	Commands int
}

type Options struct {
	Center protocol.Pos
	Pacing config.Pacing

	// Out receives the status lines. Nil discards them.
	Out io.Writer
	// Sleep and Now default to the real clock.
	Sleep  func(time.Duration)
	Now    func() time.Time
	Logger logrus.FieldLogger

	// BeforeDraw runs once per pattern after the marker is placed.
	BeforeDraw func(index int, p config.Pattern)
	// OnPattern runs once per pattern after its last cell is placed.
	OnPattern func(PatternResult)
}

// Session owns the connection and the set of cells currently in the world.
type Session struct {
	cmd    protocol.Commander
	center protocol.Pos
	pacing config.Pacing
	out    io.Writer
	sleep  func(time.Duration)
	now    func() time.Time
	log    logrus.FieldLogger

	beforeDraw func(int, config.Pattern)
	onPattern  func(PatternResult)

	placed   *CellSet
	commands int
}

func NewSession(cmd protocol.Commander, opts Options) *Session {
	s := &Session{
		cmd:        cmd,
		center:     opts.Center,
		pacing:     opts.Pacing,
		out:        opts.Out,
		sleep:      opts.Sleep,
		now:        opts.Now,
		log:        opts.Logger,
		beforeDraw: opts.BeforeDraw,
		onPattern:  opts.OnPattern,
	}
	if s.out == nil {
		s.out = io.Discard
	}
	if s.sleep == nil {
		s.sleep = time.Sleep
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		s.log = l
	}
	return s
}

// Placed is the cell set of the pattern currently in the world, nil before the first draw.
func (s *Session) Placed() *CellSet { return s.placed }

// Commands counts every command sent by this session.
func (s *Session) Commands() int { return s.commands }

// Run draws each pattern in turn, replacing the previous one, and finally keeps or
// removes the last pattern as the Confirmer decides.
func (s *Session) Run(ctx context.Context, patterns []config.Pattern, confirm Confirmer) (Outcome, error) {
	var out Outcome
	kinds := make([]palette.Kind, len(patterns))
	for i, p := range patterns {
		k, err := p.Kind()
		if err != nil {
			return out, fmt.Errorf("pattern %d: %w", i+1, err)
		}
		kinds[i] = k
	}
	for i, p := range patterns {
		s.printf("\n")
		s.printf("PATTERN %d: %s\n", i+1, p.Label)
		s.printf("Size: %dx%d (%d total blocks)\n", p.Width, p.Height, p.Cells())
		s.printf("Iterations: %d, Scale: %g\n", p.MaxIter, p.Scale)
		s.printf("Minecraft Area: %d x %d blocks\n", p.Width, p.Height)
		s.printf("Block: %s\n", kinds[i])

		if s.placed != nil {
			s.printf("Removing previous pattern...\n")
			n, err := s.Erase(ctx)
			if err != nil {
				return out, fmt.Errorf("pattern %d: remove previous: %w", i+1, err)
			}
			out.Removed += n
			s.printf("Removed %d blocks\n", n)
			s.sleep(s.pacing.SettleAfterRemove())
		}

		res, err := s.Draw(ctx, i, p)
		if err != nil {
			return out, fmt.Errorf("pattern %d: %w", i+1, err)
		}
		out.Patterns = append(out.Patterns, res)

		if i < len(patterns)-1 {
			next := patterns[i+1]
			s.printf("\n")
			s.printf("Next pattern will be %dx%d blocks\n", next.Width, next.Height)
			if err := confirm.Continue(ctx, next); err != nil {
				return out, fmt.Errorf("pattern %d: confirm: %w", i+1, err)
			}
			continue
		}

		s.printf("\n")
		s.printf("MANDELBROT COMPLETE\n")
		s.printf("You now have a choice:\n")
		s.printf("1. Keep this pattern (it will remain visible)\n")
		s.printf("2. Remove this pattern (clean up everything)\n")
		s.printf("\n")
		d, err := confirm.KeepOrRemove(ctx)
		if err != nil {
			return out, fmt.Errorf("final decision: %w", err)
		}
		out.Decision = d
		if err := s.finish(ctx, d, &out); err != nil {
			return out, err
		}
	}
	out.Commands = s.commands

	s.printf("\n")
	s.printf("PROGRAM DONE\n")
	if out.Decision == DecisionKeep && len(patterns) > 0 {
		last := patterns[len(patterns)-1]
		s.printf("Mandelbrot fractal remains at %s\n", s.center)
		s.printf("It spans approximately %d x %d blocks\n", last.Width, last.Height)
	} else {
		s.printf("Everything has been cleaned up\n")
	}
	return out, nil
}

func (s *Session) finish(ctx context.Context, d Decision, out *Outcome) error {
	switch d {
	case DecisionRemove:
		s.printf("Removing final pattern...\n")
		n, err := s.Erase(ctx)
		if err != nil {
			return fmt.Errorf("remove final: %w", err)
		}
		out.Removed += n
		if err := s.send(ctx, protocol.SetBlock(s.center, palette.Air)); err != nil {
			return fmt.Errorf("clear marker: %w", err)
		}
		if err := s.send(ctx, protocol.Say(CleanupMsg)); err != nil {
			return fmt.Errorf("announce cleanup: %w", err)
		}
		s.printf("Final pattern removed! (%d blocks)\n", n)
	case DecisionKeep:
		if err := s.send(ctx, protocol.Say(KeptMsg)); err != nil {
			return fmt.Errorf("announce keep: %w", err)
		}
		s.printf("Final pattern kept! Enjoy your EPIC fractal!\n")
	default:
		return fmt.Errorf("unknown decision %d", d)
	}
	return nil
}

// Draw marks the anchor, announces the pattern and places every cell. The new cell set
// replaces the previous one; callers erase first.
func (s *Session) Draw(ctx context.Context, index int, p config.Pattern) (PatternResult, error) {
	kind, err := p.Kind()
	if err != nil {
		return PatternResult{}, err
	}
	log := s.log.WithFields(logrus.Fields{"pattern": index + 1, "label": p.Label})

	if err := s.send(ctx, protocol.SetBlock(s.center, palette.Marker)); err != nil {
		return PatternResult{}, fmt.Errorf("mark center: %w", err)
	}
	if err := s.send(ctx, protocol.Say(DrawingPrefix+p.Label)); err != nil {
		return PatternResult{}, fmt.Errorf("announce: %w", err)
	}
	if s.beforeDraw != nil {
		s.beforeDraw(index, p)
	}

	s.printf("Generating %dx%d Mandelbrot...\n", p.Width, p.Height)
	total := p.Cells()
	startX := s.center.X - p.Width/2
	startZ := s.center.Z - p.Height/2

	cells := NewCellSet(total)
	s.placed = cells
	start := s.now()
	placed := 0
	for x := 0; x < p.Width; x++ {
		for z := 0; z < p.Height; z++ {
			iter := fractal.Iterate(fractal.PixelToComplex(x, z, p.Width, p.Height, p.Scale), p.MaxIter)
			block := kind.Resolve(iter, p.MaxIter)

			pos := protocol.Pos{X: startX + x, Y: s.center.Y, Z: startZ + z}
			cells.Add(Cell{X: pos.X, Z: pos.Z})
			if err := s.send(ctx, protocol.SetBlock(pos, block)); err != nil {
				return PatternResult{}, fmt.Errorf("place %s: %w", pos, err)
			}
			placed++

			if s.pacing.DrawEvery > 0 && placed%s.pacing.DrawEvery == 0 {
				elapsed := s.now().Sub(start)
				percent := float64(placed) / float64(total) * 100
				s.printf("Progress: %d/%d (%.1f%%) - %.1fs\n", placed, total, percent, elapsed.Seconds())
				s.sleep(s.pacing.DrawPause())
			}
		}
	}
	elapsed := s.now().Sub(start)
	s.printf("Pattern %d complete!\n", index+1)
	s.printf("Time: %.1fs, Blocks: %d\n", elapsed.Seconds(), placed)
	s.printf("Area covered: %d x %d blocks\n", p.Width, p.Height)
	log.WithFields(logrus.Fields{"cells": placed, "elapsed": elapsed}).Debug("pattern drawn")

	res := PatternResult{Index: index, Pattern: p, Kind: kind, Cells: placed, Started: start, Elapsed: elapsed}
	if s.onPattern != nil {
		s.onPattern(res)
	}
	return res, nil
}

// Erase sets every cell of the current pattern to air and forgets the set. The anchor
// marker is left alone.
func (s *Session) Erase(ctx context.Context) (int, error) {
	cells := s.placed
	removed := 0
	for _, c := range cells.Cells() {
		pos := protocol.Pos{X: c.X, Y: s.center.Y, Z: c.Z}
		if err := s.send(ctx, protocol.SetBlock(pos, palette.Air)); err != nil {
			return removed, fmt.Errorf("clear %s: %w", pos, err)
		}
		removed++
		if s.pacing.RemoveEvery > 0 && removed%s.pacing.RemoveEvery == 0 {
			s.sleep(s.pacing.RemovePause())
		}
	}
	s.placed = nil
	s.log.WithField("cells", removed).Debug("pattern erased")
	return removed, nil
}

func (s *Session) send(ctx context.Context, cmd string) error {
	s.commands++
	reply, err := s.cmd.Command(ctx, cmd)
	if err != nil {
		return err
	}
	if code := protocol.ClassifyReply(reply); protocol.IsRejected(code) {
		s.log.WithFields(logrus.Fields{"cmd": cmd, "code": code, "reply": reply}).Warn("server rejected command")
	}
	return nil
}

func (s *Session) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}
