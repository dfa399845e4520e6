package protocol

import (
	"context"
	"fmt"
)

// Commander sends one console command and returns the server's reply text.
type Commander interface {
	Command(ctx context.Context, cmd string) (string, error)
}

// CommanderFunc adapts a function to Commander.
type CommanderFunc func(ctx context.Context, cmd string) (string, error)

func (f CommanderFunc) Command(ctx context.Context, cmd string) (string, error) { return f(ctx, cmd) }

// Pos is a block position in world coordinates.
type Pos struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
	Z int `json:"z" yaml:"z"`
}

func (p Pos) String() string { return fmt.Sprintf("(%d, %d, %d)", p.X, p.Y, p.Z) }
