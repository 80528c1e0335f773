/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

// Command is a player intent fed to Controller.Handle.
type Command interface {
	command()
}

type Start struct{}

type Place struct {
	Index int
}

type Replay struct{}

func (Start) command()  {}
func (Place) command()  {}
func (Replay) command() {}

// Handle applies cmd to the controller. Only Place produces a Result.
func (c *Controller) Handle(cmd Command) (Result, error) {
	switch cmd := cmd.(type) {
	case Start:
		return Result{}, c.StartGame()
	case Place:
		return c.ResolvePlacement(cmd.Index)
	case Replay:
		return Result{}, c.Replay()
	default:
		return Result{}, ErrUnknownCommand
	}
}
