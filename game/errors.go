/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import "errors"

var (
	ErrAlreadyStarted   = errors.New("game already started")
	ErrEmptyCatalog     = errors.New("catalog contains no songs")
	ErrGameOver         = errors.New("game is over")
	ErrInvalidPlacement = errors.New("invalid placement")
	ErrNotStarted       = errors.New("game not started")
	ErrUnknownCommand   = errors.New("unknown command")
)
