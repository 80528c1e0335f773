/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

// Song is a single catalog entry. Offset is the playback start position in seconds.
type Song struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Year   int    `json:"year"`
	Offset int    `json:"offset,omitempty"`
}
