package domain

import "time"

// SeriesEvent is the record published after a successful build.
type SeriesEvent struct {
	ID         string    `json:"id"`
	Source     string    `json:"source"`
	Point      Point     `json:"point"`
	Start      string    `json:"start"`
	End        string    `json:"end"`
	Traces     []Trace   `json:"traces"`
	ComputedAt time.Time `json:"computed_at"`
}
