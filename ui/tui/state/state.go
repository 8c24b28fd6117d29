package state

import (
	"time"

	"onager/internal/database"
)

type Page int

const (
	PageQuery     Page = iota // SQL prompt and last result
	PageFunctions             // Function catalog
	PageChart                 // Plot of the last numeric column
)

// Next cycles through the pages in display order.
func (p Page) Next() Page {
	return (p + 1) % 3
}

// ShellState holds everything the shell has produced so far.
type ShellState struct {
	History     []string
	Result      *database.ResultSet
	Err         error
	Elapsed     time.Duration
	LastUpdate  time.Time
	Functions   []database.FunctionInfo
	Running     bool
	CurrentPage Page
}
