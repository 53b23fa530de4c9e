package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/mcoot/numerus/internal/model"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter writing to w
func NewOutput(format string, w io.Writer) *Output {
	return &Output{format: format, w: w}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		o.printJSON(map[string]string{"message": msg})
	} else {
		_, _ = fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case HealthResult:
		_, _ = fmt.Fprintf(o.w, "Server status: %s\n", v.Status)
	case RoomResult:
		o.printRoom(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

func (o *Output) printRoom(r RoomResult) {
	_, _ = fmt.Fprintf(o.w, "Room: %s (%s)\n", r.Room.Code, r.Room.ID)
	_, _ = fmt.Fprintf(o.w, "Difficulty: %s\n", r.Room.Difficulty)
	_, _ = fmt.Fprintf(o.w, "Status: %s\n", r.Room.Status)
	_, _ = fmt.Fprintf(o.w, "Number: %d\n", r.Room.CurrentNumber)
	_, _ = fmt.Fprintf(o.w, "Players (%d):\n", len(r.Players))
	for _, p := range r.Players {
		tags := ""
		if p.IsOwner {
			tags += " [owner]"
		}
		if p.IsBot {
			tags += " [bot]"
		}
		_, _ = fmt.Fprintf(o.w, "  - %s: %d%s\n", p.Name, p.Score, tags)
	}
}

// HealthResult is the server health check
type HealthResult struct {
	Status string `json:"status"`
}

// RoomResult is a room together with its players
type RoomResult struct {
	Room    model.Room     `json:"room"`
	Players []model.Player `json:"players"`
}
