package bot

import (
	"github.com/mcoot/numerus/internal/dependencies/random"
	"github.com/mcoot/numerus/internal/model"
)

// Roster is the fixed list of bot names
var Roster = []string{
	"Samuele",
	"Barbie",
	"A Cadore",
	"Tommy",
	"Fra",
	"Mela",
	"Igor",
	"Andrea la Valanga",
	"Diana",
	"Edo",
	"Kledi",
	"Martino del Trentino",
	"Vince",
	"Urcio",
	"Vale",
}

// PickName returns a random roster name not used by any player, or "" when all are taken
func PickName(state *model.GameState, rnd random.Random) string {
	available := make([]string, 0, len(Roster))
	for _, name := range Roster {
		if !state.HasPlayerNamed(name) {
			available = append(available, name)
		}
	}
	if len(available) == 0 {
		return ""
	}
	return available[rnd.Intn(len(available))]
}
