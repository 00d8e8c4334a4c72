package smoke

import (
	"math/rand"
	"strings"
)

var (
	openings = []string{
		"Last summer I waited three hours for a delayed train.",
		"My grandmother taught me to knit one slow row at a time.",
		"The science fair project failed twice before it worked.",
		"Our team practiced the same play every afternoon for a month.",
	}
	middles = []string{
		"At first I was frustrated and kept checking the clock.",
		"I wanted to give up, but I remembered why I had started.",
		"Instead of complaining, I used the time to read and listen.",
		"Each small mistake showed me what to change next.",
	}
	endings = []string{
		"In the end, patience turned a bad day into a good story.",
		"I learned that waiting calmly is a skill you can practice.",
		"Now I try to stay patient when things do not go my way.",
		"Being patient did not make the wait shorter, but it made it better.",
	}
)

// essayGenerator builds short narrative essays about patience.
type essayGenerator struct {
	rng *rand.Rand
}

func newEssayGenerator(seed int64) *essayGenerator {
	return &essayGenerator{rng: rand.New(rand.NewSource(seed))} //nolint:gosec // reproducible sample text
}

func (g *essayGenerator) next() string {
	pick := func(options []string) string { return options[g.rng.Intn(len(options))] }
	return strings.Join([]string{pick(openings), pick(middles), pick(middles), pick(endings)}, " ")
}
