package levels

import "fmt"

// Level is one board configuration in the catalogue.
type Level struct {
	Number    int
	Name      string
	PairCount int
	Values    []string
	// Facts are shown in an overlay after the matching pair is found.
	Facts map[string]string
}

// Fact returns the informational text for a value, if any.
func (l Level) Fact(value string) (string, bool) {
	f, ok := l.Facts[value]
	return f, ok && f != ""
}

func (l Level) Title() string {
	if l.Name == "" {
		return fmt.Sprintf("LVL %d", l.Number)
	}
	return fmt.Sprintf("LVL %d: %s", l.Number, l.Name)
}

var animalFacts = map[string]string{
	"Cat":      "Cats sleep for around 13 to 16 hours a day.",
	"Dog":      "A dog's nose print is as unique as a human fingerprint.",
	"Owl":      "Owls can turn their heads as much as 270 degrees.",
	"Fox":      "Foxes use the Earth's magnetic field to hunt.",
	"Rabbit":   "A rabbit's teeth never stop growing.",
	"Panda":    "Pandas spend up to 14 hours a day eating bamboo.",
	"Lion":     "A lion's roar can be heard up to 8 kilometres away.",
	"Elephant": "Elephants recognise themselves in a mirror.",
	"Frog":     "Some frogs can freeze solid in winter and thaw in spring.",
	"Penguin":  "Emperor penguins can dive deeper than 500 metres.",
}

// Default is the built-in catalogue. The last level has fewer animals than
// pairs, so its values repeat.
func Default() []Level {
	animals := []string{"Cat", "Dog", "Owl", "Fox", "Rabbit", "Panda", "Lion", "Elephant", "Frog", "Penguin"}
	defs := []struct {
		name  string
		pairs int
		pool  int
	}{
		{"Farmyard Friends", 2, 2},
		{"Forest Walk", 3, 3},
		{"Night Watch", 4, 4},
		{"Safari", 6, 6},
		{"The Whole Zoo", 12, 10},
	}

	out := make([]Level, 0, len(defs))
	for i, s := range defs {
		values := append([]string(nil), animals[:s.pool]...)
		facts := make(map[string]string, len(values))
		for _, v := range values {
			facts[v] = animalFacts[v]
		}
		out = append(out, Level{
			Number:    i + 1,
			Name:      s.name,
			PairCount: s.pairs,
			Values:    values,
			Facts:     facts,
		})
	}
	return out
}

// Find returns the level with the given number.
func Find(catalogue []Level, number int) (Level, bool) {
	for _, l := range catalogue {
		if l.Number == number {
			return l, true
		}
	}
	return Level{}, false
}
