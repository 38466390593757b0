// Package categories is the static example-word pool shown when players
// browse for inspiration. It carries no scoring rules.
package categories

import (
	"strings"

	"github.com/avvvet/npat-services/internal/gamesvc/models"
)

var pool = map[string][]string{
	"Name": {
		"Alice", "Benjamin", "Catherine", "Daniel", "Emma", "Frank", "Grace", "Henry", "Isabella",
		"Jack", "Katherine", "Liam", "Maria", "Nathan", "Olivia", "Patrick", "Quinn", "Rachel",
		"Samuel", "Taylor", "Uma", "Vincent", "Wendy", "Xavier", "Yasmin", "Zachary",
	},
	"Place": {
		"Amsterdam", "Berlin", "Chicago", "Dubai", "Edinburgh", "Florence", "Geneva", "Helsinki",
		"Istanbul", "Jakarta", "Kyoto", "London", "Madrid", "Naples", "Oslo", "Paris", "Quebec",
		"Rome", "Sydney", "Tokyo", "Utah", "Vienna", "Warsaw", "York", "Zurich",
	},
	"Animal": {
		"Antelope", "Bear", "Cheetah", "Dolphin", "Elephant", "Fox", "Giraffe", "Hedgehog",
		"Iguana", "Jaguar", "Kangaroo", "Lion", "Monkey", "Narwhal", "Octopus", "Penguin", "Quail",
		"Rabbit", "Snake", "Tiger", "Urchin", "Vulture", "Whale", "Yak", "Zebra",
	},
	"Thing": {
		"Apple", "Ball", "Chair", "Desk", "Eraser", "Fan", "Guitar", "Hat", "Ice cream", "Jacket",
		"Kite", "Lamp", "Mirror", "Notebook", "Orange", "Pencil", "Quilt", "Ruler", "Scissors",
		"Table", "Umbrella", "Vase", "Watch", "Xylophone", "Yarn", "Zipper",
	},
}

type Group struct {
	Category string   `json:"category"`
	Words    []string `json:"words"`
}

// Examples returns every category in play order with a copy of its words.
func Examples() []Group {
	groups := make([]Group, 0, len(models.Categories))
	for _, c := range models.Categories {
		words, _ := ExamplesFor(c)
		groups = append(groups, Group{Category: c, Words: words})
	}
	return groups
}

func ExamplesFor(category string) ([]string, bool) {
	words, ok := pool[category]
	if !ok {
		return nil, false
	}
	out := make([]string, len(words))
	copy(out, words)
	return out, true
}

// WordFor picks the example word of a category starting with letter.
func WordFor(category, letter string) (string, bool) {
	letter = strings.ToUpper(strings.TrimSpace(letter))
	if letter == "" {
		return "", false
	}
	for _, w := range pool[category] {
		if strings.HasPrefix(strings.ToUpper(w), letter) {
			return w, true
		}
	}
	return "", false
}
