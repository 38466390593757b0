package categories_test

import (
	"testing"

	"github.com/avvvet/npat-services/internal/gamesvc/categories"
	"github.com/avvvet/npat-services/internal/gamesvc/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExamples(t *testing.T) {
	groups := categories.Examples()
	require.Len(t, groups, 4)
	assert.Equal(t, "Name", groups[0].Category)
	assert.Equal(t, "Thing", groups[3].Category)
	assert.Len(t, groups[0].Words, 26)
	assert.Len(t, groups[1].Words, 25)
}

func TestExamplesForReturnsCopy(t *testing.T) {
	words, ok := categories.ExamplesFor("Animal")
	require.True(t, ok)
	words[0] = "changed"

	again, _ := categories.ExamplesFor("Animal")
	assert.Equal(t, "Antelope", again[0])

	_, ok = categories.ExamplesFor("Color")
	assert.False(t, ok)
}

func TestWordFor(t *testing.T) {
	w, ok := categories.WordFor("Place", "k")
	require.True(t, ok)
	assert.Equal(t, "Kyoto", w)
	assert.True(t, engine.IsValid(w, "K"))

	_, ok = categories.WordFor("Place", "X")
	assert.False(t, ok)

	_, ok = categories.WordFor("Thing", "")
	assert.False(t, ok)
}
