package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchesDeletion(t *testing.T) {
	tests := []struct {
		rel   string
		entry string
		want  bool
	}{
		{"mods/B.jar", "mods/B.jar", true},
		{"mods/b.JAR", "mods/B.jar", true},
		{"mods/B-1.0.jar", "mods/B.jar", true},
		{"mods/B_1.0.jar", "mods/B.jar", true},
		{"mods/B+extra.jar", "mods/B.jar", true},
		{"mods/B-1.0.zip", "mods/B.jar", false},
		{"mods/Botania.jar", "mods/B.jar", false},
		{"mods/B-1.0.jar", "mods/B", true},
		{"mods/jei_1.12.2-4.16.jar", "mods/jei", true},
		{"mods/jei", "mods/jei", true},
		{"mods/jeiintegration.jar", "mods/jei", false},
		{"mods/B-", "mods/B", false},
		{"config/B-1.0.jar", "mods/B.jar", false},
	}

	for _, tt := range tests {
		t.Run(tt.rel+"~"+tt.entry, func(t *testing.T) {
			assert.Equal(t, tt.want, matchesDeletion(tt.rel, tt.entry))
		})
	}
}

func TestProgressIsMonotonicAndBounded(t *testing.T) {
	var seen []int
	p := newProgress(2, Observer{OnProgress: func(current, total int) {
		assert.Equal(t, 2, total)
		seen = append(seen, current)
	}})

	p.start()
	p.advance()
	p.advance()
	p.advance()

	assert.Equal(t, []int{0, 1, 2, 2}, seen)
}

func TestObserverNilSafe(t *testing.T) {
	var o Observer
	assert.NotPanics(t, func() {
		o.progress(1, 2)
		o.log("hello", ColorInfo)
	})
}
