package browser

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeystrokesFor_ReconstructsText(t *testing.T) {
	const text = "user@example.com Secret1!"

	// Run enough times to exercise the typo path; replaying the keystrokes
	// against a buffer must always reproduce the original text.
	for i := 0; i < 200; i++ {
		var sb strings.Builder
		for _, ks := range keystrokesFor(text) {
			if ks.key == "Backspace" {
				s := sb.String()
				require.NotEmpty(t, s, "backspace with nothing typed")
				sb.Reset()
				sb.WriteString(s[:len(s)-1])
				continue
			}
			require.False(t, isKeyName(ks.key), "unexpected named key %q", ks.key)
			sb.WriteString(ks.key)
		}
		require.Equal(t, text, sb.String())
	}
}

func TestKeystrokesFor_DelaysWithinBounds(t *testing.T) {
	for _, ks := range keystrokesFor("hello world") {
		assert.GreaterOrEqual(t, ks.delay, typeDelayLow)
		assert.Less(t, ks.delay, typoDelayHigh)
	}
}

func TestTypoFor(t *testing.T) {
	for i := 0; i < 100; i++ {
		// Letters slip to a QWERTY neighbor, preserving case.
		typo := typoFor('a')
		assert.Contains(t, qwertyNeighbors['a'], string(typo))

		typo = typoFor('A')
		assert.GreaterOrEqual(t, typo, 'A')
		assert.LessOrEqual(t, typo, 'Z')

		// Digits slip to an adjacent digit.
		typo = typoFor('5')
		assert.Contains(t, []rune{'4', '6'}, typo)
	}

	// Characters with no neighbor produce no typo.
	assert.Equal(t, rune(0), typoFor('@'))
	assert.Equal(t, rune(0), typoFor(' '))
}

func TestIsKeyName(t *testing.T) {
	assert.True(t, isKeyName("Backspace"))
	assert.False(t, isKeyName("a"))
	assert.False(t, isKeyName("! "))
}

func TestScrollStep(t *testing.T) {
	for i := 0; i < 100; i++ {
		step := scrollStep()
		assert.GreaterOrEqual(t, step, scrollStepLow)
		assert.Less(t, step, scrollStepHigh)
	}
}

func TestRandomViewport(t *testing.T) {
	for i := 0; i < 100; i++ {
		w, h := randomViewport()
		assert.GreaterOrEqual(t, w, 1201)
		assert.LessOrEqual(t, w, 1599)
		assert.GreaterOrEqual(t, h, 801)
		assert.LessOrEqual(t, h, 899)
	}
}

func TestRandomPause_InvertedBoundsCollapse(t *testing.T) {
	start := time.Now()
	RandomPause(-1, -5)
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}
