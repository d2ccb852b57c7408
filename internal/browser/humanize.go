package browser

import (
	"math/rand"
	"strings"
	"time"
)

// Human pacing knobs. Ranges are deliberately wide; the point is to avoid the
// fixed cadence that trips bot detection on real sites.
const (
	typoChance     = 0.06
	typeDelayLow   = 40 * time.Millisecond
	typeDelayHigh  = 150 * time.Millisecond
	typoDelayLow   = 120 * time.Millisecond
	typoDelayHigh  = 320 * time.Millisecond
	scrollStepLow  = 70
	scrollStepHigh = 120
)

// qwertyNeighbors maps each letter to keys adjacent on a QWERTY layout, used
// to fake plausible fat-finger typos.
var qwertyNeighbors = map[rune]string{
	'q': "wa", 'w': "edsq", 'e': "wr", 'r': "t", 't': "rg", 'y': "ut",
	'u': "iy", 'i': "uo", 'o': "ipl", 'p': "ol", 'a': "sz", 's': "da",
	'd': "fsc", 'f': "gd", 'g': "f", 'h': "gj", 'j': "hk", 'k': "j",
	'l': "k", 'z': "xs", 'x': "zc", 'c': "v", 'v': "cb", 'b': "v",
	'n': "m", 'm': "n",
}

// RandomPause sleeps for a uniformly random duration between lower and upper
// seconds. Negative or inverted bounds collapse to no pause.
func RandomPause(lower, upper float64) {
	if lower < 0 {
		lower = 0
	}
	if upper <= lower {
		if lower > 0 {
			time.Sleep(secondsToDuration(lower))
		}
		return
	}
	time.Sleep(secondsToDuration(lower + rand.Float64()*(upper-lower)))
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// randomDelay returns a random duration in [low, high).
func randomDelay(low, high time.Duration) time.Duration {
	return low + time.Duration(rand.Int63n(int64(high-low)))
}

// typoFor returns a plausible mistyped character for c, preserving case.
// Digits slip to an adjacent digit; anything else returns 0 (no typo).
func typoFor(c rune) rune {
	if c >= '0' && c <= '9' {
		if c == '0' || rand.Intn(2) == 0 && c != '9' {
			return c + 1
		}
		return c - 1
	}
	lower := c
	upper := false
	if c >= 'A' && c <= 'Z' {
		lower = c + ('a' - 'A')
		upper = true
	}
	neighbors, ok := qwertyNeighbors[lower]
	if !ok {
		return 0
	}
	t := rune(neighbors[rand.Intn(len(neighbors))])
	if upper {
		return t - ('a' - 'A')
	}
	return t
}

// keystrokes expands text into the key sequence a human might produce: each
// character with a delay, occasionally a typo followed by a backspace.
// Each entry is either a literal character or the "Backspace" key name.
type keystroke struct {
	key   string
	delay time.Duration
}

func keystrokesFor(text string) []keystroke {
	var out []keystroke
	for _, c := range text {
		if rand.Float64() < typoChance {
			if t := typoFor(c); t != 0 {
				out = append(out,
					keystroke{key: string(t), delay: randomDelay(typoDelayLow, typoDelayHigh)},
					keystroke{key: "Backspace", delay: randomDelay(typeDelayLow, typeDelayHigh)},
				)
			}
		}
		out = append(out, keystroke{key: string(c), delay: randomDelay(typeDelayLow, typeDelayHigh)})
	}
	return out
}

// isKeyName reports whether k is a named key rather than a literal character.
func isKeyName(k string) bool {
	return len(k) > 1 && !strings.ContainsRune(k, ' ')
}

// scrollStep returns a random scroll increment in pixels.
func scrollStep() int {
	return scrollStepLow + rand.Intn(scrollStepHigh-scrollStepLow)
}

// randomViewport returns window dimensions jittered the way a human-sized
// browser window would be.
func randomViewport() (width, height int) {
	return 1201 + rand.Intn(399), 801 + rand.Intn(99)
}
