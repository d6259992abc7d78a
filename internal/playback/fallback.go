package playback

import (
	"strings"
	"time"

	"github.com/retailmind/emilyavatar/internal/rig"
)

// letterCues maps letters to the phoneme extractor's cue codes by
// rough mouth shape. Approximate on purpose: synthesized cues only run
// when a unit arrives with audio but no transcript, and a plausible
// moving mouth beats a frozen one.
var letterCues = map[byte]string{
	'p': "A", 'b': "A", 'm': "A",
	'k': "B", 'g': "B", 't': "B", 'd': "B",
	's': "B", 'z': "B", 'c': "B", 'n': "B",
	'r': "B", 'j': "B", 'q': "B", 'x': "B",
	'e': "C", 'i': "C", 'y': "C",
	'a': "D", 'h': "D",
	'o': "E",
	'u': "F", 'w': "F",
	'f': "G", 'v': "G",
	'l': "H",
}

const (
	minCueSeconds   = 0.05
	wordGapSeconds  = 0.06
	trailingSilence = 0.1
)

// SynthesizeCues builds an approximate mouth cue track from the spoken
// text, spread evenly across the declared duration. Consecutive
// identical shapes merge, word boundaries get a short rest, and the
// track ends with silence so the mouth closes before the unit does.
func SynthesizeCues(text string, duration time.Duration) []rig.Cue {
	speech := duration.Seconds() - trailingSilence
	if speech <= 0 {
		speech = duration.Seconds()
	}
	codes := textToCueCodes(text)
	if len(codes) == 0 || speech <= 0 {
		return nil
	}

	per := speech / float64(len(codes))
	if per < minCueSeconds {
		// Too much text for the window: keep cues readable and let the
		// track truncate at the declared duration.
		per = minCueSeconds
	}

	cues := make([]rig.Cue, 0, len(codes)+1)
	pos := 0.0
	for _, code := range codes {
		end := pos + per
		if code == rig.SilenceCue {
			end = pos + wordGapSeconds
		}
		if pos >= speech {
			break
		}
		if end > speech {
			end = speech
		}
		cues = append(cues, rig.Cue{Start: pos, End: end, Value: code})
		pos = end
	}

	cues = append(cues, rig.Cue{Start: pos, End: duration.Seconds(), Value: rig.SilenceCue})
	return cues
}

// textToCueCodes reduces text to a cue code sequence: one code per
// letter shape, duplicates collapsed, silence at word breaks.
func textToCueCodes(text string) []string {
	var codes []string
	last := ""
	for i := 0; i < len(text); i++ {
		ch := text[i]
		if ch == ' ' || ch == '\n' || ch == '\t' || strings.ContainsRune(".,;:!?", rune(ch)) {
			if last != "" && last != rig.SilenceCue {
				codes = append(codes, rig.SilenceCue)
				last = rig.SilenceCue
			}
			continue
		}
		if ch >= 'A' && ch <= 'Z' {
			ch += 'a' - 'A'
		}
		code, ok := letterCues[ch]
		if !ok {
			continue
		}
		if code == last {
			continue
		}
		codes = append(codes, code)
		last = code
	}
	// A track that is nothing but rests is no track at all.
	for _, c := range codes {
		if c != rig.SilenceCue {
			return codes
		}
	}
	return nil
}
