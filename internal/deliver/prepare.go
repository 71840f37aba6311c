package deliver

import (
	"strings"
	"unicode"

	"github.com/nvander/murmur/internal/classify"
)

// asciiReplacements covers the characters dictation models emit most often
// that plain-ASCII targets cannot accept.
var asciiReplacements = map[rune]string{
	'‘': "'", '’': "'",
	'“': `"`, '”': `"`,
	'–': "-", '—': "-",
	'…': "...",
	' ': " ",
}

// PrepareText shapes text for a target's capabilities: ASCII-only targets
// get transliterated then filtered, and anything over the category's max
// length is truncated.
func PrepareText(text string, caps classify.Capabilities) string {
	if !caps.SupportsUnicode {
		text = toASCII(text)
	}
	if caps.MaxTextLength > 0 && len(text) > caps.MaxTextLength {
		text = truncate(text, caps.MaxTextLength)
	}
	return text
}

func toASCII(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if replacement, ok := asciiReplacements[r]; ok {
			b.WriteString(replacement)
			continue
		}
		if r < unicode.MaxASCII {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// truncate cuts at a byte budget without splitting a UTF-8 sequence.
func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	cut := limit
	for cut > 0 && !utf8StartByte(text[cut]) {
		cut--
	}
	return text[:cut]
}

func utf8StartByte(b byte) bool {
	return b&0xc0 != 0x80
}
