package telnet

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestColorize(t *testing.T) {
	assert.Equal(t, "\033[31mno such room\033[0m", Colorize(Red, "no such room"))
}

func TestColorf(t *testing.T) {
	assert.Equal(t, "\033[32mLobby (2)\033[0m", Colorf(Green, "%s (%d)", "Lobby", 2))
}

func TestStripANSI(t *testing.T) {
	input := "\033[31mred\033[0m normal \033[1m\033[36mbold cyan\033[0m"
	assert.Equal(t, "red normal bold cyan", StripANSI(input))
}

func TestStripANSI_EraseLine(t *testing.T) {
	assert.Equal(t, "\rhello", StripANSI("\r\033[Khello"))
}

func TestStripANSI_NoEscapes(t *testing.T) {
	assert.Equal(t, "plain text", StripANSI("plain text"))
	assert.Equal(t, "", StripANSI(""))
}

func TestStripANSI_Unterminated(t *testing.T) {
	assert.Equal(t, "a\033[31", StripANSI("a\033[31"))
}

// Property: StripANSI(Colorize(color, text)) == text for any printable text.
func TestPropertyStripANSIInversesColorize(t *testing.T) {
	colors := []string{Red, Green, Blue, Yellow, Cyan, Magenta, White, Bold, Dim, BrightBlack, BrightYellow, BrightCyan}
	rapid.Check(t, func(t *rapid.T) {
		text := rapid.StringMatching(`[a-zA-Z0-9 ]{0,50}`).Draw(t, "text")
		color := rapid.SampledFrom(colors).Draw(t, "color")
		assert.Equal(t, text, StripANSI(Colorize(color, text)))
	})
}

// Property: StripANSI output never contains ESC for well-formed styled text.
func TestPropertyStripANSINoEscapeInOutput(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		text := rapid.StringMatching(`[a-zA-Z0-9 ]{0,30}`).Draw(t, "text")
		stripped := StripANSI(Bold + Red + text + Reset)
		assert.False(t, strings.ContainsRune(stripped, '\033'))
	})
}

// Property: StripANSI output length <= input length.
func TestPropertyStripANSIOutputShorterOrEqual(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		text := rapid.String().Draw(t, "text")
		assert.LessOrEqual(t, len(StripANSI(text)), len(text))
	})
}
