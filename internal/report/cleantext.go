package report

import "strings"

var entityReplacer = strings.NewReplacer(
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
)

// Chat messages arrive with the occasional emoji that the core PDF fonts
// cannot render; each known one becomes a bracketed ASCII tag.
var emojiReplacer = strings.NewReplacer(
	"⚠️", "[WARNING]",
	"⚠", "[WARNING]",
	"✅", "[OK]",
	"❌", "[X]",
	"📷", "[PHOTO]",
	"📄", "[DOC]",
	"📋", "[LIST]",
	"💡", "[TIP]",
	"🔍", "[SEARCH]",
	"📞", "[CALL]",
	"📧", "[EMAIL]",
	"🏠", "[HOME]",
	"⚖️", "[LEGAL]",
	"📅", "[DATE]",
	"💰", "[MONEY]",
	"🔧", "[REPAIR]",
	"🚨", "[ALERT]",
)

// cleanText prepares a chat line for PDF output: HTML entities are unescaped,
// stray code-fence delimiters are stripped and known emoji are substituted
// with bracketed tags. Best effort only: if substitution panics for any
// reason the original text is used unchanged.
func cleanText(s string) (out string) {
	out = s
	defer func() {
		if r := recover(); r != nil {
			out = s
		}
	}()
	cleaned := entityReplacer.Replace(s)
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = emojiReplacer.Replace(cleaned)
	return cleaned
}
