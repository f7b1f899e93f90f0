package announce

import "fmt"

const DefaultLanguage = "th"

type voice struct {
	tag    string
	format string
}

var voices = map[string]voice{
	"th": {tag: "th-TH", format: "คิวหมายเลข %s, กรุณาเข้า%s"},
	"en": {tag: "en-US", format: "Queue number %s, please proceed to %s"},
	"zh": {tag: "zh-CN", format: "%s号，请到%s"},
}

// Message renders the announcement text and language tag for a queue number
// and localized room name. Unknown languages fall back to Thai.
func Message(language, queueNumber, roomName string) (text, languageTag string) {
	v, ok := voices[language]
	if !ok {
		v = voices[DefaultLanguage]
	}
	return fmt.Sprintf(v.format, queueNumber, roomName), v.tag
}

// Supported reports whether a message template exists for the language.
func Supported(language string) bool {
	_, ok := voices[language]
	return ok
}
