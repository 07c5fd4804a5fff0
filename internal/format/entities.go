// Package format builds Telegram messages with formatting entities instead
// of parse modes, so user text never needs escaping.
package format

import (
	"strings"
	"unicode/utf16"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// UTF16Len returns the length of s in UTF-16 code units, the unit Telegram
// uses for entity offsets.
func UTF16Len(s string) int {
	n := 0
	for _, r := range s {
		if l := utf16.RuneLen(r); l > 0 {
			n += l
		} else {
			n++
		}
	}
	return n
}

// Builder accumulates text and the entities that decorate it.
type Builder struct {
	sb       strings.Builder
	offset   int
	entities []tgbotapi.MessageEntity
}

func (b *Builder) Text(s string) *Builder {
	b.sb.WriteString(s)
	b.offset += UTF16Len(s)
	return b
}

func (b *Builder) Bold(s string) *Builder {
	return b.entity("bold", s)
}

func (b *Builder) Italic(s string) *Builder {
	return b.entity("italic", s)
}

func (b *Builder) Code(s string) *Builder {
	return b.entity("code", s)
}

func (b *Builder) Line() *Builder {
	return b.Text("\n")
}

func (b *Builder) entity(kind, s string) *Builder {
	if s == "" {
		return b
	}
	b.entities = append(b.entities, tgbotapi.MessageEntity{
		Type:   kind,
		Offset: b.offset,
		Length: UTF16Len(s),
	})
	return b.Text(s)
}

// Message returns a send config for chatID carrying the built text.
func (b *Builder) Message(chatID int64) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(chatID, b.String())
	msg.Entities = b.Entities()
	return msg
}

func (b *Builder) String() string {
	return b.sb.String()
}

func (b *Builder) Entities() []tgbotapi.MessageEntity {
	return b.entities
}
