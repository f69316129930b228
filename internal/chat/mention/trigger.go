// Package mention finds, completes and resolves @name mentions in chat text.
// Cursor positions are rune offsets, the unit text inputs report.
package mention

import (
	"strings"
	"unicode"

	"ms-marketplace/internal/models"
)

// Trigger describes the @term being typed at the cursor.
type Trigger struct {
	Active bool   `json:"active"`
	Start  int    `json:"start"`
	Term   string `json:"term"`
}

// DetectTrigger scans back from cursor to the nearest '@'. The trigger is
// active when no whitespace sits between that '@' and the cursor, whatever
// precedes the '@'.
func DetectTrigger(text string, cursor int) Trigger {
	runes := []rune(text)
	cursor = clampCursor(cursor, len(runes))

	for i := cursor - 1; i >= 0; i-- {
		r := runes[i]
		if unicode.IsSpace(r) {
			return Trigger{}
		}
		if r == '@' {
			return Trigger{Active: true, Start: i, Term: string(runes[i+1 : cursor])}
		}
	}
	return Trigger{}
}

// FilterParticipants keeps participants whose name contains term, ignoring
// case. Roster order is preserved.
func FilterParticipants(roster []models.Participant, term string) []models.Participant {
	needle := strings.ToLower(term)
	matches := make([]models.Participant, 0, len(roster))
	for _, p := range roster {
		if strings.Contains(strings.ToLower(p.Name), needle) {
			matches = append(matches, p)
		}
	}
	return matches
}

// InsertMention replaces the @term ending at cursor with "@<name> ". Text
// after the cursor is kept as is. The returned cursor sits right after the
// inserted space. Without an active trigger the input is returned unchanged.
func InsertMention(text string, cursor int, p models.Participant) (string, int) {
	runes := []rune(text)
	cursor = clampCursor(cursor, len(runes))

	trigger := DetectTrigger(text, cursor)
	if !trigger.Active {
		return text, cursor
	}

	inserted := []rune("@" + p.Name + " ")
	out := make([]rune, 0, len(runes)+len(inserted))
	out = append(out, runes[:trigger.Start]...)
	out = append(out, inserted...)
	out = append(out, runes[cursor:]...)

	return string(out), trigger.Start + len(inserted)
}

func clampCursor(cursor, length int) int {
	if cursor < 0 {
		return 0
	}
	if cursor > length {
		return length
	}
	return cursor
}
