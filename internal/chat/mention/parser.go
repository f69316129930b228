package mention

import (
	"regexp"
	"strings"

	"ms-marketplace/internal/models"
)

// mentionPattern is "@" followed by one or two whitespace separated words.
// Every caller goes through scan so input box, rooms and direct messages
// agree on what a mention is.
var mentionPattern = regexp.MustCompile(`@([\p{L}\p{N}_]+)(?:\s+([\p{L}\p{N}_]+))?`)

type token struct {
	start, end  int // byte offsets of the token, '@' included
	participant *models.Participant
}

type rosterIndex map[string]*models.Participant

func newRoster(participants []models.Participant) rosterIndex {
	r := make(rosterIndex, len(participants))
	for i := range participants {
		key := strings.ToLower(participants[i].Name)
		if _, dup := r[key]; !dup {
			r[key] = &participants[i]
		}
	}
	return r
}

// scan finds mention tokens. The two word form is tried first; when only
// the first word names someone the token stops after it. Unresolved tokens
// cover the first word only.
func scan(text string, participants []models.Participant) []token {
	lookup := newRoster(participants)
	var tokens []token

	for _, m := range mentionPattern.FindAllStringSubmatchIndex(text, -1) {
		start := m[0]

		first := text[m[2]:m[3]]
		if m[4] >= 0 {
			second := text[m[4]:m[5]]
			if p, ok := lookup[strings.ToLower(first+" "+second)]; ok {
				tokens = append(tokens, token{start: start, end: m[5], participant: p})
				continue
			}
		}

		tok := token{start: start, end: m[3]}
		if p, ok := lookup[strings.ToLower(first)]; ok {
			tok.participant = p
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

// ExtractMentions returns the IDs of mentioned participants in text order.
// A participant mentioned twice appears twice.
func ExtractMentions(text string, participants []models.Participant) []string {
	ids := []string{}
	for _, tok := range scan(text, participants) {
		if tok.participant != nil {
			ids = append(ids, tok.participant.ID)
		}
	}
	return ids
}

// RenderHighlighted splits text into plain and mention segments. Mention
// segments say whether the name resolved; styling is up to the caller.
func RenderHighlighted(text string, participants []models.Participant) []models.Segment {
	segments := []models.Segment{}
	pos := 0

	for _, tok := range scan(text, participants) {
		if tok.start > pos {
			segments = append(segments, models.Segment{Type: models.SegmentText, Text: text[pos:tok.start]})
		}
		seg := models.Segment{Type: models.SegmentMention, Text: text[tok.start:tok.end]}
		if tok.participant != nil {
			seg.Valid = true
			seg.ParticipantID = tok.participant.ID
		}
		segments = append(segments, seg)
		pos = tok.end
	}

	if pos < len(text) {
		segments = append(segments, models.Segment{Type: models.SegmentText, Text: text[pos:]})
	}
	return segments
}
