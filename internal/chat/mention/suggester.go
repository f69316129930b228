package mention

import "ms-marketplace/internal/models"

type Key string

const (
	KeyArrowDown Key = "ArrowDown"
	KeyArrowUp   Key = "ArrowUp"
	KeyEnter     Key = "Enter"
	KeyTab       Key = "Tab"
	KeyEscape    Key = "Escape"
)

type Action int

const (
	// ActionNone means the key is left to the input box.
	ActionNone Action = iota
	// ActionMove means the highlighted suggestion changed.
	ActionMove
	// ActionInsert means a mention was inserted; Result carries the new text.
	ActionInsert
	// ActionClose means the dropdown was dismissed.
	ActionClose
	// ActionSubmit means the message should be sent.
	ActionSubmit
)

type Result struct {
	Action      Action
	Text        string
	Cursor      int
	Participant *models.Participant
}

// Suggester is the suggestion dropdown of one input box: Closed, or Open
// with a selected index into the filtered roster.
type Suggester struct {
	open     bool
	selected int
	trigger  Trigger
	matches  []models.Participant
	text     string
	cursor   int
}

func NewSuggester() *Suggester {
	return &Suggester{}
}

// Update must run on every text change. It opens the dropdown on a fresh
// trigger with matches and closes it when the trigger is gone.
func (s *Suggester) Update(text string, cursor int, roster []models.Participant) {
	s.text = text
	s.cursor = cursor

	trigger := DetectTrigger(text, cursor)
	if !trigger.Active {
		s.close()
		return
	}

	matches := FilterParticipants(roster, trigger.Term)
	if len(matches) == 0 {
		s.close()
		return
	}

	if !s.open || trigger != s.trigger {
		s.selected = 0
	}
	s.open = true
	s.trigger = trigger
	s.matches = matches
	if s.selected >= len(matches) {
		s.selected = 0
	}
}

// HandleKey applies a key press. shift reports whether Shift was held.
func (s *Suggester) HandleKey(key Key, shift bool) Result {
	if !s.open {
		if key == KeyEnter && !shift {
			return Result{Action: ActionSubmit, Text: s.text, Cursor: s.cursor}
		}
		return Result{Action: ActionNone, Text: s.text, Cursor: s.cursor}
	}

	n := len(s.matches)
	switch key {
	case KeyArrowDown:
		s.selected = (s.selected + 1) % n
		return Result{Action: ActionMove, Text: s.text, Cursor: s.cursor}
	case KeyArrowUp:
		s.selected = (s.selected - 1 + n) % n
		return Result{Action: ActionMove, Text: s.text, Cursor: s.cursor}
	case KeyEnter, KeyTab:
		p := s.matches[s.selected]
		text, cursor := InsertMention(s.text, s.cursor, p)
		s.text, s.cursor = text, cursor
		s.close()
		return Result{Action: ActionInsert, Text: text, Cursor: cursor, Participant: &p}
	case KeyEscape:
		s.close()
		return Result{Action: ActionClose, Text: s.text, Cursor: s.cursor}
	}
	return Result{Action: ActionNone, Text: s.text, Cursor: s.cursor}
}

func (s *Suggester) IsOpen() bool {
	return s.open
}

// Selected returns the highlighted index, or -1 when closed.
func (s *Suggester) Selected() int {
	if !s.open {
		return -1
	}
	return s.selected
}

func (s *Suggester) Matches() []models.Participant {
	if !s.open {
		return nil
	}
	return s.matches
}

// SetSelected is used when a suggestion is picked with the mouse.
func (s *Suggester) SetSelected(i int) {
	if s.open && i >= 0 && i < len(s.matches) {
		s.selected = i
	}
}

func (s *Suggester) close() {
	s.open = false
	s.selected = 0
	s.trigger = Trigger{}
	s.matches = nil
}
