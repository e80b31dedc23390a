package domain

import "strings"

// TriggerKind identifies the family of a trigger condition.
type TriggerKind string

const (
	// TriggerPhrase fires when the phrase appears anywhere in the transcript, ignoring case.
	TriggerPhrase TriggerKind = "phrase"
)

// Trigger is a condition over transcript text.
// Implementations must be immutable and safe for concurrent use.
type Trigger interface {
	Kind() TriggerKind
	Matches(text string) bool
}

// PhraseTrigger matches a literal phrase as a case-insensitive substring.
type PhraseTrigger struct {
	phrase string
	folded string
}

// NewPhraseTrigger creates a trigger for the given phrase.
func NewPhraseTrigger(phrase string) PhraseTrigger {
	return PhraseTrigger{phrase: phrase, folded: strings.ToLower(phrase)}
}

func (t PhraseTrigger) Kind() TriggerKind { return TriggerPhrase }

// Phrase returns the phrase as it was authored.
func (t PhraseTrigger) Phrase() string { return t.phrase }

// Matches reports whether the phrase occurs in text. An empty phrase never matches.
func (t PhraseTrigger) Matches(text string) bool {
	return t.folded != "" && strings.Contains(strings.ToLower(text), t.folded)
}
