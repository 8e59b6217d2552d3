// Package sequence provides parsing of exhibit sequence files into typed instructions.
package sequence

import (
	"fmt"
	"strings"
	"time"
)

// Kind identifies the type of a sequence instruction.
type Kind int

const (
	KindUnknown Kind = iota
	KindAudio
	KindImage
	KindText
	KindWait
	KindAction
	KindTrivia
	KindAvatarImage
)

// String returns the keyword used for the kind in sequence files.
func (k Kind) String() string {
	switch k {
	case KindAudio:
		return "Audio"
	case KindImage:
		return "Image"
	case KindText:
		return "Text"
	case KindWait:
		return "Wait"
	case KindAction:
		return "Action"
	case KindTrivia:
		return "Trivia"
	case KindAvatarImage:
		return "LaiaImage"
	default:
		return "Unknown"
	}
}

// AnswerCount is the fixed number of answers in a trivia question.
const AnswerCount = 3

// Instruction is one parsed, immutable unit of sequence behavior.
// The set of implementations is closed: Audio, Image, Text, Wait, Action,
// Trivia, AvatarImage and Unknown.
type Instruction interface {
	Kind() Kind
	String() string
	instruction()
}

// Audio plays a narration clip. Clean stops the current clip instead.
type Audio struct {
	Path  string
	Clean bool
}

// Image shows an image. Clean hides the current image instead.
type Image struct {
	Path  string
	Clean bool
}

// Text shows a display string. Clean clears the text instead.
type Text struct {
	Content string
	Clean   bool
}

// Wait suspends the sequence for a number of seconds.
type Wait struct {
	Seconds float64
}

// Action dispatches a named action to an external handler.
type Action struct {
	Name string
}

// Trivia asks a question with three answers. CorrectIndex is 0-based.
type Trivia struct {
	Question     string
	Answers      [AnswerCount]string
	CorrectIndex int
}

// AvatarImage changes the avatar expression. Clean hides the avatar instead.
type AvatarImage struct {
	Expression string
	Clean      bool
}

// Unknown is produced for lines that are blank, comments, or malformed.
// Reason is empty for blank and comment lines.
type Unknown struct {
	Line   string
	Reason string
}

func (Audio) Kind() Kind       { return KindAudio }
func (Image) Kind() Kind       { return KindImage }
func (Text) Kind() Kind        { return KindText }
func (Wait) Kind() Kind        { return KindWait }
func (Action) Kind() Kind      { return KindAction }
func (Trivia) Kind() Kind      { return KindTrivia }
func (AvatarImage) Kind() Kind { return KindAvatarImage }
func (Unknown) Kind() Kind     { return KindUnknown }

func (Audio) instruction()       {}
func (Image) instruction()       {}
func (Text) instruction()        {}
func (Wait) instruction()        {}
func (Action) instruction()      {}
func (Trivia) instruction()      {}
func (AvatarImage) instruction() {}
func (Unknown) instruction()     {}

func (a Audio) String() string {
	if a.Clean {
		return "Audio: clean"
	}
	return "Audio: " + a.Path
}

func (i Image) String() string {
	if i.Clean {
		return "Image: clean"
	}
	return "Image: " + i.Path
}

func (t Text) String() string {
	if t.Clean {
		return "Text: clean"
	}
	return fmt.Sprintf("Text: %q", t.Content)
}

func (w Wait) String() string {
	return fmt.Sprintf("Wait: %g", w.Seconds)
}

func (a Action) String() string {
	return "Action: " + a.Name
}

func (t Trivia) String() string {
	return fmt.Sprintf("Trivia: %q|%q|%q|%q|%d",
		t.Question, t.Answers[0], t.Answers[1], t.Answers[2], t.CorrectIndex+1)
}

func (a AvatarImage) String() string {
	if a.Clean {
		return "LaiaImage: clean"
	}
	return "LaiaImage: " + a.Expression
}

func (u Unknown) String() string {
	if u.Reason == "" {
		return "Unknown"
	}
	return "Unknown: " + u.Reason
}

// Duration returns the wait length as a time.Duration.
func (w Wait) Duration() time.Duration {
	return time.Duration(w.Seconds * float64(time.Second))
}

// IsCorrect reports whether the 0-based answer index is the correct one.
func (t Trivia) IsCorrect(index int) bool {
	return index == t.CorrectIndex
}

// IsPlayable reports whether an instruction should be kept in a playable list.
func IsPlayable(inst Instruction) bool {
	return inst != nil && inst.Kind() != KindUnknown
}

// Summary returns a short description of an instruction list for logs.
func Summary(instructions []Instruction) string {
	counts := make(map[Kind]int)
	for _, inst := range instructions {
		counts[inst.Kind()]++
	}
	parts := make([]string, 0, len(counts))
	for k := KindAudio; k <= KindAvatarImage; k++ {
		if n := counts[k]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", k, n))
		}
	}
	return strings.Join(parts, " ")
}
