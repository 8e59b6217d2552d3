package sequence

import (
	"strings"
	"testing"
)

func TestParse_Kinds(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Instruction
	}{
		{"wait", "Wait: 2.5", Wait{Seconds: 2.5}},
		{"wait integer", "wait:3", Wait{Seconds: 3}},
		{"text double quotes", `Text: "Hello"`, Text{Content: "Hello"}},
		{"text single quotes", `Text: 'Hola'`, Text{Content: "Hola"}},
		{"text with colon", `Text: "Hora: 10"`, Text{Content: "Hora: 10"}},
		{"text clean", "Text: clean", Text{Clean: true}},
		{"image", "Image: foo", Image{Path: "foo"}},
		{"image clean mixed case", "IMAGE: CLEAN", Image{Clean: true}},
		{"audio with extension", "Audio: narration/intro.wav", Audio{Path: "narration/intro"}},
		{"audio placeholder with separator", `Audio: {this.file.route}\sounds\a.mp3`, Audio{Path: "sounds/a"}},
		{"audio placeholder without separator", "Audio: {this.file.route}a.ogg", Audio{Path: "a"}},
		{"audio clean", "Audio: clean", Audio{Clean: true}},
		{"action", "Action: bar", Action{Name: "bar"}},
		{"avatar", `LaiaImage: "happy"`, AvatarImage{Expression: "happy"}},
		{"avatar clean", "laiaimage: Clean", AvatarImage{Clean: true}},
		{"inline comment", "Image: foo # shown after intro", Image{Path: "foo"}},
		{"leading whitespace", "   Wait: 1", Wait{Seconds: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.line)
			if got != tt.want {
				t.Errorf("Parse(%q) = %#v, want %#v", tt.line, got, tt.want)
			}
		})
	}
}

func TestParse_Unknown(t *testing.T) {
	lines := []string{
		"",
		"   ",
		"# comment",
		"   # indented comment",
		"no colon here",
		"Video: intro.mp4",
		`Trivia: "Q"|"A"|"B"`,
		`Trivia: "Q"|"A"|"B"|"C"|4`,
		`Trivia: "Q"|"A"|"B"|"C"|x`,
		`Trivia: "Q"|"A"|"B"|"C"|0`,
	}

	for _, line := range lines {
		if got := Parse(line); got.Kind() != KindUnknown {
			t.Errorf("Parse(%q).Kind() = %v, want Unknown", line, got.Kind())
		}
	}
}

func TestParse_Trivia(t *testing.T) {
	got := Parse(`Trivia: "Q"|"A"|"B"|"C"|2`)
	trivia, ok := got.(Trivia)
	if !ok {
		t.Fatalf("Expected Trivia, got %#v", got)
	}
	if trivia.Question != "Q" {
		t.Errorf("Expected question 'Q', got %q", trivia.Question)
	}
	if trivia.Answers != [AnswerCount]string{"A", "B", "C"} {
		t.Errorf("Unexpected answers %v", trivia.Answers)
	}
	if trivia.CorrectIndex != 1 {
		t.Errorf("Expected CorrectIndex 1, got %d", trivia.CorrectIndex)
	}
	if !trivia.IsCorrect(1) || trivia.IsCorrect(0) {
		t.Error("IsCorrect does not match CorrectIndex")
	}
}

func TestParse_TriviaUnquotedFields(t *testing.T) {
	got := Parse("trivia: 2+2? | 3 | 4 | 5 | 2")
	trivia, ok := got.(Trivia)
	if !ok {
		t.Fatalf("Expected Trivia, got %#v", got)
	}
	if trivia.Question != "2+2?" || trivia.Answers[1] != "4" || trivia.CorrectIndex != 1 {
		t.Errorf("Unexpected trivia %#v", trivia)
	}
}

func TestParse_WaitInvalidDefaultsToZero(t *testing.T) {
	for _, line := range []string{"Wait: soon", "Wait: -2"} {
		got := Parse(line)
		wait, ok := got.(Wait)
		if !ok {
			t.Fatalf("Parse(%q) expected Wait, got %#v", line, got)
		}
		if wait.Seconds != 0 {
			t.Errorf("Parse(%q) expected 0 seconds, got %g", line, wait.Seconds)
		}
	}
}

func TestParse_Deterministic(t *testing.T) {
	line := `Trivia: "2+2?"|"3"|"4"|"5"|2`
	first := Parse(line)
	for i := 0; i < 10; i++ {
		if Parse(line) != first {
			t.Fatal("Parse is not deterministic")
		}
	}
}

func TestParseLines_EndToEnd(t *testing.T) {
	text := "Image: foo\nWait: 1\nText: \"hi\"\nAction: bar"

	instructions, issues, err := ParseLines(strings.NewReader(text))
	if err != nil {
		t.Fatalf("ParseLines failed: %v", err)
	}
	if len(issues) != 0 {
		t.Errorf("Expected no issues, got %v", issues)
	}

	want := []Instruction{
		Image{Path: "foo"},
		Wait{Seconds: 1},
		Text{Content: "hi"},
		Action{Name: "bar"},
	}
	if len(instructions) != len(want) {
		t.Fatalf("Expected %d instructions, got %d", len(want), len(instructions))
	}
	for i := range want {
		if instructions[i] != want[i] {
			t.Errorf("Instruction %d = %#v, want %#v", i, instructions[i], want[i])
		}
	}
}

func TestParseLines_SkipsAndReports(t *testing.T) {
	text := "\uFEFF# intro sequence\r\n" +
		"\r\n" +
		"Audio: intro\r\n" +
		"Bogus line\r\n" +
		"Trivia: \"Q\"|\"A\"|\"B\"\r\n" +
		"Wait: later\r\n"

	instructions, issues := ParseString(text)

	if len(instructions) != 2 {
		t.Fatalf("Expected 2 instructions, got %d: %v", len(instructions), instructions)
	}
	if instructions[0] != (Audio{Path: "intro"}) {
		t.Errorf("Unexpected first instruction %#v", instructions[0])
	}
	if instructions[1] != (Wait{}) {
		t.Errorf("Unexpected second instruction %#v", instructions[1])
	}

	if len(issues) != 3 {
		t.Fatalf("Expected 3 issues, got %d: %v", len(issues), issues)
	}
	wantLines := []int{4, 5, 6}
	for i, issue := range issues {
		if issue.Line != wantLines[i] {
			t.Errorf("Issue %d on line %d, want %d", i, issue.Line, wantLines[i])
		}
	}
}

func TestKindString(t *testing.T) {
	if KindAvatarImage.String() != "LaiaImage" {
		t.Errorf("Expected LaiaImage, got %s", KindAvatarImage.String())
	}
	if Kind(99).String() != "Unknown" {
		t.Errorf("Expected Unknown for out of range kind")
	}
}

func TestSummary(t *testing.T) {
	got := Summary([]Instruction{Audio{Path: "a"}, Audio{Path: "b"}, Wait{Seconds: 1}})
	if got != "Audio=2 Wait=1" {
		t.Errorf("Unexpected summary %q", got)
	}
}
