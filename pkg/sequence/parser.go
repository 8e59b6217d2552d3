package sequence

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"path"
	"strconv"
	"strings"
)

// RoutePlaceholder is stripped from resource paths. Authoring tools emit it
// in front of paths relative to the sequence file.
const RoutePlaceholder = "{this.file.route}"

// CleanKeyword resets an output channel instead of showing new content.
const CleanKeyword = "clean"

// keywords maps lowercase instruction keywords to kinds.
var keywords = map[string]Kind{
	"audio":     KindAudio,
	"image":     KindImage,
	"wait":      KindWait,
	"text":      KindText,
	"action":    KindAction,
	"trivia":    KindTrivia,
	"laiaimage": KindAvatarImage,
}

// Issue describes a line that could not be turned into a playable instruction.
type Issue struct {
	Line   int
	Text   string
	Reason string
}

func (i Issue) String() string {
	return fmt.Sprintf("line %d: %s (%q)", i.Line, i.Reason, i.Text)
}

// Parse turns one line of a sequence file into an instruction.
// It never fails: lines that do not match the grammar yield Unknown.
// Recoverable payload problems are logged and replaced by defaults.
func Parse(line string) Instruction {
	inst, warning := parse(line)
	if warning != "" {
		log.Printf("Warning: sequence line %q: %s", strings.TrimSpace(line), warning)
	}
	return inst
}

// ParseLines reads a whole sequence file. Unknown instructions are dropped;
// malformed lines are reported as issues. Blank and comment lines are skipped
// silently.
func ParseLines(r io.Reader) ([]Instruction, []Issue, error) {
	var instructions []Instruction
	var issues []Issue

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		text := scanner.Text()
		if lineNo == 1 {
			text = strings.TrimPrefix(text, "\uFEFF")
		}

		inst, warning := parse(text)
		if warning != "" {
			issues = append(issues, Issue{Line: lineNo, Text: strings.TrimSpace(text), Reason: warning})
		}
		if u, ok := inst.(Unknown); ok {
			if u.Reason != "" && warning == "" {
				issues = append(issues, Issue{Line: lineNo, Text: strings.TrimSpace(text), Reason: u.Reason})
			}
			continue
		}
		instructions = append(instructions, inst)
	}
	if err := scanner.Err(); err != nil {
		return nil, issues, fmt.Errorf("failed to read sequence: %w", err)
	}

	return instructions, issues, nil
}

// ParseString parses sequence text held in memory.
func ParseString(text string) ([]Instruction, []Issue) {
	instructions, issues, _ := ParseLines(strings.NewReader(text))
	return instructions, issues
}

// parse returns the instruction plus a warning for recoverable problems.
func parse(line string) (Instruction, string) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return Unknown{Line: line}, ""
	}

	colon := strings.Index(trimmed, ":")
	if colon < 0 {
		return Unknown{Line: line, Reason: "missing ':' separator"}, ""
	}

	keyword := strings.ToLower(strings.TrimSpace(trimmed[:colon]))
	kind, ok := keywords[keyword]
	if !ok {
		return Unknown{Line: line, Reason: fmt.Sprintf("unknown instruction type %q", strings.TrimSpace(trimmed[:colon]))}, ""
	}

	content := trimmed[colon+1:]
	if hash := strings.Index(content, "#"); hash >= 0 {
		content = content[:hash]
	}
	content = strings.TrimSpace(content)
	clean := strings.EqualFold(content, CleanKeyword)

	switch kind {
	case KindAudio:
		if clean {
			return Audio{Clean: true}, ""
		}
		return Audio{Path: normalizeResourcePath(content)}, ""

	case KindImage:
		if clean {
			return Image{Clean: true}, ""
		}
		return Image{Path: normalizeResourcePath(content)}, ""

	case KindText:
		if clean {
			return Text{Clean: true}, ""
		}
		return Text{Content: trimQuotes(content)}, ""

	case KindWait:
		seconds, err := strconv.ParseFloat(content, 64)
		if err != nil {
			return Wait{}, fmt.Sprintf("invalid wait duration %q, using 0", content)
		}
		if seconds < 0 {
			return Wait{}, fmt.Sprintf("negative wait duration %q, using 0", content)
		}
		return Wait{Seconds: seconds}, ""

	case KindAction:
		return Action{Name: trimQuotes(content)}, ""

	case KindTrivia:
		return parseTrivia(line, content)

	case KindAvatarImage:
		if clean {
			return AvatarImage{Clean: true}, ""
		}
		return AvatarImage{Expression: trimQuotes(content)}, ""
	}

	return Unknown{Line: line, Reason: "unhandled instruction type"}, ""
}

// parseTrivia parses `"Question"|"A1"|"A2"|"A3"|correct` with a 1-based index.
// An index outside 1..3 rejects the whole instruction rather than guessing.
func parseTrivia(line, content string) (Instruction, string) {
	fields := strings.Split(content, "|")
	if len(fields) < 5 {
		return Unknown{Line: line, Reason: fmt.Sprintf("trivia needs 5 '|' separated fields, got %d", len(fields))}, ""
	}

	t := Trivia{Question: trimQuotes(strings.TrimSpace(fields[0]))}
	for i := 0; i < AnswerCount; i++ {
		t.Answers[i] = trimQuotes(strings.TrimSpace(fields[i+1]))
	}

	raw := trimQuotes(strings.TrimSpace(fields[4]))
	index, err := strconv.Atoi(raw)
	if err != nil || index < 1 || index > AnswerCount {
		reason := fmt.Sprintf("invalid trivia correct answer %q, expected 1-%d", raw, AnswerCount)
		return Unknown{Line: line, Reason: reason}, reason
	}
	t.CorrectIndex = index - 1

	return t, ""
}

// normalizeResourcePath strips the route placeholder and the file extension
// and converts backslashes to forward slashes.
func normalizeResourcePath(content string) string {
	p := strings.ReplaceAll(trimQuotes(content), "\\", "/")
	p = strings.TrimPrefix(p, RoutePlaceholder+"/")
	p = strings.TrimPrefix(p, RoutePlaceholder)
	p = strings.TrimSpace(p)

	if ext := path.Ext(p); ext != "" && !strings.Contains(ext, "/") {
		p = strings.TrimSuffix(p, ext)
	}
	return p
}

// trimQuotes removes one pair of surrounding single or double quotes.
func trimQuotes(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
