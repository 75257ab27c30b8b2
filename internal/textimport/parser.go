// Package textimport turns a plain-text question sheet into question drafts.
//
// A sheet starts with "Key: value" headers (Subject, Class, Topic, Difficulty, Marks)
// followed by question blocks. Each block is a question line, optionally numbered
// "1.", "1)" or with a Roman numeral "IV.", and lettered option lines "A." / "A)".
// A lettered line only counts as an option when its letter is the next one in
// sequence for the current question, so "I. Identify the noun" after options A
// and B starts a new question. The correct option carries a trailing "(correct)"
// or a leading or trailing "*".
package textimport

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/odunayomike/report-card-generator-sub003/internal/models"
)

const (
	HeaderSubject    = "subject"
	HeaderClass      = "class"
	HeaderTopic      = "topic"
	HeaderDifficulty = "difficulty"
	HeaderMarks      = "marks"
)

var (
	headerLine   = regexp.MustCompile(`^(?i)(subject|class|topic|difficulty|marks)\s*:\s*(.*)$`)
	optionLine   = regexp.MustCompile(`^(\*)?\s*([A-Za-z])[.)]\s+(.*)$`)
	numberPrefix = regexp.MustCompile(`^(?:\d+|(?i:[ivx]+))[.)]\s*`)
	correctTag   = regexp.MustCompile(`(?i)\s*\(correct\)\s*$`)
)

// Policy controls defaults and which headers must be present.
type Policy struct {
	RequiredHeaders   []string
	DefaultDifficulty models.DifficultyLevel
	DefaultMarks      int
}

func DefaultPolicy() Policy {
	return Policy{
		RequiredHeaders:   []string{HeaderSubject, HeaderClass},
		DefaultDifficulty: models.DifficultyMedium,
		DefaultMarks:      1,
	}
}

// ImportParseError describes one rejected question. Line is 1-based; header problems
// that have no line of their own use 0.
type ImportParseError struct {
	Line          int    `json:"line"`
	QuestionIndex int    `json:"question_index"`
	Message       string `json:"message"`
}

func (e ImportParseError) Error() string {
	if e.QuestionIndex > 0 {
		return fmt.Sprintf("line %d: question %d: %s", e.Line, e.QuestionIndex, e.Message)
	}
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

type ParsedQuestion struct {
	Line  int                  `json:"line"`
	Index int                  `json:"index"`
	Draft models.QuestionDraft `json:"draft"`
}

type Result struct {
	Questions []ParsedQuestion   `json:"questions"`
	Errors    []ImportParseError `json:"errors"`
}

// OK reports whether every question parsed cleanly.
func (r Result) OK() bool {
	return len(r.Errors) == 0
}

type header struct {
	subject    string
	class      string
	topic      *string
	difficulty models.DifficultyLevel
	marks      int
}

type headerProblem struct {
	line    int
	message string
}

type block struct {
	line     int
	index    int
	text     []string
	options  []models.OptionDraft
	correct  int
	problems []ImportParseError
	sawBlank bool
}

// Parse never fails as a whole: bad questions are reported in Errors and skipped.
func Parse(text string, policy Policy) Result {
	if policy.DefaultDifficulty == "" {
		policy.DefaultDifficulty = models.DifficultyMedium
	}
	if policy.DefaultMarks <= 0 {
		policy.DefaultMarks = 1
	}

	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	h, bodyStart, headerErrs := parseHeader(lines, policy)

	var (
		result  Result
		blocks  []*block
		current *block
	)

	for i := bodyStart; i < len(lines); i++ {
		lineNo := i + 1
		line := strings.TrimSpace(lines[i])
		if line == "" {
			if current != nil {
				current.sawBlank = true
			}
			continue
		}

		if m := optionLine.FindStringSubmatch(line); m != nil {
			switch {
			case current != nil && current.expects(m[2]):
				current.addOption(lineNo, m[1] == "*", m[2], m[3])
				continue
			case current == nil && strings.EqualFold(m[2], "a"):
				result.Errors = append(result.Errors, ImportParseError{
					Line:    lineNo,
					Message: "option line appears before any question",
				})
				continue
			}
			// Out of sequence: a question numbered with a letter or Roman numeral.
		}

		if current != nil && len(current.options) == 0 && !current.sawBlank {
			current.text = append(current.text, line)
			continue
		}

		current = &block{
			line:  lineNo,
			index: len(blocks) + 1,
			text:  []string{numberPrefix.ReplaceAllString(line, "")},
		}
		blocks = append(blocks, current)
	}

	for _, b := range blocks {
		problems := b.validate()
		for _, hp := range headerErrs {
			problems = append(problems, ImportParseError{Line: hp.line, QuestionIndex: b.index, Message: hp.message})
		}
		if len(problems) > 0 {
			result.Errors = append(result.Errors, problems...)
			continue
		}
		result.Questions = append(result.Questions, ParsedQuestion{
			Line:  b.line,
			Index: b.index,
			Draft: models.QuestionDraft{
				Subject:    h.subject,
				Class:      h.class,
				Topic:      h.topic,
				Difficulty: h.difficulty,
				Marks:      h.marks,
				Text:       strings.Join(b.text, "\n"),
				Options:    b.options,
			},
		})
	}

	return result
}

func parseHeader(lines []string, policy Policy) (header, int, []headerProblem) {
	h := header{
		difficulty: policy.DefaultDifficulty,
		marks:      policy.DefaultMarks,
	}
	seen := map[string]bool{}
	var problems []headerProblem

	i := 0
	for ; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		m := headerLine.FindStringSubmatch(line)
		if m == nil {
			break
		}
		key, value := strings.ToLower(m[1]), strings.TrimSpace(m[2])
		if value == "" {
			continue
		}
		seen[key] = true

		switch key {
		case HeaderSubject:
			h.subject = value
		case HeaderClass:
			h.class = value
		case HeaderTopic:
			topic := value
			h.topic = &topic
		case HeaderDifficulty:
			d, ok := models.ParseDifficulty(value)
			if !ok {
				problems = append(problems, headerProblem{i + 1, fmt.Sprintf("invalid difficulty %q", value)})
				continue
			}
			h.difficulty = d
		case HeaderMarks:
			n, err := strconv.Atoi(value)
			if err != nil || n <= 0 {
				problems = append(problems, headerProblem{i + 1, fmt.Sprintf("invalid marks %q", value)})
				continue
			}
			h.marks = n
		}
	}

	for _, required := range policy.RequiredHeaders {
		key := strings.ToLower(required)
		if !seen[key] {
			problems = append(problems, headerProblem{0, fmt.Sprintf("missing required header %q", key)})
		}
	}

	return h, i, problems
}

// expects reports whether letter is the next option label, A for the first.
func (b *block) expects(letter string) bool {
	n := len(b.options)
	return n < 26 && strings.EqualFold(letter, string(rune('A'+n)))
}

func (b *block) addOption(lineNo int, leadingStar bool, letter, text string) {
	text = strings.TrimSpace(text)
	correct := leadingStar

	if loc := correctTag.FindStringIndex(text); loc != nil {
		correct = true
		text = strings.TrimSpace(text[:loc[0]])
	}
	if strings.HasPrefix(text, "*") {
		correct = true
		text = strings.TrimSpace(strings.TrimPrefix(text, "*"))
	}
	if strings.HasSuffix(text, "*") {
		correct = true
		text = strings.TrimSpace(strings.TrimSuffix(text, "*"))
	}

	if text == "" {
		b.problems = append(b.problems, ImportParseError{
			Line:          lineNo,
			QuestionIndex: b.index,
			Message:       fmt.Sprintf("option %s has no text", strings.ToUpper(letter)),
		})
	}
	if correct {
		b.correct++
	}
	b.options = append(b.options, models.OptionDraft{Text: text, IsCorrect: correct})
}

func (b *block) validate() []ImportParseError {
	problems := b.problems
	fail := func(msg string) {
		problems = append(problems, ImportParseError{Line: b.line, QuestionIndex: b.index, Message: msg})
	}

	if strings.TrimSpace(strings.Join(b.text, "")) == "" {
		fail("question has no text")
	}
	if len(b.options) < 2 {
		fail(fmt.Sprintf("question needs at least two options, got %d", len(b.options)))
	}
	switch {
	case b.correct == 0:
		fail("no option is marked correct")
	case b.correct > 1:
		fail(fmt.Sprintf("%d options are marked correct, want exactly one", b.correct))
	}
	return problems
}
