package generate

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/54b3r/recall-go/internal/rag"
)

// Question types accepted in a quiz.
const (
	QuestionTypeMC        = "mc"
	QuestionTypeTrueFalse = "truefalse"
)

// requiredChoices is the number of choices each question type must carry.
var requiredChoices = map[string]int{
	QuestionTypeMC:        4,
	QuestionTypeTrueFalse: 2,
}

// QuizItem is one validated quiz question.
type QuizItem struct {
	// QuestionType is "mc" or "truefalse".
	QuestionType string `json:"question_type"`
	// Question is the question text.
	Question string `json:"question"`
	// Choices holds 4 options for "mc" and 2 for "truefalse".
	Choices []string `json:"choices"`
	// Answer is one of Choices. A letter answer such as "C" or "(c)" is
	// normalised to the text of the choice it names, so Answer may differ
	// from the model's reply.
	Answer string `json:"answer"`
	// Explanation justifies the answer.
	Explanation string `json:"explanation"`
}

// ParseQuiz decodes and validates the model's quiz reply. The reply must be a
// JSON array of question objects; surrounding whitespace and a single Markdown
// code fence are tolerated. Every problem found is reported in one
// *rag.MalformedQuizError and no items are returned unless all are valid.
func ParseQuiz(reply string) ([]QuizItem, error) {
	body := stripFence(reply)
	if body == "" {
		return nil, &rag.MalformedQuizError{Problems: []rag.QuizProblem{{Item: -1, Reason: "reply is empty"}}}
	}

	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return nil, &rag.MalformedQuizError{Err: fmt.Errorf("reply is not a JSON array: %w", err)}
	}
	if len(raw) == 0 {
		return nil, &rag.MalformedQuizError{Problems: []rag.QuizProblem{{Item: -1, Reason: "quiz has no questions"}}}
	}

	var (
		items    = make([]QuizItem, 0, len(raw))
		problems []rag.QuizProblem
	)
	for i, r := range raw {
		item, itemProblems := parseItem(i, r)
		problems = append(problems, itemProblems...)
		items = append(items, item)
	}
	if len(problems) > 0 {
		return nil, &rag.MalformedQuizError{Problems: problems}
	}
	return items, nil
}

// parseItem validates one array element.
func parseItem(i int, r json.RawMessage) (QuizItem, []rag.QuizProblem) {
	var (
		item     QuizItem
		problems []rag.QuizProblem
	)
	bad := func(field, format string, args ...any) {
		problems = append(problems, rag.QuizProblem{Item: i, Field: field, Reason: fmt.Sprintf(format, args...)})
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(r, &fields); err != nil || fields == nil {
		bad("", "not a JSON object")
		return item, problems
	}

	str := func(name string, dst *string) {
		v, ok := fields[name]
		if !ok {
			bad(name, "missing")
			return
		}
		if err := json.Unmarshal(v, dst); err != nil {
			bad(name, "must be a string")
			return
		}
		if strings.TrimSpace(*dst) == "" {
			bad(name, "must not be empty")
		}
	}
	str("question_type", &item.QuestionType)
	str("question", &item.Question)
	str("answer", &item.Answer)
	str("explanation", &item.Explanation)

	if v, ok := fields["choices"]; !ok {
		bad("choices", "missing")
	} else if err := json.Unmarshal(v, &item.Choices); err != nil || item.Choices == nil {
		// A JSON null decodes without error into a nil slice.
		bad("choices", "must be a list of strings")
		item.Choices = nil
	} else {
		for j, c := range item.Choices {
			if strings.TrimSpace(c) == "" {
				bad("choices", "choice %d is empty", j)
			}
		}
	}

	want, known := requiredChoices[item.QuestionType]
	if item.QuestionType != "" && !known {
		bad("question_type", "must be %q or %q, got %q", QuestionTypeMC, QuestionTypeTrueFalse, item.QuestionType)
	}
	if known && item.Choices != nil && len(item.Choices) != want {
		bad("choices", "%q questions need %d choices, got %d", item.QuestionType, want, len(item.Choices))
	}

	if item.Answer != "" && len(item.Choices) > 0 {
		if resolved, ok := resolveAnswer(item.QuestionType, item.Answer, item.Choices); ok {
			item.Answer = resolved
		} else {
			bad("answer", "%q is not one of the choices", item.Answer)
		}
	}

	return item, problems
}

// resolveAnswer matches answer against choices: exactly (ignoring surrounding
// whitespace), case-insensitively for true/false, or by a letter label such
// as "C" for a choice written "C) ...". It returns the matching choice.
func resolveAnswer(qtype, answer string, choices []string) (string, bool) {
	a := strings.TrimSpace(answer)
	for _, c := range choices {
		if strings.TrimSpace(c) == a {
			return c, true
		}
	}
	if qtype == QuestionTypeTrueFalse {
		for _, c := range choices {
			if strings.EqualFold(strings.TrimSpace(c), a) {
				return c, true
			}
		}
		return "", false
	}

	label, ok := answerLabel(a)
	if !ok {
		return "", false
	}
	anyLabelled := false
	for _, c := range choices {
		if l, ok := ChoiceLabel(c); ok {
			anyLabelled = true
			if l == label {
				return c, true
			}
		}
	}
	if !anyLabelled {
		if idx := int(label - 'A'); idx < len(choices) {
			return choices[idx], true
		}
	}
	return "", false
}

// answerLabel recognises "C", "C)", "C." and "(C)".
func answerLabel(s string) (byte, bool) {
	s = strings.TrimSuffix(strings.TrimPrefix(s, "("), ")")
	s = strings.TrimSuffix(s, ".")
	if len(s) != 1 {
		return 0, false
	}
	c := s[0] &^ 0x20 // upper-case ASCII
	if c < 'A' || c > 'Z' {
		return 0, false
	}
	return c, true
}

// ChoiceLabel extracts the leading "A)" / "A." label of a choice, if it
// carries one.
func ChoiceLabel(choice string) (byte, bool) {
	s := strings.TrimSpace(choice)
	if len(s) < 2 || (s[1] != ')' && s[1] != '.') {
		return 0, false
	}
	c := s[0]
	if c < 'A' || c > 'Z' {
		return 0, false
	}
	return c, true
}

// stripFence removes surrounding whitespace and one enclosing ``` fence.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = ""
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
