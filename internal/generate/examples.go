package generate

import "encoding/json"

// quizExamples are the few-shot examples embedded in the quiz system prompt.
var quizExamples = []QuizItem{
	{
		QuestionType: QuestionTypeMC,
		Question:     "According to the passage, what was the main reason the city council delayed the bridge project?",
		Choices: []string{
			"A) The design failed a safety review",
			"B) Funding from the state was withdrawn",
			"C) Residents objected to the proposed route",
			"D) The construction firm went bankrupt",
		},
		Answer:      "B) Funding from the state was withdrawn",
		Explanation: "The passage states that work paused once the state withdrew its share of the funding; the other options are never mentioned as causes.",
	},
	{
		QuestionType: QuestionTypeTrueFalse,
		Question:     "The author argues that early experiments with steam engines were commercially successful.",
		Choices:      []string{"True", "False"},
		Answer:       "False",
		Explanation:  "The author describes the early engines as inefficient curiosities that found buyers only decades later.",
	},
	{
		QuestionType: QuestionTypeMC,
		Question:     "As used in the second paragraph, \"novel\" most nearly means",
		Choices: []string{
			"A) fictional",
			"B) lengthy",
			"C) original",
			"D) popular",
		},
		Answer:      "C) original",
		Explanation: "The paragraph praises the approach as new and unlike earlier methods, so \"original\" fits the context.",
	},
}

// examplesJSON renders quizExamples for the system prompt.
func examplesJSON() string {
	b, err := json.MarshalIndent(quizExamples, "", "  ")
	if err != nil {
		// quizExamples is static; marshalling cannot fail.
		panic(err)
	}
	return string(b)
}
