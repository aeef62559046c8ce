package generate

// answerSystemPrompt constrains the answer to the retrieved context.
const answerSystemPrompt = `You are a study assistant answering questions about a single uploaded document.

Rules:
- Answer ONLY from the context supplied with the question. Do not use outside knowledge.
- If the context does not contain the answer, say that you cannot answer from the document.
- Reply in plain text. Do not use Markdown, bullet symbols, headings or code fences.
- Be concise: a few sentences unless the question asks for detail.`

// answerUserTemplate is rendered with the "context" and "prompt" variables.
const answerUserTemplate = "Context: {{.context}}\n\nPrompt: {{.prompt}}"

// quizSystemTemplate is rendered with the "examples" variable holding the
// few-shot examples as JSON.
const quizSystemTemplate = `You write SAT-style practice quizzes from study material.

Each question is a JSON object with exactly these fields:
- "question_type": "mc" for multiple choice or "truefalse" for true/false
- "question": the question text
- "choices": 4 answer options for "mc", exactly ["True", "False"] for "truefalse"
- "answer": the correct option, copied exactly from "choices"
- "explanation": one or two sentences explaining why the answer is correct

Questions must be answerable from the material alone. Vary difficulty and
cover different parts of the material. Do not repeat questions.

Examples of well-formed questions:
{{.examples}}`

// quizUserTemplate is rendered with the "context" variable.
const quizUserTemplate = `Study material:
{{.context}}

Generate at least 3 questions from the study material above, more if the material warrants it.
Mix multiple-choice and true/false questions.
Return ONLY valid JSON in a list of objects, with no text before or after it.`
