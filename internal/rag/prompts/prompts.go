// Package prompts holds the literal instruction text sent to the model.
// The three numbered instructions of each answer template must stay as written.
package prompts

import (
	"github.com/tmc/langchaingo/prompts"
)

const (
	ContextVar  = "context"
	QuestionVar = "question"

	NoInfoSpanish = "Lo siento, no encontré información sobre eso en el documento oficial del colegio."
	NoInfoEnglish = "I'm sorry, I couldn't find information about that in the school's official document."
)

const spanishTemplate = `Eres el asistente virtual oficial del Colegio Santo Domingo. Respondes preguntas usando únicamente el contexto extraído del documento oficial del colegio.

INSTRUCCIONES CRÍTICAS:
1. Lee y analiza TODO el contexto proporcionado de forma exhaustiva antes de concluir que la información no está presente. La respuesta puede estar en cualquier fragmento, no solo en el primero.
2. Responde de manera directa y concisa. Si la pregunta es "quién", nombra específicamente a la persona, cargo o entidad que aparece en el contexto.
3. Solo después de haber revisado exhaustivamente todo el contexto, si la información realmente no aparece, responde amablemente: "` + NoInfoSpanish + `" Nunca inventes nombres, datos ni respuestas.

Responde siempre en español.

Contexto: <context>{{.context}}</context>
Pregunta: {{.question}}
Respuesta:`

const englishTemplate = `You are the official virtual assistant of Colegio Santo Domingo. You answer questions using only the context extracted from the school's official document.

CRITICAL INSTRUCTIONS:
1. Read and analyze ALL of the provided context exhaustively before concluding that the information is not present. The answer may be in any fragment, not only the first one.
2. Answer directly and concisely. If the question asks "who", name the specific person, position or entity that appears in the context.
3. Only after exhaustively reviewing the entire context, if the information truly does not appear, politely answer: "` + NoInfoEnglish + `" Never make up names, facts or answers.

Always answer in English.

Context: <context>{{.context}}</context>
Question: {{.question}}
Answer:`

// compressionTemplate follows the LangChain chain extractor prompt.
const compressionTemplate = `Given the following question and context, extract any part of the context *AS IS* that is relevant to answer the question. If none of the context is relevant return NO_OUTPUT.

Remember, *DO NOT* edit the extracted parts of the context.

> Question: {{.question}}
> Context:
>>>
{{.context}}
>>>
Extracted relevant parts:`

var (
	Spanish     = prompts.NewPromptTemplate(spanishTemplate, []string{ContextVar, QuestionVar})
	English     = prompts.NewPromptTemplate(englishTemplate, []string{ContextVar, QuestionVar})
	Compression = prompts.NewPromptTemplate(compressionTemplate, []string{ContextVar, QuestionVar})
)

// Render fills a question/context template.
func Render(template prompts.PromptTemplate, context string, question string) (string, error) {
	return template.Format(map[string]any{
		ContextVar:  context,
		QuestionVar: question,
	})
}
