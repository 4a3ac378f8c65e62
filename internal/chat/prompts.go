package chat

import (
	"fmt"
	"strings"

	"github.com/hyperjump/tanya/internal/models"
)

const condenseInstruction = "Given the following conversation and a follow up question, " +
	"rephrase the follow up question to be a standalone question, in its original language."

const answerInstruction = "Use the following pieces of context to answer the question at the end. " +
	"Answer only from the context. If the context does not contain the answer, just say that you " +
	"don't know, don't try to make up an answer."

// contextSeparator sits between retrieved chunks in the answer prompt.
const contextSeparator = "\n\n---\n\n"

// CondensePrompt renders history and a follow-up question into the prompt that asks for a
// standalone question.
func CondensePrompt(history []models.ConversationTurn, question string) string {
	var b strings.Builder
	b.WriteString(condenseInstruction)
	b.WriteString("\n\nChat History:\n")
	b.WriteString(RenderHistory(history))
	b.WriteString("\nFollow Up Input: ")
	b.WriteString(question)
	b.WriteString("\nStandalone question:")
	return b.String()
}

// RenderHistory renders turns as alternating Human/Assistant lines.
func RenderHistory(history []models.ConversationTurn) string {
	var b strings.Builder
	for _, turn := range history {
		b.WriteString("Human: ")
		b.WriteString(turn.Question)
		b.WriteString("\nAssistant: ")
		b.WriteString(turn.Answer)
		b.WriteString("\n")
	}
	return b.String()
}

// AnswerPrompt renders the retrieved chunks, each labelled with its source and page, and
// the question into the answer prompt.
func AnswerPrompt(sources []models.ScoredChunk, question string) string {
	parts := make([]string, 0, len(sources))
	for _, s := range sources {
		parts = append(parts, fmt.Sprintf("[%s, page %d]\n%s", s.Chunk.SourceName, s.Chunk.PageNumber, s.Chunk.Content))
	}
	var b strings.Builder
	b.WriteString(answerInstruction)
	b.WriteString("\n\n")
	b.WriteString(strings.Join(parts, contextSeparator))
	b.WriteString("\n\nQuestion: ")
	b.WriteString(question)
	b.WriteString("\nHelpful Answer:")
	return b.String()
}
