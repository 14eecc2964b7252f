package service

import "strings"

// DefaultMaxTokens bounds generated answers.
const DefaultMaxTokens = 256

const promptTemplate = `Use the following pieces of context to answer the question at the end. If you don't know the answer, just say that you don't know, don't try to make up an answer.

{context}

Question: {question}
Helpful Answer:`

// BuildPrompt stuffs every retrieved passage into a single prompt.
func BuildPrompt(question string, passages []string) string {
	r := strings.NewReplacer("{context}", strings.Join(passages, "\n\n"), "{question}", question)
	return r.Replace(promptTemplate)
}
