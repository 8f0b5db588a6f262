// Package prompt renders retrieved segments and the user's question into the
// single bounded prompt sent to generation providers.
package prompt

import (
	"fmt"
	"strings"

	"github.com/docqa/backend/internal/retrieval"
)

const systemInstructions = `You are a helpful AI assistant that answers questions based on provided documents.`

const outputInstructions = `Instructions:
- Answer based ONLY on the context above
- If the context doesn't contain the answer, say "I don't have enough information to answer that"
- Cite your sources by repeating their [Source: ...] labels
- Be concise but complete`

const noContextInstruction = `No relevant documents were found for this question. State clearly that no relevant information was found in the uploaded documents. Do not answer from general knowledge.`

// Assembler builds prompts. It never reorders candidates; the retriever's
// ranking is preserved.
type Assembler struct{}

func NewAssembler() *Assembler {
	return &Assembler{}
}

// Build renders the full prompt: system instructions, one labeled block per
// candidate, the question, then output instructions. With no candidates the
// template explicitly instructs the model to report the absence of grounding.
func (a *Assembler) Build(candidates []retrieval.Candidate, question string) string {
	var sb strings.Builder

	sb.WriteString(systemInstructions)
	sb.WriteString("\n\n")

	if len(candidates) == 0 {
		sb.WriteString(noContextInstruction)
		sb.WriteString("\n\n")
		sb.WriteString("Question: ")
		sb.WriteString(question)
		return sb.String()
	}

	sb.WriteString("Context from documents:\n\n")

	for i, c := range candidates {
		sb.WriteString(fmt.Sprintf("Document %d:\n%s\n%s", i+1, c.Text, Label(c)))
		if i < len(candidates)-1 {
			sb.WriteString("\n\n---\n\n")
		}
	}

	sb.WriteString("\n\nQuestion: ")
	sb.WriteString(question)
	sb.WriteString("\n\n")
	sb.WriteString(outputInstructions)
	sb.WriteString("\n\nAnswer:")

	return sb.String()
}

// Label renders the citation label for one candidate, e.g.
// "[Source: report.pdf, Page 3]". Page is omitted when the source format has
// no positional unit.
func Label(c retrieval.Candidate) string {
	if c.Page > 0 {
		return fmt.Sprintf("[Source: %s, Page %d]", c.SourceFile, c.Page)
	}
	return fmt.Sprintf("[Source: %s]", c.SourceFile)
}

// Labels returns the citation label of every candidate, in order. These are
// the raw citation strings announced in the streaming sources event and fed to
// the citation normalizer.
func Labels(candidates []retrieval.Candidate) []string {
	labels := make([]string, len(candidates))
	for i, c := range candidates {
		labels[i] = Label(c)
	}
	return labels
}
