package prompt

import (
	"fmt"
	"strings"

	"github.com/ankitjc/prompt-polish/internal/domain"
)

// ExpansionDirective is appended to every instruction so shorthand input still
// produces a readable sentence.
const ExpansionDirective = "If the keywords contain only abbreviations or informal shorthand, expand them into full words."

// BuildInstruction renders the instruction sent to the completion endpoint.
func BuildInstruction(req domain.GenerationRequest) string {
	return Instruction(req.Keywords, string(req.Tone), string(req.Simplicity))
}

// Instruction embeds keywords, tone and simplicity verbatim. Callers guarantee
// non-empty keywords.
func Instruction(keywords, tone, simplicity string) string {
	sb := &strings.Builder{}
	fmt.Fprintf(sb, "Generate a complete, meaningful sentence from these keywords: \"%s\". ", keywords)
	fmt.Fprintf(sb, "Tone: %s. Language complexity: %s. ", tone, simplicity)
	sb.WriteString(ExpansionDirective)
	return sb.String()
}
