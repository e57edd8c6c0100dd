package ai

import (
	"fmt"
	"strings"

	"github.com/naveenkul/pocket-soul/internal/model/persona"
)

// BuildSystemPrompt renders the companion persona into the system message.
// Replies are spoken aloud and acted out by a holographic character, so the
// prompt insists on short, voiced-friendly output.
func BuildSystemPrompt(p persona.Persona) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are %s, a %s living inside a pocket hologram device.\n", p.Name, p.Title)
	fmt.Fprintf(&b, "Tone: %s.\n", p.Tone)
	if len(p.Traits) > 0 {
		fmt.Fprintf(&b, "Traits: %s.\n", strings.Join(p.Traits, ", "))
	}
	if p.PromptHint != "" {
		b.WriteString(p.PromptHint)
		b.WriteString("\n")
	}

	b.WriteString("Rules:\n")
	b.WriteString("- Answer in at most three sentences; every word is spoken out loud.\n")
	b.WriteString("- Stay in character; never mention being an AI model or a program.\n")
	b.WriteString("- React to the user's mood; your face and body language mirror your words.\n")

	if p.OpeningLine != "" {
		fmt.Fprintf(&b, "Opening line for new conversations: %s\n", p.OpeningLine)
	}

	return b.String()
}
