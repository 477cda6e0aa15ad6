package generation

import (
	"strings"

	"amli-assistant/internal/domain"
)

// maxPromptTurns caps how much trailing history is replayed to the model.
const maxPromptTurns = 5

func buildPrompt(in Input) string {
	parts := []string{
		preamble(),
		"",
		"Current user message: " + strings.TrimSpace(in.Message),
	}

	if analysis := strings.TrimSpace(in.FileContext); analysis != "" {
		label := "Attached file analysis:"
		if name := strings.TrimSpace(in.FileName); name != "" {
			label = "Attached file analysis (" + name + "):"
		}
		parts = append(parts, "", label, analysis)
	}

	if lines := historyLines(in.History); len(lines) > 0 {
		parts = append(parts, "", "Recent conversation:")
		parts = append(parts, lines...)
	}

	parts = append(parts, "", "Guidelines:", guidelines(), "", "Assistant:")
	return strings.Join(parts, "\n")
}

func preamble() string {
	return "You are the AmLI assistant, a friendly and helpful humanoid AI assistant. " +
		"You help visitors with questions about AmLI, job applications, certificates, and general topics."
}

func guidelines() string {
	return strings.Join([]string{
		"- Be friendly and conversational",
		"- Provide accurate and helpful information",
		"- Use a natural, human-like tone",
		"- Ask follow-up questions when appropriate",
		"- Be empathetic and understanding",
	}, "\n")
}

func historyLines(history []domain.Turn) []string {
	if len(history) > maxPromptTurns {
		history = history[len(history)-maxPromptTurns:]
	}
	lines := make([]string, 0, len(history))
	for _, t := range history {
		content := strings.TrimSpace(t.Content)
		if content == "" {
			continue
		}
		if t.IsUser {
			lines = append(lines, "User: "+content)
		} else {
			lines = append(lines, "Assistant: "+content)
		}
	}
	return lines
}
