package feedback

import (
	"fmt"
	"strings"

	"github.com/af-corp/genroute/internal/types"
)

// InitialMessages builds the payload for the first generation of a request.
func InitialMessages(systemPrompt, prompt string) []types.Message {
	msgs := make([]types.Message, 0, 2)
	if systemPrompt != "" {
		msgs = append(msgs, types.Message{Role: "system", Content: systemPrompt})
	}
	return append(msgs, types.Message{Role: "user", Content: prompt})
}

// ImprovementMessages embeds the previous output and the validator feedback into a
// follow-up request.
func ImprovementMessages(systemPrompt, prompt, previous, feedback string) []types.Message {
	if strings.TrimSpace(feedback) == "" {
		feedback = "The output did not pass validation."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Original request:\n%s\n\n", prompt)
	fmt.Fprintf(&b, "Your previous output:\n%s\n\n", previous)
	fmt.Fprintf(&b, "A validator rejected it with this feedback:\n%s\n\n", feedback)
	b.WriteString("Produce a corrected version that addresses every point of the feedback. Return only the corrected output.")
	return InitialMessages(systemPrompt, b.String())
}
