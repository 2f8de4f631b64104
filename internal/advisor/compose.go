// Package advisor answers farmer questions by combining retrieved manual
// excerpts with the latest field sensor readings. Prompt composition is a
// pure function so the same stored reading always produces the same prompt.
package advisor

import (
	"strings"

	"github.com/farmsight/agrirag/internal/sensor"
)

// composePreamble opens every sensor-augmented prompt.
const composePreamble = "You are an agritech assistant. Use the knowledge from the uploaded PDF manuals and the " +
	"field sensor readings below to answer the user's question precisely, give actionable recommendations, " +
	"and provide clear next steps for a small farmer.\n\n"

// composeTrailer closes every sensor-augmented prompt with safety guidance.
const composeTrailer = "Important: when giving fertilizer or pesticide recommendations, emphasize safe dosages, test soil first, " +
	"and mention if further lab analysis is recommended. If the PDF provides conflicting instructions mention that " +
	"and favor the most conservative/safe option.\n"

// Compose builds the augmented prompt for a question and an optional sensor
// payload. Without a payload the question passes through unchanged. With one,
// the readings are rendered as "key: value" lines in their original document
// order between the preamble and the safety trailer.
func Compose(question string, payload *sensor.Payload) string {
	if payload == nil || payload.Len() == 0 {
		return question
	}

	var b strings.Builder
	b.WriteString(composePreamble)
	b.WriteString("[Sensor Readings]\n")
	b.WriteString(payload.String())
	b.WriteString("\n\n[User Question]\n")
	b.WriteString(question)
	b.WriteString("\n\n")
	b.WriteString(composeTrailer)
	return b.String()
}
