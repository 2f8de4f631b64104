package advisor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/farmsight/agrirag/internal/logging"
	"github.com/farmsight/agrirag/internal/rag"
	"github.com/farmsight/agrirag/internal/sensor"
)

// systemPrompt frames every generation. The sensor readings and safety
// guidance ride in the composed user message, so this stays short.
const systemPrompt = `You are an agricultural advisory assistant for small farmers.
Ground every answer in the provided manual excerpts. If the excerpts do not
cover the question, say so plainly rather than inventing manual content.`

// defaultTopK is the number of manual excerpts retrieved per question.
const defaultTopK = 6

// ChatModel is the slice of the LLM client the advisor needs.
type ChatModel interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// Service answers questions using retrieved manual excerpts and optional
// sensor context.
type Service struct {
	// retriever finds relevant manual chunks for a question.
	retriever rag.Retriever

	// chat generates the final answer text.
	chat ChatModel

	// topK is the number of chunks retrieved per question.
	topK int
}

// New constructs a Service. topK <= 0 selects the default of 6.
func New(retriever rag.Retriever, chat ChatModel, topK int) (*Service, error) {
	if retriever == nil {
		return nil, fmt.Errorf("advisor: retriever must not be nil")
	}
	if chat == nil {
		return nil, fmt.Errorf("advisor: chat model must not be nil")
	}
	if topK <= 0 {
		topK = defaultTopK
	}
	return &Service{retriever: retriever, chat: chat, topK: topK}, nil
}

// Answer retrieves manual excerpts for the question and generates an answer.
// Retrieval uses the bare question so sensor noise never skews which manual
// sections match; the sensor payload reaches the model only through the
// composed prompt. The model's answer text is returned verbatim.
func (s *Service) Answer(ctx context.Context, question string, payload *sensor.Payload) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", fmt.Errorf("advisor: question must not be empty")
	}

	docs, err := s.retriever.Retrieve(ctx, question, s.topK)
	if err != nil {
		return "", fmt.Errorf("advisor: retrieval failed: %w", err)
	}

	messages := []*schema.Message{
		schema.SystemMessage(systemPrompt),
	}
	if len(docs) > 0 {
		messages = append(messages, schema.SystemMessage(buildManualContext(docs)))
	} else {
		logging.FromContext(ctx).Warn("advisor: no manual excerpts retrieved",
			slog.String("question", question))
	}
	messages = append(messages, schema.UserMessage(Compose(question, payload)))

	resp, err := s.chat.Generate(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("advisor: generation failed: %w", err)
	}
	return resp.Content, nil
}

// buildManualContext formats retrieved chunks into a system message so the
// model can cite the manuals it was asked to trust.
func buildManualContext(docs []rag.Document) string {
	var b strings.Builder
	b.WriteString("## Relevant Manual Excerpts\n\n")
	b.WriteString("The following excerpts from the ingested PDF manuals are relevant to the " +
		"user's question. Base your recommendations on them.\n\n")
	for i, doc := range docs {
		page := doc.Metadata["page"]
		if page != "" {
			fmt.Fprintf(&b, "### Excerpt %d: %s (page %s)\n%s\n\n", i+1, doc.Source, page, doc.Content)
		} else {
			fmt.Fprintf(&b, "### Excerpt %d: %s\n%s\n\n", i+1, doc.Source, doc.Content)
		}
	}
	return b.String()
}
