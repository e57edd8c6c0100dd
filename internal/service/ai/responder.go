package ai

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"github.com/naveenkul/pocket-soul/internal/config"
	conv "github.com/naveenkul/pocket-soul/internal/model/conversation"
	"github.com/naveenkul/pocket-soul/internal/model/persona"
)

// Service generates in-character replies through the configured chat model.
type Service struct {
	chatModel model.ChatModel
	personas  persona.Store
	cfg       config.AIConfig
	chain     compose.Runnable[map[string]any, *schema.Message]
	log       zerolog.Logger
}

// NewService compiles the prompt template and chat model into a chain.
func NewService(ctx context.Context, personas persona.Store, cfg config.AIConfig, log zerolog.Logger) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &Service{
		chatModel: chatModel,
		personas:  personas,
		cfg:       cfg,
		chain:     runnable,
		log:       log.With().Str("component", "ai").Logger(),
	}, nil
}

// GenerateReply runs one turn through the chain with the persona system
// prompt and the bounded recent history.
func (s *Service) GenerateReply(ctx context.Context, sessionID string, history []conv.Turn, userText string) (string, error) {
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	input := map[string]any{
		"system":  BuildSystemPrompt(s.personas.Default()),
		"history": s.buildHistoryMessages(history),
		"query":   userText,
	}

	response, err := s.chain.Invoke(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to run chat chain: %w", err)
	}

	s.log.Debug().
		Str("session", sessionID).
		Int("length", len(response.Content)).
		Msg("reply generated")
	return response.Content, nil
}

func (s *Service) buildHistoryMessages(history []conv.Turn) []*schema.Message {
	if len(history) == 0 {
		return nil
	}

	start := 0
	if limit := s.cfg.HistoryLimit; limit > 0 && len(history) > limit {
		start = len(history) - limit
	}

	messages := make([]*schema.Message, 0, len(history)-start)
	for _, turn := range history[start:] {
		switch turn.Role {
		case conv.RoleUser:
			messages = append(messages, schema.UserMessage(turn.Content))
		case conv.RoleAssistant:
			messages = append(messages, schema.AssistantMessage(turn.Content, nil))
		}
	}
	return messages
}
