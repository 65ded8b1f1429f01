package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const (
	askSystemPrompt = "You are an AI assistant that helps people find information. " +
		"Provide concise answers that are polite and professional.\n"
	summarizeSystemPrompt = "Summarize this prompt in one or two words to use as a label in a button on a web page. " +
		"Do not use any punctuation.\n"

	summarizeMaxTokens = 200

	APITypeOpenAI = "openai"
	APITypeAzure  = "azure"
)

var ErrEmptyChoices = errors.New("empty llm choices")

type ChatConfig struct {
	APIType    string
	APIVersion string
	BaseURL    string
	APIKey     string
	Model      string
	MaxTokens  int
}

// Completion is the model's reply plus the usage it reported.
type Completion struct {
	Text           string
	PromptTokens   int
	ResponseTokens int
}

type OpenAICompatibleClient struct {
	client    *openai.Client
	model     string
	maxTokens int
}

func NewOpenAICompatibleClient(cfg ChatConfig) *OpenAICompatibleClient {
	var clientCfg openai.ClientConfig
	if strings.EqualFold(cfg.APIType, APITypeAzure) {
		clientCfg = openai.DefaultAzureConfig(cfg.APIKey, cfg.BaseURL)
		if cfg.APIVersion != "" {
			clientCfg.APIVersion = cfg.APIVersion
		}
	} else {
		clientCfg = openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
		}
	}

	return &OpenAICompatibleClient{
		client:    openai.NewClientWithConfig(clientCfg),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
	}
}

func (c *OpenAICompatibleClient) MaxTokens() int {
	return c.maxTokens
}

func (c *OpenAICompatibleClient) Model() string {
	return c.model
}

// Ask sends the whole conversation as one user turn. The session id travels
// as the end-user identifier.
func (c *OpenAICompatibleClient) Ask(ctx context.Context, sessionID, conversation string) (*Completion, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: askSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: conversation},
		},
		MaxTokens:   c.maxTokens,
		Temperature: 0.3,
		TopP:        0.5,
		User:        sessionID,
	})
	if err != nil {
		return nil, fmt.Errorf("llm request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrEmptyChoices
	}

	return &Completion{
		Text:           resp.Choices[0].Message.Content,
		PromptTokens:   resp.Usage.PromptTokens,
		ResponseTokens: resp.Usage.CompletionTokens,
	}, nil
}

func (c *OpenAICompatibleClient) Summarize(ctx context.Context, sessionID, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: summarizeSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   summarizeMaxTokens,
		Temperature: 0,
		TopP:        1,
		User:        sessionID,
	})
	if err != nil {
		return "", fmt.Errorf("llm summarize request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyChoices
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
