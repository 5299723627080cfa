// Package openai implements the info and caption providers on the OpenAI
// chat completions API.
package openai

import (
	"context"
	"log/slog"
	"strings"

	gopenai "github.com/sashabaranov/go-openai"

	"github.com/fsakai/autopost/internal/apperror"
	"github.com/fsakai/autopost/internal/provider"
)

const (
	infoSystemPrompt = "あなたはInstagram投稿のための情報収集専門家です。" +
		"与えられたキーワードに関連する最新の情報、トレンド、興味深い事実を収集し、" +
		"Instagram投稿に適した形でまとめてください。"

	captionSystemPrompt = "あなたはInstagram投稿のキャプション作成専門家です。" +
		"取得した情報と指示を基に、魅力的で、エンゲージメントを高めるキャプションを作成してください。" +
		"ハッシュタグも含めてください。"

	defaultCaptionInstructions = "魅力的なキャプションを作成してください"

	// Returned when the model answers with an empty message. Distinct
	// from the placeholders the assembler uses for outright failures.
	emptyInfoText    = "情報を取得できませんでした。"
	emptyCaptionText = "キャプションを生成できませんでした。"
)

// Client provides InfoProvider and CaptionProvider over one OpenAI client.
type Client struct {
	api    *gopenai.Client
	model  string
	logger *slog.Logger
}

var (
	_ provider.InfoProvider    = (*Client)(nil)
	_ provider.CaptionProvider = (*Client)(nil)
)

// New creates a Client. An empty model defaults to gpt-4o-mini.
func New(apiKey, model string, logger *slog.Logger) *Client {
	if model == "" {
		model = gopenai.GPT4oMini
	}
	return &Client{
		api:    gopenai.NewClient(apiKey),
		model:  model,
		logger: logger,
	}
}

// FetchInfo asks the model for a short brief about the keywords.
func (c *Client) FetchInfo(ctx context.Context, keywords []string) (string, error) {
	keywordText := strings.Join(keywords, ", ")

	resp, err := c.api.CreateChatCompletion(ctx, gopenai.ChatCompletionRequest{
		Model: c.model,
		Messages: []gopenai.ChatCompletionMessage{
			{Role: gopenai.ChatMessageRoleSystem, Content: infoSystemPrompt},
			{Role: gopenai.ChatMessageRoleUser, Content: "以下のキーワードに関連する情報を収集してください：" + keywordText},
		},
		MaxTokens:   300,
		Temperature: 0.7,
	})
	if err != nil {
		c.logger.Warn("info fetch failed", slog.String("error", err.Error()))
		return "", apperror.Provider("openai info", err)
	}

	text := firstMessage(resp)
	if text == "" {
		return emptyInfoText, nil
	}
	return text, nil
}

// FetchCaption asks the model for the post caption. Empty instructions
// fall back to a generic directive, matching the info/caption prompt pair
// the rest of the pipeline was tuned against.
func (c *Client) FetchCaption(ctx context.Context, keywords []string, info, instructions string) (string, error) {
	if instructions == "" {
		instructions = defaultCaptionInstructions
	}
	keywordText := strings.Join(keywords, ", ")
	userPrompt := "キーワード: " + keywordText +
		"\n取得した情報: " + info +
		"\n指示: " + instructions +
		"\n\nInstagram投稿用のキャプションを作成してください。"

	resp, err := c.api.CreateChatCompletion(ctx, gopenai.ChatCompletionRequest{
		Model: c.model,
		Messages: []gopenai.ChatCompletionMessage{
			{Role: gopenai.ChatMessageRoleSystem, Content: captionSystemPrompt},
			{Role: gopenai.ChatMessageRoleUser, Content: userPrompt},
		},
		MaxTokens:   400,
		Temperature: 0.8,
	})
	if err != nil {
		c.logger.Warn("caption fetch failed", slog.String("error", err.Error()))
		return "", apperror.Provider("openai caption", err)
	}

	text := firstMessage(resp)
	if text == "" {
		return emptyCaptionText, nil
	}
	return text, nil
}

func firstMessage(resp gopenai.ChatCompletionResponse) string {
	if len(resp.Choices) == 0 {
		return ""
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content)
}
