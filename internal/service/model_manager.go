package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/kapu/profile-lab-go/internal/constants"
	"github.com/kapu/profile-lab-go/internal/util"
	pkgerrors "github.com/kapu/profile-lab-go/pkg/errors"
)

// ModelManager routes vision and text calls to OpenAI, falling back to
// Gemini when OpenAI fails and fallback is enabled. A shared circuit
// breaker stops hammering both providers during an outage.
type ModelManager struct {
	openaiClient       *openai.Client
	geminiClient       *genai.Client
	logger             *zap.Logger
	defaultOpenAIModel string
	defaultGeminiModel string
	enableFallback     bool
	circuitBreaker     *util.CircuitBreaker
}

type ModelManagerConfig struct {
	OpenAIAPIKey       string
	GeminiAPIKey       string
	DefaultOpenAIModel string
	DefaultGeminiModel string
	EnableFallback     bool
}

func NewModelManager(ctx context.Context, cfg ModelManagerConfig, logger *zap.Logger) (*ModelManager, error) {
	if cfg.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}

	defaultOpenAI := cfg.DefaultOpenAIModel
	if defaultOpenAI == "" {
		defaultOpenAI = "gpt-4o"
	}
	defaultGemini := cfg.DefaultGeminiModel
	if defaultGemini == "" {
		defaultGemini = "gemini-2.0-flash"
	}

	client := openai.NewClient(option.WithAPIKey(cfg.OpenAIAPIKey))

	mm := &ModelManager{
		openaiClient:       &client,
		logger:             logger,
		defaultOpenAIModel: defaultOpenAI,
		defaultGeminiModel: defaultGemini,
		enableFallback:     cfg.EnableFallback && cfg.GeminiAPIKey != "",
	}

	if cfg.GeminiAPIKey != "" {
		geminiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  cfg.GeminiAPIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini client: %w", err)
		}
		mm.geminiClient = geminiClient
		logger.Info("Gemini fallback enabled", zap.String("model", defaultGemini))
	} else {
		logger.Info("Gemini fallback disabled (no API key)")
	}

	mm.circuitBreaker = util.NewCircuitBreaker(
		constants.CircuitBreakerConfig.FailureThreshold,
		constants.CircuitBreakerConfig.ResetTimeout,
		constants.CircuitBreakerConfig.HealthCheckInterval,
		mm.healthCheckPing,
		logger,
	)

	return mm, nil
}

// GenerateJSON sends a multimodal message, strips any code fences from
// the reply, and unmarshals it into dest.
func (mm *ModelManager) GenerateJSON(ctx context.Context, parts []VisionPart, dest any, opts *GenerateOptions) (*GenerateMetadata, error) {
	if opts == nil {
		opts = &GenerateOptions{}
	}
	opts.JSONMode = true

	metadata, text, err := mm.generate(ctx, parts, opts)
	if err != nil {
		return nil, err
	}

	cleaned := StripJSONFences(text)
	if cleaned == "" {
		return nil, fmt.Errorf("%s API returned empty response", metadata.Provider)
	}

	if err := json.Unmarshal([]byte(cleaned), dest); err != nil {
		previewLen := util.Min(len(cleaned), 200)
		mm.logger.Error("Failed to unmarshal JSON response",
			zap.String("provider", metadata.Provider),
			zap.Error(err),
			zap.String("response_preview", cleaned[:previewLen]),
		)
		return nil, fmt.Errorf("invalid JSON from %s: %w", metadata.Provider, err)
	}

	return metadata, nil
}

// GenerateText sends a multimodal message and returns the raw reply.
func (mm *ModelManager) GenerateText(ctx context.Context, parts []VisionPart, opts *GenerateOptions) (string, *GenerateMetadata, error) {
	if opts == nil {
		opts = &GenerateOptions{}
	}
	metadata, text, err := mm.generate(ctx, parts, opts)
	if err != nil {
		return "", nil, err
	}
	return text, metadata, nil
}

func (mm *ModelManager) generate(ctx context.Context, parts []VisionPart, opts *GenerateOptions) (*GenerateMetadata, string, error) {
	if !mm.circuitBreaker.CanExecute() {
		status := mm.circuitBreaker.GetStatus()
		nextRetry := "unknown"
		if status.NextRetryTime != nil {
			nextRetry = status.NextRetryTime.Format("15:04:05")
		}

		mm.logger.Error("AI service unavailable (Circuit OPEN)",
			zap.String("state", status.State.String()),
			zap.Int("failure_count", status.FailureCount),
			zap.String("next_retry", nextRetry),
		)
		return nil, "", pkgerrors.NewProviderError(
			fmt.Sprintf("AI providers unavailable, retrying at %s", nextRetry), "all", "generate", nil)
	}

	text, openaiErr := mm.generateWithOpenAI(ctx, parts, opts)
	if openaiErr == nil {
		mm.circuitBreaker.RecordSuccess()
		return &GenerateMetadata{Provider: "OpenAI", Model: mm.getOpenAIModel(opts)}, text, nil
	}

	if mm.enableFallback && mm.geminiClient != nil {
		geminiText, geminiErr := mm.generateWithGemini(ctx, parts, opts)
		if geminiErr == nil {
			mm.circuitBreaker.RecordSuccess()
			return &GenerateMetadata{Provider: "Gemini", Model: mm.getGeminiModel(opts), UsedFallback: true}, geminiText, nil
		}
		mm.recordFailure(openaiErr, geminiErr)
		return nil, "", pkgerrors.NewProviderError("both providers failed", "all", "generate", geminiErr)
	}

	mm.recordFailure(openaiErr, nil)
	return nil, "", openaiErr
}

func (mm *ModelManager) recordFailure(errs ...error) {
	serviceFailure := false
	rateLimited := false
	for _, err := range errs {
		if mm.isServiceFailure(err) {
			serviceFailure = true
		}
		if mm.isRateLimitError(err) {
			rateLimited = true
		}
	}
	if !serviceFailure {
		return
	}

	timeout := constants.CircuitBreakerConfig.ResetTimeout
	if rateLimited {
		timeout = constants.CircuitBreakerConfig.RateLimitTimeout
	}
	mm.circuitBreaker.RecordFailure(timeout)
}

func (mm *ModelManager) getOpenAIModel(opts *GenerateOptions) string {
	if opts != nil && opts.Model != "" {
		return opts.Model
	}
	return mm.defaultOpenAIModel
}

func (mm *ModelManager) getGeminiModel(opts *GenerateOptions) string {
	if opts != nil && opts.Model != "" {
		return opts.Model
	}
	return mm.defaultGeminiModel
}

// buildOpenAIMessages folds vision parts into a single multi-part user
// message. Images travel as low-detail data URLs. JSON mode prepends a
// system message pinning the output format.
func buildOpenAIMessages(parts []VisionPart, jsonMode bool) []openai.ChatCompletionMessageParamUnion {
	contentParts := make([]openai.ChatCompletionContentPartUnionParam, 0, len(parts))
	for _, part := range parts {
		if part.Text != "" {
			contentParts = append(contentParts, openai.TextContentPart(part.Text))
			continue
		}
		contentParts = append(contentParts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL:    fmt.Sprintf("data:%s;base64,%s", part.ImageMIME, part.ImageB64),
			Detail: "low",
		}))
	}

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.UserMessage(contentParts),
	}
	if jsonMode {
		messages = append([]openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage("You must respond with valid JSON only. Do not include any text outside the JSON object."),
		}, messages...)
	}
	return messages
}

func (mm *ModelManager) generateWithOpenAI(ctx context.Context, parts []VisionPart, opts *GenerateOptions) (string, error) {
	modelName := mm.getOpenAIModel(opts)

	mm.logger.Debug("Generating with OpenAI",
		zap.String("model", modelName),
		zap.Int("parts", len(parts)),
		zap.Bool("json_mode", opts.JSONMode),
	)

	var model openai.ChatModel
	switch modelName {
	case "gpt-4o":
		model = openai.ChatModelGPT4o
	case "gpt-4o-mini":
		model = openai.ChatModelGPT4oMini
	case "gpt-4.1":
		model = openai.ChatModelGPT4_1
	case "gpt-4.1-mini":
		model = openai.ChatModelGPT4_1Mini
	case "gpt-4-turbo":
		model = openai.ChatModelGPT4Turbo
	default:
		model = openai.ChatModelGPT4o
	}

	messages := buildOpenAIMessages(parts, opts.JSONMode)

	maxTokens := opts.MaxOutputTokens
	if maxTokens == 0 {
		maxTokens = constants.RatingConfig.MaxResponseTokens
	}

	params := openai.ChatCompletionNewParams{
		Model:               model,
		Messages:            messages,
		MaxCompletionTokens: openai.Int(int64(maxTokens)),
	}
	if opts.Temperature > 0 {
		params.Temperature = openai.Float(opts.Temperature)
	}

	resp, err := mm.openaiClient.Chat.Completions.New(ctx, params)
	if err != nil {
		mm.logger.Error("OpenAI generation failed", zap.Error(err))
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in OpenAI response")
	}

	text := resp.Choices[0].Message.Content

	mm.logger.Debug("OpenAI response received",
		zap.Int("length", len(text)),
		zap.Int64("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int64("completion_tokens", resp.Usage.CompletionTokens),
	)

	return text, nil
}

func (mm *ModelManager) generateWithGemini(ctx context.Context, parts []VisionPart, opts *GenerateOptions) (string, error) {
	if mm.geminiClient == nil {
		return "", fmt.Errorf("gemini client not initialized")
	}

	modelName := mm.getGeminiModel(opts)

	mm.logger.Info("Fallback: Generating with Gemini",
		zap.String("model", modelName),
		zap.Int("parts", len(parts)),
	)

	genParts := make([]*genai.Part, 0, len(parts))
	for _, part := range parts {
		if part.Text != "" {
			genParts = append(genParts, &genai.Part{Text: part.Text})
			continue
		}
		data, err := base64.StdEncoding.DecodeString(part.ImageB64)
		if err != nil {
			return "", fmt.Errorf("invalid image payload: %w", err)
		}
		genParts = append(genParts, &genai.Part{
			InlineData: &genai.Blob{MIMEType: part.ImageMIME, Data: data},
		})
	}

	maxTokens := int32(opts.MaxOutputTokens)
	if maxTokens == 0 {
		maxTokens = int32(constants.RatingConfig.MaxResponseTokens)
	}

	genConfig := &genai.GenerateContentConfig{
		MaxOutputTokens: maxTokens,
	}
	if opts.Temperature > 0 {
		temp := float32(opts.Temperature)
		genConfig.Temperature = &temp
	}
	if opts.JSONMode {
		genConfig.ResponseMIMEType = "application/json"
	}

	resp, err := mm.geminiClient.Models.GenerateContent(ctx, modelName, []*genai.Content{
		{Parts: genParts},
	}, genConfig)
	if err != nil {
		mm.logger.Error("Gemini generation failed", zap.Error(err))
		return "", err
	}

	text := extractTextFromGeminiResponse(resp)
	if text == "" {
		return "", fmt.Errorf("empty response from Gemini")
	}

	return text, nil
}

func (mm *ModelManager) healthCheckPing() bool {
	mm.logger.Info("Health Check: Testing AI services...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	openaiOK := mm.pingOpenAI(ctx)
	geminiOK := false
	if mm.enableFallback && mm.geminiClient != nil {
		geminiOK = mm.pingGemini(ctx)
	}

	isHealthy := openaiOK || geminiOK

	mm.logger.Info("Health Check: Result",
		zap.Bool("openai", openaiOK),
		zap.Bool("gemini", geminiOK),
		zap.Bool("healthy", isHealthy),
	)

	return isHealthy
}

func (mm *ModelManager) pingOpenAI(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, constants.ProviderConfig.PingTimeout)
	defer cancel()

	resp, err := mm.openaiClient.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModelGPT4oMini,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage("ping"),
		},
		MaxTokens:   openai.Int(10),
		Temperature: openai.Float(0),
	})
	if err != nil {
		mm.logger.Debug("OpenAI ping failed", zap.Error(err))
		return false
	}
	return len(resp.Choices) > 0
}

func (mm *ModelManager) pingGemini(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, constants.ProviderConfig.PingTimeout)
	defer cancel()

	temp := float32(0)
	config := &genai.GenerateContentConfig{
		Temperature:     &temp,
		MaxOutputTokens: 10,
	}

	resp, err := mm.geminiClient.Models.GenerateContent(ctx, mm.defaultGeminiModel, []*genai.Content{
		{Parts: []*genai.Part{{Text: "ping"}}},
	}, config)
	if err != nil {
		mm.logger.Debug("Gemini ping failed", zap.Error(err))
		return false
	}
	return extractTextFromGeminiResponse(resp) != ""
}

func (mm *ModelManager) isServiceFailure(err error) bool {
	if err == nil {
		return false
	}

	msg := err.Error()

	if strings.Contains(msg, "timeout") || strings.Contains(msg, "ETIMEDOUT") {
		return true
	}
	if mm.isRateLimitError(err) {
		return true
	}

	statusRegex := regexp.MustCompile(`\b(5\d{2})\b`)
	if statusRegex.MatchString(msg) {
		return true
	}

	geminiCodeRegex := regexp.MustCompile(`"code":(\d{3})`)
	if matches := geminiCodeRegex.FindStringSubmatch(msg); len(matches) > 1 {
		if code, err := strconv.Atoi(matches[1]); err == nil {
			return code >= 500 && code < 600
		}
	}

	return false
}

func (mm *ModelManager) isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "429") || strings.Contains(msg, "Rate limit") || strings.Contains(msg, "quota")
}

func (mm *ModelManager) GetCircuitStatus() util.CircuitBreakerStatus {
	return mm.circuitBreaker.GetStatus()
}

func (mm *ModelManager) ResetCircuit() {
	mm.circuitBreaker.Reset()
}

// StripJSONFences removes a surrounding markdown code fence, with or
// without the json language tag.
func StripJSONFences(text string) string {
	cleaned := strings.TrimSpace(text)
	if strings.HasPrefix(cleaned, "```json") {
		cleaned = strings.TrimSpace(strings.TrimPrefix(cleaned, "```json"))
	} else if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimSpace(strings.TrimPrefix(cleaned, "```"))
	}
	if strings.HasSuffix(cleaned, "```") {
		cleaned = strings.TrimSpace(strings.TrimSuffix(cleaned, "```"))
	}
	return cleaned
}

func extractTextFromGeminiResponse(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return ""
	}

	var texts []string
	for _, part := range candidate.Content.Parts {
		if part.Text != "" {
			texts = append(texts, part.Text)
		}
	}
	return strings.Join(texts, "")
}
