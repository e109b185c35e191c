// Package agent 提供基于 DashScope OpenAI 兼容接口的 eino 聊天模型
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"resume-screening-go/internal/logger"
)

const (
	// OpenAI-compatible API endpoint for DashScope
	openAICompatibleQwenAPIURL = "https://dashscope.aliyuncs.com/compatible-mode/v1/chat/completions"
	defaultQwenModelName       = "qwen-turbo"
)

// --- OpenAI Compatible Structures ---

type openAIFunction struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Parameters  any    `json:"parameters"`
}

type openAITool struct {
	Type     string         `json:"type"` // Must be "function"
	Function openAIFunction `json:"function"`
}

type openAIRequestMessage struct {
	Role       string `json:"role"`
	Content    string `json:"content"`
	ToolCallID string `json:"tool_call_id,omitempty"`
}

type chatCompletionRequest struct {
	Model          string                 `json:"model"`
	Messages       []openAIRequestMessage `json:"messages"`
	Tools          []openAITool           `json:"tools,omitempty"`
	Temperature    *float32               `json:"temperature,omitempty"`
	MaxTokens      *int                   `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat        `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type openAIMessage struct {
	Role      string               `json:"role"`
	Content   *string              `json:"content"` // Content can be null if tool_calls are present
	ToolCalls []openAIToolCallData `json:"tool_calls,omitempty"`
}

type openAIToolCallData struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type chatCompletionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index        int           `json:"index"`
		Message      openAIMessage `json:"message"`
		FinishReason string        `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// QwenChatModel 实现了 model.ToolCallingChatModel，用于与阿里云通义千问模型交互
type QwenChatModel struct {
	apiKey     string
	modelName  string
	apiURL     string
	jsonMode   bool
	httpClient *http.Client
	tools      []openAITool
	log        zerolog.Logger
}

// QwenOption 配置选项
type QwenOption func(*QwenChatModel)

// WithHTTPClient 替换默认 HTTP 客户端
func WithHTTPClient(c *http.Client) QwenOption {
	return func(q *QwenChatModel) {
		if c != nil {
			q.httpClient = c
		}
	}
}

// WithJSONMode 要求模型输出 JSON 对象
func WithJSONMode(enabled bool) QwenOption {
	return func(q *QwenChatModel) {
		q.jsonMode = enabled
	}
}

// NewQwenChatModel 创建一个新的 QwenChatModel 实例
func NewQwenChatModel(apiKey, modelName, apiURL string, opts ...QwenOption) (*QwenChatModel, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("API 密钥不能为空")
	}
	if strings.TrimSpace(modelName) == "" {
		modelName = defaultQwenModelName
	}
	if strings.TrimSpace(apiURL) == "" {
		apiURL = openAICompatibleQwenAPIURL
	}

	q := &QwenChatModel{
		apiKey:     apiKey,
		modelName:  modelName,
		apiURL:     apiURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		log:        logger.Component("qwen"),
	}
	for _, opt := range opts {
		opt(q)
	}
	q.log.Info().Str("api_url", apiURL).Str("model", modelName).Msg("使用阿里云通义千问 LLM 客户端")
	return q, nil
}

// ModelName 当前使用的模型
func (q *QwenChatModel) ModelName() string {
	return q.modelName
}

// Generate 实现 model.BaseChatModel 接口
func (q *QwenChatModel) Generate(ctx context.Context, messages []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	common := model.GetCommonOptions(&model.Options{Model: &q.modelName}, opts...)

	payload := chatCompletionRequest{
		Model:       *common.Model,
		Messages:    toRequestMessages(messages),
		Tools:       q.tools,
		Temperature: common.Temperature,
		MaxTokens:   common.MaxTokens,
	}
	if q.jsonMode {
		payload.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("序列化请求体失败: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, q.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("创建 HTTP 请求失败: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+q.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	httpResp, err := q.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("发送 HTTP 请求失败: %w", err)
	}
	defer httpResp.Body.Close()

	respBytes, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应体失败: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API 请求失败，状态 %s: %s", httpResp.Status, truncate(string(respBytes), 300))
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(respBytes, &completion); err != nil {
		return nil, fmt.Errorf("反序列化 API 响应失败: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("从 API 收到空选项")
	}

	q.log.Debug().
		Str("model", payload.Model).
		Int("total_tokens", completion.Usage.TotalTokens).
		Dur("elapsed", time.Since(start)).
		Msg("通义千问调用完成")

	return fromOpenAIMessage(completion.Choices[0].Message), nil
}

// Stream 当前接口只支持非流式调用
func (q *QwenChatModel) Stream(ctx context.Context, messages []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, fmt.Errorf("QwenChatModel 的 Stream 方法未实现")
}

// WithTools 返回绑定了工具的新实例，原实例不受影响
func (q *QwenChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	clone := *q
	clone.tools = make([]openAITool, 0, len(tools))
	for _, info := range tools {
		if info == nil {
			continue
		}
		var params any = map[string]any{"type": "object", "properties": map[string]any{}}
		if info.ParamsOneOf != nil {
			js, err := info.ParamsOneOf.ToOpenAPIV3()
			if err != nil {
				return nil, fmt.Errorf("转换工具 %s 的参数失败: %w", info.Name, err)
			}
			if js != nil {
				params = js
			}
		}
		clone.tools = append(clone.tools, openAITool{
			Type: "function",
			Function: openAIFunction{
				Name:        info.Name,
				Description: info.Desc,
				Parameters:  params,
			},
		})
	}
	return &clone, nil
}

var _ model.ToolCallingChatModel = (*QwenChatModel)(nil)

func toRequestMessages(messages []*schema.Message) []openAIRequestMessage {
	out := make([]openAIRequestMessage, 0, len(messages))
	for _, m := range messages {
		if m == nil {
			continue
		}
		out = append(out, openAIRequestMessage{
			Role:       string(m.Role),
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
		})
	}
	return out
}

func fromOpenAIMessage(m openAIMessage) *schema.Message {
	msg := &schema.Message{Role: schema.RoleType(m.Role)}
	if m.Content != nil {
		msg.Content = *m.Content
	}
	if msg.Role == "" {
		msg.Role = schema.Assistant
	}
	for _, tc := range m.ToolCalls {
		msg.ToolCalls = append(msg.ToolCalls, schema.ToolCall{
			ID: tc.ID,
			Function: schema.FunctionCall{
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			},
		})
	}
	return msg
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
