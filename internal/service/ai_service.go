package service

import (
	"bufio"
	"bytes"
	"civics_quiz_backend/internal/config"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const assistantPrompt = "You are a study assistant for the U.S. naturalization civics test. " +
	"Answer clearly and briefly in plain English. " +
	"Only answer questions about U.S. history, government, civics and the naturalization process; " +
	"politely decline anything else. Do not include links."

type AIService struct {
	config config.AIConfig
	client *http.Client
}

func NewAIService(cfg config.AIConfig) *AIService {
	return &AIService{config: cfg, client: &http.Client{}}
}

type AIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatCompletionRequest struct {
	Model    string          `json:"model"`
	Messages []AIChatMessage `json:"messages"`
	Stream   bool            `json:"stream,omitempty"`
}

type ChatCompletionResponse struct {
	Choices []struct {
		Message AIChatMessage `json:"message"`
		Delta   AIChatMessage `json:"delta"` // 流式响应
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (s *AIService) buildMessages(prompt, background string, history []AIChatMessage) []AIChatMessage {
	system := assistantPrompt
	if background != "" {
		system += "\n\nUse the following study material when it is relevant:\n\n" + background
	}
	messages := make([]AIChatMessage, 0, len(history)+2)
	messages = append(messages, AIChatMessage{Role: "system", Content: system})
	messages = append(messages, history...)
	messages = append(messages, AIChatMessage{Role: "user", Content: prompt})
	return messages
}

// ChatStream 以 SSE 方式调用 chat completions，ctx 取消时终止读取
func (s *AIService) ChatStream(ctx context.Context, prompt, background string, history []AIChatMessage) (<-chan string, <-chan error) {
	out := make(chan string)
	errChan := make(chan error, 1)

	reqBody := ChatCompletionRequest{
		Model:    s.config.Model,
		Messages: s.buildMessages(prompt, background, history),
		Stream:   true,
	}

	go func() {
		defer close(out)
		defer close(errChan)

		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			errChan <- err
			return
		}
		resp, err := s.do(ctx, jsonData)
		if err != nil {
			errChan <- err
			return
		}
		defer resp.Body.Close()

		reader := bufio.NewReader(resp.Body)
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				if err != io.EOF {
					errChan <- err
				}
				return
			}

			line = strings.TrimSpace(line)
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			data := strings.TrimPrefix(line, "data: ")
			if data == "[DONE]" {
				return
			}

			var chunk ChatCompletionResponse
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				continue
			}
			if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
				continue
			}
			select {
			case out <- chunk.Choices[0].Delta.Content:
			case <-ctx.Done():
				errChan <- ctx.Err()
				return
			}
		}
	}()

	return out, errChan
}

// Chat 非流式调用，一次返回完整回答
func (s *AIService) Chat(ctx context.Context, prompt, background string, history []AIChatMessage) (string, error) {
	jsonData, err := json.Marshal(ChatCompletionRequest{
		Model:    s.config.Model,
		Messages: s.buildMessages(prompt, background, history),
	})
	if err != nil {
		return "", err
	}
	resp, err := s.do(ctx, jsonData)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var result ChatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	if result.Error != nil {
		return "", fmt.Errorf("AI API error: %s", result.Error.Message)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("AI returned no choices")
	}
	return result.Choices[0].Message.Content, nil
}

func (s *AIService) do(ctx context.Context, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(s.config.BaseURL, "/")+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.config.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("AI API error (status %d): %s", resp.StatusCode, string(msg))
	}
	return resp, nil
}
