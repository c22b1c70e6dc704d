// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package advisor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

const (
	defaultTimeout   = 120 * time.Second
	defaultMaxTokens = 2000
	maxRetryAttempts = 3
	baseRetryDelay   = 1 * time.Second
)

// BedrockConfig configures the Bedrock model.
type BedrockConfig struct {
	ModelID   string        // Bedrock model ID (required)
	Region    string        // AWS region (required)
	Profile   string        // AWS credential profile (optional, uses default chain if empty)
	Timeout   time.Duration // Request timeout (default 120s)
	MaxTokens int           // Max tokens for the response (default 2000)
}

// BedrockAPI abstracts the Bedrock ConverseStream call.
type BedrockAPI interface {
	ConverseStream(ctx context.Context, params *bedrockruntime.ConverseStreamInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseStreamOutput, error)
}

// EventStream abstracts the ConverseStream event stream.
type EventStream interface {
	Events() <-chan brtypes.ConverseStreamOutput
	Close() error
	Err() error
}

// streamOpener starts a ConverseStream call and returns its events.
type streamOpener func(ctx context.Context, input *bedrockruntime.ConverseStreamInput) (EventStream, error)

// TokenUsage tracks token consumption.
type TokenUsage struct {
	InputTokens  int
	OutputTokens int
}

// Total returns the sum of input and output tokens.
func (u TokenUsage) Total() int {
	return u.InputTokens + u.OutputTokens
}

// Bedrock is a Model backed by AWS Bedrock ConverseStream.
type Bedrock struct {
	open       streamOpener
	modelID    string
	timeout    time.Duration
	maxTokens  int
	retryDelay time.Duration

	mu    sync.Mutex
	usage TokenUsage // Cumulative usage across calls
}

// NewBedrock creates a Bedrock model using the standard AWS credential
// chain.
func NewBedrock(ctx context.Context, cfg BedrockConfig) (*Bedrock, error) {
	if cfg.ModelID == "" {
		return nil, fmt.Errorf("%w: model ID is required", ErrAdvisorFailure)
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("%w: region is required", ErrAdvisorFailure)
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: loading AWS config: %v", ErrAdvisorFailure, err)
	}
	return NewBedrockWithAPI(bedrockruntime.NewFromConfig(awsCfg), cfg), nil
}

// NewBedrockWithAPI creates a model over a pre-configured API client.
func NewBedrockWithAPI(api BedrockAPI, cfg BedrockConfig) *Bedrock {
	open := func(ctx context.Context, input *bedrockruntime.ConverseStreamInput) (EventStream, error) {
		out, err := api.ConverseStream(ctx, input)
		if err != nil {
			return nil, err
		}
		return out.GetStream(), nil
	}
	return newBedrock(open, cfg)
}

func newBedrock(open streamOpener, cfg BedrockConfig) *Bedrock {
	b := &Bedrock{
		open:       open,
		modelID:    cfg.ModelID,
		timeout:    cfg.Timeout,
		maxTokens:  cfg.MaxTokens,
		retryDelay: baseRetryDelay,
	}
	if b.timeout == 0 {
		b.timeout = defaultTimeout
	}
	if b.maxTokens == 0 {
		b.maxTokens = defaultMaxTokens
	}
	return b
}

// Usage returns the total token usage across all calls.
func (b *Bedrock) Usage() TokenUsage {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.usage
}

// Generate implements Model. Throttled calls are retried with exponential
// backoff.
func (b *Bedrock) Generate(ctx context.Context, prompt string) (string, error) {
	messages := []brtypes.Message{{
		Role:    brtypes.ConversationRoleUser,
		Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: prompt}},
	}}

	var lastErr error
	for attempt := 0; attempt <= maxRetryAttempts; attempt++ {
		if attempt > 0 {
			delay := b.retryDelay * time.Duration(math.Pow(2, float64(attempt-1)))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", fmt.Errorf("%w: context cancelled during retry: %v", ErrAdvisorFailure, ctx.Err())
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, b.timeout)
		input := &bedrockruntime.ConverseStreamInput{
			ModelId:  aws.String(b.modelID),
			Messages: messages,
			InferenceConfig: &brtypes.InferenceConfiguration{
				MaxTokens:   aws.Int32(int32(b.maxTokens)),
				Temperature: aws.Float32(0.3),
			},
		}

		stream, err := b.open(callCtx, input)
		if err != nil {
			cancel()
			var throttle *brtypes.ThrottlingException
			if errors.As(err, &throttle) {
				lastErr = err
				continue
			}
			return "", b.classifyError(err)
		}

		text, usage, err := consumeStream(callCtx, stream)
		cancel()
		if err != nil {
			return "", b.classifyError(err)
		}

		b.mu.Lock()
		b.usage.InputTokens += usage.InputTokens
		b.usage.OutputTokens += usage.OutputTokens
		b.mu.Unlock()

		if strings.TrimSpace(text) == "" {
			return "", fmt.Errorf("%w: empty response", ErrAdvisorFailure)
		}
		return text, nil
	}
	return "", fmt.Errorf("%w: rate limited after %d retries: %v", ErrAdvisorFailure, maxRetryAttempts, lastErr)
}

// classifyError wraps Bedrock errors into ErrAdvisorFailure.
func (b *Bedrock) classifyError(err error) error {
	var accessDenied *brtypes.AccessDeniedException
	if errors.As(err, &accessDenied) {
		return fmt.Errorf("%w: credential or permission issue: %v", ErrAdvisorFailure, err)
	}
	var notFound *brtypes.ResourceNotFoundException
	if errors.As(err, &notFound) {
		return fmt.Errorf("%w: model not found: %s", ErrAdvisorFailure, b.modelID)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: request timed out after %s", ErrAdvisorFailure, b.timeout)
	}
	return fmt.Errorf("%w: %v", ErrAdvisorFailure, err)
}

// consumeStream accumulates the text deltas and usage metadata of a
// stream. A cancelled context returns what arrived so far with its error.
func consumeStream(ctx context.Context, stream EventStream) (string, TokenUsage, error) {
	defer stream.Close()

	var text strings.Builder
	var usage TokenUsage
	events := stream.Events()
	for {
		select {
		case <-ctx.Done():
			return text.String(), usage, ctx.Err()
		case event, ok := <-events:
			if !ok {
				return text.String(), usage, stream.Err()
			}
			switch v := event.(type) {
			case *brtypes.ConverseStreamOutputMemberContentBlockDelta:
				if delta, ok := v.Value.Delta.(*brtypes.ContentBlockDeltaMemberText); ok {
					text.WriteString(delta.Value)
				}
			case *brtypes.ConverseStreamOutputMemberMetadata:
				if u := v.Value.Usage; u != nil {
					if u.InputTokens != nil {
						usage.InputTokens = int(*u.InputTokens)
					}
					if u.OutputTokens != nil {
						usage.OutputTokens = int(*u.OutputTokens)
					}
				}
			}
		}
	}
}
