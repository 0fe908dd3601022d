package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"promptbot/internal/entities"
	"promptbot/internal/interfaces"
	"promptbot/internal/metrics"
	"promptbot/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	ChannelAPI     = "api"
	ChannelWebhook = "webhook"
)

// Run outcomes, also used as metric labels.
const (
	OutcomeSuccess       = "success"
	OutcomeEmpty         = "empty"
	OutcomeProviderError = "provider_error"
	OutcomeDuplicate     = "duplicate"
	OutcomeUnauthorized  = "unauthorized"
	OutcomeNoConfig      = "config_not_found"
	OutcomeInvalid       = "invalid"
	OutcomeFailed        = "failed"
)

// Authorizer resolves the caller of a run.
type Authorizer interface {
	Resolve(ctx context.Context, cred Credentials) (*entities.User, error)
}

// Sequencer serializes work sharing a key. The returned func releases the key.
type Sequencer interface {
	Acquire(key string) func()
}

// PipelineOptions are the tunables of a MessagePipeline.
type PipelineOptions struct {
	HistoryLimit      int
	DefaultPromptID   string
	Language          string
	MaxTokens         int
	CompletionTimeout time.Duration
}

// PipelineRequest is one inbound message to process.
type PipelineRequest struct {
	Message  entities.IncomingMessage
	PromptID string // empty means the default prompt
	Channel  string
	// ConversationID defaults to "<channel>:<sender>".
	ConversationID string
	Credentials    Credentials
	// Deliver pushes the reply back through the channel's DeliveryClient.
	Deliver bool
}

// PipelineResult is the structured outcome of a run.
type PipelineResult struct {
	Reply     entities.Reply
	Outcome   string
	UserID    int
	Delivered bool
}

// MessagePipeline turns one inbound message into one persisted, possibly delivered reply.
type MessagePipeline struct {
	authorizer Authorizer
	configs    interfaces.ConfigStore
	history    interfaces.HistoryStore
	completion interfaces.CompletionClient
	opts       PipelineOptions

	channelsMu sync.RWMutex
	channels   map[string]interfaces.DeliveryClient

	// Optional collaborators; nil disables them.
	Ledger    interfaces.MessageLedger
	Usage     interfaces.UsageRecorder
	Sequencer Sequencer
	Metrics   *metrics.Metrics
}

func NewMessagePipeline(authorizer Authorizer, configs interfaces.ConfigStore, history interfaces.HistoryStore, completion interfaces.CompletionClient, opts PipelineOptions) *MessagePipeline {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 20
	}
	if opts.Language == "" {
		opts.Language = "it"
	}
	if opts.CompletionTimeout <= 0 {
		opts.CompletionTimeout = 30 * time.Second
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 1024
	}
	return &MessagePipeline{
		authorizer: authorizer,
		configs:    configs,
		history:    history,
		completion: completion,
		channels:   make(map[string]interfaces.DeliveryClient),
		opts:       opts,
	}
}

// RegisterChannel sets the DeliveryClient used for replies on channel.
func (p *MessagePipeline) RegisterChannel(channel string, client interfaces.DeliveryClient) {
	p.channelsMu.Lock()
	defer p.channelsMu.Unlock()
	p.channels[channel] = client
}

// Channel returns the DeliveryClient registered for channel, or nil.
func (p *MessagePipeline) Channel(channel string) interfaces.DeliveryClient {
	p.channelsMu.RLock()
	defer p.channelsMu.RUnlock()
	return p.channels[channel]
}

// EmptyResponseText is shown in place of a reply the provider failed to produce.
func (p *MessagePipeline) EmptyResponseText() string {
	return "Empty response from " + p.completion.Name()
}

// Run processes req. Authorization, validation and configuration failures abort before the
// provider is called and are returned as errors. Provider failures are not errors: they
// produce a result whose Reply carries an error description. A failed transcript append
// returns ErrPersistFailed together with the reply that was produced, and releases the
// message id so a redelivery is processed again.
func (p *MessagePipeline) Run(ctx context.Context, req PipelineRequest) (PipelineResult, error) {
	channel := req.Channel
	if channel == "" {
		channel = ChannelWebhook
	}
	logger := log.With().
		Str("channel", channel).
		Str("message_id", req.Message.MessageID).
		Logger()

	text := strings.TrimSpace(req.Message.Text)
	if req.Message.From == "" || text == "" {
		p.Metrics.RecordRun(channel, OutcomeInvalid)
		return PipelineResult{Outcome: OutcomeInvalid}, fmt.Errorf("%w: sender and text are required", ErrValidation)
	}

	user, err := p.authorizer.Resolve(ctx, req.Credentials)
	if err != nil {
		logger.Warn().Err(err).Msg("caller not authorized")
		if errors.Is(err, ErrUnauthorized) {
			p.Metrics.RecordRun(channel, OutcomeUnauthorized)
			return PipelineResult{Outcome: OutcomeUnauthorized}, err
		}
		p.Metrics.RecordRun(channel, OutcomeFailed)
		return PipelineResult{Outcome: OutcomeFailed}, err
	}
	logger = logger.With().Int("user_id", user.ID).Logger()

	promptID := req.PromptID
	if promptID == "" {
		promptID = p.opts.DefaultPromptID
	}
	cfg, err := p.configs.GetByID(ctx, promptID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			logger.Warn().Str("prompt_id", promptID).Msg("prompt configuration not found")
			p.Metrics.RecordRun(channel, OutcomeNoConfig)
			return PipelineResult{Outcome: OutcomeNoConfig, UserID: user.ID}, fmt.Errorf("%w: %s", ErrConfigNotFound, promptID)
		}
		logger.Error().Err(err).Str("prompt_id", promptID).Msg("failed to load prompt configuration")
		p.Metrics.RecordRun(channel, OutcomeFailed)
		return PipelineResult{Outcome: OutcomeFailed, UserID: user.ID}, fmt.Errorf("load prompt configuration: %w", err)
	}

	claimed := false
	if p.Ledger != nil && req.Message.MessageID != "" {
		first, err := p.Ledger.Claim(ctx, req.Message.MessageID, channel)
		if err != nil {
			logger.Error().Err(err).Msg("failed to record message id")
			p.Metrics.RecordRun(channel, OutcomeFailed)
			return PipelineResult{Outcome: OutcomeFailed, UserID: user.ID}, err
		}
		if !first {
			logger.Info().Msg("duplicate message ignored")
			p.Metrics.RecordRun(channel, OutcomeDuplicate)
			return PipelineResult{
				Reply:   entities.Reply{Error: "duplicate message"},
				Outcome: OutcomeDuplicate,
				UserID:  user.ID,
			}, nil
		}
		claimed = true
	}
	p.recordUsage(ctx, logger, user.ID, false)

	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = channel + ":" + req.Message.From
	}
	logger = logger.With().Str("conversation_id", conversationID).Str("prompt_id", cfg.ID).Logger()

	if p.Sequencer != nil {
		release := p.Sequencer.Acquire(conversationID)
		defer release()
	}

	history, err := p.history.Get(ctx, conversationID, p.opts.HistoryLimit)
	if err != nil {
		// Reads fail open: the reply is produced without context.
		logger.Warn().Err(err).Msg("failed to load history, continuing without it")
		history = nil
	}

	messages := BuildPrompt(p.opts.Language, cfg, history, text)
	completion := p.complete(ctx, logger, entities.CompletionRequest{
		Model:       cfg.Model,
		Messages:    messages,
		Temperature: cfg.Temperature,
		MaxTokens:   p.opts.MaxTokens,
	})

	result := PipelineResult{UserID: user.ID}
	var assistant *entities.ConversationEntry

	switch completion.Kind {
	case entities.CompletionSuccess:
		parsed, perr := ParseAssistantReply(completion.Text)
		switch {
		case perr != nil:
			logger.Warn().Err(perr).Msg("assistant reply rejected")
			result.Outcome = OutcomeProviderError
			result.Reply = entities.Reply{Response: p.EmptyResponseText(), Error: perr.Error()}
		case parsed.Content == "":
			result.Outcome = OutcomeEmpty
			result.Reply = entities.Reply{Response: p.EmptyResponseText(), Error: "empty assistant reply"}
		default:
			assistant = &entities.ConversationEntry{Role: entities.RoleAssistant, Content: parsed.Content}
			result.Outcome = OutcomeSuccess
			result.Reply = entities.Reply{
				Response: parsed.Content,
				Text: &entities.ReplyText{
					ConversationID: conversationID,
					Target:         parsed.Target,
					TriggerAction:  parsed.TriggerAction,
					Response:       *assistant,
				},
			}
		}
	case entities.CompletionEmpty:
		result.Outcome = OutcomeEmpty
		result.Reply = entities.Reply{Response: p.EmptyResponseText(), Error: "no choices returned"}
	case entities.CompletionProviderError:
		result.Outcome = OutcomeProviderError
		result.Reply = entities.Reply{Response: p.EmptyResponseText(), Error: completion.Error}
	default:
		result.Outcome = OutcomeProviderError
		result.Reply = entities.Reply{Response: p.EmptyResponseText(), Error: "unknown completion outcome"}
	}

	entries := []entities.ConversationEntry{{Role: entities.RoleUser, Content: text}}
	if assistant != nil {
		entries = append(entries, *assistant)
	}
	if err := p.history.Append(ctx, conversationID, user.ID, entries); err != nil {
		logger.Error().Err(err).Msg("failed to append history")
		if claimed {
			// A redelivery of this message must run again.
			if rerr := p.Ledger.Release(context.WithoutCancel(ctx), req.Message.MessageID, channel); rerr != nil {
				logger.Error().Err(rerr).Msg("failed to release message id")
			}
		}
		p.Metrics.RecordRun(channel, OutcomeFailed)
		result.Reply.Error = ErrPersistFailed.Error()
		return result, fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}

	if assistant != nil {
		if req.Deliver {
			result.Delivered = p.deliver(ctx, logger, channel, entities.OutgoingMessage{
				To:            req.Message.From,
				Text:          assistant.Content,
				CorrelationID: correlationID(req.Message.MessageID),
			})
			if !result.Delivered {
				result.Reply.Error = "delivery failed"
			}
		}
		if !req.Deliver || result.Delivered {
			p.recordUsage(ctx, logger, user.ID, true)
		}
	}

	logger.Info().Str("outcome", result.Outcome).Int("history", len(history)).Msg("message processed")
	p.Metrics.RecordRun(channel, result.Outcome)
	return result, nil
}

// complete calls the provider under the completion timeout. Transport failures are
// folded into a provider-error Completion.
func (p *MessagePipeline) complete(ctx context.Context, logger zerolog.Logger, req entities.CompletionRequest) entities.Completion {
	cctx, cancel := context.WithTimeout(ctx, p.opts.CompletionTimeout)
	defer cancel()

	start := time.Now()
	completion, err := p.completion.Complete(cctx, req)
	if err != nil {
		logger.Error().Err(err).Str("provider", p.completion.Name()).Msg("completion call failed")
		completion = entities.Completion{Kind: entities.CompletionProviderError, Error: err.Error()}
	} else if completion.Kind != entities.CompletionSuccess {
		logger.Warn().
			Str("provider", p.completion.Name()).
			Str("kind", completion.Kind.String()).
			Str("error", completion.Error).
			Msg("completion returned no reply")
	}
	p.Metrics.RecordCompletion(p.completion.Name(), completion.Kind.String(), time.Since(start))
	return completion
}

func (p *MessagePipeline) deliver(ctx context.Context, logger zerolog.Logger, channel string, msg entities.OutgoingMessage) bool {
	client := p.Channel(channel)
	if client == nil {
		logger.Error().Msg("no delivery client registered for channel")
		p.Metrics.RecordDelivery(channel, false)
		return false
	}
	if err := client.Send(ctx, msg); err != nil {
		logger.Error().Err(err).Str("correlation_id", msg.CorrelationID).Msg("delivery failed")
		p.Metrics.RecordDelivery(channel, false)
		return false
	}
	p.Metrics.RecordDelivery(channel, true)
	return true
}

func (p *MessagePipeline) recordUsage(ctx context.Context, logger zerolog.Logger, userID int, sent bool) {
	if p.Usage == nil {
		return
	}
	var err error
	if sent {
		err = p.Usage.IncrementSent(ctx, userID)
	} else {
		err = p.Usage.IncrementReceived(ctx, userID)
	}
	if err != nil {
		logger.Warn().Err(err).Bool("sent", sent).Msg("failed to record usage")
	}
}

func correlationID(messageID string) string {
	if messageID != "" {
		return messageID
	}
	return uuid.NewString()
}
