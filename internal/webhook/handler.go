// Package webhook receives LINE webhook deliveries, hands each event to the
// bot processor and sends the resulting messages back with the reply token.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"

	"github.com/garyellow/picfinder-linebot-go/internal/bot"
	"github.com/garyellow/picfinder-linebot-go/internal/config"
	"github.com/garyellow/picfinder-linebot-go/internal/ctxutil"
	domerrors "github.com/garyellow/picfinder-linebot-go/internal/errors"
	"github.com/garyellow/picfinder-linebot-go/internal/lineutil"
	"github.com/garyellow/picfinder-linebot-go/internal/logger"
	"github.com/garyellow/picfinder-linebot-go/internal/metrics"
	"github.com/garyellow/picfinder-linebot-go/internal/ratelimit"
	"github.com/garyellow/picfinder-linebot-go/internal/sentry"
)

const (
	defaultMaxEventsPerWebhook = 100
	defaultMinReplyTokenLength = 10
)

// Processor turns webhook events into reply messages.
type Processor interface {
	ProcessMessage(ctx context.Context, event webhook.MessageEvent) ([]messaging_api.MessageInterface, error)
	ProcessFollow(event webhook.FollowEvent) ([]messaging_api.MessageInterface, error)
}

// Handler handles LINE webhook events
type Handler struct {
	channelSecret string
	replier       Replier
	processor     Processor
	limiter       *ratelimit.Limiter
	metrics       *metrics.Metrics
	logger        *logger.Logger
	wg            sync.WaitGroup

	maxEventsPerWebhook int
	minReplyTokenLength int
	loadingSeconds      int32
}

// HandlerConfig holds the required dependencies of a Handler.
type HandlerConfig struct {
	ChannelSecret string
	Replier       Replier
	Processor     Processor
	Metrics       *metrics.Metrics
	Logger        *logger.Logger
}

// NewHandler creates a new webhook handler.
func NewHandler(cfg HandlerConfig, opts ...HandlerOption) *Handler {
	h := &Handler{
		channelSecret:       cfg.ChannelSecret,
		replier:             cfg.Replier,
		processor:           cfg.Processor,
		metrics:             cfg.Metrics,
		logger:              cfg.Logger.WithModule("webhook"),
		maxEventsPerWebhook: defaultMaxEventsPerWebhook,
		minReplyTokenLength: defaultMinReplyTokenLength,
		loadingSeconds:      loadingSeconds(config.LoadingAnimation),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.limiter == nil {
		h.limiter = ratelimit.New("reply", 0, cfg.Metrics)
	}
	return h
}

// Handle is the Gin handler for the webhook endpoint
func (h *Handler) Handle(c *gin.Context) {
	cb, err := webhook.ParseRequest(h.channelSecret, c.Request)
	if err != nil {
		if errors.Is(err, domerrors.ErrInvalidSignature) {
			h.logger.Warn("Invalid webhook signature")
			h.metrics.RecordHTTPError("invalid_signature", "webhook")
			c.Status(http.StatusBadRequest)
		} else {
			h.logger.WithError(err).Error("Failed to parse webhook request")
			h.metrics.RecordHTTPError("parse_error", "webhook")
			c.Status(http.StatusInternalServerError)
		}
		return
	}

	// LINE only needs the acknowledgement; replies go out through the reply token.
	c.Status(http.StatusOK)

	start := time.Now()
	h.metrics.RecordWebhook("batch", "received", 0)

	if len(cb.Events) > h.maxEventsPerWebhook {
		h.logger.WithField("event_count", len(cb.Events)).
			WithField("limit", h.maxEventsPerWebhook).
			Warn("Too many events in webhook batch; truncating")
		cb.Events = cb.Events[:h.maxEventsPerWebhook]
	}

	events := make([]webhook.EventInterface, len(cb.Events))
	copy(events, cb.Events)

	// The request context ends with the response; keep only its tracing values.
	baseCtx := ctxutil.PreserveTracing(c.Request.Context())

	h.wg.Go(func() {
		for _, event := range events {
			h.safeProcessEvent(baseCtx, event, start)
		}
	})
}

// safeProcessEvent keeps a panicking event from taking down the batch.
func (h *Handler) safeProcessEvent(ctx context.Context, event webhook.EventInterface, webhookStart time.Time) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.WithField("panic", r).
				WithField("event_type", fmt.Sprintf("%T", event)).
				ErrorContext(ctx, "Panic in async event processing")
			sentry.RecoverWithContext(ctx, r, map[string]string{"module": "webhook"})
		}
	}()
	h.processEvent(ctx, event, webhookStart)
}

// processEvent handles a single webhook event asynchronously
func (h *Handler) processEvent(ctx context.Context, event webhook.EventInterface, webhookStart time.Time) {
	eventStart := time.Now()
	var messages []messaging_api.MessageInterface
	var eventType string
	var err error

	eventID, eventTimestamp, isRedelivery := extractEventMeta(event)
	log := h.logger
	if eventID != "" {
		ctx = ctxutil.WithEventID(ctx, eventID)
		log = log.WithField("event_id", eventID)
	}
	if requestID, ok := ctxutil.GetRequestID(ctx); ok {
		log = log.WithRequestID(requestID)
	}
	if isRedelivery != nil {
		log = log.WithField("is_redelivery", *isRedelivery)
	}
	if eventTimestamp > 0 {
		log = log.WithField("event_timestamp_ms", eventTimestamp)
	}

	if h.shouldShowLoading(event) {
		if loadErr := h.showLoadingAnimation(event); loadErr != nil {
			log.WithError(loadErr).Warn("Failed to show loading animation")
		}
	}

	switch e := event.(type) {
	case webhook.MessageEvent:
		eventType = "message"
		messages, err = h.processor.ProcessMessage(ctx, e)
	case webhook.FollowEvent:
		eventType = "follow"
		messages, err = h.processor.ProcessFollow(e)
	default:
		log.WithField("event_type", fmt.Sprintf("%T", e)).Debug("Unsupported event type")
		return
	}

	eventDurationMs := time.Since(eventStart).Milliseconds()
	status := "success"
	if err != nil {
		status = "error"
		log.WithError(err).WithField("event_type", eventType).Error("Failed to handle event")
		sentry.CaptureExceptionWithContext(ctx, err)
	}
	h.metrics.RecordWebhook(eventType, status, float64(eventDurationMs)/1000.0)

	if len(messages) > 0 && err == nil {
		h.reply(ctx, log, event, eventType, messages, eventStart)
	}

	log.WithField("event_type", eventType).
		WithField("message_count", len(messages)).
		WithField("event_duration_ms", eventDurationMs).
		WithField("batch_duration_ms", time.Since(webhookStart).Milliseconds()).
		InfoContext(ctx, "Event processed")
}

func (h *Handler) reply(ctx context.Context, log *logger.Logger, event webhook.EventInterface, eventType string, messages []messaging_api.MessageInterface, eventStart time.Time) {
	if len(messages) > lineutil.MaxMessagesPerReply {
		log.WithField("message_count", len(messages)).
			WithField("limit", lineutil.MaxMessagesPerReply).
			Warn("Message count exceeds limit; truncating")
		messages = messages[:lineutil.MaxMessagesPerReply]
	}

	replyToken := getReplyToken(event)
	if replyToken == "" {
		log.Debug("Empty reply token, skipping reply")
		return
	}
	if len(replyToken) < h.minReplyTokenLength {
		log.WithField("token_length", len(replyToken)).Debug("Invalid reply token format")
		return
	}

	waitCtx, cancel := context.WithTimeout(ctx, config.WebhookProcessing)
	defer cancel()
	if err := h.limiter.Wait(waitCtx); err != nil {
		log.WithError(err).Warn("Reply dropped while waiting for rate limiter")
		h.metrics.RecordWebhook(eventType, "reply_error", time.Since(eventStart).Seconds())
		return
	}

	if err := h.replier.Reply(replyToken, messages); err != nil {
		errMsg := err.Error()
		switch {
		case strings.Contains(errMsg, "Invalid reply token"):
			log.WithError(err).Debug("Reply token already used or invalid")
		case strings.Contains(errMsg, "rate limit"):
			log.WithError(err).Error("Rate limit exceeded")
		default:
			log.WithError(err).WithField("reply_token", replyToken[:8]+"...").Error("Failed to send reply")
		}
		h.metrics.RecordWebhook(eventType, "reply_error", time.Since(eventStart).Seconds())
	}
}

func extractEventMeta(event webhook.EventInterface) (string, int64, *bool) {
	switch e := event.(type) {
	case webhook.MessageEvent:
		return e.WebhookEventId, e.Timestamp, boolPtr(e.DeliveryContext)
	case webhook.FollowEvent:
		return e.WebhookEventId, e.Timestamp, boolPtr(e.DeliveryContext)
	default:
		return "", 0, nil
	}
}

func boolPtr(ctx *webhook.DeliveryContext) *bool {
	if ctx == nil {
		return nil
	}
	val := ctx.IsRedelivery
	return &val
}

// shouldShowLoading reports whether the event is a text message in a
// one-to-one chat. LINE only renders the indicator there.
func (h *Handler) shouldShowLoading(event webhook.EventInterface) bool {
	if h.loadingSeconds == 0 {
		return false
	}
	e, ok := event.(webhook.MessageEvent)
	if !ok {
		return false
	}
	if _, ok := e.Message.(webhook.TextMessageContent); !ok {
		return false
	}
	return bot.IsPersonalChat(e.Source)
}

func (h *Handler) showLoadingAnimation(event webhook.EventInterface) error {
	chatID := getChatID(event)
	if chatID == "" {
		return nil
	}
	if err := h.replier.ShowLoading(chatID, h.loadingSeconds); err != nil {
		return fmt.Errorf("failed to show loading animation: %w", err)
	}
	return nil
}

// getReplyToken extracts reply token from event
func getReplyToken(event webhook.EventInterface) string {
	switch e := event.(type) {
	case webhook.MessageEvent:
		return e.ReplyToken
	case webhook.FollowEvent:
		return e.ReplyToken
	default:
		return ""
	}
}

// getChatID extracts chat ID from event
func getChatID(event webhook.EventInterface) string {
	switch e := event.(type) {
	case webhook.MessageEvent:
		return bot.GetChatID(e.Source)
	case webhook.FollowEvent:
		return bot.GetChatID(e.Source)
	default:
		return ""
	}
}

// Shutdown waits for all async event processing to complete.
// It returns an error if the context is canceled before completion.
func (h *Handler) Shutdown(ctx context.Context) error {
	c := make(chan struct{})
	go func() {
		defer close(c)
		h.wg.Wait()
	}()

	select {
	case <-c:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
