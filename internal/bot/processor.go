// Package bot routes inbound LINE events through search and numeric
// disambiguation and returns the reply messages.
package bot

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"

	"github.com/garyellow/picfinder-linebot-go/internal/config"
	"github.com/garyellow/picfinder-linebot-go/internal/ctxutil"
	"github.com/garyellow/picfinder-linebot-go/internal/dataset"
	"github.com/garyellow/picfinder-linebot-go/internal/lineutil"
	"github.com/garyellow/picfinder-linebot-go/internal/logger"
	"github.com/garyellow/picfinder-linebot-go/internal/metrics"
	"github.com/garyellow/picfinder-linebot-go/internal/reply"
	"github.com/garyellow/picfinder-linebot-go/internal/search"
	"github.com/garyellow/picfinder-linebot-go/internal/session"
	"github.com/garyellow/picfinder-linebot-go/internal/stringutil"
)

// SnapshotSource provides the current dataset. *dataset.Cache satisfies it.
type SnapshotSource interface {
	Snapshot(ctx context.Context) (*dataset.Snapshot, error)
}

// Processor handles the core logic of processing LINE events.
// A numeric text resolves against the session's last result list; any other
// text runs a fresh search and replaces that list.
type Processor struct {
	datasets SnapshotSource
	engine   *search.Engine
	sessions *session.Store
	composer *reply.Composer
	logger   *logger.Logger
	metrics  *metrics.Metrics

	webhookTimeout time.Duration
}

// ProcessorConfig holds configuration for creating a new Processor.
type ProcessorConfig struct {
	Datasets       SnapshotSource
	Engine         *search.Engine
	Sessions       *session.Store
	Composer       *reply.Composer
	Logger         *logger.Logger
	Metrics        *metrics.Metrics
	WebhookTimeout time.Duration
}

// NewProcessor creates a new event processor.
func NewProcessor(cfg ProcessorConfig) *Processor {
	timeout := cfg.WebhookTimeout
	if timeout <= 0 {
		timeout = config.WebhookProcessing
	}
	return &Processor{
		datasets:       cfg.Datasets,
		engine:         cfg.Engine,
		sessions:       cfg.Sessions,
		composer:       cfg.Composer,
		logger:         cfg.Logger,
		metrics:        cfg.Metrics,
		webhookTimeout: timeout,
	}
}

// ProcessMessage handles a message event. Non-text messages are ignored.
func (p *Processor) ProcessMessage(ctx context.Context, event webhook.MessageEvent) ([]messaging_api.MessageInterface, error) {
	sessionID := SessionID(event.Source)
	ctx = ctxutil.WithChatID(ctx, GetChatID(event.Source))
	ctx = ctxutil.WithSessionID(ctx, sessionID)

	if event.Message.GetType() != "text" {
		return nil, nil
	}
	textMsg, ok := event.Message.(webhook.TextMessageContent)
	if !ok {
		return nil, errors.New("failed to cast message to text")
	}
	if sessionID == "" {
		p.logger.WarnContext(ctx, "Text message without a usable source; ignoring")
		return nil, nil
	}

	processCtx, cancel := context.WithTimeout(ctxutil.PreserveTracing(ctx), p.webhookTimeout)
	defer cancel()

	return p.HandleText(processCtx, sessionID, textMsg.Text), nil
}

// HandleText answers one inbound text for a session.
func (p *Processor) HandleText(ctx context.Context, sessionID, text string) []messaging_api.MessageInterface {
	trimmed := strings.TrimSpace(text)

	var outcome reply.Outcome
	if stringutil.IsNumeric(trimmed) {
		outcome = p.resolve(ctx, sessionID, trimmed)
	} else {
		outcome = p.search(ctx, sessionID, text)
	}

	p.logger.WithField("outcome", outcome.Kind.String()).DebugContext(ctx, "Text handled")
	return p.composer.Compose(ctx, outcome)
}

// resolve never touches the session's stored list.
func (p *Processor) resolve(ctx context.Context, sessionID, token string) reply.Outcome {
	record, err := p.sessions.Resolve(sessionID, token)
	if err != nil {
		p.logger.WithError(err).DebugContext(ctx, "Numeric reply did not resolve")
		return reply.NoMatch()
	}
	return reply.SingleRecord(record)
}

// search always overwrites the session's list, with an empty one on failure.
func (p *Processor) search(ctx context.Context, sessionID, text string) reply.Outcome {
	snap, err := p.datasets.Snapshot(ctx)
	if err != nil {
		p.logger.WithError(err).WarnContext(ctx, "Dataset unavailable; answering no match")
		if p.metrics != nil {
			p.metrics.RecordHTTPError("dataset_unavailable", "bot")
		}
		p.sessions.RecordResults(sessionID, nil)
		return reply.NoMatch()
	}

	results := p.engine.Search(text, snap.Records)
	p.sessions.RecordResults(sessionID, results)
	return reply.FromResults(results)
}

// ProcessFollow handles a follow event with a short usage guide.
func (p *Processor) ProcessFollow(event webhook.FollowEvent) ([]messaging_api.MessageInterface, error) {
	p.logger.WithField("session_id", SessionID(event.Source)).Info("New user followed the bot")

	messages := []messaging_api.MessageInterface{
		lineutil.NewTextMessage("哈囉～輸入關鍵字就能幫你找圖片 🔍"),
		lineutil.NewTextMessage("使用方式\n" +
			"• 直接輸入關鍵字，例：貓笑\n" +
			"• 以「/」開頭搜尋藝人，例：/阿貓\n" +
			"• 輸入「🎲」或「隨機」抽一張\n" +
			"• 結果有多筆時，回覆編號查看圖片"),
	}
	lineutil.AddQuickReplyToMessages(messages, lineutil.QuickReplyItem{
		Action: lineutil.NewMessageAction("🎲 隨機一張", search.DiceTrigger),
	})
	return messages, nil
}
