// Package reply turns dispatcher outcomes into LINE reply messages.
package reply

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"

	"github.com/garyellow/picfinder-linebot-go/internal/dataset"
	"github.com/garyellow/picfinder-linebot-go/internal/lineutil"
)

// User-facing texts.
const (
	ListHeader     = "請輸入圖片編號以查看圖片："
	NoMatchText    = "沒有這張圖片餒！"
	EpisodeFormat  = "集數資訊：%s"
	TruncateFormat = "⋯ 還有 %d 筆未顯示，請輸入更完整的關鍵字"
)

// DurationProvider reports audio playback length in milliseconds and never fails.
type DurationProvider interface {
	DurationMs(ctx context.Context, url string) int64
}

// Composer builds reply messages. It is stateless apart from its collaborators.
type Composer struct {
	durations   DurationProvider
	chunkLimit  int
	maxMessages int
}

// Option configures a Composer.
type Option func(*Composer)

// WithChunkLimit sets the rune bound of each list message.
func WithChunkLimit(n int) Option {
	return func(c *Composer) { c.chunkLimit = n }
}

// WithMaxMessages sets how many list messages one reply may carry.
func WithMaxMessages(n int) Option {
	return func(c *Composer) { c.maxMessages = n }
}

// NewComposer creates a composer using durations for audio messages.
func NewComposer(durations DurationProvider, opts ...Option) *Composer {
	c := &Composer{
		durations:   durations,
		chunkLimit:  lineutil.TextListChunkLimit,
		maxMessages: lineutil.MaxMessagesPerReply,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compose renders an outcome as an ordered message list.
func (c *Composer) Compose(ctx context.Context, o Outcome) []messaging_api.MessageInterface {
	switch o.Kind {
	case KindSingleRecord:
		return c.single(ctx, o.Record)
	case KindResultList:
		return c.list(o.Records)
	default:
		return []messaging_api.MessageInterface{lineutil.NewTextMessage(NoMatchText)}
	}
}

// single renders image, episode caption and optional audio, in that order.
// Rows without an image URL skip the image message.
func (c *Composer) single(ctx context.Context, r dataset.Record) []messaging_api.MessageInterface {
	msgs := make([]messaging_api.MessageInterface, 0, 3)
	if r.HasImage() {
		msgs = append(msgs, lineutil.NewImageMessage(r.ImageURL, r.ImageURL))
	}
	msgs = append(msgs, lineutil.NewTextMessage(fmt.Sprintf(EpisodeFormat, r.Episode)))
	if r.HasAudio() {
		msgs = append(msgs, lineutil.NewAudioMessage(r.AudioURL, c.durations.DurationMs(ctx, r.AudioURL)))
	}
	return msgs
}

// list renders "<id>. <keyword>" lines under the header, split into chunks of at
// most chunkLimit runes. Past maxMessages the tail is dropped and the last
// message ends with a truncation notice.
func (c *Composer) list(records []dataset.Record) []messaging_api.MessageInterface {
	chunks := []*chunk{{}}
	cur := chunks[0]
	cur.add(ListHeader)

	shown := 0
	for _, r := range records {
		line := lineutil.TruncateRunes(fmt.Sprintf("%s. %s", r.ID, r.Keyword), c.chunkLimit)
		if !cur.fits(line, c.chunkLimit) {
			if len(chunks) == c.maxMessages {
				break
			}
			cur = &chunk{}
			chunks = append(chunks, cur)
		}
		cur.add(line)
		shown++
	}

	if hidden := len(records) - shown; hidden > 0 {
		// Make room for the notice; each dropped line joins the hidden count.
		for {
			notice := fmt.Sprintf(TruncateFormat, len(records)-shown)
			if cur.fits(notice, c.chunkLimit) || !cur.canPop(cur == chunks[0]) {
				cur.add(notice)
				break
			}
			cur.pop()
			shown--
		}
	}

	msgs := make([]messaging_api.MessageInterface, 0, len(chunks))
	for _, ch := range chunks {
		msgs = append(msgs, lineutil.NewTextMessage(ch.String()))
	}
	return msgs
}

type chunk struct {
	lines []string
	runes int
}

func (ch *chunk) fits(line string, limit int) bool {
	n := utf8.RuneCountInString(line)
	if len(ch.lines) > 0 {
		n++ // newline separator
	}
	return ch.runes+n <= limit
}

func (ch *chunk) add(line string) {
	if len(ch.lines) > 0 {
		ch.runes++
	}
	ch.lines = append(ch.lines, line)
	ch.runes += utf8.RuneCountInString(line)
}

// canPop reports whether an item line is left to drop; the header of the first chunk stays.
func (ch *chunk) canPop(first bool) bool {
	if first {
		return len(ch.lines) > 1
	}
	return len(ch.lines) > 0
}

func (ch *chunk) pop() {
	last := ch.lines[len(ch.lines)-1]
	ch.lines = ch.lines[:len(ch.lines)-1]
	ch.runes -= utf8.RuneCountInString(last)
	if len(ch.lines) > 0 {
		ch.runes--
	}
}

func (ch *chunk) String() string {
	return strings.Join(ch.lines, "\n")
}
