package notify

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// MaxCaptionLength is the longest caption an image message can carry.
const MaxCaptionLength = 1024

// Result tallies a fan-out. Failed recipients never abort the rest.
type Result struct {
	Sent   int
	Failed int
}

// Message is either plain text or an image with an optional caption.
type Message struct {
	Text     string
	ImageRef string
}

func (m Message) IsImage() bool {
	return m.ImageRef != ""
}

// Broadcaster fans a message out to many users through a Sender, throttled
// by a token bucket. Each send gets its own timeout.
type Broadcaster struct {
	sender  Sender
	limiter *rate.Limiter
	timeout time.Duration
	log     *zap.Logger
}

// NewBroadcaster allows perSecond sends per second; perSecond <= 0 disables
// throttling.
func NewBroadcaster(sender Sender, perSecond float64, timeout time.Duration, log *zap.Logger) *Broadcaster {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Broadcaster{
		sender:  sender,
		limiter: rate.NewLimiter(limit, 1),
		timeout: timeout,
		log:     log,
	}
}

func (b *Broadcaster) Broadcast(ctx context.Context, recipients []int64, msg Message) Result {
	var res Result
	for i, uid := range recipients {
		if err := b.limiter.Wait(ctx); err != nil {
			b.log.Warn("broadcast interrupted", zap.Error(err), zap.Int("remaining", len(recipients)-i))
			res.Failed += len(recipients) - i
			return res
		}

		if err := b.send(ctx, uid, msg); err != nil {
			b.log.Warn("broadcast delivery failed", zap.Int64("user_id", uid), zap.Error(err))
			res.Failed++
			continue
		}
		res.Sent++
	}

	b.log.Info("broadcast finished", zap.Int("sent", res.Sent), zap.Int("failed", res.Failed))
	return res
}

// NotifyAdmins sends text to every admin independently. Failures are only logged.
func (b *Broadcaster) NotifyAdmins(ctx context.Context, admins []int64, text string) Result {
	var res Result
	for _, uid := range admins {
		if err := b.send(ctx, uid, Message{Text: text}); err != nil {
			b.log.Error("admin notification failed", zap.Int64("admin_id", uid), zap.Error(err))
			res.Failed++
			continue
		}
		res.Sent++
	}
	return res
}

func (b *Broadcaster) send(ctx context.Context, uid int64, msg Message) error {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	if msg.IsImage() {
		return b.sender.SendImage(ctx, uid, msg.ImageRef, TruncateCaption(msg.Text))
	}
	return b.sender.SendText(ctx, uid, msg.Text)
}

// TruncateCaption cuts s to MaxCaptionLength runes.
func TruncateCaption(s string) string {
	runes := []rune(s)
	if len(runes) <= MaxCaptionLength {
		return s
	}
	return string(runes[:MaxCaptionLength])
}
