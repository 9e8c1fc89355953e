// Package notify delivers digests of newly ingested articles to a Telegram
// channel, splitting long digests across messages. Delivery is best-effort
// with bounded retries; at-least-once is not guaranteed.
package notify

import (
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"cryptonews/internal/logger"
	"cryptonews/internal/metrics"
	"cryptonews/internal/model"
)

// Telegram caps messages at 4096 characters.
const messageLimit = 4096

const sendRetries = 3

type Notifier struct {
	bot       *tgbotapi.BotAPI
	channelID int64
}

func New(token string, channelID int64) (*Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &Notifier{bot: bot, channelID: channelID}, nil
}

// SendDigest posts a formatted digest, split to respect the message limit.
func (n *Notifier) SendDigest(articles []model.Article) error {
	if len(articles) == 0 {
		return nil
	}

	text := formatDigest(articles)
	for _, part := range SplitMessage(text, messageLimit) {
		if err := n.send(part); err != nil {
			return err
		}
	}

	metrics.Global.IncrementDigestsSent()
	return nil
}

func (n *Notifier) send(text string) error {
	var lastErr error
	for attempt := 1; attempt <= sendRetries; attempt++ {
		msg := tgbotapi.NewMessage(n.channelID, text)
		msg.ParseMode = tgbotapi.ModeHTML
		msg.DisableWebPagePreview = true

		_, err := n.bot.Send(msg)
		if err == nil {
			return nil
		}
		lastErr = err
		logger.Warn("telegram send failed", "attempt", attempt, "err", err)

		if attempt < sendRetries {
			time.Sleep(time.Duration(1<<attempt) * time.Second)
		}
	}
	return fmt.Errorf("telegram send after %d attempts: %w", sendRetries, lastErr)
}

func formatDigest(articles []model.Article) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🗞 <b>Crypto news digest</b> — %d new\n\n", len(articles)))

	for _, a := range articles {
		title := tgbotapi.EscapeText(tgbotapi.ModeHTML, a.Title)
		b.WriteString(fmt.Sprintf("• <a href=\"%s\">%s</a> <i>(%s)</i>\n", a.Link, title, a.Source))
		if len(a.Tags) > 0 {
			for i, tag := range a.Tags {
				if i > 0 {
					b.WriteString(" ")
				}
				b.WriteString("#" + tag)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	return strings.TrimSpace(b.String())
}

// SplitMessage splits text into chunks of at most limit runes, preferring
// paragraph boundaries, then line boundaries; a single over-long line is
// hard-split on rune boundaries.
func SplitMessage(text string, limit int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if runeLen(text) <= limit {
		return []string{text}
	}

	var parts []string
	var cur strings.Builder
	curLen := 0

	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			parts = append(parts, s)
		}
		cur.Reset()
		curLen = 0
	}

	for _, para := range strings.Split(text, "\n\n") {
		for _, block := range splitParagraph(para, limit) {
			bl := runeLen(block)
			sep := 0
			if curLen > 0 {
				sep = 2
			}
			if curLen+sep+bl > limit {
				flush()
			}
			if curLen > 0 {
				cur.WriteString("\n\n")
				curLen += 2
			}
			cur.WriteString(block)
			curLen += bl
		}
	}
	flush()
	return parts
}

// splitParagraph breaks a paragraph exceeding limit on line boundaries,
// then hard rune boundaries. Every returned block fits within limit.
func splitParagraph(para string, limit int) []string {
	if runeLen(para) <= limit {
		return []string{para}
	}

	var out []string
	var cur strings.Builder
	curLen := 0

	for _, line := range strings.Split(para, "\n") {
		for _, piece := range hardSplit(line, limit) {
			pl := runeLen(piece)
			sep := 0
			if curLen > 0 {
				sep = 1
			}
			if curLen+sep+pl > limit {
				out = append(out, cur.String())
				cur.Reset()
				curLen = 0
			}
			if curLen > 0 {
				cur.WriteString("\n")
				curLen++
			}
			cur.WriteString(piece)
			curLen += pl
		}
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}

func hardSplit(s string, limit int) []string {
	runes := []rune(s)
	if len(runes) <= limit {
		return []string{s}
	}

	var out []string
	for len(runes) > limit {
		out = append(out, string(runes[:limit]))
		runes = runes[limit:]
	}
	if len(runes) > 0 {
		out = append(out, string(runes))
	}
	return out
}

func runeLen(s string) int {
	return len([]rune(s))
}
