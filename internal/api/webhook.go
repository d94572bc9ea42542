package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"unicode/utf8"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
)

// lineTextLimit is the maximum length of a LINE text message in characters.
const lineTextLimit = 5000

// fallbackReply is sent when the pipeline cannot produce an answer.
const fallbackReply = "Sorry, I couldn't generate a response."

// Answerer produces a grounded answer for a user question.
// *rag.Pipeline satisfies it.
type Answerer interface {
	Answer(ctx context.Context, question string) (string, error)
}

// Replier sends reply messages back to the LINE platform.
// *messaging_api.MessagingApiAPI satisfies it.
type Replier interface {
	ReplyMessage(request *messaging_api.ReplyMessageRequest) (*messaging_api.ReplyMessageResponse, error)
}

// webhookHandler receives LINE platform callbacks and answers text messages.
type webhookHandler struct {
	answerer      Answerer
	line          Replier
	channelSecret string
	logger        *slog.Logger
}

// handle processes a webhook callback. Signature verification failures return
// 400 so the LINE platform surfaces the misconfiguration; everything after a
// verified parse returns 200, because redelivery of a failed event would not
// help (the reply token is single-use).
func (h *webhookHandler) handle(w http.ResponseWriter, r *http.Request) {
	cb, err := webhook.ParseRequest(h.channelSecret, r)
	if err != nil {
		if errors.Is(err, webhook.ErrInvalidSignature) {
			h.logger.Warn("webhook signature verification failed")
			writeError(w, http.StatusBadRequest, "invalid_signature", "signature verification failed", h.logger)
			return
		}
		h.logger.Error("parsing webhook request", "error", err)
		writeError(w, http.StatusInternalServerError, "parse_failed", "cannot parse webhook request", h.logger)
		return
	}

	for _, event := range cb.Events {
		me, ok := event.(webhook.MessageEvent)
		if !ok {
			h.logger.Debug("ignoring non-message event")
			continue
		}
		tm, ok := me.Message.(webhook.TextMessageContent)
		if !ok {
			h.logger.Debug("ignoring non-text message")
			continue
		}
		h.answerText(r.Context(), me.ReplyToken, tm.Text)
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, h.logger)
}

// answerText runs the pipeline for one text message and replies with the
// answer, or with a generic apology when any stage fails.
func (h *webhookHandler) answerText(ctx context.Context, replyToken, question string) {
	reply, err := h.answerer.Answer(ctx, question)
	if err != nil {
		h.logger.Error("answering question", "error", err)
		reply = fallbackReply
	}
	reply = truncateRunes(reply, lineTextLimit)

	_, err = h.line.ReplyMessage(&messaging_api.ReplyMessageRequest{
		ReplyToken: replyToken,
		Messages: []messaging_api.MessageInterface{
			messaging_api.TextMessage{Text: reply},
		},
	})
	if err != nil {
		h.logger.Error("sending LINE reply", "error", err)
	}
}

// truncateRunes caps s at limit characters. The LINE limit counts characters,
// not bytes, and slicing by byte index would cut multi-byte text mid-rune.
func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}
