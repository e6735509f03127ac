package http

import (
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// conversationID keys per-conversation state by chat id. ok is false for
// messages without a chat.
func conversationID(m *tgbotapi.Message) (string, bool) {
	if m == nil || m.Chat == nil {
		return "", false
	}
	return strconv.FormatInt(m.Chat.ID, 10), true
}

// command splits "/cmd@bot args" and returns "/cmd@bot"; ok is false for
// plain text. Only the text is inspected; a bot_command entity is not required.
func command(m *tgbotapi.Message) (string, bool) {
	text := strings.TrimSpace(m.Text)
	if !strings.HasPrefix(text, "/") {
		return "", false
	}
	if i := strings.IndexAny(text, " \t\n"); i >= 0 {
		text = text[:i]
	}
	return text, true
}

// sendMessage is a Bot API method call returned inline in the webhook response.
type sendMessage struct {
	Method      string                        `json:"method"`
	ChatID      int64                         `json:"chat_id"`
	Text        string                        `json:"text"`
	ReplyMarkup *tgbotapi.ReplyKeyboardMarkup `json:"reply_markup,omitempty"`
}

func newSendMessage(chatID int64, text string, keyboard []string) sendMessage {
	msg := sendMessage{Method: "sendMessage", ChatID: chatID, Text: text}
	if len(keyboard) > 0 {
		rows := make([][]tgbotapi.KeyboardButton, 0, len(keyboard))
		for _, label := range keyboard {
			rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(label)))
		}
		markup := tgbotapi.NewReplyKeyboard(rows...)
		markup.ResizeKeyboard = true
		msg.ReplyMarkup = &markup
	}
	return msg
}
