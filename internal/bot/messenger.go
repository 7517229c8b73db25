package bot

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Messenger is the part of the Telegram API the bot talks through.
// *tgbotapi.BotAPI satisfies it.
type Messenger interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// isParseError reports whether Telegram refused the message because of its
// Markdown entities.
func isParseError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "can't parse entities")
}

// send delivers a Markdown message, falling back to plain text when the
// content does not parse. markup may be nil.
func (t *TelegramBot) send(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	_, err := t.messenger.Send(msg)
	if isParseError(err) {
		t.logger.Warnw("Markdown rejected, resending as plain text", "chat_id", chatID)
		msg.ParseMode = ""
		_, err = t.messenger.Send(msg)
	}
	return err
}

// reply sends text with a reply keyboard.
func (t *TelegramBot) reply(chatID int64, text string, kb [][]string) error {
	return t.send(chatID, text, replyKeyboard(kb))
}

// notify is a best-effort send used for messages to third parties; the
// failure is logged and returned.
func (t *TelegramBot) notify(chatID int64, text string, markup interface{}) error {
	if err := t.send(chatID, text, markup); err != nil {
		t.logger.Warnw("Failed to deliver message", "chat_id", chatID, "error", err)
		return err
	}
	return nil
}

// edit replaces the text of a message the bot sent earlier, dropping its
// inline buttons.
func (t *TelegramBot) edit(chatID int64, messageID int, text string) {
	cfg := tgbotapi.NewEditMessageText(chatID, messageID, text)
	cfg.ParseMode = tgbotapi.ModeMarkdown
	_, err := t.messenger.Send(cfg)
	if isParseError(err) {
		cfg.ParseMode = ""
		_, err = t.messenger.Send(cfg)
	}
	if err != nil {
		t.logger.Warnw("Failed to edit message", "chat_id", chatID, "message_id", messageID, "error", err)
	}
}

func (t *TelegramBot) sendDocument(chatID int64, name string, data []byte, caption string) error {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: name, Bytes: data})
	doc.Caption = caption
	_, err := t.messenger.Send(doc)
	return err
}

func replyKeyboard(kb [][]string) tgbotapi.ReplyKeyboardMarkup {
	rows := make([][]tgbotapi.KeyboardButton, 0, len(kb))
	for _, labels := range kb {
		row := make([]tgbotapi.KeyboardButton, 0, len(labels))
		for _, l := range labels {
			row = append(row, tgbotapi.NewKeyboardButton(l))
		}
		rows = append(rows, row)
	}
	markup := tgbotapi.NewReplyKeyboard(rows...)
	markup.ResizeKeyboard = true
	return markup
}

// button is one inline button: label and callback data.
type button struct {
	label string
	data  string
}

func inlineKeyboard(rows ...[]button) tgbotapi.InlineKeyboardMarkup {
	out := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, r := range rows {
		row := make([]tgbotapi.InlineKeyboardButton, 0, len(r))
		for _, b := range r {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(b.label, b.data))
		}
		out = append(out, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(out...)
}

func removeKeyboard() tgbotapi.ReplyKeyboardRemove {
	return tgbotapi.NewRemoveKeyboard(false)
}
