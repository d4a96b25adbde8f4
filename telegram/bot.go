package telegram

import (
	"context"
	"errors"
	"slices"

	"dreambot/game"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const mediaGroupLimit = 10

// API is the part of *tgbotapi.BotAPI the bot needs.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	SendMediaGroup(config tgbotapi.MediaGroupConfig) ([]tgbotapi.Message, error)
}

// Bot sends game messages through the Telegram Bot API.
type Bot struct {
	api API
}

func NewBot(api API) *Bot {
	return &Bot{api: api}
}

func keyboard(menu game.Menu) tgbotapi.ReplyKeyboardMarkup {
	rows := make([][]tgbotapi.KeyboardButton, 0, len(menu))
	for _, row := range menu {
		buttons := make([]tgbotapi.KeyboardButton, 0, len(row))
		for _, label := range row {
			buttons = append(buttons, tgbotapi.NewKeyboardButton(label))
		}
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(buttons...))
	}
	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.ResizeKeyboard = true
	return kb
}

// SendText sends text with menu as the reply keyboard. A nil menu keeps
// whatever keyboard the user already has.
func (b *Bot) SendText(ctx context.Context, chat int64, text string, menu game.Menu) (int, error) {
	msg := tgbotapi.NewMessage(chat, text)
	if menu != nil {
		msg.ReplyMarkup = keyboard(menu)
	}
	sent, err := b.api.Send(msg)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

func (b *Bot) SendImage(ctx context.Context, chat int64, image string, caption string) (int, error) {
	photo := tgbotapi.NewPhoto(chat, tgbotapi.FileID(image))
	photo.Caption = caption
	sent, err := b.api.Send(photo)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

func (b *Bot) EditText(ctx context.Context, chat int64, message int, text string) error {
	_, err := b.api.Request(tgbotapi.NewEditMessageText(chat, message, text))
	return err
}

func (b *Bot) DeleteMessages(ctx context.Context, chat int64, messages ...int) error {
	var errs []error
	for _, m := range messages {
		if _, err := b.api.Request(tgbotapi.NewDeleteMessage(chat, m)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SendAlbum sends images as media groups of at most ten pictures.
func (b *Bot) SendAlbum(ctx context.Context, chat int64, images []string) error {
	for chunk := range slices.Chunk(images, mediaGroupLimit) {
		media := make([]any, 0, len(chunk))
		for _, id := range chunk {
			media = append(media, tgbotapi.NewInputMediaPhoto(tgbotapi.FileID(id)))
		}
		if _, err := b.api.SendMediaGroup(tgbotapi.NewMediaGroup(chat, media)); err != nil {
			return err
		}
	}
	return nil
}

// AdminNotifier returns a function that posts plain text to chat.
func (b *Bot) AdminNotifier(chat int64) func(ctx context.Context, text string) error {
	return func(ctx context.Context, text string) error {
		_, err := b.SendText(ctx, chat, text, nil)
		return err
	}
}
