// Package telegram binds the notification pipeline and the admin
// command surface to the Telegram Bot API via telebot.
package telegram

import (
	"context"
	"errors"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"herdwatch/internal/notification"
	"herdwatch/pkg/logx"
)

type Config struct {
	Token       string
	PollTimeout time.Duration
}

// Adapter wraps a long-polling telebot instance. It implements the
// delivery pipeline's Sender.
type Adapter struct {
	bot *tele.Bot
	log logx.Logger
}

func New(cfg Config, log logx.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	timeout := cfg.PollTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	b, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: timeout},
	})
	if err != nil {
		return nil, err
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Adapter{bot: b, log: log}, nil
}

// Run starts long polling and blocks until ctx is done.
func (a *Adapter) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		a.bot.Stop()
	}()
	a.log.Info("polling started")
	a.bot.Start()
	a.log.Info("polling stopped")
	return nil
}

// Send delivers one rendered notification to one recipient.
func (a *Adapter) Send(ctx context.Context, recipientID int64, text string, buttons [][]notification.Button) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	opt := &tele.SendOptions{DisableWebPagePreview: true}
	if rm := buildMarkup(buttons); rm != nil {
		opt.ReplyMarkup = rm
	}
	_, err := a.bot.Send(&tele.Chat{ID: recipientID}, text, opt)
	return err
}

func buildMarkup(buttons [][]notification.Button) *tele.ReplyMarkup {
	if len(buttons) == 0 {
		return nil
	}
	rm := &tele.ReplyMarkup{}
	rows := make([]tele.Row, 0, len(buttons))
	for _, line := range buttons {
		row := make(tele.Row, 0, len(line))
		for _, b := range line {
			row = append(row, tele.Btn{Text: b.Text, Data: b.Callback, URL: b.URL})
		}
		rows = append(rows, row)
	}
	rm.Inline(rows...)
	return rm
}
