// Package telegram provides the Telegram transport for parrot.
package telegram

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/roelfdiedericks/parrot/internal/commands"
	. "github.com/roelfdiedericks/parrot/internal/logging"
	"github.com/roelfdiedericks/parrot/internal/types"
)

// Dispatcher processes one non-command event.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev types.Event) error
}

// Commands executes slash commands.
type Commands interface {
	Execute(ctx context.Context, ev types.Event) *commands.CommandResult
	List() []*commands.Command
}

// sender is the part of *tele.Bot used for outbound messages.
type sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// Bot is the Telegram adapter. It is the dispatcher's types.Responder and
// feeds inbound text and voice messages into it.
type Bot struct {
	bot *tele.Bot
	out sender

	dispatch Dispatcher
	cmds     Commands
	register func(ctx context.Context, ev types.Event) bool
	typing   func(c tele.Context)

	ctx    context.Context
	cancel context.CancelFunc
}

// New connects to Telegram. Handlers are attached with Bind.
func New(cfg Config) (*Bot, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 10 * time.Second
	}

	L_debug("telegram: creating bot", "tokenLength", len(cfg.Token))
	bot, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: cfg.PollTimeout},
		OnError: func(err error, c tele.Context) {
			L_error("telegram: handler error", "error", err)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	L_info("telegram: connected", "bot", "@"+bot.Me.Username, "id", bot.Me.ID)
	return newBot(bot, bot), nil
}

func newBot(bot *tele.Bot, out sender) *Bot {
	ctx, cancel := context.WithCancel(context.Background())
	return &Bot{
		bot:    bot,
		out:    out,
		typing: func(c tele.Context) { _ = c.Notify(tele.Typing) },
		ctx:    ctx,
		cancel: cancel,
	}
}

// Bind attaches the dispatcher and the command surface. register is
// called for every inbound event so unseen users enter the registry.
func (b *Bot) Bind(d Dispatcher, cmds Commands, register func(ctx context.Context, ev types.Event) bool) {
	b.dispatch = d
	b.cmds = cmds
	b.register = register

	b.bot.Handle(tele.OnText, b.handleText)
	b.bot.Handle(tele.OnVoice, b.handleVoice)
	L_debug("telegram: handlers registered")
}

// Files exposes the file lookup used by the media downloader.
func (b *Bot) Files() *tele.Bot {
	return b.bot
}

// RegisterCommands publishes the non-admin commands in the Telegram
// command menu.
func (b *Bot) RegisterCommands() error {
	var menu []tele.Command
	for _, cmd := range b.cmds.List() {
		if cmd.Admin {
			continue
		}
		menu = append(menu, tele.Command{
			Text:        strings.TrimPrefix(cmd.Name, "/"),
			Description: cmd.Description,
		})
	}
	if err := b.bot.SetCommands(menu); err != nil {
		return fmt.Errorf("set telegram commands: %w", err)
	}
	L_debug("telegram: command menu registered", "commands", len(menu))
	return nil
}

// Start starts long polling in the background.
func (b *Bot) Start() {
	L_info("telegram: starting polling", "bot", "@"+b.bot.Me.Username)
	go b.bot.Start()
}

// Stop stops polling and cancels in-flight handlers.
func (b *Bot) Stop() {
	L_info("telegram: stopping bot")
	b.cancel()
	b.bot.Stop()
}

// event converts a private-chat message; group messages are ignored.
func (b *Bot) event(c tele.Context) (types.Event, bool) {
	msg := c.Message()
	from := c.Sender()
	if msg == nil || from == nil {
		return types.Event{}, false
	}
	if c.Chat() != nil && c.Chat().Type != tele.ChatPrivate {
		L_debug("telegram: ignoring group message", "chat", c.Chat().ID)
		return types.Event{}, false
	}
	ev := types.Event{
		UserID:    from.ID,
		FirstName: from.FirstName,
		Username:  from.Username,
		Kind:      types.EventText,
		Text:      msg.Text,
		Time:      msg.Time(),
	}
	if msg.Voice != nil {
		ev.Kind = types.EventVoice
		ev.FileID = msg.Voice.FileID
		ev.Duration = time.Duration(msg.Voice.Duration) * time.Second
	}
	return ev, true
}

func (b *Bot) handleText(c tele.Context) error {
	ev, ok := b.event(c)
	if !ok {
		return nil
	}
	L_debug("telegram: message received", "user", ev.UserID, "chars", len(ev.Text))

	if commands.IsCommand(ev.Text) {
		res := b.cmds.Execute(b.ctx, ev)
		if reply, ok := res.Reply(); ok {
			return b.Send(b.ctx, ev.UserID, reply)
		}
		return nil
	}
	return b.handle(c, ev)
}

func (b *Bot) handleVoice(c tele.Context) error {
	ev, ok := b.event(c)
	if !ok {
		return nil
	}
	L_debug("telegram: voice received", "user", ev.UserID, "duration", ev.Duration)
	return b.handle(c, ev)
}

// handle runs ev through the dispatcher. Failures were already reported
// to the user by the guard.
func (b *Bot) handle(c tele.Context, ev types.Event) error {
	b.register(b.ctx, ev)
	b.typing(c)
	if err := b.dispatch.Dispatch(b.ctx, ev); err != nil {
		L_debug("telegram: dispatch failed", "user", ev.UserID, "error", err)
	}
	return nil
}

// Send delivers a reply: image, then voice, then text. The keyboard hint
// is attached to the last message sent.
func (b *Bot) Send(ctx context.Context, userID int64, r types.Reply) error {
	to := tele.ChatID(userID)

	type part struct {
		what interface{}
		html bool
	}
	var parts []part
	if r.Image != nil {
		caption := r.Caption
		if runes := []rune(caption); len(runes) > maxCaption {
			caption = string(runes[:maxCaption])
		}
		parts = append(parts, part{what: &tele.Photo{File: tele.FromReader(bytes.NewReader(r.Image)), Caption: caption}})
	}
	if r.Voice != nil {
		parts = append(parts, part{what: &tele.Voice{File: tele.FromReader(bytes.NewReader(r.Voice)), MIME: "audio/ogg"}})
	}
	if r.Text != "" {
		for _, chunk := range splitMessage(r.Text, maxMessage) {
			parts = append(parts, part{what: chunk, html: r.Markdown})
		}
	}

	markup := keyboard(r.Suggestions)
	for i, p := range parts {
		if err := ctx.Err(); err != nil {
			return err
		}
		opts := &tele.SendOptions{}
		if i == len(parts)-1 {
			opts.ReplyMarkup = markup
		}
		var err error
		if p.html {
			err = b.sendHTML(to, p.what.(string), opts)
		} else {
			_, err = b.out.Send(to, p.what, opts)
		}
		if err != nil {
			return fmt.Errorf("telegram send to %d: %w", userID, err)
		}
	}
	return nil
}

// sendHTML sends markdown rendered as HTML, falling back to plain text
// when rendering fails or Telegram rejects the markup.
func (b *Bot) sendHTML(to tele.Recipient, md string, opts *tele.SendOptions) error {
	formatted, ok := FormatHTML(md)
	if ok {
		html := *opts
		html.ParseMode = tele.ModeHTML
		_, err := b.out.Send(to, formatted, &html)
		if err == nil {
			return nil
		}
		L_debug("telegram: HTML send failed, falling back to plain text", "error", err)
	}
	_, err := b.out.Send(to, md, opts)
	return err
}

// keyboard maps a suggestions hint to reply markup: nil leaves the
// keyboard alone, empty removes it.
func keyboard(suggestions []string) *tele.ReplyMarkup {
	if suggestions == nil {
		return nil
	}
	if len(suggestions) == 0 {
		return &tele.ReplyMarkup{RemoveKeyboard: true}
	}
	m := &tele.ReplyMarkup{ResizeKeyboard: true, OneTimeKeyboard: true}
	const perRow = 3
	var rows []tele.Row
	for i := 0; i < len(suggestions); i += perRow {
		end := min(i+perRow, len(suggestions))
		btns := make([]tele.Btn, 0, end-i)
		for _, s := range suggestions[i:end] {
			btns = append(btns, m.Text(s))
		}
		rows = append(rows, m.Row(btns...))
	}
	m.Reply(rows...)
	return m
}
