package discord

import (
	"context"

	"PBot/logger"
	"PBot/module/bot/controller"
	"PBot/module/bot/model"
	"PBot/tools/errs"
	"PBot/tools/ids"
	"PBot/tools/safe"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const rateLimitedEmoji = "⏳"

// Handler 命令入口，由 controller.Controller 实现
type Handler interface {
	Addressed(text string) bool
	Handle(ctx context.Context, m controller.Message) (*controller.Response, bool)
}

type sender interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	MessageReactionAdd(channelID, messageID, emojiID string, options ...discordgo.RequestOption) error
}

type Options struct {
	Token string
	Rate  float64 // 每个用户每秒命令数，<= 0 不限流
	Burst int
}

// Gateway Discord 消息入口：收消息、限流、交给 Handler、把面板回复到原频道
type Gateway struct {
	session *discordgo.Session
	handler Handler
	limiter *Limiter
	tasks   *ids.Counter
	ctx     context.Context
}

func New(opts Options, handler Handler, tasks *ids.Counter) (*Gateway, error) {
	safe.MustNotNil(handler, "handler")
	if opts.Token == "" {
		return nil, errs.New("discord token is empty")
	}
	s, err := discordgo.New("Bot " + opts.Token)
	if err != nil {
		return nil, errs.WrapMsg(err, "create discord session")
	}
	s.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent
	if tasks == nil {
		tasks = ids.NewCounter("task-")
	}
	return &Gateway{
		session: s,
		handler: handler,
		limiter: NewLimiter(opts.Rate, opts.Burst),
		tasks:   tasks,
		ctx:     context.Background(),
	}, nil
}

// Session 供 Resolver 查询成员资料
func (g *Gateway) Session() *discordgo.Session { return g.session }

// Run 连接网关直到 ctx 结束
func (g *Gateway) Run(ctx context.Context) error {
	g.ctx = ctx
	remove := g.session.AddHandler(g.onMessageCreate)
	defer remove()

	if err := g.session.Open(); err != nil {
		return errs.WrapMsg(err, "open discord gateway")
	}
	logger.Info("discord gateway connected")

	<-ctx.Done()
	if err := g.session.Close(); err != nil {
		logger.Warn("close discord session", zap.Error(err))
	}
	logger.Info("discord gateway closed")
	return nil
}

func (g *Gateway) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	task := g.tasks.NextString()
	safe.SafeGo(func() { g.dispatch(g.ctx, s, task, m) }, zap.String("task", task))
}

func (g *Gateway) dispatch(ctx context.Context, out sender, task string, m *discordgo.MessageCreate) {
	if !g.handler.Addressed(m.Content) {
		return
	}
	msg, err := toMessage(task, m)
	if err != nil {
		logger.Warn("unexpected author id", zap.String("task", task), zap.String("author", m.Author.ID), zap.Error(err))
		return
	}
	if !g.limiter.Allow(msg.AuthorID) {
		if err := out.MessageReactionAdd(m.ChannelID, m.ID, rateLimitedEmoji); err != nil {
			logger.Debug("react failed", zap.String("task", task), zap.Error(err))
		}
		return
	}

	resp, ok := g.handler.Handle(ctx, msg)
	if !ok {
		return
	}
	for _, batch := range Messages(resp.Views) {
		_, err := out.ChannelMessageSendComplex(m.ChannelID, &discordgo.MessageSend{
			Embeds:          batch,
			Reference:       m.Reference(),
			AllowedMentions: &discordgo.MessageAllowedMentions{},
		}, discordgo.WithContext(ctx))
		if err != nil {
			logger.Error("reply failed", zap.String("task", task), zap.String("op", resp.Op), zap.Error(err))
			return
		}
	}
}

// toMessage 服务器消息带 Member，私聊没有昵称
func toMessage(task string, m *discordgo.MessageCreate) (controller.Message, error) {
	id, err := model.ParseUserID(m.Author.ID)
	if err != nil {
		return controller.Message{}, err
	}
	msg := controller.Message{
		TaskID:     task,
		GuildID:    m.GuildID,
		AuthorID:   id,
		AuthorName: m.Author.Username,
		Content:    m.Content,
	}
	if m.Member != nil && m.Member.Nick != "" {
		nick := m.Member.Nick
		msg.AuthorNick = &nick
	}
	return msg, nil
}
