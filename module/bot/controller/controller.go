package controller

import (
	"context"
	"errors"
	"time"

	"PBot/logger"
	"PBot/module/bot/model"
	"PBot/module/bot/presenter"
	"PBot/module/bot/repository"
	"PBot/module/bot/usecase"
	"PBot/service/events"
	"PBot/service/lock"
	"PBot/tools/errs"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
)

// Message 一条聊天消息；作者信息由网关从平台事件里取出
type Message struct {
	TaskID     string
	GuildID    string
	AuthorID   model.UserID
	AuthorName string
	AuthorNick *string
	Content    string
}

func (m Message) posted() model.Posted {
	return model.Posted{ID: m.AuthorID, Name: m.AuthorName, Nick: m.AuthorNick}
}

// Profile 平台上的用户名与服务器昵称
type Profile struct {
	Name string
	Nick *string
}

// ProfileResolver 把用户 id 解析为平台资料，用于构造真实用户署名
type ProfileResolver interface {
	Resolve(ctx context.Context, guildID string, id model.UserID) (Profile, error)
}

// Response 一条命令的全部面板
type Response struct {
	Op    string
	Views []presenter.View
}

type Options struct {
	Prefix    string
	Timeout   time.Duration
	Locker    lock.Locker
	Resolver  ProfileResolver
	Publisher events.Publisher
	Now       func() time.Time
}

// Controller 命令入口：解析、鉴权、按操作类型串行、执行、渲染
//
// 同一种操作（例如 like）全局同时只有一个在执行；不同操作之间互不阻塞。
type Controller struct {
	uc        *usecase.Interactors
	users     repository.UserRepository
	contents  repository.ContentRepository
	prefix    string
	timeout   time.Duration
	locker    lock.Locker
	resolver  ProfileResolver
	publisher events.Publisher
	now       func() time.Time
}

func New(store *repository.Store, opts Options) *Controller {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Locker == nil {
		opts.Locker = lock.NewLocal()
	}
	if opts.Publisher == nil {
		opts.Publisher = events.Nop{}
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Controller{
		uc:        usecase.New(store, opts.Now),
		users:     store.Users,
		contents:  store.Contents,
		prefix:    opts.Prefix,
		timeout:   opts.Timeout,
		locker:    opts.Locker,
		resolver:  opts.Resolver,
		publisher: opts.Publisher,
		now:       opts.Now,
	}
}

// Addressed 消息是否发给机器人；网关据此决定是否计入限流
func (c *Controller) Addressed(text string) bool {
	_, ok, _ := c.tokenize(text)
	return ok
}

// Handle 不是命令时返回 false，调用方不应回复任何内容
func (c *Controller) Handle(ctx context.Context, m Message) (*Response, bool) {
	tokens, ok, err := c.tokenize(m.Content)
	if !ok {
		return nil, false
	}
	log := logger.Log.With(zap.String("task", m.TaskID), zap.Stringer("user", m.AuthorID))
	if err != nil {
		return errorResponse("parse", errs.ErrParse.WithDetail(err.Error())), true
	}

	p, err := parse(tokens)
	if err != nil {
		log.Debug("parse failed", zap.Strings("tokens", tokens), zap.Error(err))
		return errorResponse("parse", errs.ErrParse.WithDetail(err.Error())), true
	}
	if p.cmd == nil {
		return &Response{Op: "help", Views: []presenter.View{presenter.Help(p.help)}}, true
	}

	op := p.cmd.op()
	start := time.Now()
	res, err := c.execute(ctx, m, p.cmd)
	if err != nil {
		ce := c.classify(err)
		fields := []zap.Field{zap.String("op", op), zap.Duration("cost", time.Since(start)), zap.Error(err)}
		if ce.Code == errs.RepositoryError || ce.Code == errs.ServerInternalError {
			log.Error("command failed", fields...)
			report(err, m, op)
		} else {
			log.Info("command rejected", fields...)
		}
		return errorResponse(op, ce), true
	}
	log.Info("command done", zap.String("op", op), zap.Duration("cost", time.Since(start)))

	if res.event != nil {
		c.publish(log, *res.event)
	}
	return &Response{Op: op, Views: res.views}, true
}

// execute 鉴权后进入该操作的串行区；超时覆盖等锁与执行
func (c *Controller) execute(ctx context.Context, m Message, cmd command) (res result, err error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = errs.ErrPanic(r)
		}
	}()

	if err := cmd.authorize(ctx, c, m); err != nil {
		return result{}, err
	}

	unlock, err := c.locker.Lock(ctx, cmd.op())
	if err != nil {
		return result{}, err
	}
	defer unlock()

	return cmd.run(ctx, c, m)
}

func (c *Controller) publish(log *zap.Logger, e events.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := c.publisher.Publish(ctx, e); err != nil {
		log.Warn("publish event failed", zap.String("kind", string(e.Kind)), zap.Error(err))
	}
}

func (c *Controller) event(kind events.Kind, m Message) events.Event {
	return events.New(kind, m.AuthorID, c.now())
}

// classify 错误分类为用户可见的 CodeError；仓储内部细节只进日志
func (c *Controller) classify(err error) errs.CodeError {
	if ce, ok := errs.CodeOf(err); ok {
		return ce
	}
	switch usecase.KindOf(err) {
	case usecase.KindNotFound:
		return errs.ErrNotFound.WithDetail(err.Error())
	case usecase.KindRule:
		return errs.ErrRule.WithDetail(err.Error())
	case usecase.KindOutOfRange:
		return errs.ErrOutOfRange.WithDetail(err.Error())
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errs.ErrTimeout.WithDetail("the operation took longer than " + c.timeout.String())
	}
	var nu *repository.NoUniqueError
	if errors.As(err, &nu) {
		return errs.ErrRepository.WithDetail("repository error: " + nu.Error())
	}
	var ie *repository.InternalError
	if errors.As(err, &ie) {
		return errs.ErrRepository.WithDetail("repository error: backend failure")
	}
	return errs.ErrInternal
}

func errorResponse(op string, ce errs.CodeError) *Response {
	return &Response{Op: op, Views: []presenter.View{presenter.Error(ce)}}
}

// report 内部错误上报 sentry；未初始化时为空操作
func report(err error, m Message, op string) {
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("op", op)
		scope.SetTag("task", m.TaskID)
		scope.SetUser(sentry.User{ID: m.AuthorID.String()})
		sentry.CaptureException(err)
	})
}
