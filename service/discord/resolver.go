package discord

import (
	"context"
	"time"

	"PBot/module/bot/controller"
	"PBot/module/bot/model"
	"PBot/tools/errs"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/sync/singleflight"
)

type memberSource interface {
	GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error)
	User(userID string, options ...discordgo.RequestOption) (*discordgo.User, error)
}

// Resolver 查询用户名与服务器昵称；同一用户的并发查询合并成一次请求
type Resolver struct {
	src   memberSource
	group singleflight.Group
}

func NewResolver(src memberSource) *Resolver {
	return &Resolver{src: src}
}

var _ controller.ProfileResolver = (*Resolver)(nil)

func (r *Resolver) Resolve(ctx context.Context, guildID string, id model.UserID) (controller.Profile, error) {
	key := guildID + "/" + id.String()
	ch := r.group.DoChan(key, func() (any, error) {
		// 结果由多个调用方共享，不跟随第一个调用方取消
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		return r.lookup(lctx, guildID, id.String())
	})
	select {
	case <-ctx.Done():
		return controller.Profile{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return controller.Profile{}, res.Err
		}
		return res.Val.(controller.Profile), nil
	}
}

// lookup 服务器内优先取成员（带昵称），私聊或已退出的用户退回全局用户
func (r *Resolver) lookup(ctx context.Context, guildID, userID string) (controller.Profile, error) {
	if guildID != "" {
		m, err := r.src.GuildMember(guildID, userID, discordgo.WithContext(ctx))
		if err == nil && m.User != nil {
			p := controller.Profile{Name: m.User.Username}
			if m.Nick != "" {
				nick := m.Nick
				p.Nick = &nick
			}
			return p, nil
		}
	}
	u, err := r.src.User(userID, discordgo.WithContext(ctx))
	if err != nil {
		return controller.Profile{}, errs.WrapMsg(err, "resolve user", "id", userID)
	}
	return controller.Profile{Name: u.Username}, nil
}
