package discord

import (
	"unicode/utf8"

	"PBot/module/bot/presenter"

	"github.com/bwmarrin/discordgo"
)

// Discord embed 限制
const (
	maxEmbedsPerMessage = 10
	maxTitle            = 256
	maxDescription      = 4096
	maxFields           = 25
	maxFieldName        = 256
	maxFieldValue       = 1024
)

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}

// Embed 把面板渲染成 embed；空值字段 Discord 会拒绝，用占位符代替
func Embed(v presenter.View) *discordgo.MessageEmbed {
	e := &discordgo.MessageEmbed{
		Title:       truncate(v.Title, maxTitle),
		Color:       v.Color,
		Description: truncate(v.Description, maxDescription),
	}
	for i, f := range v.Fields {
		if i == maxFields {
			break
		}
		name, value := f.Name, f.Value
		if name == "" {
			name = "\u200b"
		}
		if value == "" {
			value = "-"
		}
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{
			Name:   truncate(name, maxFieldName),
			Value:  truncate(value, maxFieldValue),
			Inline: f.Inline,
		})
	}
	return e
}

// Messages 按每条消息最多 10 个 embed 分批
func Messages(views []presenter.View) [][]*discordgo.MessageEmbed {
	var out [][]*discordgo.MessageEmbed
	for start := 0; start < len(views); start += maxEmbedsPerMessage {
		end := min(start+maxEmbedsPerMessage, len(views))
		batch := make([]*discordgo.MessageEmbed, 0, end-start)
		for _, v := range views[start:end] {
			batch = append(batch, Embed(v))
		}
		out = append(out, batch)
	}
	return out
}
