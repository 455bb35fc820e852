package controller

import (
	"context"

	"PBot/logger"
	"PBot/module/bot/model"
	"PBot/tools/errs"

	"go.uber.org/zap"
)

// 查询失败与明确拒绝返回同一个错误，不向调用者暴露原因
func denied(m Message, reason string, err error) error {
	logger.Info("permission denied",
		zap.String("task", m.TaskID),
		zap.Stringer("user", m.AuthorID),
		zap.String("reason", reason),
		zap.Error(err),
	)
	return errs.ErrPermissionDenied.Wrap()
}

func (c *Controller) requireAdmin(ctx context.Context, m Message) error {
	u, err := c.users.Find(ctx, m.AuthorID)
	if err != nil {
		return denied(m, "actor lookup failed", err)
	}
	if !u.Admin {
		return denied(m, "not admin", nil)
	}
	return nil
}

// requireContentEditor 投稿者本人、admin 或 sub_admin
func (c *Controller) requireContentEditor(ctx context.Context, m Message, id model.ContentID) error {
	content, err := c.contents.Find(ctx, id)
	if err != nil {
		return denied(m, "content lookup failed", err)
	}
	if content.Posted.ID == m.AuthorID {
		return nil
	}
	u, err := c.users.Find(ctx, m.AuthorID)
	if err != nil {
		return denied(m, "actor lookup failed", err)
	}
	if !u.Admin && !u.SubAdmin {
		return denied(m, "not poster nor moderator", nil)
	}
	return nil
}
