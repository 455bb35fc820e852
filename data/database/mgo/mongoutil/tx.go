package mongoutil

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

// 服务端在事务错误上打的标签
const (
	LabelTransientTransaction = "TransientTransactionError"
	LabelUnknownCommitResult  = "UnknownTransactionCommitResult"
)

// Tx 多文档事务执行器；fn 内必须使用传入的 ctx 访问集合
type Tx interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type mongoTx struct {
	client *mongo.Client
	opts   *options.TransactionOptions
}

// NewMongoTx snapshot 读 + majority 写
func NewMongoTx(client *mongo.Client) Tx {
	return &mongoTx{
		client: client,
		opts: options.Transaction().
			SetReadConcern(readconcern.Snapshot()).
			SetWriteConcern(writeconcern.New(writeconcern.WMajority())),
	}
}

// Transaction 整体遇到 TransientTransactionError 时重跑 fn；
// 提交遇到 UnknownTransactionCommitResult 时只重试提交。直到得到确定结果或 ctx 结束。
func (m *mongoTx) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	sess, err := m.client.StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(context.Background())
	return runTransaction(ctx, mongoSession{sess}, m.opts, fn)
}

// txSession mongo.Session 中重试循环用到的部分
type txSession interface {
	StartTransaction(opts ...*options.TransactionOptions) error
	AbortTransaction(ctx context.Context) error
	CommitTransaction(ctx context.Context) error
	bind(ctx context.Context) context.Context
}

type mongoSession struct {
	mongo.Session
}

func (s mongoSession) bind(ctx context.Context) context.Context {
	return mongo.NewSessionContext(ctx, s.Session)
}

func runTransaction(ctx context.Context, sess txSession, opts *options.TransactionOptions, fn func(ctx context.Context) error) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := sess.StartTransaction(opts); err != nil {
			return err
		}
		sc := sess.bind(ctx)
		err := fn(sc)
		if err != nil {
			_ = sess.AbortTransaction(context.Background())
		} else {
			err = commitWithRetry(sc, sess)
		}
		if HasErrorLabel(err, LabelTransientTransaction) {
			continue
		}
		return err
	}
}

func commitWithRetry(ctx context.Context, sess txSession) error {
	for {
		err := sess.CommitTransaction(ctx)
		if err == nil {
			return nil
		}
		if HasErrorLabel(err, LabelUnknownCommitResult) && ctx.Err() == nil {
			continue
		}
		return err
	}
}

// HasErrorLabel 判断错误链上是否带有服务端标签
func HasErrorLabel(err error, label string) bool {
	if err == nil {
		return false
	}
	var le mongo.LabeledError
	if errors.As(err, &le) {
		return le.HasErrorLabel(label)
	}
	return false
}
