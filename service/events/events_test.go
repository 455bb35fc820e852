package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"PBot/module/bot/model"

	"github.com/Shopify/sarama"
	"github.com/Shopify/sarama/mocks"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var at = time.Date(2024, 3, 4, 5, 6, 7, 0, time.UTC)

func TestEventEncoding(t *testing.T) {
	cid := model.NewContentID()
	e := New(ContentLiked, 123456789012345678, at).WithContent(cid)

	data, err := e.Encode()
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, "content.liked", m["kind"])
	assert.Equal(t, "123456789012345678", m["actor"], "snowflake ids are strings on the wire")
	assert.Equal(t, cid.String(), m["content"])
	assert.NotContains(t, m, "user")
	assert.Equal(t, "2024-03-04T05:06:07Z", m["at"])
	assert.Equal(t, cid.String(), e.Key())
}

func TestEventKeyFallback(t *testing.T) {
	assert.Equal(t, "9", New(UserEdited, 1, at).WithUser(9).Key())
	assert.Equal(t, "1", New(UserRegistered, 1, at).Key())
}

func TestKafkaPublish(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)
	k := NewKafkaFromProducer(sp, "bot.events")

	sp.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var e Event
		if err := json.Unmarshal(val, &e); err != nil {
			return err
		}
		if e.Kind != UserRegistered || e.Actor != 7 {
			return errors.New("unexpected event payload")
		}
		return nil
	})
	require.NoError(t, k.Publish(context.Background(), New(UserRegistered, 7, at)))

	sp.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)
	err := k.Publish(context.Background(), New(UserRegistered, 8, at))
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)

	require.NoError(t, k.Close())
}

func TestBuildConfig(t *testing.T) {
	cfg, err := BuildConfig(KafkaConfig{Version: "2.8.0", Compression: "lz4"})
	require.NoError(t, err)
	assert.Equal(t, sarama.V2_8_0_0, cfg.Version)
	assert.Equal(t, sarama.CompressionLZ4, cfg.Producer.Compression)
	assert.Equal(t, 3, cfg.Producer.Retry.Max)
	assert.True(t, cfg.Producer.Return.Successes)

	_, err = BuildConfig(KafkaConfig{Version: "not-a-version"})
	assert.Error(t, err)
}

func TestBuildNatsMsg(t *testing.T) {
	e := New(ContentPosted, 1, at).WithContent(model.NewContentID())
	msg, err := buildMsg("pbot.events", e)
	require.NoError(t, err)
	assert.Equal(t, "pbot.events.content.posted", msg.Subject)
	assert.Equal(t, e.ID, msg.Header.Get(nats.MsgIdHdr))

	var back Event
	require.NoError(t, json.Unmarshal(msg.Data, &back))
	assert.Equal(t, e.Kind, back.Kind)
	assert.Equal(t, *e.Content, *back.Content)
}

func TestNewNatsRequiresServers(t *testing.T) {
	_, err := NewNats(NatsConfig{})
	assert.Error(t, err)
}

func TestNop(t *testing.T) {
	var p Publisher = Nop{}
	assert.NoError(t, p.Publish(context.Background(), New(UserEdited, 1, at)))
	assert.NoError(t, p.Close())
}
