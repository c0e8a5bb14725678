package report

import (
	"context"
	"testing"
	"time"

	natstest "github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/wonny/twscan/pkg/logger"
)

const reportSubject = "twscan.reports"

func TestNATSSink_PublishesReport(t *testing.T) {
	srv := natstest.RunRandClientPortServer()
	defer srv.Shutdown()

	sub, err := nats.Connect(srv.ClientURL())
	require.NoError(t, err)
	defer sub.Close()

	msgs := make(chan *nats.Msg, 4)
	_, err = sub.ChanSubscribe(reportSubject, msgs)
	require.NoError(t, err)
	require.NoError(t, sub.Flush())

	sink, err := NewNATSSink(srv.ClientURL(), reportSubject, logger.Nop())
	require.NoError(t, err)
	defer sink.Close()
	assert.Equal(t, "nats", sink.Name())

	// no deadline on the context: Write supplies its own for the flush
	require.NoError(t, sink.Write(context.Background(), sampleReport()))

	select {
	case msg := <-msgs:
		body := gjson.ParseBytes(msg.Data)
		assert.Equal(t, "0d6c5c1e-8a34-4a4b-9a0e-3c1f3f1f0001", body.Get("run_id").String())
		assert.Equal(t, int64(3), body.Get("rows.#").Int())
		assert.Equal(t, "2330", body.Get("rows.0.code").String())
		assert.Equal(t, "GREEN", body.Get("rows.0.signal").String())
		assert.Equal(t, 23.456, body.Get("rows.0.k").Float())
		assert.Equal(t, gjson.Null, body.Get("rows.1.rsi").Type)
		assert.Equal(t, "9999", body.Get("skipped.0.code").String())
	case <-time.After(2 * time.Second):
		t.Fatal("report was not published")
	}
}

func TestNATSSink_ConnectFailure(t *testing.T) {
	srv := natstest.RunRandClientPortServer()
	url := srv.ClientURL()
	srv.Shutdown()

	_, err := NewNATSSink(url, reportSubject, logger.Nop())
	assert.Error(t, err)
}
