package api

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rawblock/splitscore/pkg/models"
)

func TestHubBroadcastsRuns(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub()
	go hub.Run(ctx)

	r := gin.New()
	r.GET("/stream", hub.Subscribe)
	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.NumClients() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.BroadcastRun(models.RunRecord{RunID: "run-1", Kind: models.RunPredict})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev RunEvent
	require.NoError(t, json.Unmarshal(msg, &ev))
	assert.Equal(t, "run", ev.Type)
	assert.Equal(t, "run-1", ev.Run.RunID)
}

func TestHubBroadcastDropsWhenFull(t *testing.T) {
	hub := NewHub()
	for i := 0; i < cap(hub.broadcast); i++ {
		require.True(t, hub.Broadcast([]byte("x")))
	}
	assert.False(t, hub.Broadcast([]byte("overflow")))
}
