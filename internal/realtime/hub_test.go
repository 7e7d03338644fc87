package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procurehub/auctiond/internal/entity"
	"github.com/procurehub/auctiond/internal/service/ranking"
)

type stubSnapshots map[string][]ranking.Entry

func (s stubSnapshots) Ranking(_ context.Context, auctionID, supplierID string) ([]ranking.Entry, error) {
	entries := s[auctionID]
	if supplierID != "" {
		return ranking.ForSupplier(entries, supplierID), nil
	}
	return entries, nil
}

func entry(supplier string, rank int, cost int64) ranking.Entry {
	return ranking.Entry{
		SupplierID: supplier,
		BidID:      "bid-" + supplier,
		TotalCost:  decimal.NewFromInt(cost),
		Rank:       rank,
		Currency:   "GBP",
	}
}

func newTestHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(nil)
	hub.SetSnapshotProvider(stubSnapshots{
		"a1": {entry("s1", 1, 100), entry("s2", 2, 200)},
	})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auctionID := r.URL.Query().Get("auctionId")
		supplierID := r.URL.Query().Get("supplierId")
		_ = hub.Serve(w, r, auctionID, supplierID)
	}))
	t.Cleanup(srv.Close)
	return hub, srv
}

func dialRoom(t *testing.T, srv *httptest.Server, auctionID, supplierID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?auctionId=" + auctionID
	if supplierID != "" {
		url += "&supplierId=" + supplierID
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg Message
	require.NoError(t, json.Unmarshal(payload, &msg))
	return msg
}

func TestJoinReceivesSnapshot(t *testing.T) {
	_, srv := newTestHub(t)
	conn := dialRoom(t, srv, "a1", "")

	msg := readMessage(t, conn)
	assert.Equal(t, TypeSnapshot, msg.Type)
	assert.Equal(t, "a1", msg.AuctionID)
	require.Len(t, msg.Entries, 2)
	assert.Equal(t, 1, msg.Entries[0].Rank)
}

func TestJoinSnapshotFilteredBySupplier(t *testing.T) {
	_, srv := newTestHub(t)
	conn := dialRoom(t, srv, "a1", "s2")

	msg := readMessage(t, conn)
	assert.Equal(t, TypeSnapshot, msg.Type)
	require.Len(t, msg.Entries, 1)
	assert.Equal(t, "s2", msg.Entries[0].SupplierID)
	assert.Equal(t, 2, msg.Entries[0].Rank)
}

func TestBroadcastRankingReachesWholeRoom(t *testing.T) {
	hub, srv := newTestHub(t)
	first := dialRoom(t, srv, "a1", "")
	second := dialRoom(t, srv, "a1", "")
	readMessage(t, first)
	readMessage(t, second)

	hub.BroadcastRanking("a1", []ranking.Entry{entry("s2", 1, 90)})

	for _, conn := range []*websocket.Conn{first, second} {
		msg := readMessage(t, conn)
		assert.Equal(t, TypeRankingUpdate, msg.Type)
		require.Len(t, msg.Entries, 1)
		assert.Equal(t, "s2", msg.Entries[0].SupplierID)
	}
}

func TestBroadcastScopedToRoom(t *testing.T) {
	hub, srv := newTestHub(t)
	other := dialRoom(t, srv, "a2", "")
	readMessage(t, other)

	hub.BroadcastRanking("a1", []ranking.Entry{entry("s1", 1, 90)})

	other.SetReadDeadline(time.Now().Add(150 * time.Millisecond))
	_, _, err := other.ReadMessage()
	assert.Error(t, err, "other rooms must not receive the update")
}

func TestBroadcastStatus(t *testing.T) {
	hub, srv := newTestHub(t)
	conn := dialRoom(t, srv, "a1", "")
	readMessage(t, conn)

	hub.BroadcastStatus("a1", entity.StatusEnded)

	msg := readMessage(t, conn)
	assert.Equal(t, TypeStatusUpdate, msg.Type)
	assert.Equal(t, entity.StatusEnded, msg.Status)
	assert.Empty(t, msg.Entries)
}

func TestDisconnectLeavesRoom(t *testing.T) {
	hub, srv := newTestHub(t)
	conn := dialRoom(t, srv, "a1", "")
	readMessage(t, conn)
	require.Equal(t, 1, hub.RoomSize("a1"))

	conn.Close()
	deadline := time.Now().Add(2 * time.Second)
	for hub.RoomSize("a1") != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	assert.Zero(t, hub.RoomSize("a1"))
}
