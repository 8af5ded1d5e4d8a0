package lobby

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

var upgrader = websocket.Upgrader{}

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	srv := NewServer(nil)
	mux := http.NewServeMux()
	mux.HandleFunc("/create", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()
		_ = srv.HandleCreate(conn)
	})
	mux.HandleFunc("/join", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()
		_ = srv.HandleJoin(conn)
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return srv, ts
}

func dial(t *testing.T, ts *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msgType string, payload any) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(envelope{Type: msgType, Payload: raw}))
}

func recv(t *testing.T, conn *websocket.Conn, out any) string {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var e envelope
	require.NoError(t, conn.ReadJSON(&e))
	if out != nil {
		require.NoError(t, json.Unmarshal(e.Payload, out))
	}
	return e.Type
}

// TestLobbyAcceptFlow exercises spec.md §8 scenario 6: host creates a
// lobby, a joiner joins, the host accepts, and both sides observe the
// same session ID.
func TestLobbyAcceptFlow(t *testing.T) {
	_, ts := newTestServer(t)

	host := dial(t, ts, "/create")
	defer host.Close()

	send(t, host, "CreateReq", CreateReq{GameInfo: GameInfo{Title: "EXAMPLE_REV_AXX"}})
	var createResp CreateResp
	require.Equal(t, "CreateResp", recv(t, host, &createResp))
	require.NotEmpty(t, createResp.LobbyID)
	require.Len(t, createResp.LobbyID, idLength)

	joiner := dial(t, ts, "/join")
	defer joiner.Close()
	send(t, joiner, "JoinReq", JoinReq{LobbyID: createResp.LobbyID, GameInfo: GameInfo{Title: "EXAMPLE_REV_AXX"}})

	var joinInd JoinInd
	require.Equal(t, "JoinInd", recv(t, host, &joinInd))
	require.NotEmpty(t, joinInd.OpponentID)

	var joinResp JoinResp
	require.Equal(t, "JoinResp", recv(t, joiner, &joinResp))
	require.Equal(t, joinInd.OpponentID, joinResp.OpponentID)

	send(t, host, "AcceptReq", AcceptReq{OpponentID: joinInd.OpponentID})

	var acceptResp AcceptResp
	require.Equal(t, "AcceptResp", recv(t, host, &acceptResp))
	require.NotEmpty(t, acceptResp.SessionID)

	var acceptInd AcceptInd
	require.Equal(t, "AcceptInd", recv(t, joiner, &acceptInd))
	require.Equal(t, acceptResp.SessionID, acceptInd.SessionID)
}

func TestGenerateIDLengthAndAlphabet(t *testing.T) {
	id := generateID()
	require.Len(t, id, idLength)
	for _, r := range id {
		require.Contains(t, idAlphabet, string(r))
	}
}
