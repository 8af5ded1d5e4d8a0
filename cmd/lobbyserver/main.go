package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/gorilla/websocket"

	"nitro-core-dx/internal/debug"
	"nitro-core-dx/internal/lobby"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	flag.Parse()

	logger := debug.NewLogger(50000)
	logger.SetComponentEnabled(debug.ComponentLobby, true)
	logger.SetMinLevel(debug.LogLevelInfo)

	srv := lobby.NewServer(logger)

	http.HandleFunc("/create", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Logf(debug.ComponentLobby, debug.LogLevelError, "upgrade /create: %v", err)
			return
		}
		defer conn.Close()
		if err := srv.HandleCreate(conn); err != nil {
			logger.Logf(debug.ComponentLobby, debug.LogLevelWarning, "create stream ended: %v", err)
		}
	})

	http.HandleFunc("/join", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Logf(debug.ComponentLobby, debug.LogLevelError, "upgrade /join: %v", err)
			return
		}
		defer conn.Close()
		if err := srv.HandleJoin(conn); err != nil {
			logger.Logf(debug.ComponentLobby, debug.LogLevelWarning, "join stream ended: %v", err)
		}
	})

	fmt.Printf("lobbyserver listening on %s\n", *addr)
	if err := http.ListenAndServe(*addr, nil); err != nil {
		logger.Logf(debug.ComponentLobby, debug.LogLevelError, "listen and serve: %v", err)
		fmt.Fprintf(os.Stderr, "lobbyserver: %v\n", err)
		os.Exit(1)
	}
}
