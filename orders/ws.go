package orders

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"verdant/middleware"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins — adjust for production if needed
		return true
	},
}

var (
	subscribers = make(map[string][]*websocket.Conn)
	mu          sync.Mutex
)

// HandleOrderWS keeps a connection open for live status updates on one order.
// Browsers cannot set headers on websocket requests, so the token rides in
// the query string; only the order's customer or farmer may subscribe.
func HandleOrderWS(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	orderID := ps.ByName("orderid")

	token := r.URL.Query().Get("token")
	if token == "" {
		token = r.Header.Get("Authorization")
	}
	claims, err := middleware.ValidateJWT(token)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if _, err := loadOrderFor(ctx, orderID, claims.UserID); err != nil {
		writeOrderError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, "WebSocket upgrade failed", http.StatusBadRequest)
		return
	}

	mu.Lock()
	subscribers[orderID] = append(subscribers[orderID], conn)
	mu.Unlock()

	for {
		// This keeps the connection alive until the client disconnects
		_, _, err := conn.ReadMessage()
		if err != nil {
			break
		}
	}

	// Clean up on disconnect
	mu.Lock()
	conns := subscribers[orderID]
	newList := make([]*websocket.Conn, 0, len(conns))
	for _, c := range conns {
		if c != conn {
			newList = append(newList, c)
		}
	}
	subscribers[orderID] = newList
	mu.Unlock()

	conn.Close()
}

// BroadcastStatus pushes a status change to every watcher of the order.
func BroadcastStatus(orderID, status string) {
	payload, err := json.Marshal(map[string]string{
		"orderId": orderID,
		"status":  status,
	})
	if err != nil {
		log.Println("BroadcastStatus marshal error:", err)
		return
	}

	mu.Lock()
	defer mu.Unlock()

	conns := subscribers[orderID]
	newList := conns[:0]

	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err == nil {
			newList = append(newList, conn)
		} else {
			conn.Close()
		}
	}

	subscribers[orderID] = newList
}
