package main

import (
	"encoding/binary"
	"encoding/json"
	"flag"
	"log"
	"math"
	"net/url"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"
)

const (
	MsgTypeHeartbeat = 1
	MsgTypeJoinRoom  = 101
	MsgTypeUpdatePos = 102
	MsgTypeRoomState = 301
)

// send formats and sends a message to the WebSocket server.
func send(c *websocket.Conn, msgID uint16, data []byte) error {
	packet := make([]byte, 4+len(data))
	binary.BigEndian.PutUint16(packet[0:2], msgID)
	binary.BigEndian.PutUint16(packet[2:4], uint16(len(data)))
	copy(packet[4:], data)

	return c.WriteMessage(websocket.BinaryMessage, packet)
}

func main() {
	addr := flag.String("addr", "localhost:8080", "server address")
	roomID := flag.String("room", "demo", "room to join")
	role := flag.String("role", "host", "host or viewer")
	flag.Parse()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws"}
	log.Printf("Connecting to %s", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	done := make(chan struct{})

	// Read loop: print every room-state snapshot.
	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				log.Println("Read error:", err)
				return
			}
			if len(message) < 4 {
				log.Printf("Received invalid packet of size %d", len(message))
				continue
			}
			msgID := binary.BigEndian.Uint16(message[0:2])
			data := message[4:]
			if msgID == MsgTypeRoomState {
				log.Printf("room-state: %s", string(data))
			} else {
				log.Printf("<- RECV (ID: %d): %s", msgID, string(data))
			}
		}
	}()

	// Join the room.
	join, _ := json.Marshal(map[string]string{"roomId": *roomID, "role": *role})
	if err := send(c, MsgTypeJoinRoom, join); err != nil {
		log.Fatalf("Join failed: %v", err)
	}
	log.Printf("Joined room %s as %s", *roomID, *role)

	// Stream a synthetic circular track, one position per second.
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	start := time.Now()
	for {
		select {
		case <-done:
			return
		case <-interrupt:
			log.Println("Interrupt received, closing connection.")
			err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.Println("Write close error:", err)
			}
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		case <-ticker.C:
			angle := time.Since(start).Seconds() * math.Pi / 30 // full circle per minute
			update, _ := json.Marshal(map[string]interface{}{
				"roomId": *roomID,
				"pos": map[string]float64{
					"x": 25 * math.Cos(angle),
					"y": 25 * math.Sin(angle),
				},
			})
			if err := send(c, MsgTypeUpdatePos, update); err != nil {
				log.Println("Write error:", err)
				return
			}
		}
	}
}
