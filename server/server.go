package server

import (
	"encoding/json"
	"net/http"
	"net/rpc"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/wfunc/radarserver/broadcast"
	"github.com/wfunc/radarserver/logger"
	"github.com/wfunc/radarserver/models"
	"github.com/wfunc/radarserver/monitor"
	"github.com/wfunc/radarserver/network"
	"github.com/wfunc/radarserver/room"
	radar_rpc "github.com/wfunc/radarserver/rpc"
	"github.com/wfunc/radarserver/services"
	"github.com/wfunc/radarserver/session"
	"github.com/wfunc/radarserver/timer"
)

const (
	// A connection silent for longer than this is closed by the sweep; the
	// read loop then delivers its disconnect to the coordinator.
	heartbeatTimeout = 60 * time.Second
	sweepInterval    = 15 * time.Second
)

type RadarServer struct {
	addr           string
	upgrader       websocket.Upgrader
	coordinator    *room.Coordinator
	sessionManager *session.Manager
	telemetry      *services.TelemetryService
	metrics        *monitor.Monitor
	rpcServer      *radar_rpc.Server
	timers         *timer.Manager
	shutdownChan   chan struct{}
}

func NewRadarServer(addr, rpcAddr string, telemetry *services.TelemetryService, metrics *monitor.Monitor) *RadarServer {
	sessionManager := session.NewManager()
	registry := room.NewRegistry()
	broadcaster := broadcast.NewRoomStateBroadcaster(sessionManager)

	s := &RadarServer{
		addr:           addr,
		coordinator:    room.NewCoordinator(registry, broadcaster, metrics),
		sessionManager: sessionManager,
		telemetry:      telemetry,
		metrics:        metrics,
		timers:         timer.NewManager(),
		shutdownChan:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有跨域请求
			},
		},
	}

	// 初始化RPC服务器
	rpcServer, err := radar_rpc.NewServer(rpcAddr)
	if err != nil {
		logger.Log.Fatalf("Failed to create RPC server: %v", err)
	}
	s.rpcServer = rpcServer

	// 注册RPC服务
	rpc.Register(radar_rpc.NewRadarService(s.coordinator, telemetry))

	return s
}

func (s *RadarServer) Start() error {
	go s.rpcServer.Start()

	s.timers.AddTimer(sweepInterval, sweepInterval, s.sweepStaleSessions)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/coords", s.handleCoords)
	mux.HandleFunc("/health", s.handleHealth)

	logger.Log.Infof("Radar server listening on %s", s.addr)
	return http.ListenAndServe(s.addr, mux)
}

func (s *RadarServer) Shutdown() {
	close(s.shutdownChan)
	s.timers.Stop()
	s.rpcServer.Stop()
}

func (s *RadarServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(conn)
}

func (s *RadarServer) handleConnection(conn *websocket.Conn) {
	wsConn := network.NewWSConnection(conn)
	sess := session.NewSession(uuid.New().String(), wsConn)
	s.sessionManager.Add(sess)
	s.metrics.IncConnectedClients()

	logger.Log.Infof("New connection from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())

	defer func() {
		logger.Log.Infof("Connection closed from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())
		s.coordinator.Disconnect(sess.GetID())
		s.sessionManager.Remove(sess.GetID())
		s.metrics.DecConnectedClients()
		wsConn.Close()
	}()

	for {
		select {
		case <-s.shutdownChan:
			return
		default:
			packet, err := wsConn.ReadPacket()
			if err != nil {
				return
			}
			s.handlePacket(sess, packet)
		}
	}
}

func (s *RadarServer) handlePacket(sess *session.Session, packet *network.Packet) {
	start := time.Now()
	s.metrics.IncEventsReceived()
	sess.Touch()

	switch packet.MsgID {
	case network.MsgTypeHeartbeat:
		// Touch above is all a heartbeat needs.
	case network.MsgTypeJoinRoom:
		s.handleJoin(sess, packet)
	case network.MsgTypeUpdatePos:
		s.handleUpdatePos(sess, packet)
	default:
		logger.Log.Infof("Unknown message type: %d", packet.MsgID)
	}

	s.metrics.ObserveEventLatency(time.Since(start))
}

// Malformed payloads are dropped without a reply throughout: this is a
// best-effort telemetry channel, availability beats validation feedback.
func (s *RadarServer) handleJoin(sess *session.Session, packet *network.Packet) {
	var req network.JoinRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		return
	}
	role := models.Role(req.Role)
	if req.RoomID == "" || !role.Valid() {
		return
	}

	if s.coordinator.Join(sess.GetID(), req.RoomID, role) {
		logger.Log.Infof("Session %s joined room %s as %s", sess.GetID(), req.RoomID, role)
	}
}

func (s *RadarServer) handleUpdatePos(sess *session.Session, packet *network.Packet) {
	var req network.UpdatePosRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		return
	}
	pos, err := models.ParsePosition(req.Pos)
	if err != nil {
		return
	}

	if !s.coordinator.UpdatePosition(sess.GetID(), req.RoomID, pos) {
		return
	}
	if err := s.telemetry.RecordPosition(sess.GetID(), req.RoomID, pos); err != nil {
		logger.Log.Warnf("Failed to record track point for session %s: %v", sess.GetID(), err)
	}
}

// handleCoords is the secondary ingestion path: devices without a persistent
// connection POST their coordinates here. The payload carries deviceId and
// roomId plus any numeric coordinate fields (x/y, range/angle, lat/lon); the
// point feeds the same room fan-out as a socket update.
func (s *RadarServer) handleCoords(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var raw map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}

	deviceID, _ := raw["deviceId"].(string)
	roomID, _ := raw["roomId"].(string)
	if deviceID == "" || roomID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing deviceId or roomId"})
		return
	}

	coords := make(map[string]float64)
	for k, v := range raw {
		switch k {
		case "deviceId", "roomId", "ts":
			// ts is ignored: the server clock stamps the point on ingest.
			continue
		}
		f, ok := v.(float64)
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "non-numeric coordinate field: " + k})
			return
		}
		coords[k] = f
	}

	s.metrics.IncEventsReceived()
	pos := &models.Position{Coords: coords}
	if !s.coordinator.Ingest(deviceID, roomID, pos) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	if err := s.telemetry.RecordPosition(deviceID, roomID, pos); err != nil {
		logger.Log.Warnf("Failed to record track point for device %s: %v", deviceID, err)
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *RadarServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *RadarServer) sweepStaleSessions() {
	s.sessionManager.Each(func(sess *session.Session) {
		if sess.IdleFor(heartbeatTimeout) {
			logger.Log.Infof("Session %s idle for over %s, closing", sess.GetID(), heartbeatTimeout)
			sess.Close()
		}
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
