package rpc

import (
	"net"
	"net/rpc"

	"github.com/wfunc/radarserver/logger"
	"github.com/wfunc/radarserver/models"
	"github.com/wfunc/radarserver/room"
	"github.com/wfunc/radarserver/services"
)

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	address  string
}

// NewServer creates a new RPC server. Services are registered separately by
// the caller via net/rpc.Register.
func NewServer(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  addr,
	}, nil
}

// Start begins listening for RPC requests.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			// Check if the error is due to the listener being closed.
			if _, ok := err.(*net.OpError); ok {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// RadarService exposes operational queries over net/rpc: room stats from the
// live coordinator and device tracks from the telemetry store.
type RadarService struct {
	coordinator *room.Coordinator
	telemetry   *services.TelemetryService
}

func NewRadarService(coordinator *room.Coordinator, telemetry *services.TelemetryService) *RadarService {
	return &RadarService{
		coordinator: coordinator,
		telemetry:   telemetry,
	}
}

type RoomStatsArgs struct {
	RoomID string
}

type RoomStatsReply struct {
	Exists  bool
	Members int
	HostID  string
}

func (rs *RadarService) GetRoomStats(args *RoomStatsArgs, reply *RoomStatsReply) error {
	stats, exists := rs.coordinator.RoomStats(args.RoomID)
	reply.Exists = exists
	reply.Members = stats.Members
	reply.HostID = stats.HostID
	return nil
}

type ServerStatsArgs struct{}

type ServerStatsReply struct {
	Rooms        int
	Participants int
}

func (rs *RadarService) GetServerStats(args *ServerStatsArgs, reply *ServerStatsReply) error {
	reply.Rooms, reply.Participants = rs.coordinator.Stats()
	return nil
}

type DeviceTrackArgs struct {
	DeviceID string
	Limit    int
}

type DeviceTrackReply struct {
	Points []models.TrackPoint
}

func (rs *RadarService) GetDeviceTrack(args *DeviceTrackArgs, reply *DeviceTrackReply) error {
	points, err := rs.telemetry.DeviceTrack(args.DeviceID, args.Limit)
	if err != nil {
		return err
	}
	reply.Points = points
	return nil
}
