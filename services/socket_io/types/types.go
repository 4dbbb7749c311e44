package socketio_types

import (
	"sync"

	"github.com/zishang520/socket.io/v2/socket"
)

// SocketServer bundles the socket.io server with a username -> socket
// registry so services can push to a specific user as well as to rooms.
// The registry is mutated from concurrent connection handlers, hence
// the lock.
type SocketServer struct {
	Sio_server      *socket.Server
	UserConnections map[string]*socket.Socket
	mutex           sync.RWMutex
}

func NewSocketServer() *SocketServer {
	return &SocketServer{
		UserConnections: make(map[string]*socket.Socket),
	}
}

func (s *SocketServer) AddConnection(username string, client *socket.Socket) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.UserConnections[username] = client
}

func (s *SocketServer) RemoveConnection(username string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	delete(s.UserConnections, username)
}

func (s *SocketServer) GetConnection(username string) (*socket.Socket, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	client, exists := s.UserConnections[username]
	return client, exists
}

// EmitToUser pushes an event to one connected user. Returns false when
// the user has no live socket on this node; callers fall back to the
// persisted notification inbox.
func (s *SocketServer) EmitToUser(username string, event string, data ...interface{}) bool {
	client, ok := s.GetConnection(username)
	if !ok {
		return false
	}
	client.Emit(event, data...)
	return true
}
