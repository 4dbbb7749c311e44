package handlers

import (
	socketio_types "Rally/services/socket_io/types"
	"log"
)

// HandleDisconnecting removes the user's connection from the tracking
// map. Socket room membership is torn down by the socket.io server
// itself.
func HandleDisconnecting(username string, sio *socketio_types.SocketServer) func(args ...interface{}) {
	return func(args ...interface{}) {
		log.Printf("User %s disconnecting", username)
		sio.RemoveConnection(username)
	}
}
