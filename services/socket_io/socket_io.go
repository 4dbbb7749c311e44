package socket_io

import (
	redisservice "Rally/services/redis"
	"Rally/services/chatroom"
	"Rally/services/socket_io/handlers"
	socketio_types "Rally/services/socket_io/types"
	socketio_utils "Rally/services/socket_io/utils"
	"Rally/services/stream"
	"context"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/gin-gonic/gin"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io/v2/socket"
)

type MySocketServer struct {
	socketio_types.SocketServer

	// bridgeStop tears down the cross-node relay goroutine on Close.
	bridgeStop context.CancelFunc
}

// Start mounts the socket.io server on the gin router and registers the
// per-connection event handlers.
func (sio *MySocketServer) Start(router *gin.Engine, db *gorm.DB, redisClient *redisservice.RedisClient,
	manager *chatroom.Manager, msgStream *stream.Stream) {

	c := socket.DefaultServerOptions()
	c.SetServeClient(true)
	// NOTE: higher ping interval and timeout to 1) reduce network load and 2) support slower networks
	c.SetPingInterval(5 * time.Second)
	c.SetPingTimeout(3 * time.Second)
	c.SetMaxHttpBufferSize(1000000)
	c.SetConnectTimeout(10 * time.Second)
	c.SetTransports(types.NewSet("polling", "websocket"))
	c.SetCors(&types.Cors{
		Origin:      "*",
		Credentials: true,
	})

	sio.UserConnections = make(map[string]*socket.Socket)

	sio.Sio_server = socket.NewServer(nil, nil)
	sio.Sio_server.On("connection", func(clients ...interface{}) {
		client := clients[0].(*socket.Socket)

		// Check if the client is authenticated
		success, username, _ := socketio_utils.VerifyUserConnection(client, db)
		if !success {
			return
		}

		sio.AddConnection(username, client)
		log.Printf("Socket connected: %s", username)

		// Join the socket room of a game chatroom
		client.On("join_chatroom", handlers.HandleJoinChatroom(manager, client, username))

		// Send a chat message into a chatroom
		client.On("chat_message", handlers.HandleChatMessage(manager, msgStream, &sio.SocketServer, client, username))

		// Get participants/expiry of a chatroom
		client.On("get_chatroom_info", handlers.GetChatroomInfo(manager, client, username))

		// NOTE: will remove sio connection from map
		client.On("disconnecting", handlers.HandleDisconnecting(username, &sio.SocketServer))
	})

	router.POST("/socket.io/*f", gin.WrapH(sio.Sio_server.ServeHandler(c)))
	router.GET("/socket.io/*f", gin.WrapH(sio.Sio_server.ServeHandler(c)))

	// Relay messages published by other nodes into local socket rooms
	bridgeCtx, stop := context.WithCancel(context.Background())
	sio.bridgeStop = stop
	go sio.runBridge(bridgeCtx, redisClient)

	log.Println("Socket server started")
}

// Close stops the relay goroutine and shuts the socket.io server down.
func (sio *MySocketServer) Close() {
	if sio.bridgeStop != nil {
		sio.bridgeStop()
	}
	if sio.Sio_server != nil {
		sio.Sio_server.Close(nil)
	}
}
