// cmd/push-gateway/main.go
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/segmentio/kafka-go"

	"mercury/internal/pkg/bootstrap"
	"mercury/internal/pkg/logger"
	"mercury/internal/pkg/mq"
	"mercury/internal/pkg/redis"
	"mercury/internal/pkg/session"
	orderdomain "mercury/internal/service/order/domain"
)

const (
	serviceName     = "push-gateway"
	servicePort     = 8088
	orderEventTopic = "order-events"

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

var (
	nodeID   = serviceName + "-" + uuid.NewString()[:8]
	upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}
)

// Hub 维护本节点所有活跃的 WebSocket 连接。
type Hub struct {
	clients    map[string]*Client // key 为客户引用
	register   chan *Client
	unregister chan *Client
	lock       sync.RWMutex
}

func newHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

func (h *Hub) run() {
	for {
		select {
		case client := <-h.register:
			h.lock.Lock()
			h.clients[client.customerRef] = client
			h.lock.Unlock()
			logger.Logger.Info().Str("customer_ref", client.customerRef).Str("node", nodeID).Msg("client registered")
		case client := <-h.unregister:
			h.lock.Lock()
			if _, ok := h.clients[client.customerRef]; ok {
				delete(h.clients, client.customerRef)
				close(client.send)
			}
			h.lock.Unlock()
			logger.Logger.Info().Str("customer_ref", client.customerRef).Msg("client unregistered")
		}
	}
}

// push 把消息投递给指定客户，客户不在本节点时返回 false。
func (h *Hub) push(customerRef string, message []byte) bool {
	h.lock.RLock()
	client, ok := h.clients[customerRef]
	h.lock.RUnlock()
	if !ok {
		return false
	}
	select {
	case client.send <- message:
		return true
	default:
		// 发送缓冲已满，视为连接不健康
		return false
	}
}

// Client 代表一条 WebSocket 连接。
type Client struct {
	hub         *Hub
	conn        *websocket.Conn
	send        chan []byte
	customerRef string
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) readPump(sessionMgr *session.Manager) {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
		if err := sessionMgr.RemoveUserGateway(context.Background(), c.customerRef); err != nil {
			logger.Logger.Error().Err(err).Str("customer_ref", c.customerRef).Msg("failed to remove session")
		}
	}()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func serveWs(hub *Hub, sessionMgr *session.Manager, w http.ResponseWriter, r *http.Request) {
	customerRef := r.URL.Query().Get("customer_ref")
	if customerRef == "" {
		http.Error(w, "customer_ref is required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Logger.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &Client{hub: hub, conn: conn, send: make(chan []byte, 256), customerRef: customerRef}
	client.hub.register <- client

	if err := sessionMgr.SetUserGateway(context.Background(), customerRef, nodeID); err != nil {
		logger.Logger.Error().Err(err).Str("customer_ref", customerRef).Msg("failed to set session")
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump(sessionMgr)
}

// consumeOrderEvents 订阅订单事件并推送给在线的客户。
func consumeOrderEvents(ctx context.Context, reader *kafka.Reader, hub *Hub) {
	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Logger.Error().Err(err).Msg("could not read order event")
			continue
		}

		var event orderdomain.OrderEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			logger.Logger.Error().Err(err).Msg("failed to unmarshal order event")
			continue
		}

		if delivered := hub.push(event.Payload.CustomerRef, msg.Value); delivered {
			logger.Logger.Debug().
				Str("customer_ref", event.Payload.CustomerRef).
				Str("order_id", event.Payload.OrderID).
				Msg("order event pushed to client")
		}
	}
}

func main() {
	logger.Init(serviceName)
	bootstrap.Init()
	cfg := bootstrap.GetCurrentConfig()

	redisClient, err := redis.NewClient(cfg.Infra.RedisAddrs)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to initialize redis client")
	}
	sessionMgr := session.NewManager(redisClient)

	hub := newHub()
	go hub.run()

	reader := mq.NewKafkaReader(cfg.Infra.KafkaBrokers, orderEventTopic, "push-gateway-"+nodeID)
	defer reader.Close()
	go consumeOrderEvents(context.Background(), reader, hub)

	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		serveWs(hub, sessionMgr, w, r)
	})
	http.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	logger.Logger.Info().Str("node", nodeID).Int("port", servicePort).Msg("push gateway started")
	if err := http.ListenAndServe(":"+strconv.Itoa(servicePort), nil); err != nil {
		logger.Logger.Fatal().Err(err).Msg("push gateway server failed")
	}
}
