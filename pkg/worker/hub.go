package worker

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"sync"

	"github.com/gorilla/websocket"

	"relaymesh/pkg/addr"
	"relaymesh/pkg/model"
	"relaymesh/pkg/relay"
)

// Hub is the node-to-node message transport: it accepts inbound websocket
// connections, feeds every received message through the registry (and so
// through access control), and dials peers on demand for outbound sends.
type Hub struct {
	upgrader websocket.Upgrader
	registry *Registry

	mu    sync.Mutex
	peers map[string]*peerConn // key: host:port
}

// peerConn serializes writes to one outbound connection. gorilla permits
// a single concurrent writer per conn, so the mutex is per connection:
// a stalled peer never blocks sends to other peers.
type peerConn struct {
	conn *websocket.Conn
	wmu  sync.Mutex
}

func (p *peerConn) writeJSON(v any) error {
	p.wmu.Lock()
	defer p.wmu.Unlock()
	return p.conn.WriteJSON(v)
}

func NewHub(registry *Registry) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		registry: registry,
		peers:    map[string]*peerConn{},
	}
}

// HandleTransport upgrades an inbound peer connection and reads messages
// from it until it closes.
func (h *Hub) HandleTransport(w http.ResponseWriter, r *http.Request) {
	c, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("transport upgrade failed: %v headers=%v", err, r.Header)
		return
	}
	log.Printf("peer transport connected: %s", c.RemoteAddr())
	go h.readLoop(c)
}

func (h *Hub) readLoop(c *websocket.Conn) {
	defer func() {
		c.Close()
		log.Printf("peer transport disconnected: %s", c.RemoteAddr())
	}()
	for {
		var msg model.LocalMessage
		if err := c.ReadJSON(&msg); err != nil {
			return
		}
		if ok, err := h.registry.Deliver(context.Background(), &msg); err != nil {
			log.Printf("inbound delivery failed: %v", err)
		} else if !ok {
			log.Printf("inbound message to %s dropped", msg.OnwardRoute)
		}
	}
}

// Send carries a message toward the route's leading endpoint. The leading
// host and tcp segments select the peer connection; the remainder of the
// route becomes the message's onward path on the far side.
func (h *Hub) Send(ctx context.Context, route addr.Address, msg *model.LocalMessage) error {
	endpoint, remainder, err := splitTransport(route)
	if err != nil {
		return fmt.Errorf("%w: %v", relay.ErrTransportUnavailable, err)
	}
	p, err := h.peer(ctx, endpoint)
	if err != nil {
		return fmt.Errorf("%w: %v", relay.ErrTransportUnavailable, err)
	}
	out := model.LocalMessage{
		OnwardRoute: remainder,
		ReturnRoute: msg.ReturnRoute,
		Identity:    msg.Identity,
		Payload:     msg.Payload,
	}
	if werr := p.writeJSON(out); werr != nil {
		h.dropPeer(endpoint, p)
		return fmt.Errorf("%w: %v", relay.ErrTransportUnavailable, werr)
	}
	return nil
}

func (h *Hub) peer(ctx context.Context, endpoint string) (*peerConn, error) {
	h.mu.Lock()
	if p, ok := h.peers[endpoint]; ok {
		h.mu.Unlock()
		return p, nil
	}
	h.mu.Unlock()

	c, _, err := websocket.DefaultDialer.DialContext(ctx, "ws://"+endpoint+"/ws/transport", nil)
	if err != nil {
		return nil, err
	}
	p := &peerConn{conn: c}
	h.mu.Lock()
	if old, ok := h.peers[endpoint]; ok {
		_ = old.conn.Close()
	}
	h.peers[endpoint] = p
	h.mu.Unlock()
	go h.readLoop(c)
	return p, nil
}

func (h *Hub) dropPeer(endpoint string, p *peerConn) {
	_ = p.conn.Close()
	h.mu.Lock()
	if h.peers[endpoint] == p {
		delete(h.peers, endpoint)
	}
	h.mu.Unlock()
}

// splitTransport peels the leading host-and-port hop off a route.
func splitTransport(route addr.Address) (string, addr.Address, error) {
	segs := route.Segments()
	if len(segs) < 2 {
		return "", addr.Address{}, fmt.Errorf("route %s has no transport hop", route)
	}
	var host string
	switch segs[0].Kind {
	case addr.KindDNS:
		host = segs[0].Value
	case addr.KindIP4:
		ip, err := segs[0].IP4()
		if err != nil {
			return "", addr.Address{}, err
		}
		host = ip.String()
	case addr.KindIP6:
		ip, err := segs[0].IP6()
		if err != nil {
			return "", addr.Address{}, err
		}
		host = ip.String()
	default:
		return "", addr.Address{}, fmt.Errorf("route %s does not start with a host segment", route)
	}
	if segs[1].Kind != addr.KindTCP {
		return "", addr.Address{}, fmt.Errorf("route %s host is not followed by a tcp port", route)
	}
	port, err := segs[1].TCPPort()
	if err != nil {
		return "", addr.Address{}, err
	}
	return net.JoinHostPort(host, strconv.Itoa(int(port))), addr.New(segs[2:]...), nil
}
