// Package gossip implements the libp2p-pubsub layer consignments travel
// over between peers: schemas, genesis operations, transitions, and
// anchors each get their own topic so a peer can subscribe to only the
// traffic it cares about (spec.md §2 "out of scope: transport/gossip
// protocol for consignment exchange" — this package is the host-level
// wiring SPEC_FULL.md adds around that boundary, never imported by the
// validator itself).
package gossip

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/libp2p/go-libp2p"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	multiaddr "github.com/multiformats/go-multiaddr"
)

// Topic names. A peer can join any subset; SchemaTopic is usually joined
// first since genesis/transition messages are meaningless without the
// schema they claim conformance to.
const (
	SchemaTopic     = "rgbcore/schemas"
	GenesisTopic    = "rgbcore/genesis"
	TransitionTopic = "rgbcore/transitions"
	AnchorTopic     = "rgbcore/anchors"
)

// MessageHandler processes one strict-encoded payload received on a topic.
type MessageHandler func(ctx context.Context, msg *pubsub.Message) error

// Config holds node configuration.
type Config struct {
	ListenAddrs    []string
	BootstrapPeers []string
	PrivateKey     crypto.PrivKey
	MaxPeers       int
}

// DefaultConfig returns a single-listener, no-bootstrap configuration
// suitable for a node that will be told its peers out of band.
func DefaultConfig() *Config {
	return &Config{
		ListenAddrs: []string{"/ip4/0.0.0.0/tcp/4001"},
		MaxPeers:    50,
	}
}

// Node is one peer in the consignment gossip network: a libp2p host plus
// the four topics it exchanges schema/genesis/transition/anchor messages
// over. Like internal/store, a Node never validates anything it
// receives — it's the host binary's job to feed gossiped bytes through
// pkg/validator before trusting them.
type Node struct {
	mu sync.RWMutex

	host   host.Host
	pubsub *pubsub.PubSub

	schemaTopic     *pubsub.Topic
	genesisTopic    *pubsub.Topic
	transitionTopic *pubsub.Topic
	anchorTopic     *pubsub.Topic

	schemaSub     *pubsub.Subscription
	genesisSub    *pubsub.Subscription
	transitionSub *pubsub.Subscription
	anchorSub     *pubsub.Subscription

	schemaHandler     MessageHandler
	genesisHandler    MessageHandler
	transitionHandler MessageHandler
	anchorHandler     MessageHandler

	peers    map[peer.ID]*PeerInfo
	maxPeers int

	ctx    context.Context
	cancel context.CancelFunc
}

// PeerInfo tracks a connected peer's addresses and liveness.
type PeerInfo struct {
	ID          peer.ID
	Addrs       []multiaddr.Multiaddr
	ConnectedAt time.Time
	LastSeen    time.Time
}

// NewNode creates and starts a libp2p host subscribed to every gossip
// topic, connecting to cfg's bootstrap peers. Discovery beyond the
// explicit bootstrap list (DHT, mDNS) is out of scope here — this repo's
// dependency surface commits to go-libp2p and go-libp2p-pubsub, not a
// DHT implementation, so peers are configured rather than found
// (DESIGN.md records the tradeoff).
func NewNode(ctx context.Context, cfg *Config) (*Node, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	nodeCtx, cancel := context.WithCancel(ctx)

	privKey := cfg.PrivateKey
	if privKey == nil {
		var err error
		privKey, _, err = crypto.GenerateKeyPairWithReader(crypto.Ed25519, -1, rand.Reader)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("gossip: generate key: %w", err)
		}
	}

	listenAddrs := make([]multiaddr.Multiaddr, len(cfg.ListenAddrs))
	for i, addr := range cfg.ListenAddrs {
		ma, err := multiaddr.NewMultiaddr(addr)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("gossip: invalid listen address %q: %w", addr, err)
		}
		listenAddrs[i] = ma
	}

	h, err := libp2p.New(
		libp2p.Identity(privKey),
		libp2p.ListenAddrs(listenAddrs...),
		libp2p.EnableNATService(),
		libp2p.EnableRelay(),
	)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("gossip: create host: %w", err)
	}

	ps, err := pubsub.NewGossipSub(nodeCtx, h)
	if err != nil {
		h.Close()
		cancel()
		return nil, fmt.Errorf("gossip: create pubsub: %w", err)
	}

	n := &Node{
		host:     h,
		pubsub:   ps,
		peers:    make(map[peer.ID]*PeerInfo),
		maxPeers: cfg.MaxPeers,
		ctx:      nodeCtx,
		cancel:   cancel,
	}

	h.Network().Notify(&network.NotifyBundle{
		ConnectedF:    n.onPeerConnected,
		DisconnectedF: n.onPeerDisconnected,
	})

	if err := n.joinTopics(); err != nil {
		n.Close()
		return nil, fmt.Errorf("gossip: join topics: %w", err)
	}

	for _, addr := range cfg.BootstrapPeers {
		if err := n.connectToPeer(addr); err != nil {
			fmt.Printf("gossip: bootstrap peer %s unreachable: %v\n", addr, err)
		}
	}

	return n, nil
}

func (n *Node) joinTopics() error {
	var err error

	n.schemaTopic, err = n.pubsub.Join(SchemaTopic)
	if err != nil {
		return fmt.Errorf("join %s: %w", SchemaTopic, err)
	}
	n.schemaSub, err = n.schemaTopic.Subscribe()
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", SchemaTopic, err)
	}

	n.genesisTopic, err = n.pubsub.Join(GenesisTopic)
	if err != nil {
		return fmt.Errorf("join %s: %w", GenesisTopic, err)
	}
	n.genesisSub, err = n.genesisTopic.Subscribe()
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", GenesisTopic, err)
	}

	n.transitionTopic, err = n.pubsub.Join(TransitionTopic)
	if err != nil {
		return fmt.Errorf("join %s: %w", TransitionTopic, err)
	}
	n.transitionSub, err = n.transitionTopic.Subscribe()
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", TransitionTopic, err)
	}

	n.anchorTopic, err = n.pubsub.Join(AnchorTopic)
	if err != nil {
		return fmt.Errorf("join %s: %w", AnchorTopic, err)
	}
	n.anchorSub, err = n.anchorTopic.Subscribe()
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", AnchorTopic, err)
	}

	return nil
}

// Start launches the per-topic message loops. Call after setting whatever
// handlers the host cares about.
func (n *Node) Start() {
	go n.processMessages(n.schemaSub, n.schemaHandler)
	go n.processMessages(n.genesisSub, n.genesisHandler)
	go n.processMessages(n.transitionSub, n.transitionHandler)
	go n.processMessages(n.anchorSub, n.anchorHandler)
	go n.pruneStaleLoop()
}

func (n *Node) processMessages(sub *pubsub.Subscription, handler MessageHandler) {
	for {
		msg, err := sub.Next(n.ctx)
		if err != nil {
			if n.ctx.Err() != nil {
				return
			}
			continue
		}
		if msg.ReceivedFrom == n.host.ID() {
			continue
		}

		n.mu.Lock()
		if p, ok := n.peers[msg.ReceivedFrom]; ok {
			p.LastSeen = time.Now()
		}
		n.mu.Unlock()

		if handler != nil {
			if err := handler(n.ctx, msg); err != nil {
				fmt.Printf("gossip: handler error: %v\n", err)
			}
		}
	}
}

func (n *Node) pruneStaleLoop() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-n.ctx.Done():
			return
		case <-ticker.C:
			n.pruneStale()
		}
	}
}

func (n *Node) pruneStale() {
	n.mu.Lock()
	defer n.mu.Unlock()
	threshold := time.Now().Add(-5 * time.Minute)
	for id, p := range n.peers {
		if p.LastSeen.Before(threshold) {
			n.host.Network().ClosePeer(id)
			delete(n.peers, id)
		}
	}
}

// SetSchemaHandler sets the handler invoked for each gossiped schema.
func (n *Node) SetSchemaHandler(h MessageHandler) { n.schemaHandler = h }

// SetGenesisHandler sets the handler invoked for each gossiped genesis.
func (n *Node) SetGenesisHandler(h MessageHandler) { n.genesisHandler = h }

// SetTransitionHandler sets the handler invoked for each gossiped transition.
func (n *Node) SetTransitionHandler(h MessageHandler) { n.transitionHandler = h }

// SetAnchorHandler sets the handler invoked for each gossiped anchor.
func (n *Node) SetAnchorHandler(h MessageHandler) { n.anchorHandler = h }

// PublishSchema broadcasts a strict-encoded schema.
func (n *Node) PublishSchema(data []byte) error { return n.schemaTopic.Publish(n.ctx, data) }

// PublishGenesis broadcasts a strict-encoded genesis operation.
func (n *Node) PublishGenesis(data []byte) error { return n.genesisTopic.Publish(n.ctx, data) }

// PublishTransition broadcasts a strict-encoded transition.
func (n *Node) PublishTransition(data []byte) error { return n.transitionTopic.Publish(n.ctx, data) }

// PublishAnchor broadcasts a strict-encoded anchor.
func (n *Node) PublishAnchor(data []byte) error { return n.anchorTopic.Publish(n.ctx, data) }

func (n *Node) connectToPeer(addr string) error {
	ma, err := multiaddr.NewMultiaddr(addr)
	if err != nil {
		return err
	}
	info, err := peer.AddrInfoFromP2pAddr(ma)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(n.ctx, 10*time.Second)
	defer cancel()
	if err := n.host.Connect(ctx, *info); err != nil {
		return err
	}
	n.addPeer(info.ID, info.Addrs)
	return nil
}

func (n *Node) addPeer(id peer.ID, addrs []multiaddr.Multiaddr) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.peers[id] = &PeerInfo{ID: id, Addrs: addrs, ConnectedAt: time.Now(), LastSeen: time.Now()}
}

func (n *Node) onPeerConnected(_ network.Network, conn network.Conn) {
	n.addPeer(conn.RemotePeer(), []multiaddr.Multiaddr{conn.RemoteMultiaddr()})
}

func (n *Node) onPeerDisconnected(_ network.Network, conn network.Conn) {
	n.mu.Lock()
	delete(n.peers, conn.RemotePeer())
	n.mu.Unlock()
}

// ID returns the node's own peer id.
func (n *Node) ID() peer.ID { return n.host.ID() }

// Addrs returns the node's listen addresses.
func (n *Node) Addrs() []multiaddr.Multiaddr { return n.host.Addrs() }

// PeerCount reports the number of tracked peers.
func (n *Node) PeerCount() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.peers)
}

// Close shuts the node down.
func (n *Node) Close() error {
	n.cancel()
	for _, sub := range []*pubsub.Subscription{n.schemaSub, n.genesisSub, n.transitionSub, n.anchorSub} {
		if sub != nil {
			sub.Cancel()
		}
	}
	return n.host.Close()
}
