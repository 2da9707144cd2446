package connection

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/smukkama/weather-monitor/internal/metrics"
)

// Sink is the outbound side of a live client. Send must not block.
type Sink interface {
	Send(payload []byte) error
	Close() error
}

// ClientInfo holds information about a connected client
type ClientInfo struct {
	ConnectionID  string
	RemoteAddr    string
	City          string // empty means all cities
	ConnectedAt   time.Time
	LastHeardFrom time.Time
	Sink          Sink
	mu            sync.RWMutex
}

// UpdateLastHeardFrom updates the last activity timestamp
func (c *ClientInfo) UpdateLastHeardFrom() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.LastHeardFrom = time.Now()
}

// GetLastHeardFrom returns the last activity timestamp
func (c *ClientInfo) GetLastHeardFrom() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.LastHeardFrom
}

// Manager is the registry of live WebSocket clients
type Manager struct {
	clients  map[string]*ClientInfo // key: connection_id
	byCity   map[string][]string    // key: lowercased city filter ("" for unfiltered), value: []connection_id
	mu       sync.RWMutex
	maxConns int
}

// NewManager creates a new connection manager
func NewManager(maxConnections int) *Manager {
	return &Manager{
		clients:  make(map[string]*ClientInfo),
		byCity:   make(map[string][]string),
		maxConns: maxConnections,
	}
}

// Register adds a new client connection
func (m *Manager) Register(connectionID, remoteAddr, city string, sink Sink) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Check max connections
	if m.maxConns > 0 && len(m.clients) >= m.maxConns {
		return ErrMaxConnectionsReached
	}

	if _, exists := m.clients[connectionID]; exists {
		return fmt.Errorf("connection ID %s already registered", connectionID)
	}

	now := time.Now()
	m.clients[connectionID] = &ClientInfo{
		ConnectionID:  connectionID,
		RemoteAddr:    remoteAddr,
		City:          city,
		ConnectedAt:   now,
		LastHeardFrom: now,
		Sink:          sink,
	}
	key := strings.ToLower(city)
	m.byCity[key] = append(m.byCity[key], connectionID)

	metrics.WebSocketConnections.Set(float64(len(m.clients)))
	return nil
}

// Unregister removes a client connection. It does not close the sink.
func (m *Manager) Unregister(connectionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.unregisterLocked(connectionID)
}

func (m *Manager) unregisterLocked(connectionID string) error {
	client, exists := m.clients[connectionID]
	if !exists {
		return ErrConnectionNotFound
	}

	key := strings.ToLower(client.City)
	connIDs := m.byCity[key]
	for i, id := range connIDs {
		if id == connectionID {
			m.byCity[key] = append(connIDs[:i], connIDs[i+1:]...)
			break
		}
	}
	if len(m.byCity[key]) == 0 {
		delete(m.byCity, key)
	}

	delete(m.clients, connectionID)
	metrics.WebSocketConnections.Set(float64(len(m.clients)))
	return nil
}

// UpdateActivity updates the last heard from timestamp for a connection
func (m *Manager) UpdateActivity(connectionID string) error {
	m.mu.RLock()
	client, exists := m.clients[connectionID]
	m.mu.RUnlock()

	if !exists {
		return ErrConnectionNotFound
	}

	client.UpdateLastHeardFrom()
	return nil
}

// Broadcast sends payload to the clients filtered to city plus the unfiltered
// ones. An empty city reaches every client. Clients whose sink fails are
// removed and closed; the rest still receive the payload. It returns the
// number of successful deliveries.
func (m *Manager) Broadcast(city string, payload []byte) int {
	m.mu.RLock()
	targets := m.targetsLocked(city)
	m.mu.RUnlock()

	delivered := 0
	var failed []*ClientInfo
	for _, client := range targets {
		if err := client.Sink.Send(payload); err != nil {
			failed = append(failed, client)
			continue
		}
		delivered++
	}

	if len(failed) > 0 {
		m.mu.Lock()
		for _, client := range failed {
			m.unregisterLocked(client.ConnectionID)
		}
		m.mu.Unlock()

		for _, client := range failed {
			client.Sink.Close()
		}
	}

	return delivered
}

func (m *Manager) targetsLocked(city string) []*ClientInfo {
	if city == "" {
		targets := make([]*ClientInfo, 0, len(m.clients))
		for _, client := range m.clients {
			targets = append(targets, client)
		}
		return targets
	}

	filtered, unfiltered := m.byCity[strings.ToLower(city)], m.byCity[""]
	targets := make([]*ClientInfo, 0, len(filtered)+len(unfiltered))
	for _, ids := range [][]string{filtered, unfiltered} {
		for _, id := range ids {
			targets = append(targets, m.clients[id])
		}
	}
	return targets
}

// Count returns the total number of active connections
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// CloseAll closes and removes every client
func (m *Manager) CloseAll() {
	m.mu.Lock()
	clients := make([]*ClientInfo, 0, len(m.clients))
	for id, client := range m.clients {
		clients = append(clients, client)
		m.unregisterLocked(id)
	}
	m.mu.Unlock()

	for _, client := range clients {
		client.Sink.Close()
	}
}

// Stats returns statistics about the connection manager
func (m *Manager) Stats() ManagerStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := ManagerStats{
		TotalConnections: len(m.clients),
		FilteredCities:   len(m.byCity),
		MaxConnections:   m.maxConns,
	}
	if _, ok := m.byCity[""]; ok {
		stats.FilteredCities--
	}

	now := time.Now()
	for _, client := range m.clients {
		if idle := now.Sub(client.GetLastHeardFrom()); idle > stats.MaxIdle {
			stats.MaxIdle = idle
		}
	}
	return stats
}

// ManagerStats contains statistics about the connection manager
type ManagerStats struct {
	TotalConnections int           `json:"total_connections"`
	FilteredCities   int           `json:"filtered_cities"`
	MaxConnections   int           `json:"max_connections"`
	MaxIdle          time.Duration `json:"max_idle"` // longest time since any client was heard from
}

var (
	ErrMaxConnectionsReached = &ConnectionError{"maximum connections reached"}
	ErrConnectionNotFound    = &ConnectionError{"connection not found"}
)

// ConnectionError represents a connection error
type ConnectionError struct {
	msg string
}

func (e *ConnectionError) Error() string {
	return e.msg
}
