package livestream

import (
	"context"
	"sync"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/banshee-data/rtls/internal/monitoring"
	"github.com/banshee-data/rtls/internal/mqttbus"
	"github.com/banshee-data/rtls/internal/ranging"
)

// clientBuffer bounds how many unconsumed updates a slow client may
// accumulate before updates are dropped for it, the same backpressure
// shape as the teacher's visualiser per-client channel subscription
// (simplified: drop-newest instead of the teacher's hysteresis
// skip-mode, since coordinate updates are small and frequent enough that
// dropping one is harmless).
const clientBuffer = 32

// Server implements CoordinatesServer. It subscribes to the ranging
// server's domain-wide COORD topic and fans every published coordinate
// out to every currently streaming gRPC client.
type Server struct {
	domain string
	bus    mqttbus.Bus
	srv    *ranging.Server

	mu      sync.Mutex
	clients map[chan *structpb.Struct]string // chan -> tag filter ("" = all)
}

// NewServer creates a livestream Server bound to domain's COORD topic
// tree on bus, reporting roster state from srv.
func NewServer(domain string, bus mqttbus.Bus, srv *ranging.Server) *Server {
	return &Server{
		domain:  domain,
		bus:     bus,
		srv:     srv,
		clients: make(map[chan *structpb.Struct]string),
	}
}

// Start subscribes to the domain's coordinate topic. It does not block.
func (s *Server) Start() error {
	return s.bus.Subscribe(mqttbus.CoordTopic(s.domain, "+"), s.handleCoord)
}

func (s *Server) handleCoord(topic string, payload []byte) {
	msg, err := mqttbus.DecodeCoordMessage(payload)
	if err != nil {
		monitoring.Logf("livestream: decode coord message on %s: %v", topic, err)
		return
	}
	update, err := structpb.NewStruct(map[string]any{
		"tag":      msg.Tag,
		"name":     msg.Name,
		"coord":    []any{msg.Coord[0], msg.Coord[1], msg.Coord[2]},
		"filtered": []any{msg.Filtered[0], msg.Filtered[1], msg.Filtered[2]},
	})
	if err != nil {
		monitoring.Logf("livestream: build update struct: %v", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for ch, filter := range s.clients {
		if filter != "" && filter != msg.Tag {
			continue
		}
		select {
		case ch <- update:
		default:
			monitoring.Logf("livestream: dropping update for slow client (tag filter %q)", filter)
		}
	}
}

func (s *Server) subscribe(tagFilter string) chan *structpb.Struct {
	ch := make(chan *structpb.Struct, clientBuffer)
	s.mu.Lock()
	s.clients[ch] = tagFilter
	s.mu.Unlock()
	return ch
}

func (s *Server) unsubscribe(ch chan *structpb.Struct) {
	s.mu.Lock()
	delete(s.clients, ch)
	s.mu.Unlock()
}

// StreamCoordinates implements CoordinatesServer.
func (s *Server) StreamCoordinates(req *structpb.Struct, stream Coordinates_StreamCoordinatesServer) error {
	tagFilter := ""
	if req != nil {
		if v, ok := req.Fields["tag"]; ok {
			tagFilter = v.GetStringValue()
		}
	}

	ch := s.subscribe(tagFilter)
	defer s.unsubscribe(ch)

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update := <-ch:
			if err := stream.Send(update); err != nil {
				return err
			}
		}
	}
}

// Roster implements CoordinatesServer.
func (s *Server) Roster(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	anchors := s.srv.Anchors()
	anchorNames := make([]any, 0, len(anchors))
	for _, a := range anchors {
		anchorNames = append(anchorNames, a.Name)
	}

	tags := s.srv.Tags()
	tagNames := make([]any, 0, len(tags))
	for _, t := range tags {
		tagNames = append(tagNames, t.Name)
	}

	return structpb.NewStruct(map[string]any{
		"anchors": anchorNames,
		"tags":    tagNames,
	})
}
