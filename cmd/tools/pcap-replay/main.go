// Command pcap-replay replays captured RF frames from a packet capture
// file onto an MQTT broker's TAIL/RF topic, for exercising rtls-server
// without live DW1000 hardware. It is grounded on the teacher's
// internal/lidar/network/pcap.go UDP/pcap capture loop (gopacket.NewPacketSource
// over a handle, filtering to the UDP layer and replaying its payload),
// but reads with the pure-Go github.com/google/gopacket/pcapgo reader
// instead of the teacher's cgo/libpcap-backed pcap.OpenOffline, so this
// tool needs no libpcap at build or run time.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/banshee-data/rtls/internal/mqttbus"
)

var (
	pcapPath  = flag.String("pcap", "", "path to a pcap capture file (required)")
	domain    = flag.String("domain", "rtls", "MQTT domain to replay onto")
	anchorID  = flag.String("anchor", "0000000000000000", "anchor EUI64 to attribute replayed frames to")
	udpPort   = flag.Int("udp-port", 0, "only replay UDP packets on this port (0 = any UDP packet)")
	host      = flag.String("host", "localhost", "MQTT broker host")
	port      = flag.Int("port", 1883, "MQTT broker port")
	speed     = flag.Float64("speed", 1.0, "replay speed multiplier (0 = as fast as possible)")
)

func main() {
	flag.Parse()
	if *pcapPath == "" {
		log.Fatal("pcap-replay: -pcap is required")
	}

	if err := run(); err != nil {
		log.Fatalf("pcap-replay: %v", err)
	}
}

func run() error {
	f, err := os.Open(*pcapPath)
	if err != nil {
		return fmt.Errorf("open pcap file: %w", err)
	}
	defer f.Close()

	reader, err := pcapgo.NewReader(f)
	if err != nil {
		return fmt.Errorf("read pcap header: %w", err)
	}

	bus, err := mqttbus.Dial(mqttbus.DialOptions{Host: *host, Port: *port, ClientID: "pcap-replay"})
	if err != nil {
		return fmt.Errorf("connect to broker: %w", err)
	}
	defer bus.Close()

	topic := mqttbus.RFTopic(*domain, *anchorID)
	source := gopacket.NewPacketSource(reader, reader.LinkType())

	var last time.Time
	count := 0
	for packet := range source.Packets() {
		udp := packet.Layer(layers.LayerTypeUDP)
		if udp == nil {
			continue
		}
		u, ok := udp.(*layers.UDP)
		if !ok || len(u.Payload) == 0 {
			continue
		}
		if *udpPort != 0 && int(u.DstPort) != *udpPort && int(u.SrcPort) != *udpPort {
			continue
		}

		pacing(packet.Metadata().Timestamp, &last)

		event := mqttbus.RFEvent{
			Anchor: *anchorID,
			Dir:    mqttbus.DirRX,
			Frame:  hex.EncodeToString(u.Payload),
		}
		payload, err := mqttbus.EncodeRFEvent(event)
		if err != nil {
			log.Printf("pcap-replay: encode frame %d: %v", count, err)
			continue
		}
		if err := bus.Publish(topic, payload); err != nil {
			log.Printf("pcap-replay: publish frame %d: %v", count, err)
		}
		count++
	}

	fmt.Printf("replayed %d frames onto %s\n", count, topic)
	return nil
}

// pacing sleeps long enough to reproduce the capture's inter-packet
// gap, scaled by -speed; speed 0 disables pacing entirely.
func pacing(ts time.Time, last *time.Time) {
	if *speed <= 0 {
		*last = ts
		return
	}
	if !last.IsZero() {
		gap := ts.Sub(*last)
		if gap > 0 {
			time.Sleep(time.Duration(float64(gap) / *speed))
		}
	}
	*last = ts
}
