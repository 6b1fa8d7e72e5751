// Package config parses the YAML configuration consumed by the server
// and anchor daemons (spec §6). It mirrors the teacher's TuningConfig
// shape: every field is an optional pointer, Get* accessors supply the
// documented default, and Validate() rejects out-of-range values before
// a daemon starts.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/rtls/internal/eui64"
	"github.com/banshee-data/rtls/internal/ranging"
	"github.com/banshee-data/rtls/internal/tdoa"
)

// AnchorEntry is one entry of the top-level "anchors:" list.
type AnchorEntry struct {
	Name   string     `yaml:"name"`
	EUI64  string     `yaml:"eui64"`
	Coord  [3]float64 `yaml:"coord"`
}

// TagEntry is one entry of the top-level "tags:" list.
type TagEntry struct {
	Name  string `yaml:"name"`
	EUI64 string `yaml:"eui64"`
}

type anchorSection struct {
	MQTTDomain *string `yaml:"mqtt_domain,omitempty"`
	MQTTHost   *string `yaml:"mqtt_host,omitempty"`
	MQTTPort   *int    `yaml:"mqtt_port,omitempty"`

	// EUI64/Name/SerialPort identify this anchor daemon itself and its
	// serial control channel to the DW1000 carrier board. Not part of
	// §6's documented key list (which only covers the MQTT endpoint
	// anchord talks to), but cmd/anchord needs its own identity and
	// device path from somewhere, so they live alongside anchor.* as
	// the natural extension of that section.
	EUI64      *string `yaml:"eui64,omitempty"`
	Name       *string `yaml:"name,omitempty"`
	SerialPort *string `yaml:"serial_port,omitempty"`
}

type rtlsSection struct {
	MQRPCID    *string `yaml:"mqrpc_id,omitempty"`
	MQTTDomain *string `yaml:"mqtt_domain,omitempty"`
	MQTTHost   *string `yaml:"mqtt_host,omitempty"`
	MQTTPort   *int    `yaml:"mqtt_port,omitempty"`
}

type dw1000Section struct {
	Channel *int    `yaml:"channel,omitempty"`
	PCode   *int    `yaml:"pcode,omitempty"`
	PRF     *int    `yaml:"prf,omitempty"`
	Rate    *int    `yaml:"rate,omitempty"`
	TxPSR   *int    `yaml:"txpsr,omitempty"`
	Smart   *bool   `yaml:"smart,omitempty"`
	Power   *string `yaml:"power,omitempty"`
	Profile *string `yaml:"profile,omitempty"`
	Verbose *bool   `yaml:"verbose,omitempty"`
}

type rangingSection struct {
	Algorithm    *string `yaml:"algorithm,omitempty"`
	RangingTimer *string `yaml:"ranging_timer,omitempty"`
	TimeoutTimer *string `yaml:"timeout_timer,omitempty"`
	MaxDist      *float64 `yaml:"max_dist,omitempty"`
	ForceBeacon  *string `yaml:"force_beacon,omitempty"`
	ForceCommon  *string `yaml:"force_common,omitempty"`
}

type coordSection struct {
	FilterLen   *int     `yaml:"filter_len,omitempty"`
	QCFilterLen *int     `yaml:"qc_filter_len,omitempty"`
	QCFilterDev *float64 `yaml:"qc_filter_dev,omitempty"`
}

// Config is the root of the YAML document described by spec §6. Every
// field is optional; Get* accessors fill in the documented default.
type Config struct {
	Anchor  anchorSection  `yaml:"anchor"`
	RTLS    rtlsSection    `yaml:"rtls"`
	DW1000  dw1000Section  `yaml:"dw1000"`
	Ranging rangingSection `yaml:"ranging"`
	Coord   coordSection   `yaml:"coord"`
	Anchors []AnchorEntry  `yaml:"anchors"`
	Tags    []TagEntry     `yaml:"tags"`
}

// Empty returns a Config with every field unset. Load fills one in from
// a YAML document; Get* accessors supply defaults for anything the
// document omits.
func Empty() *Config {
	return &Config{}
}

// Load reads and parses path as a YAML document shaped like §6's key
// list. Fields omitted from the file retain their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg := Empty()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects configuration values that are syntactically present
// but semantically out of range, before any daemon is allowed to start.
func (c *Config) Validate() error {
	if c.DW1000.PRF != nil {
		if p := *c.DW1000.PRF; p != 16 && p != 64 {
			return fmt.Errorf("dw1000.prf must be 16 or 64, got %d", p)
		}
	}
	if c.Ranging.Algorithm != nil {
		switch ranging.Algorithm(*c.Ranging.Algorithm).Normalize() {
		case ranging.AlgoWLS2D, ranging.AlgoWLS3D, ranging.AlgoSWLS:
		default:
			return fmt.Errorf("ranging.algorithm must be one of wls2d, wls3d, swls (or the wls alias), got %q", *c.Ranging.Algorithm)
		}
	}
	if c.Ranging.RangingTimer != nil {
		if _, err := time.ParseDuration(*c.Ranging.RangingTimer); err != nil {
			return fmt.Errorf("ranging.ranging_timer: %w", err)
		}
	}
	if c.Ranging.TimeoutTimer != nil {
		if _, err := time.ParseDuration(*c.Ranging.TimeoutTimer); err != nil {
			return fmt.Errorf("ranging.timeout_timer: %w", err)
		}
	}
	if c.Ranging.MaxDist != nil && *c.Ranging.MaxDist <= 0 {
		return fmt.Errorf("ranging.max_dist must be positive, got %f", *c.Ranging.MaxDist)
	}
	if c.Coord.FilterLen != nil && *c.Coord.FilterLen < 1 {
		return fmt.Errorf("coord.filter_len must be >= 1, got %d", *c.Coord.FilterLen)
	}
	if c.Coord.QCFilterLen != nil && *c.Coord.QCFilterLen < 1 {
		return fmt.Errorf("coord.qc_filter_len must be >= 1, got %d", *c.Coord.QCFilterLen)
	}
	if c.Anchor.EUI64 != nil {
		if _, err := eui64.Parse(*c.Anchor.EUI64); err != nil {
			return fmt.Errorf("anchor.eui64: %w", err)
		}
	}
	for i, a := range c.Anchors {
		if _, err := eui64.Parse(a.EUI64); err != nil {
			return fmt.Errorf("anchors[%d] (%s): %w", i, a.Name, err)
		}
	}
	for i, t := range c.Tags {
		if _, err := eui64.Parse(t.EUI64); err != nil {
			return fmt.Errorf("tags[%d] (%s): %w", i, t.Name, err)
		}
	}
	return nil
}

var defaults = ranging.DefaultConfig()

// GetAnchorMQTTDomain returns anchor.mqtt_domain or the default "rtls".
func (c *Config) GetAnchorMQTTDomain() string { return orString(c.Anchor.MQTTDomain, "rtls") }

// GetAnchorMQTTHost returns anchor.mqtt_host or "localhost".
func (c *Config) GetAnchorMQTTHost() string { return orString(c.Anchor.MQTTHost, "localhost") }

// GetAnchorMQTTPort returns anchor.mqtt_port or 1883.
func (c *Config) GetAnchorMQTTPort() int { return orInt(c.Anchor.MQTTPort, 1883) }

// GetAnchorEUI64 parses anchor.eui64, the address cmd/anchord identifies
// itself with on the RF and RPC topics. There is no sensible default;
// callers that require an identity should treat a zero Addr as a
// startup error.
func (c *Config) GetAnchorEUI64() (eui64.Addr, error) {
	if c.Anchor.EUI64 == nil {
		return eui64.Zero, fmt.Errorf("config: anchor.eui64 is required")
	}
	return eui64.Parse(*c.Anchor.EUI64)
}

// GetAnchorName returns anchor.name or the anchor's own EUI64 string if unset.
func (c *Config) GetAnchorName() string {
	if c.Anchor.Name != nil {
		return *c.Anchor.Name
	}
	if c.Anchor.EUI64 != nil {
		return *c.Anchor.EUI64
	}
	return "anchor"
}

// GetAnchorSerialPort returns anchor.serial_port, or "" if the daemon
// should run with its serial control channel disabled.
func (c *Config) GetAnchorSerialPort() string { return orString(c.Anchor.SerialPort, "") }

// GetMQRPCID returns rtls.mqrpc_id or "server".
func (c *Config) GetMQRPCID() string { return orString(c.RTLS.MQRPCID, "server") }

// GetRTLSMQTTDomain returns rtls.mqtt_domain or "rtls".
func (c *Config) GetRTLSMQTTDomain() string { return orString(c.RTLS.MQTTDomain, "rtls") }

// GetRTLSMQTTHost returns rtls.mqtt_host or "localhost".
func (c *Config) GetRTLSMQTTHost() string { return orString(c.RTLS.MQTTHost, "localhost") }

// GetRTLSMQTTPort returns rtls.mqtt_port or 1883.
func (c *Config) GetRTLSMQTTPort() int { return orInt(c.RTLS.MQTTPort, 1883) }

// GetChannel returns dw1000.channel or the ranging-default channel (5).
func (c *Config) GetChannel() int { return orInt(c.DW1000.Channel, defaults.Channel) }

// GetPCode returns dw1000.pcode or 9 (the channel-5/9 default preamble code).
func (c *Config) GetPCode() int { return orInt(c.DW1000.PCode, 9) }

// GetPRF returns dw1000.prf or the ranging-default PRF (64 MHz).
func (c *Config) GetPRF() int { return orInt(c.DW1000.PRF, defaults.PRF) }

// GetRate returns dw1000.rate or 110 (kbps).
func (c *Config) GetRate() int { return orInt(c.DW1000.Rate, 110) }

// GetTxPSR returns dw1000.txpsr or 1024 (preamble symbol repetitions).
func (c *Config) GetTxPSR() int { return orInt(c.DW1000.TxPSR, 1024) }

// GetSmart returns dw1000.smart or true (smart-power enabled).
func (c *Config) GetSmart() bool { return orBool(c.DW1000.Smart, true) }

// GetPower returns dw1000.power or "" (use the transceiver's own default).
func (c *Config) GetPower() string { return orString(c.DW1000.Power, "") }

// GetProfile returns dw1000.profile or "default".
func (c *Config) GetProfile() string { return orString(c.DW1000.Profile, "default") }

// GetVerbose returns dw1000.verbose or false.
func (c *Config) GetVerbose() bool { return orBool(c.DW1000.Verbose, false) }

// GetAlgorithm returns ranging.algorithm, normalized, or the ranging
// package's own default (wls2d).
func (c *Config) GetAlgorithm() ranging.Algorithm {
	if c.Ranging.Algorithm == nil {
		return defaults.Algorithm
	}
	return ranging.Algorithm(*c.Ranging.Algorithm).Normalize()
}

// GetRangingTimer returns ranging.ranging_timer or the ranging package's default.
func (c *Config) GetRangingTimer() time.Duration {
	return orDuration(c.Ranging.RangingTimer, defaults.RangingTimer)
}

// GetTimeoutTimer returns ranging.timeout_timer or the ranging package's default.
func (c *Config) GetTimeoutTimer() time.Duration {
	return orDuration(c.Ranging.TimeoutTimer, defaults.TimeoutTimer)
}

// GetMaxDist returns ranging.max_dist or the ranging package's default.
func (c *Config) GetMaxDist() float64 { return orFloat(c.Ranging.MaxDist, defaults.MaxDist) }

// GetForceBeacon returns ranging.force_beacon or "" (no override: elect by frequency/RX level).
func (c *Config) GetForceBeacon() string { return orString(c.Ranging.ForceBeacon, "") }

// GetForceCommon returns ranging.force_common or "" (no override).
func (c *Config) GetForceCommon() string { return orString(c.Ranging.ForceCommon, "") }

// GetFilterLen returns coord.filter_len or the ranging package's default.
func (c *Config) GetFilterLen() int { return orInt(c.Coord.FilterLen, defaults.FilterLen) }

// GetQCFilterLen returns coord.qc_filter_len or the ranging package's default.
func (c *Config) GetQCFilterLen() int { return orInt(c.Coord.QCFilterLen, defaults.QCFilterLen) }

// GetQCFilterDev returns coord.qc_filter_dev or the ranging package's default.
func (c *Config) GetQCFilterDev() float64 {
	return orFloat(c.Coord.QCFilterDev, defaults.QCFilterDev)
}

// RangingConfig assembles an internal/ranging.Config from this document's
// ranging.* and coord.* keys, ready to hand to ranging.NewServer.
func (c *Config) RangingConfig() ranging.Config {
	return ranging.Config{
		Algorithm:    c.GetAlgorithm(),
		RangingTimer: c.GetRangingTimer(),
		TimeoutTimer: c.GetTimeoutTimer(),
		MaxDist:      c.GetMaxDist(),
		ForceBeacon:  c.GetForceBeacon(),
		ForceCommon:  c.GetForceCommon(),
		Channel:      c.GetChannel(),
		PRF:          c.GetPRF(),
		FilterLen:    c.GetFilterLen(),
		QCFilterLen:  c.GetQCFilterLen(),
		QCFilterDev:  c.GetQCFilterDev(),
	}
}

// AnchorHandles parses the "anchors:" list into ranging.Anchor handles,
// ready for Server.AddAnchor.
func (c *Config) AnchorHandles() ([]*ranging.Anchor, error) {
	out := make([]*ranging.Anchor, 0, len(c.Anchors))
	for _, a := range c.Anchors {
		addr, err := eui64.Parse(a.EUI64)
		if err != nil {
			return nil, fmt.Errorf("config: anchor %s: %w", a.Name, err)
		}
		coord := tdoa.Point{X: a.Coord[0], Y: a.Coord[1], Z: a.Coord[2]}
		out = append(out, ranging.NewAnchor(a.Name, addr, coord))
	}
	return out, nil
}

// TagAddrs parses the "tags:" list into (name, address) pairs; the
// server creates the Tag handle itself (it needs a filter instance).
func (c *Config) TagAddrs() ([]TagEntry, error) {
	for i, t := range c.Tags {
		if _, err := eui64.Parse(t.EUI64); err != nil {
			return nil, fmt.Errorf("config: tags[%d] %s: %w", i, t.Name, err)
		}
	}
	return c.Tags, nil
}

func orString(p *string, def string) string {
	if p == nil {
		return def
	}
	return *p
}

func orInt(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

func orBool(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

func orFloat(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

func orDuration(p *string, def time.Duration) time.Duration {
	if p == nil || *p == "" {
		return def
	}
	d, err := time.ParseDuration(*p)
	if err != nil {
		return def
	}
	return d
}
