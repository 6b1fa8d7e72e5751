package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/banshee-data/rtls/internal/eui64"
	"github.com/banshee-data/rtls/internal/monitoring"
	"github.com/banshee-data/rtls/internal/rpc"
	"github.com/banshee-data/rtls/internal/serialmux"
	"github.com/banshee-data/rtls/internal/tail"
)

// anchorDaemon answers the anchor-side RPC function table (§6) by
// driving the serial control channel to the DW1000 carrier board.
type anchorDaemon struct {
	self eui64.Addr
	name string
	mux  serialmux.SerialMuxInterface

	mu       sync.Mutex
	registry map[eui64.Addr]bool // tags this anchor has been told to track
}

func (a *anchorDaemon) registerHandlers(c *rpc.Client) {
	c.Register("PING", a.handlePing)
	c.Register("RESET", a.handleReset)
	c.Register("REGISTER", a.handleRegister)
	c.Register("UNREGISTER", a.handleUnregister)
	c.Register("GETDWSTAT", a.handleGetDWStat)
	c.Register("GETDWSTATS", a.handleGetDWStats)
	c.Register("GETDTATTR", a.handleGetDTAttr)
	c.Register("GETDWATTR", a.handleGetDWAttr)
	c.Register("SETDWATTR", a.handleSetDWAttr)
	c.Register("GETDWCONFIG", a.handleGetDWConfig)
	c.Register("WPAN-XMIT", a.handleWPANXmit)
	c.Register("WPAN-BEACON", a.handleWPANBeacon)
}

func (a *anchorDaemon) handlePing(ctx context.Context, args json.RawMessage) (any, error) {
	return map[string]any{"name": a.name, "eui64": a.self.String()}, nil
}

func (a *anchorDaemon) handleReset(ctx context.Context, args json.RawMessage) (any, error) {
	if err := a.mux.SendCommand("AX"); err != nil {
		return nil, fmt.Errorf("anchord: reset: %w", err)
	}
	if err := a.mux.Initialize(); err != nil {
		return nil, fmt.Errorf("anchord: reset: %w", err)
	}
	return map[string]any{}, nil
}

type eui64Args struct {
	EUI64 string `json:"EUI64"`
}

func (a *anchorDaemon) handleRegister(ctx context.Context, args json.RawMessage) (any, error) {
	var in eui64Args
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, err
	}
	addr, err := eui64.Parse(in.EUI64)
	if err != nil {
		return nil, err
	}
	a.mu.Lock()
	a.registry[addr] = true
	a.mu.Unlock()
	monitoring.Logf("anchord: registered tag %s", addr)
	return map[string]any{}, nil
}

func (a *anchorDaemon) handleUnregister(ctx context.Context, args json.RawMessage) (any, error) {
	var in eui64Args
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, err
	}
	addr, err := eui64.Parse(in.EUI64)
	if err != nil {
		return nil, err
	}
	a.mu.Lock()
	delete(a.registry, addr)
	a.mu.Unlock()
	monitoring.Logf("anchord: unregistered tag %s", addr)
	return map[string]any{}, nil
}

type attrArgs struct {
	Attr string `json:"ATTR"`
}

func (a *anchorDaemon) handleGetDWStat(ctx context.Context, args json.RawMessage) (any, error) {
	var in attrArgs
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, err
	}
	return map[string]any{in.Attr: serialmux.CurrentState[in.Attr]}, nil
}

func (a *anchorDaemon) handleGetDWStats(ctx context.Context, args json.RawMessage) (any, error) {
	return serialmux.CurrentState, nil
}

type dtAttrArgs struct {
	Attr   string `json:"ATTR"`
	Format string `json:"FORMAT"`
}

func (a *anchorDaemon) handleGetDTAttr(ctx context.Context, args json.RawMessage) (any, error) {
	var in dtAttrArgs
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, err
	}
	diag := serialmux.LastDiag
	var v uint64
	switch in.Attr {
	case "RAWTS":
		v = diag.RawTS
	case "LQI":
		v = uint64(diag.LQI)
	case "SNR":
		v = uint64(diag.SNR)
	case "RXPACC":
		v = uint64(diag.RxPACC)
	case "TEMP":
		v = uint64(diag.Temp)
	case "VOLT":
		v = uint64(diag.Volt)
	default:
		return nil, fmt.Errorf("anchord: unknown diagnostics attribute %q", in.Attr)
	}
	if in.Format == "hex" {
		return map[string]any{in.Attr: fmt.Sprintf("0x%x", v)}, nil
	}
	return map[string]any{in.Attr: v}, nil
}

func (a *anchorDaemon) handleGetDWAttr(ctx context.Context, args json.RawMessage) (any, error) {
	var in attrArgs
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, err
	}
	if err := a.mux.SendCommand(fmt.Sprintf("G%s", in.Attr)); err != nil {
		return nil, err
	}
	return map[string]any{in.Attr: serialmux.CurrentState[in.Attr]}, nil
}

type setAttrArgs struct {
	Attr  string `json:"ATTR"`
	Value any    `json:"VALUE"`
}

func (a *anchorDaemon) handleSetDWAttr(ctx context.Context, args json.RawMessage) (any, error) {
	var in setAttrArgs
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, err
	}
	if err := a.mux.SendCommand(fmt.Sprintf("S%s=%v", in.Attr, in.Value)); err != nil {
		return nil, err
	}
	return map[string]any{}, nil
}

func (a *anchorDaemon) handleGetDWConfig(ctx context.Context, args json.RawMessage) (any, error) {
	return serialmux.CurrentState, nil
}

type wpanXmitArgs struct {
	Frame string `json:"FRAME"`
}

// handleWPANXmit transmits a raw hex-encoded Tail frame (typically
// produced by the caller's own internal/tail.Frame.Encode) over the air
// by pushing it to the anchor carrier board's serial command channel. The
// "X<hex>" command convention matches the board's existing "C=<unix>"
// key/value command style (see SerialMux.Initialize).
func (a *anchorDaemon) handleWPANXmit(ctx context.Context, args json.RawMessage) (any, error) {
	var in wpanXmitArgs
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, err
	}
	if _, err := hex.DecodeString(in.Frame); err != nil {
		return nil, fmt.Errorf("anchord: WPAN-XMIT: invalid hex frame: %w", err)
	}
	if err := a.mux.SendCommand("X" + in.Frame); err != nil {
		return nil, err
	}
	return map[string]any{}, nil
}

type wpanBeaconArgs struct {
	BRef  string `json:"BREF"`
	Sub   *uint8 `json:"SUB,omitempty"`
	Flags *uint8 `json:"FLAGS,omitempty"`
}

// handleWPANBeacon builds and transmits an ANCHOR_BEACON Tail frame
// referencing BREF, the common anchor this beacon correlates ranging
// sessions against.
func (a *anchorDaemon) handleWPANBeacon(ctx context.Context, args json.RawMessage) (any, error) {
	var in wpanBeaconArgs
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, err
	}
	bref, err := eui64.Parse(in.BRef)
	if err != nil {
		return nil, fmt.Errorf("anchord: WPAN-BEACON: %w", err)
	}

	frame := tail.Frame{
		MAC: tail.MACHeader{
			FrameType: tail.FrameTypeData,
			SrcMode:   tail.AddrModeEUI64,
			SrcAddr:   a.self,
			DstMode:   tail.AddrModeNone,
		},
		Protocol:  tail.ProtoStandard,
		FrmType:   tail.FrmAnchorBeacon,
		BeaconRef: bref,
	}
	if in.Sub != nil {
		frame.Subtype = *in.Sub
	}
	if in.Flags != nil {
		frame.BeaconFlags = *in.Flags
	}

	encoded, err := frame.Encode()
	if err != nil {
		return nil, fmt.Errorf("anchord: WPAN-BEACON: encode: %w", err)
	}
	if err := a.mux.SendCommand("X" + hex.EncodeToString(encoded)); err != nil {
		return nil, err
	}
	return map[string]any{}, nil
}
