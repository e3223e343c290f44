// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package sipapi implements a transport.PipelineTransport front-end
// accepting inbound SIP calls over emiago/sipgo, bridging G.711 RTP
// audio to a transport.StreamSession. PCMU is the only codec handled
// (PCMA packets are dropped); RFC 4733 telephone-event is advertised because many PBXes
// refuse to bridge media without it. The package is a UAS: it answers
// calls (sipgo.NewUA/NewServer, sip.NewResponseFromRequest,
// sip.ServerTransaction.Respond), never dials them.
package sipapi

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/pion/rtp"

	"github.com/rapidaai/streamrt/internal/logging"
	"github.com/rapidaai/streamrt/pkg/audio"
	"github.com/rapidaai/streamrt/pkg/runtimedata"
	"github.com/rapidaai/streamrt/pkg/transport"
)

const (
	g711SampleRate      = 8000
	g711Channels        = 1
	framesPerSecond     = 50 // 20ms packetization, matching sip_infra.DefaultSDPConfig's PTime
	samplesPerFrame     = g711SampleRate / framesPerSecond
	rtpPayloadTypePCMU  = 0
	rtpReadBufferSize   = 1500
	rtpStaleReadTimeout = 30 * time.Second
)

// mediaSession bridges one call's RTP audio to a transport.StreamSession:
// inbound mu-law RTP packets decode into Audio RuntimeData fed to
// SendInput; every Audio RuntimeData RecvOutput produces is mu-law
// encoded and paced out over the same UDP socket to the remote RTP peer.
type mediaSession struct {
	logger logging.Logger
	stream transport.StreamSession

	conn       *net.UDPConn
	remoteAddr *net.UDPAddr

	mu      sync.Mutex
	seq     uint16
	ssrc    uint32
	timeSt  uint32
	started bool

	closeOnce sync.Once
	done      chan struct{}
}

// newMediaSession opens a UDP socket bound to localAddr for RTP; Start
// later wires it to stream.
func newMediaSession(localAddr string, ssrc uint32, stream transport.StreamSession, logger logging.Logger) (*mediaSession, error) {
	addr, err := net.ResolveUDPAddr("udp", localAddr)
	if err != nil {
		return nil, fmt.Errorf("sipapi: resolve local RTP addr: %w", err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("sipapi: listen RTP: %w", err)
	}
	return &mediaSession{
		logger: logger,
		stream: stream,
		conn:   conn,
		ssrc:   ssrc,
		done:   make(chan struct{}),
	}, nil
}

// LocalPort reports the UDP port the session is listening on, for SDP
// generation.
func (m *mediaSession) LocalPort() int {
	return m.conn.LocalAddr().(*net.UDPAddr).Port
}

// Start begins the read/write pumps once the remote RTP endpoint from
// the SDP answer is known.
func (m *mediaSession) Start(ctx context.Context, remoteAddr *net.UDPAddr) {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.remoteAddr = remoteAddr
	m.mu.Unlock()

	go m.readLoop()
	go m.writeLoop(ctx)
}

// readLoop decodes inbound mu-law RTP packets and forwards each as Audio
// RuntimeData to the stream session.
func (m *mediaSession) readLoop() {
	buf := make([]byte, rtpReadBufferSize)
	ctx := context.Background()
	for {
		m.conn.SetReadDeadline(time.Now().Add(rtpStaleReadTimeout))
		n, _, err := m.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-m.done:
				return
			default:
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			return
		}

		pkt := &rtp.Packet{}
		if err := pkt.Unmarshal(buf[:n]); err != nil {
			continue
		}
		if pkt.PayloadType != rtpPayloadTypePCMU || len(pkt.Payload) == 0 {
			continue
		}

		pcm := audio.DecodeUlaw(pkt.Payload)
		data, err := runtimedata.NewAudio(int16ToBytes(pcm), g711SampleRate, g711Channels, runtimedata.SampleFormatI16LE)
		if err != nil {
			continue
		}
		if err := m.stream.SendInput(ctx, "sip", data); err != nil {
			m.logger.Debugw("sipapi: send input failed", "error", err)
			return
		}
	}
}

// writeLoop drains the stream session's output, encodes it to mu-law,
// and paces it onto the RTP socket in 20ms frames.
func (m *mediaSession) writeLoop(ctx context.Context) {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

	for m.stream.IsActive() {
		data, err := m.stream.RecvOutput(ctx)
		if err != nil {
			return
		}
		if err := runtimedata.RequireKind(data, runtimedata.KindAudio); err != nil {
			continue
		}
		pcm := bytesToInt16(data.Bytes())
		for i := 0; i < len(pcm); i += samplesPerFrame {
			end := i + samplesPerFrame
			if end > len(pcm) {
				end = len(pcm)
			}
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
			if err := m.sendFrame(pcm[i:end]); err != nil {
				m.logger.Debugw("sipapi: send RTP frame failed", "error", err)
				return
			}
		}
	}
}

func (m *mediaSession) sendFrame(pcm []int16) error {
	m.mu.Lock()
	remote := m.remoteAddr
	seq := m.seq
	m.seq++
	ts := m.timeSt
	m.timeSt += uint32(len(pcm))
	m.mu.Unlock()

	if remote == nil {
		return nil
	}

	pkt := &rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			PayloadType:    rtpPayloadTypePCMU,
			SequenceNumber: seq,
			Timestamp:      ts,
			SSRC:           m.ssrc,
		},
		Payload: audio.EncodeUlaw(pcm),
	}
	raw, err := pkt.Marshal()
	if err != nil {
		return err
	}
	_, err = m.conn.WriteToUDP(raw, remote)
	return err
}

// Close stops the RTP pumps and releases the socket.
func (m *mediaSession) Close() error {
	m.closeOnce.Do(func() { close(m.done) })
	return m.conn.Close()
}

func bytesToInt16(b []byte) []int16 {
	out := make([]int16, len(b)/2)
	for i := range out {
		out[i] = int16(uint16(b[2*i]) | uint16(b[2*i+1])<<8)
	}
	return out
}

func int16ToBytes(pcm []int16) []byte {
	out := make([]byte, len(pcm)*2)
	for i, v := range pcm {
		out[2*i] = byte(uint16(v))
		out[2*i+1] = byte(uint16(v) >> 8)
	}
	return out
}
