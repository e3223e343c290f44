// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package webrtcapi implements a transport.PipelineTransport front-end
// that decodes Opus media tracks into Audio RuntimeData and feeds a
// transport.StreamSession: Opus codec registration on a pion/webrtc/v4
// MediaEngine, an OnTrack RTP-read -> Opus-decode loop, and a paced
// Opus-encode write back onto a local TrackLocalStaticSample. The
// Session covers exactly the Audio <-> StreamSession boundary; the
// package's Server layers a single-POST SDP offer/answer exchange on top.
package webrtcapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/pion/interceptor"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"

	"github.com/rapidaai/streamrt/internal/logging"
	"github.com/rapidaai/streamrt/pkg/audio"
	"github.com/rapidaai/streamrt/pkg/runtimedata"
	"github.com/rapidaai/streamrt/pkg/transport"
)

const (
	opusSampleRate = 48000
	opusChannels   = 1
	opusPayload    = 111
	opusFmtpLine   = "minptime=10;useinbandfec=1"

	rtpBufferSize        = 1500
	maxConsecutiveErrors = 50
	frameDurationMillis  = 20
	maxDecodeFrameMillis = 120
)

// Session wires one WebRTC peer connection to one transport.StreamSession:
// remote Opus audio decodes into Audio RuntimeData fed to SendInput, and
// every Audio RuntimeData the session produces via RecvOutput is Opus
// encoded and paced onto the local outbound track.
type Session struct {
	logger logging.Logger
	pc     *webrtc.PeerConnection
	stream transport.StreamSession

	mu         sync.Mutex
	localTrack *webrtc.TrackLocalStaticSample

	wg sync.WaitGroup
}

// NewSession creates a peer connection configured for one Opus audio
// track in each direction, registers the remote-track handler that feeds
// stream, and returns the session ready for SetRemoteDescription.
func NewSession(stream transport.StreamSession, logger logging.Logger, iceServers []webrtc.ICEServer) (*Session, error) {
	mediaEngine := &webrtc.MediaEngine{}
	if err := mediaEngine.RegisterCodec(webrtc.RTPCodecParameters{
		RTPCodecCapability: webrtc.RTPCodecCapability{
			MimeType:    webrtc.MimeTypeOpus,
			ClockRate:   opusSampleRate,
			Channels:    opusChannels,
			SDPFmtpLine: opusFmtpLine,
		},
		PayloadType: opusPayload,
	}, webrtc.RTPCodecTypeAudio); err != nil {
		return nil, fmt.Errorf("webrtcapi: register opus codec: %w", err)
	}

	registry := &interceptor.Registry{}
	if err := webrtc.RegisterDefaultInterceptors(mediaEngine, registry); err != nil {
		return nil, fmt.Errorf("webrtcapi: register interceptors: %w", err)
	}

	api := webrtc.NewAPI(webrtc.WithMediaEngine(mediaEngine), webrtc.WithInterceptorRegistry(registry))
	pc, err := api.NewPeerConnection(webrtc.Configuration{ICEServers: iceServers})
	if err != nil {
		return nil, fmt.Errorf("webrtcapi: create peer connection: %w", err)
	}

	localTrack, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: opusSampleRate, Channels: opusChannels},
		"audio", "streamrt",
	)
	if err != nil {
		pc.Close()
		return nil, fmt.Errorf("webrtcapi: create local track: %w", err)
	}
	if _, err := pc.AddTrack(localTrack); err != nil {
		pc.Close()
		return nil, fmt.Errorf("webrtcapi: add local track: %w", err)
	}

	s := &Session{logger: logger, pc: pc, stream: stream, localTrack: localTrack}

	pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		if track.Kind() != webrtc.RTPCodecTypeAudio {
			return
		}
		s.wg.Add(1)
		go s.readRemoteAudio(track)
	})

	return s, nil
}

// PeerConnection exposes the underlying pion connection for SDP/ICE
// negotiation driven by the caller's signaling transport.
func (s *Session) PeerConnection() *webrtc.PeerConnection { return s.pc }

// Run drives output: every Audio RuntimeData the stream session produces
// is Opus encoded and paced onto the local track, until ctx is cancelled
// or the session closes.
func (s *Session) Run(ctx context.Context) error {
	enc, err := audio.NewOpusEncoder(opusSampleRate, opusChannels)
	if err != nil {
		return fmt.Errorf("webrtcapi: create opus encoder: %w", err)
	}

	ticker := time.NewTicker(frameDurationMillis * time.Millisecond)
	defer ticker.Stop()

	for s.stream.IsActive() {
		data, err := s.stream.RecvOutput(ctx)
		if err != nil {
			return err
		}
		if err := runtimedata.RequireKind(data, runtimedata.KindAudio); err != nil {
			s.logger.Debugw("webrtcapi: dropping non-audio session output", "error", err)
			continue
		}
		pcm := bytesToInt16(data.Bytes())
		packet, err := enc.Encode(pcm)
		if err != nil {
			s.logger.Debugw("webrtcapi: opus encode failed", "error", err)
			continue
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
		if err := s.localTrack.WriteSample(media.Sample{Data: packet, Duration: frameDurationMillis * time.Millisecond}); err != nil {
			return fmt.Errorf("webrtcapi: write sample: %w", err)
		}
	}
	return nil
}

// readRemoteAudio decodes incoming RTP/Opus packets and forwards each as
// an Audio RuntimeData to the stream session's single source node.
func (s *Session) readRemoteAudio(track *webrtc.TrackRemote) {
	defer s.wg.Done()

	dec, err := audio.NewOpusDecoder(opusSampleRate, opusChannels)
	if err != nil {
		s.logger.Errorw("webrtcapi: create opus decoder failed", "error", err)
		return
	}

	buf := make([]byte, rtpBufferSize)
	consecutiveErrors := 0
	ctx := context.Background()

	for {
		n, _, err := track.Read(buf)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			consecutiveErrors++
			if consecutiveErrors >= maxConsecutiveErrors {
				s.logger.Errorw("webrtcapi: too many consecutive read errors, stopping", "error", err)
				return
			}
			continue
		}
		consecutiveErrors = 0

		pkt := &rtp.Packet{}
		if err := pkt.Unmarshal(buf[:n]); err != nil {
			continue
		}
		if len(pkt.Payload) == 0 {
			continue
		}

		pcm, err := dec.Decode(pkt.Payload, maxDecodeFrameMillis)
		if err != nil {
			s.logger.Debugw("webrtcapi: opus decode failed", "error", err)
			continue
		}

		audioData, err := runtimedata.NewAudio(int16ToBytes(pcm), opusSampleRate, opusChannels, runtimedata.SampleFormatI16LE)
		if err != nil {
			continue
		}
		if err := s.stream.SendInput(ctx, "webrtc", audioData); err != nil {
			if !errors.Is(err, context.Canceled) {
				s.logger.Warnw("webrtcapi: send input failed", "error", err)
			}
			return
		}
	}
}

// Close tears down the peer connection and waits for the remote-audio
// reader to exit.
func (s *Session) Close() error {
	err := s.pc.Close()
	s.wg.Wait()
	return err
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
	for i, s := range pcm {
		out[2*i] = byte(uint16(s))
		out[2*i+1] = byte(uint16(s) >> 8)
	}
	return out
}
