// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package health

import (
	"bytes"
	"math"

	"github.com/rapidaai/streamrt/pkg/runtimedata"
)

// VideoThresholds configures VideoAnalyzer's detectors.
type VideoThresholds struct {
	FreezeSimilarity float64 // fraction of identical bytes (sampled) to call a frame a repeat of the last one
	BlackFrameMean   float64 // mean sampled luma below this (0..255) to call a frame black
}

// DefaultVideoThresholds are reasonable defaults for 8-bit packed pixel
// formats (yuv420p, rgb24, etc).
func DefaultVideoThresholds() VideoThresholds {
	return VideoThresholds{
		FreezeSimilarity: 0.999,
		BlackFrameMean:   8,
	}
}

// VideoAnalyzer inspects Video RuntimeData frames for freeze and
// black-frame conditions, sampling frame bytes on a stride rather than
// inspecting every byte of every frame.
type VideoAnalyzer struct {
	thresholds VideoThresholds
	lastFrame  []byte
	haveFrame  bool
}

// NewVideoAnalyzer returns an analyzer using the given thresholds.
func NewVideoAnalyzer(thresholds VideoThresholds) *VideoAnalyzer {
	return &VideoAnalyzer{thresholds: thresholds}
}

// videoSampleStride is the step between the bytes of a frame that get
// compared/averaged per call, so a call samples about one byte in 31.
const videoSampleStride = 31

// Analyze inspects one Video frame, returning the detector events it
// raised.
func (v *VideoAnalyzer) Analyze(data runtimedata.RuntimeData) ([]Event, error) {
	if err := runtimedata.RequireKind(data, runtimedata.KindVideo); err != nil {
		return nil, err
	}

	var events []Event
	frame := data.Bytes()

	if v.haveFrame {
		if sim := similarity(v.lastFrame, frame); sim >= v.thresholds.FreezeSimilarity {
			events = append(events, Event{Type: AlertVideoFreeze, Data: VideoFreezeData{Similarity: sim}})
		}
	}
	v.lastFrame = append([]byte(nil), frame...)
	v.haveFrame = true

	if luma := meanSampled(frame); luma < v.thresholds.BlackFrameMean {
		events = append(events, Event{Type: AlertBlackFrame, Data: BlackFrameData{MeanLuma: luma}})
	}

	return events, nil
}

// similarity estimates how alike a and b are by comparing every
// videoSampleStride-th byte, returning the fraction that matched exactly.
func similarity(a, b []byte) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	if bytes.Equal(a, b) {
		return 1
	}
	total, matched := 0, 0
	for i := 0; i < len(a); i += videoSampleStride {
		total++
		if a[i] == b[i] {
			matched++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(matched) / float64(total)
}

// meanSampled returns the mean byte value over every videoSampleStride-th
// byte, used as a cheap proxy for overall frame luma.
func meanSampled(frame []byte) float64 {
	if len(frame) == 0 {
		return math.MaxFloat64
	}
	var sum float64
	count := 0
	for i := 0; i < len(frame); i += videoSampleStride {
		sum += float64(frame[i])
		count++
	}
	if count == 0 {
		return math.MaxFloat64
	}
	return sum / float64(count)
}
