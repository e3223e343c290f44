// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package health

import (
	"encoding/binary"
	"math"

	"github.com/rapidaai/streamrt/pkg/runtimedata"
	"github.com/rapidaai/streamrt/pkg/utils"
)

// AudioThresholds configures AudioAnalyzer's detectors.
// Zero-value fields fall back to DefaultAudioThresholds.
type AudioThresholds struct {
	SilenceRMS            float64 // below this RMS (0..1), chunk counts as silent
	SilenceDurationMS     float64 // consecutive silence must last at least this long to alert
	LowVolumeRMS          float64 // below this RMS, chunk counts as quiet
	ClippingRatio         float64 // fraction of samples at full-scale to flag clipping
	ChannelImbalanceRatio float64 // |L_rms-R_rms| / max(L_rms,R_rms) to flag imbalance
}

// DefaultAudioThresholds are reasonable defaults for 16-bit PCM telephony
// and conferencing audio.
func DefaultAudioThresholds() AudioThresholds {
	return AudioThresholds{
		SilenceRMS:            0.001,
		SilenceDurationMS:     300,
		LowVolumeRMS:          0.02,
		ClippingRatio:         0.001,
		ChannelImbalanceRatio: 0.6,
	}
}

// AudioAnalyzer inspects Audio RuntimeData chunks for stream quality
// issues: silence, low volume, clipping, channel imbalance, dropouts.
// Per-channel RMS is computed per chunk; the chunks' overall RMS is kept
// over a rolling window for AverageRMS. Silence is a run, not a per-chunk bit: consecutive silent chunks
// accumulate into one run, and a single SilenceData event carrying the
// total duration fires when the run ends (or when Flush is called at
// stream end), provided it lasted at least SilenceDurationMS.
type AudioAnalyzer struct {
	thresholds   AudioThresholds
	lastSeenSeq  uint64
	haveLastSeen bool

	// recentRMS is a small rolling window of per-chunk overall RMS, used by
	// AverageRMS to report a smoothed loudness level alongside the
	// per-chunk alert bits.
	recentRMS []float32

	// Current silence run: accumulated duration and duration-weighted RMS
	// power, so the emitted alert can carry the run's mean level in dB.
	silentRunMS  float64
	silentRunPow float64
}

// recentRMSWindow bounds how many chunks AverageRMS smooths over.
const recentRMSWindow = 50

// NewAudioAnalyzer returns an analyzer using the given thresholds.
func NewAudioAnalyzer(thresholds AudioThresholds) *AudioAnalyzer {
	def := DefaultAudioThresholds()
	if thresholds.SilenceRMS == 0 {
		thresholds.SilenceRMS = def.SilenceRMS
	}
	if thresholds.SilenceDurationMS == 0 {
		thresholds.SilenceDurationMS = def.SilenceDurationMS
	}
	if thresholds.LowVolumeRMS == 0 {
		thresholds.LowVolumeRMS = def.LowVolumeRMS
	}
	if thresholds.ClippingRatio == 0 {
		thresholds.ClippingRatio = def.ClippingRatio
	}
	if thresholds.ChannelImbalanceRatio == 0 {
		thresholds.ChannelImbalanceRatio = def.ChannelImbalanceRatio
	}
	return &AudioAnalyzer{thresholds: thresholds}
}

// AverageRMS returns the mean overall RMS across the analyzer's recent
// window of chunks, or 0 before any chunk has been analyzed.
func (a *AudioAnalyzer) AverageRMS() float32 {
	return utils.AverageFloat32(a.recentRMS)
}

// Analyze inspects one Audio chunk, returning the detector events it
// raised. sequence lets the analyzer detect dropouts (a gap in an
// otherwise contiguous sequence of chunks) across calls. Zero-length
// chunks are observed but raise nothing.
func (a *AudioAnalyzer) Analyze(data runtimedata.RuntimeData, sequence uint64) ([]Event, error) {
	if err := runtimedata.RequireKind(data, runtimedata.KindAudio); err != nil {
		return nil, err
	}

	var events []Event

	if a.haveLastSeen && sequence > a.lastSeenSeq+1 {
		events = append(events, Event{
			Type: AlertAudioDropout,
			Data: DropoutData{MissedChunks: sequence - a.lastSeenSeq - 1},
		})
	}
	a.lastSeenSeq = sequence
	a.haveLastSeen = true

	if data.NumSamples == 0 {
		return events, nil
	}

	channels := int(data.Channels)
	if channels == 0 {
		channels = 1
	}
	perChannelRMS := rmsPerChannel(data, channels)
	if len(perChannelRMS) == 0 {
		return events, nil
	}

	overall := meanOf(perChannelRMS)
	a.recentRMS = append(a.recentRMS, float32(overall))
	if len(a.recentRMS) > recentRMSWindow {
		a.recentRMS = a.recentRMS[1:]
	}

	chunkMS := chunkDurationMS(data)
	switch {
	case overall < a.thresholds.SilenceRMS:
		a.silentRunMS += chunkMS
		a.silentRunPow += overall * overall * chunkMS
	default:
		if ev, ok := a.endSilenceRun(); ok {
			events = append(events, ev)
		}
		if overall < a.thresholds.LowVolumeRMS {
			events = append(events, Event{
				Type: AlertLowVolume,
				Data: LowVolumeData{MeanRMSDB: rmsToDB(float64(a.AverageRMS()))},
			})
		}
	}

	if ratio := clippingRatio(data); ratio > a.thresholds.ClippingRatio {
		events = append(events, Event{
			Type: AlertClipping,
			Data: ClippingData{SaturationRatio: ratio},
		})
	}

	if channels == 2 {
		l, r := perChannelRMS[0], perChannelRMS[1]
		maxRMS := math.Max(l, r)
		if maxRMS > 0 && math.Abs(l-r)/maxRMS > a.thresholds.ChannelImbalanceRatio {
			events = append(events, Event{
				Type: AlertChannelImbalance,
				Data: ChannelImbalanceData{DivergenceRatio: math.Abs(l-r) / maxRMS},
			})
		}
	}

	return events, nil
}

// Flush ends any in-progress silence run, returning its event if the run
// qualified. Callers invoke it once at end of stream so a stream that goes
// silent and stays silent still reports the run.
func (a *AudioAnalyzer) Flush() []Event {
	if ev, ok := a.endSilenceRun(); ok {
		return []Event{ev}
	}
	return nil
}

// endSilenceRun closes the current run, reporting it as a single event
// when it lasted at least SilenceDurationMS.
func (a *AudioAnalyzer) endSilenceRun() (Event, bool) {
	runMS, runPow := a.silentRunMS, a.silentRunPow
	a.silentRunMS, a.silentRunPow = 0, 0
	if runMS < a.thresholds.SilenceDurationMS || runMS == 0 {
		return Event{}, false
	}
	meanRMS := math.Sqrt(runPow / runMS)
	return Event{
		Type: AlertSilence,
		Data: SilenceData{DurationMS: runMS, RMSDB: rmsToDB(meanRMS)},
	}, true
}

// chunkDurationMS derives the media time one Audio chunk represents.
func chunkDurationMS(data runtimedata.RuntimeData) float64 {
	if data.SampleRate == 0 {
		return 0
	}
	return float64(data.NumSamples) / float64(data.SampleRate) * 1000
}

// rmsToDB converts a normalized RMS level to dBFS, floored at -120 dB so
// digital zero doesn't render as -Inf.
func rmsToDB(rms float64) float64 {
	if rms <= 0 {
		return -120
	}
	db := 20 * math.Log10(rms)
	if db < -120 {
		return -120
	}
	return db
}

// rmsPerChannel computes RMS (normalized to [0,1] for i16le, already [0,1]
// scale for f32le) for each interleaved channel.
func rmsPerChannel(data runtimedata.RuntimeData, channels int) []float64 {
	raw := data.Bytes()
	sums := make([]float64, channels)
	counts := make([]int, channels)

	switch data.SampleFormat {
	case runtimedata.SampleFormatI16LE:
		const scale = 1.0 / 32768.0
		for i := 0; i+1 < len(raw); i += 2 {
			ch := (i / 2) % channels
			v := float64(int16(binary.LittleEndian.Uint16(raw[i:i+2]))) * scale
			sums[ch] += v * v
			counts[ch]++
		}
	case runtimedata.SampleFormatF32LE:
		for i := 0; i+3 < len(raw); i += 4 {
			ch := (i / 4) % channels
			v := float64(math.Float32frombits(binary.LittleEndian.Uint32(raw[i : i+4])))
			sums[ch] += v * v
			counts[ch]++
		}
	default:
		return nil
	}

	out := make([]float64, channels)
	for i := range out {
		if counts[i] > 0 {
			out[i] = math.Sqrt(sums[i] / float64(counts[i]))
		}
	}
	return out
}

func meanOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// clippingRatio returns the fraction of samples at or beyond full-scale.
func clippingRatio(data runtimedata.RuntimeData) float64 {
	raw := data.Bytes()
	total := 0
	clipped := 0

	switch data.SampleFormat {
	case runtimedata.SampleFormatI16LE:
		for i := 0; i+1 < len(raw); i += 2 {
			v := int16(binary.LittleEndian.Uint16(raw[i : i+2]))
			total++
			if v >= 32760 || v <= -32760 {
				clipped++
			}
		}
	case runtimedata.SampleFormatF32LE:
		for i := 0; i+3 < len(raw); i += 4 {
			v := math.Float32frombits(binary.LittleEndian.Uint32(raw[i : i+4]))
			total++
			if v >= 0.999 || v <= -0.999 {
				clipped++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(clipped) / float64(total)
}
