// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package health

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rapidaai/streamrt/pkg/runtimedata"
)

func i16Samples(values ...int16) []byte {
	buf := make([]byte, len(values)*2)
	for i, v := range values {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(v))
	}
	return buf
}

func sineI16(n int, amplitude int16) []byte {
	values := make([]int16, n)
	for i := range values {
		values[i] = int16(float64(amplitude) * math.Sin(float64(i)*0.3))
	}
	return i16Samples(values...)
}

// silentChunk returns 20ms of mono i16le zeros at 16kHz (320 samples).
func silentChunk(t *testing.T) runtimedata.RuntimeData {
	t.Helper()
	data, err := runtimedata.NewAudio(make([]byte, 320*2), 16000, 1, runtimedata.SampleFormatI16LE)
	require.NoError(t, err)
	return data
}

// eventBits folds a slice of events into one AlertType set.
func eventBits(events []Event) AlertType {
	var bits AlertType
	for _, ev := range events {
		bits |= ev.Type
	}
	return bits
}

func findEvent(events []Event, alertType AlertType) (Event, bool) {
	for _, ev := range events {
		if ev.Type == alertType {
			return ev, true
		}
	}
	return Event{}, false
}

func TestAudioAnalyzer_SilenceRunAccumulatesAcrossChunks(t *testing.T) {
	a := NewAudioAnalyzer(DefaultAudioThresholds())

	// 25 x 20ms = 500ms of consecutive silence; no alert while the run is
	// still open.
	for i := 0; i < 25; i++ {
		events, err := a.Analyze(silentChunk(t), uint64(i))
		require.NoError(t, err)
		require.False(t, eventBits(events).Has(AlertSilence), "chunk %d must not raise mid-run", i)
	}

	events := a.Flush()
	require.Len(t, events, 1)
	require.Equal(t, AlertSilence, events[0].Type)
	data, ok := events[0].Data.(SilenceData)
	require.True(t, ok)
	require.InDelta(t, 500, data.DurationMS, 1)
	require.LessOrEqual(t, data.RMSDB, -60.0)
}

func TestAudioAnalyzer_SilenceRunEndsOnLoudChunk(t *testing.T) {
	a := NewAudioAnalyzer(DefaultAudioThresholds())

	for i := 0; i < 20; i++ { // 400ms of silence
		_, err := a.Analyze(silentChunk(t), uint64(i))
		require.NoError(t, err)
	}

	loud, err := runtimedata.NewAudio(sineI16(320, 16000), 16000, 1, runtimedata.SampleFormatI16LE)
	require.NoError(t, err)
	events, err := a.Analyze(loud, 20)
	require.NoError(t, err)

	ev, ok := findEvent(events, AlertSilence)
	require.True(t, ok, "ending the run must report it")
	require.InDelta(t, 400, ev.Data.(SilenceData).DurationMS, 1)

	// Ended run is consumed; nothing further to flush.
	require.Empty(t, a.Flush())
}

func TestAudioAnalyzer_ShortSilenceBelowDurationNotReported(t *testing.T) {
	a := NewAudioAnalyzer(DefaultAudioThresholds())

	// 5 x 20ms = 100ms, under the 300ms default duration threshold.
	for i := 0; i < 5; i++ {
		_, err := a.Analyze(silentChunk(t), uint64(i))
		require.NoError(t, err)
	}
	require.Empty(t, a.Flush())
}

func TestAudioAnalyzer_DetectsLowVolumeNotSilence(t *testing.T) {
	a := NewAudioAnalyzer(DefaultAudioThresholds())
	data, err := runtimedata.NewAudio(sineI16(200, 500), 16000, 1, runtimedata.SampleFormatI16LE)
	require.NoError(t, err)

	events, err := a.Analyze(data, 0)
	require.NoError(t, err)
	require.True(t, eventBits(events).Has(AlertLowVolume))
	require.False(t, eventBits(events).Has(AlertSilence))

	ev, ok := findEvent(events, AlertLowVolume)
	require.True(t, ok)
	require.Less(t, ev.Data.(LowVolumeData).MeanRMSDB, -30.0)
}

func TestAudioAnalyzer_NormalVolumeRaisesNoAlert(t *testing.T) {
	a := NewAudioAnalyzer(DefaultAudioThresholds())
	data, err := runtimedata.NewAudio(sineI16(200, 16000), 16000, 1, runtimedata.SampleFormatI16LE)
	require.NoError(t, err)

	events, err := a.Analyze(data, 0)
	require.NoError(t, err)
	require.Empty(t, events)
}

func TestAudioAnalyzer_DetectsClippingWithSaturationRatio(t *testing.T) {
	a := NewAudioAnalyzer(DefaultAudioThresholds())
	values := make([]int16, 100)
	for i := range values {
		values[i] = 32767
	}
	data, err := runtimedata.NewAudio(i16Samples(values...), 16000, 1, runtimedata.SampleFormatI16LE)
	require.NoError(t, err)

	events, err := a.Analyze(data, 0)
	require.NoError(t, err)
	ev, ok := findEvent(events, AlertClipping)
	require.True(t, ok)
	require.Greater(t, ev.Data.(ClippingData).SaturationRatio, 0.5)
}

func TestAudioAnalyzer_DetectsChannelImbalance(t *testing.T) {
	a := NewAudioAnalyzer(DefaultAudioThresholds())
	n := 200
	interleaved := make([]int16, n*2)
	for i := 0; i < n; i++ {
		interleaved[i*2] = int16(16000 * math.Sin(float64(i)*0.3))  // loud left
		interleaved[i*2+1] = int16(500 * math.Sin(float64(i)*0.3)) // quiet right
	}
	data, err := runtimedata.NewAudio(i16Samples(interleaved...), 16000, 2, runtimedata.SampleFormatI16LE)
	require.NoError(t, err)

	events, err := a.Analyze(data, 0)
	require.NoError(t, err)
	ev, ok := findEvent(events, AlertChannelImbalance)
	require.True(t, ok)
	require.Greater(t, ev.Data.(ChannelImbalanceData).DivergenceRatio, 0.6)
}

func TestAudioAnalyzer_DetectsDropoutOnSequenceGap(t *testing.T) {
	a := NewAudioAnalyzer(DefaultAudioThresholds())
	data, err := runtimedata.NewAudio(sineI16(200, 16000), 16000, 1, runtimedata.SampleFormatI16LE)
	require.NoError(t, err)

	events, err := a.Analyze(data, 0)
	require.NoError(t, err)
	require.False(t, eventBits(events).Has(AlertAudioDropout))

	events, err = a.Analyze(data, 5) // gap: expected sequence 1
	require.NoError(t, err)
	ev, ok := findEvent(events, AlertAudioDropout)
	require.True(t, ok)
	require.Equal(t, uint64(4), ev.Data.(DropoutData).MissedChunks)
}

func TestAudioAnalyzer_ZeroLengthAudioRaisesNothing(t *testing.T) {
	a := NewAudioAnalyzer(DefaultAudioThresholds())
	data, err := runtimedata.NewAudio(nil, 16000, 1, runtimedata.SampleFormatI16LE)
	require.NoError(t, err)
	require.Equal(t, uint64(0), data.NumSamples)

	events, err := a.Analyze(data, 0)
	require.NoError(t, err)
	require.Empty(t, events)
	require.Empty(t, a.Flush())
}

func TestAudioAnalyzer_AverageRMSTracksRecentChunks(t *testing.T) {
	a := NewAudioAnalyzer(DefaultAudioThresholds())
	require.Equal(t, float32(0), a.AverageRMS())

	loud, err := runtimedata.NewAudio(sineI16(200, 16000), 16000, 1, runtimedata.SampleFormatI16LE)
	require.NoError(t, err)

	_, err = a.Analyze(silentChunk(t), 0)
	require.NoError(t, err)
	_, err = a.Analyze(loud, 1)
	require.NoError(t, err)

	require.Greater(t, a.AverageRMS(), float32(0))
}

func TestAudioAnalyzer_RejectsNonAudioKind(t *testing.T) {
	a := NewAudioAnalyzer(DefaultAudioThresholds())
	text := runtimedata.NewText("hi", "utf-8", "en")

	_, err := a.Analyze(text, 0)
	require.Error(t, err)
}
