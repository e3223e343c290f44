// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package audio

import "github.com/zaf/g711"

// DecodeUlaw expands mu-law encoded telephony audio (the PSTN/Twilio/
// Vonage default) into interleaved PCM16 samples.
func DecodeUlaw(encoded []byte) []int16 {
	return g711.DecodeUlaw(encoded)
}

// EncodeUlaw compresses interleaved PCM16 samples into mu-law.
func EncodeUlaw(pcm []int16) []byte {
	return g711.EncodeUlaw(pcm)
}

// DecodeAlaw expands A-law encoded telephony audio (the European PSTN
// default) into interleaved PCM16 samples.
func DecodeAlaw(encoded []byte) []int16 {
	return g711.DecodeAlaw(encoded)
}

// EncodeAlaw compresses interleaved PCM16 samples into A-law.
func EncodeAlaw(pcm []int16) []byte {
	return g711.EncodeAlaw(pcm)
}
