// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package stt

import "bytes"

// bytesReader adapts a raw PCM buffer to the io.Reader the deepgram SDK's
// FromStream call expects, without handing over ownership of pcm.
func bytesReader(pcm []byte) *bytes.Reader {
	return bytes.NewReader(pcm)
}
