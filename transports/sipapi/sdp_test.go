// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package sipapi

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseOffer_ExtractsConnectionIPAndAudioPort(t *testing.T) {
	body := "v=0\r\no=- 0 0 IN IP4 10.0.0.5\r\ns=-\r\nc=IN IP4 10.0.0.5\r\nt=0 0\r\nm=audio 20000 RTP/AVP 0 101\r\na=rtpmap:0 PCMU/8000\r\n"
	media, err := parseOffer([]byte(body))
	require.NoError(t, err)
	require.Equal(t, "10.0.0.5", media.ip)
	require.Equal(t, 20000, media.port)
}

func TestParseOffer_RejectsMissingMediaLine(t *testing.T) {
	_, err := parseOffer([]byte("v=0\r\nc=IN IP4 10.0.0.5\r\n"))
	require.Error(t, err)
}

func TestGenerateAnswer_AdvertisesPCMUAndTelephoneEvent(t *testing.T) {
	sdp := generateAnswer("203.0.113.1", 30000)
	require.True(t, strings.Contains(sdp, "m=audio 30000 RTP/AVP 0 101"))
	require.True(t, strings.Contains(sdp, "telephone-event/8000"))
	require.True(t, strings.Contains(sdp, "c=IN IP4 203.0.113.1"))
}
