// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package sipapi

import (
	"fmt"
	"strconv"
	"strings"
)

// remoteMedia is the subset of an SDP offer this package needs: where to
// send outbound RTP.
type remoteMedia struct {
	ip   string
	port int
}

// parseOffer extracts the connection IP and audio port from a minimal SDP
// offer body. Only the PCMU/telephone-event media line generateAnswer
// advertises is expected on the other end.
func parseOffer(body []byte) (remoteMedia, error) {
	var media remoteMedia
	for _, line := range strings.Split(string(body), "\r\n") {
		switch {
		case strings.HasPrefix(line, "c=IN IP4 "):
			media.ip = strings.TrimPrefix(line, "c=IN IP4 ")
		case strings.HasPrefix(line, "m=audio "):
			fields := strings.Fields(line)
			if len(fields) < 2 {
				continue
			}
			port, err := strconv.Atoi(fields[1])
			if err != nil {
				continue
			}
			media.port = port
		}
	}
	if media.ip == "" || media.port == 0 {
		return media, fmt.Errorf("sipapi: SDP offer missing connection address or audio port")
	}
	return media, nil
}

// generateAnswer builds a PCMU-only SDP answer advertising localIP:rtpPort,
// including RFC 4733 telephone-event, since most SIP endpoints refuse to
// bridge media without it even when PCMU alone is negotiated.
func generateAnswer(localIP string, rtpPort int) string {
	var sb strings.Builder
	sb.WriteString("v=0\r\n")
	fmt.Fprintf(&sb, "o=streamrt 0 0 IN IP4 %s\r\n", localIP)
	sb.WriteString("s=streamrt\r\n")
	fmt.Fprintf(&sb, "c=IN IP4 %s\r\n", localIP)
	sb.WriteString("t=0 0\r\n")
	fmt.Fprintf(&sb, "m=audio %d RTP/AVP 0 101\r\n", rtpPort)
	sb.WriteString("a=rtpmap:0 PCMU/8000\r\n")
	sb.WriteString("a=rtpmap:101 telephone-event/8000\r\n")
	sb.WriteString("a=fmtp:101 0-15\r\n")
	sb.WriteString("a=ptime:20\r\n")
	sb.WriteString("a=sendrecv\r\n")
	return sb.String()
}
