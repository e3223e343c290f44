// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package utils

// Header names shared by every transport (gRPC metadata, HTTP headers,
// WebSocket upgrade headers) so a request can be traced back to the
// caller's API key, auth principal, source, environment, and region.
const (
	HEADER_API_KEY         = "x-rapida-api-key"
	HEADER_AUTH_KEY        = "x-rapida-auth"
	HEADER_SOURCE_KEY      = "x-rapida-source"
	HEADER_ENVIRONMENT_KEY = "x-rapida-environment"
	HEADER_REGION_KEY      = "x-rapida-region"
)
