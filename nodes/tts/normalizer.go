// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package tts implements the Text -> Audio NodeExecutor wrapping Google
// Cloud's text-to-speech API, preceded by a number-to-words normalization
// stage: digits are rewritten to their spoken word form
// (moul.io/number-to-words) before the text reaches the provider, so the
// synthesizer never has to guess how to read "204" aloud.
package tts

import (
	"regexp"
	"strconv"

	numbertowords "moul.io/number-to-words"
)

var integerPattern = regexp.MustCompile(`-?\d+`)

// normalizeNumbers replaces every run of digits in text with its spoken
// word form, e.g. "room 204" -> "room two hundred and four".
func normalizeNumbers(text string) string {
	return integerPattern.ReplaceAllStringFunc(text, func(match string) string {
		n, err := strconv.Atoi(match)
		if err != nil {
			return match
		}
		return numbertowords.IntegerToEnUs(n)
	})
}
