// Package hl7 implements parsing and clinical extraction for HL7 v2.x
// pipe-delimited messages. Messages arrive with CR, LF, CRLF, or no line
// breaks at all, so segment boundaries are inferred when necessary.
package hl7

import (
	"regexp"
	"strings"
)

// HL7 v2.x encoding characters.
const (
	fieldSep        = "|"
	componentSep    = "^"
	subComponentSep = "&"
)

// segmentMarker matches a field separator followed by a three-letter segment
// code and another separator, the only reliable boundary signal in
// single-line messages.
var segmentMarker = regexp.MustCompile(`\|[A-Z]{3}\|`)

// SplitSegments splits raw HL7 text into an ordered list of segment strings.
// Blank input yields an empty list, not an error. Three strategies, in order:
// a linear scan over CR/LF boundaries when line breaks exist, boundary
// inference from |XXX| markers for single-line messages, and finally the
// whole input as one segment.
func SplitSegments(raw string) []string {
	if strings.ContainsAny(raw, "\r\n") {
		return splitLines(raw)
	}
	if locs := segmentMarker.FindAllStringIndex(raw, -1); len(locs) > 0 {
		return splitMarkers(raw, locs)
	}
	if s := strings.TrimSpace(raw); s != "" {
		return []string{s}
	}
	return nil
}

// splitLines emits a segment at every CR or LF. The two can be mixed within
// one message, so this is a character scan rather than a split on a single
// delimiter.
func splitLines(raw string) []string {
	var segments []string
	var sb strings.Builder
	flush := func() {
		if s := strings.TrimSpace(sb.String()); s != "" {
			segments = append(segments, s)
		}
		sb.Reset()
	}
	for _, r := range raw {
		if r == '\r' || r == '\n' {
			flush()
			continue
		}
		sb.WriteRune(r)
	}
	flush()
	return segments
}

// splitMarkers cuts a single-line message at every |XXX| marker. The text
// between consecutive markers is one segment; trailing text after the last
// marker becomes the final segment.
func splitMarkers(raw string, locs [][]int) []string {
	var segments []string
	start := 0
	for _, loc := range locs {
		// Keep the leading pipe with the next segment.
		end := loc[0] + 1
		if start < end {
			if content := strings.TrimSpace(raw[start:end]); content != "" {
				if repaired := repairEmbedded(content); repaired != nil {
					segments = append(segments, repaired...)
				} else {
					segments = append(segments, content)
				}
			}
		}
		start = end
	}
	if start < len(raw) {
		if tail := strings.TrimSpace(raw[start:]); tail != "" {
			segments = append(segments, tail)
		}
	}
	return segments
}

// repairEmbedded splits an MSH segment whose tail swallowed a PID segment, a
// malformation seen in single-line feeds. Returns nil when no embedding is
// found. Only the MSH-contains-PID case is repaired; other embeddings pass
// through the strict tokenizer untouched.
func repairEmbedded(segment string) []string {
	if !strings.HasPrefix(segment, "MSH") {
		return nil
	}
	idx := strings.Index(segment, "|PID|")
	if idx < 0 {
		return nil
	}
	msh := strings.TrimSpace(segment[:idx])

	pidData := segment[idx+len("|PID|"):]
	if next := segmentMarker.FindStringIndex(pidData); next != nil {
		pidData = pidData[:next[0]]
	}
	pid := strings.TrimSpace("PID|" + pidData)

	return []string{msh, pid}
}
