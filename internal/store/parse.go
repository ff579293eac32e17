package store

import (
	"strconv"
	"strings"
)

// parseContentLength extracts the value of a "Content-Length: N" header
// line. ok is false if the line is not a Content-Length header or the
// value doesn't parse.
func parseContentLength(headerLine string) (n int, ok bool) {
	const prefix = "content-length:"

	trimmed := strings.TrimSpace(headerLine)
	lower := strings.ToLower(trimmed)
	if !strings.HasPrefix(lower, prefix) {
		return 0, false
	}

	val := strings.TrimSpace(trimmed[len(prefix):])
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, false
	}
	return n, true
}

// parseStatusLine extracts the status text from "HTTP/1.1 200 OK\r\n".
func parseStatusLine(line string) (status string, ok bool) {
	const prefix = "HTTP/1.1 "

	if !strings.HasPrefix(line, prefix) {
		return "", false
	}
	return strings.TrimRight(line[len(prefix):], "\r\n"), true
}
