package query

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

const tokenPrefix = "recordsim:skip="

// encodeToken returns an opaque token resuming at offset skip.
func encodeToken(skip int) string {
	return base64.RawURLEncoding.EncodeToString([]byte(tokenPrefix + strconv.Itoa(skip)))
}

func decodeToken(token string) (int, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return 0, fmt.Errorf("malformed continuation token: %w", err)
	}
	s, ok := strings.CutPrefix(string(raw), tokenPrefix)
	if !ok {
		return 0, fmt.Errorf("malformed continuation token %q", token)
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("malformed continuation token %q", token)
	}
	return n, nil
}

// page slices n rows according to p. It returns the half-open range and,
// when rows remain, the token resuming after it.
func page(n int, p Paging) (start, end int, token string) {
	start = p.Skip
	if p.ContinuationToken != "" {
		if skip, err := decodeToken(p.ContinuationToken); err == nil {
			start = skip
		}
	}
	start = min(max(start, 0), n)
	end = n
	if p.Top > 0 {
		end = min(start+p.Top, n)
	}
	if end < n {
		token = encodeToken(end)
	}
	return start, end, token
}
