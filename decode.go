package main

import (
	"strings"

	"github.com/tidwall/gjson"
)

// DecodeKind classifies a JD response body.
type DecodeKind int

const (
	// DecodeEmpty covers blank bodies and the literal text "null", which
	// several endpoints return while the sale page has not flipped over.
	DecodeEmpty DecodeKind = iota
	// DecodeMalformed is a non-empty body with no JSON in it (HTML error
	// pages, rate-limit stubs).
	DecodeMalformed
	// DecodeParsed carries the parsed JSON.
	DecodeParsed
)

// Decoded is the tagged result of DecodeBody.
type Decoded struct {
	Kind DecodeKind
	JSON gjson.Result
}

// DecodeBody parses a JD response body that may be plain JSON, JSONP wrapped
// in a callback (jQuery1234567({...}), fetchJSON({...})), or the literal
// "null". The endpoints are not consistent about any of this, so every
// caller funnels through here instead of probing strings itself.
func DecodeBody(body []byte) Decoded {
	s := strings.TrimSpace(string(body))
	s = strings.TrimSuffix(s, ";")

	// Strip a JSONP wrapper: anything up to the first paren, when the body
	// is not already bare JSON.
	if !strings.HasPrefix(s, "{") && !strings.HasPrefix(s, "[") {
		if open := strings.IndexByte(s, '('); open >= 0 && strings.HasSuffix(s, ")") {
			s = strings.TrimSpace(s[open+1 : len(s)-1])
		}
	}

	if s == "" || s == "null" {
		return Decoded{Kind: DecodeEmpty}
	}
	if !gjson.Valid(s) {
		return Decoded{Kind: DecodeMalformed}
	}

	r := gjson.Parse(s)
	if r.Type == gjson.Null {
		return Decoded{Kind: DecodeEmpty}
	}
	return Decoded{Kind: DecodeParsed, JSON: r}
}
