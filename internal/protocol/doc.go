// Package protocol builds request lines for the sensor module and pulls scalar fields
// out of its response lines.
//
// The wire format is newline-delimited flat JSON objects:
//
//	request:  {"cmd":"SCAN","req_id":"7","args":{"mode":"RELIABLE","frames":3}}
//	response: {"req_id":"7","ok":true,"result":{"person":"NONE","objects":[]}}
//
// Response scanning is substring based and deliberately tolerant. Nothing here returns an
// error: malformed input yields an absent value or false. Deployed module firmware is
// matched on this exact behaviour, so it must not be replaced with a strict decoder.
package protocol
