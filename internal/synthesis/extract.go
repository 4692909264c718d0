package synthesis

import (
	"encoding/json"
	"strings"
)

// ExtractJSON pulls the single JSON document out of free-form model
// output. Providers wrap answers in code fences or surround them with
// prose; the algorithm strips fence markers, takes the first '{' or '['
// (whichever comes first) through the matching last closer, and validates
// the slice.
func ExtractJSON(content string) (string, error) {
	s := strings.TrimSpace(content)
	s = stripFences(s)

	objStart := strings.IndexByte(s, '{')
	arrStart := strings.IndexByte(s, '[')

	start := objStart
	closer := byte('}')
	if objStart < 0 || (arrStart >= 0 && arrStart < objStart) {
		start = arrStart
		closer = ']'
	}

	if start < 0 {
		return "", &ParseError{Reason: "no JSON document found in output"}
	}

	end := strings.LastIndexByte(s, closer)
	if end <= start {
		return "", &ParseError{Reason: "unbalanced JSON document in output"}
	}

	candidate := s[start : end+1]
	if !json.Valid([]byte(candidate)) {
		return "", &ParseError{Reason: "extracted region is not valid JSON"}
	}

	return candidate, nil
}

// ExtractProfileDocument extracts and decodes the profile sections. The
// document must be a JSON object; no deeper schema validation happens
// here, downstream consumers treat every nested field as optional.
func ExtractProfileDocument(content string) (map[string]any, error) {
	raw, err := ExtractJSON(content)
	if err != nil {
		return nil, err
	}

	var sections map[string]any
	if err := json.Unmarshal([]byte(raw), &sections); err != nil {
		return nil, &ParseError{Reason: "document is not a JSON object"}
	}

	return sections, nil
}

func stripFences(s string) string {
	if strings.HasPrefix(s, "```") {
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
	}
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSuffix(s, "```")
		s = strings.TrimSpace(s)
	}
	return s
}
