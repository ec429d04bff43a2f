package store

import "encoding/json"

// encodeHeadings serialises a heading list to JSON for storage in the
// markdown_meta.headings column. Headings are read-mostly structured data
// with no query requirements of their own, so a single JSON column is
// simpler than a child table.
func encodeHeadings(h []Heading) string {
	if len(h) == 0 {
		return "[]"
	}
	b, err := json.Marshal(h)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func decodeHeadings(s string) []Heading {
	if s == "" {
		return nil
	}
	var h []Heading
	_ = json.Unmarshal([]byte(s), &h)
	return h
}
