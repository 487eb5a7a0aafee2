package remote

import (
	"bytes"
	"encoding/json"
)

// searchRequest is the request body for a retrieval service's /search endpoint.
type searchRequest struct {
	Query string `json:"query"`
	K     int    `json:"k"`
}

// searchResponse is the response from /search. A missing results field
// decodes to an empty list. Null elements stay nil so they can be rejected.
type searchResponse struct {
	Results []*searchResult `json:"results"`
}

// searchResult is a single scored hit. Missing fields keep their zero values;
// an explicit null document is rejected during mapping.
type searchResult struct {
	Score    float64        `json:"score"`
	Document searchDocument `json:"document"`
}

type searchDocument struct {
	PageContent string         `json:"page_content"`
	Metadata    map[string]any `json:"metadata"`

	null bool
}

// UnmarshalJSON records an explicit null and otherwise decodes the document
// with numbers kept as json.Number.
func (d *searchDocument) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		d.null = true
		return nil
	}

	type plain searchDocument
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode((*plain)(d))
}
