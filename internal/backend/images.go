package backend

import (
	"encoding/base64"
	"fmt"
	"strings"

	"texforge/backend/internal/llm"
)

// imageParam is an attached image as the frontend sends it: base64 data,
// optionally as a data: URL.
type imageParam struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

func (p imageParam) decode() (llm.Image, error) {
	data := p.Data
	mime := p.MIMEType
	if strings.HasPrefix(data, "data:") {
		rest := strings.TrimPrefix(data, "data:")
		semi := strings.Index(rest, ";base64,")
		if semi < 0 {
			return llm.Image{}, fmt.Errorf("unsupported data url")
		}
		mime = rest[:semi]
		data = rest[semi+len(";base64,"):]
	}
	if mime == "" {
		mime = "image/png"
	}
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return llm.Image{}, fmt.Errorf("invalid image data: %w", err)
	}
	return llm.Image{MIMEType: mime, Data: raw}, nil
}
