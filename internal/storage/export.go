package storage

import (
	"encoding/json"
	"io"
)

type ExportData struct {
	Meta    *RunMetadata `json:"meta"`
	Samples int          `json:"samples"`
	History *History     `json:"history"`
}

func ExportJSON(w io.Writer, meta *RunMetadata, hist *History) error {
	data := ExportData{
		Meta:    meta,
		Samples: hist.Len(),
		History: hist,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
