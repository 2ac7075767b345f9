// Package feed converts docs to and from their JSON wire shape.
package feed

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/cwygoda/feedhandler/internal/domain"
)

// DocRequest is one inbound feed entry.
type DocRequest struct {
	Type   string `json:"type"`
	APIID  int64  `json:"api_id"`
	Source string `json:"source,omitempty"`
}

// ResourceResponse is the JSON shape of a resource.
type ResourceResponse struct {
	ID        int64  `json:"id"`
	APIID     int64  `json:"api_id"`
	Location  string `json:"location"`
	CreatedAt string `json:"created_at,omitempty"`
}

// DocResponse is the JSON shape of a doc outcome.
type DocResponse struct {
	ID        int64             `json:"id,omitempty"`
	Type      string            `json:"type"`
	APIID     int64             `json:"api_id"`
	Source    string            `json:"source,omitempty"`
	Status    string            `json:"status"`
	Resource  *ResourceResponse `json:"resource,omitempty"`
	Error     string            `json:"error,omitempty"`
	ErrorKind string            `json:"error_kind,omitempty"`
	CreatedAt string            `json:"created_at,omitempty"`
	UpdatedAt string            `json:"updated_at,omitempty"`
}

// Decode reads a JSON array of feed entries.
func Decode(r io.Reader) ([]domain.Doc, error) {
	var reqs []DocRequest
	if err := json.NewDecoder(r).Decode(&reqs); err != nil {
		return nil, fmt.Errorf("decode feed: %w", err)
	}

	docs := make([]domain.Doc, len(reqs))
	for i, req := range reqs {
		docs[i] = domain.Doc{Type: req.Type, APIID: req.APIID, Source: req.Source}
	}
	return docs, nil
}

// ToResponse renders doc for JSON output.
func ToResponse(doc domain.Doc) DocResponse {
	resp := DocResponse{
		ID:        doc.ID,
		Type:      doc.Type,
		APIID:     doc.APIID,
		Source:    doc.Source,
		Status:    string(doc.Status),
		CreatedAt: formatTime(doc.CreatedAt),
		UpdatedAt: formatTime(doc.UpdatedAt),
	}
	if doc.Resource != nil {
		r := ResourceToResponse(*doc.Resource)
		resp.Resource = &r
	}
	if doc.Err != nil {
		resp.Error = doc.Err.Error()
		if doc.Status == domain.StatusFailed {
			resp.ErrorKind = domain.KindOf(doc.Err).String()
		}
	}
	return resp
}

// ResourceToResponse renders r for JSON output.
func ResourceToResponse(r domain.Resource) ResourceResponse {
	return ResourceResponse{
		ID:        r.ID,
		APIID:     r.APIID,
		Location:  r.Location,
		CreatedAt: formatTime(r.CreatedAt),
	}
}

// Encode writes docs as an indented JSON array.
func Encode(w io.Writer, docs []domain.Doc) error {
	out := make([]DocResponse, len(docs))
	for i, doc := range docs {
		out[i] = ToResponse(doc)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
