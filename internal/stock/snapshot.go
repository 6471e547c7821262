package stock

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"StockLens/internal/model"
)

// Snapshot is the serialized form of a Stock, used by external caches.
type Snapshot struct {
	Symbol    string         `json:"symbol"`
	Info      map[string]any `json:"info"`
	Bars      []model.OHLCV  `json:"bars"`
	FetchedAt time.Time      `json:"fetched_at"`
}

// Snapshot captures the raw inputs of s.
func (s *Stock) Snapshot() Snapshot {
	return Snapshot{
		Symbol:    s.Symbol,
		Info:      map[string]any(s.Info),
		Bars:      s.data.Bars(),
		FetchedAt: s.FetchedAt,
	}
}

// Restore rebuilds a Stock from a snapshot with the given options.
func Restore(snap Snapshot, opts Options) *Stock {
	s := Build(snap.Symbol, snap.Info, snap.Bars, opts)
	s.FetchedAt = snap.FetchedAt
	return s
}

// EncodeSnapshot marshals a snapshot to JSON.
func EncodeSnapshot(snap Snapshot) ([]byte, error) {
	return json.Marshal(snap)
}

// DecodeSnapshot unmarshals a snapshot, keeping integral metadata values as
// int64 so that only real floats are rounded on read.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var snap Snapshot
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	for k, v := range snap.Info {
		if n, ok := v.(json.Number); ok {
			if i, err := n.Int64(); err == nil {
				snap.Info[k] = i
			} else if f, err := n.Float64(); err == nil {
				snap.Info[k] = f
			}
		}
	}
	return snap, nil
}
