package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"
)

// ErrNoData indica que no hay snapshots en la entrada o en el rango pedido.
// Es un error de configuración fatal para un run, no un degradado parcial.
var ErrNoData = errors.New("no snapshot data")

// MarketSnapshot es el estado de un mercado en un instante concreto.
// Es inmutable: el collector lo produce y la simulación solo lo lee.
type MarketSnapshot struct {
	Timestamp  time.Time
	MarketID   string
	Question   string
	YesPrice   float64 // precio del token YES en [0,1]
	NoPrice    float64 // precio del token NO; no tiene por qué sumar 1 con YES
	Volume     float64
	Volume24h  float64
	Liquidity  float64
	EndDate    time.Time // zero si el mercado no publica fecha de resolución
	Resolved   bool
	Resolution string // "YES" | "NO" | "" si no está resuelto
}

// snapshotJSON es el formato de archivo histórico (una entrada por snapshot).
type snapshotJSON struct {
	Timestamp  string   `json:"timestamp"`
	MarketID   string   `json:"market_id"`
	Question   string   `json:"question,omitempty"`
	YesPrice   *float64 `json:"yes_price"`
	NoPrice    *float64 `json:"no_price"`
	Volume     *float64 `json:"volume,omitempty"`
	Volume24h  *float64 `json:"volume_24h,omitempty"`
	Liquidity  *float64 `json:"liquidity,omitempty"`
	EndDate    string   `json:"end_date,omitempty"`
	Resolved   bool     `json:"resolved,omitempty"`
	Resolution string   `json:"resolution,omitempty"`
}

// Validate comprueba que el snapshot tiene los campos mínimos para simular.
// Un snapshot inválido debe rechazarse en la ingesta, nunca llegar al core.
func (s MarketSnapshot) Validate() error {
	if s.MarketID == "" {
		return fmt.Errorf("snapshot: empty market_id")
	}
	if s.Timestamp.IsZero() {
		return fmt.Errorf("snapshot %s: zero timestamp", s.MarketID)
	}
	if s.YesPrice < 0 || s.YesPrice > 1 {
		return fmt.Errorf("snapshot %s@%s: yes_price %.4f out of [0,1]",
			s.MarketID, s.Timestamp.Format(time.RFC3339), s.YesPrice)
	}
	if s.NoPrice < 0 || s.NoPrice > 1 {
		return fmt.Errorf("snapshot %s@%s: no_price %.4f out of [0,1]",
			s.MarketID, s.Timestamp.Format(time.RFC3339), s.NoPrice)
	}
	if s.Volume < 0 || s.Volume24h < 0 || s.Liquidity < 0 {
		return fmt.Errorf("snapshot %s@%s: negative volume/liquidity",
			s.MarketID, s.Timestamp.Format(time.RFC3339))
	}
	return nil
}

// LoadSnapshotsJSON carga snapshots históricos desde un archivo JSON.
// Falla rápido si falta algún campo numérico requerido (yes_price, no_price).
// Devuelve los snapshots ordenados por timestamp.
func LoadSnapshotsJSON(path string) ([]MarketSnapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("domain.LoadSnapshotsJSON: read %q: %w", path, err)
	}

	var raw []snapshotJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("domain.LoadSnapshotsJSON: parse %q: %w", path, err)
	}

	snaps := make([]MarketSnapshot, 0, len(raw))
	for i, r := range raw {
		if r.YesPrice == nil || r.NoPrice == nil {
			return nil, fmt.Errorf("domain.LoadSnapshotsJSON: entry %d (%s): missing yes_price/no_price", i, r.MarketID)
		}

		s := MarketSnapshot{
			MarketID:   r.MarketID,
			Question:   r.Question,
			YesPrice:   *r.YesPrice,
			NoPrice:    *r.NoPrice,
			Resolved:   r.Resolved,
			Resolution: r.Resolution,
		}
		if r.Volume != nil {
			s.Volume = *r.Volume
		}
		if r.Volume24h != nil {
			s.Volume24h = *r.Volume24h
		}
		if r.Liquidity != nil {
			s.Liquidity = *r.Liquidity
		}

		s.Timestamp, err = parseTimestamp(r.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("domain.LoadSnapshotsJSON: entry %d (%s): %w", i, r.MarketID, err)
		}
		if r.EndDate != "" {
			s.EndDate, err = parseTimestamp(r.EndDate)
			if err != nil {
				return nil, fmt.Errorf("domain.LoadSnapshotsJSON: entry %d (%s): end_date: %w", i, r.MarketID, err)
			}
		}

		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("domain.LoadSnapshotsJSON: entry %d: %w", i, err)
		}
		snaps = append(snaps, s)
	}

	SortSnapshots(snaps)
	return snaps, nil
}

// SaveSnapshotsJSON escribe snapshots al formato de archivo histórico.
func SaveSnapshotsJSON(path string, snaps []MarketSnapshot) error {
	raw := make([]snapshotJSON, 0, len(snaps))
	for _, s := range snaps {
		yes, no := s.YesPrice, s.NoPrice
		vol, vol24, liq := s.Volume, s.Volume24h, s.Liquidity
		r := snapshotJSON{
			Timestamp:  s.Timestamp.UTC().Format(time.RFC3339),
			MarketID:   s.MarketID,
			Question:   s.Question,
			YesPrice:   &yes,
			NoPrice:    &no,
			Volume:     &vol,
			Volume24h:  &vol24,
			Liquidity:  &liq,
			Resolved:   s.Resolved,
			Resolution: s.Resolution,
		}
		if !s.EndDate.IsZero() {
			r.EndDate = s.EndDate.UTC().Format(time.RFC3339)
		}
		raw = append(raw, r)
	}

	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("domain.SaveSnapshotsJSON: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("domain.SaveSnapshotsJSON: write %q: %w", path, err)
	}
	return nil
}

// SortSnapshots ordena in-place por timestamp ascendente.
// Garantiza el invariante de orden que asume el engine.
func SortSnapshots(snaps []MarketSnapshot) {
	sort.SliceStable(snaps, func(i, j int) bool {
		return snaps[i].Timestamp.Before(snaps[j].Timestamp)
	})
}

// GroupByMarket agrupa snapshots por market_id preservando el orden temporal.
func GroupByMarket(snaps []MarketSnapshot) map[string][]MarketSnapshot {
	byMarket := make(map[string][]MarketSnapshot)
	for _, s := range snaps {
		byMarket[s.MarketID] = append(byMarket[s.MarketID], s)
	}
	return byMarket
}

// parseTimestamp intenta los formatos de fecha que aparecen en los datos.
func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range []string{
		time.RFC3339,
		"2006-01-02T15:04:05.000Z",
		"2006-01-02T15:04:05Z",
		"2006-01-02T15:04:05",
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}
