// Package notify emits the downstream side effects of a cycle: webhook
// payloads for species changes and the reload signal for the live scanner.
// Both are pure read-then-send; nothing here writes back to the catalog.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/NestWatch/NW-Backend/internal/nest"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// BatchSize caps how many payloads go into one webhook POST. Purely a
// back-pressure control: delivering every change exactly once is the
// contract, the batch size is not.
const BatchSize = 50

// Payload is one changed-nest notification.
type Payload struct {
	Type    string  `json:"type"`
	Message Message `json:"message"`
}

// Message mirrors what nest map frontends expect for a nest change.
type Message struct {
	NestID       int64          `json:"nest_id"`
	Name         string         `json:"name"`
	Form         *int           `json:"form"`
	Lat          float64        `json:"lat"`
	Lon          float64        `json:"lon"`
	PokemonID    int            `json:"pokemon_id"`
	PokemonCount int            `json:"pokemon_count"`
	PokemonAvg   float64        `json:"pokemon_avg"`
	PokemonRatio float64        `json:"pokemon_ratio"`
	CurrentTime  int64          `json:"current_time"`
	ResetTime    int64          `json:"reset_time"`
	PolyPath     [][][2]float64 `json:"poly_path"`
}

// BuildPayload renders one nest into the webhook shape. The polygon ring is
// emitted closed (last point equals the first).
func BuildPayload(n nest.Nest, now, reset time.Time) Payload {
	var pokemonID int
	if n.PokemonID != nil {
		pokemonID = *n.PokemonID
	}

	var ring [][2]float64
	if len(n.Polygon.Polygon) > 0 {
		outer := n.Polygon.Polygon[0]
		ring = make([][2]float64, 0, len(outer)+1)
		for _, pt := range outer {
			ring = append(ring, [2]float64{pt.Lon(), pt.Lat()})
		}
		if len(ring) > 0 && ring[0] != ring[len(ring)-1] {
			ring = append(ring, ring[0])
		}
	}

	return Payload{
		Type: "nest",
		Message: Message{
			NestID:       n.NestID,
			Name:         n.Name,
			Form:         n.PokemonForm,
			Lat:          n.Lat,
			Lon:          n.Lon,
			PokemonID:    pokemonID,
			PokemonCount: int(n.PokemonCount),
			PokemonAvg:   n.PokemonAvg,
			PokemonRatio: n.PokemonRatio,
			CurrentTime:  now.Unix(),
			ResetTime:    reset.Unix(),
			PolyPath:     [][][2]float64{ring},
		},
	}
}

// Notifier posts payload batches to the configured webhook endpoint.
type Notifier struct {
	url     string
	client  *http.Client
	limiter *rate.Limiter
}

// NewNotifier returns nil when no endpoint is configured; the cycle treats
// that as the stage being disabled, not an error.
func NewNotifier(url string) *Notifier {
	if url == "" {
		return nil
	}
	return &Notifier{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		// Webhook receivers tend to rate limit hard; 2 posts/sec is safe.
		limiter: rate.NewLimiter(rate.Limit(2), 1),
	}
}

// Send delivers the payloads in batches of at most BatchSize. A failed
// batch is logged and later batches are still attempted; the caller gets
// the counts, never a fatal error.
func (nt *Notifier) Send(ctx context.Context, payloads []Payload) (delivered, failed int) {
	for start := 0; start < len(payloads); start += BatchSize {
		end := start + BatchSize
		if end > len(payloads) {
			end = len(payloads)
		}
		batch := payloads[start:end]
		if err := nt.post(ctx, batch); err != nil {
			log.Printf("[notify] batch of %d failed: %v", len(batch), err)
			failed += len(batch)
			continue
		}
		delivered += len(batch)
	}
	return delivered, failed
}

func (nt *Notifier) post(ctx context.Context, batch []Payload) error {
	if err := nt.limiter.Wait(ctx); err != nil {
		return err
	}

	body, err := json.Marshal(batch)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, nt.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-NestWatch-Batch", uuid.NewString())

	resp, err := nt.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned %s", resp.Status)
	}
	return nil
}
