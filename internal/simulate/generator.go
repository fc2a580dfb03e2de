// Package simulate produces and replays sighting streams without a camera.
package simulate

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/okian/rollcall/internal/domain/model"
)

const (
	defaultInterval = 40 * time.Millisecond // 25 fps
	confidenceFloor = 0.80
	confidenceCap   = 0.99
	confidenceSpan  = 200 // thousandths above the floor
)

// Config describes a synthetic stream.
type Config struct {
	Subjects            int           // enrolled subjects that show up
	SightingsPerSubject int           // matches produced for each of them
	Noise               int           // one-off matches of subjects seen only once
	Start               time.Time     // timestamp of the first event; zero means now
	Interval            time.Duration // spacing between consecutive events
}

// Validate reports whether c can produce a stream.
func (c Config) Validate() error {
	if c.Subjects < 0 || c.SightingsPerSubject < 0 || c.Noise < 0 {
		return fmt.Errorf("%w: negative count", ErrInvalidConfig)
	}
	if c.Subjects*c.SightingsPerSubject+c.Noise == 0 {
		return fmt.Errorf("%w: empty stream", ErrInvalidConfig)
	}
	return nil
}

// Generate returns an interleaved stream: every subject's sightings are
// spread through the stream in random order, as faces drift in and out of
// frame. Subject ids are fresh uuids.
func Generate(ctx context.Context, cfg Config) ([]model.IdentityEvent, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.Start.IsZero() {
		cfg.Start = time.Now()
	}
	type who struct{ id, name string }
	slots := make([]who, 0, cfg.Subjects*cfg.SightingsPerSubject+cfg.Noise)
	for i := 0; i < cfg.Subjects; i++ {
		w := who{id: uuid.NewString(), name: "Subject " + strconv.Itoa(i+1)}
		for j := 0; j < cfg.SightingsPerSubject; j++ {
			slots = append(slots, w)
		}
	}
	for i := 0; i < cfg.Noise; i++ {
		slots = append(slots, who{id: uuid.NewString(), name: "Passer-by " + strconv.Itoa(i+1)})
	}
	if err := shuffle(len(slots), func(i, j int) { slots[i], slots[j] = slots[j], slots[i] }); err != nil {
		return nil, err
	}

	evs := make([]model.IdentityEvent, len(slots))
	for i, w := range slots {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("generate: %w", err)
			}
		}
		conf, err := randomConfidence()
		if err != nil {
			return nil, err
		}
		evs[i] = model.IdentityEvent{
			SubjectID:   w.id,
			DisplayName: w.name,
			Timestamp:   cfg.Start.Add(time.Duration(i) * cfg.Interval),
			Confidence:  conf,
		}
	}
	return evs, nil
}

// shuffle is a Fisher-Yates pass driven by crypto/rand.
func shuffle(n int, swap func(i, j int)) error {
	for i := n - 1; i > 0; i-- {
		j, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return fmt.Errorf("shuffle: %w", err)
		}
		swap(i, int(j.Int64()))
	}
	return nil
}

func randomConfidence() (float64, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(confidenceSpan))
	if err != nil {
		return 0, fmt.Errorf("confidence: %w", err)
	}
	c := confidenceFloor + float64(n.Int64())/1000
	if c > confidenceCap {
		c = confidenceCap
	}
	return c, nil
}
