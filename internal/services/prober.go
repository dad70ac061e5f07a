package services

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/semaphore"
)

// probeUserAgent mirrors what a desktop browser sends; some sites answer
// bots and unknown agents differently.
const probeUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) " +
	"Chrome/118.0.5993.70 Safari/537.36"

// CheckResult is one site's probe outcome, written back to the store and
// broadcast to status subscribers as it resolves.
type CheckResult struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	Live        string    `json:"live"`
	LastChecked time.Time `json:"lastChecked"`
}

// Prober runs bounded-time reachability checks against site URLs.
type Prober struct {
	Client  *http.Client
	Timeout time.Duration
	Workers int64
	Hub     *EventHub
}

func NewProber(timeout time.Duration, workers int, hub *EventHub) *Prober {
	if workers < 1 {
		workers = 1
	}
	return &Prober{
		Client:  &http.Client{},
		Timeout: timeout,
		Workers: int64(workers),
		Hub:     hub,
	}
}

// ProbeOne issues a single GET against url and classifies the outcome.
// Any HTTP response counts as up, error statuses included; only transport
// failures and timeouts count as down. Redirects are followed.
func (p *Prober) ProbeOne(ctx context.Context, url string) bool {
	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", probeUserAgent)
	req.Header.Set("Cache-Control", "no-cache")
	resp, err := p.Client.Do(req)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return true
}

// ProbeBatch probes every site in the store, or only those whose id
// appears in ids (invalid ids are dropped silently). Probes run
// concurrently under a weighted semaphore; each site's live state,
// last_checked and updated_at are written back independently as its probe
// completes. Returns the number of sites considered and the number whose
// write-back succeeded.
func (p *Prober) ProbeBatch(ctx context.Context, db *sqlx.DB, ids []string) (int, int, error) {
	targets := []struct {
		ID  string `db:"id"`
		URL string `db:"url"`
	}{}

	if len(ids) > 0 {
		valid := make([]string, 0, len(ids))
		for _, raw := range ids {
			parsed, err := uuid.Parse(strings.TrimSpace(raw))
			if err != nil {
				continue
			}
			valid = append(valid, parsed.String())
		}
		if len(valid) == 0 {
			return 0, 0, nil
		}
		query, args, err := sqlx.In(`SELECT id, url FROM sites WHERE id::text IN (?)`, valid)
		if err != nil {
			return 0, 0, err
		}
		if err := db.Select(&targets, db.Rebind(query), args...); err != nil {
			return 0, 0, err
		}
	} else {
		if err := db.Select(&targets, `SELECT id, url FROM sites`); err != nil {
			return 0, 0, err
		}
	}

	sem := semaphore.NewWeighted(p.Workers)
	var wg sync.WaitGroup
	var updated int64
	for _, target := range targets {
		target := target
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)
			live := LiveDown
			if p.ProbeOne(ctx, target.URL) {
				live = LiveUp
			}
			now := time.Now().UTC()
			_, err := db.Exec(
				`UPDATE sites SET live = $1, last_checked = $2, updated_at = $2 WHERE id = $3`,
				live, now, target.ID)
			if err == nil {
				atomic.AddInt64(&updated, 1)
			}
			if p.Hub != nil {
				p.Hub.Broadcast(Event{Type: "check", Payload: CheckResult{
					ID:          target.ID,
					URL:         target.URL,
					Live:        live,
					LastChecked: now,
				}})
			}
		}()
	}
	wg.Wait()
	return len(targets), int(atomic.LoadInt64(&updated)), nil
}
