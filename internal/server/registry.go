package server

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	chronoseal "github.com/chronoseal/capsule-go"
)

// webhookStats tracks delivery outcomes for one webhook.
type webhookStats struct {
	TotalDeliveries      int        `json:"total_deliveries"`
	SuccessfulDeliveries int        `json:"successful_deliveries"`
	FailedDeliveries     int        `json:"failed_deliveries"`
	LastDeliveryAt       *time.Time `json:"last_delivery_at,omitempty"`
	LastSuccessAt        *time.Time `json:"last_success_at,omitempty"`
	LastFailureAt        *time.Time `json:"last_failure_at,omitempty"`
}

// webhookRecord is one registered notification target. The same struct is
// persisted to disk; the secret therefore never appears in API list/get
// responses, only in the file and in create/rotate responses.
type webhookRecord struct {
	ID          string       `json:"id"`
	URL         string       `json:"url"`
	Secret      string       `json:"secret"`
	Description string       `json:"description,omitempty"`
	Enabled     bool         `json:"enabled"`
	Stats       webhookStats `json:"stats"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

func (w *webhookRecord) clone() *webhookRecord {
	c := *w
	return &c
}

// webhookFile is the on-disk layout of the registry.
type webhookFile struct {
	Version  int              `json:"version"`
	Webhooks []*webhookRecord `json:"webhooks"`
}

// webhookRegistry holds the registered webhooks for one vault, persisted as
// a JSON file next to the capsule store.
type webhookRegistry struct {
	path   string
	logger *logrus.Logger

	mu       sync.Mutex
	webhooks map[string]*webhookRecord
}

// newWebhookRegistry loads the registry at path. A missing file starts an
// empty registry; an unreadable one is logged and ignored so the server
// still comes up.
func newWebhookRegistry(path string, logger *logrus.Logger) *webhookRegistry {
	r := &webhookRegistry{
		path:     path,
		logger:   logger,
		webhooks: make(map[string]*webhookRecord),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.WithError(err).Warn("webhook registry unreadable, starting empty")
		}
		return r
	}

	var file webhookFile
	if err := json.Unmarshal(data, &file); err != nil {
		logger.WithError(err).Warn("webhook registry corrupt, starting empty")
		return r
	}
	for _, w := range file.Webhooks {
		if w.ID == "" {
			continue
		}
		r.webhooks[w.ID] = w
	}
	return r
}

// save writes the registry to disk. Callers hold r.mu.
func (r *webhookRegistry) save() error {
	file := webhookFile{Version: 1, Webhooks: r.sortedLocked()}
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal webhook registry: %w", err)
	}
	if err := os.WriteFile(r.path, data, 0o600); err != nil {
		return fmt.Errorf("write webhook registry: %w", err)
	}
	return nil
}

func (r *webhookRegistry) sortedLocked() []*webhookRecord {
	out := make([]*webhookRecord, 0, len(r.webhooks))
	for _, w := range r.webhooks {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// create registers a new webhook with a generated ID and signing secret.
func (r *webhookRegistry) create(url, description string, enabled bool) (*webhookRecord, error) {
	now := time.Now().UTC()
	w := &webhookRecord{
		ID:          "wh_" + randomHex(8),
		URL:         url,
		Secret:      "whsec_" + randomHex(32),
		Description: description,
		Enabled:     enabled,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.webhooks[w.ID] = w
	if err := r.save(); err != nil {
		delete(r.webhooks, w.ID)
		return nil, err
	}
	return w.clone(), nil
}

// list returns all webhooks in creation order.
func (r *webhookRegistry) list() []*webhookRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.sortedLocked()
	for i, w := range out {
		out[i] = w.clone()
	}
	return out
}

func (r *webhookRegistry) get(id string) (*webhookRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.webhooks[id]
	if !ok {
		return nil, chronoseal.ErrWebhookNotFound
	}
	return w.clone(), nil
}

// update applies a partial update. Nil fields are left untouched.
func (r *webhookRegistry) update(id string, url, description *string, enabled *bool) (*webhookRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.webhooks[id]
	if !ok {
		return nil, chronoseal.ErrWebhookNotFound
	}

	prev := *w
	if url != nil {
		w.URL = *url
	}
	if description != nil {
		w.Description = *description
	}
	if enabled != nil {
		w.Enabled = *enabled
	}
	w.UpdatedAt = time.Now().UTC()

	if err := r.save(); err != nil {
		*w = prev
		return nil, err
	}
	return w.clone(), nil
}

func (r *webhookRegistry) delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.webhooks[id]
	if !ok {
		return chronoseal.ErrWebhookNotFound
	}

	delete(r.webhooks, id)
	if err := r.save(); err != nil {
		r.webhooks[id] = w
		return err
	}
	return nil
}

// rotateSecret replaces the signing secret. The old secret stops validating
// immediately; consumers must pick up the new one from the response.
func (r *webhookRegistry) rotateSecret(id string) (*webhookRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.webhooks[id]
	if !ok {
		return nil, chronoseal.ErrWebhookNotFound
	}

	prev := *w
	w.Secret = "whsec_" + randomHex(32)
	w.UpdatedAt = time.Now().UTC()

	if err := r.save(); err != nil {
		*w = prev
		return nil, err
	}
	return w.clone(), nil
}

// targets returns the enabled webhooks, for the unlock scanner.
func (r *webhookRegistry) targets() []*webhookRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*webhookRecord, 0, len(r.webhooks))
	for _, w := range r.webhooks {
		if w.Enabled {
			out = append(out, w.clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// recordDelivery updates the webhook's stats after a delivery attempt. An
// unknown ID is ignored; the webhook may have been deleted mid-scan.
func (r *webhookRegistry) recordDelivery(id string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, found := r.webhooks[id]
	if !found {
		return
	}

	now := time.Now().UTC()
	w.Stats.TotalDeliveries++
	w.Stats.LastDeliveryAt = &now
	if ok {
		w.Stats.SuccessfulDeliveries++
		w.Stats.LastSuccessAt = &now
	} else {
		w.Stats.FailedDeliveries++
		w.Stats.LastFailureAt = &now
	}

	if err := r.save(); err != nil {
		r.logger.WithError(err).Warn("webhook stats not persisted")
	}
}

func randomHex(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("read random bytes: %v", err))
	}
	return hex.EncodeToString(buf)
}
