// Package session keeps in-progress item edits in an expiring cache. A
// session holds the selectable fields of one item until it is submitted,
// cancelled or expires.
package session

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"sjsage522/pricewatcher/internal/model"
	"sjsage522/pricewatcher/pkg/errors"
	"sjsage522/pricewatcher/services/cache"
)

const (
	component = "session"
	keyPrefix = "edit-session:"
)

// Session is an in-progress edit of a monitored item.
type Session struct {
	ID             string          `json:"id"`
	ItemID         string          `json:"itemId"`
	OwnerID        string          `json:"ownerId"`
	Condition      model.Condition `json:"condition"`
	IsFoil         bool            `json:"isFoil"`
	SellerVerified bool            `json:"sellerVerified"`
	ExpiresAt      time.Time       `json:"expiresAt"`
}

// Patch sets some of a session's fields. Nil fields are left alone.
type Patch struct {
	Condition      *model.Condition `json:"condition,omitempty"`
	IsFoil         *bool            `json:"isFoil,omitempty"`
	SellerVerified *bool            `json:"sellerVerified,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Condition == nil && p.IsFoil == nil && p.SellerVerified == nil
}

// Apply copies the patched fields onto item.
func (p Patch) Apply(item *model.MonitoredItem) {
	if p.Condition != nil {
		item.Condition = *p.Condition
	}
	if p.IsFoil != nil {
		item.IsFoil = *p.IsFoil
	}
	if p.SellerVerified != nil {
		item.SellerVerified = *p.SellerVerified
	}
}

// Diff returns the fields of s that differ from item.
func (s *Session) Diff(item model.MonitoredItem) Patch {
	var p Patch
	if s.Condition != item.Condition {
		cond := s.Condition
		p.Condition = &cond
	}
	if s.IsFoil != item.IsFoil {
		foil := s.IsFoil
		p.IsFoil = &foil
	}
	if s.SellerVerified != item.SellerVerified {
		verified := s.SellerVerified
		p.SellerVerified = &verified
	}
	return p
}

// Store persists sessions in a CacheService with a fixed lifetime.
type Store struct {
	cache cache.CacheService
	ttl   time.Duration
	now   func() time.Time
}

// NewStore creates a session store.
func NewStore(cacheSvc cache.CacheService, ttl time.Duration) *Store {
	return &Store{cache: cacheSvc, ttl: ttl, now: time.Now}
}

// Start opens a session seeded with the item's current selectable fields.
func (s *Store) Start(item model.MonitoredItem, ownerID string) (*Session, error) {
	sess := &Session{
		ID:             uuid.NewString(),
		ItemID:         item.ID,
		OwnerID:        ownerID,
		Condition:      item.Condition,
		IsFoil:         item.IsFoil,
		SellerVerified: item.SellerVerified,
	}
	if err := s.save(sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Get loads a live session. Expired or unknown ids are not found.
func (s *Store) Get(id string) (*Session, error) {
	data, err := s.cache.Get(keyPrefix + id)
	if err != nil {
		if stderrors.Is(err, cache.ErrCacheMiss) {
			return nil, errors.NewNotFound(component, fmt.Sprintf("session %s not found or expired", id))
		}
		return nil, errors.NewCache(component, "failed to load session", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, errors.NewCache(component, "corrupt session", err)
	}
	return &sess, nil
}

// Update applies patch and extends the session's lifetime.
func (s *Store) Update(id string, patch Patch) (*Session, error) {
	if patch.Condition != nil && !patch.Condition.Valid() {
		return nil, errors.NewValidation(component, fmt.Sprintf("unknown condition %q", *patch.Condition))
	}

	sess, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	if patch.Condition != nil {
		sess.Condition = *patch.Condition
	}
	if patch.IsFoil != nil {
		sess.IsFoil = *patch.IsFoil
	}
	if patch.SellerVerified != nil {
		sess.SellerVerified = *patch.SellerVerified
	}

	if err := s.save(sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Delete ends a session. Deleting an unknown session is not an error.
func (s *Store) Delete(id string) error {
	if err := s.cache.Delete(keyPrefix + id); err != nil && !stderrors.Is(err, cache.ErrCacheMiss) {
		return errors.NewCache(component, "failed to delete session", err)
	}
	return nil
}

func (s *Store) save(sess *Session) error {
	sess.ExpiresAt = s.now().Add(s.ttl)
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	if err := s.cache.Set(keyPrefix+sess.ID, data, s.ttl); err != nil {
		return errors.NewCache(component, "failed to store session", err)
	}
	return nil
}
