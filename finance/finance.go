package finance

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/warp/billing-engine/billing"
	"github.com/warp/billing-engine/store"
)

// Service runs every domain operation for one user. It is cheap to construct;
// the HTTP layer builds one per request from the authenticated user id.
type Service struct {
	store store.Store
	blobs store.BlobStore
	log   zerolog.Logger
	user  string
}

func New(st store.Store, blobs store.BlobStore, log zerolog.Logger, user string) *Service {
	return &Service{
		store: st,
		blobs: blobs,
		log:   log.With().Str("user", user).Logger(),
		user:  user,
	}
}

// User returns the user id this service is bound to.
func (s *Service) User() string { return s.user }

// =============================================================================
// STORE HELPERS
// =============================================================================

// getTree fetches the subtree at path into dst (a *map keyed by child id).
// Absent paths leave dst untouched; store failures map to ErrStoreUnavailable.
func (s *Service) getTree(ctx context.Context, path string, dst any) error {
	raw, err := s.store.Get(ctx, path)
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", billing.ErrStoreUnavailable, path, err)
	}
	if raw == nil {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return &billing.MalformedRecordError{Path: path, Reason: err.Error()}
	}
	return nil
}

// getDoc is getTree for single documents; ok is false when nothing exists.
func (s *Service) getDoc(ctx context.Context, path string, dst any) (bool, error) {
	raw, err := s.store.Get(ctx, path)
	if err != nil {
		return false, fmt.Errorf("%w: read %s: %v", billing.ErrStoreUnavailable, path, err)
	}
	if raw == nil {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, &billing.MalformedRecordError{Path: path, Reason: err.Error()}
	}
	return true, nil
}

// sortedKeys gives deterministic iteration over a decoded subtree.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
