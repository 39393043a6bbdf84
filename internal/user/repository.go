// File: internal/user/repository.go
package user

import (
	"context"
	"fmt"
	"sort"

	"firebase_auth_session/internal/common"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Repository defines the remote user document operations.
type Repository interface {
	// FindByUID returns common.ErrNotFound when no document exists for uid.
	FindByUID(ctx context.Context, uid string) (*Profile, error)
	Create(ctx context.Context, profile *Profile) error
	Update(ctx context.Context, uid string, fields map[string]interface{}) error
	TouchLastLogin(ctx context.Context, uid string) error
}

type firestoreRepository struct {
	client     *firestore.Client
	collection string
}

// NewFirestoreRepository creates a user repository backed by a Firestore collection.
func NewFirestoreRepository(client *firestore.Client, collection string) Repository {
	return &firestoreRepository{client: client, collection: collection}
}

func (r *firestoreRepository) doc(uid string) *firestore.DocumentRef {
	return r.client.Collection(r.collection).Doc(uid)
}

// FindByUID reads the user document keyed by uid.
func (r *firestoreRepository) FindByUID(ctx context.Context, uid string) (*Profile, error) {
	snap, err := r.doc(uid).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read user document %s: %w", uid, err)
	}
	if !snap.Exists() {
		return nil, common.ErrNotFound
	}
	var p Profile
	if err := snap.DataTo(&p); err != nil {
		return nil, fmt.Errorf("failed to decode user document %s: %w", uid, err)
	}
	return &p, nil
}

// Create writes a new user document; createdAt and updatedAt are assigned by the server.
func (r *firestoreRepository) Create(ctx context.Context, profile *Profile) error {
	if profile == nil || profile.UID == "" {
		return fmt.Errorf("profile with a uid is required")
	}
	if _, err := r.doc(profile.UID).Set(ctx, toDocument(profile)); err != nil {
		return fmt.Errorf("failed to create user document %s: %w", profile.UID, err)
	}
	return nil
}

// Update writes the given fields plus a server-assigned updatedAt.
func (r *firestoreRepository) Update(ctx context.Context, uid string, fields map[string]interface{}) error {
	if _, err := r.doc(uid).Update(ctx, toUpdates(fields)); err != nil {
		return fmt.Errorf("failed to update user document %s: %w", uid, err)
	}
	return nil
}

// TouchLastLogin refreshes lastLogin and updatedAt.
func (r *firestoreRepository) TouchLastLogin(ctx context.Context, uid string) error {
	updates := []firestore.Update{
		{Path: "lastLogin", Value: firestore.ServerTimestamp},
		{Path: "updatedAt", Value: firestore.ServerTimestamp},
	}
	if _, err := r.doc(uid).Update(ctx, updates); err != nil {
		return fmt.Errorf("failed to update last login for %s: %w", uid, err)
	}
	return nil
}

func toDocument(p *Profile) map[string]interface{} {
	var photo interface{}
	if p.PhotoURL != nil {
		photo = *p.PhotoURL
	}
	return map[string]interface{}{
		"uid":           p.UID,
		"email":         p.Email,
		"firstName":     p.FirstName,
		"lastName":      p.LastName,
		"phone":         p.Phone,
		"role":          p.Role,
		"place":         p.Place,
		"district":      p.District,
		"pincode":       p.Pincode,
		"provider":      p.Provider,
		"displayName":   p.DisplayName,
		"photoURL":      photo,
		"emailVerified": p.EmailVerified,
		"createdAt":     firestore.ServerTimestamp,
		"updatedAt":     firestore.ServerTimestamp,
	}
}

// toUpdates orders the paths so writes are deterministic.
func toUpdates(fields map[string]interface{}) []firestore.Update {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if k == "updatedAt" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	updates := make([]firestore.Update, 0, len(keys)+1)
	for _, k := range keys {
		updates = append(updates, firestore.Update{Path: k, Value: fields[k]})
	}
	return append(updates, firestore.Update{Path: "updatedAt", Value: firestore.ServerTimestamp})
}
