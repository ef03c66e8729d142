// Package storetest holds the behavioural contract every domain.AccountStore
// implementation must satisfy. Backends call Run from their own tests.
package storetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msomdec/stylist-users/internal/domain"
)

// Factory returns a fresh, empty store for one subtest.
type Factory func(t *testing.T) domain.AccountStore

func ptr[T any](v T) *T { return &v }

func localAccount(email string) *domain.Account {
	return &domain.Account{
		Name:         "Ana",
		Email:        email,
		PasswordHash: "$2a$04$hash",
		Role:         domain.RoleUser,
		Avatar:       domain.DefaultAvatar,
	}
}

// Run executes the contract against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("InsertAssignsIDAndTimestamps", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		a := localAccount("ana@example.com")
		require.NoError(t, s.Insert(ctx, a))
		assert.NotEmpty(t, a.ID)
		assert.False(t, a.CreatedAt.IsZero())
		assert.False(t, a.UpdatedAt.IsZero())

		found, err := s.FindByID(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, "ana@example.com", found.Email)
		assert.Equal(t, "Ana", found.Name)
		assert.Equal(t, domain.RoleUser, found.Role)
		assert.Equal(t, "$2a$04$hash", found.PasswordHash)
	})

	t.Run("EmailIsCaseInsensitive", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.Insert(ctx, localAccount("Ana@Example.com")))

		found, err := s.FindByEmail(ctx, "ANA@example.COM")
		require.NoError(t, err)
		assert.Equal(t, "ana@example.com", found.Email)

		err = s.Insert(ctx, localAccount("ana@EXAMPLE.com"))
		assert.ErrorIs(t, err, domain.ErrDuplicateEmail)
	})

	t.Run("NotFound", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.FindByID(ctx, "00000000-0000-0000-0000-000000000000")
		assert.ErrorIs(t, err, domain.ErrNotFound)

		_, err = s.FindByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, domain.ErrNotFound)

		_, err = s.FindByProviderSubject(ctx, domain.ProviderGoogle, "g-missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)

		_, err = s.UpdateByID(ctx, "00000000-0000-0000-0000-000000000000", domain.AccountPatch{Name: ptr("X")})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("ProviderSubjectLookupAndUniqueness", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		a := &domain.Account{
			Name:          "Google User",
			Email:         "g@example.com",
			GoogleSubject: "g1",
			Role:          domain.RoleUser,
			Avatar:        domain.DefaultAvatar,
			EmailVerified: true,
		}
		require.NoError(t, s.Insert(ctx, a))

		found, err := s.FindByProviderSubject(ctx, domain.ProviderGoogle, "g1")
		require.NoError(t, err)
		assert.Equal(t, a.ID, found.ID)
		assert.True(t, found.EmailVerified)

		_, err = s.FindByProviderSubject(ctx, domain.ProviderApple, "g1")
		assert.ErrorIs(t, err, domain.ErrNotFound)

		dup := &domain.Account{Name: "Other", Email: "other@example.com", GoogleSubject: "g1", Role: domain.RoleUser}
		assert.ErrorIs(t, s.Insert(ctx, dup), domain.ErrDuplicateIdentity)
	})

	t.Run("UpdatePatchesFieldsAndBumpsUpdatedAt", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		a := localAccount("patch@example.com")
		require.NoError(t, s.Insert(ctx, a))
		time.Sleep(5 * time.Millisecond)

		prefs := domain.Preferences{
			Style:     []string{"casual"},
			Colors:    []string{"navy", "white"},
			Sizes:     map[string]any{"shirt": "M"},
			Occasions: []string{"work"},
		}
		updated, err := s.UpdateByID(ctx, a.ID, domain.AccountPatch{
			Name:        ptr("Ana Maria"),
			Avatar:      ptr("ana.png"),
			Preferences: &prefs,
		})
		require.NoError(t, err)
		assert.Equal(t, "Ana Maria", updated.Name)
		assert.Equal(t, "ana.png", updated.Avatar)
		assert.Equal(t, []string{"navy", "white"}, updated.Preferences.Colors)
		assert.Equal(t, "M", updated.Preferences.Sizes["shirt"])
		assert.Equal(t, "$2a$04$hash", updated.PasswordHash)
		assert.True(t, updated.UpdatedAt.After(a.UpdatedAt), "UpdatedAt must advance")
		assert.WithinDuration(t, a.CreatedAt, updated.CreatedAt, time.Second)
	})

	t.Run("LinkSubjectIsConditional", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		a := localAccount("link@example.com")
		require.NoError(t, s.Insert(ctx, a))

		linked, err := s.UpdateByID(ctx, a.ID, domain.LinkSubject(domain.ProviderGoogle, "g-link"))
		require.NoError(t, err)
		assert.Equal(t, "g-link", linked.GoogleSubject)
		assert.Equal(t, "$2a$04$hash", linked.PasswordHash)

		// Same value again is a no-op.
		_, err = s.UpdateByID(ctx, a.ID, domain.LinkSubject(domain.ProviderGoogle, "g-link"))
		require.NoError(t, err)

		// A different subject for the same provider must not overwrite.
		_, err = s.UpdateByID(ctx, a.ID, domain.LinkSubject(domain.ProviderGoogle, "g-other"))
		assert.ErrorIs(t, err, domain.ErrDuplicateIdentity)

		found, err := s.FindByID(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, "g-link", found.GoogleSubject)
	})

	t.Run("LinkSubjectOwnedByAnotherAccount", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		owner := &domain.Account{Name: "Owner", Email: "owner@example.com", AppleSubject: "a1", Role: domain.RoleUser}
		require.NoError(t, s.Insert(ctx, owner))
		other := localAccount("other@example.com")
		require.NoError(t, s.Insert(ctx, other))

		_, err := s.UpdateByID(ctx, other.ID, domain.LinkSubject(domain.ProviderApple, "a1"))
		assert.ErrorIs(t, err, domain.ErrDuplicateIdentity)
	})

	t.Run("UpdateEmailToTakenAddress", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.Insert(ctx, localAccount("first@example.com")))
		second := localAccount("second@example.com")
		require.NoError(t, s.Insert(ctx, second))

		_, err := s.UpdateByID(ctx, second.ID, domain.AccountPatch{Email: ptr("FIRST@example.com")})
		assert.ErrorIs(t, err, domain.ErrDuplicateEmail)
	})

	t.Run("ConcurrentInsertsSameEmail", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		const n = 8
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			succeeded int
			dupes     int
		)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := s.Insert(ctx, localAccount("race@example.com"))
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					succeeded++
				case assert.ErrorIs(t, err, domain.ErrDuplicateEmail):
					dupes++
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, succeeded)
		assert.Equal(t, n-1, dupes)
	})
}
