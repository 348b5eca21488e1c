package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/userhub/identity-service/internal/core/domain"
)

const (
	DefaultTestUsers = 100
	MaxTestUsers     = 1000

	randomAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	randomLength   = 10
)

// GenerateTestUsers creates count synthetic users whose emails end with
// domain.TestEmailDomain. Development only. Random collisions with existing
// accounts are skipped, so the returned number may be lower than count.
func (s *AccountService) GenerateTestUsers(ctx context.Context, token string, count int) (int, error) {
	if err := s.requireRole(ctx, token, domain.RoleAdmin); err != nil {
		return 0, err
	}
	if count <= 0 {
		count = DefaultTestUsers
	}
	if count > MaxTestUsers {
		return 0, &domain.Error{
			Kind:    domain.ErrInvalidArgument,
			Message: fmt.Sprintf("Cannot generate more than %d users at once.", MaxTestUsers),
		}
	}

	var created atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for range count {
		g.Go(func() error {
			password := randomString(randomLength)
			hash, err := s.hash(password)
			if err != nil {
				return err
			}
			user := domain.NewUser(domain.NewUserParams{
				Username:     randomString(randomLength),
				PasswordHash: hash,
				Email:        randomString(randomLength) + domain.TestEmailDomain,
			})
			if err := s.users.Create(gctx, user); err != nil {
				if errors.Is(err, domain.ErrConflict) {
					return nil
				}
				return err
			}
			created.Add(1)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return int(created.Load()), fmt.Errorf("generate test users: %w", err)
	}

	n := int(created.Load())
	s.log.Info().Int("requested", count).Int("created", n).Msg("test users generated")
	return n, nil
}

// PurgeTestUsers deletes every user whose email ends with
// domain.TestEmailDomain. Development only.
func (s *AccountService) PurgeTestUsers(ctx context.Context, token string) (int, error) {
	if err := s.requireRole(ctx, token, domain.RoleAdmin); err != nil {
		return 0, err
	}

	users, err := s.users.FindByEmailSuffix(ctx, domain.TestEmailDomain)
	if err != nil {
		return 0, fmt.Errorf("purge test users: %w", err)
	}

	purged := 0
	for _, u := range users {
		if err := s.users.Delete(ctx, u.ID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return purged, fmt.Errorf("purge test users: %w", err)
		}
		purged++
	}

	s.log.Info().Int("purged", purged).Msg("test users purged")
	return purged, nil
}

func randomString(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = randomAlphabet[rand.IntN(len(randomAlphabet))]
	}
	return string(b)
}
