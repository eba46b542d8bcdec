package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/microblog/internal/repository"
)

func TestResolveUniqueNickname(t *testing.T) {
	db := newTestDB(t)
	users := repository.NewUserRepository(db)
	svc := NewIdentityService(db, users)
	ctx := context.Background()

	// unused candidate comes back unchanged
	got, err := svc.ResolveUniqueNickname(ctx, "john")
	require.NoError(t, err)
	require.Equal(t, "john", got)

	_, err = svc.Register(ctx, "john@example.com", "john", "")
	require.NoError(t, err)

	got, err = svc.ResolveUniqueNickname(ctx, "john")
	require.NoError(t, err)
	require.Equal(t, "john2", got)

	_, err = svc.Register(ctx, "susan@example.com", "john2", "")
	require.NoError(t, err)

	got, err = svc.ResolveUniqueNickname(ctx, "john")
	require.NoError(t, err)
	require.Equal(t, "john3", got)
}

func TestRegisterBootstrapsSelfFollow(t *testing.T) {
	db := newTestDB(t)
	users := repository.NewUserRepository(db)
	followRepo := repository.NewFollowRepository(db)
	fanRepo := repository.NewFanRepository(db)
	svc := NewIdentityService(db, users)
	ctx := context.Background()

	u, err := svc.Register(ctx, "john@example.com", "john", "")
	require.NoError(t, err)

	following, err := followRepo.Exists(ctx, u.ID, u.ID)
	require.NoError(t, err)
	require.True(t, following)

	fans, err := fanRepo.ListFans(ctx, u.ID, 0, 10)
	require.NoError(t, err)
	require.Len(t, fans, 1)
	require.Equal(t, u.ID, fans[0].FanID)
}

func TestRegisterLostNicknameRace(t *testing.T) {
	db := newTestDB(t)
	users := repository.NewUserRepository(db)
	svc := NewIdentityService(db, users)
	ctx := context.Background()

	_, err := svc.Register(ctx, "john@example.com", "john", "")
	require.NoError(t, err)

	// same nickname committed by someone else after resolution: the
	// constraint wins, the caller gets a typed conflict, nothing persists
	_, err = svc.Register(ctx, "imposter@example.com", "john", "")
	require.ErrorIs(t, err, ErrNicknameTaken)

	_, err = users.GetByEmail(ctx, "imposter@example.com")
	require.Error(t, err)

	// same email with a fresh nickname trips the other unique column
	_, err = svc.Register(ctx, "john@example.com", "john5", "")
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestLoginOrRegister(t *testing.T) {
	db := newTestDB(t)
	users := repository.NewUserRepository(db)
	svc := NewIdentityService(db, users)
	ctx := context.Background()

	u1, created, err := svc.LoginOrRegister(ctx, "john@example.com", "john", "")
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, "john", u1.Nickname)

	// second login with the same email resolves to the same identity
	u2, created, err := svc.LoginOrRegister(ctx, "john@example.com", "ignored", "")
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, u1.ID, u2.ID)

	// colliding candidate gets the suffixed variant
	u3, created, err := svc.LoginOrRegister(ctx, "other@example.com", "john", "")
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, "john2", u3.Nickname)
}

func TestLoginOrRegisterFallsBackToEmailLocalPart(t *testing.T) {
	db := newTestDB(t)
	users := repository.NewUserRepository(db)
	svc := NewIdentityService(db, users)
	ctx := context.Background()

	u, created, err := svc.LoginOrRegister(ctx, "mary@example.com", "", "")
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, "mary", u.Nickname)
}

func TestSanitizeNickname(t *testing.T) {
	require.Equal(t, "JohnONeil", SanitizeNickname("John O'Neil!"))
	require.Equal(t, "j.doe_42", SanitizeNickname("j.doe_42"))
	require.Equal(t, "", SanitizeNickname("@#$"))
}

func TestUpdateProfile(t *testing.T) {
	db := newTestDB(t)
	users := repository.NewUserRepository(db)
	svc := NewIdentityService(db, users)
	ctx := context.Background()

	u, err := svc.Register(ctx, "john@example.com", "john", "")
	require.NoError(t, err)
	_, err = svc.Register(ctx, "susan@example.com", "susan", "")
	require.NoError(t, err)

	updated, err := svc.UpdateProfile(ctx, u.ID, "johnny", "hello there")
	require.NoError(t, err)
	require.Equal(t, "johnny", updated.Nickname)
	require.Equal(t, "hello there", updated.AboutMe)

	// renaming onto a taken nickname surfaces the conflict
	_, err = svc.UpdateProfile(ctx, u.ID, "susan", "")
	require.ErrorIs(t, err, ErrNicknameTaken)

	_, err = svc.UpdateProfile(ctx, "missing", "x", "")
	require.ErrorIs(t, err, ErrUserNotFound)
}
