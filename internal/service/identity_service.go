package service

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/d60-Lab/microblog/internal/model"
	"github.com/d60-Lab/microblog/internal/repository"
)

// IdentityService owns identity records and the nickname namespace.
type IdentityService interface {
	// LoginOrRegister resolves the identity for a verified email, creating it
	// (with a collision-free nickname and its self-follow edge) on first
	// login. The second return reports whether a new identity was created.
	LoginOrRegister(ctx context.Context, email, candidateNickname, password string) (*model.User, bool, error)
	// Register creates an identity with the given nickname as-is. The store's
	// unique constraint is the source of truth; a race lost at commit comes
	// back as ErrNicknameTaken and is not retried here.
	Register(ctx context.Context, email, nickname, password string) (*model.User, error)
	// ResolveUniqueNickname probes candidate, candidate2, candidate3, ... and
	// returns the first unused form. Existence is re-checked on every attempt.
	ResolveUniqueNickname(ctx context.Context, candidate string) (string, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByNickname(ctx context.Context, nickname string) (*model.User, error)
	UpdateProfile(ctx context.Context, userID, nickname, aboutMe string) (*model.User, error)
	TouchLastSeen(ctx context.Context, userID string) error
}

type identityService struct {
	db    *gorm.DB
	users repository.UserRepository
}

func NewIdentityService(db *gorm.DB, users repository.UserRepository) IdentityService {
	return &identityService{db: db, users: users}
}

var nicknameStrip = regexp.MustCompile(`[^A-Za-z0-9_.]`)

// SanitizeNickname drops everything outside [A-Za-z0-9_.]. No semantic
// parsing of trailing digits happens here or anywhere else.
func SanitizeNickname(nickname string) string {
	return nicknameStrip.ReplaceAllString(nickname, "")
}

func (s *identityService) LoginOrRegister(ctx context.Context, email, candidateNickname, password string) (*model.User, bool, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	nickname := SanitizeNickname(candidateNickname)
	if nickname == "" {
		nickname = SanitizeNickname(emailLocalPart(email))
	}
	nickname, err = s.ResolveUniqueNickname(ctx, nickname)
	if err != nil {
		return nil, false, err
	}
	user, err = s.Register(ctx, email, nickname, password)
	if err != nil {
		return nil, false, err
	}
	return user, true, nil
}

func (s *identityService) Register(ctx context.Context, email, nickname, password string) (*model.User, error) {
	now := time.Now().UTC()
	user := &model.User{
		ID:       uuid.New().String(),
		Nickname: nickname,
		Email:    email,
		LastSeen: now,
	}
	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		user.Password = string(hash)
	}

	// identity + self-follow commit together: a visible identity with no
	// self edge would hide the user's own posts from their own feed
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		edge := &model.Follow{ID: uuid.New().String(), FollowerID: user.ID, FolloweeID: user.ID}
		if err := tx.Create(edge).Error; err != nil {
			return err
		}
		fan := &model.Fan{ID: uuid.New().String(), UserID: user.ID, FanID: user.ID}
		return tx.Create(fan).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// either unique column may have fired; probe to tell them apart
			if taken, probeErr := s.users.NicknameExists(ctx, nickname); probeErr == nil && !taken {
				return nil, ErrEmailTaken
			}
			return nil, ErrNicknameTaken
		}
		return nil, err
	}
	return user, nil
}

func (s *identityService) ResolveUniqueNickname(ctx context.Context, candidate string) (string, error) {
	taken, err := s.users.NicknameExists(ctx, candidate)
	if err != nil {
		return "", err
	}
	if !taken {
		return candidate, nil
	}
	for version := 2; ; version++ {
		probe := candidate + strconv.Itoa(version)
		taken, err := s.users.NicknameExists(ctx, probe)
		if err != nil {
			return "", err
		}
		if !taken {
			return probe, nil
		}
	}
}

func (s *identityService) GetByID(ctx context.Context, id string) (*model.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}

func (s *identityService) GetByNickname(ctx context.Context, nickname string) (*model.User, error) {
	user, err := s.users.GetByNickname(ctx, nickname)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}

func (s *identityService) UpdateProfile(ctx context.Context, userID, nickname, aboutMe string) (*model.User, error) {
	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if nickname != "" {
		user.Nickname = SanitizeNickname(nickname)
	}
	user.AboutMe = aboutMe
	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrNicknameTaken
		}
		return nil, err
	}
	return user, nil
}

func (s *identityService) TouchLastSeen(ctx context.Context, userID string) error {
	return s.users.TouchLastSeen(ctx, userID, time.Now().UTC())
}

func emailLocalPart(email string) string {
	for i := 0; i < len(email); i++ {
		if email[i] == '@' {
			return email[:i]
		}
	}
	return email
}
