package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tracker/model"
	"tracker/repository"
	"tracker/utils"
)

// LocalIdentity guards the single local identity with one password. The first
// sign-up establishes it.
type LocalIdentity struct {
	creds *repository.CredentialRepo
}

func NewLocalIdentity(creds *repository.CredentialRepo) *LocalIdentity {
	return &LocalIdentity{creds: creds}
}

func (l *LocalIdentity) RequiresEmail() bool { return false }

func (l *LocalIdentity) SignIn(ctx context.Context, _ string, password string) (*model.User, error) {
	hash, err := l.creds.PasswordHash(ctx)
	if err != nil {
		return nil, err
	}
	if hash == "" {
		return nil, model.ErrUnknownIdentity
	}
	if !ComparePasswords(hash, password) {
		return nil, model.ErrWrongCredential
	}
	return &model.User{UserID: model.LocalUserID}, nil
}

func (l *LocalIdentity) SignUp(ctx context.Context, _ string, password string) (*model.User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	set, err := l.creds.InitPasswordHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	if !set {
		// Another login established the password first.
		return l.SignIn(ctx, "", password)
	}
	return &model.User{UserID: model.LocalUserID, CreatedAt: time.Now()}, nil
}

func (l *LocalIdentity) Reauthenticate(ctx context.Context, _ string, password string) error {
	_, err := l.SignIn(ctx, "", password)
	if errors.Is(err, model.ErrUnknownIdentity) {
		return model.ErrWrongCredential
	}
	return err
}

func (l *LocalIdentity) UpdatePassword(ctx context.Context, _ string, newPassword string) error {
	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	return l.creds.SetPasswordHash(ctx, hash)
}

// AccountIdentity is email/password accounts stored in MongoDB.
type AccountIdentity struct {
	users *repository.UserRepo
}

func NewAccountIdentity(users *repository.UserRepo) *AccountIdentity {
	return &AccountIdentity{users: users}
}

func (a *AccountIdentity) RequiresEmail() bool { return true }

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (a *AccountIdentity) SignIn(ctx context.Context, email, password string) (*model.User, error) {
	user, err := a.users.FindUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, model.ErrUnknownIdentity
	}
	if !ComparePasswords(user.Password, password) {
		return nil, model.ErrWrongCredential
	}
	return user, nil
}

func (a *AccountIdentity) SignUp(ctx context.Context, email, password string) (*model.User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := &model.User{
		UserID:    utils.NewID(),
		Email:     normalizeEmail(email),
		Password:  hash,
		CreatedAt: time.Now(),
	}
	if err := utils.ValidateStruct(user); err != nil {
		return nil, err
	}
	if err := a.users.AddUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, fmt.Errorf("%w: %v", model.ErrWrongCredential, err)
		}
		return nil, err
	}
	return user, nil
}

func (a *AccountIdentity) Reauthenticate(ctx context.Context, userID, password string) error {
	user, err := a.users.FindUser(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil || !ComparePasswords(user.Password, password) {
		return model.ErrWrongCredential
	}
	return nil
}

func (a *AccountIdentity) UpdatePassword(ctx context.Context, userID, newPassword string) error {
	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	return a.users.UpdateUserPassword(ctx, userID, hash)
}
