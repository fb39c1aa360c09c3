package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tracker/logging"
	"tracker/model"
	"tracker/utils"

	"github.com/sirupsen/logrus"
)

// IdentityProvider proves and manages credentials. SignIn returns
// model.ErrUnknownIdentity when no credential exists yet and
// model.ErrWrongCredential when the password does not match.
type IdentityProvider interface {
	RequiresEmail() bool
	SignIn(ctx context.Context, email, password string) (*model.User, error)
	SignUp(ctx context.Context, email, password string) (*model.User, error)
	Reauthenticate(ctx context.Context, userID, password string) error
	UpdatePassword(ctx context.Context, userID, newPassword string) error
}

type Credential struct {
	Email    string
	Password string
	Device   string
}

// Gate turns credentials into active sessions.
type Gate struct {
	identity IdentityProvider
	sessions *SessionManager
	clock    utils.Clock
	log      *logrus.Entry
}

func NewGate(identity IdentityProvider, sessions *SessionManager, clock utils.Clock) *Gate {
	if clock == nil {
		clock = utils.RealClock{}
	}
	return &Gate{
		identity: identity,
		sessions: sessions,
		clock:    clock,
		log:      logging.For("gate"),
	}
}

func (g *Gate) RequiresEmail() bool {
	return g.identity.RequiresEmail()
}

// Authenticate signs in, registering the identity first if it does not exist.
// A successful call returns an active session with its subscriptions and
// reminder scheduler already running.
func (g *Gate) Authenticate(ctx context.Context, cred Credential) (*ActiveSession, error) {
	email := strings.TrimSpace(cred.Email)
	if g.identity.RequiresEmail() {
		if email == "" {
			return nil, model.NewValidationError("email", "is required")
		}
		if err := utils.Validate.Var(email, "email"); err != nil {
			return nil, model.NewValidationError("email", "must be a valid email address")
		}
	}
	if cred.Password == "" {
		return nil, model.NewValidationError("password", "is required")
	}

	authType := "login"
	user, err := g.identity.SignIn(ctx, email, cred.Password)
	if errors.Is(err, model.ErrUnknownIdentity) {
		authType = "register"
		if !utils.ValidatePassword(cred.Password) {
			return nil, model.NewValidationError("password",
				fmt.Sprintf("must be at least %d characters long", utils.MinPasswordLength))
		}
		user, err = g.identity.SignUp(ctx, email, cred.Password)
	}
	if err != nil {
		utils.TrackAuthAttempt("failure", authType)
		return nil, g.authFailure(err)
	}

	session := &model.Session{
		SessionID: utils.NewID(),
		UserID:    user.UserID,
		Email:     user.Email,
		Device:    cred.Device,
		CreatedAt: g.clock.Now(),
	}
	active, err := g.sessions.Activate(ctx, session)
	if err != nil {
		utils.TrackAuthAttempt("failure", authType)
		return nil, err
	}

	utils.TrackAuthAttempt("success", authType)
	g.log.WithFields(logrus.Fields{
		"user_id":    session.UserID,
		"session_id": session.SessionID,
		"device":     session.Device,
		"type":       authType,
	}).Info("Authenticated")
	return active, nil
}

// ChangePassword checks the new password locally before re-proving the
// current one.
func (g *Gate) ChangePassword(ctx context.Context, session *model.Session, current, newPassword, confirm string) error {
	if err := requireSession(session); err != nil {
		return err
	}
	if !utils.ValidatePassword(newPassword) {
		return model.NewValidationError("newPassword",
			fmt.Sprintf("must be at least %d characters long", utils.MinPasswordLength))
	}
	if newPassword != confirm {
		return model.NewValidationError("confirmPassword", "passwords do not match")
	}

	if err := g.identity.Reauthenticate(ctx, session.UserID, current); err != nil {
		utils.TrackAuthAttempt("failure", "change_password")
		if errors.Is(err, model.ErrWrongCredential) {
			return &model.AuthError{Message: "Current password is incorrect", Err: err}
		}
		return g.authFailure(err)
	}
	if err := g.identity.UpdatePassword(ctx, session.UserID, newPassword); err != nil {
		utils.TrackAuthAttempt("failure", "change_password")
		var verr *model.ValidationError
		if errors.As(err, &verr) {
			return err
		}
		return &model.StoreError{Op: "change password", Err: err}
	}

	utils.TrackAuthAttempt("success", "change_password")
	g.log.WithField("user_id", session.UserID).Info("Password changed")
	return nil
}

// Logout ends the session. Logging out twice is harmless.
func (g *Gate) Logout(sessionID string) {
	if g.sessions.Deactivate(sessionID) {
		g.log.WithField("session_id", sessionID).Info("Logged out")
	}
}

func (g *Gate) authFailure(err error) error {
	var verr *model.ValidationError
	if errors.As(err, &verr) {
		return err
	}
	switch {
	case errors.Is(err, model.ErrWrongCredential):
		return &model.AuthError{Message: "Incorrect email or password", Err: err}
	case errors.Is(err, model.ErrUnknownIdentity):
		return &model.AuthError{Message: "No account found for these credentials", Err: err}
	}
	utils.TrackError("auth", "provider_failure")
	g.log.WithError(err).Error("Identity provider failed")
	return &model.StoreError{Op: "authenticate", Err: err}
}
