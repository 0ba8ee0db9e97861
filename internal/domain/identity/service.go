package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medipay/medipay/internal/platform/auth"
)

var ErrNoSession = errors.New("no authenticated session")

type Service struct {
	dir         Directory
	sessions    *SessionStore
	tokens      *auth.TokenIssuer
	revocations auth.RevocationStore
	logger      zerolog.Logger
	onLogout    []func(sessionID string)
}

func NewService(dir Directory, sessions *SessionStore, tokens *auth.TokenIssuer, revocations auth.RevocationStore, logger zerolog.Logger) *Service {
	return &Service{
		dir:         dir,
		sessions:    sessions,
		tokens:      tokens,
		revocations: revocations,
		logger:      logger.With().Str("component", "identity").Logger(),
	}
}

// Login checks req against the directory. It succeeds when the email is
// known, the role (if given) matches the account and the password matches.
// Bad credentials are reported only through the boolean.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*Session, bool) {
	cred, err := s.dir.FindByEmail(ctx, req.Email)
	if err != nil {
		s.logger.Debug().Str("email", req.Email).Msg("login: unknown email")
		return nil, false
	}
	if req.Role != "" {
		role, ok := auth.ParseRole(req.Role)
		if !ok || role != cred.User.Role {
			s.logger.Debug().Str("email", req.Email).Str("role", req.Role).Msg("login: role mismatch")
			return nil, false
		}
	}
	if !CheckPassword(cred.PasswordHash, req.Password) {
		s.logger.Debug().Str("email", req.Email).Msg("login: wrong password")
		return nil, false
	}

	sess, err := s.open(cred.User)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", cred.User.ID).Msg("login: open session")
		return nil, false
	}
	s.logger.Info().Str("user_id", sess.User.ID).Str("role", string(sess.User.Role)).Msg("user logged in")
	return sess, true
}

// Register creates a fresh account for the session and signs it in. There is
// no uniqueness check and the account is not added to the login directory.
// An unknown role registers a patient.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Session, bool) {
	role, ok := auth.ParseRole(req.Role)
	if !ok {
		role = auth.RolePatient
	}
	user := User{
		ID:    uuid.NewString(),
		Email: req.Email,
		Name:  req.Name,
		Role:  role,
	}

	sess, err := s.open(user)
	if err != nil {
		s.logger.Error().Err(err).Msg("register: open session")
		return nil, false
	}
	s.logger.Info().Str("user_id", user.ID).Str("role", string(role)).Msg("user registered")
	return sess, true
}

func (s *Service) open(user User) (*Session, error) {
	token, claims, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	s.sessions.Adopt(claims.ID, user, claims.ExpiresAtTime())
	return &Session{
		ID:              claims.ID,
		Token:           token,
		ExpiresAt:       claims.ExpiresAtTime(),
		User:            user,
		IsAuthenticated: true,
	}, nil
}

// OnLogout registers fn to run after a session is cleared.
func (s *Service) OnLogout(fn func(sessionID string)) {
	s.onLogout = append(s.onLogout, fn)
}

// Logout clears the session and revokes its token.
func (s *Service) Logout(ctx context.Context, claims *auth.Claims) error {
	if claims == nil {
		return ErrNoSession
	}
	s.sessions.Clear(claims.ID)
	for _, fn := range s.onLogout {
		fn(claims.ID)
	}
	if s.revocations != nil {
		if err := s.revocations.Revoke(ctx, claims.ID, claims.Subject, claims.ExpiresAtTime()); err != nil {
			return fmt.Errorf("logout: %w", err)
		}
	}
	s.logger.Info().Str("user_id", claims.Subject).Msg("user logged out")
	return nil
}

// UpdateProfile merges the non-nil fields of upd into the session user.
func (s *Service) UpdateProfile(_ context.Context, sessionID string, upd ProfileUpdate) (User, error) {
	u, ok := s.sessions.Update(sessionID, func(u *User) {
		if upd.Name != nil {
			u.Name = *upd.Name
		}
		if upd.Email != nil {
			u.Email = *upd.Email
		}
		if upd.Avatar != nil {
			u.Avatar = *upd.Avatar
		}
	})
	if !ok {
		return User{}, ErrNoSession
	}
	return u, nil
}

// Current returns the authenticated user of sessionID.
func (s *Service) Current(sessionID string) (User, bool) {
	return s.sessions.Get(sessionID)
}

// Directory lists the accounts that can log in.
func (s *Service) Directory(ctx context.Context) ([]User, error) {
	return s.dir.List(ctx)
}
