package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"pharmacare/backend/internal/domain"
	"pharmacare/backend/internal/session"
	"pharmacare/backend/internal/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInactiveAccount    = errors.New("account is inactive")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrSessionRevoked     = errors.New("session has been signed out")
)

const tokenIssuer = "pharmacare"

type AuthManager struct {
	mu         sync.Mutex
	secret     []byte
	tokenTTL   time.Duration
	managerPIN string
	users      UserStore
	revoked    map[string]time.Time
	log        *zap.Logger
	now        func() time.Time
}

type UserStore interface {
	CreateUser(ctx context.Context, user domain.UserAccount) error
	GetUserByEmail(ctx context.Context, email string) (*domain.UserAccount, error)
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, email string, password string) error
	GetSettings(ctx context.Context) (domain.Settings, error)
}

type sessionClaims struct {
	jwtlib.RegisteredClaims
	UserID   string       `json:"uid"`
	FullName string       `json:"name"`
	Role     session.Role `json:"role"`
}

// NewAuthManager hashes the manager PIN and upgrades any plain-text
// passwords found in users. tokenTTL applies when settings carry no timeout.
func NewAuthManager(secret string, tokenTTL time.Duration, managerPIN string, users UserStore, log *zap.Logger) *AuthManager {
	if secret == "" {
		secret = "dev-change-me"
	}
	if tokenTTL <= 0 {
		tokenTTL = 30 * time.Minute
	}
	if log == nil {
		log = zap.NewNop()
	}
	managerPIN = strings.TrimSpace(managerPIN)
	if managerPIN == "" {
		managerPIN = "disabled"
	}
	if hashed, err := hashPassword(managerPIN); err == nil {
		managerPIN = hashed
	}

	manager := &AuthManager{
		secret:     []byte(secret),
		tokenTTL:   tokenTTL,
		managerPIN: managerPIN,
		users:      users,
		revoked:    make(map[string]time.Time),
		log:        log,
		now:        func() time.Time { return time.Now().UTC() },
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	manager.upgradeLegacyPasswords(ctx)
	return manager
}

// Login checks an email and password and opens a session. Any mismatch
// reports ErrInvalidCredentials so callers cannot tell which accounts exist.
func (a *AuthManager) Login(ctx context.Context, req domain.LoginRequest) (domain.LoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return domain.LoginResponse{}, ErrInvalidCredentials
	}

	user, err := a.users.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return domain.LoginResponse{}, ErrInvalidCredentials
	}
	if err != nil {
		return domain.LoginResponse{}, err
	}
	if !verifyPassword(user.Password, req.Password) {
		return domain.LoginResponse{}, ErrInvalidCredentials
	}
	if !user.Active {
		return domain.LoginResponse{}, ErrInactiveAccount
	}

	sess := session.New(user.ID, user.Email, user.FullName, user.Role, a.now(), a.sessionTTL(ctx))
	token, err := a.sign(sess)
	if err != nil {
		return domain.LoginResponse{}, err
	}

	a.log.Info("user signed in", zap.String("email", sess.Email), zap.String("role", string(sess.Role)))
	return domain.LoginResponse{
		AccessToken: token,
		ExpiresAt:   sess.ExpiresAt.Format(time.RFC3339),
		Session:     sess,
		Sections:    session.Sections(sess.Role),
	}, nil
}

func (a *AuthManager) sessionTTL(ctx context.Context) time.Duration {
	settings, err := a.users.GetSettings(ctx)
	if err != nil || settings.SessionTimeoutMinutes <= 0 {
		return a.tokenTTL
	}
	return time.Duration(settings.SessionTimeoutMinutes) * time.Minute
}

// ParseToken verifies a bearer token and returns the session it carries.
func (a *AuthManager) ParseToken(tokenStr string) (session.Session, error) {
	claims := &sessionClaims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, jwtlib.WithValidMethods([]string{"HS256"}), jwtlib.WithIssuer(tokenIssuer))
	if err != nil || !token.Valid {
		return session.Session{}, ErrInvalidToken
	}
	email, err := claims.GetSubject()
	if err != nil || email == "" || claims.ID == "" || !claims.Role.Valid() {
		return session.Session{}, ErrInvalidToken
	}
	if a.isRevoked(claims.ID) {
		return session.Session{}, ErrSessionRevoked
	}

	sess := session.Session{
		ID:       claims.ID,
		UserID:   claims.UserID,
		Email:    email,
		FullName: claims.FullName,
		Role:     claims.Role,
	}
	if claims.IssuedAt != nil {
		sess.IssuedAt = claims.IssuedAt.Time.UTC()
	}
	if claims.ExpiresAt != nil {
		sess.ExpiresAt = claims.ExpiresAt.Time.UTC()
	}
	return sess, nil
}

// Logout revokes the session until its token would have expired anyway.
func (a *AuthManager) Logout(sess session.Session) {
	now := a.now()

	a.mu.Lock()
	defer a.mu.Unlock()
	for id, expires := range a.revoked {
		if !now.Before(expires) {
			delete(a.revoked, id)
		}
	}
	expires := sess.ExpiresAt
	if expires.IsZero() {
		expires = now.Add(a.tokenTTL)
	}
	a.revoked[sess.ID] = expires
	a.log.Info("user signed out", zap.String("email", sess.Email))
}

func (a *AuthManager) isRevoked(id string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.revoked[id]
	return ok
}

func (a *AuthManager) sign(sess session.Session) (string, error) {
	claims := sessionClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			ID:        sess.ID,
			Subject:   sess.Email,
			IssuedAt:  jwtlib.NewNumericDate(sess.IssuedAt),
			ExpiresAt: jwtlib.NewNumericDate(sess.ExpiresAt),
			Issuer:    tokenIssuer,
		},
		UserID:   sess.UserID,
		FullName: sess.FullName,
		Role:     sess.Role,
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

func (a *AuthManager) ValidateManagerPIN(pin string) bool {
	input := strings.TrimSpace(pin)
	if input == "" || !isPasswordHash(a.managerPIN) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(a.managerPIN), []byte(input)) == nil
}

// CreateUser registers an account of any role. Only admins reach it.
func (a *AuthManager) CreateUser(ctx context.Context, req domain.UserCreateRequest) (domain.UserAccount, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return domain.UserAccount{}, fmt.Errorf("%w: email is not a valid address", store.ErrInvalidRecord)
	}
	fullName := strings.TrimSpace(req.FullName)
	if fullName == "" {
		return domain.UserAccount{}, fmt.Errorf("%w: full_name is required", store.ErrInvalidRecord)
	}
	if !req.Role.Valid() {
		return domain.UserAccount{}, fmt.Errorf("%w: role must be admin, pharmacist, cashier or supplier", store.ErrInvalidRecord)
	}
	if len(req.Password) < 6 {
		return domain.UserAccount{}, fmt.Errorf("%w: password must be at least 6 characters", store.ErrInvalidRecord)
	}

	passwordHash, err := hashPassword(req.Password)
	if err != nil {
		return domain.UserAccount{}, fmt.Errorf("hash password: %w", err)
	}

	user := domain.UserAccount{
		Email:     email,
		FullName:  fullName,
		Password:  passwordHash,
		Role:      req.Role,
		Active:    true,
		CreatedAt: a.now(),
	}
	if err := a.users.CreateUser(ctx, user); err != nil {
		return domain.UserAccount{}, err
	}
	created, err := a.users.GetUserByEmail(ctx, email)
	if err != nil {
		return domain.UserAccount{}, err
	}
	return *created, nil
}

func (a *AuthManager) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	return a.users.ListUsers(ctx)
}

// upgradeLegacyPasswords rewrites plain-text passwords as bcrypt hashes.
func (a *AuthManager) upgradeLegacyPasswords(ctx context.Context) {
	if a.users == nil {
		return
	}
	users, err := a.users.ListUsers(ctx)
	if err != nil {
		a.log.Warn("could not load users for password upgrade", zap.Error(err))
		return
	}
	for _, user := range users {
		if user.Password == "" || isPasswordHash(user.Password) {
			continue
		}
		hashed, err := hashPassword(user.Password)
		if err != nil {
			continue
		}
		if err := a.users.UpdateUserPassword(ctx, user.Email, hashed); err != nil {
			a.log.Warn("password upgrade failed", zap.String("email", user.Email), zap.Error(err))
		}
	}
}

func verifyPassword(stored string, input string) bool {
	if stored == "" || strings.TrimSpace(input) == "" || !isPasswordHash(stored) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(input)) == nil
}

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func isPasswordHash(value string) bool {
	return strings.HasPrefix(value, "$2a$") || strings.HasPrefix(value, "$2b$") || strings.HasPrefix(value, "$2y$")
}
