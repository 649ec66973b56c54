package app

import (
	"context"
	"strings"
	"time"

	"caseplan/api/internal/auth"
	"caseplan/api/internal/authpw"
	"caseplan/api/internal/config"
	"caseplan/api/internal/export"
	"caseplan/api/internal/rbac"
	"caseplan/api/internal/search"
	"caseplan/api/internal/store"
	"caseplan/api/internal/util"
)

type Session struct {
	Token        string
	RefreshToken string
	UserID       string
	UserName     string
	Role         string
	JTI          string
	ExpiresAt    time.Time
}

// dataStore is the persistence surface the service needs. PostgresStore
// satisfies it; tests provide a fake.
type dataStore interface {
	Ping(ctx context.Context) error
	EnsureUserByName(context.Context, string) (store.User, error)
	GetUserByID(context.Context, string) (store.User, error)
	RevokeAccessToken(context.Context, string, time.Time) error
	IsAccessTokenRevoked(context.Context, string) (bool, error)

	CreatePlan(context.Context, store.Plan, store.PlanVersion) (store.Plan, store.PlanVersion, error)
	GetPlanByUUID(context.Context, string) (store.Plan, error)
	GetCurrentVersion(context.Context, int64) (store.PlanVersion, error)
	GetVersionByNumber(context.Context, int64, int) (store.PlanVersion, error)
	ListVersions(context.Context, int64) ([]store.PlanVersion, error)
	GetVersionGraph(context.Context, int64) (store.VersionGraph, error)
	SaveSnapshot(context.Context, store.Snapshot) error
	NextVersionNumber(context.Context, int64) (int, error)
	AddGoal(context.Context, int64, store.Goal) (store.Goal, error)
	AddProgressNote(context.Context, int64, store.ProgressNote) (store.ProgressNote, error)
	UpdateAgreement(context.Context, int64, int, string, time.Time, store.AgreementNote) error
	UpdateCountersigning(context.Context, int64, int, string) error
}

// sessionStore holds refresh tokens. Both PostgresStore and the Redis
// session store satisfy it.
type sessionStore interface {
	SaveRefreshSession(context.Context, string, string, time.Time) error
	LookupRefreshSession(context.Context, string) (store.User, error)
	RevokeRefreshSession(context.Context, string) error
}

type Service struct {
	cfg      config.Config
	store    dataStore
	sessions sessionStore
	search   *search.Service
	export   *export.Service
	authpw   *authpw.Service

	// now is swappable so tests can steer the day-bucket gate.
	now func() time.Time
}

func New(cfg config.Config, dataStore *store.PostgresStore) *Service {
	return &Service{
		cfg:      cfg,
		store:    dataStore,
		sessions: dataStore,
		now:      time.Now,
	}
}

// SetSessionStore swaps refresh-token storage to Redis when configured.
func (s *Service) SetSessionStore(sessions sessionStore) {
	s.sessions = sessions
}

// SetSearchService wires the search facade. May be left nil.
func (s *Service) SetSearchService(svc *search.Service) {
	s.search = svc
}

// SetExportService wires plan export. May be left nil.
func (s *Service) SetExportService(svc *export.Service) {
	s.export = svc
}

// SetAuthPasswordService enables email/password authentication.
func (s *Service) SetAuthPasswordService(svc *authpw.Service) {
	s.authpw = svc
}

// AuthPasswordService returns the configured password auth service, or nil.
func (s *Service) AuthPasswordService() *authpw.Service {
	return s.authpw
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) Login(ctx context.Context, name string) (Session, error) {
	userName := trimOrDefault(name, "User")

	user, err := s.store.EnsureUserByName(ctx, userName)
	if err != nil {
		return Session{}, err
	}

	return s.issueSession(ctx, user)
}

// CreateSession issues tokens for an already-authenticated user id.
func (s *Service) CreateSession(ctx context.Context, userID string) (Session, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	tokenHash := auth.HashToken(refreshToken)
	user, err := s.sessions.LookupRefreshSession(ctx, tokenHash)
	if err != nil {
		return Session{}, err
	}
	if err := s.sessions.RevokeRefreshSession(ctx, tokenHash); err != nil {
		return Session{}, err
	}
	// The Redis backend stores only the user id; hydrate the rest.
	if user.DisplayName == "" {
		user, err = s.store.GetUserByID(ctx, user.ID)
		if err != nil {
			return Session{}, err
		}
	}
	return s.issueSession(ctx, user)
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	now := s.now()
	expiresAt := now.Add(s.cfg.AccessTTL)
	jti := util.NewID("jti")

	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), auth.Claims{
		Sub:  user.ID,
		Name: user.DisplayName,
		Role: user.Role,
		JTI:  jti,
		Iat:  now.Unix(),
		Exp:  expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, err
	}

	refresh := util.NewID("rft") + util.NewID("")
	refreshExpires := now.Add(s.cfg.RefreshTTL)
	if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refresh), user.ID, refreshExpires); err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		UserID:       user.ID,
		UserName:     user.DisplayName,
		Role:         user.Role,
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}
	revoked, err := s.store.IsAccessTokenRevoked(ctx, claims.JTI)
	if err != nil {
		return Session{}, err
	}
	if revoked {
		return Session{}, auth.ErrInvalidToken
	}

	user, err := s.store.GetUserByID(ctx, claims.Sub)
	if err != nil {
		return Session{}, err
	}

	return Session{
		Token:     token,
		UserID:    user.ID,
		UserName:  user.DisplayName,
		Role:      user.Role,
		JTI:       claims.JTI,
		ExpiresAt: time.Unix(claims.Exp, 0),
	}, nil
}

func (s *Service) Logout(ctx context.Context, session Session, refreshToken string) error {
	if session.JTI != "" {
		_ = s.store.RevokeAccessToken(ctx, session.JTI, session.ExpiresAt)
	}
	if refreshToken != "" {
		_ = s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken))
	}
	return nil
}

func (s *Service) Can(role string, action rbac.Action) bool {
	return rbac.Can(rbac.Normalize(role), action)
}

// Search runs a full-text query across plans, goals and notes.
func (s *Service) Search(ctx context.Context, text, filterType, planUUID string, limit, offset int) (search.Response, error) {
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: text}, nil
	}
	return s.search.Search(search.Query{
		Text:           text,
		FilterType:     search.ResultType(filterType),
		FilterPlanUUID: planUUID,
		Limit:          limit,
		Offset:         offset,
	}), nil
}

func trimOrDefault(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}
