package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rongwang/rentledger/internal/allocation"
	"github.com/rongwang/rentledger/internal/events"
	"github.com/rongwang/rentledger/internal/metrics"
	"github.com/rongwang/rentledger/internal/models"
	"github.com/rongwang/rentledger/internal/repository"
	"github.com/rongwang/rentledger/internal/summary"
	"github.com/rongwang/rentledger/internal/utils"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

// User roles
const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("invalid username or password")
	ErrForbidden    = errors.New("forbidden")
)

// ValidationError is a caller-facing rejection raised before any store access
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Column limits of the store. Input beyond them is rejected, never rounded or truncated.
const (
	maxCodeLength      = 32
	maxNameLength      = 255
	maxFieldNameLength = 128
	moneyPlaces        = 2
	percentPlaces      = 3
)

var (
	maxMoney   = decimal.New(1, 12)
	maxPercent = decimal.New(1, 3)
)

// validateLength rejects values longer than max characters
func validateLength(field, value string, max int) error {
	if utf8.RuneCountInString(value) > max {
		return invalid(field, "must be at most %d characters", max)
	}
	return nil
}

// validateNumber rejects negative values, more than places decimals and values not below limit
func validateNumber(field string, v decimal.Decimal, places int32, limit decimal.Decimal) error {
	if v.IsNegative() {
		return invalid(field, "must not be negative")
	}
	if !v.Equal(v.Round(places)) {
		return invalid(field, "must have at most %d decimal places", places)
	}
	if v.GreaterThanOrEqual(limit) {
		return invalid(field, "must be less than %s", limit)
	}
	return nil
}

func validateMoney(field string, v decimal.Decimal) error {
	return validateNumber(field, v, moneyPlaces, maxMoney)
}

func validatePercent(field string, v decimal.Decimal) error {
	return validateNumber(field, v, percentPlaces, maxPercent)
}

// Service defines all the business logic operations
type Service interface {
	// Authentication
	SignUp(ctx context.Context, req models.SignUpRequest) (*models.AuthResponse, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error)
	EnsureAdmin(ctx context.Context, username, password string) error

	// Ledger operations
	Totals(ctx context.Context, q models.TotalsQuery) (*models.TotalsResponse, error)
	TotalsByField(ctx context.Context, q models.TotalsByFieldQuery) (*models.TotalsByFieldResponse, error)
	CreateLedgerEntry(ctx context.Context, userID string, req models.CreateLedgerEntryRequest) (*models.TotalsResponse, error)
	DeleteLedgerEntry(ctx context.Context, entryID string) (*models.TotalsResponse, error)

	// Summaries
	BuildingSummary(ctx context.Context, buildingID int64, month, year int) (*models.Summary, error)
	PortfolioSummary(ctx context.Context, month, year int) (*models.PortfolioSummaryResponse, error)

	// Reference data
	CreateBuilding(ctx context.Context, req models.CreateBuildingRequest) (*models.Building, error)
	ListBuildings(ctx context.Context) ([]models.Building, error)
	CreateCategory(ctx context.Context, req models.CreateCategoryRequest) (*models.Category, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	CreateEmployee(ctx context.Context, req models.CreateEmployeeRequest) (*models.Employee, error)
	ListEmployees(ctx context.Context) ([]models.Employee, error)
	UpdateSettings(ctx context.Context, buildingID int64, req models.UpdateSettingsRequest) (*models.Settings, error)
	GetPortfolioSettings(ctx context.Context) (*models.PortfolioSettings, error)
	UpdatePortfolioSettings(ctx context.Context, req models.UpdatePortfolioSettingsRequest) (*models.PortfolioSettings, error)
	RecordSocialSecurity(ctx context.Context, req models.SocialSecurityRequest) (*models.SocialSecurityContribution, error)
}

// DefaultService implements the Service interface
type DefaultService struct {
	repo          repository.Repository
	jwtSecret     []byte
	tokenDuration time.Duration

	rules     allocation.RuleSet
	policy    summary.Policy
	publisher events.Publisher
	metrics   *metrics.Metrics
	log       *slog.Logger
	now       func() time.Time
}

// Option configures a DefaultService
type Option func(*DefaultService)

func WithRules(rules allocation.RuleSet) Option {
	return func(s *DefaultService) { s.rules = rules }
}

func WithPolicy(policy summary.Policy) Option {
	return func(s *DefaultService) { s.policy = policy }
}

func WithPublisher(p events.Publisher) Option {
	return func(s *DefaultService) { s.publisher = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *DefaultService) { s.metrics = m }
}

func WithLogger(log *slog.Logger) Option {
	return func(s *DefaultService) { s.log = log }
}

func WithTokenDuration(d time.Duration) Option {
	return func(s *DefaultService) { s.tokenDuration = d }
}

// NewDefaultService creates a new DefaultService
func NewDefaultService(repo repository.Repository, jwtSecret string, opts ...Option) Service {
	s := &DefaultService{
		repo:          repo,
		jwtSecret:     []byte(jwtSecret),
		tokenDuration: 24 * time.Hour,
		rules:         allocation.DefaultRules(),
		policy:        summary.DefaultPolicy(),
		publisher:     events.NoopPublisher{},
		log:           utils.DiscardLogger(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(slog.String("component", "service"))
	return s
}

// Authentication methods
func (s *DefaultService) SignUp(ctx context.Context, req models.SignUpRequest) (*models.AuthResponse, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, invalid("username", "is required")
	}
	if err := validateLength("username", username, maxNameLength); err != nil {
		return nil, err
	}
	if len(req.Password) < 8 {
		return nil, invalid("password", "must be at least 8 characters")
	}
	if req.Role != RoleAdmin && req.Role != RoleStaff {
		return nil, invalid("role", "must be admin or staff")
	}

	// Hash the password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user := &models.User{
		ID:       uuid.New().String(),
		Username: username,
		Password: string(hashedPassword),
		Role:     req.Role,
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, invalid("username", "already exists")
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	return &models.AuthResponse{
		Status:   "success",
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
	}, nil
}

func (s *DefaultService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	// Get the user
	user, err := s.repo.GetUserByUsername(ctx, req.Username)
	if err != nil {
		return nil, fmt.Errorf("error getting user: %w", err)
	}

	if user == nil {
		return nil, ErrUnauthorized
	}

	// Verify password
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrUnauthorized
	}

	// Generate JWT token
	token, err := s.generateJWT(user)
	if err != nil {
		return nil, fmt.Errorf("error generating token: %w", err)
	}

	return &models.AuthResponse{
		Status:    "success",
		UserID:    user.ID,
		Username:  user.Username,
		Role:      user.Role,
		Token:     token,
		ExpiresIn: int(s.tokenDuration.Seconds()),
	}, nil
}

// EnsureAdmin creates the bootstrap admin account unless the username already exists
func (s *DefaultService) EnsureAdmin(ctx context.Context, username, password string) error {
	existing, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("error checking admin: %w", err)
	}
	if existing != nil {
		return nil
	}

	_, err = s.SignUp(ctx, models.SignUpRequest{Username: username, Password: password, Role: RoleAdmin})
	if err != nil {
		return fmt.Errorf("error creating admin: %w", err)
	}
	s.log.Info("Created admin user", slog.String("username", username))
	return nil
}

func (s *DefaultService) generateJWT(user *models.User) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  user.ID,
		"role": user.Role,
		"exp":  now.Add(s.tokenDuration).Unix(),
		"iat":  now.Unix(),
	})
	return token.SignedString(s.jwtSecret)
}

// validatePeriod checks a month/year pair
func validatePeriod(month, year int) error {
	if month < 1 || month > 12 {
		return invalid("month", "must be between 1 and 12")
	}
	if year < 1 || year > 9999 {
		return invalid("year", "must be between 1 and 9999")
	}
	return nil
}

// requireBuilding returns ErrNotFound when the building does not exist
func (s *DefaultService) requireBuilding(ctx context.Context, id int64) (*models.Building, error) {
	b, err := s.repo.GetBuilding(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error getting building: %w", err)
	}
	if b == nil {
		return nil, fmt.Errorf("building %d: %w", id, ErrNotFound)
	}
	return b, nil
}
