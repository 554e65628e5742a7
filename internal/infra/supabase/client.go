package supabase

import (
	"context"
	"fmt"
	"sync"

	"vehicle-data-tools/internal/domain"

	"github.com/supabase-community/supabase-go"
)

// SupabaseClient implements the domain.SupabaseClient interface
type SupabaseClient struct {
	mu     sync.Mutex
	client *supabase.Client
	config domain.Config
	logger domain.Logger
}

// NewSupabaseClient creates a new Supabase client instance
func NewSupabaseClient(config domain.Config, logger domain.Logger) *SupabaseClient {
	return &SupabaseClient{
		config: config,
		logger: logger,
	}
}

func (s *SupabaseClient) DB() *supabase.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client
}

// Initialize establishes a connection to Supabase. Safe for concurrent use.
func (s *SupabaseClient) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		return nil
	}

	supabaseURL := s.config.GetSupabaseURL()
	supabaseKey := s.config.GetSupabaseKey()

	if supabaseURL == "" || supabaseKey == "" {
		return fmt.Errorf("supabase URL and key must be provided: %w", domain.ErrNotConfigured)
	}

	client, err := supabase.NewClient(supabaseURL, supabaseKey, &supabase.ClientOptions{})
	if err != nil {
		return fmt.Errorf("failed to create Supabase client: %w", err)
	}

	s.client = client
	s.logger.Info("Supabase client initialized successfully", "url", supabaseURL)
	return nil
}

// ValidateToken validates a Supabase JWT token and returns user info
func (s *SupabaseClient) ValidateToken(token string) (*domain.SupabaseUser, error) {
	client := s.DB()
	if client == nil {
		return nil, fmt.Errorf("supabase client not initialized")
	}

	// Passing "Authorization" via client headers does not affect GoTrue requests.
	user, err := client.Auth.WithToken(token).GetUser()
	if err != nil {
		s.logger.Error("Failed to validate token with Supabase", err)
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}

	if user == nil {
		return nil, fmt.Errorf("user not found")
	}

	return &domain.SupabaseUser{
		ID:           user.ID.String(),
		Email:        user.Email,
		UserMetadata: user.UserMetadata,
		CreatedAt:    user.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:    user.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}, nil
}

// ListBuckets returns the ids of all storage buckets
func (s *SupabaseClient) ListBuckets(ctx context.Context) ([]string, error) {
	if err := s.Initialize(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	buckets, err := s.DB().Storage.ListBuckets()
	if err != nil {
		return nil, fmt.Errorf("failed to list buckets: %w", err)
	}

	ids := make([]string, 0, len(buckets))
	for _, b := range buckets {
		ids = append(ids, b.Id)
	}
	return ids, nil
}

// Probe reads a single row from table through PostgREST. It fails when the
// table is missing from the API schema cache or the key cannot read it.
func (s *SupabaseClient) Probe(ctx context.Context, table string) error {
	if err := s.Initialize(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	_, _, err := s.DB().From(table).
		Select("*", "", false).
		Limit(1, "").
		Execute()
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", table, err)
	}

	s.logger.Debug("Probe succeeded", "table", table)
	return nil
}

var (
	_ domain.SupabaseClient = (*SupabaseClient)(nil)
	_ domain.BucketLister   = (*SupabaseClient)(nil)
	_ domain.TableProber    = (*SupabaseClient)(nil)
)
