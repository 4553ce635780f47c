package domain

import "github.com/supabase-community/supabase-go"

// SupabaseClient wraps the Supabase project used for auth and, with
// DB_DRIVER=supabase, for the draft tables.
type SupabaseClient interface {
	Initialize() error
	ValidateToken(token string) (*SupabaseUser, error)

	DB() *supabase.Client
	// GetClientWithToken returns a client that sends the caller's JWT, so
	// row level security applies to PostgREST calls.
	GetClientWithToken(token string) (*supabase.Client, error)
}

// AuthService resolves bearer tokens to users. Returns an error wrapping
// ErrInvalidToken for rejected tokens.
type AuthService interface {
	ValidateToken(token string) (*SupabaseUser, error)
}
