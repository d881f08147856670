package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"pdf-workbench/internal/domain"
)

const publicKeysTable = "public_keys"

// SupabaseKeyRepository keeps public keys in the public_keys table, one
// row per file name.
type SupabaseKeyRepository struct {
	supabaseClient domain.SupabaseClient
	logger         domain.Logger
}

// NewSupabaseKeyRepository creates a new Supabase key repository
func NewSupabaseKeyRepository(supabaseClient domain.SupabaseClient, logger domain.Logger) domain.KeyRepository {
	return &SupabaseKeyRepository{
		supabaseClient: supabaseClient,
		logger:         logger,
	}
}

// Get fetches the PEM stored under name.
func (r *SupabaseKeyRepository) Get(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	client := r.supabaseClient.DB()
	if client == nil {
		return nil, fmt.Errorf("supabase client not initialized")
	}

	data, _, err := client.From(publicKeysTable).
		Select("name,pem", "", false).
		Eq("name", name).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to get public key: %w", err)
	}

	var rows []map[string]interface{}
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrPublicKeyNotFound, name)
	}
	pem := getString(rows[0], "pem")
	if pem == "" {
		return nil, fmt.Errorf("%w: %s", domain.ErrPublicKeyNotFound, name)
	}
	return []byte(pem), nil
}

// Put inserts or replaces the PEM stored under name.
func (r *SupabaseKeyRepository) Put(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkKeyName(name); err != nil {
		return err
	}
	client := r.supabaseClient.DB()
	if client == nil {
		return fmt.Errorf("supabase client not initialized")
	}

	row := map[string]interface{}{
		"name":       name,
		"pem":        string(data),
		"updated_at": time.Now().UTC().Format(time.RFC3339),
	}
	_, _, err := client.From(publicKeysTable).
		Upsert(row, "name", "", "").
		Execute()
	if err != nil {
		return fmt.Errorf("failed to store public key: %w", err)
	}

	r.logger.Info("Public key stored", "name", name, "backend", "supabase")
	return nil
}

func getString(data map[string]interface{}, key string) string {
	if val, ok := data[key]; ok && val != nil {
		if s, ok := val.(string); ok {
			return s
		}
	}
	return ""
}
