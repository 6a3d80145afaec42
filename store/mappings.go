package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/zapreel/zapreel/domain"
)

// GetMapping retrieves a voice mapping by its stable voice_id key.
func (s *Store) GetMapping(ctx context.Context, voiceID string) (*domain.VoiceMapping, error) {
	query := `
		SELECT id, voice_id, voice_name, voice_file, is_default
		FROM voice_mappings
		WHERE voice_id = $1`

	m := &domain.VoiceMapping{}
	err := s.conn(ctx).QueryRow(ctx, query, voiceID).Scan(
		&m.ID, &m.VoiceID, &m.VoiceName, &m.VoiceFile, &m.IsDefault)
	if err != nil {
		return nil, WrapNotFound("get mapping", err)
	}
	return m, nil
}

// DefaultMapping retrieves the default voice mapping. The partial unique
// index guarantees at most one row is default.
func (s *Store) DefaultMapping(ctx context.Context) (*domain.VoiceMapping, error) {
	query := `
		SELECT id, voice_id, voice_name, voice_file, is_default
		FROM voice_mappings
		WHERE is_default = TRUE
		LIMIT 1`

	m := &domain.VoiceMapping{}
	err := s.conn(ctx).QueryRow(ctx, query).Scan(
		&m.ID, &m.VoiceID, &m.VoiceName, &m.VoiceFile, &m.IsDefault)
	if err != nil {
		return nil, WrapNotFound("default mapping", err)
	}
	return m, nil
}

// CreateMapping inserts a voice mapping. Inserting a second default fails
// with a unique violation (see IsUniqueViolation).
func (s *Store) CreateMapping(ctx context.Context, m *domain.VoiceMapping) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}

	query := `
		INSERT INTO voice_mappings (id, voice_id, voice_name, voice_file, is_default)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := s.conn(ctx).Exec(ctx, query, m.ID, m.VoiceID, m.VoiceName, m.VoiceFile, m.IsDefault)
	if err != nil {
		return WrapError("create mapping", err)
	}
	return nil
}

// ListMappings returns all voice mappings ordered by voice_id.
func (s *Store) ListMappings(ctx context.Context) ([]*domain.VoiceMapping, error) {
	query := `
		SELECT id, voice_id, voice_name, voice_file, is_default
		FROM voice_mappings
		ORDER BY voice_id ASC`

	rows, err := s.conn(ctx).Query(ctx, query)
	if err != nil {
		return nil, WrapError("list mappings", err)
	}
	defer rows.Close()

	var result []*domain.VoiceMapping
	for rows.Next() {
		m := &domain.VoiceMapping{}
		if err := rows.Scan(&m.ID, &m.VoiceID, &m.VoiceName, &m.VoiceFile, &m.IsDefault); err != nil {
			return nil, WrapError("scan mapping", err)
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, WrapError("list mappings", err)
	}
	return result, nil
}
