package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/zapreel/zapreel/domain"
)

// CreateVoice inserts a fresh pending row for one transcript message and
// returns its id. Duplicate creation is allowed; each row is an independent
// unit of work.
func (s *Store) CreateVoice(ctx context.Context, videoID, characterName, textContent string, voiceMappingID *string) (string, error) {
	voiceID := uuid.NewString()

	query := `
		INSERT INTO voices (id, video_id, voice_mapping_id, character_name, text_content, status)
		VALUES ($1, $2, $3, $4, $5, 'pending')`

	_, err := s.conn(ctx).Exec(ctx, query, voiceID, videoID, voiceMappingID, characterName, textContent)
	if err != nil {
		return "", WrapError("create voice", err)
	}
	return voiceID, nil
}

// ClaimVoice performs the pending→processing transition. Returns true when
// the caller now owns the row; concurrent claimers see exactly one winner
// because the conditional update matches at most one pending row.
func (s *Store) ClaimVoice(ctx context.Context, voiceID string) (bool, error) {
	query := `
		UPDATE voices
		SET status = 'processing', processing_started_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status = 'pending'`

	tag, err := s.conn(ctx).Exec(ctx, query, voiceID)
	if err != nil {
		return false, WrapError("claim voice", err)
	}
	return tag.RowsAffected() > 0, nil
}

// CompleteVoice marks the row completed and records where the audio lives.
// remotePath is nil when the artifact stayed on local disk.
func (s *Store) CompleteVoice(ctx context.Context, voiceID, audioPath string, isLocal bool, remotePath *string) error {
	query := `
		UPDATE voices
		SET status = 'completed',
		    output_audio_path = $2,
		    is_local_storage = $3,
		    remote_storage_path = $4,
		    processing_completed_at = CURRENT_TIMESTAMP,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`

	tag, err := s.conn(ctx).Exec(ctx, query, voiceID, audioPath, isLocal, remotePath)
	if err != nil {
		return WrapError("complete voice", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// FailVoice marks the row failed with the collaborator's error text.
func (s *Store) FailVoice(ctx context.Context, voiceID, errorMessage string) error {
	query := `
		UPDATE voices
		SET status = 'failed', error_message = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`

	tag, err := s.conn(ctx).Exec(ctx, query, voiceID, errorMessage)
	if err != nil {
		return WrapError("fail voice", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetVoice retrieves one row joined with its mapping, if any.
func (s *Store) GetVoice(ctx context.Context, voiceID string) (*domain.VoiceRow, error) {
	query := `
		SELECT v.id, v.video_id, v.voice_mapping_id, v.character_name, v.text_content,
		       v.status, v.output_audio_path, v.is_local_storage, v.remote_storage_path,
		       v.error_message, COALESCE(vm.voice_id, ''), COALESCE(vm.voice_file, ''),
		       v.created_at, v.processing_started_at, v.processing_completed_at, v.updated_at
		FROM voices v
		LEFT JOIN voice_mappings vm ON v.voice_mapping_id = vm.id
		WHERE v.id = $1`

	row := &domain.VoiceRow{}
	err := s.conn(ctx).QueryRow(ctx, query, voiceID).Scan(
		&row.ID, &row.VideoID, &row.VoiceMappingID, &row.CharacterName, &row.TextContent,
		&row.Status, &row.OutputAudio, &row.IsLocalStorage, &row.RemotePath,
		&row.ErrorMessage, &row.MappingVoiceID, &row.MappingVoiceFile,
		&row.CreatedAt, &row.StartedAt, &row.CompletedAt, &row.UpdatedAt)
	if err != nil {
		return nil, WrapNotFound("get voice", err)
	}
	return row, nil
}

// PendingVoices returns pending rows joined with their mapping, ordered by
// created_at ascending: a deterministic work queue independent of the broker.
func (s *Store) PendingVoices(ctx context.Context) ([]*domain.VoiceRow, error) {
	query := `
		SELECT v.id, v.video_id, v.voice_mapping_id, v.character_name, v.text_content,
		       v.status, v.output_audio_path, v.is_local_storage, v.remote_storage_path,
		       v.error_message, COALESCE(vm.voice_id, ''), COALESCE(vm.voice_file, ''),
		       v.created_at, v.processing_started_at, v.processing_completed_at, v.updated_at
		FROM voices v
		LEFT JOIN voice_mappings vm ON v.voice_mapping_id = vm.id
		WHERE v.status = 'pending'
		ORDER BY v.created_at ASC`

	rows, err := s.conn(ctx).Query(ctx, query)
	if err != nil {
		return nil, WrapError("pending voices", err)
	}
	defer rows.Close()

	var result []*domain.VoiceRow
	for rows.Next() {
		row := &domain.VoiceRow{}
		if err := rows.Scan(
			&row.ID, &row.VideoID, &row.VoiceMappingID, &row.CharacterName, &row.TextContent,
			&row.Status, &row.OutputAudio, &row.IsLocalStorage, &row.RemotePath,
			&row.ErrorMessage, &row.MappingVoiceID, &row.MappingVoiceFile,
			&row.CreatedAt, &row.StartedAt, &row.CompletedAt, &row.UpdatedAt); err != nil {
			return nil, WrapError("scan pending voice", err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, WrapError("pending voices", err)
	}
	return result, nil
}

// StatusForVideo aggregates row counts per video.
func (s *Store) StatusForVideo(ctx context.Context, videoID string) (domain.VideoVoiceStatus, error) {
	query := `
		SELECT COUNT(*) AS total,
		       COUNT(CASE WHEN status = 'completed' THEN 1 END) AS completed,
		       COUNT(CASE WHEN status = 'failed' THEN 1 END) AS failed,
		       COUNT(CASE WHEN status IN ('pending', 'processing') THEN 1 END) AS pending
		FROM voices
		WHERE video_id = $1`

	var status domain.VideoVoiceStatus
	err := s.conn(ctx).QueryRow(ctx, query, videoID).Scan(
		&status.Total, &status.Completed, &status.Failed, &status.Pending)
	if err != nil {
		return domain.VideoVoiceStatus{}, WrapError("status for video", err)
	}
	return status, nil
}

// AllVoicesCompleted reports the completion barrier: at least one row exists
// and every row is completed.
func (s *Store) AllVoicesCompleted(ctx context.Context, videoID string) (bool, error) {
	status, err := s.StatusForVideo(ctx, videoID)
	if err != nil {
		return false, err
	}
	return status.AllCompleted(), nil
}

// CompletedAudioPaths returns the audio paths of completed rows for a video
// in created_at order, which mirrors transcript order.
func (s *Store) CompletedAudioPaths(ctx context.Context, videoID string) ([]string, error) {
	query := `
		SELECT output_audio_path
		FROM voices
		WHERE video_id = $1 AND status = 'completed'
		ORDER BY created_at ASC`

	rows, err := s.conn(ctx).Query(ctx, query, videoID)
	if err != nil {
		return nil, WrapError("completed audio paths", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var path *string
		if err := rows.Scan(&path); err != nil {
			return nil, WrapError("scan audio path", err)
		}
		if path != nil && *path != "" {
			paths = append(paths, *path)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, WrapError("completed audio paths", err)
	}
	return paths, nil
}

// FailedVoices returns the failed rows for a video, for error reporting.
func (s *Store) FailedVoices(ctx context.Context, videoID string) ([]*domain.VoiceRow, error) {
	query := `
		SELECT id, video_id, character_name, text_content, error_message, created_at, updated_at
		FROM voices
		WHERE video_id = $1 AND status = 'failed'
		ORDER BY created_at ASC`

	rows, err := s.conn(ctx).Query(ctx, query, videoID)
	if err != nil {
		return nil, WrapError("failed voices", err)
	}
	defer rows.Close()

	var result []*domain.VoiceRow
	for rows.Next() {
		row := &domain.VoiceRow{Status: domain.VoiceStatusFailed}
		if err := rows.Scan(&row.ID, &row.VideoID, &row.CharacterName, &row.TextContent,
			&row.ErrorMessage, &row.CreatedAt, &row.UpdatedAt); err != nil {
			return nil, WrapError("scan failed voice", err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, WrapError("failed voices", err)
	}
	return result, nil
}

// IsUniqueViolation reports whether err is a unique-constraint violation,
// e.g. an attempt to insert a second default voice mapping.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
