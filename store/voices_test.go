package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"

	"github.com/zapreel/zapreel/domain"
)

// setupMockContext binds the mock pool as the store's connection so that
// conn() returns the mock instead of a real pool.
func setupMockContext(mock pgxmock.PgxPoolIface) context.Context {
	return WithConn(context.Background(), mock)
}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(mock.Close)
	return mock
}

func TestCreateVoice(t *testing.T) {
	mock := newMock(t)
	s := &Store{}

	mock.ExpectExec("INSERT INTO voices").
		WithArgs(pgxmock.AnyArg(), "video-1", (*string)(nil), "Ana", "Oi!").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	ctx := setupMockContext(mock)
	id, err := s.CreateVoice(ctx, "video-1", "Ana", "Oi!", nil)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if id == "" {
		t.Error("expected a generated voice id")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestClaimVoice_SingleWinner(t *testing.T) {
	mock := newMock(t)
	s := &Store{}

	// First claim wins the conditional update, second matches zero rows.
	mock.ExpectExec("UPDATE voices").
		WithArgs("voice-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE voices").
		WithArgs("voice-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	ctx := setupMockContext(mock)

	claimed, err := s.ClaimVoice(ctx, "voice-1")
	if err != nil {
		t.Fatalf("first claim: %v", err)
	}
	if !claimed {
		t.Error("first claim should win")
	}

	claimed, err = s.ClaimVoice(ctx, "voice-1")
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if claimed {
		t.Error("second claim should lose")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestCompleteVoice(t *testing.T) {
	mock := newMock(t)
	s := &Store{}

	remote := "voice-cloning/voice-1_Ana.wav"
	mock.ExpectExec("UPDATE voices").
		WithArgs("voice-1", "/out/voice-1_Ana.wav", false, &remote).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	ctx := setupMockContext(mock)
	if err := s.CompleteVoice(ctx, "voice-1", "/out/voice-1_Ana.wav", false, &remote); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestCompleteVoice_MissingRow(t *testing.T) {
	mock := newMock(t)
	s := &Store{}

	mock.ExpectExec("UPDATE voices").
		WithArgs("voice-x", "/out/a.wav", true, (*string)(nil)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	ctx := setupMockContext(mock)
	err := s.CompleteVoice(ctx, "voice-x", "/out/a.wav", true, nil)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFailVoice(t *testing.T) {
	mock := newMock(t)
	s := &Store{}

	mock.ExpectExec("UPDATE voices").
		WithArgs("voice-1", "model oom").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	ctx := setupMockContext(mock)
	if err := s.FailVoice(ctx, "voice-1", "model oom"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestStatusForVideo(t *testing.T) {
	mock := newMock(t)
	s := &Store{}

	mock.ExpectQuery("SELECT COUNT").
		WithArgs("video-1").
		WillReturnRows(pgxmock.NewRows([]string{"total", "completed", "failed", "pending"}).
			AddRow(4, 3, 1, 0))

	ctx := setupMockContext(mock)
	status, err := s.StatusForVideo(ctx, "video-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.Total != 4 || status.Completed != 3 || status.Failed != 1 || status.Pending != 0 {
		t.Errorf("unexpected status: %+v", status)
	}
	if status.AllCompleted() {
		t.Error("video with a failed row must not count as completed")
	}
}

func TestAllVoicesCompleted(t *testing.T) {
	tests := []struct {
		name                              string
		total, completed, failed, pending int
		want                              bool
	}{
		{"all done", 4, 4, 0, 0, true},
		{"one failed", 4, 3, 1, 0, false},
		{"still pending", 4, 2, 0, 2, false},
		{"no rows", 0, 0, 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMock(t)
			s := &Store{}

			mock.ExpectQuery("SELECT COUNT").
				WithArgs("video-1").
				WillReturnRows(pgxmock.NewRows([]string{"total", "completed", "failed", "pending"}).
					AddRow(tt.total, tt.completed, tt.failed, tt.pending))

			ctx := setupMockContext(mock)
			got, err := s.AllVoicesCompleted(ctx, "video-1")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("AllVoicesCompleted = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPendingVoices(t *testing.T) {
	mock := newMock(t)
	s := &Store{}

	now := time.Now()
	mappingID := "mapping-1"
	cols := []string{
		"id", "video_id", "voice_mapping_id", "character_name", "text_content",
		"status", "output_audio_path", "is_local_storage", "remote_storage_path",
		"error_message", "voice_id", "voice_file",
		"created_at", "processing_started_at", "processing_completed_at", "updated_at",
	}
	mock.ExpectQuery("FROM voices v").
		WillReturnRows(pgxmock.NewRows(cols).
			AddRow("voice-1", "video-1", &mappingID, "Ana", "Oi!",
				domain.VoiceStatusPending, nil, true, nil,
				nil, "ana_voice", "voices/ana.wav",
				now, nil, nil, now).
			AddRow("voice-2", "video-1", nil, "Bruno", "E aí",
				domain.VoiceStatusPending, nil, true, nil,
				nil, "", "",
				now.Add(time.Millisecond), nil, nil, now))

	ctx := setupMockContext(mock)
	rows, err := s.PendingVoices(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].MappingVoiceFile != "voices/ana.wav" {
		t.Errorf("expected joined mapping file, got %q", rows[0].MappingVoiceFile)
	}
	if rows[1].MappingVoiceFile != "" {
		t.Errorf("row without mapping should have empty voice file")
	}
}

func TestCompletedAudioPaths_SkipsEmpty(t *testing.T) {
	mock := newMock(t)
	s := &Store{}

	pathA := "/out/a.wav"
	pathB := "/out/b.wav"
	mock.ExpectQuery("SELECT output_audio_path").
		WithArgs("video-1").
		WillReturnRows(pgxmock.NewRows([]string{"output_audio_path"}).
			AddRow(&pathA).
			AddRow((*string)(nil)).
			AddRow(&pathB))

	ctx := setupMockContext(mock)
	paths, err := s.CompletedAudioPaths(ctx, "video-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(paths) != 2 || paths[0] != pathA || paths[1] != pathB {
		t.Errorf("unexpected paths: %v", paths)
	}
}
