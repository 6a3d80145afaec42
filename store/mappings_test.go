package store

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"

	"github.com/zapreel/zapreel/domain"
)

func TestGetMapping(t *testing.T) {
	mock := newMock(t)
	s := &Store{}

	mock.ExpectQuery("SELECT (.+) FROM voice_mappings").
		WithArgs("ana_voice").
		WillReturnRows(pgxmock.NewRows([]string{"id", "voice_id", "voice_name", "voice_file", "is_default"}).
			AddRow("mapping-1", "ana_voice", "Ana", "voice-cloning/ana.wav", false))

	ctx := setupMockContext(mock)
	m, err := s.GetMapping(ctx, "ana_voice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.VoiceFile != "voice-cloning/ana.wav" {
		t.Errorf("unexpected voice file: %q", m.VoiceFile)
	}
}

func TestGetMapping_NotFound(t *testing.T) {
	mock := newMock(t)
	s := &Store{}

	mock.ExpectQuery("SELECT (.+) FROM voice_mappings").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	ctx := setupMockContext(mock)
	_, err := s.GetMapping(ctx, "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDefaultMapping(t *testing.T) {
	mock := newMock(t)
	s := &Store{}

	mock.ExpectQuery("SELECT (.+) FROM voice_mappings").
		WillReturnRows(pgxmock.NewRows([]string{"id", "voice_id", "voice_name", "voice_file", "is_default"}).
			AddRow("mapping-d", "narrator", "Narrator", "voice-cloning/narrator.wav", true))

	ctx := setupMockContext(mock)
	m, err := s.DefaultMapping(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !m.IsDefault {
		t.Error("expected default mapping")
	}
}

func TestCreateMapping_SecondDefaultRejected(t *testing.T) {
	mock := newMock(t)
	s := &Store{}

	mock.ExpectExec("INSERT INTO voice_mappings").
		WithArgs(pgxmock.AnyArg(), "second", "Second", "voices/second.wav", true).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "voice_mappings_one_default"})

	ctx := setupMockContext(mock)
	err := s.CreateMapping(ctx, &domain.VoiceMapping{
		VoiceID:   "second",
		VoiceName: "Second",
		VoiceFile: "voices/second.wav",
		IsDefault: true,
	})
	if err == nil {
		t.Fatal("expected unique violation")
	}
	if !IsUniqueViolation(err) {
		t.Errorf("expected unique violation, got %v", err)
	}
}
