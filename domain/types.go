// Package domain holds the shared types and error taxonomy of the video
// pipeline: voice jobs and rows, voice mappings, and screenshot coordinates.
package domain

import "time"

// ChatMessage is one line of the conversation transcript.
type ChatMessage struct {
	Text     string `json:"text"`
	FromUser string `json:"from_user"`
}

// VoiceJob is the payload the voice worker drains from its private queue.
// VoiceMapping maps a participant name to a voice reference blob key.
type VoiceJob struct {
	VideoID         string            `json:"video_id"`
	Messages        []ChatMessage     `json:"messages"`
	VoiceMapping    map[string]string `json:"voice_mapping,omitempty"`
	UseVoiceCloning bool              `json:"use_voice_cloning,omitempty"`
	OutputDir       string            `json:"output_dir,omitempty"`
}

// VoiceStatus is the lifecycle state of a voices row.
type VoiceStatus string

const (
	VoiceStatusPending    VoiceStatus = "pending"
	VoiceStatusProcessing VoiceStatus = "processing"
	VoiceStatusCompleted  VoiceStatus = "completed"
	VoiceStatusFailed     VoiceStatus = "failed"
)

// VoiceRow is one per-message unit of voice work, persisted in the voices
// table. MappingVoiceFile and MappingVoiceID are populated by queries that
// join voice_mappings; they are empty otherwise.
type VoiceRow struct {
	ID             string
	VideoID        string
	VoiceMappingID *string
	CharacterName  string
	TextContent    string
	Status         VoiceStatus
	OutputAudio    *string
	IsLocalStorage bool
	RemotePath     *string
	ErrorMessage   *string

	MappingVoiceID   string
	MappingVoiceFile string

	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	UpdatedAt   time.Time
}

// VoiceMapping names a reusable reference voice. VoiceFile is a storage blob
// key ("bucket/key") or a local filesystem path.
type VoiceMapping struct {
	ID        string
	VoiceID   string
	VoiceName string
	VoiceFile string
	IsDefault bool
}

// VideoVoiceStatus aggregates voices rows for one video.
type VideoVoiceStatus struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Pending   int `json:"pending"`
}

// AllCompleted reports whether the video's completion barrier holds: at
// least one row exists and every row is completed.
func (s VideoVoiceStatus) AllCompleted() bool {
	return s.Total > 0 && s.Completed == s.Total
}

// MessageCoordinate is the bounding box of one rendered chat bubble,
// reported by the screenshot service in screenshot pixel space.
type MessageCoordinate struct {
	Index  int    `json:"index"`
	Y      int    `json:"y"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
	From   string `json:"from"`
	Text   string `json:"text"`
}

// ScreenshotArtifact is the rendered chat image plus the per-message
// coordinates, as returned by the screenshot service.
type ScreenshotArtifact struct {
	ImagePath   string
	Coordinates []MessageCoordinate
}
