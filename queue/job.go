package queue

import (
	"encoding/json"

	"github.com/zapreel/zapreel/domain"
)

// Kind is the closed set of message kinds recognized at the consumer
// boundary.
type Kind string

const (
	KindSingle       Kind = "single"
	KindBatch        Kind = "batch"
	KindVoiceCloning Kind = "voice_cloning"
)

// SingleRequest synthesizes one text to one file, with no DB tracking.
type SingleRequest struct {
	Text           string `json:"text"`
	VoiceFile      string `json:"voice_file,omitempty"`
	OutputFilename string `json:"output_filename,omitempty"`
	OutputDir      string `json:"output_dir,omitempty"`
}

// BatchRequest synthesizes N texts without DB tracking.
type BatchRequest struct {
	Messages        []domain.ChatMessage `json:"messages"`
	VoiceMapping    map[string]string    `json:"voice_mapping,omitempty"`
	UseVoiceCloning bool                 `json:"use_voice_cloning,omitempty"`
	OutputDir       string               `json:"output_dir,omitempty"`
}

// Job is the decoded consumer-boundary message. Exactly one of the payload
// fields is set, according to Kind.
type Job struct {
	ID   string
	Kind Kind

	Single *SingleRequest
	Batch  *BatchRequest
	Voice  *domain.VoiceJob
}

// envelope holds the discriminating fields of an incoming message.
type envelope struct {
	ID      string               `json:"id"`
	Type    string               `json:"type"`
	VideoID string               `json:"video_id"`
	Msgs    []domain.ChatMessage `json:"messages"`
}

// ParseJob classifies a message body into the tagged union. A body carrying
// both video_id and messages is a voice-cloning job regardless of its tag,
// matching what the job runner actually sends. Unknown tags are a
// ProtocolError.
func ParseJob(body json.RawMessage) (*Job, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, domain.Protocolf("decode message envelope: %v", err)
	}

	if env.VideoID != "" && env.Msgs != nil {
		var vj domain.VoiceJob
		if err := json.Unmarshal(body, &vj); err != nil {
			return nil, domain.Protocolf("decode voice job: %v", err)
		}
		if len(vj.Messages) == 0 {
			return nil, domain.Protocolf("voice job %s has no messages", vj.VideoID)
		}
		return &Job{ID: env.ID, Kind: KindVoiceCloning, Voice: &vj}, nil
	}

	switch Kind(env.Type) {
	case KindSingle:
		var sr SingleRequest
		if err := json.Unmarshal(body, &sr); err != nil {
			return nil, domain.Protocolf("decode single request: %v", err)
		}
		return &Job{ID: env.ID, Kind: KindSingle, Single: &sr}, nil
	case KindBatch, "":
		var br BatchRequest
		if err := json.Unmarshal(body, &br); err != nil {
			return nil, domain.Protocolf("decode batch request: %v", err)
		}
		return &Job{ID: env.ID, Kind: KindBatch, Batch: &br}, nil
	case KindVoiceCloning:
		return nil, domain.Protocolf("voice_cloning message missing video_id or messages")
	default:
		return nil, domain.Protocolf("unknown message type %q", env.Type)
	}
}
