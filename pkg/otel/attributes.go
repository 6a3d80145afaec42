package otel

import "go.opentelemetry.io/otel/attribute"

// Standard attribute keys for zapreel services.
const (
	AttrVideoID       = "video.id"
	AttrVoiceID       = "voice.id"
	AttrJobID         = "job.id"
	AttrQueueName     = "queue.name"
	AttrCharacter     = "voice.character"
	AttrTTSVoiceFile  = "tts.voice_file"
	AttrTTSLatencyMs  = "tts.latency_ms"
	AttrFrameCount    = "overlay.frame_count"
	AttrMessageCount  = "overlay.message_count"
	AttrStorageBucket = "storage.bucket"
	AttrStorageKey    = "storage.key"
)

func VideoID(id string) attribute.KeyValue      { return attribute.String(AttrVideoID, id) }
func VoiceID(id string) attribute.KeyValue      { return attribute.String(AttrVoiceID, id) }
func JobID(id string) attribute.KeyValue        { return attribute.String(AttrJobID, id) }
func QueueName(name string) attribute.KeyValue  { return attribute.String(AttrQueueName, name) }
func Character(name string) attribute.KeyValue  { return attribute.String(AttrCharacter, name) }
func TTSVoiceFile(f string) attribute.KeyValue  { return attribute.String(AttrTTSVoiceFile, f) }
func TTSLatencyMs(ms int64) attribute.KeyValue  { return attribute.Int64(AttrTTSLatencyMs, ms) }
func FrameCount(n int) attribute.KeyValue       { return attribute.Int(AttrFrameCount, n) }
func MessageCount(n int) attribute.KeyValue     { return attribute.Int(AttrMessageCount, n) }
func StorageBucket(b string) attribute.KeyValue { return attribute.String(AttrStorageBucket, b) }
func StorageKey(k string) attribute.KeyValue    { return attribute.String(AttrStorageKey, k) }
