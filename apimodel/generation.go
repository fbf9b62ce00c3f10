package apimodel

import (
	"encoding/json"
	"strconv"
)

// ImageRequest is the body of the text-to-image endpoint.
type ImageRequest struct {
	Prompt     string `json:"prompt" validate:"required"`
	Model      string `json:"model" validate:"required"`
	Style      string `json:"style,omitempty"`
	Dimensions string `json:"dimensions,omitempty"`
}

// VideoRequest is the body of the text-to-video endpoint.
type VideoRequest struct {
	Prompt           string  `json:"prompt" validate:"required"`
	Model            string  `json:"model" validate:"required"`
	AspectRatio      string  `json:"aspect_ratio" validate:"required,oneof=16:9 9:16 1:1"`
	PersonGeneration *string `json:"person_generation,omitempty"`
	NumberOfVideos   *int    `json:"number_of_videos,omitempty" validate:"omitempty,min=1,max=4"`
	EnhancePrompt    *bool   `json:"enhance_prompt,omitempty"`
}

// Voice selects a voice for a speech request.
type Voice struct {
	VoiceID string `json:"voice_id" validate:"required"`
	Name    string `json:"name,omitempty"`
}

// SpeechRequest is the body of the text-to-speech endpoint.
type SpeechRequest struct {
	Input         string  `json:"input" validate:"required"`
	Model         string  `json:"model" validate:"required"`
	Voices        []Voice `json:"voices" validate:"dive"`
	Speed         float64 `json:"speed" validate:"gt=0,lte=4"`
	OutputFormat  string  `json:"output_format" validate:"oneof=mp3 wav"`
	OutputChannel string  `json:"output_channel" validate:"oneof=mono stereo"`
	Emotion       string  `json:"emotion,omitempty"`
	CustomPrompt  string  `json:"custom_prompt,omitempty"`
	VibeID        *int    `json:"vibe_id,omitempty"`
	Accent        string  `json:"accent,omitempty"`
	ModelName     string  `json:"model_name,omitempty"`
	Name          string  `json:"name,omitempty"`
}

// History is one generation job as the API reports it. Fields the client
// does not model are kept in Raw.
type History struct {
	UUID      string `json:"uuid"`
	Type      string `json:"type"`
	Status    int    `json:"status"`
	Model     string `json:"model,omitempty"`
	Prompt    string `json:"prompt,omitempty"`
	InputText string `json:"input_text,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`

	Raw json.RawMessage `json:"-"`
}

func (h *History) UnmarshalJSON(b []byte) error {
	type plain History
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*h = History(p)
	h.Raw = append(json.RawMessage(nil), b...)
	return nil
}

// Field returns a top-level member of the raw job as text.
func (h *History) Field(name string) string {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(h.Raw, &m); err != nil {
		return ""
	}
	raw, ok := m[name]
	if !ok {
		return ""
	}
	if s, err := strconv.Unquote(string(raw)); err == nil {
		return s
	}
	return string(raw)
}

// HistoryPage is one page of the history listing.
type HistoryPage struct {
	Result      []History `json:"result"`
	Total       int       `json:"total"`
	CurrentPage int       `json:"current_page"`
	PerPage     int       `json:"per_page"`
	LastPage    int       `json:"last_page"`
}
