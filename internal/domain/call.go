package domain

import (
	"fmt"
	"slices"
	"strings"

	apperrors "github.com/acme/call-dispatch/pkg/errors"
)

// SupportedModels lists the model names the calling API accepts.
var SupportedModels = []string{"enhanced", "turbo"}

// CallRequest enumerates every option the calling API recognises for a new call.
// Zero values mean "unset" and are never sent; scalar options whose zero value is
// meaningful are pointers.
type CallRequest struct {
	PhoneNumber string `json:"phone_number"`
	Task        string `json:"task,omitempty"`
	PathwayID   string `json:"pathway_id,omitempty"`

	Voice                 string           `json:"voice,omitempty"`
	BackgroundTrack       string           `json:"background_track,omitempty"`
	FirstSentence         string           `json:"first_sentence,omitempty"`
	WaitForGreeting       *bool            `json:"wait_for_greeting,omitempty"`
	BlockInterruptions    *bool            `json:"block_interruptions,omitempty"`
	InterruptionThreshold *int             `json:"interruption_threshold,omitempty"`
	Model                 string           `json:"model,omitempty"`
	Temperature           *float64         `json:"temperature,omitempty"`
	Keywords              []string         `json:"keywords,omitempty"`
	PronunciationGuide    []map[string]any `json:"pronunciation_guide,omitempty"`

	TransferPhoneNumber string         `json:"transfer_phone_number,omitempty"`
	TransferList        map[string]any `json:"transfer_list,omitempty"`
	Language            string         `json:"language,omitempty"`
	PathwayVersion      *int           `json:"pathway_version,omitempty"`
	LocalDialing        *bool          `json:"local_dialing,omitempty"`
	VoicemailSMS        *bool          `json:"voicemail_sms,omitempty"`
	DispatchHours       map[string]any `json:"dispatch_hours,omitempty"`

	SensitiveVoicemailDetection *bool    `json:"sensitive_voicemail_detection,omitempty"`
	NoiseCancellation           *bool    `json:"noise_cancellation,omitempty"`
	IgnoreButtonPress           *bool    `json:"ignore_button_press,omitempty"`
	LanguageDetectionPeriod     *int     `json:"language_detection_period,omitempty"`
	LanguageDetectionOptions    []string `json:"language_detection_options,omitempty"`
	Timezone                    string   `json:"timezone,omitempty"`

	RequestData      map[string]any   `json:"request_data,omitempty"`
	Tools            []map[string]any `json:"tools,omitempty"`
	StartTime        string           `json:"start_time,omitempty"`
	VoicemailMessage string           `json:"voicemail_message,omitempty"`
	VoicemailAction  map[string]any   `json:"voicemail_action,omitempty"`
	Retry            map[string]any   `json:"retry,omitempty"`
	MaxDuration      *int             `json:"max_duration,omitempty"`
	Record           *bool            `json:"record,omitempty"`
	From             string           `json:"from,omitempty"`
	Webhook          string           `json:"webhook,omitempty"`
	WebhookEvents    []string         `json:"webhook_events,omitempty"`
	Metadata         map[string]any   `json:"metadata,omitempty"`
	AnalysisPreset   string           `json:"analysis_preset,omitempty"`
}

// Validate enforces the local rules checked before any network I/O.
func (r CallRequest) Validate() error {
	if strings.TrimSpace(r.PhoneNumber) == "" {
		return fmt.Errorf("%w: phone number is required", apperrors.ErrValidation)
	}
	if err := ValidateRouting(r.Task, r.PathwayID); err != nil {
		return err
	}
	if r.Model != "" && !IsSupportedModel(r.Model) {
		return fmt.Errorf("%w: unsupported model %q (supported: %s)", apperrors.ErrValidation, r.Model, strings.Join(SupportedModels, ", "))
	}
	return nil
}

// WithDefaults fills routing and model from configured defaults. The pathway
// default applies only when neither task nor pathway id is set.
func (r CallRequest) WithDefaults(pathwayID, model string) CallRequest {
	if strings.TrimSpace(r.Task) == "" && strings.TrimSpace(r.PathwayID) == "" {
		r.PathwayID = pathwayID
	}
	if r.Model == "" {
		r.Model = model
	}
	return r
}

// ValidateRouting requires exactly one of task and pathway id.
func ValidateRouting(task, pathwayID string) error {
	hasTask := strings.TrimSpace(task) != ""
	hasPathway := strings.TrimSpace(pathwayID) != ""
	switch {
	case hasTask && hasPathway:
		return fmt.Errorf("%w: task and pathway_id are mutually exclusive", apperrors.ErrValidation)
	case !hasTask && !hasPathway:
		return fmt.Errorf("%w: one of task or pathway_id is required", apperrors.ErrValidation)
	}
	return nil
}

// IsSupportedModel reports whether the model name is accepted by the API.
func IsSupportedModel(model string) bool {
	return slices.Contains(SupportedModels, model)
}

// Bool is a helper for optional boolean options.
func Bool(v bool) *bool { return &v }

// Int is a helper for optional integer options.
func Int(v int) *int { return &v }

// Float is a helper for optional float options.
func Float(v float64) *float64 { return &v }
