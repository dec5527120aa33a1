package model

// ================ Config ================
type SessionConfig struct {
	Backend string `envconfig:"SESSION_BACKEND" default:"memory"`
	TTL     string `envconfig:"SESSION_TTL" default:"15m"`
}

type IntentModelConfig struct {
	Model       string  `envconfig:"INTENT_MODEL" default:"gemini-2.5-flash-lite"`
	MaxTokens   int     `envconfig:"INTENT_MAX_TOKENS" default:"1024"`
	Temperature float32 `envconfig:"INTENT_TEMPERATURE" default:"0.1"`
}

type ReplyModelConfig struct {
	Model       string  `envconfig:"REPLY_MODEL" default:"gemini-2.5-flash-lite"`
	MaxTokens   int     `envconfig:"REPLY_MAX_TOKENS" default:"1024"`
	Temperature float32 `envconfig:"REPLY_TEMPERATURE" default:"0.4"`
}

type PromptConfig struct {
	BusinessType string `envconfig:"PROMPT_BUSINESS_TYPE" default:"golf bay"`
	BusinessName string `envconfig:"PROMPT_BUSINESS_NAME"`
	Timezone     string `envconfig:"PROMPT_TIMEZONE" default:"UTC"`
}
