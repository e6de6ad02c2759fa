package store

import "encoding/json"

// LangPref is the settings-level language preference, distinct from
// article.Lang: "auto" has no Article-level equivalent.
type LangPref string

const (
	LangAuto LangPref = "auto"
	LangEn   LangPref = "en"
	LangRo   LangPref = "ro"
)

// VoiceGender is the settings voice-gender preference.
type VoiceGender string

const (
	GenderAuto   VoiceGender = "auto"
	GenderMale   VoiceGender = "male"
	GenderFemale VoiceGender = "female"
)

// Theme is the settings UI theme preference. voxread has no UI shell
// (spec.md §1 Non-goals), but the field is carried so a future shell can
// read a validated value without voxread needing to know about it.
type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
	ThemeKhaki Theme = "khaki"
)

// Settings is the single validated record spec.md §4.10 describes.
type Settings struct {
	Rate            float64     `json:"rate"`
	Lang            LangPref    `json:"lang"`
	VoiceName       string      `json:"voiceName"`
	VoiceGender     VoiceGender `json:"voiceGender"`
	WakeLock        bool        `json:"wakeLock"`
	Theme           Theme       `json:"theme"`
	DeviceVoiceOnly bool        `json:"deviceVoiceOnly"`
}

// DefaultSettings is the §4.10 default record.
func DefaultSettings() Settings {
	return Settings{
		Rate:            1.0,
		Lang:            LangAuto,
		VoiceName:       "",
		VoiceGender:     GenderAuto,
		WakeLock:        true,
		Theme:           ThemeDark,
		DeviceVoiceOnly: false,
	}
}

// Validate applies per-field validation with fallback to default,
// per spec.md §4.10: "invalid persisted values ... must never
// propagate." Validate is idempotent: Validate(Validate(s)) == Validate(s).
func (s Settings) Validate() Settings {
	def := DefaultSettings()
	out := s
	if out.Rate < 0.5 || out.Rate > 3.0 {
		out.Rate = def.Rate
	}
	switch out.Lang {
	case LangAuto, LangEn, LangRo:
	default:
		out.Lang = def.Lang
	}
	switch out.VoiceGender {
	case GenderAuto, GenderMale, GenderFemale:
	default:
		out.VoiceGender = def.VoiceGender
	}
	switch out.Theme {
	case ThemeDark, ThemeLight, ThemeKhaki:
	default:
		out.Theme = def.Theme
	}
	return out
}

// SaveSettings writes the full record as one blob under the single
// settings key (spec.md §6.5). Storage failures are logged and
// swallowed, matching SaveContent's fire-and-forget policy.
func (s *Store) SaveSettings(settings Settings) {
	blob, err := json.Marshal(settings.Validate())
	if err != nil {
		s.log.Warn("store: encode settings failed", "err", err)
		return
	}
	if _, err := s.db.Exec(
		`INSERT INTO settings (id, record) VALUES (0, ?)
		 ON CONFLICT(id) DO UPDATE SET record = excluded.record`,
		string(blob),
	); err != nil {
		s.log.Warn("store: save settings failed", "err", err)
	}
}

// LoadSettings returns the validated settings record, or DefaultSettings
// on a miss or any storage/decode error (the loader's fallback-to-default
// policy, spec.md §4.10).
func (s *Store) LoadSettings() Settings {
	var blob string
	err := s.db.QueryRow(`SELECT record FROM settings WHERE id = 0`).Scan(&blob)
	if err != nil {
		return DefaultSettings()
	}
	var settings Settings
	if err := json.Unmarshal([]byte(blob), &settings); err != nil {
		s.log.Warn("store: decode settings failed", "err", err)
		return DefaultSettings()
	}
	return settings.Validate()
}
