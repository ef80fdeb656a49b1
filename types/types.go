package types

// Feedback is optional prior-session feedback carried into the next intake.
type Feedback struct {
	ChillsLevel  string `json:"chills_level"` // none | subtle | medium | high
	Emotion      string `json:"emotion"`
	ChillsDetail string `json:"chills_detail"`
	Insight      string `json:"insight"`
}

// Intake holds one day's answers from the user
type Intake struct {
	Day        int       `json:"day"`
	Mood       string    `json:"mood"`
	BodyFeel   string    `json:"body_feel"`
	Energy     string    `json:"energy"`
	Goal       string    `json:"goal"`
	GoalWhy    string    `json:"goal_why"`
	LastWin    string    `json:"last_win"`
	HardThing  string    `json:"hard_thing"`
	Schema     string    `json:"schema"`
	PostalCode string    `json:"postal_code,omitempty"`
	Setting    string    `json:"setting,omitempty"`
	Feedback   *Feedback `json:"feedback,omitempty"`
}

// Arc is one emotional trajectory used to pace the narration
type Arc struct {
	Key     string `json:"key"`
	Label   string `json:"label"`
	Summary string `json:"summary"`
	Pacing  string `json:"pacing"`
}

// TrackEntry is one music file in the index
type TrackEntry struct {
	ID     string `json:"id"`     // 12 hex chars of the relative path digest
	Path   string `json:"path"`   // POSIX relative path under Root
	Folder string `json:"folder"` // first path component, used as arc hint
}

// MusicIndex maps track ids to files on disk. Built once, read-only after.
type MusicIndex struct {
	Root   string       `json:"root"`
	Tracks []TrackEntry `json:"tracks"`
}

// History is the slice of recent session state the selector looks at
type History struct {
	RecentTrackIDs []string `json:"recent_track_ids"`
	LastVoiceID    string   `json:"last_voice_id"`
}

// Selection is the selector's output: which stem and which voice
type Selection struct {
	TrackID  string `json:"track_id"`
	Path     string `json:"path"` // absolute
	Folder   string `json:"folder"`
	FileName string `json:"file_name"`
	VoiceID  string `json:"voice_id"`
}

// Analysis is what the music analyzer reports about the chosen stem.
// Every downstream sample-count computation derives from these fields.
type Analysis struct {
	DurationMs  int  `json:"duration_ms"`
	SampleRate  int  `json:"sample_rate"`
	Channels    int  `json:"channels"`
	SampleWidth int  `json:"sample_width"` // bytes per sample
	WindowMs    int  `json:"window_ms"`    // analysis window length
	DropMs      int  `json:"drop_ms"`
	HasDrop     bool `json:"has_drop"`
}

// Session is the composed result handed to the session writer
type Session struct {
	ID         string `json:"id"`
	Day        int    `json:"day"`
	Arc        string `json:"arc"`
	TrackID    string `json:"track_id"`
	VoiceID    string `json:"voice_id"`
	Script     string `json:"script"`
	AudioFile  string `json:"audio_file"`
	PublicURL  string `json:"public_url"`
	DurationMs int    `json:"duration_ms"`
	CreatedAt  string `json:"created_at"`
}
