package cfg

type Cfg struct {
	// Database configuration
	DBPath string

	// Application configuration
	SourcesDir        string
	Port              string
	BaseUrl           string
	WorkerCount       int
	SchedulerInterval int
	APIAccessKey      string

	// Resolver configuration
	RequestTimeout    int // seconds
	MaxRedirects      int
	RateLimitDelay    int // milliseconds
	ResolveRetries    int // HTTP attempts per decode
	MaxRetries        int // scheduler-level retries per article
	BackoffBase       int // seconds
	MaxJitter         int // seconds
	LegacyIDThreshold int

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
