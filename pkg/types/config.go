package types

type Config struct {
	Environment     string `envconfig:"ENVIRONMENT" default:"development"`
	ServerPort      uint   `envconfig:"SERVER_PORT" default:"8080"`
	DatabaseURL     string `envconfig:"DATABASE_URL"`
	ReadTimeoutSec  uint   `envconfig:"READ_TIMEOUT_SEC" default:"10"`
	WriteTimeoutSec uint   `envconfig:"WRITE_TIMEOUT_SEC" default:"30"`
	LogLevel        string `envconfig:"LOG_LEVEL" default:"info"`

	// Attachment storage: "s3" or "disk"
	StorageBackend  string `envconfig:"STORAGE_BACKEND" default:"disk"`
	S3BucketName    string `envconfig:"S3_BUCKET_NAME"`
	S3KeyPrefix     string `envconfig:"S3_KEY_PREFIX" default:"applications"`
	S3PresignTTLSec uint   `envconfig:"S3_PRESIGN_TTL_SEC" default:"900"`
	UploadDir       string `envconfig:"UPLOAD_DIR" default:"./uploads"`
	MaxUploadMB     int64  `envconfig:"MAX_UPLOAD_MB" default:"32"`

	// TODA override map; in-memory when unset
	RedisURL string `envconfig:"REDIS_URL"`

	// Staff identity. Review endpoints are unguarded when CognitoIssuerURL is unset.
	CognitoClientID  string `envconfig:"COGNITO_CLIENT_ID"`
	CognitoIssuerURL string `envconfig:"COGNITO_ISSUER_URL"`
	StaffGroup       string `envconfig:"STAFF_GROUP" default:"staff"`

	// Cookie encryption keys (base64 encoded)
	// openssl rand -base64 32
	// to generate values
	CookieHashKey  string `envconfig:"COOKIE_HASH_KEY"`  // 32 or 64 bytes
	CookieBlockKey string `envconfig:"COOKIE_BLOCK_KEY"` // 16, 24, or 32 bytes
}

func (c *Config) StaffAuthEnabled() bool {
	return c.CognitoIssuerURL != ""
}
