package utils

import "os"

var (
	HTTP_PORT = GetEnvOrDefault("HTTP_PORT", "8080")

	// OUTPUT_DIR is the default export directory, the user's home directory unless set.
	OUTPUT_DIR = GetEnvOrDefault("OUTPUT_DIR", HomeDirOrDefault("."))

	MAX_UPLOAD_BYTES   = GetEnvOrDefaultInt("MAX_UPLOAD_BYTES", 32<<20)
	SESSION_TTL_SEC    = GetEnvOrDefaultInt("SESSION_TTL_SEC", 3600)
	SHUTDOWN_SLEEP_SEC = GetEnvOrDefaultInt("SHUTDOWN_SLEEP_SEC", 0)

	CRDB_DSN     = os.Getenv("CRDB_DSN")
	AUTO_MIGRATE = os.Getenv("AUTO_MIGRATE") == "1"

	AWS_ACCESS_KEY_ID     = os.Getenv("AWS_ACCESS_KEY_ID")
	AWS_SECRET_ACCESS_KEY = os.Getenv("AWS_SECRET_ACCESS_KEY")
	AWS_DEFAULT_REGION    = GetEnvOrDefault("AWS_DEFAULT_REGION", "us-east-1")

	S3_BUCKET_NAME = os.Getenv("S3_BUCKET_NAME")
	S3_ENDPOINT    = os.Getenv("S3_ENDPOINT")
)
