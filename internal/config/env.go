package config

import (
	"fmt"
	"log/slog"

	"github.com/kelseyhightower/envconfig"
)

type BaseEnv struct {
	Env      string `envconfig:"ENV" default:"local"`
	HTTPHost string `envconfig:"HTTP_HOST" default:""`
	HTTPPort string `envconfig:"HTTP_PORT" default:"3200"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"debug"`
	APIKey   string `envconfig:"API_KEY" required:"true"`
}

type StorageEnv struct {
	// Type selects the task repository backend: "local" and "s3" use YAML
	// files over the storage abstraction, "sqlite" uses an embedded database.
	Type       string `envconfig:"STORAGE_TYPE" default:"local"`
	BaseDir    string `envconfig:"STORAGE_BASE_DIR" default:".tasksync/data"`
	SQLitePath string `envconfig:"SQLITE_PATH" default:".tasksync/tasksync.db"`
	// S3 settings (used when Type == "s3")
	S3Bucket string `envconfig:"S3_BUCKET"`
	S3Prefix string `envconfig:"S3_PREFIX" default:"tasksync/"`
	S3Region string `envconfig:"S3_REGION" default:"eu-central-1"`
}

type DirectoryEnv struct {
	// UsersFile is the YAML employee directory, maintained out of band and
	// reloaded when it changes.
	UsersFile string `envconfig:"USERS_FILE" default:".tasksync/users.yaml"`
}

type VAPIDEnv struct {
	VAPIDPublicKey  string `envconfig:"VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey string `envconfig:"VAPID_PRIVATE_KEY"`
	VAPIDContact    string `envconfig:"VAPID_CONTACT" default:"mailto:it@deskhub.example"`
}

type Env struct {
	BaseEnv
	StorageEnv
	DirectoryEnv
	VAPIDEnv
}

const namespace = "TASKSYNC"

func LoadEnv() (*Env, error) {
	var env Env
	if err := envconfig.Process(namespace, &env); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}
	return &env, nil
}

func (e *BaseEnv) SlogLevel() slog.Level {
	if e == nil {
		return slog.LevelDebug
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(e.LogLevel)); err != nil {
		return slog.LevelDebug
	}
	return level
}

func BaseEnvFromEnv(env *Env) *BaseEnv {
	return &env.BaseEnv
}

func StorageEnvFromEnv(env *Env) *StorageEnv {
	return &env.StorageEnv
}

func VAPIDEnvFromEnv(env *Env) *VAPIDEnv {
	return &env.VAPIDEnv
}
