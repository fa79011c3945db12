package config

import "testing"

func TestRedisFromEnv(t *testing.T) {
	base := RedisConfig{Addr: "redis:6379", Password: "file-secret", DB: 2, Stream: "readings"}

	tests := []struct {
		name string
		env  map[string]string
		want RedisConfig
	}{
		{
			name: "no overrides keeps base",
			env:  map[string]string{},
			want: base,
		},
		{
			name: "every override",
			env: map[string]string{
				"REDIS_ADDR":     "cache:6380",
				"REDIS_PASSWORD": "env-secret",
				"REDIS_DB":       "5",
				"REDIS_STREAM":   "station_stream",
			},
			want: RedisConfig{Addr: "cache:6380", Password: "env-secret", DB: 5, Stream: "station_stream"},
		},
		{
			name: "invalid db keeps base db",
			env:  map[string]string{"REDIS_DB": "invalid"},
			want: base,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			if got := redisFromEnv(base); got != tt.want {
				t.Errorf("redisFromEnv() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestLoad_RedisSection(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `redis:
  addr: "redis:6379"
  db: 1
`)
	t.Setenv("REDIS_DB", "not-a-number")
	t.Setenv("REDIS_STREAM", "override_stream")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := RedisConfig{Addr: "redis:6379", DB: 1, Stream: "override_stream"}
	if cfg.Redis != want {
		t.Errorf("Load().Redis = %+v, want %+v", cfg.Redis, want)
	}
}

func TestLoad_RedisDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := RedisConfig{Addr: "localhost:6379", Stream: "envista_readings"}
	if cfg.Redis != want {
		t.Errorf("Load().Redis = %+v, want %+v", cfg.Redis, want)
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("ENVISTA_TEST_KEY", "custom")
	t.Setenv("ENVISTA_TEST_EMPTY", "")

	if got := getEnv("ENVISTA_TEST_KEY", "default"); got != "custom" {
		t.Errorf("getEnv() = %v, want custom", got)
	}
	if got := getEnv("ENVISTA_TEST_EMPTY", "default"); got != "default" {
		t.Errorf("getEnv() with empty value = %v, want default", got)
	}
}
