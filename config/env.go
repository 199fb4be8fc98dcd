package config

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

const (
	defaultAppAddr      = "localhost:9000"
	defaultAppEnv       = "local"
	defaultLogLevel     = "debug"
	defaultCodec        = "json"
	defaultDemoParam    = "test"
	defaultReportStream = "ctxflow:faults"
)

var (
	loadOnce sync.Once
	loadErr  error

	mu     sync.RWMutex
	values = defaultValues()
)

// Load reads config/app.json and .env once. Values from the process
// environment win over both files.
func Load() error {
	loadOnce.Do(func() {
		loadErr = loadFromFiles("config/app.json", ".env")
	})
	return loadErr
}

func defaultValues() map[string]string {
	return map[string]string{
		"APP_ADDR":          defaultAppAddr,
		"APP_ENV":           defaultAppEnv,
		"LOG_LEVEL":         defaultLogLevel,
		"CODEC":             defaultCodec,
		"DEMO_PARAM":        defaultDemoParam,
		"METRICS_ENABLED":   "true",
		"TRACING_ENDPOINT":  "",
		"REPORT_REDIS_ADDR": "",
		"REPORT_STREAM":     defaultReportStream,
	}
}

// AppAddr is the fixed local address the listener binds to.
func AppAddr() string {
	_ = Load()
	return get("APP_ADDR", defaultAppAddr)
}

func AppEnv() string {
	_ = Load()
	return get("APP_ENV", defaultAppEnv)
}

func LogLevel() string {
	_ = Load()
	return get("LOG_LEVEL", defaultLogLevel)
}

// Codec names the content codec used for every request and response body.
// Selection is static for the lifetime of the process.
func Codec() string {
	_ = Load()
	return strings.ToLower(get("CODEC", defaultCodec))
}

// DemoParam is the route parameter used by the startup self-call.
func DemoParam() string {
	_ = Load()
	return get("DEMO_PARAM", defaultDemoParam)
}

func MetricsEnabled() bool {
	_ = Load()
	on, err := strconv.ParseBool(get("METRICS_ENABLED", "true"))
	if err != nil {
		return true
	}
	return on
}

// ── Observability sinks ──────────────────────────────────────────────────────

// TracingEndpoint is the OTLP/HTTP collector endpoint. Empty disables export.
func TracingEndpoint() string { _ = Load(); return get("TRACING_ENDPOINT", "") }

// ReportRedisAddr enables the Redis stream fault sink when non-empty.
func ReportRedisAddr() string { _ = Load(); return get("REPORT_REDIS_ADDR", "") }

func ReportStream() string { _ = Load(); return get("REPORT_STREAM", defaultReportStream) }

func loadFromFiles(configPath, envPath string) error {
	loaded := defaultValues()

	if err := mergeJSONConfig(configPath, loaded); err != nil {
		if !os.IsNotExist(err) {
			return err
		}
	}

	if err := mergeDotEnv(envPath, loaded); err != nil {
		if !os.IsNotExist(err) {
			return err
		}
	}

	mergeProcessEnv(loaded)

	mu.Lock()
	values = loaded
	mu.Unlock()

	return nil
}

func mergeJSONConfig(path string, out map[string]string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	var raw map[string]interface{}
	if err := json.NewDecoder(file).Decode(&raw); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}

	for key, val := range raw {
		var s string
		switch v := val.(type) {
		case string:
			s = v
		case bool:
			s = strconv.FormatBool(v)
		default:
			continue
		}

		k := strings.ToUpper(strings.TrimSpace(key))
		if k == "" {
			continue
		}
		out[k] = strings.TrimSpace(s)
	}

	return nil
}

func mergeDotEnv(path string, out map[string]string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		idx := strings.IndexByte(line, '=')
		if idx <= 0 {
			continue
		}

		key := strings.ToUpper(strings.TrimSpace(line[:idx]))
		value := strings.TrimSpace(line[idx+1:])
		value = strings.Trim(value, `"'`)
		if key == "" {
			continue
		}
		out[key] = value
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	return nil
}

// mergeProcessEnv only considers keys ctxflow knows about.
func mergeProcessEnv(out map[string]string) {
	for key := range defaultValues() {
		if v, ok := os.LookupEnv(key); ok {
			out[key] = strings.TrimSpace(v)
		}
	}
}

func get(key, fallback string) string {
	mu.RLock()
	defer mu.RUnlock()

	if value := strings.TrimSpace(values[key]); value != "" {
		return value
	}

	return fallback
}

// Get reads any config key by name with an optional fallback.
// Keys from .env and app.json are available after config.Load().
func Get(key, fallback string) string {
	_ = Load()
	return get(key, fallback)
}
