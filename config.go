package cnx

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	koanfyaml "github.com/knadh/koanf/parsers/yaml"
	confmap "github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Backend names accepted by Config.Backend.
const (
	BackendMem   = "mem"
	BackendFile  = "file"
	BackendMongo = "mongo"
	BackendHTTP  = "http"
)

// Config selects and parameterizes a connector backend.
type Config struct {
	Backend string      `mapstructure:"backend"`
	Log     LogConfig   `mapstructure:"log"`
	File    FileConfig  `mapstructure:"file"`
	Mongo   MongoConfig `mapstructure:"mongo"`
	HTTP    HTTPConfig  `mapstructure:"http"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type FileConfig struct {
	Dir   string `mapstructure:"dir"`
	Codec string `mapstructure:"codec"`
}

type HTTPConfig struct {
	BaseURL string `mapstructure:"url"`
}

var defaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"config/config.yaml",
	"config/config.yml",
}

func defaultConfig() map[string]any {
	return map[string]any{
		"backend":    BackendMem,
		"log.level":  "info",
		"file.codec": "json",
	}
}

// LoadConfig merges, in order, defaults, the first YAML file found among the
// default paths, environment variables with the given prefix (underscores map
// to dots, e.g. CNX_MONGO_URI -> mongo.uri), and --key=value arguments.
func LoadConfig(envPrefix string, args []string) (*Config, error) {
	path, _ := findConfigFile()
	return LoadConfigFile(path, envPrefix, args)
}

// LoadConfigFile is LoadConfig with an explicit YAML file path. An empty path
// skips the file source.
func LoadConfigFile(path, envPrefix string, args []string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaultConfig(), "."), nil); err != nil {
		return nil, fmt.Errorf("config: defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), koanfyaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: loading %s: %w", path, err)
		}
	}

	if envPrefix != "" {
		prefix := strings.ToUpper(strings.TrimSuffix(envPrefix, "_")) + "_"
		transform := func(s string) string {
			s = strings.TrimPrefix(s, prefix)
			s = strings.ReplaceAll(s, "_", ".")
			return strings.ToLower(s)
		}
		if err := k.Load(env.Provider(prefix, ".", transform), nil); err != nil {
			return nil, fmt.Errorf("config: loading env: %w", err)
		}
	}

	if kv := parseArgsToMap(args); len(kv) > 0 {
		if err := k.Load(confmap.Provider(kv, "."), nil); err != nil {
			return nil, fmt.Errorf("config: loading args: %w", err)
		}
	}

	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return nil, fmt.Errorf("config: decoder: %w", err)
	}
	if err := decoder.Decode(k.Raw()); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	return cfg, nil
}

func findConfigFile() (string, bool) {
	for _, path := range defaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}
	return "", false
}

func parseArgsToMap(args []string) map[string]any {
	out := make(map[string]any)
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "--") || len(arg) <= 2 {
			continue
		}
		key := strings.TrimPrefix(arg, "--")
		value := "true"
		if k, v, found := strings.Cut(key, "="); found {
			key, value = k, v
		} else if i+1 < len(args) && !strings.HasPrefix(args[i+1], "--") {
			value = args[i+1]
			i++
		}
		out[strings.ReplaceAll(key, "_", ".")] = value
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// OpenConnector builds the string-keyed connector the config selects. The
// returned close func releases backend resources and is always safe to call.
func OpenConnector[T any](ctx context.Context, cfg *Config) (Keyed[T], func(context.Context) error, error) {
	if cfg == nil {
		return nil, nil, errors.New("config: nil config provided")
	}
	noClose := func(context.Context) error { return nil }

	switch cfg.Backend {
	case BackendMem:
		conn, err := NewMemConnector[T, string]()
		if err != nil {
			return nil, nil, err
		}
		return conn, noClose, nil

	case BackendFile:
		codec, err := codecByName(cfg.File.Codec)
		if err != nil {
			return nil, nil, err
		}
		conn, err := NewFileConnector[T](cfg.File.Dir, WithFileCodec[T](codec))
		if err != nil {
			return nil, nil, err
		}
		return conn, noClose, nil

	case BackendMongo:
		if cfg.Mongo.Collection == "" {
			return nil, nil, errors.New("config: mongo.collection is required")
		}
		client, err := NewMongoClient(ctx, cfg.Mongo)
		if err != nil {
			return nil, nil, err
		}
		conn, err := NewMongoConnector[T, string](client.Collection(cfg.Mongo.Collection))
		if err != nil {
			_ = client.Disconnect(ctx)
			return nil, nil, err
		}
		return conn, client.Disconnect, nil

	case BackendHTTP:
		conn, err := NewHTTPConnector[T](cfg.HTTP.BaseURL)
		if err != nil {
			return nil, nil, err
		}
		return conn, noClose, nil

	default:
		return nil, nil, fmt.Errorf("config: unknown backend %q", cfg.Backend)
	}
}

func codecByName(name string) (Codec, error) {
	switch strings.ToLower(name) {
	case "", "json":
		return JSONCodec{}, nil
	case "yaml", "yml":
		return YAMLCodec{}, nil
	default:
		return nil, fmt.Errorf("config: unknown codec %q", name)
	}
}
