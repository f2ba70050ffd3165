package repo

import (
	"encoding/json"
	"os"
	"path"
	"reflect"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

type Duration time.Duration

func (d *Duration) MarshalText() (text []byte, err error) {
	return []byte(time.Duration(*d).String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	x, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(x)
	return nil
}

func StringToTimeDurationHookFunc() mapstructure.DecodeHookFunc {
	return func(
		f reflect.Type,
		t reflect.Type,
		data any) (any, error) {
		if f.Kind() != reflect.String {
			return data, nil
		}
		if t != reflect.TypeOf(Duration(5)) {
			return data, nil
		}

		d, err := time.ParseDuration(data.(string))
		if err != nil {
			return nil, err
		}
		return Duration(d), nil
	}
}

func (d *Duration) ToDuration() time.Duration {
	return time.Duration(*d)
}

func (d *Duration) String() string {
	return time.Duration(*d).String()
}

type Config struct {
	Ulimit   uint64   `mapstructure:"ulimit" toml:"ulimit"`
	Port     Port     `mapstructure:"port" toml:"port"`
	JsonRPC  JsonRPC  `mapstructure:"jsonrpc" toml:"jsonrpc"`
	Storage  Storage  `mapstructure:"storage" toml:"storage"`
	Ledger   Ledger   `mapstructure:"ledger" toml:"ledger"`
	Executor Executor `mapstructure:"executor" toml:"executor"`
	Monitor  Monitor  `mapstructure:"monitor" toml:"monitor"`
	Log      Log      `mapstructure:"log" toml:"log"`
}

type Port struct {
	JsonRpc   int64 `mapstructure:"jsonrpc" toml:"jsonrpc"`
	WebSocket int64 `mapstructure:"websocket" toml:"websocket"`
}

// JsonRPC configures the api servers. A websocket upgrade is charged to the
// read limiter, frames on an open connection are not.
type JsonRPC struct {
	CallTimeout  Duration `mapstructure:"call_timeout" toml:"call_timeout"`
	ReadLimiter  JLimiter `mapstructure:"read_limiter" toml:"read_limiter"`
	WriteLimiter JLimiter `mapstructure:"write_limiter" toml:"write_limiter"`
	CorsDomains  []string `mapstructure:"cors_domains" toml:"cors_domains"`

	// max number of blocks a single token_getLogs may scan
	GetLogsBlockRangeLimit uint64 `mapstructure:"get_logs_block_range_limit" toml:"get_logs_block_range_limit"`
}

type JLimiter struct {
	Interval Duration `mapstructure:"interval" toml:"interval"`
	Quantum  int64    `mapstructure:"quantum" toml:"quantum"`
	Capacity int64    `mapstructure:"capacity" toml:"capacity"`
	Enable   bool     `mapstructure:"enable" toml:"enable"`
}

type Monitor struct {
	Enable bool `mapstructure:"enable" toml:"enable"`
}

type Log struct {
	Level            string `mapstructure:"level" toml:"level"`
	Filename         string `mapstructure:"filename" toml:"filename"`
	ReportCaller     bool   `mapstructure:"report_caller" toml:"report_caller"`
	EnableColor      bool   `mapstructure:"enable_color" toml:"enable_color"`
	DisableTimestamp bool   `mapstructure:"disable_timestamp" toml:"disable_timestamp"`

	// unit: day
	MaxAge uint `mapstructure:"max_age" toml:"max_age"`

	RotationTime Duration  `mapstructure:"rotation_time" toml:"rotation_time"`
	Module       LogModule `mapstructure:"module" toml:"module"`
}

type LogModule struct {
	Executor       string `mapstructure:"executor" toml:"executor"`
	API            string `mapstructure:"api" toml:"api"`
	APP            string `mapstructure:"app" toml:"app"`
	Storage        string `mapstructure:"storage" toml:"storage"`
	SystemContract string `mapstructure:"system_contract" toml:"system_contract"`
}

type Storage struct {
	KvType      string `mapstructure:"kv_type" toml:"kv_type"`
	KvCacheSize int    `mapstructure:"kv_cache_size" toml:"kv_cache_size"`
	Sync        bool   `mapstructure:"sync" toml:"sync"`
}

type Ledger struct {
	// number of committed state slots kept in the read cache
	StateLedgerCacheSize int `mapstructure:"state_ledger_cache_size" toml:"state_ledger_cache_size"`
}

type Executor struct {
	// max invocations applied in one block
	MaxBlockInvocations int `mapstructure:"max_block_invocations" toml:"max_block_invocations"`
}

func (c *Config) Bytes() ([]byte, error) {
	ret, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}

	return ret, nil
}

func DefaultConfig() *Config {
	return &Config{
		Ulimit: 65535,
		Port: Port{
			JsonRpc:   8881,
			WebSocket: 9991,
		},
		JsonRPC: JsonRPC{
			CallTimeout: Duration(5 * time.Second),
			ReadLimiter: JLimiter{
				Interval: Duration(50 * time.Millisecond),
				Quantum:  500,
				Capacity: 10000,
				Enable:   false,
			},
			WriteLimiter: JLimiter{
				Interval: Duration(50 * time.Millisecond),
				Quantum:  500,
				Capacity: 10000,
				Enable:   false,
			},
			CorsDomains:            []string{"*"},
			GetLogsBlockRangeLimit: 2000,
		},
		Storage: Storage{
			KvType:      KVStorageTypePebble,
			KvCacheSize: 128,
			Sync:        true,
		},
		Ledger: Ledger{
			StateLedgerCacheSize: 10240,
		},
		Executor: Executor{
			MaxBlockInvocations: 500,
		},
		Monitor: Monitor{
			Enable: true,
		},
		Log: Log{
			Level:            "info",
			Filename:         "token-ledger",
			ReportCaller:     false,
			EnableColor:      true,
			DisableTimestamp: false,
			MaxAge:           30,
			RotationTime:     Duration(24 * time.Hour),
			Module: LogModule{
				Executor:       "info",
				API:            "info",
				APP:            "info",
				Storage:        "info",
				SystemContract: "info",
			},
		},
	}
}

func LoadConfig(repoRoot string) (*Config, error) {
	cfg, err := func() (*Config, error) {
		cfg := DefaultConfig()
		cfgPath := path.Join(repoRoot, CfgFileName)
		if !fileExist(cfgPath) {
			err := os.MkdirAll(repoRoot, 0755)
			if err != nil {
				return nil, errors.Wrap(err, "failed to build default config")
			}

			if err := writeConfigWithEnv(cfgPath, cfg); err != nil {
				return nil, errors.Wrap(err, "failed to build default config")
			}
		} else {
			if err := CheckWritable(repoRoot); err != nil {
				return nil, err
			}
			if err := readConfigFromFile(cfgPath, cfg); err != nil {
				return nil, err
			}
		}

		return cfg, nil
	}()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load config")
	}
	return cfg, nil
}
