package experiment

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/samuelfneumann/lunardqn/agent/deepq"
	"github.com/samuelfneumann/lunardqn/environment/box2d/lunarlander"
	"github.com/samuelfneumann/lunardqn/schedule"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables which override
// configuration values, e.g. LUNARDQN_MAXEPISODES or
// LUNARDQN_AGENT_EXPREPLAY_SAMPLESIZE
const EnvPrefix = "LUNARDQN"

// Config represents a configuration of a DQN lunar lander experiment
type Config struct {
	Seed uint64

	// Experiment limits. The experiment stops at whichever limit is
	// reached first. MaxSteps <= 0 places no limit on total steps.
	MaxEpisodes int
	MaxSteps    int

	// Environment
	EpisodeCutoff int     // Steps before an episode is cut off
	Discount      float64 // γ

	// Exploration schedule, advanced once per episode
	Epsilon schedule.Config

	// The task is solved when the average return over the last
	// SolvedWindow episodes is at least SolvedScore
	SolvedWindow int
	SolvedScore  float64

	CheckpointEvery int // Episodes between checkpoints, <= 0 to disable
	LogEvery        int // Episodes between progress logs
	OutDir          string

	Agent deepq.Config
}

// DefaultConfig returns the canonical DQN lunar lander configuration
func DefaultConfig() Config {
	return Config{
		Seed:          1,
		MaxEpisodes:   2000,
		MaxSteps:      0,
		EpisodeCutoff: 1000,
		Discount:      0.99,
		Epsilon: schedule.Config{
			Type:  "exponential",
			Start: 1.0,
			End:   0.01,
			Decay: 0.995,
		},
		SolvedWindow:    100,
		SolvedScore:     200.0,
		CheckpointEvery: 100,
		LogEvery:        100,
		OutDir:          ".",
		Agent:           deepq.DefaultConfig(),
	}
}

// Validate returns an error if the Config is invalid
func (c Config) Validate() error {
	if c.MaxEpisodes < 1 {
		return fmt.Errorf("validate: maximum episodes must be positive "+
			"\n\thave(%v)", c.MaxEpisodes)
	}
	if c.EpisodeCutoff < 1 {
		return fmt.Errorf("validate: episode cutoff must be positive "+
			"\n\thave(%v)", c.EpisodeCutoff)
	}
	if c.Discount < 0 || c.Discount > 1 {
		return fmt.Errorf("validate: discount must be in [0, 1] "+
			"\n\thave(%v)", c.Discount)
	}
	if c.SolvedWindow < 1 {
		return fmt.Errorf("validate: solved window must be positive "+
			"\n\thave(%v)", c.SolvedWindow)
	}
	if c.LogEvery < 1 {
		return fmt.Errorf("validate: log interval must be positive "+
			"\n\thave(%v)", c.LogEvery)
	}
	if _, err := c.Epsilon.Create(); err != nil {
		return fmt.Errorf("validate: %v", err)
	}
	if err := c.Agent.Validate(); err != nil {
		return fmt.Errorf("validate: %v", err)
	}
	return nil
}

// CreateEnv creates the discrete lunar lander environment described by
// the Config
func (c Config) CreateEnv(seed uint64) (*lunarlander.Discrete, error) {
	task := lunarlander.NewDefaultLand(seed, c.EpisodeCutoff)
	env, _, err := lunarlander.NewDiscrete(task, c.Discount, seed)
	if err != nil {
		return nil, fmt.Errorf("createEnv: %v", err)
	}
	return env, nil
}

// Path returns the path of filename in the output directory
func (c Config) Path(filename string) string {
	return filepath.Join(c.OutDir, filename)
}

// LoadConfig reads a JSON or YAML configuration file. Values missing
// from the file take those of DefaultConfig, and environment variables
// prefixed with EnvPrefix override both. An empty filename loads the
// defaults.
func LoadConfig(filename string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults, err := defaultSettings()
	if err != nil {
		return Config{}, fmt.Errorf("loadConfig: %v", err)
	}
	setDefaults(v, "", defaults)

	if filename != "" {
		v.SetConfigFile(filename)
		v.SetConfigType(strings.TrimPrefix(filepath.Ext(filename), "."))
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("loadConfig: %v", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c, viper.DecodeHook(jsonHook)); err != nil {
		return Config{}, fmt.Errorf("loadConfig: %v", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, fmt.Errorf("loadConfig: %v", err)
	}
	return c, nil
}

// defaultSettings returns DefaultConfig as a generic map, keyed by
// field name
func defaultSettings() (map[string]interface{}, error) {
	data, err := json.Marshal(DefaultConfig())
	if err != nil {
		return nil, err
	}
	settings := map[string]interface{}{}
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, err
	}
	return settings, nil
}

// setDefaults registers every leaf of settings as a default under its
// dotted key, so that a config file overrides defaults key by key
// regardless of the types its parser produces
func setDefaults(v *viper.Viper, prefix string, settings map[string]interface{}) {
	for key, value := range settings {
		if prefix != "" {
			key = prefix + "." + key
		}
		if nested, ok := value.(map[string]interface{}); ok {
			setDefaults(v, key, nested)
			continue
		}
		v.SetDefault(key, value)
	}
}

var unmarshaler = reflect.TypeOf((*json.Unmarshaler)(nil)).Elem()

// jsonHook decodes configuration values into types which implement
// json.Unmarshaler, such as solvers and weight initializers, by
// routing them through their JSON representation
func jsonHook(from, to reflect.Type, data interface{}) (interface{}, error) {
	if data == nil || from == to || !reflect.PtrTo(to).Implements(unmarshaler) {
		return data, nil
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	value := reflect.New(to)
	if err := json.Unmarshal(raw, value.Interface()); err != nil {
		return nil, err
	}
	return value.Elem().Interface(), nil
}
