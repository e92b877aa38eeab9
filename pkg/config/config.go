package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wrench-sim/wrench/pkg/failure"
)

// Config is the typed form of every key in §6's configuration table.
type Config struct {
	BatchSchedulingAlgorithm    string
	BatchQueueOrderingAlgorithm string
	HostSelectionAlgorithm      string
	ThreadStartupOverhead       time.Duration
	SimulateComputationAsSleep  bool
	ContainerStartupOverhead    time.Duration
	CachingBehavior             string
	ScratchSpaceBufferSize      int64
}

// Defaults returns the configuration the kernel runs with when a key
// is never set.
func Defaults() Config {
	return Config{
		BatchSchedulingAlgorithm:    "fcfs",
		BatchQueueOrderingAlgorithm: "fcfs",
		HostSelectionAlgorithm:      "FIRSTFIT",
		SimulateComputationAsSleep:  false,
		CachingBehavior:             "LRU",
	}
}

var (
	batchSchedulingAlgorithms = map[string]bool{"fcfs": true, "filler": true, "easy-backfill": true, "conservative-backfill": true}
	queueOrderings            = map[string]bool{"fcfs": true, "priority": true}
	hostSelections            = map[string]bool{"FIRSTFIT": true, "BESTFIT": true, "ROUNDROBIN": true}
	cachingBehaviors          = map[string]bool{"LRU": true, "NONE": true}
)

// Load parses raw YAML bytes into Config, starting from Defaults and
// overriding only the keys present. Unknown keys and malformed values
// are both InvalidArgument, matching §6 exactly.
func Load(raw []byte) (Config, error) {
	cfg := Defaults()

	var keys map[string]interface{}
	if err := yaml.Unmarshal(raw, &keys); err != nil {
		return Config{}, &failure.InvalidArgument{Field: "config", Reason: err.Error()}
	}

	for key, value := range keys {
		if err := applyKey(&cfg, key, value); err != nil {
			return Config{}, err
		}
	}
	return cfg, nil
}

func applyKey(cfg *Config, key string, value interface{}) error {
	switch key {
	case "BATCH_SCHEDULING_ALGORITHM":
		s, err := stringValue(key, value)
		if err != nil {
			return err
		}
		if !batchSchedulingAlgorithms[s] {
			return invalidValue(key, value)
		}
		cfg.BatchSchedulingAlgorithm = s

	case "BATCH_QUEUE_ORDERING_ALGORITHM":
		s, err := stringValue(key, value)
		if err != nil {
			return err
		}
		if !queueOrderings[s] {
			return invalidValue(key, value)
		}
		cfg.BatchQueueOrderingAlgorithm = s

	case "HOST_SELECTION_ALGORITHM":
		s, err := stringValue(key, value)
		if err != nil {
			return err
		}
		if !hostSelections[s] {
			return invalidValue(key, value)
		}
		cfg.HostSelectionAlgorithm = s

	case "THREAD_STARTUP_OVERHEAD":
		d, err := nonNegativeSeconds(key, value)
		if err != nil {
			return err
		}
		cfg.ThreadStartupOverhead = d

	case "SIMULATE_COMPUTATION_AS_SLEEP":
		b, ok := value.(bool)
		if !ok {
			return invalidValue(key, value)
		}
		cfg.SimulateComputationAsSleep = b

	case "CONTAINER_STARTUP_OVERHEAD":
		d, err := nonNegativeSeconds(key, value)
		if err != nil {
			return err
		}
		cfg.ContainerStartupOverhead = d

	case "CACHING_BEHAVIOR":
		s, err := stringValue(key, value)
		if err != nil {
			return err
		}
		if !cachingBehaviors[s] {
			return invalidValue(key, value)
		}
		cfg.CachingBehavior = s

	case "SCRATCH_SPACE_BUFFER_SIZE":
		n, err := nonNegativeBytes(key, value)
		if err != nil {
			return err
		}
		cfg.ScratchSpaceBufferSize = n

	default:
		return &failure.InvalidArgument{Field: key, Reason: "unknown configuration key"}
	}
	return nil
}

func stringValue(key string, value interface{}) (string, error) {
	s, ok := value.(string)
	if !ok {
		return "", invalidValue(key, value)
	}
	return s, nil
}

func nonNegativeSeconds(key string, value interface{}) (time.Duration, error) {
	f, ok := asFloat(value)
	if !ok || f < 0 {
		return 0, invalidValue(key, value)
	}
	return time.Duration(f * float64(time.Second)), nil
}

func nonNegativeBytes(key string, value interface{}) (int64, error) {
	f, ok := asFloat(value)
	if !ok || f < 0 {
		return 0, invalidValue(key, value)
	}
	return int64(f), nil
}

func asFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}

func invalidValue(key string, value interface{}) error {
	return &failure.InvalidArgument{Field: key, Reason: fmt.Sprintf("malformed value %v", value)}
}
