package agentstore

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/google/uuid"
	"github.com/quenio/agerun-go/pkg/agent"
	"github.com/quenio/agerun-go/pkg/agerunlog"
	"github.com/quenio/agerun-go/pkg/methodology"
	"github.com/quenio/agerun-go/pkg/value"
)

// secureFileMode is owner-read-write-only.
const secureFileMode = 0o600

// snapshotFile is the on-disk YAML shape: a top-level "agents:" key
// holding a list of per-agent snapshots.
type snapshotFile struct {
	Agents []agentSnapshot `yaml:"agents"`
}

type agentSnapshot struct {
	ID            int64          `yaml:"id"`
	MethodName    string         `yaml:"method_name"`
	MethodVersion string         `yaml:"method_version"`
	Memory        map[string]any `yaml:"memory"`
}

// toYAML renders a Map Value into the plain nested map/scalar shape YAML
// needs; only scalar and nested-Map memory values are supported.
func toYAML(v *value.Value) map[string]any {
	out := make(map[string]any, len(value.MapKeys(v)))
	for _, key := range value.MapKeys(v) {
		child, _ := value.MapGet(v, key)
		out[key] = scalarOrNested(child)
	}
	return out
}

func scalarOrNested(v *value.Value) any {
	switch v.Kind() {
	case value.KindInteger:
		return v.Integer()
	case value.KindDouble:
		return v.Double()
	case value.KindString:
		return v.Str()
	case value.KindMap:
		return toYAML(v)
	default:
		// Lists aren't part of the persisted memory shape; render as their
		// canonical string so save never panics.
		return value.CanonicalString(v)
	}
}

// fromYAML reconstructs an owned Map Value from the decoded YAML shape.
func fromYAML(m map[string]any, holder value.Holder) (*value.Value, error) {
	out := value.NewMap()
	for k, raw := range m {
		child, err := scalarFromYAML(raw, holder)
		if err != nil {
			return nil, fmt.Errorf("agentstore: memory key %q: %w", k, err)
		}
		if err := value.MapSet(out, k, child); err != nil {
			return nil, fmt.Errorf("agentstore: memory key %q: %w", k, err)
		}
	}
	return out, nil
}

func scalarFromYAML(raw any, holder value.Holder) (*value.Value, error) {
	switch v := raw.(type) {
	case int:
		return value.NewInteger(int64(v)), nil
	case int64:
		return value.NewInteger(v), nil
	case float64:
		return value.NewDouble(v), nil
	case string:
		return value.NewString(v), nil
	case map[string]any:
		return fromYAML(v, holder)
	case nil:
		return value.NewString(""), nil
	default:
		return nil, fmt.Errorf("unsupported memory value type %T", raw)
	}
}

// SaveToFile atomically writes every tracked agent's id, method binding,
// and memory to path in the snapshotFile YAML shape, creating a `.bak` of
// any existing file first and applying owner-only permissions on success.
func (s *AgentStore) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("agentstore: create dir: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		if err := backupFile(path); err != nil {
			return fmt.Errorf("agentstore: backup: %w", err)
		}
	}

	snap := snapshotFile{}
	for _, a := range s.All() {
		m := a.Method()
		snap.Agents = append(snap.Agents, agentSnapshot{
			ID:            a.ID(),
			MethodName:    m.Name,
			MethodVersion: m.Version,
			Memory:        toYAML(a.Memory()),
		})
	}

	data, err := yaml.Marshal(snap)
	if err != nil {
		return fmt.Errorf("agentstore: marshal: %w", err)
	}

	tmp := filepath.Join(dir, ".agents-"+uuid.NewString()+".tmp")
	if err := os.WriteFile(tmp, data, secureFileMode); err != nil {
		return fmt.Errorf("agentstore: write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("agentstore: rename: %w", err)
	}
	return nil
}

func backupFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	tmp := filepath.Join(dir, ".agents-bak-"+uuid.NewString()+".tmp")
	if err := os.WriteFile(tmp, data, secureFileMode); err != nil {
		return err
	}
	return os.Rename(tmp, path+".bak")
}

// LoadFromFile reconstructs an AgentStore from path, re-resolving each
// snapshot's method binding via methods (exact name+version lookup — a
// missing binding skips that agent, since it can no longer run). A
// missing file yields an empty store; a corrupt file is quarantined and
// also yields an empty store.
func LoadFromFile(path string, methods *methodology.Methodology, log *agerunlog.Log) (*AgentStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, fmt.Errorf("agentstore: read: %w", err)
	}

	store, loadErr := decode(data, methods)
	if loadErr != nil {
		if log != nil {
			log.RecordError(agerunlog.New(agerunlog.PersistenceError, loadErr, "path", path), "corrupt agent snapshot, replacing with empty store")
		}
		if err := quarantineCorrupt(path); err != nil && log != nil {
			log.RecordError(agerunlog.New(agerunlog.PersistenceError, err, "path", path), "failed to quarantine corrupt agent snapshot")
		}
		return New(), nil
	}
	return store, nil
}

func decode(data []byte, methods *methodology.Methodology) (*AgentStore, error) {
	var snap snapshotFile
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("agentstore: unmarshal: %w", err)
	}

	store := New()
	maxID := int64(0)
	for _, entry := range snap.Agents {
		m, ok := methods.GetExact(entry.MethodName, entry.MethodVersion)
		if !ok {
			continue
		}
		memory, err := fromYAML(entry.Memory, nil)
		if err != nil {
			return nil, err
		}
		a := agent.Restore(entry.ID, m, memory)
		store.byID[entry.ID] = a
		store.order = append(store.order, entry.ID)
		if entry.ID > maxID {
			maxID = entry.ID
		}
	}
	store.nextID = maxID + 1
	return store, nil
}

func quarantineCorrupt(path string) error {
	dest := path + ".corrupt-" + uuid.NewString()
	return os.Rename(path, dest)
}
