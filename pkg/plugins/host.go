// Package plugins installs optional function packs into the formula
// engine and gives them a namespaced persistence surface.
package plugins

import (
	"errors"
	"fmt"
	"strings"

	"github.com/antibyte/retrosheet/pkg/configuration"
	"github.com/antibyte/retrosheet/pkg/document"
	"github.com/antibyte/retrosheet/pkg/logger"
	"github.com/antibyte/retrosheet/pkg/store"
	"github.com/antibyte/retrosheet/pkg/tabular"
)

var (
	// ErrNoStore means the host was built without a storage backend.
	ErrNoStore = errors.New("no plugin storage")
	// ErrQuotaExceeded means a pack hit its persisted data limit.
	ErrQuotaExceeded = errors.New("plugin data quota exceeded")
)

// Host is the surface a function pack sees: function registration into
// the engine and per-pack key/value persistence with a size quota.
type Host struct {
	reg   *tabular.Registry
	store store.Store
	quota int64
}

// NewHost wires a host to the registry functions land in and the store
// pack data persists to. st may be nil; SaveData then fails cleanly.
func NewHost(reg *tabular.Registry, st store.Store) *Host {
	quota := int64(configuration.GetInt("Plugins", "data_quota_kb", 256)) * 1024
	return &Host{reg: reg, store: st, quota: quota}
}

// RegisterFunction makes fn callable from formulas. Arity bounds follow
// the registry rules, maxArgs -1 for variadic. A panic inside fn is
// contained by the engine and surfaces as an error value in the calling
// cell only.
func (h *Host) RegisterFunction(name string, minArgs, maxArgs int, fn tabular.Callable) error {
	return h.reg.Register(name, minArgs, maxArgs, fn)
}

// SaveData persists one value in the pack's namespace. The write is
// refused when it would push the pack past its quota; replacing an
// existing value only counts the size difference.
func (h *Host) SaveData(plugin, key string, value []byte) error {
	if h.store == nil {
		return ErrNoStore
	}
	used, err := h.store.PluginDataSize(plugin)
	if err != nil {
		return err
	}
	if old, err := h.store.LoadPluginData(plugin, key); err == nil {
		used -= int64(len(old))
	}
	if used+int64(len(value)) > h.quota {
		return fmt.Errorf("%w: %s", ErrQuotaExceeded, plugin)
	}
	return h.store.SavePluginData(plugin, key, value)
}

// LoadData reads one value from the pack's namespace; store.ErrNotFound
// when the key was never saved.
func (h *Host) LoadData(plugin, key string) ([]byte, error) {
	if h.store == nil {
		return nil, ErrNoStore
	}
	return h.store.LoadPluginData(plugin, key)
}

// DeleteData removes one value from the pack's namespace. Deleting a
// missing key is not an error.
func (h *Host) DeleteData(plugin, key string) error {
	if h.store == nil {
		return ErrNoStore
	}
	return h.store.DeletePluginData(plugin, key)
}

// ColumnType classifies a sheet column for packs that adapt to the data
// they are pointed at: "number" when a majority of the non-empty cells
// read as numbers, "text" otherwise, "empty" for a blank column.
func (h *Host) ColumnType(sheet *document.Sheet, col int) string {
	numeric, filled := 0, 0
	for row := 0; row < sheet.Rows(); row++ {
		cell := strings.TrimSpace(sheet.Cell(row, col))
		if cell == "" {
			continue
		}
		filled++
		if _, ok := tabular.Text(cell).AsNumber(); ok {
			numeric++
		}
	}
	switch {
	case filled == 0:
		return "empty"
	case numeric*2 > filled:
		return "number"
	default:
		return "text"
	}
}

// Pack installs one named set of functions into a host.
type Pack func(h *Host) error

var packs = map[string]Pack{
	"finance":   registerFinance,
	"textutils": registerTextUtils,
}

// PackNames returns the names of the packs built into this binary.
func PackNames() []string {
	names := make([]string, 0, len(packs))
	for name := range packs {
		names = append(names, name)
	}
	return names
}

// Install registers the packs enabled in configuration. Unknown pack
// names are skipped with a warning so a stale config cannot prevent
// startup.
func Install(h *Host) error {
	if !configuration.GetBool("Plugins", "enabled", true) {
		logger.Info(logger.AreaPlugin, "Plugins disabled by configuration")
		return nil
	}

	spec := configuration.GetString("Plugins", "packs", "finance,textutils")
	for _, name := range strings.Split(spec, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		pack, ok := packs[name]
		if !ok {
			logger.Warn(logger.AreaPlugin, "Unknown plugin pack %q skipped", name)
			continue
		}
		if err := pack(h); err != nil {
			return fmt.Errorf("installing plugin pack %q: %w", name, err)
		}
		logger.Info(logger.AreaPlugin, "Installed plugin pack %q", name)
	}
	return nil
}
