package plugins

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// hostFunctions provides the "env" host module imported by node plugins.
type hostFunctions struct {
	builder wazero.HostModuleBuilder
}

func newHostFunctions(rt wazero.Runtime) *hostFunctions {
	return &hostFunctions{builder: rt.NewHostModuleBuilder("env")}
}

// register adds all host functions to the runtime.
func (h *hostFunctions) register(ctx context.Context) error {
	h.builder.NewFunctionBuilder().
		WithFunc(h.logDebug).
		Export("log_debug")

	h.builder.NewFunctionBuilder().
		WithFunc(h.logInfo).
		Export("log_info")

	h.builder.NewFunctionBuilder().
		WithFunc(h.logError).
		Export("log_error")

	if _, err := h.builder.Instantiate(ctx); err != nil {
		return fmt.Errorf("failed to instantiate host functions module: %w", err)
	}

	return nil
}

// readMemory reads size bytes at ptr from the module's memory. The returned slice is a copy.
func readMemory(mod api.Module, ptr, size uint32) ([]byte, error) {
	if mod == nil {
		return nil, errors.New("nil module")
	}

	memory := mod.Memory()
	if memory == nil {
		return nil, errors.New("no memory exported")
	}

	data, ok := memory.Read(ptr, size)
	if !ok {
		return nil, fmt.Errorf("failed to read memory at %d[%d]", ptr, size)
	}

	out := make([]byte, len(data))
	copy(out, data)

	return out, nil
}

func (h *hostFunctions) logDebug(_ context.Context, mod api.Module, ptr, size uint32) {
	data, err := readMemory(mod, ptr, size)
	if err != nil {
		log.Error().Err(err).Msg("failed to read debug log message")
		return
	}

	log.Debug().
		Str("event", "plugin_debug").
		Str("module", mod.Name()).
		Msg(string(data))
}

func (h *hostFunctions) logInfo(_ context.Context, mod api.Module, ptr, size uint32) {
	data, err := readMemory(mod, ptr, size)
	if err != nil {
		log.Error().Err(err).Msg("failed to read info log message")
		return
	}

	log.Info().
		Str("event", "plugin_info").
		Str("module", mod.Name()).
		Msg(string(data))
}

func (h *hostFunctions) logError(_ context.Context, mod api.Module, ptr, size uint32) {
	data, err := readMemory(mod, ptr, size)
	if err != nil {
		log.Error().Err(err).Msg("failed to read error log message")
		return
	}

	log.Error().
		Str("event", "plugin_error").
		Str("module", mod.Name()).
		Msg(string(data))
}
