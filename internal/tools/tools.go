// Package tools exposes the agent-facing MCP tool surface. Each tool is a
// thin translation to one bridge call or, for offline planning, to a cache
// lookup that never contacts the host. Tool failures are returned as MCP
// error results; a resolution miss is a normal result with diagnostics.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/soundops/dawlink/core/logx"
	"github.com/soundops/dawlink/internal/bridge"
	"github.com/soundops/dawlink/internal/metrics"
	"github.com/soundops/dawlink/internal/params"
	"github.com/soundops/dawlink/internal/resolve"
)

// Service binds the tool handlers to the bridge client and the cache store.
type Service struct {
	bridge  *bridge.Client
	store   *resolve.Store
	version string
}

// New builds the tool service.
func New(br *bridge.Client, store *resolve.Store, version string) *Service {
	return &Service{bridge: br, store: store, version: version}
}

// MCPServer assembles the MCP server with every tool registered.
func (s *Service) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer(
		"dawlink",
		s.version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	s.register(srv)
	return srv
}

// ServeStdio runs the MCP server over stdio until stdin closes.
func (s *Service) ServeStdio() error {
	return server.ServeStdio(s.MCPServer())
}

func (s *Service) register(srv *server.MCPServer) {
	srv.AddTool(mcp.NewTool("get_session_info",
		mcp.WithDescription("Get tempo, time signature, playback state and track count from the live session."),
	), func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return s.call(ctx, "get_session_info", nil)
	})

	srv.AddTool(mcp.NewTool("set_tempo",
		mcp.WithDescription("Set the session tempo in BPM (20-999)."),
		mcp.WithNumber("tempo", mcp.Required(), mcp.Description("Tempo in BPM")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		tempo, err := req.RequireFloat("tempo")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return s.call(ctx, "set_tempo", map[string]any{"tempo": tempo})
	})

	srv.AddTool(mcp.NewTool("create_midi_track",
		mcp.WithDescription("Create a MIDI track, appended unless an index is given."),
		mcp.WithNumber("index", mcp.Description("Insertion index; omit to append")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return s.call(ctx, "create_midi_track", map[string]any{"index": req.GetFloat("index", -1)})
	})

	srv.AddTool(mcp.NewTool("create_audio_track",
		mcp.WithDescription("Create an audio track, appended unless an index is given."),
		mcp.WithNumber("index", mcp.Description("Insertion index; omit to append")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return s.call(ctx, "create_audio_track", map[string]any{"index": req.GetFloat("index", -1)})
	})

	srv.AddTool(mcp.NewTool("get_track_info",
		mcp.WithDescription("Get a track's name, mixer state and device chain."),
		mcp.WithNumber("track_index", mcp.Required(), mcp.Description("Zero-based track index")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ti, err := req.RequireFloat("track_index")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return s.call(ctx, "get_track_info", map[string]any{"track_index": ti})
	})

	srv.AddTool(mcp.NewTool("set_track_volume",
		mcp.WithDescription("Set a track's volume. Accepts a normalized value (0.85), a percentage (\"50%\"), or \"min\"/\"max\"."),
		mcp.WithNumber("track_index", mcp.Required(), mcp.Description("Zero-based track index")),
		mcp.WithString("volume", mcp.Required(), mcp.Description("Volume as number, percentage, or symbolic value")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ti, err := req.RequireFloat("track_index")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		volume, err := req.RequireString("volume")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return s.call(ctx, "set_track_volume", map[string]any{"track_index": ti, "volume": volume})
	})

	srv.AddTool(mcp.NewTool("set_device_parameter",
		mcp.WithDescription("Set a device parameter. Values accept human units: \"-6dB\", \"50%\", \"min\", \"max\", an enum item name, or a raw number."),
		mcp.WithNumber("track_index", mcp.Required(), mcp.Description("Zero-based track index")),
		mcp.WithNumber("device_index", mcp.Required(), mcp.Description("Zero-based device index on the track")),
		mcp.WithString("parameter", mcp.Required(), mcp.Description("Parameter name or numeric index")),
		mcp.WithString("value", mcp.Required(), mcp.Description("Requested value in human units")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ti, err := req.RequireFloat("track_index")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		di, err := req.RequireFloat("device_index")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		param, err := req.RequireString("parameter")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		value, err := req.RequireString("value")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return s.call(ctx, "set_device_parameter", map[string]any{
			"track_index":  ti,
			"device_index": di,
			"parameter":    paramRef(param),
			"value":        value,
		})
	})

	srv.AddTool(mcp.NewTool("get_device_parameters",
		mcp.WithDescription("List a device's parameters with ranges, quantized items and current values."),
		mcp.WithNumber("track_index", mcp.Required(), mcp.Description("Zero-based track index")),
		mcp.WithNumber("device_index", mcp.Required(), mcp.Description("Zero-based device index on the track")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ti, err := req.RequireFloat("track_index")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		di, err := req.RequireFloat("device_index")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		result, err := s.bridge.Call(ctx, "get_device_parameters", map[string]any{"track_index": ti, "device_index": di})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		// Fresh metadata goes straight into the dump so offline planning
		// keeps up with what the host just reported.
		if name, uri, specs, derr := deviceParamsFromResult(result); derr == nil && name != "" {
			if werr := s.cacheDeviceParams(name, uri, "", specs); werr != nil {
				logx.Log.Warn().Err(werr).Str("device", name).Msg("parameter dump write failed")
			}
		}
		return jsonResult(result)
	})

	srv.AddTool(mcp.NewTool("load_device",
		mcp.WithDescription("Search the host browser and load the best match onto a track."),
		mcp.WithNumber("track_index", mcp.Required(), mcp.Description("Zero-based track index")),
		mcp.WithString("query", mcp.Required(), mcp.Description("Device or preset name to search for")),
		mcp.WithString("category", mcp.Description("Browser category to search in; omit for all")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ti, err := req.RequireFloat("track_index")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		query, err := req.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		result, err := s.bridge.Call(ctx, "search_and_load_device", map[string]any{
			"track_index": ti,
			"query":       query,
			"category":    req.GetString("category", ""),
		})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		s.captureAfterLoad(ctx, result)
		return jsonResult(result)
	})

	srv.AddTool(mcp.NewTool("search_browser",
		mcp.WithDescription("Search the live host browser and fold the results into the local cache."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Name to search for")),
		mcp.WithString("category", mcp.Description("Browser category to search in; omit for all")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		category := req.GetString("category", "")
		result, err := s.bridge.Call(ctx, "search_loadable_devices", map[string]any{
			"query": query, "category": category,
		})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if n, err := s.cacheItems(result); err == nil && n > 0 {
			return jsonResult(map[string]any{"result": result, "cached": n})
		}
		return jsonResult(result)
	})

	srv.AddTool(mcp.NewTool("plan_item",
		mcp.WithDescription("Resolve a device, sample or preset name against the local cache only, without contacting the host. Safe while the host is offline."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Human name to resolve, noise suffixes tolerated (\"Kick_128bpm\")")),
		mcp.WithString("category", mcp.Description("Restrict to one cache category; omit for all")),
	), func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := req.RequireString("name")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		res, err := s.PlanItem(name, req.GetString("category", ""))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(res)
	})

	srv.AddTool(mcp.NewTool("rescan_browser",
		mcp.WithDescription("Pull the host browser contents and rebuild the local cache indexes."),
		mcp.WithString("category", mcp.Description("Rescan a single category; omit for all")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		counts, err := s.Rescan(ctx, req.GetString("category", ""))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(map[string]any{"cached": counts, "cache_root": s.store.Root()})
	})
}

// call runs one bridge command and wraps the outcome as a tool result.
func (s *Service) call(ctx context.Context, cmdType string, params map[string]any) (*mcp.CallToolResult, error) {
	result, err := s.bridge.Call(ctx, cmdType, params)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(result)
}

// PlanItem resolves a name against the cache snapshot only. This is the
// offline planning path: it never dials the host.
func (s *Service) PlanItem(name, category string) (resolve.Resolution, error) {
	if err := validCategory(category); err != nil {
		return resolve.Resolution{}, err
	}
	var idx *resolve.Index
	var err error
	if category != "" {
		idx, err = s.store.Snapshot(category)
	} else {
		idx, err = s.store.Snapshot()
	}
	if err != nil {
		return resolve.Resolution{}, err
	}
	res := idx.Resolve(resolve.Query{RawName: name, Category: category})
	metrics.Resolve(res.Strategy)
	if res.Match != nil && len(res.Match.Parameters) == 0 {
		// The per-device dump often has richer metadata than the index.
		if _, specs, ok := s.store.LoadParams(res.Match.Name); ok {
			res.Match.Parameters = specs
		}
	}
	return res, nil
}

// captureAfterLoad enriches the cache right after a successful device load:
// the host has just instantiated the device, so its parameter listing is as
// fresh as it gets. Failures here never fail the load itself.
func (s *Service) captureAfterLoad(ctx context.Context, loadResult any) {
	var loaded struct {
		TrackIndex  float64 `json:"track_index"`
		DeviceIndex float64 `json:"device_index"`
		ItemName    string  `json:"item_name"`
		URI         string  `json:"uri"`
		Category    string  `json:"category"`
	}
	b, err := json.Marshal(loadResult)
	if err != nil || json.Unmarshal(b, &loaded) != nil || loaded.ItemName == "" {
		return
	}
	result, err := s.bridge.Call(ctx, "get_device_parameters", map[string]any{
		"track_index": loaded.TrackIndex, "device_index": loaded.DeviceIndex,
	})
	if err == nil {
		var specs []params.Spec
		if _, _, specs, err = deviceParamsFromResult(result); err == nil {
			err = s.cacheDeviceParams(loaded.ItemName, loaded.URI, loaded.Category, specs)
		}
	}
	if err != nil {
		logx.Log.Warn().Err(err).Str("item", loaded.ItemName).Msg("skipping parameter capture after load")
	}
}

// cacheDeviceParams persists a freshly observed parameter list: the
// per-device dump keyed by name, plus a merge into the category index when
// the category is known.
func (s *Service) cacheDeviceParams(name, uri, category string, specs []params.Spec) error {
	if err := s.store.WriteParams(name, uri, specs); err != nil {
		return err
	}
	if category == "" {
		return nil
	}
	return s.store.Merge(category, []resolve.Entry{{
		Name: name, URI: uri, Category: category, Parameters: specs,
	}})
}

// deviceParamsFromResult re-decodes a get_device_parameters result into the
// device identity and its cacheable specs.
func deviceParamsFromResult(result any) (name, uri string, specs []params.Spec, err error) {
	b, err := json.Marshal(result)
	if err != nil {
		return "", "", nil, err
	}
	var payload struct {
		DeviceName string        `json:"device_name"`
		URI        string        `json:"uri"`
		Parameters []params.Spec `json:"parameters"`
	}
	if err := json.Unmarshal(b, &payload); err != nil {
		return "", "", nil, fmt.Errorf("tools: unexpected parameter result shape: %w", err)
	}
	return payload.DeviceName, payload.URI, payload.Parameters, nil
}

// Rescan pulls browser listings over the bridge and merges them into the
// cache, one atomic index write per category. It returns entry counts.
func (s *Service) Rescan(ctx context.Context, category string) (map[string]int, error) {
	if err := validCategory(category); err != nil {
		return nil, err
	}
	categories := resolve.Categories
	if category != "" {
		categories = []string{category}
	}
	counts := make(map[string]int, len(categories))
	for _, cat := range categories {
		result, err := s.bridge.Call(ctx, "list_loadable_devices", map[string]any{
			"category": cat, "max_items": 0,
		})
		if err != nil {
			return nil, err
		}
		entries, err := entriesFromResult(result)
		if err != nil {
			return nil, err
		}
		if len(entries) == 0 {
			continue
		}
		if err := s.store.Merge(cat, entries); err != nil {
			return nil, err
		}
		counts[cat] = len(entries)
	}
	return counts, nil
}

// cacheItems folds browser items from a live search result into the cache,
// grouped by their reported category.
func (s *Service) cacheItems(result any) (int, error) {
	entries, err := entriesFromResult(result)
	if err != nil {
		return 0, err
	}
	byCategory := make(map[string][]resolve.Entry)
	for _, e := range entries {
		cat := e.Category
		if cat == "" {
			cat = resolve.CategorySounds
		}
		byCategory[cat] = append(byCategory[cat], e)
	}
	total := 0
	for cat, group := range byCategory {
		if err := s.store.Merge(cat, group); err != nil {
			return total, err
		}
		total += len(group)
	}
	return total, nil
}

// entriesFromResult re-decodes a bridge result's "items" list into cache
// entries. The wire shape of a browser item is a superset of an entry, so a
// JSON round-trip is the whole conversion.
func entriesFromResult(result any) ([]resolve.Entry, error) {
	b, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	var payload struct {
		Items []resolve.Entry `json:"items"`
	}
	if err := json.Unmarshal(b, &payload); err != nil {
		return nil, fmt.Errorf("tools: unexpected browser result shape: %w", err)
	}
	return payload.Items, nil
}

// paramRef forwards numeric parameter references as numbers so the host can
// address by index, and everything else as a name.
func paramRef(s string) any {
	if n, err := strconv.Atoi(s); err == nil {
		return float64(n)
	}
	return s
}

func validCategory(category string) error {
	if category == "" {
		return nil
	}
	for _, c := range resolve.Categories {
		if c == category {
			return nil
		}
	}
	return fmt.Errorf("tools: unknown category %q (known: %v)", category, resolve.Categories)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}
