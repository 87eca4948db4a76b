package handlers

import (
	"sort"
	"strings"

	"github.com/soundops/dawlink/internal/host"
	"github.com/soundops/dawlink/internal/params"
	"github.com/soundops/dawlink/internal/wire"
)

var deviceDefs = []def{
	{
		name:     "get_device_parameters",
		required: []string{"track_index", "device_index"},
		fn: func(s *Service, p map[string]any) (any, error) {
			d, err := deviceFromParams(s, p)
			if err != nil {
				return nil, err
			}
			specs := make([]map[string]any, len(d.Params))
			for i, pr := range d.Params {
				specs[i] = map[string]any{
					"index":        i,
					"name":         pr.Spec.Name,
					"min":          pr.Spec.Min,
					"max":          pr.Spec.Max,
					"is_quantized": pr.Spec.IsQuantized,
					"value":        pr.Value,
				}
				if len(pr.Spec.ValueItems) > 0 {
					specs[i]["value_items"] = pr.Spec.ValueItems
				}
				if pr.Spec.UnitHint != "" {
					specs[i]["unit_hint"] = pr.Spec.UnitHint
				}
				if pr.Spec.Display != nil {
					specs[i]["display"] = pr.Spec.Display
				}
				if dv, ok := displayValue(pr.Spec, pr.Value); ok {
					specs[i]["display_value"] = dv
				}
			}
			return map[string]any{
				"device_name": d.Name,
				"uri":         d.URI,
				"parameters":  specs,
			}, nil
		},
	},
	{
		name:     "set_device_parameter",
		mutating: true,
		required: []string{"track_index", "device_index", "parameter", "value"},
		fn: func(s *Service, p map[string]any) (any, error) {
			d, err := deviceFromParams(s, p)
			if err != nil {
				return nil, err
			}
			param, err := d.ParamByRef(p["parameter"])
			if err != nil {
				return nil, err
			}
			res, err := applyValue(param.Spec, p["value"])
			if err != nil {
				return nil, err
			}
			param.Value = res.Value
			return map[string]any{
				"device_name": d.Name,
				"parameter":   param.Spec.Name,
				"value":       res.Value,
				"requested":   res.Requested,
				"clamped":     res.Clamped,
			}, nil
		},
	},
	{
		name: "list_loadable_devices",
		fn: func(s *Service, p map[string]any) (any, error) {
			category, err := strArg(p, "category", "")
			if err != nil {
				return nil, err
			}
			maxItems, err := intArg(p, "max_items", 200)
			if err != nil {
				return nil, err
			}
			items := browserItems(s.Session, category, "", maxItems)
			return map[string]any{"category": categoryOrAll(category), "items": items}, nil
		},
	},
	{
		name:     "search_loadable_devices",
		required: []string{"query"},
		fn: func(s *Service, p map[string]any) (any, error) {
			query, err := strArg(p, "query", "")
			if err != nil {
				return nil, err
			}
			category, err := strArg(p, "category", "")
			if err != nil {
				return nil, err
			}
			maxItems, err := intArg(p, "max_items", 200)
			if err != nil {
				return nil, err
			}
			items := browserItems(s.Session, category, query, maxItems)
			return map[string]any{"query": query, "category": categoryOrAll(category), "items": items}, nil
		},
	},
	{
		name:     "load_browser_item",
		mutating: true,
		required: []string{"track_index", "item_uri"},
		fn: func(s *Service, p map[string]any) (any, error) {
			t, i, err := trackFromParams(s, p)
			if err != nil {
				return nil, err
			}
			uri, err := strArg(p, "item_uri", "")
			if err != nil {
				return nil, err
			}
			item, ok := findBrowserItem(s.Session, uri)
			if !ok {
				return nil, wire.Errorf(wire.KindHostState, "no loadable browser item with uri %q", uri)
			}
			d := instantiate(item)
			t.Devices = append(t.Devices, d)
			return map[string]any{
				"track_index":  i,
				"device_index": len(t.Devices) - 1,
				"loaded":       true,
				"item_name":    item.Name,
				"uri":          item.URI,
				"category":     item.Category,
			}, nil
		},
	},
	{
		name:     "search_and_load_device",
		mutating: true,
		required: []string{"track_index", "query"},
		fn: func(s *Service, p map[string]any) (any, error) {
			t, i, err := trackFromParams(s, p)
			if err != nil {
				return nil, err
			}
			query, err := strArg(p, "query", "")
			if err != nil {
				return nil, err
			}
			category, err := strArg(p, "category", "")
			if err != nil {
				return nil, err
			}
			items := browserItems(s.Session, category, query, 1)
			if len(items) == 0 {
				return nil, wire.Errorf(wire.KindHostState, "no browser item matches %q in %s", query, categoryOrAll(category))
			}
			item, _ := findBrowserItem(s.Session, items[0].URI)
			d := instantiate(item)
			t.Devices = append(t.Devices, d)
			return map[string]any{
				"track_index":  i,
				"device_index": len(t.Devices) - 1,
				"loaded":       true,
				"item_name":    item.Name,
				"uri":          item.URI,
				"category":     item.Category,
			}, nil
		},
	},
}

func deviceFromParams(s *Service, p map[string]any) (*host.Device, error) {
	ti, err := intArg(p, "track_index", -1)
	if err != nil {
		return nil, err
	}
	di, err := intArg(p, "device_index", -1)
	if err != nil {
		return nil, err
	}
	return s.Session.DeviceAt(ti, di)
}

// browserItems filters the host browser by category and query, ranked
// exact > prefix > contains like the host's own search.
func browserItems(sess *host.Session, category, query string, maxItems int) []host.BrowserItem {
	q := strings.ToLower(strings.TrimSpace(query))
	var out []host.BrowserItem
	for _, item := range sess.Browser {
		if !item.IsLoadable {
			continue
		}
		if category != "" && item.Category != category {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(item.Name), q) {
			continue
		}
		out = append(out, item)
	}
	if q != "" {
		score := func(it host.BrowserItem) int {
			n := strings.ToLower(it.Name)
			switch {
			case n == q:
				return 0
			case strings.HasPrefix(n, q):
				return 1
			default:
				return 2
			}
		}
		sort.SliceStable(out, func(i, j int) bool { return score(out[i]) < score(out[j]) })
	}
	if maxItems > 0 && len(out) > maxItems {
		out = out[:maxItems]
	}
	return out
}

func findBrowserItem(sess *host.Session, uri string) (host.BrowserItem, bool) {
	for _, item := range sess.Browser {
		if item.URI == uri && item.IsLoadable {
			return item, true
		}
	}
	return host.BrowserItem{}, false
}

// instantiate builds a live device from a browser item. Items without
// parameter metadata still get the universal bypass switch.
func instantiate(item host.BrowserItem) *host.Device {
	d := &host.Device{Name: item.Name, URI: item.URI}
	specs := item.Parameters
	if len(specs) == 0 {
		specs = []params.Spec{{
			Name: "Device On", Min: 0, Max: 1,
			IsQuantized: true, ValueItems: []string{"Off", "On"},
		}}
	}
	for _, spec := range specs {
		value := spec.Min
		if spec.Name == "Device On" {
			value = spec.Max
		}
		d.Params = append(d.Params, &host.Param{Spec: spec, Value: value})
	}
	return d
}

// displayValue converts a control value into the unit the host prints, when
// the spec carries enough metadata to do so.
func displayValue(spec params.Spec, v float64) (float64, bool) {
	var res params.Result
	var err error
	switch {
	case spec.UnitHint == params.UnitPercent:
		res, err = params.DenormalizePercent(spec, v)
	case spec.UnitHint == params.UnitHz && spec.Display != nil:
		res, err = params.DenormalizeHz(spec, *spec.Display, v)
	case spec.UnitHint == params.UnitDB && spec.Display != nil:
		res, err = params.DenormalizeDB(spec, *spec.Display, v)
	default:
		return 0, false
	}
	if err != nil {
		return 0, false
	}
	return res.Value, true
}

func categoryOrAll(category string) string {
	if category == "" {
		return "all"
	}
	return category
}
