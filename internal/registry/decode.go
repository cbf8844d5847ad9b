package registry

import (
	"fmt"
	"reflect"

	"github.com/dmitrijs2005/gamevault/internal/chain"
	"github.com/ethereum/go-ethereum/common"
)

// getGame may come back as a positional tuple (license, publisher, createdAt,
// active) or as one named struct/map. decodeGameRecord tries the positional
// variant first, then the named one, and reports a malformed record when
// neither applies.
const positionalFields = 4

var namedKeys = struct {
	license, publisher, createdAt, active []string
}{
	license:   []string{"License", "LicenseContract", "license", "licenseContract", "licenseContractAddress"},
	publisher: []string{"Publisher", "publisher"},
	createdAt: []string{"CreatedAt", "createdAt"},
	active:    []string{"Active", "active"},
}

type rawRecord struct {
	license, publisher, createdAt, active any
}

func decodeGameRecord(id common.Hash, out []any) (GameRecord, error) {
	raw, err := selectVariant(out)
	if err != nil {
		return GameRecord{}, err
	}

	license, ok := chain.AsAddress(raw.license)
	if !ok {
		return GameRecord{}, fmt.Errorf("license address: unexpected %T", raw.license)
	}
	publisher, ok := chain.AsAddress(raw.publisher)
	if !ok {
		return GameRecord{}, fmt.Errorf("publisher address: unexpected %T", raw.publisher)
	}
	createdAt, ok := chain.AsUint64(raw.createdAt)
	if !ok {
		return GameRecord{}, fmt.Errorf("createdAt: unexpected %T", raw.createdAt)
	}
	active, ok := chain.AsBool(raw.active)
	if !ok {
		return GameRecord{}, fmt.Errorf("active: unexpected %T", raw.active)
	}

	return GameRecord{
		GameID:    id,
		License:   license,
		Publisher: publisher,
		CreatedAt: createdAt,
		Active:    active,
	}, nil
}

func selectVariant(out []any) (rawRecord, error) {
	if len(out) == positionalFields {
		return positional(out), nil
	}
	if len(out) != 1 {
		return rawRecord{}, fmt.Errorf("expected 1 or %d values, got %d", positionalFields, len(out))
	}

	v := out[0]
	if tuple, ok := v.([]any); ok {
		if len(tuple) != positionalFields {
			return rawRecord{}, fmt.Errorf("positional record has %d fields", len(tuple))
		}
		return positional(tuple), nil
	}
	if m, ok := v.(map[string]any); ok {
		return named(func(keys []string) (any, bool) {
			for _, k := range keys {
				if x, ok := m[k]; ok {
					return x, true
				}
			}
			return nil, false
		})
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}
	if rv.Kind() == reflect.Struct {
		return named(func(keys []string) (any, bool) {
			for _, k := range keys {
				f := rv.FieldByName(k)
				if f.IsValid() && f.CanInterface() {
					return f.Interface(), true
				}
			}
			return nil, false
		})
	}

	return rawRecord{}, fmt.Errorf("unsupported record shape %T", v)
}

func positional(v []any) rawRecord {
	return rawRecord{license: v[0], publisher: v[1], createdAt: v[2], active: v[3]}
}

func named(lookup func(keys []string) (any, bool)) (rawRecord, error) {
	var r rawRecord
	var ok bool
	if r.license, ok = lookup(namedKeys.license); !ok {
		return rawRecord{}, fmt.Errorf("named record: missing license")
	}
	if r.publisher, ok = lookup(namedKeys.publisher); !ok {
		return rawRecord{}, fmt.Errorf("named record: missing publisher")
	}
	if r.createdAt, ok = lookup(namedKeys.createdAt); !ok {
		return rawRecord{}, fmt.Errorf("named record: missing createdAt")
	}
	if r.active, ok = lookup(namedKeys.active); !ok {
		return rawRecord{}, fmt.Errorf("named record: missing active")
	}
	return r, nil
}
