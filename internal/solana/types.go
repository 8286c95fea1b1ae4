package solana

import "github.com/mr-tron/base58"

// Filter narrows getProgramAccounts results server-side.
// Exactly one of Memcmp or DataSize is set.
type Filter struct {
	Memcmp   *MemcmpFilter
	DataSize *uint64
}

// MemcmpFilter matches accounts whose data at Offset equals Bytes.
type MemcmpFilter struct {
	Offset uint64
	Bytes  []byte
}

// Memcmp builds a memcmp filter.
func Memcmp(offset uint64, b []byte) Filter {
	return Filter{Memcmp: &MemcmpFilter{Offset: offset, Bytes: b}}
}

// DataSize builds a dataSize filter.
func DataSize(n uint64) Filter {
	return Filter{DataSize: &n}
}

// Matches reports whether data satisfies the filter. Used by stubs and caches.
func (f Filter) Matches(data []byte) bool {
	if f.DataSize != nil && uint64(len(data)) != *f.DataSize {
		return false
	}
	if f.Memcmp != nil {
		end := f.Memcmp.Offset + uint64(len(f.Memcmp.Bytes))
		if end > uint64(len(data)) {
			return false
		}
		for i, b := range f.Memcmp.Bytes {
			if data[f.Memcmp.Offset+uint64(i)] != b {
				return false
			}
		}
	}
	return true
}

// rpcParam renders the filter in JSON-RPC form.
func (f Filter) rpcParam() map[string]interface{} {
	if f.Memcmp != nil {
		return map[string]interface{}{
			"memcmp": map[string]interface{}{
				"offset": f.Memcmp.Offset,
				"bytes":  base58.Encode(f.Memcmp.Bytes),
			},
		}
	}
	if f.DataSize != nil {
		return map[string]interface{}{"dataSize": *f.DataSize}
	}
	return nil
}
