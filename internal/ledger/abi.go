package ledger

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"cardgame/go-client/internal/rpckit"
)

const maxABIDepth = 32

// ABI is the part of a contract's interface description needed to serialize
// action data.
type ABI struct {
	Version string      `json:"version"`
	Types   []ABIType   `json:"types"`
	Structs []ABIStruct `json:"structs"`
	Actions []ABIAction `json:"actions"`
}

type ABIType struct {
	NewTypeName string `json:"new_type_name"`
	Type        string `json:"type"`
}

type ABIStruct struct {
	Name   string     `json:"name"`
	Base   string     `json:"base"`
	Fields []ABIField `json:"fields"`
}

type ABIField struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type ABIAction struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type abiResponse struct {
	AccountName string `json:"account_name"`
	ABI         *ABI   `json:"abi"`
}

// ContractABI fetches the ABI of account from the node.
func (c *HTTPClient) ContractABI(ctx context.Context, account string) (*ABI, error) {
	var out abiResponse
	if err := c.post(ctx, "/v1/chain/get_abi", map[string]string{"account_name": account}, &out); err != nil {
		return nil, err
	}
	if out.ABI == nil {
		return nil, rpckit.Rejected(0, "abi_not_found", fmt.Sprintf("account %q has no contract ABI", account))
	}
	return out.ABI, nil
}

// PackAction serializes data as the argument struct of action.
func (a *ABI) PackAction(action string, data map[string]any) ([]byte, error) {
	typ := ""
	for _, act := range a.Actions {
		if act.Name == action {
			typ = act.Type
			break
		}
	}
	if typ == "" {
		return nil, rpckit.InvalidInput(fmt.Sprintf("contract ABI declares no action %q", action))
	}
	var e encoder
	if err := a.encode(&e, typ, data, 0); err != nil {
		return nil, rpckit.InvalidInput(fmt.Sprintf("action %s: %v", action, err))
	}
	return e.bytes(), nil
}

func (a *ABI) resolve(typ string) string {
	for i := 0; i < maxABIDepth; i++ {
		next := ""
		for _, t := range a.Types {
			if t.NewTypeName == typ {
				next = t.Type
				break
			}
		}
		if next == "" {
			return typ
		}
		typ = next
	}
	return typ
}

func (a *ABI) findStruct(name string) (ABIStruct, bool) {
	for _, s := range a.Structs {
		if s.Name == name {
			return s, true
		}
	}
	return ABIStruct{}, false
}

func (a *ABI) encode(e *encoder, typ string, v any, depth int) error {
	if depth > maxABIDepth {
		return fmt.Errorf("type %q nests too deeply", typ)
	}
	typ = a.resolve(typ)
	switch {
	case strings.HasSuffix(typ, "?"):
		if v == nil {
			e.uint8(0)
			return nil
		}
		e.uint8(1)
		return a.encode(e, strings.TrimSuffix(typ, "?"), v, depth+1)
	case strings.HasSuffix(typ, "[]"):
		items, err := sliceOf(v)
		if err != nil {
			return fmt.Errorf("%s: %w", typ, err)
		}
		e.varuint32(uint32(len(items)))
		for i, item := range items {
			if err := a.encode(e, strings.TrimSuffix(typ, "[]"), item, depth+1); err != nil {
				return fmt.Errorf("[%d]: %w", i, err)
			}
		}
		return nil
	}
	if handled, err := encodeBuiltin(e, typ, v); handled {
		return err
	}
	st, ok := a.findStruct(typ)
	if !ok {
		return fmt.Errorf("unknown type %q", typ)
	}
	fields, ok := v.(map[string]any)
	if !ok {
		return fmt.Errorf("struct %s needs an object, got %T", typ, v)
	}
	return a.encodeStruct(e, st, fields, depth, true)
}

func (a *ABI) encodeStruct(e *encoder, st ABIStruct, fields map[string]any, depth int, outermost bool) error {
	known := make(map[string]struct{})
	if err := a.encodeFields(e, st, fields, known, depth); err != nil {
		return err
	}
	if !outermost {
		return nil
	}
	var extra []string
	for k := range fields {
		if _, ok := known[k]; !ok {
			extra = append(extra, k)
		}
	}
	if len(extra) > 0 {
		sort.Strings(extra)
		return fmt.Errorf("struct %s has no field %s", st.Name, strings.Join(extra, ", "))
	}
	return nil
}

func (a *ABI) encodeFields(e *encoder, st ABIStruct, fields map[string]any, known map[string]struct{}, depth int) error {
	if st.Base != "" {
		base, ok := a.findStruct(a.resolve(st.Base))
		if !ok {
			return fmt.Errorf("struct %s: unknown base %q", st.Name, st.Base)
		}
		if err := a.encodeFields(e, base, fields, known, depth+1); err != nil {
			return err
		}
	}
	for _, f := range st.Fields {
		known[f.Name] = struct{}{}
		v, present := fields[f.Name]
		typ := f.Type
		if strings.HasSuffix(typ, "$") {
			if !present {
				return nil
			}
			typ = strings.TrimSuffix(typ, "$")
		}
		if !present && !strings.HasSuffix(a.resolve(typ), "?") {
			return fmt.Errorf("missing field %s", f.Name)
		}
		if err := a.encode(e, typ, v, depth+1); err != nil {
			return fmt.Errorf("field %s: %w", f.Name, err)
		}
	}
	return nil
}

func encodeBuiltin(e *encoder, typ string, v any) (bool, error) {
	switch typ {
	case "bool":
		b, ok := v.(bool)
		if !ok {
			return true, fmt.Errorf("bool needs true or false, got %T", v)
		}
		if b {
			e.uint8(1)
		} else {
			e.uint8(0)
		}
		return true, nil
	case "int8", "int16", "int32", "int64", "varint32":
		n, err := toInt64(v)
		if err != nil {
			return true, err
		}
		bits := map[string]int{"int8": 8, "int16": 16, "int32": 32, "int64": 64, "varint32": 32}[typ]
		if bits < 64 && (n < -(1<<(bits-1)) || n > (1<<(bits-1))-1) {
			return true, fmt.Errorf("%d overflows %s", n, typ)
		}
		switch typ {
		case "int8":
			e.uint8(uint8(int8(n)))
		case "int16":
			e.uint16(uint16(int16(n)))
		case "int32":
			e.uint32(uint32(int32(n)))
		case "int64":
			e.uint64(uint64(n))
		default:
			e.varint32(int32(n))
		}
		return true, nil
	case "uint8", "uint16", "uint32", "uint64", "varuint32":
		n, err := toUint64(v)
		if err != nil {
			return true, err
		}
		bits := map[string]int{"uint8": 8, "uint16": 16, "uint32": 32, "uint64": 64, "varuint32": 32}[typ]
		if bits < 64 && n > (1<<bits)-1 {
			return true, fmt.Errorf("%d overflows %s", n, typ)
		}
		switch typ {
		case "uint8":
			e.uint8(uint8(n))
		case "uint16":
			e.uint16(uint16(n))
		case "uint32":
			e.uint32(uint32(n))
		case "uint64":
			e.uint64(n)
		default:
			e.varuint32(uint32(n))
		}
		return true, nil
	case "float32", "float64":
		f, err := toFloat64(v)
		if err != nil {
			return true, err
		}
		if typ == "float32" {
			e.float32(float32(f))
		} else {
			e.float64(f)
		}
		return true, nil
	case "name":
		s, ok := v.(string)
		if !ok {
			return true, fmt.Errorf("name needs a string, got %T", v)
		}
		return true, e.name(s)
	case "string":
		s, ok := v.(string)
		if !ok {
			return true, fmt.Errorf("string needs a string, got %T", v)
		}
		e.blob([]byte(s))
		return true, nil
	case "bytes":
		b, err := toBytes(v)
		if err != nil {
			return true, err
		}
		e.blob(b)
		return true, nil
	case "checksum256":
		b, err := toBytes(v)
		if err != nil {
			return true, err
		}
		if len(b) != 32 {
			return true, fmt.Errorf("checksum256 needs 32 bytes, got %d", len(b))
		}
		e.buf.Write(b)
		return true, nil
	case "time_point_sec":
		s, ok := v.(string)
		if !ok {
			return true, fmt.Errorf("time_point_sec needs a string, got %T", v)
		}
		t, err := time.ParseInLocation(expirationLayout, s, time.UTC)
		if err != nil {
			return true, err
		}
		e.uint32(uint32(t.Unix()))
		return true, nil
	}
	return false, nil
}

func sliceOf(v any) ([]any, error) {
	if items, ok := v.([]any); ok {
		return items, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("needs a list, got %T", v)
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint8, uint16, uint32, uint, uint64:
		u, err := toUint64(n)
		if err != nil {
			return 0, err
		}
		if u > math.MaxInt64 {
			return 0, fmt.Errorf("%d overflows int64", u)
		}
		return int64(u), nil
	case float64:
		if n != math.Trunc(n) || n < math.MinInt64 || n >= math.MaxInt64 {
			return 0, fmt.Errorf("%v is not an integer", n)
		}
		return int64(n), nil
	case json.Number:
		return n.Int64()
	case string:
		return strconv.ParseInt(n, 10, 64)
	default:
		return 0, fmt.Errorf("needs an integer, got %T", v)
	}
}

func toUint64(v any) (uint64, error) {
	switch n := v.(type) {
	case uint:
		return uint64(n), nil
	case uint8:
		return uint64(n), nil
	case uint16:
		return uint64(n), nil
	case uint32:
		return uint64(n), nil
	case uint64:
		return n, nil
	case json.Number:
		return strconv.ParseUint(n.String(), 10, 64)
	case string:
		return strconv.ParseUint(n, 10, 64)
	case float64:
		if n < 0 || n != math.Trunc(n) || n >= math.MaxUint64 {
			return 0, fmt.Errorf("%v is not an unsigned integer", n)
		}
		return uint64(n), nil
	default:
		i, err := toInt64(v)
		if err != nil {
			return 0, err
		}
		if i < 0 {
			return 0, fmt.Errorf("%d is negative", i)
		}
		return uint64(i), nil
	}
}

func toFloat64(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	case string:
		return strconv.ParseFloat(n, 64)
	default:
		i, err := toInt64(v)
		if err != nil {
			return 0, err
		}
		return float64(i), nil
	}
}

func toBytes(v any) ([]byte, error) {
	switch b := v.(type) {
	case []byte:
		return b, nil
	case string:
		return hex.DecodeString(b)
	default:
		return nil, fmt.Errorf("needs hex bytes, got %T", v)
	}
}
