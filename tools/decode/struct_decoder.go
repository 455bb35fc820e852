package decode

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"

	"github.com/mitchellh/mapstructure"
)

// Options 用于定制 Decode 行为。
type Options struct {
	// 宽松解码："123" -> int、1.0 -> int64 等
	WeaklyTypedInput bool
	// 出现目标结构体没有的字段时报错
	ErrorUnused bool
}

// DefaultOptions 命令参数默认严格：不做类型放宽，多余字段报错
func DefaultOptions() Options {
	return Options{ErrorUnused: true}
}

// Decode 把 json 解出的松散值（map[string]any / []any / json.Number）解码到 T。
// 字段读取使用 `json` tag。
func Decode[T any](in any, opts ...Options) (*T, error) {
	if in == nil {
		return nil, fmt.Errorf("payload is nil")
	}
	cfg := DefaultOptions()
	if len(opts) > 0 {
		cfg = opts[0]
	}

	var out T
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           &out,
		WeaklyTypedInput: cfg.WeaklyTypedInput,
		ErrorUnused:      cfg.ErrorUnused,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			jsonNumberHook(),
			floatToIntHook(),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("new decoder: %w", err)
	}
	if err := dec.Decode(in); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return &out, nil
}

// Single 解析 {"Variant": payload} 形式的单键对象，返回变体名与载荷
func Single(in any) (string, any, error) {
	m, ok := in.(map[string]any)
	if !ok {
		return "", nil, fmt.Errorf("expected object with exactly one variant, got %T", in)
	}
	if len(m) != 1 {
		return "", nil, fmt.Errorf("expected exactly one variant, got %d keys", len(m))
	}
	for k, v := range m {
		return k, v, nil
	}
	return "", nil, nil
}

// ReadUint64 读取无符号整数（兼容 json.Number / float64 / 数字字符串）。
func ReadUint64(v any) (uint64, error) {
	switch t := v.(type) {
	case json.Number:
		return strconv.ParseUint(t.String(), 10, 64)
	case float64:
		if t < 0 || t != float64(uint64(t)) {
			return 0, fmt.Errorf("%v is not an unsigned integer", t)
		}
		return uint64(t), nil
	case string:
		return strconv.ParseUint(t, 10, 64)
	default:
		return 0, fmt.Errorf("type %T not number", v)
	}
}

// ReadString 读取字符串
func ReadString(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("type %T not string", v)
	}
	return s, nil
}

// -----------------------------
// Decode Hooks
// -----------------------------

// jsonNumberHook：json.Number 按目标类型转成整数 / 浮点 / 字符串。
func jsonNumberHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		n, ok := data.(json.Number)
		if !ok {
			return data, nil
		}
		switch to.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return strconv.ParseInt(n.String(), 10, 64)
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return strconv.ParseUint(n.String(), 10, 64)
		case reflect.Float32, reflect.Float64:
			return n.Float64()
		case reflect.String:
			return n.String(), nil
		}
		return data, nil
	}
}

// floatToIntHook：把 float64 自动转为 int / int32 / int64。
func floatToIntHook() mapstructure.DecodeHookFunc {
	return func(from, to reflect.Kind, data any) (any, error) {
		if from != reflect.Float64 {
			return data, nil
		}
		switch to {
		case reflect.Int:
			return int(data.(float64)), nil
		case reflect.Int32:
			return int32(data.(float64)), nil
		case reflect.Int64:
			return int64(data.(float64)), nil
		}
		return data, nil
	}
}
