package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// Duration 是支持 JSON 字符串解析的 time.Duration 包装类型
//
// 配置文件中的超时字段既可以写人类可读的字符串，也可以写纳秒数：
//
//	{"dial_timeout": "5s"}
//	{"dial_timeout": 5000000000}
//
// 结构体中直接声明为 Duration 即可：
//
//	type TransportConfig struct {
//	    DialTimeout Duration `json:"dial_timeout"`
//	}
type Duration time.Duration

// UnmarshalJSON 实现 json.Unmarshaler 接口
//
// 以引号开头按 time.ParseDuration 解析，否则按纳秒数解析。
func (d *Duration) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration string %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}

	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("duration must be a string (e.g., \"30s\") or number (nanoseconds)")
	}
	*d = Duration(n)
	return nil
}

// MarshalJSON 实现 json.Marshaler 接口
//
// 输出为人类可读的字符串格式
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Duration 返回底层的 time.Duration 值
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// String 返回字符串表示
func (d Duration) String() string {
	return time.Duration(d).String()
}
