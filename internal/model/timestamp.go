package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// localDateTimeLayout はバックエンドがタイムゾーンなしで返す日時の形式。
const localDateTimeLayout = "2006-01-02T15:04:05.999999999"

// Timestamp はバックエンドの日時をデコードするための型。
// タイムゾーン付き（RFC 3339）とタイムゾーンなしの両方を受け付ける。
type Timestamp struct {
	time.Time
}

// UnmarshalJSON はjson.Unmarshalerを実装する。
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("日時の形式が不正です: %w", err)
	}
	if s == "" {
		return nil
	}

	if parsed, err := time.Parse(time.RFC3339Nano, s); err == nil {
		t.Time = parsed
		return nil
	}

	parsed, err := time.ParseInLocation(localDateTimeLayout, s, time.Local)
	if err != nil {
		return fmt.Errorf("日時のパースに失敗しました: %w", err)
	}
	t.Time = parsed
	return nil
}

// MarshalJSON はjson.Marshalerを実装する。
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Format(time.RFC3339))
}
