package kline

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// IndicatorPayload keeps the backend's indicator overlay verbatim; nothing
// here computes indicators.
type IndicatorPayload json.RawMessage

func (p IndicatorPayload) MarshalJSON() ([]byte, error) {
	if len(p) == 0 {
		return []byte("null"), nil
	}
	return []byte(p), nil
}

func (p *IndicatorPayload) UnmarshalJSON(data []byte) error {
	if p == nil {
		return fmt.Errorf("kline: UnmarshalJSON on nil IndicatorPayload")
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*p = nil
		return nil
	}
	*p = append((*p)[:0], trimmed...)
	return nil
}

func (p IndicatorPayload) Empty() bool { return len(p) == 0 }

// Has reports whether the payload carries a block for ind.
func (p IndicatorPayload) Has(ind Indicator) bool {
	if len(p) == 0 {
		return false
	}
	res := gjson.GetBytes(p, string(ind))
	return res.Exists() && res.Type != gjson.Null
}

// Line is one indicator line; nil entries are warm-up gaps.
type Line []*float64

// MACDData etc. mirror the backend overlay blocks.
type MACDData struct {
	DIF  Line `json:"dif"`
	DEA  Line `json:"dea"`
	MACD Line `json:"macd"`
}

type KDJData struct {
	K Line `json:"k"`
	D Line `json:"d"`
	J Line `json:"j"`
}

type BOLLData struct {
	Mid   Line `json:"mid"`
	Upper Line `json:"upper"`
	Lower Line `json:"lower"`
}

// IndicatorData is the typed view of IndicatorPayload.
type IndicatorData struct {
	MA   map[string]Line `json:"ma,omitempty"`
	MACD *MACDData       `json:"macd,omitempty"`
	KDJ  *KDJData        `json:"kdj,omitempty"`
	RSI  map[string]Line `json:"rsi,omitempty"`
	BOLL *BOLLData       `json:"boll,omitempty"`
}

// Decode parses the payload; an empty payload yields a zero value.
func (p IndicatorPayload) Decode() (IndicatorData, error) {
	var out IndicatorData
	if len(p) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(p, &out); err != nil {
		return IndicatorData{}, fmt.Errorf("decode indicators: %w", err)
	}
	return out, nil
}
