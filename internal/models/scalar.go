package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Score is an integer score. Models do not always honour the integer
// requirement, so fractional numbers are truncated toward zero and numeric
// strings are accepted.
type Score int

func (s *Score) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	text := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		text = strings.TrimSpace(text)
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("score: cannot use %s as a number", data)
	}
	if f > math.MaxInt32 || f < math.MinInt32 {
		return fmt.Errorf("score: %s out of integer range", data)
	}
	*s = Score(math.Trunc(f))
	return nil
}

// FlexString holds a JSON string, or the literal text of a JSON number or boolean.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	case '{', '[':
		return fmt.Errorf("flexstring: cannot use %s as text", data)
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexString(n.String())
		return nil
	}
	var b bool
	if err := json.Unmarshal(data, &b); err != nil {
		return fmt.Errorf("flexstring: cannot use %s as text", data)
	}
	*f = FlexString(strconv.FormatBool(b))
	return nil
}
