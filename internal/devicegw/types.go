package devicegw

import "encoding/json"

// DataPoint is one reported device datapoint (code/value pair).
//
// Values arrive as JSON and may be numbers, booleans or strings depending on
// the datapoint code. Use Float or Bool to coerce.
type DataPoint struct {
	Code  string `json:"code"`
	Value any    `json:"value"`
}

// Float returns the datapoint value as a float64 when it is numeric.
func (dp DataPoint) Float() (float64, bool) {
	switch v := dp.Value.(type) {
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// Bool returns the datapoint value as a bool when it is boolean.
func (dp DataPoint) Bool() (bool, bool) {
	v, ok := dp.Value.(bool)
	return v, ok
}

// DeviceInfo is the subset of device metadata the engine uses.
type DeviceInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Online   bool   `json:"online"`
}

// Command is a single control instruction sent to a device.
type Command struct {
	Code  string `json:"code"`
	Value any    `json:"value"`
}

// apiResponse is the gateway response envelope. Result is decoded lazily
// because its shape depends on the endpoint.
type apiResponse struct {
	Success bool            `json:"success"`
	Code    int             `json:"code"`
	Msg     string          `json:"msg"`
	T       int64           `json:"t"`
	Result  json.RawMessage `json:"result"`
}

// tokenResult is the payload of a successful token grant.
type tokenResult struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpireTime   int64  `json:"expire_time"` // seconds until expiry
	UID          string `json:"uid"`
}
