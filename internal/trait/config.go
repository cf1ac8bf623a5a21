package trait

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// FanSpeedTier is one named speed level. Name is the tier identifier sent on
// the command channel (e.g. "S1"); Names are user-facing synonyms.
type FanSpeedTier struct {
	Name  string
	Names []string
}

// Config is the decoded per-device, per-trait configuration blob. It is
// decoded once when the device is loaded and read-only afterwards. Absent
// fields stay at their zero values.
type Config struct {
	ModesSupported         []string
	HumiditySupported      bool
	CameraStreamFormat     string
	CameraStreamDefaultURL string

	// FanSpeeds preserves the configured tier order; the first tier is the
	// query default when no state was ever cached.
	FanSpeeds []FanSpeedTier
}

// rawConfig matches the stored JSON shape.
type rawConfig struct {
	ModesSupported         []string        `json:"modesSupported"`
	HumiditySupported      bool            `json:"humiditySupported"`
	CameraStreamFormat     string          `json:"cameraStreamFormat"`
	CameraStreamDefaultURL string          `json:"cameraStreamDefaultUrl"`
	AvailableFanSpeeds     json.RawMessage `json:"availableFanSpeeds"`
}

// ParseConfig decodes a trait configuration blob. An empty blob yields the
// zero Config; malformed JSON is an error so drift is caught at load time,
// not per request.
func ParseConfig(blob string) (*Config, error) {
	cfg := &Config{}
	if blob == "" {
		return cfg, nil
	}

	var raw rawConfig
	if err := json.Unmarshal([]byte(blob), &raw); err != nil {
		return nil, fmt.Errorf("decoding trait config: %w", err)
	}

	cfg.ModesSupported = raw.ModesSupported
	cfg.HumiditySupported = raw.HumiditySupported
	cfg.CameraStreamFormat = raw.CameraStreamFormat
	cfg.CameraStreamDefaultURL = raw.CameraStreamDefaultURL

	if len(raw.AvailableFanSpeeds) > 0 {
		tiers, err := parseFanSpeeds(raw.AvailableFanSpeeds)
		if err != nil {
			return nil, err
		}
		cfg.FanSpeeds = tiers
	}

	return cfg, nil
}

// parseFanSpeeds walks the availableFanSpeeds object with a token decoder so
// the configured tier order survives; a plain map would lose it.
func parseFanSpeeds(raw json.RawMessage) ([]FanSpeedTier, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("decoding fan speeds: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("decoding fan speeds: expected object, got %v", tok)
	}

	var tiers []FanSpeedTier
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("decoding fan speeds: %w", err)
		}
		name, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("decoding fan speeds: non-string tier name %v", keyTok)
		}

		var tier struct {
			Names []string `json:"names"`
		}
		if err := dec.Decode(&tier); err != nil {
			return nil, fmt.Errorf("decoding fan speed tier %q: %w", name, err)
		}

		names := tier.Names
		if len(names) == 0 {
			names = []string{"Speed " + name}
		}

		tiers = append(tiers, FanSpeedTier{Name: name, Names: names})
	}

	return tiers, nil
}
