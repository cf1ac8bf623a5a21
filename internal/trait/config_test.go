package trait

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseConfig(t *testing.T) {
	tests := []struct {
		name    string
		blob    string
		want    *Config
		wantErr bool
	}{
		{
			name: "empty blob",
			blob: "",
			want: &Config{},
		},
		{
			name: "thermostat modes",
			blob: `{"modesSupported":["off","heat","cool"]}`,
			want: &Config{ModesSupported: []string{"off", "heat", "cool"}},
		},
		{
			name: "humidity flag",
			blob: `{"humiditySupported":true}`,
			want: &Config{HumiditySupported: true},
		},
		{
			name: "camera stream",
			blob: `{"cameraStreamFormat":"hls","cameraStreamDefaultUrl":"https://cam.example/live"}`,
			want: &Config{CameraStreamFormat: "hls", CameraStreamDefaultURL: "https://cam.example/live"},
		},
		{
			name: "fan speeds preserve configured order",
			blob: `{"availableFanSpeeds":{"S1":{"names":["Slow"]},"S2":{"names":["Medium","Normal"]},"S3":{"names":["Fast"]}}}`,
			want: &Config{FanSpeeds: []FanSpeedTier{
				{Name: "S1", Names: []string{"Slow"}},
				{Name: "S2", Names: []string{"Medium", "Normal"}},
				{Name: "S3", Names: []string{"Fast"}},
			}},
		},
		{
			name: "fan speed tier without names gets placeholder",
			blob: `{"availableFanSpeeds":{"S1":{}}}`,
			want: &Config{FanSpeeds: []FanSpeedTier{
				{Name: "S1", Names: []string{"Speed S1"}},
			}},
		},
		{
			name:    "malformed json",
			blob:    `{"modesSupported":`,
			wantErr: true,
		},
		{
			name:    "fan speeds not an object",
			blob:    `{"availableFanSpeeds":[1,2]}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseConfig(tt.blob)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseConfig() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLookup(t *testing.T) {
	tests := []struct {
		kind      Kind
		wantField string
		wantName  string
		wantOK    bool
	}{
		{OnOff, "onoff", "action.devices.traits.OnOff", true},
		{TempSetMode, "tempset.mode", "action.devices.traits.TemperatureSetting", true},
		{TempSetHumidity, "tempset.humidity", "action.devices.traits.TemperatureSetting", true},
		{ColorSettingRGB, "colorsetting", "action.devices.traits.ColorSetting", true},
		{ColorSettingJSON, "colorsetting", "action.devices.traits.ColorSetting", true},
		{ColorSettingTemp, "colorsetting", "action.devices.traits.ColorSetting", true},
		{Kind("Bogus"), "", "", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			d, ok := Lookup(tt.kind)
			if ok != tt.wantOK {
				t.Fatalf("Lookup(%q) ok = %v, want %v", tt.kind, ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if d.CacheField != tt.wantField {
				t.Errorf("cache field = %q, want %q", d.CacheField, tt.wantField)
			}
			if d.ProtocolName != tt.wantName {
				t.Errorf("protocol name = %q, want %q", d.ProtocolName, tt.wantName)
			}
		})
	}
}

func TestLocaleTagCount(t *testing.T) {
	if len(LocaleTags) != 12 {
		t.Errorf("expected 12 locale tags, got %d", len(LocaleTags))
	}
}
